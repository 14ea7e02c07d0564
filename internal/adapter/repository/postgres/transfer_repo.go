package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/corebank/transfer-engine/internal/domain"
)

// transferRepository implements domain.TransferRepository
type transferRepository struct {
	db *DB
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *DB) domain.TransferRepository {
	return &transferRepository{db: db}
}

// FindDetails returns the details record linking this exact account pair
// and purpose, or nil when the pair has not transferred for this purpose yet
func (r *transferRepository) FindDetails(ctx context.Context, from, to domain.AccountRef,
	transferType domain.TransferType) (*domain.TransferDetails, error) {

	query := `
		SELECT id, from_office_id, from_client_id, from_account_type, from_account_id,
		       to_office_id, to_client_id, to_account_type, to_account_id,
		       currency, transfer_type
		FROM transfer_details
		WHERE from_account_type = $1 AND from_account_id = $2
		  AND to_account_type = $3 AND to_account_id = $4
		  AND transfer_type = $5
	`

	var details domain.TransferDetails
	err := r.db.exec(ctx).QueryRowContext(ctx, query,
		string(from.Type), from.ID, string(to.Type), to.ID, string(transferType),
	).Scan(
		&details.ID,
		&details.FromOfficeID,
		&details.FromClientID,
		&details.FromAccount.Type,
		&details.FromAccount.ID,
		&details.ToOfficeID,
		&details.ToClientID,
		&details.ToAccount.Type,
		&details.ToAccount.ID,
		&details.Currency,
		&details.TransferType,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find transfer details: %w", err)
	}
	return &details, nil
}

// CreateDetails persists a new details record
func (r *transferRepository) CreateDetails(ctx context.Context, details *domain.TransferDetails) error {
	query := `
		INSERT INTO transfer_details (id, from_office_id, from_client_id, from_account_type, from_account_id,
		                              to_office_id, to_client_id, to_account_type, to_account_id,
		                              currency, transfer_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.exec(ctx).ExecContext(ctx, query,
		details.ID,
		details.FromOfficeID,
		details.FromClientID,
		string(details.FromAccount.Type),
		details.FromAccount.ID,
		details.ToOfficeID,
		details.ToClientID,
		string(details.ToAccount.Type),
		details.ToAccount.ID,
		details.Currency,
		string(details.TransferType),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transfer details: %w", err)
	}
	return nil
}

// AddTransaction appends a transaction under an existing details record
func (r *transferRepository) AddTransaction(ctx context.Context, tx *domain.TransferTransaction) error {
	query := `
		INSERT INTO transfer_transactions (id, details_id, amount, value_date, description, reversed,
		                                   from_leg_type, from_leg_transaction_id, to_leg_type, to_leg_transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.exec(ctx).ExecContext(ctx, query,
		tx.ID,
		tx.DetailsID,
		tx.Amount.String(),
		tx.ValueDate,
		tx.Description,
		tx.Reversed,
		string(tx.FromRef.Type),
		tx.FromRef.ID,
		string(tx.ToRef.Type),
		tx.ToRef.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transfer transaction: %w", err)
	}
	return nil
}

const reversalCandidateColumns = `
	SELECT t.id, t.details_id, t.amount, t.value_date, t.description, t.reversed,
	       t.from_leg_type, t.from_leg_transaction_id, t.to_leg_type, t.to_leg_transaction_id,
	       d.id, d.from_office_id, d.from_client_id, d.from_account_type, d.from_account_id,
	       d.to_office_id, d.to_client_id, d.to_account_type, d.to_account_id,
	       d.currency, d.transfer_type
	FROM transfer_transactions t
	JOIN transfer_details d ON d.id = t.details_id
`

// ListForReversal returns the non-reversed transactions matching the selector
func (r *transferRepository) ListForReversal(ctx context.Context,
	selector domain.ReversalSelector) ([]*domain.ReversalCandidate, error) {

	var (
		query string
		args  []any
	)
	switch selector.Kind {
	case domain.SelectByFromLoanAccount:
		query = reversalCandidateColumns + `
			WHERE t.reversed = FALSE
			  AND d.from_account_type = $1 AND d.from_account_id = $2
			ORDER BY t.value_date, t.id
		`
		args = []any{string(domain.AccountTypeLoan), selector.LoanAccountID}
	case domain.SelectByFromLoanTransactions:
		if len(selector.TransactionIDs) == 0 {
			return nil, nil
		}
		query = reversalCandidateColumns + `
			WHERE t.reversed = FALSE
			  AND t.from_leg_type = $1 AND t.from_leg_transaction_id = ANY($2)
			ORDER BY t.value_date, t.id
		`
		args = []any{string(domain.AccountTypeLoan), pq.Array(selector.TransactionIDs)}
	case domain.SelectByAccountAnySide:
		query = reversalCandidateColumns + `
			WHERE t.reversed = FALSE
			  AND ((d.from_account_type = $1 AND d.from_account_id = $2)
			    OR (d.to_account_type = $1 AND d.to_account_id = $2))
			ORDER BY t.value_date, t.id
		`
		args = []any{string(selector.Account.Type), selector.Account.ID}
	default:
		return nil, fmt.Errorf("unknown reversal selector kind %d", selector.Kind)
	}

	rows, err := r.db.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reversal candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*domain.ReversalCandidate
	for rows.Next() {
		candidate, err := scanReversalCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reversal candidates: %w", err)
	}
	return candidates, nil
}

func scanReversalCandidate(rows *sql.Rows) (*domain.ReversalCandidate, error) {
	var (
		tx        domain.TransferTransaction
		details   domain.TransferDetails
		amountStr string
	)
	err := rows.Scan(
		&tx.ID,
		&tx.DetailsID,
		&amountStr,
		&tx.ValueDate,
		&tx.Description,
		&tx.Reversed,
		&tx.FromRef.Type,
		&tx.FromRef.ID,
		&tx.ToRef.Type,
		&tx.ToRef.ID,
		&details.ID,
		&details.FromOfficeID,
		&details.FromClientID,
		&details.FromAccount.Type,
		&details.FromAccount.ID,
		&details.ToOfficeID,
		&details.ToClientID,
		&details.ToAccount.Type,
		&details.ToAccount.ID,
		&details.Currency,
		&details.TransferType,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan reversal candidate: %w", err)
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transfer amount: %w", err)
	}
	tx.Amount = amount

	return &domain.ReversalCandidate{Transaction: &tx, Details: &details}, nil
}

// MarkReversed flags one transaction reversed. The flag never goes back.
func (r *transferRepository) MarkReversed(ctx context.Context, transactionID uuid.UUID) error {
	query := `UPDATE transfer_transactions SET reversed = TRUE WHERE id = $1`

	result, err := r.db.exec(ctx).ExecContext(ctx, query, transactionID)
	if err != nil {
		return fmt.Errorf("failed to mark transfer transaction reversed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transfer transaction %s not found", transactionID)
	}
	return nil
}

// FindByDestinationLoanTransaction returns the transaction whose destination
// leg is the given loan transaction, or nil
func (r *transferRepository) FindByDestinationLoanTransaction(ctx context.Context,
	loanTransactionID uuid.UUID) (*domain.TransferTransaction, error) {

	query := `
		SELECT id, details_id, amount, value_date, description, reversed,
		       from_leg_type, from_leg_transaction_id, to_leg_type, to_leg_transaction_id
		FROM transfer_transactions
		WHERE to_leg_type = $1 AND to_leg_transaction_id = $2
	`

	var (
		tx        domain.TransferTransaction
		amountStr string
	)
	err := r.db.exec(ctx).QueryRowContext(ctx, query,
		string(domain.AccountTypeLoan), loanTransactionID,
	).Scan(
		&tx.ID,
		&tx.DetailsID,
		&amountStr,
		&tx.ValueDate,
		&tx.Description,
		&tx.Reversed,
		&tx.FromRef.Type,
		&tx.FromRef.ID,
		&tx.ToRef.Type,
		&tx.ToRef.ID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find transfer by destination leg: %w", err)
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transfer amount: %w", err)
	}
	tx.Amount = amount
	return &tx, nil
}

// RebindDestination repoints a transaction's destination leg
func (r *transferRepository) RebindDestination(ctx context.Context, transactionID uuid.UUID,
	newRef domain.TransactionRef) error {

	query := `UPDATE transfer_transactions SET to_leg_type = $1, to_leg_transaction_id = $2 WHERE id = $3`

	_, err := r.db.exec(ctx).ExecContext(ctx, query, string(newRef.Type), newRef.ID, transactionID)
	if err != nil {
		return fmt.Errorf("failed to rebind transfer destination leg: %w", err)
	}
	return nil
}
