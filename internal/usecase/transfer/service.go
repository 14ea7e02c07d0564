package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corebank/transfer-engine/internal/domain"
)

// TransferRequest is the input for executing one transfer between two
// accounts. FromInfo/ToInfo may carry pre-loaded account infos so callers
// looping over many transfers avoid refetching inside the loop.
type TransferRequest struct {
	From        domain.AccountRef
	To          domain.AccountRef
	Amount      decimal.Decimal
	ValueDate   time.Time
	Type        domain.TransferType
	Description string

	// TopUp marks the one supported loan-to-loan shape: the source loan's
	// disbursement directly repays the destination loan
	TopUp bool

	// ChargeID selects the loan charge paid when Type is CHARGE_PAYMENT
	ChargeID *uuid.UUID

	RegularTransaction   bool
	SuppressBalanceCheck bool

	FromInfo *domain.AccountInfo
	ToInfo   *domain.AccountInfo
}

// Orchestrator routes transfer requests to the correct ledger legs and
// keeps the persisted transfer record consistent with both of them
type Orchestrator interface {
	// ExecuteTransfer runs both legs and persists the transfer record in
	// one atomic unit, returning the new transfer transaction id
	ExecuteTransfer(ctx context.Context, req TransferRequest) (uuid.UUID, error)

	// ReverseTransfers reverses every non-reversed transfer transaction
	// matching the selector. Idempotent per transaction; not atomic across
	// the matched list (a failure mid-list leaves earlier reversals
	// committed, re-invoke to complete the rest).
	ReverseTransfers(ctx context.Context, selector domain.ReversalSelector) error

	// RebindLoanTransaction repoints the transfer transaction whose
	// destination leg is the old loan transaction to the new one. No-op
	// when no such transfer exists.
	RebindLoanTransaction(ctx context.Context, oldLoanTransactionID uuid.UUID, newRef domain.TransactionRef) error
}

// TransferService is the concrete orchestrator
type TransferService struct {
	Loans     domain.LoanLedger
	Savings   domain.SavingsLedger
	Transfers domain.TransferRepository
	UoW       domain.UnitOfWork

	assembler *Assembler
}

// NewTransferService creates a new TransferService instance
func NewTransferService(loans domain.LoanLedger, savings domain.SavingsLedger,
	transfers domain.TransferRepository, uow domain.UnitOfWork) *TransferService {
	return &TransferService{
		Loans:     loans,
		Savings:   savings,
		Transfers: transfers,
		UoW:       uow,
		assembler: NewAssembler(transfers),
	}
}

// ExecuteTransfer routes the request by its (from-type, to-type) pair:
//
//	savings -> savings   withdraw + deposit
//	savings -> loan      withdraw + repay/pay-charge
//	loan    -> savings   refund + deposit
//	loan    -> loan      disburse + repay, top-up only
//
// Both ledger legs and the transfer record share one transactional
// boundary: if either leg or the persistence write fails, nothing sticks.
// The database side rolls back through the unit of work; legs already
// posted in their ledger are undone with a compensating reversal, since
// the remote ledgers cannot join the database transaction.
func (s *TransferService) ExecuteTransfer(ctx context.Context, req TransferRequest) (uuid.UUID, error) {
	if err := validateRequest(req); err != nil {
		return uuid.Nil, err
	}

	var transactionID uuid.UUID
	err := s.UoW.Do(ctx, func(ctx context.Context) error {
		from, err := s.resolveAccount(ctx, req.From, req.FromInfo)
		if err != nil {
			return err
		}
		to, err := s.resolveAccount(ctx, req.To, req.ToInfo)
		if err != nil {
			return err
		}

		if req.From.Type.IsSavings() && req.To.Type.IsSavings() && from.Currency != to.Currency {
			return domain.NewValidationError("accounts have different currencies: %s vs %s", from.Currency, to.Currency)
		}

		fromRef, toRef, err := s.executeLegs(ctx, req, from)
		if err != nil {
			return err
		}

		tx, err := s.assembler.Assemble(ctx, *from, *to, req.Type, req.Amount, req.ValueDate, req.Description, fromRef, toRef)
		if err != nil {
			return s.compensate(ctx, err,
				postedLeg{ref: fromRef, account: req.From},
				postedLeg{ref: toRef, account: req.To})
		}
		transactionID = tx.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return transactionID, nil
}

// executeLegs posts the source leg then the destination leg and returns
// both ledger transaction references
func (s *TransferService) executeLegs(ctx context.Context, req TransferRequest,
	from *domain.AccountInfo) (domain.TransactionRef, domain.TransactionRef, error) {

	var none domain.TransactionRef

	switch {
	case req.From.Type.IsSavings():
		flags := domain.WithdrawalFlags{
			AccountTransfer:      true,
			RegularTransaction:   req.RegularTransaction,
			ApplyWithdrawalFee:   from.WithdrawalFeeOnTransfer,
			InterestTransfer:     req.Type.IsInterestTransfer(),
			SuppressBalanceCheck: req.SuppressBalanceCheck,
		}
		withdrawalID, err := s.Savings.Withdraw(ctx, req.From.ID, req.Amount, req.ValueDate, flags)
		if err != nil {
			return none, none, err
		}
		fromRef := domain.TransactionRef{Type: domain.AccountTypeSavings, ID: withdrawalID}

		if req.To.Type.IsSavings() {
			depositID, err := s.Savings.Deposit(ctx, req.To.ID, req.Amount, req.ValueDate)
			if err != nil {
				return none, none, s.compensate(ctx, err, postedLeg{ref: fromRef, account: req.From})
			}
			return fromRef, domain.TransactionRef{Type: domain.AccountTypeSavings, ID: depositID}, nil
		}

		toRef, err := s.postLoanLeg(ctx, req)
		if err != nil {
			return none, none, s.compensate(ctx, err, postedLeg{ref: fromRef, account: req.From})
		}
		return fromRef, toRef, nil

	case req.To.Type.IsSavings():
		refundID, err := s.Loans.Refund(ctx, req.From.ID, req.Amount, req.ValueDate)
		if err != nil {
			return none, none, err
		}
		fromRef := domain.TransactionRef{Type: domain.AccountTypeLoan, ID: refundID}
		depositID, err := s.Savings.Deposit(ctx, req.To.ID, req.Amount, req.ValueDate)
		if err != nil {
			return none, none, s.compensate(ctx, err, postedLeg{ref: fromRef, account: req.From})
		}
		return fromRef, domain.TransactionRef{Type: domain.AccountTypeSavings, ID: depositID}, nil

	default: // loan -> loan, top-up (validated upfront)
		disbursementID, err := s.Loans.Disburse(ctx, req.From.ID, req.Amount, req.ValueDate)
		if err != nil {
			return none, none, err
		}
		fromRef := domain.TransactionRef{Type: domain.AccountTypeLoan, ID: disbursementID}
		repaymentID, err := s.Loans.Repay(ctx, req.To.ID, domain.RepaymentRegular, req.Amount, req.ValueDate)
		if err != nil {
			return none, none, s.compensate(ctx, err, postedLeg{ref: fromRef, account: req.From})
		}
		return fromRef, domain.TransactionRef{Type: domain.AccountTypeLoan, ID: repaymentID}, nil
	}
}

// postLoanLeg posts the destination loan leg according to the transfer purpose
func (s *TransferService) postLoanLeg(ctx context.Context, req TransferRequest) (domain.TransactionRef, error) {
	var (
		transactionID uuid.UUID
		err           error
	)
	switch {
	case req.Type.IsChargePayment():
		transactionID, err = s.Loans.PayCharge(ctx, req.To.ID, *req.ChargeID, req.Amount, req.ValueDate)
	case req.Type.IsLoanDownPayment():
		transactionID, err = s.Loans.Repay(ctx, req.To.ID, domain.RepaymentDown, req.Amount, req.ValueDate)
	default:
		transactionID, err = s.Loans.Repay(ctx, req.To.ID, domain.RepaymentRegular, req.Amount, req.ValueDate)
	}
	if err != nil {
		return domain.TransactionRef{}, err
	}
	return domain.TransactionRef{Type: domain.AccountTypeLoan, ID: transactionID}, nil
}

// resolveAccount uses the pre-loaded info when the caller supplied one,
// otherwise fetches from the owning ledger
func (s *TransferService) resolveAccount(ctx context.Context, ref domain.AccountRef,
	preloaded *domain.AccountInfo) (*domain.AccountInfo, error) {
	if preloaded != nil {
		return preloaded, nil
	}
	if ref.Type.IsLoan() {
		return s.Loans.Account(ctx, ref.ID)
	}
	return s.Savings.Account(ctx, ref.ID)
}

// ReverseTransfers reverses each matched transaction in turn: loan legs via
// the loan ledger, savings legs via the savings ledger, then the reversed
// flag on the transfer record. Already-reversed transactions are not
// matched, so re-invoking after a mid-list failure completes the remainder.
func (s *TransferService) ReverseTransfers(ctx context.Context, selector domain.ReversalSelector) error {
	candidates, err := s.Transfers.ListForReversal(ctx, selector)
	if err != nil {
		return err
	}

	for _, candidate := range candidates {
		if err := s.reverseOne(ctx, candidate); err != nil {
			return err
		}
	}
	return nil
}

func (s *TransferService) reverseOne(ctx context.Context, candidate *domain.ReversalCandidate) error {
	tx := candidate.Transaction
	if tx.Reversed {
		return nil
	}

	if err := s.reverseLeg(ctx, tx.FromRef, candidate.Details.FromAccount); err != nil {
		return err
	}
	if err := s.reverseLeg(ctx, tx.ToRef, candidate.Details.ToAccount); err != nil {
		return err
	}
	return s.Transfers.MarkReversed(ctx, tx.ID)
}

// postedLeg pairs an already-posted ledger transaction with its account,
// which the savings-side reversal needs
type postedLeg struct {
	ref     domain.TransactionRef
	account domain.AccountRef
}

// compensate undoes already-posted legs after a later step of the same
// transfer has failed. The remote ledgers sit outside the database
// transaction, so this reversal is their rollback. The original cause is
// returned either way; when the undo itself fails the error carries the
// stranded leg so operators can reconcile it by hand.
func (s *TransferService) compensate(ctx context.Context, cause error, legs ...postedLeg) error {
	for _, leg := range legs {
		if err := s.reverseLeg(ctx, leg.ref, leg.account); err != nil {
			return fmt.Errorf("%w (compensating %s leg %s also failed: %v)",
				cause, leg.ref.Type, leg.ref.ID, err)
		}
	}
	return cause
}

func (s *TransferService) reverseLeg(ctx context.Context, ref domain.TransactionRef, account domain.AccountRef) error {
	if ref.IsZero() {
		return nil
	}
	if ref.Type.IsLoan() {
		return s.Loans.Reverse(ctx, ref.ID)
	}
	return s.Savings.Reverse(ctx, account.ID, ref.ID)
}

// RebindLoanTransaction finds the transfer whose destination leg is the old
// loan transaction and repoints it to the new one. Used when the loan
// ledger supersedes a posted transaction with a replayed one.
func (s *TransferService) RebindLoanTransaction(ctx context.Context, oldLoanTransactionID uuid.UUID,
	newRef domain.TransactionRef) error {
	if !newRef.Type.IsLoan() {
		return domain.NewValidationError("rebind target must be a loan transaction, got %s", newRef.Type)
	}

	tx, err := s.Transfers.FindByDestinationLoanTransaction(ctx, oldLoanTransactionID)
	if err != nil {
		return err
	}
	if tx == nil {
		return nil
	}
	return s.Transfers.RebindDestination(ctx, tx.ID, newRef)
}

func validateRequest(req TransferRequest) error {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return domain.NewValidationError("transfer amount must be positive")
	}
	if req.ValueDate.IsZero() {
		return domain.NewValidationError("transfer value date is required")
	}
	if req.From == req.To {
		return domain.NewValidationError("transfer to the same account %s", req.From)
	}
	if req.From.Type.IsLoan() && req.To.Type.IsLoan() && !req.TopUp {
		return domain.NewValidationError("account transfer from loan %s to loan %s is not supported outside top-up", req.From.ID, req.To.ID)
	}
	if req.Type.IsChargePayment() {
		if !req.To.Type.IsLoan() {
			return domain.NewValidationError("charge payment requires a loan destination account")
		}
		if req.ChargeID == nil {
			return domain.NewValidationError("charge payment requires a charge id")
		}
	}
	return nil
}
