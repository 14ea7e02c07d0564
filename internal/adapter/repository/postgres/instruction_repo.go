package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corebank/transfer-engine/internal/domain"
)

// instructionRepository implements domain.InstructionRepository
type instructionRepository struct {
	db *DB
}

// NewInstructionRepository creates a new standing instruction repository
func NewInstructionRepository(db *DB) domain.InstructionRepository {
	return &instructionRepository{db: db}
}

const instructionColumns = `
	id, name, status, priority, instruction_type, recurrence_type,
	recurrence_frequency, recurrence_interval, recurrence_on_day, recurrence_on_month,
	valid_from, valid_till, amount, last_run_date,
	from_account_type, from_account_id, to_account_type, to_account_id,
	transfer_type, created_at
`

// Create persists a new rule
func (r *instructionRepository) Create(ctx context.Context, instruction *domain.StandingInstruction) error {
	query := `
		INSERT INTO standing_instructions (` + instructionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.db.exec(ctx).ExecContext(ctx, query,
		instruction.ID,
		instruction.Name,
		string(instruction.Status),
		int(instruction.Priority),
		string(instruction.Type),
		string(instruction.Recurrence),
		string(instruction.Frequency),
		instruction.Interval,
		instruction.OnDay,
		instruction.OnMonth,
		instruction.ValidFrom,
		instruction.ValidTill,
		amountOrNil(instruction.Amount),
		instruction.LastRunDate,
		string(instruction.FromAccount.Type),
		instruction.FromAccount.ID,
		string(instruction.ToAccount.Type),
		instruction.ToAccount.ID,
		string(instruction.TransferType),
		instruction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert standing instruction: %w", err)
	}
	return nil
}

// Update persists changes to an existing rule
func (r *instructionRepository) Update(ctx context.Context, instruction *domain.StandingInstruction) error {
	query := `
		UPDATE standing_instructions
		SET status = $2, priority = $3, instruction_type = $4, recurrence_type = $5,
		    recurrence_frequency = $6, recurrence_interval = $7, recurrence_on_day = $8,
		    recurrence_on_month = $9, valid_till = $10, amount = $11
		WHERE id = $1
	`

	result, err := r.db.exec(ctx).ExecContext(ctx, query,
		instruction.ID,
		string(instruction.Status),
		int(instruction.Priority),
		string(instruction.Type),
		string(instruction.Recurrence),
		string(instruction.Frequency),
		instruction.Interval,
		instruction.OnDay,
		instruction.OnMonth,
		instruction.ValidTill,
		amountOrNil(instruction.Amount),
	)
	if err != nil {
		return fmt.Errorf("failed to update standing instruction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("standing instruction %s not found", instruction.ID)
	}
	return nil
}

// GetByID retrieves a rule by its id
func (r *instructionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.StandingInstruction, error) {
	query := `SELECT ` + instructionColumns + ` FROM standing_instructions WHERE id = $1`

	instruction, err := scanInstruction(r.db.exec(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("standing instruction %s not found: %w", id, err)
		}
		return nil, fmt.Errorf("failed to get standing instruction: %w", err)
	}
	return instruction, nil
}

// FindByName retrieves a live rule by its name, or nil when none exists.
// Deleted rules release their name for reuse and are never returned.
func (r *instructionRepository) FindByName(ctx context.Context, name string) (*domain.StandingInstruction, error) {
	query := `SELECT ` + instructionColumns + ` FROM standing_instructions WHERE name = $1 AND status <> $2`

	instruction, err := scanInstruction(r.db.exec(ctx).QueryRowContext(ctx, query, name,
		string(domain.InstructionStatusDeleted)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find standing instruction by name: %w", err)
	}
	return instruction, nil
}

// ListActiveByPriority returns all active rules, highest priority first,
// ties broken by creation order
func (r *instructionRepository) ListActiveByPriority(ctx context.Context) ([]*domain.StandingInstruction, error) {
	query := `
		SELECT ` + instructionColumns + `
		FROM standing_instructions
		WHERE status = $1
		ORDER BY priority DESC, created_at ASC, id ASC
	`

	rows, err := r.db.exec(ctx).QueryContext(ctx, query, string(domain.InstructionStatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to query active standing instructions: %w", err)
	}
	defer rows.Close()

	var instructions []*domain.StandingInstruction
	for rows.Next() {
		instruction, err := scanInstruction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan standing instruction: %w", err)
		}
		instructions = append(instructions, instruction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating standing instructions: %w", err)
	}
	return instructions, nil
}

// AdvanceLastRun sets the rule's last-run-date
func (r *instructionRepository) AdvanceLastRun(ctx context.Context, id uuid.UUID, runDate time.Time) error {
	query := `UPDATE standing_instructions SET last_run_date = $2 WHERE id = $1`

	_, err := r.db.exec(ctx).ExecContext(ctx, query, id, runDate)
	if err != nil {
		return fmt.Errorf("failed to advance last run date: %w", err)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstruction(row rowScanner) (*domain.StandingInstruction, error) {
	var (
		instruction domain.StandingInstruction
		priority    int
		amountStr   sql.NullString
	)
	err := row.Scan(
		&instruction.ID,
		&instruction.Name,
		&instruction.Status,
		&priority,
		&instruction.Type,
		&instruction.Recurrence,
		&instruction.Frequency,
		&instruction.Interval,
		&instruction.OnDay,
		&instruction.OnMonth,
		&instruction.ValidFrom,
		&instruction.ValidTill,
		&amountStr,
		&instruction.LastRunDate,
		&instruction.FromAccount.Type,
		&instruction.FromAccount.ID,
		&instruction.ToAccount.Type,
		&instruction.ToAccount.ID,
		&instruction.TransferType,
		&instruction.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	instruction.Priority = domain.InstructionPriority(priority)

	if amountStr.Valid {
		amount, err := decimal.NewFromString(amountStr.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse instruction amount: %w", err)
		}
		instruction.Amount = &amount
	}
	return &instruction, nil
}

func amountOrNil(amount *decimal.Decimal) any {
	if amount == nil {
		return nil
	}
	return amount.String()
}
