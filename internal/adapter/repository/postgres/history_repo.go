package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/corebank/transfer-engine/internal/domain"
)

// historyRepository implements domain.HistoryRepository
type historyRepository struct {
	db *DB
}

// NewHistoryRepository creates a new execution history repository
func NewHistoryRepository(db *DB) domain.HistoryRepository {
	return &historyRepository{db: db}
}

// Append records one attempt. History is append-only.
func (r *historyRepository) Append(ctx context.Context, entry *domain.ExecutionHistoryEntry) error {
	query := `
		INSERT INTO execution_history (id, instruction_id, outcome, amount, executed_at, error_text)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.exec(ctx).ExecContext(ctx, query,
		entry.ID,
		entry.InstructionID,
		string(entry.Outcome),
		entry.Amount.String(),
		entry.ExecutedAt,
		entry.ErrorText,
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution history entry: %w", err)
	}
	return nil
}

// LatestAttempt returns the timestamp of the most recent attempt for an
// instruction, or nil when it has never been attempted
func (r *historyRepository) LatestAttempt(ctx context.Context, instructionID uuid.UUID) (*time.Time, error) {
	query := `
		SELECT executed_at
		FROM execution_history
		WHERE instruction_id = $1
		ORDER BY executed_at DESC
		LIMIT 1
	`

	var executedAt time.Time
	err := r.db.exec(ctx).QueryRowContext(ctx, query, instructionID).Scan(&executedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query latest execution attempt: %w", err)
	}
	return &executedAt, nil
}
