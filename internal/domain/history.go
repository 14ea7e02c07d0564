package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExecutionOutcome is the result of one scheduler attempt on one rule
type ExecutionOutcome string

const (
	OutcomeSuccess ExecutionOutcome = "SUCCESS"
	OutcomeFailed  ExecutionOutcome = "FAILED"
)

// ExecutionHistoryEntry is the append-only record of one scheduler attempt.
// Exactly one entry is written per due rule per run, whatever the outcome.
type ExecutionHistoryEntry struct {
	ID            uuid.UUID
	InstructionID uuid.UUID
	Outcome       ExecutionOutcome
	Amount        decimal.Decimal
	ExecutedAt    time.Time
	ErrorText     string // empty on success
}
