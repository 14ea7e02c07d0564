package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ReversalSelectorKind picks how transfer transactions are matched for reversal
type ReversalSelectorKind int

const (
	// SelectByFromLoanAccount matches all transfers whose source leg is the
	// given loan account
	SelectByFromLoanAccount ReversalSelectorKind = iota + 1

	// SelectByFromLoanTransactions matches transfers whose source leg is one
	// of the given loan transactions
	SelectByFromLoanTransactions

	// SelectByAccountAnySide matches transfers touching the account on
	// either side
	SelectByAccountAnySide
)

// ReversalSelector identifies the set of transfer transactions a reversal
// call applies to
type ReversalSelector struct {
	Kind           ReversalSelectorKind
	LoanAccountID  uuid.UUID
	TransactionIDs []uuid.UUID
	Account        AccountRef
}

// TransferRepository persists transfer details and their transactions
type TransferRepository interface {
	// FindDetails returns the details record already linking this exact
	// account pair and purpose, or nil when none exists
	FindDetails(ctx context.Context, from, to AccountRef, transferType TransferType) (*TransferDetails, error)

	// CreateDetails persists a new details record
	CreateDetails(ctx context.Context, details *TransferDetails) error

	// AddTransaction appends a transaction under an existing details record
	AddTransaction(ctx context.Context, tx *TransferTransaction) error

	// ListForReversal returns the non-reversed transactions matching the
	// selector, each with the details record it belongs to
	ListForReversal(ctx context.Context, selector ReversalSelector) ([]*ReversalCandidate, error)

	// MarkReversed flags one transaction reversed
	MarkReversed(ctx context.Context, transactionID uuid.UUID) error

	// FindByDestinationLoanTransaction returns the transaction whose
	// destination leg is the given loan transaction, or nil
	FindByDestinationLoanTransaction(ctx context.Context, loanTransactionID uuid.UUID) (*TransferTransaction, error)

	// RebindDestination repoints a transaction's destination leg
	RebindDestination(ctx context.Context, transactionID uuid.UUID, newRef TransactionRef) error
}

// ReversalCandidate pairs a transfer transaction with its aggregate root,
// which carries the account ids the savings-side reversal needs
type ReversalCandidate struct {
	Transaction *TransferTransaction
	Details     *TransferDetails
}

// InstructionRepository persists standing instruction rules
type InstructionRepository interface {
	// Create persists a new rule
	Create(ctx context.Context, instruction *StandingInstruction) error

	// Update persists changes to an existing rule
	Update(ctx context.Context, instruction *StandingInstruction) error

	// GetByID retrieves a rule by its id
	GetByID(ctx context.Context, id uuid.UUID) (*StandingInstruction, error)

	// FindByName retrieves a live rule by its name, or nil when none exists.
	// Deleted rules do not hold their name.
	FindByName(ctx context.Context, name string) (*StandingInstruction, error)

	// ListActiveByPriority returns all active rules ordered by priority
	// descending, ties broken by creation order
	ListActiveByPriority(ctx context.Context) ([]*StandingInstruction, error)

	// AdvanceLastRun sets the rule's last-run-date
	AdvanceLastRun(ctx context.Context, id uuid.UUID, runDate time.Time) error
}

// HistoryRepository persists the append-only execution history
type HistoryRepository interface {
	// Append records one attempt
	Append(ctx context.Context, entry *ExecutionHistoryEntry) error

	// LatestAttempt returns the timestamp of the most recent attempt for an
	// instruction, or nil when it has never been attempted
	LatestAttempt(ctx context.Context, instructionID uuid.UUID) (*time.Time, error)
}

// UnitOfWork runs a function inside one atomic persistence boundary.
// Everything written through context-aware repositories inside fn commits
// or rolls back together.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Clock supplies the current time. Today is the business date that drives
// due-ness checks; Now stamps execution history. Injected so both can be
// tested across simulated todays.
type Clock interface {
	Today() time.Time
	Now() time.Time
}
