package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// AccountType identifies which ledger an account lives in
type AccountType string

const (
	AccountTypeLoan    AccountType = "LOAN"
	AccountTypeSavings AccountType = "SAVINGS"
)

// IsLoan reports whether the account type is a loan account
func (t AccountType) IsLoan() bool {
	return t == AccountTypeLoan
}

// IsSavings reports whether the account type is a savings account
func (t AccountType) IsSavings() bool {
	return t == AccountTypeSavings
}

// AccountRef is a tagged reference to an account in one of the two ledgers.
// It replaces the "check which nullable foreign key is populated" pattern:
// every place that references an account carries the ledger tag with it.
type AccountRef struct {
	Type AccountType
	ID   uuid.UUID
}

// String returns a human-readable form used in error messages and logs
func (r AccountRef) String() string {
	return fmt.Sprintf("%s/%s", r.Type, r.ID)
}

// TransactionRef is a tagged reference to one posted ledger transaction
// (one leg of a transfer). The tag says which ledger owns the transaction.
type TransactionRef struct {
	Type AccountType
	ID   uuid.UUID
}

// IsZero reports whether the reference is unset
func (r TransactionRef) IsZero() bool {
	return r.ID == uuid.Nil
}

// AccountInfo is what the transfer orchestrator needs to know about an
// account beyond its reference: where it is booked and in which currency.
// Callers that already hold this (e.g. the scheduler looping over rules)
// may pass it into ExecuteTransfer to avoid a refetch from the ledger.
type AccountInfo struct {
	Ref      AccountRef
	OfficeID uuid.UUID
	ClientID uuid.UUID
	Currency string

	// WithdrawalFeeOnTransfer is meaningful for savings accounts only:
	// whether the account's withdrawal fee also applies to transfers out.
	WithdrawalFeeOnTransfer bool
}
