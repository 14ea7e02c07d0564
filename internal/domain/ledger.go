package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RepaymentKind selects the loan transaction type of a repayment leg
type RepaymentKind string

const (
	RepaymentRegular RepaymentKind = "REPAYMENT"
	RepaymentDown    RepaymentKind = "DOWN_PAYMENT"
)

// WithdrawalFlags carries the transfer semantics a savings withdrawal leg
// needs: whether this is part of an account transfer, whether it is a
// regular (user-visible) transaction, whether the withdrawal fee applies,
// whether it moves posted interest, and whether the balance check may be
// suppressed.
type WithdrawalFlags struct {
	AccountTransfer      bool
	RegularTransaction   bool
	ApplyWithdrawalFee   bool
	InterestTransfer     bool
	SuppressBalanceCheck bool
}

// DuesSummary is the outstanding-obligations view of a loan as of a date:
// the total of principal, interest, fees and penalties on installments due
// and not fully settled, plus the due date of the nearest unmet installment.
type DuesSummary struct {
	NearestDueDate   *time.Time // nil when nothing is outstanding
	TotalOutstanding decimal.Decimal
}

// LoanLedger is the loan-side collaborator: the repayment/disbursement
// engine specified only by this interface. Every mutating call posts one
// loan transaction and returns its id, or fails with a domain error.
type LoanLedger interface {
	// Account resolves a loan account's booking info
	Account(ctx context.Context, loanID uuid.UUID) (*AccountInfo, error)

	// Repay posts a repayment (or down-payment) against the loan
	Repay(ctx context.Context, loanID uuid.UUID, kind RepaymentKind, amount decimal.Decimal, date time.Time) (uuid.UUID, error)

	// PayCharge pays one loan charge
	PayCharge(ctx context.Context, loanID, chargeID uuid.UUID, amount decimal.Decimal, date time.Time) (uuid.UUID, error)

	// Disburse posts a disbursement out of the loan (top-up source leg)
	Disburse(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal, date time.Time) (uuid.UUID, error)

	// Refund pays out of an overpaid loan
	Refund(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal, date time.Time) (uuid.UUID, error)

	// Reverse marks a previously posted loan transaction reversed
	Reverse(ctx context.Context, transactionID uuid.UUID) error

	// OutstandingDues summarizes unmet obligations up to the given date
	OutstandingDues(ctx context.Context, loanID uuid.UUID, asOf time.Time) (*DuesSummary, error)
}

// SavingsLedger is the savings-side collaborator: the posting engine that
// owns balance checks and withdrawal fees.
type SavingsLedger interface {
	// Account resolves a savings account's booking info
	Account(ctx context.Context, savingsID uuid.UUID) (*AccountInfo, error)

	// Withdraw posts a withdrawal, applying the balance check unless the
	// flags suppress it
	Withdraw(ctx context.Context, savingsID uuid.UUID, amount decimal.Decimal, date time.Time, flags WithdrawalFlags) (uuid.UUID, error)

	// Deposit posts a deposit
	Deposit(ctx context.Context, savingsID uuid.UUID, amount decimal.Decimal, date time.Time) (uuid.UUID, error)

	// Reverse marks a previously posted savings transaction reversed
	Reverse(ctx context.Context, savingsID, transactionID uuid.UUID) error
}
