package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferType represents the business purpose of a transfer
type TransferType string

const (
	TransferTypeAccountTransfer  TransferType = "ACCOUNT_TRANSFER"
	TransferTypeLoanRepayment    TransferType = "LOAN_REPAYMENT"
	TransferTypeChargePayment    TransferType = "CHARGE_PAYMENT"
	TransferTypeInterestTransfer TransferType = "INTEREST_TRANSFER"
	TransferTypeLoanDownPayment  TransferType = "LOAN_DOWN_PAYMENT"
)

// IsChargePayment reports whether the transfer pays a loan charge
func (t TransferType) IsChargePayment() bool {
	return t == TransferTypeChargePayment
}

// IsInterestTransfer reports whether the transfer moves posted interest
func (t TransferType) IsInterestTransfer() bool {
	return t == TransferTypeInterestTransfer
}

// IsLoanDownPayment reports whether the transfer is a loan down payment
func (t TransferType) IsLoanDownPayment() bool {
	return t == TransferTypeLoanDownPayment
}

// TransferDetails is the aggregate root linking one (from, to, purpose)
// account pair. It is created on the first transfer between that pair and is
// immutable afterwards except for its child transaction list.
type TransferDetails struct {
	ID           uuid.UUID
	FromOfficeID uuid.UUID
	FromClientID uuid.UUID
	FromAccount  AccountRef
	ToOfficeID   uuid.UUID
	ToClientID   uuid.UUID
	ToAccount    AccountRef
	Currency     string
	TransferType TransferType
	Transactions []TransferTransaction
}

// TransferTransaction is one executed movement under a TransferDetails:
// a source leg and a destination leg, both already posted in their ledgers.
// It is never deleted, only flagged reversed.
type TransferTransaction struct {
	ID          uuid.UUID
	DetailsID   uuid.UUID
	Amount      decimal.Decimal
	ValueDate   time.Time
	Description string
	Reversed    bool
	FromRef     TransactionRef
	ToRef       TransactionRef
}

// Reverse flags the transaction as reversed. The flag is monotonic: an
// already-reversed transaction cannot be un-reversed, and reversing it again
// is an error the caller is expected to treat as "skip".
func (t *TransferTransaction) Reverse() error {
	if t.Reversed {
		return ErrAlreadyReversed
	}
	t.Reversed = true
	return nil
}

// ErrAlreadyReversed signals a reversal attempt on an already-reversed
// transfer transaction
var ErrAlreadyReversed = errors.New("transfer transaction already reversed")

// NewTransferDetails assembles the aggregate root for a first transfer
// between an account pair. Both account infos must belong to their
// respective ledgers; the shared currency is taken from the source side.
func NewTransferDetails(from, to AccountInfo, transferType TransferType) *TransferDetails {
	return &TransferDetails{
		ID:           uuid.New(),
		FromOfficeID: from.OfficeID,
		FromClientID: from.ClientID,
		FromAccount:  from.Ref,
		ToOfficeID:   to.OfficeID,
		ToClientID:   to.ClientID,
		ToAccount:    to.Ref,
		Currency:     from.Currency,
		TransferType: transferType,
	}
}

// NewTransferTransaction pairs two already-posted ledger legs under a
// details record
func NewTransferTransaction(detailsID uuid.UUID, amount decimal.Decimal, valueDate time.Time,
	description string, fromRef, toRef TransactionRef) *TransferTransaction {
	return &TransferTransaction{
		ID:          uuid.New(),
		DetailsID:   detailsID,
		Amount:      amount,
		ValueDate:   valueDate,
		Description: description,
		Reversed:    false,
		FromRef:     fromRef,
		ToRef:       toRef,
	}
}
