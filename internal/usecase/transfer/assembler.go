package transfer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebank/transfer-engine/internal/domain"
)

// Assembler builds the persisted transfer record once both ledger legs have
// succeeded. The details record linking one (from, to, purpose) pair is
// created on first use and reused afterwards; each executed transfer adds
// one child transaction under it.
type Assembler struct {
	Transfers domain.TransferRepository
}

// NewAssembler creates a new Assembler instance
func NewAssembler(transfers domain.TransferRepository) *Assembler {
	return &Assembler{Transfers: transfers}
}

// Assemble persists (and returns) the transfer transaction pairing the two
// given legs, creating the details record when this account pair has not
// transferred for this purpose before
func (a *Assembler) Assemble(ctx context.Context, from, to domain.AccountInfo,
	transferType domain.TransferType, amount decimal.Decimal, valueDate time.Time,
	description string, fromRef, toRef domain.TransactionRef) (*domain.TransferTransaction, error) {

	details, err := a.Transfers.FindDetails(ctx, from.Ref, to.Ref, transferType)
	if err != nil {
		return nil, err
	}
	if details == nil {
		details = domain.NewTransferDetails(from, to, transferType)
		if err := a.Transfers.CreateDetails(ctx, details); err != nil {
			return nil, err
		}
	}

	tx := domain.NewTransferTransaction(details.ID, amount, valueDate, description, fromRef, toRef)
	if err := a.Transfers.AddTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}
