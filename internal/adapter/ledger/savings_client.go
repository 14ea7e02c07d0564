package ledger

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corebank/transfer-engine/internal/domain"
)

// SavingsClient implements domain.SavingsLedger against the savings
// service API
type SavingsClient struct {
	api apiClient
}

// NewSavingsClient creates a new savings ledger client. A nil http client
// gets a default with a 30s timeout.
func NewSavingsClient(baseURL string, client *http.Client) *SavingsClient {
	return &SavingsClient{api: newAPIClient(baseURL, client)}
}

// Account resolves a savings account's booking info
func (c *SavingsClient) Account(ctx context.Context, savingsID uuid.UUID) (*domain.AccountInfo, error) {
	var payload accountPayload
	if err := c.api.do(ctx, http.MethodGet, "/savings/"+savingsID.String(), nil, &payload); err != nil {
		return nil, err
	}
	return payloadToInfo(payload, domain.AccountTypeSavings)
}

type withdrawalRequest struct {
	Amount               string `json:"amount"`
	Date                 string `json:"date"`
	AccountTransfer      bool   `json:"account_transfer"`
	RegularTransaction   bool   `json:"regular_transaction"`
	ApplyWithdrawalFee   bool   `json:"apply_withdrawal_fee"`
	InterestTransfer     bool   `json:"interest_transfer"`
	SuppressBalanceCheck bool   `json:"suppress_balance_check"`
}

// Withdraw posts a withdrawal. The savings service owns the balance check
// and answers 409 when funds are insufficient, which surfaces here as
// domain.ErrInsufficientFunds.
func (c *SavingsClient) Withdraw(ctx context.Context, savingsID uuid.UUID, amount decimal.Decimal,
	date time.Time, flags domain.WithdrawalFlags) (uuid.UUID, error) {

	request := withdrawalRequest{
		Amount:               amount.String(),
		Date:                 date.Format(dateFormat),
		AccountTransfer:      flags.AccountTransfer,
		RegularTransaction:   flags.RegularTransaction,
		ApplyWithdrawalFee:   flags.ApplyWithdrawalFee,
		InterestTransfer:     flags.InterestTransfer,
		SuppressBalanceCheck: flags.SuppressBalanceCheck,
	}
	var payload transactionPayload
	if err := c.api.do(ctx, http.MethodPost, "/savings/"+savingsID.String()+"/withdrawals", request, &payload); err != nil {
		return uuid.Nil, err
	}
	return parseTransactionID(payload)
}

type depositRequest struct {
	Amount string `json:"amount"`
	Date   string `json:"date"`
}

// Deposit posts a deposit
func (c *SavingsClient) Deposit(ctx context.Context, savingsID uuid.UUID,
	amount decimal.Decimal, date time.Time) (uuid.UUID, error) {

	request := depositRequest{Amount: amount.String(), Date: date.Format(dateFormat)}
	var payload transactionPayload
	if err := c.api.do(ctx, http.MethodPost, "/savings/"+savingsID.String()+"/deposits", request, &payload); err != nil {
		return uuid.Nil, err
	}
	return parseTransactionID(payload)
}

// Reverse marks a previously posted savings transaction reversed
func (c *SavingsClient) Reverse(ctx context.Context, savingsID, transactionID uuid.UUID) error {
	path := "/savings/" + savingsID.String() + "/transactions/" + transactionID.String() + "/reverse"
	return c.api.do(ctx, http.MethodPost, path, nil, nil)
}

func parseTransactionID(payload transactionPayload) (uuid.UUID, error) {
	transactionID, err := uuid.Parse(payload.TransactionID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse savings transaction id: %w", err)
	}
	return transactionID, nil
}
