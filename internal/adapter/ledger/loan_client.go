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

// LoanClient implements domain.LoanLedger against the loan service API
type LoanClient struct {
	api apiClient
}

// NewLoanClient creates a new loan ledger client. A nil http client gets a
// default with a 30s timeout.
func NewLoanClient(baseURL string, client *http.Client) *LoanClient {
	return &LoanClient{api: newAPIClient(baseURL, client)}
}

// Account resolves a loan account's booking info
func (c *LoanClient) Account(ctx context.Context, loanID uuid.UUID) (*domain.AccountInfo, error) {
	var payload accountPayload
	if err := c.api.do(ctx, http.MethodGet, "/loans/"+loanID.String(), nil, &payload); err != nil {
		return nil, err
	}
	return payloadToInfo(payload, domain.AccountTypeLoan)
}

type loanTransactionRequest struct {
	Type   string `json:"type"`
	Amount string `json:"amount"`
	Date   string `json:"date"`
}

// Repay posts a repayment or down-payment against the loan
func (c *LoanClient) Repay(ctx context.Context, loanID uuid.UUID, kind domain.RepaymentKind,
	amount decimal.Decimal, date time.Time) (uuid.UUID, error) {
	txType := "repayment"
	if kind == domain.RepaymentDown {
		txType = "down_payment"
	}
	return c.postTransaction(ctx, "/loans/"+loanID.String()+"/transactions", txType, amount, date)
}

// PayCharge pays one loan charge
func (c *LoanClient) PayCharge(ctx context.Context, loanID, chargeID uuid.UUID,
	amount decimal.Decimal, date time.Time) (uuid.UUID, error) {
	path := "/loans/" + loanID.String() + "/charges/" + chargeID.String() + "/pay"
	return c.postTransaction(ctx, path, "charge_payment", amount, date)
}

// Disburse posts a disbursement out of the loan
func (c *LoanClient) Disburse(ctx context.Context, loanID uuid.UUID,
	amount decimal.Decimal, date time.Time) (uuid.UUID, error) {
	return c.postTransaction(ctx, "/loans/"+loanID.String()+"/transactions", "disbursement", amount, date)
}

// Refund pays out of an overpaid loan
func (c *LoanClient) Refund(ctx context.Context, loanID uuid.UUID,
	amount decimal.Decimal, date time.Time) (uuid.UUID, error) {
	return c.postTransaction(ctx, "/loans/"+loanID.String()+"/transactions", "refund", amount, date)
}

// Reverse marks a previously posted loan transaction reversed
func (c *LoanClient) Reverse(ctx context.Context, transactionID uuid.UUID) error {
	return c.api.do(ctx, http.MethodPost, "/loans/transactions/"+transactionID.String()+"/reverse", nil, nil)
}

// OutstandingDues summarizes the loan's unmet obligations up to the date
func (c *LoanClient) OutstandingDues(ctx context.Context, loanID uuid.UUID,
	asOf time.Time) (*domain.DuesSummary, error) {

	var payload struct {
		NearestDueDate   *string `json:"nearest_due_date"`
		TotalOutstanding string  `json:"total_outstanding"`
	}
	path := fmt.Sprintf("/loans/%s/outstanding-dues?as_of=%s", loanID, asOf.Format(dateFormat))
	if err := c.api.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}

	total, err := decimal.NewFromString(payload.TotalOutstanding)
	if err != nil {
		return nil, fmt.Errorf("failed to parse outstanding total: %w", err)
	}

	summary := &domain.DuesSummary{TotalOutstanding: total}
	if payload.NearestDueDate != nil {
		dueDate, err := time.Parse(dateFormat, *payload.NearestDueDate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse nearest due date: %w", err)
		}
		summary.NearestDueDate = &dueDate
	}
	return summary, nil
}

func (c *LoanClient) postTransaction(ctx context.Context, path, txType string,
	amount decimal.Decimal, date time.Time) (uuid.UUID, error) {

	request := loanTransactionRequest{
		Type:   txType,
		Amount: amount.String(),
		Date:   date.Format(dateFormat),
	}
	var payload transactionPayload
	if err := c.api.do(ctx, http.MethodPost, path, request, &payload); err != nil {
		return uuid.Nil, err
	}
	transactionID, err := uuid.Parse(payload.TransactionID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse loan transaction id: %w", err)
	}
	return transactionID, nil
}

func payloadToInfo(payload accountPayload, accountType domain.AccountType) (*domain.AccountInfo, error) {
	id, err := uuid.Parse(payload.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse account id: %w", err)
	}
	officeID, err := uuid.Parse(payload.OfficeID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse office id: %w", err)
	}
	clientID, err := uuid.Parse(payload.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client id: %w", err)
	}
	return &domain.AccountInfo{
		Ref:                     domain.AccountRef{Type: accountType, ID: id},
		OfficeID:                officeID,
		ClientID:                clientID,
		Currency:                payload.Currency,
		WithdrawalFeeOnTransfer: payload.WithdrawalFeeOnTransfer,
	}, nil
}
