package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corebank/transfer-engine/internal/domain"
)

func TestLoanClient_Account(t *testing.T) {
	loanID := uuid.New()
	officeID := uuid.New()
	clientID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/loans/"+loanID.String(), r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":        loanID.String(),
			"office_id": officeID.String(),
			"client_id": clientID.String(),
			"currency":  "EUR",
		})
	}))
	defer server.Close()

	client := NewLoanClient(server.URL, nil)
	info, err := client.Account(context.Background(), loanID)

	require.NoError(t, err)
	assert.Equal(t, domain.AccountRef{Type: domain.AccountTypeLoan, ID: loanID}, info.Ref)
	assert.Equal(t, officeID, info.OfficeID)
	assert.Equal(t, "EUR", info.Currency)
}

func TestLoanClient_Account_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewLoanClient(server.URL, nil)
	_, err := client.Account(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestLoanClient_OutstandingDues(t *testing.T) {
	loanID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/loans/"+loanID.String()+"/outstanding-dues", r.URL.Path)
		assert.Equal(t, "2026-03-15", r.URL.Query().Get("as_of"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"nearest_due_date":  "2026-03-15",
			"total_outstanding": "340.50",
		})
	}))
	defer server.Close()

	client := NewLoanClient(server.URL, nil)
	summary, err := client.OutstandingDues(context.Background(), loanID,
		time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	require.NotNil(t, summary.NearestDueDate)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), *summary.NearestDueDate)
	assert.True(t, summary.TotalOutstanding.Equal(decimal.RequireFromString("340.50")))
}

func TestLoanClient_OutstandingDues_NothingOutstanding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"nearest_due_date":  nil,
			"total_outstanding": "0",
		})
	}))
	defer server.Close()

	client := NewLoanClient(server.URL, nil)
	summary, err := client.OutstandingDues(context.Background(), uuid.New(),
		time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Nil(t, summary.NearestDueDate)
	assert.True(t, summary.TotalOutstanding.IsZero())
}

func TestLoanClient_Repay_SendsKind(t *testing.T) {
	loanID := uuid.New()
	transactionID := uuid.New()

	var got loanTransactionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{"transaction_id": transactionID.String()})
	}))
	defer server.Close()

	client := NewLoanClient(server.URL, nil)
	id, err := client.Repay(context.Background(), loanID, domain.RepaymentDown,
		decimal.NewFromInt(75), time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, transactionID, id)
	assert.Equal(t, "down_payment", got.Type)
	assert.Equal(t, "75", got.Amount)
	assert.Equal(t, "2026-03-15", got.Date)
}

func TestSavingsClient_Withdraw_SendsFlagsAndMapsConflict(t *testing.T) {
	savingsID := uuid.New()
	transactionID := uuid.New()

	var got withdrawalRequest
	conflict := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/savings/"+savingsID.String()+"/withdrawals", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if conflict {
			w.WriteHeader(http.StatusConflict)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"transaction_id": transactionID.String()})
	}))
	defer server.Close()

	client := NewSavingsClient(server.URL, nil)
	flags := domain.WithdrawalFlags{
		AccountTransfer:    true,
		RegularTransaction: true,
		ApplyWithdrawalFee: true,
	}

	id, err := client.Withdraw(context.Background(), savingsID, decimal.NewFromInt(120),
		time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), flags)

	require.NoError(t, err)
	assert.Equal(t, transactionID, id)
	assert.True(t, got.AccountTransfer)
	assert.True(t, got.ApplyWithdrawalFee)
	assert.False(t, got.SuppressBalanceCheck)

	// the savings service owns the balance check: 409 becomes the
	// insufficient-funds sentinel
	conflict = true
	_, err = client.Withdraw(context.Background(), savingsID, decimal.NewFromInt(120),
		time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), flags)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestAPIClient_ServerErrorIsServiceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewSavingsClient(server.URL, nil)
	_, err := client.Deposit(context.Background(), uuid.New(), decimal.NewFromInt(10),
		time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))

	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestAPIClient_TransportFailureIsServiceUnavailable(t *testing.T) {
	// a closed server refuses the connection
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewLoanClient(server.URL, nil)
	err := client.Reverse(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestAPIClient_RejectionIsValidationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "value date falls before activation"}`)
	}))
	defer server.Close()

	client := NewSavingsClient(server.URL, nil)
	_, err := client.Deposit(context.Background(), uuid.New(), decimal.NewFromInt(10),
		time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))

	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Contains(t, err.Error(), "value date falls before activation")
}
