// Package ledger contains HTTP clients for the external loan and savings
// ledger services. The engines that post the actual account transactions
// (balance checks, fees, amortization) live behind these APIs; this
// package only maps their wire surface onto the domain ports.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/corebank/transfer-engine/internal/domain"
)

const dateFormat = "2006-01-02"

// apiClient is the shared JSON-over-HTTP plumbing of both ledger clients
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string, client *http.Client) apiClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return apiClient{baseURL: baseURL, http: client}
}

// do issues one JSON request and decodes the response into out (when non-nil).
// Ledger error responses are mapped onto the domain error taxonomy:
// 404 is a missing account, 409 a balance-rule violation, and any 5xx or
// transport failure a service-unavailable condition the scheduler may retry
// on the next tick.
func (c apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = new(bytes.Buffer)
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", domain.ErrAccountNotFound, method, path)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s %s", domain.ErrInsufficientFunds, method, path)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s %s returned %d", domain.ErrServiceUnavailable, method, path, resp.StatusCode)
	default:
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return domain.NewValidationError("ledger rejected %s %s: %s", method, path, apiErr.Message)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response body: %w", err)
		}
	}
	return nil
}

type accountPayload struct {
	ID                      string `json:"id"`
	OfficeID                string `json:"office_id"`
	ClientID                string `json:"client_id"`
	Currency                string `json:"currency"`
	WithdrawalFeeOnTransfer bool   `json:"withdrawal_fee_on_transfer"`
}

type transactionPayload struct {
	TransactionID string `json:"transaction_id"`
}
