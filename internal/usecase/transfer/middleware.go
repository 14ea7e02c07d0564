package transfer

import (
	"context"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/google/uuid"

	"github.com/corebank/transfer-engine/internal/domain"
)

// Middleware describes an orchestrator middleware
type Middleware func(Orchestrator) Orchestrator

// LoggingMiddleware takes a logger as a dependency and returns an
// orchestrator middleware logging every operation with its outcome
func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next Orchestrator) Orchestrator {
		return loggingMiddleware{logger, next}
	}
}

type loggingMiddleware struct {
	logger log.Logger
	next   Orchestrator
}

func (mw loggingMiddleware) ExecuteTransfer(ctx context.Context, req TransferRequest) (id uuid.UUID, err error) {
	defer func() {
		_ = level.Info(mw.logger).Log("method", "ExecuteTransfer",
			"from", req.From.String(), "to", req.To.String(),
			"type", string(req.Type), "amount", req.Amount.String(), "err", err)
	}()
	return mw.next.ExecuteTransfer(ctx, req)
}

func (mw loggingMiddleware) ReverseTransfers(ctx context.Context, selector domain.ReversalSelector) (err error) {
	defer func() {
		_ = level.Info(mw.logger).Log("method", "ReverseTransfers", "kind", int(selector.Kind), "err", err)
	}()
	return mw.next.ReverseTransfers(ctx, selector)
}

func (mw loggingMiddleware) RebindLoanTransaction(ctx context.Context, oldLoanTransactionID uuid.UUID,
	newRef domain.TransactionRef) (err error) {
	defer func() {
		_ = level.Info(mw.logger).Log("method", "RebindLoanTransaction",
			"old", oldLoanTransactionID.String(), "new", newRef.ID.String(), "err", err)
	}()
	return mw.next.RebindLoanTransaction(ctx, oldLoanTransactionID, newRef)
}
