package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corebank/transfer-engine/internal/domain"
	"github.com/corebank/transfer-engine/internal/usecase/transfer"
)

// RuleFailure is one rule's failed attempt within a scheduler run
type RuleFailure struct {
	InstructionID uuid.UUID
	Kind          domain.ErrorKind
	Message       string
}

// RunReport summarizes one scheduler run. Failures hold the structured
// per-rule errors; callers decide how to format or aggregate them.
type RunReport struct {
	Executed int
	Skipped  int
	Failures []RuleFailure
}

// BatchError is the single aggregate failure raised when one or more rules
// failed within a run. The successful transfers from the same run stay
// committed; this error only reports the failed remainder.
type BatchError struct {
	Failures []RuleFailure
}

func (e *BatchError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("instruction %s [%s]: %s", f.InstructionID, f.Kind, f.Message))
	}
	return fmt.Sprintf("%d standing instruction(s) failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

// Service runs the daily standing-instruction batch. One invocation per
// tick; rules execute sequentially in priority order, and one rule's
// failure never stops the rest of the batch.
type Service struct {
	Instructions domain.InstructionRepository
	History      domain.HistoryRepository
	Loans        domain.LoanLedger
	Orchestrator transfer.Orchestrator
	Clock        domain.Clock
	Logger       log.Logger
}

// NewService creates a new scheduler Service instance
func NewService(instructions domain.InstructionRepository, history domain.HistoryRepository,
	loans domain.LoanLedger, orchestrator transfer.Orchestrator, clock domain.Clock,
	logger log.Logger) *Service {
	return &Service{
		Instructions: instructions,
		History:      history,
		Loans:        loans,
		Orchestrator: orchestrator,
		Clock:        clock,
		Logger:       logger,
	}
}

// RunDueInstructions executes every due standing instruction for today.
// Per rule: due-ness, amount, transfer, history entry; last-run-date
// advances only on success so a failed rule is retried on the next tick.
// At most one attempt is made per rule per day: a rule already attempted
// today (successfully or not) is skipped on a same-day re-run.
//
// Returns a BatchError iff at least one rule failed; everything that
// succeeded in the same run stays committed.
func (s *Service) RunDueInstructions(ctx context.Context) (RunReport, error) {
	today := domain.DateOnly(s.Clock.Today())

	rules, err := s.Instructions.ListActiveByPriority(ctx)
	if err != nil {
		return RunReport{}, fmt.Errorf("failed to load active standing instructions: %w", err)
	}

	var report RunReport
	for _, rule := range rules {
		if !rule.EligibleOn(today) {
			report.Skipped++
			continue
		}
		attempted, attemptErr := s.attemptedToday(ctx, rule, today)
		if attemptErr != nil {
			s.recordFailure(ctx, &report, rule, decimal.Zero, attemptErr)
			continue
		}
		if attempted {
			report.Skipped++
			continue
		}

		due, amount, evalErr := s.evaluate(ctx, rule, today)
		if evalErr != nil {
			s.recordFailure(ctx, &report, rule, amount, evalErr)
			continue
		}
		if !due || amount.LessThanOrEqual(decimal.Zero) {
			report.Skipped++
			continue
		}

		_, execErr := s.Orchestrator.ExecuteTransfer(ctx, s.buildRequest(rule, amount, today))
		if execErr != nil {
			s.recordFailure(ctx, &report, rule, amount, execErr)
			continue
		}
		s.recordSuccess(ctx, &report, rule, amount, today)
	}

	if len(report.Failures) > 0 {
		return report, &BatchError{Failures: report.Failures}
	}
	return report, nil
}

// attemptedToday enforces the one-attempt-per-tick policy: a successful run
// is visible through last-run-date, a failed one through its history entry
func (s *Service) attemptedToday(ctx context.Context, rule *domain.StandingInstruction, today time.Time) (bool, error) {
	if rule.RanOn(today) {
		return true, nil
	}
	latest, err := s.History.LatestAttempt(ctx, rule.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load execution history for instruction %s: %w", rule.ID, err)
	}
	return latest != nil && domain.SameDay(*latest, today), nil
}

// evaluate determines due-ness and the transfer amount for one rule.
// Fixed-amount rules use the configured amount; dues-amount rules use the
// destination loan's outstanding total. As-per-dues recurrence is due
// exactly when the nearest unmet installment falls due today.
func (s *Service) evaluate(ctx context.Context, rule *domain.StandingInstruction,
	today time.Time) (bool, decimal.Decimal, error) {

	needsDues := rule.Type == domain.InstructionTypeDuesAmount ||
		rule.Recurrence == domain.RecurrenceTypeAsPerDues

	var dues *domain.DuesSummary
	if needsDues {
		var err error
		dues, err = s.Loans.OutstandingDues(ctx, rule.ToAccount.ID, today)
		if err != nil {
			return false, decimal.Zero, err
		}
	}

	var due bool
	if rule.Recurrence == domain.RecurrenceTypeAsPerDues {
		due = dues.NearestDueDate != nil && domain.SameDay(*dues.NearestDueDate, today)
	} else {
		due = IsDue(rule, today)
	}

	var amount decimal.Decimal
	if rule.Type == domain.InstructionTypeFixedAmount {
		amount = *rule.Amount
	} else {
		amount = dues.TotalOutstanding
	}
	return due, amount, nil
}

func (s *Service) buildRequest(rule *domain.StandingInstruction, amount decimal.Decimal,
	today time.Time) transfer.TransferRequest {
	return transfer.TransferRequest{
		From:                 rule.FromAccount,
		To:                   rule.ToAccount,
		Amount:               amount,
		ValueDate:            today,
		Type:                 rule.TransferType,
		Description:          fmt.Sprintf("standing instruction %s", rule.Name),
		TopUp:                rule.FromAccount.Type.IsLoan() && rule.ToAccount.Type.IsLoan(),
		RegularTransaction:   true,
		SuppressBalanceCheck: false,
	}
}

// recordSuccess writes the history entry and advances last-run-date. The
// history write happens after the transfer's own transaction boundary has
// already committed, so it always reflects a real outcome.
func (s *Service) recordSuccess(ctx context.Context, report *RunReport,
	rule *domain.StandingInstruction, amount decimal.Decimal, today time.Time) {

	s.appendHistory(ctx, rule, domain.OutcomeSuccess, amount, "")

	if err := s.Instructions.AdvanceLastRun(ctx, rule.ID, today); err != nil {
		// the transfer is committed; the rule will be skipped today anyway
		// through its history entry
		_ = level.Warn(s.Logger).Log("msg", "failed to advance last run date",
			"instruction", rule.ID.String(), "err", err)
	}
	report.Executed++
	_ = level.Info(s.Logger).Log("msg", "standing instruction executed",
		"instruction", rule.ID.String(), "name", rule.Name, "amount", amount.String())
}

func (s *Service) recordFailure(ctx context.Context, report *RunReport,
	rule *domain.StandingInstruction, amount decimal.Decimal, cause error) {

	kind := domain.Classify(cause)
	message := fmt.Sprintf("%s error: standing instruction %s transferring from %s to %s: %v",
		kind, rule.ID, rule.FromAccount, rule.ToAccount, cause)

	s.appendHistory(ctx, rule, domain.OutcomeFailed, amount, message)

	report.Failures = append(report.Failures, RuleFailure{
		InstructionID: rule.ID,
		Kind:          kind,
		Message:       message,
	})
	_ = level.Warn(s.Logger).Log("msg", "standing instruction failed",
		"instruction", rule.ID.String(), "name", rule.Name, "kind", string(kind), "err", cause)
}

func (s *Service) appendHistory(ctx context.Context, rule *domain.StandingInstruction,
	outcome domain.ExecutionOutcome, amount decimal.Decimal, errorText string) {

	entry := &domain.ExecutionHistoryEntry{
		ID:            uuid.New(),
		InstructionID: rule.ID,
		Outcome:       outcome,
		Amount:        amount,
		ExecutedAt:    s.Clock.Now(),
		ErrorText:     errorText,
	}
	if err := s.History.Append(ctx, entry); err != nil {
		_ = level.Error(s.Logger).Log("msg", "failed to append execution history",
			"instruction", rule.ID.String(), "err", err)
	}
}
