package instruction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corebank/transfer-engine/internal/domain"
)

// CreateInput represents the input for creating a standing instruction
type CreateInput struct {
	Name         string
	Priority     domain.InstructionPriority
	Type         domain.InstructionType
	Recurrence   domain.RecurrenceType
	Frequency    domain.PeriodFrequency
	Interval     int
	OnDay        int
	OnMonth      int
	ValidFrom    time.Time
	ValidTill    *time.Time
	Amount       *decimal.Decimal
	FromAccount  domain.AccountRef
	ToAccount    domain.AccountRef
	TransferType domain.TransferType
}

// UpdateInput carries the mutable fields of a standing instruction. Nil
// fields are left unchanged.
type UpdateInput struct {
	Priority   *domain.InstructionPriority
	Status     *domain.InstructionStatus
	Amount     *decimal.Decimal
	Interval   *int
	OnDay      *int
	OnMonth    *int
	ValidTill  *time.Time
	Recurrence *domain.RecurrenceType
	Frequency  *domain.PeriodFrequency
}

// Service manages the standing instruction lifecycle. The scheduler only
// ever advances last-run-date; every other mutation goes through here.
type Service struct {
	Instructions domain.InstructionRepository
	Clock        domain.Clock
}

// NewService creates a new instruction Service instance
func NewService(instructions domain.InstructionRepository, clock domain.Clock) *Service {
	return &Service{Instructions: instructions, Clock: clock}
}

// Create validates and persists a new active standing instruction,
// returning its id. Names are unique across all non-deleted rules.
func (s *Service) Create(ctx context.Context, input CreateInput) (uuid.UUID, error) {
	existing, err := s.Instructions.FindByName(ctx, input.Name)
	if err != nil {
		return uuid.Nil, err
	}
	if existing != nil && existing.Status != domain.InstructionStatusDeleted {
		return uuid.Nil, domain.NewValidationError("standing instruction name %q already in use", input.Name)
	}

	rule := &domain.StandingInstruction{
		ID:           uuid.New(),
		Name:         input.Name,
		Status:       domain.InstructionStatusActive,
		Priority:     input.Priority,
		Type:         input.Type,
		Recurrence:   input.Recurrence,
		Frequency:    input.Frequency,
		Interval:     input.Interval,
		OnDay:        input.OnDay,
		OnMonth:      input.OnMonth,
		ValidFrom:    domain.DateOnly(input.ValidFrom),
		ValidTill:    input.ValidTill,
		Amount:       input.Amount,
		FromAccount:  input.FromAccount,
		ToAccount:    input.ToAccount,
		TransferType: input.TransferType,
		CreatedAt:    s.Clock.Today(),
	}
	if rule.ValidTill != nil {
		till := domain.DateOnly(*rule.ValidTill)
		rule.ValidTill = &till
	}

	if err := rule.Validate(); err != nil {
		return uuid.Nil, domain.NewValidationError("%v", err)
	}
	if rule.FromAccount.Type.IsLoan() && rule.ToAccount.Type.IsLoan() {
		return uuid.Nil, domain.NewValidationError("standing instructions between two loan accounts are not supported")
	}

	if err := s.Instructions.Create(ctx, rule); err != nil {
		return uuid.Nil, err
	}
	return rule.ID, nil
}

// Update applies the non-nil fields of input to an existing rule.
// Deleted rules cannot be updated, and status can only move between
// Active and Disabled here.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) error {
	rule, err := s.Instructions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rule.Status == domain.InstructionStatusDeleted {
		return domain.NewValidationError("standing instruction %s is deleted", id)
	}

	if input.Status != nil {
		if *input.Status == domain.InstructionStatusDeleted {
			return domain.NewValidationError("use delete to remove a standing instruction")
		}
		rule.Status = *input.Status
	}
	if input.Priority != nil {
		rule.Priority = *input.Priority
	}
	if input.Amount != nil {
		rule.Amount = input.Amount
	}
	if input.Recurrence != nil {
		rule.Recurrence = *input.Recurrence
	}
	if input.Frequency != nil {
		rule.Frequency = *input.Frequency
	}
	if input.Interval != nil {
		rule.Interval = *input.Interval
	}
	if input.OnDay != nil {
		rule.OnDay = *input.OnDay
	}
	if input.OnMonth != nil {
		rule.OnMonth = *input.OnMonth
	}
	if input.ValidTill != nil {
		till := domain.DateOnly(*input.ValidTill)
		rule.ValidTill = &till
	}

	if err := rule.Validate(); err != nil {
		return domain.NewValidationError("%v", err)
	}
	return s.Instructions.Update(ctx, rule)
}

// Delete soft-deletes a rule. The rule and its execution history remain
// on record; the scheduler never picks it up again.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	rule, err := s.Instructions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rule.Status == domain.InstructionStatusDeleted {
		return domain.NewValidationError("standing instruction %s is already deleted", id)
	}
	rule.Status = domain.InstructionStatusDeleted
	return s.Instructions.Update(ctx, rule)
}
