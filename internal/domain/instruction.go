package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstructionStatus represents the lifecycle state of a standing instruction
type InstructionStatus string

const (
	InstructionStatusActive   InstructionStatus = "ACTIVE"
	InstructionStatusDisabled InstructionStatus = "DISABLED"
	InstructionStatusDeleted  InstructionStatus = "DELETED"
)

// InstructionPriority orders rules within one scheduler run.
// Higher value runs first.
type InstructionPriority int

const (
	PriorityLow InstructionPriority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

// InstructionType says how the transfer amount is determined
type InstructionType string

const (
	InstructionTypeFixedAmount InstructionType = "FIXED_AMOUNT"
	InstructionTypeDuesAmount  InstructionType = "DUES_AMOUNT"
)

// RecurrenceType says how due-ness is determined
type RecurrenceType string

const (
	RecurrenceTypePeriodic  RecurrenceType = "PERIODIC"
	RecurrenceTypeAsPerDues RecurrenceType = "AS_PER_DUES"
)

// PeriodFrequency is the unit of a periodic recurrence
type PeriodFrequency string

const (
	FrequencyDaily   PeriodFrequency = "DAILY"
	FrequencyWeekly  PeriodFrequency = "WEEKLY"
	FrequencyMonthly PeriodFrequency = "MONTHLY"
	FrequencyYearly  PeriodFrequency = "YEARLY"
)

// StandingInstruction is a user-configured recurring transfer rule.
// The scheduler is the only writer of LastRunDate; users mutate the rest
// through the instruction service.
type StandingInstruction struct {
	ID           uuid.UUID
	Name         string
	Status       InstructionStatus
	Priority     InstructionPriority
	Type         InstructionType
	Recurrence   RecurrenceType
	Frequency    PeriodFrequency
	Interval     int
	OnDay        int // day of month, periodic monthly/yearly only
	OnMonth      int // month of year, periodic yearly only
	ValidFrom    time.Time
	ValidTill    *time.Time // nil = open-ended
	Amount       *decimal.Decimal
	LastRunDate  *time.Time
	FromAccount  AccountRef
	ToAccount    AccountRef
	TransferType TransferType
	CreatedAt    time.Time
}

// Validate checks the structural rules of an instruction
func (si *StandingInstruction) Validate() error {
	if si.Name == "" {
		return errors.New("standing instruction name is required")
	}
	if si.Priority < PriorityLow || si.Priority > PriorityUrgent {
		return errors.New("standing instruction priority is out of range")
	}
	if si.Type == InstructionTypeFixedAmount {
		if si.Amount == nil || si.Amount.LessThanOrEqual(decimal.Zero) {
			return errors.New("fixed-amount instruction requires a positive amount")
		}
	}
	if si.Type == InstructionTypeDuesAmount && !si.ToAccount.Type.IsLoan() {
		return errors.New("dues-amount instruction requires a loan destination account")
	}
	if si.Recurrence == RecurrenceTypePeriodic {
		if si.Interval < 1 {
			return errors.New("periodic instruction requires an interval of at least 1")
		}
		switch si.Frequency {
		case FrequencyDaily, FrequencyWeekly:
		case FrequencyMonthly:
			if si.OnDay < 1 || si.OnDay > 31 {
				return errors.New("monthly instruction requires a recurrence day between 1 and 31")
			}
		case FrequencyYearly:
			if si.OnDay < 1 || si.OnDay > 31 {
				return errors.New("yearly instruction requires a recurrence day between 1 and 31")
			}
			if si.OnMonth < 1 || si.OnMonth > 12 {
				return errors.New("yearly instruction requires a recurrence month between 1 and 12")
			}
		default:
			return errors.New("periodic instruction requires a recurrence frequency")
		}
	}
	if si.ValidTill != nil && !si.ValidTill.After(si.ValidFrom) {
		return errors.New("valid-till must be after valid-from")
	}
	return nil
}

// EligibleOn reports whether the rule may execute on the given date:
// it must be active and the date must fall inside its validity window.
// Due-ness on the schedule is a separate question answered by the scheduler.
func (si *StandingInstruction) EligibleOn(today time.Time) bool {
	if si.Status != InstructionStatusActive {
		return false
	}
	day := DateOnly(today)
	if day.Before(DateOnly(si.ValidFrom)) {
		return false
	}
	if si.ValidTill != nil && !day.Before(DateOnly(*si.ValidTill)) {
		return false
	}
	return true
}

// RanOn reports whether the rule already ran successfully on the given date
func (si *StandingInstruction) RanOn(today time.Time) bool {
	return si.LastRunDate != nil && SameDay(*si.LastRunDate, today)
}

// DateOnly truncates a timestamp to its civil date in UTC
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two timestamps fall on the same civil date
func SameDay(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}
