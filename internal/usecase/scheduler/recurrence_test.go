package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/corebank/transfer-engine/internal/domain"
)

func periodicRule(frequency domain.PeriodFrequency, interval, onDay, onMonth int, validFrom time.Time) *domain.StandingInstruction {
	return &domain.StandingInstruction{
		Recurrence: domain.RecurrenceTypePeriodic,
		Frequency:  frequency,
		Interval:   interval,
		OnDay:      onDay,
		OnMonth:    onMonth,
		ValidFrom:  validFrom,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIsDue_MonthlyOnFixedDay(t *testing.T) {
	// valid from Jan 10, fires on the 15th: anchor lands in the same month
	rule := periodicRule(domain.FrequencyMonthly, 1, 15, 0, day(2024, time.January, 10))

	assert.False(t, IsDue(rule, day(2024, time.January, 10)))
	assert.True(t, IsDue(rule, day(2024, time.January, 15)))
	assert.True(t, IsDue(rule, day(2024, time.February, 15)))
	assert.True(t, IsDue(rule, day(2024, time.March, 15)))
	assert.False(t, IsDue(rule, day(2024, time.March, 14)))
}

func TestIsDue_MonthlyAnchorAdvancesPastValidFrom(t *testing.T) {
	// valid from Jan 20 but fires on the 15th: the first occurrence is Feb 15
	rule := periodicRule(domain.FrequencyMonthly, 1, 15, 0, day(2024, time.January, 20))

	assert.False(t, IsDue(rule, day(2024, time.January, 15)))
	assert.True(t, IsDue(rule, day(2024, time.February, 15)))
}

func TestIsDue_MonthlyInterval(t *testing.T) {
	// quarterly: every 3 months from the Jan 15 anchor
	rule := periodicRule(domain.FrequencyMonthly, 3, 15, 0, day(2024, time.January, 1))

	assert.True(t, IsDue(rule, day(2024, time.January, 15)))
	assert.False(t, IsDue(rule, day(2024, time.February, 15)))
	assert.False(t, IsDue(rule, day(2024, time.March, 15)))
	assert.True(t, IsDue(rule, day(2024, time.April, 15)))
	assert.True(t, IsDue(rule, day(2024, time.July, 15)))
}

func TestIsDue_MonthlyClampsShortMonths(t *testing.T) {
	// on-day 31 fires on the last day of short months
	rule := periodicRule(domain.FrequencyMonthly, 1, 31, 0, day(2023, time.January, 1))

	assert.True(t, IsDue(rule, day(2023, time.January, 31)))
	assert.True(t, IsDue(rule, day(2023, time.February, 28)))
	assert.True(t, IsDue(rule, day(2023, time.April, 30)))
	assert.True(t, IsDue(rule, day(2024, time.February, 29))) // leap year
	assert.False(t, IsDue(rule, day(2024, time.February, 28)))
	assert.False(t, IsDue(rule, day(2023, time.April, 29)))
}

func TestIsDue_Daily(t *testing.T) {
	rule := periodicRule(domain.FrequencyDaily, 1, 0, 0, day(2026, time.March, 1))

	assert.True(t, IsDue(rule, day(2026, time.March, 1)))
	assert.True(t, IsDue(rule, day(2026, time.March, 2)))
	assert.False(t, IsDue(rule, day(2026, time.February, 28)))
}

func TestIsDue_DailyWithInterval(t *testing.T) {
	rule := periodicRule(domain.FrequencyDaily, 3, 0, 0, day(2026, time.March, 1))

	assert.True(t, IsDue(rule, day(2026, time.March, 1)))
	assert.False(t, IsDue(rule, day(2026, time.March, 2)))
	assert.False(t, IsDue(rule, day(2026, time.March, 3)))
	assert.True(t, IsDue(rule, day(2026, time.March, 4)))
}

func TestIsDue_Weekly(t *testing.T) {
	// anchored on a Monday
	rule := periodicRule(domain.FrequencyWeekly, 1, 0, 0, day(2026, time.March, 2))

	assert.True(t, IsDue(rule, day(2026, time.March, 2)))
	assert.False(t, IsDue(rule, day(2026, time.March, 5)))
	assert.True(t, IsDue(rule, day(2026, time.March, 9)))
	assert.True(t, IsDue(rule, day(2026, time.March, 16)))
}

func TestIsDue_WeeklyBiweekly(t *testing.T) {
	rule := periodicRule(domain.FrequencyWeekly, 2, 0, 0, day(2026, time.March, 2))

	assert.True(t, IsDue(rule, day(2026, time.March, 2)))
	assert.False(t, IsDue(rule, day(2026, time.March, 9)))
	assert.True(t, IsDue(rule, day(2026, time.March, 16)))
}

func TestIsDue_Yearly(t *testing.T) {
	rule := periodicRule(domain.FrequencyYearly, 1, 1, 7, day(2024, time.January, 1))

	assert.True(t, IsDue(rule, day(2024, time.July, 1)))
	assert.True(t, IsDue(rule, day(2025, time.July, 1)))
	assert.False(t, IsDue(rule, day(2025, time.July, 2)))
	assert.False(t, IsDue(rule, day(2025, time.June, 1)))
}

func TestIsDue_YearlyAnchorAdvancesPastValidFrom(t *testing.T) {
	// valid from September but fires July 1: the first occurrence is next year
	rule := periodicRule(domain.FrequencyYearly, 1, 1, 7, day(2024, time.September, 1))

	assert.False(t, IsDue(rule, day(2024, time.July, 1)))
	assert.True(t, IsDue(rule, day(2025, time.July, 1)))
}

func TestIsDue_NeverBeforeAnchor(t *testing.T) {
	rule := periodicRule(domain.FrequencyDaily, 1, 0, 0, day(2026, time.March, 10))
	assert.False(t, IsDue(rule, day(2026, time.March, 9)))
}

func TestIsDue_NonPeriodicNeverDue(t *testing.T) {
	rule := periodicRule(domain.FrequencyMonthly, 1, 15, 0, day(2024, time.January, 1))
	rule.Recurrence = domain.RecurrenceTypeAsPerDues
	assert.False(t, IsDue(rule, day(2024, time.January, 15)))
}

func TestIsDue_ZeroIntervalTreatedAsOne(t *testing.T) {
	rule := periodicRule(domain.FrequencyDaily, 0, 0, 0, day(2026, time.March, 1))
	assert.True(t, IsDue(rule, day(2026, time.March, 2)))
}
