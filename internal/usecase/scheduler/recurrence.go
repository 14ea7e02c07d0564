package scheduler

import (
	"time"

	"github.com/corebank/transfer-engine/internal/domain"
)

// IsDue reports whether a periodic standing instruction fires on the given
// date. The schedule is anchored on the rule's valid-from date adjusted to
// its configured on-day/on-month; daily and weekly frequencies use modular
// day distance from the anchor, monthly and yearly use a fixed day-of-month
// (clamped for short months) with interval stepping.
//
// Eligibility (status, validity window) is the caller's concern; IsDue only
// answers the calendar question.
func IsDue(si *domain.StandingInstruction, today time.Time) bool {
	if si.Recurrence != domain.RecurrenceTypePeriodic {
		return false
	}

	interval := si.Interval
	if interval < 1 {
		interval = 1
	}

	day := domain.DateOnly(today)
	anchor := anchorDate(si)
	if day.Before(anchor) {
		return false
	}

	switch si.Frequency {
	case domain.FrequencyDaily:
		return daysBetween(anchor, day)%interval == 0
	case domain.FrequencyWeekly:
		return daysBetween(anchor, day)%(7*interval) == 0
	case domain.FrequencyMonthly:
		if !dayOfMonthMatches(day, si.OnDay) {
			return false
		}
		return monthsBetween(anchor, day)%interval == 0
	case domain.FrequencyYearly:
		if int(day.Month()) != si.OnMonth || !dayOfMonthMatches(day, si.OnDay) {
			return false
		}
		return (day.Year()-anchor.Year())%interval == 0
	}
	return false
}

// anchorDate derives the schedule anchor: valid-from adjusted to the
// configured on-day (and on-month for yearly), advanced by one frequency
// unit when the adjusted date precedes valid-from.
func anchorDate(si *domain.StandingInstruction) time.Time {
	validFrom := domain.DateOnly(si.ValidFrom)

	switch si.Frequency {
	case domain.FrequencyMonthly:
		anchor := onDayInMonth(validFrom.Year(), validFrom.Month(), si.OnDay)
		if anchor.Before(validFrom) {
			anchor = onDayInMonth(validFrom.Year(), validFrom.Month()+1, si.OnDay)
		}
		return anchor
	case domain.FrequencyYearly:
		anchor := onDayInMonth(validFrom.Year(), time.Month(si.OnMonth), si.OnDay)
		if anchor.Before(validFrom) {
			anchor = onDayInMonth(validFrom.Year()+1, time.Month(si.OnMonth), si.OnDay)
		}
		return anchor
	default:
		return validFrom
	}
}

// onDayInMonth builds the date for a day-of-month, clamping to the last day
// of short months (a rule on day 31 fires on Apr 30)
func onDayInMonth(year int, month time.Month, day int) time.Time {
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := firstOfMonth.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return time.Date(firstOfMonth.Year(), firstOfMonth.Month(), day, 0, 0, 0, 0, time.UTC)
}

// dayOfMonthMatches compares a date's day against the configured on-day,
// treating the last day of a short month as matching larger on-days
func dayOfMonthMatches(day time.Time, onDay int) bool {
	if day.Day() == onDay {
		return true
	}
	last := onDayInMonth(day.Year(), day.Month(), 31).Day()
	return onDay > last && day.Day() == last
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}
