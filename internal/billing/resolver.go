// Package billing converts recurring-bill definitions into occurrence counts
// and remaining-liability figures for a date window.
//
// This file implements the Strategy Pattern for occurrence counting. Each
// multiplier type (monthly, weekly, one_off) has its own counter that
// encapsulates the logic for locating occurrences inside a window.

package billing

import (
	"fmt"
	"time"

	"billdash/internal/core"
)

// Resolution is the resolver output for a single bill over a window.
type Resolution struct {
	TotalPayments   int
	TotalWindowCost core.Money
	RemainingCost   core.Money
	// PaymentsPaid is the caller-supplied paid count clamped to
	// [0, TotalPayments].
	PaymentsPaid int
	// WeeksRemaining is populated only for weekly-multiplier bills.
	WeeksRemaining *float64
}

// OccurrenceCounter is the strategy interface for counting how many times a
// bill falls due inside a window. Each implementation encapsulates the
// algorithm for a specific multiplier type.
type OccurrenceCounter interface {
	// Count returns the number of occurrences within [start, end] inclusive.
	// The window is guaranteed non-inverted by the caller.
	Count(bill core.Bill, start, end core.Date) int
}

// cycleLengthDays are the nominal cycle lengths used for charge cycles longer
// than a month. Occurrences for these are counted as windowDays / cycleDays.
var cycleLengthDays = map[core.ChargeCycle]int{
	core.CycleBiweekly:   14,
	core.CycleBimonthly:  60,
	core.CycleQuarterly:  91,
	core.CycleSemiannual: 182,
	core.CycleAnnual:     365,
}

// OneOffCounter implements OccurrenceCounter for one_off bills.
type OneOffCounter struct{}

// Count returns 1 if the bill's next due date falls inside the window.
func (OneOffCounter) Count(bill core.Bill, start, end core.Date) int {
	due := bill.NextDueDate
	if due.IsZero() {
		return 0
	}
	if due.Before(start.Time) || due.After(end.Time) {
		return 0
	}
	return 1
}

// WeeklyCounter implements OccurrenceCounter for weekly bills.
type WeeklyCounter struct{}

// Count returns the number of matching weekdays within the window inclusive.
func (WeeklyCounter) Count(bill core.Bill, start, end core.Date) int {
	if bill.PaymentDay == nil {
		return 0
	}
	weekday := *bill.PaymentDay
	if weekday < 0 || weekday > 6 {
		return 0
	}
	days := daysInWindow(start, end)
	firstOffset := (weekday - int(start.Weekday()) + 7) % 7
	if firstOffset >= days {
		return 0
	}
	return 1 + (days-1-firstOffset)/7
}

// MonthlyCounter implements OccurrenceCounter for monthly-multiplier bills.
// The charge cycle refines the count: weekly and monthly cycles yield one
// occurrence per calendar month on the due day-of-month (clamped to the
// month's last day), longer cycles yield windowDays/cycleDays, and custom is
// a single occurrence per window. Custom has no defined cadence upstream;
// the single occurrence is a conservative default.
type MonthlyCounter struct{}

func (MonthlyCounter) Count(bill core.Bill, start, end core.Date) int {
	switch bill.ChargeCycle {
	case core.CycleWeekly, core.CycleMonthly:
		return countMonthlyOccurrences(bill.NextDueDate.Day(), start, end)
	case core.CycleCustom:
		return 1
	default:
		if cycleDays, ok := cycleLengthDays[bill.ChargeCycle]; ok {
			n := daysInWindow(start, end) / cycleDays
			if n < 0 {
				n = 0
			}
			return n
		}
		// Unknown charge cycle: zero occurrences, not an error.
		return 0
	}
}

// occurrenceCounters maps multiplier types to their corresponding counters.
var occurrenceCounters = map[core.MultiplierType]OccurrenceCounter{
	core.MultiplierMonthly: MonthlyCounter{},
	core.MultiplierWeekly:  WeeklyCounter{},
	core.MultiplierOneOff:  OneOffCounter{},
}

// GetOccurrenceCounter returns the counter for a multiplier type.
// Returns an error if the multiplier type is not supported.
func GetOccurrenceCounter(multiplier core.MultiplierType) (OccurrenceCounter, error) {
	counter, ok := occurrenceCounters[multiplier]
	if !ok {
		return nil, fmt.Errorf("unknown multiplier type: %s", multiplier)
	}
	return counter, nil
}

// RegisterOccurrenceCounter allows registering custom counters for new
// multiplier types.
func RegisterOccurrenceCounter(multiplier core.MultiplierType, counter OccurrenceCounter) {
	occurrenceCounters[multiplier] = counter
}

// Resolve computes occurrence count, full-window cost, and remaining cost for
// one bill over [windowStart, windowEnd] inclusive.
//
// paymentsPaid is clamped to [0, totalPayments], and payments are applied at
// the full per-occurrence amount, never pro-rated. An inverted window or an
// unknown multiplier yields zero occurrences and zero cost.
func Resolve(bill core.Bill, windowStart, windowEnd core.Date, paymentsPaid int) Resolution {
	if windowStart.IsZero() || windowEnd.IsZero() || windowEnd.Before(windowStart.Time) {
		return Resolution{}
	}

	counter, err := GetOccurrenceCounter(bill.Multiplier)
	if err != nil {
		return Resolution{}
	}

	total := counter.Count(bill, windowStart, windowEnd)
	if total < 0 {
		total = 0
	}

	paid := paymentsPaid
	if paid < 0 {
		paid = 0
	}
	if paid > total {
		paid = total
	}

	windowCost := bill.Amount.Mul(total)
	remaining := windowCost.Sub(bill.Amount.Mul(paid))
	if remaining.IsNegative() {
		remaining = core.Money{}
	}

	res := Resolution{
		TotalPayments:   total,
		TotalWindowCost: windowCost,
		RemainingCost:   remaining,
		PaymentsPaid:    paid,
	}

	if bill.Multiplier == core.MultiplierWeekly {
		var weeks float64
		if paid < total {
			weeks = float64(total)
		} else {
			weeks = float64(daysInWindow(windowStart, windowEnd)) / 7
		}
		res.WeeksRemaining = &weeks
	}

	return res
}

// countMonthlyOccurrences counts the months between start and end whose
// occurrence date (dueDay clamped to the month's last day) falls inside the
// window.
func countMonthlyOccurrences(dueDay int, start, end core.Date) int {
	if dueDay < 1 {
		return 0
	}
	count := 0
	year, month := start.Year(), start.Month()
	for {
		if year > end.Year() || (year == end.Year() && month > end.Month()) {
			break
		}
		day := dueDay
		lastDay := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
		if day > lastDay {
			day = lastDay
		}
		occ := core.NewDate(year, month, day)
		if !occ.Before(start.Time) && !occ.After(end.Time) {
			count++
		}
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
	return count
}

// daysInWindow returns the inclusive day count of [start, end].
func daysInWindow(start, end core.Date) int {
	return int(end.Time.Sub(start.Time).Hours()/24) + 1
}
