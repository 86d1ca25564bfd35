package projection

import "billdash/internal/core"

// dayMillis weights one unit of days-remaining distance equal to one day of
// date distance in the global nearest-neighbor score.
const dayMillis = int64(24 * 60 * 60 * 1000)

// AnchorDate returns the reference date for projection matching: today when
// it falls inside the active window, otherwise the window's start date. This
// keeps projections meaningful for periods set arbitrarily far in the past or
// future.
func AnchorDate(today, windowStart, windowEnd core.Date) core.Date {
	if !today.Before(windowStart.Time) && !today.After(windowEnd.Time) {
		return today
	}
	return windowStart
}

// Match selects the single history entry that best represents the projection
// for referenceDate and targetDaysRemaining. Entries are recorded
// sporadically, so the search falls through four tiers, each short-circuiting
// as soon as it yields a candidate:
//
//  1. exact date and days-remaining match
//  2. same date, closest days-remaining
//  3. same days-remaining, closest date
//  4. global nearest neighbor over a weighted date/days score
//
// Returns nil when the history is empty; callers fall back to a freshly
// computed projection. Ties resolve to the earliest entry in input order, so
// the result is deterministic for a given history slice.
func Match(history []core.ProjectionEntry, referenceDate core.Date, targetDaysRemaining int) *core.ProjectionEntry {
	if len(history) == 0 {
		return nil
	}

	// Tier 1: exact match.
	for i := range history {
		e := &history[i]
		if sameDay(e.Date, referenceDate) && e.DaysRemaining == targetDaysRemaining {
			return e
		}
	}

	// Tier 2: same date, closest days-remaining.
	var best *core.ProjectionEntry
	bestDist := 0
	for i := range history {
		e := &history[i]
		if !sameDay(e.Date, referenceDate) {
			continue
		}
		dist := absInt(e.DaysRemaining - targetDaysRemaining)
		if best == nil || dist < bestDist {
			best, bestDist = e, dist
		}
	}
	if best != nil {
		return best
	}

	// Tier 3: same days-remaining, closest date.
	var bestMs int64
	for i := range history {
		e := &history[i]
		if e.DaysRemaining != targetDaysRemaining {
			continue
		}
		dist := absInt64(e.Date.Time.Sub(referenceDate.Time).Milliseconds())
		if best == nil || dist < bestMs {
			best, bestMs = e, dist
		}
	}
	if best != nil {
		return best
	}

	// Tier 4: global nearest neighbor.
	for i := range history {
		e := &history[i]
		score := absInt64(e.Date.Time.Sub(referenceDate.Time).Milliseconds()) +
			int64(absInt(e.DaysRemaining-targetDaysRemaining))*dayMillis
		if best == nil || score < bestMs {
			best, bestMs = e, score
		}
	}
	return best
}

func sameDay(a, b core.Date) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func absInt64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
