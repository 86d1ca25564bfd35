package projection

import (
	"sort"

	"billdash/internal/core"
)

// Reconcile deduplicates raw projection records sharing the natural key
// (date, days-remaining, entry-time). Duplicates are reconciliation artifacts
// of concurrent writes; for each key the entry with the latest UpdatedAt wins,
// with the higher ID as a recency-proxy tie-break. Entries missing an entry
// time are normalized to midnight for backward compatibility with records
// predating the field.
//
// The output is sorted by date descending, days-remaining ascending, then
// entry-time descending (most recent entry-of-day first), so repeated
// invocations over the same input produce identical results.
func Reconcile(rawEntries []core.ProjectionEntry) []core.ProjectionEntry {
	byKey := make(map[string]core.ProjectionEntry, len(rawEntries))

	for _, entry := range rawEntries {
		if entry.EntryTime == "" {
			entry.EntryTime = core.MidnightEntryTime
		}
		key := entry.NaturalKey()
		current, seen := byKey[key]
		if !seen || supersedes(entry, current) {
			byKey[key] = entry
		}
	}

	out := make([]core.ProjectionEntry, 0, len(byKey))
	for _, entry := range byKey {
		out = append(out, entry)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		if a.DaysRemaining != b.DaysRemaining {
			return a.DaysRemaining < b.DaysRemaining
		}
		return a.EntryTime > b.EntryTime
	})

	return out
}

// supersedes reports whether candidate should replace current under the
// latest-UpdatedAt rule with higher-ID tie-break.
func supersedes(candidate, current core.ProjectionEntry) bool {
	if candidate.UpdatedAt.After(current.UpdatedAt) {
		return true
	}
	if candidate.UpdatedAt.Equal(current.UpdatedAt) {
		return candidate.ID > current.ID
	}
	return false
}
