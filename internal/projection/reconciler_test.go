package projection

import (
	"reflect"
	"testing"
	"time"

	"billdash/internal/core"
)

func stamped(id int64, date core.Date, days int, entryTime string, updatedAt time.Time) core.ProjectionEntry {
	e := entry(id, date, days, entryTime)
	e.UpdatedAt = updatedAt
	return e
}

func TestReconcileDeduplicates(t *testing.T) {
	d := core.NewDate(2024, 3, 1)
	older := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	raw := []core.ProjectionEntry{
		stamped(1, d, 5, "08:00:00", older),
		stamped(2, d, 5, "08:00:00", newer), // same natural key, later update wins
		stamped(3, d, 7, "08:00:00", older), // different days-remaining survives
	}

	got := Reconcile(raw)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	ids := map[int64]bool{}
	for _, e := range got {
		ids[e.ID] = true
	}
	if !ids[2] || !ids[3] || ids[1] {
		t.Errorf("survivors = %v, want {2, 3}", ids)
	}
}

func TestReconcileTieBreaksOnHigherID(t *testing.T) {
	d := core.NewDate(2024, 3, 1)
	same := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	raw := []core.ProjectionEntry{
		stamped(7, d, 5, "08:00:00", same),
		stamped(4, d, 5, "08:00:00", same),
	}

	got := Reconcile(raw)
	if len(got) != 1 || got[0].ID != 7 {
		t.Fatalf("got = %v, want single entry with ID 7", got)
	}
}

func TestReconcileNormalizesMissingEntryTime(t *testing.T) {
	d := core.NewDate(2024, 3, 1)
	older := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	// A legacy record without an entry time collides with a midnight record.
	raw := []core.ProjectionEntry{
		stamped(1, d, 5, "", older),
		stamped(2, d, 5, "00:00:00", newer),
	}

	got := Reconcile(raw)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 after midnight normalization", len(got))
	}
	if got[0].ID != 2 || got[0].EntryTime != core.MidnightEntryTime {
		t.Errorf("got = %+v, want entry 2 with midnight time", got[0])
	}
}

func TestReconcileSortOrder(t *testing.T) {
	now := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	raw := []core.ProjectionEntry{
		stamped(1, core.NewDate(2024, 3, 1), 9, "09:00:00", now),
		stamped(2, core.NewDate(2024, 3, 2), 5, "09:00:00", now),
		stamped(3, core.NewDate(2024, 3, 2), 5, "18:00:00", now),
		stamped(4, core.NewDate(2024, 3, 2), 8, "09:00:00", now),
		stamped(5, core.NewDate(2024, 3, 1), 5, "09:00:00", now),
	}

	got := Reconcile(raw)

	// Date desc, then days-remaining asc, then entry-time desc.
	wantIDs := []int64{3, 2, 4, 5, 1}
	gotIDs := make([]int64, len(got))
	for i, e := range got {
		gotIDs[i] = e.ID
	}
	if !reflect.DeepEqual(gotIDs, wantIDs) {
		t.Errorf("order = %v, want %v", gotIDs, wantIDs)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	now := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	raw := []core.ProjectionEntry{
		stamped(1, core.NewDate(2024, 3, 1), 9, "", now),
		stamped(2, core.NewDate(2024, 3, 1), 9, "00:00:00", now.Add(time.Minute)),
		stamped(3, core.NewDate(2024, 3, 2), 5, "10:00:00", now),
		stamped(4, core.NewDate(2024, 2, 28), 12, "07:30:00", now),
	}

	once := Reconcile(raw)
	twice := Reconcile(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("reconcile is not idempotent:\nonce:  %v\ntwice: %v", once, twice)
	}
}

func TestReconcileEmpty(t *testing.T) {
	if got := Reconcile(nil); len(got) != 0 {
		t.Errorf("Reconcile(nil) = %v, want empty", got)
	}
}
