package memory

import (
	"context"
	"testing"

	"billdash/internal/core"
)

func TestAppendAndList(t *testing.T) {
	store := New()
	ctx := context.Background()

	ref, err := store.AppendSnapshot(ctx, core.MonthlySnapshot{
		MonthYear: "2024-06",
		CashFlow: core.CashFlowSummary{
			TotalAvailable: core.Money{Cents: 200000},
			BillsRemaining: core.Money{Cents: 50000},
			CashAvailable:  core.Money{Cents: 150000},
		},
		Notes: "june close",
	})
	if err != nil {
		t.Fatalf("AppendSnapshot() error = %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}

	rows, err := store.ListSnapshotRows(ctx)
	if err != nil {
		t.Fatalf("ListSnapshotRows() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0].MonthYear != "2024-06" || rows[0].CashAvailable.Cents != 150000 {
		t.Errorf("row = %+v", rows[0])
	}
	if rows[0].Notes != "june close" {
		t.Errorf("Notes = %q, want june close", rows[0].Notes)
	}
}

func TestAppendRejectsInvalidMonthKey(t *testing.T) {
	store := New()
	if _, err := store.AppendSnapshot(context.Background(), core.MonthlySnapshot{
		MonthYear: "June 2024",
	}); err == nil {
		t.Error("AppendSnapshot() with bad month key = nil error, want error")
	}
}
