package sheets

import (
	"context"

	"billdash/internal/core"
)

// Ports for outbound snapshot export adapters.
type (
	// SnapshotExporter appends one monthly snapshot to the export target.
	SnapshotExporter interface {
		AppendSnapshot(ctx context.Context, s core.MonthlySnapshot) (rowRef string, err error)
	}

	// SnapshotRowLister reads back previously exported rows.
	SnapshotRowLister interface {
		ListSnapshotRows(ctx context.Context) ([]SnapshotRow, error)
	}
)

// SnapshotRow is the flattened form a snapshot takes in the export target.
type SnapshotRow struct {
	MonthYear      string
	TotalAvailable core.Money
	BillsRemaining core.Money
	CashAvailable  core.Money
	Notes          string
}
