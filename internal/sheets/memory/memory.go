// Package memory is an in-memory snapshot export target for tests and
// sheet-less deployments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"billdash/internal/core"
	ports "billdash/internal/sheets"
)

type Store struct {
	mu    sync.Mutex
	items []core.MonthlySnapshot
}

var (
	_ ports.SnapshotExporter  = (*Store)(nil)
	_ ports.SnapshotRowLister = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// AppendSnapshot stores the snapshot and returns a synthetic row reference.
func (s *Store) AppendSnapshot(_ context.Context, snap core.MonthlySnapshot) (string, error) {
	if err := snap.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, snap)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

func (s *Store) ListSnapshotRows(_ context.Context) ([]ports.SnapshotRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]ports.SnapshotRow, 0, len(s.items))
	for _, snap := range s.items {
		rows = append(rows, ports.SnapshotRow{
			MonthYear:      snap.MonthYear,
			TotalAvailable: snap.CashFlow.TotalAvailable,
			BillsRemaining: snap.CashFlow.BillsRemaining,
			CashAvailable:  snap.CashFlow.CashAvailable,
			Notes:          snap.Notes,
		})
	}
	return rows, nil
}
