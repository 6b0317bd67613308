// Package memory is an in-memory ExpenseMirror used in tests and local
// development when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"spendlog/internal/core"
	ports "spendlog/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows []core.Expense
}

var (
	_ ports.ExpenseAppender = (*Mirror)(nil)
	_ ports.ExpenseRemover  = (*Mirror)(nil)
)

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) Append(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// Append replaces any existing row for the same id, so replaying an
	// updated event converges instead of duplicating.
	for i, row := range m.rows {
		if row.ID == e.ID {
			m.rows[i] = e
			return fmt.Sprintf("memory:%d", i+1), nil
		}
	}
	m.rows = append(m.rows, e)
	return fmt.Sprintf("memory:%d", len(m.rows)), nil
}

func (m *Mirror) Remove(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, row := range m.rows {
		if row.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the mirrored expenses in row order.
func (m *Mirror) Rows() []core.Expense {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Expense, len(m.rows))
	copy(out, m.rows)
	return out
}
