package memory

import (
	"context"
	"sync"

	"financia/internal/core"
	ports "financia/internal/sheets"
)

// Exporter keeps exported rows in memory. It stands in for the spreadsheet
// when none is configured and in tests.
type Exporter struct {
	mu   sync.Mutex
	rows map[string][][]any
}

var _ ports.HistoryExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{rows: make(map[string][][]any)}
}

// AppendHistory stores one row per entry, oldest month first.
func (e *Exporter) AppendHistory(_ context.Context, userID string, entries []core.HistoryEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(entries) - 1; i >= 0; i-- {
		e.rows[userID] = append(e.rows[userID], ports.HistoryRow(userID, entries[i]))
	}
	return nil
}

// Rows returns a copy of the rows exported for userID.
func (e *Exporter) Rows(userID string) [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]any, len(e.rows[userID]))
	for i, r := range e.rows[userID] {
		out[i] = append([]any(nil), r...)
	}
	return out
}
