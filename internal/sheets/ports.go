package sheets

import (
	"context"

	"financia/internal/core"
)

// Ports for outbound adapters.
type (
	// HistoryExporter appends closed months to an external ledger, one row
	// per entry, in the order given.
	HistoryExporter interface {
		AppendHistory(ctx context.Context, userID string, entries []core.HistoryEntry) error
	}
)

// HistoryHeader names the columns written by exporters.
var HistoryHeader = []string{
	"Fechado em", "Mês", "Usuário", "Salário", "Orçado",
	"Gastos", "Saldo livre", "Aporte", "ID",
}

// HistoryRow renders one entry as spreadsheet cells matching HistoryHeader.
func HistoryRow(userID string, h core.HistoryEntry) []any {
	return []any{
		h.ClosedAt.String(),
		h.Label,
		userID,
		h.Salary,
		h.TotalBudgeted,
		h.TotalExpenses,
		h.FreeBalance,
		h.MonthlyContribution,
		h.ID,
	}
}
