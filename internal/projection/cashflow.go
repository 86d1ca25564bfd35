// Package projection reconstructs cash-flow views from account balances,
// outstanding bills, and the sparse history of saved projection entries.
package projection

import "billdash/internal/core"

// Project combines account balances and the aggregate bills-remaining figure
// with the days left in the window into a cash-flow summary.
//
// CashAvailable may be negative; it is a meaningful signal and is never
// clamped. The per-week and per-day rates are nil when daysRemaining is not
// positive, which is the only division guard this arithmetic needs.
func Project(balances map[int64]core.Money, billsRemaining core.Money, daysRemaining int) core.CashFlowSummary {
	var total core.Money
	for _, balance := range balances {
		total = total.Add(balance)
	}

	cash := total.Sub(billsRemaining)
	summary := core.CashFlowSummary{
		TotalAvailable: total,
		BillsRemaining: billsRemaining,
		CashAvailable:  cash,
	}

	if daysRemaining > 0 {
		perWeek := cash.Dollars() / (float64(daysRemaining) / 7)
		perDay := cash.Dollars() / float64(daysRemaining)
		summary.CashPerWeek = &perWeek
		summary.SpendingPerDay = &perDay
	}

	return summary
}
