package billing

import "billdash/internal/core"

// Aggregate resolves every bill against the window and assembles the per-bill
// breakdown rows plus grand totals for footer display. It is a pure
// map-then-fold: no side effects, and no sorting (presentation-level sort is
// applied by callers).
//
// Weekly-multiplier bills populate the weekly cost column; all other bills
// populate the monthly cost column. RemainingThisMonth always carries the
// unpaid liability regardless of column.
func Aggregate(bills []core.Bill, progress core.PaymentProgress, windowStart, windowEnd core.Date) ([]core.BillWithRemaining, core.BillTotals) {
	rows := make([]core.BillWithRemaining, 0, len(bills))
	var totals core.BillTotals

	for _, bill := range bills {
		res := Resolve(bill, windowStart, windowEnd, progress[bill.ID])

		row := core.BillWithRemaining{
			Bill:               bill,
			WeeksRemaining:     res.WeeksRemaining,
			TotalPayments:      res.TotalPayments,
			PaymentsPaid:       res.PaymentsPaid,
			RemainingThisMonth: res.RemainingCost,
		}
		if bill.Multiplier == core.MultiplierWeekly {
			row.TotalWeeklyCost = res.TotalWindowCost
		} else {
			row.TotalMonthlyCost = res.TotalWindowCost
		}

		totals.TotalWeeklyCost = totals.TotalWeeklyCost.Add(row.TotalWeeklyCost)
		totals.TotalMonthlyCost = totals.TotalMonthlyCost.Add(row.TotalMonthlyCost)
		totals.RemainingThisMonth = totals.RemainingThisMonth.Add(row.RemainingThisMonth)

		rows = append(rows, row)
	}

	return rows, totals
}
