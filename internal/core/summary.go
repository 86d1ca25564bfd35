package core

// BillWithRemaining is the derived per-bill breakdown row. It is never
// persisted; it is recomputed from Bill + PaymentProgress + window bounds.
type BillWithRemaining struct {
	Bill Bill `json:"bill"`
	// WeeksRemaining is populated only for weekly-multiplier bills.
	WeeksRemaining     *float64 `json:"weeks_remaining,omitempty"`
	TotalWeeklyCost    Money    `json:"total_weekly_cost_cents"`
	TotalMonthlyCost   Money    `json:"total_monthly_cost_cents"`
	TotalPayments      int      `json:"total_payments"`
	PaymentsPaid       int      `json:"payments_paid"`
	RemainingThisMonth Money    `json:"remaining_this_month_cents"`
}

// BillTotals are the grand totals across all breakdown rows, for footer
// display.
type BillTotals struct {
	TotalWeeklyCost    Money `json:"total_weekly_cost_cents"`
	TotalMonthlyCost   Money `json:"total_monthly_cost_cents"`
	RemainingThisMonth Money `json:"remaining_this_month_cents"`
}
