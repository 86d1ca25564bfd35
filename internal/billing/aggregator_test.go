package billing

import (
	"testing"

	"billdash/internal/core"
)

func TestAggregate(t *testing.T) {
	bills := []core.Bill{
		weeklyBill(5000, 1),                               // 4 Mondays -> 20000
		monthlyBill(10000, core.NewDate(2024, 1, 15)),     // 1 occurrence
		{
			ID:          3,
			CompanyName: "Registration",
			Amount:      core.Money{Cents: 30000},
			ChargeCycle: core.CycleAnnual,
			Multiplier:  core.MultiplierOneOff,
			NextDueDate: core.NewDate(2024, 1, 10),
		},
	}
	progress := core.PaymentProgress{
		1: 1, // one Monday already paid
		2: 9, // overpaid, clamps to 1
	}
	start, end := core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 28)

	rows, totals := Aggregate(bills, progress, start, end)

	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}

	weekly := rows[0]
	if weekly.TotalWeeklyCost.Cents != 20000 || weekly.TotalMonthlyCost.Cents != 0 {
		t.Errorf("weekly row costs = %d/%d, want 20000/0",
			weekly.TotalWeeklyCost.Cents, weekly.TotalMonthlyCost.Cents)
	}
	if weekly.RemainingThisMonth.Cents != 15000 {
		t.Errorf("weekly remaining = %d, want 15000", weekly.RemainingThisMonth.Cents)
	}

	monthly := rows[1]
	if monthly.TotalMonthlyCost.Cents != 10000 || monthly.TotalWeeklyCost.Cents != 0 {
		t.Errorf("monthly row costs = %d/%d, want 0/10000",
			monthly.TotalWeeklyCost.Cents, monthly.TotalMonthlyCost.Cents)
	}
	if monthly.PaymentsPaid != 1 {
		t.Errorf("monthly PaymentsPaid = %d, want clamped 1", monthly.PaymentsPaid)
	}
	if monthly.RemainingThisMonth.Cents != 0 {
		t.Errorf("monthly remaining = %d, want 0", monthly.RemainingThisMonth.Cents)
	}

	oneOff := rows[2]
	if oneOff.TotalMonthlyCost.Cents != 30000 || oneOff.RemainingThisMonth.Cents != 30000 {
		t.Errorf("one_off row = %+v, want 30000 cost and remaining", oneOff)
	}

	if totals.TotalWeeklyCost.Cents != 20000 {
		t.Errorf("totals.TotalWeeklyCost = %d, want 20000", totals.TotalWeeklyCost.Cents)
	}
	if totals.TotalMonthlyCost.Cents != 40000 {
		t.Errorf("totals.TotalMonthlyCost = %d, want 40000", totals.TotalMonthlyCost.Cents)
	}
	if totals.RemainingThisMonth.Cents != 45000 {
		t.Errorf("totals.RemainingThisMonth = %d, want 45000", totals.RemainingThisMonth.Cents)
	}
}

func TestAggregateEmpty(t *testing.T) {
	rows, totals := Aggregate(nil, nil, core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 28))
	if len(rows) != 0 {
		t.Errorf("len(rows) = %d, want 0", len(rows))
	}
	if totals.RemainingThisMonth.Cents != 0 {
		t.Errorf("totals = %+v, want zero", totals)
	}
}

func TestAggregateZeroOccurrenceBillStillListed(t *testing.T) {
	bills := []core.Bill{monthlyBill(10000, core.NewDate(2024, 1, 31))}
	// Window before the due day: the bill appears with zero cost.
	rows, totals := Aggregate(bills, nil, core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 15))
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0].TotalPayments != 0 || rows[0].RemainingThisMonth.Cents != 0 {
		t.Errorf("row = %+v, want zero payments and remaining", rows[0])
	}
	if totals.RemainingThisMonth.Cents != 0 {
		t.Errorf("totals.RemainingThisMonth = %d, want 0", totals.RemainingThisMonth.Cents)
	}
}
