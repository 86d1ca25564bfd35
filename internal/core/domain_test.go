package core

import (
	"errors"
	"testing"
)

func intPtr(n int) *int { return &n }

func TestBillValidate(t *testing.T) {
	valid := Bill{
		CompanyName: "Power Co",
		Amount:      Money{Cents: 12000},
		ChargeCycle: CycleMonthly,
		Multiplier:  MultiplierMonthly,
		NextDueDate: NewDate(2024, 1, 15),
	}

	tests := []struct {
		name    string
		mutate  func(b *Bill)
		wantErr error
	}{
		{
			name:   "valid monthly bill",
			mutate: func(b *Bill) {},
		},
		{
			name:    "empty company name",
			mutate:  func(b *Bill) { b.CompanyName = "  " },
			wantErr: ErrEmptyCompanyName,
		},
		{
			name:    "zero amount",
			mutate:  func(b *Bill) { b.Amount = Money{} },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			mutate:  func(b *Bill) { b.Amount = Money{Cents: -500} },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "unknown charge cycle",
			mutate:  func(b *Bill) { b.ChargeCycle = "fortnightly" },
			wantErr: ErrInvalidChargeCycle,
		},
		{
			name:    "unknown multiplier",
			mutate:  func(b *Bill) { b.Multiplier = "daily" },
			wantErr: ErrInvalidMultiplier,
		},
		{
			name: "weekly without payment day",
			mutate: func(b *Bill) {
				b.Multiplier = MultiplierWeekly
				b.PaymentDay = nil
			},
		},
		{
			name: "weekly with out-of-range payment day",
			mutate: func(b *Bill) {
				b.Multiplier = MultiplierWeekly
				b.PaymentDay = intPtr(7)
			},
			wantErr: ErrInvalidPaymentDay,
		},
		{
			name: "weekly with valid payment day",
			mutate: func(b *Bill) {
				b.Multiplier = MultiplierWeekly
				b.PaymentDay = intPtr(1)
			},
		},
		{
			name: "monthly without due date",
			mutate: func(b *Bill) {
				b.NextDueDate = Date{}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid
			tt.mutate(&b)
			err := b.Validate()
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
				}
			case tt.name == "weekly without payment day" || tt.name == "monthly without due date":
				if err == nil {
					t.Error("Validate() = nil, want error")
				}
			default:
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
			}
		})
	}
}

func TestAccountValidate(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		wantErr bool
	}{
		{
			name:    "valid checking account",
			account: Account{Name: "Everyday", Type: AccountChecking, Balance: Money{Cents: 150000}},
		},
		{
			name:    "negative balance is allowed",
			account: Account{Name: "Visa", Type: AccountCredit, Balance: Money{Cents: -40000}},
		},
		{
			name:    "empty name",
			account: Account{Name: "", Type: AccountSavings},
			wantErr: true,
		},
		{
			name:    "unknown type",
			account: Account{Name: "Vault", Type: "offshore"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.account.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProjectionEntryValidate(t *testing.T) {
	tests := []struct {
		name    string
		entry   ProjectionEntry
		wantErr bool
	}{
		{
			name:  "valid entry",
			entry: ProjectionEntry{Date: NewDate(2024, 3, 1), EntryTime: "08:30:00", DaysRemaining: 10},
		},
		{
			name:  "missing entry time is acceptable",
			entry: ProjectionEntry{Date: NewDate(2024, 3, 1), DaysRemaining: 0},
		},
		{
			name:    "negative days remaining",
			entry:   ProjectionEntry{Date: NewDate(2024, 3, 1), DaysRemaining: -1},
			wantErr: true,
		},
		{
			name:    "malformed entry time",
			entry:   ProjectionEntry{Date: NewDate(2024, 3, 1), EntryTime: "8:30"},
			wantErr: true,
		},
		{
			name:    "zero date",
			entry:   ProjectionEntry{DaysRemaining: 5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProjectionEntryNaturalKey(t *testing.T) {
	withTime := ProjectionEntry{Date: NewDate(2024, 3, 1), DaysRemaining: 5, EntryTime: "00:00:00"}
	withoutTime := ProjectionEntry{Date: NewDate(2024, 3, 1), DaysRemaining: 5}
	if withTime.NaturalKey() != withoutTime.NaturalKey() {
		t.Errorf("missing entry time should normalize to midnight: %q != %q",
			withTime.NaturalKey(), withoutTime.NaturalKey())
	}
}

func TestBillingPeriodValidate(t *testing.T) {
	valid := BillingPeriod{
		Name:      "March pay cycle",
		StartDate: NewDate(2024, 3, 1),
		EndDate:   NewDate(2024, 3, 28),
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	inverted := valid
	inverted.EndDate = NewDate(2024, 2, 1)
	if err := inverted.Validate(); err == nil {
		t.Error("Validate() = nil for inverted period, want error")
	}
}

func TestBillingPeriodContains(t *testing.T) {
	p := BillingPeriod{
		Name:      "window",
		StartDate: NewDate(2024, 3, 1),
		EndDate:   NewDate(2024, 3, 28),
	}
	if !p.Contains(NewDate(2024, 3, 1)) || !p.Contains(NewDate(2024, 3, 28)) {
		t.Error("bounds should be inclusive")
	}
	if p.Contains(NewDate(2024, 2, 29)) || p.Contains(NewDate(2024, 3, 29)) {
		t.Error("dates outside the window should not be contained")
	}
}
