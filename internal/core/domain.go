package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountCredit     AccountType = "credit"
	AccountInvestment AccountType = "investment"
	AccountOther      AccountType = "other"
)

const (
	CycleWeekly     ChargeCycle = "weekly"
	CycleBiweekly   ChargeCycle = "biweekly"
	CycleMonthly    ChargeCycle = "monthly"
	CycleBimonthly  ChargeCycle = "bimonthly"
	CycleQuarterly  ChargeCycle = "quarterly"
	CycleSemiannual ChargeCycle = "semiannual"
	CycleAnnual     ChargeCycle = "annual"
	CycleCustom     ChargeCycle = "custom"
)

const (
	MultiplierMonthly MultiplierType = "monthly"
	MultiplierWeekly  MultiplierType = "weekly"
	MultiplierOneOff  MultiplierType = "one_off"
)

type (
	AccountType    string
	ChargeCycle    string
	MultiplierType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Account struct {
		ID        int64       `json:"id"`
		Name      string      `json:"name"`
		Type      AccountType `json:"type"`
		Balance   Money       `json:"balance_cents"`
		SortOrder int         `json:"sort_order"`
	}

	Bill struct {
		ID          int64  `json:"id"`
		CompanyName string `json:"company_name"`
		Amount      Money  `json:"amount_cents"`
		// TypicalAmount is shown alongside Amount in listings; it never
		// participates in occurrence or cost computation.
		TypicalAmount *Money         `json:"typical_amount_cents,omitempty"`
		ChargeCycle   ChargeCycle    `json:"charge_cycle"`
		Multiplier    MultiplierType `json:"multiplier"`
		NextDueDate   Date           `json:"next_due_date"`
		// PaymentDay is a weekday (0=Sunday..6=Saturday). It is meaningful
		// only when Multiplier is MultiplierWeekly.
		PaymentDay       *int   `json:"payment_day,omitempty"`
		BillingAccountID *int64 `json:"billing_account_id,omitempty"`
		Category         string `json:"category,omitempty"`
	}

	// PaymentProgress maps bill id to the number of cycle occurrences already
	// paid inside the active window. It resets to empty when a new billing
	// period begins.
	PaymentProgress map[int64]int
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyCompanyName   = errors.New("empty company name")
	ErrEmptyAccountName   = errors.New("empty account name")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrInvalidChargeCycle = errors.New("invalid charge cycle")
	ErrInvalidMultiplier  = errors.New("invalid multiplier type")
	ErrInvalidPaymentDay  = errors.New("invalid payment day")
)

// NewDate creates a Date from year, month, day at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month (1-12).
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// MarshalJSON renders the date as "YYYY-MM-DD", or null when zero.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Time.Format("2006-01-02") + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD" or a full RFC3339 timestamp.
func (d *Date) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	if str == "" || str == "null" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse("2006-01-02", str); err == nil {
		d.Time = t
		return nil
	}
	if t, err := time.Parse(time.RFC3339, str); err == nil {
		d.Time = t
		return nil
	}
	return fmt.Errorf("parse date %q: %w", str, ErrInvalidDate)
}

func (d Date) String() string {
	if d.Time.IsZero() {
		return ""
	}
	return d.Time.Format("2006-01-02")
}

func (t AccountType) Valid() bool {
	switch t {
	case AccountChecking, AccountSavings, AccountCredit, AccountInvestment, AccountOther:
		return true
	}
	return false
}

func (c ChargeCycle) Valid() bool {
	switch c {
	case CycleWeekly, CycleBiweekly, CycleMonthly, CycleBimonthly,
		CycleQuarterly, CycleSemiannual, CycleAnnual, CycleCustom:
		return true
	}
	return false
}

func (m MultiplierType) Valid() bool {
	switch m {
	case MultiplierMonthly, MultiplierWeekly, MultiplierOneOff:
		return true
	}
	return false
}

func (a Account) Validate() error {
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyAccountName
	}
	if len(a.Name) > 200 {
		return errors.New("account name too long (max 200 characters)")
	}
	if !a.Type.Valid() {
		return ErrInvalidAccountType
	}
	// Negative balances are legitimate (credit accounts, overdrafts) and
	// pass through arithmetic untouched.
	return nil
}

func (b Bill) Validate() error {
	if len(strings.TrimSpace(b.CompanyName)) == 0 {
		return ErrEmptyCompanyName
	}
	if len(b.CompanyName) > 200 {
		return errors.New("company name too long (max 200 characters)")
	}
	if b.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if !b.ChargeCycle.Valid() {
		return ErrInvalidChargeCycle
	}
	if !b.Multiplier.Valid() {
		return ErrInvalidMultiplier
	}
	switch b.Multiplier {
	case MultiplierWeekly:
		if b.PaymentDay == nil {
			return errors.New("payment day is required for weekly bills")
		}
		if *b.PaymentDay < 0 || *b.PaymentDay > 6 {
			return ErrInvalidPaymentDay
		}
	case MultiplierMonthly, MultiplierOneOff:
		if err := b.NextDueDate.Validate(); err != nil {
			return errors.New("invalid next due date: " + err.Error())
		}
	}
	return nil
}
