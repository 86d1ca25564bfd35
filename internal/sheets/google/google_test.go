package google

import "testing"

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		name string
		base string
		year int
		want string
	}{
		{"plain base", "Snapshots", 2024, "2024 Snapshots"},
		{"already prefixed", "2023 Snapshots", 2024, "2023 Snapshots"},
		{"empty base", "", 2024, ""},
		{"short base", "Snap", 2024, "2024 Snap"},
		{"numeric-looking but not a year", "12 Months", 2024, "2024 12 Months"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
				t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
			}
		})
	}
}

func TestParseAmountToCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"100.50", 10050, true},
		{"100,50", 10050, true},
		{"0", 0, true},
		{"-25.75", -2575, true},
		{"", 0, false},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseAmountToCents(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseAmountToCents(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
