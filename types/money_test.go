package types_test

import (
	"testing"

	"github.com/dee-mee/aquatrack/types"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    types.Money
		amount   int64
		currency string
	}{
		{"KES", types.KES(9750), 9750, "kes"},
		{"USD", types.USD(4900), 4900, "usd"},
		{"EUR", types.EUR(19900), 19900, "eur"},
		{"GBP", types.GBP(9900), 9900, "gbp"},
		{"Zero", types.Zero("KES"), 0, "kes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("expected amount %d, got %d", tt.amount, tt.money.Amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("expected currency %q, got %q", tt.currency, tt.money.Currency)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	m1 := types.KES(150)
	m2 := types.KES(350)

	if got := m1.Add(m2); got.Amount != 500 {
		t.Errorf("Add: expected 500, got %d", got.Amount)
	}
	if got := m2.Subtract(m1); got.Amount != 200 {
		t.Errorf("Subtract: expected 200, got %d", got.Amount)
	}
	if got := m1.Multiply(65); got.Amount != 9750 {
		t.Errorf("Multiply: expected 9750, got %d", got.Amount)
	}
	if got := m2.Divide(2); got.Amount != 175 {
		t.Errorf("Divide: expected 175, got %d", got.Amount)
	}
	if got := m1.Negate(); got.Amount != -150 {
		t.Errorf("Negate: expected -150, got %d", got.Amount)
	}
}

func TestMoneyCurrencyMismatchPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on currency mismatch")
		}
	}()
	types.KES(100).Add(types.USD(100))
}

func TestMoneyDivideByZeroPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on division by zero")
		}
	}()
	types.KES(100).Divide(0)
}

func TestMoneyComparison(t *testing.T) {
	small := types.KES(100)
	large := types.KES(200)

	if !small.LessThan(large) {
		t.Error("expected 100 < 200")
	}
	if !large.GreaterThan(small) {
		t.Error("expected 200 > 100")
	}
	if !small.Equal(types.KES(100)) {
		t.Error("expected equality for same amount and currency")
	}
	if small.Equal(types.USD(100)) {
		t.Error("expected inequality across currencies")
	}
	if !types.Zero("kes").IsZero() {
		t.Error("expected zero value")
	}
	if !small.IsPositive() {
		t.Error("expected positive value")
	}
	if !small.Negate().IsNegative() {
		t.Error("expected negative value")
	}
}

func TestMoneyFormatting(t *testing.T) {
	tests := []struct {
		name  string
		money types.Money
		major string
		str   string
	}{
		{"KES two decimals", types.KES(9750), "97.50", "KES 97.50"},
		{"KES whole", types.KES(7500), "75.00", "KES 75.00"},
		{"USD", types.USD(4900), "49.00", "$49.00"},
		{"negative", types.KES(-150), "-1.50", "KES -1.50"},
		{"unknown currency", types.Money{Amount: 100, Currency: "xyz"}, "1.00", "XYZ 1.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.money.FormatMajor(); got != tt.major {
				t.Errorf("FormatMajor: expected %q, got %q", tt.major, got)
			}
			if got := tt.money.String(); got != tt.str {
				t.Errorf("String: expected %q, got %q", tt.str, got)
			}
		})
	}
}

func TestMoneySum(t *testing.T) {
	got := types.Sum(types.KES(7500), types.KES(9750), types.KES(6000))
	if got.Amount != 23250 {
		t.Errorf("expected 23250, got %d", got.Amount)
	}
	if got.Currency != "kes" {
		t.Errorf("expected kes, got %q", got.Currency)
	}

	empty := types.Sum()
	if !empty.IsZero() {
		t.Error("expected zero sum for no values")
	}
}
