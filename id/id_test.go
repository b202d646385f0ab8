package id_test

import (
	"strings"
	"testing"

	"github.com/dee-mee/aquatrack/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"CustomerID", id.NewCustomerID, "cust_"},
		{"BillID", id.NewBillID, "bill_"},
		{"AccountID", id.NewAccountID, "acct_"},
		{"ReadingID", id.NewReadingID, "read_"},
		{"PaymentID", id.NewPaymentID, "pay_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixCustomer)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixCustomer {
		t.Errorf("expected prefix %q, got %q", id.PrefixCustomer, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"CustomerID", id.NewCustomerID, id.ParseCustomerID},
		{"BillID", id.NewBillID, id.ParseBillID},
		{"AccountID", id.NewAccountID, id.ParseAccountID},
		{"ReadingID", id.NewReadingID, id.ParseReadingID},
		{"PaymentID", id.NewPaymentID, id.ParsePaymentID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseCustomerID rejects bill_", id.NewBillID().String(), id.ParseCustomerID},
		{"ParseBillID rejects acct_", id.NewAccountID().String(), id.ParseBillID},
		{"ParseAccountID rejects read_", id.NewReadingID().String(), id.ParseAccountID},
		{"ParseReadingID rejects pay_", id.NewPaymentID().String(), id.ParseReadingID},
		{"ParsePaymentID rejects cust_", id.NewCustomerID().String(), id.ParsePaymentID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parseFn(tt.input)
			if err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseAny(t *testing.T) {
	ids := []id.ID{
		id.NewCustomerID(),
		id.NewBillID(),
		id.NewAccountID(),
		id.NewReadingID(),
		id.NewPaymentID(),
	}

	for _, original := range ids {
		parsed, err := id.ParseAny(original.String())
		if err != nil {
			t.Fatalf("ParseAny(%q) failed: %v", original.String(), err)
		}
		if parsed.String() != original.String() {
			t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "not-a-typeid", "cust_"} {
		if _, err := id.Parse(input); err == nil {
			t.Errorf("expected error parsing %q, got nil", input)
		}
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero value should be nil")
	}
	if i.String() != "" {
		t.Errorf("nil ID should render empty, got %q", i.String())
	}

	text, err := i.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}
	if len(text) != 0 {
		t.Errorf("nil ID should marshal empty, got %q", text)
	}

	val, err := i.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if val != nil {
		t.Errorf("nil ID should store NULL, got %v", val)
	}
}

func TestScan(t *testing.T) {
	original := id.NewBillID()

	var fromString id.ID
	if err := fromString.Scan(original.String()); err != nil {
		t.Fatalf("Scan string failed: %v", err)
	}
	if fromString.String() != original.String() {
		t.Errorf("Scan string mismatch: %q != %q", fromString.String(), original.String())
	}

	var fromBytes id.ID
	if err := fromBytes.Scan([]byte(original.String())); err != nil {
		t.Fatalf("Scan bytes failed: %v", err)
	}
	if fromBytes.String() != original.String() {
		t.Errorf("Scan bytes mismatch: %q != %q", fromBytes.String(), original.String())
	}

	var fromNil id.ID
	if err := fromNil.Scan(nil); err != nil {
		t.Fatalf("Scan nil failed: %v", err)
	}
	if !fromNil.IsNil() {
		t.Error("Scan nil should produce the Nil ID")
	}

	var fromInt id.ID
	if err := fromInt.Scan(42); err == nil {
		t.Error("expected error scanning unsupported type")
	}
}
