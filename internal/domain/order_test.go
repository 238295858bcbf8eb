package domain

import (
	"errors"
	"testing"
)

func TestToOrderStatus(t *testing.T) {
	for _, s := range []string{
		"Pending", "Confirmed", "Processing", "Out for Delivery",
		"Delivered", "Cancelled", "Payment Failed",
	} {
		status, err := ToOrderStatus(s)
		if err != nil {
			t.Errorf("ToOrderStatus(%q): %v", s, err)
		}
		if string(status) != s {
			t.Errorf("ToOrderStatus(%q) = %q", s, status)
		}
	}

	for _, s := range []string{"", "pending", "Shipped", "DELIVERED"} {
		if _, err := ToOrderStatus(s); !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("ToOrderStatus(%q) err = %v, want %v", s, err, ErrInvalidStatus)
		}
	}
}

func TestToUnit(t *testing.T) {
	for _, s := range []string{"kg", "piece", "bunch", "dozen"} {
		unit, err := ToUnit(s)
		if err != nil {
			t.Errorf("ToUnit(%q): %v", s, err)
		}
		if string(unit) != s {
			t.Errorf("ToUnit(%q) = %q", s, unit)
		}
	}

	if _, err := ToUnit("litre"); err == nil {
		t.Error("ToUnit(litre) should fail")
	}
}

func TestStockErrorMessages(t *testing.T) {
	notFound := &ProductNotFoundError{ProductID: "p-1"}
	if got, want := notFound.Error(), "product with ID p-1 not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	insufficient := &InsufficientStockError{ProductID: "p-1", Name: "Bananas", Available: 2, Requested: 5}
	if got, want := insufficient.Error(), "insufficient stock for Bananas. Available: 2, Requested: 5"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
