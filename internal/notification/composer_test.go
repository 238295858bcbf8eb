package notification

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/w3-80717/SuprabhatGroceries/internal/domain"
)

func sampleOrder() domain.Order {
	return domain.Order{
		ID:     "7f3c1a9e-5f42-4d8a-9c0b-1a2b3c4d5e6f",
		UserID: "user-1",
		Items: []domain.OrderItem{
			{ProductID: "p1", Name: "Fresh Tomatoes", Price: decimal.RequireFromString("40"), Quantity: 2},
			{ProductID: "p2", Name: "Bananas", Price: decimal.RequireFromString("35.5"), Quantity: 1},
		},
		SubTotal:        decimal.RequireFromString("115.5"),
		DeliveryFee:     decimal.NewFromInt(50),
		TotalAmount:     decimal.RequireFromString("165.5"),
		DeliveryAddress: "42 Gandhi Road, Pune 411001",
		Status:          domain.OrderStatusConfirmed,
		CreatedAt:       time.Now().UTC(),
	}
}

func sampleContact() domain.Contact {
	return domain.Contact{Name: "Asha", Email: "asha@example.com", Phone: "+919876543210"}
}

func TestComposeConfirmationEmail(t *testing.T) {
	subject, body := ComposeConfirmationEmail(sampleOrder(), sampleContact())

	if want := "Suprabhat Order Confirmed: #7f3c1a9e-5f42-4d8a-9c0b-1a2b3c4d5e6f"; subject != want {
		t.Errorf("subject = %q, want %q", subject, want)
	}

	for _, want := range []string{
		"Thank you for your order, Asha!",
		"Fresh Tomatoes (x2) - ₹40.00 each",
		"Bananas (x1) - ₹35.50 each",
		"Subtotal: ₹115.50",
		"Delivery Fee: ₹50.00",
		"Total: ₹165.50",
		"42 Gandhi Road, Pune 411001",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestComposeConfirmationText(t *testing.T) {
	text := ComposeConfirmationText(sampleOrder(), sampleContact())

	// short ref is the last 6 characters of the order ID
	if !strings.Contains(text, "#4d5e6f") {
		t.Errorf("text missing short order ref: %q", text)
	}
	if !strings.Contains(text, "₹165.50") {
		t.Errorf("text missing total: %q", text)
	}
	if strings.Contains(text, "7f3c1a9e-5f42") {
		t.Errorf("text leaks the full order ID: %q", text)
	}
}

func TestComposeStatusUpdateText(t *testing.T) {
	order := sampleOrder()
	order.Status = domain.OrderStatusOutForDelivery

	text := ComposeStatusUpdateText(order, sampleContact())

	if !strings.Contains(text, "*Out for Delivery*") {
		t.Errorf("text missing status: %q", text)
	}
	if !strings.Contains(text, "#4d5e6f") {
		t.Errorf("text missing short order ref: %q", text)
	}
}

func TestShortRef(t *testing.T) {
	if got := shortRef("abc"); got != "abc" {
		t.Errorf("shortRef(short id) = %q, want %q", got, "abc")
	}
	if got := shortRef("0123456789"); got != "456789" {
		t.Errorf("shortRef = %q, want %q", got, "456789")
	}
}
