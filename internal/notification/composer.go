// Package notification composes and delivers customer-facing messages.
// Delivery is best effort and happens off the request path, driven by order
// events consumed in the worker.
package notification

import (
	"fmt"
	"strings"

	"github.com/w3-80717/SuprabhatGroceries/internal/domain"
)

// shortRef is the human-friendly order reference used in messages.
func shortRef(orderID string) string {
	if len(orderID) <= 6 {
		return orderID
	}
	return orderID[len(orderID)-6:]
}

// ComposeConfirmationEmail renders the order confirmation sent right after
// placement.
func ComposeConfirmationEmail(order domain.Order, customer domain.Contact) (subject, body string) {
	subject = fmt.Sprintf("Suprabhat Order Confirmed: #%s", order.ID)

	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order, %s!\n\n", customer.Name)
	fmt.Fprintf(&b, "Your order #%s has been confirmed.\n\nOrder Summary:\n", order.ID)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "  - %s (x%d) - ₹%s each\n", item.Name, item.Quantity, item.Price.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nSubtotal: ₹%s\n", order.SubTotal.StringFixed(2))
	fmt.Fprintf(&b, "Delivery Fee: ₹%s\n", order.DeliveryFee.StringFixed(2))
	fmt.Fprintf(&b, "Total: ₹%s\n\n", order.TotalAmount.StringFixed(2))
	fmt.Fprintf(&b, "It will be delivered to: %s\n\n", order.DeliveryAddress)
	b.WriteString("Thank you for shopping with Suprabhat!\n")

	return subject, b.String()
}

// ComposeConfirmationText renders the short WhatsApp confirmation.
func ComposeConfirmationText(order domain.Order, customer domain.Contact) string {
	return fmt.Sprintf("Thank you for your order, %s! Your Suprabhat order #%s for ₹%s is confirmed. We'll notify you when it's on its way.",
		customer.Name, shortRef(order.ID), order.TotalAmount.StringFixed(2))
}

// ComposeStatusUpdateText renders the WhatsApp status-change message.
func ComposeStatusUpdateText(order domain.Order, customer domain.Contact) string {
	return fmt.Sprintf("Hi %s, your Suprabhat order #%s status has been updated to: *%s*.",
		customer.Name, shortRef(order.ID), order.Status)
}
