// Package worker turns order events into customer notifications. It runs
// out of process from the API: a dead gateway or broker here can never fail
// an order placement.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/w3-80717/SuprabhatGroceries/internal/domain"
	"github.com/w3-80717/SuprabhatGroceries/internal/notification"
)

type NotificationHandler struct {
	email    *notification.EmailClient
	whatsapp *notification.WhatsAppClient
	logger   *slog.Logger
}

// NewNotificationHandler wires the delivery channels. whatsapp may be nil
// when no gateway is configured.
func NewNotificationHandler(email *notification.EmailClient, whatsapp *notification.WhatsAppClient, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		email:    email,
		whatsapp: whatsapp,
		logger:   logger,
	}
}

// HandleOrderCreated sends the confirmation email and, when a phone number
// is on file, the WhatsApp confirmation. Each channel fails independently.
func (h *NotificationHandler) HandleOrderCreated(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order created event: %w", err)
	}

	h.logger.Info("dispatching order confirmation", "order_id", event.Order.ID, "email", event.Customer.Email)

	var errs []error

	subject, body := notification.ComposeConfirmationEmail(event.Order, event.Customer)
	if err := h.email.Send(ctx, event.Customer.Email, subject, body); err != nil {
		errs = append(errs, fmt.Errorf("send confirmation email: %w", err))
	}

	if h.whatsapp != nil && event.Customer.Phone != "" {
		text := notification.ComposeConfirmationText(event.Order, event.Customer)
		if err := h.whatsapp.Send(ctx, event.Customer.Phone, text); err != nil {
			errs = append(errs, fmt.Errorf("send confirmation whatsapp: %w", err))
		}
	}

	return errors.Join(errs...)
}

// HandleStatusChanged sends the status-update WhatsApp message, falling
// back to email when no phone number is on file.
func (h *NotificationHandler) HandleStatusChanged(ctx context.Context, payload []byte) error {
	var event domain.OrderStatusChangedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal status changed event: %w", err)
	}

	h.logger.Info("dispatching status update", "order_id", event.Order.ID, "status", event.Order.Status)

	text := notification.ComposeStatusUpdateText(event.Order, event.Customer)

	if h.whatsapp != nil && event.Customer.Phone != "" {
		if err := h.whatsapp.Send(ctx, event.Customer.Phone, text); err != nil {
			return fmt.Errorf("send status whatsapp: %w", err)
		}
		return nil
	}

	subject := fmt.Sprintf("Suprabhat Order Update: #%s", event.Order.ID)
	if err := h.email.Send(ctx, event.Customer.Email, subject, text); err != nil {
		return fmt.Errorf("send status email: %w", err)
	}

	return nil
}
