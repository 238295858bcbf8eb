package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/w3-80717/SuprabhatGroceries/internal/domain"
	"github.com/w3-80717/SuprabhatGroceries/internal/notification"
)

type gatewayStub struct {
	mu       sync.Mutex
	requests []map[string]string
	status   int
}

func newGatewayStub(status int) (*gatewayStub, *httptest.Server) {
	g := &gatewayStub{status: status}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		g.mu.Lock()
		g.requests = append(g.requests, payload)
		g.mu.Unlock()
		w.WriteHeader(g.status)
	}))
	return g, server
}

func (g *gatewayStub) sent() []map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]map[string]string(nil), g.requests...)
}

func createdEventPayload(t *testing.T, phone string) []byte {
	t.Helper()

	event := domain.OrderCreatedEvent{
		Order: domain.Order{
			ID:     "order-aaaa-111111",
			UserID: "user-1",
			Items: []domain.OrderItem{
				{ProductID: "p1", Name: "Fresh Spinach", Price: decimal.NewFromInt(25), Quantity: 2},
			},
			SubTotal:        decimal.NewFromInt(50),
			DeliveryFee:     decimal.NewFromInt(50),
			TotalAmount:     decimal.NewFromInt(100),
			DeliveryAddress: "42 Gandhi Road, Pune 411001",
			Status:          domain.OrderStatusPending,
		},
		Customer:  domain.Contact{Name: "Asha", Email: "asha@example.com", Phone: phone},
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshaling event: %v", err)
	}
	return payload
}

func newHandler(emailURL, whatsappURL string) *NotificationHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := &http.Client{Timeout: time.Second}

	email := notification.NewEmailClient(emailURL, client)
	var whatsapp *notification.WhatsAppClient
	if whatsappURL != "" {
		whatsapp = notification.NewWhatsAppClient(whatsappURL, client)
	}
	return NewNotificationHandler(email, whatsapp, logger)
}

func TestHandleOrderCreated(t *testing.T) {
	ctx := context.Background()

	t.Run("sends email and whatsapp", func(t *testing.T) {
		emailGW, emailSrv := newGatewayStub(http.StatusOK)
		defer emailSrv.Close()
		waGW, waSrv := newGatewayStub(http.StatusOK)
		defer waSrv.Close()

		h := newHandler(emailSrv.URL, waSrv.URL)

		if err := h.HandleOrderCreated(ctx, createdEventPayload(t, "+919876543210")); err != nil {
			t.Fatalf("HandleOrderCreated: %v", err)
		}

		emails := emailGW.sent()
		if len(emails) != 1 {
			t.Fatalf("email gateway got %d requests, want 1", len(emails))
		}
		if emails[0]["to"] != "asha@example.com" {
			t.Errorf("email to = %q", emails[0]["to"])
		}
		if !strings.Contains(emails[0]["body"], "₹100.00") {
			t.Errorf("email body missing total: %q", emails[0]["body"])
		}

		texts := waGW.sent()
		if len(texts) != 1 {
			t.Fatalf("whatsapp gateway got %d requests, want 1", len(texts))
		}
		if texts[0]["to"] != "+919876543210" {
			t.Errorf("whatsapp to = %q", texts[0]["to"])
		}
	})

	t.Run("skips whatsapp without a phone number", func(t *testing.T) {
		_, emailSrv := newGatewayStub(http.StatusOK)
		defer emailSrv.Close()
		waGW, waSrv := newGatewayStub(http.StatusOK)
		defer waSrv.Close()

		h := newHandler(emailSrv.URL, waSrv.URL)

		if err := h.HandleOrderCreated(ctx, createdEventPayload(t, "")); err != nil {
			t.Fatalf("HandleOrderCreated: %v", err)
		}
		if got := waGW.sent(); len(got) != 0 {
			t.Errorf("whatsapp gateway got %d requests, want 0", len(got))
		}
	})

	t.Run("one failing channel does not block the other", func(t *testing.T) {
		_, emailSrv := newGatewayStub(http.StatusInternalServerError)
		defer emailSrv.Close()
		waGW, waSrv := newGatewayStub(http.StatusOK)
		defer waSrv.Close()

		h := newHandler(emailSrv.URL, waSrv.URL)

		err := h.HandleOrderCreated(ctx, createdEventPayload(t, "+919876543210"))
		if err == nil {
			t.Fatal("expected an error from the failing email gateway")
		}
		if got := waGW.sent(); len(got) != 1 {
			t.Errorf("whatsapp gateway got %d requests, want 1", len(got))
		}
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		_, emailSrv := newGatewayStub(http.StatusOK)
		defer emailSrv.Close()

		h := newHandler(emailSrv.URL, "")
		if err := h.HandleOrderCreated(ctx, []byte("{not json")); err == nil {
			t.Fatal("expected an unmarshal error")
		}
	})
}

func TestHandleStatusChanged(t *testing.T) {
	ctx := context.Background()

	statusPayload := func(t *testing.T, phone string) []byte {
		t.Helper()
		event := domain.OrderStatusChangedEvent{
			Order: domain.Order{
				ID:          "order-bbbb-222222",
				UserID:      "user-1",
				TotalAmount: decimal.NewFromInt(100),
				Status:      domain.OrderStatusOutForDelivery,
			},
			Customer:  domain.Contact{Name: "Asha", Email: "asha@example.com", Phone: phone},
			Timestamp: time.Now().UTC(),
		}
		payload, err := json.Marshal(event)
		if err != nil {
			t.Fatalf("marshaling event: %v", err)
		}
		return payload
	}

	t.Run("prefers whatsapp", func(t *testing.T) {
		emailGW, emailSrv := newGatewayStub(http.StatusOK)
		defer emailSrv.Close()
		waGW, waSrv := newGatewayStub(http.StatusOK)
		defer waSrv.Close()

		h := newHandler(emailSrv.URL, waSrv.URL)

		if err := h.HandleStatusChanged(ctx, statusPayload(t, "+919876543210")); err != nil {
			t.Fatalf("HandleStatusChanged: %v", err)
		}

		texts := waGW.sent()
		if len(texts) != 1 {
			t.Fatalf("whatsapp gateway got %d requests, want 1", len(texts))
		}
		if !strings.Contains(texts[0]["message"], "*Out for Delivery*") {
			t.Errorf("message missing status: %q", texts[0]["message"])
		}
		if got := emailGW.sent(); len(got) != 0 {
			t.Errorf("email gateway got %d requests, want 0", len(got))
		}
	})

	t.Run("falls back to email without a phone number", func(t *testing.T) {
		emailGW, emailSrv := newGatewayStub(http.StatusOK)
		defer emailSrv.Close()

		h := newHandler(emailSrv.URL, "")

		if err := h.HandleStatusChanged(ctx, statusPayload(t, "")); err != nil {
			t.Fatalf("HandleStatusChanged: %v", err)
		}

		emails := emailGW.sent()
		if len(emails) != 1 {
			t.Fatalf("email gateway got %d requests, want 1", len(emails))
		}
		if want := "Suprabhat Order Update: #order-bbbb-222222"; emails[0]["subject"] != want {
			t.Errorf("subject = %q, want %q", emails[0]["subject"], want)
		}
	})

	t.Run("reports gateway failure", func(t *testing.T) {
		_, waSrv := newGatewayStub(http.StatusBadGateway)
		defer waSrv.Close()
		_, emailSrv := newGatewayStub(http.StatusOK)
		defer emailSrv.Close()

		h := newHandler(emailSrv.URL, waSrv.URL)

		if err := h.HandleStatusChanged(ctx, statusPayload(t, "+919876543210")); err == nil {
			t.Fatal("expected an error from the failing whatsapp gateway")
		}
	})
}
