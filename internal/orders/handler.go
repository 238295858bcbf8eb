package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/w3-80717/SuprabhatGroceries/internal/auth"
	"github.com/w3-80717/SuprabhatGroceries/internal/domain"
)

var meter = otel.Meter("orders")

type Handler struct {
	workflow      *Workflow
	users         UserReader
	logger        *slog.Logger
	ordersCreated metric.Int64Counter
}

func NewHandler(workflow *Workflow, users UserReader, logger *slog.Logger) *Handler {
	ordersCreated, err := meter.Int64Counter("orders_created_total",
		metric.WithDescription("Number of successfully placed orders"))
	if err != nil {
		logger.Warn("failed to create orders counter", "error", err)
	}

	return &Handler{
		workflow:      workflow,
		users:         users,
		logger:        logger,
		ordersCreated: ordersCreated,
	}
}

type createOrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// createOrderRequest intentionally has no price fields; anything else the
// client sends is discarded by the decoder.
type createOrderRequest struct {
	Items           []createOrderItem `json:"items"`
	DeliveryAddress string            `json:"deliveryAddress"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.GetByID(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			h.writeError(w, http.StatusUnauthorized, "unknown user")
			return
		}
		h.logger.Error("failed to resolve user", "error", err, "user_id", identity.UserID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	input := CreateOrderInput{
		Items: lo.Map(req.Items, func(item createOrderItem, _ int) Line {
			return Line{ProductID: item.ProductID, Quantity: item.Quantity}
		}),
		DeliveryAddress: req.DeliveryAddress,
	}

	order, err := h.workflow.CreateOrder(r.Context(), *user, input)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	if h.ordersCreated != nil {
		h.ordersCreated.Add(r.Context(), 1)
	}
	h.logger.Info("order created", "order_id", order.ID, "user_id", user.ID, "total", order.TotalAmount)
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	orders, err := h.workflow.GetUserOrders(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "user_id", identity.UserID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	order, err := h.workflow.GetOrder(r.Context(), identity.UserID, r.PathValue("orderId"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.workflow.ListAllOrders(r.Context())
	if err != nil {
		h.logger.Error("failed to list all orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := domain.ToOrderStatus(req.Status)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.workflow.UpdateStatus(r.Context(), r.PathValue("orderId"), status)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.logger.Info("order status updated", "order_id", order.ID, "status", order.Status)
	h.writeJSON(w, http.StatusOK, order)
}

// writeDomainError maps workflow errors to status codes per the error
// taxonomy: client faults are 4xx with detail, everything else is an opaque
// 500 so partial-failure internals never leak.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *domain.ProductNotFoundError
	var insufficient *domain.InsufficientStockError

	switch {
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrInvalidStatus):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &insufficient):
		h.writeError(w, http.StatusBadRequest, insufficient.Error())
	case errors.As(err, &notFound):
		h.writeError(w, http.StatusNotFound, notFound.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		h.writeError(w, http.StatusForbidden, err.Error())
	default:
		h.logger.Error("order operation failed", "error", err, "path", r.URL.Path)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
