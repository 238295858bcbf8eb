package orders

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/w3-80717/SuprabhatGroceries/internal/domain"
)

// DeliveryFee is charged flat on every order. Cash on delivery is the only
// payment method, so there is no payment step between reservation and
// confirmation.
var DeliveryFee = decimal.NewFromInt(50)

const minAddressLength = 10

// EventPublisher delivers order events to the notification pipeline.
// Publishing happens after commit and failures are only logged; a dead
// broker must never fail or retry order placement.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// UserReader resolves the contact details attached to status-change
// notifications.
type UserReader interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Workflow implements order placement and the order read/admin operations.
type Workflow struct {
	store    Store
	users    UserReader
	created  EventPublisher
	statused EventPublisher
	logger   *slog.Logger
}

// NewWorkflow wires the workflow. Either publisher may be nil, which
// disables the corresponding notification.
func NewWorkflow(store Store, users UserReader, created, statused EventPublisher, logger *slog.Logger) *Workflow {
	return &Workflow{
		store:    store,
		users:    users,
		created:  created,
		statused: statused,
		logger:   logger,
	}
}

// CreateOrderInput is the client-controlled part of an order. Prices are
// deliberately absent: they are always taken from the catalog at placement
// time, so a tampered request body cannot influence the total.
type CreateOrderInput struct {
	Items           []Line
	DeliveryAddress string
}

func (in *CreateOrderInput) validate() error {
	if len(in.Items) == 0 {
		return domain.ErrEmptyCart
	}
	if lo.SomeBy(in.Items, func(l Line) bool { return l.Quantity <= 0 }) {
		return domain.ErrInvalidQuantity
	}
	if len(strings.TrimSpace(in.DeliveryAddress)) < minAddressLength {
		return domain.ErrInvalidAddress
	}
	return nil
}

// CreateOrder validates the cart, resolves every line against the catalog,
// reserves stock and persists the order in a single transaction. The
// stock check against the resolved product is a fast-path rejection with a
// descriptive error; the conditional decrement inside ReserveStock is what
// actually prevents oversell under concurrency.
func (w *Workflow) CreateOrder(ctx context.Context, user domain.User, in CreateOrderInput) (*domain.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var order *domain.Order
	err := w.store.InTx(ctx, func(tx Tx) error {
		items := make([]domain.OrderItem, 0, len(in.Items))
		subTotal := decimal.Zero

		for _, line := range in.Items {
			product, err := tx.ProductForOrder(ctx, line.ProductID)
			if err != nil {
				return err
			}

			if product.Stock < line.Quantity {
				return &domain.InsufficientStockError{
					ProductID: product.ID,
					Name:      product.Name,
					Available: product.Stock,
					Requested: line.Quantity,
				}
			}

			items = append(items, domain.OrderItem{
				ProductID: product.ID,
				Name:      product.Name,
				Price:     product.Price,
				Quantity:  line.Quantity,
			})
			subTotal = subTotal.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}

		// Reserve in product-id order so two carts sharing products always
		// take their row locks in the same sequence and cannot deadlock.
		reservations := slices.Clone(in.Items)
		slices.SortFunc(reservations, func(a, b Line) int {
			return strings.Compare(a.ProductID, b.ProductID)
		})
		for _, line := range reservations {
			if err := tx.ReserveStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		order = &domain.Order{
			ID:              uuid.New().String(),
			UserID:          user.ID,
			Items:           items,
			SubTotal:        subTotal,
			DeliveryFee:     DeliveryFee,
			TotalAmount:     subTotal.Add(DeliveryFee),
			DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
			Status:          domain.OrderStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		return tx.InsertOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	w.publishCreated(ctx, order, user)

	return order, nil
}

// GetUserOrders returns the caller's orders, newest first.
func (w *Workflow) GetUserOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	return w.store.OrdersByUser(ctx, userID)
}

// GetOrder returns the order only to its owner. The order's existence is
// confirmed before ownership, so a non-owner gets Forbidden, not NotFound.
func (w *Workflow) GetOrder(ctx context.Context, requesterID, orderID string) (*domain.Order, error) {
	order, err := w.store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != requesterID {
		return nil, domain.ErrForbidden
	}
	return order, nil
}

// ListAllOrders returns every order in the system. Admin callers only.
func (w *Workflow) ListAllOrders(ctx context.Context) ([]domain.Order, error) {
	return w.store.AllOrders(ctx)
}

// UpdateStatus sets any known status on an existing order. Transitions are
// deliberately unrestricted so staff can correct mistakes; unknown status
// strings are rejected before this point. The order's owner is notified
// asynchronously on success.
func (w *Workflow) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	order, err := w.store.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return nil, err
	}

	w.publishStatusChanged(ctx, order)

	return order, nil
}

func (w *Workflow) publishCreated(ctx context.Context, order *domain.Order, user domain.User) {
	if w.created == nil {
		return
	}

	event := domain.OrderCreatedEvent{
		Order:     *order,
		Customer:  domain.Contact{Name: user.Name, Email: user.Email, Phone: user.Phone},
		Timestamp: order.CreatedAt,
	}
	if err := w.created.Publish(ctx, order.ID, event); err != nil {
		w.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
	}
}

func (w *Workflow) publishStatusChanged(ctx context.Context, order *domain.Order) {
	if w.statused == nil {
		return
	}

	user, err := w.users.GetByID(ctx, order.UserID)
	if err != nil {
		w.logger.Error("failed to resolve user for status notification", "error", err, "order_id", order.ID)
		return
	}

	event := domain.OrderStatusChangedEvent{
		Order:     *order,
		Customer:  domain.Contact{Name: user.Name, Email: user.Email, Phone: user.Phone},
		Timestamp: time.Now().UTC(),
	}
	if err := w.statused.Publish(ctx, order.ID, event); err != nil {
		w.logger.Error("failed to publish status changed event", "error", err, "order_id", order.ID)
	}
}
