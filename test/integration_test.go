//go:build integration

package test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/w3-80717/SuprabhatGroceries/internal/auth"
	"github.com/w3-80717/SuprabhatGroceries/internal/catalog"
	"github.com/w3-80717/SuprabhatGroceries/internal/config"
	"github.com/w3-80717/SuprabhatGroceries/internal/domain"
	"github.com/w3-80717/SuprabhatGroceries/internal/inventory"
	"github.com/w3-80717/SuprabhatGroceries/internal/messaging"
	"github.com/w3-80717/SuprabhatGroceries/internal/notification"
	"github.com/w3-80717/SuprabhatGroceries/internal/orders"
	"github.com/w3-80717/SuprabhatGroceries/internal/users"
	"github.com/w3-80717/SuprabhatGroceries/internal/worker"
)

const testJWTSecret = "integration-test-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedUser(ctx context.Context, t *testing.T, db *sql.DB) domain.User {
	t.Helper()

	repo := users.NewUserRepository(db)
	u := domain.User{
		Name:  "Asha Patil",
		Email: fmt.Sprintf("asha+%d@example.com", time.Now().UnixNano()),
		Phone: "+919876543210",
		Role:  domain.RoleUser,
	}
	if err := repo.Create(ctx, &u, "not-a-real-hash"); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return u
}

func seedProduct(ctx context.Context, t *testing.T, db *sql.DB, name string, price string, stock int) domain.Product {
	t.Helper()

	repo := catalog.NewProductRepository(db)
	p := domain.Product{
		Name:        name,
		Price:       decimal.RequireFromString(price),
		Unit:        domain.UnitKg,
		Category:    "vegetables",
		Stock:       stock,
		IsPublished: true,
	}
	if err := repo.Create(ctx, &p); err != nil {
		t.Fatalf("failed to seed product %s: %v", name, err)
	}
	return p
}

func newPostgresWorkflow(db *sql.DB) *orders.Workflow {
	store := orders.NewPostgresStore(db, catalog.NewProductRepository(db), inventory.NewLedger(db))
	return orders.NewWorkflow(store, users.NewUserRepository(db), nil, nil, discardLogger())
}

func TestOrderPlacementOverHTTP(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()
	db := OpenDB(t, pg.ConnStr)

	user := seedUser(ctx, t, db)
	product := seedProduct(ctx, t, db, "Fresh Tomatoes", "40.00", 10)

	logger := discardLogger()
	workflow := newPostgresWorkflow(db)
	handler := orders.NewHandler(workflow, users.NewUserRepository(db), logger)

	authed := auth.Middleware(testJWTSecret, logger)
	mux := http.NewServeMux()
	mux.Handle("POST /orders", authed(http.HandlerFunc(handler.HandleCreate)))
	mux.Handle("GET /orders/{orderId}", authed(http.HandlerFunc(handler.HandleGet)))
	server := httptest.NewServer(mux)
	defer server.Close()

	token, err := auth.Token(testJWTSecret, auth.Identity{UserID: user.ID, Role: user.Role}, time.Hour)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	body := fmt.Sprintf(`{
		"items": [{"productId": "%s", "quantity": 3}],
		"deliveryAddress": "42 Gandhi Road, Pune 411001"
	}`, product.ID)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, server.URL+"/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("placing order: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, resp.StatusCode, raw)
	}

	var created domain.Order
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decoding order: %v", err)
	}

	if created.ID == "" {
		t.Fatal("expected order ID to be set")
	}
	if created.Status != domain.OrderStatusPending {
		t.Fatalf("expected status %s, got %s", domain.OrderStatusPending, created.Status)
	}
	wantTotal := decimal.RequireFromString("170.00")
	if !created.TotalAmount.Equal(wantTotal) {
		t.Fatalf("expected total %s, got %s", wantTotal, created.TotalAmount)
	}

	level, err := inventory.NewLedger(db).GetStock(ctx, product.ID)
	if err != nil {
		t.Fatalf("reading stock: %v", err)
	}
	if level.Stock != 7 {
		t.Fatalf("expected stock 7 after placement, got %d", level.Stock)
	}

	fetched, err := workflow.GetOrder(ctx, user.ID, created.ID)
	if err != nil {
		t.Fatalf("fetching order: %v", err)
	}
	if len(fetched.Items) != 1 || fetched.Items[0].Name != "Fresh Tomatoes" {
		t.Fatalf("unexpected order items: %+v", fetched.Items)
	}
	if !fetched.Items[0].Price.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("expected snapshot price 40.00, got %s", fetched.Items[0].Price)
	}
}

func TestOrderItemsKeepCartOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()
	db := OpenDB(t, pg.ConnStr)

	user := seedUser(ctx, t, db)
	tomatoes := seedProduct(ctx, t, db, "Fresh Tomatoes", "40.00", 10)
	bananas := seedProduct(ctx, t, db, "Bananas", "35.00", 10)
	spinach := seedProduct(ctx, t, db, "Fresh Spinach", "25.00", 10)

	workflow := newPostgresWorkflow(db)

	cart := []orders.Line{
		{ProductID: spinach.ID, Quantity: 1},
		{ProductID: tomatoes.ID, Quantity: 2},
		{ProductID: bananas.ID, Quantity: 3},
	}
	order, err := workflow.CreateOrder(ctx, user, orders.CreateOrderInput{
		Items:           cart,
		DeliveryAddress: "42 Gandhi Road, Pune 411001",
	})
	if err != nil {
		t.Fatalf("placing order: %v", err)
	}

	first, err := workflow.GetOrder(ctx, user.ID, order.ID)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	if len(first.Items) != len(cart) {
		t.Fatalf("expected %d items, got %d", len(cart), len(first.Items))
	}
	for i, line := range cart {
		if first.Items[i].ProductID != line.ProductID {
			t.Fatalf("item %d: expected product %s, got %s", i, line.ProductID, first.Items[i].ProductID)
		}
	}

	second, err := workflow.GetOrder(ctx, user.ID, order.ID)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	for i := range first.Items {
		a, b := first.Items[i], second.Items[i]
		if a.ProductID != b.ProductID || a.Name != b.Name || a.Quantity != b.Quantity || !a.Price.Equal(b.Price) {
			t.Fatalf("item %d differs between reads: %+v vs %+v", i, a, b)
		}
	}

	listed, err := workflow.GetUserOrders(ctx, user.ID)
	if err != nil {
		t.Fatalf("listing orders: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 order, got %d", len(listed))
	}
	for i, line := range cart {
		if listed[0].Items[i].ProductID != line.ProductID {
			t.Fatalf("listed item %d: expected product %s, got %s", i, line.ProductID, listed[0].Items[i].ProductID)
		}
	}
}

func TestSoftDeleteReturnsProduct(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()
	db := OpenDB(t, pg.ConnStr)

	repo := catalog.NewProductRepository(db)
	product := seedProduct(ctx, t, db, "Okra", "45.00", 5)

	deleted, err := repo.SoftDelete(ctx, product.ID)
	if err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if deleted.Category != product.Category {
		t.Fatalf("expected category %q on deleted row, got %q", product.Category, deleted.Category)
	}
	if !deleted.IsDeleted || deleted.IsPublished {
		t.Fatalf("unexpected flags on deleted row: %+v", deleted)
	}

	if _, err := repo.GetActive(ctx, product.ID); err == nil {
		t.Fatal("expected deleted product to be invisible to active reads")
	}

	var notFound *domain.ProductNotFoundError
	if _, err := repo.SoftDelete(ctx, product.ID); !errors.As(err, &notFound) {
		t.Fatalf("expected ProductNotFoundError on repeat delete, got %v", err)
	}
}

func TestMultiItemRollback(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()
	db := OpenDB(t, pg.ConnStr)

	user := seedUser(ctx, t, db)
	plenty := seedProduct(ctx, t, db, "Bananas", "35.00", 50)
	scarce := seedProduct(ctx, t, db, "Alphonso Mangoes", "350.00", 2)

	workflow := newPostgresWorkflow(db)

	_, err := workflow.CreateOrder(ctx, user, orders.CreateOrderInput{
		Items: []orders.Line{
			{ProductID: plenty.ID, Quantity: 5},
			{ProductID: scarce.ID, Quantity: 10},
		},
		DeliveryAddress: "42 Gandhi Road, Pune 411001",
	})

	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.Available != 2 || insufficient.Requested != 10 {
		t.Fatalf("unexpected error detail: %+v", insufficient)
	}

	ledger := inventory.NewLedger(db)
	for _, tc := range []struct {
		product domain.Product
		want    int
	}{
		{plenty, 50},
		{scarce, 2},
	} {
		level, err := ledger.GetStock(ctx, tc.product.ID)
		if err != nil {
			t.Fatalf("reading stock for %s: %v", tc.product.Name, err)
		}
		if level.Stock != tc.want {
			t.Fatalf("%s: expected stock %d after rollback, got %d", tc.product.Name, tc.want, level.Stock)
		}
	}

	userOrders, err := workflow.GetUserOrders(ctx, user.ID)
	if err != nil {
		t.Fatalf("listing orders: %v", err)
	}
	if len(userOrders) != 0 {
		t.Fatalf("expected no orders after rollback, got %d", len(userOrders))
	}
}

func TestConcurrentOrderPlacement(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()
	db := OpenDB(t, pg.ConnStr)

	user := seedUser(ctx, t, db)
	product := seedProduct(ctx, t, db, "Fresh Spinach", "25.00", 10)

	workflow := newPostgresWorkflow(db)

	input := orders.CreateOrderInput{
		Items:           []orders.Line{{ProductID: product.ID, Quantity: 6}},
		DeliveryAddress: "42 Gandhi Road, Pune 411001",
	}

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := workflow.CreateOrder(ctx, user, input)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, stockFailures int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		var insufficient *domain.InsufficientStockError
		if !errors.As(err, &insufficient) {
			t.Fatalf("unexpected error: %v", err)
		}
		stockFailures++
	}

	if successes != 1 || stockFailures != 1 {
		t.Fatalf("expected exactly one success and one stock failure, got %d/%d", successes, stockFailures)
	}

	level, err := inventory.NewLedger(db).GetStock(ctx, product.ID)
	if err != nil {
		t.Fatalf("reading stock: %v", err)
	}
	if level.Stock != 4 {
		t.Fatalf("expected stock 4 after one reservation, got %d", level.Stock)
	}
}

func TestLedgerOperations(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()
	db := OpenDB(t, pg.ConnStr)

	product := seedProduct(ctx, t, db, "Coconut", "30.00", 20)
	ledger := inventory.NewLedger(db)

	if err := ledger.Reserve(ctx, product.ID, 5); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	level, err := ledger.GetStock(ctx, product.ID)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if level.Stock != 15 {
		t.Fatalf("expected stock 15, got %d", level.Stock)
	}

	err = ledger.Reserve(ctx, product.ID, 100)
	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}

	if err := ledger.Release(ctx, product.ID, 10); err != nil {
		t.Fatalf("release: %v", err)
	}
	level, err = ledger.GetStock(ctx, product.ID)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if level.Stock != 25 {
		t.Fatalf("expected stock 25 after restock, got %d", level.Stock)
	}

	other := seedProduct(ctx, t, db, "Okra", "45.00", 3)
	err = ledger.ReserveMany(ctx, []inventory.Line{
		{ProductID: product.ID, Quantity: 5},
		{ProductID: other.ID, Quantity: 10},
	})
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError from batch, got %v", err)
	}
	level, err = ledger.GetStock(ctx, product.ID)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if level.Stock != 25 {
		t.Fatalf("expected batch rollback to leave stock 25, got %d", level.Stock)
	}

	var notFound *domain.ProductNotFoundError
	if err := ledger.Reserve(ctx, "00000000-0000-0000-0000-000000000000", 1); !errors.As(err, &notFound) {
		t.Fatalf("expected ProductNotFoundError, got %v", err)
	}
}

type gatewayCapture struct {
	mu       sync.Mutex
	requests []map[string]string
}

func (g *gatewayCapture) handler(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, `{"status":"sent"}`)
}

func (g *gatewayCapture) sent() []map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	result := make([]map[string]string, len(g.requests))
	copy(result, g.requests)
	return result
}

func TestNotificationPipeline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	brokers, cleanup := SetupKafka(ctx, t)
	defer cleanup()

	emailCap := &gatewayCapture{}
	emailMux := http.NewServeMux()
	emailMux.HandleFunc("POST /send", emailCap.handler)
	emailServer := httptest.NewServer(emailMux)
	defer emailServer.Close()

	logger := discardLogger()
	httpClient := &http.Client{Timeout: 10 * time.Second}
	handler := worker.NewNotificationHandler(
		notification.NewEmailClient(emailServer.URL, httpClient),
		nil,
		logger,
	)

	consumer := messaging.NewConsumer(brokers, config.TopicOrderCreated, config.NotificationGroupID, logger)
	defer func() { _ = consumer.Close() }()

	consumeCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	go func() {
		_ = consumer.Consume(consumeCtx, handler.HandleOrderCreated)
	}()

	producer := messaging.NewProducer(brokers, config.TopicOrderCreated)
	defer func() { _ = producer.Close() }()

	order := domain.Order{
		ID:     "order-integration-1",
		UserID: "user-1",
		Items: []domain.OrderItem{
			{ProductID: "p1", Name: "Fresh Tomatoes", Price: decimal.NewFromInt(40), Quantity: 2},
		},
		SubTotal:        decimal.NewFromInt(80),
		DeliveryFee:     decimal.NewFromInt(50),
		TotalAmount:     decimal.NewFromInt(130),
		DeliveryAddress: "42 Gandhi Road, Pune 411001",
		Status:          domain.OrderStatusPending,
		CreatedAt:       time.Now().UTC(),
	}
	event := domain.OrderCreatedEvent{
		Order:     order,
		Customer:  domain.Contact{Name: "Asha", Email: "asha@example.com"},
		Timestamp: order.CreatedAt,
	}

	if err := producer.Publish(ctx, order.ID, event); err != nil {
		t.Fatalf("publishing event: %v", err)
	}

	deadline := time.After(60 * time.Second)
	for {
		if emails := emailCap.sent(); len(emails) > 0 {
			email := emails[0]
			if email["to"] != "asha@example.com" {
				t.Fatalf("email to = %q", email["to"])
			}
			if !strings.Contains(email["subject"], order.ID) {
				t.Fatalf("expected subject to reference the order, got %q", email["subject"])
			}
			if !strings.Contains(email["body"], "₹130.00") {
				t.Fatalf("expected body to contain the total, got: %s", email["body"])
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the confirmation email")
		case <-time.After(500 * time.Millisecond):
		}
	}
}
