package business

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"storefront_api/internal/payments"
	"storefront_api/internal/storefront/internal/models"
	"storefront_api/pkg/logger"
)

type memoryProducts struct {
	mu       sync.Mutex
	products map[int64]*models.Product
	getErr   error
	swapErr  error
	// beforeSwap runs outside the lock and lets a test play a concurrent writer.
	beforeSwap func(id int64)
	swaps      int
}

func newMemoryProducts(products ...*models.Product) *memoryProducts {
	m := &memoryProducts{products: map[int64]*models.Product{}}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *memoryProducts) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memoryProducts) CompareAndSwapStock(_ context.Context, id int64, expected, next int) (bool, error) {
	if m.beforeSwap != nil {
		m.beforeSwap(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swaps++
	if m.swapErr != nil {
		return false, m.swapErr
	}
	p, ok := m.products[id]
	if !ok || !p.TrackInventory || p.Stock != expected {
		return false, nil
	}
	p.Stock = next
	return true, nil
}

func (m *memoryProducts) setStock(id int64, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id].Stock = stock
}

func (m *memoryProducts) stock(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

type memoryOrders struct {
	mu        sync.Mutex
	orders    map[string]*models.Order
	findErr   error
	insertErr error
	// beforeInsert lets a test slip in a concurrent delivery's row.
	beforeInsert func(order *models.Order)
}

func newMemoryOrders() *memoryOrders {
	return &memoryOrders{orders: map[string]*models.Order{}}
}

func (m *memoryOrders) FindOrderBySession(_ context.Context, sessionID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.orders[sessionID], nil
}

func (m *memoryOrders) InsertOrder(_ context.Context, order *models.Order) (bool, error) {
	if m.beforeInsert != nil {
		m.beforeInsert(order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return false, m.insertErr
	}
	if _, ok := m.orders[order.StripeSessionID]; ok {
		return false, nil
	}
	m.orders[order.StripeSessionID] = order
	return true, nil
}

func (m *memoryOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type fakePublisher struct {
	mu        sync.Mutex
	published []models.CompletedOrderEvent
	err       error
}

func (f *fakePublisher) PublishOrderCompleted(_ context.Context, event models.CompletedOrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, event)
	return f.err
}

type fakeProvider struct {
	createFn func(ctx context.Context, params payments.CheckoutSessionParams) (*payments.Session, error)
	calls    []payments.CheckoutSessionParams
}

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, params payments.CheckoutSessionParams) (*payments.Session, error) {
	f.calls = append(f.calls, params)
	return f.createFn(ctx, params)
}

func testLogger(buf *bytes.Buffer) logger.Logger {
	return logger.NewQuietLogger(buf, "[test]")
}

func product42() *models.Product {
	return &models.Product{
		ID:             42,
		Name:           "Olive Wood Menorah",
		Price:          decimal.RequireFromString("19.99"),
		Stock:          3,
		TrackInventory: true,
		Status:         models.ProductStatusActive,
		Images:         []string{"https://cdn.test/menorah.jpg"},
	}
}

func completedEvent(t *testing.T, eventID, sessionID string, metadata map[string]string) *payments.Event {
	t.Helper()
	session := map[string]interface{}{
		"id":             sessionID,
		"object":         "checkout.session",
		"amount_total":   1999,
		"currency":       "usd",
		"payment_status": "paid",
		"payment_intent": "pi_" + sessionID,
		"customer":       nil,
		"customer_details": map[string]interface{}{
			"name":  "Dana Levi",
			"email": "dana@example.com",
			"phone": nil,
		},
		"metadata": metadata,
	}
	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatal(err)
	}
	return &payments.Event{
		ID:   eventID,
		Type: payments.EventCheckoutSessionCompleted,
		Data: payments.EventData{Object: raw},
	}
}

type pipeline struct {
	products   *memoryProducts
	orders     *memoryOrders
	publisher  *fakePublisher
	service    *FulfillmentService
	dispatcher *EventDispatcher
	logs       *bytes.Buffer
}

func newPipeline(products ...*models.Product) *pipeline {
	p := &pipeline{
		products:  newMemoryProducts(products...),
		orders:    newMemoryOrders(),
		publisher: &fakePublisher{},
		logs:      &bytes.Buffer{},
	}
	log := testLogger(p.logs)
	reconciler := NewInventoryReconciler(p.products, ReconcilerOptions{MaxAttempts: 5}, log)
	reconciler.sleep = func(context.Context, time.Duration) error { return nil }
	ledger := NewOrderLedger(p.orders, 0, log)
	p.service = NewFulfillmentService(reconciler, ledger, p.publisher, 0, log)
	p.dispatcher = NewEventDispatcher(p.service, "usd", log)
	return p
}
