package business

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_api/internal/storefront/internal/models"
)

func TestDispatch_Product42DecrementsStockAndRecordsOrder(t *testing.T) {
	p := newPipeline(product42())
	event := completedEvent(t, "evt_1", "cs_test_42", map[string]string{"productId": "42"})

	ack, err := p.dispatcher.Dispatch(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, ack.Received)
	assert.False(t, ack.Duplicate)

	assert.Equal(t, 2, p.products.stock(42))
	require.Equal(t, 1, p.orders.count())

	order := p.orders.orders["cs_test_42"]
	assert.Equal(t, ack.OrderID, order.ID.String())
	assert.True(t, decimal.RequireFromString("19.99").Equal(order.TotalPrice), order.TotalPrice.String())
	assert.Equal(t, "cs_test_42", order.StripeSessionID)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	assert.Equal(t, int64(42), order.ProductID)
	assert.Equal(t, "Olive Wood Menorah", order.ProductName)
	assert.Equal(t, "https://cdn.test/menorah.jpg", order.ProductImage)
	assert.Equal(t, 1, order.Quantity)
	assert.Equal(t, "usd", order.Currency)
	assert.Equal(t, "Dana Levi", order.CustomerName)
	assert.Equal(t, "N/A", order.CustomerPhone)
	assert.Equal(t, "N/A", order.ShippingAddress.City)
	assert.Equal(t, "pi_cs_test_42", order.PaymentIntentID)

	require.Len(t, p.publisher.published, 1)
	assert.Equal(t, order.ID, p.publisher.published[0].OrderID)
}

func TestDispatch_RedeliveryIsNoOp(t *testing.T) {
	p := newPipeline(product42())
	event := completedEvent(t, "evt_1", "cs_test_42", map[string]string{"productId": "42"})

	first, err := p.dispatcher.Dispatch(context.Background(), event)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ack, err := p.dispatcher.Dispatch(context.Background(), event)
		require.NoError(t, err)
		assert.True(t, ack.Received)
		assert.True(t, ack.Duplicate)
		assert.Equal(t, first.OrderID, ack.OrderID)
	}

	assert.Equal(t, 2, p.products.stock(42))
	assert.Equal(t, 1, p.orders.count())
	assert.Len(t, p.publisher.published, 1)
}

func TestDispatch_UntrackedInventoryKeepsStock(t *testing.T) {
	product := product42()
	product.TrackInventory = false
	p := newPipeline(product)

	_, err := p.dispatcher.Dispatch(context.Background(), completedEvent(t, "evt_1", "cs_1", map[string]string{"productId": "42"}))
	require.NoError(t, err)

	assert.Equal(t, 3, p.products.stock(42))
	assert.Equal(t, 0, p.products.swaps)
	assert.Equal(t, 1, p.orders.count())
}

func TestDispatch_StockNeverGoesNegative(t *testing.T) {
	cases := []struct {
		name     string
		stock    int
		quantity string
		want     int
		swaps    int
	}{
		{"last unit", 1, "1", 0, 1},
		{"already sold out", 0, "1", 0, 0},
		{"quantity above stock", 2, "5", 0, 1},
		{"multi unit", 10, "3", 7, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			product := product42()
			product.Stock = tc.stock
			p := newPipeline(product)

			event := completedEvent(t, "evt_"+tc.name, "cs_"+tc.name, map[string]string{"productId": "42", "quantity": tc.quantity})
			_, err := p.dispatcher.Dispatch(context.Background(), event)
			require.NoError(t, err)

			assert.Equal(t, tc.want, p.products.stock(42))
			assert.Equal(t, tc.swaps, p.products.swaps)
			assert.Equal(t, 1, p.orders.count())
		})
	}
}

func TestDispatch_UnknownProductIsRetryable(t *testing.T) {
	p := newPipeline(product42())

	_, err := p.dispatcher.Dispatch(context.Background(), completedEvent(t, "evt_1", "cs_1", map[string]string{"productId": "7"}))
	require.ErrorIs(t, err, ErrProductNotFound)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 0, p.orders.count())
}

func TestDispatch_LedgerFailureAfterDecrementIsSurfaced(t *testing.T) {
	p := newPipeline(product42())
	p.orders.insertErr = errors.New("connection reset")

	_, err := p.dispatcher.Dispatch(context.Background(), completedEvent(t, "evt_1", "cs_1", map[string]string{"productId": "42"}))
	require.ErrorIs(t, err, ErrLedgerWrite)
	assert.True(t, IsRetryable(err))

	// no rollback
	assert.Equal(t, 2, p.products.stock(42))
	assert.Equal(t, 0, p.orders.count())
	assert.Contains(t, p.logs.String(), "INCONSISTENCY session=cs_1 event=evt_1 product=42 stock 3 -> 2")
	assert.Empty(t, p.publisher.published)
}

func TestDispatch_LedgerFailureWithoutDecrementIsNotAnInconsistency(t *testing.T) {
	product := product42()
	product.TrackInventory = false
	p := newPipeline(product)
	p.orders.insertErr = errors.New("connection reset")

	_, err := p.dispatcher.Dispatch(context.Background(), completedEvent(t, "evt_1", "cs_1", map[string]string{"productId": "42"}))
	require.ErrorIs(t, err, ErrLedgerWrite)
	assert.NotContains(t, p.logs.String(), "INCONSISTENCY")
}

func TestDispatch_LookupFailureStopsBeforeStock(t *testing.T) {
	p := newPipeline(product42())
	p.orders.findErr = errors.New("timeout")

	_, err := p.dispatcher.Dispatch(context.Background(), completedEvent(t, "evt_1", "cs_1", map[string]string{"productId": "42"}))
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 3, p.products.stock(42))
}

func TestDispatch_ConcurrentDuplicateInsertReportsDuplicate(t *testing.T) {
	p := newPipeline(product42())
	p.orders.beforeInsert = func(order *models.Order) {
		p.orders.beforeInsert = nil
		cp := *order
		p.orders.mu.Lock()
		p.orders.orders[order.StripeSessionID] = &cp
		p.orders.mu.Unlock()
	}

	ack, err := p.dispatcher.Dispatch(context.Background(), completedEvent(t, "evt_1", "cs_1", map[string]string{"productId": "42"}))
	require.NoError(t, err)
	assert.True(t, ack.Duplicate)
	assert.Equal(t, 1, p.orders.count())
	assert.Contains(t, p.logs.String(), "INCONSISTENCY")
	assert.Empty(t, p.publisher.published)
}

func TestDispatch_PublishFailureDoesNotFailDelivery(t *testing.T) {
	p := newPipeline(product42())
	p.publisher.err = errors.New("broker down")

	ack, err := p.dispatcher.Dispatch(context.Background(), completedEvent(t, "evt_1", "cs_1", map[string]string{"productId": "42"}))
	require.NoError(t, err)
	assert.True(t, ack.Received)
	assert.Equal(t, 1, p.orders.count())
	assert.Contains(t, p.logs.String(), "failed to publish order")
}

func TestDispatch_ConcurrentSessionsForSameProduct(t *testing.T) {
	product := product42()
	product.Stock = 20
	p := newPipeline(product)
	p.service.reconciler.opts.MaxAttempts = 100

	const deliveries = 8
	var wg sync.WaitGroup
	errs := make(chan error, deliveries)
	for i := 0; i < deliveries; i++ {
		event := completedEvent(t, fmt.Sprintf("evt_%d", i), fmt.Sprintf("cs_%d", i), map[string]string{"productId": "42"})
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.dispatcher.Dispatch(context.Background(), event)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, 20-deliveries, p.products.stock(42))
	assert.Equal(t, deliveries, p.orders.count())
}

func TestBuildOrder_FillsSentinels(t *testing.T) {
	ledger := NewOrderLedger(newMemoryOrders(), 0, testLogger(&bytes.Buffer{}))
	product := product42()
	product.Images = nil

	order := ledger.BuildOrder(&CompletedCheckout{
		SessionID: "cs_1",
		ProductID: 42,
		Quantity:  1,
		Total:     decimal.RequireFromString("19.99"),
		Currency:  "USD",
	}, product)

	assert.Equal(t, "Guest", order.CustomerName)
	assert.Equal(t, "N/A", order.CustomerEmail)
	assert.Equal(t, "N/A", order.CustomerPhone)
	assert.Equal(t, "N/A", order.ProductImage)
	assert.Equal(t, models.ShippingAddress{
		Line1: "N/A", Line2: "N/A", City: "N/A", State: "N/A", PostalCode: "N/A", Country: "N/A",
	}, order.ShippingAddress)
	assert.Equal(t, "N/A", order.PaymentIntentID)
	assert.Equal(t, "N/A", order.CustomerID)
	assert.Equal(t, "usd", order.Currency)
	assert.True(t, product.Price.Equal(order.ProductPrice))
}
