package business

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront_api/internal/storefront/internal/models"
	"storefront_api/pkg/logger"
)

const (
	GuestName    = "Guest"
	NotAvailable = "N/A"
)

// CompletedCheckout is the validated content of a checkout.session.completed
// event.
type CompletedCheckout struct {
	EventID         string
	SessionID       string
	ProductID       int64
	Quantity        int
	Total           decimal.Decimal
	Currency        string
	PaymentIntentID string
	CustomerID      string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	Shipping        models.ShippingAddress
}

type OrderLedger struct {
	store   OrderStore
	timeout time.Duration
	log     logger.Logger
	now     func() time.Time
	newID   func() uuid.UUID
}

func NewOrderLedger(store OrderStore, timeout time.Duration, log logger.Logger) *OrderLedger {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &OrderLedger{store: store, timeout: timeout, log: log, now: time.Now, newID: uuid.New}
}

func (l *OrderLedger) Find(ctx context.Context, sessionID string) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	order, err := l.store.FindOrderBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup of session %s: %v", ErrLedgerWrite, sessionID, err)
	}
	return order, nil
}

// Record inserts the order. A conflict on the session id is success with
// created=false and the stored order returned instead.
func (l *OrderLedger) Record(ctx context.Context, order *models.Order) (*models.Order, bool, error) {
	insertCtx, cancel := context.WithTimeout(ctx, l.timeout)
	created, err := l.store.InsertOrder(insertCtx, order)
	cancel()
	if err != nil {
		return nil, false, fmt.Errorf("%w: session %s: %v", ErrLedgerWrite, order.StripeSessionID, err)
	}
	if created {
		return order, true, nil
	}

	existing, err := l.Find(ctx, order.StripeSessionID)
	if err != nil || existing == nil {
		// the row exists, we just could not read it back
		return order, false, nil
	}
	return existing, false, nil
}

// BuildOrder snapshots the product and fills every optional field so no
// consumer sees an empty value.
func (l *OrderLedger) BuildOrder(checkout *CompletedCheckout, product *models.Product) *models.Order {
	return &models.Order{
		ID:              l.newID(),
		ProductID:       product.ID,
		ProductName:     product.Name,
		ProductPrice:    product.Price,
		ProductImage:    orDefault(product.PrimaryImage(), NotAvailable),
		Quantity:        checkout.Quantity,
		TotalPrice:      checkout.Total,
		Currency:        strings.ToLower(checkout.Currency),
		CustomerName:    orDefault(checkout.CustomerName, GuestName),
		CustomerEmail:   orDefault(checkout.CustomerEmail, NotAvailable),
		CustomerPhone:   orDefault(checkout.CustomerPhone, NotAvailable),
		ShippingAddress: models.ShippingAddress{
			Line1:      orDefault(checkout.Shipping.Line1, NotAvailable),
			Line2:      orDefault(checkout.Shipping.Line2, NotAvailable),
			City:       orDefault(checkout.Shipping.City, NotAvailable),
			State:      orDefault(checkout.Shipping.State, NotAvailable),
			PostalCode: orDefault(checkout.Shipping.PostalCode, NotAvailable),
			Country:    orDefault(checkout.Shipping.Country, NotAvailable),
		},
		StripeSessionID: checkout.SessionID,
		PaymentIntentID: orDefault(checkout.PaymentIntentID, NotAvailable),
		CustomerID:      orDefault(checkout.CustomerID, NotAvailable),
		Status:          models.OrderStatusCompleted,
		CreatedAt:       l.now().UTC(),
	}
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
