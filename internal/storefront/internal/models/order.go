package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusRefunded  OrderStatus = "refunded"
	OrderStatusDisputed  OrderStatus = "disputed"
)

type ShippingAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Order is written once per provider checkout session.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       int64           `json:"product_id"`
	ProductName     string          `json:"product_name"`
	ProductPrice    decimal.Decimal `json:"product_price"`
	ProductImage    string          `json:"product_image"`
	Quantity        int             `json:"quantity"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Currency        string          `json:"currency"`
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email"`
	CustomerPhone   string          `json:"customer_phone"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	StripeSessionID string          `json:"stripe_session_id"`
	PaymentIntentID string          `json:"payment_intent_id"`
	CustomerID      string          `json:"customer_id"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// CompletedOrderEvent is what gets published after an order is stored.
type CompletedOrderEvent struct {
	OrderID         uuid.UUID       `json:"order_id"`
	StripeSessionID string          `json:"stripe_session_id"`
	ProductID       int64           `json:"product_id"`
	Quantity        int             `json:"quantity"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Currency        string          `json:"currency"`
	CustomerEmail   string          `json:"customer_email"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (o *Order) CompletedEvent() CompletedOrderEvent {
	return CompletedOrderEvent{
		OrderID:         o.ID,
		StripeSessionID: o.StripeSessionID,
		ProductID:       o.ProductID,
		Quantity:        o.Quantity,
		TotalPrice:      o.TotalPrice,
		Currency:        o.Currency,
		CustomerEmail:   o.CustomerEmail,
		CreatedAt:       o.CreatedAt,
	}
}
