package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"storefront_api/internal/storefront/internal/models"
)

const uniqueViolation = "23505"

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) FindOrderBySession(ctx context.Context, sessionID string) (*models.Order, error) {
	query := `SELECT id, product_id, product_name, product_price, product_image, quantity, total_price, currency,
				customer_name, customer_email, customer_phone,
				shipping_line1, shipping_line2, shipping_city, shipping_state, shipping_postal_code, shipping_country,
				stripe_session_id, payment_intent_id, customer_id, status, created_at
			  FROM storefront.orders WHERE stripe_session_id = $1`

	var o models.Order
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&o.ID, &o.ProductID, &o.ProductName, &o.ProductPrice, &o.ProductImage, &o.Quantity, &o.TotalPrice, &o.Currency,
		&o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.ShippingAddress.Line1, &o.ShippingAddress.Line2, &o.ShippingAddress.City,
		&o.ShippingAddress.State, &o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&o.StripeSessionID, &o.PaymentIntentID, &o.CustomerID, &o.Status, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

// InsertOrder returns false when the session already has an order.
func (r *OrderRepository) InsertOrder(ctx context.Context, o *models.Order) (bool, error) {
	query := `INSERT INTO storefront.orders (
				id, product_id, product_name, product_price, product_image, quantity, total_price, currency,
				customer_name, customer_email, customer_phone,
				shipping_line1, shipping_line2, shipping_city, shipping_state, shipping_postal_code, shipping_country,
				stripe_session_id, payment_intent_id, customer_id, status, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
			  ON CONFLICT (stripe_session_id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		o.ID, o.ProductID, o.ProductName, o.ProductPrice, o.ProductImage, o.Quantity, o.TotalPrice, o.Currency,
		o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		o.ShippingAddress.Line1, o.ShippingAddress.Line2, o.ShippingAddress.City,
		o.ShippingAddress.State, o.ShippingAddress.PostalCode, o.ShippingAddress.Country,
		o.StripeSessionID, o.PaymentIntentID, o.CustomerID, string(o.Status), o.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert order: %w", err)
	}
	return affectedOne(res)
}
