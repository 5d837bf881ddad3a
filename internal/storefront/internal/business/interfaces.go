package business

import (
	"context"

	"storefront_api/internal/payments"
	"storefront_api/internal/storefront/internal/models"
)

// ProductStore returns (nil, nil) for a missing product.
type ProductStore interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	// CompareAndSwapStock writes next only while the row still holds expected.
	CompareAndSwapStock(ctx context.Context, id int64, expected, next int) (bool, error)
}

type CatalogStore interface {
	ProductStore
	ListActiveProducts(ctx context.Context, limit int) ([]*models.Product, error)
	ListProducts(ctx context.Context) ([]*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	UpdateProductDetails(ctx context.Context, product *models.Product) (bool, error)
	SetStock(ctx context.Context, id int64, stock int) (bool, error)
	DeleteProduct(ctx context.Context, id int64) (bool, error)
}

type OrderStore interface {
	FindOrderBySession(ctx context.Context, sessionID string) (*models.Order, error)
	// InsertOrder reports false when an order for the session already exists.
	InsertOrder(ctx context.Context, order *models.Order) (bool, error)
}

type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, params payments.CheckoutSessionParams) (*payments.Session, error)
}

type EventPublisher interface {
	PublishOrderCompleted(ctx context.Context, event models.CompletedOrderEvent) error
}
