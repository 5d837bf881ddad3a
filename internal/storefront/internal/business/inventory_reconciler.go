package business

import (
	"context"
	"fmt"
	"time"

	"storefront_api/internal/storefront/internal/models"
	"storefront_api/metrics"
	"storefront_api/pkg/logger"
)

// StockAdjustment describes what the reconciler did to one product.
type StockAdjustment struct {
	Product       *models.Product
	Tracked       bool
	PreviousStock int
	NewStock      int
	Attempts      int
}

type ReconcilerOptions struct {
	MaxAttempts  int
	Backoff      time.Duration
	StoreTimeout time.Duration
}

// InventoryReconciler decrements stock with compare-and-swap so concurrent
// deliveries for the same product never overwrite each other.
type InventoryReconciler struct {
	store ProductStore
	opts  ReconcilerOptions
	log   logger.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

func NewInventoryReconciler(store ProductStore, opts ReconcilerOptions, log logger.Logger) *InventoryReconciler {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	return &InventoryReconciler{store: store, opts: opts, log: log, sleep: sleepContext}
}

func (r *InventoryReconciler) Reconcile(ctx context.Context, productID int64, quantity int) (*StockAdjustment, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity %d", ErrMalformedEvent, quantity)
	}

	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		product, err := r.getProduct(ctx, productID)
		if err != nil {
			return nil, err
		}

		adj := &StockAdjustment{
			Product:       product,
			Tracked:       product.TrackInventory,
			PreviousStock: product.Stock,
			NewStock:      product.Stock,
			Attempts:      attempt,
		}
		if !product.TrackInventory {
			return adj, nil
		}
		if product.Stock <= 0 {
			// oversold, nothing to decrement
			r.log.Warn("product %d already at stock %d, sale of %d not reflected", productID, product.Stock, quantity)
			adj.NewStock = product.Stock
			return adj, nil
		}

		next := product.Stock - quantity
		if next < 0 {
			r.log.Warn("product %d oversold: stock %d, requested %d", productID, product.Stock, quantity)
			next = 0
		}

		swapped, err := r.swap(ctx, productID, product.Stock, next)
		if err != nil {
			return nil, err
		}
		if swapped {
			adj.NewStock = next
			return adj, nil
		}

		metrics.RecordStockRetry()
		r.log.Log("stock of product %d changed under us (attempt %d/%d)", productID, attempt, r.opts.MaxAttempts)
		if attempt < r.opts.MaxAttempts {
			if err := r.sleep(ctx, r.opts.Backoff*time.Duration(attempt)); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrStockContention, err)
			}
		}
	}

	return nil, fmt.Errorf("%w: product %d after %d attempts", ErrStockContention, productID, r.opts.MaxAttempts)
}

func (r *InventoryReconciler) getProduct(ctx context.Context, id int64) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.StoreTimeout)
	defer cancel()

	product, err := r.store.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load product %d: %w", id, err)
	}
	if product == nil {
		return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
	}
	return product, nil
}

func (r *InventoryReconciler) swap(ctx context.Context, id int64, expected, next int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.StoreTimeout)
	defer cancel()

	swapped, err := r.store.CompareAndSwapStock(ctx, id, expected, next)
	if err != nil {
		return false, fmt.Errorf("failed to update stock of product %d: %w", id, err)
	}
	return swapped, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
