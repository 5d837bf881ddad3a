package business

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront_api/internal/storefront/internal/models"
	"storefront_api/internal/storefront/internal/models/requests"
	"storefront_api/pkg/logger"
	"storefront_api/pkg/text"
)

const (
	MaxNameLength    = 250
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// CatalogService backs the public catalog and the admin console.
type CatalogService struct {
	store   CatalogStore
	timeout time.Duration
	log     logger.Logger
}

func NewCatalogService(store CatalogStore, timeout time.Duration, log logger.Logger) *CatalogService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CatalogService{store: store, timeout: timeout, log: log}
}

// ListAvailable returns active products that can still be bought, newest first.
func (s *CatalogService) ListAvailable(ctx context.Context, limit int) ([]*models.Product, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	products, err := s.store.ListActiveProducts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetPublished hides drafts from the storefront.
func (s *CatalogService) GetPublished(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.Status != models.ProductStatusActive {
		return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
	}
	return product, nil
}

func (s *CatalogService) Get(ctx context.Context, id int64) (*models.Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: id %d", ErrInvalidProduct, id)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	if product == nil {
		return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
	}
	return product, nil
}

func (s *CatalogService) ListAll(ctx context.Context) ([]*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *CatalogService) Create(ctx context.Context, req requests.ProductRequest) (*models.Product, error) {
	product, err := productFromRequest(req)
	if err != nil {
		return nil, err
	}
	if req.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	product.Stock = req.Stock

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	created, err := s.store.CreateProduct(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.log.Log("product %d created: %s", created.ID, created.Name)
	return created, nil
}

// Update rewrites the descriptive fields only. Stock is left to the
// reconciler and SetStock.
func (s *CatalogService) Update(ctx context.Context, id int64, req requests.ProductRequest) (*models.Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: id %d", ErrInvalidProduct, id)
	}
	product, err := productFromRequest(req)
	if err != nil {
		return nil, err
	}
	product.ID = id

	updateCtx, cancel := context.WithTimeout(ctx, s.timeout)
	found, err := s.store.UpdateProductDetails(updateCtx, product)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", id, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
	}
	s.log.Log("product %d updated", id)
	return s.Get(ctx, id)
}

func (s *CatalogService) SetStock(ctx context.Context, id int64, stock int) error {
	if id <= 0 {
		return fmt.Errorf("%w: id %d", ErrInvalidProduct, id)
	}
	if stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	found, err := s.store.SetStock(ctx, id, stock)
	if err != nil {
		return fmt.Errorf("failed to set stock of product %d: %w", id, err)
	}
	if !found {
		return fmt.Errorf("%w: id %d", ErrProductNotFound, id)
	}
	s.log.Log("product %d stock set to %d", id, stock)
	return nil
}

func (s *CatalogService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: id %d", ErrInvalidProduct, id)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	found, err := s.store.DeleteProduct(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	if !found {
		return fmt.Errorf("%w: id %d", ErrProductNotFound, id)
	}
	s.log.Log("product %d deleted", id)
	return nil
}

func productFromRequest(req requests.ProductRequest) (*models.Product, error) {
	name := text.CleanTitle(req.Name, MaxNameLength)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if !req.Price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	}
	status := req.Status
	if status == "" {
		status = models.ProductStatusDraft
	}
	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidProduct, status)
	}
	track := true
	if req.TrackInventory != nil {
		track = *req.TrackInventory
	}

	images := make([]string, 0, len(req.Images))
	for _, img := range req.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}

	return &models.Product{
		Name:           name,
		Description:    req.Description,
		Features:       req.Features,
		Price:          req.Price,
		TrackInventory: track,
		Status:         status,
		Images:         images,
		CategoryIDs:    nonNilIDs(req.CategoryIDs),
		TagIDs:         nonNilIDs(req.TagIDs),
	}, nil
}

func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
