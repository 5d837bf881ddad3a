package business

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"storefront_api/internal/payments"
	"storefront_api/internal/storefront/internal/models"
	"storefront_api/internal/storefront/internal/models/requests"
	"storefront_api/pkg/logger"
	"storefront_api/pkg/text"
)

const (
	successPath = "/success?session_id={CHECKOUT_SESSION_ID}"
	cancelPath  = "/products"

	MetadataProductID = "productId"
	MetadataQuantity  = "quantity"
)

type CheckoutOptions struct {
	Currency         string
	BaseURL          string
	AllowedCountries []string
	CollectPhone     bool
}

type CheckoutService struct {
	provider CheckoutProvider
	products ProductStore
	opts     CheckoutOptions
	log      logger.Logger
}

func NewCheckoutService(provider CheckoutProvider, products ProductStore, opts CheckoutOptions, log logger.Logger) *CheckoutService {
	opts.Currency = strings.ToLower(opts.Currency)
	return &CheckoutService{provider: provider, products: products, opts: opts, log: log}
}

// CreateSession validates the request, checks that the product is on sale and
// asks the provider for a hosted checkout page. The price is the one the
// storefront displayed. origin is the caller's Origin header and may be empty.
func (s *CheckoutService) CreateSession(ctx context.Context, req requests.CheckoutRequest, origin string) (*requests.CheckoutResponse, error) {
	productID, err := req.ProductID.Int64()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCheckout, err)
	}
	name := text.CleanTitle(req.ProductName, MaxNameLength)
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalidCheckout)
	}
	if !req.ProductPrice.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive, got %s", ErrInvalidCheckout, req.ProductPrice)
	}
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidCheckout)
	}

	unitAmount, err := ToMinorUnits(req.ProductPrice, s.opts.Currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCheckout, err)
	}
	if unitAmount < 1 {
		return nil, fmt.Errorf("%w: price %s rounds to zero", ErrInvalidCheckout, req.ProductPrice)
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product %d: %w", productID, err)
	}
	if product == nil || product.Status != models.ProductStatusActive {
		return nil, fmt.Errorf("%w: product %d is not for sale", ErrInvalidCheckout, productID)
	}

	base, err := s.baseURL(origin)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCheckout, err)
	}

	item := payments.LineItem{
		Name:       name,
		UnitAmount: unitAmount,
		Currency:   s.opts.Currency,
		Quantity:   int64(quantity),
	}
	if img := strings.TrimSpace(req.ProductImage); img != "" {
		item.Images = []string{img}
	}

	params := payments.CheckoutSessionParams{
		LineItems:  []payments.LineItem{item},
		SuccessURL: base + successPath,
		CancelURL:  base + cancelPath,
		Metadata: map[string]string{
			// verbatim, the webhook parses it back
			MetadataProductID: string(req.ProductID),
			MetadataQuantity:  strconv.Itoa(quantity),
		},
		AllowedCountries: s.opts.AllowedCountries,
		CollectPhone:     s.opts.CollectPhone,
	}

	session, err := s.provider.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if session == nil || session.ID == "" {
		return nil, fmt.Errorf("%w: empty session", ErrProvider)
	}

	s.log.Log("checkout session %s created for product %d (%d x %d %s)", session.ID, productID, quantity, unitAmount, s.opts.Currency)
	return &requests.CheckoutResponse{SessionID: session.ID, URL: session.URL}, nil
}

func (s *CheckoutService) baseURL(origin string) (string, error) {
	candidate := strings.TrimSpace(origin)
	if candidate == "" || candidate == "null" {
		candidate = s.opts.BaseURL
	}
	if candidate == "" {
		return "", errors.New("no origin and no base url configured")
	}
	u, err := url.Parse(candidate)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		if candidate != s.opts.BaseURL && s.opts.BaseURL != "" {
			return s.baseURL("")
		}
		return "", fmt.Errorf("bad base url %q", candidate)
	}
	return strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/"), nil
}
