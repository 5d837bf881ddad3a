package business

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_api/internal/payments"
	"storefront_api/internal/storefront/internal/models"
	"storefront_api/internal/storefront/internal/models/requests"
)

func newCheckout(baseURL string) (*CheckoutService, *fakeProvider) {
	svc, provider, _ := newCheckoutWithProducts(baseURL, product42())
	return svc, provider
}

func newCheckoutWithProducts(baseURL string, products ...*models.Product) (*CheckoutService, *fakeProvider, *memoryProducts) {
	provider := &fakeProvider{createFn: func(context.Context, payments.CheckoutSessionParams) (*payments.Session, error) {
		return &payments.Session{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
	}}
	store := newMemoryProducts(products...)
	svc := NewCheckoutService(provider, store, CheckoutOptions{
		Currency:         "USD",
		BaseURL:          baseURL,
		AllowedCountries: []string{"US"},
	}, testLogger(&bytes.Buffer{}))
	return svc, provider, store
}

func validRequest() requests.CheckoutRequest {
	return requests.CheckoutRequest{
		ProductID:    "42",
		ProductName:  "Olive Wood Menorah",
		ProductPrice: decimal.RequireFromString("19.99"),
		ProductImage: "https://cdn.test/menorah.jpg",
	}
}

func TestCreateSession_BuildsProviderParams(t *testing.T) {
	svc, provider := newCheckout("https://fallback.test")

	resp, err := svc.CreateSession(context.Background(), validRequest(), "https://shop.test")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", resp.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", resp.URL)

	require.Len(t, provider.calls, 1)
	params := provider.calls[0]
	require.Len(t, params.LineItems, 1)
	item := params.LineItems[0]
	assert.Equal(t, int64(1999), item.UnitAmount)
	assert.Equal(t, "usd", item.Currency)
	assert.Equal(t, int64(1), item.Quantity)
	assert.Equal(t, []string{"https://cdn.test/menorah.jpg"}, item.Images)
	assert.Equal(t, "42", params.Metadata["productId"])
	assert.Equal(t, "1", params.Metadata["quantity"])
	assert.Equal(t, "https://shop.test/success?session_id={CHECKOUT_SESSION_ID}", params.SuccessURL)
	assert.Equal(t, "https://shop.test/products", params.CancelURL)
	assert.Equal(t, []string{"US"}, params.AllowedCountries)
}

func TestCreateSession_FallsBackToBaseURL(t *testing.T) {
	for _, origin := range []string{"", "null", "not a url"} {
		svc, provider := newCheckout("https://fallback.test/")
		_, err := svc.CreateSession(context.Background(), validRequest(), origin)
		require.NoError(t, err, origin)
		assert.Equal(t, "https://fallback.test/products", provider.calls[0].CancelURL)
	}

	svc, provider := newCheckout("")
	_, err := svc.CreateSession(context.Background(), validRequest(), "")
	assert.ErrorIs(t, err, ErrInvalidCheckout)
	assert.Empty(t, provider.calls)
}

func TestCreateSession_OmitsBlankImage(t *testing.T) {
	svc, provider := newCheckout("https://shop.test")
	req := validRequest()
	req.ProductImage = "   "

	_, err := svc.CreateSession(context.Background(), req, "")
	require.NoError(t, err)
	assert.Empty(t, provider.calls[0].LineItems[0].Images)
}

func TestCreateSession_ValidationNeverCallsProvider(t *testing.T) {
	cases := map[string]func(r *requests.CheckoutRequest){
		"empty name":        func(r *requests.CheckoutRequest) { r.ProductName = " " },
		"missing id":        func(r *requests.CheckoutRequest) { r.ProductID = "" },
		"zero id":           func(r *requests.CheckoutRequest) { r.ProductID = "0" },
		"text id":           func(r *requests.CheckoutRequest) { r.ProductID = "menorah" },
		"zero price":        func(r *requests.CheckoutRequest) { r.ProductPrice = decimal.Zero },
		"negative price":    func(r *requests.CheckoutRequest) { r.ProductPrice = decimal.NewFromInt(-5) },
		"sub-cent price":    func(r *requests.CheckoutRequest) { r.ProductPrice = decimal.RequireFromString("0.004") },
		"negative quantity": func(r *requests.CheckoutRequest) { r.Quantity = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			svc, provider := newCheckout("https://shop.test")
			req := validRequest()
			mutate(&req)

			_, err := svc.CreateSession(context.Background(), req, "")
			assert.ErrorIs(t, err, ErrInvalidCheckout)
			assert.Empty(t, provider.calls)
		})
	}
}

func TestCreateSession_ProviderFailure(t *testing.T) {
	svc, provider := newCheckout("https://shop.test")
	provider.createFn = func(context.Context, payments.CheckoutSessionParams) (*payments.Session, error) {
		return nil, errors.New("card network unavailable")
	}

	resp, err := svc.CreateSession(context.Background(), validRequest(), "")
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrProvider)
}

func TestCreateSession_RoundsHalfAwayFromZero(t *testing.T) {
	svc, provider := newCheckout("https://shop.test")
	req := validRequest()
	req.ProductPrice = decimal.RequireFromString("10.005")

	_, err := svc.CreateSession(context.Background(), req, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1001), provider.calls[0].LineItems[0].UnitAmount)
}

func TestCreateSession_ProductMustBeOnSale(t *testing.T) {
	draft := product42()
	draft.Status = models.ProductStatusDraft

	cases := map[string][]*models.Product{
		"unknown product": nil,
		"draft product":   {draft},
	}
	for name, products := range cases {
		t.Run(name, func(t *testing.T) {
			svc, provider, _ := newCheckoutWithProducts("https://shop.test", products...)
			_, err := svc.CreateSession(context.Background(), validRequest(), "")
			assert.ErrorIs(t, err, ErrInvalidCheckout)
			assert.Empty(t, provider.calls)
		})
	}
}

func TestCreateSession_StoreFailure(t *testing.T) {
	svc, provider, store := newCheckoutWithProducts("https://shop.test", product42())
	store.getErr = errors.New("connection refused")

	_, err := svc.CreateSession(context.Background(), validRequest(), "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCheckout)
	assert.Empty(t, provider.calls)
}

func TestCreateSession_SoldOutProductStillSells(t *testing.T) {
	soldOut := product42()
	soldOut.Stock = 0
	svc, provider, _ := newCheckoutWithProducts("https://shop.test", soldOut)

	_, err := svc.CreateSession(context.Background(), validRequest(), "")
	require.NoError(t, err)
	assert.Len(t, provider.calls, 1)
}
