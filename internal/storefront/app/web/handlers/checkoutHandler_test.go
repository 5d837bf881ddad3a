package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_api/internal/payments"
	"storefront_api/internal/storefront/internal/business"
	"storefront_api/internal/storefront/internal/models"
	"storefront_api/pkg/logger"
)

type providerFunc func(ctx context.Context, params payments.CheckoutSessionParams) (*payments.Session, error)

func (f providerFunc) CreateCheckoutSession(ctx context.Context, params payments.CheckoutSessionParams) (*payments.Session, error) {
	return f(ctx, params)
}

func newCheckoutHandler(provider providerFunc) *CheckoutHandler {
	log := logger.NewQuietLogger(&bytes.Buffer{}, "[checkout]")
	store := &memoryStore{products: map[int64]*models.Product{
		42: {ID: 42, Name: "Menorah", Stock: 3, TrackInventory: true, Status: models.ProductStatusActive},
	}}
	svc := business.NewCheckoutService(provider, store, business.CheckoutOptions{Currency: "usd", BaseURL: "https://shop.test"}, log)
	return NewCheckoutHandler(svc, log)
}

func postCheckout(h *CheckoutHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://www.shop.test")
	rec := httptest.NewRecorder()
	h.CreateCheckout(rec, req)
	return rec
}

func TestCreateCheckout_Success(t *testing.T) {
	var got payments.CheckoutSessionParams
	h := newCheckoutHandler(func(_ context.Context, params payments.CheckoutSessionParams) (*payments.Session, error) {
		got = params
		return &payments.Session{ID: "cs_test_9", URL: "https://checkout.stripe.com/c/pay/cs_test_9"}, nil
	})

	rec := postCheckout(h, `{"productId":42,"productName":"Menorah","productPrice":19.99,"productImage":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sessionId":"cs_test_9","url":"https://checkout.stripe.com/c/pay/cs_test_9"}`, rec.Body.String())

	assert.Equal(t, "42", got.Metadata["productId"])
	assert.Equal(t, int64(1999), got.LineItems[0].UnitAmount)
	assert.Empty(t, got.LineItems[0].Images)
	assert.Equal(t, "https://www.shop.test/products", got.CancelURL)
}

func TestCreateCheckout_StringProductID(t *testing.T) {
	var got payments.CheckoutSessionParams
	h := newCheckoutHandler(func(_ context.Context, params payments.CheckoutSessionParams) (*payments.Session, error) {
		got = params
		return &payments.Session{ID: "cs_1"}, nil
	})

	rec := postCheckout(h, `{"productId":"42","productName":"Menorah","productPrice":"19.99"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", got.Metadata["productId"])
}

func TestCreateCheckout_FailuresShowGenericMessage(t *testing.T) {
	called := false
	h := newCheckoutHandler(func(context.Context, payments.CheckoutSessionParams) (*payments.Session, error) {
		called = true
		return nil, errors.New("api key revoked")
	})

	bodies := []string{
		`{"productId":42,"productName":"","productPrice":19.99}`,
		`{"productId":42,"productName":"Menorah","productPrice":0}`,
		`{"productId":true}`,
		`not json`,
	}
	for _, body := range bodies {
		rec := postCheckout(h, body)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, body)
		assert.JSONEq(t, `{"error":"`+CheckoutErrorMessage+`"}`, rec.Body.String())
	}
	assert.False(t, called)

	rec := postCheckout(h, `{"productId":42,"productName":"Menorah","productPrice":19.99}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, called)
	assert.NotContains(t, rec.Body.String(), "revoked")
}
