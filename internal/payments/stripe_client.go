package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"golang.org/x/time/rate"

	"storefront_api/pkg/logger"
)

type LineItem struct {
	Name       string
	Images     []string
	UnitAmount int64
	Currency   string
	Quantity   int64
}

type CheckoutSessionParams struct {
	LineItems        []LineItem
	SuccessURL       string
	CancelURL        string
	Metadata         map[string]string
	AllowedCountries []string
	CollectPhone     bool
}

type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe api error (status=%d type=%s): %s", e.StatusCode, e.Type, e.Message)
}

// StripeClient creates checkout sessions through stripe-go with its own
// backend, so the API url, the http timeout and the key stay per instance.
type StripeClient struct {
	ApiURL   string
	sessions session.Client
	limiter  *rate.Limiter
	log      logger.Logger
}

func NewStripeClient(apiURL string, auth AuthEngine, timeout time.Duration, limiter *rate.Limiter, log logger.Logger) *StripeClient {
	apiURL = strings.TrimRight(apiURL, "/")
	if apiURL == "" {
		apiURL = stripe.APIURL
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(apiURL),
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		EnableTelemetry:   stripe.Bool(false),
		LeveledLogger:     &leveledLogger{log: log},
	})

	var key string
	if auth != nil {
		key = auth.GetApiKey()
	}

	return &StripeClient{
		ApiURL:   apiURL,
		sessions: session.Client{B: backend, Key: key},
		limiter:  limiter,
		log:      log,
	}
}

// CreateCheckoutSession asks the provider for a hosted payment page.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*Session, error) {
	if len(params.LineItems) == 0 {
		return nil, errors.New("checkout session needs at least one line item")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	created, err := c.sessions.New(sessionParams(ctx, params))
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			c.log.Warn("checkout session rejected in %v: %s", time.Since(start), stripeErr.Msg)
			return nil, &APIError{
				StatusCode: stripeErr.HTTPStatusCode,
				Type:       string(stripeErr.Type),
				Code:       string(stripeErr.Code),
				Message:    stripeErr.Msg,
			}
		}
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	if created == nil || created.ID == "" {
		return nil, errors.New("stripe returned a session without id")
	}

	c.log.Log("checkout session %s created in %v", created.ID, time.Since(start))
	return &Session{ID: created.ID, URL: created.URL}, nil
}

func sessionParams(ctx context.Context, params CheckoutSessionParams) *stripe.CheckoutSessionParams {
	out := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	out.Context = ctx
	if params.SuccessURL != "" {
		out.SuccessURL = stripe.String(params.SuccessURL)
	}
	if params.CancelURL != "" {
		out.CancelURL = stripe.String(params.CancelURL)
	}

	for _, item := range params.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if len(item.Images) > 0 {
			product.Images = stripe.StringSlice(item.Images)
		}
		out.LineItems = append(out.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(item.Currency),
				UnitAmount:  stripe.Int64(item.UnitAmount),
				ProductData: product,
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	for key, value := range params.Metadata {
		out.AddMetadata(key, value)
	}
	if len(params.AllowedCountries) > 0 {
		out.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(params.AllowedCountries),
		}
	}
	if params.CollectPhone {
		out.PhoneNumberCollection = &stripe.CheckoutSessionPhoneNumberCollectionParams{
			Enabled: stripe.Bool(true),
		}
	}
	return out
}

// leveledLogger routes stripe-go's own logging into the service logger.
type leveledLogger struct {
	log logger.Logger
}

func (l *leveledLogger) Debugf(string, ...interface{}) {}

func (l *leveledLogger) Infof(format string, v ...interface{}) {
	l.log.Log(format, v...)
}

func (l *leveledLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn(format, v...)
}

func (l *leveledLogger) Errorf(format string, v ...interface{}) {
	l.log.Error(format, v...)
}
