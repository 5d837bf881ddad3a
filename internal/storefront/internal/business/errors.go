package business

import (
	"errors"

	"storefront_api/internal/payments"
)

var (
	ErrInvalidSignature = payments.ErrInvalidSignature
	ErrMalformedEvent   = errors.New("malformed event")
	ErrInvalidCheckout  = errors.New("invalid checkout request")
	ErrProductNotFound  = errors.New("product not found")
	ErrStockContention  = errors.New("stock update lost too many races")
	ErrProvider         = errors.New("payment provider error")
	ErrLedgerWrite      = errors.New("order ledger write failed")
	ErrInvalidProduct   = errors.New("invalid product")
)

// IsRetryable reports whether the provider should redeliver the event.
// Anything not known to be permanent counts as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrInvalidSignature),
		errors.Is(err, payments.ErrInvalidPayload),
		errors.Is(err, ErrMalformedEvent),
		errors.Is(err, ErrInvalidCheckout),
		errors.Is(err, ErrInvalidProduct):
		return false
	}
	return true
}
