package business

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"storefront_api/internal/payments"
	"storefront_api/internal/storefront/internal/models"
	"storefront_api/metrics"
	"storefront_api/pkg/logger"
)

// Acknowledgment is the body returned to the provider.
type Acknowledgment struct {
	Received  bool   `json:"received"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Ignored   bool   `json:"-"`
	OrderID   string `json:"-"`
}

type Fulfiller interface {
	Fulfill(ctx context.Context, checkout *CompletedCheckout) (*FulfillmentResult, error)
}

// EventDispatcher routes verified events. Only completed checkouts have an
// effect, everything else is acknowledged and dropped.
// currency is used for sessions that arrive without one; the store only
// opens sessions in that currency.
type EventDispatcher struct {
	fulfiller Fulfiller
	currency  string
	log       logger.Logger
}

func NewEventDispatcher(fulfiller Fulfiller, currency string, log logger.Logger) *EventDispatcher {
	return &EventDispatcher{fulfiller: fulfiller, currency: strings.ToLower(strings.TrimSpace(currency)), log: log}
}

func (d *EventDispatcher) Dispatch(ctx context.Context, event *payments.Event) (*Acknowledgment, error) {
	if event.Type != payments.EventCheckoutSessionCompleted {
		d.log.Log("event %s of type %s ignored", event.ID, event.Type)
		metrics.RecordFulfillment(metrics.OutcomeIgnored)
		return &Acknowledgment{Received: true, Ignored: true}, nil
	}

	checkout, err := ParseCompletedCheckout(event, d.currency)
	if err != nil {
		metrics.RecordFulfillment(metrics.OutcomeRejected)
		return nil, err
	}
	d.log.Log("event %s: session %s, product %d x %d", event.ID, checkout.SessionID, checkout.ProductID, checkout.Quantity)

	result, err := d.fulfiller.Fulfill(ctx, checkout)
	if err != nil {
		if IsRetryable(err) {
			metrics.RecordFulfillment(metrics.OutcomeFailed)
		} else {
			metrics.RecordFulfillment(metrics.OutcomeRejected)
		}
		return nil, err
	}

	ack := &Acknowledgment{Received: true, Duplicate: result.Duplicate}
	if result.Order != nil {
		ack.OrderID = result.Order.ID.String()
	}
	if result.Duplicate {
		metrics.RecordFulfillment(metrics.OutcomeDuplicate)
	} else {
		metrics.RecordFulfillment(metrics.OutcomeCreated)
	}
	return ack, nil
}

// ParseCompletedCheckout validates the session carried by a completed event.
// A blank session currency falls back to defaultCurrency, a non-blank one
// must be a known ISO 4217 code.
func ParseCompletedCheckout(event *payments.Event, defaultCurrency string) (*CompletedCheckout, error) {
	session, err := event.CheckoutSession()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if session.ID == "" {
		return nil, fmt.Errorf("%w: session without id", ErrMalformedEvent)
	}

	rawID := strings.TrimSpace(session.Metadata[MetadataProductID])
	if rawID == "" {
		return nil, fmt.Errorf("%w: no product id in session %s metadata", ErrMalformedEvent, session.ID)
	}
	productID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || productID <= 0 {
		return nil, fmt.Errorf("%w: product id %q in session %s", ErrMalformedEvent, rawID, session.ID)
	}

	quantity := 1
	if raw := strings.TrimSpace(session.Metadata[MetadataQuantity]); raw != "" {
		quantity, err = strconv.Atoi(raw)
		if err != nil || quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity %q in session %s", ErrMalformedEvent, raw, session.ID)
		}
	}

	if session.AmountTotal < 0 {
		return nil, fmt.Errorf("%w: negative amount_total in session %s", ErrMalformedEvent, session.ID)
	}
	currencyCode := strings.ToLower(strings.TrimSpace(session.Currency))
	if currencyCode == "" {
		currencyCode = strings.ToLower(strings.TrimSpace(defaultCurrency))
	}
	if currencyCode == "" {
		return nil, fmt.Errorf("%w: session %s has no currency", ErrMalformedEvent, session.ID)
	}
	total, err := FromMinorUnits(session.AmountTotal, currencyCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	checkout := &CompletedCheckout{
		EventID:         event.ID,
		SessionID:       session.ID,
		ProductID:       productID,
		Quantity:        quantity,
		Total:           total,
		Currency:        currencyCode,
		PaymentIntentID: session.PaymentIntent,
		CustomerID:      session.Customer,
	}

	var address *payments.Address
	if shipping := session.Shipping(); shipping != nil {
		checkout.CustomerName = shipping.Name
		address = shipping.Address
	}
	if details := session.CustomerDetails; details != nil {
		if details.Name != "" {
			checkout.CustomerName = details.Name
		}
		checkout.CustomerEmail = details.Email
		checkout.CustomerPhone = details.Phone
		if address == nil {
			address = details.Address
		}
	}
	if address != nil {
		checkout.Shipping = models.ShippingAddress{
			Line1:      address.Line1,
			Line2:      address.Line2,
			City:       address.City,
			State:      address.State,
			PostalCode: address.PostalCode,
			Country:    address.Country,
		}
	}
	return checkout, nil
}

