package payments

import (
	"encoding/json"
	"fmt"
)

const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
)

// Event is the envelope of every webhook delivery.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Created    int64     `json:"created"`
	Livemode   bool      `json:"livemode"`
	APIVersion string    `json:"api_version"`
	Data       EventData `json:"data"`
}

type EventData struct {
	Object json.RawMessage `json:"object"`
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type CustomerDetails struct {
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Phone   string   `json:"phone"`
	Address *Address `json:"address"`
}

type ShippingDetails struct {
	Name    string   `json:"name"`
	Address *Address `json:"address"`
}

type CollectedInformation struct {
	ShippingDetails *ShippingDetails `json:"shipping_details"`
}

// CheckoutSession is the subset of the provider's session object the
// fulfillment path reads.
type CheckoutSession struct {
	ID                   string                `json:"id"`
	Object               string                `json:"object"`
	AmountTotal          int64                 `json:"amount_total"`
	Currency             string                `json:"currency"`
	PaymentStatus        string                `json:"payment_status"`
	PaymentIntent        string                `json:"payment_intent"`
	Customer             string                `json:"customer"`
	CustomerDetails      *CustomerDetails      `json:"customer_details"`
	ShippingDetails      *ShippingDetails      `json:"shipping_details"`
	CollectedInformation *CollectedInformation `json:"collected_information"`
	Metadata             map[string]string     `json:"metadata"`
}

// Shipping returns the shipping details from whichever field the API version
// populated.
func (s *CheckoutSession) Shipping() *ShippingDetails {
	if s.ShippingDetails != nil {
		return s.ShippingDetails
	}
	if s.CollectedInformation != nil {
		return s.CollectedInformation.ShippingDetails
	}
	return nil
}

// CheckoutSession decodes data.object as a checkout session.
func (e *Event) CheckoutSession() (*CheckoutSession, error) {
	if len(e.Data.Object) == 0 {
		return nil, fmt.Errorf("event %s has no data.object", e.ID)
	}
	var session CheckoutSession
	if err := json.Unmarshal(e.Data.Object, &session); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	return &session, nil
}
