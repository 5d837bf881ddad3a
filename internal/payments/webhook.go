package payments

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

const (
	SignatureHeader  = "Stripe-Signature"
	DefaultTolerance = 300 * time.Second
)

var (
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrNoSignature      = fmt.Errorf("%w: missing %s header", ErrInvalidSignature, SignatureHeader)
	ErrInvalidHeader    = fmt.Errorf("%w: malformed %s header", ErrInvalidSignature, SignatureHeader)
	ErrNoValidSignature = fmt.Errorf("%w: no signature matches the payload", ErrInvalidSignature)
	ErrTooOld           = fmt.Errorf("%w: timestamp outside the tolerance zone", ErrInvalidSignature)
	ErrInvalidPayload   = errors.New("webhook payload is not a valid event")
)

// WebhookVerifier authenticates deliveries signed with the shared endpoint
// secret. The payload must be the raw request body.
type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewWebhookVerifier(secret string, tolerance time.Duration) *WebhookVerifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &WebhookVerifier{secret: secret, tolerance: tolerance}
}

// ConstructEvent verifies the signature and only then decodes the payload.
// Events pinned to another API version are accepted, only the checkout
// session fields we read matter.
func (v *WebhookVerifier) ConstructEvent(payload []byte, header string) (*Event, error) {
	if err := v.Verify(payload, header); err != nil {
		return nil, err
	}

	var raw stripe.Event
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	event := &Event{
		ID:         raw.ID,
		Type:       string(raw.Type),
		Created:    raw.Created,
		Livemode:   raw.Livemode,
		APIVersion: raw.APIVersion,
	}
	if raw.Data != nil {
		event.Data.Object = raw.Data.Raw
	}
	if event.ID == "" || event.Type == "" {
		return nil, fmt.Errorf("%w: missing id or type", ErrInvalidPayload)
	}
	return event, nil
}

// Verify checks the signature header against payload. Timestamps too far in
// the future are refused as well as stale ones.
func (v *WebhookVerifier) Verify(payload []byte, header string) error {
	if v.secret == "" {
		return fmt.Errorf("%w: signing secret is not configured", ErrInvalidSignature)
	}
	if err := webhook.ValidatePayloadWithTolerance(payload, header, v.secret, v.tolerance); err != nil {
		if sigErr := signatureError(err); sigErr != nil {
			return sigErr
		}
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if signedAt, ok := signatureTimestamp(header); ok && time.Until(signedAt) > v.tolerance {
		return ErrTooOld
	}
	return nil
}

func signatureError(err error) error {
	switch {
	case errors.Is(err, webhook.ErrNotSigned):
		return ErrNoSignature
	case errors.Is(err, webhook.ErrInvalidHeader):
		return ErrInvalidHeader
	case errors.Is(err, webhook.ErrNoValidSignature):
		return ErrNoValidSignature
	case errors.Is(err, webhook.ErrTooOld):
		return ErrTooOld
	}
	return nil
}

func signatureTimestamp(header string) (time.Time, bool) {
	for _, pair := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || key != "t" {
			continue
		}
		unix, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(unix, 0), true
	}
	return time.Time{}, false
}

// SignatureHeaderValue builds a header value for payload as the provider
// would. Used by tests and local replay tooling.
func SignatureHeaderValue(payload []byte, secret string, t time.Time) string {
	sig := webhook.ComputeSignature(t, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", t.Unix(), hex.EncodeToString(sig))
}
