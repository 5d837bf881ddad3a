package payments

// AuthEngine supplies the secret key the Stripe backend sends as a bearer token.
type AuthEngine interface {
	GetApiKey() string
}

type BearerAuth struct {
	apiKey string
}

func (b *BearerAuth) GetApiKey() string {
	return b.apiKey
}

// NewBearerAuth returns nil for an empty key so callers can skip auth.
func NewBearerAuth(apiKey string) AuthEngine {
	if apiKey == "" {
		return nil
	}
	return &BearerAuth{apiKey: apiKey}
}
