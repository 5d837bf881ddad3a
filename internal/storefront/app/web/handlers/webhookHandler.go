package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"storefront_api/internal/payments"
	"storefront_api/internal/storefront/internal/business"
	"storefront_api/metrics"
	"storefront_api/pkg/logger"
)

const defaultMaxWebhookBytes = 64 << 10

type EventDispatcher interface {
	Dispatch(ctx context.Context, event *payments.Event) (*business.Acknowledgment, error)
}

type WebhookHandler struct {
	verifier   *payments.WebhookVerifier
	dispatcher EventDispatcher
	maxBytes   int64
	log        logger.Logger
}

func NewWebhookHandler(verifier *payments.WebhookVerifier, dispatcher EventDispatcher, maxBytes int64, log logger.Logger) *WebhookHandler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxWebhookBytes
	}
	return &WebhookHandler{verifier: verifier, dispatcher: dispatcher, maxBytes: maxBytes, log: log}
}

// HandleStripe - POST /webhooks/stripe. The body is read raw: the signature
// covers the exact bytes, so it is never decoded before verification.
func (h *WebhookHandler) HandleStripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		h.log.Warn("webhook: failed to read body: %v", err)
		h.respondRejected(w, "Webhook Error: unreadable body")
		return
	}

	event, err := h.verifier.ConstructEvent(payload, r.Header.Get(payments.SignatureHeader))
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			metrics.RecordSignatureFailure()
		}
		h.log.Warn("webhook signature verification failed: %v", err)
		h.respondRejected(w, "Webhook Error: "+err.Error())
		return
	}

	ack, err := h.dispatcher.Dispatch(r.Context(), event)
	if err != nil {
		if !business.IsRetryable(err) {
			h.log.Warn("webhook event %s rejected: %v", event.ID, err)
			h.respondRejected(w, err.Error())
			return
		}
		h.log.Error("webhook event %s failed, provider will retry: %v", event.ID, err)
		h.respondRetry(w)
		return
	}

	h.respondOK(w, ack)
}

func (h *WebhookHandler) respondOK(w http.ResponseWriter, ack *business.Acknowledgment) {
	writeJSON(w, h.log, http.StatusOK, ack)
}

func (h *WebhookHandler) respondRejected(w http.ResponseWriter, message string) {
	writeError(w, h.log, http.StatusBadRequest, message)
}

func (h *WebhookHandler) respondRetry(w http.ResponseWriter) {
	writeError(w, h.log, http.StatusInternalServerError, "Error processing event")
}
