package handlers

import (
	"net/http"

	"storefront_api/internal/storefront/internal/business"
	"storefront_api/internal/storefront/internal/models/requests"
	"storefront_api/pkg/logger"
)

// CheckoutErrorMessage is all the buyer ever sees when checkout fails.
const CheckoutErrorMessage = "Error processing checkout. Please contact us to complete your purchase."

type CheckoutHandler struct {
	service *business.CheckoutService
	log     logger.Logger
}

func NewCheckoutHandler(service *business.CheckoutService, log logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: service, log: log}
}

// CreateCheckout - POST /api/checkout
func (h *CheckoutHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req requests.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log.Warn("checkout: bad request body: %v", err)
		writeError(w, h.log, http.StatusInternalServerError, CheckoutErrorMessage)
		return
	}

	resp, err := h.service.CreateSession(r.Context(), req, r.Header.Get("Origin"))
	if err != nil {
		h.log.Error("checkout for product %q failed: %v", string(req.ProductID), err)
		writeError(w, h.log, http.StatusInternalServerError, CheckoutErrorMessage)
		return
	}

	writeJSON(w, h.log, http.StatusOK, resp)
}
