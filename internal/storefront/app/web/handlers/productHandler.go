package handlers

import (
	"net/http"
	"strconv"

	"storefront_api/internal/storefront/internal/business"
	"storefront_api/pkg/logger"
)

type ProductHandler struct {
	catalog *business.CatalogService
	log     logger.Logger
}

func NewProductHandler(catalog *business.CatalogService, log logger.Logger) *ProductHandler {
	return &ProductHandler{catalog: catalog, log: log}
}

// ListProducts - GET /api/products?limit=N
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, h.log, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}

	products, err := h.catalog.ListAvailable(r.Context(), limit)
	if err != nil {
		h.log.Error("list products: %v", err)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	writeJSON(w, h.log, http.StatusOK, products)
}

// GetProduct - GET /api/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(r)
	if !ok {
		writeError(w, h.log, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.catalog.GetPublished(r.Context(), id)
	if err != nil {
		status := catalogStatus(err)
		if status == http.StatusInternalServerError {
			h.log.Error("get product %d: %v", id, err)
		}
		writeError(w, h.log, status, http.StatusText(status))
		return
	}
	writeJSON(w, h.log, http.StatusOK, product)
}
