package handlers

import (
	"net/http"

	"storefront_api/internal/storefront/internal/business"
	"storefront_api/internal/storefront/internal/models/requests"
	"storefront_api/pkg/logger"
)

// AdminHandler serves the catalog console. Routes are mounted behind the
// JWT and role middleware.
type AdminHandler struct {
	catalog *business.CatalogService
	log     logger.Logger
}

func NewAdminHandler(catalog *business.CatalogService, log logger.Logger) *AdminHandler {
	return &AdminHandler{catalog: catalog, log: log}
}

func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListAll(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, products)
}

func (h *AdminHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(r)
	if !ok {
		writeError(w, h.log, http.StatusBadRequest, "invalid product id")
		return
	}
	product, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, product)
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req requests.ProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, http.StatusBadRequest, "invalid request body")
		return
	}
	product, err := h.catalog.Create(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, h.log, http.StatusCreated, product)
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(r)
	if !ok {
		writeError(w, h.log, http.StatusBadRequest, "invalid product id")
		return
	}
	var req requests.ProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, http.StatusBadRequest, "invalid request body")
		return
	}
	product, err := h.catalog.Update(r.Context(), id, req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, product)
}

func (h *AdminHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(r)
	if !ok {
		writeError(w, h.log, http.StatusBadRequest, "invalid product id")
		return
	}
	var req requests.StockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.catalog.SetStock(r.Context(), id, req.Stock); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(r)
	if !ok {
		writeError(w, h.log, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := h.catalog.Delete(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) fail(w http.ResponseWriter, err error) {
	status := catalogStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error("admin: %v", err)
		writeError(w, h.log, status, "internal error")
		return
	}
	writeError(w, h.log, status, err.Error())
}
