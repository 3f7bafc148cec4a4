package handler

import (
	"net/http"

	"go.uber.org/zap"
)

// ListProducts возвращает товары витрины, при необходимости отфильтрованные по категории.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, err := queryInt64(r, "category")
	if err != nil {
		h.writeError(w, err, "list products")
		return
	}
	page, err := pageFrom(r)
	if err != nil {
		h.writeError(w, err, "list products")
		return
	}

	products, err := h.service.ListProducts(r.Context(), categoryID, page)
	if err != nil {
		h.writeError(w, err, "list products error")
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetProduct возвращает карточку товара.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, err, "get product")
		return
	}

	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "get product error", zap.Int64("productID", id))
		return
	}

	h.writeJSON(w, http.StatusOK, toProductResponse(*p))
}

// ListCategories возвращает категории каталога.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, err, "list categories error")
		return
	}

	resp := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, categoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// ListPaymentMethods возвращает способы пополнения баланса.
func (h *Handler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.service.ListPaymentMethods(r.Context())
	if err != nil {
		h.writeError(w, err, "list payment methods error")
		return
	}

	resp := make([]paymentMethodResponse, 0, len(methods))
	for _, m := range methods {
		resp = append(resp, toPaymentMethodResponse(m))
	}
	h.writeJSON(w, http.StatusOK, resp)
}
