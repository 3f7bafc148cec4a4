package handler

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ErenYea9er69/MarketShop-sub000/internal/model"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/service"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/validation"
)

type resolveTopUpRequest struct {
	TransactionID int64           `json:"transactionId" validate:"required,gt=0"`
	UserID        int64           `json:"userId" validate:"required,gt=0"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	Action        string          `json:"action" validate:"required,oneof=approve reject"`
}

type resolveTopUpResponse struct {
	Transaction transactionResponse `json:"transaction"`
	NewBalance  decimal.Decimal     `json:"newBalance"`
}

// ResolveTopUp подтверждает или отклоняет заявку на пополнение.
func (h *Handler) ResolveTopUp(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req resolveTopUpRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err, "decode resolve request")
		return
	}

	tx, newBalance, err := h.service.ResolveTopUp(r.Context(), service.TopUpDecision{
		TransactionID: req.TransactionID,
		UserID:        req.UserID,
		Amount:        req.Amount,
		Action:        req.Action,
	})
	if err != nil {
		h.writeError(w, err, "resolve top-up error",
			zap.Int64("adminID", adminID), zap.Int64("transactionID", req.TransactionID))
		return
	}

	h.logger.Info("top-up resolved",
		zap.Int64("adminID", adminID),
		zap.Int64("transactionID", tx.ID),
		zap.String("status", string(tx.Status)),
	)

	h.writeJSON(w, http.StatusOK, resolveTopUpResponse{
		Transaction: toTransactionResponse(*tx),
		NewBalance:  newBalance,
	})
}

// ListAllTransactions возвращает журнал операций с фильтрами status, type и userId.
func (h *Handler) ListAllTransactions(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.writeError(w, err, "list all transactions")
		return
	}
	userID, err := queryInt64(r, "userId")
	if err != nil {
		h.writeError(w, err, "list all transactions")
		return
	}

	txs, err := h.service.ListAllTransactions(r.Context(), service.TransactionQuery{
		UserID: userID,
		Status: r.URL.Query().Get("status"),
		Type:   r.URL.Query().Get("type"),
		Page:   page,
	})
	if err != nil {
		h.writeError(w, err, "list all transactions error")
		return
	}

	h.writeJSON(w, http.StatusOK, toTransactionResponses(txs))
}

// ListUsers возвращает пользователей.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.writeError(w, err, "list users")
		return
	}

	users, err := h.service.ListUsers(r.Context(), page)
	if err != nil {
		h.writeError(w, err, "list users error")
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=CLIENT ADMIN"`
}

// SetUserRole меняет роль пользователя.
func (h *Handler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	userID, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, err, "set role")
		return
	}

	var req roleRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err, "decode role request")
		return
	}

	if err := h.service.SetUserRole(r.Context(), adminID, userID, model.Role(req.Role)); err != nil {
		h.writeError(w, err, "set role error", zap.Int64("userID", userID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type categoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Slug string `json:"slug" validate:"max=100"`
}

// CreateCategory создаёт категорию.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err, "decode category request")
		return
	}

	c, err := h.service.CreateCategory(r.Context(), req.Name, req.Slug)
	if err != nil {
		h.writeError(w, err, "create category error")
		return
	}

	h.writeJSON(w, http.StatusCreated, categoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug})
}

type productRequest struct {
	CategoryID  *int64          `json:"categoryId" validate:"omitempty,gt=0"`
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=5000"`
	Price       decimal.Decimal `json:"price" validate:"gt=0"`
	Stock       int             `json:"stock" validate:"min=0"`
	Active      *bool           `json:"active"`
	ImageURL    string          `json:"imageUrl" validate:"omitempty,url,max=2048"`
}

func (p productRequest) input() service.ProductInput {
	active := true
	if p.Active != nil {
		active = *p.Active
	}
	return service.ProductInput{
		CategoryID:  p.CategoryID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Active:      active,
		ImageURL:    p.ImageURL,
	}
}

// CreateProduct создаёт товар.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err, "decode product request")
		return
	}

	p, err := h.service.CreateProduct(r.Context(), req.input())
	if err != nil {
		h.writeError(w, err, "create product error")
		return
	}

	h.writeJSON(w, http.StatusCreated, toProductResponse(*p))
}

// UpdateProduct обновляет товар.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, err, "update product")
		return
	}

	var req productRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err, "decode product request")
		return
	}

	p, err := h.service.UpdateProduct(r.Context(), id, req.input())
	if err != nil {
		h.writeError(w, err, "update product error", zap.Int64("productID", id))
		return
	}

	h.writeJSON(w, http.StatusOK, toProductResponse(*p))
}

// ListProductKeys возвращает пул ключей товара.
func (h *Handler) ListProductKeys(w http.ResponseWriter, r *http.Request) {
	productID, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, err, "list product keys")
		return
	}

	keys, err := h.service.ListProductKeys(r.Context(), productID)
	if err != nil {
		h.writeError(w, err, "list product keys error", zap.Int64("productID", productID))
		return
	}

	resp := make([]productKeyResponse, 0, len(keys))
	for _, k := range keys {
		resp = append(resp, productKeyResponse{
			ID:        k.ID,
			Value:     k.Value,
			IsUsed:    k.IsUsed,
			UsedAt:    k.UsedAt,
			OrderID:   k.OrderID,
			CreatedAt: k.CreatedAt,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type addKeysRequest struct {
	Keys []string `json:"keys"`
	Text string   `json:"text"`
}

type keysResponse struct {
	Inserted int `json:"inserted,omitempty"`
	Stock    int `json:"stock"`
}

// AddProductKeys добавляет ключи к товару. Ключи передаются списком keys
// или текстом text, по одному ключу в строке.
func (h *Handler) AddProductKeys(w http.ResponseWriter, r *http.Request) {
	productID, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, err, "add product keys")
		return
	}

	var req addKeysRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err, "decode keys request")
		return
	}

	values := append(req.Keys, strings.Split(req.Text, "\n")...)
	inserted, stock, err := h.service.AddProductKeys(r.Context(), productID, values)
	if err != nil {
		h.writeError(w, err, "add product keys error", zap.Int64("productID", productID))
		return
	}

	h.writeJSON(w, http.StatusOK, keysResponse{Inserted: inserted, Stock: stock})
}

// DeleteProductKey удаляет непроданный ключ.
func (h *Handler) DeleteProductKey(w http.ResponseWriter, r *http.Request) {
	productID, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, err, "delete product key")
		return
	}
	keyID, err := idParam(r, "keyId")
	if err != nil {
		h.writeError(w, err, "delete product key")
		return
	}

	stock, err := h.service.DeleteProductKey(r.Context(), productID, keyID)
	if err != nil {
		h.writeError(w, err, "delete product key error", zap.Int64("productID", productID), zap.Int64("keyID", keyID))
		return
	}

	h.writeJSON(w, http.StatusOK, keysResponse{Stock: stock})
}

type giftCardRequest struct {
	Code   string          `json:"code" validate:"max=64"`
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
}

// CreateGiftCard создаёт подарочную карту.
func (h *Handler) CreateGiftCard(w http.ResponseWriter, r *http.Request) {
	var req giftCardRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err, "decode gift card request")
		return
	}

	card, err := h.service.CreateGiftCard(r.Context(), req.Code, req.Amount)
	if err != nil {
		h.writeError(w, err, "create gift card error")
		return
	}

	h.writeJSON(w, http.StatusCreated, toGiftCardResponse(*card))
}

// ListGiftCards возвращает подарочные карты.
func (h *Handler) ListGiftCards(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.writeError(w, err, "list gift cards")
		return
	}

	cards, err := h.service.ListGiftCards(r.Context(), page)
	if err != nil {
		h.writeError(w, err, "list gift cards error")
		return
	}

	resp := make([]giftCardResponse, 0, len(cards))
	for _, c := range cards {
		resp = append(resp, toGiftCardResponse(c))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type paymentMethodRequest struct {
	Code         string `json:"code" validate:"required,max=32"`
	Name         string `json:"name" validate:"required,max=100"`
	Instructions string `json:"instructions" validate:"max=2000"`
	Active       *bool  `json:"active"`
}

// CreatePaymentMethod добавляет способ пополнения баланса.
func (h *Handler) CreatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req paymentMethodRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err, "decode payment method request")
		return
	}

	m := model.PaymentMethod{
		Code:         req.Code,
		Name:         req.Name,
		Instructions: req.Instructions,
		Active:       req.Active == nil || *req.Active,
	}

	created, err := h.service.CreatePaymentMethod(r.Context(), m)
	if err != nil {
		h.writeError(w, err, "create payment method error")
		return
	}

	h.writeJSON(w, http.StatusCreated, toPaymentMethodResponse(*created))
}
