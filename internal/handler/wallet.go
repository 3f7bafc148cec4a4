package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ErenYea9er69/MarketShop-sub000/internal/service"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/validation"
)

type balanceResponse struct {
	Balance  decimal.Decimal `json:"balance"`
	Cashback decimal.Decimal `json:"cashback"`
}

// GetBalance возвращает баланс текущего пользователя.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	balance, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		h.writeError(w, err, "get balance error", zap.Int64("userID", userID))
		return
	}

	h.writeJSON(w, http.StatusOK, balanceResponse{Balance: balance.Current, Cashback: balance.Cashback})
}

type checkoutItemRequest struct {
	ProductID int64           `json:"productId" validate:"required,gt=0"`
	Quantity  int             `json:"quantity" validate:"required,gt=0,max=100"`
	Price     decimal.Decimal `json:"price"`
}

type checkoutRequest struct {
	Items []checkoutItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
	Total decimal.Decimal       `json:"total" validate:"gt=0"`
}

type checkoutResponse struct {
	OrderID    int64           `json:"orderId"`
	NewBalance decimal.Decimal `json:"newBalance"`
	Cashback   decimal.Decimal `json:"cashback"`
	Order      orderResponse   `json:"order"`
}

// Checkout оформляет заказ с оплатой с баланса.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err, "decode checkout request")
		return
	}

	items := make([]service.CheckoutItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, service.CheckoutItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	res, err := h.service.Checkout(r.Context(), userID, service.CheckoutInput{Items: items, Total: req.Total})
	if err != nil {
		h.writeError(w, err, "checkout error", zap.Int64("userID", userID), zap.String("total", req.Total.String()))
		return
	}

	h.writeJSON(w, http.StatusOK, checkoutResponse{
		OrderID:    res.OrderID,
		NewBalance: res.NewBalance,
		Cashback:   res.Cashback,
		Order:      toOrderResponse(*res.Order),
	})
}

// ListOrders возвращает заказы текущего пользователя.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	page, err := pageFrom(r)
	if err != nil {
		h.writeError(w, err, "list orders")
		return
	}

	orders, err := h.service.ListOrders(r.Context(), userID, page)
	if err != nil {
		h.writeError(w, err, "list orders error", zap.Int64("userID", userID))
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetOrder возвращает заказ текущего пользователя с выданными ключами.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, err, "get order")
		return
	}

	o, err := h.service.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		h.writeError(w, err, "get order error", zap.Int64("userID", userID), zap.Int64("orderID", orderID))
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponse(*o))
}

type topUpRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Method string          `json:"method" validate:"required,max=32"`
}

type transactionEnvelope struct {
	Transaction transactionResponse `json:"transaction"`
}

// TopUp создаёт заявку на пополнение баланса.
func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req topUpRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err, "decode top-up request")
		return
	}

	tx, err := h.service.RequestTopUp(r.Context(), userID, req.Amount, req.Method)
	if err != nil {
		h.writeError(w, err, "top-up request error", zap.Int64("userID", userID))
		return
	}

	h.writeJSON(w, http.StatusOK, transactionEnvelope{Transaction: toTransactionResponse(*tx)})
}

// ListTransactions возвращает историю операций текущего пользователя.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	page, err := pageFrom(r)
	if err != nil {
		h.writeError(w, err, "list transactions")
		return
	}

	txs, err := h.service.ListTransactions(r.Context(), userID, page)
	if err != nil {
		h.writeError(w, err, "list transactions error", zap.Int64("userID", userID))
		return
	}

	h.writeJSON(w, http.StatusOK, toTransactionResponses(txs))
}

type redeemRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type redeemResponse struct {
	Amount      decimal.Decimal     `json:"amount"`
	NewBalance  decimal.Decimal     `json:"newBalance"`
	Transaction transactionResponse `json:"transaction"`
}

// RedeemGiftCard погашает подарочную карту.
func (h *Handler) RedeemGiftCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req redeemRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err, "decode redeem request")
		return
	}

	res, err := h.service.RedeemGiftCard(r.Context(), userID, req.Code)
	if err != nil {
		h.writeError(w, err, "redeem gift card error", zap.Int64("userID", userID))
		return
	}

	h.writeJSON(w, http.StatusOK, redeemResponse{
		Amount:      res.Card.Amount,
		NewBalance:  res.NewBalance,
		Transaction: toTransactionResponse(*res.Transaction),
	})
}
