// Package handler содержит HTTP-обработчики API маркетплейса.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ErenYea9er69/MarketShop-sub000/internal/middleware"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/model"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/repository"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/service"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error

	RegisterUser(ctx context.Context, login, password string) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)

	ListCategories(ctx context.Context) ([]model.Category, error)
	ListProducts(ctx context.Context, categoryID *int64, page service.Page) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListPaymentMethods(ctx context.Context) ([]model.PaymentMethod, error)

	Checkout(ctx context.Context, userID int64, in service.CheckoutInput) (*service.CheckoutResult, error)
	GetBalance(ctx context.Context, userID int64) (*model.Balance, error)
	RequestTopUp(ctx context.Context, userID int64, amount decimal.Decimal, method string) (*model.Transaction, error)
	RedeemGiftCard(ctx context.Context, userID int64, code string) (*repository.GiftCardRedemption, error)
	ListTransactions(ctx context.Context, userID int64, page service.Page) ([]model.Transaction, error)
	ListOrders(ctx context.Context, userID int64, page service.Page) ([]model.Order, error)
	GetOrder(ctx context.Context, userID, orderID int64) (*model.Order, error)

	ResolveTopUp(ctx context.Context, d service.TopUpDecision) (*model.Transaction, decimal.Decimal, error)
	ListAllTransactions(ctx context.Context, q service.TransactionQuery) ([]model.Transaction, error)
	ListUsers(ctx context.Context, page service.Page) ([]model.User, error)
	SetUserRole(ctx context.Context, adminID, userID int64, role model.Role) error
	CreateCategory(ctx context.Context, name, slug string) (*model.Category, error)
	CreateProduct(ctx context.Context, in service.ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, id int64, in service.ProductInput) (*model.Product, error)
	ListProductKeys(ctx context.Context, productID int64) ([]model.ProductKey, error)
	AddProductKeys(ctx context.Context, productID int64, values []string) (int, int, error)
	DeleteProductKey(ctx context.Context, productID, keyID int64) (int, error)
	CreateGiftCard(ctx context.Context, code string, amount decimal.Decimal) (*model.GiftCard, error)
	ListGiftCards(ctx context.Context, page service.Page) ([]model.GiftCard, error)
	CreatePaymentMethod(ctx context.Context, m model.PaymentMethod) (*model.PaymentMethod, error)
}

// Options задаёт необязательную инфраструктуру обработчиков.
type Options struct {
	Idempotency    middleware.IdempotencyStore
	IdempotencyTTL time.Duration
	Limiter        middleware.RateLimiter
	RedeemLimit    int64
	RedeemWindow   time.Duration
	Gatherer       prometheus.Gatherer
}

// Handler реализует HTTP-обработчики API маркетплейса.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	opts           Options
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, opts Options) *Handler {
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		opts:           opts,
	}
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{service.ErrInvalidCredentials, http.StatusUnauthorized},

	{repository.ErrUserNotFound, http.StatusNotFound},
	{repository.ErrProductNotFound, http.StatusNotFound},
	{repository.ErrCategoryNotFound, http.StatusNotFound},
	{repository.ErrKeyNotFound, http.StatusNotFound},
	{repository.ErrOrderNotFound, http.StatusNotFound},
	{repository.ErrTransactionNotFound, http.StatusNotFound},
	{repository.ErrGiftCardNotFound, http.StatusNotFound},

	{repository.ErrUserExists, http.StatusConflict},
	{repository.ErrCategoryExists, http.StatusConflict},
	{repository.ErrGiftCardExists, http.StatusConflict},
	{repository.ErrPaymentMethodExists, http.StatusConflict},

	{repository.ErrGiftCardUsed, http.StatusBadRequest},
	{repository.ErrTransactionNotPending, http.StatusBadRequest},
	{repository.ErrTransactionMismatch, http.StatusBadRequest},
	{repository.ErrInsufficientBalance, http.StatusBadRequest},
	{repository.ErrInsufficientStock, http.StatusBadRequest},
	{repository.ErrTotalMismatch, http.StatusBadRequest},
	{validation.ErrInvalid, http.StatusBadRequest},
	{service.ErrEmptyCart, http.StatusBadRequest},
	{service.ErrInvalidQuantity, http.StatusBadRequest},
	{service.ErrInvalidAmount, http.StatusBadRequest},
	{service.ErrAmountTooLow, http.StatusBadRequest},
	{service.ErrUnknownPaymentMethod, http.StatusBadRequest},
	{service.ErrInvalidAction, http.StatusBadRequest},
	{service.ErrInvalidRole, http.StatusBadRequest},
	{service.ErrSelfDemotion, http.StatusBadRequest},
}

func statusFor(err error) int {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// writeError отвечает статусом, соответствующим ошибке. Внутренние ошибки логируются,
// клиент получает только общий текст.
func (h *Handler) writeError(w http.ResponseWriter, err error, msg string, fields ...zap.Field) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		http.Error(w, http.StatusText(status), status)
		return
	}
	http.Error(w, err.Error(), status)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return 0, false
	}
	return userID, true
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad %s", validation.ErrInvalid, name)
	}
	return id, nil
}

func queryInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, fmt.Errorf("%w: bad %s", validation.ErrInvalid, name)
	}
	return &v, nil
}

func pageFrom(r *http.Request) (service.Page, error) {
	var p service.Page
	q := r.URL.Query()

	for name, dst := range map[string]*int{"limit": &p.Limit, "offset": &p.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return service.Page{}, fmt.Errorf("%w: bad %s", validation.ErrInvalid, name)
		}
		*dst = v
	}

	return p, nil
}

// Health проверяет доступность базы данных.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.service.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
