// Package service реализует бизнес-логику маркетплейса цифровых товаров.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ErenYea9er69/MarketShop-sub000/internal/metrics"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/model"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/repository"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/validation"
)

var (
	// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmptyCart возвращается при оформлении пустой корзины.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidQuantity возвращается для позиции корзины с неположительным количеством.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrInvalidAmount возвращается для неположительной суммы.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrAmountTooLow возвращается, если сумма пополнения меньше минимальной.
	ErrAmountTooLow = errors.New("amount is below minimum")
	// ErrUnknownPaymentMethod возвращается для неизвестного или отключённого способа оплаты.
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	// ErrInvalidAction возвращается для решения по пополнению, отличного от approve/reject.
	ErrInvalidAction = errors.New("invalid action")
	// ErrInvalidRole возвращается для неизвестной роли пользователя.
	ErrInvalidRole = errors.New("invalid role")
	// ErrSelfDemotion возвращается при попытке администратора снять роль с самого себя.
	ErrSelfDemotion = errors.New("admin cannot change own role")
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, login string, passwordHash []byte, role model.Role) (int64, error)
	EnsureAdmin(ctx context.Context, login string, passwordHash []byte) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetBalance(ctx context.Context, userID int64) (decimal.Decimal, decimal.Decimal, error)
	ListUsers(ctx context.Context, limit, offset int) ([]model.User, error)
	SetUserRole(ctx context.Context, userID int64, role model.Role) error

	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, name, slug string) (*model.Category, error)
	ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	CreateProduct(ctx context.Context, in repository.ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, id int64, in repository.ProductInput) (*model.Product, error)
	ListProductKeys(ctx context.Context, productID int64) ([]model.ProductKey, error)
	AddProductKeys(ctx context.Context, productID int64, values []string) (int, int, error)
	DeleteProductKey(ctx context.Context, productID, keyID int64) (int, error)
	ListPaymentMethods(ctx context.Context, activeOnly bool) ([]model.PaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, m model.PaymentMethod) (*model.PaymentMethod, error)

	Purchase(ctx context.Context, in repository.PurchaseInput) (*repository.PurchaseResult, error)
	CreateDeposit(ctx context.Context, userID int64, amount decimal.Decimal, method, reference string) (*model.Transaction, error)
	ResolveDeposit(ctx context.Context, d repository.DepositDecision) (*model.Transaction, decimal.Decimal, error)
	RedeemGiftCard(ctx context.Context, userID int64, code string) (*repository.GiftCardRedemption, error)
	CreateGiftCard(ctx context.Context, code string, amount decimal.Decimal) (*model.GiftCard, error)
	ListGiftCards(ctx context.Context, limit, offset int) ([]model.GiftCard, error)
	ListTransactions(ctx context.Context, f repository.TransactionFilter) ([]model.Transaction, error)
	ListOrdersByUser(ctx context.Context, userID int64, limit, offset int) ([]model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
}

// Options задаёт параметры бизнес-правил сервиса.
type Options struct {
	MinTopUp        decimal.Decimal
	CashbackPercent decimal.Decimal
	Metrics         *metrics.Ledger
}

// Service содержит бизнес-логику маркетплейса.
type Service struct {
	repo    Repository
	opts    Options
	metrics *metrics.Ledger
	newCode func() string
}

// NewService создаёт новый сервис с указанным репозиторием.
func NewService(repo Repository, opts Options) *Service {
	return &Service{
		repo:    repo,
		opts:    opts,
		metrics: opts.Metrics,
		newCode: generateGiftCardCode,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Page задаёт постраничную выборку.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func (s *Service) observe(op string, start time.Time, err error) {
	s.metrics.Observe(op, outcome(err), time.Since(start))
}

func (s *Service) addAmount(op string, amount decimal.Decimal) {
	f, _ := amount.Float64()
	s.metrics.AddAmount(op, f)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, repository.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, repository.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, repository.ErrTransactionNotPending),
		errors.Is(err, repository.ErrGiftCardUsed):
		return "conflict"
	case errors.Is(err, repository.ErrGiftCardNotFound),
		errors.Is(err, repository.ErrTransactionNotFound),
		errors.Is(err, repository.ErrProductNotFound):
		return "not_found"
	case errors.Is(err, validation.ErrInvalid),
		errors.Is(err, repository.ErrTotalMismatch),
		errors.Is(err, repository.ErrTransactionMismatch),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrAmountTooLow),
		errors.Is(err, ErrUnknownPaymentMethod),
		errors.Is(err, ErrInvalidAction):
		return "rejected"
	}
	return "error"
}
