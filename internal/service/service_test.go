package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ErenYea9er69/MarketShop-sub000/internal/model"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/repository"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type stubRepo struct {
	createUserID   int64
	createUserErr  error
	createdRole    model.Role
	createdHash    []byte
	ensureAdminID  int64
	ensuredLogin   string
	getUser        *model.User
	getUserErr     error
	balance        decimal.Decimal
	cashback       decimal.Decimal
	roleSetTo      model.Role
	setRoleErr     error
	product        *model.Product
	productFilter  *repository.ProductFilter
	productErr     error
	methods        []model.PaymentMethod
	purchaseInput  *repository.PurchaseInput
	purchaseResult *repository.PurchaseResult
	purchaseErr    error
	deposit        *depositCall
	decision       *repository.DepositDecision
	resolved       *model.Transaction
	resolveBalance decimal.Decimal
	resolveErr     error
	redeemedCode   string
	redemption     *repository.GiftCardRedemption
	redeemErr      error
	giftCodes      []string
	giftCardErrs   []error
	addedKeys      []string
	txFilter       *repository.TransactionFilter
	order          *model.Order
	orderErr       error
	category       *model.Category
	paymentMethod  *model.PaymentMethod
}

type depositCall struct {
	userID    int64
	amount    decimal.Decimal
	method    string
	reference string
}

func (s *stubRepo) Close() error                   { return nil }
func (s *stubRepo) Ping(ctx context.Context) error { return nil }

func (s *stubRepo) CreateUser(ctx context.Context, login string, passwordHash []byte, role model.Role) (int64, error) {
	s.createdRole = role
	s.createdHash = passwordHash
	return s.createUserID, s.createUserErr
}

func (s *stubRepo) EnsureAdmin(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	s.ensuredLogin = login
	return s.ensureAdminID, nil
}

func (s *stubRepo) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	return s.getUser, s.getUserErr
}

func (s *stubRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.getUser, s.getUserErr
}

func (s *stubRepo) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, decimal.Decimal, error) {
	return s.balance, s.cashback, nil
}

func (s *stubRepo) ListUsers(ctx context.Context, limit, offset int) ([]model.User, error) {
	return nil, nil
}

func (s *stubRepo) SetUserRole(ctx context.Context, userID int64, role model.Role) error {
	s.roleSetTo = role
	return s.setRoleErr
}

func (s *stubRepo) ListCategories(ctx context.Context) ([]model.Category, error) {
	return nil, nil
}

func (s *stubRepo) CreateCategory(ctx context.Context, name, slug string) (*model.Category, error) {
	s.category = &model.Category{ID: 1, Name: name, Slug: slug}
	return s.category, nil
}

func (s *stubRepo) ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, error) {
	s.productFilter = &f
	return nil, nil
}

func (s *stubRepo) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.product, s.productErr
}

func (s *stubRepo) CreateProduct(ctx context.Context, in repository.ProductInput) (*model.Product, error) {
	return &model.Product{ID: 1, Name: in.Name, Price: in.Price, Stock: in.Stock, Active: in.Active}, nil
}

func (s *stubRepo) UpdateProduct(ctx context.Context, id int64, in repository.ProductInput) (*model.Product, error) {
	return &model.Product{ID: id, Name: in.Name, Price: in.Price, Stock: in.Stock, Active: in.Active}, nil
}

func (s *stubRepo) ListProductKeys(ctx context.Context, productID int64) ([]model.ProductKey, error) {
	return nil, nil
}

func (s *stubRepo) AddProductKeys(ctx context.Context, productID int64, values []string) (int, int, error) {
	s.addedKeys = values
	return len(values), len(values), nil
}

func (s *stubRepo) DeleteProductKey(ctx context.Context, productID, keyID int64) (int, error) {
	return 0, nil
}

func (s *stubRepo) ListPaymentMethods(ctx context.Context, activeOnly bool) ([]model.PaymentMethod, error) {
	return s.methods, nil
}

func (s *stubRepo) CreatePaymentMethod(ctx context.Context, m model.PaymentMethod) (*model.PaymentMethod, error) {
	m.ID = 1
	s.paymentMethod = &m
	return &m, nil
}

func (s *stubRepo) Purchase(ctx context.Context, in repository.PurchaseInput) (*repository.PurchaseResult, error) {
	s.purchaseInput = &in
	return s.purchaseResult, s.purchaseErr
}

func (s *stubRepo) CreateDeposit(ctx context.Context, userID int64, amount decimal.Decimal, method, reference string) (*model.Transaction, error) {
	s.deposit = &depositCall{userID: userID, amount: amount, method: method, reference: reference}
	return &model.Transaction{
		ID:        1,
		UserID:    userID,
		Type:      model.TransactionTypeDeposit,
		Amount:    amount,
		Status:    model.TransactionStatusPending,
		Method:    method,
		Reference: reference,
	}, nil
}

func (s *stubRepo) ResolveDeposit(ctx context.Context, d repository.DepositDecision) (*model.Transaction, decimal.Decimal, error) {
	s.decision = &d
	return s.resolved, s.resolveBalance, s.resolveErr
}

func (s *stubRepo) RedeemGiftCard(ctx context.Context, userID int64, code string) (*repository.GiftCardRedemption, error) {
	s.redeemedCode = code
	return s.redemption, s.redeemErr
}

func (s *stubRepo) CreateGiftCard(ctx context.Context, code string, amount decimal.Decimal) (*model.GiftCard, error) {
	s.giftCodes = append(s.giftCodes, code)
	if n := len(s.giftCodes); n <= len(s.giftCardErrs) && s.giftCardErrs[n-1] != nil {
		return nil, s.giftCardErrs[n-1]
	}
	return &model.GiftCard{ID: 1, Code: code, Amount: amount}, nil
}

func (s *stubRepo) ListGiftCards(ctx context.Context, limit, offset int) ([]model.GiftCard, error) {
	return nil, nil
}

func (s *stubRepo) ListTransactions(ctx context.Context, f repository.TransactionFilter) ([]model.Transaction, error) {
	s.txFilter = &f
	return nil, nil
}

func (s *stubRepo) ListOrdersByUser(ctx context.Context, userID int64, limit, offset int) ([]model.Order, error) {
	return nil, nil
}

func (s *stubRepo) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	return s.order, s.orderErr
}
