package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ErenYea9er69/MarketShop-sub000/internal/metrics"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/model"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/repository"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/validation"
)

// Решения администратора по заявке на пополнение.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

const (
	giftCardPrefix       = "KWARET"
	giftCardCodeAttempts = 3
)

// TopUpDecision содержит решение администратора по заявке на пополнение.
type TopUpDecision struct {
	TransactionID int64
	UserID        int64
	Amount        decimal.Decimal
	Action        string
}

// ResolveTopUp подтверждает или отклоняет заявку на пополнение. Повторное решение
// по уже обработанной заявке возвращает repository.ErrTransactionNotPending.
func (s *Service) ResolveTopUp(ctx context.Context, d TopUpDecision) (tx *model.Transaction, newBalance decimal.Decimal, err error) {
	op := metrics.OpTopUpApprove
	if d.Action == ActionReject {
		op = metrics.OpTopUpReject
	}

	start := time.Now()
	defer func() {
		s.observe(op, start, err)
		if err == nil && op == metrics.OpTopUpApprove {
			s.addAmount(op, tx.Amount)
		}
	}()

	if d.Action != ActionApprove && d.Action != ActionReject {
		return nil, decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAction, d.Action)
	}
	if d.TransactionID <= 0 || d.UserID <= 0 {
		return nil, decimal.Zero, fmt.Errorf("%w: transaction and user are required", validation.ErrInvalid)
	}
	if !d.Amount.IsPositive() {
		return nil, decimal.Zero, ErrInvalidAmount
	}

	return s.repo.ResolveDeposit(ctx, repository.DepositDecision{
		TransactionID: d.TransactionID,
		UserID:        d.UserID,
		Amount:        d.Amount,
		Approve:       d.Action == ActionApprove,
	})
}

// TransactionQuery задаёт фильтр журнала операций для администратора.
type TransactionQuery struct {
	UserID *int64
	Status string
	Type   string
	Page   Page
}

// ListAllTransactions возвращает журнал операций всех пользователей.
func (s *Service) ListAllTransactions(ctx context.Context, q TransactionQuery) ([]model.Transaction, error) {
	page := q.Page.normalize()
	f := repository.TransactionFilter{
		UserID: q.UserID,
		Limit:  page.Limit,
		Offset: page.Offset,
	}

	if q.Status != "" {
		st := model.TransactionStatus(strings.ToUpper(q.Status))
		if !st.IsValid() {
			return nil, fmt.Errorf("%w: status %q", validation.ErrInvalid, q.Status)
		}
		f.Status = &st
	}
	if q.Type != "" {
		typ := model.TransactionType(strings.ToUpper(q.Type))
		if !typ.IsValid() {
			return nil, fmt.Errorf("%w: type %q", validation.ErrInvalid, q.Type)
		}
		f.Type = &typ
	}

	return s.repo.ListTransactions(ctx, f)
}

// ListUsers возвращает пользователей.
func (s *Service) ListUsers(ctx context.Context, page Page) ([]model.User, error) {
	page = page.normalize()
	return s.repo.ListUsers(ctx, page.Limit, page.Offset)
}

// SetUserRole меняет роль пользователя. Администратор не может сменить роль себе.
func (s *Service) SetUserRole(ctx context.Context, adminID, userID int64, role model.Role) error {
	role = model.Role(strings.ToUpper(string(role)))
	if !role.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if adminID == userID {
		return ErrSelfDemotion
	}
	return s.repo.SetUserRole(ctx, userID, role)
}

// CreateCategory создаёт категорию. Пустой slug строится из названия.
func (s *Service) CreateCategory(ctx context.Context, name, slug string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if slug == "" {
		slug = validation.Slugify(name)
	} else {
		slug = validation.Slugify(slug)
	}
	if name == "" || slug == "" {
		return nil, fmt.Errorf("%w: category name is required", validation.ErrInvalid)
	}
	return s.repo.CreateCategory(ctx, name, slug)
}

// ProductInput содержит поля товара, задаваемые администратором.
type ProductInput = repository.ProductInput

// CreateProduct создаёт товар.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error) {
	if err := checkProduct(&in); err != nil {
		return nil, err
	}
	return s.repo.CreateProduct(ctx, in)
}

// UpdateProduct обновляет товар.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*model.Product, error) {
	if err := checkProduct(&in); err != nil {
		return nil, err
	}
	return s.repo.UpdateProduct(ctx, id, in)
}

func checkProduct(in *ProductInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return fmt.Errorf("%w: product name is required", validation.ErrInvalid)
	}
	if !in.Price.IsPositive() {
		return ErrInvalidAmount
	}
	if in.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", validation.ErrInvalid)
	}
	return nil
}

// ListProductKeys возвращает пул ключей товара.
func (s *Service) ListProductKeys(ctx context.Context, productID int64) ([]model.ProductKey, error) {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListProductKeys(ctx, productID)
}

// AddProductKeys добавляет ключи к товару и возвращает число добавленных ключей и новый остаток.
func (s *Service) AddProductKeys(ctx context.Context, productID int64, values []string) (int, int, error) {
	keys := validation.NormalizeKeys(values)
	if len(keys) == 0 {
		return 0, 0, fmt.Errorf("%w: no keys supplied", validation.ErrInvalid)
	}
	return s.repo.AddProductKeys(ctx, productID, keys)
}

// DeleteProductKey удаляет непроданный ключ и возвращает новый остаток.
func (s *Service) DeleteProductKey(ctx context.Context, productID, keyID int64) (int, error) {
	return s.repo.DeleteProductKey(ctx, productID, keyID)
}

// CreateGiftCard создаёт подарочную карту. Без кода генерируется код вида KWARET-XXXX-XXXX.
func (s *Service) CreateGiftCard(ctx context.Context, code string, amount decimal.Decimal) (*model.GiftCard, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	if strings.TrimSpace(code) != "" {
		normalized, err := validation.NormalizeGiftCardCode(code)
		if err != nil {
			return nil, err
		}
		return s.repo.CreateGiftCard(ctx, normalized, amount)
	}

	var lastErr error
	for i := 0; i < giftCardCodeAttempts; i++ {
		card, err := s.repo.CreateGiftCard(ctx, s.newCode(), amount)
		if err == nil {
			return card, nil
		}
		if !errors.Is(err, repository.ErrGiftCardExists) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// ListGiftCards возвращает подарочные карты.
func (s *Service) ListGiftCards(ctx context.Context, page Page) ([]model.GiftCard, error) {
	page = page.normalize()
	return s.repo.ListGiftCards(ctx, page.Limit, page.Offset)
}

// CreatePaymentMethod добавляет способ пополнения баланса.
func (s *Service) CreatePaymentMethod(ctx context.Context, m model.PaymentMethod) (*model.PaymentMethod, error) {
	m.Code = strings.ToUpper(strings.TrimSpace(m.Code))
	m.Name = strings.TrimSpace(m.Name)
	if m.Code == "" || m.Name == "" {
		return nil, fmt.Errorf("%w: code and name are required", validation.ErrInvalid)
	}
	if m.Code == repository.PaymentMethodBalance {
		return nil, fmt.Errorf("%w: code %s is reserved", validation.ErrInvalid, m.Code)
	}
	return s.repo.CreatePaymentMethod(ctx, m)
}

func generateGiftCardCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return giftCardPrefix + "-" + raw[:4] + "-" + raw[4:8]
}
