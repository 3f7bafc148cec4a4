package service

import (
	"context"
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

// GetBalance возвращает баланс и накопленный кешбэк пользователя.
func (s *Service) GetBalance(ctx context.Context, userID int64) (*model.Balance, error) {
	current, cashback, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.Balance{Current: current, Cashback: cashback}, nil
}

// RequestTopUp создаёт заявку на пополнение в статусе PENDING. Баланс не меняется
// до решения администратора.
func (s *Service) RequestTopUp(ctx context.Context, userID int64, amount decimal.Decimal, method string) (tx *model.Transaction, err error) {
	start := time.Now()
	defer func() { s.observe(metrics.OpTopUpRequest, start, err) }()

	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if amount.LessThan(s.opts.MinTopUp) {
		return nil, fmt.Errorf("%w: minimum is %s TND", ErrAmountTooLow, s.opts.MinTopUp.String())
	}

	code, err := s.resolvePaymentMethod(ctx, method)
	if err != nil {
		return nil, err
	}

	return s.repo.CreateDeposit(ctx, userID, amount, code, uuid.NewString())
}

func (s *Service) resolvePaymentMethod(ctx context.Context, method string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(method))
	if code == "" || code == repository.PaymentMethodBalance {
		return "", ErrUnknownPaymentMethod
	}

	methods, err := s.repo.ListPaymentMethods(ctx, false)
	if err != nil {
		return "", err
	}
	// Пока администратор не завёл ни одного способа, принимается любой непустой код.
	if len(methods) == 0 {
		return code, nil
	}
	for _, m := range methods {
		if m.Code == code && m.Active {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownPaymentMethod, code)
}

// RedeemGiftCard погашает подарочную карту и зачисляет номинал на баланс пользователя.
func (s *Service) RedeemGiftCard(ctx context.Context, userID int64, code string) (res *repository.GiftCardRedemption, err error) {
	start := time.Now()
	defer func() {
		s.observe(metrics.OpGiftCard, start, err)
		if err == nil {
			s.addAmount(metrics.OpGiftCard, res.Card.Amount)
		}
	}()

	normalized, err := validation.NormalizeGiftCardCode(code)
	if err != nil {
		return nil, err
	}
	return s.repo.RedeemGiftCard(ctx, userID, normalized)
}

// ListTransactions возвращает историю операций пользователя.
func (s *Service) ListTransactions(ctx context.Context, userID int64, page Page) ([]model.Transaction, error) {
	page = page.normalize()
	return s.repo.ListTransactions(ctx, repository.TransactionFilter{
		UserID: &userID,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

// ListOrders возвращает заказы пользователя.
func (s *Service) ListOrders(ctx context.Context, userID int64, page Page) ([]model.Order, error) {
	page = page.normalize()
	return s.repo.ListOrdersByUser(ctx, userID, page.Limit, page.Offset)
}

// GetOrder возвращает заказ с позициями. Чужой заказ не виден.
func (s *Service) GetOrder(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}
	return o, nil
}
