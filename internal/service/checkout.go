package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ErenYea9er69/MarketShop-sub000/internal/metrics"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/model"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/repository"
)

// CheckoutItem описывает позицию корзины.
type CheckoutItem struct {
	ProductID int64
	Quantity  int
}

// CheckoutInput содержит корзину и сумму, которую видел покупатель.
type CheckoutInput struct {
	Items []CheckoutItem
	Total decimal.Decimal
}

// CheckoutResult содержит результат оформления заказа.
type CheckoutResult struct {
	OrderID    int64
	NewBalance decimal.Decimal
	Cashback   decimal.Decimal
	Order      *model.Order
}

// Checkout оформляет заказ с оплатой с баланса. Сумма пересчитывается по текущим ценам
// под блокировкой и должна совпасть с переданной покупателем.
func (s *Service) Checkout(ctx context.Context, userID int64, in CheckoutInput) (res *CheckoutResult, err error) {
	start := time.Now()
	defer func() {
		s.observe(metrics.OpPurchase, start, err)
		if err == nil {
			s.addAmount(metrics.OpPurchase, res.Order.Total)
		}
	}()

	if len(in.Items) == 0 {
		return nil, ErrEmptyCart
	}

	lines := make([]repository.PurchaseLine, 0, len(in.Items))
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return nil, fmt.Errorf("%w: product %d", repository.ErrProductNotFound, it.ProductID)
		}
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %d", ErrInvalidQuantity, it.ProductID)
		}
		lines = append(lines, repository.PurchaseLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	if !in.Total.IsPositive() {
		return nil, ErrInvalidAmount
	}

	pr, err := s.repo.Purchase(ctx, repository.PurchaseInput{
		UserID:          userID,
		Lines:           lines,
		ExpectedTotal:   in.Total,
		CashbackPercent: s.opts.CashbackPercent,
	})
	if err != nil {
		return nil, err
	}

	return &CheckoutResult{
		OrderID:    pr.Order.ID,
		NewBalance: pr.NewBalance,
		Cashback:   pr.Cashback,
		Order:      pr.Order,
	}, nil
}
