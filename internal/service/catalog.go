package service

import (
	"context"

	"github.com/ErenYea9er69/MarketShop-sub000/internal/model"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/repository"
)

// ListCategories возвращает категории каталога.
func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.repo.ListCategories(ctx)
}

// ListProducts возвращает товары витрины. Снятые с продажи товары не возвращаются.
func (s *Service) ListProducts(ctx context.Context, categoryID *int64, page Page) ([]model.Product, error) {
	page = page.normalize()
	return s.repo.ListProducts(ctx, repository.ProductFilter{
		CategoryID: categoryID,
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
}

// GetProduct возвращает активный товар витрины.
func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

// ListPaymentMethods возвращает доступные способы пополнения баланса.
func (s *Service) ListPaymentMethods(ctx context.Context) ([]model.PaymentMethod, error) {
	return s.repo.ListPaymentMethods(ctx, true)
}
