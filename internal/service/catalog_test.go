package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ErenYea9er69/MarketShop-sub000/internal/model"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/repository"
)

func TestListProducts_NormalizesPage(t *testing.T) {
	tests := []struct {
		name       string
		page       Page
		wantLimit  int
		wantOffset int
	}{
		{"defaults", Page{}, defaultPageSize, 0},
		{"capped", Page{Limit: 10000, Offset: 20}, maxPageSize, 20},
		{"negative offset", Page{Limit: 5, Offset: -3}, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubRepo{}
			s := NewService(repo, Options{})

			category := int64(2)
			_, err := s.ListProducts(context.Background(), &category, tt.page)
			require.NoError(t, err)

			require.NotNil(t, repo.productFilter)
			assert.Equal(t, tt.wantLimit, repo.productFilter.Limit)
			assert.Equal(t, tt.wantOffset, repo.productFilter.Offset)
			assert.False(t, repo.productFilter.IncludeHidden)
			require.NotNil(t, repo.productFilter.CategoryID)
			assert.Equal(t, int64(2), *repo.productFilter.CategoryID)
		})
	}
}

func TestGetProduct_HidesInactive(t *testing.T) {
	repo := &stubRepo{product: &model.Product{ID: 4, Name: "Retired", Active: false}}
	s := NewService(repo, Options{})

	_, err := s.GetProduct(context.Background(), 4)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	repo.product.Active = true
	p, err := s.GetProduct(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "Retired", p.Name)
}
