package ledger

import (
	"context"

	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/internal/products"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
)

// productStore adapts the products repository to the coordinator's view of it.
type productStore struct {
	repo *products.Repository
}

// NewProductStore wraps a product repository for use by the coordinator.
func NewProductStore(repo *products.Repository) ProductStore {
	return productStore{repo: repo}
}

func (s productStore) WithTx(tx *gorm.DB) ProductStore {
	return productStore{repo: s.repo.WithTx(tx)}
}

func (s productStore) FindByID(ctx context.Context, productID string) (*models.Product, error) {
	return s.repo.FindByID(ctx, productID)
}

func (s productStore) AdjustStock(ctx context.Context, productID string, delta, expectedQty int) error {
	return s.repo.AdjustStock(ctx, productID, delta, expectedQty)
}
