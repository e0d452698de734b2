package products

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
)

// Repository wires together product persistence. Stock quantity is only ever
// written through AdjustStock's conditional update or an explicit field edit.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads the product row.
func (r *Repository) FindByID(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "product_id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Create inserts a new product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Save persists all fields of an existing product row.
func (r *Repository) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// Delete removes a product by id and reports whether a row was deleted.
func (r *Repository) Delete(ctx context.Context, productID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&models.Product{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Search lists products whose name contains the given substring,
// case-insensitive, in storage order. An empty search returns everything.
func (r *Repository) Search(ctx context.Context, search string) ([]models.Product, error) {
	qb := r.db.WithContext(ctx).Model(&models.Product{})
	if trimmed := strings.TrimSpace(search); trimmed != "" {
		pattern := "%" + strings.ToLower(trimmed) + "%"
		qb = qb.Where("LOWER(name) LIKE ?", pattern)
	}
	var rows []models.Product
	if err := qb.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListTopByStock returns the products with the highest stock quantity.
func (r *Repository) ListTopByStock(ctx context.Context, limit int) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Order("stock_quantity DESC").
		Limit(limit).
		Find(&rows).
		Error
	return rows, err
}

// AdjustStock applies delta to the product's stock quantity only if the stored
// quantity still equals expectedQty. Zero rows affected means another writer
// committed in between; the caller re-reads and retries.
func (r *Repository) AdjustStock(ctx context.Context, productID string, delta, expectedQty int) error {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("product_id = ? AND stock_quantity = ?", productID, expectedQty).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update stock quantity")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "stock quantity changed concurrently")
	}
	return nil
}
