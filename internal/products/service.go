package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
)

// Service exposes product management operations.
type Service interface {
	ListProducts(ctx context.Context, search string) ([]ProductDTO, error)
	GetProduct(ctx context.Context, productID string) (*ProductDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID string, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID string) error
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	ProductID     string
	Name          string
	Price         decimal.Decimal
	Rating        *float64
	StockQuantity int
	Description   *string
}

// UpdateProductInput holds optional mutation values for a product. Stock
// quantity edits here are explicit inventory corrections; transactional stock
// movement goes through the ledger coordinator instead.
type UpdateProductInput struct {
	Name          *string
	Price         *decimal.Decimal
	Rating        *float64
	StockQuantity *int
	Description   *string
}

type ledgerRefCounter interface {
	CountByProductID(ctx context.Context, productID string) (int64, error)
}

type service struct {
	repo       *Repository
	ledgerRefs ledgerRefCounter
}

// NewService constructs a product service instance.
func NewService(repo *Repository, ledgerRefs ledgerRefCounter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if ledgerRefs == nil {
		return nil, fmt.Errorf("ledger reference counter required")
	}
	return &service{repo: repo, ledgerRefs: ledgerRefs}, nil
}

func (s *service) ListProducts(ctx context.Context, search string) ([]ProductDTO, error) {
	rows, err := s.repo.Search(ctx, search)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return NewProductDTOs(rows), nil
}

func (s *service) GetProduct(ctx context.Context, productID string) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return NewProductDTO(product), nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if err := validateProductFields(input.Name, input.Price, input.Rating, input.StockQuantity); err != nil {
		return nil, err
	}

	productID := strings.TrimSpace(input.ProductID)
	if productID == "" {
		productID = uuid.NewString()
	}

	product := &models.Product{
		ProductID:     productID,
		Name:          strings.TrimSpace(input.Name),
		Price:         input.Price,
		Rating:        input.Rating,
		StockQuantity: input.StockQuantity,
		Description:   input.Description,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product id already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert product")
	}
	return NewProductDTO(product), nil
}

func (s *service) UpdateProduct(ctx context.Context, productID string, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	applyUpdateToProduct(product, input)
	if err := validateProductFields(product.Name, product.Price, product.Rating, product.StockQuantity); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return NewProductDTO(product), nil
}

// DeleteProduct removes a product unless ledger entries still reference it.
// Financial records keep their product rows, so referenced products stay.
func (s *service) DeleteProduct(ctx context.Context, productID string) error {
	refs, err := s.ledgerRefs.CountByProductID(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count ledger references")
	}
	if refs > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "product is referenced by ledger entries")
	}

	deleted, err := s.repo.Delete(ctx, productID)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeConflict, "product is referenced by ledger entries")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func applyUpdateToProduct(product *models.Product, input UpdateProductInput) {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Rating != nil {
		product.Rating = input.Rating
	}
	if input.StockQuantity != nil {
		product.StockQuantity = *input.StockQuantity
	}
	if input.Description != nil {
		product.Description = input.Description
	}
}

func validateProductFields(name string, price decimal.Decimal, rating *float64, stockQuantity int) error {
	if strings.TrimSpace(name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if rating != nil && (*rating < 0 || *rating > 5) {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 0 and 5")
	}
	if stockQuantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock_quantity must be non-negative")
	}
	return nil
}
