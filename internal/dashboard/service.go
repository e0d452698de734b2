package dashboard

import (
	"context"
	"fmt"

	"github.com/stockroomhq/stockroom-backend/internal/ledger"
	"github.com/stockroomhq/stockroom-backend/internal/products"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/errors"
)

// DefaultPopularProductsLimit caps the popular products list when the
// configured limit is missing or non-positive.
const DefaultPopularProductsLimit = 15

type productLister interface {
	ListTopByStock(ctx context.Context, limit int) ([]models.Product, error)
}

type ledgerSummarizer interface {
	SummarizeSales(ctx context.Context) (ledger.EntrySummary, error)
	SummarizeExpenses(ctx context.Context) (ledger.EntrySummary, error)
}

// Metrics is the aggregate snapshot served to the dashboard.
type Metrics struct {
	PopularProducts []products.ProductDTO `json:"popularProducts"`
	SalesSummary    ledger.EntrySummary   `json:"salesSummary"`
	ExpenseSummary  ledger.EntrySummary   `json:"expenseSummary"`
}

// Service assembles dashboard metrics from the inventory and the ledger.
type Service interface {
	GetMetrics(ctx context.Context) (*Metrics, error)
}

type svc struct {
	products productLister
	entries  ledgerSummarizer
	limit    int
}

// NewService builds the dashboard service. limit bounds popular products.
func NewService(productRepo productLister, entries ledgerSummarizer, limit int) (Service, error) {
	if productRepo == nil {
		return nil, fmt.Errorf("dashboard service requires a product repository")
	}
	if entries == nil {
		return nil, fmt.Errorf("dashboard service requires a ledger repository")
	}
	if limit <= 0 {
		limit = DefaultPopularProductsLimit
	}
	return &svc{products: productRepo, entries: entries, limit: limit}, nil
}

func (s *svc) GetMetrics(ctx context.Context) (*Metrics, error) {
	popular, err := s.products.ListTopByStock(ctx, s.limit)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "listing popular products")
	}

	sales, err := s.entries.SummarizeSales(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "summarizing sales")
	}

	expenses, err := s.entries.SummarizeExpenses(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "summarizing expenses")
	}

	return &Metrics{
		PopularProducts: products.NewProductDTOs(popular),
		SalesSummary:    sales,
		ExpenseSummary:  expenses,
	}, nil
}
