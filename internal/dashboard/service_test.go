package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockroomhq/stockroom-backend/internal/ledger"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
)

type stubProducts struct {
	rows      []models.Product
	err       error
	lastLimit int
}

func (s *stubProducts) ListTopByStock(ctx context.Context, limit int) ([]models.Product, error) {
	s.lastLimit = limit
	return s.rows, s.err
}

type stubLedger struct {
	sales       ledger.EntrySummary
	expenses    ledger.EntrySummary
	salesErr    error
	expensesErr error
}

func (s *stubLedger) SummarizeSales(ctx context.Context) (ledger.EntrySummary, error) {
	return s.sales, s.salesErr
}

func (s *stubLedger) SummarizeExpenses(ctx context.Context) (ledger.EntrySummary, error) {
	return s.expenses, s.expensesErr
}

func TestGetMetrics(t *testing.T) {
	prods := &stubProducts{rows: []models.Product{
		{ProductID: "p1", Name: "Widget", Price: decimal.NewFromFloat(4.50), StockQuantity: 50},
		{ProductID: "p2", Name: "Pipe", Price: decimal.NewFromFloat(2.00), StockQuantity: 10},
	}}
	entries := &stubLedger{
		sales:    ledger.EntrySummary{Count: 3, TotalAmount: "13.50"},
		expenses: ledger.EntrySummary{Count: 1, TotalAmount: "9.00"},
	}

	svc, err := NewService(prods, entries, 5)
	require.NoError(t, err)

	metrics, err := svc.GetMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, prods.lastLimit)
	require.Len(t, metrics.PopularProducts, 2)
	assert.Equal(t, "p1", metrics.PopularProducts[0].ProductID)
	assert.Equal(t, int64(3), metrics.SalesSummary.Count)
	assert.Equal(t, "9.00", metrics.ExpenseSummary.TotalAmount)
}

func TestGetMetricsDefaultLimit(t *testing.T) {
	prods := &stubProducts{}
	svc, err := NewService(prods, &stubLedger{}, 0)
	require.NoError(t, err)

	_, err = svc.GetMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultPopularProductsLimit, prods.lastLimit)
}

func TestGetMetricsDependencyFailure(t *testing.T) {
	prods := &stubProducts{err: errors.New("connection reset")}
	svc, err := NewService(prods, &stubLedger{}, 5)
	require.NoError(t, err)

	_, err = svc.GetMetrics(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestNewServiceNilDeps(t *testing.T) {
	_, err := NewService(nil, &stubLedger{}, 5)
	require.Error(t, err)

	_, err = NewService(&stubProducts{}, nil, 5)
	require.Error(t, err)
}
