package products

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
)

type stubRefCounter struct {
	count int64
	err   error
}

func (s stubRefCounter) CountByProductID(ctx context.Context, productID string) (int64, error) {
	return s.count, s.err
}

func newTestProductService(t *testing.T, refs ledgerRefCounter) (Service, *Repository) {
	t.Helper()
	repo := NewRepository(newProductsDB(t))
	svc, err := NewService(repo, refs)
	require.NoError(t, err)
	return svc, repo
}

func TestCreateProductAssignsID(t *testing.T) {
	svc, _ := newTestProductService(t, stubRefCounter{})

	dto, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:          "Widget",
		Price:         decimal.NewFromFloat(4.50),
		StockQuantity: 10,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, dto.ProductID)
	assert.Equal(t, "Widget", dto.Name)
	assert.Equal(t, 10, dto.StockQuantity)
}

func TestCreateProductKeepsProvidedID(t *testing.T) {
	svc, _ := newTestProductService(t, stubRefCounter{})

	dto, err := svc.CreateProduct(context.Background(), CreateProductInput{
		ProductID: "widget-1",
		Name:      "Widget",
		Price:     decimal.NewFromFloat(4.50),
	})
	require.NoError(t, err)
	assert.Equal(t, "widget-1", dto.ProductID)
}

func TestCreateProductDuplicateID(t *testing.T) {
	svc, _ := newTestProductService(t, stubRefCounter{})
	ctx := context.Background()

	input := CreateProductInput{
		ProductID: "widget-1",
		Name:      "Widget",
		Price:     decimal.NewFromFloat(4.50),
	}
	_, err := svc.CreateProduct(ctx, input)
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, input)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newTestProductService(t, stubRefCounter{})
	ctx := context.Background()

	badRating := 7.5
	cases := []struct {
		name  string
		input CreateProductInput
	}{
		{"empty name", CreateProductInput{Price: decimal.NewFromFloat(1)}},
		{"negative price", CreateProductInput{Name: "Widget", Price: decimal.NewFromFloat(-1)}},
		{"rating out of range", CreateProductInput{Name: "Widget", Price: decimal.NewFromFloat(1), Rating: &badRating}},
		{"negative stock", CreateProductInput{Name: "Widget", Price: decimal.NewFromFloat(1), StockQuantity: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, tc.input)
			require.Error(t, err)
			assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestGetProductNotFound(t *testing.T) {
	svc, _ := newTestProductService(t, stubRefCounter{})

	_, err := svc.GetProduct(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateProductPartial(t *testing.T) {
	svc, repo := newTestProductService(t, stubRefCounter{})
	ctx := context.Background()

	seedRepoProduct(t, repo, "p1", "Widget", 10)

	newName := "Premium Widget"
	newStock := 25
	dto, err := svc.UpdateProduct(ctx, "p1", UpdateProductInput{
		Name:          &newName,
		StockQuantity: &newStock,
	})
	require.NoError(t, err)
	assert.Equal(t, "Premium Widget", dto.Name)
	assert.Equal(t, 25, dto.StockQuantity)
	// Price was not part of the update.
	assert.True(t, dto.Price.Equal(decimal.NewFromFloat(4.50)))
}

func TestUpdateProductValidation(t *testing.T) {
	svc, repo := newTestProductService(t, stubRefCounter{})
	ctx := context.Background()

	seedRepoProduct(t, repo, "p1", "Widget", 10)

	empty := "  "
	_, err := svc.UpdateProduct(ctx, "p1", UpdateProductInput{Name: &empty})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestUpdateProductNotFound(t *testing.T) {
	svc, _ := newTestProductService(t, stubRefCounter{})

	name := "Widget"
	_, err := svc.UpdateProduct(context.Background(), "missing", UpdateProductInput{Name: &name})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteProduct(t *testing.T) {
	svc, repo := newTestProductService(t, stubRefCounter{})
	ctx := context.Background()

	seedRepoProduct(t, repo, "p1", "Widget", 10)

	require.NoError(t, svc.DeleteProduct(ctx, "p1"))

	err := svc.DeleteProduct(ctx, "p1")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteProductWithLedgerReferences(t *testing.T) {
	svc, repo := newTestProductService(t, stubRefCounter{count: 2})
	ctx := context.Background()

	seedRepoProduct(t, repo, "p1", "Widget", 10)

	err := svc.DeleteProduct(ctx, "p1")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	// The row is still there.
	_, getErr := svc.GetProduct(ctx, "p1")
	require.NoError(t, getErr)
}

func TestListProductsSearch(t *testing.T) {
	svc, repo := newTestProductService(t, stubRefCounter{})
	ctx := context.Background()

	seedRepoProduct(t, repo, "p1", "Steel Widget", 1)
	seedRepoProduct(t, repo, "p2", "Copper Pipe", 2)

	rows, err := svc.ListProducts(ctx, "widget")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "p1", rows[0].ProductID)

	rows, err = svc.ListProducts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
