package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
)

func newProductsDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.Exec(`CREATE TABLE products (
		product_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price NUMERIC NOT NULL,
		rating REAL,
		stock_quantity INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
		description TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error)
	return conn
}

func seedRepoProduct(t *testing.T, repo *Repository, productID, name string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ProductID:     productID,
		Name:          name,
		Price:         decimal.NewFromFloat(4.50),
		StockQuantity: stock,
	}
	require.NoError(t, repo.Create(context.Background(), product))
	return product
}

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(newProductsDB(t))
	ctx := context.Background()

	seedRepoProduct(t, repo, "p1", "Widget", 10)

	found, err := repo.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Widget", found.Name)
	assert.Equal(t, 10, found.StockQuantity)
	assert.True(t, found.Price.Equal(decimal.NewFromFloat(4.50)))

	_, err = repo.FindByID(ctx, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositorySave(t *testing.T) {
	repo := NewRepository(newProductsDB(t))
	ctx := context.Background()

	product := seedRepoProduct(t, repo, "p1", "Widget", 10)
	product.Name = "Gadget"
	product.StockQuantity = 4
	require.NoError(t, repo.Save(ctx, product))

	found, err := repo.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Gadget", found.Name)
	assert.Equal(t, 4, found.StockQuantity)
}

func TestRepositoryDelete(t *testing.T) {
	repo := NewRepository(newProductsDB(t))
	ctx := context.Background()

	seedRepoProduct(t, repo, "p1", "Widget", 10)

	deleted, err := repo.Delete(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRepositorySearch(t *testing.T) {
	repo := NewRepository(newProductsDB(t))
	ctx := context.Background()

	seedRepoProduct(t, repo, "p1", "Steel Widget", 1)
	seedRepoProduct(t, repo, "p2", "Brass widget", 2)
	seedRepoProduct(t, repo, "p3", "Copper Pipe", 3)

	all, err := repo.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	matched, err := repo.Search(ctx, "WIDGET")
	require.NoError(t, err)
	assert.Len(t, matched, 2)

	matched, err = repo.Search(ctx, "pipe")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "p3", matched[0].ProductID)

	matched, err = repo.Search(ctx, "nothing")
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestRepositoryListTopByStock(t *testing.T) {
	repo := NewRepository(newProductsDB(t))
	ctx := context.Background()

	seedRepoProduct(t, repo, "p1", "Low", 2)
	seedRepoProduct(t, repo, "p2", "High", 50)
	seedRepoProduct(t, repo, "p3", "Mid", 10)

	rows, err := repo.ListTopByStock(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "p2", rows[0].ProductID)
	assert.Equal(t, "p3", rows[1].ProductID)
}

func TestRepositoryAdjustStock(t *testing.T) {
	repo := NewRepository(newProductsDB(t))
	ctx := context.Background()

	seedRepoProduct(t, repo, "p1", "Widget", 10)

	require.NoError(t, repo.AdjustStock(ctx, "p1", -3, 10))

	found, err := repo.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 7, found.StockQuantity)

	require.NoError(t, repo.AdjustStock(ctx, "p1", 5, 7))
	found, err = repo.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 12, found.StockQuantity)
}

func TestRepositoryAdjustStockStaleExpectation(t *testing.T) {
	repo := NewRepository(newProductsDB(t))
	ctx := context.Background()

	seedRepoProduct(t, repo, "p1", "Widget", 10)

	// Guard value no longer matches the stored quantity.
	err := repo.AdjustStock(ctx, "p1", -3, 9)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	found, findErr := repo.FindByID(ctx, "p1")
	require.NoError(t, findErr)
	assert.Equal(t, 10, found.StockQuantity)
}

func TestRepositoryAdjustStockUnknownProduct(t *testing.T) {
	repo := NewRepository(newProductsDB(t))

	err := repo.AdjustStock(context.Background(), "missing", -1, 5)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}
