package ledger

import (
	"context"
	goerrors "errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/errors"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
)

// memStore is an in-memory stand-in for the database. WithTx snapshots the
// maps and restores them when the callback fails, mirroring rollback.
type memStore struct {
	mu       sync.Mutex
	products map[string]models.Product
	sales    map[string]models.Sale
	expenses map[string]models.Expense

	adjustCalls int
	failAdjust  error
}

func newMemStore() *memStore {
	return &memStore{
		products: map[string]models.Product{},
		sales:    map[string]models.Sale{},
		expenses: map[string]models.Expense{},
	}
}

func (m *memStore) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	products := copyMap(m.products)
	sales := copyMap(m.sales)
	expenses := copyMap(m.expenses)

	if err := fn(nil); err != nil {
		m.products = products
		m.sales = sales
		m.expenses = expenses
		return err
	}
	return nil
}

func copyMap[V any](src map[string]V) map[string]V {
	dst := make(map[string]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

type memLedger struct {
	store *memStore
	inTx  bool
}

func (m memLedger) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.store.mu.Lock()
	return m.store.mu.Unlock
}

func (m memLedger) WithTx(tx *gorm.DB) Repository {
	return memLedger{store: m.store, inTx: true}
}

func (m memLedger) AppendSale(ctx context.Context, sale *models.Sale) error {
	defer m.lock()()
	if _, ok := m.store.sales[sale.SaleID]; ok {
		return goerrors.New("UNIQUE constraint failed: sales.sale_id")
	}
	sale.CreatedAt = time.Now()
	m.store.sales[sale.SaleID] = *sale
	return nil
}

func (m memLedger) AppendExpense(ctx context.Context, expense *models.Expense) error {
	defer m.lock()()
	if _, ok := m.store.expenses[expense.ExpenseID]; ok {
		return goerrors.New("UNIQUE constraint failed: expenses.expense_id")
	}
	expense.CreatedAt = time.Now()
	m.store.expenses[expense.ExpenseID] = *expense
	return nil
}

func (m memLedger) FindSaleByID(ctx context.Context, saleID string) (*models.Sale, error) {
	defer m.lock()()
	sale, ok := m.store.sales[saleID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &sale, nil
}

func (m memLedger) FindExpenseByID(ctx context.Context, expenseID string) (*models.Expense, error) {
	defer m.lock()()
	expense, ok := m.store.expenses[expenseID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &expense, nil
}

func (m memLedger) SearchSales(ctx context.Context, search string) ([]models.Sale, error) {
	defer m.lock()()
	out := make([]models.Sale, 0, len(m.store.sales))
	for _, sale := range m.store.sales {
		out = append(out, sale)
	}
	return out, nil
}

func (m memLedger) SearchExpenses(ctx context.Context, search string) ([]models.Expense, error) {
	defer m.lock()()
	out := make([]models.Expense, 0, len(m.store.expenses))
	for _, expense := range m.store.expenses {
		out = append(out, expense)
	}
	return out, nil
}

func (m memLedger) CountByProductID(ctx context.Context, productID string) (int64, error) {
	defer m.lock()()
	var count int64
	for _, sale := range m.store.sales {
		if sale.ProductID == productID {
			count++
		}
	}
	for _, expense := range m.store.expenses {
		if expense.ProductID == productID {
			count++
		}
	}
	return count, nil
}

func (m memLedger) SummarizeSales(ctx context.Context) (EntrySummary, error) {
	return EntrySummary{}, nil
}

func (m memLedger) SummarizeExpenses(ctx context.Context) (EntrySummary, error) {
	return EntrySummary{}, nil
}

type memProducts struct {
	store *memStore
	inTx  bool
}

func (m memProducts) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.store.mu.Lock()
	return m.store.mu.Unlock
}

func (m memProducts) WithTx(tx *gorm.DB) ProductStore {
	return memProducts{store: m.store, inTx: true}
}

func (m memProducts) FindByID(ctx context.Context, productID string) (*models.Product, error) {
	defer m.lock()()
	product, ok := m.store.products[productID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &product, nil
}

func (m memProducts) AdjustStock(ctx context.Context, productID string, delta, expectedQty int) error {
	defer m.lock()()
	m.store.adjustCalls++
	if m.store.failAdjust != nil {
		return m.store.failAdjust
	}
	product, ok := m.store.products[productID]
	if !ok || product.StockQuantity != expectedQty {
		return errors.New(errors.CodeConflict, "stock quantity changed concurrently")
	}
	product.StockQuantity += delta
	m.store.products[productID] = product
	return nil
}

func newTestService(t *testing.T, store *memStore, maxAttempts int) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "ledger-test", Output: io.Discard})
	svc, err := NewService(store, memLedger{store: store}, memProducts{store: store}, nil, logg, maxAttempts)
	require.NoError(t, err)
	return svc
}

func seedProduct(store *memStore, productID string, stock int) {
	store.products[productID] = models.Product{
		ProductID:     productID,
		Name:          "Widget",
		Price:         decimal.NewFromFloat(4.50),
		StockQuantity: stock,
	}
}

func saleInput(productID string, quantity int) RecordTransactionInput {
	return RecordTransactionInput{
		Kind:      KindSale,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: decimal.NewFromFloat(4.50),
		UserID:    "user-1",
	}
}

func TestRecordTransactionSaleDecrementsStock(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", 10)
	svc := newTestService(t, store, 3)

	input := saleInput("p1", 3)
	committed, err := svc.RecordTransaction(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, committed.Sale)
	assert.Nil(t, committed.Expense)
	assert.False(t, committed.Replayed)
	assert.Equal(t, 7, committed.Product.StockQuantity)
	assert.Equal(t, "Widget", committed.Sale.ProductName)
	assert.True(t, committed.Sale.TotalAmount.Equal(decimal.NewFromFloat(13.50)))
}

func TestRecordTransactionInsufficientStock(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", 2)
	svc := newTestService(t, store, 3)

	_, err := svc.RecordTransaction(context.Background(), saleInput("p1", 5))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInsufficientStock))

	// Nothing was written and the stock is untouched.
	assert.Empty(t, store.sales)
	assert.Equal(t, 2, store.products["p1"].StockQuantity)
}

func TestRecordTransactionExpenseIncrementsStock(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", 5)
	svc := newTestService(t, store, 3)

	input := RecordTransactionInput{
		Kind:      KindExpense,
		ProductID: "p1",
		Quantity:  20,
		UnitPrice: decimal.NewFromFloat(2.00),
		UserID:    "user-1",
	}
	committed, err := svc.RecordTransaction(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, committed.Expense)
	assert.Nil(t, committed.Sale)
	assert.Equal(t, 25, committed.Product.StockQuantity)
	assert.True(t, committed.Expense.TotalAmount.Equal(decimal.NewFromFloat(40.00)))
}

func TestRecordTransactionConcurrentSalesOneWins(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", 1)
	svc := newTestService(t, store, 3)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordTransaction(context.Background(), saleInput("p1", 1))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		rejected++
		assert.True(t,
			errors.HasCode(err, errors.CodeInsufficientStock) || errors.HasCode(err, errors.CodeConflict),
			"unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 0, store.products["p1"].StockQuantity)
	assert.Len(t, store.sales, 1)
}

func TestRecordTransactionMissingProduct(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, 3)

	_, err := svc.RecordTransaction(context.Background(), saleInput("ghost", 1))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}

func TestRecordTransactionIdempotentReplay(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", 10)
	svc := newTestService(t, store, 3)

	input := saleInput("p1", 3)
	input.EntryID = "sale-abc"

	first, err := svc.RecordTransaction(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, first.Replayed)
	assert.Equal(t, 7, first.Product.StockQuantity)

	second, err := svc.RecordTransaction(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, "sale-abc", second.Sale.SaleID)

	// The replay did not touch stock again.
	assert.Equal(t, 7, store.products["p1"].StockQuantity)
	assert.Len(t, store.sales, 1)
}

func TestRecordTransactionEntryIDReuseRejected(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", 10)
	svc := newTestService(t, store, 3)

	input := saleInput("p1", 3)
	input.EntryID = "sale-abc"
	_, err := svc.RecordTransaction(context.Background(), input)
	require.NoError(t, err)

	reused := saleInput("p1", 4)
	reused.EntryID = "sale-abc"
	_, err = svc.RecordTransaction(context.Background(), reused)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeIdempotency))
	assert.Equal(t, 7, store.products["p1"].StockQuantity)
}

func TestRecordTransactionRetryBudgetExhausted(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", 10)
	store.failAdjust = errors.New(errors.CodeConflict, "stock quantity changed concurrently")
	svc := newTestService(t, store, 3)

	_, err := svc.RecordTransaction(context.Background(), saleInput("p1", 1))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeConflict))
	assert.Equal(t, 3, store.adjustCalls)
	assert.Empty(t, store.sales)
}

func TestRecordTransactionDeadlineExceeded(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", 10)
	svc := newTestService(t, store, 3)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := svc.RecordTransaction(ctx, saleInput("p1", 1))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeTimeout))
}

func TestRecordTransactionValidation(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", 10)
	svc := newTestService(t, store, 3)

	cases := []struct {
		name  string
		input RecordTransactionInput
	}{
		{"zero quantity", RecordTransactionInput{
			Kind: KindSale, ProductID: "p1", Quantity: 0,
			UnitPrice: decimal.NewFromFloat(1), UserID: "u",
		}},
		{"unknown kind", RecordTransactionInput{
			Kind: "refund", ProductID: "p1", Quantity: 1,
			UnitPrice: decimal.NewFromFloat(1), UserID: "u",
		}},
		{"negative unit price", RecordTransactionInput{
			Kind: KindSale, ProductID: "p1", Quantity: 1,
			UnitPrice: decimal.NewFromFloat(-1), UserID: "u",
		}},
		{"missing user", RecordTransactionInput{
			Kind: KindSale, ProductID: "p1", Quantity: 1,
			UnitPrice: decimal.NewFromFloat(1),
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordTransaction(context.Background(), tc.input)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeValidation))
		})
	}
}

func TestRecordTransactionTotalAmountMismatch(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", 10)
	svc := newTestService(t, store, 3)

	wrong := decimal.NewFromFloat(99.99)
	input := saleInput("p1", 2)
	input.TotalAmount = &wrong

	_, err := svc.RecordTransaction(context.Background(), input)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeValidation))
}

func TestRecordTransactionTotalAmountProvided(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", 10)
	svc := newTestService(t, store, 3)

	total := decimal.NewFromFloat(9.00)
	input := saleInput("p1", 2)
	input.TotalAmount = &total

	committed, err := svc.RecordTransaction(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, committed.Sale.TotalAmount.Equal(total))
}
