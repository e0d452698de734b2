package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
)

// Repository manages persistence for sale and expense entries. Entries are
// append-only: there are no update or delete operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	AppendSale(ctx context.Context, sale *models.Sale) error
	AppendExpense(ctx context.Context, expense *models.Expense) error
	FindSaleByID(ctx context.Context, saleID string) (*models.Sale, error)
	FindExpenseByID(ctx context.Context, expenseID string) (*models.Expense, error)
	SearchSales(ctx context.Context, search string) ([]models.Sale, error)
	SearchExpenses(ctx context.Context, search string) ([]models.Expense, error)
	CountByProductID(ctx context.Context, productID string) (int64, error)
	SummarizeSales(ctx context.Context) (EntrySummary, error)
	SummarizeExpenses(ctx context.Context) (EntrySummary, error)
}

// EntrySummary aggregates one side of the ledger.
type EntrySummary struct {
	Count       int64  `json:"count"`
	TotalAmount string `json:"totalAmount"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) AppendSale(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *repository) AppendExpense(ctx context.Context, expense *models.Expense) error {
	return r.db.WithContext(ctx).Create(expense).Error
}

func (r *repository) FindSaleByID(ctx context.Context, saleID string) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).First(&sale, "sale_id = ?", saleID).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) FindExpenseByID(ctx context.Context, expenseID string) (*models.Expense, error) {
	var expense models.Expense
	if err := r.db.WithContext(ctx).First(&expense, "expense_id = ?", expenseID).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

// SearchSales lists sales whose id contains the given substring,
// case-insensitive, in storage order. Full scan; data volumes stay small.
func (r *repository) SearchSales(ctx context.Context, search string) ([]models.Sale, error) {
	qb := r.db.WithContext(ctx).Model(&models.Sale{})
	if pattern, ok := searchPattern(search); ok {
		qb = qb.Where("LOWER(sale_id) LIKE ?", pattern)
	}
	var rows []models.Sale
	if err := qb.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SearchExpenses(ctx context.Context, search string) ([]models.Expense, error) {
	qb := r.db.WithContext(ctx).Model(&models.Expense{})
	if pattern, ok := searchPattern(search); ok {
		qb = qb.Where("LOWER(expense_id) LIKE ?", pattern)
	}
	var rows []models.Expense
	if err := qb.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountByProductID counts ledger entries on both sides referencing a product.
func (r *repository) CountByProductID(ctx context.Context, productID string) (int64, error) {
	var sales int64
	if err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("product_id = ?", productID).
		Count(&sales).Error; err != nil {
		return 0, err
	}
	var expenses int64
	if err := r.db.WithContext(ctx).
		Model(&models.Expense{}).
		Where("product_id = ?", productID).
		Count(&expenses).Error; err != nil {
		return 0, err
	}
	return sales + expenses, nil
}

func (r *repository) SummarizeSales(ctx context.Context) (EntrySummary, error) {
	return r.summarize(ctx, "sales")
}

func (r *repository) SummarizeExpenses(ctx context.Context) (EntrySummary, error) {
	return r.summarize(ctx, "expenses")
}

func (r *repository) summarize(ctx context.Context, table string) (EntrySummary, error) {
	var row struct {
		Count int64
		Total decimal.NullDecimal
	}
	err := r.db.WithContext(ctx).
		Table(table).
		Select("COUNT(*) AS count, SUM(total_amount) AS total").
		Scan(&row).Error
	if err != nil {
		return EntrySummary{}, err
	}
	summary := EntrySummary{Count: row.Count, TotalAmount: "0"}
	if row.Total.Valid {
		summary.TotalAmount = row.Total.Decimal.String()
	}
	return summary, nil
}

// IsNotFound reports whether the repository error is a missing-row lookup.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func searchPattern(search string) (string, bool) {
	trimmed := strings.TrimSpace(search)
	if trimmed == "" {
		return "", false
	}
	return "%" + strings.ToLower(trimmed) + "%", true
}
