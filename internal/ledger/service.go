package ledger

import (
	"context"
	goerrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/errors"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
	"github.com/stockroomhq/stockroom-backend/pkg/metrics"
)

// Kind identifies which side of the ledger a transaction lands on.
type Kind string

const (
	KindSale    Kind = "sale"
	KindExpense Kind = "expense"
)

// DefaultMaxAttempts bounds the retry loop when the stock guard keeps
// detecting concurrent writers.
const DefaultMaxAttempts = 3

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ProductStore is the slice of the product repository the coordinator needs.
type ProductStore interface {
	WithTx(tx *gorm.DB) ProductStore
	FindByID(ctx context.Context, productID string) (*models.Product, error)
	AdjustStock(ctx context.Context, productID string, delta, expectedQty int) error
}

// RecordTransactionInput carries a requested stock transaction. EntryID is
// caller-supplied for idempotent retries; when empty a fresh id is assigned.
type RecordTransactionInput struct {
	Kind        Kind
	EntryID     string
	ProductID   string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalAmount *decimal.Decimal
	Description *string
	UserID      string
}

// CommittedTransaction is the result of a recorded (or replayed) transaction.
type CommittedTransaction struct {
	Sale     *models.Sale
	Expense  *models.Expense
	Product  *models.Product
	Replayed bool
}

// Service coordinates stock transactions and serves ledger reads.
type Service interface {
	RecordTransaction(ctx context.Context, input RecordTransactionInput) (*CommittedTransaction, error)
	ListSales(ctx context.Context, search string) ([]models.Sale, error)
	ListExpenses(ctx context.Context, search string) ([]models.Expense, error)
}

type service struct {
	runner      TxRunner
	entries     Repository
	products    ProductStore
	metrics     *metrics.TransactionMetrics
	logg        *logger.Logger
	maxAttempts int
}

// NewService wires the transaction coordinator. metrics may be nil.
func NewService(runner TxRunner, entries Repository, productStore ProductStore, met *metrics.TransactionMetrics, logg *logger.Logger, maxAttempts int) (Service, error) {
	if runner == nil {
		return nil, fmt.Errorf("ledger service requires a transaction runner")
	}
	if entries == nil {
		return nil, fmt.Errorf("ledger service requires an entry repository")
	}
	if productStore == nil {
		return nil, fmt.Errorf("ledger service requires a product store")
	}
	if logg == nil {
		return nil, fmt.Errorf("ledger service requires a logger")
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &service{
		runner:      runner,
		entries:     entries,
		products:    productStore,
		metrics:     met,
		logg:        logg,
		maxAttempts: maxAttempts,
	}, nil
}

func (s *service) RecordTransaction(ctx context.Context, input RecordTransactionInput) (*CommittedTransaction, error) {
	input.EntryID = strings.TrimSpace(input.EntryID)
	if input.EntryID == "" {
		input.EntryID = uuid.NewString()
	}

	if err := validateTransactionInput(input); err != nil {
		s.observeOutcome(input.Kind, "rejected")
		return nil, err
	}

	ctx = s.logg.WithEntryID(s.logg.WithProductID(ctx, input.ProductID), input.EntryID)

	if committed, ok, err := s.replayExisting(ctx, input); err != nil {
		return nil, err
	} else if ok {
		s.observeOutcome(input.Kind, "replayed")
		s.logg.Info(ctx, "stock transaction replayed")
		return committed, nil
	}

	total := resolveTotalAmount(input)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			s.observeOutcome(input.Kind, "timeout")
			return nil, errors.Wrap(errors.CodeTimeout, err, "stock transaction deadline exceeded")
		}

		product, err := s.products.FindByID(ctx, input.ProductID)
		if err != nil {
			if IsNotFound(err) {
				s.observeOutcome(input.Kind, "rejected")
				return nil, errors.New(errors.CodeNotFound, "product not found").
					WithDetails(map[string]string{"productId": input.ProductID})
			}
			return nil, s.dependencyError(input.Kind, err, "loading product")
		}

		delta := input.Quantity
		if input.Kind == KindSale {
			delta = -input.Quantity
			if product.StockQuantity < input.Quantity {
				s.observeOutcome(input.Kind, "insufficient_stock")
				return nil, errors.New(errors.CodeInsufficientStock, "insufficient stock for sale").
					WithDetails(map[string]any{
						"productId": input.ProductID,
						"requested": input.Quantity,
						"available": product.StockQuantity,
					})
			}
		}

		err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.appendEntry(ctx, tx, input, product.Name, total); err != nil {
				return err
			}
			return s.products.WithTx(tx).AdjustStock(ctx, input.ProductID, delta, product.StockQuantity)
		})
		if err == nil {
			s.observeAttempts(attempt)
			s.observeOutcome(input.Kind, "committed")
			s.logg.Info(ctx, "stock transaction committed")
			return s.loadCommitted(ctx, input, false)
		}

		if db.IsUniqueViolation(err, "") {
			// Another request with the same entry id won the race; treat as
			// a replay against what it wrote.
			if committed, ok, replayErr := s.replayExisting(ctx, input); replayErr != nil {
				return nil, replayErr
			} else if ok {
				s.observeOutcome(input.Kind, "replayed")
				return committed, nil
			}
			return nil, s.dependencyError(input.Kind, err, "resolving duplicate entry")
		}
		if goerrors.Is(err, context.DeadlineExceeded) {
			s.observeOutcome(input.Kind, "timeout")
			return nil, errors.Wrap(errors.CodeTimeout, err, "stock transaction deadline exceeded")
		}
		if !errors.HasCode(err, errors.CodeConflict) {
			return nil, s.dependencyError(input.Kind, err, "committing stock transaction")
		}

		s.logg.Warn(ctx, fmt.Sprintf("stock guard rejected attempt %d, retrying", attempt))
	}

	s.observeAttempts(s.maxAttempts)
	s.observeOutcome(input.Kind, "conflict")
	return nil, errors.New(errors.CodeConflict, "stock transaction contention exceeded retry budget").
		WithDetails(map[string]any{"attempts": s.maxAttempts})
}

func (s *service) ListSales(ctx context.Context, search string) ([]models.Sale, error) {
	rows, err := s.entries.SearchSales(ctx, search)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "listing sales")
	}
	return rows, nil
}

func (s *service) ListExpenses(ctx context.Context, search string) ([]models.Expense, error) {
	rows, err := s.entries.SearchExpenses(ctx, search)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "listing expenses")
	}
	return rows, nil
}

// replayExisting looks for an already-committed entry under the input's id.
// A hit with matching fields is an idempotent replay; a hit with different
// fields means the caller reused the id for a different request.
func (s *service) replayExisting(ctx context.Context, input RecordTransactionInput) (*CommittedTransaction, bool, error) {
	switch input.Kind {
	case KindSale:
		sale, err := s.entries.FindSaleByID(ctx, input.EntryID)
		if err != nil {
			if IsNotFound(err) {
				return nil, false, nil
			}
			return nil, false, s.dependencyError(input.Kind, err, "checking for existing sale")
		}
		if sale.ProductID != input.ProductID || sale.Quantity != input.Quantity {
			return nil, false, idempotencyReuse(input.EntryID)
		}
		committed, err := s.loadCommitted(ctx, input, true)
		return committed, err == nil, err
	default:
		expense, err := s.entries.FindExpenseByID(ctx, input.EntryID)
		if err != nil {
			if IsNotFound(err) {
				return nil, false, nil
			}
			return nil, false, s.dependencyError(input.Kind, err, "checking for existing expense")
		}
		if expense.ProductID != input.ProductID || expense.Quantity != input.Quantity {
			return nil, false, idempotencyReuse(input.EntryID)
		}
		committed, err := s.loadCommitted(ctx, input, true)
		return committed, err == nil, err
	}
}

func (s *service) appendEntry(ctx context.Context, tx *gorm.DB, input RecordTransactionInput, productName string, total decimal.Decimal) error {
	repo := s.entries.WithTx(tx)
	if input.Kind == KindSale {
		return repo.AppendSale(ctx, &models.Sale{
			SaleID:      input.EntryID,
			ProductID:   input.ProductID,
			ProductName: productName,
			Quantity:    input.Quantity,
			UnitPrice:   input.UnitPrice,
			TotalAmount: total,
			Description: input.Description,
			UserID:      input.UserID,
		})
	}
	return repo.AppendExpense(ctx, &models.Expense{
		ExpenseID:   input.EntryID,
		ProductID:   input.ProductID,
		ProductName: productName,
		Quantity:    input.Quantity,
		UnitPrice:   input.UnitPrice,
		TotalAmount: total,
		Description: input.Description,
		UserID:      input.UserID,
	})
}

// loadCommitted re-reads the entry and the product after commit so the caller
// sees the post-transaction stock level.
func (s *service) loadCommitted(ctx context.Context, input RecordTransactionInput, replayed bool) (*CommittedTransaction, error) {
	committed := &CommittedTransaction{Replayed: replayed}

	switch input.Kind {
	case KindSale:
		sale, err := s.entries.FindSaleByID(ctx, input.EntryID)
		if err != nil {
			return nil, s.dependencyError(input.Kind, err, "reloading committed sale")
		}
		committed.Sale = sale
	default:
		expense, err := s.entries.FindExpenseByID(ctx, input.EntryID)
		if err != nil {
			return nil, s.dependencyError(input.Kind, err, "reloading committed expense")
		}
		committed.Expense = expense
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil && !IsNotFound(err) {
		return nil, s.dependencyError(input.Kind, err, "reloading product")
	}
	committed.Product = product
	return committed, nil
}

func (s *service) dependencyError(kind Kind, err error, action string) error {
	s.observeOutcome(kind, "error")
	return errors.Wrap(errors.CodeDependency, err, action+" failed")
}

func (s *service) observeOutcome(kind Kind, outcome string) {
	s.metrics.ObserveOutcome(string(kind), outcome)
}

func (s *service) observeAttempts(count int) {
	s.metrics.ObserveAttempts(count)
}

func validateTransactionInput(input RecordTransactionInput) error {
	details := map[string]string{}
	if input.Kind != KindSale && input.Kind != KindExpense {
		details["kind"] = "must be sale or expense"
	}
	if strings.TrimSpace(input.ProductID) == "" {
		details["productId"] = "is required"
	}
	if input.Quantity <= 0 {
		details["quantity"] = "must be greater than zero"
	}
	if input.UnitPrice.IsNegative() {
		details["unitPrice"] = "must not be negative"
	}
	if strings.TrimSpace(input.UserID) == "" {
		details["userId"] = "is required"
	}
	if input.TotalAmount != nil && !input.TotalAmount.IsNegative() && len(details) == 0 {
		expected := input.UnitPrice.Mul(decimal.NewFromInt(int64(input.Quantity)))
		if !input.TotalAmount.Equal(expected) {
			details["totalAmount"] = "does not match quantity * unitPrice"
		}
	} else if input.TotalAmount != nil && input.TotalAmount.IsNegative() {
		details["totalAmount"] = "must not be negative"
	}
	if len(details) > 0 {
		return errors.New(errors.CodeValidation, "invalid stock transaction").WithDetails(details)
	}
	return nil
}

func resolveTotalAmount(input RecordTransactionInput) decimal.Decimal {
	if input.TotalAmount != nil {
		return *input.TotalAmount
	}
	return input.UnitPrice.Mul(decimal.NewFromInt(int64(input.Quantity)))
}

func idempotencyReuse(entryID string) error {
	return errors.New(errors.CodeIdempotency, "entry id already used for a different transaction").
		WithDetails(map[string]string{"entryId": entryID})
}
