package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/stockroomhq/stockroom-backend/api/responses"
	"github.com/stockroomhq/stockroom-backend/api/validators"
	ledgersvc "github.com/stockroomhq/stockroom-backend/internal/ledger"
	productsvc "github.com/stockroomhq/stockroom-backend/internal/products"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
)

func ListSales(svc ledgersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		rows, err := svc.ListSales(r.Context(), r.URL.Query().Get("search"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ledgersvc.NewSaleDTOs(rows))
	}
}

func ListExpenses(svc ledgersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		rows, err := svc.ListExpenses(r.Context(), r.URL.Query().Get("search"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ledgersvc.NewExpenseDTOs(rows))
	}
}

type createSaleRequest struct {
	SaleID      *string          `json:"saleId,omitempty"`
	ProductID   string           `json:"productId" validate:"required"`
	Quantity    int              `json:"quantity" validate:"required,min=1"`
	UnitPrice   decimal.Decimal  `json:"unitPrice"`
	TotalAmount *decimal.Decimal `json:"totalAmount,omitempty"`
	Description *string          `json:"description,omitempty"`
	UserID      string           `json:"userId" validate:"required"`
}

type createExpenseRequest struct {
	ExpenseID   *string          `json:"expenseId,omitempty"`
	ProductID   string           `json:"productId" validate:"required"`
	Quantity    int              `json:"quantity" validate:"required,min=1"`
	UnitPrice   decimal.Decimal  `json:"unitPrice"`
	TotalAmount *decimal.Decimal `json:"totalAmount,omitempty"`
	Description *string          `json:"description,omitempty"`
	UserID      string           `json:"userId" validate:"required"`
}

type saleResponse struct {
	Sale     ledgersvc.SaleDTO      `json:"sale"`
	Product  *productsvc.ProductDTO `json:"product,omitempty"`
	Replayed bool                   `json:"replayed"`
}

type expenseResponse struct {
	Expense  ledgersvc.ExpenseDTO   `json:"expense"`
	Product  *productsvc.ProductDTO `json:"product,omitempty"`
	Replayed bool                   `json:"replayed"`
}

func productSnapshot(committed *ledgersvc.CommittedTransaction) *productsvc.ProductDTO {
	return productsvc.NewProductDTO(committed.Product)
}

// CreateSale records an outbound stock transaction through the coordinator.
func CreateSale(svc ledgersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		var payload createSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := ledgersvc.RecordTransactionInput{
			Kind:        ledgersvc.KindSale,
			ProductID:   payload.ProductID,
			Quantity:    payload.Quantity,
			UnitPrice:   payload.UnitPrice,
			TotalAmount: payload.TotalAmount,
			Description: payload.Description,
			UserID:      payload.UserID,
		}
		if payload.SaleID != nil {
			input.EntryID = *payload.SaleID
		}

		committed, err := svc.RecordTransaction(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := saleResponse{
			Sale:     ledgersvc.NewSaleDTO(committed.Sale),
			Replayed: committed.Replayed,
		}
		if committed.Product != nil {
			resp.Product = productSnapshot(committed)
		}
		responses.WriteSuccessStatus(w, commitStatus(committed), resp)
	}
}

// CreateExpense records an inbound (restocking) transaction.
func CreateExpense(svc ledgersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		var payload createExpenseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := ledgersvc.RecordTransactionInput{
			Kind:        ledgersvc.KindExpense,
			ProductID:   payload.ProductID,
			Quantity:    payload.Quantity,
			UnitPrice:   payload.UnitPrice,
			TotalAmount: payload.TotalAmount,
			Description: payload.Description,
			UserID:      payload.UserID,
		}
		if payload.ExpenseID != nil {
			input.EntryID = *payload.ExpenseID
		}

		committed, err := svc.RecordTransaction(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := expenseResponse{
			Expense:  ledgersvc.NewExpenseDTO(committed.Expense),
			Replayed: committed.Replayed,
		}
		if committed.Product != nil {
			resp.Product = productSnapshot(committed)
		}
		responses.WriteSuccessStatus(w, commitStatus(committed), resp)
	}
}

func commitStatus(committed *ledgersvc.CommittedTransaction) int {
	if committed.Replayed {
		return http.StatusOK
	}
	return http.StatusCreated
}
