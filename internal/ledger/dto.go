package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
)

type SaleDTO struct {
	SaleID      string          `json:"saleId"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Description *string         `json:"description,omitempty"`
	UserID      string          `json:"userId"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type ExpenseDTO struct {
	ExpenseID   string          `json:"expenseId"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Description *string         `json:"description,omitempty"`
	UserID      string          `json:"userId"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func NewSaleDTO(sale *models.Sale) SaleDTO {
	return SaleDTO{
		SaleID:      sale.SaleID,
		ProductID:   sale.ProductID,
		ProductName: sale.ProductName,
		Quantity:    sale.Quantity,
		UnitPrice:   sale.UnitPrice,
		TotalAmount: sale.TotalAmount,
		Description: sale.Description,
		UserID:      sale.UserID,
		CreatedAt:   sale.CreatedAt,
	}
}

func NewSaleDTOs(sales []models.Sale) []SaleDTO {
	out := make([]SaleDTO, 0, len(sales))
	for i := range sales {
		out = append(out, NewSaleDTO(&sales[i]))
	}
	return out
}

func NewExpenseDTO(expense *models.Expense) ExpenseDTO {
	return ExpenseDTO{
		ExpenseID:   expense.ExpenseID,
		ProductID:   expense.ProductID,
		ProductName: expense.ProductName,
		Quantity:    expense.Quantity,
		UnitPrice:   expense.UnitPrice,
		TotalAmount: expense.TotalAmount,
		Description: expense.Description,
		UserID:      expense.UserID,
		CreatedAt:   expense.CreatedAt,
	}
}

func NewExpenseDTOs(expenses []models.Expense) []ExpenseDTO {
	out := make([]ExpenseDTO, 0, len(expenses))
	for i := range expenses {
		out = append(out, NewExpenseDTO(&expenses[i]))
	}
	return out
}
