package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense records an inbound (restocking) stock transaction. Same shape as
// Sale, opposite sign of effect on the product's stock quantity.
type Expense struct {
	ExpenseID   string          `gorm:"column:expense_id;primaryKey"`
	ProductID   string          `gorm:"column:product_id;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:numeric(14,2);not null"`
	Description *string         `gorm:"column:description"`
	UserID      string          `gorm:"column:user_id;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
