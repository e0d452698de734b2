package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a stocked item. StockQuantity is mutated only through the
// conditional-update path in the products repository; it never goes negative
// once committed.
type Product struct {
	ProductID     string          `gorm:"column:product_id;primaryKey"`
	Name          string          `gorm:"column:name;not null"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Rating        *float64        `gorm:"column:rating;type:numeric(3,2)"`
	StockQuantity int             `gorm:"column:stock_quantity;not null;default:0"`
	Description   *string         `gorm:"column:description"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
