package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable item tracked in stock.
type Product struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CategoryID  int64           `json:"category_id"`
	UnitID      int64           `json:"unit_id"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Stock       int64           `json:"stock"`
	MinStock    int64           `json:"min_stock"`
	ImagePath   string          `json:"image_path"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Joined display fields, populated on reads.
	CategoryName     string `json:"category_name,omitempty"`
	UnitName         string `json:"unit_name,omitempty"`
	UnitAbbreviation string `json:"unit_abbreviation,omitempty"`
}

// LowStock reports whether stock on hand has fallen to or below the
// configured minimum.
func (p Product) LowStock() bool {
	return p.MinStock > 0 && p.Stock <= p.MinStock
}
