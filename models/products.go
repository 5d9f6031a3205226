package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. The slug carries a random suffix and is
// regenerated whenever the name changes, so it stays practically unique
// without a uniqueness constraint. SKU is nullable so several products may
// omit it while present values stay unique.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Slug        string          `gorm:"size:255;not null" json:"slug"`
	SKU         *string         `gorm:"column:sku;size:50;uniqueIndex" json:"sku"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock       int             `gorm:"not null" json:"stock"`
	Description *string         `gorm:"type:text" json:"description"`
	Active      bool            `gorm:"not null;default:true" json:"active"`
	Image       *string         `json:"image"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Categories []Category `gorm:"many2many:category_product" json:"categories,omitempty"`
}

func (p *Product) TableName() string {
	return "products"
}
