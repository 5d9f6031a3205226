package models

import "time"

// CategoryProduct is the join row linking one product to one category.
// It carries no payload beyond the association timestamps.
type CategoryProduct struct {
	CategoryID uint      `gorm:"primaryKey"`
	ProductID  uint      `gorm:"primaryKey"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (CategoryProduct) TableName() string {
	return "category_product"
}
