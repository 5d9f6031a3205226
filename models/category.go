package models

import "time"

// Category groups products. Name is unique across all categories; the slug
// is assigned once at creation and never re-derived on rename.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Slug      string    `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Products []Product `gorm:"many2many:category_product" json:"products,omitempty"`
}

func (c *Category) TableName() string {
	return "categories"
}
