package models

import (
	"context"

	"gorm.io/gorm"

	"github.com/shopfront/catalog/apperrors"
)

// CategoriesRepository persists categories. Deletion cascades the
// category's join rows so no orphaned associations survive.
type CategoriesRepository struct {
	db *gorm.DB
}

func NewCategoriesRepository(db *gorm.DB) *CategoriesRepository {
	return &CategoriesRepository{db: db}
}

func (r *CategoriesRepository) Create(ctx context.Context, c *Category) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return translateErr(err, "category")
	}
	return nil
}

// GetByID loads a category with its products eagerly attached.
func (r *CategoriesRepository) GetByID(ctx context.Context, id uint) (*Category, error) {
	var c Category
	if err := r.db.WithContext(ctx).Preload("Products").First(&c, id).Error; err != nil {
		return nil, translateErr(err, "category")
	}
	return &c, nil
}

// GetAll lists all categories with their products eagerly loaded.
func (r *CategoriesRepository) GetAll(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := r.db.WithContext(ctx).Preload("Products").Order("categories.id").Find(&categories).Error; err != nil {
		return nil, translateErr(err, "category")
	}
	return categories, nil
}

func (r *CategoriesRepository) Update(ctx context.Context, c *Category) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Category
		if err := tx.Select("id").First(&existing, c.ID).Error; err != nil {
			return translateErr(err, "category")
		}
		return translateErr(tx.Save(c).Error, "category")
	})
	return passThrough(err, "category")
}

// Delete removes the category and cascades deletion of its join rows.
func (r *CategoriesRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("category_id = ?", id).Delete(&CategoryProduct{}).Error; err != nil {
			return translateErr(err, "category")
		}
		res := tx.Delete(&Category{}, id)
		if res.Error != nil {
			return translateErr(res.Error, "category")
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("category")
		}
		return nil
	})
	return passThrough(err, "category")
}

// GetProducts lists the products attached to a category.
func (r *CategoriesRepository) GetProducts(ctx context.Context, id uint) ([]Product, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Products, nil
}

// ExistsByName reports whether another category already carries name.
// excludeID scopes the check to exclude the record's own row on rename.
func (r *CategoriesRepository) ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Category{}).
		Where("name = ? AND id <> ?", name, excludeID).
		Count(&count).Error
	if err != nil {
		return false, translateErr(err, "category")
	}
	return count > 0, nil
}
