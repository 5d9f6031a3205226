package models

import (
	"context"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopfront/catalog/apperrors"
)

// ProductsRepository persists products and their category associations.
// Every mutating method runs as a single transaction; replace-set and
// update take a FOR UPDATE lock on the product row so concurrent calls on
// the same product serialize instead of interleaving attach/detach sets.
type ProductsRepository struct {
	db *gorm.DB
}

func NewProductsRepository(db *gorm.DB) *ProductsRepository {
	return &ProductsRepository{db: db}
}

// Create inserts the product and, when categoryIDs is non-nil, reconciles
// its category set in the same transaction. A nil slice means "no category
// set supplied"; an empty one means "no categories".
func (r *ProductsRepository) Create(ctx context.Context, p *Product, categoryIDs []uint) (SyncResult, error) {
	var res SyncResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return translateErr(err, "product")
		}
		if categoryIDs == nil {
			return nil
		}
		var err error
		res, err = syncInTx(tx, p.ID, categoryIDs)
		return err
	})
	if err != nil {
		return SyncResult{}, passThrough(err, "product")
	}
	return res, nil
}

// GetByID loads a product with its categories eagerly attached.
func (r *ProductsRepository) GetByID(ctx context.Context, id uint) (*Product, error) {
	var p Product
	if err := r.db.WithContext(ctx).Preload("Categories").First(&p, id).Error; err != nil {
		return nil, translateErr(err, "product")
	}
	return &p, nil
}

// GetAll lists all products with categories eagerly loaded.
func (r *ProductsRepository) GetAll(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := r.db.WithContext(ctx).Preload("Categories").Order("products.id").Find(&products).Error; err != nil {
		return nil, translateErr(err, "product")
	}
	return products, nil
}

// Update saves the product's fields and, when categoryIDs is non-nil,
// reconciles its category set in the same transaction. Either everything
// commits or nothing does.
func (r *ProductsRepository) Update(ctx context.Context, p *Product, categoryIDs *[]uint) (SyncResult, error) {
	var res SyncResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProduct(tx, p.ID); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(p).Error; err != nil {
			return translateErr(err, "product")
		}
		if categoryIDs == nil {
			return nil
		}
		var err error
		res, err = syncInTx(tx, p.ID, *categoryIDs)
		return err
	})
	if err != nil {
		return SyncResult{}, passThrough(err, "product")
	}
	return res, nil
}

// Delete removes the product and cascades deletion of its join rows.
func (r *ProductsRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&CategoryProduct{}).Error; err != nil {
			return translateErr(err, "product")
		}
		res := tx.Delete(&Product{}, id)
		if res.Error != nil {
			return translateErr(res.Error, "product")
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("product")
		}
		return nil
	})
	return passThrough(err, "product")
}

// Attach adds a single association. Both sides must exist; re-attaching an
// existing pair is a no-op.
func (r *ProductsRepository) Attach(ctx context.Context, productID, categoryID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProduct(tx, productID); err != nil {
			return err
		}
		if err := tx.Select("id").First(&Category{}, categoryID).Error; err != nil {
			return translateErr(err, "category")
		}
		row := CategoryProduct{CategoryID: categoryID, ProductID: productID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return translateErr(err, "product")
		}
		return nil
	})
	return passThrough(err, "product")
}

// Detach removes a single association. Removing a pair that is not
// attached is a no-op.
func (r *ProductsRepository) Detach(ctx context.Context, productID, categoryID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProduct(tx, productID); err != nil {
			return err
		}
		err := tx.Where("product_id = ? AND category_id = ?", productID, categoryID).
			Delete(&CategoryProduct{}).Error
		return translateErr(err, "product")
	})
	return passThrough(err, "product")
}

// SyncCategories reconciles the product's category membership to exactly
// categoryIDs and reports how many associations were attached, detached,
// and left untouched.
func (r *ProductsRepository) SyncCategories(ctx context.Context, productID uint, categoryIDs []uint) (SyncResult, error) {
	var res SyncResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProduct(tx, productID); err != nil {
			return err
		}
		var err error
		res, err = syncInTx(tx, productID, categoryIDs)
		return err
	})
	if err != nil {
		return SyncResult{}, passThrough(err, "product")
	}
	return res, nil
}

// ExistsBySKU reports whether another product already carries sku.
// excludeID scopes the check to exclude the record's own row on update.
func (r *ProductsRepository) ExistsBySKU(ctx context.Context, sku string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Product{}).
		Where("sku = ? AND id <> ?", sku, excludeID).
		Count(&count).Error
	if err != nil {
		return false, translateErr(err, "product")
	}
	return count > 0, nil
}

// syncInTx is the replace-set algorithm shared by create-with-categories,
// update-with-categories, and the standalone sync operation. Every desired
// id must reference an existing category; this is checked before any
// mutation so a bad id leaves the association set untouched.
func syncInTx(tx *gorm.DB, productID uint, desired []uint) (SyncResult, error) {
	desired = dedupe(desired)

	if len(desired) > 0 {
		var found []uint
		if err := tx.Model(&Category{}).Where("id IN ?", desired).Pluck("id", &found).Error; err != nil {
			return SyncResult{}, translateErr(err, "category")
		}
		if missing := missingIDs(desired, found); len(missing) > 0 {
			return SyncResult{}, apperrors.Validation("unknown category ids", map[string]string{
				"categories": "unknown category ids: " + joinIDs(missing),
			})
		}
	}

	var current []uint
	if err := tx.Model(&CategoryProduct{}).Where("product_id = ?", productID).
		Pluck("category_id", &current).Error; err != nil {
		return SyncResult{}, translateErr(err, "product")
	}

	toAttach, toDetach, unchanged := diffIDs(current, desired)

	if len(toDetach) > 0 {
		if err := tx.Where("product_id = ? AND category_id IN ?", productID, toDetach).
			Delete(&CategoryProduct{}).Error; err != nil {
			return SyncResult{}, translateErr(err, "product")
		}
	}
	if len(toAttach) > 0 {
		rows := make([]CategoryProduct, len(toAttach))
		for i, id := range toAttach {
			rows[i] = CategoryProduct{CategoryID: id, ProductID: productID}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return SyncResult{}, translateErr(err, "product")
		}
	}

	return SyncResult{Attached: len(toAttach), Detached: len(toDetach), Unchanged: unchanged}, nil
}

// lockProduct takes a FOR UPDATE lock on the product row, serializing
// concurrent mutations of the same product.
func lockProduct(tx *gorm.DB, id uint) error {
	var p Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&p, id).Error
	if err != nil {
		return translateErr(err, "product")
	}
	return nil
}

// passThrough keeps already-classified errors intact and translates
// anything else (e.g. a failed commit).
func passThrough(err error, entity string) error {
	if err == nil {
		return nil
	}
	if apperrors.KindOf(err) != "" {
		return err
	}
	return translateErr(err, entity)
}

func missingIDs(desired, found []uint) []uint {
	present := make(map[uint]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	var missing []uint
	for _, id := range desired {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

func joinIDs(ids []uint) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ", ")
}
