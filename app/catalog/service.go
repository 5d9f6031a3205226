package catalog

import (
	"context"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopfront/catalog/apperrors"
	"github.com/shopfront/catalog/models"
	"github.com/shopfront/catalog/slug"
	"github.com/shopfront/catalog/storage"
)

// ProductStore is the persistence contract the service depends on.
type ProductStore interface {
	Create(ctx context.Context, p *models.Product, categoryIDs []uint) (models.SyncResult, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	GetAll(ctx context.Context) ([]models.Product, error)
	Update(ctx context.Context, p *models.Product, categoryIDs *[]uint) (models.SyncResult, error)
	Delete(ctx context.Context, id uint) error
	Attach(ctx context.Context, productID, categoryID uint) error
	Detach(ctx context.Context, productID, categoryID uint) error
	SyncCategories(ctx context.Context, productID uint, categoryIDs []uint) (models.SyncResult, error)
	ExistsBySKU(ctx context.Context, sku string, excludeID uint) (bool, error)
}

// ImageUpload carries an uploaded file into the service. The service never
// reads the bytes itself; they flow straight into the storage collaborator.
type ImageUpload struct {
	Reader   io.Reader
	Size     int64
	Filename string
}

// CreateProductInput is the validated shape for product creation.
// Categories distinguishes "not supplied" (nil) from "empty set".
type CreateProductInput struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Slug        string   `json:"slug" validate:"omitempty,max=255"`
	SKU         *string  `json:"sku" validate:"omitempty,max=50"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Stock       *int     `json:"stock" validate:"required,gte=0"`
	Description *string  `json:"description"`
	Active      *bool    `json:"active"`
	Categories  *[]uint  `json:"categories"`

	Image *ImageUpload `json:"-"`
}

// UpdateProductInput carries a partial update; only non-nil fields are
// checked and applied.
type UpdateProductInput struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=255"`
	SKU         *string  `json:"sku" validate:"omitempty,max=50"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Stock       *int     `json:"stock" validate:"omitempty,gte=0"`
	Description *string  `json:"description"`
	Active      *bool    `json:"active"`
	Categories  *[]uint  `json:"categories"`

	Image *ImageUpload `json:"-"`
}

// Service orchestrates product use cases: validate input, assign the slug,
// persist, and reconcile category links.
type Service struct {
	products ProductStore
	files    storage.Storage
	validate *validator.Validate
	log      *zap.Logger
	timeout  time.Duration
}

func NewService(products ProductStore, files storage.Storage, log *zap.Logger, timeout time.Duration) *Service {
	return &Service{
		products: products,
		files:    files,
		validate: validator.New(),
		log:      log,
		timeout:  timeout,
	}
}

// Create validates the input, stores an optional image, assigns a suffixed
// slug, and persists the product together with its category set.
func (s *Service) Create(ctx context.Context, in CreateProductInput) (*models.Product, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperrors.FromValidator(err)
	}

	if in.SKU != nil && *in.SKU == "" {
		in.SKU = nil
	}
	if in.SKU != nil {
		taken, err := s.existsBySKU(ctx, *in.SKU, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperrors.Conflict("product sku already exists", "sku")
		}
	}

	p := &models.Product{
		Name:        in.Name,
		SKU:         in.SKU,
		Price:       decimal.NewFromFloat(*in.Price),
		Stock:       *in.Stock,
		Description: in.Description,
		Active:      true,
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	if in.Slug != "" {
		p.Slug = in.Slug
	} else {
		p.Slug = slug.MakeUnique(in.Name)
	}

	if in.Image != nil {
		ref, err := s.files.Store(ctx, in.Image.Reader, in.Image.Size, in.Image.Filename)
		if err != nil {
			return nil, err
		}
		p.Image = &ref
	}

	var categoryIDs []uint
	if in.Categories != nil {
		categoryIDs = *in.Categories
		if categoryIDs == nil {
			categoryIDs = []uint{}
		}
	}

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	res, err := s.products.Create(opCtx, p, categoryIDs)
	if err != nil {
		s.discardAsset(ctx, p.Image)
		return nil, err
	}

	s.log.Info("product created",
		zap.Uint("product_id", p.ID),
		zap.String("slug", p.Slug),
		zap.Int("categories_attached", res.Attached),
	)
	return s.products.GetByID(opCtx, p.ID)
}

// Update applies a partial update. A name change re-runs slug assignment
// with a fresh random suffix; a new image replaces the stored asset and the
// old one is removed best-effort.
func (s *Service) Update(ctx context.Context, id uint, in UpdateProductInput) (*models.Product, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperrors.FromValidator(err)
	}

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	p, err := s.products.GetByID(opCtx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil && *in.Name != p.Name {
		p.Name = *in.Name
		p.Slug = slug.MakeUnique(p.Name)
	}
	if in.SKU != nil {
		if *in.SKU == "" {
			// empty sku clears the field; NULLs never collide
			p.SKU = nil
		} else {
			taken, err := s.existsBySKU(ctx, *in.SKU, id)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, apperrors.Conflict("product sku already exists", "sku")
			}
			p.SKU = in.SKU
		}
	}
	if in.Price != nil {
		p.Price = decimal.NewFromFloat(*in.Price)
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Description != nil {
		p.Description = in.Description
	}
	if in.Active != nil {
		p.Active = *in.Active
	}

	var oldImage *string
	if in.Image != nil {
		ref, err := s.files.Store(ctx, in.Image.Reader, in.Image.Size, in.Image.Filename)
		if err != nil {
			return nil, err
		}
		oldImage = p.Image
		p.Image = &ref
	}

	res, err := s.products.Update(opCtx, p, in.Categories)
	if err != nil {
		if in.Image != nil {
			s.discardAsset(ctx, p.Image)
		}
		return nil, err
	}

	// The replaced asset is gone from the record; losing the file itself
	// is not worth failing the update over.
	if oldImage != nil {
		if err := s.files.Remove(ctx, *oldImage); err != nil {
			s.log.Warn("failed to remove replaced image",
				zap.Uint("product_id", id),
				zap.String("ref", *oldImage),
				zap.Error(err),
			)
		}
	}

	if in.Categories != nil {
		s.log.Info("category links reconciled",
			zap.Uint("product_id", id),
			zap.Int("attached", res.Attached),
			zap.Int("detached", res.Detached),
			zap.Int("unchanged", res.Unchanged),
		)
	}
	return s.products.GetByID(opCtx, id)
}

// Get loads a product with its categories.
func (s *Service) Get(ctx context.Context, id uint) (*models.Product, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.products.GetByID(opCtx, id)
}

// List returns all products with their categories.
func (s *Service) List(ctx context.Context) ([]models.Product, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.products.GetAll(opCtx)
}

// Delete removes the product and all its association rows.
func (s *Service) Delete(ctx context.Context, id uint) error {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.products.Delete(opCtx, id)
}

// AttachCategory links a single category to the product.
func (s *Service) AttachCategory(ctx context.Context, productID, categoryID uint) error {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.products.Attach(opCtx, productID, categoryID)
}

// DetachCategory unlinks a single category from the product.
func (s *Service) DetachCategory(ctx context.Context, productID, categoryID uint) error {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.products.Detach(opCtx, productID, categoryID)
}

// Categories lists the categories attached to a product.
func (s *Service) Categories(ctx context.Context, productID uint) ([]models.Category, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	p, err := s.products.GetByID(opCtx, productID)
	if err != nil {
		return nil, err
	}
	return p.Categories, nil
}

func (s *Service) existsBySKU(ctx context.Context, sku string, excludeID uint) (bool, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.products.ExistsBySKU(opCtx, sku, excludeID)
}

// discardAsset removes an asset stored for a write that never committed.
func (s *Service) discardAsset(ctx context.Context, ref *string) {
	if ref == nil {
		return
	}
	if err := s.files.Remove(ctx, *ref); err != nil {
		s.log.Warn("failed to remove orphaned asset", zap.String("ref", *ref), zap.Error(err))
	}
}

func (s *Service) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
