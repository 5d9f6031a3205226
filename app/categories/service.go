package categories

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shopfront/catalog/apperrors"
	"github.com/shopfront/catalog/models"
	"github.com/shopfront/catalog/slug"
)

// CategoryStore is the persistence contract the service depends on.
type CategoryStore interface {
	Create(ctx context.Context, c *models.Category) error
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	GetAll(ctx context.Context) ([]models.Category, error)
	Update(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id uint) error
	GetProducts(ctx context.Context, id uint) ([]models.Product, error)
	ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error)
}

// CreateCategoryInput is the validated shape for category creation.
type CreateCategoryInput struct {
	Name string `json:"name" validate:"required,max=255"`
	Slug string `json:"slug" validate:"omitempty,max=255"`
}

// UpdateCategoryInput carries a partial update; only non-nil fields are
// checked and applied.
type UpdateCategoryInput struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=255"`
}

// Service orchestrates category use cases. Unlike products, the slug is
// assigned once at creation and deliberately left alone on rename.
type Service struct {
	categories CategoryStore
	validate   *validator.Validate
	log        *zap.Logger
	timeout    time.Duration
}

func NewService(categories CategoryStore, log *zap.Logger, timeout time.Duration) *Service {
	return &Service{
		categories: categories,
		validate:   validator.New(),
		log:        log,
		timeout:    timeout,
	}
}

// Create validates the name, derives the slug unless one was supplied, and
// persists the category. Name collisions fail before the write; slug
// collisions are rejected by the store's unique index.
func (s *Service) Create(ctx context.Context, in CreateCategoryInput) (*models.Category, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperrors.FromValidator(err)
	}

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	taken, err := s.categories.ExistsByName(opCtx, in.Name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.Conflict("category name already exists", "name")
	}

	c := &models.Category{Name: in.Name, Slug: in.Slug}
	if c.Slug == "" {
		c.Slug = slug.Make(in.Name)
	}

	if err := s.categories.Create(opCtx, c); err != nil {
		return nil, err
	}

	s.log.Info("category created", zap.Uint("category_id", c.ID), zap.String("slug", c.Slug))
	return c, nil
}

// Update renames a category. The slug is not re-derived.
func (s *Service) Update(ctx context.Context, id uint, in UpdateCategoryInput) (*models.Category, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperrors.FromValidator(err)
	}

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	c, err := s.categories.GetByID(opCtx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil && *in.Name != c.Name {
		taken, err := s.categories.ExistsByName(opCtx, *in.Name, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperrors.Conflict("category name already exists", "name")
		}
		c.Name = *in.Name
	}

	if err := s.categories.Update(opCtx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get loads a category with its products.
func (s *Service) Get(ctx context.Context, id uint) (*models.Category, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.categories.GetByID(opCtx, id)
}

// List returns all categories with their products.
func (s *Service) List(ctx context.Context) ([]models.Category, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.categories.GetAll(opCtx)
}

// Delete removes the category and all its association rows.
func (s *Service) Delete(ctx context.Context, id uint) error {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.categories.Delete(opCtx, id)
}

// Products lists the products attached to a category.
func (s *Service) Products(ctx context.Context, id uint) ([]models.Product, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.categories.GetProducts(opCtx, id)
}

func (s *Service) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
