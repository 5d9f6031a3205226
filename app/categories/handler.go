package categories

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopfront/catalog/apperrors"
	"github.com/shopfront/catalog/models"
)

// CategoryService is the use-case contract the handler depends on.
type CategoryService interface {
	Create(ctx context.Context, in CreateCategoryInput) (*models.Category, error)
	Update(ctx context.Context, id uint, in UpdateCategoryInput) (*models.Category, error)
	Get(ctx context.Context, id uint) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Delete(ctx context.Context, id uint) error
	Products(ctx context.Context, id uint) ([]models.Product, error)
}

// CategoryHandler exposes category endpoints as JSON.
type CategoryHandler struct {
	svc CategoryService
}

func NewCategoryHandler(svc CategoryService) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

func (h *CategoryHandler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.List(r.Context())
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *CategoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	category, err := h.svc.Get(r.Context(), id)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in CreateCategoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apperrors.WriteJSON(w, apperrors.Validation("invalid JSON body", nil))
		return
	}

	category, err := h.svc.Create(r.Context(), in)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (h *CategoryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var in UpdateCategoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apperrors.WriteJSON(w, apperrors.Validation("invalid JSON body", nil))
		return
	}

	category, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Category deleted successfully"})
}

func (h *CategoryHandler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	products, err := h.svc.Products(r.Context(), id)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil || id == 0 {
		apperrors.WriteJSON(w, apperrors.Validation("validation failed", map[string]string{
			"id": "must be a positive integer",
		}))
		return 0, false
	}
	return uint(id), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
