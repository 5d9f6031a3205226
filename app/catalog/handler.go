package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopfront/catalog/apperrors"
	"github.com/shopfront/catalog/models"
)

// maxUploadBytes caps multipart form parsing; product images are small.
const maxUploadBytes = 10 << 20

// Response is the JSON shape for product listings.
type Response struct {
	Total    int              `json:"total"`
	Products []models.Product `json:"products"`
}

// ProductService is the use-case contract the handler depends on.
type ProductService interface {
	Create(ctx context.Context, in CreateProductInput) (*models.Product, error)
	Update(ctx context.Context, id uint, in UpdateProductInput) (*models.Product, error)
	Get(ctx context.Context, id uint) (*models.Product, error)
	List(ctx context.Context) ([]models.Product, error)
	Delete(ctx context.Context, id uint) error
	AttachCategory(ctx context.Context, productID, categoryID uint) error
	DetachCategory(ctx context.Context, productID, categoryID uint) error
	Categories(ctx context.Context, productID uint) ([]models.Category, error)
}

// CatalogHandler exposes product endpoints as JSON.
type CatalogHandler struct {
	svc ProductService
}

func NewCatalogHandler(svc ProductService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

func (h *CatalogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.List(r.Context())
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Total: len(products), Products: products})
}

func (h *CatalogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	product, err := h.svc.Get(r.Context(), id)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in CreateProductInput
	if isMultipart(r) {
		parsed, err := createInputFromForm(r)
		if err != nil {
			apperrors.WriteJSON(w, err)
			return
		}
		in = parsed
	} else if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apperrors.WriteJSON(w, apperrors.Validation("invalid JSON body", nil))
		return
	}

	product, err := h.svc.Create(r.Context(), in)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *CatalogHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var in UpdateProductInput
	if isMultipart(r) {
		parsed, err := updateInputFromForm(r)
		if err != nil {
			apperrors.WriteJSON(w, err)
			return
		}
		in = parsed
	} else if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apperrors.WriteJSON(w, apperrors.Validation("invalid JSON body", nil))
		return
	}

	product, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

func (h *CatalogHandler) HandleAttachCategory(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	categoryID, ok := pathID(w, r, "categoryID")
	if !ok {
		return
	}
	if err := h.svc.AttachCategory(r.Context(), productID, categoryID); err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Category attached successfully"})
}

func (h *CatalogHandler) HandleDetachCategory(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	categoryID, ok := pathID(w, r, "categoryID")
	if !ok {
		return
	}
	if err := h.svc.DetachCategory(r.Context(), productID, categoryID); err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Category detached successfully"})
}

func (h *CatalogHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	categories, err := h.svc.Categories(r.Context(), id)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// createInputFromForm builds the create input from a multipart form, the
// path browsers take when the request carries an image file.
func createInputFromForm(r *http.Request) (CreateProductInput, error) {
	var in CreateProductInput
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return in, apperrors.Validation("invalid multipart form", nil)
	}

	in.Name = r.FormValue("name")
	in.Slug = r.FormValue("slug")
	if v := r.FormValue("sku"); v != "" {
		in.SKU = &v
	}
	if v := r.FormValue("description"); v != "" {
		in.Description = &v
	}

	if v := r.FormValue("price"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return in, apperrors.Validation("validation failed", map[string]string{"price": "must be a number"})
		}
		in.Price = &f
	}
	if v := r.FormValue("stock"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, apperrors.Validation("validation failed", map[string]string{"stock": "must be an integer"})
		}
		in.Stock = &n
	}
	if v := r.FormValue("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return in, apperrors.Validation("validation failed", map[string]string{"active": "must be a boolean"})
		}
		in.Active = &b
	}

	if values, present := r.MultipartForm.Value["categories"]; present {
		ids, err := parseIDList(values)
		if err != nil {
			return in, err
		}
		in.Categories = &ids
	}

	image, err := formImage(r)
	if err != nil {
		return in, err
	}
	in.Image = image
	return in, nil
}

// updateInputFromForm builds the partial update input from a multipart
// form; only fields present in the form are set.
func updateInputFromForm(r *http.Request) (UpdateProductInput, error) {
	var in UpdateProductInput
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return in, apperrors.Validation("invalid multipart form", nil)
	}
	form := r.MultipartForm.Value

	if v, present := formField(form, "name"); present {
		in.Name = &v
	}
	if v, present := formField(form, "sku"); present {
		in.SKU = &v
	}
	if v, present := formField(form, "description"); present {
		in.Description = &v
	}
	if v, present := formField(form, "price"); present {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return in, apperrors.Validation("validation failed", map[string]string{"price": "must be a number"})
		}
		in.Price = &f
	}
	if v, present := formField(form, "stock"); present {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, apperrors.Validation("validation failed", map[string]string{"stock": "must be an integer"})
		}
		in.Stock = &n
	}
	if v, present := formField(form, "active"); present {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return in, apperrors.Validation("validation failed", map[string]string{"active": "must be a boolean"})
		}
		in.Active = &b
	}
	if values, present := form["categories"]; present {
		ids, err := parseIDList(values)
		if err != nil {
			return in, err
		}
		in.Categories = &ids
	}

	image, err := formImage(r)
	if err != nil {
		return in, err
	}
	in.Image = image
	return in, nil
}

func formField(form map[string][]string, key string) (string, bool) {
	values, present := form[key]
	if !present || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// parseIDList accepts repeated fields and comma-separated lists. An empty
// value yields the empty set, clearing all associations.
func parseIDList(values []string) ([]uint, error) {
	ids := []uint{}
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 32)
			if err != nil {
				return nil, apperrors.Validation("validation failed", map[string]string{
					"categories": "must be a list of category ids",
				})
			}
			ids = append(ids, uint(id))
		}
	}
	return ids, nil
}

func formImage(r *http.Request) (*ImageUpload, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Validation("validation failed", map[string]string{"image": "must be a file upload"})
	}
	return &ImageUpload{Reader: file, Size: header.Size, Filename: header.Filename}, nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// pathID parses a numeric path segment, writing the error response itself
// when the value is unusable.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw := r.PathValue(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		apperrors.WriteJSON(w, apperrors.Validation("validation failed", map[string]string{
			name: "must be a positive integer",
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
