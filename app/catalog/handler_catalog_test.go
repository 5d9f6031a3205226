package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/shopfront/catalog/apperrors"
	"github.com/shopfront/catalog/models"
)

// --- Mock Service ---

type MockProductService struct {
	Products []models.Product
	Err      error

	// Fields to capture call arguments
	lastCreateInput CreateProductInput
	lastUpdateInput UpdateProductInput
	lastCalledID    uint
	lastCategoryID  uint
	deletedID       uint
	attachCalled    bool
	detachCalled    bool
}

func (m *MockProductService) Create(ctx context.Context, in CreateProductInput) (*models.Product, error) {
	m.lastCreateInput = in
	if m.Err != nil {
		return nil, m.Err
	}
	p := models.Product{ID: 1, Name: in.Name, Slug: "slugged"}
	if in.Price != nil {
		p.Price = decimal.NewFromFloat(*in.Price)
	}
	return &p, nil
}

func (m *MockProductService) Update(ctx context.Context, id uint, in UpdateProductInput) (*models.Product, error) {
	m.lastCalledID = id
	m.lastUpdateInput = in
	if m.Err != nil {
		return nil, m.Err
	}
	p := models.Product{ID: id, Name: "Updated"}
	if in.Name != nil {
		p.Name = *in.Name
	}
	return &p, nil
}

func (m *MockProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	m.lastCalledID = id
	if m.Err != nil {
		return nil, m.Err
	}
	for i := range m.Products {
		if m.Products[i].ID == id {
			return &m.Products[i], nil
		}
	}
	return nil, apperrors.NotFound("product")
}

func (m *MockProductService) List(ctx context.Context) ([]models.Product, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Products, nil
}

func (m *MockProductService) Delete(ctx context.Context, id uint) error {
	m.deletedID = id
	return m.Err
}

func (m *MockProductService) AttachCategory(ctx context.Context, productID, categoryID uint) error {
	m.attachCalled = true
	m.lastCalledID = productID
	m.lastCategoryID = categoryID
	return m.Err
}

func (m *MockProductService) DetachCategory(ctx context.Context, productID, categoryID uint) error {
	m.detachCalled = true
	m.lastCalledID = productID
	m.lastCategoryID = categoryID
	return m.Err
}

func (m *MockProductService) Categories(ctx context.Context, productID uint) ([]models.Category, error) {
	m.lastCalledID = productID
	if m.Err != nil {
		return nil, m.Err
	}
	for i := range m.Products {
		if m.Products[i].ID == productID {
			return m.Products[i].Categories, nil
		}
	}
	return nil, apperrors.NotFound("product")
}

// --- Helpers ---

func newTestProduct(id uint, name, slug string, price float64) models.Product {
	return models.Product{
		ID:    id,
		Name:  name,
		Slug:  slug,
		Price: decimal.NewFromFloat(price),
	}
}

// --- Tests ---

func TestHandleList(t *testing.T) {
	allProducts := []models.Product{
		newTestProduct(1, "USB Cable", "usb-cable-ab12c", 9.99),
		newTestProduct(2, "Keyboard", "keyboard-x9y8z", 24.99),
	}

	testCases := []struct {
		name               string
		mockSetup          func() *MockProductService
		expectedStatusCode int
		checkResponse      func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name: "Success",
			mockSetup: func() *MockProductService {
				return &MockProductService{Products: allProducts}
			},
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp Response
				assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, 2, resp.Total)
				assert.Len(t, resp.Products, 2)
				assert.Equal(t, "usb-cable-ab12c", resp.Products[0].Slug)
			},
		},
		{
			name: "Empty catalog",
			mockSetup: func() *MockProductService {
				return &MockProductService{}
			},
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp Response
				assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, 0, resp.Total)
			},
		},
		{
			name: "Service error",
			mockSetup: func() *MockProductService {
				return &MockProductService{Err: errors.New("db down")}
			},
			expectedStatusCode: http.StatusInternalServerError,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var body map[string]any
				assert.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, "internal", body["kind"])
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewCatalogHandler(tc.mockSetup())
			req := httptest.NewRequest("GET", "/api/products", nil)
			rec := httptest.NewRecorder()

			handler.HandleList(rec, req)

			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.checkResponse != nil {
				tc.checkResponse(t, rec)
			}
		})
	}
}

func TestHandleGetProduct(t *testing.T) {
	allProducts := []models.Product{
		newTestProduct(1, "USB Cable", "usb-cable-ab12c", 9.99),
	}

	testCases := []struct {
		name               string
		pathID             string
		mockSetup          func() *MockProductService
		expectedStatusCode int
		checkResponse      func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:   "Success",
			pathID: "1",
			mockSetup: func() *MockProductService {
				return &MockProductService{Products: allProducts}
			},
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var p models.Product
				assert.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
				assert.Equal(t, "USB Cable", p.Name)
			},
		},
		{
			name:   "Not found",
			pathID: "42",
			mockSetup: func() *MockProductService {
				return &MockProductService{Products: allProducts}
			},
			expectedStatusCode: http.StatusNotFound,
		},
		{
			name:   "Non-numeric id",
			pathID: "abc",
			mockSetup: func() *MockProductService {
				return &MockProductService{Products: allProducts}
			},
			expectedStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name:   "Zero id",
			pathID: "0",
			mockSetup: func() *MockProductService {
				return &MockProductService{Products: allProducts}
			},
			expectedStatusCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewCatalogHandler(tc.mockSetup())
			req := httptest.NewRequest("GET", "/api/products/"+tc.pathID, nil)
			req.SetPathValue("id", tc.pathID)
			rec := httptest.NewRecorder()

			handler.HandleGet(rec, req)

			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.checkResponse != nil {
				tc.checkResponse(t, rec)
			}
		})
	}
}

func TestHandleListProductCategories(t *testing.T) {
	withCategories := newTestProduct(1, "USB Cable", "usb-cable-ab12c", 9.99)
	withCategories.Categories = []models.Category{{ID: 3, Name: "Electronics", Slug: "electronics"}}

	t.Run("Success", func(t *testing.T) {
		handler := NewCatalogHandler(&MockProductService{Products: []models.Product{withCategories}})
		req := httptest.NewRequest("GET", "/api/products/1/categories", nil)
		req.SetPathValue("id", "1")
		rec := httptest.NewRecorder()

		handler.HandleListCategories(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var cats []models.Category
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&cats))
		assert.Len(t, cats, 1)
		assert.Equal(t, "electronics", cats[0].Slug)
	})

	t.Run("Nil categories serialize as empty array", func(t *testing.T) {
		bare := newTestProduct(2, "Keyboard", "keyboard-x9y8z", 24.99)
		handler := NewCatalogHandler(&MockProductService{Products: []models.Product{bare}})
		req := httptest.NewRequest("GET", "/api/products/2/categories", nil)
		req.SetPathValue("id", "2")
		rec := httptest.NewRecorder()

		handler.HandleListCategories(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]\n", rec.Body.String())
	})
}
