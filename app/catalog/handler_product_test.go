package catalog

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopfront/catalog/apperrors"
)

func TestHandleCreateProduct(t *testing.T) {
	testCases := []struct {
		name               string
		body               string
		mockSetup          func() *MockProductService
		expectedStatusCode int
		checkCalls         func(t *testing.T, svc *MockProductService)
	}{
		{
			name: "Success",
			body: `{"name":"USB Cable","price":9.99,"stock":50,"categories":[1,2]}`,
			mockSetup: func() *MockProductService {
				return &MockProductService{}
			},
			expectedStatusCode: http.StatusCreated,
			checkCalls: func(t *testing.T, svc *MockProductService) {
				assert.Equal(t, "USB Cable", svc.lastCreateInput.Name)
				require.NotNil(t, svc.lastCreateInput.Price)
				assert.Equal(t, 9.99, *svc.lastCreateInput.Price)
				require.NotNil(t, svc.lastCreateInput.Categories)
				assert.Equal(t, []uint{1, 2}, *svc.lastCreateInput.Categories)
			},
		},
		{
			name: "Invalid JSON",
			body: `{"name":`,
			mockSetup: func() *MockProductService {
				return &MockProductService{}
			},
			expectedStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name: "Validation error from service",
			body: `{}`,
			mockSetup: func() *MockProductService {
				return &MockProductService{Err: apperrors.Validation("validation failed", map[string]string{"name": "is required"})}
			},
			expectedStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name: "Duplicate sku maps to conflict",
			body: `{"name":"Cable","sku":"SKU-1","price":1,"stock":1}`,
			mockSetup: func() *MockProductService {
				return &MockProductService{Err: apperrors.Conflict("product sku already exists", "sku")}
			},
			expectedStatusCode: http.StatusConflict,
		},
		{
			name: "Store timeout maps to 504",
			body: `{"name":"Cable","price":1,"stock":1}`,
			mockSetup: func() *MockProductService {
				return &MockProductService{Err: apperrors.Timeout("product create", nil)}
			},
			expectedStatusCode: http.StatusGatewayTimeout,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := tc.mockSetup()
			handler := NewCatalogHandler(svc)
			req := httptest.NewRequest("POST", "/api/products", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			handler.HandleCreate(rec, req)

			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.checkCalls != nil {
				tc.checkCalls(t, svc)
			}
		})
	}
}

func TestHandleCreateProduct_Multipart(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "USB Cable"))
	require.NoError(t, mw.WriteField("price", "9.99"))
	require.NoError(t, mw.WriteField("stock", "50"))
	require.NoError(t, mw.WriteField("categories", "1,2"))
	require.NoError(t, mw.WriteField("categories", "3"))
	part, err := mw.CreateFormFile("image", "cable.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	svc := &MockProductService{}
	handler := NewCatalogHandler(svc)
	req := httptest.NewRequest("POST", "/api/products", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	handler.HandleCreate(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "USB Cable", svc.lastCreateInput.Name)
	require.NotNil(t, svc.lastCreateInput.Price)
	assert.Equal(t, 9.99, *svc.lastCreateInput.Price)
	require.NotNil(t, svc.lastCreateInput.Categories)
	assert.Equal(t, []uint{1, 2, 3}, *svc.lastCreateInput.Categories)
	require.NotNil(t, svc.lastCreateInput.Image)
	assert.Equal(t, "cable.png", svc.lastCreateInput.Image.Filename)
	assert.Equal(t, int64(len("fake image bytes")), svc.lastCreateInput.Image.Size)
}

func TestHandleCreateProduct_MultipartBadPrice(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Cable"))
	require.NoError(t, mw.WriteField("price", "cheap"))
	require.NoError(t, mw.Close())

	handler := NewCatalogHandler(&MockProductService{})
	req := httptest.NewRequest("POST", "/api/products", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	handler.HandleCreate(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "must be a number", resp.Fields["price"])
}

func TestHandleUpdateProduct(t *testing.T) {
	testCases := []struct {
		name               string
		pathID             string
		body               string
		mockSetup          func() *MockProductService
		expectedStatusCode int
		checkCalls         func(t *testing.T, svc *MockProductService)
	}{
		{
			name:   "Success",
			pathID: "7",
			body:   `{"name":"USB-C Cable"}`,
			mockSetup: func() *MockProductService {
				return &MockProductService{}
			},
			expectedStatusCode: http.StatusOK,
			checkCalls: func(t *testing.T, svc *MockProductService) {
				assert.Equal(t, uint(7), svc.lastCalledID)
				require.NotNil(t, svc.lastUpdateInput.Name)
				assert.Equal(t, "USB-C Cable", *svc.lastUpdateInput.Name)
				assert.Nil(t, svc.lastUpdateInput.Categories, "omitted categories stay nil")
			},
		},
		{
			name:   "Empty category list clears the set",
			pathID: "7",
			body:   `{"categories":[]}`,
			mockSetup: func() *MockProductService {
				return &MockProductService{}
			},
			expectedStatusCode: http.StatusOK,
			checkCalls: func(t *testing.T, svc *MockProductService) {
				require.NotNil(t, svc.lastUpdateInput.Categories)
				assert.Empty(t, *svc.lastUpdateInput.Categories)
			},
		},
		{
			name:   "Not found",
			pathID: "42",
			body:   `{"name":"Ghost"}`,
			mockSetup: func() *MockProductService {
				return &MockProductService{Err: apperrors.NotFound("product")}
			},
			expectedStatusCode: http.StatusNotFound,
		},
		{
			name:   "Bad id",
			pathID: "abc",
			body:   `{}`,
			mockSetup: func() *MockProductService {
				return &MockProductService{}
			},
			expectedStatusCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := tc.mockSetup()
			handler := NewCatalogHandler(svc)
			req := httptest.NewRequest("PUT", "/api/products/"+tc.pathID, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			req.SetPathValue("id", tc.pathID)
			rec := httptest.NewRecorder()

			handler.HandleUpdate(rec, req)

			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.checkCalls != nil {
				tc.checkCalls(t, svc)
			}
		})
	}
}

func TestHandleDeleteProduct(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := &MockProductService{}
		handler := NewCatalogHandler(svc)
		req := httptest.NewRequest("DELETE", "/api/products/3", nil)
		req.SetPathValue("id", "3")
		rec := httptest.NewRecorder()

		handler.HandleDelete(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, uint(3), svc.deletedID)
		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "Product deleted successfully", body["message"])
	})

	t.Run("Not found", func(t *testing.T) {
		svc := &MockProductService{Err: apperrors.NotFound("product")}
		handler := NewCatalogHandler(svc)
		req := httptest.NewRequest("DELETE", "/api/products/42", nil)
		req.SetPathValue("id", "42")
		rec := httptest.NewRecorder()

		handler.HandleDelete(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleAttachDetachCategory(t *testing.T) {
	t.Run("Attach", func(t *testing.T) {
		svc := &MockProductService{}
		handler := NewCatalogHandler(svc)
		req := httptest.NewRequest("POST", "/api/products/3/categories/5", nil)
		req.SetPathValue("id", "3")
		req.SetPathValue("categoryID", "5")
		rec := httptest.NewRecorder()

		handler.HandleAttachCategory(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, svc.attachCalled)
		assert.Equal(t, uint(3), svc.lastCalledID)
		assert.Equal(t, uint(5), svc.lastCategoryID)
	})

	t.Run("Detach", func(t *testing.T) {
		svc := &MockProductService{}
		handler := NewCatalogHandler(svc)
		req := httptest.NewRequest("DELETE", "/api/products/3/categories/5", nil)
		req.SetPathValue("id", "3")
		req.SetPathValue("categoryID", "5")
		rec := httptest.NewRecorder()

		handler.HandleDetachCategory(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, svc.detachCalled)
	})

	t.Run("Unknown category", func(t *testing.T) {
		svc := &MockProductService{Err: apperrors.NotFound("category")}
		handler := NewCatalogHandler(svc)
		req := httptest.NewRequest("POST", "/api/products/3/categories/99", nil)
		req.SetPathValue("id", "3")
		req.SetPathValue("categoryID", "99")
		rec := httptest.NewRecorder()

		handler.HandleAttachCategory(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Bad category id", func(t *testing.T) {
		svc := &MockProductService{}
		handler := NewCatalogHandler(svc)
		req := httptest.NewRequest("POST", "/api/products/3/categories/xyz", nil)
		req.SetPathValue("id", "3")
		req.SetPathValue("categoryID", "xyz")
		rec := httptest.NewRecorder()

		handler.HandleAttachCategory(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.False(t, svc.attachCalled)
	})
}
