package controller

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/liherfashion/inventory-admin/internal/app/repository"
	"github.com/liherfashion/inventory-admin/internal/app/service"
	apperrors "github.com/liherfashion/inventory-admin/internal/errors"
	"github.com/liherfashion/inventory-admin/internal/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func (e *controllerEnv) createProduct(t *testing.T, name, reference string) uint {
	t.Helper()
	w := e.do(t, http.MethodPost, "/products", gin.H{
		"name":        name,
		"reference":   reference,
		"category_id": e.category.ID,
		"price":       29.5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp productResponse
	decode(t, w, &resp)
	return resp.Product.ID
}

func TestProductController_CRUD(t *testing.T) {
	env := setupControllerTest(t)

	id := env.createProduct(t, "Camisa Lino", "cl-01")
	path := "/products/" + strconv.FormatUint(uint64(id), 10)

	t.Run("get", func(t *testing.T) {
		w := env.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp productResponse
		decode(t, w, &resp)
		assert.Equal(t, "CL-01", resp.Product.Reference)
		assert.Equal(t, "29.5", resp.Product.Price.String())
	})

	t.Run("duplicate reference", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/products", gin.H{"name": "Otra", "reference": "CL-01"})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, apperrors.ProductReferenceExists, errorCode(t, w))
	})

	t.Run("missing fields", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/products", gin.H{"name": "Otra"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperrors.ValidationInvalidInput, errorCode(t, w))
	})

	t.Run("update", func(t *testing.T) {
		w := env.do(t, http.MethodPut, path, gin.H{"name": "Camisa Lino Blanca", "reference": "CL-01", "status": "inactive"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp productResponse
		decode(t, w, &resp)
		assert.Equal(t, "Camisa Lino Blanca", resp.Product.Name)
	})

	t.Run("list", func(t *testing.T) {
		env.createProduct(t, "Pantalon", "PA-01")
		w := env.do(t, http.MethodGet, "/products?search=lino&limit=500", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Total int64 `json:"total"`
			Limit int   `json:"limit"`
		}
		decode(t, w, &resp)
		assert.Equal(t, int64(1), resp.Total)
		assert.Equal(t, maxPageSize, resp.Limit)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/products/abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperrors.ValidationInvalidID, errorCode(t, w))
	})

	t.Run("delete", func(t *testing.T) {
		w := env.do(t, http.MethodDelete, path, nil)
		require.Equal(t, http.StatusOK, w.Code)
		w = env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, apperrors.ProductNotFound, errorCode(t, w))
	})
}

func postForm(router *gin.Engine, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestProductController_ApplyVariants(t *testing.T) {
	env := setupControllerTest(t)

	input := service.ProductInput{Name: "Polo", Reference: "PO-1", CategoryID: &env.category.ID}
	product, err := env.products.CreateWithSubmission(context.Background(), input, variant.Payload{
		New: []variant.NewVariant{{SizeID: "S", ColorID: "Rojo", Stock: 2}},
	})
	require.NoError(t, err)
	existing := strconv.FormatUint(uint64(product.Variants[0].ID), 10)
	path := "/products/" + strconv.FormatUint(uint64(product.ID), 10) + "/variants/apply"

	payload := variant.Payload{
		New:    []variant.NewVariant{{SizeID: "M", ColorID: "Azul", Stock: 4}},
		Edited: []variant.EditedVariant{{ID: existing, Stock: variant.IntPtr(6)}},
	}
	w := postForm(env.router, path, payload.Encode()+"&name=ignored")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp productResponse
	decode(t, w, &resp)
	require.Len(t, resp.Product.Variants, 2)
	assert.Equal(t, 10, resp.Product.TotalStock())

	t.Run("malformed stock", func(t *testing.T) {
		form := url.Values{"new_variants[0][size]": {"L"}, "new_variants[0][color]": {"Rojo"}, "new_variants[0][stock]": {"many"}}
		w := postForm(env.router, path, form.Encode())
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperrors.ValidationInvalidFormat, errorCode(t, w))
	})

	t.Run("pair already taken", func(t *testing.T) {
		form := url.Values{"new_variants[0][size]": {"M"}, "new_variants[0][color]": {"Azul"}, "new_variants[0][stock]": {"1"}}
		w := postForm(env.router, path, form.Encode())
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, apperrors.VariantDuplicate, errorCode(t, w))
	})
}

func TestProductController_SummaryAndExport(t *testing.T) {
	env := setupControllerTest(t)

	input := service.ProductInput{Name: "Polo", Reference: "PO-1", CategoryID: &env.category.ID}
	_, err := env.products.CreateWithSubmission(context.Background(), input, variant.Payload{
		New: []variant.NewVariant{
			{SizeID: "S", ColorID: "Rojo", Stock: 2},
			{SizeID: "M", ColorID: "Rojo", Stock: 3},
		},
	})
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/products/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary struct {
		Summary repository.InventorySummary `json:"summary"`
	}
	decode(t, w, &summary)
	assert.Equal(t, int64(1), summary.Summary.Products)
	assert.Equal(t, int64(5), summary.Summary.Units)

	w = env.do(t, http.MethodGet, "/products/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "inventory-")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(service.SheetInventory)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}
