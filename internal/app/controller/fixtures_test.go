package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/internal/app/repository"
	"github.com/liherfashion/inventory-admin/internal/app/service"
	"github.com/liherfashion/inventory-admin/internal/db"
	apperrors "github.com/liherfashion/inventory-admin/internal/errors"
	"github.com/liherfashion/inventory-admin/internal/middleware"
	"github.com/liherfashion/inventory-admin/internal/storage"
	"github.com/liherfashion/inventory-admin/internal/variant"
	"github.com/liherfashion/inventory-admin/pkg/util"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testUserID uint = 1

type controllerEnv struct {
	db       *gorm.DB
	router   *gin.Engine
	catalog  service.CatalogService
	products service.ProductService
	users    service.UserService
	stock    service.StockService
	requests service.RequestService
	category *model.Category
}

// setupControllerTest wires real services over SQLite and local storage and
// registers the admin handlers without the auth middleware.
func setupControllerTest(t *testing.T) *controllerEnv {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	images := storage.NewLocal(t.TempDir(), "/uploads")
	drafts := repository.NewMemoryDraftRepository(time.Hour)
	catalog := service.NewCatalogService(repository.NewCatalogRepository(testDB))
	variantRepo := repository.NewVariantRepository(testDB)
	products := service.NewProductService(repository.NewProductRepository(testDB), variantRepo, catalog, images, drafts)
	hasher, err := util.NewPasswordHasher(util.MinPasswordCost)
	require.NoError(t, err)
	users := service.NewUserService(repository.NewUserRepository(testDB), hasher)
	exporter := service.NewExportService(variantRepo, catalog)
	stock := service.NewStockService(repository.NewStockRepository(testDB), products)
	requests := service.NewRequestService(repository.NewRequestRepository(testDB), variantRepo)

	draftCtrl := NewDraftController(service.NewVariantDraftService(drafts, products, catalog, images))
	productCtrl := NewProductController(products, exporter)
	catalogCtrl := NewCatalogController(catalog, exporter)
	userCtrl := NewUserController(users)
	stockCtrl := NewStockController(stock)
	requestCtrl := NewRequestController(requests)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.LoggingMiddleware())
	router.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, testUserID)
		c.Set(middleware.UserRoleKey, model.RoleAdmin)
		c.Next()
	})

	router.POST("/drafts", draftCtrl.OpenCreate)
	router.GET("/drafts/:sid", draftCtrl.GetDraft)
	router.POST("/drafts/:sid/variants", draftCtrl.AddVariants)
	router.PATCH("/drafts/:sid/variants/stock", draftCtrl.UpdateStock)
	router.DELETE("/drafts/:sid/variants", draftCtrl.RemoveDraft)
	router.PATCH("/drafts/:sid/existing/:vid", draftCtrl.EditExisting)
	router.DELETE("/drafts/:sid/existing/:vid", draftCtrl.DeleteExisting)
	router.POST("/drafts/:sid/images", middleware.LimitBody(variant.MaxImageSize+middleware.MultipartOverhead), draftCtrl.UploadImage)
	router.GET("/drafts/:sid/payload", draftCtrl.Payload)
	router.POST("/drafts/:sid/submit", draftCtrl.Submit)
	router.DELETE("/drafts/:sid", draftCtrl.Discard)

	router.GET("/products", productCtrl.ListProducts)
	router.GET("/products/summary", productCtrl.Summary)
	router.GET("/products/export", productCtrl.Export)
	router.GET("/products/:id", productCtrl.GetProduct)
	router.POST("/products", productCtrl.CreateProduct)
	router.PUT("/products/:id", productCtrl.UpdateProduct)
	router.DELETE("/products/:id", productCtrl.DeleteProduct)
	router.POST("/products/:id/drafts", draftCtrl.OpenEdit)
	router.POST("/products/:id/variants/apply", productCtrl.ApplyVariants)
	router.POST("/products/:id/stock-entries", stockCtrl.RecordEntry)
	router.GET("/products/:id/movements", stockCtrl.ListMovements)

	router.GET("/requests", requestCtrl.ListRequests)
	router.POST("/requests", requestCtrl.CreateRequest)
	router.PATCH("/requests/:id/status", requestCtrl.UpdateStatus)

	router.GET("/sizes", catalogCtrl.ListSizes)
	router.POST("/sizes", catalogCtrl.CreateSize)
	router.GET("/colors", catalogCtrl.ListColors)
	router.POST("/colors", catalogCtrl.CreateColor)
	router.GET("/categories", catalogCtrl.ListCategories)
	router.POST("/categories", catalogCtrl.CreateCategory)

	router.GET("/users", userCtrl.ListUsers)
	router.GET("/users/email-available", userCtrl.EmailAvailable)
	router.POST("/users", userCtrl.CreateUser)
	router.PATCH("/users/:id/toggle-active", userCtrl.ToggleActive)

	for _, name := range []string{"S", "M"} {
		_, err := catalog.CreateSize(name)
		require.NoError(t, err)
	}
	_, err = catalog.CreateColor("Rojo", "#ff0000")
	require.NoError(t, err)
	_, err = catalog.CreateColor("Azul", "#0000ff")
	require.NoError(t, err)
	category, err := catalog.CreateCategory("Camisas")
	require.NoError(t, err)

	return &controllerEnv{
		db:       testDB,
		router:   router,
		catalog:  catalog,
		products: products,
		users:    users,
		stock:    stock,
		requests: requests,
		category: category,
	}
}

func (e *controllerEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body apperrors.ErrorResponse
	decode(t, w, &body)
	return body.Error
}

type draftResponse struct {
	Draft service.DraftView `json:"draft"`
}

type productResponse struct {
	Product model.Product `json:"product"`
}

func (e *controllerEnv) openDraft(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/drafts", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp draftResponse
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Draft.ID)
	return resp.Draft.ID
}
