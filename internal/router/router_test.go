package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/liherfashion/inventory-admin/config"
	"github.com/liherfashion/inventory-admin/internal/app/controller"
	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/internal/app/repository"
	"github.com/liherfashion/inventory-admin/internal/app/service"
	"github.com/liherfashion/inventory-admin/internal/db"
	"github.com/liherfashion/inventory-admin/internal/middleware"
	"github.com/liherfashion/inventory-admin/internal/storage"
	"github.com/liherfashion/inventory-admin/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const routerSecret = "router-secret"

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{GinMode: "test"},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"http://admin.local"}},
		Storage: config.StorageConfig{Driver: "local", LocalDir: t.TempDir(), LocalBaseURL: "/uploads"},
		Upload:  config.UploadConfig{MaxImageBytes: 5 << 20, MaxImportBytes: 10 << 20},
	}
}

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	controllers := Controllers{
		Auth:    controller.NewAuthController(nil, nil),
		Drafts:  controller.NewDraftController(nil),
		Product: controller.NewProductController(nil, nil),
		Catalog: controller.NewCatalogController(nil, nil),
		User:    controller.NewUserController(nil),
		Upload:  controller.NewUploadController(nil),
		Stock:   controller.NewStockController(nil),
		Request: controller.NewRequestController(nil),
	}
	return NewRouter(controllers, middleware.NewAuthMiddleware(routerSecret, nil, nil), testConfig(t)).Setup()
}

// setupSectionRouter backs the section guard with real users
func setupSectionRouter(t *testing.T) (http.Handler, repository.UserRepository) {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	cfg := testConfig(t)
	drafts := repository.NewMemoryDraftRepository(time.Hour)
	images := storage.NewLocal(cfg.Storage.LocalDir, cfg.Storage.LocalBaseURL)
	userRepo := repository.NewUserRepository(testDB)
	variantRepo := repository.NewVariantRepository(testDB)
	hasher, err := util.NewPasswordHasher(util.MinPasswordCost)
	require.NoError(t, err)

	catalog := service.NewCatalogService(repository.NewCatalogRepository(testDB))
	products := service.NewProductService(repository.NewProductRepository(testDB), variantRepo, catalog, images, drafts)
	controllers := Controllers{
		Auth:    controller.NewAuthController(nil, nil),
		Drafts:  controller.NewDraftController(nil),
		Product: controller.NewProductController(products, nil),
		Catalog: controller.NewCatalogController(catalog, nil),
		User:    controller.NewUserController(service.NewUserService(userRepo, hasher)),
		Upload:  controller.NewUploadController(nil),
		Stock:   controller.NewStockController(nil),
		Request: controller.NewRequestController(service.NewRequestService(repository.NewRequestRepository(testDB), variantRepo)),
	}
	auth := middleware.NewAuthMiddleware(routerSecret, nil, userRepo)
	return NewRouter(controllers, auth, cfg).Setup(), userRepo
}

func bearerGet(t *testing.T, r http.Handler, path string, userID uint, role string) int {
	t.Helper()
	token, _, err := util.GenerateAccessToken(userID, "someone@example.com", role, routerSecret, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRouter_Health(t *testing.T) {
	r := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://admin.local")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://admin.local", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_Preflight(t *testing.T) {
	r := setupRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/admin/products", nil)
	req.Header.Set("Origin", "http://evil.local")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_AdminGuard(t *testing.T) {
	r := setupRouter(t)

	paths := []string{
		"/api/v1/admin/products",
		"/api/v1/admin/users",
		"/api/v1/admin/sizes",
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	token, _, err := util.GenerateAccessToken(3, "staff@example.com", "staff", routerSecret, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/drafts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_SectionAccess(t *testing.T) {
	r, users := setupSectionRouter(t)

	clerk := &model.User{Email: "clerk@example.com", PasswordHash: "x", Role: model.RoleStaff, IsActive: true,
		Sections: model.SectionList{model.SectionInventory}}
	require.NoError(t, users.Create(clerk))
	former := &model.User{Email: "former@example.com", PasswordHash: "x", Role: model.RoleStaff, IsActive: false,
		Sections: model.SectionList{model.SectionInventory}}
	require.NoError(t, users.Create(former))

	assert.Equal(t, http.StatusOK, bearerGet(t, r, "/api/v1/admin/products", clerk.ID, "staff"))
	assert.Equal(t, http.StatusOK, bearerGet(t, r, "/api/v1/admin/sizes", clerk.ID, "staff"))
	assert.Equal(t, http.StatusForbidden, bearerGet(t, r, "/api/v1/admin/users", clerk.ID, "staff"))
	assert.Equal(t, http.StatusForbidden, bearerGet(t, r, "/api/v1/admin/requests", clerk.ID, "staff"))

	// a token outliving the account's deactivation
	assert.Equal(t, http.StatusForbidden, bearerGet(t, r, "/api/v1/admin/products", former.ID, "staff"))

	// admins are not looked up
	assert.Equal(t, http.StatusOK, bearerGet(t, r, "/api/v1/admin/users", 999, "admin"))
	assert.Equal(t, http.StatusOK, bearerGet(t, r, "/api/v1/admin/requests", 999, "admin"))
}
