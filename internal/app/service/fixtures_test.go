package service

import (
	"bytes"
	"testing"
	"time"

	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/internal/app/repository"
	"github.com/liherfashion/inventory-admin/internal/db"
	"github.com/liherfashion/inventory-admin/internal/storage"
	"github.com/liherfashion/inventory-admin/internal/variant"
	"github.com/liherfashion/inventory-admin/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db       *gorm.DB
	dir      string
	images   *storage.Local
	drafts   repository.DraftRepository
	catalog  CatalogService
	products ProductService
	sessions VariantDraftService
	category *model.Category
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	env := &testEnv{
		db:     testDB,
		dir:    t.TempDir(),
		drafts: repository.NewMemoryDraftRepository(time.Hour),
	}
	env.images = storage.NewLocal(env.dir, "/uploads")
	env.catalog = NewCatalogService(repository.NewCatalogRepository(testDB))
	env.products = NewProductService(
		repository.NewProductRepository(testDB),
		repository.NewVariantRepository(testDB),
		env.catalog,
		env.images,
		env.drafts,
	)
	env.sessions = NewVariantDraftService(env.drafts, env.products, env.catalog, env.images)

	for _, name := range []string{"S", "M", "L"} {
		_, err := env.catalog.CreateSize(name)
		require.NoError(t, err)
	}
	_, err = env.catalog.CreateColor("Rojo", "#ff0000")
	require.NoError(t, err)
	_, err = env.catalog.CreateColor("Azul", "#0000ff")
	require.NoError(t, err)
	env.category, err = env.catalog.CreateCategory("Camisas")
	require.NoError(t, err)
	return env
}

func (e *testEnv) productInput(name, reference string) ProductInput {
	return ProductInput{
		Name:       name,
		Reference:  reference,
		CategoryID: &e.category.ID,
		Price:      decimal.RequireFromString("49.90"),
	}
}

// pngBody returns n bytes that sniff as image/png
func pngBody(n int) []byte {
	head := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	if n < len(head) {
		n = len(head)
	}
	body := make([]byte, n)
	copy(body, head)
	return body
}

func pngUpload(target variant.ImageTarget, n int) ImageUpload {
	body := pngBody(n)
	return ImageUpload{
		Target:   target,
		Filename: "photo.png",
		Size:     int64(len(body)),
		Body:     bytes.NewReader(body),
	}
}

// testHasher keeps bcrypt at its cheapest cost
func testHasher(t *testing.T) *util.PasswordHasher {
	t.Helper()
	h, err := util.NewPasswordHasher(util.MinPasswordCost)
	require.NoError(t, err)
	return h
}
