package repository

import (
	"testing"

	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

type catalogFixture struct {
	Category model.Category
	S, M, L  model.Size
	Red      model.Color
	Blue     model.Color
}

func seedCatalog(t *testing.T, testDB *gorm.DB) catalogFixture {
	t.Helper()
	f := catalogFixture{
		Category: model.Category{Name: "Camisas"},
		S:        model.Size{Name: "S"},
		M:        model.Size{Name: "M"},
		L:        model.Size{Name: "L"},
		Red:      model.Color{Name: "Rojo", Hex: "#ff0000"},
		Blue:     model.Color{Name: "Azul", Hex: "#0000ff"},
	}
	require.NoError(t, testDB.Create(&f.Category).Error)
	for _, s := range []*model.Size{&f.S, &f.M, &f.L} {
		require.NoError(t, testDB.Create(s).Error)
	}
	for _, c := range []*model.Color{&f.Red, &f.Blue} {
		require.NoError(t, testDB.Create(c).Error)
	}
	return f
}

func seedProduct(t *testing.T, testDB *gorm.DB, f catalogFixture, name, reference string) *model.Product {
	t.Helper()
	p := &model.Product{
		Name:       name,
		Reference:  reference,
		CategoryID: &f.Category.ID,
		Price:      decimal.RequireFromString("59.90"),
	}
	require.NoError(t, testDB.Create(p).Error)
	return p
}

func seedVariant(t *testing.T, testDB *gorm.DB, productID uint, size model.Size, color model.Color, stock int) *model.ProductVariant {
	t.Helper()
	v := &model.ProductVariant{ProductID: productID, SizeID: size.ID, ColorID: color.ID, Stock: stock}
	require.NoError(t, testDB.Omit("Product", "Size", "Color").Create(v).Error)
	return v
}
