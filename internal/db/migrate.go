package db

import (
	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table managed by AutoMigrate, parents first
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Category{},
		&model.Size{},
		&model.Color{},
		&model.Product{},
		&model.ProductVariant{},
		&model.StockEntry{},
		&model.ProductRequest{},
	}
}

// Migrate runs AutoMigrate and seeds the default size chart
func Migrate() error {
	logger.Info("Running database migrations")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := SeedSizes(DB); err != nil {
		logger.Error("Failed to seed default sizes", err)
		return err
	}

	logger.Info("Database migrations completed", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// DefaultSizes is the size chart created on an empty database
var DefaultSizes = []string{"XS", "S", "M", "L", "XL", "XXL"}

// SeedSizes inserts DefaultSizes when the sizes table is empty
func SeedSizes(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Size{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Debug("Sizes already seeded, skipping", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	sizes := make([]model.Size, len(DefaultSizes))
	for i, name := range DefaultSizes {
		sizes[i] = model.Size{Name: name}
	}
	if err := db.Create(&sizes).Error; err != nil {
		return err
	}

	logger.Info("Default sizes seeded", map[string]interface{}{
		"count": len(sizes),
	})
	return nil
}
