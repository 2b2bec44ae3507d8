package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductFilter struct {
	Search     string // matches name or reference
	CategoryID *uint
	Status     model.ProductStatus
	Limit      int
	Offset     int
}

// LowStockThreshold is the stock under which a variant counts as low
const LowStockThreshold = 10

// InventorySummary backs the counters on the inventory dashboard
type InventorySummary struct {
	Products       int64           `json:"products"`
	ActiveProducts int64           `json:"active_products"`
	Variants       int64           `json:"variants"`
	Units          int64           `json:"units"`
	OutOfStock     int64           `json:"out_of_stock"`
	LowStock       int64           `json:"low_stock"`       // out of stock included
	InventoryValue decimal.Decimal `json:"inventory_value"` // price times stock over all variants
}

type ProductRepository interface {
	Create(product *model.Product) error
	FindByID(id uint) (*model.Product, error)
	FindWithFilter(filter ProductFilter) ([]model.Product, int64, error)
	Update(product *model.Product) error
	Delete(id uint) error
	ReferenceExists(reference string, excludeID uint) (bool, error)
	Summary() (*InventorySummary, error)

	// SaveWithVariants creates or updates the product and applies the
	// variant changes in one transaction.
	SaveWithVariants(product *model.Product, changes VariantChanges) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"name":      product.Name,
		"reference": product.Reference,
	})

	if err := r.db.Omit(clause.Associations).Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"name":      product.Name,
			"reference": product.Reference,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
	})
	return nil
}

func (r *productRepository) FindByID(id uint) (*model.Product, error) {
	var product model.Product
	err := r.db.
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("product_variants.id ASC") }).
		Preload("Variants.Size").
		Preload("Variants.Color").
		First(&product, id).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find product by ID", err, map[string]interface{}{
				"product_id": id,
			})
		}
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindWithFilter(filter ProductFilter) ([]model.Product, int64, error) {
	logger.Debug("Finding products with filter", map[string]interface{}{
		"search":      filter.Search,
		"category_id": filter.CategoryID,
		"status":      filter.Status,
		"limit":       filter.Limit,
		"offset":      filter.Offset,
	})

	query := r.db.Model(&model.Product{})

	if s := strings.TrimSpace(filter.Search); s != "" {
		like := fmt.Sprintf("%%%s%%", strings.ToLower(s))
		query = query.Where("LOWER(products.name) LIKE ? OR LOWER(products.reference) LIKE ?", like, like)
	}
	if filter.CategoryID != nil {
		query = query.Where("products.category_id = ?", *filter.CategoryID)
	}
	if filter.Status != "" {
		query = query.Where("products.status = ?", filter.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		logger.Error("Failed to count products", err, nil)
		return nil, 0, err
	}

	query = query.
		Preload("Category").
		Preload("Variants").
		Order("products.created_at DESC").
		Order("products.id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var products []model.Product
	if err := query.Find(&products).Error; err != nil {
		logger.Error("Failed to find products with filter", err, nil)
		return nil, 0, err
	}

	logger.Debug("Products found with filter", map[string]interface{}{
		"count": len(products),
		"total": total,
	})
	return products, total, nil
}

func (r *productRepository) Update(product *model.Product) error {
	logger.Debug("Updating product in database", map[string]interface{}{
		"product_id": product.ID,
	})

	if err := r.db.Omit(clause.Associations).Save(product).Error; err != nil {
		logger.Error("Failed to update product in database", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}
	return nil
}

// Delete soft-deletes the product and removes its variants
func (r *productRepository) Delete(id uint) error {
	logger.Debug("Deleting product from database", map[string]interface{}{
		"product_id": id,
	})

	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&model.Product{}, id)
		if result.Error != nil {
			logger.Error("Failed to delete product", result.Error, map[string]interface{}{
				"product_id": id,
			})
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("product_id = ?", id).Delete(&model.ProductVariant{}).Error
	})
}

func (r *productRepository) ReferenceExists(reference string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.Unscoped().Model(&model.Product{}).Where("reference = ?", reference)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *productRepository) Summary() (*InventorySummary, error) {
	var summary InventorySummary

	if err := r.db.Model(&model.Product{}).Count(&summary.Products).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&model.Product{}).Where("status = ?", model.ProductActive).Count(&summary.ActiveProducts).Error; err != nil {
		return nil, err
	}

	var variants struct {
		Count          int64
		Units          int64
		OutOfStock     int64
		LowStock       int64
		InventoryValue decimal.Decimal
	}
	err := r.db.Model(&model.ProductVariant{}).
		Joins("JOIN products ON products.id = product_variants.product_id AND products.deleted_at IS NULL").
		Select("COUNT(*) AS count, COALESCE(SUM(product_variants.stock), 0) AS units, "+
			"COALESCE(SUM(CASE WHEN product_variants.stock = 0 THEN 1 ELSE 0 END), 0) AS out_of_stock, "+
			"COALESCE(SUM(CASE WHEN product_variants.stock < ? THEN 1 ELSE 0 END), 0) AS low_stock, "+
			"COALESCE(SUM(products.price * product_variants.stock), 0) AS inventory_value", LowStockThreshold).
		Scan(&variants).Error
	if err != nil {
		logger.Error("Failed to summarise variants", err, nil)
		return nil, err
	}
	summary.Variants = variants.Count
	summary.Units = variants.Units
	summary.OutOfStock = variants.OutOfStock
	summary.LowStock = variants.LowStock
	summary.InventoryValue = variants.InventoryValue.Round(2)

	return &summary, nil
}

func (r *productRepository) SaveWithVariants(product *model.Product, changes VariantChanges) error {
	logger.Debug("Saving product with variant changes", map[string]interface{}{
		"product_id": product.ID,
		"deleted":    len(changes.Delete),
		"updated":    len(changes.Update),
		"created":    len(changes.Create),
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if product.ID == 0 {
			if err := tx.Omit(clause.Associations).Create(product).Error; err != nil {
				return err
			}
		} else if err := tx.Omit(clause.Associations).Save(product).Error; err != nil {
			return err
		}
		return applyVariantChanges(tx, product.ID, changes)
	})
	if err != nil {
		logger.Error("Failed to save product with variants", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}
	return nil
}
