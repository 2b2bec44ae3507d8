package repository

import (
	"errors"

	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/pkg/logger"
	"gorm.io/gorm"
)

// ErrVariantNotInProduct is returned when a change targets a variant id that
// does not exist or belongs to another product.
var ErrVariantNotInProduct = errors.New("variant does not belong to product")

// VariantUpdate changes the given fields of one variant. Nil means unchanged.
type VariantUpdate struct {
	ID       uint
	Stock    *int
	ImageKey *string
	ImageURL *string
}

// VariantChanges is applied in order: deletes, then updates, then inserts.
type VariantChanges struct {
	Delete []uint
	Update []VariantUpdate
	Create []model.ProductVariant
}

func (c VariantChanges) IsEmpty() bool {
	return len(c.Delete) == 0 && len(c.Update) == 0 && len(c.Create) == 0
}

type VariantRepository interface {
	FindByID(id uint) (*model.ProductVariant, error)
	FindByProductID(productID uint) ([]model.ProductVariant, error)
	ApplyChanges(productID uint, changes VariantChanges) error
	ListForExport() ([]model.ProductVariant, error)
	ImageKeyInUse(key string) (bool, error)
}

type variantRepository struct {
	db *gorm.DB
}

func NewVariantRepository(db *gorm.DB) VariantRepository {
	return &variantRepository{db: db}
}

func (r *variantRepository) FindByID(id uint) (*model.ProductVariant, error) {
	var v model.ProductVariant
	if err := r.db.Preload("Size").Preload("Color").First(&v, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find variant by ID", err, map[string]interface{}{
				"variant_id": id,
			})
		}
		return nil, err
	}
	return &v, nil
}

func (r *variantRepository) FindByProductID(productID uint) ([]model.ProductVariant, error) {
	var variants []model.ProductVariant
	err := r.db.
		Preload("Size").
		Preload("Color").
		Where("product_id = ?", productID).
		Order("id ASC").
		Find(&variants).Error
	if err != nil {
		logger.Error("Failed to find variants by product", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}
	return variants, nil
}

func (r *variantRepository) ApplyChanges(productID uint, changes VariantChanges) error {
	logger.Debug("Applying variant changes", map[string]interface{}{
		"product_id": productID,
		"deleted":    len(changes.Delete),
		"updated":    len(changes.Update),
		"created":    len(changes.Create),
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return applyVariantChanges(tx, productID, changes)
	})
	if err != nil {
		logger.Error("Failed to apply variant changes", err, map[string]interface{}{
			"product_id": productID,
		})
		return err
	}

	logger.Info("Variant changes applied", map[string]interface{}{
		"product_id": productID,
		"deleted":    len(changes.Delete),
		"updated":    len(changes.Update),
		"created":    len(changes.Create),
	})
	return nil
}

func applyVariantChanges(tx *gorm.DB, productID uint, changes VariantChanges) error {
	if ids := uniqueIDs(changes.Delete); len(ids) > 0 {
		result := tx.Where("product_id = ? AND id IN ?", productID, ids).Delete(&model.ProductVariant{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != int64(len(ids)) {
			return ErrVariantNotInProduct
		}
	}

	for _, u := range changes.Update {
		fields := map[string]interface{}{}
		if u.Stock != nil {
			fields["stock"] = *u.Stock
		}
		if u.ImageKey != nil {
			fields["image_key"] = *u.ImageKey
		}
		if u.ImageURL != nil {
			fields["image_url"] = *u.ImageURL
		}
		if len(fields) == 0 {
			continue
		}

		result := tx.Model(&model.ProductVariant{}).
			Where("id = ? AND product_id = ?", u.ID, productID).
			Updates(fields)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrVariantNotInProduct
		}
	}

	if len(changes.Create) > 0 {
		created := make([]model.ProductVariant, len(changes.Create))
		for i, v := range changes.Create {
			v.ID = 0
			v.ProductID = productID
			v.Active = true
			created[i] = v
		}
		if err := tx.Omit("Product", "Size", "Color").Create(&created).Error; err != nil {
			return err
		}
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ListForExport returns active variants of live products with their product,
// category, size and color loaded.
func (r *variantRepository) ListForExport() ([]model.ProductVariant, error) {
	var variants []model.ProductVariant
	err := r.db.
		Joins("JOIN products ON products.id = product_variants.product_id AND products.deleted_at IS NULL").
		Where("product_variants.active = ?", true).
		Preload("Product.Category").
		Preload("Size").
		Preload("Color").
		Order("products.name ASC").
		Order("product_variants.id ASC").
		Find(&variants).Error
	if err != nil {
		logger.Error("Failed to list variants for export", err, nil)
		return nil, err
	}
	return variants, nil
}

// ImageKeyInUse reports whether a stored image is referenced by any variant
func (r *variantRepository) ImageKeyInUse(key string) (bool, error) {
	var count int64
	err := r.db.Model(&model.ProductVariant{}).Where("image_key = ?", key).Count(&count).Error
	return count > 0, err
}
