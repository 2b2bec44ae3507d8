package repository

import (
	"errors"

	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/pkg/logger"
	"gorm.io/gorm"
)

type StockRepository interface {
	// AddEntry raises the variant's stock by entry.Quantity and records the
	// entry in one transaction. It returns the variant with its new stock.
	AddEntry(entry *model.StockEntry) (*model.ProductVariant, error)
	ListByProduct(productID uint, limit, offset int) ([]model.StockEntry, int64, error)
}

type stockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) AddEntry(entry *model.StockEntry) (*model.ProductVariant, error) {
	logger.Debug("Recording stock entry", map[string]interface{}{
		"product_id": entry.ProductID,
		"variant_id": entry.VariantID,
		"quantity":   entry.Quantity,
	})

	var v model.ProductVariant
	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Preload("Size").Preload("Color").
			Where("id = ? AND product_id = ?", entry.VariantID, entry.ProductID).
			First(&v).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrVariantNotInProduct
		}
		if err != nil {
			return err
		}

		err = tx.Model(&model.ProductVariant{}).
			Where("id = ?", v.ID).
			Update("stock", gorm.Expr("stock + ?", entry.Quantity)).Error
		if err != nil {
			return err
		}

		entry.SizeName = v.Size.Name
		entry.ColorName = v.Color.Name
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		return tx.Model(&model.ProductVariant{}).Select("stock").Where("id = ?", v.ID).Row().Scan(&v.Stock)
	})
	if err != nil {
		if !errors.Is(err, ErrVariantNotInProduct) {
			logger.Error("Failed to record stock entry", err, map[string]interface{}{
				"product_id": entry.ProductID,
				"variant_id": entry.VariantID,
			})
		}
		return nil, err
	}

	logger.Info("Stock entry recorded", map[string]interface{}{
		"entry_id":   entry.ID,
		"variant_id": v.ID,
		"stock":      v.Stock,
	})
	return &v, nil
}

// ListByProduct returns the product's entries, newest first
func (r *stockRepository) ListByProduct(productID uint, limit, offset int) ([]model.StockEntry, int64, error) {
	query := r.db.Model(&model.StockEntry{}).Where("product_id = ?", productID)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		logger.Error("Failed to count stock entries", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, 0, err
	}

	query = query.Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var entries []model.StockEntry
	if err := query.Find(&entries).Error; err != nil {
		logger.Error("Failed to list stock entries", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, 0, err
	}
	return entries, total, nil
}
