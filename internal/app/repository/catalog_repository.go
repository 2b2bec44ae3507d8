package repository

import (
	"strings"

	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/pkg/logger"
	"gorm.io/gorm"
)

// CatalogRepository manages the lookup tables variants and products point at
type CatalogRepository interface {
	ListCategories() ([]model.Category, error)
	ListSizes() ([]model.Size, error)
	ListColors() ([]model.Color, error)

	CreateCategory(category *model.Category) error
	CreateSize(size *model.Size) error
	CreateColor(color *model.Color) error

	FindCategoryByID(id uint) (*model.Category, error)
	FindSizeByName(name string) (*model.Size, error)
	FindColorByName(name string) (*model.Color, error)
	FindSizesByIDs(ids []uint) ([]model.Size, error)
	FindColorsByIDs(ids []uint) ([]model.Color, error)

	// NameExists is a case-insensitive lookup in "categories", "sizes" or "colors"
	NameExists(table, name string) (bool, error)
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListCategories() ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.Order("name ASC").Find(&categories).Error; err != nil {
		logger.Error("Failed to list categories", err, nil)
		return nil, err
	}
	return categories, nil
}

func (r *catalogRepository) ListSizes() ([]model.Size, error) {
	var sizes []model.Size
	// sizes keep insertion order so "S, M, L" is not sorted alphabetically
	if err := r.db.Order("id ASC").Find(&sizes).Error; err != nil {
		logger.Error("Failed to list sizes", err, nil)
		return nil, err
	}
	return sizes, nil
}

func (r *catalogRepository) ListColors() ([]model.Color, error) {
	var colors []model.Color
	if err := r.db.Order("name ASC").Find(&colors).Error; err != nil {
		logger.Error("Failed to list colors", err, nil)
		return nil, err
	}
	return colors, nil
}

func (r *catalogRepository) create(kind string, name string, value interface{}) error {
	logger.Debug("Creating catalog entry", map[string]interface{}{
		"kind": kind,
		"name": name,
	})
	if err := r.db.Create(value).Error; err != nil {
		logger.Error("Failed to create catalog entry", err, map[string]interface{}{
			"kind": kind,
			"name": name,
		})
		return err
	}
	return nil
}

func (r *catalogRepository) CreateCategory(category *model.Category) error {
	return r.create("category", category.Name, category)
}

func (r *catalogRepository) CreateSize(size *model.Size) error {
	return r.create("size", size.Name, size)
}

func (r *catalogRepository) CreateColor(color *model.Color) error {
	return r.create("color", color.Name, color)
}

func (r *catalogRepository) FindCategoryByID(id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *catalogRepository) FindSizeByName(name string) (*model.Size, error) {
	var size model.Size
	if err := r.db.Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).First(&size).Error; err != nil {
		return nil, err
	}
	return &size, nil
}

func (r *catalogRepository) FindColorByName(name string) (*model.Color, error) {
	var color model.Color
	if err := r.db.Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).First(&color).Error; err != nil {
		return nil, err
	}
	return &color, nil
}

func (r *catalogRepository) FindSizesByIDs(ids []uint) ([]model.Size, error) {
	var sizes []model.Size
	if len(ids) == 0 {
		return sizes, nil
	}
	err := r.db.Where("id IN ?", ids).Find(&sizes).Error
	return sizes, err
}

func (r *catalogRepository) FindColorsByIDs(ids []uint) ([]model.Color, error) {
	var colors []model.Color
	if len(ids) == 0 {
		return colors, nil
	}
	err := r.db.Where("id IN ?", ids).Find(&colors).Error
	return colors, err
}

func (r *catalogRepository) NameExists(table, name string) (bool, error) {
	switch table {
	case "categories", "sizes", "colors":
	default:
		return false, gorm.ErrInvalidField
	}

	var count int64
	err := r.db.Table(table).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Count(&count).Error
	return count > 0, err
}
