package repository

import (
	"errors"
	"time"

	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/pkg/logger"
	"gorm.io/gorm"
)

type RequestFilter struct {
	Status model.RequestStatus
	Limit  int
	Offset int
}

type RequestRepository interface {
	Create(req *model.ProductRequest) error
	FindByID(id uint) (*model.ProductRequest, error)
	FindWithFilter(filter RequestFilter) ([]model.ProductRequest, int64, error)
	// SetStatus stamps AttendedAt when status is attended and clears it otherwise
	SetStatus(id uint, status model.RequestStatus, at time.Time) error
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(req *model.ProductRequest) error {
	if err := r.db.Omit("User", "Product").Create(req).Error; err != nil {
		logger.Error("Failed to create product request", err, map[string]interface{}{
			"user_id":    req.UserID,
			"variant_id": req.VariantID,
		})
		return err
	}
	return nil
}

func (r *requestRepository) FindByID(id uint) (*model.ProductRequest, error) {
	var req model.ProductRequest
	err := r.db.
		Preload("User").
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		First(&req, id).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find product request", err, map[string]interface{}{
				"request_id": id,
			})
		}
		return nil, err
	}
	return &req, nil
}

// FindWithFilter lists requests newest first
func (r *requestRepository) FindWithFilter(filter RequestFilter) ([]model.ProductRequest, int64, error) {
	query := r.db.Model(&model.ProductRequest{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		logger.Error("Failed to count product requests", err, nil)
		return nil, 0, err
	}

	query = query.
		Preload("User").
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Order("created_at DESC").
		Order("id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var requests []model.ProductRequest
	if err := query.Find(&requests).Error; err != nil {
		logger.Error("Failed to list product requests", err, nil)
		return nil, 0, err
	}
	return requests, total, nil
}

func (r *requestRepository) SetStatus(id uint, status model.RequestStatus, at time.Time) error {
	fields := map[string]interface{}{
		"status":      status,
		"attended_at": nil,
	}
	if status == model.RequestAttended {
		fields["attended_at"] = at
	}

	result := r.db.Model(&model.ProductRequest{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		logger.Error("Failed to update product request status", result.Error, map[string]interface{}{
			"request_id": id,
			"status":     status,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
