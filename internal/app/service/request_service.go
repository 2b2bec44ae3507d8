package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/internal/app/repository"
	"github.com/liherfashion/inventory-admin/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrRequestNotFound      = errors.New("product request not found")
	ErrInvalidRequestStatus = errors.New("invalid request status")
)

type RequestListOptions struct {
	Status model.RequestStatus
	Limit  int
	Offset int
}

type RequestService interface {
	// CreateRequest asks for quantity more units of a variant. Zero means one.
	CreateRequest(userID, variantID uint, quantity int) (*model.ProductRequest, error)
	ListRequests(opts RequestListOptions) ([]model.ProductRequest, int64, error)
	SetStatus(id uint, status model.RequestStatus) (*model.ProductRequest, error)
}

type requestService struct {
	requestRepo repository.RequestRepository
	variantRepo repository.VariantRepository
	now         func() time.Time
}

func NewRequestService(requestRepo repository.RequestRepository, variantRepo repository.VariantRepository) RequestService {
	return &requestService{
		requestRepo: requestRepo,
		variantRepo: variantRepo,
		now:         time.Now,
	}
}

func (s *requestService) CreateRequest(userID, variantID uint, quantity int) (*model.ProductRequest, error) {
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	v, err := s.variantRepo.FindByID(variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownVariant, variantID)
		}
		return nil, err
	}

	req := &model.ProductRequest{
		UserID:    userID,
		ProductID: v.ProductID,
		VariantID: v.ID,
		Quantity:  quantity,
		SizeName:  v.Size.Name,
		ColorName: v.Color.Name,
		Status:    model.RequestPending,
	}
	if err := s.requestRepo.Create(req); err != nil {
		return nil, err
	}

	logger.Info("Product request created", map[string]interface{}{
		"request_id": req.ID,
		"variant_id": v.ID,
		"quantity":   quantity,
		"user_id":    userID,
	})
	return s.requestRepo.FindByID(req.ID)
}

func (s *requestService) ListRequests(opts RequestListOptions) ([]model.ProductRequest, int64, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, 0, ErrInvalidRequestStatus
	}
	return s.requestRepo.FindWithFilter(repository.RequestFilter{
		Status: opts.Status,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

func (s *requestService) SetStatus(id uint, status model.RequestStatus) (*model.ProductRequest, error) {
	if !status.Valid() {
		return nil, ErrInvalidRequestStatus
	}
	if err := s.requestRepo.SetStatus(id, status, s.now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return s.requestRepo.FindByID(id)
}
