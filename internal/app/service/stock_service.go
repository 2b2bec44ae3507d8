package service

import (
	"errors"
	"strings"

	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/internal/app/repository"
	"github.com/liherfashion/inventory-admin/pkg/logger"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrNoteTooLong     = errors.New("note is too long")
)

const maxEntryNote = 255

// StockEntryInput is one receipt of units for a variant
type StockEntryInput struct {
	VariantID uint   `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	Note      string `json:"note"`
}

type StockService interface {
	// RecordEntry adds units to a variant and logs who received them
	RecordEntry(userID, productID uint, input StockEntryInput) (*model.StockEntry, *model.ProductVariant, error)
	ListMovements(productID uint, limit, offset int) ([]model.StockEntry, int64, error)
}

type stockService struct {
	stockRepo repository.StockRepository
	products  ProductService
}

func NewStockService(stockRepo repository.StockRepository, products ProductService) StockService {
	return &stockService{
		stockRepo: stockRepo,
		products:  products,
	}
}

func (s *stockService) RecordEntry(userID, productID uint, input StockEntryInput) (*model.StockEntry, *model.ProductVariant, error) {
	if input.Quantity <= 0 {
		return nil, nil, ErrInvalidQuantity
	}
	note := strings.TrimSpace(input.Note)
	if len([]rune(note)) > maxEntryNote {
		return nil, nil, ErrNoteTooLong
	}
	if _, err := s.products.GetProductByID(productID); err != nil {
		return nil, nil, err
	}

	entry := &model.StockEntry{
		ProductID: productID,
		VariantID: input.VariantID,
		UserID:    userID,
		Quantity:  input.Quantity,
		Note:      note,
	}
	v, err := s.stockRepo.AddEntry(entry)
	if err != nil {
		if errors.Is(err, repository.ErrVariantNotInProduct) {
			return nil, nil, ErrUnknownVariant
		}
		return nil, nil, err
	}

	logger.Info("Stock received", map[string]interface{}{
		"product_id": productID,
		"variant_id": v.ID,
		"quantity":   input.Quantity,
		"stock":      v.Stock,
		"user_id":    userID,
	})
	return entry, v, nil
}

func (s *stockService) ListMovements(productID uint, limit, offset int) ([]model.StockEntry, int64, error) {
	if _, err := s.products.GetProductByID(productID); err != nil {
		return nil, 0, err
	}
	return s.stockRepo.ListByProduct(productID, limit, offset)
}
