package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/internal/app/repository"
	"github.com/liherfashion/inventory-admin/internal/storage"
	"github.com/liherfashion/inventory-admin/internal/variant"
	"github.com/liherfashion/inventory-admin/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrInvalidProduct     = errors.New("invalid product")
	ErrReferenceExists    = errors.New("reference already in use")
	ErrVariantConflict    = errors.New("variant already exists for this product")
	ErrUnknownVariant     = errors.New("variant does not belong to this product")
	ErrInvalidVariantID   = errors.New("invalid variant id")
	ErrEmptySubmission    = errors.New("nothing to submit")
	ErrSubmissionRejected = errors.New("submission rejected")
)

const (
	maxProductName        = 100
	maxProductReference   = 10
	maxProductDescription = 200
)

// ProductInput holds the editable product fields
type ProductInput struct {
	Name        string              `json:"name"`
	Reference   string              `json:"reference"`
	CategoryID  *uint               `json:"category_id"`
	Price       decimal.Decimal     `json:"price"`
	Description string              `json:"description"`
	ImageURL    string              `json:"image_url"`
	Status      model.ProductStatus `json:"status"`
}

type ProductListOptions struct {
	Search     string
	CategoryID *uint
	Status     model.ProductStatus
	Limit      int
	Offset     int
}

// StagedImageReleaser forgets staged images once a submission commits them
type StagedImageReleaser interface {
	ReleaseStagedImages(ctx context.Context, keys ...string) error
}

type ProductService interface {
	ListProducts(opts ProductListOptions) ([]model.Product, int64, error)
	GetProductByID(id uint) (*model.Product, error)
	CreateProduct(input ProductInput) (*model.Product, error)
	UpdateProduct(id uint, input ProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
	Summary() (*repository.InventorySummary, error)

	// ApplySubmission applies a variant payload to an existing product.
	// Deletes run first, then edits, then inserts, in one transaction.
	ApplySubmission(ctx context.Context, productID uint, payload variant.Payload) error
	// CreateWithSubmission creates the product and its new variants together
	CreateWithSubmission(ctx context.Context, input ProductInput, payload variant.Payload) (*model.Product, error)
	// UpdateWithSubmission optionally updates product fields and applies the payload together
	UpdateWithSubmission(ctx context.Context, id uint, input *ProductInput, payload variant.Payload) (*model.Product, error)
}

type productService struct {
	productRepo repository.ProductRepository
	variantRepo repository.VariantRepository
	catalog     CatalogService
	images      storage.ImageStorage
	staged      StagedImageReleaser
}

func NewProductService(
	productRepo repository.ProductRepository,
	variantRepo repository.VariantRepository,
	catalog CatalogService,
	images storage.ImageStorage,
	staged StagedImageReleaser,
) ProductService {
	return &productService{
		productRepo: productRepo,
		variantRepo: variantRepo,
		catalog:     catalog,
		images:      images,
		staged:      staged,
	}
}

func invalidProduct(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidProduct, fmt.Sprintf(format, args...))
}

func (s *productService) ListProducts(opts ProductListOptions) ([]model.Product, int64, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, 0, invalidProduct("unknown status %q", opts.Status)
	}
	products, total, err := s.productRepo.FindWithFilter(repository.ProductFilter{
		Search:     opts.Search,
		CategoryID: opts.CategoryID,
		Status:     opts.Status,
		Limit:      opts.Limit,
		Offset:     opts.Offset,
	})
	if err != nil {
		logger.Error("Failed to list products", err)
		return nil, 0, err
	}
	return products, total, nil
}

func (s *productService) GetProductByID(id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

// normalize validates input and copies it onto product
func (s *productService) normalize(input ProductInput, product *model.Product) error {
	name := strings.TrimSpace(input.Name)
	reference := strings.ToUpper(strings.TrimSpace(input.Reference))
	description := strings.TrimSpace(input.Description)

	switch {
	case name == "":
		return invalidProduct("name is required")
	case len([]rune(name)) > maxProductName:
		return invalidProduct("name must be at most %d characters", maxProductName)
	case reference == "":
		return invalidProduct("reference is required")
	case len([]rune(reference)) > maxProductReference:
		return invalidProduct("reference must be at most %d characters", maxProductReference)
	case len([]rune(description)) > maxProductDescription:
		return invalidProduct("description must be at most %d characters", maxProductDescription)
	case input.Price.IsNegative():
		return invalidProduct("price cannot be negative")
	}

	status := input.Status
	if status == "" {
		status = model.ProductActive
	}
	if !status.Valid() {
		return invalidProduct("unknown status %q", status)
	}

	if input.CategoryID != nil {
		if _, err := s.catalog.GetCategory(*input.CategoryID); err != nil {
			return err
		}
	}

	exists, err := s.productRepo.ReferenceExists(reference, product.ID)
	if err != nil {
		return err
	}
	if exists {
		return ErrReferenceExists
	}

	product.Name = name
	product.Reference = reference
	product.CategoryID = input.CategoryID
	product.Price = input.Price.Round(2)
	product.Description = description
	product.ImageURL = strings.TrimSpace(input.ImageURL)
	product.Status = status
	return nil
}

func mapProductWriteError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		// products.reference is the only unique column besides the variant trio
		return ErrReferenceExists
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrProductNotFound
	}
	return err
}

func (s *productService) CreateProduct(input ProductInput) (*model.Product, error) {
	product := &model.Product{}
	if err := s.normalize(input, product); err != nil {
		return nil, err
	}
	if err := s.productRepo.Create(product); err != nil {
		return nil, mapProductWriteError(err)
	}

	logger.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"reference":  product.Reference,
	})
	return product, nil
}

func (s *productService) UpdateProduct(id uint, input ProductInput) (*model.Product, error) {
	product, err := s.GetProductByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.normalize(input, product); err != nil {
		return nil, err
	}
	if err := s.productRepo.Update(product); err != nil {
		return nil, mapProductWriteError(err)
	}

	logger.Info("Product updated", map[string]interface{}{"product_id": id})
	return s.GetProductByID(id)
}

func (s *productService) DeleteProduct(ctx context.Context, id uint) error {
	product, err := s.GetProductByID(id)
	if err != nil {
		return err
	}
	if err := s.productRepo.Delete(id); err != nil {
		return mapProductWriteError(err)
	}

	var keys []string
	for _, v := range product.Variants {
		keys = append(keys, v.ImageKey)
	}
	s.removeImages(ctx, keys)

	logger.Info("Product deleted", map[string]interface{}{
		"product_id": id,
		"variants":   len(product.Variants),
	})
	return nil
}

func (s *productService) Summary() (*repository.InventorySummary, error) {
	return s.productRepo.Summary()
}

// buildChanges turns a payload into repository changes for product. It also
// returns the image keys the changes stop referencing.
func (s *productService) buildChanges(product *model.Product, payload variant.Payload) (repository.VariantChanges, []string, error) {
	var changes repository.VariantChanges
	var replaced []string

	current := make(map[uint]model.ProductVariant, len(product.Variants))
	for _, v := range product.Variants {
		current[v.ID] = v
	}

	// pairs still taken once deletes are applied
	taken := make(map[[2]uint]bool, len(product.Variants))
	deleted := make(map[uint]bool, len(payload.Deleted))
	for _, raw := range payload.Deleted {
		id, ok := parseID(raw)
		if !ok {
			return changes, nil, fmt.Errorf("%w: %q", ErrInvalidVariantID, raw)
		}
		v, ok := current[id]
		if !ok {
			return changes, nil, fmt.Errorf("%w: %d", ErrUnknownVariant, id)
		}
		if deleted[id] {
			continue
		}
		deleted[id] = true
		changes.Delete = append(changes.Delete, id)
		replaced = append(replaced, v.ImageKey)
	}
	for _, v := range product.Variants {
		if !deleted[v.ID] {
			taken[[2]uint{v.SizeID, v.ColorID}] = true
		}
	}

	for _, e := range payload.Edited {
		id, ok := parseID(e.ID)
		if !ok {
			return changes, nil, fmt.Errorf("%w: %q", ErrInvalidVariantID, e.ID)
		}
		v, ok := current[id]
		if !ok || deleted[id] {
			return changes, nil, fmt.Errorf("%w: %d", ErrUnknownVariant, id)
		}
		update := repository.VariantUpdate{ID: id}
		if e.Stock != nil {
			if *e.Stock < 0 {
				return changes, nil, fmt.Errorf("%w: variant %d", variant.ErrNegativeStock, id)
			}
			update.Stock = variant.IntPtr(*e.Stock)
		}
		if e.Image != nil && e.Image.Key != "" {
			key, url := e.Image.Key, s.imageURL(*e.Image)
			update.ImageKey, update.ImageURL = &key, &url
			if v.ImageKey != key {
				replaced = append(replaced, v.ImageKey)
			}
		}
		changes.Update = append(changes.Update, update)
	}

	for i, n := range payload.New {
		if n.Stock <= 0 {
			return changes, nil, fmt.Errorf("%w: new variant %d", variant.ErrInvalidStock, i)
		}
		size, err := s.catalog.ResolveSize(n.SizeID)
		if err != nil {
			return changes, nil, fmt.Errorf("%w: %q", err, n.SizeID)
		}
		color, err := s.catalog.ResolveColor(n.ColorID)
		if err != nil {
			return changes, nil, fmt.Errorf("%w: %q", err, n.ColorID)
		}
		pair := [2]uint{size.ID, color.ID}
		if taken[pair] {
			return changes, nil, fmt.Errorf("%w: %s - %s", ErrVariantConflict, size.Name, color.Name)
		}
		taken[pair] = true

		v := model.ProductVariant{SizeID: size.ID, ColorID: color.ID, Stock: n.Stock}
		if n.Image != nil && n.Image.Key != "" {
			v.ImageKey = n.Image.Key
			v.ImageURL = s.imageURL(*n.Image)
		}
		changes.Create = append(changes.Create, v)
	}

	return changes, replaced, nil
}

func (s *productService) imageURL(ref variant.ImageRef) string {
	if s.images != nil {
		return s.images.URL(ref.Key)
	}
	return ref.URL
}

func mapSubmissionError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrVariantConflict
	case errors.Is(err, repository.ErrVariantNotInProduct):
		return ErrUnknownVariant
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrProductNotFound
	}
	return err
}

// afterCommit releases committed staged images and removes replaced ones
func (s *productService) afterCommit(ctx context.Context, payload variant.Payload, replaced []string) {
	if keys := payload.Images(); len(keys) > 0 && s.staged != nil {
		if err := s.staged.ReleaseStagedImages(ctx, keys...); err != nil {
			logger.Warn("Failed to release staged images", map[string]interface{}{
				"count": len(keys),
				"error": err.Error(),
			})
		}
	}
	s.removeImages(ctx, replaced)
}

// removeImages deletes stored images no variant references any more
func (s *productService) removeImages(ctx context.Context, keys []string) {
	if s.images == nil {
		return
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		inUse, err := s.variantRepo.ImageKeyInUse(key)
		if err != nil || inUse {
			continue
		}
		if err := s.images.Delete(ctx, key); err != nil {
			logger.Warn("Failed to delete unused variant image", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
}

func (s *productService) ApplySubmission(ctx context.Context, productID uint, payload variant.Payload) error {
	product, err := s.GetProductByID(productID)
	if err != nil {
		return err
	}
	if payload.IsEmpty() {
		return nil
	}

	changes, replaced, err := s.buildChanges(product, payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubmissionRejected, err)
	}
	if err := s.variantRepo.ApplyChanges(productID, changes); err != nil {
		return mapSubmissionError(err)
	}

	s.afterCommit(ctx, payload, replaced)
	logger.Info("Variant submission applied", map[string]interface{}{
		"product_id": productID,
		"created":    len(changes.Create),
		"updated":    len(changes.Update),
		"deleted":    len(changes.Delete),
	})
	return nil
}

func (s *productService) CreateWithSubmission(ctx context.Context, input ProductInput, payload variant.Payload) (*model.Product, error) {
	if len(payload.Edited) > 0 || len(payload.Deleted) > 0 {
		return nil, fmt.Errorf("%w: a new product has no variants to edit or delete", ErrSubmissionRejected)
	}

	product := &model.Product{}
	if err := s.normalize(input, product); err != nil {
		return nil, err
	}
	changes, _, err := s.buildChanges(product, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmissionRejected, err)
	}
	if err := s.productRepo.SaveWithVariants(product, changes); err != nil {
		return nil, mapSubmissionError(err)
	}

	s.afterCommit(ctx, payload, nil)
	logger.Info("Product created with variants", map[string]interface{}{
		"product_id": product.ID,
		"variants":   len(changes.Create),
	})
	return s.GetProductByID(product.ID)
}

func (s *productService) UpdateWithSubmission(ctx context.Context, id uint, input *ProductInput, payload variant.Payload) (*model.Product, error) {
	product, err := s.GetProductByID(id)
	if err != nil {
		return nil, err
	}
	if input == nil && payload.IsEmpty() {
		return nil, ErrEmptySubmission
	}

	changes, replaced, err := s.buildChanges(product, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmissionRejected, err)
	}
	if input != nil {
		if err := s.normalize(*input, product); err != nil {
			return nil, err
		}
	}

	// relations were loaded for diffing and must not be re-saved
	product.Variants = nil
	product.Category = nil
	if err := s.productRepo.SaveWithVariants(product, changes); err != nil {
		return nil, mapSubmissionError(err)
	}

	s.afterCommit(ctx, payload, replaced)
	logger.Info("Product updated with variants", map[string]interface{}{
		"product_id": id,
		"created":    len(changes.Create),
		"updated":    len(changes.Update),
		"deleted":    len(changes.Delete),
	})
	return s.GetProductByID(id)
}
