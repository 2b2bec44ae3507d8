package service

import (
	"errors"
	"regexp"
	"strings"

	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/internal/app/repository"
	"github.com/liherfashion/inventory-admin/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCatalogNameRequired = errors.New("name is required")
	ErrCatalogNameTooLong  = errors.New("name is too long")
	ErrCatalogNameExists   = errors.New("name already exists")
	ErrInvalidColorHex     = errors.New("color hex must look like #a1b2c3")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrUnknownSize         = errors.New("unknown size")
	ErrUnknownColor        = errors.New("unknown color")
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type CatalogService interface {
	ListCategories() ([]model.Category, error)
	ListSizes() ([]model.Size, error)
	ListColors() ([]model.Color, error)
	GetCategory(id uint) (*model.Category, error)
	CreateCategory(name string) (*model.Category, error)
	CreateSize(name string) (*model.Size, error)
	CreateColor(name, hex string) (*model.Color, error)

	// ResolveSize finds a size by name, then by numeric id
	ResolveSize(ref string) (*model.Size, error)
	ResolveColor(ref string) (*model.Color, error)
}

type catalogService struct {
	repo repository.CatalogRepository
}

func NewCatalogService(repo repository.CatalogRepository) CatalogService {
	return &catalogService{repo: repo}
}

func (s *catalogService) ListCategories() ([]model.Category, error) {
	return s.repo.ListCategories()
}

func (s *catalogService) ListSizes() ([]model.Size, error) {
	return s.repo.ListSizes()
}

func (s *catalogService) ListColors() ([]model.Color, error) {
	return s.repo.ListColors()
}

func (s *catalogService) GetCategory(id uint) (*model.Category, error) {
	category, err := s.repo.FindCategoryByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCategoryNotFound
	}
	return category, err
}

func (s *catalogService) checkName(table, name string, max int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrCatalogNameRequired
	}
	if len([]rune(name)) > max {
		return "", ErrCatalogNameTooLong
	}
	exists, err := s.repo.NameExists(table, name)
	if err != nil {
		return "", err
	}
	if exists {
		return "", ErrCatalogNameExists
	}
	return name, nil
}

func mapCatalogCreateError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrCatalogNameExists
	}
	return err
}

func (s *catalogService) CreateCategory(name string) (*model.Category, error) {
	name, err := s.checkName("categories", name, 50)
	if err != nil {
		return nil, err
	}
	category := &model.Category{Name: name}
	if err := s.repo.CreateCategory(category); err != nil {
		return nil, mapCatalogCreateError(err)
	}
	logger.Info("Category created", map[string]interface{}{"category_id": category.ID, "name": name})
	return category, nil
}

func (s *catalogService) CreateSize(name string) (*model.Size, error) {
	name, err := s.checkName("sizes", name, 50)
	if err != nil {
		return nil, err
	}
	size := &model.Size{Name: name}
	if err := s.repo.CreateSize(size); err != nil {
		return nil, mapCatalogCreateError(err)
	}
	logger.Info("Size created", map[string]interface{}{"size_id": size.ID, "name": name})
	return size, nil
}

func (s *catalogService) CreateColor(name, hex string) (*model.Color, error) {
	hex = strings.TrimSpace(hex)
	if hex != "" && !hexColorRe.MatchString(hex) {
		return nil, ErrInvalidColorHex
	}
	name, err := s.checkName("colors", name, 100)
	if err != nil {
		return nil, err
	}
	color := &model.Color{Name: name, Hex: strings.ToLower(hex)}
	if err := s.repo.CreateColor(color); err != nil {
		return nil, mapCatalogCreateError(err)
	}
	logger.Info("Color created", map[string]interface{}{"color_id": color.ID, "name": name})
	return color, nil
}

func (s *catalogService) ResolveSize(ref string) (*model.Size, error) {
	size, err := s.repo.FindSizeByName(ref)
	if err == nil {
		return size, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if id, ok := parseID(ref); ok {
		sizes, err := s.repo.FindSizesByIDs([]uint{id})
		if err != nil {
			return nil, err
		}
		if len(sizes) == 1 {
			return &sizes[0], nil
		}
	}
	return nil, ErrUnknownSize
}

func (s *catalogService) ResolveColor(ref string) (*model.Color, error) {
	color, err := s.repo.FindColorByName(ref)
	if err == nil {
		return color, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if id, ok := parseID(ref); ok {
		colors, err := s.repo.FindColorsByIDs([]uint{id})
		if err != nil {
			return nil, err
		}
		if len(colors) == 1 {
			return &colors[0], nil
		}
	}
	return nil, ErrUnknownColor
}
