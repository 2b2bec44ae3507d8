package service

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/liherfashion/inventory-admin/internal/app/repository"
	"github.com/liherfashion/inventory-admin/pkg/logger"
	"github.com/xuri/excelize/v2"
)

const (
	SheetInventory = "Inventory"

	SheetSizes      = "Sizes"
	SheetColors     = "Colors"
	SheetCategories = "Categories"
)

var inventoryHeader = []interface{}{
	"Reference", "Product", "Category", "Size", "Color", "Stock", "Price", "Status", "Image URL",
}

// ImportResult counts the catalog entries created by ImportCatalog
type ImportResult struct {
	Sizes      int `json:"sizes"`
	Colors     int `json:"colors"`
	Categories int `json:"categories"`
	Skipped    int `json:"skipped"`
}

type ExportService interface {
	// ExportInventory writes a workbook with one row per active variant
	ExportInventory(w io.Writer) (int, error)
	// ImportCatalog reads the Sizes, Colors and Categories sheets and creates
	// the entries that do not exist yet. Missing sheets are ignored.
	ImportCatalog(r io.Reader) (*ImportResult, error)
}

type exportService struct {
	variantRepo repository.VariantRepository
	catalog     CatalogService
}

func NewExportService(variantRepo repository.VariantRepository, catalog CatalogService) ExportService {
	return &exportService{variantRepo: variantRepo, catalog: catalog}
}

func (s *exportService) ExportInventory(w io.Writer) (int, error) {
	variants, err := s.variantRepo.ListForExport()
	if err != nil {
		logger.Error("Failed to load variants for export", err)
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetInventory); err != nil {
		return 0, err
	}
	if err := f.SetSheetRow(SheetInventory, "A1", &inventoryHeader); err != nil {
		return 0, err
	}

	for i, v := range variants {
		category := ""
		if v.Product.Category != nil {
			category = v.Product.Category.Name
		}
		price, _ := v.Product.Price.Float64()
		row := []interface{}{
			v.Product.Reference,
			v.Product.Name,
			category,
			v.Size.Name,
			v.Color.Name,
			v.Stock,
			price,
			string(v.Product.Status),
			v.ImageURL,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		if err := f.SetSheetRow(SheetInventory, cell, &row); err != nil {
			return 0, err
		}
	}

	if err := f.SetPanes(SheetInventory, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return 0, err
	}

	if _, err := f.WriteTo(w); err != nil {
		logger.Error("Failed to write inventory workbook", err)
		return 0, err
	}

	logger.Info("Inventory exported", map[string]interface{}{
		"rows": len(variants),
	})
	return len(variants), nil
}

func (s *exportService) ImportCatalog(r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	result := &ImportResult{}
	sheets := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		sheets[name] = true
	}

	importSheet := func(sheet string, create func(cols []string) error) (int, error) {
		if !sheets[sheet] {
			return 0, nil
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return 0, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		created := 0
		for i, cols := range rows {
			// first row is the header
			if i == 0 || len(cols) == 0 || strings.TrimSpace(cols[0]) == "" {
				continue
			}
			err := create(cols)
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrCatalogNameExists):
				result.Skipped++
			default:
				return created, fmt.Errorf("sheet %s row %d: %w", sheet, i+1, err)
			}
		}
		return created, nil
	}

	if result.Sizes, err = importSheet(SheetSizes, func(cols []string) error {
		_, err := s.catalog.CreateSize(cols[0])
		return err
	}); err != nil {
		return nil, err
	}
	if result.Colors, err = importSheet(SheetColors, func(cols []string) error {
		hex := ""
		if len(cols) > 1 {
			hex = cols[1]
		}
		_, err := s.catalog.CreateColor(cols[0], hex)
		return err
	}); err != nil {
		return nil, err
	}
	if result.Categories, err = importSheet(SheetCategories, func(cols []string) error {
		_, err := s.catalog.CreateCategory(cols[0])
		return err
	}); err != nil {
		return nil, err
	}

	logger.Info("Catalog imported", map[string]interface{}{
		"sizes":      result.Sizes,
		"colors":     result.Colors,
		"categories": result.Categories,
		"skipped":    result.Skipped,
	})
	return result, nil
}
