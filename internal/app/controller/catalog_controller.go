package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liherfashion/inventory-admin/internal/app/service"
	apperrors "github.com/liherfashion/inventory-admin/internal/errors"
	"github.com/liherfashion/inventory-admin/internal/middleware"
)

type CatalogController struct {
	catalog  service.CatalogService
	exporter service.ExportService
}

func NewCatalogController(catalog service.CatalogService, exporter service.ExportService) *CatalogController {
	return &CatalogController{
		catalog:  catalog,
		exporter: exporter,
	}
}

type CatalogNameRequest struct {
	Name string `json:"name" binding:"required"`
}

type ColorRequest struct {
	Name string `json:"name" binding:"required"`
	Hex  string `json:"hex"`
}

// ListSizes GET /api/v1/admin/sizes
func (ctrl *CatalogController) ListSizes(c *gin.Context) {
	sizes, err := ctrl.catalog.ListSizes()
	if err != nil {
		respondServiceError(c, err, "list sizes")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sizes": sizes})
}

// CreateSize POST /api/v1/admin/sizes
func (ctrl *CatalogController) CreateSize(c *gin.Context) {
	var req CatalogNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	size, err := ctrl.catalog.CreateSize(req.Name)
	if err != nil {
		respondServiceError(c, err, "create size")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"size": size})
}

// ListColors GET /api/v1/admin/colors
func (ctrl *CatalogController) ListColors(c *gin.Context) {
	colors, err := ctrl.catalog.ListColors()
	if err != nil {
		respondServiceError(c, err, "list colors")
		return
	}
	c.JSON(http.StatusOK, gin.H{"colors": colors})
}

// CreateColor POST /api/v1/admin/colors
func (ctrl *CatalogController) CreateColor(c *gin.Context) {
	var req ColorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	color, err := ctrl.catalog.CreateColor(req.Name, req.Hex)
	if err != nil {
		respondServiceError(c, err, "create color")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"color": color})
}

// ListCategories GET /api/v1/admin/categories
func (ctrl *CatalogController) ListCategories(c *gin.Context) {
	categories, err := ctrl.catalog.ListCategories()
	if err != nil {
		respondServiceError(c, err, "list categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// CreateCategory POST /api/v1/admin/categories
func (ctrl *CatalogController) CreateCategory(c *gin.Context) {
	var req CatalogNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := ctrl.catalog.CreateCategory(req.Name)
	if err != nil {
		respondServiceError(c, err, "create category")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": category})
}

// ImportCatalog loads sizes, colors and categories from a workbook
// POST /api/v1/admin/catalog/import (multipart, field "file")
func (ctrl *CatalogController) ImportCatalog(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	header, err := c.FormFile("file")
	if err != nil {
		respondFormFileError(c, err, "file")
		return
	}
	file, err := header.Open()
	if err != nil {
		log.Error("Failed to open uploaded file", err, nil)
		apperrors.RespondWithError(c, http.StatusBadRequest, apperrors.UploadFailed, "could not read uploaded file")
		return
	}
	defer file.Close()

	result, err := ctrl.exporter.ImportCatalog(file)
	if err != nil {
		log.Warn("Catalog import failed", map[string]interface{}{
			"filename": header.Filename,
			"error":    err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, err.Error())
		return
	}

	log.Info("Catalog imported", map[string]interface{}{
		"sizes":      result.Sizes,
		"colors":     result.Colors,
		"categories": result.Categories,
		"skipped":    result.Skipped,
	})
	c.JSON(http.StatusOK, gin.H{"result": result})
}
