package controller

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/internal/app/service"
	apperrors "github.com/liherfashion/inventory-admin/internal/errors"
	"github.com/liherfashion/inventory-admin/internal/middleware"
	"github.com/liherfashion/inventory-admin/internal/variant"
	"github.com/shopspring/decimal"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ProductController struct {
	productService service.ProductService
	exportService  service.ExportService
}

func NewProductController(productService service.ProductService, exportService service.ExportService) *ProductController {
	return &ProductController{
		productService: productService,
		exportService:  exportService,
	}
}

type ProductRequest struct {
	Name        string              `json:"name" binding:"required"`
	Reference   string              `json:"reference" binding:"required"`
	CategoryID  *uint               `json:"category_id"`
	Price       decimal.Decimal     `json:"price"`
	Description string              `json:"description"`
	ImageURL    string              `json:"image_url"`
	Status      model.ProductStatus `json:"status"`
}

func (r ProductRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:        r.Name,
		Reference:   r.Reference,
		CategoryID:  r.CategoryID,
		Price:       r.Price,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		Status:      r.Status,
	}
}

// ListProducts handles the inventory table filters
// GET /api/v1/admin/products?search=&category_id=&status=&limit=&offset=
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	limit, offset := pagination(c)

	products, total, err := ctrl.productService.ListProducts(service.ProductListOptions{
		Search:     c.Query("search"),
		CategoryID: optionalUintQuery(c, "category_id"),
		Status:     model.ProductStatus(c.Query("status")),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		respondServiceError(c, err, "list products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetProduct GET /api/v1/admin/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	product, err := ctrl.productService.GetProductByID(id)
	if err != nil {
		respondServiceError(c, err, "get product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// CreateProduct creates a product without variants
// POST /api/v1/admin/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := ctrl.productService.CreateProduct(req.input())
	if err != nil {
		respondServiceError(c, err, "create product")
		return
	}

	log.Info("Product created successfully", map[string]interface{}{
		"product_id": product.ID,
		"reference":  product.Reference,
	})
	c.JSON(http.StatusCreated, gin.H{
		"product": product,
	})
}

// UpdateProduct PUT /api/v1/admin/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := ctrl.productService.UpdateProduct(id, req.input())
	if err != nil {
		respondServiceError(c, err, "update product")
		return
	}

	log.Info("Product updated successfully", map[string]interface{}{
		"product_id": product.ID,
	})
	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// DeleteProduct soft deletes the product and drops its variants
// DELETE /api/v1/admin/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "delete product")
		return
	}

	log.Info("Product deleted successfully", map[string]interface{}{
		"product_id": id,
	})
	c.JSON(http.StatusOK, gin.H{
		"message": "Product deleted successfully",
	})
}

// ApplyVariants accepts the classic form submission carrying the
// new_variants/edited_variants/deleted_variants hidden fields.
// POST /api/v1/admin/products/:id/variants/apply
func (ctrl *ProductController) ApplyVariants(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := c.Request.ParseForm(); err != nil {
		log.Warn("Invalid form body", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "Invalid form data")
		return
	}
	payload, err := variant.ParseForm(c.Request.PostForm)
	if err != nil {
		respondServiceError(c, err, "apply variants")
		return
	}

	if err := ctrl.productService.ApplySubmission(c.Request.Context(), id, payload); err != nil {
		respondServiceError(c, err, "apply variants")
		return
	}

	product, err := ctrl.productService.GetProductByID(id)
	if err != nil {
		respondServiceError(c, err, "get product")
		return
	}

	log.Info("Variant submission applied", map[string]interface{}{
		"product_id": id,
		"new":        len(payload.New),
		"edited":     len(payload.Edited),
		"deleted":    len(payload.Deleted),
	})
	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// Summary GET /api/v1/admin/products/summary
func (ctrl *ProductController) Summary(c *gin.Context) {
	summary, err := ctrl.productService.Summary()
	if err != nil {
		respondServiceError(c, err, "inventory summary")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summary": summary,
	})
}

// Export streams the inventory workbook
// GET /api/v1/admin/products/export
func (ctrl *ProductController) Export(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var buf bytes.Buffer
	rows, err := ctrl.exportService.ExportInventory(&buf)
	if err != nil {
		respondServiceError(c, err, "export inventory")
		return
	}

	filename := fmt.Sprintf("inventory-%s.xlsx", time.Now().Format("20060102-1504"))
	log.Info("Inventory exported", map[string]interface{}{
		"rows": rows,
	})
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
