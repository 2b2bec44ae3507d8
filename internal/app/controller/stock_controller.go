package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liherfashion/inventory-admin/internal/app/service"
	"github.com/liherfashion/inventory-admin/internal/middleware"
)

type StockController struct {
	stockService service.StockService
}

func NewStockController(stockService service.StockService) *StockController {
	return &StockController{stockService: stockService}
}

type StockEntryRequest struct {
	VariantID uint   `json:"variant_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
	Note      string `json:"note"`
}

// RecordEntry receives units for one variant of the product
// POST /api/v1/admin/products/:id/stock-entries
func (ctrl *StockController) RecordEntry(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	productID, ok := idParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req StockEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	entry, v, err := ctrl.stockService.RecordEntry(userID, productID, service.StockEntryInput{
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
		Note:      req.Note,
	})
	if err != nil {
		respondServiceError(c, err, "record stock entry")
		return
	}

	log.Info("Stock entry recorded", map[string]interface{}{
		"product_id": productID,
		"variant_id": v.ID,
		"quantity":   entry.Quantity,
	})
	c.JSON(http.StatusCreated, gin.H{
		"entry":   entry,
		"variant": v,
	})
}

// ListMovements GET /api/v1/admin/products/:id/movements?limit=&offset=
func (ctrl *StockController) ListMovements(c *gin.Context) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}
	limit, offset := pagination(c)

	entries, total, err := ctrl.stockService.ListMovements(productID, limit, offset)
	if err != nil {
		respondServiceError(c, err, "list stock movements")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"movements": entries,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}
