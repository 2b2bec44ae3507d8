package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/internal/app/service"
	"github.com/liherfashion/inventory-admin/internal/middleware"
)

// RequestController serves restock requests raised for sold out variants
type RequestController struct {
	requestService service.RequestService
}

func NewRequestController(requestService service.RequestService) *RequestController {
	return &RequestController{requestService: requestService}
}

type CreateRequestBody struct {
	VariantID uint `json:"variant_id" binding:"required"`
	Quantity  int  `json:"quantity"`
}

type RequestStatusBody struct {
	Status model.RequestStatus `json:"status" binding:"required"`
}

// ListRequests GET /api/v1/admin/requests?status=&limit=&offset=
func (ctrl *RequestController) ListRequests(c *gin.Context) {
	limit, offset := pagination(c)

	requests, total, err := ctrl.requestService.ListRequests(service.RequestListOptions{
		Status: model.RequestStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondServiceError(c, err, "list product requests")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": requests,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// CreateRequest POST /api/v1/admin/requests
func (ctrl *RequestController) CreateRequest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindError(c, err)
		return
	}

	req, err := ctrl.requestService.CreateRequest(userID, body.VariantID, body.Quantity)
	if err != nil {
		respondServiceError(c, err, "create product request")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Product request created", map[string]interface{}{
		"request_id": req.ID,
		"variant_id": req.VariantID,
	})
	c.JSON(http.StatusCreated, gin.H{"request": req})
}

// UpdateStatus marks a request attended or reopens it
// PATCH /api/v1/admin/requests/:id/status
func (ctrl *RequestController) UpdateStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var body RequestStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindError(c, err)
		return
	}

	req, err := ctrl.requestService.SetStatus(id, body.Status)
	if err != nil {
		respondServiceError(c, err, "update product request status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": req})
}
