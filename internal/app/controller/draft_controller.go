package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/liherfashion/inventory-admin/internal/app/service"
	apperrors "github.com/liherfashion/inventory-admin/internal/errors"
	"github.com/liherfashion/inventory-admin/internal/middleware"
	"github.com/liherfashion/inventory-admin/internal/variant"
)

// DraftController exposes the variant draft sessions used by the product
// form. Every handler acts on behalf of the authenticated user.
type DraftController struct {
	drafts service.VariantDraftService
}

func NewDraftController(drafts service.VariantDraftService) *DraftController {
	return &DraftController{drafts: drafts}
}

// AddVariantsRequest adds one draft, or one per color for a single size.
// Colors takes precedence over the single ColorID/Stock pair.
type AddVariantsRequest struct {
	SizeID  string               `json:"size_id"`
	ColorID string               `json:"color_id"`
	Stock   int                  `json:"stock"`
	Colors  []variant.ColorStock `json:"colors"`
}

type UpdateStockRequest struct {
	SizeID   string `json:"size_id"`
	ColorID  string `json:"color_id"`
	Absolute bool   `json:"absolute"`
	Value    int    `json:"value"`
}

type EditExistingRequest struct {
	Stock *int `json:"stock"`
}

type SubmitDraftRequest struct {
	Product *ProductRequest `json:"product"`
}

// OpenCreate starts a draft session for a new product
// POST /api/v1/admin/drafts
func (ctrl *DraftController) OpenCreate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	view, err := ctrl.drafts.OpenCreate(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "open draft")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Draft session opened", map[string]interface{}{
		"session_id": view.ID,
		"recovered":  view.Recovered,
	})
	c.JSON(http.StatusCreated, gin.H{"draft": view})
}

// OpenEdit starts a draft session seeded with a product's variants
// POST /api/v1/admin/products/:id/drafts
func (ctrl *DraftController) OpenEdit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}

	view, err := ctrl.drafts.OpenEdit(c.Request.Context(), userID, productID)
	if err != nil {
		respondServiceError(c, err, "open draft")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Draft session opened", map[string]interface{}{
		"session_id": view.ID,
		"product_id": productID,
	})
	c.JSON(http.StatusCreated, gin.H{"draft": view})
}

// GetDraft GET /api/v1/admin/drafts/:sid
func (ctrl *DraftController) GetDraft(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	view, err := ctrl.drafts.Get(c.Request.Context(), userID, c.Param("sid"))
	if err != nil {
		respondServiceError(c, err, "get draft")
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": view})
}

// AddVariants POST /api/v1/admin/drafts/:sid/variants
func (ctrl *DraftController) AddVariants(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req AddVariantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	colors := req.Colors
	if len(colors) == 0 {
		colors = []variant.ColorStock{{ColorID: req.ColorID, Stock: req.Stock}}
	}

	view, err := ctrl.drafts.AddVariants(c.Request.Context(), userID, c.Param("sid"), req.SizeID, colors)
	if err != nil {
		respondServiceError(c, err, "add variants")
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": view})
}

// UpdateStock PATCH /api/v1/admin/drafts/:sid/variants/stock
func (ctrl *DraftController) UpdateStock(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req UpdateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	key := variant.Key{SizeID: req.SizeID, ColorID: req.ColorID}
	update := variant.StockUpdate{Absolute: req.Absolute, Value: req.Value}
	view, err := ctrl.drafts.UpdateDraftStock(c.Request.Context(), userID, c.Param("sid"), key, update)
	if err != nil {
		respondServiceError(c, err, "update draft stock")
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": view})
}

// RemoveDraft DELETE /api/v1/admin/drafts/:sid/variants?size=&color=
func (ctrl *DraftController) RemoveDraft(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	key := variant.Key{SizeID: c.Query("size"), ColorID: c.Query("color")}
	view, err := ctrl.drafts.RemoveDraft(c.Request.Context(), userID, c.Param("sid"), key)
	if err != nil {
		respondServiceError(c, err, "remove draft")
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": view})
}

// EditExisting records a stock edit on a saved variant
// PATCH /api/v1/admin/drafts/:sid/existing/:vid
func (ctrl *DraftController) EditExisting(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req EditExistingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	view, err := ctrl.drafts.RecordEdit(c.Request.Context(), userID, c.Param("sid"), c.Param("vid"), variant.Patch{Stock: req.Stock})
	if err != nil {
		respondServiceError(c, err, "edit variant")
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": view})
}

// DeleteExisting marks a saved variant for deletion
// DELETE /api/v1/admin/drafts/:sid/existing/:vid
func (ctrl *DraftController) DeleteExisting(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	view, err := ctrl.drafts.MarkDeleted(c.Request.Context(), userID, c.Param("sid"), c.Param("vid"))
	if err != nil {
		respondServiceError(c, err, "delete variant")
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": view})
}

// UploadImage stores an image for a draft (size + color fields) or a saved
// variant (variant_id field).
// POST /api/v1/admin/drafts/:sid/images
func (ctrl *DraftController) UploadImage(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	header, err := c.FormFile("image")
	if err != nil {
		respondFormFileError(c, err, "image")
		return
	}

	var target variant.ImageTarget
	if id := strings.TrimSpace(c.PostForm("variant_id")); id != "" {
		target = variant.ExistingTarget(id)
	} else {
		target = variant.DraftTarget(variant.Key{SizeID: c.PostForm("size"), ColorID: c.PostForm("color")})
	}

	file, err := header.Open()
	if err != nil {
		log.Error("Failed to open uploaded file", err, nil)
		apperrors.RespondWithError(c, http.StatusBadRequest, apperrors.UploadFailed, "could not read uploaded file")
		return
	}
	defer file.Close()

	view, ref, err := ctrl.drafts.UploadImage(c.Request.Context(), userID, c.Param("sid"), service.ImageUpload{
		Target:   target,
		Filename: header.Filename,
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		respondServiceError(c, err, "upload image")
		return
	}

	log.Info("Draft image uploaded", map[string]interface{}{
		"session_id": view.ID,
		"target":     target.String(),
		"key":        ref.Key,
	})
	c.JSON(http.StatusOK, gin.H{
		"draft": view,
		"image": ref,
	})
}

// Payload returns the submission the session would send
// GET /api/v1/admin/drafts/:sid/payload
func (ctrl *DraftController) Payload(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	payload, err := ctrl.drafts.Payload(c.Request.Context(), userID, c.Param("sid"))
	if err != nil {
		respondServiceError(c, err, "draft payload")
		return
	}
	c.JSON(http.StatusOK, payload)
}

// Submit applies the session to the catalog
// POST /api/v1/admin/drafts/:sid/submit
func (ctrl *DraftController) Submit(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req SubmitDraftRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}
	var input *service.ProductInput
	if req.Product != nil {
		in := req.Product.input()
		input = &in
	}

	product, err := ctrl.drafts.Submit(c.Request.Context(), userID, c.Param("sid"), input)
	if err != nil {
		respondServiceError(c, err, "submit draft")
		return
	}

	log.Info("Draft submitted", map[string]interface{}{
		"session_id": c.Param("sid"),
		"product_id": product.ID,
		"variants":   len(product.Variants),
	})
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// Discard DELETE /api/v1/admin/drafts/:sid
func (ctrl *DraftController) Discard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := ctrl.drafts.Discard(c.Request.Context(), userID, c.Param("sid")); err != nil {
		respondServiceError(c, err, "discard draft")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Draft discarded"})
}
