package controller

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/liherfashion/inventory-admin/internal/errors"
	"github.com/liherfashion/inventory-admin/internal/middleware"
	"github.com/liherfashion/inventory-admin/internal/storage"
)

const productImageFolder = "products"

var allowedImageTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
}

// Presigner issues direct-to-bucket upload URLs
type Presigner interface {
	PresignUpload(ctx context.Context, folder, filename, contentType string) (*storage.PresignedUpload, error)
}

type UploadController struct {
	presigner Presigner
}

// NewUploadController accepts a nil presigner when storage has no direct
// upload support.
func NewUploadController(presigner Presigner) *UploadController {
	return &UploadController{presigner: presigner}
}

type PresignRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// Presign generates a URL for uploading a product cover image
// POST /api/v1/admin/uploads/presign
func (ctrl *UploadController) Presign(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	if ctrl.presigner == nil {
		apperrors.RespondWithError(c, http.StatusNotImplemented, apperrors.UploadNotSupported,
			"direct uploads require S3 storage")
		return
	}

	var req PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if !imageTypeAllowed(contentType) {
		log.Warn("Invalid content type", map[string]interface{}{
			"content_type": req.ContentType,
		})
		apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "Only image files are allowed (JPEG, PNG, GIF, WEBP)")
		return
	}

	upload, err := ctrl.presigner.PresignUpload(c.Request.Context(), productImageFolder, req.Filename, contentType)
	if err != nil {
		log.Error("Failed to generate presigned URL", err, map[string]interface{}{
			"filename":     req.Filename,
			"content_type": contentType,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Failed to generate presigned URL")
		return
	}

	log.Info("Presigned URL generated successfully", map[string]interface{}{
		"key": upload.Key,
	})
	c.JSON(http.StatusOK, upload)
}

func imageTypeAllowed(contentType string) bool {
	for _, t := range allowedImageTypes {
		if t == contentType {
			return true
		}
	}
	return false
}
