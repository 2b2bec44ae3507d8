package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/liherfashion/inventory-admin/internal/app/service"
	apperrors "github.com/liherfashion/inventory-admin/internal/errors"
	"github.com/liherfashion/inventory-admin/internal/middleware"
	"github.com/liherfashion/inventory-admin/internal/variant"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// serviceErrors maps service and reconciler sentinels to responses. The
// first match wins, so more specific errors come first.
var serviceErrors = []errorMapping{
	// auth
	{service.ErrInvalidCredentials, http.StatusUnauthorized, apperrors.AuthUnauthorized},
	{service.ErrUserInactive, http.StatusForbidden, apperrors.AuthUserInactive},

	// drafts
	{service.ErrDraftSessionNotFound, http.StatusNotFound, apperrors.DraftNotFound},
	{service.ErrDraftConflict, http.StatusConflict, apperrors.DraftConflict},
	{service.ErrEmptySubmission, http.StatusBadRequest, apperrors.DraftEmpty},
	{service.ErrProductDetailsEmpty, http.StatusBadRequest, apperrors.ValidationRequired},
	{service.ErrImageStorage, http.StatusInternalServerError, apperrors.InternalStorageError},
	{variant.ErrStaleImage, http.StatusConflict, apperrors.VariantImageStale},
	{variant.ErrImageTooLarge, http.StatusBadRequest, apperrors.UploadFileTooLarge},
	{variant.ErrImageType, http.StatusBadRequest, apperrors.UploadInvalidFileType},
	{variant.ErrImageEmpty, http.StatusBadRequest, apperrors.UploadInvalidFileType},

	// variants
	{variant.ErrDuplicateVariant, http.StatusConflict, apperrors.VariantDuplicate},
	{service.ErrVariantConflict, http.StatusConflict, apperrors.VariantDuplicate},
	{variant.ErrDraftNotFound, http.StatusNotFound, apperrors.VariantNotFound},
	{variant.ErrVariantNotFound, http.StatusNotFound, apperrors.VariantNotFound},
	{service.ErrUnknownVariant, http.StatusBadRequest, apperrors.VariantNotFound},
	{variant.ErrVariantDeleted, http.StatusConflict, apperrors.VariantDeleted},
	{variant.ErrInvalidStock, http.StatusBadRequest, apperrors.VariantInvalidStock},
	{variant.ErrNegativeStock, http.StatusBadRequest, apperrors.VariantInvalidStock},
	{variant.ErrSizeRequired, http.StatusBadRequest, apperrors.VariantSizeRequired},
	{variant.ErrColorRequired, http.StatusBadRequest, apperrors.VariantColorRequired},
	{variant.ErrEmptyPatch, http.StatusBadRequest, apperrors.ValidationRequired},
	{variant.ErrInvalidForm, http.StatusBadRequest, apperrors.ValidationInvalidFormat},
	{service.ErrInvalidVariantID, http.StatusBadRequest, apperrors.ValidationInvalidID},
	{service.ErrUnknownSize, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrUnknownColor, http.StatusBadRequest, apperrors.ValidationInvalidInput},

	// products and catalog
	{service.ErrProductNotFound, http.StatusNotFound, apperrors.ProductNotFound},
	{service.ErrReferenceExists, http.StatusConflict, apperrors.ProductReferenceExists},
	{service.ErrInvalidProduct, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrCategoryNotFound, http.StatusBadRequest, apperrors.CategoryNotFound},
	{service.ErrCatalogNameRequired, http.StatusBadRequest, apperrors.ValidationRequired},
	{service.ErrCatalogNameTooLong, http.StatusBadRequest, apperrors.ValidationTooLong},
	{service.ErrCatalogNameExists, http.StatusConflict, apperrors.CatalogNameExists},
	{service.ErrInvalidColorHex, http.StatusBadRequest, apperrors.ValidationInvalidFormat},

	// stock entries and product requests
	{service.ErrInvalidQuantity, http.StatusBadRequest, apperrors.ValidationInvalidRange},
	{service.ErrNoteTooLong, http.StatusBadRequest, apperrors.ValidationTooLong},
	{service.ErrRequestNotFound, http.StatusNotFound, apperrors.RequestNotFound},
	{service.ErrInvalidRequestStatus, http.StatusBadRequest, apperrors.ValidationInvalidInput},

	// users
	{service.ErrUserNotFound, http.StatusNotFound, apperrors.UserNotFound},
	{service.ErrEmailAlreadyExists, http.StatusConflict, apperrors.UserEmailExists},
	{service.ErrCannotDeactivateSelf, http.StatusBadRequest, apperrors.UserCannotDeactivate},
	{service.ErrInvalidUser, http.StatusBadRequest, apperrors.ValidationInvalidInput},
}

// respondServiceError writes the response for err. Unknown errors are logged
// and parsed as storage errors. context names the failed operation.
func respondServiceError(c *gin.Context, err error, context string) {
	log := middleware.GetLoggerFromContext(c)

	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			fields := map[string]interface{}{
				"context": context,
				"code":    m.code,
				"error":   err.Error(),
			}
			if m.status >= http.StatusInternalServerError {
				log.Error("Request failed", err, fields)
			} else {
				log.Warn("Request rejected", fields)
			}
			apperrors.RespondWithError(c, m.status, m.code, err.Error())
			return
		}
	}

	log.Error("Unexpected error", err, map[string]interface{}{
		"context": context,
	})
	apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, context)
}

func respondBindError(c *gin.Context, err error) {
	middleware.GetLoggerFromContext(c).Warn("Invalid request body", map[string]interface{}{
		"error": err.Error(),
	})
	apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
}

// respondFormFileError answers a failed FormFile lookup. A body cut off by
// middleware.LimitBody gets 413, anything else means the file is missing.
func respondFormFileError(c *gin.Context, err error, field string) {
	log := middleware.GetLoggerFromContext(c)

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		log.Warn("Upload exceeds body limit", map[string]interface{}{
			"field": field,
			"limit": tooLarge.Limit,
		})
		apperrors.RespondWithError(c, http.StatusRequestEntityTooLarge, apperrors.UploadFileTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
		return
	}

	log.Warn("Missing upload file", map[string]interface{}{
		"field": field,
		"error": err.Error(),
	})
	apperrors.BadRequest(c, apperrors.ValidationRequired, field+" file is required")
}

// idParam parses a positive numeric path parameter, responding on failure
func idParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid ID format", map[string]interface{}{
			"param": name,
			"value": raw,
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// currentUserID returns the authenticated user, responding 401 when missing
func currentUserID(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return 0, false
	}
	return userID, true
}

// pagination reads limit/offset query params with defaults and bounds
func pagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err := strconv.Atoi(c.Query("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// optionalUintQuery returns nil when the parameter is absent or not a positive integer
func optionalUintQuery(c *gin.Context, name string) *uint {
	v, err := strconv.ParseUint(c.Query(name), 10, 32)
	if err != nil || v == 0 {
		return nil
	}
	id := uint(v)
	return &id
}
