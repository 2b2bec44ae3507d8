package errors

// Error codes returned in the "error" field of every failed response.
// Format: CATEGORY_SPECIFIC_DETAIL. The admin frontend maps these to copy.

const (
	// Auth
	AuthUnauthorized = "AUTH_UNAUTHORIZED"
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked = "AUTH_TOKEN_REVOKED"
	AuthUserInactive = "AUTH_USER_INACTIVE"

	// Authorization
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND"
	AuthzOwnerOnly    = "AUTHZ_OWNER_ONLY"

	// Validation
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"
	ValidationTooLong       = "VALIDATION_TOO_LONG"
	ValidationRequired      = "VALIDATION_REQUIRED"

	// Generic resources
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// Catalog and users
	ProductNotFound        = "PRODUCT_NOT_FOUND"
	ProductReferenceExists = "PRODUCT_REFERENCE_EXISTS"
	CategoryNotFound       = "CATEGORY_NOT_FOUND"
	CatalogNameExists      = "CATALOG_NAME_EXISTS"
	UserNotFound           = "USER_NOT_FOUND"
	UserEmailExists        = "USER_EMAIL_EXISTS"
	UserCannotDeactivate   = "USER_CANNOT_DEACTIVATE_SELF"
	RequestNotFound        = "REQUEST_NOT_FOUND"

	// Variant drafts
	DraftNotFound        = "DRAFT_NOT_FOUND"
	DraftConflict        = "DRAFT_CONFLICT"
	DraftEmpty           = "DRAFT_EMPTY"
	VariantDuplicate     = "VARIANT_DUPLICATE"
	VariantNotFound      = "VARIANT_NOT_FOUND"
	VariantDeleted       = "VARIANT_DELETED"
	VariantInvalidStock  = "VARIANT_INVALID_STOCK"
	VariantSizeRequired  = "VARIANT_SIZE_REQUIRED"
	VariantColorRequired = "VARIANT_COLOR_REQUIRED"
	VariantImageStale    = "VARIANT_IMAGE_STALE"

	// Uploads
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadFailed          = "UPLOAD_FAILED"
	UploadNotSupported    = "UPLOAD_NOT_SUPPORTED"

	// Internal
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalStorageError  = "INTERNAL_STORAGE_ERROR"
)
