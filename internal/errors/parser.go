package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is a code/message pair safe to show to clients
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError turns a storage error into a client-safe ErrorInfo. Postgres
// and sqlite constraint messages are both recognised. context names the
// resource involved ("product", "user", ...) and picks the fallback copy.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "Something went wrong, please try again"}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: notFoundMessage(context)}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return parseDuplicateKeyError(err.Error())
	}

	lower := strings.ToLower(err.Error())

	switch {
	case strings.Contains(lower, "duplicate key") || strings.Contains(lower, "unique constraint"):
		return parseDuplicateKeyError(lower)
	case strings.Contains(lower, "foreign key constraint"):
		if strings.Contains(lower, "still referenced") {
			return ErrorInfo{Code: ResourceConflict, Message: "This record is still in use and cannot be deleted"}
		}
		return ErrorInfo{Code: ResourceNotFound, Message: "A referenced record does not exist"}
	case strings.Contains(lower, "not-null constraint") || strings.Contains(lower, "not null constraint"):
		return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing"}
	case strings.Contains(lower, "check constraint"):
		return ErrorInfo{Code: ValidationInvalidInput, Message: "A field has an invalid value"}
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "timeout"):
		return ErrorInfo{Code: InternalDatabaseError, Message: "The database is unavailable, please try again"}
	}

	return ErrorInfo{Code: InternalServerError, Message: defaultMessage(context)}
}

func parseDuplicateKeyError(errStr string) ErrorInfo {
	lower := strings.ToLower(errStr)

	switch {
	case strings.Contains(lower, "idx_variant_combo") ||
		strings.Contains(lower, "product_variants.product_id"):
		return ErrorInfo{Code: VariantDuplicate, Message: "This product already has a variant with that size and color"}
	case strings.Contains(lower, "email"):
		return ErrorInfo{Code: UserEmailExists, Message: "That email is already registered"}
	case strings.Contains(lower, "products.reference") || strings.Contains(lower, "idx_products_reference"):
		return ErrorInfo{Code: ProductReferenceExists, Message: "A product with that reference already exists"}
	case strings.Contains(lower, "categories") || strings.Contains(lower, "sizes") || strings.Contains(lower, "colors"):
		return ErrorInfo{Code: CatalogNameExists, Message: "That name already exists"}
	}

	return ErrorInfo{Code: ResourceAlreadyExists, Message: "This record already exists"}
}

func notFoundMessage(context string) string {
	lower := strings.ToLower(context)
	switch {
	case strings.Contains(lower, "variant"):
		return "Variant not found"
	case strings.Contains(lower, "product"):
		return "Product not found"
	case strings.Contains(lower, "user"):
		return "User not found"
	case strings.Contains(lower, "category"), strings.Contains(lower, "size"), strings.Contains(lower, "color"):
		return "Catalog entry not found"
	}
	return "The requested record was not found"
}

func defaultMessage(context string) string {
	lower := strings.ToLower(context)
	switch {
	case strings.Contains(lower, "create"):
		return "Could not create the record, please try again"
	case strings.Contains(lower, "update"):
		return "Could not update the record, please try again"
	case strings.Contains(lower, "delete"):
		return "Could not delete the record, please try again"
	}
	return "Something went wrong, please try again"
}

// ParseAndRespond parses err and writes it with the given status
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	info := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{Error: info.Code, Message: info.Message})
}
