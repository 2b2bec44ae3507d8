package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		context string
		code    string
	}{
		{"nil", nil, "product", InternalServerError},
		{"not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), "get product", ResourceNotFound},
		{"variant pair", errors.New(`UNIQUE constraint failed: product_variants.product_id, product_variants.size_id`), "apply", VariantDuplicate},
		{"postgres email", errors.New(`ERROR: duplicate key value violates unique constraint "idx_users_email"`), "create user", UserEmailExists},
		{"reference", errors.New(`UNIQUE constraint failed: products.reference`), "create product", ProductReferenceExists},
		{"catalog", errors.New(`UNIQUE constraint failed: colors.name`), "create color", CatalogNameExists},
		{"still referenced", errors.New(`violates foreign key constraint "fk_x" on table "products": key is still referenced`), "delete category", ResourceConflict},
		{"connection", errors.New("dial tcp: connection refused"), "list", InternalDatabaseError},
		{"unknown", errors.New("boom"), "update product", InternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ParseError(tt.err, tt.context).Code)
		})
	}

	assert.Equal(t, "Product not found", ParseError(gorm.ErrRecordNotFound, "product").Message)
	assert.Equal(t, "Could not update the record, please try again", ParseError(errors.New("boom"), "update product").Message)
}
