package controller

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/liherfashion/inventory-admin/internal/app/model"
	apperrors "github.com/liherfashion/inventory-admin/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogController(t *testing.T) {
	env := setupControllerTest(t)

	t.Run("create and list sizes", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/sizes", gin.H{"name": "XL"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = env.do(t, http.MethodGet, "/sizes", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Sizes []model.Size `json:"sizes"`
		}
		decode(t, w, &resp)
		assert.Len(t, resp.Sizes, 3)
	})

	t.Run("duplicate size", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/sizes", gin.H{"name": "s"})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, apperrors.CatalogNameExists, errorCode(t, w))
	})

	t.Run("color hex", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/colors", gin.H{"name": "Verde", "hex": "green"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperrors.ValidationInvalidFormat, errorCode(t, w))

		w = env.do(t, http.MethodPost, "/colors", gin.H{"name": "Verde", "hex": "#00FF00"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var resp struct {
			Color model.Color `json:"color"`
		}
		decode(t, w, &resp)
		assert.Equal(t, "#00ff00", resp.Color.Hex)
	})

	t.Run("categories", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/categories", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = env.do(t, http.MethodGet, "/categories", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Categories []model.Category `json:"categories"`
		}
		decode(t, w, &resp)
		require.Len(t, resp.Categories, 1)
		assert.Equal(t, "Camisas", resp.Categories[0].Name)
	})
}
