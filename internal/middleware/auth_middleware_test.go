package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/internal/errors"
	"github.com/liherfashion/inventory-admin/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-for-middleware"

type revokedSet map[string]bool

func (r revokedSet) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return r[tokenID], nil
}

func setupMiddlewareTest(revoked RevocationChecker) (*gin.Engine, *AuthMiddleware) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router, NewAuthMiddleware(testJWTSecret, revoked, nil)
}

type userTable map[uint]*model.User

func (u userTable) FindByID(id uint) (*model.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, fmt.Errorf("user %d not found", id)
}

func generateTestToken(t *testing.T, userID uint, email, role string) (string, *util.Claims) {
	token, claims, err := util.GenerateAccessToken(userID, email, role, testJWTSecret, 15*time.Minute)
	require.NoError(t, err)
	return token, claims
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errors.ErrorResponse {
	t.Helper()
	var body errors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthMiddleware_Authenticate_Success(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest(nil)
	token, _ := generateTestToken(t, 1, "admin@example.com", "admin")

	router.GET("/test", authMiddleware.Authenticate(), func(c *gin.Context) {
		userID, _ := GetUserID(c)
		email, _ := GetUserEmail(c)
		role, _ := GetUserRole(c)
		claims, ok := GetClaims(c)
		require.True(t, ok)

		c.JSON(http.StatusOK, gin.H{
			"user_id":  userID,
			"email":    email,
			"role":     role,
			"token_id": claims.ID,
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["user_id"])
	assert.Equal(t, "admin", body["role"])
	assert.NotEmpty(t, body["token_id"])
}

func TestAuthMiddleware_Authenticate_Failures(t *testing.T) {
	expired, _, err := util.GenerateAccessToken(1, "a@example.com", "admin", testJWTSecret, -time.Minute)
	require.NoError(t, err)
	foreign, _, err := util.GenerateAccessToken(1, "a@example.com", "admin", "other-secret", time.Minute)
	require.NoError(t, err)

	cases := map[string]struct {
		header string
		code   string
	}{
		"missing header": {"", errors.AuthUnauthorized},
		"wrong scheme":   {"Basic abc", errors.AuthTokenInvalid},
		"garbage token":  {"Bearer not-a-jwt", errors.AuthTokenInvalid},
		"wrong secret":   {"Bearer " + foreign, errors.AuthTokenInvalid},
		"expired":        {"Bearer " + expired, errors.AuthTokenExpired},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			router, authMiddleware := setupMiddlewareTest(nil)
			router.GET("/test", authMiddleware.Authenticate(), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tc.code, decodeError(t, w).Error)
		})
	}
}

func TestAuthMiddleware_Authenticate_Revoked(t *testing.T) {
	token, claims := generateTestToken(t, 1, "admin@example.com", "admin")
	router, authMiddleware := setupMiddlewareTest(revokedSet{claims.ID: true})
	router.GET("/test", authMiddleware.Authenticate(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, errors.AuthTokenRevoked, decodeError(t, w).Error)
}

func TestAuthMiddleware_RequireRole(t *testing.T) {
	cases := map[string]struct {
		role   string
		status int
	}{
		"admin passes":     {"admin", http.StatusOK},
		"staff is refused": {"staff", http.StatusForbidden},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			router, authMiddleware := setupMiddlewareTest(nil)
			token, _ := generateTestToken(t, 2, "user@example.com", tc.role)
			router.GET("/admin", authMiddleware.Authenticate(), authMiddleware.RequireRole(model.RoleAdmin), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestAuthMiddleware_RequireRole_NoAuthentication(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest(nil)
	router.GET("/admin", authMiddleware.RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, errors.AuthzRoleNotFound, decodeError(t, w).Error)
}

func TestAuthMiddleware_RequireSection(t *testing.T) {
	users := userTable{
		2: {ID: 2, Role: model.RoleStaff, IsActive: true, Sections: model.SectionList{model.SectionInventory}},
		3: {ID: 3, Role: model.RoleStaff, IsActive: true, Sections: model.SectionList{model.SectionRequests}},
		4: {ID: 4, Role: model.RoleStaff, IsActive: false, Sections: model.SectionList{model.SectionInventory}},
	}

	cases := map[string]struct {
		users  UserLookup
		userID uint
		role   string
		status int
		code   string
	}{
		"admin passes without lookup":  {nil, 1, "admin", http.StatusOK, ""},
		"staff with the section":       {users, 2, "staff", http.StatusOK, ""},
		"staff without the section":    {users, 3, "staff", http.StatusForbidden, errors.AuthzForbidden},
		"inactive staff":               {users, 4, "staff", http.StatusForbidden, errors.AuthzForbidden},
		"staff missing from the table": {users, 9, "staff", http.StatusForbidden, errors.AuthzForbidden},
		"staff without lookup":         {nil, 2, "staff", http.StatusForbidden, errors.AuthzForbidden},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			router := gin.New()
			authMiddleware := NewAuthMiddleware(testJWTSecret, nil, tc.users)
			token, _ := generateTestToken(t, tc.userID, "user@example.com", tc.role)
			router.GET("/inventory", authMiddleware.Authenticate(), authMiddleware.RequireSection(model.SectionInventory), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/inventory", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.code != "" {
				assert.Equal(t, tc.code, decodeError(t, w).Error)
			}
		})
	}
}

func TestAuthMiddleware_RequireSection_NoAuthentication(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest(nil)
	router.GET("/inventory", authMiddleware.RequireSection(model.SectionInventory), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/inventory", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, errors.AuthzRoleNotFound, decodeError(t, w).Error)
}

func TestContextGetters_Missing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := GetUserID(c)
	assert.False(t, ok)
	_, ok = GetUserEmail(c)
	assert.False(t, ok)
	_, ok = GetUserRole(c)
	assert.False(t, ok)
	_, ok = GetClaims(c)
	assert.False(t, ok)
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(LoggingMiddleware())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "edge-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "edge-123", w.Header().Get(RequestIDHeader))
}
