package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/internal/app/service"
	apperrors "github.com/liherfashion/inventory-admin/internal/errors"
	"github.com/liherfashion/inventory-admin/internal/middleware"
)

type UserController struct {
	userService service.UserService
}

func NewUserController(userService service.UserService) *UserController {
	return &UserController{userService: userService}
}

// ListUsers GET /api/v1/admin/users?search=&role=&active=&limit=&offset=
func (ctrl *UserController) ListUsers(c *gin.Context) {
	limit, offset := pagination(c)

	var active *bool
	if raw := c.Query("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "active must be true or false")
			return
		}
		active = &v
	}

	users, total, err := ctrl.userService.ListUsers(service.UserListOptions{
		Search: c.Query("search"),
		Role:   model.UserRole(c.Query("role")),
		Active: active,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondServiceError(c, err, "list users")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":  users,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetUser GET /api/v1/admin/users/:id
func (ctrl *UserController) GetUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	user, err := ctrl.userService.GetUser(id)
	if err != nil {
		respondServiceError(c, err, "get user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// CreateUser POST /api/v1/admin/users
func (ctrl *UserController) CreateUser(c *gin.Context) {
	var input service.UserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := ctrl.userService.CreateUser(input)
	if err != nil {
		respondServiceError(c, err, "create user")
		return
	}

	middleware.GetLoggerFromContext(c).Info("User created", map[string]interface{}{
		"created_user_id": user.ID,
		"role":            user.Role,
	})
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// UpdateUser PUT /api/v1/admin/users/:id
func (ctrl *UserController) UpdateUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var input service.UserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := ctrl.userService.UpdateUser(id, input)
	if err != nil {
		respondServiceError(c, err, "update user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ToggleActive PATCH /api/v1/admin/users/:id/toggle-active
func (ctrl *UserController) ToggleActive(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	user, err := ctrl.userService.ToggleActive(actorID, id)
	if err != nil {
		respondServiceError(c, err, "toggle user")
		return
	}

	middleware.GetLoggerFromContext(c).Info("User active flag toggled", map[string]interface{}{
		"target_user_id": user.ID,
		"is_active":      user.IsActive,
	})
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// EmailAvailable GET /api/v1/admin/users/email-available?email=&exclude_id=
func (ctrl *UserController) EmailAvailable(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "email is required")
		return
	}

	var excludeID uint
	if id := optionalUintQuery(c, "exclude_id"); id != nil {
		excludeID = *id
	}

	available, err := ctrl.userService.EmailAvailable(email, excludeID)
	if err != nil {
		respondServiceError(c, err, "check email")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"email":     email,
		"available": available,
	})
}
