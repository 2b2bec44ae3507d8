package service

import (
	"testing"
	"time"

	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRequestService(t *testing.T, env *testEnv) (*requestService, *model.User) {
	t.Helper()
	user := &model.User{Email: "tienda@liher.test", PasswordHash: "x", Role: model.RoleStaff, IsActive: true}
	require.NoError(t, env.db.Create(user).Error)

	svc := NewRequestService(repository.NewRequestRepository(env.db), repository.NewVariantRepository(env.db)).(*requestService)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc, user
}

func TestRequestService_CreateRequest(t *testing.T) {
	env := setupTestEnv(t)
	svc, user := setupRequestService(t, env)
	product := seedStockedProduct(t, env, "PO-1")
	target := product.Variants[1]

	req, err := svc.CreateRequest(user.ID, target.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, req.Quantity)
	assert.Equal(t, product.ID, req.ProductID)
	assert.Equal(t, model.RequestPending, req.Status)
	assert.Equal(t, "M", req.SizeName)
	assert.Equal(t, "Azul", req.ColorName)
	assert.Equal(t, user.Email, req.User.Email)

	req, err = svc.CreateRequest(user.ID, target.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, req.Quantity)

	_, err = svc.CreateRequest(user.ID, target.ID, -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = svc.CreateRequest(user.ID, 999, 1)
	assert.ErrorIs(t, err, ErrUnknownVariant)

	list, total, err := svc.ListRequests(RequestListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)
}

func TestRequestService_SetStatus(t *testing.T) {
	env := setupTestEnv(t)
	svc, user := setupRequestService(t, env)
	product := seedStockedProduct(t, env, "PO-1")

	req, err := svc.CreateRequest(user.ID, product.Variants[0].ID, 2)
	require.NoError(t, err)

	updated, err := svc.SetStatus(req.ID, model.RequestAttended)
	require.NoError(t, err)
	assert.Equal(t, model.RequestAttended, updated.Status)
	require.NotNil(t, updated.AttendedAt)
	assert.True(t, svc.now().Equal(*updated.AttendedAt))

	pending, _, err := svc.ListRequests(RequestListOptions{Status: model.RequestPending})
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = svc.SetStatus(req.ID, "closed")
	assert.ErrorIs(t, err, ErrInvalidRequestStatus)
	_, err = svc.SetStatus(999, model.RequestAttended)
	assert.ErrorIs(t, err, ErrRequestNotFound)
	_, _, err = svc.ListRequests(RequestListOptions{Status: "closed"})
	assert.ErrorIs(t, err, ErrInvalidRequestStatus)
}
