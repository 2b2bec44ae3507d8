package service

import (
	"context"
	"errors"
	"time"

	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/internal/app/repository"
	"github.com/liherfashion/inventory-admin/pkg/logger"
	"github.com/liherfashion/inventory-admin/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user account is disabled")
)

// TokenRevoker keeps logged-out token ids until they expire
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type LoginResult struct {
	User        *model.User `json:"user"`
	AccessToken string      `json:"access_token"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

type AuthService interface {
	Login(email, password string) (*LoginResult, error)
	// Logout revokes the token. It is a no-op without a revoker.
	Logout(ctx context.Context, claims *util.Claims) error
}

type authService struct {
	userRepo     repository.UserRepository
	hasher       *util.PasswordHasher
	revoker      TokenRevoker
	jwtSecret    string
	accessExpiry time.Duration
	now          func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, hasher *util.PasswordHasher, revoker TokenRevoker, jwtSecret string, accessExpiry time.Duration) AuthService {
	return &authService{
		userRepo:     userRepo,
		hasher:       hasher,
		revoker:      revoker,
		jwtSecret:    jwtSecret,
		accessExpiry: accessExpiry,
		now:          time.Now,
	}
}

func (s *authService) Login(email, password string) (*LoginResult, error) {
	logger.Info("Login attempt", map[string]interface{}{
		"email": email,
	})

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: user not found", map[string]interface{}{
				"email": email,
			})
			return nil, ErrInvalidCredentials
		}
		logger.Error("Failed to find user", err, map[string]interface{}{
			"email": email,
		})
		return nil, err
	}

	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, util.ErrPasswordMismatch) {
			logger.Error("Stored password hash is unreadable", err, map[string]interface{}{
				"user_id": user.ID,
			})
		} else {
			logger.Warn("Login failed: invalid password", map[string]interface{}{
				"user_id": user.ID,
			})
		}
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		logger.Warn("Login failed: user inactive", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, ErrUserInactive
	}

	token, claims, err := util.GenerateAccessToken(user.ID, user.Email, string(user.Role), s.jwtSecret, s.accessExpiry)
	if err != nil {
		logger.Error("Failed to generate access token", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, err
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(user, password)
	}

	now := s.now()
	if err := s.userRepo.TouchLastLogin(user.ID, now); err != nil {
		logger.Warn("Failed to record last login", map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	} else {
		user.LastLoginAt = &now
	}

	logger.Info("User logged in", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})
	return &LoginResult{User: user, AccessToken: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// rehash moves a stored hash to the configured cost. Failures only cost the
// upgrade, never the login.
func (s *authService) rehash(user *model.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		user.PasswordHash = hash
		err = s.userRepo.Update(user)
	}
	if err != nil {
		logger.Warn("Failed to upgrade password hash", map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		})
		return
	}
	logger.Info("Password hash upgraded", map[string]interface{}{
		"user_id": user.ID,
		"cost":    s.hasher.Cost(),
	})
}

func (s *authService) Logout(ctx context.Context, claims *util.Claims) error {
	if s.revoker == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		return err
	}
	logger.Info("User logged out", map[string]interface{}{
		"user_id": claims.UserID,
	})
	return nil
}
