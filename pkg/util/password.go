package util

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultPasswordCost is used when BCRYPT_COST is unset
	DefaultPasswordCost = 12
	MinPasswordCost     = bcrypt.MinCost
	MaxPasswordCost     = bcrypt.MaxCost

	// bcrypt ignores everything past this many bytes
	maxPasswordBytes = 72
)

var (
	ErrPasswordMismatch = errors.New("password does not match")
	ErrPasswordEmpty    = errors.New("password is empty")
	ErrPasswordTooLong  = errors.New("password is longer than 72 bytes")
	ErrInvalidCost      = errors.New("bcrypt cost out of range")
)

// PasswordHasher hashes admin account passwords at a configured bcrypt cost
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher for cost. Zero selects DefaultPasswordCost.
func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost == 0 {
		cost = DefaultPasswordCost
	}
	if cost < MinPasswordCost || cost > MaxPasswordCost {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidCost, cost, MinPasswordCost, MaxPasswordCost)
	}
	return &PasswordHasher{cost: cost}, nil
}

func (h *PasswordHasher) Cost() int {
	return h.cost
}

// Hash refuses passwords bcrypt would silently truncate
func (h *PasswordHasher) Hash(password string) (string, error) {
	switch {
	case password == "":
		return "", ErrPasswordEmpty
	case len(password) > maxPasswordBytes:
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify returns ErrPasswordMismatch for a wrong password and the bcrypt
// error for a malformed hash.
func (h *PasswordHasher) Verify(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

// NeedsRehash reports whether hash was made at a different cost than the
// hasher's, so a successful login can upgrade it.
func (h *PasswordHasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	return err != nil || cost != h.cost
}
