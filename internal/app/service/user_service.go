package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/internal/app/repository"
	"github.com/liherfashion/inventory-admin/pkg/logger"
	"github.com/liherfashion/inventory-admin/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailAlreadyExists   = errors.New("email already exists")
	ErrInvalidUser          = errors.New("invalid user")
	ErrCannotDeactivateSelf = errors.New("you cannot deactivate your own account")
)

const (
	minPasswordLength = 8
	maxPasswordBytes  = 72
)

// UserInput is used for create and update. An empty Password on update keeps
// the current one.
type UserInput struct {
	Email     string         `json:"email"`
	Password  string         `json:"password"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Phone     string         `json:"phone"`
	Role      model.UserRole `json:"role"`
	Sections  []string       `json:"sections"`
	IsActive  *bool          `json:"is_active"`
}

type UserListOptions struct {
	Search string
	Role   model.UserRole
	Active *bool
	Limit  int
	Offset int
}

type UserService interface {
	ListUsers(opts UserListOptions) ([]model.User, int64, error)
	GetUser(id uint) (*model.User, error)
	CreateUser(input UserInput) (*model.User, error)
	UpdateUser(id uint, input UserInput) (*model.User, error)
	ToggleActive(actorID, id uint) (*model.User, error)
	EmailAvailable(email string, excludeID uint) (bool, error)
}

type userService struct {
	repo     repository.UserRepository
	hasher   *util.PasswordHasher
	validate *validator.Validate
}

func NewUserService(repo repository.UserRepository, hasher *util.PasswordHasher) UserService {
	return &userService{repo: repo, hasher: hasher, validate: validator.New()}
}

func invalidUser(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidUser, fmt.Sprintf(format, args...))
}

func (s *userService) ListUsers(opts UserListOptions) ([]model.User, int64, error) {
	return s.repo.FindWithFilter(repository.UserFilter{
		Search: opts.Search,
		Role:   opts.Role,
		Active: opts.Active,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

func (s *userService) GetUser(id uint) (*model.User, error) {
	user, err := s.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) checkEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(email, "required,email,max=254"); err != nil {
		return "", invalidUser("a valid email is required")
	}
	return email, nil
}

// apply validates input and copies it onto user. creating requires a password.
func (s *userService) apply(input UserInput, user *model.User, creating bool) error {
	email, err := s.checkEmail(input.Email)
	if err != nil {
		return err
	}

	switch {
	case strings.TrimSpace(input.FirstName) == "":
		return invalidUser("first name is required")
	case len([]rune(input.FirstName)) > 50 || len([]rune(input.LastName)) > 50:
		return invalidUser("names must be at most 50 characters")
	case len(input.Phone) > 20:
		return invalidUser("phone must be at most 20 characters")
	case creating && input.Password == "":
		return invalidUser("password is required")
	case input.Password != "" && len(input.Password) < minPasswordLength:
		return invalidUser("password must be at least %d characters", minPasswordLength)
	case len(input.Password) > maxPasswordBytes:
		return invalidUser("password must be at most %d bytes", maxPasswordBytes)
	}

	role := input.Role
	if role == "" {
		role = model.RoleStaff
	}
	if !role.Valid() {
		return invalidUser("unknown role %q", role)
	}

	sections := model.SectionList{}
	seen := make(map[string]bool, len(input.Sections))
	for _, sec := range input.Sections {
		sec = strings.TrimSpace(sec)
		if !model.SectionList(model.AllSections).Has(sec) {
			return invalidUser("unknown section %q", sec)
		}
		if !seen[sec] {
			seen[sec] = true
			sections = append(sections, sec)
		}
	}

	exists, err := s.repo.EmailExists(email, user.ID)
	if err != nil {
		return err
	}
	if exists {
		return ErrEmailAlreadyExists
	}

	if input.Password != "" {
		hash, err := s.hasher.Hash(input.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
	}

	user.Email = email
	user.FirstName = strings.TrimSpace(input.FirstName)
	user.LastName = strings.TrimSpace(input.LastName)
	user.Phone = strings.TrimSpace(input.Phone)
	user.Role = role
	user.Sections = sections
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	} else if creating {
		user.IsActive = true
	}
	return nil
}

func (s *userService) CreateUser(input UserInput) (*model.User, error) {
	user := &model.User{}
	if err := s.apply(input, user, true); err != nil {
		return nil, err
	}
	if err := s.repo.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}

	logger.Info("User created", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})
	return user, nil
}

func (s *userService) UpdateUser(id uint, input UserInput) (*model.User, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(input, user, false); err != nil {
		return nil, err
	}
	if err := s.repo.Update(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}

	logger.Info("User updated", map[string]interface{}{"user_id": id})
	return user, nil
}

func (s *userService) ToggleActive(actorID, id uint) (*model.User, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}
	if actorID == id && user.IsActive {
		return nil, ErrCannotDeactivateSelf
	}

	if err := s.repo.SetActive(id, !user.IsActive); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.IsActive = !user.IsActive

	logger.Info("User active flag toggled", map[string]interface{}{
		"user_id":   id,
		"actor_id":  actorID,
		"is_active": user.IsActive,
	})
	return user, nil
}

func (s *userService) EmailAvailable(email string, excludeID uint) (bool, error) {
	email, err := s.checkEmail(email)
	if err != nil {
		return false, err
	}
	exists, err := s.repo.EmailExists(email, excludeID)
	if err != nil {
		return false, err
	}
	return !exists, nil
}
