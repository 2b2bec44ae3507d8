package model

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type UserRole string

const (
	RoleStaff UserRole = "staff" // panel access limited to Sections
	RoleAdmin UserRole = "admin" // full panel access
)

func (r UserRole) Valid() bool {
	return r == RoleStaff || r == RoleAdmin
}

// Admin panel sections a staff member can be granted.
const (
	SectionHome      = "home"
	SectionInventory = "inventory"
	SectionOrders    = "orders"
	SectionUsers     = "users"
	SectionReturns   = "returns"
	SectionRequests  = "requests"
)

var AllSections = []string{
	SectionHome, SectionInventory, SectionOrders, SectionUsers, SectionReturns, SectionRequests,
}

// SectionList is stored as TEXT[] on Postgres and as its text literal elsewhere.
type SectionList []string

func (s SectionList) Value() (driver.Value, error) {
	return pq.StringArray(s).Value()
}

func (s *SectionList) Scan(src interface{}) error {
	return (*pq.StringArray)(s).Scan(src)
}

func (SectionList) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

func (s SectionList) Has(section string) bool {
	for _, v := range s {
		if v == section {
			return true
		}
	}
	return false
}

type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	FirstName    string         `gorm:"type:varchar(50)" json:"first_name"`
	LastName     string         `gorm:"type:varchar(50)" json:"last_name"`
	Phone        string         `gorm:"type:varchar(20)" json:"phone"`
	Role         UserRole       `gorm:"type:varchar(20);default:'staff'" json:"role"`
	IsActive     bool           `gorm:"not null" json:"is_active"`
	Sections     SectionList    `json:"sections"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// CanAccess reports whether the user may open a panel section.
func (u *User) CanAccess(section string) bool {
	if !u.IsActive {
		return false
	}
	return u.Role == RoleAdmin || u.Sections.Has(section)
}
