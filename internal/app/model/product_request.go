package model

import (
	"time"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAttended RequestStatus = "attended"
)

func (s RequestStatus) Valid() bool {
	return s == RequestPending || s == RequestAttended
}

// ProductRequest asks for more units of a variant that ran out
type ProductRequest struct {
	ID         uint          `gorm:"primarykey" json:"id"`
	UserID     uint          `gorm:"index;not null" json:"user_id"`
	ProductID  uint          `gorm:"index;not null" json:"product_id"`
	VariantID  uint          `gorm:"index;not null" json:"variant_id"`
	Quantity   int           `gorm:"not null;default:1" json:"quantity"`
	SizeName   string        `gorm:"type:varchar(20)" json:"size"`
	ColorName  string        `gorm:"type:varchar(50)" json:"color"`
	Status     RequestStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	AttendedAt *time.Time    `json:"attended_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`

	User    User    `gorm:"foreignKey:UserID" json:"user"`
	Product Product `gorm:"foreignKey:ProductID" json:"product"`
}

func (ProductRequest) TableName() string {
	return "product_requests"
}
