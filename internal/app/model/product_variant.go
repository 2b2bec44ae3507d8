package model

import (
	"time"
)

// ProductVariant is one size/color combination of a product with its own stock.
// Rows are hard deleted so a removed combination can be re-created.
type ProductVariant struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_variant_combo" json:"product_id"`
	SizeID    uint      `gorm:"not null;uniqueIndex:idx_variant_combo" json:"size_id"`
	ColorID   uint      `gorm:"not null;uniqueIndex:idx_variant_combo" json:"color_id"`
	ImageKey  string    `json:"-"` // storage object key, empty for external URLs
	ImageURL  string    `json:"image_url"`
	Stock     int       `gorm:"not null;default:0" json:"stock"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Product Product `gorm:"foreignKey:ProductID" json:"-"`
	Size    Size    `gorm:"foreignKey:SizeID" json:"size"`
	Color   Color   `gorm:"foreignKey:ColorID" json:"color"`
}

func (ProductVariant) TableName() string {
	return "product_variants"
}
