package model

import (
	"time"
)

// StockEntry records units received for one variant. Size and color names are
// copied at entry time so the history survives the variant being removed.
type StockEntry struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	ProductID uint      `gorm:"index;not null" json:"product_id"`
	VariantID uint      `gorm:"index;not null" json:"variant_id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	SizeName  string    `gorm:"type:varchar(20)" json:"size"`
	ColorName string    `gorm:"type:varchar(50)" json:"color"`
	Note      string    `gorm:"type:varchar(255)" json:"note"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (StockEntry) TableName() string {
	return "stock_entries"
}
