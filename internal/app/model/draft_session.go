package model

import (
	"time"

	"github.com/liherfashion/inventory-admin/internal/variant"
)

// DraftSession is one product-edit session kept in the draft store, not in
// the database. Version increases on every save and guards concurrent writers.
type DraftSession struct {
	ID         string           `json:"id"`
	OwnerID    uint             `json:"owner_id"`
	Mode       variant.Mode     `json:"mode"`
	ProductID  *uint            `json:"product_id,omitempty"`
	Version    int64            `json:"version"`
	Submitting bool             `json:"submitting,omitempty"` // payload is being applied
	Snapshot   variant.Snapshot `json:"snapshot"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}
