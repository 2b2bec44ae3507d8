// Package variant tracks the pending additions, edits and deletions of a
// product's size/color variants before they are submitted to the backend.
//
// A Reconciler owns the working set of one product-edit session. It starts
// from the server baseline (edit mode) or from nothing (create mode) and turns
// the user's changes into a Payload: new variants, edited variants and deleted
// variant ids, in a form the submission handler applies in one transaction.
package variant

import (
	"errors"
	"fmt"
)

// Mode selects how a session was opened.
type Mode string

const (
	ModeCreate Mode = "create" // new product, no baseline
	ModeEdit   Mode = "edit"   // existing product, baseline loaded from storage
)

func (m Mode) Valid() bool {
	return m == ModeCreate || m == ModeEdit
}

// State is Clean until the first successful mutation.
type State string

const (
	StateClean State = "clean"
	StateDirty State = "dirty"
)

// Tag marks how a working set row differs from confirmed server state.
type Tag string

const (
	TagNone   Tag = ""
	TagNew    Tag = "NEW"
	TagEdited Tag = "EDITED"
)

var (
	ErrSizeRequired     = errors.New("size is required")
	ErrColorRequired    = errors.New("color is required")
	ErrInvalidStock     = errors.New("stock must be a positive integer")
	ErrNegativeStock    = errors.New("stock cannot be negative")
	ErrDuplicateVariant = errors.New("variant already exists")
	ErrDraftNotFound    = errors.New("draft variant not found")
	ErrVariantNotFound  = errors.New("variant not found")
	ErrVariantDeleted   = errors.New("variant is marked as deleted")
	ErrEmptyPatch       = errors.New("patch has no fields")
	ErrStaleImage       = errors.New("image upload superseded")
)

// DuplicateVariantError reports the size/color pair that is already taken.
type DuplicateVariantError struct {
	Key Key
}

func (e *DuplicateVariantError) Error() string {
	return fmt.Sprintf("variant %s - %s already exists", e.Key.SizeID, e.Key.ColorID)
}

func (e *DuplicateVariantError) Is(target error) bool {
	return target == ErrDuplicateVariant
}

// Key identifies a variant that has not been persisted yet.
type Key struct {
	SizeID  string `json:"size_id"`
	ColorID string `json:"color_id"`
}

func (k Key) String() string {
	return k.SizeID + "/" + k.ColorID
}

// ImageRef points at an uploaded image. Key is the storage object key and is
// what travels in the submission; URL is for display only.
type ImageRef struct {
	Key         string `json:"key"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// VariantDraft is a variant the backend has never seen. Stock is always
// OriginalStock + AddedStock.
type VariantDraft struct {
	SizeID        string    `json:"size_id"`
	ColorID       string    `json:"color_id"`
	Stock         int       `json:"stock"`
	OriginalStock int       `json:"original_stock"`
	AddedStock    int       `json:"added_stock"`
	Image         *ImageRef `json:"image,omitempty"`
}

func (d VariantDraft) Key() Key {
	return Key{SizeID: d.SizeID, ColorID: d.ColorID}
}

// ExistingVariant is a server-origin variant. Its fields are the display
// copy: RecordEdit updates them optimistically.
type ExistingVariant struct {
	ID      string    `json:"id"`
	SizeID  string    `json:"size_id"`
	ColorID string    `json:"color_id"`
	Stock   int       `json:"stock"`
	Image   *ImageRef `json:"image,omitempty"`
	Deleted bool      `json:"deleted"`
}

func (v ExistingVariant) Key() Key {
	return Key{SizeID: v.SizeID, ColorID: v.ColorID}
}

// Patch is a partial update of an existing variant. Nil fields are untouched.
type Patch struct {
	Stock *int      `json:"stock,omitempty"`
	Image *ImageRef `json:"image,omitempty"`
}

func (p Patch) empty() bool {
	return p.Stock == nil && p.Image == nil
}

// merge applies other on top of p, field by field.
func (p Patch) merge(other Patch) Patch {
	if other.Stock != nil {
		v := *other.Stock
		p.Stock = &v
	}
	if other.Image != nil {
		img := *other.Image
		p.Image = &img
	}
	return p
}

// StockUpdate changes a draft's stock. Absolute sets the value outright;
// otherwise Value is the quantity added on top of the draft's original stock.
type StockUpdate struct {
	Absolute bool `json:"absolute"`
	Value    int  `json:"value"`
}

// ColorStock is one color entry of a batch add for a single size.
type ColorStock struct {
	ColorID string    `json:"color_id"`
	Stock   int       `json:"stock"`
	Image   *ImageRef `json:"image,omitempty"`
}

// Row is one entry of the rendered working set.
type Row struct {
	ID            string    `json:"id,omitempty"`
	SizeID        string    `json:"size_id"`
	ColorID       string    `json:"color_id"`
	Stock         int       `json:"stock"`
	OriginalStock int       `json:"original_stock"`
	AddedStock    int       `json:"added_stock"`
	Image         *ImageRef `json:"image,omitempty"`
	Tag           Tag       `json:"tag,omitempty"`
}

// IntPtr is a convenience for building patches.
func IntPtr(v int) *int {
	return &v
}
