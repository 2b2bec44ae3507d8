package variant

// Reconciler holds the working set of one product-edit session.
// It is not safe for concurrent use; callers serialize access per session.
type Reconciler struct {
	mode  Mode
	state State

	existing    []ExistingVariant
	existingIdx map[string]int

	drafts []VariantDraft

	editOrder []string
	edits     map[string]Patch

	deleted []string

	generation uint64
	tickets    map[string]uint64

	cached *Payload
}

// NewReconciler builds a session seeded with the server baseline. Baseline
// entries with an empty or repeated id are skipped.
func NewReconciler(mode Mode, baseline []ExistingVariant) *Reconciler {
	if !mode.Valid() {
		mode = ModeCreate
	}
	r := &Reconciler{
		mode:        mode,
		state:       StateClean,
		existingIdx: make(map[string]int),
		edits:       make(map[string]Patch),
		tickets:     make(map[string]uint64),
	}
	for _, v := range baseline {
		if v.ID == "" {
			continue
		}
		if _, dup := r.existingIdx[v.ID]; dup {
			continue
		}
		if v.Image != nil {
			img := *v.Image
			v.Image = &img
		}
		r.existingIdx[v.ID] = len(r.existing)
		r.existing = append(r.existing, v)
	}
	return r
}

func (r *Reconciler) Mode() Mode   { return r.mode }
func (r *Reconciler) State() State { return r.state }

// PersistsDrafts reports whether the draft list is mirrored to the recovery
// store after each mutation. Only create-mode sessions do that.
func (r *Reconciler) PersistsDrafts() bool {
	return r.mode == ModeCreate
}

func (r *Reconciler) touch() {
	r.state = StateDirty
	r.cached = nil
}

func (r *Reconciler) draftIndex(k Key) int {
	for i, d := range r.drafts {
		if d.SizeID == k.SizeID && d.ColorID == k.ColorID {
			return i
		}
	}
	return -1
}

// taken reports whether k is used by a draft or a live existing variant.
func (r *Reconciler) taken(k Key) bool {
	if r.draftIndex(k) >= 0 {
		return true
	}
	for _, v := range r.existing {
		if !v.Deleted && v.SizeID == k.SizeID && v.ColorID == k.ColorID {
			return true
		}
	}
	return false
}

func validateNew(sizeID, colorID string, stock int) error {
	if sizeID == "" {
		return ErrSizeRequired
	}
	if colorID == "" {
		return ErrColorRequired
	}
	if stock <= 0 {
		return ErrInvalidStock
	}
	return nil
}

// AddDraft appends a new variant. Zero stock is rejected: it means "no
// variant", not "no inventory".
func (r *Reconciler) AddDraft(sizeID, colorID string, stock int, image *ImageRef) error {
	if err := validateNew(sizeID, colorID, stock); err != nil {
		return err
	}
	k := Key{SizeID: sizeID, ColorID: colorID}
	if r.taken(k) {
		return &DuplicateVariantError{Key: k}
	}
	r.appendDraft(k, stock, image)
	r.touch()
	return nil
}

func (r *Reconciler) appendDraft(k Key, stock int, image *ImageRef) {
	d := VariantDraft{
		SizeID:        k.SizeID,
		ColorID:       k.ColorID,
		Stock:         stock,
		OriginalStock: stock,
	}
	if image != nil {
		img := *image
		d.Image = &img
	}
	r.drafts = append(r.drafts, d)
}

// AddDrafts adds one size in several colors. Every entry is checked before
// any is applied, so a single bad entry leaves the session unchanged.
func (r *Reconciler) AddDrafts(sizeID string, colors []ColorStock) error {
	if sizeID == "" {
		return ErrSizeRequired
	}
	if len(colors) == 0 {
		return ErrColorRequired
	}
	seen := make(map[string]struct{}, len(colors))
	for _, c := range colors {
		if err := validateNew(sizeID, c.ColorID, c.Stock); err != nil {
			return err
		}
		k := Key{SizeID: sizeID, ColorID: c.ColorID}
		if _, dup := seen[c.ColorID]; dup || r.taken(k) {
			return &DuplicateVariantError{Key: k}
		}
		seen[c.ColorID] = struct{}{}
	}
	for _, c := range colors {
		r.appendDraft(Key{SizeID: sizeID, ColorID: c.ColorID}, c.Stock, c.Image)
	}
	r.touch()
	return nil
}

// UpdateDraftStock changes the stock of a draft. A draft must keep a positive
// stock: a negative result yields ErrNegativeStock, zero yields
// ErrInvalidStock, and nothing changes in either case.
func (r *Reconciler) UpdateDraftStock(k Key, u StockUpdate) error {
	i := r.draftIndex(k)
	if i < 0 {
		return ErrDraftNotFound
	}
	d := r.drafts[i]
	total := d.OriginalStock + u.Value
	if u.Absolute {
		total = u.Value
	}
	switch {
	case total < 0:
		return ErrNegativeStock
	case total == 0:
		return ErrInvalidStock
	}
	if u.Absolute {
		d.Stock, d.OriginalStock, d.AddedStock = total, total, 0
	} else {
		d.AddedStock = u.Value
		d.Stock = total
	}
	r.drafts[i] = d
	r.touch()
	return nil
}

// RemoveDraft drops a never-persisted variant. Keys of server variants are
// not drafts and yield ErrDraftNotFound.
func (r *Reconciler) RemoveDraft(k Key) error {
	i := r.draftIndex(k)
	if i < 0 {
		return ErrDraftNotFound
	}
	r.drafts = append(r.drafts[:i], r.drafts[i+1:]...)
	delete(r.tickets, DraftTarget(k).String())
	r.touch()
	return nil
}

// MarkExistingDeleted flags a server variant for deletion on submit. Marking
// twice is a no-op.
func (r *Reconciler) MarkExistingDeleted(id string) error {
	i, ok := r.existingIdx[id]
	if !ok {
		return ErrVariantNotFound
	}
	if r.existing[i].Deleted {
		return nil
	}
	r.existing[i].Deleted = true
	r.deleted = append(r.deleted, id)
	delete(r.tickets, ExistingTarget(id).String())
	r.touch()
	return nil
}

// RecordEdit merges patch into the edit ledger and mirrors it onto the
// display copy. Later fields overwrite earlier ones.
func (r *Reconciler) RecordEdit(id string, patch Patch) error {
	i, ok := r.existingIdx[id]
	if !ok {
		return ErrVariantNotFound
	}
	if patch.empty() {
		return ErrEmptyPatch
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return ErrNegativeStock
	}
	prev, seen := r.edits[id]
	if !seen {
		r.editOrder = append(r.editOrder, id)
	}
	r.edits[id] = prev.merge(patch)

	v := &r.existing[i]
	if patch.Stock != nil {
		v.Stock = *patch.Stock
	}
	if patch.Image != nil {
		img := *patch.Image
		v.Image = &img
	}
	r.touch()
	return nil
}

// Edited reports whether id carries unsaved edits.
func (r *Reconciler) Edited(id string) bool {
	_, ok := r.edits[id]
	return ok
}

// Drafts returns a copy of the pending new variants.
func (r *Reconciler) Drafts() []VariantDraft {
	out := make([]VariantDraft, len(r.drafts))
	copy(out, r.drafts)
	return out
}

// Existing returns a copy of the baseline including deleted entries.
func (r *Reconciler) Existing() []ExistingVariant {
	out := make([]ExistingVariant, len(r.existing))
	copy(out, r.existing)
	return out
}

// WorkingSet lists live existing variants followed by drafts.
func (r *Reconciler) WorkingSet() []Row {
	rows := make([]Row, 0, len(r.existing)+len(r.drafts))
	for _, v := range r.existing {
		if v.Deleted {
			continue
		}
		row := Row{
			ID:      v.ID,
			SizeID:  v.SizeID,
			ColorID: v.ColorID,
			Stock:   v.Stock,
			Image:   v.Image,
		}
		if r.Edited(v.ID) {
			row.Tag = TagEdited
		}
		rows = append(rows, row)
	}
	for _, d := range r.drafts {
		rows = append(rows, Row{
			SizeID:        d.SizeID,
			ColorID:       d.ColorID,
			Stock:         d.Stock,
			OriginalStock: d.OriginalStock,
			AddedStock:    d.AddedStock,
			Image:         d.Image,
			Tag:           TagNew,
		})
	}
	return rows
}

// Count is the number of rows in the working set.
func (r *Reconciler) Count() int {
	n := len(r.drafts)
	for _, v := range r.existing {
		if !v.Deleted {
			n++
		}
	}
	return n
}

// Serialize builds the submission payload. The result is cached until the
// next mutation, so repeated calls return identical output.
func (r *Reconciler) Serialize() Payload {
	if r.cached == nil {
		p := r.build()
		r.cached = &p
	}
	return r.cached.clone()
}

func (r *Reconciler) build() Payload {
	p := Payload{
		New:     make([]NewVariant, 0, len(r.drafts)),
		Edited:  make([]EditedVariant, 0, len(r.editOrder)),
		Deleted: make([]string, 0, len(r.deleted)),
	}
	for _, d := range r.drafts {
		nv := NewVariant{SizeID: d.SizeID, ColorID: d.ColorID, Stock: d.Stock}
		if d.Image != nil {
			img := *d.Image
			nv.Image = &img
		}
		p.New = append(p.New, nv)
	}
	for _, id := range r.editOrder {
		if r.existing[r.existingIdx[id]].Deleted {
			continue
		}
		patch := Patch{}.merge(r.edits[id])
		p.Edited = append(p.Edited, EditedVariant{ID: id, Stock: patch.Stock, Image: patch.Image})
	}
	p.Deleted = append(p.Deleted, r.deleted...)
	return p
}
