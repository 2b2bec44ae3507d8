package variant

// Snapshot is the serializable state of a Reconciler.
type Snapshot struct {
	Mode       Mode              `json:"mode"`
	State      State             `json:"state"`
	Existing   []ExistingVariant `json:"existing"`
	Drafts     []VariantDraft    `json:"drafts"`
	Edits      []LedgerEntry     `json:"edits"`
	Deleted    []string          `json:"deleted"`
	Generation uint64            `json:"generation"`
	Tickets    map[string]uint64 `json:"tickets,omitempty"`
}

// LedgerEntry is one edit ledger record, in insertion order.
type LedgerEntry struct {
	ID    string `json:"id"`
	Patch Patch  `json:"patch"`
}

func (r *Reconciler) Snapshot() Snapshot {
	s := Snapshot{
		Mode:       r.mode,
		State:      r.state,
		Existing:   r.Existing(),
		Drafts:     r.Drafts(),
		Edits:      make([]LedgerEntry, 0, len(r.editOrder)),
		Deleted:    append([]string{}, r.deleted...),
		Generation: r.generation,
	}
	for _, id := range r.editOrder {
		s.Edits = append(s.Edits, LedgerEntry{ID: id, Patch: r.edits[id]})
	}
	if len(r.tickets) > 0 {
		s.Tickets = make(map[string]uint64, len(r.tickets))
		for k, v := range r.tickets {
			s.Tickets[k] = v
		}
	}
	return s
}

// Restore rebuilds a Reconciler from a snapshot. Ledger and deletion entries
// that point at unknown variants are dropped.
func Restore(s Snapshot) *Reconciler {
	r := NewReconciler(s.Mode, s.Existing)
	for _, d := range s.Drafts {
		if validateNew(d.SizeID, d.ColorID, 1) != nil || r.draftIndex(d.Key()) >= 0 {
			continue
		}
		r.drafts = append(r.drafts, d)
	}
	for _, e := range s.Edits {
		if _, ok := r.existingIdx[e.ID]; !ok || e.Patch.empty() {
			continue
		}
		if _, seen := r.edits[e.ID]; !seen {
			r.editOrder = append(r.editOrder, e.ID)
		}
		r.edits[e.ID] = r.edits[e.ID].merge(e.Patch)
	}
	seen := make(map[string]struct{}, len(s.Deleted))
	for _, id := range s.Deleted {
		i, ok := r.existingIdx[id]
		if _, dup := seen[id]; !ok || dup {
			continue
		}
		seen[id] = struct{}{}
		r.existing[i].Deleted = true
		r.deleted = append(r.deleted, id)
	}
	r.generation = s.Generation
	for k, v := range s.Tickets {
		r.tickets[k] = v
	}
	if s.State == StateDirty {
		r.state = StateDirty
	}
	return r
}

// RestoreDrafts re-adds drafts recovered from an earlier create-mode session.
// Entries that fail validation or collide with the working set are skipped;
// the number restored is returned.
func (r *Reconciler) RestoreDrafts(drafts []VariantDraft) int {
	n := 0
	for _, d := range drafts {
		if validateNew(d.SizeID, d.ColorID, d.Stock) != nil || r.taken(d.Key()) {
			continue
		}
		if d.OriginalStock+d.AddedStock != d.Stock {
			d.OriginalStock, d.AddedStock = d.Stock, 0
		}
		r.drafts = append(r.drafts, d)
		n++
	}
	if n > 0 {
		r.touch()
	}
	return n
}
