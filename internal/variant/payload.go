package variant

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Form field names shared by the payload encoder and the backend parser.
// Renaming any of them silently drops that group on submit.
const (
	fieldNew     = "new_variants"
	fieldEdited  = "edited_variants"
	fieldDeleted = "deleted_variants[]"
)

var ErrInvalidForm = errors.New("invalid variant form data")

// NewVariant is a variant to create.
type NewVariant struct {
	SizeID  string    `json:"size_id"`
	ColorID string    `json:"color_id"`
	Stock   int       `json:"stock"`
	Image   *ImageRef `json:"image,omitempty"`
}

// EditedVariant is a patch for a persisted variant.
type EditedVariant struct {
	ID    string    `json:"id"`
	Stock *int      `json:"stock,omitempty"`
	Image *ImageRef `json:"image,omitempty"`
}

// Payload is the instruction set sent on submit. The three groups are
// disjoint: an id never appears in both Edited and Deleted.
type Payload struct {
	New     []NewVariant    `json:"new"`
	Edited  []EditedVariant `json:"edited"`
	Deleted []string        `json:"deleted"`
}

func (p Payload) IsEmpty() bool {
	return len(p.New) == 0 && len(p.Edited) == 0 && len(p.Deleted) == 0
}

func (p Payload) clone() Payload {
	out := Payload{
		New:     make([]NewVariant, len(p.New)),
		Edited:  make([]EditedVariant, len(p.Edited)),
		Deleted: make([]string, len(p.Deleted)),
	}
	for i, n := range p.New {
		if n.Image != nil {
			img := *n.Image
			n.Image = &img
		}
		out.New[i] = n
	}
	for i, e := range p.Edited {
		if e.Stock != nil {
			e.Stock = IntPtr(*e.Stock)
		}
		if e.Image != nil {
			img := *e.Image
			e.Image = &img
		}
		out.Edited[i] = e
	}
	copy(out.Deleted, p.Deleted)
	return out
}

// Images lists every storage key referenced by the payload.
func (p Payload) Images() []string {
	var keys []string
	for _, n := range p.New {
		if n.Image != nil && n.Image.Key != "" {
			keys = append(keys, n.Image.Key)
		}
	}
	for _, e := range p.Edited {
		if e.Image != nil && e.Image.Key != "" {
			keys = append(keys, e.Image.Key)
		}
	}
	return keys
}

// Field is one hidden form input.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Fields renders the payload as hidden inputs: edited, then deleted, then new.
func (p Payload) Fields() []Field {
	var fields []Field
	for _, e := range p.Edited {
		if e.Stock != nil {
			fields = append(fields, Field{fmt.Sprintf("%s[%s][stock]", fieldEdited, e.ID), strconv.Itoa(*e.Stock)})
		}
		if e.Image != nil {
			fields = append(fields, Field{fmt.Sprintf("%s[%s][image]", fieldEdited, e.ID), e.Image.Key})
		}
	}
	for _, id := range p.Deleted {
		fields = append(fields, Field{fieldDeleted, id})
	}
	for i, n := range p.New {
		prefix := fmt.Sprintf("%s[%d]", fieldNew, i)
		fields = append(fields,
			Field{prefix + "[size]", n.SizeID},
			Field{prefix + "[color]", n.ColorID},
			Field{prefix + "[stock]", strconv.Itoa(n.Stock)},
		)
		if n.Image != nil {
			fields = append(fields, Field{prefix + "[image]", n.Image.Key})
		}
	}
	return fields
}

// Encode renders Fields as an x-www-form-urlencoded body, keeping field order.
func (p Payload) Encode() string {
	var b strings.Builder
	for i, f := range p.Fields() {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(f.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.Value))
	}
	return b.String()
}

var (
	newFieldRe    = regexp.MustCompile(`^new_variants\[(\d+)\]\[(size|color|stock|image)\]$`)
	editedFieldRe = regexp.MustCompile(`^edited_variants\[([^\]]+)\]\[(stock|image)\]$`)
)

// ParseForm reads the variant groups out of a submitted form. Unrelated
// fields are ignored. Index gaps in new variants are compacted, edited ids
// come out in numeric order, and an id that is both edited and deleted is
// only deleted.
func ParseForm(form url.Values) (Payload, error) {
	p := Payload{New: []NewVariant{}, Edited: []EditedVariant{}, Deleted: []string{}}

	news := make(map[int]*NewVariant)
	edits := make(map[string]*EditedVariant)

	for name, values := range form {
		if len(values) == 0 {
			continue
		}
		value := strings.TrimSpace(values[len(values)-1])

		if m := newFieldRe.FindStringSubmatch(name); m != nil {
			idx, err := strconv.Atoi(m[1])
			if err != nil {
				return Payload{}, fmt.Errorf("%w: %s", ErrInvalidForm, name)
			}
			nv, ok := news[idx]
			if !ok {
				nv = &NewVariant{}
				news[idx] = nv
			}
			switch m[2] {
			case "size":
				nv.SizeID = value
			case "color":
				nv.ColorID = value
			case "stock":
				stock, err := strconv.Atoi(value)
				if err != nil {
					return Payload{}, fmt.Errorf("%w: %s is not a number", ErrInvalidForm, name)
				}
				nv.Stock = stock
			case "image":
				if value != "" {
					nv.Image = &ImageRef{Key: value}
				}
			}
			continue
		}

		if m := editedFieldRe.FindStringSubmatch(name); m != nil {
			ev, ok := edits[m[1]]
			if !ok {
				ev = &EditedVariant{ID: m[1]}
				edits[m[1]] = ev
			}
			switch m[2] {
			case "stock":
				stock, err := strconv.Atoi(value)
				if err != nil || stock < 0 {
					return Payload{}, fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidForm, name)
				}
				ev.Stock = IntPtr(stock)
			case "image":
				if value != "" {
					ev.Image = &ImageRef{Key: value}
				}
			}
		}
	}

	deleted := make(map[string]struct{})
	for _, id := range form[fieldDeleted] {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := deleted[id]; dup {
			continue
		}
		deleted[id] = struct{}{}
		p.Deleted = append(p.Deleted, id)
	}

	indexes := make([]int, 0, len(news))
	for i := range news {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	seen := make(map[Key]struct{}, len(indexes))
	for _, i := range indexes {
		nv := news[i]
		if err := validateNew(nv.SizeID, nv.ColorID, nv.Stock); err != nil {
			return Payload{}, fmt.Errorf("%w: new variant %d: %v", ErrInvalidForm, i, err)
		}
		k := Key{SizeID: nv.SizeID, ColorID: nv.ColorID}
		if _, dup := seen[k]; dup {
			return Payload{}, &DuplicateVariantError{Key: k}
		}
		seen[k] = struct{}{}
		p.New = append(p.New, *nv)
	}

	ids := make([]string, 0, len(edits))
	for id := range edits {
		if _, gone := deleted[id]; gone {
			continue
		}
		if edits[id].Stock == nil && edits[id].Image == nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return lessID(ids[a], ids[b]) })
	for _, id := range ids {
		p.Edited = append(p.Edited, *edits[id])
	}
	return p, nil
}

// lessID orders numeric ids numerically and falls back to string order.
func lessID(a, b string) bool {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
