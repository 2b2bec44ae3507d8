package variant

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageSize is the largest variant image accepted, in bytes.
const MaxImageSize int64 = 5 << 20

// SniffLen is how many leading bytes ValidateImage needs to detect a type.
const SniffLen = 3072

var (
	ErrImageTooLarge = errors.New("image exceeds 5MB")
	ErrImageType     = errors.New("file is not an image")
	ErrImageEmpty    = errors.New("image is empty")
)

// ValidateImage checks an upload by size and sniffed content, and returns
// the detected MIME type. The declared content type is not trusted.
func ValidateImage(size int64, head []byte) (string, error) {
	if size <= 0 || len(head) == 0 {
		return "", ErrImageEmpty
	}
	if size > MaxImageSize {
		return "", fmt.Errorf("%w: %.2fMB", ErrImageTooLarge, float64(size)/(1<<20))
	}
	mtype := mimetype.Detect(head)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("%w: %s", ErrImageType, mtype.String())
	}
	return mtype.String(), nil
}

// ImageTarget names the working set entry an image belongs to: either a draft
// by key or an existing variant by id.
type ImageTarget struct {
	Draft      *Key   `json:"draft,omitempty"`
	ExistingID string `json:"existing_id,omitempty"`
}

func DraftTarget(k Key) ImageTarget {
	return ImageTarget{Draft: &k}
}

func ExistingTarget(id string) ImageTarget {
	return ImageTarget{ExistingID: id}
}

func (t ImageTarget) String() string {
	if t.Draft != nil {
		return "draft:" + t.Draft.String()
	}
	return "existing:" + t.ExistingID
}

// ImageTicket is handed out when an upload starts and must be presented when
// it completes. A ticket goes stale when its target is removed or a newer
// upload for the same target begins.
type ImageTicket struct {
	Target     ImageTarget `json:"target"`
	Generation uint64      `json:"generation"`
}

func (r *Reconciler) targetLive(t ImageTarget) error {
	if t.Draft != nil {
		if r.draftIndex(*t.Draft) < 0 {
			return ErrDraftNotFound
		}
		return nil
	}
	i, ok := r.existingIdx[t.ExistingID]
	if !ok {
		return ErrVariantNotFound
	}
	if r.existing[i].Deleted {
		return ErrVariantDeleted
	}
	return nil
}

// BeginImage starts an upload for target and supersedes any upload still in
// flight for it.
func (r *Reconciler) BeginImage(t ImageTarget) (ImageTicket, error) {
	if err := r.targetLive(t); err != nil {
		return ImageTicket{}, err
	}
	r.generation++
	r.tickets[t.String()] = r.generation
	return ImageTicket{Target: t, Generation: r.generation}, nil
}

// AttachImage completes an upload. A stale ticket leaves the session as is and
// returns ErrStaleImage; the caller owns the orphaned upload.
func (r *Reconciler) AttachImage(ticket ImageTicket, ref ImageRef) error {
	name := ticket.Target.String()
	gen, ok := r.tickets[name]
	if !ok || gen != ticket.Generation {
		return ErrStaleImage
	}
	if err := r.targetLive(ticket.Target); err != nil {
		delete(r.tickets, name)
		return ErrStaleImage
	}
	delete(r.tickets, name)

	if ticket.Target.Draft != nil {
		i := r.draftIndex(*ticket.Target.Draft)
		img := ref
		r.drafts[i].Image = &img
		r.touch()
		return nil
	}
	return r.RecordEdit(ticket.Target.ExistingID, Patch{Image: &ref})
}

// Images lists the storage keys referenced by drafts and pending edits.
func (r *Reconciler) Images() []string {
	var keys []string
	for _, d := range r.drafts {
		if d.Image != nil && d.Image.Key != "" {
			keys = append(keys, d.Image.Key)
		}
	}
	for _, id := range r.editOrder {
		if p := r.edits[id]; p.Image != nil && p.Image.Key != "" {
			keys = append(keys, p.Image.Key)
		}
	}
	return keys
}
