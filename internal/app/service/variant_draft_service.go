package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/internal/app/repository"
	"github.com/liherfashion/inventory-admin/internal/storage"
	"github.com/liherfashion/inventory-admin/internal/variant"
	"github.com/liherfashion/inventory-admin/pkg/logger"
)

var (
	ErrDraftSessionNotFound = errors.New("draft session not found")
	ErrDraftConflict        = errors.New("draft session is busy, try again")
	ErrProductDetailsEmpty  = errors.New("product details are required to create a product")
	ErrImageStorage         = errors.New("failed to store image")
)

// maxDraftSaveAttempts bounds the load-mutate-save loop on version conflicts
const maxDraftSaveAttempts = 3

const draftImageFolder = "drafts"

// DraftView is the rendered state of a draft session
type DraftView struct {
	ID        string        `json:"id"`
	Mode      variant.Mode  `json:"mode"`
	ProductID *uint         `json:"product_id,omitempty"`
	Version   int64         `json:"version"`
	State     variant.State `json:"state"`
	Count     int           `json:"count"`
	Rows      []variant.Row `json:"rows"`
	Recovered int           `json:"recovered,omitempty"`
}

// DraftPayload is the submission a session would send right now, both as
// JSON groups and as hidden form fields.
type DraftPayload struct {
	Payload variant.Payload `json:"payload"`
	Fields  []variant.Field `json:"fields"`
	Encoded string          `json:"encoded"`
}

// ImageUpload is one image file bound for a working set entry
type ImageUpload struct {
	Target   variant.ImageTarget
	Filename string
	Size     int64
	Body     io.Reader
}

type VariantDraftService interface {
	// OpenCreate starts a session for a new product. Drafts left in the
	// user's recovery copy are restored and counted in DraftView.Recovered.
	OpenCreate(ctx context.Context, ownerID uint) (*DraftView, error)
	// OpenEdit starts a session seeded with the product's current variants
	OpenEdit(ctx context.Context, ownerID, productID uint) (*DraftView, error)
	Get(ctx context.Context, ownerID uint, sessionID string) (*DraftView, error)

	AddVariants(ctx context.Context, ownerID uint, sessionID, sizeID string, colors []variant.ColorStock) (*DraftView, error)
	UpdateDraftStock(ctx context.Context, ownerID uint, sessionID string, key variant.Key, update variant.StockUpdate) (*DraftView, error)
	RemoveDraft(ctx context.Context, ownerID uint, sessionID string, key variant.Key) (*DraftView, error)
	MarkDeleted(ctx context.Context, ownerID uint, sessionID, variantID string) (*DraftView, error)
	RecordEdit(ctx context.Context, ownerID uint, sessionID, variantID string, patch variant.Patch) (*DraftView, error)
	UploadImage(ctx context.Context, ownerID uint, sessionID string, upload ImageUpload) (*DraftView, *variant.ImageRef, error)

	Payload(ctx context.Context, ownerID uint, sessionID string) (*DraftPayload, error)
	// Submit applies the session. Create mode needs product details; edit
	// mode takes them optionally.
	Submit(ctx context.Context, ownerID uint, sessionID string, product *ProductInput) (*model.Product, error)
	Discard(ctx context.Context, ownerID uint, sessionID string) error
}

type variantDraftService struct {
	drafts   repository.DraftRepository
	products ProductService
	catalog  CatalogService
	images   storage.ImageStorage
	now      func() time.Time
}

func NewVariantDraftService(
	drafts repository.DraftRepository,
	products ProductService,
	catalog CatalogService,
	images storage.ImageStorage,
) VariantDraftService {
	return &variantDraftService{
		drafts:   drafts,
		products: products,
		catalog:  catalog,
		images:   images,
		now:      time.Now,
	}
}

func newDraftView(session *model.DraftSession, r *variant.Reconciler) *DraftView {
	return &DraftView{
		ID:        session.ID,
		Mode:      session.Mode,
		ProductID: session.ProductID,
		Version:   session.Version,
		State:     r.State(),
		Count:     r.Count(),
		Rows:      r.WorkingSet(),
	}
}

// load returns the owner's session. Sessions of other users are reported as missing.
func (s *variantDraftService) load(ctx context.Context, ownerID uint, sessionID string) (*model.DraftSession, error) {
	session, err := s.drafts.Find(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrDraftSessionNotFound) {
			return nil, ErrDraftSessionNotFound
		}
		return nil, err
	}
	if session.OwnerID != ownerID {
		logger.Warn("Draft session requested by another user", map[string]interface{}{
			"session_id": sessionID,
			"user_id":    ownerID,
		})
		return nil, ErrDraftSessionNotFound
	}
	return session, nil
}

// afterSave mirrors create-mode drafts to the recovery copy and refreshes
// the staged image index. Failures here never fail the mutation.
func (s *variantDraftService) afterSave(ctx context.Context, session *model.DraftSession, r *variant.Reconciler) {
	if r.PersistsDrafts() {
		if err := s.drafts.SaveRecovery(ctx, session.OwnerID, r.Drafts()); err != nil {
			logger.Warn("Failed to save draft recovery copy", map[string]interface{}{
				"session_id": session.ID,
				"error":      err.Error(),
			})
		}
	}
	if keys := r.Images(); len(keys) > 0 {
		if err := s.drafts.TrackStagedImages(ctx, s.now(), keys...); err != nil {
			logger.Warn("Failed to track staged images", map[string]interface{}{
				"session_id": session.ID,
				"error":      err.Error(),
			})
		}
	}
}

// mutate runs fn against a fresh copy of the session and saves the result,
// retrying when another request saved in between.
func (s *variantDraftService) mutate(
	ctx context.Context,
	ownerID uint,
	sessionID string,
	fn func(r *variant.Reconciler) error,
) (*model.DraftSession, *variant.Reconciler, error) {
	for attempt := 1; attempt <= maxDraftSaveAttempts; attempt++ {
		session, err := s.load(ctx, ownerID, sessionID)
		if err != nil {
			return nil, nil, err
		}
		if session.Submitting {
			return nil, nil, ErrDraftConflict
		}

		r := variant.Restore(session.Snapshot)
		if err := fn(r); err != nil {
			return nil, nil, err
		}
		session.Snapshot = r.Snapshot()

		err = s.drafts.Save(ctx, session)
		if errors.Is(err, repository.ErrDraftVersionConflict) {
			logger.Debug("Draft session version conflict, retrying", map[string]interface{}{
				"session_id": sessionID,
				"attempt":    attempt,
			})
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		s.afterSave(ctx, session, r)
		return session, r, nil
	}
	return nil, nil, ErrDraftConflict
}

func (s *variantDraftService) mutateView(
	ctx context.Context,
	ownerID uint,
	sessionID string,
	fn func(r *variant.Reconciler) error,
) (*DraftView, error) {
	session, r, err := s.mutate(ctx, ownerID, sessionID, fn)
	if err != nil {
		return nil, err
	}
	return newDraftView(session, r), nil
}

func (s *variantDraftService) create(ctx context.Context, session *model.DraftSession, r *variant.Reconciler) error {
	session.ID = uuid.NewString()
	session.Snapshot = r.Snapshot()
	if err := s.drafts.Save(ctx, session); err != nil {
		logger.Error("Failed to create draft session", err, map[string]interface{}{
			"user_id": session.OwnerID,
			"mode":    session.Mode,
		})
		return err
	}
	s.afterSave(ctx, session, r)
	return nil
}

func (s *variantDraftService) OpenCreate(ctx context.Context, ownerID uint) (*DraftView, error) {
	r := variant.NewReconciler(variant.ModeCreate, nil)

	recovered := 0
	drafts, err := s.drafts.LoadRecovery(ctx, ownerID)
	if err != nil {
		logger.Warn("Failed to load draft recovery copy", map[string]interface{}{
			"user_id": ownerID,
			"error":   err.Error(),
		})
	} else if len(drafts) > 0 {
		recovered = r.RestoreDrafts(drafts)
	}

	session := &model.DraftSession{OwnerID: ownerID, Mode: variant.ModeCreate}
	if err := s.create(ctx, session, r); err != nil {
		return nil, err
	}

	logger.Info("Draft session opened", map[string]interface{}{
		"session_id": session.ID,
		"mode":       session.Mode,
		"recovered":  recovered,
	})
	view := newDraftView(session, r)
	view.Recovered = recovered
	return view, nil
}

func baselineFor(product *model.Product) []variant.ExistingVariant {
	baseline := make([]variant.ExistingVariant, 0, len(product.Variants))
	for _, v := range product.Variants {
		ev := variant.ExistingVariant{
			ID:      formatID(v.ID),
			SizeID:  v.Size.Name,
			ColorID: v.Color.Name,
			Stock:   v.Stock,
		}
		if v.ImageURL != "" {
			ev.Image = &variant.ImageRef{Key: v.ImageKey, URL: v.ImageURL}
		}
		baseline = append(baseline, ev)
	}
	return baseline
}

func (s *variantDraftService) OpenEdit(ctx context.Context, ownerID, productID uint) (*DraftView, error) {
	product, err := s.products.GetProductByID(productID)
	if err != nil {
		return nil, err
	}

	r := variant.NewReconciler(variant.ModeEdit, baselineFor(product))
	session := &model.DraftSession{OwnerID: ownerID, Mode: variant.ModeEdit, ProductID: &product.ID}
	if err := s.create(ctx, session, r); err != nil {
		return nil, err
	}

	logger.Info("Draft session opened", map[string]interface{}{
		"session_id": session.ID,
		"mode":       session.Mode,
		"product_id": productID,
		"variants":   len(product.Variants),
	})
	return newDraftView(session, r), nil
}

func (s *variantDraftService) Get(ctx context.Context, ownerID uint, sessionID string) (*DraftView, error) {
	session, err := s.load(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	return newDraftView(session, variant.Restore(session.Snapshot)), nil
}

// canonicalSize maps a size reference to its catalog name. Empty refs pass
// through so the reconciler reports them.
func (s *variantDraftService) canonicalSize(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}
	size, err := s.catalog.ResolveSize(ref)
	if err != nil {
		return "", err
	}
	return size.Name, nil
}

func (s *variantDraftService) canonicalColor(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}
	color, err := s.catalog.ResolveColor(ref)
	if err != nil {
		return "", err
	}
	return color.Name, nil
}

// canonicalKey resolves a draft key. Unknown refs are kept verbatim and
// simply match no draft.
func (s *variantDraftService) canonicalKey(k variant.Key) variant.Key {
	if name, err := s.canonicalSize(k.SizeID); err == nil {
		k.SizeID = name
	}
	if name, err := s.canonicalColor(k.ColorID); err == nil {
		k.ColorID = name
	}
	return k
}

func (s *variantDraftService) AddVariants(ctx context.Context, ownerID uint, sessionID, sizeID string, colors []variant.ColorStock) (*DraftView, error) {
	size, err := s.canonicalSize(sizeID)
	if err != nil {
		return nil, err
	}
	entries := make([]variant.ColorStock, len(colors))
	for i, c := range colors {
		name, err := s.canonicalColor(c.ColorID)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, c.ColorID)
		}
		// images are attached through UploadImage only
		entries[i] = variant.ColorStock{ColorID: name, Stock: c.Stock}
	}

	view, err := s.mutateView(ctx, ownerID, sessionID, func(r *variant.Reconciler) error {
		if len(entries) == 1 {
			return r.AddDraft(size, entries[0].ColorID, entries[0].Stock, nil)
		}
		return r.AddDrafts(size, entries)
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Draft variants added", map[string]interface{}{
		"session_id": sessionID,
		"size":       size,
		"colors":     len(entries),
	})
	return view, nil
}

func (s *variantDraftService) UpdateDraftStock(ctx context.Context, ownerID uint, sessionID string, key variant.Key, update variant.StockUpdate) (*DraftView, error) {
	key = s.canonicalKey(key)
	return s.mutateView(ctx, ownerID, sessionID, func(r *variant.Reconciler) error {
		return r.UpdateDraftStock(key, update)
	})
}

func (s *variantDraftService) RemoveDraft(ctx context.Context, ownerID uint, sessionID string, key variant.Key) (*DraftView, error) {
	key = s.canonicalKey(key)
	return s.mutateView(ctx, ownerID, sessionID, func(r *variant.Reconciler) error {
		return r.RemoveDraft(key)
	})
}

func (s *variantDraftService) MarkDeleted(ctx context.Context, ownerID uint, sessionID, variantID string) (*DraftView, error) {
	return s.mutateView(ctx, ownerID, sessionID, func(r *variant.Reconciler) error {
		return r.MarkExistingDeleted(variantID)
	})
}

func (s *variantDraftService) RecordEdit(ctx context.Context, ownerID uint, sessionID, variantID string, patch variant.Patch) (*DraftView, error) {
	// images are attached through UploadImage only
	patch.Image = nil
	return s.mutateView(ctx, ownerID, sessionID, func(r *variant.Reconciler) error {
		return r.RecordEdit(variantID, patch)
	})
}

// discardUpload deletes an object that never made it into the session
func (s *variantDraftService) discardUpload(ctx context.Context, key string) {
	if err := s.images.Delete(ctx, key); err != nil {
		logger.Warn("Failed to delete orphaned draft image", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return
	}
	if err := s.drafts.ReleaseStagedImages(ctx, key); err != nil {
		logger.Warn("Failed to release orphaned draft image", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

func (s *variantDraftService) UploadImage(ctx context.Context, ownerID uint, sessionID string, upload ImageUpload) (*DraftView, *variant.ImageRef, error) {
	target := upload.Target
	if target.Draft != nil {
		k := s.canonicalKey(*target.Draft)
		target.Draft = &k
	}

	head := make([]byte, variant.SniffLen)
	n, err := io.ReadFull(upload.Body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, nil, err
	}
	head = head[:n]
	contentType, err := variant.ValidateImage(upload.Size, head)
	if err != nil {
		return nil, nil, err
	}

	var ticket variant.ImageTicket
	if _, _, err := s.mutate(ctx, ownerID, sessionID, func(r *variant.Reconciler) error {
		var err error
		ticket, err = r.BeginImage(target)
		return err
	}); err != nil {
		return nil, nil, err
	}

	put, err := s.images.Put(ctx, io.MultiReader(bytes.NewReader(head), upload.Body), storage.PutInput{
		Folder:      draftImageFolder,
		Filename:    upload.Filename,
		ContentType: contentType,
		Size:        upload.Size,
	})
	if err != nil {
		logger.Error("Failed to store draft image", err, map[string]interface{}{
			"session_id": sessionID,
			"target":     target.String(),
		})
		return nil, nil, fmt.Errorf("%w: %w", ErrImageStorage, err)
	}
	// tracked before attaching so an abandoned upload is still swept
	if err := s.drafts.TrackStagedImages(ctx, s.now(), put.Key); err != nil {
		logger.Warn("Failed to track staged image", map[string]interface{}{
			"key":   put.Key,
			"error": err.Error(),
		})
	}

	ref := variant.ImageRef{Key: put.Key, URL: put.URL, ContentType: contentType, Size: upload.Size}
	session, r, err := s.mutate(ctx, ownerID, sessionID, func(r *variant.Reconciler) error {
		return r.AttachImage(ticket, ref)
	})
	if err != nil {
		s.discardUpload(ctx, put.Key)
		if errors.Is(err, variant.ErrStaleImage) {
			logger.Info("Discarded superseded draft image", map[string]interface{}{
				"session_id": sessionID,
				"target":     target.String(),
			})
		}
		return nil, nil, err
	}

	logger.Info("Draft image attached", map[string]interface{}{
		"session_id":   sessionID,
		"target":       target.String(),
		"key":          put.Key,
		"content_type": contentType,
	})
	return newDraftView(session, r), &ref, nil
}

func (s *variantDraftService) Payload(ctx context.Context, ownerID uint, sessionID string) (*DraftPayload, error) {
	session, err := s.load(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	p := variant.Restore(session.Snapshot).Serialize()
	return &DraftPayload{Payload: p, Fields: p.Fields(), Encoded: p.Encode()}, nil
}

// claim marks the session as submitting so no other request can mutate or
// submit it until the claim is released.
func (s *variantDraftService) claim(ctx context.Context, ownerID uint, sessionID string) (*model.DraftSession, error) {
	for attempt := 1; attempt <= maxDraftSaveAttempts; attempt++ {
		session, err := s.load(ctx, ownerID, sessionID)
		if err != nil {
			return nil, err
		}
		if session.Submitting {
			return nil, ErrDraftConflict
		}
		session.Submitting = true
		err = s.drafts.Save(ctx, session)
		if errors.Is(err, repository.ErrDraftVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return session, nil
	}
	return nil, ErrDraftConflict
}

func (s *variantDraftService) release(ctx context.Context, session *model.DraftSession) {
	session.Submitting = false
	if err := s.drafts.Save(ctx, session); err != nil {
		logger.Warn("Failed to release draft session claim", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}
}

func (s *variantDraftService) Submit(ctx context.Context, ownerID uint, sessionID string, input *ProductInput) (*model.Product, error) {
	session, err := s.claim(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	r := variant.Restore(session.Snapshot)
	payload := r.Serialize()

	var product *model.Product
	switch {
	case session.Mode == variant.ModeCreate && input == nil:
		err = ErrProductDetailsEmpty
	case session.Mode == variant.ModeCreate:
		product, err = s.products.CreateWithSubmission(ctx, *input, payload)
	case session.ProductID == nil:
		err = ErrProductNotFound
	default:
		product, err = s.products.UpdateWithSubmission(ctx, *session.ProductID, input, payload)
	}
	if err != nil {
		s.release(ctx, session)
		logger.Warn("Draft submission failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return nil, err
	}

	if err := s.drafts.Delete(ctx, session.ID); err != nil {
		logger.Warn("Failed to delete submitted draft session", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}
	if session.Mode == variant.ModeCreate {
		if err := s.drafts.ClearRecovery(ctx, ownerID); err != nil {
			logger.Warn("Failed to clear draft recovery copy", map[string]interface{}{
				"user_id": ownerID,
				"error":   err.Error(),
			})
		}
	}

	logger.Info("Draft session submitted", map[string]interface{}{
		"session_id": sessionID,
		"product_id": product.ID,
		"created":    len(payload.New),
		"edited":     len(payload.Edited),
		"deleted":    len(payload.Deleted),
	})
	return product, nil
}

func (s *variantDraftService) Discard(ctx context.Context, ownerID uint, sessionID string) error {
	session, err := s.load(ctx, ownerID, sessionID)
	if err != nil {
		return err
	}
	if session.Submitting {
		return ErrDraftConflict
	}

	r := variant.Restore(session.Snapshot)
	if err := s.drafts.Delete(ctx, session.ID); err != nil {
		return err
	}
	if session.Mode == variant.ModeCreate {
		if err := s.drafts.ClearRecovery(ctx, ownerID); err != nil {
			logger.Warn("Failed to clear draft recovery copy", map[string]interface{}{
				"user_id": ownerID,
				"error":   err.Error(),
			})
		}
	}
	// Keys another open session restored from the recovery copy stay staged.
	// That session keeps them tracked and the sweeper collects them later.
	// Without the owner index every key is left to the sweeper.
	shared, err := s.imagesInOtherSessions(ctx, ownerID, session.ID)
	if err != nil {
		logger.Warn("Failed to list draft sessions", map[string]interface{}{
			"user_id": ownerID,
			"error":   err.Error(),
		})
	}
	images := r.Images()
	kept := 0
	for _, key := range images {
		if err != nil || shared[key] {
			kept++
			continue
		}
		s.discardUpload(ctx, key)
	}

	logger.Info("Draft session discarded", map[string]interface{}{
		"session_id": sessionID,
		"images":     len(images) - kept,
		"kept":       kept,
	})
	return nil
}

func (s *variantDraftService) imagesInOtherSessions(ctx context.Context, ownerID uint, sessionID string) (map[string]bool, error) {
	sessions, err := s.drafts.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	shared := make(map[string]bool)
	for _, other := range sessions {
		if other.ID == sessionID {
			continue
		}
		for _, key := range variant.Restore(other.Snapshot).Images() {
			shared[key] = true
		}
	}
	return shared, nil
}
