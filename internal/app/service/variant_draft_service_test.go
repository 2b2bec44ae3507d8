package service

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/internal/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ownerID uint = 7

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestVariantDraftService_CreateFlow(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	view, err := env.sessions.OpenCreate(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, variant.ModeCreate, view.Mode)
	assert.Equal(t, variant.StateClean, view.State)
	assert.Zero(t, view.Recovered)

	// lowercase refs resolve to catalog names
	view, err = env.sessions.AddVariants(ctx, ownerID, view.ID, "s", []variant.ColorStock{
		{ColorID: "rojo", Stock: 3},
		{ColorID: "Azul", Stock: 2},
	})
	require.NoError(t, err)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, "S", view.Rows[0].SizeID)
	assert.Equal(t, "Rojo", view.Rows[0].ColorID)
	assert.Equal(t, variant.TagNew, view.Rows[0].Tag)
	assert.Equal(t, variant.StateDirty, view.State)

	view, err = env.sessions.UpdateDraftStock(ctx, ownerID, view.ID,
		variant.Key{SizeID: "S", ColorID: "Rojo"}, variant.StockUpdate{Value: 4})
	require.NoError(t, err)
	assert.Equal(t, 7, view.Rows[0].Stock)

	payload, err := env.sessions.Payload(ctx, ownerID, view.ID)
	require.NoError(t, err)
	require.Len(t, payload.Payload.New, 2)
	assert.Contains(t, payload.Encoded, "new_variants%5B0%5D%5Bstock%5D=7")
	assert.Equal(t, payload.Payload.Fields(), payload.Fields)

	product, err := env.sessions.Submit(ctx, ownerID, view.ID, &ProductInput{
		Name:       "Camisa Lino",
		Reference:  "cl-01",
		CategoryID: &env.category.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "CL-01", product.Reference)
	require.Len(t, product.Variants, 2)
	assert.Equal(t, 9, product.TotalStock())

	_, err = env.sessions.Get(ctx, ownerID, view.ID)
	assert.ErrorIs(t, err, ErrDraftSessionNotFound)

	recovered, err := env.drafts.LoadRecovery(ctx, ownerID)
	require.NoError(t, err)
	assert.Empty(t, recovered)
}

func TestVariantDraftService_OpenCreateRestoresRecovery(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	first, err := env.sessions.OpenCreate(ctx, ownerID)
	require.NoError(t, err)
	_, err = env.sessions.AddVariants(ctx, ownerID, first.ID, "M", []variant.ColorStock{{ColorID: "Azul", Stock: 5}})
	require.NoError(t, err)

	second, err := env.sessions.OpenCreate(ctx, ownerID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, second.Recovered)
	require.Len(t, second.Rows, 1)
	assert.Equal(t, 5, second.Rows[0].Stock)

	// another user starts empty
	other, err := env.sessions.OpenCreate(ctx, ownerID+1)
	require.NoError(t, err)
	assert.Zero(t, other.Count)
}

func TestVariantDraftService_EditFlow(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	product, err := env.products.CreateWithSubmission(ctx, env.productInput("Camisa Oxford", "OX-1"), variant.Payload{
		New: []variant.NewVariant{
			{SizeID: "S", ColorID: "Rojo", Stock: 2},
			{SizeID: "M", ColorID: "Rojo", Stock: 4},
		},
	})
	require.NoError(t, err)
	small := formatID(product.Variants[0].ID)
	medium := formatID(product.Variants[1].ID)

	view, err := env.sessions.OpenEdit(ctx, ownerID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, variant.ModeEdit, view.Mode)
	require.NotNil(t, view.ProductID)
	assert.Equal(t, product.ID, *view.ProductID)
	assert.Equal(t, 2, view.Count)

	_, err = env.sessions.MarkDeleted(ctx, ownerID, view.ID, small)
	require.NoError(t, err)
	view, err = env.sessions.RecordEdit(ctx, ownerID, view.ID, medium, variant.Patch{Stock: variant.IntPtr(9)})
	require.NoError(t, err)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, variant.TagEdited, view.Rows[0].Tag)

	_, err = env.sessions.RecordEdit(ctx, ownerID, view.ID, medium, variant.Patch{Image: &variant.ImageRef{Key: "elsewhere.png"}})
	assert.ErrorIs(t, err, variant.ErrEmptyPatch)

	// the deleted pair can be added back as a draft
	_, err = env.sessions.AddVariants(ctx, ownerID, view.ID, "S", []variant.ColorStock{{ColorID: "Rojo", Stock: 1}})
	require.NoError(t, err)

	updated, err := env.sessions.Submit(ctx, ownerID, view.ID, nil)
	require.NoError(t, err)
	require.Len(t, updated.Variants, 2)
	assert.Equal(t, 10, updated.TotalStock())
	for _, v := range updated.Variants {
		assert.NotEqual(t, product.Variants[0].ID, v.ID)
	}
}

func TestVariantDraftService_Rejections(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	view, err := env.sessions.OpenCreate(ctx, ownerID)
	require.NoError(t, err)
	_, err = env.sessions.AddVariants(ctx, ownerID, view.ID, "S", []variant.ColorStock{{ColorID: "Rojo", Stock: 1}})
	require.NoError(t, err)

	t.Run("duplicate pair", func(t *testing.T) {
		_, err := env.sessions.AddVariants(ctx, ownerID, view.ID, "S", []variant.ColorStock{{ColorID: "rojo", Stock: 1}})
		assert.ErrorIs(t, err, variant.ErrDuplicateVariant)
	})

	t.Run("batch is all or nothing", func(t *testing.T) {
		_, err := env.sessions.AddVariants(ctx, ownerID, view.ID, "S", []variant.ColorStock{
			{ColorID: "Azul", Stock: 1},
			{ColorID: "Rojo", Stock: 1},
		})
		assert.ErrorIs(t, err, variant.ErrDuplicateVariant)

		current, err := env.sessions.Get(ctx, ownerID, view.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, current.Count)
	})

	t.Run("unknown catalog entries", func(t *testing.T) {
		_, err := env.sessions.AddVariants(ctx, ownerID, view.ID, "XXXL", []variant.ColorStock{{ColorID: "Rojo", Stock: 1}})
		assert.ErrorIs(t, err, ErrUnknownSize)
		_, err = env.sessions.AddVariants(ctx, ownerID, view.ID, "S", []variant.ColorStock{{ColorID: "Fucsia", Stock: 1}})
		assert.ErrorIs(t, err, ErrUnknownColor)
	})

	t.Run("missing size", func(t *testing.T) {
		_, err := env.sessions.AddVariants(ctx, ownerID, view.ID, "", []variant.ColorStock{{ColorID: "Rojo", Stock: 1}})
		assert.ErrorIs(t, err, variant.ErrSizeRequired)
	})

	t.Run("negative stock", func(t *testing.T) {
		_, err := env.sessions.UpdateDraftStock(ctx, ownerID, view.ID,
			variant.Key{SizeID: "S", ColorID: "Rojo"}, variant.StockUpdate{Absolute: true, Value: -1})
		assert.ErrorIs(t, err, variant.ErrNegativeStock)
	})

	t.Run("remove unknown draft", func(t *testing.T) {
		_, err := env.sessions.RemoveDraft(ctx, ownerID, view.ID, variant.Key{SizeID: "M", ColorID: "Rojo"})
		assert.ErrorIs(t, err, variant.ErrDraftNotFound)
	})

	t.Run("other owner", func(t *testing.T) {
		_, err := env.sessions.Get(ctx, ownerID+1, view.ID)
		assert.ErrorIs(t, err, ErrDraftSessionNotFound)
	})

	t.Run("no existing variants in create mode", func(t *testing.T) {
		_, err := env.sessions.RecordEdit(ctx, ownerID, view.ID, "1", variant.Patch{Stock: variant.IntPtr(2)})
		assert.ErrorIs(t, err, variant.ErrVariantNotFound)
	})

	t.Run("create without product details", func(t *testing.T) {
		_, err := env.sessions.Submit(ctx, ownerID, view.ID, nil)
		assert.ErrorIs(t, err, ErrProductDetailsEmpty)

		// the claim is released after a failed submit
		_, err = env.sessions.RemoveDraft(ctx, ownerID, view.ID, variant.Key{SizeID: "S", ColorID: "Rojo"})
		assert.NoError(t, err)
	})
}

func TestVariantDraftService_SubmittingBlocksMutations(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	view, err := env.sessions.OpenCreate(ctx, ownerID)
	require.NoError(t, err)

	session, err := env.drafts.Find(ctx, view.ID)
	require.NoError(t, err)
	session.Submitting = true
	require.NoError(t, env.drafts.Save(ctx, session))

	_, err = env.sessions.AddVariants(ctx, ownerID, view.ID, "S", []variant.ColorStock{{ColorID: "Rojo", Stock: 1}})
	assert.ErrorIs(t, err, ErrDraftConflict)
	_, err = env.sessions.Submit(ctx, ownerID, view.ID, &ProductInput{Name: "X", Reference: "X"})
	assert.ErrorIs(t, err, ErrDraftConflict)
	assert.ErrorIs(t, env.sessions.Discard(ctx, ownerID, view.ID), ErrDraftConflict)
}

func TestVariantDraftService_UploadImage(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	view, err := env.sessions.OpenCreate(ctx, ownerID)
	require.NoError(t, err)
	_, err = env.sessions.AddVariants(ctx, ownerID, view.ID, "L", []variant.ColorStock{{ColorID: "Azul", Stock: 2}})
	require.NoError(t, err)

	target := variant.DraftTarget(variant.Key{SizeID: "l", ColorID: "azul"})
	view, ref, err := env.sessions.UploadImage(ctx, ownerID, view.ID, pngUpload(target, 512))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ref.ContentType)
	assert.Equal(t, "/uploads/"+ref.Key, ref.URL)
	require.NotNil(t, view.Rows[0].Image)
	assert.Equal(t, ref.Key, view.Rows[0].Image.Key)
	assert.Len(t, storedFiles(t, env.dir), 1)

	staged, err := env.drafts.ExpiredStagedImages(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{ref.Key}, staged)

	product, err := env.sessions.Submit(ctx, ownerID, view.ID, &ProductInput{Name: "Polo", Reference: "PO-1"})
	require.NoError(t, err)
	require.Len(t, product.Variants, 1)
	assert.Equal(t, ref.URL, product.Variants[0].ImageURL)

	staged, err = env.drafts.ExpiredStagedImages(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, staged)
	assert.Len(t, storedFiles(t, env.dir), 1)
}

func TestVariantDraftService_UploadRejectsNonImage(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	view, err := env.sessions.OpenCreate(ctx, ownerID)
	require.NoError(t, err)
	_, err = env.sessions.AddVariants(ctx, ownerID, view.ID, "S", []variant.ColorStock{{ColorID: "Rojo", Stock: 1}})
	require.NoError(t, err)

	body := []byte("%PDF-1.7 not an image")
	_, _, err = env.sessions.UploadImage(ctx, ownerID, view.ID, ImageUpload{
		Target:   variant.DraftTarget(variant.Key{SizeID: "S", ColorID: "Rojo"}),
		Filename: "doc.png",
		Size:     int64(len(body)),
		Body:     bytes.NewReader(body),
	})
	assert.ErrorIs(t, err, variant.ErrImageType)
	assert.Empty(t, storedFiles(t, env.dir))
}

// hookReader runs hook on the second Read, after the head has been sniffed
type hookReader struct {
	r     io.Reader
	reads int
	hook  func()
}

func (h *hookReader) Read(p []byte) (int, error) {
	h.reads++
	if h.reads == 2 {
		h.hook()
	}
	return h.r.Read(p)
}

func TestVariantDraftService_UploadSupersededByRemoval(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	view, err := env.sessions.OpenCreate(ctx, ownerID)
	require.NoError(t, err)
	key := variant.Key{SizeID: "S", ColorID: "Rojo"}
	_, err = env.sessions.AddVariants(ctx, ownerID, view.ID, key.SizeID, []variant.ColorStock{{ColorID: key.ColorID, Stock: 1}})
	require.NoError(t, err)

	body := pngBody(variant.SniffLen + 1024)
	reader := &hookReader{r: bytes.NewReader(body), hook: func() {
		_, err := env.sessions.RemoveDraft(ctx, ownerID, view.ID, key)
		require.NoError(t, err)
	}}

	_, _, err = env.sessions.UploadImage(ctx, ownerID, view.ID, ImageUpload{
		Target:   variant.DraftTarget(key),
		Filename: "late.png",
		Size:     int64(len(body)),
		Body:     reader,
	})
	assert.ErrorIs(t, err, variant.ErrStaleImage)
	assert.Empty(t, storedFiles(t, env.dir))

	current, err := env.sessions.Get(ctx, ownerID, view.ID)
	require.NoError(t, err)
	assert.Zero(t, current.Count)
}

func TestVariantDraftService_Discard(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	view, err := env.sessions.OpenCreate(ctx, ownerID)
	require.NoError(t, err)
	_, err = env.sessions.AddVariants(ctx, ownerID, view.ID, "M", []variant.ColorStock{{ColorID: "Rojo", Stock: 1}})
	require.NoError(t, err)
	_, _, err = env.sessions.UploadImage(ctx, ownerID, view.ID,
		pngUpload(variant.DraftTarget(variant.Key{SizeID: "M", ColorID: "Rojo"}), 256))
	require.NoError(t, err)
	require.Len(t, storedFiles(t, env.dir), 1)

	require.NoError(t, env.sessions.Discard(ctx, ownerID, view.ID))

	assert.Empty(t, storedFiles(t, env.dir))
	_, err = env.sessions.Get(ctx, ownerID, view.ID)
	assert.ErrorIs(t, err, ErrDraftSessionNotFound)
	recovered, err := env.drafts.LoadRecovery(ctx, ownerID)
	require.NoError(t, err)
	assert.Empty(t, recovered)
}

func TestVariantDraftService_DiscardKeepsImagesOfRecoveredSession(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	target := variant.DraftTarget(variant.Key{SizeID: "M", ColorID: "Rojo"})

	first, err := env.sessions.OpenCreate(ctx, ownerID)
	require.NoError(t, err)
	_, err = env.sessions.AddVariants(ctx, ownerID, first.ID, "M", []variant.ColorStock{{ColorID: "Rojo", Stock: 1}})
	require.NoError(t, err)
	_, ref, err := env.sessions.UploadImage(ctx, ownerID, first.ID, pngUpload(target, 256))
	require.NoError(t, err)

	// a second tab picks up the same drafts and image from the recovery copy
	second, err := env.sessions.OpenCreate(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, second.Rows, 1)
	require.NotNil(t, second.Rows[0].Image)
	assert.Equal(t, ref.Key, second.Rows[0].Image.Key)

	require.NoError(t, env.sessions.Discard(ctx, ownerID, first.ID))

	assert.Len(t, storedFiles(t, env.dir), 1)
	view, err := env.sessions.Get(ctx, ownerID, second.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Rows[0].Image)
	assert.Equal(t, ref.Key, view.Rows[0].Image.Key)

	// the last session holding the key deletes it
	require.NoError(t, env.sessions.Discard(ctx, ownerID, second.ID))
	assert.Empty(t, storedFiles(t, env.dir))
}

func TestVariantDraftService_OversizedUploadKeepsPreviousImage(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	target := variant.DraftTarget(variant.Key{SizeID: "S", ColorID: "Azul"})

	view, err := env.sessions.OpenCreate(ctx, ownerID)
	require.NoError(t, err)
	_, err = env.sessions.AddVariants(ctx, ownerID, view.ID, "S", []variant.ColorStock{{ColorID: "Azul", Stock: 3}})
	require.NoError(t, err)
	_, ref, err := env.sessions.UploadImage(ctx, ownerID, view.ID, pngUpload(target, 256))
	require.NoError(t, err)

	big := pngUpload(target, 256)
	big.Size = variant.MaxImageSize + 1
	_, _, err = env.sessions.UploadImage(ctx, ownerID, view.ID, big)
	assert.ErrorIs(t, err, variant.ErrImageTooLarge)

	view, err = env.sessions.Get(ctx, ownerID, view.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Rows[0].Image)
	assert.Equal(t, ref.Key, view.Rows[0].Image.Key)
	assert.Len(t, storedFiles(t, env.dir), 1)
}

func TestVariantDraftService_OpenEditUnknownProduct(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.sessions.OpenEdit(context.Background(), ownerID, 999)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestBaselineFor(t *testing.T) {
	product := &model.Product{Variants: []model.ProductVariant{
		{ID: 4, Stock: 3, ImageKey: "drafts/a.png", ImageURL: "/uploads/drafts/a.png",
			Size: model.Size{Name: "S"}, Color: model.Color{Name: "Rojo"}},
		{ID: 5, Stock: 0, Size: model.Size{Name: "M"}, Color: model.Color{Name: "Azul"}},
	}}

	baseline := baselineFor(product)
	require.Len(t, baseline, 2)
	assert.Equal(t, "4", baseline[0].ID)
	assert.Equal(t, "S", baseline[0].SizeID)
	require.NotNil(t, baseline[0].Image)
	assert.Equal(t, "drafts/a.png", baseline[0].Image.Key)
	assert.Nil(t, baseline[1].Image)
}
