package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/internal/variant"
	"github.com/liherfashion/inventory-admin/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var (
	ErrDraftSessionNotFound = errors.New("draft session not found")
	ErrDraftVersionConflict = errors.New("draft session was modified concurrently")
)

// DraftRepository stores draft sessions, the per-user create-mode recovery
// copy and the index of staged images.
//
// Save is a compare-and-set on Version: the stored session must still carry
// the version the caller loaded (0 for a new session). On success the
// session's Version is incremented in place.
type DraftRepository interface {
	Save(ctx context.Context, session *model.DraftSession) error
	Find(ctx context.Context, id string) (*model.DraftSession, error)
	Delete(ctx context.Context, id string) error
	// ListByOwner returns the owner's live sessions in no particular order
	ListByOwner(ctx context.Context, ownerID uint) ([]*model.DraftSession, error)

	SaveRecovery(ctx context.Context, userID uint, drafts []variant.VariantDraft) error
	LoadRecovery(ctx context.Context, userID uint) ([]variant.VariantDraft, error)
	ClearRecovery(ctx context.Context, userID uint) error

	TrackStagedImages(ctx context.Context, at time.Time, keys ...string) error
	ReleaseStagedImages(ctx context.Context, keys ...string) error
	ExpiredStagedImages(ctx context.Context, before time.Time, limit int) ([]string, error)
}

const (
	draftKeyPrefix  = "draft:"
	stagedImagesKey = draftKeyPrefix + "staged"
)

func sessionKey(id string) string { return draftKeyPrefix + "session:" + id }

func ownerKey(userID uint) string {
	return draftKeyPrefix + "owner:" + strconv.FormatUint(uint64(userID), 10)
}

func recoveryKey(userID uint) string {
	return draftKeyPrefix + "recovery:" + strconv.FormatUint(uint64(userID), 10)
}

func stampSession(s *model.DraftSession, now time.Time) model.DraftSession {
	next := *s
	next.Version = s.Version + 1
	next.UpdatedAt = now
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	return next
}

// decodeSession returns nil for corrupt payloads
func decodeSession(id string, raw []byte) *model.DraftSession {
	var s model.DraftSession
	if err := json.Unmarshal(raw, &s); err != nil {
		logger.Warn("Discarding corrupt draft session", map[string]interface{}{
			"session_id": id,
			"error":      err.Error(),
		})
		return nil
	}
	return &s
}

func decodeRecovery(userID uint, raw []byte) []variant.VariantDraft {
	var drafts []variant.VariantDraft
	if err := json.Unmarshal(raw, &drafts); err != nil {
		logger.Warn("Discarding corrupt draft recovery copy", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil
	}
	return drafts
}

type redisDraftRepository struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewRedisDraftRepository(rdb *redis.Client, ttl time.Duration) DraftRepository {
	return &redisDraftRepository{rdb: rdb, ttl: ttl, now: time.Now}
}

func (r *redisDraftRepository) Save(ctx context.Context, session *model.DraftSession) error {
	key := sessionKey(session.ID)
	next := stampSession(session, r.now())
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode draft session: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		var current int64
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if stored := decodeSession(session.ID, raw); stored != nil {
				current = stored.Version
			}
		}
		if current != session.Version {
			return ErrDraftVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, r.ttl)
			p.SAdd(ctx, ownerKey(session.OwnerID), session.ID)
			p.Expire(ctx, ownerKey(session.OwnerID), r.ttl)
			return nil
		})
		return err
	}

	err = r.rdb.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		err = ErrDraftVersionConflict
	}
	if err != nil {
		if !errors.Is(err, ErrDraftVersionConflict) {
			logger.Error("Failed to save draft session", err, map[string]interface{}{
				"session_id": session.ID,
			})
		}
		return err
	}

	*session = next
	logger.Debug("Draft session saved", map[string]interface{}{
		"session_id": session.ID,
		"version":    session.Version,
	})
	return nil
}

func (r *redisDraftRepository) Find(ctx context.Context, id string) (*model.DraftSession, error) {
	raw, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDraftSessionNotFound
	}
	if err != nil {
		logger.Error("Failed to load draft session", err, map[string]interface{}{
			"session_id": id,
		})
		return nil, err
	}

	s := decodeSession(id, raw)
	if s == nil {
		_ = r.rdb.Del(ctx, sessionKey(id)).Err()
		return nil, ErrDraftSessionNotFound
	}
	return s, nil
}

func (r *redisDraftRepository) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		logger.Error("Failed to delete draft session", err, map[string]interface{}{
			"session_id": id,
		})
		return err
	}
	return nil
}

// ListByOwner reads the owner index. Ids whose session expired or was
// deleted are pruned from the index as they are found.
func (r *redisDraftRepository) ListByOwner(ctx context.Context, ownerID uint) ([]*model.DraftSession, error) {
	ids, err := r.rdb.SMembers(ctx, ownerKey(ownerID)).Result()
	if err != nil {
		return nil, err
	}

	sessions := make([]*model.DraftSession, 0, len(ids))
	var stale []interface{}
	for _, id := range ids {
		s, err := r.Find(ctx, id)
		if errors.Is(err, ErrDraftSessionNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if len(stale) > 0 {
		_ = r.rdb.SRem(ctx, ownerKey(ownerID), stale...).Err()
	}
	return sessions, nil
}

func (r *redisDraftRepository) SaveRecovery(ctx context.Context, userID uint, drafts []variant.VariantDraft) error {
	if drafts == nil {
		drafts = []variant.VariantDraft{}
	}
	data, err := json.Marshal(drafts)
	if err != nil {
		return fmt.Errorf("failed to encode recovery copy: %w", err)
	}
	return r.rdb.Set(ctx, recoveryKey(userID), data, r.ttl).Err()
}

func (r *redisDraftRepository) LoadRecovery(ctx context.Context, userID uint) ([]variant.VariantDraft, error) {
	raw, err := r.rdb.Get(ctx, recoveryKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	drafts := decodeRecovery(userID, raw)
	if drafts == nil {
		_ = r.rdb.Del(ctx, recoveryKey(userID)).Err()
	}
	return drafts, nil
}

func (r *redisDraftRepository) ClearRecovery(ctx context.Context, userID uint) error {
	return r.rdb.Del(ctx, recoveryKey(userID)).Err()
}

func (r *redisDraftRepository) TrackStagedImages(ctx context.Context, at time.Time, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	members := make([]redis.Z, 0, len(keys))
	for _, k := range keys {
		members = append(members, redis.Z{Score: float64(at.Unix()), Member: k})
	}
	return r.rdb.ZAdd(ctx, stagedImagesKey, members...).Err()
}

func (r *redisDraftRepository) ReleaseStagedImages(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	members := make([]interface{}, len(keys))
	for i, k := range keys {
		members[i] = k
	}
	return r.rdb.ZRem(ctx, stagedImagesKey, members...).Err()
}

func (r *redisDraftRepository) ExpiredStagedImages(ctx context.Context, before time.Time, limit int) ([]string, error) {
	return r.rdb.ZRangeByScore(ctx, stagedImagesKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatInt(before.Unix(), 10),
		Count: int64(limit),
	}).Result()
}

// memoryDraftRepository keeps everything in process memory. Entries expire
// lazily on read.
type memoryDraftRepository struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]memoryEntry
	recovery map[uint]memoryEntry
	staged   map[string]time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

func NewMemoryDraftRepository(ttl time.Duration) DraftRepository {
	return &memoryDraftRepository{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]memoryEntry),
		recovery: make(map[uint]memoryEntry),
		staged:   make(map[string]time.Time),
	}
}

func (m *memoryDraftRepository) entry(data []byte) memoryEntry {
	e := memoryEntry{data: data}
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}
	return e
}

// liveSession returns the stored session or nil, dropping expired and corrupt entries
func (m *memoryDraftRepository) liveSession(id string) *model.DraftSession {
	e, ok := m.sessions[id]
	if !ok {
		return nil
	}
	if e.expired(m.now()) {
		delete(m.sessions, id)
		return nil
	}
	s := decodeSession(id, e.data)
	if s == nil {
		delete(m.sessions, id)
	}
	return s
}

func (m *memoryDraftRepository) Save(ctx context.Context, session *model.DraftSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current int64
	if stored := m.liveSession(session.ID); stored != nil {
		current = stored.Version
	}
	if current != session.Version {
		return ErrDraftVersionConflict
	}

	next := stampSession(session, m.now())
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode draft session: %w", err)
	}
	m.sessions[session.ID] = m.entry(data)
	*session = next
	return nil
}

func (m *memoryDraftRepository) Find(ctx context.Context, id string) (*model.DraftSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.liveSession(id); s != nil {
		return s, nil
	}
	return nil, ErrDraftSessionNotFound
}

func (m *memoryDraftRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memoryDraftRepository) ListByOwner(ctx context.Context, ownerID uint) ([]*model.DraftSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sessions []*model.DraftSession
	for id := range m.sessions {
		if s := m.liveSession(id); s != nil && s.OwnerID == ownerID {
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}

func (m *memoryDraftRepository) SaveRecovery(ctx context.Context, userID uint, drafts []variant.VariantDraft) error {
	if drafts == nil {
		drafts = []variant.VariantDraft{}
	}
	data, err := json.Marshal(drafts)
	if err != nil {
		return fmt.Errorf("failed to encode recovery copy: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.recovery[userID] = m.entry(data)
	return nil
}

func (m *memoryDraftRepository) LoadRecovery(ctx context.Context, userID uint) ([]variant.VariantDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.recovery[userID]
	if !ok {
		return nil, nil
	}
	if e.expired(m.now()) {
		delete(m.recovery, userID)
		return nil, nil
	}
	drafts := decodeRecovery(userID, e.data)
	if drafts == nil {
		delete(m.recovery, userID)
	}
	return drafts, nil
}

func (m *memoryDraftRepository) ClearRecovery(ctx context.Context, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recovery, userID)
	return nil
}

func (m *memoryDraftRepository) TrackStagedImages(ctx context.Context, at time.Time, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		m.staged[k] = at
	}
	return nil
}

func (m *memoryDraftRepository) ReleaseStagedImages(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.staged, k)
	}
	return nil
}

func (m *memoryDraftRepository) ExpiredStagedImages(ctx context.Context, before time.Time, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	type staged struct {
		key string
		at  time.Time
	}
	var expired []staged
	for k, at := range m.staged {
		if at.Unix() < before.Unix() {
			expired = append(expired, staged{key: k, at: at})
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		if !expired[i].at.Equal(expired[j].at) {
			return expired[i].at.Before(expired[j].at)
		}
		return expired[i].key < expired[j].key
	})

	keys := make([]string, 0, len(expired))
	for _, s := range expired {
		if limit > 0 && len(keys) == limit {
			break
		}
		keys = append(keys, s.key)
	}
	return keys, nil
}
