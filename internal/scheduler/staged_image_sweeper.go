package scheduler

import (
	"context"
	"time"

	"github.com/liherfashion/inventory-admin/internal/storage"
	"github.com/liherfashion/inventory-admin/pkg/logger"
	"github.com/robfig/cron/v3"
)

const sweepBatchSize = 100

// StagedImageIndex lists images uploaded into draft sessions that were
// never submitted.
type StagedImageIndex interface {
	ExpiredStagedImages(ctx context.Context, before time.Time, limit int) ([]string, error)
	ReleaseStagedImages(ctx context.Context, keys ...string) error
}

// StagedImageSweeper deletes staged draft images once they are older than
// the session TTL.
type StagedImageSweeper struct {
	cron     *cron.Cron
	schedule string
	ttl      time.Duration
	index    StagedImageIndex
	images   storage.ImageStorage
	now      func() time.Time
}

func NewStagedImageSweeper(schedule string, ttl time.Duration, index StagedImageIndex, images storage.ImageStorage) *StagedImageSweeper {
	return &StagedImageSweeper{
		cron:     cron.New(),
		schedule: schedule,
		ttl:      ttl,
		index:    index,
		images:   images,
		now:      time.Now,
	}
}

func (s *StagedImageSweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		removed, err := s.Sweep(ctx)
		if err != nil {
			logger.Error("Staged image sweep failed", err, map[string]interface{}{
				"removed": removed,
			})
			return
		}
		if removed > 0 {
			logger.Info("Staged image sweep finished", map[string]interface{}{
				"removed": removed,
			})
		}
	})
	if err != nil {
		logger.Error("Failed to add cron job for staged image sweep", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Staged image sweeper started", map[string]interface{}{
		"schedule": s.schedule,
		"ttl":      s.ttl.String(),
	})
	return nil
}

// Stop waits for a running sweep to finish
func (s *StagedImageSweeper) Stop() {
	logger.Info("Stopping staged image sweeper...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Staged image sweeper stopped", nil)
}

// Sweep removes expired staged images in batches and returns how many were
// deleted. Images whose delete fails stay indexed for the next run.
func (s *StagedImageSweeper) Sweep(ctx context.Context) (int, error) {
	before := s.now().Add(-s.ttl)
	removed := 0

	for {
		keys, err := s.index.ExpiredStagedImages(ctx, before, sweepBatchSize)
		if err != nil {
			return removed, err
		}
		if len(keys) == 0 {
			return removed, nil
		}

		deleted := make([]string, 0, len(keys))
		for _, key := range keys {
			if err := s.images.Delete(ctx, key); err != nil {
				logger.Warn("Failed to delete staged image", map[string]interface{}{
					"key":   key,
					"error": err.Error(),
				})
				continue
			}
			deleted = append(deleted, key)
		}
		if len(deleted) > 0 {
			if err := s.index.ReleaseStagedImages(ctx, deleted...); err != nil {
				return removed, err
			}
		}
		removed += len(deleted)

		if len(keys) < sweepBatchSize || len(deleted) < len(keys) {
			return removed, nil
		}
	}
}
