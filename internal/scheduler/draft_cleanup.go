package scheduler

import (
	"context"
	"time"

	"drivecash_backend/internal/loans/repository"
	"drivecash_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultDraftCleanupInterval = time.Hour
	defaultDraftRetention       = 30 * 24 * time.Hour
)

// DraftCleanup periodically deletes anonymous drafts that were never
// submitted or claimed by an account within the retention window.
type DraftCleanup struct {
	repo      *repository.PostgresRepository
	log       *logger.Logger
	interval  time.Duration
	retention time.Duration
}

func NewDraftCleanup(pool *pgxpool.Pool, log *logger.Logger, interval, retention time.Duration) *DraftCleanup {
	if interval <= 0 {
		interval = defaultDraftCleanupInterval
	}
	if retention <= 0 {
		retention = defaultDraftRetention
	}

	return &DraftCleanup{
		repo:      repository.New(pool),
		log:       log,
		interval:  interval,
		retention: retention,
	}
}

func (c *DraftCleanup) Run(ctx context.Context) {
	if c == nil || c.repo == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *DraftCleanup) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-c.retention)

	deleted, err := c.repo.PurgeAbandonedDrafts(ctx, cutoff)
	if err != nil {
		c.log.Warn("abandoned draft cleanup failed", "error", err)
		return
	}

	if deleted > 0 {
		c.log.Info("abandoned draft cleanup deleted drafts", "deleted", deleted, "cutoff", cutoff)
	}
}
