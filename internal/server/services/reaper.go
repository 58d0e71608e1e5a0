package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophfiles/internal/logging"
	"github.com/dmitrijs2005/gophfiles/internal/server/metrics"
	"github.com/dmitrijs2005/gophfiles/internal/server/models"
	"github.com/dmitrijs2005/gophfiles/internal/server/repositories/files"
)

const defaultSweepBatch = 100

// Purger removes one object completely.
type Purger interface {
	Purge(ctx context.Context, obj *models.FileObject) error
}

type ReaperConfig struct {
	// Retention is the lifetime of non-persistent files; zero keeps them forever.
	Retention time.Duration
	// StaleAfter is how long a pending upload may stay unfinished.
	StaleAfter time.Duration
	Interval   time.Duration
	Batch      int
}

// Reaper finishes interrupted deletes, clears abandoned uploads and expires
// old non-persistent files.
type Reaper struct {
	index   files.Repository
	purger  Purger
	cfg     ReaperConfig
	metrics *metrics.Metrics
	logger  logging.Logger
	now     func() time.Time
}

func NewReaper(index files.Repository, purger Purger, cfg ReaperConfig, m *metrics.Metrics, logger logging.Logger) *Reaper {
	if cfg.Batch <= 0 {
		cfg.Batch = defaultSweepBatch
	}
	return &Reaper{
		index:   index,
		purger:  purger,
		cfg:     cfg,
		metrics: m,
		logger:  logger.With("module", "reaper"),
		now:     time.Now,
	}
}

// Run sweeps every Interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	if r.cfg.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := r.Sweep(ctx); err != nil {
				r.logger.Error(ctx, "sweep failed", "error", err)
			} else if n > 0 {
				r.logger.Info(ctx, "sweep finished", "removed", n)
			}
		}
	}
}

// Sweep runs one pass and returns the number of objects removed.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	now := r.now()

	stale, err := r.index.SelectStale(ctx, now.Add(-r.cfg.StaleAfter), r.cfg.Batch)
	if err != nil {
		return 0, err
	}
	removed := r.purgeAll(ctx, stale)
	r.metrics.FilesReaped("stale", removed)

	if r.cfg.Retention <= 0 {
		return removed, nil
	}

	expired, err := r.index.SelectExpired(ctx, now.Add(-r.cfg.Retention), r.cfg.Batch)
	if err != nil {
		return removed, err
	}
	n := r.purgeAll(ctx, expired)
	r.metrics.FilesReaped("expired", n)

	return removed + n, nil
}

func (r *Reaper) purgeAll(ctx context.Context, objs []*models.FileObject) int {
	n := 0
	for _, obj := range objs {
		if ctx.Err() != nil {
			break
		}
		if err := r.purger.Purge(ctx, obj); err != nil {
			continue
		}
		n++
	}
	return n
}
