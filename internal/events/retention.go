package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tOgg1/missiv/internal/config"
	"github.com/tOgg1/missiv/internal/db"
	"github.com/tOgg1/missiv/internal/logging"
)

// Repository is what the retention service needs from the event store.
type Repository interface {
	Stats(ctx context.Context) (db.FeedStats, error)
	PruneBefore(ctx context.Context, cutoff time.Time, batch int) (int64, error)
	PruneToCount(ctx context.Context, keep, batch int) (int64, error)
}

// RetentionStats describes the stored notification feed.
type RetentionStats struct {
	EventCount  int64
	OldestEvent *time.Time
	LastCleanup time.Time
	LastDeleted int64
}

// RetentionService prunes old notifications by age and by count.
type RetentionService struct {
	cfg    config.EventsConfig
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time

	mu          sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	lastCleanup time.Time
	lastDeleted int64
}

// NewRetentionService creates a retention service from cfg.Events.
func NewRetentionService(cfg *config.Config, repo Repository) *RetentionService {
	return &RetentionService{
		cfg:    cfg.Events,
		repo:   repo,
		logger: logging.Component("retention"),
		now:    time.Now,
	}
}

// Start runs a cleanup immediately and then every CleanupInterval until
// ctx is canceled or Stop is called. It does nothing when retention is
// disabled.
func (s *RetentionService) Start(ctx context.Context) error {
	if !s.cfg.RetentionEnabled {
		s.logger.Debug().Msg("event retention disabled")
		return nil
	}
	if s.cfg.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup interval must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("retention service already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(loopCtx, s.done)
	return nil
}

func (s *RetentionService) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		if err := s.RunCleanup(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn().Err(err).Msg("event cleanup failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop stops the background loop and waits for it to exit.
func (s *RetentionService) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// RunCleanup deletes notifications older than MaxAge, then trims the feed
// to MaxCount. Deletion happens in batches of BatchSize.
func (s *RetentionService) RunCleanup(ctx context.Context) error {
	batch := s.cfg.BatchSize
	if batch <= 0 {
		batch = 1000
	}

	var total int64

	if s.cfg.MaxAge > 0 {
		cutoff := s.now().UTC().Add(-s.cfg.MaxAge)
		for {
			deleted, err := s.repo.PruneBefore(ctx, cutoff, batch)
			if err != nil {
				return fmt.Errorf("delete by age: %w", err)
			}
			total += deleted
			if deleted < int64(batch) {
				break
			}
		}
	}

	if s.cfg.MaxCount > 0 {
		for {
			deleted, err := s.repo.PruneToCount(ctx, s.cfg.MaxCount, batch)
			if err != nil {
				return fmt.Errorf("delete by count: %w", err)
			}
			total += deleted
			if deleted < int64(batch) {
				break
			}
		}
	}

	s.mu.Lock()
	s.lastCleanup = s.now().UTC()
	s.lastDeleted = total
	s.mu.Unlock()

	if total > 0 {
		s.logger.Info().Int64("deleted", total).Msg("pruned notification feed")
	}
	return nil
}

// Stats reports the current size of the feed and the last cleanup result.
func (s *RetentionService) Stats(ctx context.Context) (*RetentionStats, error) {
	feed, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return &RetentionStats{
		EventCount:  feed.Count,
		OldestEvent: feed.Oldest,
		LastCleanup: s.lastCleanup,
		LastDeleted: s.lastDeleted,
	}, nil
}
