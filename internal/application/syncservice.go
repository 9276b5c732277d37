package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/todopanel/internal/domain/model"
	"github.com/ericfisherdev/todopanel/internal/domain/port/driven"
)

// SyncInfo is an exported view of the background sync schedule, used by the
// health endpoint and tests.
type SyncInfo struct {
	Tier       ActivityTier
	LastSynced time.Time
	NextSyncAt time.Time
	LastError  string
}

// SyncService keeps the todo cache fresh while the local panel runs. The
// interval adapts to how recently the todos changed. A sync that ends in
// SessionExpired pauses syncing until a manual refresh succeeds.
type SyncService struct {
	todos     *TodoService
	filter    model.TodoFilter
	logger    *slog.Logger
	refreshCh chan chan error
	now       func() time.Time

	mu     sync.RWMutex
	info   SyncInfo
	paused bool
}

// NewSyncService creates a new SyncService that loads todos matching filter.
func NewSyncService(todos *TodoService, filter model.TodoFilter, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		todos:     todos,
		filter:    filter,
		logger:    logger,
		refreshCh: make(chan chan error),
		now:       time.Now,
		info:      SyncInfo{Tier: TierStale},
	}
}

// Start runs an immediate sync and then syncs on the adaptive interval. It
// also serves manual refresh requests. Start blocks until ctx is canceled.
func (s *SyncService) Start(ctx context.Context) {
	s.syncOnce(ctx, false)

	timer := time.NewTimer(s.nextInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sync service stopped")
			return
		case <-timer.C:
			s.syncOnce(ctx, false)
			timer.Reset(s.nextInterval())
		case done := <-s.refreshCh:
			done <- s.syncOnce(ctx, true)
			timer.Reset(s.nextInterval())
		}
	}
}

// RefreshNow requests an immediate sync and waits for it. It blocks until the
// sync completes or ctx is canceled.
func (s *SyncService) RefreshNow(ctx context.Context) error {
	done := make(chan error, 1)

	select {
	case s.refreshCh <- done:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Info returns the current schedule.
func (s *SyncService) Info() SyncInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// syncOnce loads todos into the cache. Scheduled syncs are skipped while
// paused; manual ones always run.
func (s *SyncService) syncOnce(ctx context.Context, manual bool) error {
	s.mu.RLock()
	paused := s.paused
	s.mu.RUnlock()
	if paused && !manual {
		return nil
	}

	start := s.now()
	todos, err := s.todos.Load(ctx, s.filter)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.info.LastError = driven.UserMessage(err)
		if errors.Is(err, driven.ErrSessionExpired) {
			s.paused = true
			s.logger.Warn("sync paused, session expired")
		} else {
			s.logger.Error("sync failed", "error", err)
		}
		return err
	}

	s.paused = false
	s.info.LastError = ""
	s.info.LastSynced = start
	s.info.Tier = classifyActivity(freshestActivity(todos), start)
	s.logger.Debug("sync complete",
		"todos", len(todos),
		"tier", s.info.Tier.String(),
		"duration", s.now().Sub(start).Round(time.Millisecond),
	)
	return nil
}

// nextInterval records and returns the delay until the next scheduled sync.
func (s *SyncService) nextInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	interval := tierInterval(s.info.Tier)
	s.info.NextSyncAt = s.now().Add(interval)
	return interval
}
