// internal/service/tracking/retention.go

package tracking

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RetentionConfig contains configuration for the retention sweeper
type RetentionConfig struct {
	Retention     time.Duration
	SweepInterval time.Duration
}

// RetentionSweeper periodically deletes fixes older than the retention period
type RetentionSweeper struct {
	store  LocationStore
	config RetentionConfig
	logger *zap.Logger
	now    func() time.Time
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRetentionSweeper creates a new retention sweeper
func NewRetentionSweeper(store LocationStore, config RetentionConfig, logger *zap.Logger) *RetentionSweeper {
	return &RetentionSweeper{
		store:  store,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Start runs a sweep immediately and then on every interval until Stop
func (s *RetentionSweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop signals the sweeper to stop and waits for it, bounded by ctx
func (s *RetentionSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	c := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(c)
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *RetentionSweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	s.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep deletes expired fixes once and returns the number removed
func (s *RetentionSweeper) Sweep(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := s.now().Add(-s.config.Retention)
	deleted, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("Retention sweep failed", zap.Time("cutoff", cutoff), zap.Error(err))
		}
		return 0
	}

	if deleted > 0 {
		s.logger.Info("Expired location fixes", zap.Time("cutoff", cutoff), zap.Int64("deleted", deleted))
	}

	return deleted
}
