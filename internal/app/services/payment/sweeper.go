package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/salvi-network/salvi-bridge/internal/app/metrics"
	"github.com/salvi-network/salvi-bridge/internal/app/storage"
	"github.com/salvi-network/salvi-bridge/internal/app/system"
	"github.com/salvi-network/salvi-bridge/pkg/logger"
)

// DefaultSweepSchedule is the sweep cadence applied when the binding leaves
// it unset.
const DefaultSweepSchedule = "@every 10m"

var _ system.Service = (*Sweeper)(nil)

// Sweeper prunes cached payment outcomes older than the retention window.
// Without a retention window the cache keeps everything and the sweeper
// stays disabled.
type Sweeper struct {
	store     storage.PaymentStore
	log       *logger.Logger
	retention time.Duration
	schedule  string

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewSweeper constructs a lifecycle-managed cache sweeper.
func NewSweeper(store storage.PaymentStore, retention time.Duration, log *logger.Logger) *Sweeper {
	if log == nil {
		log = logger.NewDefault("payments-sweeper")
	}
	return &Sweeper{
		store:     store,
		log:       log,
		retention: retention,
		schedule:  DefaultSweepSchedule,
	}
}

// WithSchedule overrides the sweep cadence with a cron expression or an
// @every duration.
func (s *Sweeper) WithSchedule(schedule string) *Sweeper {
	if schedule != "" {
		s.schedule = schedule
	}
	return s
}

func (s *Sweeper) Name() string { return "payments-sweeper" }

func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil || s.retention <= 0 {
		s.log.Info("payment cache retention not configured; sweeper disabled")
		return nil
	}
	if s.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, s.sweep); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c
	s.running = true

	s.log.WithField("schedule", s.schedule).
		WithField("retention", s.retention.String()).
		Info("payment cache sweeper started")
	return nil
}

func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c := s.cron
	s.cron = nil
	s.running = false
	s.mu.Unlock()

	stopped := c.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	s.log.Info("payment cache sweeper stopped")
	return nil
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().UTC().Add(-s.retention)
	removed, err := s.store.PrunePayments(ctx, cutoff)
	if err != nil {
		s.log.WithError(err).Warn("payment cache sweep failed")
		return
	}
	if removed > 0 {
		metrics.RecordPaymentsPruned(removed)
		s.log.WithField("removed", removed).Info("payment cache pruned")
	}
}
