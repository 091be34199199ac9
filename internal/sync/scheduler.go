package sync

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/fleetsync/fleetsync/internal/store"
)

// DefaultSyncInterval is how often the scheduler reconciles every known
// mapping when the configuration does not say otherwise.
const DefaultSyncInterval = 10 * time.Minute

// Scheduler drives periodic reconciliation: every interval it walks all
// known infrastructure mappings and runs a sync pass for each. Passes are
// best effort; a failing mapping is logged and retried on the next tick.
type Scheduler struct {
	mappings store.MappingStore
	factory  *Factory
	interval time.Duration
	log      logr.Logger
}

// NewScheduler builds a Scheduler (DefaultSyncInterval when interval is
// zero or negative).
func NewScheduler(mappings store.MappingStore, factory *Factory, interval time.Duration, log logr.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Scheduler{
		mappings: mappings,
		factory:  factory,
		interval: interval,
		log:      log.WithName("scheduler"),
	}
}

// Run blocks until ctx is cancelled, reconciling all mappings once
// immediately and then on every tick.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SyncAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.SyncAll(ctx)
		}
	}
}

// SyncAll runs one reconciliation pass over every known mapping.
func (s *Scheduler) SyncAll(ctx context.Context) {
	mappings, err := s.mappings.ListMappings(ctx)
	if err != nil {
		s.log.Error(err, "failed to list infrastructure mappings")
		return
	}

	for _, mapping := range mappings {
		if ctx.Err() != nil {
			return
		}
		handler, err := s.factory.Resolve(mapping.Type)
		if err != nil {
			s.log.Error(err, "skipping mapping", "infraMappingID", mapping.ID, "type", mapping.Type)
			continue
		}
		if handler == nil {
			continue
		}
		if err := handler.SyncInstances(ctx, mapping.AppID, mapping.ID); err != nil {
			s.log.Error(err, "sync pass failed", "infraMappingID", mapping.ID, "type", mapping.Type)
		}
	}
}
