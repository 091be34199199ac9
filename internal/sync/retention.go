package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fleetsync/fleetsync/internal/keylock"
	"github.com/fleetsync/fleetsync/internal/model"
	"github.com/fleetsync/fleetsync/internal/store"
)

// DefaultMaxGenerations bounds how many revisions of one
// container-service family are retained before the oldest are evicted.
const DefaultMaxGenerations = 10

// GenerationObservation is one live generation seen during a sync pass.
type GenerationObservation struct {
	Name      string
	Namespace string
}

// Retention bounds container generation history. Count-and-evict runs
// under a per-family critical section so concurrent syncs of the same
// family cannot interleave the sequence.
type Retention struct {
	store store.Store
	locks *keylock.KeyedMutex
	max   int
	now   func() time.Time
}

// NewRetention builds a Retention keeping at most maxGenerations per
// family (DefaultMaxGenerations when zero).
func NewRetention(s store.Store, locks *keylock.KeyedMutex, maxGenerations int, now func() time.Time) *Retention {
	if maxGenerations <= 0 {
		maxGenerations = DefaultMaxGenerations
	}
	if now == nil {
		now = time.Now
	}
	return &Retention{store: s, locks: locks, max: maxGenerations, now: now}
}

// RecordGeneration marks the observed generations of one family as still
// live at ts, inserting newly sighted ones, then evicts the
// oldest-by-last-visited generations beyond the retention limit together
// with every instance row they own.
func (r *Retention) RecordGeneration(ctx context.Context, appID, infraMappingID, family string, observed []GenerationObservation, ts time.Time) error {
	if len(observed) == 0 {
		return nil
	}

	unlock := r.locks.Lock("generation:" + infraMappingID + ":" + family)
	defer unlock()

	for _, obs := range observed {
		gen := &model.ContainerGeneration{
			ID:             uuid.NewString(),
			AppID:          appID,
			InfraMappingID: infraMappingID,
			Family:         family,
			Name:           obs.Name,
			Namespace:      obs.Namespace,
			LastVisited:    ts,
		}
		if err := r.store.UpsertGeneration(ctx, gen); err != nil {
			return err
		}
	}

	gens, err := r.store.ListGenerationsByFamily(ctx, appID, infraMappingID, family)
	if err != nil {
		return err
	}
	if len(gens) <= r.max {
		return nil
	}

	// Newest first; everything past the limit goes, instances included.
	evicted := gens[r.max:]
	ids := make([]string, 0, len(evicted))
	for _, gen := range evicted {
		if err := r.store.DeleteByGroup(ctx, appID, infraMappingID, gen.Name); err != nil {
			return fmt.Errorf("failed to evict instances of generation %s: %w", gen.Name, err)
		}
		ids = append(ids, gen.ID)
	}
	if err := r.store.DeleteGenerations(ctx, appID, ids); err != nil {
		return err
	}
	generationEvictionsTotal.Add(float64(len(evicted)))
	return nil
}
