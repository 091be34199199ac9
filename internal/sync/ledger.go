package sync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fleetsync/fleetsync/internal/keylock"
	"github.com/fleetsync/fleetsync/internal/model"
	"github.com/fleetsync/fleetsync/internal/store"
)

// Ledger deduplicates deployment-completion events. Check-then-insert
// runs inside a critical section keyed on the deployment key's identity
// value, so unrelated deployments proceed concurrently while identical
// keys serialize. The store's unique constraint backs this up across
// engine processes.
type Ledger struct {
	store store.DeploymentStore
	locks *keylock.KeyedMutex
	now   func() time.Time
}

// NewLedger builds a Ledger.
func NewLedger(s store.DeploymentStore, locks *keylock.KeyedMutex, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: s, locks: locks, now: now}
}

// RecordIfAbsent returns the ledger entry for the deployment key,
// creating it when absent. wasNew is true for exactly one caller per key;
// every other caller (including redeliveries of the same event) gets the
// prior entry unchanged.
func (l *Ledger) RecordIfAbsent(ctx context.Context, appID, infraMappingID string, key model.DeploymentKey, info model.DeploymentInfo, prov model.Provenance) (*model.DeploymentSummary, bool, error) {
	unlock := l.locks.Lock("deploy:" + infraMappingID + ":" + string(key.Kind) + ":" + key.Value)
	defer unlock()

	existing, err := l.store.FindSummary(ctx, appID, infraMappingID, key)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	summary := &model.DeploymentSummary{
		ID:             uuid.NewString(),
		AppID:          appID,
		InfraMappingID: infraMappingID,
		Key:            key,
		Info:           info,
		Provenance:     prov,
		CreatedAt:      l.now(),
	}
	inserted, err := l.store.InsertSummary(ctx, summary)
	if err != nil {
		return nil, false, err
	}
	if !inserted {
		// Another engine process won the insert between our read and write.
		winner, err := l.store.FindSummary(ctx, appID, infraMappingID, key)
		if err != nil {
			return nil, false, err
		}
		return winner, false, nil
	}
	return summary, true, nil
}
