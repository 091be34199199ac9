// Package store persists the instance inventory. The sync engine owns
// writes to instances and deployment summaries; infrastructure mappings
// are written by external collaborators and only read here.
package store

import (
	"context"

	"github.com/fleetsync/fleetsync/internal/model"
)

// InstanceStore is the instance collection surface the handlers need.
// Upsert must be atomic on (infra_mapping_id, identity key) so that
// concurrent engine processes cannot create duplicate rows even outside
// the in-process locks.
type InstanceStore interface {
	// ListByInfraMapping returns every instance of one mapping within one
	// application tenancy.
	ListByInfraMapping(ctx context.Context, appID, infraMappingID string) ([]model.Instance, error)
	// Upsert inserts the instance or, when a row with the same identity
	// key already exists in the mapping, updates that row in place. The
	// existing row id and creation time are preserved.
	Upsert(ctx context.Context, instance *model.Instance) error
	// DeleteByIDs removes instances by row id within one tenancy.
	DeleteByIDs(ctx context.Context, appID string, ids []string) error
	// DeleteByGroup removes every instance of one resource group.
	DeleteByGroup(ctx context.Context, appID, infraMappingID, resourceGroup string) error
}

// DeploymentStore is the deployment ledger surface.
type DeploymentStore interface {
	// FindSummary returns the summary for one deployment key, or nil when
	// none is recorded.
	FindSummary(ctx context.Context, appID, infraMappingID string, key model.DeploymentKey) (*model.DeploymentSummary, error)
	// InsertSummary records a summary. When a summary with the same key
	// already exists the insert is a no-op and inserted is false, which is
	// how racing engine processes settle on a single ledger row.
	InsertSummary(ctx context.Context, summary *model.DeploymentSummary) (inserted bool, err error)
	// DeleteSummariesByApp removes all ledger rows of one application.
	// Used on application teardown only.
	DeleteSummariesByApp(ctx context.Context, appID string) error
}

// GenerationStore is the container generation record surface.
type GenerationStore interface {
	ListGenerationsByFamily(ctx context.Context, appID, infraMappingID, family string) ([]model.ContainerGeneration, error)
	// UpsertGeneration inserts a generation or advances last_visited on an
	// existing one.
	UpsertGeneration(ctx context.Context, gen *model.ContainerGeneration) error
	DeleteGenerations(ctx context.Context, appID string, ids []string) error
}

// MappingStore reads infrastructure mappings. The engine never writes
// them; Put exists for the collaborator that does (and for tests).
type MappingStore interface {
	GetMapping(ctx context.Context, appID, infraMappingID string) (*model.InfraMapping, error)
	ListMappings(ctx context.Context) ([]model.InfraMapping, error)
	PutMapping(ctx context.Context, mapping *model.InfraMapping) error
}

// GroupCount is one bucket of a dashboard aggregation.
type GroupCount struct {
	Key   string
	Count int
}

// DashboardStore serves the aggregate reads dashboards consume. Behavior
// downstream of these reads is out of engine scope, but they depend on
// the identity-key invariants holding.
type DashboardStore interface {
	CountByService(ctx context.Context, appID string) ([]GroupCount, error)
	CountByEnvironment(ctx context.Context, appID string) ([]GroupCount, error)
	CountByArtifact(ctx context.Context, appID string) ([]GroupCount, error)
}

// Store aggregates every persistence surface of the engine.
type Store interface {
	InstanceStore
	DeploymentStore
	GenerationStore
	MappingStore
	DashboardStore
}
