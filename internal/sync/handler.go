// Package sync contains the reconciliation engine: provider-specific
// handlers that converge the persisted instance inventory onto the live
// state each provider reports, the deployment ledger that deduplicates
// completion events, and the retention policy bounding container
// generation history.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fleetsync/fleetsync/internal/model"
	"github.com/fleetsync/fleetsync/internal/provider/aws"
	"github.com/fleetsync/fleetsync/internal/provider/kube"
	"github.com/fleetsync/fleetsync/internal/provider/paas"
	"github.com/fleetsync/fleetsync/internal/store"
)

// Handler is the capability set every provider family implements. Both
// the periodic scheduler and the deployment-event consumer converge on
// the same diff/apply logic behind these three operations.
type Handler interface {
	// SyncInstances reconciles every resource group of one infrastructure
	// mapping against provider-reported reality.
	SyncInstances(ctx context.Context, appID, infraMappingID string) error
	// HandleNewDeployment reconciles the resource groups a completed
	// deployment touched, attaching the deployment's provenance to newly
	// discovered instances. Redelivery of an already-recorded deployment
	// is a no-op beyond the ledger lookup.
	HandleNewDeployment(ctx context.Context, summaries []model.DeploymentSummary) error
	// GetDeploymentInfo extracts this provider's deployment details from a
	// completed phase execution. A summary with no section for this
	// provider yields nil without error.
	GetDeploymentInfo(phase model.PhaseExecutionSummary) ([]model.DeploymentInfo, error)
}

// HostQuerier is the EC2-shaped provider surface of the VM, AMI and
// CodeDeploy handlers. Satisfied by *aws.Client.
type HostQuerier interface {
	RunningInstances(ctx context.Context, instanceIDs []string) ([]aws.HostDescriptor, error)
	GroupInstances(ctx context.Context, groupName string) ([]aws.HostDescriptor, error)
	DeploymentInstances(ctx context.Context, deploymentID string) ([]aws.HostDescriptor, error)
}

// PodQuerier resolves live Kubernetes pods. Satisfied by *kube.Client.
type PodQuerier interface {
	ListPods(ctx context.Context, namespace string, selector map[string]string) ([]kube.PodDescriptor, error)
}

// TaskQuerier resolves live ECS tasks. Satisfied by *aws.Client.
type TaskQuerier interface {
	ServiceTasks(ctx context.Context, clusterName, serviceName string) ([]aws.TaskDescriptor, error)
}

// AppQuerier resolves live PaaS application instances. Satisfied by
// *paas.Client.
type AppQuerier interface {
	ApplicationInstances(ctx context.Context, org, space, appName string) ([]paas.AppInstance, error)
}

var (
	_ HostQuerier = (*aws.Client)(nil)
	_ TaskQuerier = (*aws.Client)(nil)
	_ PodQuerier  = (*kube.Client)(nil)
	_ AppQuerier  = (*paas.Client)(nil)
)

// MappingTypeError reports a handler invoked against an infrastructure
// mapping of the wrong type. This is a configuration error, fatal for
// that mapping's pass only.
type MappingTypeError struct {
	InfraMappingID string
	Got            model.MappingType
	Want           []model.MappingType
}

func (e *MappingTypeError) Error() string {
	return fmt.Sprintf("infrastructure mapping %s has type %q, handler supports %v",
		e.InfraMappingID, e.Got, e.Want)
}

// loadMapping fetches a mapping and verifies it matches one of the
// handler's supported types.
func loadMapping(ctx context.Context, mappings store.MappingStore, appID, infraMappingID string, want ...model.MappingType) (*model.InfraMapping, error) {
	mapping, err := mappings.GetMapping(ctx, appID, infraMappingID)
	if err != nil {
		return nil, err
	}
	if mapping == nil {
		return nil, fmt.Errorf("infrastructure mapping %s not found", infraMappingID)
	}
	for _, t := range want {
		if mapping.Type == t {
			return mapping, nil
		}
	}
	return nil, &MappingTypeError{InfraMappingID: infraMappingID, Got: mapping.Type, Want: want}
}

// newInstance builds an Instance with a fresh row id and timestamps. The
// store's identity-key upsert decides whether it lands as a create or an
// in-place update.
func newInstance(mapping *model.InfraMapping, key model.InstanceKey, info model.InstanceInfo, prov model.Provenance, now time.Time) *model.Instance {
	return &model.Instance{
		ID:                  uuid.NewString(),
		AppID:               mapping.AppID,
		EnvID:               mapping.EnvID,
		ServiceID:           mapping.ServiceID,
		InfraMappingID:      mapping.ID,
		InfraMappingType:    mapping.Type,
		ComputeProviderID:   mapping.ComputeProviderID,
		ComputeProviderName: mapping.ComputeProviderName,
		Region:              mapping.Region,
		Key:                 key,
		Info:                info,
		Provenance:          prov,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}
