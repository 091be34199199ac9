// Package events carries deployment activity into the reconciliation
// engine: an in-process queue with at-least-once delivery and a consumer
// that applies each event through the handler layer. Consumption is
// single pass and discard — a failed event is logged and dropped, since
// the next periodic sync self-heals whatever it would have applied.
package events

import (
	"fmt"

	"github.com/fleetsync/fleetsync/internal/model"
)

// Kind discriminates the two event shapes.
type Kind string

const (
	// KindInstance carries instances the producer already resolved, plus
	// autoscaling groups whose members should be purged.
	KindInstance Kind = "instance"
	// KindDeployment carries deployment summaries for a handler to
	// re-resolve instances from.
	KindDeployment Kind = "deployment"
)

// InstanceEvent is the pre-resolved shape: the producer did the provider
// queries itself and ships the resulting rows, with the autoscaling
// groups a rollover drained listed for purging.
type InstanceEvent struct {
	AppID          string
	InfraMappingID string
	Instances      []model.Instance
	PurgeGroups    []string
}

// DeploymentEvent is the deferred shape: summaries identifying what was
// deployed, for the responsible handler to resolve current instances
// itself.
type DeploymentEvent struct {
	Summaries []model.DeploymentSummary
}

// Event is a tagged variant of the two shapes.
type Event struct {
	Kind       Kind
	Instance   *InstanceEvent
	Deployment *DeploymentEvent
}

// Validate checks the payload matches the kind.
func (e Event) Validate() error {
	switch e.Kind {
	case KindInstance:
		if e.Instance == nil {
			return fmt.Errorf("instance event without payload")
		}
		if e.Instance.AppID == "" || e.Instance.InfraMappingID == "" {
			return fmt.Errorf("instance event missing app or mapping id")
		}
	case KindDeployment:
		if e.Deployment == nil {
			return fmt.Errorf("deployment event without payload")
		}
		if len(e.Deployment.Summaries) == 0 {
			return fmt.Errorf("deployment event with no summaries")
		}
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return nil
}
