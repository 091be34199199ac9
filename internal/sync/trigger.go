package sync

import (
	"context"

	"github.com/fleetsync/fleetsync/internal/model"
)

// Trigger is notified when a pure sync pass (no accompanying deployment
// event) adds genuinely new container instances for a mapping. The
// platform uses this to kick off "new instance appeared" workflows;
// engines without one use NoopTrigger.
type Trigger interface {
	InstancesDiscovered(ctx context.Context, mapping *model.InfraMapping)
}

// NoopTrigger ignores discoveries.
type NoopTrigger struct{}

func (NoopTrigger) InstancesDiscovered(context.Context, *model.InfraMapping) {}
