package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsync/fleetsync/internal/keylock"
	"github.com/fleetsync/fleetsync/internal/model"
	"github.com/fleetsync/fleetsync/internal/provider/aws"
)

func TestSchedulerSyncAll(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutMapping(ctx, &model.InfraMapping{
		ID: "im-vm", AppID: "app-1", Type: model.MappingAWSSSH,
	}))
	require.NoError(t, s.PutMapping(ctx, &model.InfraMapping{
		ID: "im-lambda", AppID: "app-1", Type: model.MappingServerless,
	}))

	synced := 0
	hosts := &stubHosts{
		running: func(context.Context, []string) ([]aws.HostDescriptor, error) {
			return nil, nil
		},
		group: func(context.Context, string) ([]aws.HostDescriptor, error) {
			synced++
			return nil, nil
		},
	}
	locks := keylock.New()
	ledger := testLedger(s, locks)
	factory := NewFactory(
		NewVMHandler(s, locks, hosts, testLog),
		NewAMIHandler(s, locks, ledger, hosts, testLog),
		NewCodeDeployHandler(s, locks, ledger, hosts, testLog),
		newContainerHandler(s, &stubPods{}, &stubTasks{}, nil),
		NewPaaSHandler(s, locks, ledger, &stubApps{}, testLog),
	)

	// Seed one ASG member so the VM pass has a group to visit; the
	// serverless mapping must be skipped without error.
	mapping, err := s.GetMapping(ctx, "app-1", "im-vm")
	require.NoError(t, err)
	inst := newInstance(mapping, model.HostKey("host-1"),
		model.InstanceInfo{Kind: model.InfoASGHost, ASGHost: &model.ASGHostInfo{
			InstanceID: "i-1", HostName: "host-1", AutoScalingGroupName: "asg-g"}},
		model.Provenance{}, time.Now())
	require.NoError(t, s.Upsert(ctx, inst))

	sched := NewScheduler(s, factory, 0, testLog)
	sched.SyncAll(ctx)

	assert.Equal(t, 1, synced)
}
