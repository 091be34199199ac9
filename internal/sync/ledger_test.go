package sync

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsync/fleetsync/internal/keylock"
	"github.com/fleetsync/fleetsync/internal/model"
)

func TestRecordIfAbsent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ledger := testLedger(s, keylock.New())
	ctx := context.Background()

	key := model.ASGDeploymentKey("asg-blue-v3")
	info := model.DeploymentInfo{Kind: model.DeployInfoASG,
		ASG: &model.ASGDeploymentInfo{NewAutoScalingGroup: "asg-blue-v3"}}

	first, wasNew, err := ledger.RecordIfAbsent(ctx, "app-1", "im-1", key, info, model.Provenance{WorkflowID: "wf-1"})
	require.NoError(t, err)
	assert.True(t, wasNew)
	require.NotNil(t, first)

	// Redelivery returns the recorded summary unchanged.
	second, wasNew, err := ledger.RecordIfAbsent(ctx, "app-1", "im-1", key, info, model.Provenance{WorkflowID: "wf-other"})
	require.NoError(t, err)
	assert.False(t, wasNew)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "wf-1", second.Provenance.WorkflowID)
}

func TestRecordIfAbsentConcurrent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ledger := testLedger(s, keylock.New())
	ctx := context.Background()

	key := model.ASGDeploymentKey("asg-blue-v3")
	info := model.DeploymentInfo{Kind: model.DeployInfoASG,
		ASG: &model.ASGDeploymentInfo{NewAutoScalingGroup: "asg-blue-v3"}}

	const callers = 8
	newCount := 0
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, wasNew, err := ledger.RecordIfAbsent(ctx, "app-1", "im-1", key, info, model.Provenance{})
			assert.NoError(t, err)
			if wasNew {
				mu.Lock()
				newCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, newCount)
}

func TestRecordIfAbsentDistinctKeys(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ledger := testLedger(s, keylock.New())
	ctx := context.Background()

	info := model.DeploymentInfo{Kind: model.DeployInfoCodeDeploy,
		CodeDeploy: &model.CodeDeployDeploymentInfo{DeploymentID: "d-1"}}

	_, wasNew, err := ledger.RecordIfAbsent(ctx, "app-1", "im-1",
		model.CodeDeployDeploymentKey("d-1"), info, model.Provenance{})
	require.NoError(t, err)
	assert.True(t, wasNew)

	_, wasNew, err = ledger.RecordIfAbsent(ctx, "app-1", "im-1",
		model.CodeDeployDeploymentKey("d-2"), info, model.Provenance{})
	require.NoError(t, err)
	assert.True(t, wasNew)
}
