package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsync/fleetsync/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenAppliesPragmas(t *testing.T) {
	t.Parallel()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "fleetsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	var journalMode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, s.db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)
}

func newHostInstance(mappingID, hostName, group string) *model.Instance {
	now := time.Now().UTC().Truncate(time.Second)
	inst := &model.Instance{
		ID:               uuid.NewString(),
		AppID:            "app-1",
		EnvID:            "env-1",
		ServiceID:        "svc-1",
		InfraMappingID:   mappingID,
		InfraMappingType: model.MappingAWSSSH,
		Key:              model.HostKey(hostName),
		Info: model.InstanceInfo{Kind: model.InfoEC2Host,
			Host: &model.HostInfo{InstanceID: "i-" + hostName, HostName: hostName}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if group != "" {
		inst.InfraMappingType = model.MappingAWSAMI
		inst.Info = model.InstanceInfo{Kind: model.InfoASGHost,
			ASGHost: &model.ASGHostInfo{InstanceID: "i-" + hostName, HostName: hostName, AutoScalingGroupName: group}}
	}
	return inst
}

func TestUpsertRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	first := newHostInstance("im-1", "host-a", "")
	require.NoError(t, s.Upsert(ctx, first))

	got, err := s.ListByInfraMapping(ctx, "app-1", "im-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, first.Key, got[0].Key)
	assert.Equal(t, first.Info, got[0].Info)
}

func TestUpsertSameKeyKeepsOneRow(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	first := newHostInstance("im-1", "host-a", "")
	require.NoError(t, s.Upsert(ctx, first))

	// A later pass writes the same identity key with a fresh row id; the
	// original id and creation time must survive.
	second := newHostInstance("im-1", "host-a", "")
	second.Provenance = model.Provenance{WorkflowID: "wf-1", WorkflowName: "deploy"}
	require.NoError(t, s.Upsert(ctx, second))

	got, err := s.ListByInfraMapping(ctx, "app-1", "im-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, "wf-1", got[0].Provenance.WorkflowID)
}

func TestSameKeyDistinctMappings(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, newHostInstance("im-1", "host-a", "")))
	require.NoError(t, s.Upsert(ctx, newHostInstance("im-2", "host-a", "")))

	one, err := s.ListByInfraMapping(ctx, "app-1", "im-1")
	require.NoError(t, err)
	two, err := s.ListByInfraMapping(ctx, "app-1", "im-2")
	require.NoError(t, err)
	assert.Len(t, one, 1)
	assert.Len(t, two, 1)
}

func TestDeleteByIDs(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	a := newHostInstance("im-1", "host-a", "")
	b := newHostInstance("im-1", "host-b", "")
	require.NoError(t, s.Upsert(ctx, a))
	require.NoError(t, s.Upsert(ctx, b))

	require.NoError(t, s.DeleteByIDs(ctx, "app-1", []string{a.ID}))
	require.NoError(t, s.DeleteByIDs(ctx, "app-1", nil))

	got, err := s.ListByInfraMapping(ctx, "app-1", "im-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)
}

func TestDeleteByGroup(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, newHostInstance("im-1", "host-a", "asg-v1")))
	require.NoError(t, s.Upsert(ctx, newHostInstance("im-1", "host-b", "asg-v1")))
	require.NoError(t, s.Upsert(ctx, newHostInstance("im-1", "host-c", "asg-v2")))

	require.NoError(t, s.DeleteByGroup(ctx, "app-1", "im-1", "asg-v1"))

	got, err := s.ListByInfraMapping(ctx, "app-1", "im-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "asg-v2", got[0].ResourceGroup())
}

func TestDeploymentSummaryLedger(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	key := model.ASGDeploymentKey("asg-blue-v3")
	found, err := s.FindSummary(ctx, "app-1", "im-1", key)
	require.NoError(t, err)
	assert.Nil(t, found)

	summary := &model.DeploymentSummary{
		ID:             uuid.NewString(),
		AppID:          "app-1",
		InfraMappingID: "im-1",
		Key:            key,
		Info: model.DeploymentInfo{Kind: model.DeployInfoASG,
			ASG: &model.ASGDeploymentInfo{NewAutoScalingGroup: "asg-blue-v3"}},
		Provenance: model.Provenance{WorkflowID: "wf-1"},
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	inserted, err := s.InsertSummary(ctx, summary)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same key again, different row id: the constraint keeps the first row.
	dup := *summary
	dup.ID = uuid.NewString()
	inserted, err = s.InsertSummary(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	found, err = s.FindSummary(ctx, "app-1", "im-1", key)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, summary.ID, found.ID)
	assert.Equal(t, "asg-blue-v3", found.Info.ASG.NewAutoScalingGroup)
	assert.Equal(t, "wf-1", found.Provenance.WorkflowID)
}

func TestGenerations(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i, name := range []string{"orders__1", "orders__2", "orders__3"} {
		gen := &model.ContainerGeneration{
			ID:             uuid.NewString(),
			AppID:          "app-1",
			InfraMappingID: "im-1",
			Family:         "orders",
			Name:           name,
			LastVisited:    base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.UpsertGeneration(ctx, gen))
		ids = append(ids, gen.ID)
	}

	gens, err := s.ListGenerationsByFamily(ctx, "app-1", "im-1", "orders")
	require.NoError(t, err)
	require.Len(t, gens, 3)
	assert.Equal(t, "orders__3", gens[0].Name)
	assert.Equal(t, "orders__1", gens[2].Name)

	// Revisiting an old generation moves it to the front.
	require.NoError(t, s.UpsertGeneration(ctx, &model.ContainerGeneration{
		ID:             uuid.NewString(),
		AppID:          "app-1",
		InfraMappingID: "im-1",
		Family:         "orders",
		Name:           "orders__1",
		LastVisited:    base.Add(time.Hour),
	}))
	gens, err = s.ListGenerationsByFamily(ctx, "app-1", "im-1", "orders")
	require.NoError(t, err)
	require.Len(t, gens, 3)
	assert.Equal(t, "orders__1", gens[0].Name)

	require.NoError(t, s.DeleteGenerations(ctx, "app-1", ids[:1]))
	gens, err = s.ListGenerationsByFamily(ctx, "app-1", "im-1", "orders")
	require.NoError(t, err)
	assert.Len(t, gens, 2)
}

func TestMappings(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	missing, err := s.GetMapping(ctx, "app-1", "im-none")
	require.NoError(t, err)
	assert.Nil(t, missing)

	mapping := &model.InfraMapping{
		ID:          "im-1",
		AppID:       "app-1",
		EnvID:       "env-1",
		ServiceID:   "svc-1",
		Type:        model.MappingKubernetes,
		ClusterName: "prod",
		Namespace:   "default",
		ReleaseName: "orders",
	}
	require.NoError(t, s.PutMapping(ctx, mapping))

	got, err := s.GetMapping(ctx, "app-1", "im-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, mapping, got)

	mapping.Namespace = "orders"
	require.NoError(t, s.PutMapping(ctx, mapping))
	got, err = s.GetMapping(ctx, "app-1", "im-1")
	require.NoError(t, err)
	assert.Equal(t, "orders", got.Namespace)

	all, err := s.ListMappings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDashboardCounts(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	a := newHostInstance("im-1", "host-a", "")
	a.Provenance = model.Provenance{ArtifactName: "build-41"}
	b := newHostInstance("im-1", "host-b", "")
	b.Provenance = model.Provenance{ArtifactName: "build-41"}
	c := newHostInstance("im-1", "host-c", "")
	c.EnvID = "env-2"
	c.ServiceID = "svc-2"
	for _, inst := range []*model.Instance{a, b, c} {
		require.NoError(t, s.Upsert(ctx, inst))
	}

	byService, err := s.CountByService(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, []GroupCount{{Key: "svc-1", Count: 2}, {Key: "svc-2", Count: 1}}, byService)

	byEnv, err := s.CountByEnvironment(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, []GroupCount{{Key: "env-1", Count: 2}, {Key: "env-2", Count: 1}}, byEnv)

	byArtifact, err := s.CountByArtifact(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, []GroupCount{{Key: "", Count: 1}, {Key: "build-41", Count: 2}}, byArtifact)
}
