package sync

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"github.com/fleetsync/fleetsync/internal/keylock"
	"github.com/fleetsync/fleetsync/internal/model"
	"github.com/fleetsync/fleetsync/internal/provider/aws"
	"github.com/fleetsync/fleetsync/internal/provider/kube"
	"github.com/fleetsync/fleetsync/internal/provider/paas"
	"github.com/fleetsync/fleetsync/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func putMapping(t *testing.T, s store.Store, mappingType model.MappingType) *model.InfraMapping {
	t.Helper()
	mapping := &model.InfraMapping{
		ID:          "im-1",
		AppID:       "app-1",
		EnvID:       "env-1",
		ServiceID:   "svc-1",
		Type:        mappingType,
		Region:      "us-east-1",
		ClusterName: "prod",
		Namespace:   "default",
		ReleaseName: "orders",
	}
	require.NoError(t, s.PutMapping(context.Background(), mapping))
	return mapping
}

func host(name string) aws.HostDescriptor {
	return aws.HostDescriptor{InstanceID: "i-" + name, PrivateDNSName: name}
}

// stubHosts implements HostQuerier with overridable behavior per method.
type stubHosts struct {
	running    func(ctx context.Context, ids []string) ([]aws.HostDescriptor, error)
	group      func(ctx context.Context, name string) ([]aws.HostDescriptor, error)
	deployment func(ctx context.Context, id string) ([]aws.HostDescriptor, error)
}

func (s *stubHosts) RunningInstances(ctx context.Context, ids []string) ([]aws.HostDescriptor, error) {
	return s.running(ctx, ids)
}

func (s *stubHosts) GroupInstances(ctx context.Context, name string) ([]aws.HostDescriptor, error) {
	return s.group(ctx, name)
}

func (s *stubHosts) DeploymentInstances(ctx context.Context, id string) ([]aws.HostDescriptor, error) {
	return s.deployment(ctx, id)
}

type stubPods struct {
	list func(ctx context.Context, namespace string, selector map[string]string) ([]kube.PodDescriptor, error)
}

func (s *stubPods) ListPods(ctx context.Context, namespace string, selector map[string]string) ([]kube.PodDescriptor, error) {
	return s.list(ctx, namespace, selector)
}

type stubTasks struct {
	list func(ctx context.Context, clusterName, serviceName string) ([]aws.TaskDescriptor, error)
}

func (s *stubTasks) ServiceTasks(ctx context.Context, clusterName, serviceName string) ([]aws.TaskDescriptor, error) {
	return s.list(ctx, clusterName, serviceName)
}

type stubApps struct {
	list func(ctx context.Context, org, space, appName string) ([]paas.AppInstance, error)
}

func (s *stubApps) ApplicationInstances(ctx context.Context, org, space, appName string) ([]paas.AppInstance, error) {
	return s.list(ctx, org, space, appName)
}

type recordingTrigger struct {
	fired int
}

func (r *recordingTrigger) InstancesDiscovered(context.Context, *model.InfraMapping) {
	r.fired++
}

func keyValues(instances []model.Instance) []string {
	values := make([]string, 0, len(instances))
	for _, inst := range instances {
		values = append(values, inst.Key.Value)
	}
	return values
}

func testLedger(s store.Store, locks *keylock.KeyedMutex) *Ledger {
	return NewLedger(s, locks, time.Now)
}

var testLog = logr.Discard()
