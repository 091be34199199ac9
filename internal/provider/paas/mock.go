package paas

import "context"

// MockQuerier is a mock application instance query client.
type MockQuerier struct {
	ApplicationInstancesFunc func(ctx context.Context, org, space, appName string) ([]AppInstance, error)
}

func (m *MockQuerier) ApplicationInstances(ctx context.Context, org, space, appName string) ([]AppInstance, error) {
	return m.ApplicationInstancesFunc(ctx, org, space, appName)
}
