package kube

import "context"

// MockPodLister is a mock pod query client.
type MockPodLister struct {
	ListPodsFunc func(ctx context.Context, namespace string, selector map[string]string) ([]PodDescriptor, error)
}

func (m *MockPodLister) ListPods(ctx context.Context, namespace string, selector map[string]string) ([]PodDescriptor, error) {
	return m.ListPodsFunc(ctx, namespace, selector)
}
