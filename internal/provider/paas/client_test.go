package paas

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsync/fleetsync/internal/provider"
)

const (
	appsBody  = `{"resources":[{"guid":"guid-1","name":"orders"}]}`
	statsBody = `{"resources":[
		{"index":0,"state":"RUNNING"},
		{"index":1,"state":"CRASHED"},
		{"index":2,"state":"RUNNING"}
	]}`
)

func TestApplicationInstances(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/v3/apps":
			assert.Equal(t, "orders", r.URL.Query().Get("names"))
			assert.Equal(t, "org-1", r.URL.Query().Get("organization_names"))
			assert.Equal(t, "space-1", r.URL.Query().Get("space_names"))
			_, _ = w.Write([]byte(appsBody))
		case "/v3/apps/guid-1/processes/web/stats":
			_, _ = w.Write([]byte(statsBody))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "test-token")
	instances, err := client.ApplicationInstances(context.Background(), "org-1", "space-1", "orders")
	require.NoError(t, err)

	// CRASHED index 1 is filtered out.
	require.Len(t, instances, 2)
	assert.Equal(t, AppInstance{
		ApplicationName: "orders",
		ApplicationGUID: "guid-1",
		Index:           "0",
		State:           "RUNNING",
	}, instances[0])
	assert.Equal(t, "2", instances[1].Index)
}

func TestApplicationInstancesNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "lookup returns 404",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
		{
			name: "lookup returns no resources",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"resources":[]}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(tt.handler)
			t.Cleanup(server.Close)

			client := NewClient(server.URL, "test-token")
			_, err := client.ApplicationInstances(context.Background(), "org-1", "space-1", "orders")
			assert.ErrorIs(t, err, provider.ErrNotFound)
		})
	}
}

func TestApplicationInstancesRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var lookups atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v3/apps":
			if lookups.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(appsBody))
		case "/v3/apps/guid-1/processes/web/stats":
			_, _ = w.Write([]byte(statsBody))
		}
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "test-token")
	instances, err := client.ApplicationInstances(context.Background(), "org-1", "space-1", "orders")
	require.NoError(t, err)
	assert.Len(t, instances, 2)
	assert.Equal(t, int32(2), lookups.Load())
}

func TestApplicationInstancesUnauthorizedIsFatal(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "bad-token")
	_, err := client.ApplicationInstances(context.Background(), "org-1", "space-1", "orders")
	require.Error(t, err)
	assert.ErrorContains(t, err, "status 401")
	assert.Equal(t, int32(1), calls.Load(), "client errors must not be retried")
}
