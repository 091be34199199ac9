// Package paas is a minimal client for the platform controller API that
// reports PCF-style application instances.
package paas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fleetsync/fleetsync/internal/provider"
	"github.com/fleetsync/fleetsync/internal/retry"
)

// AppInstance describes one application instance as reported by the
// platform controller.
type AppInstance struct {
	ApplicationName string
	ApplicationGUID string
	Index           string
	State           string
}

// Client is a minimal platform controller API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a platform controller API client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type appResult struct {
	GUID string `json:"guid"`
	Name string `json:"name"`
}

type appListResponse struct {
	Resources []appResult `json:"resources"`
}

type statsEntry struct {
	Index int    `json:"index"`
	State string `json:"state"`
}

type statsResponse struct {
	Resources []statsEntry `json:"resources"`
}

// ApplicationInstances returns the running instances of the named
// application within one organization/space. A missing application yields
// provider.ErrNotFound; transient HTTP failures are retried a few times
// before surfacing.
func (c *Client) ApplicationInstances(ctx context.Context, org, space, appName string) ([]AppInstance, error) {
	query := url.Values{}
	query.Set("names", appName)
	query.Set("organization_names", org)
	query.Set("space_names", space)

	var apps appListResponse
	if err := c.get(ctx, "/v3/apps?"+query.Encode(), &apps); err != nil {
		return nil, fmt.Errorf("look up application %s: %w", appName, err)
	}
	if len(apps.Resources) == 0 {
		return nil, fmt.Errorf("application %s: %w", appName, provider.ErrNotFound)
	}
	app := apps.Resources[0]

	var stats statsResponse
	if err := c.get(ctx, fmt.Sprintf("/v3/apps/%s/processes/web/stats", app.GUID), &stats); err != nil {
		return nil, fmt.Errorf("fetch instance stats for %s: %w", appName, err)
	}

	var instances []AppInstance
	for _, entry := range stats.Resources {
		if entry.State != "RUNNING" {
			continue
		}
		instances = append(instances, AppInstance{
			ApplicationName: app.Name,
			ApplicationGUID: app.GUID,
			Index:           fmt.Sprintf("%d", entry.Index),
			State:           entry.State,
		})
	}
	return instances, nil
}

// get performs an authenticated GET and decodes the JSON response into
// out. Server-side failures (5xx) retry with backoff; 404 is not-found
// and other client errors are fatal.
func (c *Client) get(ctx context.Context, path string, out any) error {
	return retry.WithExponentialBackoff(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return retry.Fatal(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request %s: %w", path, err)
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return retry.Fatal(provider.ErrNotFound)
		case resp.StatusCode >= 500:
			return fmt.Errorf("request %s: status %d", path, resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return retry.Fatal(fmt.Errorf("request %s: status %d: %s", path, resp.StatusCode, body))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return retry.Fatal(fmt.Errorf("decode response from %s: %w", path, err))
		}
		return nil
	}, retry.WithMaxRetries(2), retry.WithInitialDelay(200*time.Millisecond))
}
