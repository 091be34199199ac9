package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleetsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
aws:
  region: us-east-1
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultDatabasePath, cfg.DatabasePath)
	assert.Equal(t, DefaultMetricsAddr, cfg.MetricsAddr)
	assert.Equal(t, DefaultSyncInterval, cfg.SyncInterval)
	assert.Equal(t, DefaultMaxGenerations, cfg.MaxGenerations)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.False(t, cfg.PaaS.Enabled())
}

func TestLoadFileFullConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
database_path: /var/lib/fleetsync/inventory.db
metrics_addr: ":9100"
sync_interval: 30s
max_generations: 5
queue_size: 64
aws:
  region: eu-central-1
kube:
  kubeconfig_path: /etc/fleetsync/kubeconfig
paas:
  endpoint: https://api.pcf.example.com
  token: secret
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/fleetsync/inventory.db", cfg.DatabasePath)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
	assert.Equal(t, 5, cfg.MaxGenerations)
	assert.Equal(t, 64, cfg.QueueSize)
	assert.Equal(t, "/etc/fleetsync/kubeconfig", cfg.Kube.KubeconfigPath)
	assert.True(t, cfg.PaaS.Enabled())
	assert.Equal(t, "secret", cfg.PaaS.Token)
}

func TestLoadFileMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoadFileInvalidYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "database_path: [unclosed")
	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "failed to unmarshal yaml")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults with region are valid",
			mutate: func(c *Config) { c.AWS.Region = "us-east-1" },
		},
		{
			name: "missing database path",
			mutate: func(c *Config) {
				c.AWS.Region = "us-east-1"
				c.DatabasePath = ""
			},
			wantErr: "database_path is required",
		},
		{
			name: "non-positive sync interval",
			mutate: func(c *Config) {
				c.AWS.Region = "us-east-1"
				c.SyncInterval = 0
			},
			wantErr: "sync_interval must be positive",
		},
		{
			name: "non-positive max generations",
			mutate: func(c *Config) {
				c.AWS.Region = "us-east-1"
				c.MaxGenerations = -1
			},
			wantErr: "max_generations must be positive",
		},
		{
			name: "negative queue size",
			mutate: func(c *Config) {
				c.AWS.Region = "us-east-1"
				c.QueueSize = -1
			},
			wantErr: "queue_size must not be negative",
		},
		{
			name:    "missing region",
			mutate:  func(c *Config) {},
			wantErr: "aws.region is required",
		},
		{
			name: "paas endpoint without token",
			mutate: func(c *Config) {
				c.AWS.Region = "us-east-1"
				c.PaaS.Endpoint = "https://api.pcf.example.com"
			},
			wantErr: "paas.token is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
