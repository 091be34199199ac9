// Package config defines the engine configuration: where the inventory
// database lives, how often the scheduler reconciles, the retention
// limit for container generations, and the credentials and endpoints of
// each provider family.
package config

import (
	"time"
)

// Config holds the engine configuration.
type Config struct {
	// DatabasePath is the SQLite inventory database file.
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	// MetricsAddr is the listen address of the metrics endpoint.
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"`

	// SyncInterval is how often every known mapping is reconciled.
	SyncInterval time.Duration `mapstructure:"sync_interval" yaml:"sync_interval"`

	// MaxGenerations bounds retained container generations per family.
	MaxGenerations int `mapstructure:"max_generations" yaml:"max_generations"`

	// QueueSize bounds the in-process event queue buffer.
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`

	AWS  AWSConfig  `mapstructure:"aws" yaml:"aws"`
	Kube KubeConfig `mapstructure:"kube" yaml:"kube"`
	PaaS PaaSConfig `mapstructure:"paas" yaml:"paas"`
}

// AWSConfig selects the AWS region. Credentials come from the default
// chain (environment, shared config, instance role).
type AWSConfig struct {
	Region string `mapstructure:"region" yaml:"region"`
}

// KubeConfig locates the cluster credentials. An empty path means
// in-cluster configuration.
type KubeConfig struct {
	KubeconfigPath string `mapstructure:"kubeconfig_path" yaml:"kubeconfig_path"`
}

// PaaSConfig points at the platform controller API.
type PaaSConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Token    string `mapstructure:"token" yaml:"token"`
}

// Enabled reports whether a platform controller is configured at all; an
// engine tracking only AWS and Kubernetes workloads leaves it empty.
func (p PaaSConfig) Enabled() bool {
	return p.Endpoint != ""
}
