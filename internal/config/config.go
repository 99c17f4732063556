/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config holds the operator configuration.
//
// Values are taken, in increasing order of precedence, from the defaults,
// an optional YAML file, KAFKA_CONNECT_OPERATOR_* environment variables and
// command line flags.
package config

import (
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	DefaultFullReconciliationInterval = 2 * time.Minute
	DefaultMaxConcurrentReconciles    = 4
	DefaultConnectRequestTimeout      = 30 * time.Second
	DefaultImage                      = "apache/kafka:4.1.1"
	DefaultMetricsBindAddress         = "0"
	DefaultHealthProbeBindAddress     = ":8081"
	DefaultLeaderElectionID           = "kafka-connect-operator.b1zzu.net"
)

// OperatorConfig is the configuration of the operator process.
type OperatorConfig struct {
	// Namespaces to watch, empty means all namespaces.
	Namespaces []string `json:"namespaces,omitempty"`

	// FullReconciliationInterval is the period of the full resync of every
	// resource. Zero disables it.
	FullReconciliationInterval metav1.Duration `json:"fullReconciliationInterval"`

	// MaxConcurrentReconciles bounds the reconciliations running at the same
	// time for each kind. A single resource is never reconciled concurrently.
	MaxConcurrentReconciles int `json:"maxConcurrentReconciles"`

	// ConnectRequestTimeout bounds every request to a Kafka Connect REST API.
	ConnectRequestTimeout metav1.Duration `json:"connectRequestTimeout"`

	// DefaultImage runs the workers of clusters that do not set spec.image.
	DefaultImage string `json:"defaultImage"`

	MetricsBindAddress     string `json:"metricsBindAddress"`
	HealthProbeBindAddress string `json:"healthProbeBindAddress"`
	LeaderElect            bool   `json:"leaderElect"`
	LeaderElectionID       string `json:"leaderElectionID"`
}

// Default returns the configuration used when nothing else is set.
func Default() OperatorConfig {
	c := OperatorConfig{}
	c.SetDefaults()
	return c
}

// SetDefaults fills the unset fields with their default value.
func (c *OperatorConfig) SetDefaults() {
	if c.FullReconciliationInterval.Duration == 0 {
		c.FullReconciliationInterval.Duration = DefaultFullReconciliationInterval
	}
	if c.MaxConcurrentReconciles == 0 {
		c.MaxConcurrentReconciles = DefaultMaxConcurrentReconciles
	}
	if c.ConnectRequestTimeout.Duration == 0 {
		c.ConnectRequestTimeout.Duration = DefaultConnectRequestTimeout
	}
	if c.DefaultImage == "" {
		c.DefaultImage = DefaultImage
	}
	if c.MetricsBindAddress == "" {
		c.MetricsBindAddress = DefaultMetricsBindAddress
	}
	if c.HealthProbeBindAddress == "" {
		c.HealthProbeBindAddress = DefaultHealthProbeBindAddress
	}
	if c.LeaderElectionID == "" {
		c.LeaderElectionID = DefaultLeaderElectionID
	}
}
