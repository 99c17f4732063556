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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"sigs.k8s.io/yaml"
)

// Environment variables read by ApplyEnv.
const (
	EnvNamespace                  = "KAFKA_CONNECT_OPERATOR_NAMESPACE"
	EnvFullReconciliationInterval = "KAFKA_CONNECT_OPERATOR_FULL_RECONCILIATION_INTERVAL_MS"
	EnvConnectTimeout             = "KAFKA_CONNECT_OPERATOR_CONNECT_TIMEOUT_MS"
	EnvDefaultImage               = "KAFKA_CONNECT_OPERATOR_DEFAULT_IMAGE"
)

// Load reads the configuration file at path on top of the defaults.
// An empty path returns the defaults.
func Load(path string) (OperatorConfig, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return OperatorConfig{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes a YAML (or JSON) configuration document on top of the defaults.
func Parse(data []byte) (OperatorConfig, error) {
	c := Default()
	err := yaml.UnmarshalStrict(data, &c)
	if err != nil {
		return OperatorConfig{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return c, nil
}

// ApplyEnv overrides the configuration with the environment variables that are set.
// A namespace value of "*" means all namespaces.
func (c *OperatorConfig) ApplyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvNamespace)); v != "" {
		c.Namespaces = ParseNamespaces(v)
	}

	if v := getenv(EnvFullReconciliationInterval); v != "" {
		d, err := parseMillis(EnvFullReconciliationInterval, v)
		if err != nil {
			return err
		}
		c.FullReconciliationInterval.Duration = d
	}

	if v := getenv(EnvConnectTimeout); v != "" {
		d, err := parseMillis(EnvConnectTimeout, v)
		if err != nil {
			return err
		}
		c.ConnectRequestTimeout.Duration = d
	}

	if v := getenv(EnvDefaultImage); v != "" {
		c.DefaultImage = v
	}

	return nil
}

// ParseNamespaces splits a comma separated namespace list.
func ParseNamespaces(v string) []string {
	namespaces := []string{}
	for _, ns := range strings.Split(v, ",") {
		ns = strings.TrimSpace(ns)
		if ns == "" {
			continue
		}
		if ns == "*" {
			return nil
		}
		namespaces = append(namespaces, ns)
	}
	return namespaces
}

func parseMillis(name, v string) (time.Duration, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
