/*
Copyright 2025 The Cozystack Authors.

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

// Package config reads the environment the hooks are started with.
package config

import (
	"github.com/spf13/viper"

	"github.com/cozystack/bro-hooks/internal/hook"
)

const (
	keyBROHost    = "bro_host"
	keyBROPort    = "bro_port"
	keyPullSecret = "pull_secret"
	keyNamespace  = "sa_namespace"
	keyHostname   = "hostname"
)

// Config is the environment derived configuration of a hook.
type Config struct {
	// BROHost and BROPort locate the orchestrator REST API.
	BROHost string
	BROPort int
	// PullSecret is an optional image pull secret for spawned jobs.
	PullSecret string
	// NamespaceFile overrides the service account namespace file.
	NamespaceFile string
	// Hostname is the name of the pod the hook runs in.
	Hostname string
}

// Load reads the configuration from the environment.
func Load() *Config {
	v := viper.New()
	_ = v.BindEnv(keyBROHost, "BRO_HOST")
	_ = v.BindEnv(keyBROPort, "BRO_PORT")
	_ = v.BindEnv(keyPullSecret, "PULL_SECRET")
	_ = v.BindEnv(keyNamespace, "SA_NAMESPACE")
	_ = v.BindEnv(keyHostname, "HOSTNAME")

	return &Config{
		BROHost:       v.GetString(keyBROHost),
		BROPort:       v.GetInt(keyBROPort),
		PullSecret:    v.GetString(keyPullSecret),
		NamespaceFile: v.GetString(keyNamespace),
		Hostname:      v.GetString(keyHostname),
	}
}

// RequireBRO fails when the orchestrator location is not configured.
func (c *Config) RequireBRO() error {
	if c.BROHost == "" {
		return hook.Errorf("BRO_HOST not set")
	}
	if c.BROPort <= 0 {
		return hook.Errorf("BRO_PORT not set")
	}
	return nil
}
