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

// Package restore drives restores through the backup orchestrator: it waits
// for agents, runs and monitors restore actions, records progress in a
// config map and spawns the background job that does all of it.
package restore

import (
	"context"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"

	"github.com/cozystack/bro-hooks/internal/bro"
)

// AgentStatus reports the agents registered with the orchestrator.
type AgentStatus interface {
	Status(ctx context.Context) (*bro.Status, error)
}

// ActionReader re-reads an action snapshot.
type ActionReader interface {
	GetAction(ctx context.Context, scope bro.Scope, id string) (*bro.Action, error)
}

// ActionLister lists the actions of a scope.
type ActionLister interface {
	Actions(ctx context.Context, scope bro.Scope) ([]bro.Action, error)
}

// Orchestrator is what the restore runner needs from the orchestrator.
type Orchestrator interface {
	AgentStatus
	ActionReader
	GetBackup(ctx context.Context, scope bro.Scope, name string) (*bro.Backup, error)
	Restore(ctx context.Context, scope bro.Scope, name string) (*bro.Action, error)
}

// Importer is what the restore trigger needs from the orchestrator.
type Importer interface {
	ActionReader
	Backups(ctx context.Context, scope bro.Scope) ([]bro.Backup, error)
	GetBackup(ctx context.Context, scope bro.Scope, name string) (*bro.Backup, error)
	ImportBackup(ctx context.Context, scope bro.Scope, uri, password string) (*bro.Action, error)
}

// ConfigMaps is the config map access of the restore state record.
type ConfigMaps interface {
	GetConfigMap(ctx context.Context, name string) (map[string]string, error)
	ListConfigMaps(ctx context.Context) ([]string, error)
	PatchConfigMap(ctx context.Context, name string, data map[string]string) error
}

// Cluster is what the restore trigger needs from the cluster.
type Cluster interface {
	GetConfigMapAnnotations(ctx context.Context, name string) (map[string]string, error)
	GetPod(ctx context.Context, name string) (*corev1.Pod, error)
	ListJobs(ctx context.Context) ([]string, error)
	CreateJob(ctx context.Context, job *batchv1.Job) error
	DeleteJob(ctx context.Context, name string) error
}
