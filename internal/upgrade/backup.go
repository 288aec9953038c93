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

package upgrade

import (
	"context"

	"k8s.io/utils/clock"

	"github.com/cozystack/bro-hooks/internal/bro"
	"github.com/cozystack/bro-hooks/internal/hook"
	"github.com/cozystack/bro-hooks/internal/restore"
)

// Orchestrator is what the rollback backup needs from the orchestrator.
type Orchestrator interface {
	restore.AgentStatus
	restore.ActionReader
	CreateBackup(ctx context.Context, scope bro.Scope, name string) (*bro.Action, error)
}

// Pods lists the agents that take part in rollback backups.
type Pods interface {
	RollbackAgents(ctx context.Context) ([]string, error)
}

// PreUpgradeBackup waits for the orchestrator and every rollback agent,
// then creates backup name in the ROLLBACK scope and waits for it.
func PreUpgradeBackup(ctx context.Context, orchestrator Orchestrator, pods Pods, clk clock.Clock, name string) error {
	log := hook.Logger(ctx)
	if err := restore.NewGate(orchestrator, clk, restore.ReadyInterval).WaitReady(ctx); err != nil {
		return err
	}
	gate := restore.NewGate(orchestrator, clk, restore.RollbackAgentsInterval)
	if err := gate.WaitForAgentsFunc(ctx, pods.RollbackAgents); err != nil {
		return err
	}
	log.Info("All agents of scope ROLLBACK are registered")

	action, err := orchestrator.CreateBackup(ctx, bro.ScopeRollback, name)
	if err != nil {
		return err
	}
	return restore.NewMonitor(orchestrator, clk, restore.ActionInterval).WaitForAction(ctx, action)
}
