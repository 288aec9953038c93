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

package restore

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/clock"

	"github.com/cozystack/bro-hooks/internal/bro"
	"github.com/cozystack/bro-hooks/internal/hook"
)

// State is a state of the restore runner.
type State string

const (
	StateIdle             State = ""
	StateWaitingForAgents State = "WAITING_FOR_AGENTS"
	StateRestoreRunning   State = "RESTORE_RUNNING"
	StateRestoreSucceeded State = "RESTORE_SUCCEEDED"
	StateRestoreFailed    State = "RESTORE_FAILED"
)

// Runner restores a backup, repeating the agent wait and the restore for
// as long as the orchestrator reports missing agents.
type Runner struct {
	orchestrator Orchestrator
	configMaps   ConfigMaps
	gate         *Gate
	monitor      *Monitor
	backoff      wait.Backoff
	state        State
}

// NewRunner wires a runner. backoff bounds the retries of record writes.
func NewRunner(orchestrator Orchestrator, configMaps ConfigMaps, clk clock.Clock, backoff wait.Backoff) *Runner {
	return &Runner{
		orchestrator: orchestrator,
		configMaps:   configMaps,
		gate:         NewGate(orchestrator, clk, RestoreAgentsInterval),
		monitor:      NewMonitor(orchestrator, clk, RestoreActionInterval),
		backoff:      backoff,
	}
}

// State returns the state the runner is in.
func (r *Runner) State() State {
	return r.state
}

func (r *Runner) transition(ctx context.Context, to State) {
	hook.Logger(ctx).V(1).Info("Restore state changed", "from", r.state, "to", to)
	r.state = to
}

// Run restores backupName of scope and records its progress in config map
// configMap.
func (r *Runner) Run(ctx context.Context, backupName string, scope bro.Scope, configMap string) error {
	err := r.run(ctx, backupName, scope, NewRecord(r.configMaps, configMap, r.backoff))
	if err != nil {
		r.transition(ctx, StateRestoreFailed)
		return err
	}
	r.transition(ctx, StateRestoreSucceeded)
	return nil
}

func (r *Runner) run(ctx context.Context, backupName string, scope bro.Scope, record *Record) error {
	log := hook.Logger(ctx).WithValues("backup", backupName, "scope", scope)

	backup, err := r.orchestrator.GetBackup(ctx, scope, backupName)
	if err != nil {
		return err
	}
	required := backup.RequiredAgents()

	for {
		r.transition(ctx, StateWaitingForAgents)
		if err := r.gate.WaitForAgents(ctx, required); err != nil {
			return err
		}

		r.transition(ctx, StateRestoreRunning)
		log.Info("Executing BRO restore")
		waiting, err := r.execute(ctx, backupName, scope, record)
		if err != nil {
			return err
		}
		if !waiting {
			break
		}
		log.Info("Restore failed because of missing agents")
	}

	log.Info("Setting restore state", "key", KeyState, "value", StateFinished)
	if err := record.Set(ctx, KeyState, StateFinished); err != nil {
		return fmt.Errorf("failed to record restore state: %w", err)
	}
	log.Info("Restore complete")
	return nil
}

// execute runs one restore action and reports whether it ended waiting
// for agents.
func (r *Runner) execute(ctx context.Context, backupName string, scope bro.Scope, record *Record) (bool, error) {
	action, err := r.orchestrator.Restore(ctx, scope, backupName)
	if err != nil {
		return false, err
	}

	recorded := false
	recordID := func(ctx context.Context, a *bro.Action) error {
		if recorded {
			return nil
		}
		exists, err := record.Exists(ctx)
		if err != nil || !exists {
			return err
		}
		if err := record.Set(ctx, KeyActionID, a.ID); err != nil {
			return fmt.Errorf("failed to record restore action id: %w", err)
		}
		recorded = true
		return nil
	}

	final, err := r.monitor.Await(ctx, action, recordID)
	if err != nil {
		return false, err
	}
	if err := recordID(ctx, final); err != nil {
		return false, err
	}

	outcome, err := Classify(final)
	switch outcome {
	case Waiting:
		agents, _ := MissingAgents(final)
		hook.Logger(ctx).Info("Restore is waiting for agents", "agents", agents)
		return true, nil
	case Failed:
		return false, err
	}
	return false, nil
}
