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

	"k8s.io/utils/clock"

	"github.com/cozystack/bro-hooks/internal/bro"
	"github.com/cozystack/bro-hooks/internal/hook"
)

// ManagerConfigOrchestrator is what the backup manager configuration
// restore needs from the orchestrator.
type ManagerConfigOrchestrator interface {
	ActionReader
	Backups(ctx context.Context, scope bro.Scope) ([]bro.Backup, error)
	Restore(ctx context.Context, scope bro.Scope, name string) (*bro.Action, error)
}

// RestoreManagerConfig restores the backup manager configuration of scope
// from backupName. An archive name stands for the first backup of scope.
// The ROLLBACK scope has no configuration to restore and is skipped.
func RestoreManagerConfig(ctx context.Context, orchestrator ManagerConfigOrchestrator, clk clock.Clock, backupName string, scope bro.Scope) error {
	log := hook.Logger(ctx)
	if scope == bro.ScopeRollback {
		log.Info("Backup manager configuration restore skipped for ROLLBACK scope")
		return nil
	}

	if isArchive(backupName) {
		backups, err := orchestrator.Backups(ctx, scope)
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			return hook.Errorf("No backup found in %s for %s", scope, backupName)
		}
		backupName = backups[0].Name
	}

	log.Info("Restoring backup manager config", "backup", backupName, "scope", bro.BackupManagerConfigScope(scope))
	action, err := orchestrator.Restore(ctx, bro.BackupManagerConfigScope(scope), backupName)
	if err != nil {
		return err
	}
	if err := NewMonitor(orchestrator, clk, ActionInterval).WaitForAction(ctx, action); err != nil {
		return err
	}
	log.Info("Backup manager config restore complete")
	return nil
}
