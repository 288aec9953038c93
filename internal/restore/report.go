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

// ReportOrchestrator is what the restore report needs from the orchestrator.
type ReportOrchestrator interface {
	ActionReader
	ActionLister
}

// Reporter reports on the restore action recorded in a restore state record.
type Reporter struct {
	orchestrator ReportOrchestrator
	configMaps   ConfigMaps
	monitor      *Monitor
}

// NewReporter returns a reporter that waits on running actions with the
// general action interval.
func NewReporter(orchestrator ReportOrchestrator, configMaps ConfigMaps, clk clock.Clock) *Reporter {
	return &Reporter{
		orchestrator: orchestrator,
		configMaps:   configMaps,
		monitor:      NewMonitor(orchestrator, clk, ActionInterval),
	}
}

// Report blocks until the action recorded in configMap finishes, and fails
// unless it succeeded. Nothing is done when no action is recorded or the
// orchestrator no longer knows it.
func (r *Reporter) Report(ctx context.Context, configMap string, scope bro.Scope) error {
	log := hook.Logger(ctx)
	log.Info("Looking for an action id", "configmap", configMap)

	data, err := r.configMaps.GetConfigMap(ctx, configMap)
	if err != nil {
		return err
	}
	id := data[KeyActionID]
	if id == "" {
		log.Info("No action id set, skipping")
		return nil
	}

	log.Info("Looking for BRO action", "action", id, "scope", scope)
	actions, err := r.orchestrator.Actions(ctx, scope)
	if err != nil {
		return err
	}
	var matches []bro.Action
	for _, a := range actions {
		if a.ID == id {
			matches = append(matches, a)
		}
	}
	switch len(matches) {
	case 0:
		log.Info("No action with this id found in BRO, skipping", "action", id)
		return nil
	case 1:
	default:
		return hook.Errorf("More than one action with id %s found", id)
	}

	action := &matches[0]
	if action.Running() {
		log.Info("Action is still running", "action", id)
		return r.monitor.WaitForAction(ctx, action)
	}

	log.Info("Restore action",
		"name", action.Name,
		"scope", action.Scope,
		"state", action.State,
		"result", action.Result,
		"startTime", action.StartTime,
		"completed", action.CompletionTime,
		"additionalInfo", CleanInfo(action.AdditionalInfo))
	if !action.Succeeded() {
		return hook.Errorf("Action %s/%s failed with result %s", action.ID, action.Name, action.Result)
	}
	return nil
}
