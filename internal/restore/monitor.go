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
	"time"

	"k8s.io/utils/clock"

	"github.com/cozystack/bro-hooks/internal/bro"
	"github.com/cozystack/bro-hooks/internal/hook"
)

const (
	// ActionInterval is the poll interval of a general action wait.
	ActionInterval = 5 * time.Second
	// RestoreActionInterval is the poll interval of a restore action.
	RestoreActionInterval = 10 * time.Second
)

// Monitor polls actions until they leave the running state.
type Monitor struct {
	actions  ActionReader
	clock    clock.Clock
	interval time.Duration
}

// NewMonitor returns a monitor polling every interval.
func NewMonitor(actions ActionReader, clk clock.Clock, interval time.Duration) *Monitor {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Monitor{actions: actions, clock: clk, interval: interval}
}

// Await re-reads action until it is no longer running and returns the
// terminal snapshot. onRunning, if set, sees every running snapshot before
// the monitor sleeps.
func (m *Monitor) Await(ctx context.Context, action *bro.Action, onRunning func(context.Context, *bro.Action) error) (*bro.Action, error) {
	log := hook.Logger(ctx)
	log.Info("Waiting for action to complete", "action", action.ID, "name", action.Name)
	for action.Running() {
		log.Info("Action in progress", "action", action.ID, "name", action.Name,
			"state", action.State, "progress", Progress(action), "info", action.ProgressInfo)
		if onRunning != nil {
			if err := onRunning(ctx, action); err != nil {
				return nil, err
			}
		}
		if err := hook.Sleep(ctx, m.clock, m.interval); err != nil {
			return nil, err
		}
		next, err := m.actions.GetAction(ctx, action.Scope, action.ID)
		if err != nil {
			return nil, err
		}
		action = next
	}
	LogAction(ctx, action)
	return action, nil
}

// WaitForAction waits for action and fails unless it succeeded.
func (m *Monitor) WaitForAction(ctx context.Context, action *bro.Action) error {
	final, err := m.Await(ctx, action, nil)
	if err != nil {
		return err
	}
	if !final.Succeeded() {
		return hook.Errorf("Action %s failed with result %s", final.Name, final.Result)
	}
	return nil
}

// LogAction logs the outcome of an action.
func LogAction(ctx context.Context, action *bro.Action) {
	hook.Logger(ctx).Info("Action finished",
		"action", action.ID,
		"name", action.Name,
		"state", action.State,
		"progress", Progress(action),
		"result", action.Result,
		"additionalInfo", CleanInfo(action.AdditionalInfo))
}

// Progress renders the progress fraction of action as a percentage.
func Progress(action *bro.Action) string {
	return fmt.Sprintf("%.0f%%", action.Progress*100)
}
