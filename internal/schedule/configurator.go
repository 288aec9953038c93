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

// Package schedule applies scheduling and retention settings to the
// backup orchestrator.
package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/utils/clock"
	"k8s.io/utils/ptr"

	"github.com/cozystack/bro-hooks/internal/bro"
	"github.com/cozystack/bro-hooks/internal/hook"
	"github.com/cozystack/bro-hooks/internal/restore"
)

const (
	// DefaultPrefix names scheduled backups when no prefix is given.
	DefaultPrefix = "SCHEDULED_BACKUP"
	// DefaultRetentionLimit is the number of manual backups kept by default.
	DefaultRetentionLimit = 2

	// ExportURIKey and ExportCredentialsKey are the keys of the export secret.
	ExportURIKey         = "externalStorageURI"
	ExportCredentialsKey = "externalStorageCredentials"
)

// Orchestrator is what the configurator needs from the orchestrator.
type Orchestrator interface {
	restore.AgentStatus
	restore.ActionReader
	GetScheduler(ctx context.Context, scope bro.Scope) (*bro.Scheduler, error)
	UpdateScheduler(ctx context.Context, scope bro.Scope, update bro.SchedulerUpdate) error
	Intervals(ctx context.Context, scope bro.Scope) ([]bro.Interval, error)
	AddInterval(ctx context.Context, scope bro.Scope, interval bro.Interval) (*bro.Interval, error)
	DeleteInterval(ctx context.Context, scope bro.Scope, id string) error
	GetRetention(ctx context.Context, scope bro.Scope) (*bro.Retention, error)
	ApplyRetention(ctx context.Context, scope bro.Scope, retention bro.Retention) (*bro.Action, error)
}

// Secrets reads and deletes the export secret.
type Secrets interface {
	GetSecret(ctx context.Context, name string) (map[string][]byte, error)
	DeleteSecret(ctx context.Context, name string) error
}

// Configurator configures the scheduler and retention of the DEFAULT scope.
type Configurator struct {
	orchestrator Orchestrator
	secrets      Secrets
	clock        clock.Clock
	gate         *restore.Gate
	monitor      *restore.Monitor
	scope        bro.Scope
}

// NewConfigurator wires a configurator.
func NewConfigurator(orchestrator Orchestrator, secrets Secrets, clk clock.Clock) *Configurator {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Configurator{
		orchestrator: orchestrator,
		secrets:      secrets,
		clock:        clk,
		gate:         restore.NewGate(orchestrator, clk, restore.ReadyInterval),
		monitor:      restore.NewMonitor(orchestrator, clk, restore.ActionInterval),
		scope:        bro.ScopeDefault,
	}
}

// values is the scheduling blob. The chart renders it as JSON; anything
// else counts as no values.
type values struct {
	BackupPrefix *string                  `json:"backupPrefix"`
	Schedules    []map[string]interface{} `json:"schedules"`
}

func parseValues(blob string) (*values, error) {
	if strings.TrimSpace(blob) == "" {
		return nil, fmt.Errorf("no scheduling values")
	}
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("no scheduling values")
	}
	v := &values{}
	if err := json.Unmarshal([]byte(blob), v); err != nil {
		return nil, err
	}
	return v, nil
}

// ConfigureScheduling applies the scheduling blob. An absent or unparsable
// blob disables scheduling and removes every interval. Otherwise the
// intervals are replaced by the ones in the blob, and the export settings
// are taken from secretName when it is complete.
func (c *Configurator) ConfigureScheduling(ctx context.Context, blob, secretName string) error {
	log := hook.Logger(ctx)
	if err := c.gate.WaitReady(ctx); err != nil {
		return err
	}
	current, err := c.orchestrator.GetScheduler(ctx, c.scope)
	if err != nil {
		return err
	}
	log.V(1).Info("Current scheduler", "enabled", current.Enabled, "prefix", current.Prefix,
		"autoExport", current.AutoExport, "next", current.NextScheduledTime)

	v, err := parseValues(blob)
	if err != nil {
		log.V(1).Info("Scheduling values not usable", "error", err.Error())
		log.Info("Disabling backup scheduling")
		if err := c.orchestrator.UpdateScheduler(ctx, c.scope, bro.SchedulerUpdate{Enabled: ptr.To(false)}); err != nil {
			return err
		}
		return c.DeleteIntervals(ctx)
	}
	log.Info("Enabling backup scheduling")

	update := bro.SchedulerUpdate{Enabled: ptr.To(true), Prefix: ptr.To(DefaultPrefix)}
	uri, password, err := c.readExport(ctx, secretName)
	if err != nil {
		return err
	}
	if uri == "" && password == "" {
		log.Warning("Export information not changed")
	} else {
		update.AutoExport = ptr.To(true)
		update.ExportURI = uri
		update.ExportPassword = password
	}

	if v.BackupPrefix != nil {
		update.Prefix = v.BackupPrefix
	} else {
		log.Warning("No backup prefix provided, using the default", "prefix", DefaultPrefix)
	}

	if err := c.orchestrator.UpdateScheduler(ctx, c.scope, update); err != nil {
		return err
	}
	if err := c.DeleteIntervals(ctx); err != nil {
		return err
	}
	if len(v.Schedules) == 0 {
		log.Warning("No schedules to create")
		return nil
	}
	return c.addIntervals(ctx, v.Schedules)
}

// readExport returns the export location from the named secret and
// deletes it. Secrets that cannot be read or are incomplete yield empty
// values.
func (c *Configurator) readExport(ctx context.Context, name string) (string, string, error) {
	log := hook.Logger(ctx)
	if name == "" {
		return "", "", nil
	}
	data, err := c.secrets.GetSecret(ctx, name)
	if err != nil {
		log.Warning("Could not read export secret", "secret", name, "error", err.Error())
		return "", "", nil
	}
	uri, password := string(data[ExportURIKey]), string(data[ExportCredentialsKey])
	if uri == "" || password == "" {
		return "", "", nil
	}
	log.Info("Deleting consumed export secret", "secret", name)
	if err := c.secrets.DeleteSecret(ctx, name); err != nil && !apierrors.IsNotFound(err) {
		return "", "", fmt.Errorf("failed to delete secret %s: %w", name, err)
	}
	log.Info("Secret deleted", "secret", name)
	return uri, password, nil
}

func (c *Configurator) addIntervals(ctx context.Context, schedules []map[string]interface{}) error {
	log := hook.Logger(ctx)
	for _, spec := range schedules {
		interval, ok := c.intervalFrom(ctx, spec)
		if !ok {
			continue
		}
		created, err := c.orchestrator.AddInterval(ctx, c.scope, interval)
		if err != nil {
			return err
		}
		log.Info("Added backup interval", "id", created.ID,
			"weeks", created.Weeks, "days", created.Days, "hours", created.Hours, "minutes", created.Minutes,
			"nextRun", NextRun(*created, c.clock.Now()).Format(TimeLayout))
	}
	return nil
}

// intervalFrom validates one schedule entry. Entries with a bad or missing
// every are skipped. Bad start or stop times are dropped.
func (c *Configurator) intervalFrom(ctx context.Context, spec map[string]interface{}) (bro.Interval, bool) {
	log := hook.Logger(ctx)
	every, _ := spec["every"].(string)
	interval, err := ParseEvery(every)
	if err != nil {
		log.Warning("Skipping schedule", "every", spec["every"], "error", err.Error())
		return bro.Interval{}, false
	}
	if Period(interval) == 0 {
		log.Warning("Skipping schedule with a zero period", "every", every)
		return bro.Interval{}, false
	}
	interval.StartTime = timeField(ctx, spec, "start")
	interval.StopTime = timeField(ctx, spec, "stop")
	return interval, true
}

func timeField(ctx context.Context, spec map[string]interface{}, key string) string {
	raw, ok := spec[key]
	if !ok || raw == nil {
		return ""
	}
	value, _ := raw.(string)
	if !ValidTime(value) {
		hook.Logger(ctx).Warning(fmt.Sprintf("Invalid schedule '%s' value, format should be YYYY-mm-ddThh:mm:ss", key), "value", raw)
		return ""
	}
	return value
}

// DeleteIntervals removes every interval of the scope.
func (c *Configurator) DeleteIntervals(ctx context.Context) error {
	if err := c.gate.WaitReady(ctx); err != nil {
		return err
	}
	intervals, err := c.orchestrator.Intervals(ctx, c.scope)
	if err != nil {
		return err
	}
	for _, interval := range intervals {
		if err := c.orchestrator.DeleteInterval(ctx, c.scope, interval.ID); err != nil {
			return err
		}
		hook.Logger(ctx).V(1).Info("Deleted backup interval", "id", interval.ID)
	}
	return nil
}

// EnableScheduling only switches the scheduler on or off.
func (c *Configurator) EnableScheduling(ctx context.Context, enabled bool) error {
	if err := c.gate.WaitReady(ctx); err != nil {
		return err
	}
	hook.Logger(ctx).Info("Setting backup scheduling", "enabled", enabled)
	return c.orchestrator.UpdateScheduler(ctx, c.scope, bro.SchedulerUpdate{Enabled: ptr.To(enabled)})
}
