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

package bro

// Scope names a backup manager inside the orchestrator.
type Scope string

const (
	// ScopeDefault is the stable production backup domain.
	ScopeDefault Scope = "DEFAULT"
	// ScopeRollback holds the safety backups taken before an upgrade.
	ScopeRollback Scope = "ROLLBACK"
)

// BackupManagerConfigScope returns the scope holding the backup manager
// configuration of s, e.g. DEFAULT-bro.
func BackupManagerConfigScope(s Scope) Scope {
	return s + "-bro"
}

// ApplicationInfoAgent is the pseudo agent the orchestrator adds to every
// backup to carry the product version. It never registers.
const ApplicationInfoAgent = "APPLICATION_INFO"

// Action states and results as reported by the orchestrator.
const (
	ActionStateRunning  = "RUNNING"
	ActionStateFinished = "FINISHED"

	ActionResultSuccess      = "SUCCESS"
	ActionResultFailure      = "FAILURE"
	ActionResultNotAvailable = "NOT_AVAILABLE"
)

// Action names used when submitting work.
const (
	ActionCreateBackup = "CREATE_BACKUP"
	ActionRestore      = "RESTORE"
	ActionImport       = "IMPORT"
	ActionHousekeeping = "HOUSEKEEPING"
)

// Action is one snapshot of an asynchronous orchestrator operation.
// Re-read it with GetAction to observe progress.
type Action struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Scope          Scope   `json:"-"`
	State          string  `json:"state"`
	Result         string  `json:"result"`
	Progress       float64 `json:"progressPercentage"`
	ProgressInfo   string  `json:"progressInfo,omitempty"`
	AdditionalInfo string  `json:"additionalInfo,omitempty"`
	StartTime      string  `json:"startTime,omitempty"`
	CompletionTime string  `json:"completionTime,omitempty"`
}

// Running reports whether the action has not reached a terminal state.
func (a *Action) Running() bool {
	return a.State == ActionStateRunning
}

// Succeeded reports whether the action finished with SUCCESS.
func (a *Action) Succeeded() bool {
	return a.Result == ActionResultSuccess
}

// Service is one agent's contribution to a backup.
type Service struct {
	AgentID string `json:"agentId"`
	Version string `json:"revision"`
	Name    string `json:"productName,omitempty"`
}

// Backup describes a backup stored by the orchestrator.
type Backup struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Scope        Scope     `json:"-"`
	Status       string    `json:"status,omitempty"`
	CreationTime string    `json:"creationTime,omitempty"`
	Services     []Service `json:"softwareVersions"`
}

// RequiredAgents returns the agents that must be registered before the
// backup can be restored.
func (b *Backup) RequiredAgents() []string {
	agents := make([]string, 0, len(b.Services))
	for _, svc := range b.Services {
		if svc.AgentID == ApplicationInfoAgent {
			continue
		}
		agents = append(agents, svc.AgentID)
	}
	return agents
}

// ProductVersion returns the version carried by the APPLICATION_INFO
// service, and false when the backup has none.
func (b *Backup) ProductVersion() (string, bool) {
	for _, svc := range b.Services {
		if svc.AgentID == ApplicationInfoAgent {
			return svc.Version, true
		}
	}
	return "", false
}

// Status is the orchestrator health report.
type Status struct {
	Health       string   `json:"status"`
	Availability string   `json:"availability"`
	Agents       []string `json:"registeredAgents"`
}

// HasAgents reports whether every agent in required is registered.
func (s *Status) HasAgents(required []string) bool {
	registered := make(map[string]struct{}, len(s.Agents))
	for _, a := range s.Agents {
		registered[a] = struct{}{}
	}
	for _, a := range required {
		if _, ok := registered[a]; !ok {
			return false
		}
	}
	return true
}

// Scheduler is the scheduling configuration of one scope.
type Scheduler struct {
	Enabled           bool
	Prefix            string
	AutoExport        bool
	ExportURI         string
	MostRecentBackup  string
	NextScheduledTime string
}

// SchedulerUpdate carries the scheduler fields to change. Nil pointers and
// empty strings leave the current value untouched.
type SchedulerUpdate struct {
	Enabled        *bool
	Prefix         *string
	AutoExport     *bool
	ExportURI      string
	ExportPassword string
}

// Interval is one periodic backup event of a scheduler.
type Interval struct {
	ID        string `json:"id,omitempty"`
	Weeks     int    `json:"weeks"`
	Days      int    `json:"days"`
	Hours     int    `json:"hours"`
	Minutes   int    `json:"minutes"`
	StartTime string `json:"startTime,omitempty"`
	StopTime  string `json:"stopTime,omitempty"`
}

// Retention is the housekeeping policy of one scope.
type Retention struct {
	Limit int
	Purge bool
}
