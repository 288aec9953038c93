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

// Package bro provides an HTTP client for the backup and restore
// orchestrator REST API (v1).
package bro

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"k8s.io/utils/ptr"
)

const (
	adminStateLocked   = "LOCKED"
	adminStateUnlocked = "UNLOCKED"
	exportEnabled      = "ENABLED"
	exportDisabled     = "DISABLED"
	autoDeleteEnabled  = "enabled"
	autoDeleteDisabled = "disabled"
)

// Client talks to one orchestrator instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the orchestrator at host:port.
func NewClient(host string, port int) *Client {
	return NewClientForURL("http://"+net.JoinHostPort(host, strconv.Itoa(port)), nil)
}

// NewClientForURL creates a client for baseURL. A nil httpClient gets a
// 30 second timeout.
func NewClientForURL(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Status returns the orchestrator health and its registered agents.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	status := &Status{}
	if err := c.do(ctx, http.MethodGet, "/v1/health", nil, status); err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}
	return status, nil
}

// Backups lists the backups stored in scope.
func (c *Client) Backups(ctx context.Context, scope Scope) ([]Backup, error) {
	var result struct {
		Backups []Backup `json:"backups"`
	}
	if err := c.do(ctx, http.MethodGet, managerPath(scope, "backup"), nil, &result); err != nil {
		return nil, fmt.Errorf("list backups in %s: %w", scope, err)
	}
	for i := range result.Backups {
		result.Backups[i].Scope = scope
	}
	return result.Backups, nil
}

// GetBackup returns the named backup of scope.
func (c *Client) GetBackup(ctx context.Context, scope Scope, name string) (*Backup, error) {
	backup := &Backup{}
	if err := c.do(ctx, http.MethodGet, managerPath(scope, "backup", name), nil, backup); err != nil {
		return nil, fmt.Errorf("get backup %s/%s: %w", scope, name, err)
	}
	backup.Scope = scope
	return backup, nil
}

// Actions lists every action known in scope.
func (c *Client) Actions(ctx context.Context, scope Scope) ([]Action, error) {
	var result struct {
		Actions []Action `json:"actions"`
	}
	if err := c.do(ctx, http.MethodGet, managerPath(scope, "action"), nil, &result); err != nil {
		return nil, fmt.Errorf("list actions in %s: %w", scope, err)
	}
	for i := range result.Actions {
		result.Actions[i].Scope = scope
	}
	return result.Actions, nil
}

// GetAction fetches a fresh snapshot of an action.
func (c *Client) GetAction(ctx context.Context, scope Scope, id string) (*Action, error) {
	action := &Action{}
	if err := c.do(ctx, http.MethodGet, managerPath(scope, "action", id), nil, action); err != nil {
		return nil, fmt.Errorf("get action %s/%s: %w", scope, id, err)
	}
	if action.ID == "" {
		action.ID = id
	}
	action.Scope = scope
	return action, nil
}

// CreateBackup starts a backup called name in scope.
func (c *Client) CreateBackup(ctx context.Context, scope Scope, name string) (*Action, error) {
	return c.submit(ctx, scope, ActionCreateBackup, map[string]string{"backupName": name})
}

// Restore starts the restore of the named backup of scope.
func (c *Client) Restore(ctx context.Context, scope Scope, name string) (*Action, error) {
	return c.submit(ctx, scope, ActionRestore, map[string]string{"backupName": name})
}

// ImportBackup starts the import of the backup at uri into scope.
func (c *Client) ImportBackup(ctx context.Context, scope Scope, uri, password string) (*Action, error) {
	return c.submit(ctx, scope, ActionImport, map[string]string{"uri": uri, "password": password})
}

type schedulerWire struct {
	AdminState          string  `json:"adminState,omitempty"`
	ScheduledBackupName *string `json:"scheduledBackupName,omitempty"`
	AutoExport          string  `json:"autoExport,omitempty"`
	AutoExportURI       string  `json:"autoExportUri,omitempty"`
	AutoExportPassword  string  `json:"autoExportPassword,omitempty"`
	MostRecentBackup    string  `json:"mostRecentlyCreatedAutoBackup,omitempty"`
	NextScheduledTime   string  `json:"nextScheduledTime,omitempty"`
}

// GetScheduler returns the scheduler configuration of scope.
func (c *Client) GetScheduler(ctx context.Context, scope Scope) (*Scheduler, error) {
	wire := &schedulerWire{}
	if err := c.do(ctx, http.MethodGet, managerPath(scope, "scheduler"), nil, wire); err != nil {
		return nil, fmt.Errorf("get scheduler of %s: %w", scope, err)
	}
	return &Scheduler{
		Enabled:           wire.AdminState == adminStateUnlocked,
		Prefix:            ptr.Deref(wire.ScheduledBackupName, ""),
		AutoExport:        wire.AutoExport == exportEnabled,
		ExportURI:         wire.AutoExportURI,
		MostRecentBackup:  wire.MostRecentBackup,
		NextScheduledTime: wire.NextScheduledTime,
	}, nil
}

// UpdateScheduler changes the scheduler fields set in update.
func (c *Client) UpdateScheduler(ctx context.Context, scope Scope, update SchedulerUpdate) error {
	wire := schedulerWire{
		ScheduledBackupName: update.Prefix,
		AutoExportURI:       update.ExportURI,
		AutoExportPassword:  update.ExportPassword,
	}
	if update.Enabled != nil {
		wire.AdminState = adminStateLocked
		if *update.Enabled {
			wire.AdminState = adminStateUnlocked
		}
	}
	if update.AutoExport != nil {
		wire.AutoExport = exportDisabled
		if *update.AutoExport {
			wire.AutoExport = exportEnabled
		}
	}
	if err := c.do(ctx, http.MethodPut, managerPath(scope, "scheduler"), wire, nil); err != nil {
		return fmt.Errorf("update scheduler of %s: %w", scope, err)
	}
	return nil
}

// Intervals lists the periodic events of the scope's scheduler.
func (c *Client) Intervals(ctx context.Context, scope Scope) ([]Interval, error) {
	var result struct {
		Events []Interval `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, managerPath(scope, "scheduler", "periodic-events"), nil, &result); err != nil {
		return nil, fmt.Errorf("list intervals of %s: %w", scope, err)
	}
	return result.Events, nil
}

// AddInterval creates a periodic event and returns it with its id.
func (c *Client) AddInterval(ctx context.Context, scope Scope, interval Interval) (*Interval, error) {
	var result struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, managerPath(scope, "scheduler", "periodic-events"), interval, &result); err != nil {
		return nil, fmt.Errorf("add interval to %s: %w", scope, err)
	}
	interval.ID = result.ID
	return &interval, nil
}

// DeleteInterval removes a periodic event.
func (c *Client) DeleteInterval(ctx context.Context, scope Scope, id string) error {
	if err := c.do(ctx, http.MethodDelete, managerPath(scope, "scheduler", "periodic-events", id), nil, nil); err != nil {
		return fmt.Errorf("delete interval %s of %s: %w", id, scope, err)
	}
	return nil
}

type retentionWire struct {
	Limit      int    `json:"max-stored-manual-backups"`
	AutoDelete string `json:"auto-delete"`
}

// GetRetention returns the housekeeping policy of scope.
func (c *Client) GetRetention(ctx context.Context, scope Scope) (*Retention, error) {
	wire := &retentionWire{}
	if err := c.do(ctx, http.MethodGet, managerPath(scope, "housekeeping"), nil, wire); err != nil {
		return nil, fmt.Errorf("get retention of %s: %w", scope, err)
	}
	return &Retention{Limit: wire.Limit, Purge: wire.AutoDelete == autoDeleteEnabled}, nil
}

// ApplyRetention submits the housekeeping action for retention.
func (c *Client) ApplyRetention(ctx context.Context, scope Scope, retention Retention) (*Action, error) {
	autoDelete := autoDeleteDisabled
	if retention.Purge {
		autoDelete = autoDeleteEnabled
	}
	return c.submit(ctx, scope, ActionHousekeeping, map[string]interface{}{
		"maximumManualBackupsNumberStored": retention.Limit,
		"auto-delete":                      autoDelete,
	})
}

func (c *Client) submit(ctx context.Context, scope Scope, name string, payload interface{}) (*Action, error) {
	body := map[string]interface{}{
		"action":  name,
		"payload": payload,
	}
	var result struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, managerPath(scope, "action"), body, &result); err != nil {
		return nil, fmt.Errorf("submit %s in %s: %w", name, scope, err)
	}
	return c.GetAction(ctx, scope, result.ID)
}

func managerPath(scope Scope, elems ...string) string {
	var b strings.Builder
	b.WriteString("/v1/backup-manager/")
	b.WriteString(url.PathEscape(string(scope)))
	for _, e := range elems {
		b.WriteString("/")
		b.WriteString(url.PathEscape(e))
	}
	return b.String()
}

func (c *Client) do(ctx context.Context, method, path string, payload, result interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(data)}
	}

	if result == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
