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
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"

	"github.com/cozystack/bro-hooks/internal/hook"
)

// Keys of the restore state record.
const (
	KeyActionID = "RESTORE_ACTION_ID"
	KeyState    = "RESTORE_STATE"

	// StateFinished is written to KeyState once a restore succeeded.
	StateFinished = "finished"
)

// RecordBackoff retries writes to a record that does not exist yet every
// 5 seconds for 10 minutes.
var RecordBackoff = wait.Backoff{
	Duration: 5 * time.Second,
	Factor:   1.0,
	Steps:    120,
}

// Record is the restore state config map.
type Record struct {
	configMaps ConfigMaps
	name       string
	backoff    wait.Backoff
}

// NewRecord returns the record stored in config map name.
func NewRecord(configMaps ConfigMaps, name string, backoff wait.Backoff) *Record {
	return &Record{configMaps: configMaps, name: name, backoff: backoff}
}

// Name returns the config map name.
func (r *Record) Name() string {
	return r.name
}

// Exists reports whether the config map shows up in the listing.
func (r *Record) Exists(ctx context.Context) (bool, error) {
	maps, err := r.configMaps.ListConfigMaps(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range maps {
		if m == r.name {
			return true, nil
		}
	}
	return false, nil
}

// Get returns the value of key, empty when unset.
func (r *Record) Get(ctx context.Context, key string) (string, error) {
	data, err := r.configMaps.GetConfigMap(ctx, r.name)
	if err != nil {
		return "", err
	}
	return data[key], nil
}

// Set writes key=value. NotFound is retried with the record backoff since
// the config map may be created by another deployment step.
func (r *Record) Set(ctx context.Context, key, value string) error {
	log := hook.Logger(ctx)
	return retry.OnError(r.backoff, apierrors.IsNotFound, func() error {
		err := r.configMaps.PatchConfigMap(ctx, r.name, map[string]string{key: value})
		if apierrors.IsNotFound(err) {
			log.Debug("Config map not found yet, retrying", "configmap", r.name, "key", key)
		}
		return err
	})
}
