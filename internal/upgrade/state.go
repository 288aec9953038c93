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

// Package upgrade holds the hooks run around an upgrade: the rollback
// backup taken before it and the bookkeeping of partial upgrades.
package upgrade

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/cozystack/bro-hooks/internal/hook"
)

const (
	// StateConfigMap records the upgrade state.
	StateConfigMap = "upgrade-state"
	// StateKey is the only key of StateConfigMap.
	StateKey = "Upgrade-State"
	// StatePartial marks an upgrade that was only partially applied.
	StatePartial = "Partial"
)

// ConfigMaps is the config map access of the upgrade state.
type ConfigMaps interface {
	GetConfigMap(ctx context.Context, name string) (map[string]string, error)
	ReplaceConfigMap(ctx context.Context, name string, data map[string]string) error
	CreateConfigMap(ctx context.Context, name string, data map[string]string) error
}

// Scheduling switches backup scheduling on or off.
type Scheduling interface {
	EnableScheduling(ctx context.Context, enabled bool) error
}

// SetState records whether the current upgrade is partial. The config map
// is created when it cannot be replaced.
func SetState(ctx context.Context, configMaps ConfigMaps, partial bool) error {
	log := hook.Logger(ctx)
	state := ""
	if partial {
		state = StatePartial
	}
	data := map[string]string{StateKey: state}

	err := configMaps.ReplaceConfigMap(ctx, StateConfigMap, data)
	if err == nil {
		log.Info("Upgrade state replaced", "state", data)
		return nil
	}
	log.Info("Could not replace upgrade state, creating it", "error", err.Error())
	if err := configMaps.CreateConfigMap(ctx, StateConfigMap, data); err != nil {
		return fmt.Errorf("failed to create config map %s: %w", StateConfigMap, err)
	}
	log.Info("Upgrade state created", "state", data)
	return nil
}

// PartialRollback re-enables scheduling after the rollback of a partial
// upgrade. A missing upgrade state counts as partial and is created.
func PartialRollback(ctx context.Context, configMaps ConfigMaps, scheduling Scheduling) error {
	log := hook.Logger(ctx)
	data, err := configMaps.GetConfigMap(ctx, StateConfigMap)
	switch {
	case apierrors.IsNotFound(err):
		if err := configMaps.CreateConfigMap(ctx, StateConfigMap, map[string]string{StateKey: StatePartial}); err != nil {
			return fmt.Errorf("failed to create config map %s: %w", StateConfigMap, err)
		}
		log.Info("Upgrade state created as partial", "configmap", StateConfigMap)
	case err != nil:
		return fmt.Errorf("failed to read config map %s: %w", StateConfigMap, err)
	case data[StateKey] != StatePartial:
		log.Info("Full rollback, skipping enabling scheduling")
		return nil
	default:
		log.Info("Partial rollback, enabling scheduling")
	}
	return scheduling.EnableScheduling(ctx, true)
}
