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

package schedule

import (
	"context"
	"encoding/json"

	"github.com/cozystack/bro-hooks/internal/bro"
	"github.com/cozystack/bro-hooks/internal/hook"
)

type retentionValues struct {
	Limit      *int  `json:"limit"`
	AutoDelete *bool `json:"autoDelete"`
}

// RetentionFrom reads a retention blob. Missing fields and unparsable
// blobs fall back to a limit of 2 with auto delete on.
func RetentionFrom(ctx context.Context, blob string) bro.Retention {
	log := hook.Logger(ctx)
	retention := bro.Retention{Limit: DefaultRetentionLimit, Purge: true}

	v := retentionValues{}
	if err := json.Unmarshal([]byte(blob), &v); err != nil || blob == "" {
		log.Warning("No retention values provided")
	}
	if v.Limit != nil {
		retention.Limit = *v.Limit
	} else {
		log.Warning("No limit value provided, using the default", "limit", retention.Limit)
	}
	if v.AutoDelete != nil {
		retention.Purge = *v.AutoDelete
	} else {
		log.Warning("No auto delete value provided, using the default", "autoDelete", retention.Purge)
	}
	return retention
}

// ConfigureRetention applies the retention blob and waits for the
// housekeeping action to succeed.
func (c *Configurator) ConfigureRetention(ctx context.Context, blob string) error {
	log := hook.Logger(ctx)
	retention := RetentionFrom(ctx, blob)

	log.Info("Configuring backup retention", "scope", c.scope)
	current, err := c.orchestrator.GetRetention(ctx, c.scope)
	if err != nil {
		return err
	}
	log.V(1).Info("Current retention", "limit", current.Limit, "purge", current.Purge)

	action, err := c.orchestrator.ApplyRetention(ctx, c.scope, retention)
	if err != nil {
		return err
	}
	if err := c.monitor.WaitForAction(ctx, action); err != nil {
		return err
	}

	updated, err := c.orchestrator.GetRetention(ctx, c.scope)
	if err != nil {
		return err
	}
	log.Info("Updated retention", "limit", updated.Limit, "purge", updated.Purge)
	return nil
}
