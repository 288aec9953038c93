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

package cmd

import (
	"github.com/spf13/cobra"
	"k8s.io/utils/clock"

	"github.com/cozystack/bro-hooks/internal/bro"
	"github.com/cozystack/bro-hooks/internal/cleanup"
	"github.com/cozystack/bro-hooks/internal/hook"
	"github.com/cozystack/bro-hooks/internal/restore"
	"github.com/cozystack/bro-hooks/internal/schedule"
)

// noBackup tells bm-config to configure the backup manager instead of
// restoring its configuration.
const noBackup = "-"

type bmConfigOptions struct {
	backup    string
	scope     string
	configMap string
	secret    string
	values    string
	retention string
}

func newBMConfigCommand() *cobra.Command {
	opts := &bmConfigOptions{}
	cmd := &cobra.Command{
		Use:   "bm-config",
		Short: "Restore or apply the backup manager configuration",
		Long: `Restore the backup manager configuration of a scope from a backup, or
apply the retention and scheduling settings from the chart values when no
backup is given.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()
			env, err := newHookEnv(true)
			if err != nil {
				return err
			}

			scope := bro.Scope(opts.scope)
			if opts.backup != noBackup && scope == bro.ScopeDefault {
				if err := restore.RestoreManagerConfig(ctx, env.bro, clock.RealClock{}, opts.backup, scope); err != nil {
					return err
				}
			} else {
				configurator := schedule.NewConfigurator(env.bro, env.store, clock.RealClock{})
				if err := configurator.ConfigureRetention(ctx, opts.retention); err != nil {
					return err
				}
				if err := configurator.ConfigureScheduling(ctx, opts.values, opts.secret); err != nil {
					return err
				}
			}

			if opts.configMap == "" {
				hook.Logger(ctx).Info("No config map given, skipping reset")
				return nil
			}
			return cleanup.ResetConfigMap(ctx, env.store, opts.configMap)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.backup, "backup", "b", noBackup, "backup to restore the backup manager configuration from")
	flags.StringVarP(&opts.scope, "scope", "s", string(bro.ScopeDefault), "backup scope")
	flags.StringVarP(&opts.configMap, "configmap", "c", "", "restore state config map to reset afterwards")
	flags.StringVarP(&opts.secret, "secret", "S", "", "secret holding the auto export uri and password")
	flags.StringVarP(&opts.values, "values", "V", "", "scheduling values as JSON or YAML")
	flags.StringVarP(&opts.retention, "retention", "R", "", "retention values as JSON or YAML")
	return cmd
}

func newScheduleControlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule-control",
		Short: "Enable or disable backup scheduling",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enabled, err := toggle(cmd, "enabled", "disabled")
			if err != nil {
				return err
			}
			env, err := newHookEnv(true)
			if err != nil {
				return err
			}
			configurator := schedule.NewConfigurator(env.bro, env.store, clock.RealClock{})
			return configurator.EnableScheduling(cmd.Context(), enabled)
		},
	}
	cmd.Flags().Bool("enabled", false, "enable scheduling")
	cmd.Flags().Bool("disabled", false, "disable scheduling")
	return cmd
}
