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
	"github.com/cozystack/bro-hooks/internal/restore"
)

type restoreOptions struct {
	backup         string
	scope          string
	configMap      string
	secretsDir     string
	serviceAccount string
	job            string
}

func newRestoreRunnerCommand() *cobra.Command {
	opts := &restoreOptions{}
	cmd := &cobra.Command{
		Use:   "restore-runner",
		Short: "Restore a backup and record its progress in a config map",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "backup", "scope", "configmap"); err != nil {
				return err
			}
			env, err := newHookEnv(true)
			if err != nil {
				return err
			}
			runner := restore.NewRunner(env.bro, env.store, clock.RealClock{}, restore.RecordBackoff)
			return runner.Run(cmd.Context(), opts.backup, bro.Scope(opts.scope), opts.configMap)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.backup, "backup", "b", "", "name of the backup to restore")
	flags.StringVarP(&opts.scope, "scope", "s", "", "scope of the backup")
	flags.StringVarP(&opts.configMap, "configmap", "c", "", "config map recording the restore state")
	return cmd
}

func newRestoreTriggerCommand() *cobra.Command {
	opts := &restoreOptions{}
	cmd := &cobra.Command{
		Use:   "restore-trigger",
		Short: "Import a backup if needed and start the job restoring it",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "secrets", "service-account", "backup", "job", "scope", "configmap"); err != nil {
				return err
			}
			env, err := newHookEnv(true)
			if err != nil {
				return err
			}
			trigger := restore.NewTrigger(env.bro, env.store, restore.TriggerEnv{
				BROHost:    env.config.BROHost,
				BROPort:    env.config.BROPort,
				PullSecret: env.config.PullSecret,
				Hostname:   env.config.Hostname,
			}, clock.RealClock{})
			return trigger.ImportAndTrigger(cmd.Context(), restore.TriggerRequest{
				SecretsDir:     opts.secretsDir,
				ServiceAccount: opts.serviceAccount,
				Backup:         opts.backup,
				Job:            opts.job,
				Scope:          bro.Scope(opts.scope),
				ConfigMap:      opts.configMap,
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.secretsDir, "secrets", "S", "", "directory holding the import uri and password files")
	flags.StringVarP(&opts.serviceAccount, "service-account", "A", "", "service account of the restore job")
	flags.StringVarP(&opts.backup, "backup", "b", "", "name of the backup or archive to restore")
	flags.StringVarP(&opts.job, "job", "j", "", "name of the restore job")
	flags.StringVarP(&opts.scope, "scope", "s", "", "scope of the backup")
	flags.StringVarP(&opts.configMap, "configmap", "c", "", "config map recording the restore state")
	return cmd
}

func newRestoreReportCommand() *cobra.Command {
	opts := &restoreOptions{}
	cmd := &cobra.Command{
		Use:   "restore-report",
		Short: "Wait for the recorded restore action and report its result",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "configmap", "scope"); err != nil {
				return err
			}
			env, err := newHookEnv(true)
			if err != nil {
				return err
			}
			reporter := restore.NewReporter(env.bro, env.store, clock.RealClock{})
			return reporter.Report(cmd.Context(), opts.configMap, bro.Scope(opts.scope))
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.configMap, "configmap", "c", "", "config map recording the restore state")
	flags.StringVarP(&opts.scope, "scope", "s", "", "scope of the restore")
	return cmd
}
