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

	"github.com/cozystack/bro-hooks/internal/schedule"
	"github.com/cozystack/bro-hooks/internal/upgrade"
)

func newPreUpgradeBackupCommand() *cobra.Command {
	var backup string
	cmd := &cobra.Command{
		Use:   "pre-upgrade-backup",
		Short: "Take a ROLLBACK backup once every rollback agent is registered",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "backup"); err != nil {
				return err
			}
			env, err := newHookEnv(true)
			if err != nil {
				return err
			}
			return upgrade.PreUpgradeBackup(cmd.Context(), env.bro, env.store, clock.RealClock{}, backup)
		},
	}
	cmd.Flags().StringVarP(&backup, "backup", "b", "", "name of the rollback backup")
	return cmd
}

func newPartialRollbackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "partial-rollback",
		Short: "Re-enable scheduling after rolling back a partial upgrade",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newHookEnv(true)
			if err != nil {
				return err
			}
			configurator := schedule.NewConfigurator(env.bro, env.store, clock.RealClock{})
			return upgrade.PartialRollback(cmd.Context(), env.store, configurator)
		},
	}
}

func newUpgradeStateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade-state",
		Short: "Record whether the running upgrade is partial or full",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			partial, err := toggle(cmd, "partial", "full")
			if err != nil {
				return err
			}
			env, err := newHookEnv(false)
			if err != nil {
				return err
			}
			return upgrade.SetState(cmd.Context(), env.store, partial)
		},
	}
	cmd.Flags().Bool("partial", false, "the upgrade is partial")
	cmd.Flags().Bool("full", false, "the upgrade is full")
	return cmd
}
