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

	"github.com/cozystack/bro-hooks/internal/cleanup"
)

func newResetConfigMapCommand() *cobra.Command {
	var configMap string
	cmd := &cobra.Command{
		Use:   "reset-configmap",
		Short: "Blank every key of a restore state config map",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "configmap"); err != nil {
				return err
			}
			env, err := newHookEnv(false)
			if err != nil {
				return err
			}
			return cleanup.ResetConfigMap(cmd.Context(), env.store, configMap)
		},
	}
	cmd.Flags().StringVarP(&configMap, "configmap", "c", "", "config map to reset")
	return cmd
}

func newDeleteJobsCommand() *cobra.Command {
	var jobs []string
	cmd := &cobra.Command{
		Use:   "delete-jobs",
		Short: "Delete hook jobs and wait until they are gone",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "job"); err != nil {
				return err
			}
			env, err := newHookEnv(false)
			if err != nil {
				return err
			}
			return cleanup.DeleteJobs(cmd.Context(), env.store, clock.RealClock{}, jobs)
		},
	}
	cmd.Flags().StringArrayVarP(&jobs, "job", "j", nil, "job to delete (can be specified multiple times)")
	return cmd
}

func newDeleteSecretsCommand() *cobra.Command {
	var secrets []string
	cmd := &cobra.Command{
		Use:   "delete-secrets",
		Short: "Delete secrets, waiting for them to appear first",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "secret"); err != nil {
				return err
			}
			env, err := newHookEnv(false)
			if err != nil {
				return err
			}
			return cleanup.DeleteSecrets(cmd.Context(), env.store, cleanup.SecretBackoff, secrets)
		},
	}
	cmd.Flags().StringArrayVarP(&secrets, "secret", "s", nil, "secret to delete (can be specified multiple times)")
	return cmd
}

func newDeleteServicesCommand() *cobra.Command {
	var services []string
	cmd := &cobra.Command{
		Use:   "delete-services",
		Short: "Delete services that have a cluster IP and wait until they are gone",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "service"); err != nil {
				return err
			}
			env, err := newHookEnv(false)
			if err != nil {
				return err
			}
			return cleanup.DeleteServices(cmd.Context(), env.store, clock.RealClock{}, services)
		},
	}
	cmd.Flags().StringArrayVarP(&services, "service", "s", nil, "service to delete (can be specified multiple times)")
	return cmd
}
