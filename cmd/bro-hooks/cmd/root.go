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

// Package cmd holds the bro-hooks sub-commands run by Helm hook jobs.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

// usageError marks a command line the hook cannot run with.
type usageError struct {
	error
}

func (e usageError) Unwrap() error {
	return e.error
}

func usagef(format string, args ...interface{}) error {
	return usageError{fmt.Errorf(format, args...)}
}

// NewRootCommand builds the bro-hooks command tree.
func NewRootCommand() *cobra.Command {
	zapOpts := zap.Options{TimeEncoder: zapcore.ISO8601TimeEncoder}

	root := &cobra.Command{
		Use:           "bro-hooks",
		Short:         "Backup and restore hooks for the BRO orchestrator",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usagef("unknown command %q", args[0])
			}
			return nil
		},
		RunE: func(*cobra.Command, []string) error {
			return usagef("a sub-command is required")
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger := zap.New(zap.UseFlagOptions(&zapOpts))
			ctrl.SetLogger(logger)
			cmd.SetContext(log.IntoContext(cmd.Context(), logger.WithName(cmd.Name())))
		},
	}

	zapFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	zapOpts.BindFlags(zapFlags)
	root.PersistentFlags().AddGoFlagSet(zapFlags)

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	root.AddCommand(
		newRestoreRunnerCommand(),
		newRestoreTriggerCommand(),
		newRestoreReportCommand(),
		newBMConfigCommand(),
		newScheduleControlCommand(),
		newPreUpgradeBackupCommand(),
		newPartialRollbackCommand(),
		newUpgradeStateCommand(),
		newResetConfigMapCommand(),
		newDeleteJobsCommand(),
		newDeleteSecretsCommand(),
		newDeleteServicesCommand(),
	)
	return root
}

// Execute runs the command line of the process and returns its exit code.
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return run(ctx, NewRootCommand(), os.Args[1:], os.Stderr)
}

func run(ctx context.Context, root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	root.SetOut(stderr)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	var usage usageError
	if errors.As(err, &usage) {
		fmt.Fprintf(stderr, "Error: %s\n\n", err)
		_ = cmd.Usage()
		return exitUsage
	}
	ctrl.Log.WithName(cmd.Name()).Error(err, "Hook failed")
	return exitFailure
}

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usagef("unexpected arguments %v", args)
	}
	return nil
}

// requireFlags fails with a usage error when the command got no flags at
// all or misses one of names.
func requireFlags(cmd *cobra.Command, names ...string) error {
	if !anyLocalFlag(cmd) {
		return usagef("no flags given")
	}
	var missing []string
	for _, name := range names {
		if !cmd.Flags().Changed(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return usagef("required flag(s) %s not set", strings.Join(missing, ", "))
	}
	return nil
}

func anyLocalFlag(cmd *cobra.Command) bool {
	set := false
	cmd.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
		set = set || f.Changed
	})
	return set
}

// toggle resolves a pair of opposite boolean flags. Exactly one of them
// must be given.
func toggle(cmd *cobra.Command, on, off string) (bool, error) {
	isOn, isOff := cmd.Flags().Changed(on), cmd.Flags().Changed(off)
	if isOn == isOff {
		return false, usagef("exactly one of --%s or --%s is required", on, off)
	}
	return isOn, nil
}
