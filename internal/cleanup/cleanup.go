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

// Package cleanup removes what install and upgrade hooks leave behind.
package cleanup

import (
	"context"
	"fmt"
	"slices"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"
	"k8s.io/utils/clock"

	"github.com/cozystack/bro-hooks/internal/hook"
)

const (
	deletePoll    = time.Second
	deleteTimeout = 5 * time.Minute
)

// SecretBackoff retries the deletion of a secret that is not there yet.
var SecretBackoff = wait.Backoff{
	Duration: 5 * time.Second,
	Factor:   1.0,
	Steps:    120,
}

// Jobs lists and deletes jobs.
type Jobs interface {
	ListJobs(ctx context.Context) ([]string, error)
	DeleteJob(ctx context.Context, name string) error
}

// Secrets deletes secrets.
type Secrets interface {
	DeleteSecret(ctx context.Context, name string) error
}

// Services reads, lists and deletes services.
type Services interface {
	GetService(ctx context.Context, name string) (*corev1.Service, error)
	ListServices(ctx context.Context) ([]string, error)
	DeleteService(ctx context.Context, name string) error
}

// ConfigMaps reads and patches config maps.
type ConfigMaps interface {
	GetConfigMap(ctx context.Context, name string) (map[string]string, error)
	PatchConfigMap(ctx context.Context, name string, data map[string]string) error
}

// DeleteJobs deletes each named job in turn.
func DeleteJobs(ctx context.Context, jobs Jobs, clk clock.Clock, names []string) error {
	log := hook.Logger(ctx)
	for _, name := range names {
		log.Info("Deleting job", "job", name)
		if err := DeleteJob(ctx, jobs, clk, name); err != nil {
			return err
		}
	}
	return nil
}

// DeleteJob deletes the named job when it is listed and waits for it to
// be gone.
func DeleteJob(ctx context.Context, jobs Jobs, clk clock.Clock, name string) error {
	log := hook.Logger(ctx)
	listed, err := jobs.ListJobs(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(listed, name) {
		log.Info("Job does not exist to delete", "job", name)
		return nil
	}
	if err := jobs.DeleteJob(ctx, name); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete job %s: %w", name, err)
	}
	log.Info("Waiting for job to delete", "job", name)
	if err := waitGone(ctx, clk, jobs.ListJobs, name); err != nil {
		return fmt.Errorf("job %s was not deleted: %w", name, err)
	}
	log.Info("Existing job deleted", "job", name)
	return nil
}

// DeleteSecrets deletes each named secret. A secret that does not exist
// yet is retried with backoff.
func DeleteSecrets(ctx context.Context, secrets Secrets, backoff wait.Backoff, names []string) error {
	log := hook.Logger(ctx)
	for _, name := range names {
		log.Info("Deleting secret", "secret", name)
		err := retry.OnError(backoff, apierrors.IsNotFound, func() error {
			return secrets.DeleteSecret(ctx, name)
		})
		if err != nil {
			return fmt.Errorf("failed to delete secret %s: %w", name, err)
		}
		log.Info("Secret deleted", "secret", name)
	}
	return nil
}

// DeleteServices deletes each named service that exists with a cluster
// IP and waits for it to be gone. Other services are skipped.
func DeleteServices(ctx context.Context, services Services, clk clock.Clock, names []string) error {
	log := hook.Logger(ctx)
	for _, name := range names {
		svc, err := services.GetService(ctx, name)
		if apierrors.IsNotFound(err) {
			log.Debug("Skip the cleanup for service", "service", name)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read service %s: %w", name, err)
		}
		if svc.Spec.ClusterIP == "" {
			log.Debug("Service has no cluster IP, skipping", "service", name)
			continue
		}
		log.Info("Deleting service", "service", name)
		if err := services.DeleteService(ctx, name); err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("failed to delete service %s: %w", name, err)
		}
		log.Info("Waiting for service to delete", "service", name)
		if err := waitGone(ctx, clk, services.ListServices, name); err != nil {
			return fmt.Errorf("service %s was not deleted: %w", name, err)
		}
		log.Info("Service deleted", "service", name)
	}
	return nil
}

// ResetConfigMap sets every key of the named config map to an empty value.
func ResetConfigMap(ctx context.Context, configMaps ConfigMaps, name string) error {
	log := hook.Logger(ctx)
	log.Info("Resetting values in config map", "configmap", name)
	data, err := configMaps.GetConfigMap(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to read config map %s: %w", name, err)
	}
	log.Info("Current config map", "configmap", name, "data", data)
	reset := make(map[string]string, len(data))
	for k := range data {
		reset[k] = ""
	}
	if err := configMaps.PatchConfigMap(ctx, name, reset); err != nil {
		return fmt.Errorf("failed to reset config map %s: %w", name, err)
	}
	log.Info("Config map reset", "configmap", name, "data", reset)
	return nil
}

func waitGone(ctx context.Context, clk clock.Clock, list func(context.Context) ([]string, error), name string) error {
	return hook.PollUntil(ctx, clk, deletePoll, deleteTimeout, func(ctx context.Context) (bool, error) {
		listed, err := list(ctx)
		if err != nil {
			return false, err
		}
		return !slices.Contains(listed, name), nil
	})
}
