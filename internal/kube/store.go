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

// Package kube is the cluster state store used by the hooks. Every call is
// scoped to the namespace the hook runs in.
package kube

import (
	"context"
	"encoding/json"
	"fmt"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const (
	// RollbackAnnotation marks pods of agents taking part in rollback backups.
	RollbackAnnotation = "backupType"
	// RollbackAnnotationValue is the value of RollbackAnnotation for such pods.
	RollbackAnnotationValue = "ROLLBACK"
	// AgentIDLabel carries the agent id of an agent pod.
	AgentIDLabel = "adpbrlabelkey"

	deleteGracePeriod int64 = 5
)

// Store reads and writes namespaced objects through a controller-runtime client.
type Store struct {
	client    client.Client
	namespace string
}

// NewStore returns a store working in namespace.
func NewStore(c client.Client, namespace string) *Store {
	return &Store{client: c, namespace: namespace}
}

// Namespace returns the namespace every call is scoped to.
func (s *Store) Namespace() string {
	return s.namespace
}

func (s *Store) key(name string) client.ObjectKey {
	return client.ObjectKey{Namespace: s.namespace, Name: name}
}

func foreground() []client.DeleteOption {
	return []client.DeleteOption{
		client.PropagationPolicy(metav1.DeletePropagationForeground),
		client.GracePeriodSeconds(deleteGracePeriod),
	}
}

// GetConfigMap returns the data of the named config map.
func (s *Store) GetConfigMap(ctx context.Context, name string) (map[string]string, error) {
	cm := &corev1.ConfigMap{}
	if err := s.client.Get(ctx, s.key(name), cm); err != nil {
		return nil, err
	}
	return cm.Data, nil
}

// ListConfigMaps returns the sorted names of every config map.
func (s *Store) ListConfigMaps(ctx context.Context) ([]string, error) {
	list := &corev1.ConfigMapList{}
	if err := s.client.List(ctx, list, client.InNamespace(s.namespace)); err != nil {
		return nil, fmt.Errorf("failed to list config maps: %w", err)
	}
	return names(list.Items), nil
}

// PatchConfigMap merges data into the named config map. A missing config
// map yields a NotFound error.
func (s *Store) PatchConfigMap(ctx context.Context, name string, data map[string]string) error {
	patch, err := json.Marshal(map[string]interface{}{"data": data})
	if err != nil {
		return err
	}
	cm := &corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: s.namespace}}
	return s.client.Patch(ctx, cm, client.RawPatch(types.MergePatchType, patch))
}

// ReplaceConfigMap overwrites the data of an existing config map.
func (s *Store) ReplaceConfigMap(ctx context.Context, name string, data map[string]string) error {
	cm := &corev1.ConfigMap{}
	if err := s.client.Get(ctx, s.key(name), cm); err != nil {
		return err
	}
	cm.Data = data
	return s.client.Update(ctx, cm)
}

// CreateConfigMap creates a config map holding data.
func (s *Store) CreateConfigMap(ctx context.Context, name string, data map[string]string) error {
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: s.namespace},
		Data:       data,
	}
	return s.client.Create(ctx, cm)
}

// GetConfigMapAnnotations returns the annotations of the named config map.
func (s *Store) GetConfigMapAnnotations(ctx context.Context, name string) (map[string]string, error) {
	cm := &corev1.ConfigMap{}
	if err := s.client.Get(ctx, s.key(name), cm); err != nil {
		return nil, err
	}
	return cm.Annotations, nil
}

// GetSecret returns the decoded data of the named secret.
func (s *Store) GetSecret(ctx context.Context, name string) (map[string][]byte, error) {
	secret := &corev1.Secret{}
	if err := s.client.Get(ctx, s.key(name), secret); err != nil {
		return nil, err
	}
	return secret.Data, nil
}

// DeleteSecret deletes the named secret without a grace period.
func (s *Store) DeleteSecret(ctx context.Context, name string) error {
	secret := &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: s.namespace}}
	return s.client.Delete(ctx, secret, client.GracePeriodSeconds(0))
}

// GetPod returns the named pod.
func (s *Store) GetPod(ctx context.Context, name string) (*corev1.Pod, error) {
	pod := &corev1.Pod{}
	if err := s.client.Get(ctx, s.key(name), pod); err != nil {
		return nil, err
	}
	return pod, nil
}

// RollbackAgents returns the agent ids of the pods annotated as rollback
// agents. Pods missing the agent label are ignored.
func (s *Store) RollbackAgents(ctx context.Context) ([]string, error) {
	list := &corev1.PodList{}
	if err := s.client.List(ctx, list, client.InNamespace(s.namespace)); err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}
	var agents []string
	for _, pod := range list.Items {
		if pod.Annotations[RollbackAnnotation] != RollbackAnnotationValue {
			continue
		}
		id, ok := pod.Labels[AgentIDLabel]
		if !ok {
			continue
		}
		agents = append(agents, id)
	}
	return agents, nil
}

// ListJobs returns the sorted names of every job.
func (s *Store) ListJobs(ctx context.Context) ([]string, error) {
	list := &batchv1.JobList{}
	if err := s.client.List(ctx, list, client.InNamespace(s.namespace)); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return names(list.Items), nil
}

// CreateJob creates job in the store namespace.
func (s *Store) CreateJob(ctx context.Context, job *batchv1.Job) error {
	job.Namespace = s.namespace
	return s.client.Create(ctx, job)
}

// DeleteJob deletes the named job and its pods in the foreground.
func (s *Store) DeleteJob(ctx context.Context, name string) error {
	job := &batchv1.Job{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: s.namespace}}
	return s.client.Delete(ctx, job, foreground()...)
}

// GetService returns the named service.
func (s *Store) GetService(ctx context.Context, name string) (*corev1.Service, error) {
	svc := &corev1.Service{}
	if err := s.client.Get(ctx, s.key(name), svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// ListServices returns the sorted names of every service.
func (s *Store) ListServices(ctx context.Context) ([]string, error) {
	list := &corev1.ServiceList{}
	if err := s.client.List(ctx, list, client.InNamespace(s.namespace)); err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return names(list.Items), nil
}

// DeleteService deletes the named service in the foreground.
func (s *Store) DeleteService(ctx context.Context, name string) error {
	svc := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: s.namespace}}
	return s.client.Delete(ctx, svc, foreground()...)
}
