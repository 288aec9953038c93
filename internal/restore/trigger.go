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
	"fmt"
	"path/filepath"
	"strings"

	"k8s.io/utils/clock"

	"github.com/cozystack/bro-hooks/internal/bro"
	"github.com/cozystack/bro-hooks/internal/cleanup"
	"github.com/cozystack/bro-hooks/internal/factory"
	"github.com/cozystack/bro-hooks/internal/hook"
	"github.com/cozystack/bro-hooks/internal/kube"
)

const (
	// ArchiveSuffix marks a backup token as an archive file to import.
	ArchiveSuffix = ".tar.gz"

	// URIFile and CredentialsFile are the secret files of the import source.
	URIFile         = "externalStorageURI"
	CredentialsFile = "externalStorageCredentials"

	// ProductVersionConfigMap carries the installed product version.
	ProductVersionConfigMap = "product-version-configmap"
	// ProductRevisionAnnotation is the annotation holding the version.
	ProductRevisionAnnotation = "ericsson.com/product-revision"
)

// TriggerRequest names the backup to restore and the job to run it in.
type TriggerRequest struct {
	SecretsDir     string
	ServiceAccount string
	Backup         string
	Job            string
	Scope          bro.Scope
	ConfigMap      string
}

// TriggerEnv is the environment the spawned job inherits.
type TriggerEnv struct {
	BROHost    string
	BROPort    int
	PullSecret string
	// Hostname is the pod the trigger runs in.
	Hostname string
}

// Trigger imports a backup when needed and starts the background job that
// restores it.
type Trigger struct {
	orchestrator Importer
	cluster      Cluster
	env          TriggerEnv
	clock        clock.Clock
	monitor      *Monitor
}

// NewTrigger wires a trigger.
func NewTrigger(orchestrator Importer, cluster Cluster, env TriggerEnv, clk clock.Clock) *Trigger {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Trigger{
		orchestrator: orchestrator,
		cluster:      cluster,
		env:          env,
		clock:        clk,
		monitor:      NewMonitor(orchestrator, clk, ActionInterval),
	}
}

// ImportAndTrigger makes sure the backup is in the orchestrator, checks
// its product version and starts the restore job.
func (t *Trigger) ImportAndTrigger(ctx context.Context, req TriggerRequest) error {
	backup, err := t.importBackup(ctx, req)
	if err != nil {
		return err
	}
	if err := t.checkProductVersion(ctx, backup); err != nil {
		return err
	}
	req.Backup = backup.Name
	return t.TriggerRestore(ctx, req)
}

func isArchive(name string) bool {
	return strings.HasSuffix(name, ArchiveSuffix)
}

// importBackup returns the backup to restore, importing it first when it
// is an archive or unknown to the orchestrator.
func (t *Trigger) importBackup(ctx context.Context, req TriggerRequest) (*bro.Backup, error) {
	log := hook.Logger(ctx)

	backups, err := t.orchestrator.Backups(ctx, req.Scope)
	if err != nil {
		return nil, err
	}
	archive := isArchive(req.Backup)
	if archive && len(backups) > 0 {
		existing := make([]string, 0, len(backups))
		for _, b := range backups {
			existing = append(existing, b.Name)
		}
		log.Info("Backups already stored", "backups", existing)
		return nil, hook.Errorf("BRO PVC is not empty. Please remove all the backups and repeat the procedure.")
	}

	known := false
	for _, b := range backups {
		if b.Name == req.Backup {
			known = true
		}
	}

	if archive || !known {
		uri, err := kube.ReadSecretFile(filepath.Join(req.SecretsDir, URIFile))
		if err != nil {
			return nil, err
		}
		password, err := kube.ReadSecretFile(filepath.Join(req.SecretsDir, CredentialsFile))
		if err != nil {
			return nil, err
		}
		if uri == "" && password == "" {
			return nil, hook.Errorf("Backup %s does not exist in BRO and have no SFTP secrets so can't try to import it either!", req.Backup)
		}
		log.Info("Importing backup", "backup", req.Backup, "uri", uri)
		action, err := t.orchestrator.ImportBackup(ctx, req.Scope, ImportURI(uri, req.Backup), password)
		if err != nil {
			return nil, err
		}
		if err := t.monitor.WaitForAction(ctx, action); err != nil {
			return nil, err
		}
	} else {
		log.Info("BRO has a backup with this name", "backup", req.Backup)
	}

	if archive {
		imported, err := t.orchestrator.Backups(ctx, req.Scope)
		if err != nil {
			return nil, err
		}
		if len(imported) == 0 {
			return nil, hook.Errorf("No backup found in %s after importing %s", req.Scope, req.Backup)
		}
		return &imported[0], nil
	}
	return t.orchestrator.GetBackup(ctx, req.Scope, req.Backup)
}

// ImportURI is the location of backup below the import source uri.
func ImportURI(uri, backup string) string {
	return strings.TrimSuffix(uri, "/") + "/" + backup
}

func (t *Trigger) checkProductVersion(ctx context.Context, backup *bro.Backup) error {
	annotations, err := t.cluster.GetConfigMapAnnotations(ctx, ProductVersionConfigMap)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", ProductVersionConfigMap, err)
	}
	installed, ok := annotations[ProductRevisionAnnotation]
	if !ok {
		return hook.Errorf("%s has no %s annotation", ProductVersionConfigMap, ProductRevisionAnnotation)
	}
	version, ok := backup.ProductVersion()
	if !ok {
		return hook.Errorf("Backup %s carries no product version", backup.Name)
	}
	if version != installed {
		return hook.Errorf("Product version %s and backup product version %s do not match", installed, version)
	}
	hook.Logger(ctx).Info("Product versions match", "version", version)
	return nil
}

// TriggerRestore replaces the restore job named in req with a new one.
func (t *Trigger) TriggerRestore(ctx context.Context, req TriggerRequest) error {
	log := hook.Logger(ctx)

	if t.env.BROHost == "" {
		return hook.Errorf("$BRO_HOST is not set in %s", t.env.Hostname)
	}
	if t.env.BROPort <= 0 {
		return hook.Errorf("$BRO_PORT is not set in %s", t.env.Hostname)
	}

	pod, err := t.cluster.GetPod(ctx, t.env.Hostname)
	if err != nil {
		return fmt.Errorf("failed to read pod %s: %w", t.env.Hostname, err)
	}
	job, err := factory.RestoreJob(factory.RestoreJobParams{
		Name:           req.Job,
		Backup:         req.Backup,
		Scope:          string(req.Scope),
		ConfigMap:      req.ConfigMap,
		ServiceAccount: req.ServiceAccount,
		BROHost:        t.env.BROHost,
		BROPort:        t.env.BROPort,
		PullSecret:     t.env.PullSecret,
	}, pod)
	if err != nil {
		return err
	}
	c := job.Spec.Template.Spec.Containers[0]
	log.Info("Restore job definition", "name", job.Name, "image", c.Image, "args", c.Args)

	log.Info("Triggering restore job", "job", req.Job, "scope", req.Scope, "backup", req.Backup)
	if err := cleanup.DeleteJob(ctx, t.cluster, t.clock, req.Job); err != nil {
		return err
	}
	if err := t.cluster.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to create job %s: %w", req.Job, err)
	}
	log.Info("Triggered restore job", "job", req.Job)
	return nil
}
