package factory

import (
	"fmt"
	"strconv"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	"github.com/cozystack/bro-hooks/internal/template"
)

const (
	// ExecutorContainer is the name of the container running the restore.
	ExecutorContainer = "executor"
	// BackupNameAnnotation records the restored backup on the job pod.
	BackupNameAnnotation = "backup_name"
	// RunnerCommand is the sub-command the job executes.
	RunnerCommand = "restore-runner"
)

// RestoreJobParams describes a background restore job.
type RestoreJobParams struct {
	Name           string
	Backup         string
	Scope          string
	ConfigMap      string
	ServiceAccount string
	BROHost        string
	BROPort        int
	PullSecret     string
	// Executable is the path of the hook binary inside the image.
	Executable string
}

// restorePodTemplate is rendered with the RestoreJobParams fields.
var restorePodTemplate = corev1.PodTemplateSpec{
	ObjectMeta: metav1.ObjectMeta{
		Annotations: map[string]string{
			BackupNameAnnotation: "{{ .Backup }}",
		},
	},
	Spec: corev1.PodSpec{
		ServiceAccountName: "{{ .ServiceAccount }}",
		RestartPolicy:      corev1.RestartPolicyNever,
		Containers: []corev1.Container{
			{
				Name:    ExecutorContainer,
				Command: []string{"{{ .Executable }}"},
				Args: []string{
					RunnerCommand,
					"-b", "{{ .Backup }}",
					"-c", "{{ .ConfigMap }}",
					"-s", "{{ .Scope }}",
				},
				Env: []corev1.EnvVar{
					{Name: "BRO_HOST", Value: "{{ .BROHost }}"},
					{Name: "BRO_PORT", Value: "{{ .BROPort }}"},
				},
			},
		},
	},
}

// RestoreJob builds the job that runs the restore runner for p. The
// executor uses the image and pull policy of source, the pod the hook
// runs in.
func RestoreJob(p RestoreJobParams, source *corev1.Pod) (*batchv1.Job, error) {
	if len(source.Spec.Containers) == 0 {
		return nil, fmt.Errorf("pod %s has no containers", source.Name)
	}
	if p.Executable == "" {
		p.Executable = "bro-hooks"
	}

	pod, err := template.Render(&restorePodTemplate, map[string]any{
		"Backup":         p.Backup,
		"Scope":          p.Scope,
		"ConfigMap":      p.ConfigMap,
		"ServiceAccount": p.ServiceAccount,
		"BROHost":        p.BROHost,
		"BROPort":        strconv.Itoa(p.BROPort),
		"Executable":     p.Executable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render restore pod template: %w", err)
	}

	current := source.Spec.Containers[0]
	pod.Spec.Containers[0].Image = current.Image
	pod.Spec.Containers[0].ImagePullPolicy = current.ImagePullPolicy
	if p.PullSecret != "" {
		pod.Spec.ImagePullSecrets = []corev1.LocalObjectReference{{Name: p.PullSecret}}
	}

	job := &batchv1.Job{
		TypeMeta: metav1.TypeMeta{
			APIVersion: batchv1.SchemeGroupVersion.String(),
			Kind:       "Job",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      p.Name,
			Namespace: source.Namespace,
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: ptr.To[int32](0),
			Template:     *pod,
		},
	}
	return job, nil
}
