// SPDX-License-Identifier: Apache-2.0

package cleanup_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/wait"
	clocktesting "k8s.io/utils/clock/testing"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/cozystack/bro-hooks/internal/cleanup"
	"github.com/cozystack/bro-hooks/internal/kube"
)

const namespace = "eric-bro"

func meta(name string) metav1.ObjectMeta {
	return metav1.ObjectMeta{Name: name, Namespace: namespace}
}

// flakySecrets reports NotFound a given number of times before deleting.
type flakySecrets struct {
	misses  int
	calls   int
	deleted []string
}

func (f *flakySecrets) DeleteSecret(_ context.Context, name string) error {
	f.calls++
	if f.calls <= f.misses {
		return apierrors.NewNotFound(schema.GroupResource{Resource: "secrets"}, name)
	}
	f.deleted = append(f.deleted, name)
	return nil
}

var _ = Describe("Cleanup", func() {
	var (
		ctx   context.Context
		clk   *clocktesting.FakeClock
		store *kube.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		clk = clocktesting.NewFakeClock(time.Now())
		c := fake.NewClientBuilder().WithObjects(
			&batchv1.Job{ObjectMeta: meta("hook-job")},
			&corev1.Service{ObjectMeta: meta("with-ip"), Spec: corev1.ServiceSpec{ClusterIP: "10.0.0.1"}},
			&corev1.Service{ObjectMeta: meta("headless-none"), Spec: corev1.ServiceSpec{}},
			&corev1.ConfigMap{ObjectMeta: meta("restore-state"), Data: map[string]string{
				"RESTORE_ACTION_ID": "42", "RESTORE_STATE": "finished",
			}},
		).Build()
		store = kube.NewStore(c, namespace)
	})

	Describe("DeleteJobs", func() {
		It("deletes listed jobs and skips missing ones", func() {
			Expect(cleanup.DeleteJobs(ctx, store, clk, []string{"hook-job", "missing"})).To(Succeed())
			Expect(store.ListJobs(ctx)).To(BeEmpty())
		})
	})

	Describe("DeleteServices", func() {
		It("deletes services with a cluster IP only", func() {
			Expect(cleanup.DeleteServices(ctx, store, clk, []string{"with-ip", "headless-none", "missing"})).To(Succeed())
			Expect(store.ListServices(ctx)).To(Equal([]string{"headless-none"}))
		})
	})

	Describe("DeleteSecrets", func() {
		It("retries secrets that are not found yet", func() {
			secrets := &flakySecrets{misses: 2}
			backoff := wait.Backoff{Steps: 5}
			Expect(cleanup.DeleteSecrets(ctx, secrets, backoff, []string{"sftp"})).To(Succeed())
			Expect(secrets.calls).To(Equal(3))
			Expect(secrets.deleted).To(Equal([]string{"sftp"}))
		})

		It("gives up once the backoff is exhausted", func() {
			secrets := &flakySecrets{misses: 10}
			err := cleanup.DeleteSecrets(ctx, secrets, wait.Backoff{Steps: 3}, []string{"sftp"})
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
			Expect(secrets.calls).To(Equal(3))
		})
	})

	Describe("ResetConfigMap", func() {
		It("empties every value and keeps the keys", func() {
			Expect(cleanup.ResetConfigMap(ctx, store, "restore-state")).To(Succeed())
			Expect(store.GetConfigMap(ctx, "restore-state")).To(Equal(map[string]string{
				"RESTORE_ACTION_ID": "", "RESTORE_STATE": "",
			}))
		})

		It("fails for a missing config map", func() {
			Expect(cleanup.ResetConfigMap(ctx, store, "missing")).NotTo(Succeed())
		})
	})
})
