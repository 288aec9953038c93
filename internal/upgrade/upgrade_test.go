// SPDX-License-Identifier: Apache-2.0

package upgrade_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	clocktesting "k8s.io/utils/clock/testing"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/cozystack/bro-hooks/internal/bro"
	"github.com/cozystack/bro-hooks/internal/hook"
	"github.com/cozystack/bro-hooks/internal/kube"
	"github.com/cozystack/bro-hooks/internal/upgrade"
)

const namespace = "eric-bro"

type fakeScheduling struct {
	calls []bool
}

func (f *fakeScheduling) EnableScheduling(_ context.Context, enabled bool) error {
	f.calls = append(f.calls, enabled)
	return nil
}

// fakeOrchestrator registers one more agent on every status call.
type fakeOrchestrator struct {
	agents  []string
	visible int
	created []string
	result  string
}

func (f *fakeOrchestrator) Status(context.Context) (*bro.Status, error) {
	if f.visible < len(f.agents) {
		f.visible++
	}
	return &bro.Status{Agents: f.agents[:f.visible]}, nil
}

func (f *fakeOrchestrator) GetAction(_ context.Context, scope bro.Scope, id string) (*bro.Action, error) {
	return &bro.Action{ID: id, Scope: scope, Name: bro.ActionCreateBackup, State: "FINISHED", Result: f.result}, nil
}

func (f *fakeOrchestrator) CreateBackup(_ context.Context, scope bro.Scope, name string) (*bro.Action, error) {
	f.created = append(f.created, string(scope)+"/"+name)
	return &bro.Action{ID: "c1", Scope: scope, Name: bro.ActionCreateBackup, State: bro.ActionStateRunning}, nil
}

func agentPod(name, agent string) *corev1.Pod {
	return &corev1.Pod{ObjectMeta: metav1.ObjectMeta{
		Name: name, Namespace: namespace,
		Annotations: map[string]string{kube.RollbackAnnotation: kube.RollbackAnnotationValue},
		Labels:      map[string]string{kube.AgentIDLabel: agent},
	}}
}

var _ = Describe("Upgrade state", func() {
	var (
		ctx        context.Context
		objects    []client.Object
		store      *kube.Store
		scheduling *fakeScheduling
	)

	BeforeEach(func() {
		ctx = context.Background()
		objects = nil
		scheduling = &fakeScheduling{}
	})

	JustBeforeEach(func() {
		store = kube.NewStore(fake.NewClientBuilder().WithObjects(objects...).Build(), namespace)
	})

	stateMap := func(state string) client.Object {
		return &corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{Name: upgrade.StateConfigMap, Namespace: namespace},
			Data:       map[string]string{upgrade.StateKey: state},
		}
	}

	Context("without an upgrade state", func() {
		It("creates it on set", func() {
			Expect(upgrade.SetState(ctx, store, true)).To(Succeed())
			Expect(store.GetConfigMap(ctx, upgrade.StateConfigMap)).To(Equal(map[string]string{upgrade.StateKey: "Partial"}))
		})

		It("creates it as partial on rollback and enables scheduling", func() {
			Expect(upgrade.PartialRollback(ctx, store, scheduling)).To(Succeed())
			Expect(store.GetConfigMap(ctx, upgrade.StateConfigMap)).To(HaveKeyWithValue(upgrade.StateKey, "Partial"))
			Expect(scheduling.calls).To(Equal([]bool{true}))
		})
	})

	Context("with a partial upgrade state", func() {
		BeforeEach(func() {
			objects = append(objects, stateMap(upgrade.StatePartial))
		})

		It("replaces it on set", func() {
			Expect(upgrade.SetState(ctx, store, false)).To(Succeed())
			Expect(store.GetConfigMap(ctx, upgrade.StateConfigMap)).To(Equal(map[string]string{upgrade.StateKey: ""}))
		})

		It("enables scheduling on rollback", func() {
			Expect(upgrade.PartialRollback(ctx, store, scheduling)).To(Succeed())
			Expect(scheduling.calls).To(Equal([]bool{true}))
		})
	})

	Context("with a full upgrade state", func() {
		BeforeEach(func() {
			objects = append(objects, stateMap(""))
		})

		It("leaves scheduling alone on rollback", func() {
			Expect(upgrade.PartialRollback(ctx, store, scheduling)).To(Succeed())
			Expect(scheduling.calls).To(BeEmpty())
		})
	})
})

var _ = Describe("PreUpgradeBackup", func() {
	var (
		ctx   context.Context
		clk   *clocktesting.FakeClock
		start time.Time
		store *kube.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		clk = clocktesting.NewFakeClock(start)
		store = kube.NewStore(fake.NewClientBuilder().WithObjects(
			agentPod("agent-1", "a1"),
			agentPod("agent-2", "a2"),
			agentPod("agent-3", "a3"),
		).Build(), namespace)
	})

	It("creates the rollback backup once every rollback agent registered", func() {
		orch := &fakeOrchestrator{agents: []string{"a1", "a2", "a3"}, result: bro.ActionResultSuccess}

		Expect(upgrade.PreUpgradeBackup(ctx, orch, store, clk, "pre-upgrade")).To(Succeed())
		Expect(orch.created).To(Equal([]string{"ROLLBACK/pre-upgrade"}))
		Expect(clk.Since(start)).To(BeNumerically(">=", 10*time.Second))
	})

	It("fails when the backup fails", func() {
		orch := &fakeOrchestrator{agents: []string{"a1", "a2", "a3"}, result: bro.ActionResultFailure}

		err := upgrade.PreUpgradeBackup(ctx, orch, store, clk, "pre-upgrade")
		Expect(hook.IsError(err)).To(BeTrue())
	})
})
