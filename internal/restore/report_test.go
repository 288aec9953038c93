// SPDX-License-Identifier: Apache-2.0

package restore_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	clocktesting "k8s.io/utils/clock/testing"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/cozystack/bro-hooks/internal/bro"
	"github.com/cozystack/bro-hooks/internal/hook"
	"github.com/cozystack/bro-hooks/internal/kube"
	"github.com/cozystack/bro-hooks/internal/restore"
)

var _ = Describe("Reporter", func() {
	var (
		ctx      context.Context
		clk      *clocktesting.FakeClock
		orch     *fakeBRO
		store    *kube.Store
		reporter *restore.Reporter
	)

	withActionID := func(id string) {
		Expect(store.PatchConfigMap(ctx, stateRecord, map[string]string{restore.KeyActionID: id})).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		clk = clocktesting.NewFakeClock(time.Now())
		orch = newFakeBRO()
		store = kube.NewStore(fake.NewClientBuilder().WithObjects(recordConfigMap()).Build(), namespace)
		reporter = restore.NewReporter(orch, store, clk)
	})

	It("skips when no action id is recorded", func() {
		Expect(reporter.Report(ctx, stateRecord, bro.ScopeDefault)).To(Succeed())
	})

	It("skips when the orchestrator does not know the action", func() {
		withActionID("42")
		orch.listed[bro.ScopeDefault] = []bro.Action{{ID: "7", Result: bro.ActionResultFailure}}
		Expect(reporter.Report(ctx, stateRecord, bro.ScopeDefault)).To(Succeed())
	})

	It("fails on more than one matching action", func() {
		withActionID("42")
		orch.listed[bro.ScopeDefault] = []bro.Action{{ID: "42"}, {ID: "42"}}
		err := reporter.Report(ctx, stateRecord, bro.ScopeDefault)
		Expect(hook.IsError(err)).To(BeTrue())
	})

	It("passes for a finished successful action", func() {
		withActionID("42")
		orch.listed[bro.ScopeDefault] = []bro.Action{{ID: "42", Name: "RESTORE", State: "FINISHED", Result: bro.ActionResultSuccess}}
		Expect(reporter.Report(ctx, stateRecord, bro.ScopeDefault)).To(Succeed())
	})

	It("fails for a finished failed action", func() {
		withActionID("42")
		orch.listed[bro.ScopeDefault] = []bro.Action{{ID: "42", Name: "RESTORE", State: "FINISHED", Result: bro.ActionResultFailure}}
		err := reporter.Report(ctx, stateRecord, bro.ScopeDefault)
		Expect(err).To(MatchError("Action 42/RESTORE failed with result FAILURE"))
	})

	It("waits for a running action", func() {
		withActionID("action-1")
		orch.listed[bro.ScopeDefault] = []bro.Action{{ID: "action-1", Name: "RESTORE", Scope: bro.ScopeDefault, State: bro.ActionStateRunning}}
		orch.snapshots["action-1"] = []bro.Action{
			{ID: "action-1", Name: "RESTORE", State: bro.ActionStateRunning},
			{ID: "action-1", Name: "RESTORE", State: "FINISHED", Result: bro.ActionResultFailure},
		}
		start := clk.Now()
		err := reporter.Report(ctx, stateRecord, bro.ScopeDefault)
		Expect(err).To(MatchError("Action RESTORE failed with result FAILURE"))
		Expect(clk.Since(start)).To(Equal(2 * restore.ActionInterval))
	})
})
