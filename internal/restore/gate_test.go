// SPDX-License-Identifier: Apache-2.0

package restore_test

import (
	"context"
	"errors"
	"net/url"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/cozystack/bro-hooks/internal/bro"
	"github.com/cozystack/bro-hooks/internal/restore"
)

// unreachable fails with a transport error a number of times.
type unreachable struct {
	failures int
	calls    int
	err      error
}

func (u *unreachable) Status(context.Context) (*bro.Status, error) {
	u.calls++
	if u.calls <= u.failures {
		return nil, u.err
	}
	return &bro.Status{Health: "Healthy"}, nil
}

var _ = Describe("Gate", func() {
	var (
		ctx   context.Context
		clk   *clocktesting.FakeClock
		start time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		clk = clocktesting.NewFakeClock(start)
	})

	It("polls until every required agent is registered", func() {
		orch := newFakeBRO()
		orch.statuses = [][]string{{"a1"}, {"a1"}, {"a1", "a2", "a3"}}

		gate := restore.NewGate(orch, clk, restore.RestoreAgentsInterval)
		Expect(gate.WaitForAgents(ctx, []string{"a1", "a2"})).To(Succeed())
		Expect(orch.statusCalls).To(Equal(3))
		Expect(clk.Since(start)).To(Equal(2 * restore.RestoreAgentsInterval))
	})

	It("does not wait when nothing is required", func() {
		orch := newFakeBRO()
		orch.statuses = [][]string{nil}

		Expect(restore.NewGate(orch, clk, time.Second).WaitForAgents(ctx, nil)).To(Succeed())
		Expect(clk.Since(start)).To(BeZero())
	})

	It("stops when the context is cancelled", func() {
		orch := newFakeBRO()
		orch.statuses = [][]string{{}}
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := restore.NewGate(orch, clk, time.Second).WaitForAgents(cancelled, []string{"a1"})
		Expect(err).To(MatchError(context.Canceled))
	})

	It("waits for the orchestrator to become reachable", func() {
		agents := &unreachable{failures: 2, err: &url.Error{Op: "Get", URL: "http://bro", Err: errors.New("connection refused")}}

		Expect(restore.NewGate(agents, clk, restore.ReadyInterval).WaitReady(ctx)).To(Succeed())
		Expect(agents.calls).To(Equal(3))
		Expect(clk.Since(start)).To(Equal(2 * restore.ReadyInterval))
	})

	It("returns other status errors at once", func() {
		agents := &unreachable{failures: 5, err: &bro.APIError{StatusCode: 500}}

		Expect(restore.NewGate(agents, clk, restore.ReadyInterval).WaitReady(ctx)).NotTo(Succeed())
		Expect(agents.calls).To(Equal(1))
	})
})
