// SPDX-License-Identifier: Apache-2.0

package restore_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cozystack/bro-hooks/internal/bro"
	"github.com/cozystack/bro-hooks/internal/hook"
	"github.com/cozystack/bro-hooks/internal/restore"
)

var _ = Describe("Classify", func() {
	It("treats SUCCESS as success", func() {
		outcome, err := restore.Classify(&bro.Action{Name: "RESTORE", Result: bro.ActionResultSuccess})
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(restore.Succeeded))
	})

	It("treats SUCCESS as success even with a missing agents message", func() {
		outcome, _ := restore.Classify(&bro.Action{
			Result:         bro.ActionResultSuccess,
			AdditionalInfo: "Agents with the following IDs are required: [a1]",
		})
		Expect(outcome).To(Equal(restore.Succeeded))
	})

	It("reports waiting when required agents are listed", func() {
		action := &bro.Action{
			Name:           "RESTORE",
			Result:         bro.ActionResultFailure,
			AdditionalInfo: "Agents with the following IDs are required: [a,b]",
		}
		outcome, err := restore.Classify(action)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(restore.Waiting))

		agents, ok := restore.MissingAgents(action)
		Expect(ok).To(BeTrue())
		Expect(agents).To(Equal([]string{"a", "b"}))
	})

	It("finds the agent list anywhere in the info", func() {
		action := &bro.Action{
			Result:         bro.ActionResultFailure,
			AdditionalInfo: "Restore of [a3] cannot start. Agents with the following IDs are required",
		}
		outcome, err := restore.Classify(action)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(restore.Waiting))

		agents, _ := restore.MissingAgents(action)
		Expect(agents).To(Equal([]string{"a3"}))
	})

	It("reports waiting when no agent is registered", func() {
		outcome, err := restore.Classify(&bro.Action{
			Result:         bro.ActionResultFailure,
			AdditionalInfo: "Failing job for not having any registered agents",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(restore.Waiting))
	})

	It("fails when the required agents marker has no list", func() {
		outcome, err := restore.Classify(&bro.Action{
			Name:           "RESTORE",
			Result:         bro.ActionResultFailure,
			AdditionalInfo: "Agents with the following IDs are required",
		})
		Expect(outcome).To(Equal(restore.Failed))
		Expect(hook.IsError(err)).To(BeTrue())
	})

	It("fails with name, result and flattened info otherwise", func() {
		outcome, err := restore.Classify(&bro.Action{
			Name:           "RESTORE",
			Result:         bro.ActionResultFailure,
			AdditionalInfo: "disk\nfull",
		})
		Expect(outcome).To(Equal(restore.Failed))
		Expect(hook.IsError(err)).To(BeTrue())
		Expect(err).To(MatchError("Action RESTORE failed with result FAILURE: disk full"))
	})

	It("uses None for missing info", func() {
		_, err := restore.Classify(&bro.Action{Name: "RESTORE", Result: bro.ActionResultFailure})
		Expect(err).To(MatchError("Action RESTORE failed with result FAILURE: None"))
	})
})
