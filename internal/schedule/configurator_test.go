// SPDX-License-Identifier: Apache-2.0

package schedule_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	clocktesting "k8s.io/utils/clock/testing"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/cozystack/bro-hooks/internal/bro"
	"github.com/cozystack/bro-hooks/internal/hook"
	"github.com/cozystack/bro-hooks/internal/kube"
	"github.com/cozystack/bro-hooks/internal/schedule"
)

const namespace = "eric-bro"

// fakeScheduler keeps the scheduler and retention of one scope in memory.
type fakeScheduler struct {
	scheduler bro.Scheduler
	updates   []bro.SchedulerUpdate
	intervals []bro.Interval
	nextID    int
	retention bro.Retention
	result    string
}

func (f *fakeScheduler) Status(context.Context) (*bro.Status, error) {
	return &bro.Status{Health: "Healthy"}, nil
}

func (f *fakeScheduler) GetAction(_ context.Context, scope bro.Scope, id string) (*bro.Action, error) {
	return &bro.Action{ID: id, Scope: scope, Name: bro.ActionHousekeeping, State: "FINISHED", Result: f.result}, nil
}

func (f *fakeScheduler) GetScheduler(_ context.Context, scope bro.Scope) (*bro.Scheduler, error) {
	Expect(scope).To(Equal(bro.ScopeDefault))
	s := f.scheduler
	return &s, nil
}

func (f *fakeScheduler) UpdateScheduler(_ context.Context, scope bro.Scope, update bro.SchedulerUpdate) error {
	Expect(scope).To(Equal(bro.ScopeDefault))
	f.updates = append(f.updates, update)
	if update.Enabled != nil {
		f.scheduler.Enabled = *update.Enabled
	}
	if update.Prefix != nil {
		f.scheduler.Prefix = *update.Prefix
	}
	if update.AutoExport != nil {
		f.scheduler.AutoExport = *update.AutoExport
	}
	if update.ExportURI != "" {
		f.scheduler.ExportURI = update.ExportURI
	}
	return nil
}

func (f *fakeScheduler) Intervals(context.Context, bro.Scope) ([]bro.Interval, error) {
	return append([]bro.Interval(nil), f.intervals...), nil
}

func (f *fakeScheduler) AddInterval(_ context.Context, _ bro.Scope, interval bro.Interval) (*bro.Interval, error) {
	f.nextID++
	interval.ID = fmt.Sprintf("e%d", f.nextID)
	f.intervals = append(f.intervals, interval)
	return &interval, nil
}

func (f *fakeScheduler) DeleteInterval(_ context.Context, _ bro.Scope, id string) error {
	for i, interval := range f.intervals {
		if interval.ID == id {
			f.intervals = append(f.intervals[:i], f.intervals[i+1:]...)
			return nil
		}
	}
	return &bro.APIError{StatusCode: 404}
}

func (f *fakeScheduler) GetRetention(context.Context, bro.Scope) (*bro.Retention, error) {
	r := f.retention
	return &r, nil
}

func (f *fakeScheduler) ApplyRetention(_ context.Context, scope bro.Scope, retention bro.Retention) (*bro.Action, error) {
	if f.result == bro.ActionResultSuccess {
		f.retention = retention
	}
	return &bro.Action{ID: "h1", Scope: scope, Name: bro.ActionHousekeeping, State: "FINISHED", Result: f.result}, nil
}

// deniedSecrets refuses every secret read.
type deniedSecrets struct {
	deleted []string
}

func (d *deniedSecrets) GetSecret(_ context.Context, name string) (map[string][]byte, error) {
	return nil, apierrors.NewForbidden(corev1.Resource("secrets"), name, fmt.Errorf("no access"))
}

func (d *deniedSecrets) DeleteSecret(_ context.Context, name string) error {
	d.deleted = append(d.deleted, name)
	return nil
}

var _ = Describe("Configurator", func() {
	var (
		ctx          context.Context
		orch         *fakeScheduler
		store        *kube.Store
		configurator *schedule.Configurator
	)

	BeforeEach(func() {
		ctx = context.Background()
		orch = &fakeScheduler{
			scheduler: bro.Scheduler{Enabled: true, Prefix: "OLD"},
			intervals: []bro.Interval{{ID: "old-1", Hours: 1}, {ID: "old-2", Days: 1}},
			nextID:    10,
			retention: bro.Retention{Limit: 1, Purge: false},
			result:    bro.ActionResultSuccess,
		}
		c := fake.NewClientBuilder().WithObjects(
			&corev1.Secret{
				ObjectMeta: metav1.ObjectMeta{Name: "export", Namespace: namespace},
				Data: map[string][]byte{
					schedule.ExportURIKey:         []byte("sftp://user@host/export"),
					schedule.ExportCredentialsKey: []byte("s3cret"),
				},
			},
			&corev1.Secret{
				ObjectMeta: metav1.ObjectMeta{Name: "half", Namespace: namespace},
				Data:       map[string][]byte{schedule.ExportURIKey: []byte("sftp://user@host/export")},
			},
		).Build()
		store = kube.NewStore(c, namespace)
		configurator = schedule.NewConfigurator(orch, store, clocktesting.NewFakeClock(time.Now()))
	})

	DescribeTable("disables scheduling for absent or malformed values",
		func(blob string) {
			Expect(configurator.ConfigureScheduling(ctx, blob, "")).To(Succeed())
			Expect(orch.scheduler.Enabled).To(BeFalse())
			Expect(orch.intervals).To(BeEmpty())
		},
		Entry("empty", ""),
		Entry("null", "null"),
		Entry("not an object", "just text"),
		Entry("broken json", `{"schedules": [`),
		Entry("wrong types", `{"backupPrefix": {"a": 1}}`),
		Entry("yaml", "enabled: no"),
		Entry("yaml schedules", "schedules:\n- every: 1d"),
	)

	It("replaces intervals and skips invalid ones", func() {
		blob := `{"backupPrefix": "NIGHTLY", "schedules": [
			{"every": "2d4m", "start": "2025-03-01T10:30:00", "stop": "not a date"},
			{"every": "1week"},
			{"every": ""},
			{"start": "2025-03-01T10:30:00"},
			{"every": 5},
			{"every": "0m"},
			{"every": "0w0d0h0m"},
			{"every": "12h"}
		]}`
		Expect(configurator.ConfigureScheduling(ctx, blob, "")).To(Succeed())

		Expect(orch.scheduler.Enabled).To(BeTrue())
		Expect(orch.scheduler.Prefix).To(Equal("NIGHTLY"))
		Expect(orch.intervals).To(Equal([]bro.Interval{
			{ID: "e11", Days: 2, Minutes: 4, StartTime: "2025-03-01T10:30:00"},
			{ID: "e12", Hours: 12},
		}))
	})

	It("defaults the prefix and leaves export unchanged without a secret", func() {
		Expect(configurator.ConfigureScheduling(ctx, `{}`, "missing")).To(Succeed())

		Expect(orch.scheduler.Enabled).To(BeTrue())
		Expect(orch.scheduler.Prefix).To(Equal(schedule.DefaultPrefix))
		Expect(orch.updates).To(HaveLen(1))
		Expect(orch.updates[0].AutoExport).To(BeNil())
		Expect(orch.intervals).To(BeEmpty())
	})

	It("keeps an explicitly empty prefix", func() {
		Expect(configurator.ConfigureScheduling(ctx, `{"backupPrefix": ""}`, "")).To(Succeed())

		Expect(orch.updates).To(HaveLen(1))
		Expect(orch.updates[0].Prefix).To(Equal(ptr.To("")))
		Expect(orch.scheduler.Prefix).To(BeEmpty())
	})

	It("creates the schedules when the export secret cannot be read", func() {
		secrets := &deniedSecrets{}
		configurator = schedule.NewConfigurator(orch, secrets, clocktesting.NewFakeClock(time.Now()))

		Expect(configurator.ConfigureScheduling(ctx, `{"schedules":[{"every":"1d"}]}`, "export")).To(Succeed())

		Expect(orch.scheduler.Enabled).To(BeTrue())
		Expect(orch.updates[0].AutoExport).To(BeNil())
		Expect(orch.intervals).To(Equal([]bro.Interval{{ID: "e11", Days: 1}}))
		Expect(secrets.deleted).To(BeEmpty())
	})

	It("enables export from the secret and consumes it", func() {
		Expect(configurator.ConfigureScheduling(ctx, `{"schedules": []}`, "export")).To(Succeed())

		Expect(orch.scheduler.AutoExport).To(BeTrue())
		Expect(orch.scheduler.ExportURI).To(Equal("sftp://user@host/export"))
		Expect(orch.updates[0].ExportPassword).To(Equal("s3cret"))
		_, err := store.GetSecret(ctx, "export")
		Expect(err).To(HaveOccurred())
	})

	It("keeps an incomplete secret and leaves export unchanged", func() {
		Expect(configurator.ConfigureScheduling(ctx, `{}`, "half")).To(Succeed())

		Expect(orch.updates[0].AutoExport).To(BeNil())
		Expect(store.GetSecret(ctx, "half")).NotTo(BeEmpty())
	})

	It("toggles only the admin state", func() {
		Expect(configurator.EnableScheduling(ctx, false)).To(Succeed())
		Expect(orch.updates).To(Equal([]bro.SchedulerUpdate{{Enabled: ptr.To(false)}}))
		Expect(orch.intervals).To(HaveLen(2))
	})

	Describe("ConfigureRetention", func() {
		It("applies limit and auto delete", func() {
			Expect(configurator.ConfigureRetention(ctx, `{"limit":2,"autoDelete":true}`)).To(Succeed())
			Expect(orch.retention).To(Equal(bro.Retention{Limit: 2, Purge: true}))
		})

		It("falls back per field", func() {
			Expect(configurator.ConfigureRetention(ctx, `{"limit":5}`)).To(Succeed())
			Expect(orch.retention).To(Equal(bro.Retention{Limit: 5, Purge: true}))

			Expect(configurator.ConfigureRetention(ctx, `{"autoDelete":false}`)).To(Succeed())
			Expect(orch.retention).To(Equal(bro.Retention{Limit: 2, Purge: false}))
		})

		It("uses the defaults for unparsable values", func() {
			Expect(configurator.ConfigureRetention(ctx, "")).To(Succeed())
			Expect(orch.retention).To(Equal(bro.Retention{Limit: 2, Purge: true}))

			Expect(configurator.ConfigureRetention(ctx, "limit: 5\nautoDelete: false")).To(Succeed())
			Expect(orch.retention).To(Equal(bro.Retention{Limit: 2, Purge: true}))
		})

		It("fails when the housekeeping action fails", func() {
			orch.result = bro.ActionResultFailure
			err := configurator.ConfigureRetention(ctx, `{"limit":2}`)
			Expect(hook.IsError(err)).To(BeTrue())
		})
	})
})
