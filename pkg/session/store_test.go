package session_test

import (
	"context"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/GKaszewski/k-core/pkg/apperr"
	"github.com/GKaszewski/k-core/pkg/db"
	"github.com/GKaszewski/k-core/pkg/logger"
	"github.com/GKaszewski/k-core/pkg/session"
)

type expiringStore interface {
	session.Store
	session.Expirer
}

// describeStore registers the behaviour every Store adapter shares.
func describeStore(name string, build func(now func() time.Time) (expiringStore, func())) {
	Describe(name, func() {
		var (
			ctx     context.Context
			store   expiringStore
			cleanup func()
			clock   atomic.Int64
		)

		now := func() time.Time { return time.Unix(0, clock.Load()) }

		BeforeEach(func() {
			ctx = context.Background()
			clock.Store(time.Now().UnixNano())
			cleanup = nil
			store, cleanup = build(now)
			Expect(store.Migrate(ctx)).To(Succeed())
		})

		AfterEach(func() {
			if cleanup != nil {
				cleanup()
			}
		})

		It("round-trips a record", func() {
			rec := &session.Record{ID: session.NewID(), Data: []byte(`{"visits":1}`), ExpiresAt: now().Add(time.Hour)}
			Expect(store.Save(ctx, rec)).To(Succeed())

			got, err := store.Load(ctx, rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil())
			Expect(got.ID).To(Equal(rec.ID))
			Expect(got.Data).To(Equal(rec.Data))
			Expect(got.ExpiresAt.Equal(rec.ExpiresAt)).To(BeTrue())
		})

		It("replaces a record saved under the same id", func() {
			id := session.NewID()
			Expect(store.Save(ctx, &session.Record{ID: id, Data: []byte("one"), ExpiresAt: now().Add(time.Hour)})).To(Succeed())
			Expect(store.Save(ctx, &session.Record{ID: id, Data: []byte("two"), ExpiresAt: now().Add(2 * time.Hour)})).To(Succeed())

			got, err := store.Load(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Data).To(Equal([]byte("two")))
		})

		It("stores empty data", func() {
			id := session.NewID()
			Expect(store.Save(ctx, &session.Record{ID: id, ExpiresAt: now().Add(time.Hour)})).To(Succeed())

			got, err := store.Load(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil())
			Expect(got.Data).To(BeEmpty())
		})

		It("loads nothing after delete", func() {
			rec := &session.Record{ID: session.NewID(), Data: []byte("x"), ExpiresAt: now().Add(time.Hour)}
			Expect(store.Save(ctx, rec)).To(Succeed())
			Expect(store.Delete(ctx, rec.ID)).To(Succeed())

			got, err := store.Load(ctx, rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
		})

		It("deletes unknown ids without error", func() {
			Expect(store.Delete(ctx, "missing")).To(Succeed())
		})

		It("loads nothing for unknown ids", func() {
			got, err := store.Load(ctx, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
		})

		It("treats expired records as absent", func() {
			rec := &session.Record{ID: session.NewID(), Data: []byte("x"), ExpiresAt: now().Add(time.Minute)}
			Expect(store.Save(ctx, rec)).To(Succeed())

			clock.Add(int64(2 * time.Minute))

			got, err := store.Load(ctx, rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
		})

		It("keeps a record until its exact expiry", func() {
			clock.Store(time.Unix(1_700_000_000, 0).Add(600 * time.Millisecond).UnixNano())
			rec := &session.Record{ID: session.NewID(), Data: []byte("x"), ExpiresAt: now().Add(300 * time.Millisecond)}
			Expect(store.Save(ctx, rec)).To(Succeed())

			got, err := store.Load(ctx, rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil())
			Expect(got.ExpiresAt.Equal(rec.ExpiresAt)).To(BeTrue())

			clock.Add(int64(300 * time.Millisecond))

			got, err = store.Load(ctx, rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
		})

		It("purges only expired records", func() {
			live := &session.Record{ID: session.NewID(), Data: []byte("live"), ExpiresAt: now().Add(time.Hour)}
			stale := &session.Record{ID: session.NewID(), Data: []byte("stale"), ExpiresAt: now().Add(-time.Hour)}
			Expect(store.Save(ctx, live)).To(Succeed())
			Expect(store.Save(ctx, stale)).To(Succeed())

			n, err := store.DeleteExpired(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))

			got, err := store.Load(ctx, live.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil())
		})

		It("rejects an empty id", func() {
			err := store.Save(ctx, &session.Record{Data: []byte("x"), ExpiresAt: now().Add(time.Hour)})
			Expect(apperr.IsValidation(err)).To(BeTrue())
		})

		It("migrates idempotently", func() {
			Expect(store.Migrate(ctx)).To(Succeed())
			Expect(store.Migrate(ctx)).To(Succeed())
		})
	})
}

var _ = Describe("Store adapters", func() {
	describeStore("MemoryStore", func(now func() time.Time) (expiringStore, func()) {
		return session.NewMemoryStore(session.WithClock(now)), func() {}
	})
})

var _ = Describe("InfraStore", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("without a usable backend", func() {
		var store *session.InfraStore

		BeforeEach(func() {
			store = session.NewInfraStore(&db.Pool{}, session.WithLogger(logger.Nop()))
		})

		It("fails every operation with a backend error", func() {
			err := store.Save(ctx, &session.Record{ID: "a", ExpiresAt: time.Now().Add(time.Hour)})
			Expect(apperr.IsBackend(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("no database backend enabled for sessions"))

			_, err = store.Load(ctx, "a")
			Expect(apperr.IsBackend(err)).To(BeTrue())

			Expect(apperr.IsBackend(store.Delete(ctx, "a"))).To(BeTrue())
			Expect(apperr.IsBackend(store.Migrate(ctx))).To(BeTrue())

			_, err = store.DeleteExpired(ctx)
			Expect(apperr.IsBackend(err)).To(BeTrue())
		})

		It("accepts a nil pool", func() {
			store := session.NewInfraStore(nil)
			Expect(apperr.IsBackend(store.Migrate(ctx))).To(BeTrue())
		})
	})
})

var _ = Describe("ContinuouslyDeleteExpired", func() {
	It("sweeps until the context ends", func() {
		ctx, cancel := context.WithCancel(context.Background())
		store := session.NewMemoryStore()
		Expect(store.Save(ctx, &session.Record{ID: "old", ExpiresAt: time.Now().Add(-time.Minute)})).To(Succeed())
		Expect(store.Save(ctx, &session.Record{ID: "new", ExpiresAt: time.Now().Add(time.Hour)})).To(Succeed())

		done := make(chan struct{})
		go func() {
			defer close(done)
			session.ContinuouslyDeleteExpired(ctx, store, 10*time.Millisecond, logger.Nop())
		}()

		Eventually(store.Len).Should(Equal(1))
		cancel()
		Eventually(done).Should(BeClosed())
	})
})
