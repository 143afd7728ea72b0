//go:build !nosqlite

package session_test

import (
	"context"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/GKaszewski/k-core/pkg/db"
	"github.com/GKaszewski/k-core/pkg/session"
)

var _ = Describe("Store adapters over sqlite", func() {
	describeStore("InfraStore over in-memory sqlite", func(now func() time.Time) (expiringStore, func()) {
		pool, err := db.Connect(context.Background(), db.InMemoryConfig())
		Expect(err).NotTo(HaveOccurred())
		return session.NewInfraStore(pool, session.WithClock(now)), func() { pool.Close() }
	})

	describeStore("InfraStore over file sqlite", func(now func() time.Time) (expiringStore, func()) {
		path := filepath.Join(GinkgoT().TempDir(), "sessions.db")
		pool, err := db.Connect(context.Background(), db.NewConfig("sqlite://"+path))
		Expect(err).NotTo(HaveOccurred())
		return session.NewInfraStore(pool, session.WithClock(now), session.WithTable("app_sessions")), func() { pool.Close() }
	})
})

var _ = Describe("InfraStore over sqlite", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("selects the sqlite adapter for a sqlite pool", func() {
		pool, err := db.Connect(ctx, db.InMemoryConfig())
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		store := session.NewInfraStore(pool)
		Expect(store.Kind()).To(Equal(db.KindSQLite))

		_, ok := store.SQLite()
		Expect(ok).To(BeTrue())
	})

	Describe("handles sharing state", func() {
		It("agree when they open the same file", func() {
			url := "sqlite:" + filepath.Join(GinkgoT().TempDir(), "shared.db")

			poolA, err := db.Connect(ctx, db.NewConfig(url))
			Expect(err).NotTo(HaveOccurred())
			defer poolA.Close()
			poolB, err := db.Connect(ctx, db.NewConfig(url))
			Expect(err).NotTo(HaveOccurred())
			defer poolB.Close()

			a := session.NewInfraStore(poolA)
			b := session.NewInfraStore(poolB)
			Expect(a.Migrate(ctx)).To(Succeed())

			rec := &session.Record{ID: session.NewID(), Data: []byte("shared"), ExpiresAt: time.Now().Add(time.Hour)}
			Expect(a.Save(ctx, rec)).To(Succeed())

			got, err := b.Load(ctx, rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil())
			Expect(got.Data).To(Equal([]byte("shared")))
		})

		It("diverge when each is in memory", func() {
			poolA, err := db.Connect(ctx, db.InMemoryConfig())
			Expect(err).NotTo(HaveOccurred())
			defer poolA.Close()
			poolB, err := db.Connect(ctx, db.InMemoryConfig())
			Expect(err).NotTo(HaveOccurred())
			defer poolB.Close()

			a := session.NewInfraStore(poolA)
			b := session.NewInfraStore(poolB)
			Expect(a.Migrate(ctx)).To(Succeed())
			Expect(b.Migrate(ctx)).To(Succeed())

			rec := &session.Record{ID: session.NewID(), Data: []byte("private"), ExpiresAt: time.Now().Add(time.Hour)}
			Expect(a.Save(ctx, rec)).To(Succeed())

			got, err := b.Load(ctx, rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
		})
	})
})
