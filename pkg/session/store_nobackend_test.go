//go:build nosqlite && nopostgres

package session_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/GKaszewski/k-core/pkg/apperr"
	"github.com/GKaszewski/k-core/pkg/db"
	"github.com/GKaszewski/k-core/pkg/session"
)

var _ = Describe("InfraStore with no database backend compiled in", func() {
	It("cannot connect, and every store operation is a backend error", func() {
		ctx := context.Background()

		pool, err := db.Connect(ctx, db.InMemoryConfig())
		Expect(apperr.IsConfiguration(err)).To(BeTrue())
		Expect(pool).To(BeNil())

		store := session.NewInfraStore(pool)
		Expect(apperr.IsBackend(store.Save(ctx, &session.Record{ID: "a", ExpiresAt: time.Now().Add(time.Hour)}))).To(BeTrue())
		_, err = store.Load(ctx, "a")
		Expect(apperr.IsBackend(err)).To(BeTrue())
		Expect(apperr.IsBackend(store.Delete(ctx, "a"))).To(BeTrue())
		Expect(apperr.IsBackend(store.Migrate(ctx))).To(BeTrue())
		_, err = store.DeleteExpired(ctx)
		Expect(apperr.IsBackend(err)).To(BeTrue())
	})
})
