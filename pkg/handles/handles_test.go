package handles_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/GKaszewski/k-core/pkg/apperr"
	brokerutils "github.com/GKaszewski/k-core/pkg/broker/utils"
	"github.com/GKaszewski/k-core/pkg/config"
	"github.com/GKaszewski/k-core/pkg/db"
	"github.com/GKaszewski/k-core/pkg/handles"
	"github.com/GKaszewski/k-core/pkg/session"
)

var _ = Describe("Open", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("opens the dev preset in process", func() {
		cfg, err := config.PresetConfig("dev")
		Expect(err).NotTo(HaveOccurred())
		cfg.Embedding.Workers = 2

		h, err := handles.Open(ctx, cfg, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(h.Close)

		Expect(h.Pool.Kind()).To(Equal(db.KindSQLite))
		Expect(h.Sessions.Kind()).To(Equal(db.KindSQLite))
		Expect(h.Broker.Kind()).To(Equal(brokerutils.KindMemory))
		Expect(h.Embedder.Size()).To(Equal(2))

		Expect(h.Sessions.Migrate(ctx)).To(Succeed())
		Expect(h.Sessions.Save(ctx, &session.Record{ID: "a", Data: []byte("x"), ExpiresAt: time.Now().Add(time.Hour)})).To(Succeed())

		vec, err := h.Embedder.Embed(ctx, "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(HaveLen(int(cfg.Embedding.Dimensions)))

		deps := h.Deps()
		Expect(deps.Embedder).NotTo(BeNil())
		Expect(deps.Vectors).NotTo(BeNil())
	})

	It("uses the configured session table", func() {
		cfg := config.NewDefaultConfig()
		cfg.Session.Table = "web_sessions"

		h, err := handles.OpenDatabase(ctx, cfg, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(h.Close)

		Expect(h.Sessions.Migrate(ctx)).To(Succeed())
		n, err := h.Pool.Exec(ctx, "DELETE FROM web_sessions")
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
	})

	It("closes what it opened when a later handle fails", func() {
		cfg := config.NewDefaultConfig()
		cfg.Broker.URL = "amqp://rabbit:5672"

		_, err := handles.Open(ctx, cfg, nil)
		Expect(apperr.IsConfiguration(err)).To(BeTrue())
	})

	It("rejects an unknown embedding provider", func() {
		cfg := config.NewDefaultConfig()
		cfg.Embedding.Provider = "word2vec"

		_, err := handles.Open(ctx, cfg, nil)
		Expect(apperr.IsConfiguration(err)).To(BeTrue())
	})

	It("reports strict scheme failures", func() {
		cfg := config.NewDefaultConfig()
		cfg.Database.URL = "mysql://db/app"
		cfg.Database.StrictScheme = true

		_, err := handles.OpenDatabase(ctx, cfg, nil)
		Expect(apperr.IsConfiguration(err)).To(BeTrue())
	})

	It("closes idempotently", func() {
		h, err := handles.OpenDatabase(ctx, config.NewDefaultConfig(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(h.Close()).To(Succeed())
		Expect(h.Close()).To(Succeed())
	})
})
