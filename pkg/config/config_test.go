package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/GKaszewski/k-core/pkg/config"
	"github.com/GKaszewski/k-core/pkg/db"
	"github.com/GKaszewski/k-core/pkg/logger"
	"github.com/GKaszewski/k-core/pkg/session"
)

var _ = Describe("Configer", func() {
	var tmpDir string

	writeConfig := func(data string) {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = os.RemoveAll(tmpDir) })
	})

	Describe("LoadConfig", func() {
		It("returns defaults when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("merges file values over defaults", func() {
			writeConfig(`version = 0

[database]
url = "postgres://u:p@db:5432/app"
max_connections = 20

[broker]
url = "nats://nats:4222"

[server]
cors_origins = ["https://app.example.com"]
`)
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Database.URL).To(Equal("postgres://u:p@db:5432/app"))
			Expect(cfg.Database.MaxConnections).To(Equal(uint32(20)))
			Expect(cfg.Database.MinConnections).To(Equal(uint32(db.DefaultMinConnections)))
			Expect(cfg.Broker.URL).To(Equal("nats://nats:4222"))
			Expect(cfg.Server.CORSOrigins).To(ConsistOf("https://app.example.com"))
			Expect(cfg.Session.Table).To(Equal(session.DefaultTable))
			Expect(cfg.Embedding.Workers).To(Equal(uint(1)))
		})

		It("rejects malformed TOML", func() {
			writeConfig("[database\nurl = ")
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("parsing config TOML")))
		})

		It("rejects unsupported versions", func() {
			writeConfig("version = 7\n")
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version 7")))
		})
	})

	Describe("SaveConfig", func() {
		It("round-trips every section", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := config.PresetConfig("cluster")
			Expect(err).NotTo(HaveOccurred())
			cfg.Server.CORSOrigins = []string{"https://a.example.com", "https://b.example.com"}
			cfg.Log.JSON = true
			Expect(c.SaveConfig(cfg)).To(Succeed())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("refuses a nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(MatchError("cannot save nil config"))
		})
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		DescribeTable("stores typed values",
			func(key, value string) {
				Expect(c.SetConfigValue(key, value)).To(Succeed())
				Expect(c.GetConfigValue(key)).To(Equal(value))
			},
			Entry("string", "database.url", "sqlite://data/app.db"),
			Entry("uint32", "database.max_connections", "12"),
			Entry("duration", "database.acquire_timeout", "2s"),
			Entry("bool", "database.strict_scheme", "true"),
			Entry("uint", "embedding.workers", "4"),
			Entry("list", "server.cors_origins", "https://a.example.com,https://b.example.com"),
		)

		DescribeTable("rejects malformed values",
			func(key, value string) {
				Expect(c.SetConfigValue(key, value)).To(MatchError(ContainSubstring("invalid value for " + key)))
			},
			Entry("uint32 overflow", "database.max_connections", "5000000000"),
			Entry("negative", "embedding.dimensions", "-1"),
			Entry("duration", "session.expiry", "a week"),
			Entry("bool", "log.json", "maybe"),
		)

		It("rejects unknown keys", func() {
			Expect(c.SetConfigValue("proxy.upstream", "x")).To(MatchError(ContainSubstring("unknown config key")))
			_, err := c.GetConfigValue("proxy.upstream")
			Expect(err).To(HaveOccurred())
		})

		It("preserves other values", func() {
			Expect(c.SetConfigValue("broker.url", "kafka://k1:9092")).To(Succeed())
			Expect(c.SetConfigValue("vector.provider", "qdrant")).To(Succeed())

			Expect(c.GetConfigValue("broker.url")).To(Equal("kafka://k1:9092"))
			Expect(c.GetConfigValue("database.url")).To(Equal(db.DefaultURL))
		})
	})

	Describe("ValidConfigKeys", func() {
		It("lists every key exactly once, database first", func() {
			keys := config.ValidConfigKeys()
			Expect(keys[0]).To(Equal("database.url"))
			Expect(keys).To(ContainElements("session.expiry", "broker.url", "vector.collection", "embedding.workers", "log.pretty"))

			seen := map[string]bool{}
			for _, k := range keys {
				Expect(seen).NotTo(HaveKey(k))
				seen[k] = true
				Expect(config.IsValidConfigKey(k)).To(BeTrue())
			}
		})
	})
})

var _ = Describe("PresetConfig", func() {
	It("keeps dev fully in process", func() {
		cfg, err := config.PresetConfig("DEV")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Database.URL).To(Equal(db.DefaultURL))
		Expect(cfg.Broker.URL).To(Equal("memory://"))
		Expect(cfg.Vector.Provider).To(Equal("inmemory"))
		Expect(cfg.Embedding.Provider).To(Equal("hash"))
	})

	It("points cluster at networked backends", func() {
		cfg, err := config.PresetConfig("cluster")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Database.StrictScheme).To(BeTrue())
		Expect(cfg.Broker.URL).To(HavePrefix("nats://"))
		Expect(cfg.Vector.Provider).To(Equal("qdrant"))
	})

	It("rejects unknown presets", func() {
		_, err := config.PresetConfig("openai")
		Expect(err).To(MatchError(ContainSubstring("dev, local, cluster")))
	})
})

var _ = Describe("Descriptor", func() {
	It("converts the database section", func() {
		d, err := config.DatabaseConfig{
			URL:            "sqlite://app.db",
			MaxConnections: 8,
			AcquireTimeout: "250ms",
			StrictScheme:   true,
		}.Descriptor()
		Expect(err).NotTo(HaveOccurred())
		Expect(d.URL).To(Equal("sqlite://app.db"))
		Expect(d.MaxConnections).To(Equal(uint32(8)))
		Expect(d.MinConnections).To(Equal(uint32(db.DefaultMinConnections)))
		Expect(d.AcquireTimeout).To(Equal(250 * time.Millisecond))
		Expect(d.StrictScheme).To(BeTrue())
	})

	It("reports bad durations", func() {
		_, err := config.DatabaseConfig{AcquireTimeout: "soon"}.Descriptor()
		Expect(err).To(MatchError(ContainSubstring("database.acquire_timeout")))
	})

	It("defaults session durations", func() {
		s := config.SessionConfig{}
		Expect(s.ExpiryDuration()).To(Equal(7 * 24 * time.Hour))
		Expect(s.CleanupDuration()).To(Equal(session.DefaultCleanupInterval))
	})
})

var _ = Describe("LogConfig", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	Describe("OpenLog", func() {
		It("only builds console options without a file", func() {
			opts, closer, err := config.LogConfig{}.OpenLog(false)
			Expect(err).NotTo(HaveOccurred())
			Expect(opts).To(HaveLen(3))
			Expect(closer.Close()).To(Succeed())
		})

		It("appends JSON records to the log file", func() {
			path := filepath.Join(tmpDir, "logs", "kcore.log")
			opts, closer, err := config.LogConfig{File: path}.OpenLog(false)
			Expect(err).NotTo(HaveOccurred())

			var console bytes.Buffer
			l := logger.New(append(opts, logger.WithWriter(&console))...)
			l.Info("ready", "port", 8080)
			l.Debug("hidden")
			Expect(closer.Close()).To(Succeed())

			Expect(console.String()).To(ContainSubstring("ready"))
			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"msg":"ready"`))
			Expect(string(data)).To(ContainSubstring(`"port":8080`))
			Expect(string(data)).NotTo(ContainSubstring("hidden"))
		})

		It("fails when the file cannot be opened", func() {
			_, _, err := config.LogConfig{File: tmpDir}.OpenLog(false)
			Expect(err).To(MatchError(ContainSubstring("opening log file")))
		})
	})
})
