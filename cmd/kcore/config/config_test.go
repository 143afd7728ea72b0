package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	kcorecmder "github.com/GKaszewski/k-core/cmd/kcore"
	"github.com/GKaszewski/k-core/pkg/config"
)

func run(args ...string) (string, error) {
	root := kcorecmder.NewKcoreCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return ansi.Strip(out.String()), err
}

var _ = Describe("config command", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("sets a value and reads it back", func() {
		_, err := run("config", "set", "broker.url", "nats://localhost:4222", "--config-dir", dir)
		Expect(err).NotTo(HaveOccurred())

		out, err := run("config", "get", "broker.url", "--config-dir", dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("nats://localhost:4222"))

		data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
		Expect(err).NotTo(HaveOccurred())
		cfg, err := config.ParseConfigTOML(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Broker.URL).To(Equal("nats://localhost:4222"))
	})

	It("reports defaults for unset keys", func() {
		out, err := run("config", "get", "server.listen", "--config-dir", dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring(":8080"))
	})

	It("rejects unknown keys", func() {
		_, err := run("config", "get", "database.nope", "--config-dir", dir)
		Expect(err).To(MatchError(ContainSubstring(`unknown config key: "database.nope"`)))

		_, err = run("config", "set", "database.nope", "x", "--config-dir", dir)
		Expect(err).To(HaveOccurred())
	})

	It("rejects values that do not parse", func() {
		_, err := run("config", "set", "embedding.workers", "many", "--config-dir", dir)
		Expect(err).To(HaveOccurred())
	})

	It("lists every key", func() {
		_, err := run("config", "set", "database.url", "sqlite://app.db", "--config-dir", dir)
		Expect(err).NotTo(HaveOccurred())

		out, err := run("config", "list", "--config-dir", dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Using config file"))
		for _, key := range config.ValidConfigKeys() {
			Expect(out).To(ContainSubstring(key))
		}
		Expect(out).To(ContainSubstring("sqlite://app.db"))
	})
})
