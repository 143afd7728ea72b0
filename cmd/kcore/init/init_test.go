package initcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/GKaszewski/k-core/cmd/kcore/init"
	"github.com/GKaszewski/k-core/pkg/config"
)

func execute(args ...string) (string, error) {
	cmd := initcmder.NewInitCmd()
	cmd.PersistentFlags().String(config.FlagConfigDir, "", "")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

var _ = Describe("NewInitCmd", func() {
	It("rejects arguments", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Args(cmd, []string{})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
	})

	It("has --preset and --global flags", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Flags().Lookup("preset")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("global")).NotTo(BeNil())
	})
})

var _ = Describe("init execution", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())
		DeferCleanup(os.Chdir, origDir)
	})

	It("creates ./.kcore without a config file", func() {
		_, err := execute()
		Expect(err).NotTo(HaveOccurred())

		info, err := os.Stat(filepath.Join(tmpDir, ".kcore"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
		Expect(filepath.Join(tmpDir, ".kcore", "config.toml")).NotTo(BeAnExistingFile())
	})

	It("is idempotent", func() {
		_, err := execute()
		Expect(err).NotTo(HaveOccurred())
		_, err = execute()
		Expect(err).NotTo(HaveOccurred())
	})

	It("writes the cluster preset", func() {
		_, err := execute("--preset", "cluster")
		Expect(err).NotTo(HaveOccurred())

		var cfg config.Config
		_, err = toml.DecodeFile(filepath.Join(tmpDir, ".kcore", "config.toml"), &cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Database.URL).To(HavePrefix("postgres://"))
		Expect(cfg.Database.StrictScheme).To(BeTrue())
		Expect(cfg.Broker.URL).To(Equal("nats://localhost:4222"))
		Expect(cfg.Vector.Provider).To(Equal("qdrant"))
	})

	It("never overwrites an existing config", func() {
		dir := filepath.Join(tmpDir, ".kcore")
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
		path := filepath.Join(dir, "config.toml")
		Expect(os.WriteFile(path, []byte("version = 0\n"), 0o600)).To(Succeed())

		out, err := execute("--preset", "local")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("leaving it untouched"))

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("version = 0\n"))
	})

	It("honours --config-dir", func() {
		dir := filepath.Join(tmpDir, "custom")
		_, err := execute("--config-dir", dir, "--preset", "dev")
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Join(dir, "config.toml")).To(BeAnExistingFile())
		Expect(filepath.Join(tmpDir, ".kcore")).NotTo(BeAnExistingFile())
	})

	It("rejects unknown presets before creating anything", func() {
		_, err := execute("--preset", "mainframe")
		Expect(err).To(MatchError(ContainSubstring("unknown preset")))
		Expect(filepath.Join(tmpDir, ".kcore")).NotTo(BeAnExistingFile())
	})
})
