package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/GKaszewski/k-core/pkg/dotdir"
)

var _ = Describe("Manager", func() {
	var (
		tmpDir string
		m      *dotdir.Manager
	)

	// chdir moves into dir for the current spec and points HOME at home.
	chdir := func(dir, home string) {
		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(dir)).To(Succeed())
		DeferCleanup(func() { _ = os.Chdir(origDir) })

		origHome := os.Getenv("HOME")
		Expect(os.Setenv("HOME", home)).To(Succeed())
		DeferCleanup(func() { _ = os.Setenv("HOME", origHome) })
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())

		// Resolve symlinks so paths match filepath.Abs results
		// (e.g. on macOS /var -> /private/var).
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = os.RemoveAll(tmpDir) })

		m = dotdir.NewManager()
	})

	Describe("Target", func() {
		It("creates the override directory", func() {
			dir := filepath.Join(tmpDir, "newdir")
			result, err := m.Target(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(dir))
			Expect(dir).To(BeADirectory())
		})

		It("prefers the override over a local .kcore dir", func() {
			Expect(os.Mkdir(filepath.Join(tmpDir, dotdir.DirName), 0o755)).To(Succeed())
			chdir(tmpDir, tmpDir)

			overrideDir := filepath.Join(tmpDir, "override")
			Expect(m.Target(overrideDir)).To(Equal(overrideDir))
		})

		It("finds a local .kcore dir before the home one", func() {
			home := filepath.Join(tmpDir, "home")
			Expect(os.MkdirAll(filepath.Join(home, dotdir.DirName), 0o755)).To(Succeed())
			local := filepath.Join(tmpDir, dotdir.DirName)
			Expect(os.Mkdir(local, 0o755)).To(Succeed())
			chdir(tmpDir, home)

			Expect(m.Target("")).To(Equal(local))
		})

		It("falls back to ~/.kcore", func() {
			home := filepath.Join(tmpDir, "home")
			Expect(os.MkdirAll(filepath.Join(home, dotdir.DirName), 0o755)).To(Succeed())
			work := filepath.Join(tmpDir, "work")
			Expect(os.Mkdir(work, 0o755)).To(Succeed())
			chdir(work, home)

			Expect(m.Target("")).To(Equal(filepath.Join(home, dotdir.DirName)))
		})

		It("returns empty when nothing exists and creates nothing", func() {
			empty := filepath.Join(tmpDir, "empty")
			Expect(os.Mkdir(empty, 0o755)).To(Succeed())
			chdir(empty, empty)

			Expect(m.Target("")).To(BeEmpty())
			Expect(filepath.Join(empty, dotdir.DirName)).NotTo(BeAnExistingFile())
		})
	})

	Describe("Init", func() {
		It("creates a local directory that Target then finds", func() {
			chdir(tmpDir, filepath.Join(tmpDir, "home"))

			dir, err := m.Init(true)
			Expect(err).NotTo(HaveOccurred())
			Expect(dir).To(Equal(filepath.Join(tmpDir, dotdir.DirName)))
			Expect(m.Target("")).To(Equal(dir))
		})

		It("creates the home directory", func() {
			home := filepath.Join(tmpDir, "home")
			Expect(os.Mkdir(home, 0o755)).To(Succeed())
			chdir(tmpDir, home)

			dir, err := m.Init(false)
			Expect(err).NotTo(HaveOccurred())
			Expect(dir).To(Equal(filepath.Join(home, dotdir.DirName)))
		})
	})
})
