package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/kcore/internal/dagger"
)

// Build and return directory of go binaries
func (k *KCore) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	// define build matrix
	gooses := []string{"linux", "darwin"}
	goarches := []string{"amd64", "arm64"}

	outputs := dag.Directory()

	// CGO is off for cross builds, so sqlite comes from the pure Go driver.
	golang := dag.Container().
		From("golang:1.25-alpine").
		WithEnvVariable("CGO_ENABLED", "0").
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithDirectory("/src", k.Source).
		WithWorkdir("/src")

	for _, goos := range gooses {
		for _, goarch := range goarches {
			path := fmt.Sprintf("%s/%s/", goos, goarch)

			build := golang.
				WithEnvVariable("GOOS", goos).
				WithEnvVariable("GOARCH", goarch).
				WithExec([]string{"go", "build", "-tags", "purego", "-ldflags", ldflags, "-o", path, "./cli/kcore"})

			outputs = outputs.WithDirectory(path, build.Directory(path))
		}
	}

	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (k *KCore) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/GKaszewski/k-core/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/GKaszewski/k-core/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/GKaszewski/k-core/pkg/utils.Buildtime=%s'", buildtime),
	}

	return k.Build(ctx, strings.Join(ldflags, " "))
}
