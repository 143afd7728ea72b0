// kcore CI/CD
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
package main

import (
	"context"

	"dagger/kcore/internal/dagger"
)

// KCore is the main module for the kcore CI/CD pipeline
type KCore struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new kcore CI/CD module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".direnv", ".devenv", "build", "tmp"]
	source *dagger.Directory,
) *KCore {
	return &KCore{
		Source: source,
	}
}

// goContainer returns a Debian Bookworm-based Go container with gcc,
// libsqlite3-dev, CGO enabled, and the project source mounted.
func (k *KCore) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-bookworm").
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{"apt-get", "install", "-y", "gcc", "libsqlite3-dev"}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", k.Source)
}

// tagRun is one "go test" invocation of TestMatrix.
type tagRun struct {
	tags     string
	packages []string
}

// tagRuns cover both sqlite drivers across the tree, then the backend
// packages with one or both database backends compiled out.
var tagRuns = []tagRun{
	{tags: "", packages: []string{"./..."}},
	{tags: "purego", packages: []string{"./..."}},
	{tags: "nosqlite", packages: []string{"./pkg/db/...", "./pkg/session/..."}},
	{tags: "nopostgres", packages: []string{"./pkg/db/...", "./pkg/session/..."}},
	{tags: "nosqlite,nopostgres", packages: []string{"./pkg/db/...", "./pkg/session/..."}},
}

// Test runs the unit tests with the default backends via "go test"
func (k *KCore) Test(ctx context.Context) (string, error) {
	return k.goContainer().
		WithExec([]string{"go", "test", "-v", "./..."}).
		Stdout(ctx)
}

// TestMatrix runs the unit tests once per backend build tag set
//
// +check
func (k *KCore) TestMatrix(ctx context.Context) (string, error) {
	ctr := k.goContainer()
	for _, run := range tagRuns {
		args := append([]string{"go", "test", "-tags", run.tags}, run.packages...)
		ctr = ctr.WithExec(args)
	}
	return ctr.Stdout(ctx)
}
