package main

import (
	"os"

	kcorecmder "github.com/GKaszewski/k-core/cmd/kcore"
)

func main() {
	cmd := kcorecmder.NewKcoreCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
