// Package main provides the entry point for the tracker operator binary.
package main

import (
	"os"

	"github.com/yukikurage/task-tracker/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
