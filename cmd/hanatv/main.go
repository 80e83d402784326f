// Package main is the entry point for the hanatv application.
package main

import (
	"os"

	"github.com/hanatv/hanatv/cmd/hanatv/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
