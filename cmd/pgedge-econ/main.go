// Package main is the entry point for pgedge-econ.
package main

import (
	"fmt"
	"os"

	"github.com/pgEdge/pgedge-econ/internal/cli"

	// Register analysis views
	_ "github.com/pgEdge/pgedge-econ/internal/views/catalog"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
