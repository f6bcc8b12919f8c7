// Package main is the entry point for the allocator, the portfolio
// construction service. It serves the HTTP API by default and can run a
// single optimization from the command line.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
