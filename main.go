// Package main is the entry point for the ceflog command line.
package main

import (
	"os"

	"ceflog/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
