// Package main is the entrypoint for ringerctl.
package main

import (
	"fmt"
	"os"

	"ringer-dashboard/internal/cli"
)

func main() {
	root := cli.NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
