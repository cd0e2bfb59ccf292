// Package main is the entrypoint for taskctl, the command-line client for a
// running taskboard server.
package main

import "github.com/phrazzld/taskboard/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
