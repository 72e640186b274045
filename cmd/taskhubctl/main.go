// Command taskhubctl is an operator CLI over taskhub's coordination engine:
// one subcommand per operation in internal/orchestrator, run directly
// against a namespace store directory without needing taskhubd running.
package main

import (
	"os"

	"github.com/antigravity-dev/taskhub/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
