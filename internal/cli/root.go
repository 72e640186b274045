// Package cli implements taskhubctl: an operator-facing admin CLI sitting
// directly over internal/orchestrator, the same way internal/api and
// internal/toolproto do — it opens its own store.Registry, builds one
// Orchestrator, and issues a single operation per invocation. No bus and no
// knowledge lookup are wired in (an operator running one-off commands has
// no use for post-commit fan-out, and hunter.study from the CLI would need
// an Outline connection this tool has no reason to carry).
package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/antigravity-dev/taskhub/internal/config"
	"github.com/antigravity-dev/taskhub/internal/identity"
	"github.com/antigravity-dev/taskhub/internal/orchestrator"
	"github.com/antigravity-dev/taskhub/internal/store"
)

// Execute runs the CLI application.
func Execute() error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	root := &cobra.Command{
		Use:           "taskhubctl",
		Short:         "Operator CLI over taskhub's coordination engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.PersistentFlags().String("data-dir", "./data", "namespace store directory")
	root.PersistentFlags().String("namespace", "", "namespace to operate in (falls back to TASKHUB_NAMESPACE; task list alone then falls back to \"default\")")
	root.PersistentFlags().String("hunter-id", "", "identity to act as (falls back to TASKHUB_HUNTER_ID)")

	root.AddCommand(newHunterCmd())
	root.AddCommand(newTaskCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newDiscussionCmd())

	return root.Execute()
}

// orchestratorFor opens a registry-backed Orchestrator rooted at the
// command's --data-dir, with no bus and no knowledge lookup wired in.
func orchestratorFor(cmd *cobra.Command) (*orchestrator.Orchestrator, error) {
	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return nil, err
	}
	registry := store.NewRegistry(dataDir)
	resolver := identity.NewResolver("default")
	return orchestrator.New(registry, resolver, config.Workflow{}, nil, nil, slog.Default()), nil
}

// callerHeaders builds the http.Header internal/orchestrator's operations
// expect, from --namespace/--hunter-id (or their environment fallbacks).
func callerHeaders(cmd *cobra.Command) http.Header {
	namespace, _ := cmd.Flags().GetString("namespace")
	if namespace == "" {
		namespace = os.Getenv("TASKHUB_NAMESPACE")
	}
	hunterID, _ := cmd.Flags().GetString("hunter-id")
	if hunterID == "" {
		hunterID = os.Getenv("TASKHUB_HUNTER_ID")
	}

	h := http.Header{}
	if namespace != "" {
		h.Set(identity.NamespaceHeader, namespace)
	}
	if hunterID != "" {
		h.Set(identity.HunterIDHeader, hunterID)
	}
	return h
}

// printResult renders v (or err) as a single JSON line on stdout/stderr and
// sets the process exit code, the way every taskhubctl subcommand ends.
func printResult(v any, err error) error {
	if err != nil {
		enc := json.NewEncoder(os.Stderr)
		enc.Encode(map[string]string{"error": err.Error()})
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if v == nil {
		v = map[string]string{"status": "ok"}
	}
	return enc.Encode(v)
}

// fatalErr builds a plain formatted error for CLI-side argument validation
// that never reaches the orchestrator (e.g. a malformed --skills flag).
func fatalErr(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
