// Package toolproto is the agent-facing tool dispatch table: the same
// internal/orchestrator operations exposed as named "tools" with
// JSON-schema-described arguments, for hunters that speak a tool-call
// protocol instead of raw HTTP. Modeled on the reference implementation's
// MCP tool registrations (taskhub.task.*, taskhub.hunter.*, etc.) but
// transport-agnostic: this is a dispatch table, not a protocol
// implementation, so it has no opinion on how a caller frames a tool
// call (MCP, a custom RPC, anything else).
package toolproto

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/antigravity-dev/taskhub/internal/domain"
	"github.com/antigravity-dev/taskhub/internal/orchestrator"
)

// Tool describes one callable operation: its wire name, a JSON schema for
// its arguments (informational for callers that render it, e.g. an MCP
// tools/list response), and the handler that unmarshals args and invokes
// the orchestrator.
type Tool struct {
	Name        string
	Description string
	Schema      map[string]any
	Handler     func(ctx context.Context, header http.Header, args json.RawMessage) (any, error)
}

// Dispatcher holds the registered tool table over one Orchestrator.
type Dispatcher struct {
	orch  *orchestrator.Orchestrator
	tools map[string]Tool
}

// New builds a Dispatcher with every taskhub.* tool registered.
func New(orch *orchestrator.Orchestrator) *Dispatcher {
	d := &Dispatcher{orch: orch, tools: make(map[string]Tool)}
	d.registerHunterTools()
	d.registerTaskTools()
	d.registerReportTools()
	d.registerDiscussionTools()
	return d
}

func (d *Dispatcher) register(t Tool) {
	d.tools[t.Name] = t
}

// List returns every registered tool's descriptor (no Handler), suitable
// for serializing as a tools/list-style response.
func (d *Dispatcher) List() []Tool {
	out := make([]Tool, 0, len(d.tools))
	for _, t := range d.tools {
		out = append(out, Tool{Name: t.Name, Description: t.Description, Schema: t.Schema})
	}
	return out
}

// Call dispatches name with args (raw JSON object bytes) against header's
// resolved identity. Returns domain.ErrNotFound-kind error (via
// domain.Wrap) if no such tool is registered.
func (d *Dispatcher) Call(ctx context.Context, name string, header http.Header, args json.RawMessage) (any, error) {
	t, ok := d.tools[name]
	if !ok {
		return nil, domain.Wrap(domain.KindNotFound, fmt.Sprintf("unknown tool %q", name), domain.ErrNotFound)
	}
	return t.Handler(ctx, header, args)
}

func schemaObject(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

// invalidArgsKind has no dedicated statusForKind case; it falls through to
// the generic 400 an HTTP transport gives any unrecognized domain.ErrorKind.
const invalidArgsKind domain.ErrorKind = "invalid_argument"

// badArgs wraps a JSON decode failure so transports can report it the same
// way they report any other domain error, without a type switch on err.
func badArgs(err error) error {
	return domain.Wrap(invalidArgsKind, "invalid tool arguments", err)
}
