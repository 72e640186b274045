// Package bus wires an embedded NATS instance used for two post-commit
// side effects that must never run inside a store transaction: discussion
// message fan-out to live websocket subscribers, and knowledge-draft jobs
// handed off to a worker pool.
package bus

import (
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// ServerConfig configures the embedded NATS server.
type ServerConfig struct {
	Host string
	Port int
}

// EmbeddedServer wraps an in-process NATS server so taskhubd doesn't need
// an external broker for its own fan-out traffic.
type EmbeddedServer struct {
	mu      sync.RWMutex
	srv     *server.Server
	cfg     ServerConfig
	running bool
}

// NewEmbeddedServer constructs an EmbeddedServer listening on cfg.Host:cfg.Port.
// Port 0 is passed straight through to the NATS server, which picks an
// OS-assigned ephemeral port — callers that want the production default of
// 4222 get it from config.applyDefaults, not from this constructor.
func NewEmbeddedServer(cfg ServerConfig) *EmbeddedServer {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	return &EmbeddedServer{cfg: cfg}
}

// Start boots the server and blocks until it's ready for connections.
func (e *EmbeddedServer) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return fmt.Errorf("bus: server already running")
	}

	ns, err := server.NewServer(&server.Options{
		Host:       e.cfg.Host,
		Port:       e.cfg.Port,
		NoSigs:     true,
		MaxPayload: 1024 * 1024,
	})
	if err != nil {
		return fmt.Errorf("bus: create server: %w", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		return fmt.Errorf("bus: server not ready for connections")
	}

	e.srv = ns
	e.running = true
	return nil
}

// Shutdown stops the server, waiting for it to fully drain.
func (e *EmbeddedServer) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running || e.srv == nil {
		return
	}
	e.srv.Shutdown()
	e.srv.WaitForShutdown()
	e.running = false
	e.srv = nil
}

// URL returns the client connection URL for this server. Once started, this
// reflects the port the server actually bound (important when cfg.Port was
// 0 and the OS assigned one); before Start it falls back to the configured
// port.
func (e *EmbeddedServer) URL() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.srv != nil {
		return e.srv.ClientURL()
	}
	return fmt.Sprintf("nats://%s:%d", e.cfg.Host, e.cfg.Port)
}

// IsRunning reports whether Start has completed successfully and Shutdown
// hasn't run since.
func (e *EmbeddedServer) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}
