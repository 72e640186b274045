package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/antigravity-dev/taskhub/internal/api"
	"github.com/antigravity-dev/taskhub/internal/bus"
	"github.com/antigravity-dev/taskhub/internal/config"
	"github.com/antigravity-dev/taskhub/internal/health"
	"github.com/antigravity-dev/taskhub/internal/hunter"
	"github.com/antigravity-dev/taskhub/internal/identity"
	"github.com/antigravity-dev/taskhub/internal/knowledge"
	"github.com/antigravity-dev/taskhub/internal/orchestrator"
	"github.com/antigravity-dev/taskhub/internal/reaper"
	"github.com/antigravity-dev/taskhub/internal/store"
	"github.com/antigravity-dev/taskhub/internal/temporal"
)

func configureLogger(logLevel string, useDev bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if useDev {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func main() {
	configPath := flag.String("config", "taskhub.toml", "path to config file")
	dev := flag.Bool("dev", false, "use text log format (default is JSON)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("taskhub starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = configureLogger(cfg.General.LogLevel, *dev)
	slog.SetDefault(logger)

	lockFile, err := health.AcquireFlock("/tmp/taskhubd.lock")
	if err != nil {
		logger.Error("failed to acquire lock", "error", err)
		os.Exit(1)
	}
	defer health.ReleaseFlock(lockFile)

	registry := store.NewRegistry(cfg.Namespace.DataDir)
	defer registry.CloseAll()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var busClient *bus.Client
	var embeddedServer *bus.EmbeddedServer
	if cfg.Bus.Embedded {
		embeddedServer = bus.NewEmbeddedServer(bus.ServerConfig{Port: cfg.Bus.Port})
		if err := embeddedServer.Start(); err != nil {
			logger.Error("failed to start embedded bus", "error", err)
			os.Exit(1)
		}
		defer embeddedServer.Shutdown()
		busClient, err = bus.NewClient(embeddedServer.URL())
	} else {
		busClient, err = bus.NewClient(cfg.Bus.URL)
	}
	if err != nil {
		logger.Error("failed to connect to bus", "error", err)
		os.Exit(1)
	}
	defer busClient.Close()

	// knowledgeLookup stays a nil interface (not a typed-nil *OutlineClient)
	// when Outline isn't configured, so the orchestrator's nil check in
	// HunterStudy actually fires.
	var knowledgeLookup hunter.KnowledgeTagLookup
	if cfg.Outline.URL != "" {
		outline := knowledge.NewOutlineClient(cfg.Outline.URL, cfg.Outline.APIKey, cfg.Outline.Timeout.Duration)
		knowledgeLookup = outline

		summarizer := knowledge.NewLLMSummarizer(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout.Duration)
		drafter := &knowledge.Drafter{Summarizer: summarizer, Outline: outline, CollectionID: cfg.Outline.CollectionID}

		// A namespace is always a single subject token, so one wildcard
		// subscription covers every namespace a store.Registry might open
		// over the daemon's lifetime — no need to know which namespaces
		// exist yet at boot. job.Namespace (already in the payload) is
		// all Drafter.Draft needs to do its work.
		if _, err := bus.StartKnowledgeDraftWorkers(ctx, busClient, "knowledge.draft.*", cfg.Bus.Workers, drafter, logger.With("component", "knowledge_draft")); err != nil {
			logger.Error("failed to start knowledge draft workers", "error", err)
		}
	} else {
		logger.Warn("outline not configured, hunter.study and knowledge drafting are disabled")
	}

	resolver := identity.NewResolver(cfg.Namespace.Default)
	orch := orchestrator.New(registry, resolver, cfg.Workflow, busClient, knowledgeLookup, logger.With("component", "orchestrator"))

	hub := api.NewHub(busClient, logger.With("component", "ws"))

	apiSrv, err := api.NewServer(cfg.API, orch, hub, logger.With("component", "api"))
	if err != nil {
		logger.Error("failed to create api server", "error", err)
		os.Exit(1)
	}
	defer apiSrv.Close()

	go func() {
		if err := apiSrv.Start(ctx); err != nil {
			logger.Error("api server error", "error", err)
		}
	}()

	if cfg.Temporal.HostPort != "" {
		go func() {
			logger.Info("starting reaper temporal worker", "host_port", cfg.Temporal.HostPort)
			if err := temporal.StartReaperWorker(registry, *cfg); err != nil {
				logger.Error("reaper temporal worker error, falling back to ticker reaper", "error", err)
				reaper.RunForever(ctx, registry, cfg.Reaper, logger.With("component", "reaper"))
			}
		}()
	} else {
		go reaper.RunForever(ctx, registry, cfg.Reaper, logger.With("component", "reaper"))
	}

	logger.Info("taskhub running", "bind", cfg.API.Bind, "data_dir", cfg.Namespace.DataDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	shutdownStart := time.Now()
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()
	logger.Info("taskhub stopped", "shutdown_duration", time.Since(shutdownStart).String())
}
