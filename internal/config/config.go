// Package config loads and validates the Taskhub TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that unmarshals from TOML strings like "60s" or "2m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the root Taskhub daemon configuration.
type Config struct {
	General   General   `toml:"general"`
	Namespace Namespace `toml:"namespaces"`
	Workflow  Workflow  `toml:"workflow"`
	Reaper    Reaper    `toml:"reaper"`
	API       API       `toml:"api"`
	Outline   Outline   `toml:"outline"`
	LLM       LLM       `toml:"llm"`
	Bus       Bus       `toml:"bus"`
	Temporal  Temporal  `toml:"temporal"`
}

type General struct {
	LogLevel string `toml:"log_level"`
}

// Namespace controls where per-tenant SQLite stores live and which tenant
// read-only operations fall back to when no namespace header is supplied.
type Namespace struct {
	DataDir string `toml:"data_dir"`
	Default string `toml:"default"`
}

// Workflow governs report/evaluation behavior spec.md leaves to the
// implementer.
type Workflow struct {
	// AutoEvaluationMinPriority: a NORMAL task's report only spawns an
	// EVALUATION task when the parent task's priority is >= this value.
	// 0 means always spawn, matching the reference implementation.
	AutoEvaluationMinPriority int    `toml:"auto_evaluation_min_priority"`
	ReportEvaluationSkill     string `toml:"report_evaluation_skill"`
	AutoGenerateKnowledge     bool   `toml:"auto_generate_knowledge"`
	KnowledgeScoreThreshold   int    `toml:"knowledge_score_threshold"`
}

// Reaper governs the stale-task scan run by the Temporal workflow (or its
// ticker fallback).
type Reaper struct {
	Interval      Duration `toml:"interval"`
	InProgressTTL Duration `toml:"in_progress_ttl"`
	ClaimedTTL    Duration `toml:"claimed_ttl"`
	ClaimedPolicy string   `toml:"claimed_policy"` // "fail" | "reassign"
	PriorityBump  int      `toml:"priority_bump"`  // added to priority when reassign returns a task to pending
}

// API governs the JSON HTTP/RPC transport adapter.
type API struct {
	Bind             string   `toml:"bind"`
	AuthEnabled      bool     `toml:"auth_enabled"`
	AllowedTokens    []string `toml:"allowed_tokens"`
	RequireLocalOnly bool     `toml:"require_local_only"`
	AuditLog         string   `toml:"audit_log"`
}

// Outline configures the external knowledge document store client.
type Outline struct {
	URL          string   `toml:"url"`
	APIKey       string   `toml:"api_key"`
	Timeout      Duration `toml:"timeout"`
	CollectionID string   `toml:"collection_id"`
}

// LLM configures the optional knowledge-draft summarizer invoked after a
// high-scoring report commits.
type LLM struct {
	APIKey  string   `toml:"api_key"`
	Model   string   `toml:"model"`
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`
}

// Bus configures the embedded NATS instance used for post-commit side
// effects: knowledge drafting and discussion fan-out.
type Bus struct {
	Embedded bool   `toml:"embedded"`
	URL      string `toml:"url"`
	Port     int    `toml:"port"`
	Workers  int    `toml:"workers"`
}

// Temporal configures the reaper's workflow engine connection.
type Temporal struct {
	HostPort  string `toml:"host_port"`
	TaskQueue string `toml:"task_queue"`
}

// Load reads and validates a Taskhub TOML configuration file. A missing
// file is not an error: defaults alone are sufficient to run against the
// default namespace.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		applyDefaults(cfg)
		normalizePaths(cfg)
		if err := validate(cfg); err != nil {
			return nil, fmt.Errorf("validating config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyDefaults(cfg)
			normalizePaths(cfg)
			return cfg, validate(cfg)
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyDefaults(cfg)
	normalizePaths(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}


func defaultConfig() *Config {
	return &Config{}
}

func applyDefaults(cfg *Config) {
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.Namespace.DataDir == "" {
		cfg.Namespace.DataDir = "./data"
	}
	if cfg.Namespace.Default == "" {
		cfg.Namespace.Default = "default"
	}

	if cfg.Workflow.ReportEvaluationSkill == "" {
		cfg.Workflow.ReportEvaluationSkill = "report_evaluation"
	}
	if cfg.Workflow.KnowledgeScoreThreshold == 0 {
		cfg.Workflow.KnowledgeScoreThreshold = 90
	}

	if cfg.Reaper.Interval.Duration == 0 {
		cfg.Reaper.Interval.Duration = time.Hour
	}
	if cfg.Reaper.InProgressTTL.Duration == 0 {
		cfg.Reaper.InProgressTTL.Duration = 24 * time.Hour
	}
	if cfg.Reaper.ClaimedTTL.Duration == 0 {
		cfg.Reaper.ClaimedTTL.Duration = 12 * time.Hour
	}
	if cfg.Reaper.ClaimedPolicy == "" {
		cfg.Reaper.ClaimedPolicy = "fail"
	}
	if cfg.Reaper.PriorityBump == 0 {
		cfg.Reaper.PriorityBump = 10
	}

	if cfg.API.Bind == "" {
		cfg.API.Bind = "127.0.0.1:8420"
	}
	if !cfg.API.AuthEnabled && cfg.API.Bind != "" && !isLocalBind(cfg.API.Bind) {
		cfg.API.RequireLocalOnly = true
	}

	if cfg.Outline.Timeout.Duration == 0 {
		cfg.Outline.Timeout.Duration = 30 * time.Second
	}

	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.Timeout.Duration == 0 {
		cfg.LLM.Timeout.Duration = 30 * time.Second
	}

	if cfg.Bus.Port == 0 {
		cfg.Bus.Port = 4222
	}
	if cfg.Bus.Workers == 0 {
		cfg.Bus.Workers = 4
	}

	if cfg.Temporal.HostPort == "" {
		cfg.Temporal.HostPort = "127.0.0.1:7233"
	}
	if cfg.Temporal.TaskQueue == "" {
		cfg.Temporal.TaskQueue = "taskhub-reaper"
	}
}

// normalizePaths expands "~" and trims whitespace for configured filesystem
// paths.
func normalizePaths(cfg *Config) {
	cfg.Namespace.DataDir = ExpandHome(strings.TrimSpace(cfg.Namespace.DataDir))
	cfg.API.AuditLog = ExpandHome(strings.TrimSpace(cfg.API.AuditLog))
}

// isLocalBind reports whether a bind address is local (localhost, 127.0.0.1,
// or unix socket).
func isLocalBind(bind string) bool {
	if bind == "" {
		return true
	}
	if bind[0] == '/' || bind[0] == '@' {
		return true
	}
	if strings.HasPrefix(bind, "localhost:") || strings.HasPrefix(bind, "127.0.0.1:") || strings.HasPrefix(bind, ":") {
		return true
	}
	return false
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

func validate(cfg *Config) error {
	switch cfg.Reaper.ClaimedPolicy {
	case "fail", "reassign":
	default:
		return fmt.Errorf("reaper.claimed_policy must be \"fail\" or \"reassign\", got %q", cfg.Reaper.ClaimedPolicy)
	}
	if cfg.Reaper.InProgressTTL.Duration <= 0 {
		return fmt.Errorf("reaper.in_progress_ttl must be > 0")
	}
	if cfg.Reaper.ClaimedTTL.Duration <= 0 {
		return fmt.Errorf("reaper.claimed_ttl must be > 0")
	}
	if cfg.Workflow.AutoEvaluationMinPriority < 0 {
		return fmt.Errorf("workflow.auto_evaluation_min_priority cannot be negative")
	}
	if cfg.Workflow.KnowledgeScoreThreshold < 0 || cfg.Workflow.KnowledgeScoreThreshold > 100 {
		return fmt.Errorf("workflow.knowledge_score_threshold must be between 0 and 100")
	}

	if cfg.API.AuthEnabled {
		if len(cfg.API.AllowedTokens) == 0 {
			return fmt.Errorf("api auth enabled but no allowed_tokens configured")
		}
		for i, token := range cfg.API.AllowedTokens {
			if len(token) < 16 {
				return fmt.Errorf("api allowed_tokens[%d] is too short (minimum 16 characters)", i)
			}
		}
		if cfg.API.AuditLog != "" {
			dir := ExpandHome(filepath.Dir(cfg.API.AuditLog))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("cannot create audit log directory %q: %w", dir, err)
			}
		}
	}

	if cfg.Bus.Workers < 0 {
		return fmt.Errorf("bus.workers cannot be negative")
	}

	return nil
}
