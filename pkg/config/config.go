// Package config loads proposal-engine configuration.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for proposal-engine.
// Configuration can come from YAML file (config.yaml) or environment
// variables; environment variables always override YAML values. Secrets (API
// keys, database password) must only come from environment variables.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// MigrationsPath is the directory holding SQL migration files.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// AI provider endpoints
	Providers ProvidersConfig `yaml:"providers"`

	// Orchestration behavior
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	// Workflow behavior
	Workflow WorkflowConfig `yaml:"workflow"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"proposal"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"proposal_engine"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// ProvidersConfig holds per-provider endpoint configuration.
type ProvidersConfig struct {
	OpenAI    OpenAIProviderConfig    `yaml:"openai"`
	Anthropic AnthropicProviderConfig `yaml:"anthropic"`
	Community CommunityProviderConfig `yaml:"community"`
}

// OpenAIProviderConfig configures the OpenAI provider.
type OpenAIProviderConfig struct {
	BaseURL string `yaml:"base_url" env:"OPENAI_BASE_URL" env-default:"https://api.openai.com/v1"`
	Model   string `yaml:"model" env:"OPENAI_MODEL" env-default:"gpt-4o"`
	APIKey  string `yaml:"-" env:"OPENAI_API_KEY"` // Secret - not in YAML
}

// AnthropicProviderConfig configures the Anthropic provider.
type AnthropicProviderConfig struct {
	Model     string `yaml:"model" env:"ANTHROPIC_MODEL" env-default:"claude-sonnet-4-5-20250929"`
	MaxTokens int    `yaml:"max_tokens" env:"ANTHROPIC_MAX_TOKENS" env-default:"4096"`
	APIKey    string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML
}

// CommunityProviderConfig configures an optional OpenAI-compatible community
// model endpoint (local vLLM, shared inference server). These are server-level
// settings used as a cheap first rank for low-stakes operations.
type CommunityProviderConfig struct {
	BaseURL string `yaml:"base_url" env:"COMMUNITY_AI_BASE_URL" env-default:""`
	Model   string `yaml:"model" env:"COMMUNITY_AI_MODEL" env-default:""`
	APIKey  string `yaml:"-" env:"COMMUNITY_AI_API_KEY"`
}

// IsAvailable returns true if the community endpoint is configured.
func (c *CommunityProviderConfig) IsAvailable() bool {
	return c.BaseURL != "" && c.Model != ""
}

// OrchestratorConfig holds provider-routing behavior.
type OrchestratorConfig struct {
	// AttemptTimeoutSeconds bounds a single provider attempt. On timeout the
	// attempt counts as a provider failure and the next rank is tried.
	AttemptTimeoutSeconds int `yaml:"attempt_timeout_seconds" env:"ORCHESTRATOR_ATTEMPT_TIMEOUT_SECONDS" env-default:"90"`

	// Routing maps an operation name to its ranked provider list. Empty means
	// the compiled-in default routing is used. YAML only; no env form.
	Routing map[string][]string `yaml:"routing"`
}

// WorkflowConfig holds stage-workflow behavior.
type WorkflowConfig struct {
	// RegenerateStagesStr is a comma-separated list of stage numbers where
	// in-place regeneration is permitted. Format: "1,2,3,4"
	RegenerateStagesStr string `yaml:"regenerate_stages" env:"WORKFLOW_REGENERATE_STAGES" env-default:"1,2,3,4"`

	// RegenerateStages is the parsed form of RegenerateStagesStr.
	RegenerateStages []int `yaml:"-"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.parseComplexFields(); err != nil {
		return nil, fmt.Errorf("failed to parse config fields: %w", err)
	}

	return cfg, nil
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() error {
	stages, err := parseStageList(c.Workflow.RegenerateStagesStr)
	if err != nil {
		return fmt.Errorf("invalid regenerate_stages: %w", err)
	}
	c.Workflow.RegenerateStages = stages
	return nil
}

// parseStageList parses a comma-separated stage list like "1,2,4".
func parseStageList(value string) ([]int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	var stages []int
	for _, part := range strings.Split(value, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("stage %q is not a number", part)
		}
		if n < 1 || n > 5 {
			return nil, fmt.Errorf("stage %d outside 1..5", n)
		}
		stages = append(stages, n)
	}
	return stages, nil
}
