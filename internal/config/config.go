package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"fintrack/internal/rag/chunker"
)

// Config represents the fintrack service configuration
type Config struct {
	Port         int                `json:"port" yaml:"port"`
	DataDir      string             `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
	SecretsFile  string             `json:"secrets_file,omitempty" yaml:"secrets_file,omitempty"`
	Document     DocumentConfig     `json:"document" yaml:"document"`
	Retrieval    RetrievalConfig    `json:"retrieval" yaml:"retrieval"`
	Embedder     EmbedderConfig     `json:"embedder" yaml:"embedder"`
	Generator    GeneratorConfig    `json:"generator" yaml:"generator"`
	ChatLog      ChatLogConfig      `json:"chat_log" yaml:"chat_log"`
	CORS         CORSConfig         `json:"cors" yaml:"cors"`
	RateLimiting RateLimitingConfig `json:"rateLimiting,omitempty" yaml:"rateLimiting,omitempty"`
	SSH          SSHConfig          `json:"ssh,omitempty" yaml:"ssh,omitempty"`
	Debug        DebugConfig        `json:"debug,omitempty" yaml:"debug,omitempty"`
}

// DocumentConfig points at the reference document and how to split it.
type DocumentConfig struct {
	Path      string `json:"path" yaml:"path"`
	ChunkSize int    `json:"chunk_size" yaml:"chunk_size"` // runes per chunk
	Overlap   int    `json:"overlap" yaml:"overlap"`       // runes shared by neighbouring chunks
}

// RetrievalConfig controls how many chunks back an answer.
type RetrievalConfig struct {
	TopK     int     `json:"top_k" yaml:"top_k"`
	MinScore float64 `json:"min_score,omitempty" yaml:"min_score,omitempty"` // 0 disables the threshold
}

// EmbedderConfig selects the embedding backend.
type EmbedderConfig struct {
	Provider       string `json:"provider" yaml:"provider"` // "tfidf" (default), "openai", "ollama"
	Model          string `json:"model,omitempty" yaml:"model,omitempty"`
	APIKey         string `json:"api_key,omitempty" yaml:"api_key,omitempty"` // Supports ${ENV_VAR} expansion
	BaseURL        string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Dimensions     int    `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	MaxFeatures    int    `json:"max_features,omitempty" yaml:"max_features,omitempty"` // tfidf vocabulary cap
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// Timeout returns the per-call embedding timeout.
func (e EmbedderConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// GeneratorConfig selects the language model backend.
type GeneratorConfig struct {
	Provider       string  `json:"provider" yaml:"provider"` // "openai", "anthropic", "google", "ollama", "mock"
	Model          string  `json:"model" yaml:"model"`
	APIKey         string  `json:"api_key,omitempty" yaml:"api_key,omitempty"` // Supports ${ENV_VAR} expansion
	BaseURL        string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	MaxTokens      int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature    float64 `json:"temperature" yaml:"temperature"`
	TimeoutSeconds int     `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// Timeout returns the per-call generation timeout.
func (g GeneratorConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// ChatLogConfig controls the append-only chat exchange log.
type ChatLogConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	Driver        string `json:"driver,omitempty" yaml:"driver,omitempty"` // "sqlite" (default) or "postgres"
	DSN           string `json:"dsn,omitempty" yaml:"dsn,omitempty"`       // file path for sqlite, connection string for postgres
	RetentionDays int    `json:"retention_days,omitempty" yaml:"retention_days,omitempty"`
	PruneSchedule string `json:"prune_schedule,omitempty" yaml:"prune_schedule,omitempty"` // cron expression
}

// CORSConfig lists browser origins allowed to call the chat endpoints.
type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// SSHConfig controls the SSH server that serves the terminal client.
type SSHConfig struct {
	Enabled            bool   `json:"enabled" yaml:"enabled"`
	ListenAddr         string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
	HostKeyPath        string `json:"host_key_path,omitempty" yaml:"host_key_path,omitempty"`               // default: {data_dir}/ssh_host_key
	AuthorizedKeysPath string `json:"authorized_keys_path,omitempty" yaml:"authorized_keys_path,omitempty"` // default: {data_dir}/authorized_keys
}

// DebugConfig contains debugging and logging settings
type DebugConfig struct {
	LogMessageContent bool `json:"log_message_content,omitempty" yaml:"log_message_content,omitempty"` // Enable logging of message content (privacy risk!)
	VerboseLogging    bool `json:"verbose_logging,omitempty" yaml:"verbose_logging,omitempty"`
}

// RateLimitingConfig contains per-client rate limiting settings
type RateLimitingConfig struct {
	Enabled                bool `json:"enabled" yaml:"enabled"`
	WindowSeconds          int  `json:"windowSeconds" yaml:"windowSeconds"`
	MaxRequests            int  `json:"maxRequests" yaml:"maxRequests"`
	CleanupIntervalSeconds int  `json:"cleanupIntervalSeconds" yaml:"cleanupIntervalSeconds"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Port: 8000,
		Document: DocumentConfig{
			Path:      "financial_advice.txt",
			ChunkSize: 500,
			Overlap:   50,
		},
		Retrieval: RetrievalConfig{
			TopK: 1,
		},
		Embedder: EmbedderConfig{
			Provider:       "tfidf",
			TimeoutSeconds: 30,
		},
		Generator: GeneratorConfig{
			Provider:       "ollama",
			Model:          "mistral",
			BaseURL:        "http://localhost:11434",
			MaxTokens:      150,
			Temperature:    0.7,
			TimeoutSeconds: 60,
		},
		ChatLog: ChatLogConfig{
			Enabled:       true,
			Driver:        "sqlite",
			DSN:           "chats.db",
			RetentionDays: 90,
			PruneSchedule: "0 3 * * *",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		RateLimiting: RateLimitingConfig{
			Enabled:                true,
			WindowSeconds:          60, // 1 minute window
			MaxRequests:            30, // per client IP
			CleanupIntervalSeconds: 300,
		},
		SSH: SSHConfig{
			ListenAddr: ":2222",
		},
	}
}

// Load loads configuration from a JSON or YAML file, chosen by extension
func Load(path string) (*Config, error) {
	// Check if file exists, create default if not
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
		fmt.Printf("Created default configuration at %s\n", path)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Expand tilde in path fields before anything else so that
	// secrets_file can reference ~/... paths.
	cfg.expandTilde()

	// Load secrets file (KEY=VALUE) into the environment before
	// expanding ${ENV_VAR} placeholders in the config.
	if err := cfg.loadSecretsFile(); err != nil {
		return nil, fmt.Errorf("failed to load secrets file: %w", err)
	}

	cfg.expandEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// expandEnvVars expands ${ENV_VAR} placeholders in secrets and paths
func (c *Config) expandEnvVars() {
	c.DataDir = os.ExpandEnv(c.DataDir)
	c.SecretsFile = os.ExpandEnv(c.SecretsFile)
	c.Document.Path = os.ExpandEnv(c.Document.Path)

	c.Embedder.APIKey = os.ExpandEnv(c.Embedder.APIKey)
	c.Embedder.BaseURL = os.ExpandEnv(c.Embedder.BaseURL)
	c.Generator.APIKey = os.ExpandEnv(c.Generator.APIKey)
	c.Generator.BaseURL = os.ExpandEnv(c.Generator.BaseURL)

	c.ChatLog.DSN = os.ExpandEnv(c.ChatLog.DSN)
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	if err := chunker.Validate(c.Document.ChunkSize, c.Document.Overlap); err != nil {
		return err
	}

	if c.Retrieval.TopK < 0 {
		return fmt.Errorf("retrieval top_k must not be negative")
	}
	if c.Retrieval.MinScore < 0 || c.Retrieval.MinScore > 1 {
		return fmt.Errorf("retrieval min_score must be between 0 and 1")
	}

	switch c.Embedder.Provider {
	case "", "tfidf", "openai", "ollama":
	default:
		return fmt.Errorf("unknown embedder provider %q", c.Embedder.Provider)
	}

	switch c.Generator.Provider {
	case "openai", "anthropic", "google", "ollama", "mock":
	default:
		return fmt.Errorf("unknown generator provider %q", c.Generator.Provider)
	}
	if c.Generator.MaxTokens <= 0 {
		return fmt.Errorf("generator max_tokens must be greater than 0")
	}
	if c.Generator.Temperature < 0 || c.Generator.Temperature > 2 {
		return fmt.Errorf("generator temperature must be between 0 and 2")
	}

	if c.ChatLog.Enabled {
		switch c.ChatLog.Driver {
		case "", "sqlite", "postgres":
		default:
			return fmt.Errorf("unknown chat log driver %q", c.ChatLog.Driver)
		}
		if c.ChatLog.RetentionDays < 0 {
			return fmt.Errorf("chat log retention_days must not be negative")
		}
		if c.ChatLog.RetentionDays > 0 {
			if _, err := cron.ParseStandard(c.ChatLog.PruneSchedule); err != nil {
				return fmt.Errorf("invalid chat log prune_schedule %q: %w", c.ChatLog.PruneSchedule, err)
			}
		}
	}

	if c.SSH.Enabled && c.SSH.ListenAddr == "" {
		return fmt.Errorf("ssh listen_addr is required when ssh is enabled")
	}

	if c.RateLimiting.Enabled {
		if c.RateLimiting.WindowSeconds <= 0 || c.RateLimiting.MaxRequests <= 0 {
			return fmt.Errorf("invalid rate limiting configuration")
		}
	}

	return nil
}

// expandTilde replaces a leading "~/" with the user's home directory in
// path-valued config fields. Called before env-var expansion so that
// both "~/foo" and "${SOME_PATH}" work.
func (c *Config) expandTilde() {
	home, err := os.UserHomeDir()
	if err != nil {
		return // can't expand, leave as-is
	}
	expand := func(p string) string {
		if p == "~" {
			return home
		}
		if strings.HasPrefix(p, "~/") {
			return filepath.Join(home, p[2:])
		}
		return p
	}

	c.DataDir = expand(c.DataDir)
	c.SecretsFile = expand(c.SecretsFile)
	c.Document.Path = expand(c.Document.Path)
	if c.ChatLog.Driver != "postgres" {
		c.ChatLog.DSN = expand(c.ChatLog.DSN)
	}
	c.SSH.HostKeyPath = expand(c.SSH.HostKeyPath)
	c.SSH.AuthorizedKeysPath = expand(c.SSH.AuthorizedKeysPath)
}

// loadSecretsFile reads a KEY=VALUE file into the process environment.
// Existing environment variables are NOT overridden (shell/systemd wins).
// If SecretsFile is empty or the file doesn't exist, this is a no-op.
func (c *Config) loadSecretsFile() error {
	if c.SecretsFile == "" {
		return nil
	}

	values, err := godotenv.Read(c.SecretsFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot read secrets file %s: %w", c.SecretsFile, err)
	}

	for key, value := range values {
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
	return nil
}
