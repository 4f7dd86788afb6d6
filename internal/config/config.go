package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/ken-1511/howard-financial/internal/embeddings"
)

// FileName is the project configuration file at the repository root.
const FileName = "howard.yaml"

// EnvPrefix prefixes environment overrides, e.g. HOWARD_SERVER_PORT.
const EnvPrefix = "HOWARD_"

// Config represents the top-level howard.yaml configuration.
type Config struct {
	Data       DataConfig       `yaml:"data" koanf:"data"`
	Index      IndexConfig      `yaml:"index" koanf:"index"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" koanf:"embeddings"`
	Agent      AgentConfig      `yaml:"agent" koanf:"agent"`
	Server     ServerConfig     `yaml:"server" koanf:"server"`
	Logging    LoggingConfig    `yaml:"logging" koanf:"logging"`
	Git        GitConfig        `yaml:"git" koanf:"git"`
}

// DataConfig locates raw exports and the transaction store.
type DataConfig struct {
	ImportDir string `yaml:"import_dir" koanf:"import_dir"`
	StorePath string `yaml:"store_path" koanf:"store_path"`
}

// IndexConfig locates the vector index.
type IndexConfig struct {
	Dir        string `yaml:"dir" koanf:"dir"`
	Collection string `yaml:"collection" koanf:"collection"`
	Compress   bool   `yaml:"compress" koanf:"compress"`
}

// EmbeddingsConfig selects the embedding provider.
type EmbeddingsConfig struct {
	Provider string `yaml:"provider" koanf:"provider"` // fastembed, gemini or hash
	Model    string `yaml:"model,omitempty" koanf:"model"`
	CacheDir string `yaml:"cache_dir,omitempty" koanf:"cache_dir"`
	APIKey   string `yaml:"api_key,omitempty" koanf:"api_key"`
}

// AgentConfig tunes query answering.
type AgentConfig struct {
	TopK int `yaml:"top_k" koanf:"top_k"`
}

// ServerConfig controls `howard serve`.
type ServerConfig struct {
	Host         string        `yaml:"host" koanf:"host"`
	Port         int           `yaml:"port" koanf:"port"`
	Watch        bool          `yaml:"watch" koanf:"watch"`
	QueryTimeout time.Duration `yaml:"query_timeout" koanf:"query_timeout"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"` // json or console
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit" koanf:"auto_commit"`
	AuthorName  string `yaml:"author_name" koanf:"author_name"`
	AuthorEmail string `yaml:"author_email" koanf:"author_email"`
}

// Load reads a howard.yaml file from disk and applies HOWARD_* environment
// overrides on top. Keys absent from both keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), kyaml.Parser()); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envKey maps HOWARD_SERVER_QUERY_TIMEOUT to server.query_timeout: the
// first segment names the section, the rest is the field.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

// applyDefaults fills values a config file explicitly left blank.
func applyDefaults(cfg *Config) {
	d := Default()
	if cfg.Data.ImportDir == "" {
		cfg.Data.ImportDir = d.Data.ImportDir
	}
	if cfg.Data.StorePath == "" {
		cfg.Data.StorePath = d.Data.StorePath
	}
	if cfg.Index.Dir == "" {
		cfg.Index.Dir = d.Index.Dir
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = d.Index.Collection
	}
	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = d.Embeddings.Provider
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = d.Server.Host
	}
	if cfg.Server.QueryTimeout == 0 {
		cfg.Server.QueryTimeout = d.Server.QueryTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = d.Logging.Format
	}
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Embeddings.Provider) {
	case embeddings.ProviderFastEmbed, embeddings.ProviderGemini, embeddings.ProviderHash:
	default:
		return fmt.Errorf("embeddings.provider: unknown provider %q", c.Embeddings.Provider)
	}
	if c.Agent.TopK <= 0 {
		return fmt.Errorf("agent.top_k must be positive, got %d", c.Agent.TopK)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.QueryTimeout < 0 {
		return fmt.Errorf("server.query_timeout cannot be negative: %s", c.Server.QueryTimeout)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// EmbeddingsProvider converts the embeddings section for embeddings.NewProvider.
// A relative cache dir is resolved against root.
func (c *Config) EmbeddingsProvider(root string) embeddings.Config {
	cacheDir := c.Embeddings.CacheDir
	if cacheDir != "" {
		cacheDir = Resolve(root, cacheDir)
	}
	return embeddings.Config{
		Provider: c.Embeddings.Provider,
		Model:    c.Embeddings.Model,
		CacheDir: cacheDir,
		APIKey:   c.Embeddings.APIKey,
	}
}

// Addr is the server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Resolve joins a relative configured path to the project root.
func Resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			ImportDir: "import",
			StorePath: "data/transactions.csv",
		},
		Index: IndexConfig{
			Dir:        "index",
			Collection: "transactions",
		},
		Embeddings: EmbeddingsConfig{
			Provider: embeddings.ProviderFastEmbed,
			CacheDir: ".cache/fastembed",
		},
		Agent: AgentConfig{
			TopK: 5,
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8000,
			Watch:        true,
			QueryTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Howard",
			AuthorEmail: "howard@localhost",
		},
	}
}
