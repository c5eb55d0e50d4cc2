package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the service.
type Config struct {
	Corpus     CorpusConfig     `yaml:"corpus"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Assemble   AssembleConfig   `yaml:"assemble"`
	Generation GenerationConfig `yaml:"generation"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CorpusConfig holds offline indexing configuration.
type CorpusConfig struct {
	Includes     []string `yaml:"includes"`
	Excludes     []string `yaml:"excludes"`
	ChunkTokens  int      `yaml:"chunk_tokens"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Backend       string `yaml:"backend"` // "bolt" or "postgres"
	DatabasePath  string `yaml:"database_path"`
	SnapshotPath  string `yaml:"snapshot_path"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	WatchSnapshot bool   `yaml:"watch_snapshot"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // "openai", "jina", "ollama", "mock"
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	Dimension      int    `yaml:"dimension"`
	BatchSize      int    `yaml:"batch_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-call embedding timeout.
func (c EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK             int     `yaml:"top_k"`
	OversampleFactor int     `yaml:"oversample_factor"`
	MinScore         float64 `yaml:"min_score"`
	CacheSize        int     `yaml:"cache_size"`
	CacheTTLSeconds  int     `yaml:"cache_ttl_seconds"`
}

// CacheTTL returns the retrieval cache entry lifetime.
func (c RetrieveConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// AssembleConfig holds evidence assembly configuration.
type AssembleConfig struct {
	MaxTokens int `yaml:"max_tokens"`
}

// ProviderConfig configures one generation provider. Order in the
// Providers list is fallback order.
type ProviderConfig struct {
	Name      string `yaml:"name"` // "groq", "together", "mistral", "openrouter", "gemini"
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// GenerationConfig holds LLM orchestration configuration.
type GenerationConfig struct {
	Providers              []ProviderConfig `yaml:"providers"`
	MaxTokens              int              `yaml:"max_tokens"`
	RequestTimeoutSeconds  int              `yaml:"request_timeout_seconds"`
	CooldownInitialSeconds int              `yaml:"cooldown_initial_seconds"`
	CooldownMaxSeconds     int              `yaml:"cooldown_max_seconds"`
}

// RequestTimeout returns the per-provider call timeout.
func (c GenerationConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// CooldownInitial returns the first-failure cooldown.
func (c GenerationConfig) CooldownInitial() time.Duration {
	return time.Duration(c.CooldownInitialSeconds) * time.Second
}

// CooldownMax returns the cooldown doubling cap.
func (c GenerationConfig) CooldownMax() time.Duration {
	return time.Duration(c.CooldownMaxSeconds) * time.Second
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Debug bool   `yaml:"debug"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Includes:     []string{"**/*.json"},
			Excludes:     []string{"**/.*/**"},
			ChunkTokens:  400,
			ChunkOverlap: 40,
		},
		Storage: StorageConfig{
			Backend:       "bolt",
			DatabasePath:  ".nyaya/index.db",
			SnapshotPath:  ".nyaya/vectors.snap",
			WatchSnapshot: true,
		},
		Embedding: EmbeddingConfig{
			Provider:       "openai",
			Model:          "text-embedding-3-small",
			APIKeyEnv:      "OPENAI_API_KEY",
			Dimension:      1536,
			BatchSize:      100,
			TimeoutSeconds: 60,
		},
		Retrieve: RetrieveConfig{
			TopK:             5,
			OversampleFactor: 4,
			MinScore:         0.45,
			CacheSize:        100,
			CacheTTLSeconds:  300,
		},
		Assemble: AssembleConfig{
			MaxTokens: 4000,
		},
		Generation: GenerationConfig{
			Providers: []ProviderConfig{
				{Name: "groq", Model: "llama-3.3-70b-versatile", APIKeyEnv: "GROQ_API_KEY"},
				{Name: "together", Model: "meta-llama/Llama-3.3-70B-Instruct-Turbo", APIKeyEnv: "TOGETHER_API_KEY"},
				{Name: "gemini", Model: "gemini-1.5-flash", APIKeyEnv: "GEMINI_API_KEY"},
			},
			MaxTokens:              1000,
			RequestTimeoutSeconds:  30,
			CooldownInitialSeconds: 2,
			CooldownMaxSeconds:     120,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. API keys referenced via
// *_env fields come from the environment; a .env file next to the
// config is read first when present.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Best effort: keys may already be in the environment.
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for nyaya.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "nyaya.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".nyaya", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	_ = godotenv.Load(filepath.Join(dir, ".env"))
	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
