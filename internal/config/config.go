// Package config provides configuration loading for webingest.
//
// Configuration is loaded from an optional YAML file and overridden by
// environment variables. Required credentials are validated up front so a
// misconfigured process halts before doing any work.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for configuration validation.
var (
	// ErrMissingCredential indicates a required API key is not set.
	ErrMissingCredential = errors.New("missing required credential")

	// ErrInvalidConfig indicates an invalid configuration value.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds the complete webingest configuration.
type Config struct {
	Scraper    ScraperConfig    `koanf:"scraper"`
	LlamaParse LlamaParseConfig `koanf:"llamaparse"`
	Groq       GroqConfig       `koanf:"groq"`
	Qdrant     QdrantConfig     `koanf:"qdrant"`
	Embedding  EmbeddingConfig  `koanf:"embedding"`
	Ingest     IngestConfig     `koanf:"ingest"`
	Retrieval  RetrievalConfig  `koanf:"retrieval"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ScraperConfig holds page rendering and asset download settings.
type ScraperConfig struct {
	// SettleDelay is how long to wait after navigation for client-side
	// rendering to finish.
	SettleDelay Duration `koanf:"settle_delay"`

	// DownloadTimeout bounds a single asset download.
	DownloadTimeout Duration `koanf:"download_timeout"`

	// WorkspaceRoot is the directory under which per-domain workspaces
	// are created. Defaults to the current directory.
	WorkspaceRoot string `koanf:"workspace_root"`

	// UserAgent is sent on asset downloads.
	UserAgent string `koanf:"user_agent"`
}

// LlamaParseConfig holds structuring service settings.
type LlamaParseConfig struct {
	// APIKey authenticates against the LlamaParse API. Required.
	APIKey Secret `koanf:"api_key"`

	// BaseURL is the API root.
	BaseURL string `koanf:"base_url"`

	// PollInterval is the fixed delay between job status checks.
	PollInterval Duration `koanf:"poll_interval"`

	// MaxPolls bounds the status poll loop. Exhaustion is a timeout
	// failure, not an indefinite wait.
	MaxPolls int `koanf:"max_polls"`
}

// GroqConfig holds chat model settings.
type GroqConfig struct {
	// APIKey authenticates against the Groq API. Required.
	APIKey Secret `koanf:"api_key"`

	// BaseURL is the OpenAI-compatible endpoint root.
	BaseURL string `koanf:"base_url"`

	// Model is the chat model name.
	Model string `koanf:"model"`
}

// QdrantConfig holds vector index connection settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	Host string `koanf:"host"`

	// Port is the Qdrant gRPC port (not the HTTP REST port).
	Port int `koanf:"port"`

	// Collection is the collection name holding chunk records.
	Collection string `koanf:"collection"`

	// UseTLS enables TLS on the gRPC connection.
	UseTLS bool `koanf:"use_tls"`
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	// Model is the embedding model name.
	Model string `koanf:"model"`

	// CacheDir is where downloaded model files are cached.
	CacheDir string `koanf:"cache_dir"`
}

// IngestConfig holds chunking settings.
type IngestConfig struct {
	// ChunkSize is the maximum chunk length in runes.
	ChunkSize int `koanf:"chunk_size"`

	// ChunkOverlap is the overlap between consecutive chunks in runes.
	ChunkOverlap int `koanf:"chunk_overlap"`
}

// RetrievalConfig holds similarity search settings.
type RetrievalConfig struct {
	// TopK is the number of nearest neighbours fetched per query.
	TopK int `koanf:"top_k"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "console" or "json".
	Format string `koanf:"format"`
}

// Default returns a Config with production-ready defaults. Credentials have
// no defaults and must come from the file or environment.
func Default() *Config {
	return &Config{
		Scraper: ScraperConfig{
			SettleDelay:     Duration(3 * time.Second),
			DownloadTimeout: Duration(30 * time.Second),
			WorkspaceRoot:   ".",
			UserAgent:       "Mozilla/5.0",
		},
		LlamaParse: LlamaParseConfig{
			BaseURL:      "https://api.cloud.llamaindex.ai",
			PollInterval: Duration(10 * time.Second),
			MaxPolls:     60,
		},
		Groq: GroqConfig{
			BaseURL: "https://api.groq.com/openai/v1",
			Model:   "llama-3.3-70b-versatile",
		},
		Qdrant: QdrantConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "webingest_chunks",
		},
		Embedding: EmbeddingConfig{
			Model:    "BAAI/bge-small-en-v1.5",
			CacheDir: "local_cache",
		},
		Ingest: IngestConfig{
			ChunkSize:    500,
			ChunkOverlap: 200,
		},
		Retrieval: RetrievalConfig{
			TopK: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration. Missing credentials are fatal at
// startup: the process must halt before doing any work.
func (c *Config) Validate() error {
	if !c.LlamaParse.APIKey.IsSet() {
		return fmt.Errorf("%w: llamaparse.api_key (LLAMAPARSE_API_KEY)", ErrMissingCredential)
	}
	if !c.Groq.APIKey.IsSet() {
		return fmt.Errorf("%w: groq.api_key (GROQ_API_KEY)", ErrMissingCredential)
	}
	if c.Qdrant.Host == "" {
		return fmt.Errorf("%w: qdrant.host required", ErrInvalidConfig)
	}
	if c.Qdrant.Port <= 0 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("%w: invalid qdrant.port: %d", ErrInvalidConfig, c.Qdrant.Port)
	}
	if c.Qdrant.Collection == "" {
		return fmt.Errorf("%w: qdrant.collection required", ErrInvalidConfig)
	}
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("%w: ingest.chunk_size must be positive", ErrInvalidConfig)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("%w: ingest.chunk_overlap must be in [0, chunk_size)", ErrInvalidConfig)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be positive", ErrInvalidConfig)
	}
	if c.LlamaParse.MaxPolls <= 0 {
		return fmt.Errorf("%w: llamaparse.max_polls must be positive", ErrInvalidConfig)
	}
	if c.LlamaParse.PollInterval.Duration() <= 0 {
		return fmt.Errorf("%w: llamaparse.poll_interval must be positive", ErrInvalidConfig)
	}
	return nil
}
