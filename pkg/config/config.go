package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// NLP configuration
	NLP NLPConfig `mapstructure:"nlp"`

	// Embedding configuration
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`

	// Ingestion configuration
	Ingestion IngestionConfig `mapstructure:"ingestion"`

	// Centrality configuration
	Centrality CentralityConfig `mapstructure:"centrality"`

	// Search configuration
	Search SearchConfig `mapstructure:"search"`
}

// IngestionConfig controls the episode-ingestion pipeline's concurrency and
// extraction behavior.
type IngestionConfig struct {
	SemaphoreLimit        int  `mapstructure:"semaphore_limit"`
	MaxReflexionIterations int `mapstructure:"max_reflexion_iterations"`
	UseParallelRuntime    bool `mapstructure:"use_parallel_runtime"`
}

// CentralityConfig controls whether centrality computation delegates to an
// external compute service or always runs in-process.
type CentralityConfig struct {
	UseRustCentrality bool   `mapstructure:"use_rust_centrality"`
	RustCentralityURL string `mapstructure:"rust_centrality_url"`
}

// SearchConfig holds retriever and fusion defaults for hybrid search.
type SearchConfig struct {
	DefaultK          int     `mapstructure:"default_k"`
	FusionK           int     `mapstructure:"fusion_k"`
	MMRLambda         float64 `mapstructure:"mmr_lambda"`
	RerankerMultiplier int    `mapstructure:"reranker_multiplier"`
}

// AlertConfig holds configuration for alerting
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // neo4j, memory
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// NLPConfig holds NLP configuration
type NLPConfig struct {
	// Deprecated: Use Providers map instead
	Provider string `mapstructure:"provider"`
	// Deprecated: Use Providers map instead
	Model string `mapstructure:"model"`
	// Deprecated: Use Providers map instead
	APIKey string `mapstructure:"api_key"`
	// Deprecated: Use Providers map instead
	BaseURL string `mapstructure:"base_url"`
	// Deprecated: Use Providers map instead
	Temperature float32 `mapstructure:"temperature"`
	// Deprecated: Use Providers map instead
	MaxTokens int `mapstructure:"max_tokens"`

	// Providers is a map of provider configurations (e.g. "openai", "anthropic", "local")
	Providers map[string]ProviderConfig `mapstructure:"providers"`

	// RouterRules defines how to route requests
	RouterRules []RouterRule `mapstructure:"router_rules"`
}

// ProviderConfig holds configuration for a specific provider
type ProviderConfig struct {
	Provider    string  `mapstructure:"provider"` // type: openai, anthropic
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// RouterRule defines a rule for routing requests
type RouterRule struct {
	Usage    string `mapstructure:"usage"`    // Tag to match (e.g. "hipaa", "coding")
	Provider string `mapstructure:"provider"` // Provider ID to use
	Fallback string `mapstructure:"fallback"` // Fallback provider ID
}

// EmbeddingConfig holds embedding configuration
type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"` // openai, etc.
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	// Database defaults
	viper.SetDefault("database.driver", "memory")
	viper.SetDefault("database.uri", "bolt://localhost:7687")
	viper.SetDefault("database.username", "")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.database", "")

	// NLP defaults
	viper.SetDefault("nlp.provider", "openai")
	viper.SetDefault("nlp.model", "gpt-4")
	viper.SetDefault("nlp.temperature", 0.1)
	viper.SetDefault("nlp.max_tokens", 2048)

	viper.SetDefault("embedding.provider", "openai")
	viper.SetDefault("embedding.model", "text-embedding-3-small")

	// Ingestion defaults
	viper.SetDefault("ingestion.semaphore_limit", 10)
	viper.SetDefault("ingestion.max_reflexion_iterations", 0)
	viper.SetDefault("ingestion.use_parallel_runtime", false)

	// Centrality defaults
	viper.SetDefault("centrality.use_rust_centrality", false)
	viper.SetDefault("centrality.rust_centrality_url", "")

	// Search defaults
	viper.SetDefault("search.default_k", 10)
	viper.SetDefault("search.fusion_k", 60)
	viper.SetDefault("search.mmr_lambda", 0.5)
	viper.SetDefault("search.reranker_multiplier", 3)

	// Telemetry defaults
	home, err := os.UserHomeDir()
	if err == nil {
		defaultPath := fmt.Sprintf("%s/.chrongraph/telemetry", home)
		viper.SetDefault("telemetry.parquet_path", defaultPath)
	}
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	// NLP API Key
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.NLP.APIKey = apiKey
		config.Embedding.APIKey = apiKey
	}
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" && config.NLP.Provider == "anthropic" {
		config.NLP.APIKey = apiKey
	}

	// Database credentials
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Database.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Database.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Database.Password = pass
	}

	// Generic database settings
	if dbDriver := os.Getenv("DB_DRIVER"); dbDriver != "" {
		config.Database.Driver = dbDriver
	}
	if dbURI := os.Getenv("DB_URI"); dbURI != "" {
		config.Database.URI = dbURI
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			config.Server.Port = n
		}
	}

	// Telemetry settings
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}

	// Ingestion settings
	if v := os.Getenv("SEMAPHORE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Ingestion.SemaphoreLimit = n
		}
	}
	if v := os.Getenv("MAX_REFLEXION_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Ingestion.MaxReflexionIterations = n
		}
	}
	if v := os.Getenv("USE_PARALLEL_RUNTIME"); v != "" {
		config.Ingestion.UseParallelRuntime = v == "true" || v == "1"
	}

	// Centrality settings
	if v := os.Getenv("USE_RUST_CENTRALITY"); v != "" {
		config.Centrality.UseRustCentrality = v == "true" || v == "1"
	}
	if v := os.Getenv("RUST_CENTRALITY_URL"); v != "" {
		config.Centrality.RustCentralityURL = v
	}
}
