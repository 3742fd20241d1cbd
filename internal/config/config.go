package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the ragpipe configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Bedrock   BedrockConfig   `yaml:"bedrock"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StoreConfig holds vector store connection and index settings.
type StoreConfig struct {
	Driver           string         `yaml:"driver"` // redis, valkey, weaviate (default: redis)
	Addrs            []string       `yaml:"addrs"`
	Password         string         `yaml:"password"`
	IndexName        string         `yaml:"index_name"`
	VectorDim        int            `yaml:"vector_dim"`
	HNSWM            int            `yaml:"hnsw_m"`
	HNSWEFConstruct  int            `yaml:"hnsw_ef_construction"`
	ReadinessTimeout int            `yaml:"readiness_timeout_sec"`
	Weaviate         WeaviateConfig `yaml:"weaviate"`
}

// WeaviateConfig holds weaviate-specific connection settings.
type WeaviateConfig struct {
	Host      string `yaml:"host"`
	Scheme    string `yaml:"scheme"`
	APIKey    string `yaml:"api_key"`
	ClassName string `yaml:"class_name"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // openai, bedrock (default: openai)
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Cache    bool   `yaml:"cache"`
}

// LLMConfig holds text generation provider settings.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai, bedrock (default: openai)
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// BedrockConfig holds AWS settings shared by bedrock providers.
type BedrockConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
}

// ChunkingConfig holds the ingestion chunking window.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Generation calls sit inside request handlers, keep this generous.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "redis"
	}
	if c.Store.IndexName == "" {
		c.Store.IndexName = "chunks"
	}
	if c.Store.VectorDim <= 0 {
		c.Store.VectorDim = 1536
	}
	if c.Store.HNSWM <= 0 {
		c.Store.HNSWM = 32
	}
	if c.Store.HNSWEFConstruct <= 0 {
		c.Store.HNSWEFConstruct = 400
	}
	if c.Store.ReadinessTimeout <= 0 {
		c.Store.ReadinessTimeout = 10
	}
	if c.Store.Weaviate.Scheme == "" {
		c.Store.Weaviate.Scheme = "http"
	}
	if c.Store.Weaviate.ClassName == "" {
		c.Store.Weaviate.ClassName = "Chunk"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		switch c.Embedding.Provider {
		case "bedrock":
			c.Embedding.Model = "amazon.titan-embed-text-v1"
		default:
			c.Embedding.Model = "text-embedding-3-small"
		}
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		switch c.LLM.Provider {
		case "bedrock":
			c.LLM.Model = "anthropic.claude-3-sonnet-20240229-v1:0"
		default:
			c.LLM.Model = "gpt-4o-mini"
		}
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 500
	}
	if c.LLM.Temperature <= 0 {
		c.LLM.Temperature = 0.7
	}
	if c.Chunking.ChunkSize <= 0 {
		c.Chunking.ChunkSize = 1000
	}
	if c.Chunking.ChunkOverlap <= 0 {
		c.Chunking.ChunkOverlap = 200
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Store.Driver {
	case "redis", "valkey":
		if len(c.Store.Addrs) == 0 {
			return fmt.Errorf("store.addrs is required for driver %q", c.Store.Driver)
		}
	case "weaviate":
		if c.Store.Weaviate.Host == "" {
			return fmt.Errorf("store.weaviate.host is required for driver weaviate")
		}
	default:
		return fmt.Errorf("store.driver must be redis, valkey or weaviate, got %q", c.Store.Driver)
	}

	switch c.Embedding.Provider {
	case "openai", "bedrock":
	default:
		return fmt.Errorf("embedding.provider must be openai or bedrock, got %q", c.Embedding.Provider)
	}
	switch c.LLM.Provider {
	case "openai", "bedrock":
	default:
		return fmt.Errorf("llm.provider must be openai or bedrock, got %q", c.LLM.Provider)
	}
	if (c.Embedding.Provider == "bedrock" || c.LLM.Provider == "bedrock") && c.Bedrock.Region == "" {
		return fmt.Errorf("bedrock.region is required for bedrock providers")
	}

	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}

	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
