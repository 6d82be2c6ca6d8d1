package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Vector store drivers.
const (
	DriverChroma  = "chroma"
	DriverQdrant  = "qdrant"
	DriverChromem = "chromem"
)

// Config holds the textupsert service configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Auth        AuthConfig        `yaml:"auth"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Cache       CacheConfig       `yaml:"cache"`
	Health      HealthConfig      `yaml:"health"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIToken string   `yaml:"api_token"` // required
	APIKeys  []string `yaml:"api_keys"`  // additional accepted tokens, e.g. during rotation
}

// Tokens returns every accepted bearer token.
func (a AuthConfig) Tokens() []string {
	out := make([]string, 0, len(a.APIKeys)+1)
	if a.APIToken != "" {
		out = append(out, a.APIToken)
	}
	for _, k := range a.APIKeys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int             `yaml:"port"`
	ReadTimeoutSec  int             `yaml:"read_timeout_sec"`
	WriteTimeoutSec int             `yaml:"write_timeout_sec"`
	ShutdownSec     int             `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes    int64           `yaml:"max_body_bytes"`
	CORS            CORSConfig      `yaml:"cors"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// CORSConfig holds cross-origin settings.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAgeSec        int      `yaml:"max_age_sec"`
}

// RateLimitConfig holds the upsert token bucket. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // label for logs and metrics
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"` // 0 = model default, no dimension check
	User       string `yaml:"user"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// Timeout returns the per-call embedding timeout.
func (e EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSec) * time.Second
}

// VectorStoreConfig holds the vector database settings.
type VectorStoreConfig struct {
	Driver     string        `yaml:"driver"` // chroma (default), qdrant, chromem
	Collection string        `yaml:"collection"`
	TimeoutSec int           `yaml:"timeout_sec"`
	Chroma     ChromaConfig  `yaml:"chroma"`
	Qdrant     QdrantConfig  `yaml:"qdrant"`
	Chromem    ChromemConfig `yaml:"chromem"`
}

// Timeout returns the per-call store timeout.
func (v VectorStoreConfig) Timeout() time.Duration {
	return time.Duration(v.TimeoutSec) * time.Second
}

// ChromaConfig holds remote Chroma settings.
type ChromaConfig struct {
	URL        string `yaml:"url"`
	Token      string `yaml:"token"`
	AuthHeader string `yaml:"auth_header"` // Authorization (bearer) or X-Chroma-Token
	Tenant     string `yaml:"tenant"`
	Database   string `yaml:"database"`
	Distance   string `yaml:"distance"` // hnsw:space on creation: cosine, l2, ip
}

// QdrantConfig holds Qdrant gRPC settings.
type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
	UseTLS bool   `yaml:"use_tls"`
}

// ChromemConfig holds embedded store settings. Empty path keeps data in memory.
type ChromemConfig struct {
	Path     string `yaml:"path"`
	Compress bool   `yaml:"compress"`
}

// CacheConfig holds the optional redis/valkey embedding cache.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	KeyPrefix        string   `yaml:"key_prefix"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// HealthConfig controls upstream probing on GET /health.
type HealthConfig struct {
	ProbeUpstreams  bool `yaml:"probe_upstreams"`
	ProbeTimeoutSec int  `yaml:"probe_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// CONFIG_PATH, when set, points at the file directly.
func Load(env string) (Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = findConfigPath(env)
	}
	return LoadFile(configPath)
}

// LoadFile reads, expands, defaults and validates a single config file.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references in data and decodes it.
func Parse(data []byte) (Config, error) {
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8088
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 2 << 20
	}
	if len(c.HTTP.CORS.AllowedOrigins) == 0 {
		c.HTTP.CORS.AllowedOrigins = []string{"*"}
	}
	if c.HTTP.CORS.MaxAgeSec <= 0 {
		c.HTTP.CORS.MaxAgeSec = 300
	}
	if c.HTTP.RateLimit.RPS > 0 && c.HTTP.RateLimit.Burst <= 0 {
		c.HTTP.RateLimit.Burst = int(c.HTTP.RateLimit.RPS) + 1
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}

	if c.VectorStore.Driver == "" {
		c.VectorStore.Driver = DriverChroma
	}
	if c.VectorStore.TimeoutSec <= 0 {
		c.VectorStore.TimeoutSec = 15
	}
	if c.VectorStore.Chroma.AuthHeader == "" {
		c.VectorStore.Chroma.AuthHeader = "Authorization"
	}
	if c.VectorStore.Chroma.Tenant == "" {
		c.VectorStore.Chroma.Tenant = "default_tenant"
	}
	if c.VectorStore.Chroma.Database == "" {
		c.VectorStore.Chroma.Database = "default_database"
	}
	if c.VectorStore.Qdrant.Port == 0 {
		c.VectorStore.Qdrant.Port = 6334
	}

	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "textupsert:"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 7 * 24 * 3600
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}

	if c.Health.ProbeTimeoutSec <= 0 {
		c.Health.ProbeTimeoutSec = 5
	}
}

// Validate checks the configuration for correctness. Every missing required
// value is reported, not just the first.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}
	if c.HTTP.RateLimit.RPS < 0 {
		errs = append(errs, fmt.Errorf("http.rate_limit.rps must not be negative"))
	}
	if c.Auth.APIToken == "" {
		errs = append(errs, fmt.Errorf("auth.api_token is required (API_BEARER_TOKEN)"))
	}
	if c.Embedding.APIKey == "" {
		errs = append(errs, fmt.Errorf("embedding.api_key is required (OPENAI_API_KEY)"))
	}
	if c.Embedding.Dimensions < 0 {
		errs = append(errs, fmt.Errorf("embedding.dimensions must not be negative"))
	}
	if c.VectorStore.Collection == "" {
		errs = append(errs, fmt.Errorf("vector_store.collection is required (CHROMA_COLLECTION_NAME)"))
	}

	switch c.VectorStore.Driver {
	case DriverChroma:
		if c.VectorStore.Chroma.URL == "" {
			errs = append(errs, fmt.Errorf("vector_store.chroma.url is required (CHROMA_REMOTE_URL)"))
		}
		if c.VectorStore.Chroma.Token == "" {
			errs = append(errs, fmt.Errorf("vector_store.chroma.token is required (CHROMA_BEARER_TOKEN)"))
		}
		switch c.VectorStore.Chroma.AuthHeader {
		case "Authorization", "X-Chroma-Token":
		default:
			errs = append(errs, fmt.Errorf(
				"vector_store.chroma.auth_header must be \"Authorization\" or \"X-Chroma-Token\", got %q",
				c.VectorStore.Chroma.AuthHeader))
		}
	case DriverQdrant:
		if c.VectorStore.Qdrant.Host == "" {
			errs = append(errs, fmt.Errorf("vector_store.qdrant.host is required"))
		}
		if c.Embedding.Dimensions == 0 {
			errs = append(errs, fmt.Errorf("embedding.dimensions is required for the qdrant driver"))
		}
	case DriverChromem:
	default:
		errs = append(errs, fmt.Errorf("vector_store.driver must be one of chroma, qdrant, chromem, got %q",
			c.VectorStore.Driver))
	}

	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		errs = append(errs, fmt.Errorf("cache.addrs is required when cache is enabled"))
	}

	return errors.Join(errs...)
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
