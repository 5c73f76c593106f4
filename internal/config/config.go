package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/vibematch/internal/domain/match"
	"github.com/kailas-cloud/vibematch/internal/domain/search/request"
)

// Embedding drivers.
const (
	DriverOpenAI    = "openai"
	DriverLangchain = "langchain"
	DriverNone      = "none"
)

// Cache drivers.
const (
	CacheFile   = "file"
	CacheRedis  = "redis"
	CacheBadger = "badger"
	CacheMemory = "memory"
)

// Config holds the vibematch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cache     CacheConfig     `yaml:"cache"`
	Search    SearchConfig    `yaml:"search"`
	Catalog   CatalogConfig   `yaml:"catalog"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// EmbeddingConfig selects and tunes the remote embedding provider.
type EmbeddingConfig struct {
	Driver  string `yaml:"driver"` // openai (default), langchain, none
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// Dimensions is the expected vector length; synthetic vectors use it too.
	Dimensions int `yaml:"dimensions"`
	// RequestDimensions is sent to the API when > 0. text-embedding-ada-002 rejects it.
	RequestDimensions int          `yaml:"request_dimensions"`
	TimeoutSec        int          `yaml:"timeout_sec"`
	MaxBatch          int          `yaml:"max_batch"`
	Budget            BudgetConfig `yaml:"budget"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// CacheConfig selects the embedding cache backend.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // file (default), redis, badger, memory
	Path             string   `yaml:"path"`
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Key              string   `yaml:"key"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds query defaults. Zero thresholds select the defaults.
type SearchConfig struct {
	TopK              int      `yaml:"top_k"`
	MaxQueryLength    int      `yaml:"max_query_length"`
	FallbackThreshold float64  `yaml:"fallback_threshold"`
	GoodHitThreshold  float64  `yaml:"good_hit_threshold"`
	FallbackHints     []string `yaml:"fallback_hints"`
}

// Thresholds returns the configured classifier thresholds.
func (s SearchConfig) Thresholds() match.Thresholds {
	return match.Thresholds{Fallback: s.FallbackThreshold, GoodHit: s.GoodHitThreshold}
}

// CatalogConfig locates the item catalog. An empty path selects the built-in catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// RemoteEnabled reports whether a remote embedding provider should be built.
// The openai driver without an API key runs offline.
func (e EmbeddingConfig) RemoteEnabled() bool {
	switch e.Driver {
	case DriverOpenAI:
		return e.APIKey != ""
	case DriverLangchain:
		return true
	}
	return false
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
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
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Embedding.Driver == "" {
		c.Embedding.Driver = DriverOpenAI
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-ada-002"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 10
	}
	if c.Embedding.MaxBatch <= 0 {
		c.Embedding.MaxBatch = 256
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = CacheFile
	}
	if c.Cache.Path == "" {
		switch c.Cache.Driver {
		case CacheFile:
			c.Cache.Path = "data/embeddings_cache.json"
		case CacheBadger:
			c.Cache.Path = "data/embeddings_badger"
		}
	}
	if c.Cache.Key == "" {
		c.Cache.Key = "vibematch:emb_cache"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}

	if c.Search.TopK <= 0 {
		c.Search.TopK = 3
	}
	if c.Search.MaxQueryLength <= 0 {
		c.Search.MaxQueryLength = 512
	}
	if c.Search.FallbackThreshold == 0 {
		c.Search.FallbackThreshold = match.DefaultFallbackThreshold
	}
	if c.Search.GoodHitThreshold == 0 {
		c.Search.GoodHitThreshold = match.DefaultGoodHitThreshold
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Embedding.Driver {
	case DriverOpenAI, DriverLangchain, DriverNone:
	default:
		return fmt.Errorf("embedding.driver must be %q, %q or %q, got %q",
			DriverOpenAI, DriverLangchain, DriverNone, c.Embedding.Driver)
	}
	if c.Embedding.RequestDimensions < 0 {
		return fmt.Errorf("embedding.request_dimensions must be >= 0, got %d", c.Embedding.RequestDimensions)
	}
	switch c.Embedding.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf(
			"embedding.budget.action must be \"warn\" or \"reject\", got %q",
			c.Embedding.Budget.Action,
		)
	}

	switch c.Cache.Driver {
	case CacheFile, CacheBadger:
		if c.Cache.Path == "" {
			return fmt.Errorf("cache.path is required for the %s driver", c.Cache.Driver)
		}
	case CacheRedis:
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for the redis driver")
		}
	case CacheMemory:
	default:
		return fmt.Errorf("cache.driver must be file, redis, badger or memory, got %q", c.Cache.Driver)
	}

	if c.Search.TopK > request.MaxTopK {
		return fmt.Errorf("search.top_k must be between 1 and %d, got %d", request.MaxTopK, c.Search.TopK)
	}
	if err := c.Search.Thresholds().Validate(); err != nil {
		return fmt.Errorf("search thresholds: %w", err)
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
	return envVarRegex.ReplaceAllFunc(data, func(m []byte) []byte {
		expr := string(m[2 : len(m)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
