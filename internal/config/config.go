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

// Config holds the raggate gateway configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Store     StoreConfig     `yaml:"store"`
	Model     ModelConfig     `yaml:"model"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Summarize SummarizeConfig `yaml:"summarize"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Mock      bool            `yaml:"mock"`
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
	Port              int `yaml:"port"`
	ReadTimeoutSec    int `yaml:"read_timeout_sec"`
	WriteTimeoutSec   int `yaml:"write_timeout_sec"`
	RequestTimeoutSec int `yaml:"request_timeout_sec"`
	ShutdownSec       int `yaml:"shutdown_timeout_sec"`
}

// StoreConfig holds document store connection settings.
type StoreConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Index            string   `yaml:"index"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
}

// ModelConfig holds model provider settings.
type ModelConfig struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	EmbeddingModel  string `yaml:"embedding_model"`
	Dimensions      int    `yaml:"dimensions"`
	GenerationModel string `yaml:"generation_model"`
	MaxTokens       int    `yaml:"max_tokens"`
}

// RetrievalConfig holds hybrid retrieval tuning knobs.
type RetrievalConfig struct {
	RankConstant  int     `yaml:"rank_constant"`  // RRF k
	FusionWindow  int     `yaml:"fusion_window"`  // candidates per channel before fusion
	CandidatePool int     `yaml:"candidate_pool"` // kNN candidate pool size
	ScoreCeiling  float64 `yaml:"score_ceiling"`  // empirical ceiling for confidence normalization
	RerankBlend   float64 `yaml:"rerank_blend"`   // weight of the rerank score in combined score
}

// SummarizeConfig holds grounded summarization defaults.
type SummarizeConfig struct {
	MaxWords      int     `yaml:"max_words"`
	TemperatureLo float64 `yaml:"temperature_technical"`
	TemperatureHi float64 `yaml:"temperature_default"`
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

// UseMock reports whether the gateway should run against in-memory
// collaborators: either mock is set explicitly, or the real store and
// model provider are not configured.
func (c *Config) UseMock() bool {
	if c.Mock {
		return true
	}
	return len(c.Store.Addrs) == 0 || c.Model.APIKey == ""
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.RequestTimeoutSec <= 0 {
		c.HTTP.RequestTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Store.Index == "" {
		c.Store.Index = "enterprise_docs"
	}
	if c.Store.KeyPrefix == "" {
		c.Store.KeyPrefix = "raggate:"
	}
	if c.Store.ReadinessTimeout <= 0 {
		c.Store.ReadinessTimeout = 10
	}
	if c.Store.HNSWM <= 0 {
		c.Store.HNSWM = 32
	}
	if c.Store.HNSWEFConstruct <= 0 {
		c.Store.HNSWEFConstruct = 400
	}
	if c.Model.Dimensions <= 0 {
		c.Model.Dimensions = 768
	}
	if c.Model.MaxTokens <= 0 {
		c.Model.MaxTokens = 2048
	}
	if c.Retrieval.RankConstant <= 0 {
		c.Retrieval.RankConstant = 60
	}
	if c.Retrieval.FusionWindow <= 0 {
		c.Retrieval.FusionWindow = 100
	}
	if c.Retrieval.CandidatePool <= 0 {
		c.Retrieval.CandidatePool = 100
	}
	if c.Retrieval.ScoreCeiling <= 0 {
		c.Retrieval.ScoreCeiling = 20
	}
	if c.Retrieval.RerankBlend <= 0 {
		c.Retrieval.RerankBlend = 0.6
	}
	if c.Summarize.MaxWords <= 0 {
		c.Summarize.MaxWords = 500
	}
	if c.Summarize.TemperatureLo <= 0 {
		c.Summarize.TemperatureLo = 0.3
	}
	if c.Summarize.TemperatureHi <= 0 {
		c.Summarize.TemperatureHi = 0.7
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if !c.UseMock() && len(c.Store.Addrs) == 0 {
		return fmt.Errorf("store.addrs is required outside mock mode")
	}
	if c.Retrieval.RerankBlend < 0 || c.Retrieval.RerankBlend > 1 {
		return fmt.Errorf("retrieval.rerank_blend must be between 0 and 1, got %g", c.Retrieval.RerankBlend)
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
