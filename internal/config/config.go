package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort       = 8080
	defaultEnv        = "development"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "bookableu"
	defaultRedisURL   = "redis://localhost:6379/0"

	defaultLLMModel       = "gpt-4o-mini"
	defaultTemperature    = 0.3
	defaultMaxTokens      = 500
	defaultTopP           = 0.9
	defaultPresencePen    = 0.1
	defaultStyle          = "academic"
	defaultWorkers        = 4
	defaultMaxUploadMB    = 20
	defaultExtractTimeout = 60
	defaultChunkWords     = 500
	defaultMaxVocabulary  = 1000
	defaultCacheTTLSec    = 600
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int              `yaml:"port"`
	Env            string           `yaml:"env"` // "development" | "production"
	DSN            string           `yaml:"dsn"` // MySQL DSN
	RedisURL       string           `yaml:"redis_url"`
	JWTSecret      string           `yaml:"jwt_secret"`
	AllowedOrigins []string         `yaml:"allowed_origins"`
	S3             S3Options        `yaml:"s3"`
	LLM            LLMConfig        `yaml:"llm"`
	Query          QueryConfig      `yaml:"query"`
	Processing     ProcessingConfig `yaml:"processing"`
}

// S3Options configures the object store holding books and derived artifacts.
type S3Options struct {
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Endpoint        string `yaml:"endpoint"`
	PathStyleAccess bool   `yaml:"path_style_access"`
}

// LLMProvider describes one configured completion backend.
type LLMProvider struct {
	ID           string `yaml:"id"`
	Type         string `yaml:"type"` // "openai" | "anthropic"
	APIKey       string `yaml:"api_key"`
	Endpoint     string `yaml:"endpoint"`
	DefaultModel string `yaml:"default_model"`
	Enabled      bool   `yaml:"enabled"`
}

// LLMConfig carries provider list and global sampling defaults.
type LLMConfig struct {
	Providers       []LLMProvider `yaml:"providers"`
	Temperature     float64       `yaml:"temperature"`
	MaxTokens       int           `yaml:"max_tokens"`
	TopP            float64       `yaml:"top_p"`
	PresencePenalty float64       `yaml:"presence_penalty"`
}

// QueryConfig holds book-query defaults.
type QueryConfig struct {
	InstructionStyle string `yaml:"instruction_style"` // academic | casual | concise
}

// ProcessingConfig bounds the indexing pipeline.
type ProcessingConfig struct {
	Workers               int `yaml:"workers"`
	MaxUploadMB           int `yaml:"max_upload_mb"`
	ExtractionTimeoutSecs int `yaml:"extraction_timeout_secs"`
	ChunkWords            int `yaml:"chunk_words"`
	MaxVocabulary         int `yaml:"max_vocabulary"`
	CacheTTLSecs          int `yaml:"cache_ttl_secs"`
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.ToLower(strings.TrimSpace(c.Env)) != "production"
}

// Load reads the YAML config file (if present), applies environment variable
// overrides, fills defaults and validates the result.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("BOOKABLEU_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("BOOKABLEU_ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("BOOKABLEU_DSN"); v != "" {
		cfg.DSN = v
	}
	if v := os.Getenv("BOOKABLEU_REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("BOOKABLEU_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" && cfg.S3.Region == "" {
		cfg.S3.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" && cfg.S3.AccessKeyID == "" {
		cfg.S3.AccessKeyID = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" && cfg.S3.SecretAccessKey == "" {
		cfg.S3.SecretAccessKey = v
	}
	if v := os.Getenv("BOOKABLEU_BUCKET"); v != "" && cfg.S3.Bucket == "" {
		cfg.S3.Bucket = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && !hasProviderType(cfg, "openai") {
		cfg.LLM.Providers = append(cfg.LLM.Providers, LLMProvider{
			ID: "openai", Type: "openai", APIKey: v, Enabled: true,
		})
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && !hasProviderType(cfg, "anthropic") {
		cfg.LLM.Providers = append(cfg.LLM.Providers, LLMProvider{
			ID: "anthropic", Type: "anthropic", APIKey: v, Enabled: true,
		})
	}
}

func hasProviderType(cfg *AppConfig, typ string) bool {
	for _, p := range cfg.LLM.Providers {
		if strings.EqualFold(strings.TrimSpace(p.Type), typ) {
			return true
		}
	}
	return false
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.DSN == "" {
		cfg.DSN = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			defaultDBUser, defaultDBPassword, defaultDBHost, defaultDBPort, defaultDBName)
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = defaultRedisURL
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = defaultTemperature
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = defaultMaxTokens
	}
	if cfg.LLM.TopP == 0 {
		cfg.LLM.TopP = defaultTopP
	}
	if cfg.LLM.PresencePenalty == 0 {
		cfg.LLM.PresencePenalty = defaultPresencePen
	}
	for i := range cfg.LLM.Providers {
		if cfg.LLM.Providers[i].DefaultModel == "" && strings.EqualFold(cfg.LLM.Providers[i].Type, "openai") {
			cfg.LLM.Providers[i].DefaultModel = defaultLLMModel
		}
	}
	if cfg.Query.InstructionStyle == "" {
		cfg.Query.InstructionStyle = defaultStyle
	}
	if cfg.Processing.Workers <= 0 {
		cfg.Processing.Workers = defaultWorkers
	}
	if cfg.Processing.MaxUploadMB <= 0 {
		cfg.Processing.MaxUploadMB = defaultMaxUploadMB
	}
	if cfg.Processing.ExtractionTimeoutSecs <= 0 {
		cfg.Processing.ExtractionTimeoutSecs = defaultExtractTimeout
	}
	if cfg.Processing.ChunkWords <= 0 {
		cfg.Processing.ChunkWords = defaultChunkWords
	}
	if cfg.Processing.MaxVocabulary <= 0 {
		cfg.Processing.MaxVocabulary = defaultMaxVocabulary
	}
	if cfg.Processing.CacheTTLSecs <= 0 {
		cfg.Processing.CacheTTLSecs = defaultCacheTTLSec
	}
}

func validate(cfg *AppConfig) error {
	if cfg.IsDev() {
		return nil
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret must be set in production")
	}
	if cfg.S3.Bucket == "" || cfg.S3.Region == "" {
		return fmt.Errorf("s3 bucket and region must be set in production")
	}
	if cfg.S3.AccessKeyID == "" || cfg.S3.SecretAccessKey == "" {
		return fmt.Errorf("s3 credentials must be set in production")
	}
	enabled := false
	for _, p := range cfg.LLM.Providers {
		if p.Enabled && strings.TrimSpace(p.APIKey) != "" {
			enabled = true
			break
		}
	}
	if !enabled {
		return fmt.Errorf("at least one enabled llm provider is required in production")
	}
	return nil
}
