package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment" yaml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server" yaml:"server"`
	Storage     StorageConfig    `toml:"storage" yaml:"storage"`
	Logging     LoggingConfig    `toml:"logging" yaml:"logging"`
	Pipeline    PipelineConfig   `toml:"pipeline" yaml:"pipeline"`
	Retrieval   RetrievalConfig  `toml:"retrieval" yaml:"retrieval"`
	Crawler     CrawlerConfig    `toml:"crawler" yaml:"crawler"`
	Embeddings  EmbeddingsConfig `toml:"embeddings" yaml:"embeddings"`
	Gemini      GeminiConfig     `toml:"gemini" yaml:"gemini"`
	Claude      ClaudeConfig     `toml:"claude" yaml:"claude"`
	LLM         LLMConfig        `toml:"llm" yaml:"llm"`
	Digest      DigestConfig     `toml:"digest" yaml:"digest"`
}

type ServerConfig struct {
	Port int    `toml:"port" yaml:"port" validate:"gte=0,lte=65535"`
	Host string `toml:"host" yaml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger" yaml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" yaml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup" yaml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level" yaml:"level"`   // "debug", "info", "warn", "error"
	Output []string `toml:"output" yaml:"output"` // "stdout", "file"
}

// PipelineConfig controls section processing behavior
type PipelineConfig struct {
	SmallSectionThreshold int `toml:"small_section_threshold" yaml:"small_section_threshold" validate:"gte=1"` // Sections at or below this token count are summarized directly
	ChunkMaxTokens        int `toml:"chunk_max_tokens" yaml:"chunk_max_tokens" validate:"gte=1"`               // Token budget per chunk for large sections
	MaxSectionsPerPage    int `toml:"max_sections_per_page" yaml:"max_sections_per_page" validate:"gte=1"`
	MaxChunksPerSection   int `toml:"max_chunks_per_section" yaml:"max_chunks_per_section" validate:"gte=1"`
	MinSectionChars       int `toml:"min_section_chars" yaml:"min_section_chars"` // Sections shorter than this are dropped
	MinIntroChars         int `toml:"min_intro_chars" yaml:"min_intro_chars"`     // Minimum size for the synthetic Introduction section
	FactWorkers           int `toml:"fact_workers" yaml:"fact_workers" validate:"gte=1"` // Concurrent fact extraction calls per section
}

// RetrievalConfig controls similarity search and context assembly
type RetrievalConfig struct {
	TopK             int     `toml:"top_k" yaml:"top_k" validate:"gte=1"`
	MinScore         float64 `toml:"min_score" yaml:"min_score" validate:"gte=0,lte=1"`
	ContextMaxTokens int     `toml:"context_max_tokens" yaml:"context_max_tokens" validate:"gte=1"`
	FallbackTopK     int     `toml:"fallback_top_k" yaml:"fallback_top_k" validate:"gte=1"` // Per-page top-k when re-querying fallback pages
}

// CrawlerConfig controls link-following fallback fetches
type CrawlerConfig struct {
	UserAgent    string `toml:"user_agent" yaml:"user_agent"`
	FetchTimeout string `toml:"fetch_timeout" yaml:"fetch_timeout"` // Per-fetch timeout as duration string (default: "10s")
	MaxBodySize  int    `toml:"max_body_size" yaml:"max_body_size"`
	MaxPages     int    `toml:"max_pages" yaml:"max_pages" validate:"gte=1"` // Top-scored links fetched in parallel
}

// EmbeddingsConfig contains embedding model configuration
type EmbeddingsConfig struct {
	Model     string `toml:"model" yaml:"model"`
	Dimension int    `toml:"dimension" yaml:"dimension" validate:"gte=1"`
	BatchSize int    `toml:"batch_size" yaml:"batch_size" validate:"gte=1"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key" yaml:"api_key"`
	Model       string  `toml:"model" yaml:"model"`
	Timeout     string  `toml:"timeout" yaml:"timeout"`       // Operation timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit" yaml:"rate_limit"` // Minimum interval between API calls (default: "4s" for 15 RPM)
	Temperature float32 `toml:"temperature" yaml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key" yaml:"api_key"`
	Model       string  `toml:"model" yaml:"model"`
	MaxTokens   int     `toml:"max_tokens" yaml:"max_tokens"`
	Timeout     string  `toml:"timeout" yaml:"timeout"`
	RateLimit   string  `toml:"rate_limit" yaml:"rate_limit"`
	Temperature float32 `toml:"temperature" yaml:"temperature"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects the generation provider
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" yaml:"default_provider"`
}

// DigestConfig controls the scheduled corpus digest refresh
type DigestConfig struct {
	Enabled  bool   `toml:"enabled" yaml:"enabled"`
	Schedule string `toml:"schedule" yaml:"schedule"` // Cron schedule or @every syntax
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Pipeline: PipelineConfig{
			SmallSectionThreshold: 400, // Sections below ~400 tokens skip the chunking path
			ChunkMaxTokens:        512,
			MaxSectionsPerPage:    30,
			MaxChunksPerSection:   50,
			MinSectionChars:       20,
			MinIntroChars:         50,
			FactWorkers:           4,
		},
		Retrieval: RetrievalConfig{
			TopK:             5,
			MinScore:         0.35,
			ContextMaxTokens: 2000,
			FallbackTopK:     3,
		},
		Crawler: CrawlerConfig{
			UserAgent:    "docpilot/1.0 (+https://github.com/docpilot/docpilot)",
			FetchTimeout: "10s",
			MaxBodySize:  10 * 1024 * 1024, // 10MB
			MaxPages:     3,
		},
		Embeddings: EmbeddingsConfig{
			Model:     "gemini-embedding-001",
			Dimension: 768,
			BatchSize: 96, // Provider batch ceiling is 100
		},
		Gemini: GeminiConfig{
			APIKey:      "", // User must provide API key (no fallback)
			Model:       "gemini-2.0-flash",
			Timeout:     "5m",
			RateLimit:   "4s", // Default to 4s (15 RPM) for free tier
			Temperature: 0.5,
		},
		Claude: ClaudeConfig{
			APIKey:      "", // ANTHROPIC_API_KEY or config
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Timeout:     "5m",
			RateLimit:   "1s",
			Temperature: 0.5,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Digest: DigestConfig{
			Enabled:  false, // User must explicitly opt-in
			Schedule: "@every 6h",
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env -> CLI.
// Later files override earlier files. TOML and YAML files are both accepted,
// dispatched on extension.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, config)
		default:
			err = toml.Unmarshal(data, config)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("DOCPILOT_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("DOCPILOT_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("DOCPILOT_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("DOCPILOT_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("DOCPILOT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Pipeline configuration
	if threshold := os.Getenv("DOCPILOT_PIPELINE_SMALL_SECTION_THRESHOLD"); threshold != "" {
		if t, err := strconv.Atoi(threshold); err == nil {
			config.Pipeline.SmallSectionThreshold = t
		}
	}
	if workers := os.Getenv("DOCPILOT_PIPELINE_FACT_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			config.Pipeline.FactWorkers = w
		}
	}

	// Retrieval configuration
	if topK := os.Getenv("DOCPILOT_RETRIEVAL_TOP_K"); topK != "" {
		if k, err := strconv.Atoi(topK); err == nil {
			config.Retrieval.TopK = k
		}
	}
	if minScore := os.Getenv("DOCPILOT_RETRIEVAL_MIN_SCORE"); minScore != "" {
		if s, err := strconv.ParseFloat(minScore, 64); err == nil {
			config.Retrieval.MinScore = s
		}
	}

	// Crawler configuration
	if userAgent := os.Getenv("DOCPILOT_CRAWLER_USER_AGENT"); userAgent != "" {
		config.Crawler.UserAgent = userAgent
	}
	if fetchTimeout := os.Getenv("DOCPILOT_CRAWLER_FETCH_TIMEOUT"); fetchTimeout != "" {
		config.Crawler.FetchTimeout = fetchTimeout
	}
	if maxPages := os.Getenv("DOCPILOT_CRAWLER_MAX_PAGES"); maxPages != "" {
		if mp, err := strconv.Atoi(maxPages); err == nil {
			config.Crawler.MaxPages = mp
		}
	}

	// Embeddings configuration
	if model := os.Getenv("DOCPILOT_EMBEDDINGS_MODEL"); model != "" {
		config.Embeddings.Model = model
	}
	if dimension := os.Getenv("DOCPILOT_EMBEDDINGS_DIMENSION"); dimension != "" {
		if d, err := strconv.Atoi(dimension); err == nil {
			config.Embeddings.Dimension = d
		}
	}

	// Gemini configuration
	if apiKey := os.Getenv("DOCPILOT_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("DOCPILOT_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if rateLimit := os.Getenv("DOCPILOT_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.Gemini.RateLimit = rateLimit
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("DOCPILOT_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // DOCPILOT_ prefix takes priority
	}
	if model := os.Getenv("DOCPILOT_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	// LLM provider configuration
	if provider := os.Getenv("DOCPILOT_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}

	// Digest configuration
	if enabled := os.Getenv("DOCPILOT_DIGEST_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Digest.Enabled = e
		}
	}
	if schedule := os.Getenv("DOCPILOT_DIGEST_SCHEDULE"); schedule != "" {
		config.Digest.Schedule = schedule
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	switch c.Environment {
	case "production", "prod":
		return true
	}
	return false
}
