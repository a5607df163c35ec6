package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Logging     LoggingConfig    `toml:"logging"`
	Storage     StorageConfig    `toml:"storage"`
	Qdrant      QdrantConfig     `toml:"qdrant"`
	Classifier  ClassifierConfig `toml:"classifier"`
	LLM         LLMConfig        `toml:"llm"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Claude      ClaudeConfig     `toml:"claude"`
	OpenAI      OpenAIConfig     `toml:"openai"`
	Retrieval   RetrievalConfig  `toml:"retrieval"`
	Memory      MemoryConfig     `toml:"memory"`
	Answer      AnswerConfig     `toml:"answer"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

type StorageConfig struct {
	Backend string       `toml:"backend" validate:"oneof=badger inmemory"` // memory record store backend
	Badger  BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// QdrantConfig configures the vector index client. One collection is
// created per user, named "<collection_prefix>-<userID>".
type QdrantConfig struct {
	URL              string `toml:"url" validate:"required,url"`
	APIKey           string `toml:"api_key"`
	CollectionPrefix string `toml:"collection_prefix"`
	Timeout          string `toml:"timeout"` // request timeout as duration string
}

// ClassifierConfig configures the local relevance scoring server client
type ClassifierConfig struct {
	URL     string `toml:"url"` // empty disables reranking (similarity order pass-through)
	Timeout string `toml:"timeout"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
	// LLMProviderOpenAI uses the OpenAI API
	LLMProviderOpenAI LLMProvider = "openai"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=gemini claude openai"`
	EmbedProvider   LLMProvider `toml:"embed_provider" validate:"oneof=gemini openai"`
	EmbedModel      string      `toml:"embed_model"`
	EmbedDimension  int         `toml:"embed_dimension" validate:"gt=0"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`    // operation timeout as duration string
	RateLimit   string  `toml:"rate_limit"` // minimum interval between calls
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	RateLimit   string  `toml:"rate_limit"`
	Temperature float32 `toml:"temperature"`
}

// OpenAIConfig contains OpenAI API configuration
type OpenAIConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	RateLimit   string  `toml:"rate_limit"`
	Temperature float32 `toml:"temperature"`
}

// RetrievalConfig tunes the dual-channel retriever and reranker
type RetrievalConfig struct {
	TopK          int     `toml:"top_k" validate:"gt=0"`
	MinSimilarity float64 `toml:"min_similarity" validate:"gte=0,lte=1"`
	HydeMaxTokens int     `toml:"hyde_max_tokens"`
}

// MemoryConfig tunes the conversational memory fetches and eviction
type MemoryConfig struct {
	ConversationLimit     int    `toml:"conversation_limit"`
	RecentDocsHours       int    `toml:"recent_docs_hours"`
	RelevantLimit         int    `toml:"relevant_limit"`
	EvictionDays          int    `toml:"eviction_days"`     // 0 disables age-based eviction
	EvictionSchedule      string `toml:"eviction_schedule"` // cron expression
	ContextBudget         int    `toml:"context_budget"`    // total character budget for memory context
	ConversationShare     int    `toml:"conversation_share"`
	RecentDocumentsShare  int    `toml:"recent_documents_share"`
	RelevantMemoriesShare int    `toml:"relevant_memories_share"`
}

// AnswerConfig tunes the answer orchestrator
type AnswerConfig struct {
	Persona     string  `toml:"persona"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// NewDefaultConfig creates a configuration with default values.
// Values mirror the thresholds the pipeline was tuned with; only
// user-facing settings should need overriding in docuchat.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Storage: StorageConfig{
			Backend: "badger",
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Qdrant: QdrantConfig{
			URL:              "http://localhost:6333",
			CollectionPrefix: "docuchat",
			Timeout:          "15s",
		},
		Classifier: ClassifierConfig{
			URL:     "http://127.0.0.1:8088",
			Timeout: "10s",
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
			EmbedProvider:   LLMProviderGemini,
			EmbedModel:      "gemini-embedding-001",
			EmbedDimension:  1536,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-3-flash-preview",
			Timeout:     "2m",
			RateLimit:   "4s",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0.7,
		},
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o-mini",
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0.7,
		},
		Retrieval: RetrievalConfig{
			TopK:          5,
			MinSimilarity: 0.60,
			HydeMaxTokens: 500,
		},
		Memory: MemoryConfig{
			ConversationLimit:     5,
			RecentDocsHours:       24,
			RelevantLimit:         3,
			EvictionDays:          0,
			EvictionSchedule:      "0 3 * * *",
			ContextBudget:         4000,
			ConversationShare:     30,
			RecentDocumentsShare:  40,
			RelevantMemoriesShare: 30,
		},
		Answer: AnswerConfig{
			Persona:     "hitesh",
			MaxTokens:   1000,
			Temperature: 0.7,
		},
	}
}

// LoadFromFiles loads configuration: defaults, then each TOML file in order
// (later files override earlier ones), then environment variables. Missing
// files are an error; an empty list returns defaults plus env overrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies DOCUCHAT_* environment variables over the
// loaded configuration. Only settings that make sense per-deployment are
// exposed; API keys first, since those should never live in config files.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("DOCUCHAT_GEMINI_API_KEY"); v != "" {
		config.Gemini.APIKey = v
	}
	if v := os.Getenv("DOCUCHAT_ANTHROPIC_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}
	if v := os.Getenv("DOCUCHAT_OPENAI_API_KEY"); v != "" {
		config.OpenAI.APIKey = v
	}
	if v := os.Getenv("DOCUCHAT_QDRANT_URL"); v != "" {
		config.Qdrant.URL = v
	}
	if v := os.Getenv("DOCUCHAT_QDRANT_API_KEY"); v != "" {
		config.Qdrant.APIKey = v
	}
	if v := os.Getenv("DOCUCHAT_CLASSIFIER_URL"); v != "" {
		config.Classifier.URL = v
	}
	if v := os.Getenv("DOCUCHAT_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("DOCUCHAT_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = v
	}
	if v := os.Getenv("DOCUCHAT_DEFAULT_PROVIDER"); v != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(v))
	}
	if v := os.Getenv("DOCUCHAT_EMBED_DIMENSION"); v != "" {
		if dim, err := strconv.Atoi(v); err == nil && dim > 0 {
			config.LLM.EmbedDimension = dim
		}
	}
}

// ApplyFlagOverrides applies command-line flag values over the loaded
// configuration. Flags have the highest priority.
func ApplyFlagOverrides(config *Config, persona string, topK int) {
	if persona != "" {
		config.Answer.Persona = persona
	}
	if topK > 0 {
		config.Retrieval.TopK = topK
	}
}
