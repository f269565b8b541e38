package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config is the application's top-level configuration.
type Config struct {
	Conversation   *ConversationConfig   `yaml:"conversation" json:"conversation"`
	Server         *ServerConfig         `yaml:"server" json:"server"`
	Models         []ModelConfig         `yaml:"models" json:"models"`
	VectorDatabase *VectorDatabaseConfig `yaml:"vector_database" json:"vector_database"`
	StreamManager  *StreamManagerConfig  `yaml:"stream_manager" json:"stream_manager"`
	Health         *HealthConfig         `yaml:"health" json:"health"`
	Rerank         *RerankConfig         `yaml:"rerank" json:"rerank"`
	Enrichment     *EnrichmentConfig     `yaml:"enrichment" json:"enrichment"`
	TokenTracking  *TokenTrackingConfig  `yaml:"token_tracking" json:"token_tracking"`
	Search         *SearchConfig         `yaml:"search" json:"search"`
	Evaluation     *EvaluationConfig     `yaml:"evaluation" json:"evaluation"`
}

// SearchConfig configures the search entry point's request-level bounds.
type SearchConfig struct {
	MaxQuestionLength int           `yaml:"max_question_length" json:"max_question_length" default:"2000"`
	RequestDeadline   time.Duration `yaml:"request_deadline" json:"request_deadline" default:"30s"`
}

// VectorDatabaseConfig selects and configures the vector-store backend.
type VectorDatabaseConfig struct {
	Driver string `yaml:"driver" json:"driver"`
}

// ConversationConfig configures the search pipeline's default behavior
// when a request doesn't name an explicit PipelineConfig.
type ConversationConfig struct {
	MaxRounds                  int     `yaml:"max_rounds" json:"max_rounds"`
	KeywordThreshold           float64 `yaml:"keyword_threshold" json:"keyword_threshold"`
	EmbeddingTopK              int     `yaml:"embedding_top_k" json:"embedding_top_k"`
	VectorThreshold            float64 `yaml:"vector_threshold" json:"vector_threshold"`
	RerankTopK                 int     `yaml:"rerank_top_k" json:"rerank_top_k"`
	RerankThreshold             float64 `yaml:"rerank_threshold" json:"rerank_threshold"`
	FallbackStrategy           string  `yaml:"fallback_strategy" json:"fallback_strategy"`
	FallbackResponse           string  `yaml:"fallback_response" json:"fallback_response"`
	EnableRewrite              bool    `yaml:"enable_rewrite" json:"enable_rewrite"`
	EnableRerank               bool    `yaml:"enable_rerank" json:"enable_rerank"`
	EnableCoT                  bool    `yaml:"enable_cot" json:"enable_cot"`
	GenerateSessionTitlePrompt string  `yaml:"generate_session_title_prompt" json:"generate_session_title_prompt"`
	RewritePromptSystem        string  `yaml:"rewrite_prompt_system" json:"rewrite_prompt_system"`
	RewritePromptUser          string  `yaml:"rewrite_prompt_user" json:"rewrite_prompt_user"`
	SimplifyQueryPrompt        string  `yaml:"simplify_query_prompt" json:"simplify_query_prompt"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port            int           `yaml:"port" json:"port"`
	Host            string        `yaml:"host" json:"host"`
	LogPath         string        `yaml:"log_path" json:"log_path"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" default:"30s"`
	JWTSecret       string        `yaml:"jwt_secret" json:"jwt_secret"`
}

// ModelConfig is one entry of the seed model registry.
type ModelConfig struct {
	Type       string                 `yaml:"type" json:"type"`
	Source     string                 `yaml:"source" json:"source"`
	ModelName  string                 `yaml:"model_name" json:"model_name"`
	Parameters map[string]interface{} `yaml:"parameters" json:"parameters"`
}

// StreamManagerConfig configures generation-stream tracking.
type StreamManagerConfig struct {
	Type           string        `yaml:"type" json:"type"` // "memory" or "redis"
	Redis          RedisConfig   `yaml:"redis" json:"redis"`
	CleanupTimeout time.Duration `yaml:"cleanup_timeout" json:"cleanup_timeout"`
}

// RedisConfig configures the shared redis client (stream manager + asynq).
type RedisConfig struct {
	Address  string        `yaml:"address" json:"address"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	Prefix   string        `yaml:"prefix" json:"prefix"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
}

// HealthConfig configures the dependency health-check framework.
type HealthConfig struct {
	Services         []HealthServiceConfig `yaml:"services" json:"services"`
	OverallTimeout   time.Duration         `yaml:"overall_timeout" json:"overall_timeout"`
	MaxParallelChecks int                  `yaml:"max_parallel_checks" json:"max_parallel_checks"`
}

// HealthServiceConfig is one YAML entry under health.services.
type HealthServiceConfig struct {
	Name          string        `yaml:"name" json:"name"`
	CheckType     string        `yaml:"check_type" json:"check_type"`
	URL           string        `yaml:"url" json:"url"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	RetryCount    int           `yaml:"retry_count" json:"retry_count"`
	RetryDelay    time.Duration `yaml:"retry_delay" json:"retry_delay"`
	RetryStrategy string        `yaml:"retry_strategy" json:"retry_strategy"` // exponential (default), linear, fixed
	RetryMaxDelay time.Duration `yaml:"retry_max_delay" json:"retry_max_delay"`
	RetryJitter   *bool         `yaml:"retry_jitter" json:"retry_jitter"` // nil keeps the default (on)
	DeepCheck     bool          `yaml:"deep_health_check" json:"deep_health_check"`
}

// RerankConfig configures the reranking stage.
type RerankConfig struct {
	// Strategy selects the internal/rerank implementation: "passthrough",
	// "llm_judge", or "cross_encoder" (default when empty).
	Strategy       string  `yaml:"strategy" json:"strategy"`
	DefaultModelID string  `yaml:"default_model_id" json:"default_model_id"`
	LLMProviderID  string  `yaml:"llm_provider_id" json:"llm_provider_id"`
	PromptTemplate string  `yaml:"prompt_template_id" json:"prompt_template_id"`
	ScoreScale     int     `yaml:"score_scale" json:"score_scale"`
	TopK           int     `yaml:"top_k" json:"top_k"`
	Threshold      float64 `yaml:"threshold" json:"threshold"`
	BatchSize      int     `yaml:"batch_size" json:"batch_size"`
}

// EnrichmentConfig configures the search-result enricher.
type EnrichmentConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Tools names the tool set to run when a request doesn't ask for
	// specific tools; empty means discover from the gateway.
	Tools []string `yaml:"tools" json:"tools"`
	// Parallel toggles concurrent tool execution; nil keeps the default (on).
	Parallel *bool `yaml:"parallel" json:"parallel"`
	// FailSilently, when off, escalates tool failures to error-level logs
	// and surfaces the first error in the enrichment summary; results are
	// still never mutated. nil keeps the default (on).
	FailSilently   *bool         `yaml:"fail_silently" json:"fail_silently"`
	MaxConcurrency int           `yaml:"max_concurrency" json:"max_concurrency"`
	GatewayURL     string        `yaml:"gateway_url" json:"gateway_url"`
	GatewayTimeout time.Duration `yaml:"gateway_timeout" json:"gateway_timeout"`
}

// EvaluationConfig selects the evaluator strategy.
type EvaluationConfig struct {
	Mode string `yaml:"mode" json:"mode"` // "cosine" (default) or "llm_judge"
}

// TokenTrackingConfig configures the conversation token-budget warnings.
type TokenTrackingConfig struct {
	MaxContextTokens    int     `yaml:"max_context_tokens" json:"max_context_tokens"`
	ApproachingRatio    float64 `yaml:"approaching_ratio" json:"approaching_ratio"`
	AtLimitRatio        float64 `yaml:"at_limit_ratio" json:"at_limit_ratio"`
}

// LoadConfig loads configuration from config.yaml, expanding ${ENV_VAR}
// references before parsing.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("$HOME/.ragengine")
	viper.AddConfigPath("/etc/ragengine/")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	configFileContent, err := os.ReadFile(viper.ConfigFileUsed())
	if err != nil {
		return nil, fmt.Errorf("error reading config file content: %w", err)
	}

	re := regexp.MustCompile(`\${([^}]+)}`)
	result := re.ReplaceAllStringFunc(string(configFileContent), func(match string) string {
		envVar := match[2 : len(match)-1]
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})

	viper.ReadConfig(strings.NewReader(result))

	var cfg Config
	if err := viper.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	fmt.Printf("Using configuration file: %s\n", viper.ConfigFileUsed())
	return &cfg, nil
}
