package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Storage    StorageConfig    `mapstructure:"storage" validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm" validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
	Task       TaskConfig       `mapstructure:"task" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// RequestTimeoutSeconds bounds how long a generate request waits for a
	// build before answering 202 Accepted.
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" validate:"gte=1"`
}

// DatabaseConfig contains all database-related configuration settings.
// An empty URL selects the in-memory stores.
type DatabaseConfig struct {
	URL            string `mapstructure:"url" validate:"omitempty,url"`
	MaxOpenConns   int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns   int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	MigrateOnStart bool   `mapstructure:"migrate_on_start"`
}

// RedisConfig configures the optional Redis-backed artifact record store.
type RedisConfig struct {
	URL       string `mapstructure:"url" validate:"omitempty,url"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// StorageConfig selects where uploaded bytes are kept.
type StorageConfig struct {
	Backend        string `mapstructure:"backend" validate:"required,oneof=local gcs"`
	UploadDir      string `mapstructure:"upload_dir" validate:"required_if=Backend local"`
	GCSBucket      string `mapstructure:"gcs_bucket" validate:"required_if=Backend gcs"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" validate:"gt=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName         string `mapstructure:"model_name" validate:"required"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" validate:"gt=0"`
	// MaxRetries is the local retry budget for transient generator failures.
	MaxRetries         int `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryBaseDelayMs   int `mapstructure:"retry_base_delay_ms" validate:"gte=1"`
	CallTimeoutSeconds int `mapstructure:"call_timeout_seconds" validate:"gte=1"`
}

// GenerationConfig tunes the artifact build-cache.
type GenerationConfig struct {
	MaxConcurrentBuilds   int  `mapstructure:"max_concurrent_builds" validate:"gte=1"`
	MaxConcurrentRequests int  `mapstructure:"max_concurrent_requests" validate:"gte=1"`
	DefaultWindowSize     int  `mapstructure:"default_window_size" validate:"gte=1,lte=7"`
	WarmLearningNote      bool `mapstructure:"warm_learning_note"`
}

// TaskConfig contains background task processing settings.
type TaskConfig struct {
	WorkerCount         int `mapstructure:"worker_count" validate:"gte=1"`
	QueueSize           int `mapstructure:"queue_size" validate:"gte=1"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"gte=1"`
}
