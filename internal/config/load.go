package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. MORNO_SERVER_PORT or MORNO_LLM_GEMINI_API_KEY.
const EnvPrefix = "MORNO"

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about; keys without
	// a default must be bound explicitly.
	for _, key := range []string{
		"database.url",
		"redis.url",
		"storage.gcs_bucket",
		"llm.gemini_api_key",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.request_timeout_seconds", 25)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.migrate_on_start", true)

	v.SetDefault("redis.key_prefix", "morno:artifact:")

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.upload_dir", "data/upload")
	v.SetDefault("storage.max_upload_bytes", 50<<20)

	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.requests_per_minute", 60)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.retry_base_delay_ms", 500)
	v.SetDefault("llm.call_timeout_seconds", 60)

	v.SetDefault("generation.max_concurrent_builds", 4)
	v.SetDefault("generation.max_concurrent_requests", 4)
	v.SetDefault("generation.default_window_size", 3)
	v.SetDefault("generation.warm_learning_note", false)

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.stuck_task_age_minutes", 30)
}
