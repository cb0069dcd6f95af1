// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top,
// expands ${VAR} placeholders and applies defaults.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // environment overlay is optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets that are conventionally passed as plain env vars.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setIfEmpty(&cfg.Email.SMTPUsername, "SMTP_USERNAME")
	setIfEmpty(&cfg.Email.SMTPPassword, "SMTP_PASSWORD")
	setIfEmpty(&cfg.Chat.WebhookURL, "SLACK_WEBHOOK_URL")
	setIfEmpty(&cfg.Chat.BotToken, "SLACK_BOT_TOKEN")
}

func setIfEmpty(field *string, envKey string) {
	if *field != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "merchant-triggers"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if cfg.Dispatch.Mode == "" {
		cfg.Dispatch.Mode = "sequential"
	}
	if cfg.Dispatch.MaxParallel == 0 {
		cfg.Dispatch.MaxParallel = 4
	}
	if cfg.Dispatch.ExecutorTimeout == 0 {
		cfg.Dispatch.ExecutorTimeout = 15000
	}
	if cfg.Dispatch.CatalogSource == "" {
		cfg.Dispatch.CatalogSource = "postgres"
	}
	if cfg.Dispatch.RetryBatchSize == 0 {
		cfg.Dispatch.RetryBatchSize = 50
	}

	if cfg.Email.Provider == "" {
		cfg.Email.Provider = "ses"
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 587
	}
	if cfg.SMS.Provider == "" {
		cfg.SMS.Provider = "simulated"
	}
	if cfg.Chat.Provider == "" {
		cfg.Chat.Provider = "simulated"
	}

	if cfg.Webhook.Timeout == 0 {
		cfg.Webhook.Timeout = 10000
	}
	if cfg.Webhook.MaxResponseBytes == 0 {
		cfg.Webhook.MaxResponseBytes = 64 * 1024
	}
	if cfg.Webhook.BreakerFailures == 0 {
		cfg.Webhook.BreakerFailures = 5
	}
	if cfg.Webhook.BreakerTimeout == 0 {
		cfg.Webhook.BreakerTimeout = 60000
	}

	if cfg.Activity.Index == "" {
		cfg.Activity.Index = "action-activities"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.Dispatch.Mode {
	case "sequential", "parallel":
	default:
		return fmt.Errorf("dispatch.mode must be sequential or parallel, got %q", cfg.Dispatch.Mode)
	}

	switch cfg.Dispatch.CatalogSource {
	case "postgres":
	case "file":
		if cfg.Dispatch.CatalogPath == "" {
			return fmt.Errorf("dispatch.catalog_path is required when catalog_source is file")
		}
	default:
		return fmt.Errorf("dispatch.catalog_source must be postgres or file, got %q", cfg.Dispatch.CatalogSource)
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if cfg.Activity.MirrorToElasticsearch && cfg.Database.Elasticsearch.URL == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required when activity mirroring is enabled")
	}

	if cfg.Dispatch.ProfileCacheTTL > 0 && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when dispatch.profile_cache_ttl is set")
	}

	if cfg.AnyWorkerEnabled() && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when a job worker is enabled")
	}

	switch cfg.Email.Provider {
	case "ses":
		if cfg.Email.AWSRegion == "" {
			return fmt.Errorf("email.aws_region is required for the ses provider")
		}
	case "smtp":
		if cfg.Email.SMTPHost == "" {
			return fmt.Errorf("email.smtp_host is required for the smtp provider")
		}
	default:
		return fmt.Errorf("email.provider must be ses or smtp, got %q", cfg.Email.Provider)
	}
	if cfg.Email.FromAddress == "" {
		return fmt.Errorf("email.from_address is required")
	}

	if cfg.SMS.Provider == "sns" && cfg.SMS.AWSRegion == "" {
		return fmt.Errorf("sms.aws_region is required for the sns provider")
	}
	if cfg.Chat.Provider == "slack" && cfg.Chat.WebhookURL == "" && cfg.Chat.BotToken == "" {
		return fmt.Errorf("chat.webhook_url or chat.bot_token is required for the slack provider")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       false,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return false
}
