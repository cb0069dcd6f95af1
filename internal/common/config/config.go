// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Server   ServerConfig            `mapstructure:"server"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Dispatch DispatchConfig          `mapstructure:"dispatch"`
	Email    EmailConfig             `mapstructure:"email"`
	SMS      SMSConfig               `mapstructure:"sms"`
	Chat     ChatConfig              `mapstructure:"chat"`
	Webhook  WebhookConfig           `mapstructure:"webhook"`
	Activity ActivityConfig          `mapstructure:"activity"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Logging  LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	URL       string   `mapstructure:"url"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Dispatch engine ---

// DispatchConfig controls how the trigger service runs bindings.
type DispatchConfig struct {
	Mode            string `mapstructure:"mode"` // "sequential" or "parallel"
	MaxParallel     int    `mapstructure:"max_parallel"`
	ExecutorTimeout int    `mapstructure:"executor_timeout"` // milliseconds
	CatalogSource   string `mapstructure:"catalog_source"`   // "postgres" or "file"
	CatalogPath     string `mapstructure:"catalog_path"`
	ProfileCacheTTL int    `mapstructure:"profile_cache_ttl"` // seconds, 0 disables the cache
	RetryBatchSize  int    `mapstructure:"retry_batch_size"`
}

// --- Delivery channels ---

type EmailConfig struct {
	Provider     string `mapstructure:"provider"` // "ses" or "smtp"
	FromAddress  string `mapstructure:"from_address"`
	FromName     string `mapstructure:"from_name"`
	AWSRegion    string `mapstructure:"aws_region"`
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	UseTLS       bool   `mapstructure:"use_tls"`
	BrandName    string `mapstructure:"brand_name"`
}

type SMSConfig struct {
	Provider  string `mapstructure:"provider"` // "sns" or "simulated"
	AWSRegion string `mapstructure:"aws_region"`
	SenderID  string `mapstructure:"sender_id"`
}

type ChatConfig struct {
	Provider       string `mapstructure:"provider"` // "slack" or "simulated"
	WebhookURL     string `mapstructure:"webhook_url"`
	BotToken       string `mapstructure:"bot_token"`
	DefaultChannel string `mapstructure:"default_channel"`
}

type WebhookConfig struct {
	Timeout          int `mapstructure:"timeout"` // milliseconds
	MaxResponseBytes int `mapstructure:"max_response_bytes"`
	BreakerFailures  int `mapstructure:"breaker_failures"`
	BreakerTimeout   int `mapstructure:"breaker_timeout"` // milliseconds
}

type ActivityConfig struct {
	MirrorToElasticsearch bool   `mapstructure:"mirror_to_elasticsearch"`
	Index                 string `mapstructure:"index"`
}

// --- Workers & logging ---

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// AnyWorkerEnabled reports whether at least one Zeebe job worker is switched on.
func (c *Config) AnyWorkerEnabled() bool {
	for _, w := range c.Workers {
		if w.Enabled {
			return true
		}
	}
	return false
}
