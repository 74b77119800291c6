package config

import (
	"fmt"
	"time"
)

type Config struct {
	App            AppConfig               `mapstructure:"app"`
	Database       DatabaseConfig          `mapstructure:"database"`
	Kafka          KafkaConfig             `mapstructure:"kafka"`
	HTTP           HTTPConfig              `mapstructure:"http"`
	API            APIConfig               `mapstructure:"api"`
	CircuitBreaker CircuitBreakerConfig    `mapstructure:"circuit_breaker"`
	Workers        map[string]WorkerConfig `mapstructure:"workers"`
	Notifications  NotificationConfig      `mapstructure:"notifications"`
	Logging        LoggingConfig           `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
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
	EnsureSchema   bool   `mapstructure:"ensure_schema"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers  []string       `mapstructure:"brokers"`
	Topics   TopicsConfig   `mapstructure:"topics"`
	Producer ProducerConfig `mapstructure:"producer"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
}

type TopicsConfig struct {
	Submission  string `mapstructure:"submission"`
	ScoreReport string `mapstructure:"score_report"`
	DeadLetter  string `mapstructure:"dead_letter"`
}

type ProducerConfig struct {
	MaxAttempts    int    `mapstructure:"max_attempts"`
	RetryBackoff   int    `mapstructure:"retry_backoff"`   // milliseconds
	Compression    string `mapstructure:"compression"`     // gzip, snappy, lz4, zstd, none
	PublishRetries int    `mapstructure:"publish_retries"` // submission path
	PublishTimeout int    `mapstructure:"publish_timeout"` // milliseconds
}

type ConsumerConfig struct {
	SessionTimeout int    `mapstructure:"session_timeout"` // milliseconds
	StartOffset    string `mapstructure:"start_offset"`    // earliest or latest
	MaxWait        int    `mapstructure:"max_wait"`        // milliseconds
}

type HTTPConfig struct {
	Address         string `mapstructure:"address"`
	RequestTimeout  int    `mapstructure:"request_timeout"`  // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type APIConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	IdempotencyTTL int  `mapstructure:"idempotency_ttl"` // seconds, 0 disables Idempotency-Key handling
}

type CircuitBreakerConfig struct {
	Name             string `mapstructure:"name"`
	FailureThreshold int    `mapstructure:"failure_threshold"`
	Cooldown         int    `mapstructure:"cooldown"` // milliseconds
	HalfOpenRequests int    `mapstructure:"half_open_requests"`
}

type WorkerConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ConsumerGroup string `mapstructure:"consumer_group"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds, per message
}

type NotificationConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		Region   string `mapstructure:"region"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

func GetWorkerConfig(cfg *Config, taskType string) WorkerConfig {
	if worker, exists := cfg.Workers[taskType]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		ConsumerGroup: defaultConsumerGroups[taskType],
		Timeout:       30000,
	}
}

func IsWorkerEnabled(cfg *Config, taskType string) bool {
	return GetWorkerConfig(cfg, taskType).Enabled
}
