package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ScoreTaskType  = "score-application"
	DecideTaskType = "decide-application"
)

var defaultConsumerGroups = map[string]string{
	ScoreTaskType:  "credit-service-group",
	DecideTaskType: "decision-service-group",
}

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top
// and lets environment variables override both.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finalize(v)
}

func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return finalize(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finalize(v *viper.Viper) (*Config, error) {
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
	possiblePaths := []string{".env", "../.env", "../../.env"}
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
		if !ok || !strings.Contains(strVal, "$") {
			continue
		}
		if expanded := os.ExpandEnv(strVal); expanded != strVal {
			v.Set(key, expanded)
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "loan-prequal"
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 20
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.Topics.Submission == "" {
		cfg.Kafka.Topics.Submission = "loan_applications_submitted"
	}
	if cfg.Kafka.Topics.ScoreReport == "" {
		cfg.Kafka.Topics.ScoreReport = "credit_reports_generated"
	}
	if cfg.Kafka.Topics.DeadLetter == "" {
		cfg.Kafka.Topics.DeadLetter = "loan_processing_dlq"
	}
	if cfg.Kafka.Producer.MaxAttempts == 0 {
		cfg.Kafka.Producer.MaxAttempts = 3
	}
	if cfg.Kafka.Producer.RetryBackoff == 0 {
		cfg.Kafka.Producer.RetryBackoff = 100
	}
	if cfg.Kafka.Producer.Compression == "" {
		cfg.Kafka.Producer.Compression = "gzip"
	}
	if cfg.Kafka.Producer.PublishRetries == 0 {
		cfg.Kafka.Producer.PublishRetries = 3
	}
	if cfg.Kafka.Producer.PublishTimeout == 0 {
		cfg.Kafka.Producer.PublishTimeout = 5000
	}
	if cfg.Kafka.Consumer.SessionTimeout == 0 {
		cfg.Kafka.Consumer.SessionTimeout = 30000
	}
	if cfg.Kafka.Consumer.StartOffset == "" {
		cfg.Kafka.Consumer.StartOffset = "earliest"
	}
	if cfg.Kafka.Consumer.MaxWait == 0 {
		cfg.Kafka.Consumer.MaxWait = 1000
	}

	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}
	if cfg.HTTP.RequestTimeout == 0 {
		cfg.HTTP.RequestTimeout = 30000
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30000
	}

	if cfg.CircuitBreaker.Name == "" {
		cfg.CircuitBreaker.Name = "database_updates"
	}
	if cfg.CircuitBreaker.FailureThreshold == 0 {
		cfg.CircuitBreaker.FailureThreshold = 5
	}
	if cfg.CircuitBreaker.Cooldown == 0 {
		cfg.CircuitBreaker.Cooldown = 60000
	}
	if cfg.CircuitBreaker.HalfOpenRequests == 0 {
		cfg.CircuitBreaker.HalfOpenRequests = 1
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

	if cfg.Workers == nil {
		cfg.Workers = make(map[string]WorkerConfig)
	}
	for key, worker := range cfg.Workers {
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.ConsumerGroup == "" {
			worker.ConsumerGroup = defaultConsumerGroups[key]
		}
		cfg.Workers[key] = worker
	}
}

func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		cfg.Database.Postgres.User = os.Getenv("DB_USER")
	}
	if cfg.Database.Postgres.Password == "" {
		cfg.Database.Postgres.Password = os.Getenv("DB_PASSWORD")
	}
	if cfg.Database.Redis.Password == "" {
		cfg.Database.Redis.Password = os.Getenv("REDIS_PASSWORD")
	}
	if val := os.Getenv("KAFKA_BOOTSTRAP_SERVERS"); val != "" {
		cfg.Kafka.Brokers = strings.Split(val, ",")
	}
	if cfg.Notifications.SNS.TopicARN == "" {
		cfg.Notifications.SNS.TopicARN = os.Getenv("SNS_DECISION_TOPIC_ARN")
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	for _, broker := range cfg.Kafka.Brokers {
		if strings.TrimSpace(broker) == "" {
			return fmt.Errorf("kafka.brokers must not contain empty entries")
		}
	}
	topics := map[string]string{
		"submission":   cfg.Kafka.Topics.Submission,
		"score_report": cfg.Kafka.Topics.ScoreReport,
		"dead_letter":  cfg.Kafka.Topics.DeadLetter,
	}
	seen := make(map[string]string, len(topics))
	for name, topic := range topics {
		if other, dup := seen[topic]; dup {
			return fmt.Errorf("kafka.topics.%s and kafka.topics.%s must differ", name, other)
		}
		seen[topic] = name
	}

	if cfg.API.Enabled && cfg.API.IdempotencyTTL > 0 && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when api.idempotency_ttl is set")
	}

	if cfg.Notifications.SNS.Enabled && cfg.Notifications.SNS.TopicARN == "" {
		return fmt.Errorf("notifications.sns.topic_arn is required when sns is enabled")
	}

	return nil
}
