// internal/workers/pipeline/submit-application/config.go
package submitapplication

import (
	"time"

	"loan-prequal/internal/common/config"
	"loan-prequal/internal/common/messaging"
)

type Config struct {
	SubmissionTopic string
	IdempotencyTTL  time.Duration
	Retry           messaging.RetryConfig
}

func LoadConfig(cfg *config.Config) *Config {
	retry := messaging.DefaultRetryConfig
	if cfg.Kafka.Producer.PublishRetries > 0 {
		retry.MaxAttempts = cfg.Kafka.Producer.PublishRetries
	}
	if cfg.Kafka.Producer.PublishTimeout > 0 {
		retry.AttemptTimeout = config.GetDuration(cfg.Kafka.Producer.PublishTimeout)
	}
	return &Config{
		SubmissionTopic: cfg.Kafka.Topics.Submission,
		IdempotencyTTL:  time.Duration(cfg.API.IdempotencyTTL) * time.Second,
		Retry:           retry,
	}
}
