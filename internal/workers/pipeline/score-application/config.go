// internal/workers/pipeline/score-application/config.go
package scoreapplication

import (
	"time"

	"loan-prequal/internal/common/config"
)

type Config struct {
	Enabled       bool
	ConsumerGroup string
	InputTopic    string
	OutputTopic   string
	Timeout       time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	w := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		Enabled:       w.Enabled,
		ConsumerGroup: w.ConsumerGroup,
		InputTopic:    cfg.Kafka.Topics.Submission,
		OutputTopic:   cfg.Kafka.Topics.ScoreReport,
		Timeout:       config.GetDuration(w.Timeout),
	}
}
