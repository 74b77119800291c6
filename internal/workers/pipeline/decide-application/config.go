// internal/workers/pipeline/decide-application/config.go
package decideapplication

import (
	"time"

	"loan-prequal/internal/common/config"
)

type Config struct {
	Enabled       bool
	ConsumerGroup string
	InputTopic    string
	Timeout       time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	w := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		Enabled:       w.Enabled,
		ConsumerGroup: w.ConsumerGroup,
		InputTopic:    cfg.Kafka.Topics.ScoreReport,
		Timeout:       config.GetDuration(w.Timeout),
	}
}
