package stage

import (
	"context"
	"encoding/json"
	"time"

	apperrors "loan-prequal/internal/common/errors"
	"loan-prequal/internal/common/logger"
	"loan-prequal/internal/common/messaging"
	"loan-prequal/internal/common/metrics"
	"loan-prequal/internal/models"

	"github.com/segmentio/kafka-go"
)

// DeadLetterPublisher appends failed messages to the dead-letter topic.
// Publishing is best effort: a failure is logged and counted, never returned.
type DeadLetterPublisher struct {
	publisher messaging.Publisher
	topic     string
	logger    logger.Logger
}

func NewDeadLetterPublisher(p messaging.Publisher, topic string, log logger.Logger) *DeadLetterPublisher {
	return &DeadLetterPublisher{
		publisher: p,
		topic:     topic,
		logger:    log.WithFields(map[string]interface{}{"component": "dead-letter"}),
	}
}

func (d *DeadLetterPublisher) Publish(ctx context.Context, taskType, service string, msg kafka.Message, cause error) {
	entry := NewDeadLetterEntry(service, msg, cause)

	if err := d.publisher.Publish(ctx, d.topic, string(msg.Key), entry); err != nil {
		metrics.DeadLetterPublishFailures.WithLabelValues(taskType).Inc()
		d.logger.Error("dead-letter publish failed, message dropped", map[string]interface{}{
			"taskType":    taskType,
			"sourceTopic": msg.Topic,
			"offset":      msg.Offset,
			"errorCode":   entry.ErrorCode,
			"error":       err.Error(),
		})
		return
	}

	metrics.StageMessagesDeadLettered.WithLabelValues(taskType, entry.ErrorCode).Inc()
	d.logger.Warn("message dead-lettered", map[string]interface{}{
		"taskType":    taskType,
		"sourceTopic": msg.Topic,
		"partition":   msg.Partition,
		"offset":      msg.Offset,
		"key":         string(msg.Key),
		"errorCode":   entry.ErrorCode,
		"reason":      entry.Error,
	})
}

// NewDeadLetterEntry embeds the original payload as JSON when it parses and
// as a JSON string otherwise, so undecodable input is preserved verbatim.
func NewDeadLetterEntry(service string, msg kafka.Message, cause error) models.DeadLetterEntry {
	original := json.RawMessage(msg.Value)
	if len(msg.Value) == 0 || !json.Valid(msg.Value) {
		quoted, _ := json.Marshal(string(msg.Value))
		original = quoted
	}

	return models.DeadLetterEntry{
		OriginalMessage: original,
		Error:           apperrors.Reason(cause),
		ErrorCode:       string(apperrors.CodeOf(cause)),
		Service:         service,
		Timestamp:       time.Now().UTC(),
		SourceTopic:     msg.Topic,
		Partition:       msg.Partition,
		Offset:          msg.Offset,
		Key:             string(msg.Key),
	}
}
