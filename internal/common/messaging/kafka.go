package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"loan-prequal/internal/common/config"
	apperrors "loan-prequal/internal/common/errors"
	"loan-prequal/internal/common/logger"

	"github.com/segmentio/kafka-go"
)

// Reader is the consumer-group side of a channel. *kafka.Reader satisfies it.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Writer is the producing side of a channel. *kafka.Writer satisfies it.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends one keyed JSON message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

func compressionCodec(name string) kafka.Compression {
	switch name {
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	case "none":
		return 0
	default:
		return kafka.Gzip
	}
}

// NewWriter builds a topic-less writer; every message carries its own topic.
// Messages are hashed by key so one application always lands on one partition.
func NewWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:            kafka.TCP(cfg.Brokers...),
		Balancer:        &kafka.Hash{},
		Compression:     compressionCodec(cfg.Producer.Compression),
		RequiredAcks:    kafka.RequireAll,
		MaxAttempts:     cfg.Producer.MaxAttempts,
		WriteBackoffMin: config.GetDuration(cfg.Producer.RetryBackoff),
		WriteBackoffMax: config.GetDuration(cfg.Producer.RetryBackoff * 10),
		BatchTimeout:    10 * time.Millisecond,
	}
}

// NewReader builds a consumer-group reader with synchronous commits, so an
// offset only advances when CommitMessages returns.
func NewReader(cfg config.KafkaConfig, topic, groupID string) *kafka.Reader {
	startOffset := kafka.FirstOffset
	if cfg.Consumer.StartOffset == "latest" {
		startOffset = kafka.LastOffset
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        groupID,
		StartOffset:    startOffset,
		SessionTimeout: config.GetDuration(cfg.Consumer.SessionTimeout),
		MaxWait:        config.GetDuration(cfg.Consumer.MaxWait),
		CommitInterval: 0,
		MaxBytes:       10e6,
	})
}

// Ping dials the first reachable broker.
func Ping(ctx context.Context, brokers []string) error {
	var lastErr error
	for _, broker := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_ = conn.Close()
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no brokers configured")
	}
	return apperrors.NewChannelError("ping", lastErr)
}

type RetryConfig struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration
}

var DefaultRetryConfig = RetryConfig{
	MaxAttempts:    3,
	BaseDelay:      500 * time.Millisecond,
	AttemptTimeout: 5 * time.Second,
}

type Producer struct {
	writer Writer
	retry  RetryConfig
	logger logger.Logger
}

func NewProducer(w Writer, retry RetryConfig, log logger.Logger) *Producer {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	return &Producer{
		writer: w,
		retry:  retry,
		logger: log.WithFields(map[string]interface{}{"component": "kafka-producer"}),
	}
}

// Publish marshals value and writes it once. Transport failures come back as
// ChannelError.
func (p *Producer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("marshal message for %s: %v", topic, err))
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	}); err != nil {
		return apperrors.NewChannelError("publish", err)
	}

	p.logger.Debug("message published", map[string]interface{}{
		"topic": topic,
		"key":   key,
	})
	return nil
}

// PublishWithRetry retries transport failures with a linear backoff of
// BaseDelay*attempt, each attempt bounded by AttemptTimeout.
func (p *Producer) PublishWithRetry(ctx context.Context, topic, key string, value interface{}) error {
	var lastErr error

	for attempt := 1; attempt <= p.retry.MaxAttempts; attempt++ {
		lastErr = p.publishAttempt(ctx, topic, key, value)
		if lastErr == nil {
			return nil
		}
		if !apperrors.IsChannel(lastErr) || ctx.Err() != nil {
			return lastErr
		}

		p.logger.Warn("publish attempt failed", map[string]interface{}{
			"topic":       topic,
			"key":         key,
			"attempt":     attempt,
			"maxAttempts": p.retry.MaxAttempts,
			"error":       lastErr.Error(),
		})

		if attempt == p.retry.MaxAttempts {
			break
		}
		select {
		case <-time.After(p.retry.BaseDelay * time.Duration(attempt)):
		case <-ctx.Done():
			return apperrors.NewChannelError("publish", ctx.Err())
		}
	}

	p.logger.Error("publish failed after retries", map[string]interface{}{
		"topic":       topic,
		"key":         key,
		"maxAttempts": p.retry.MaxAttempts,
	})
	return lastErr
}

func (p *Producer) publishAttempt(ctx context.Context, topic, key string, value interface{}) error {
	if p.retry.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.retry.AttemptTimeout)
		defer cancel()
	}
	return p.Publish(ctx, topic, key, value)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
