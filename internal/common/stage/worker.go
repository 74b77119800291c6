// Package stage runs a pipeline stage as a long-lived consumer loop: fetch,
// handle, dead-letter on failure, then commit.
package stage

import (
	"context"
	"time"

	apperrors "loan-prequal/internal/common/errors"
	"loan-prequal/internal/common/logger"
	"loan-prequal/internal/common/messaging"
	"loan-prequal/internal/common/metrics"
	"loan-prequal/internal/common/observability"

	"github.com/segmentio/kafka-go"
)

const (
	OutcomeForwarded    = "forwarded"
	OutcomeDeadLettered = "dead_lettered"

	DefaultTimeout = 30 * time.Second
)

// Handler processes one message. A nil return means the message was
// forwarded; any error is classified and dead-lettered by the Worker.
type Handler interface {
	Handle(ctx context.Context, msg kafka.Message) error
}

type HandlerFunc func(ctx context.Context, msg kafka.Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg kafka.Message) error {
	return f(ctx, msg)
}

type Options struct {
	TaskType string
	// Service is the producing-service name written to dead-letter entries.
	Service string
	Timeout time.Duration
}

type Worker struct {
	opts       Options
	reader     messaging.Reader
	handler    Handler
	deadLetter *DeadLetterPublisher
	errHandler *apperrors.ErrorHandler
	obs        *observability.Observability
	logger     logger.Logger
}

func NewWorker(opts Options, reader messaging.Reader, handler Handler, dlq *DeadLetterPublisher, obs *observability.Observability, log logger.Logger) *Worker {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	log = log.WithFields(map[string]interface{}{
		"taskType": opts.TaskType,
		"service":  opts.Service,
	})
	return &Worker{
		opts:       opts,
		reader:     reader,
		handler:    handler,
		deadLetter: dlq,
		errHandler: apperrors.NewErrorHandler(log),
		obs:        obs,
		logger:     log,
	}
}

func (w *Worker) TaskType() string {
	return w.opts.TaskType
}

// Run consumes until ctx is cancelled or the channel fails. Cancellation is
// observed between messages only; a fetched message is always handled and
// committed before Run returns. Cancellation returns nil, transport failures
// return a ChannelError. The reader is closed on every exit path.
func (w *Worker) Run(ctx context.Context) error {
	defer func() {
		if cerr := w.reader.Close(); cerr != nil {
			w.logger.Warn("failed to close reader", map[string]interface{}{"error": cerr.Error()})
		}
		w.logger.Info("stage worker stopped", nil)
	}()

	w.logger.Info("stage worker started", map[string]interface{}{
		"timeout": w.opts.Timeout.String(),
	})

	for {
		if ctx.Err() != nil {
			return nil
		}

		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("fetch failed", map[string]interface{}{"error": err.Error()})
			return apperrors.NewChannelError("fetch", err)
		}

		if err := w.process(context.WithoutCancel(ctx), msg); err != nil {
			return err
		}
	}
}

// process handles and commits a single message. Only a commit failure is
// returned.
func (w *Worker) process(ctx context.Context, msg kafka.Message) error {
	start := time.Now()
	inFlight := metrics.StageInFlight.WithLabelValues(w.opts.TaskType)
	inFlight.Inc()
	defer inFlight.Dec()

	fields := map[string]interface{}{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
		"key":       string(msg.Key),
	}
	w.logger.Debug("message received", fields)

	handleCtx, cancel := context.WithTimeout(ctx, w.opts.Timeout)
	herr := w.handler.Handle(handleCtx, msg)
	cancel()

	outcome := OutcomeForwarded
	if herr != nil {
		outcome = OutcomeDeadLettered
		stdErr := w.errHandler.Handle(w.opts.TaskType, herr, fields)

		dlqCtx, dlqCancel := context.WithTimeout(ctx, w.opts.Timeout)
		w.deadLetter.Publish(dlqCtx, w.opts.TaskType, w.opts.Service, msg, stdErr)
		dlqCancel()
	}

	if err := w.reader.CommitMessages(ctx, msg); err != nil {
		w.logger.Error("offset commit failed", map[string]interface{}{
			"offset": msg.Offset,
			"error":  err.Error(),
		})
		return apperrors.NewChannelError("commit", err)
	}

	elapsed := time.Since(start)
	metrics.StageMessagesProcessed.WithLabelValues(w.opts.TaskType, outcome).Inc()
	metrics.StageMessageDuration.WithLabelValues(w.opts.TaskType).Observe(elapsed.Seconds())
	w.obs.RecordMessage(ctx, w.opts.TaskType, outcome, elapsed)

	return nil
}
