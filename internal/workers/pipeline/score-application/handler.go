// internal/workers/pipeline/score-application/handler.go
package scoreapplication

import (
	"context"
	"fmt"
	"time"

	apperrors "loan-prequal/internal/common/errors"
	"loan-prequal/internal/common/logger"
	"loan-prequal/internal/common/messaging"
	"loan-prequal/internal/common/validation"
	"loan-prequal/internal/models"

	"github.com/segmentio/kafka-go"
)

const (
	TaskType    = "score-application"
	ServiceName = "credit-service"
)

type Handler struct {
	config    *Config
	publisher messaging.Publisher
	jitter    Jitter
	logger    logger.Logger
}

func NewHandler(config *Config, publisher messaging.Publisher, jitter Jitter, log logger.Logger) *Handler {
	if jitter == nil {
		jitter = RandomJitter
	}
	return &Handler{
		config:    config,
		publisher: publisher,
		jitter:    jitter,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Handle scores one submission and forwards the score report.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	sub, err := DecodeSubmission(msg.Value)
	if err != nil {
		return err
	}

	log := h.logger.WithFields(map[string]interface{}{
		"applicationId": sub.ApplicationID,
		"correlationId": sub.CorrelationID,
		"pan":           logger.MaskPAN(sub.TaxID),
	})

	score, err := Score(sub.TaxID, sub.MonthlyIncome, sub.Category, h.jitter)
	if err != nil {
		return err
	}

	report := models.ScoreReportMessage{
		ApplicationID:   sub.ApplicationID,
		TaxID:           sub.TaxID,
		CreditScore:     score,
		MonthlyIncome:   sub.MonthlyIncome,
		RequestedAmount: sub.RequestedAmount,
		Category:        sub.Category,
		Timestamp:       time.Now().UTC(),
		CorrelationID:   sub.CorrelationID,
	}

	if err := h.publisher.Publish(ctx, h.config.OutputTopic, sub.ApplicationID, report); err != nil {
		return err
	}

	log.Info("credit score generated", map[string]interface{}{
		"cibilScore": score,
		"loanType":   string(sub.Category),
	})
	return nil
}

// DecodeSubmission validates the wire shape and the money fields of a
// submission message.
func DecodeSubmission(payload []byte) (*models.SubmissionMessage, error) {
	var sub models.SubmissionMessage
	if err := validation.Decode(validation.SubmissionMessageSchema, payload, &sub); err != nil {
		return nil, err
	}
	if err := validation.CheckMoney("monthly_income_inr", sub.MonthlyIncome); err != nil {
		return nil, err
	}
	if err := validation.CheckMoney("loan_amount_inr", sub.RequestedAmount); err != nil {
		return nil, err
	}
	if !sub.Category.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("loan_type: unknown value %q", sub.Category))
	}
	return &sub, nil
}
