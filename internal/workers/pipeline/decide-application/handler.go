// internal/workers/pipeline/decide-application/handler.go
package decideapplication

import (
	"context"
	"fmt"
	"time"

	"loan-prequal/internal/common/breaker"
	apperrors "loan-prequal/internal/common/errors"
	"loan-prequal/internal/common/logger"
	"loan-prequal/internal/common/metrics"
	"loan-prequal/internal/common/validation"
	"loan-prequal/internal/models"

	"github.com/segmentio/kafka-go"
)

const (
	TaskType    = "decide-application"
	ServiceName = "decision-service"
)

type Handler struct {
	config   *Config
	store    StatusUpdater
	breaker  *breaker.Breaker
	notifier Notifier
	decide   DecideFunc
	logger   logger.Logger
}

func NewHandler(config *Config, store StatusUpdater, cb *breaker.Breaker, notifier Notifier, log logger.Logger) *Handler {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Handler{
		config:   config,
		store:    store,
		breaker:  cb,
		notifier: notifier,
		decide:   Decide,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Handle decides one score report and records the outcome. A record that is
// missing or no longer PENDING is logged and treated as handled.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	report, err := DecodeScoreReport(msg.Value)
	if err != nil {
		return err
	}

	log := h.logger.WithFields(map[string]interface{}{
		"applicationId": report.ApplicationID,
		"correlationId": report.CorrelationID,
		"pan":           logger.MaskPAN(report.TaxID),
	})

	status, err := h.decide(report.CreditScore, report.MonthlyIncome, report.RequestedAmount)
	if err != nil {
		if !apperrors.IsBusinessLogic(err) {
			err = apperrors.NewBusinessLogicError("decision failed", err)
		}
		return err
	}

	log.Info("decision made", map[string]interface{}{
		"decision":        string(status),
		"cibilScore":      report.CreditScore,
		"requiredMonthly": RequiredMonthly(report.RequestedAmount).String(),
	})

	score := report.CreditScore
	res, err := h.breaker.Call(func() (interface{}, error) {
		return h.store.UpdateStatus(ctx, report.ApplicationID, status, &score)
	})
	if err != nil {
		if apperrors.IsCircuitOpen(err) {
			log.Error("circuit breaker open, skipping store update", nil)
		}
		return err
	}

	if updated, _ := res.(bool); !updated {
		log.Warn("application already processed", map[string]interface{}{
			"decision": string(status),
		})
		return nil
	}

	metrics.DecisionsRecorded.WithLabelValues(string(status)).Inc()
	log.Info("application status updated", map[string]interface{}{"newStatus": string(status)})

	event := models.DecisionEvent{
		ApplicationID: report.ApplicationID,
		Status:        status,
		CreditScore:   score,
		CorrelationID: report.CorrelationID,
		DecidedAt:     time.Now().UTC(),
	}
	if err := h.notifier.NotifyDecision(ctx, event); err != nil {
		log.Warn("decision notification failed", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

func DecodeScoreReport(payload []byte) (*models.ScoreReportMessage, error) {
	var report models.ScoreReportMessage
	if err := validation.Decode(validation.ScoreReportMessageSchema, payload, &report); err != nil {
		return nil, err
	}
	if err := validation.CheckMoney("monthly_income_inr", report.MonthlyIncome); err != nil {
		return nil, err
	}
	if err := validation.CheckMoney("loan_amount_inr", report.RequestedAmount); err != nil {
		return nil, err
	}
	if !report.Category.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("loan_type: unknown value %q", report.Category))
	}
	return &report, nil
}
