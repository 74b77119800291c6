// Package submitapplication is the API boundary of the pipeline: it stores a
// PENDING application and hands it to the scoring stage.
package submitapplication

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "loan-prequal/internal/common/errors"
	"loan-prequal/internal/common/logger"
	"loan-prequal/internal/common/metrics"
	"loan-prequal/internal/common/validation"
	"loan-prequal/internal/models"

	"github.com/google/uuid"
)

var (
	ErrApplicationNotFound = errors.New("APPLICATION_NOT_FOUND")
	ErrRequestInProgress   = errors.New("REQUEST_IN_PROGRESS")
)

type Service struct {
	config      *Config
	repo        Repository
	publisher   Publisher
	idempotency IdempotencyStore
	logger      logger.Logger
	newID       func() string
}

// NewService wires the boundary. idem may be nil, which disables
// Idempotency-Key handling.
func NewService(config *Config, repo Repository, publisher Publisher, idem IdempotencyStore, log logger.Logger) *Service {
	return &Service{
		config:      config,
		repo:        repo,
		publisher:   publisher,
		idempotency: idem,
		logger:      log.WithFields(map[string]interface{}{"component": "submit-application"}),
		newID:       uuid.NewString,
	}
}

// CreateApplication persists the request as PENDING and then publishes the
// submission message. A publish failure is returned as a ChannelError even
// though the record stays persisted; callers surface it as a server error.
func (s *Service) CreateApplication(ctx context.Context, req *CreateRequest, idempotencyKey, correlationID string) (*CreateResponse, error) {
	if err := ValidateCreateRequest(req); err != nil {
		metrics.ApplicationsSubmitted.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	app := &models.Application{
		ID:              s.newID(),
		TaxID:           req.TaxID,
		ApplicantName:   req.ApplicantName,
		MonthlyIncome:   req.MonthlyIncome,
		RequestedAmount: req.RequestedAmount,
		Category:        req.Category,
		Status:          models.StatusPending,
	}

	log := s.logger.WithFields(map[string]interface{}{
		"applicationId": app.ID,
		"correlationId": correlationID,
		"pan":           logger.MaskPAN(app.TaxID),
		"loanType":      string(app.Category),
	})

	useKey := idempotencyKey != "" && s.idempotency != nil
	if useKey {
		existingID, reserved, err := s.idempotency.Reserve(ctx, idempotencyKey, app.ID)
		if err != nil {
			metrics.ApplicationsSubmitted.WithLabelValues("failed").Inc()
			return nil, err
		}
		if !reserved {
			return s.replay(ctx, existingID, log)
		}
	}

	if err := s.repo.Save(ctx, app); err != nil {
		s.release(ctx, useKey, idempotencyKey, log)
		metrics.ApplicationsSubmitted.WithLabelValues("failed").Inc()
		log.Error("failed to save application", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	msg := models.NewSubmissionMessage(app, correlationID)
	if err := s.publisher.PublishWithRetry(ctx, s.config.SubmissionTopic, app.ID, msg); err != nil {
		s.release(ctx, useKey, idempotencyKey, log)
		metrics.ApplicationsSubmitted.WithLabelValues("publish_failed").Inc()
		log.Error("application persisted but submission publish failed", map[string]interface{}{
			"topic": s.config.SubmissionTopic,
			"error": err.Error(),
		})
		if !apperrors.IsChannel(err) {
			err = apperrors.NewChannelError("publish_submission", err)
		}
		return nil, err
	}

	metrics.ApplicationsSubmitted.WithLabelValues("accepted").Inc()
	log.Info("application accepted", nil)

	return &CreateResponse{ApplicationID: app.ID, Status: models.StatusPending}, nil
}

func (s *Service) replay(ctx context.Context, existingID string, log logger.Logger) (*CreateResponse, error) {
	existing, err := s.repo.FindByID(ctx, existingID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		// The first request holds the key but has not stored its record yet.
		return nil, fmt.Errorf("%w: application %s", ErrRequestInProgress, existingID)
	}
	metrics.ApplicationsSubmitted.WithLabelValues("replayed").Inc()
	log.Info("idempotent replay", map[string]interface{}{"originalApplicationId": existing.ID})
	return &CreateResponse{ApplicationID: existing.ID, Status: existing.Status, Replayed: true}, nil
}

func (s *Service) release(ctx context.Context, useKey bool, key string, log logger.Logger) {
	if !useKey {
		return
	}
	if err := s.idempotency.Release(context.WithoutCancel(ctx), key); err != nil {
		log.Warn("failed to release idempotency key", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Service) GetStatus(ctx context.Context, id string) (*StatusResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("application_id: %q is not a valid UUID", id))
	}

	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		s.logger.Warn("application not found", map[string]interface{}{"applicationId": id})
		return nil, fmt.Errorf("%w: %s", ErrApplicationNotFound, id)
	}

	s.logger.Debug("application status retrieved", map[string]interface{}{
		"applicationId": id,
		"status":        string(app.Status),
	})
	return &StatusResponse{ApplicationID: app.ID, Status: app.Status}, nil
}

// ListApplications returns applications in status, oldest first.
func (s *Service) ListApplications(ctx context.Context, status models.ApplicationStatus, limit int) ([]ApplicationSummary, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("status: unknown value %q", status))
	}
	apps, err := s.repo.ListByStatus(ctx, status, limit)
	if err != nil {
		return nil, err
	}

	out := make([]ApplicationSummary, 0, len(apps))
	for _, a := range apps {
		out = append(out, ApplicationSummary{
			ApplicationID:   a.ID,
			PAN:             logger.MaskPAN(a.TaxID),
			MonthlyIncome:   a.MonthlyIncome,
			RequestedAmount: a.RequestedAmount,
			Category:        a.Category,
			Status:          a.Status,
			CreditScore:     a.CreditScore,
			CreatedAt:       a.CreatedAt.UTC().Truncate(time.Second),
			UpdatedAt:       a.UpdatedAt.UTC().Truncate(time.Second),
		})
	}
	return out, nil
}

// DecodeCreateRequest validates a raw request body.
func DecodeCreateRequest(body []byte) (*CreateRequest, error) {
	var req CreateRequest
	if err := validation.Decode(validation.CreateApplicationRequestSchema, body, &req); err != nil {
		return nil, err
	}
	if err := ValidateCreateRequest(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func ValidateCreateRequest(req *CreateRequest) error {
	if req == nil {
		return apperrors.NewValidationError("request body is required")
	}
	if len(req.TaxID) != 10 {
		return apperrors.NewValidationError("pan_number: must be 10 characters")
	}
	if req.ApplicantName != nil && *req.ApplicantName == "" {
		return apperrors.NewValidationError("applicant_name: must not be empty")
	}
	if err := validation.CheckMoney("monthly_income_inr", req.MonthlyIncome); err != nil {
		return err
	}
	if err := validation.CheckMoney("loan_amount_inr", req.RequestedAmount); err != nil {
		return err
	}
	if !req.Category.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("loan_type: unknown value %q", req.Category))
	}
	return nil
}
