// internal/workers/pipeline/submit-application/models.go
package submitapplication

import (
	"context"
	"time"

	"loan-prequal/internal/models"

	"github.com/shopspring/decimal"
)

type CreateRequest struct {
	TaxID           string              `json:"pan_number"`
	ApplicantName   *string             `json:"applicant_name,omitempty"`
	MonthlyIncome   decimal.Decimal     `json:"monthly_income_inr"`
	RequestedAmount decimal.Decimal     `json:"loan_amount_inr"`
	Category        models.LoanCategory `json:"loan_type"`
}

type CreateResponse struct {
	ApplicationID string                   `json:"application_id"`
	Status        models.ApplicationStatus `json:"status"`
	// Replayed is set when an Idempotency-Key matched an earlier request.
	Replayed bool `json:"-"`
}

type StatusResponse struct {
	ApplicationID string                   `json:"application_id"`
	Status        models.ApplicationStatus `json:"status"`
}

type ApplicationSummary struct {
	ApplicationID   string                   `json:"application_id"`
	PAN             string                   `json:"pan_number"`
	MonthlyIncome   decimal.Decimal          `json:"monthly_income_inr"`
	RequestedAmount decimal.Decimal          `json:"loan_amount_inr"`
	Category        models.LoanCategory      `json:"loan_type"`
	Status          models.ApplicationStatus `json:"status"`
	CreditScore     *int                     `json:"cibil_score,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// Repository is the part of the application store the API boundary uses.
type Repository interface {
	Save(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, id string) (*models.Application, error)
	ListByStatus(ctx context.Context, status models.ApplicationStatus, limit int) ([]*models.Application, error)
}

type Publisher interface {
	PublishWithRetry(ctx context.Context, topic, key string, value interface{}) error
}

// IdempotencyStore maps a client Idempotency-Key to the application created
// for it.
type IdempotencyStore interface {
	// Reserve claims key for applicationID. When the key is already held it
	// returns the application id stored under it and false.
	Reserve(ctx context.Context, key, applicationID string) (string, bool, error)
	Release(ctx context.Context, key string) error
}
