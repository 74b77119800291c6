package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ApplicationStatus string

const (
	StatusPending      ApplicationStatus = "PENDING"
	StatusPreApproved  ApplicationStatus = "PRE_APPROVED"
	StatusRejected     ApplicationStatus = "REJECTED"
	StatusManualReview ApplicationStatus = "MANUAL_REVIEW"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPreApproved, StatusRejected, StatusManualReview:
		return true
	}
	return false
}

// Terminal reports whether s is one of the decision outcomes. Records in a
// terminal status are never modified again.
func (s ApplicationStatus) Terminal() bool {
	return s.Valid() && s != StatusPending
}

type LoanCategory string

const (
	CategoryUnsecuredPersonal LoanCategory = "UNSECURED_PERSONAL"
	CategorySecuredHome       LoanCategory = "SECURED_HOME"
	CategorySecuredAuto       LoanCategory = "SECURED_AUTO"
)

func (c LoanCategory) Valid() bool {
	switch c {
	case CategoryUnsecuredPersonal, CategorySecuredHome, CategorySecuredAuto:
		return true
	}
	return false
}

const (
	MinCreditScore = 300
	MaxCreditScore = 900
)

type Application struct {
	ID              string            `json:"application_id"`
	TaxID           string            `json:"pan_number"`
	ApplicantName   *string           `json:"applicant_name,omitempty"`
	MonthlyIncome   decimal.Decimal   `json:"monthly_income_inr"`
	RequestedAmount decimal.Decimal   `json:"loan_amount_inr"`
	Category        LoanCategory      `json:"loan_type"`
	Status          ApplicationStatus `json:"status"`
	CreditScore     *int              `json:"cibil_score,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// DecisionEvent is emitted to notification sinks after a terminal transition.
type DecisionEvent struct {
	ApplicationID string            `json:"application_id"`
	Status        ApplicationStatus `json:"status"`
	CreditScore   int               `json:"cibil_score"`
	CorrelationID string            `json:"correlation_id"`
	DecidedAt     time.Time         `json:"decided_at"`
}
