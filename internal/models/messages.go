package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// SubmissionMessage is published by the API boundary once the PENDING record
// is stored. Keyed by application id.
type SubmissionMessage struct {
	ApplicationID   string          `json:"application_id"`
	TaxID           string          `json:"pan_number"`
	ApplicantName   *string         `json:"applicant_name,omitempty"`
	MonthlyIncome   decimal.Decimal `json:"monthly_income_inr"`
	RequestedAmount decimal.Decimal `json:"loan_amount_inr"`
	Category        LoanCategory    `json:"loan_type"`
	Timestamp       time.Time       `json:"timestamp"`
	CorrelationID   string          `json:"correlation_id"`
}

func NewSubmissionMessage(app *Application, correlationID string) SubmissionMessage {
	return SubmissionMessage{
		ApplicationID:   app.ID,
		TaxID:           app.TaxID,
		ApplicantName:   app.ApplicantName,
		MonthlyIncome:   app.MonthlyIncome,
		RequestedAmount: app.RequestedAmount,
		Category:        app.Category,
		Timestamp:       time.Now().UTC(),
		CorrelationID:   correlationID,
	}
}

// ScoreReportMessage is published by the scoring stage. Keyed by application id.
type ScoreReportMessage struct {
	ApplicationID   string          `json:"application_id"`
	TaxID           string          `json:"pan_number"`
	CreditScore     int             `json:"cibil_score"`
	MonthlyIncome   decimal.Decimal `json:"monthly_income_inr"`
	RequestedAmount decimal.Decimal `json:"loan_amount_inr"`
	Category        LoanCategory    `json:"loan_type"`
	Timestamp       time.Time       `json:"timestamp"`
	CorrelationID   string          `json:"correlation_id"`
}

// DeadLetterEntry is appended to the dead-letter channel by any stage that
// cannot finish a message.
type DeadLetterEntry struct {
	OriginalMessage json.RawMessage `json:"original_message"`
	Error           string          `json:"error"`
	ErrorCode       string          `json:"error_code"`
	Service         string          `json:"service"`
	Timestamp       time.Time       `json:"timestamp"`
	SourceTopic     string          `json:"source_topic,omitempty"`
	Partition       int             `json:"partition"`
	Offset          int64           `json:"offset"`
	Key             string          `json:"key,omitempty"`
}
