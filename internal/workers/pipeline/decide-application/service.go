// internal/workers/pipeline/decide-application/service.go
package decideapplication

import (
	"fmt"

	apperrors "loan-prequal/internal/common/errors"
	"loan-prequal/internal/models"

	"github.com/shopspring/decimal"
)

const MinApprovalScore = 650

// Loans are amortized flat over four years with no interest.
var amortizationMonths = decimal.NewFromInt(48)

type DecideFunc func(score int, monthlyIncome, requestedAmount decimal.Decimal) (models.ApplicationStatus, error)

// Decide maps a credit score and affordability to a terminal status. The
// affordability check is income*48 > amount, which is the exact form of
// income > amount/48.
func Decide(score int, monthlyIncome, requestedAmount decimal.Decimal) (models.ApplicationStatus, error) {
	if score < models.MinCreditScore || score > models.MaxCreditScore {
		return "", apperrors.NewBusinessLogicError("decision failed",
			fmt.Errorf("cibil_score %d outside [%d,%d]", score, models.MinCreditScore, models.MaxCreditScore))
	}
	if score < MinApprovalScore {
		return models.StatusRejected, nil
	}
	if !requestedAmount.IsPositive() {
		return "", apperrors.NewBusinessLogicError("decision failed",
			fmt.Errorf("loan_amount_inr must be positive, got %s", requestedAmount))
	}

	if monthlyIncome.Mul(amortizationMonths).GreaterThan(requestedAmount) {
		return models.StatusPreApproved, nil
	}
	return models.StatusManualReview, nil
}

// RequiredMonthly is the monthly repayment used by the affordability check,
// rounded to paise for display.
func RequiredMonthly(requestedAmount decimal.Decimal) decimal.Decimal {
	return requestedAmount.DivRound(amortizationMonths, 2)
}
