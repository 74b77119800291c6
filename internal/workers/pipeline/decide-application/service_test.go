// internal/workers/pipeline/decide-application/service_test.go
package decideapplication

import (
	"testing"

	apperrors "loan-prequal/internal/common/errors"
	"loan-prequal/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inr(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name   string
		score  int
		income string
		amount string
		want   models.ApplicationStatus
	}{
		{"low score rejected regardless of income", 649, "10000000", "1000", models.StatusRejected},
		{"minimum score rejected", 300, "50000", "100000", models.StatusRejected},
		{"boundary score affordable", 650, "5000", "200000", models.StatusPreApproved},
		{"just above required monthly", 700, "4166.67", "200000", models.StatusPreApproved},
		{"just below required monthly", 700, "4166.66", "200000", models.StatusManualReview},
		{"exactly required monthly", 800, "1000", "48000", models.StatusManualReview},
		{"max score unaffordable", 900, "100", "1000000", models.StatusManualReview},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decide(tt.score, inr(tt.income), inr(tt.amount))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecide_AlwaysTerminal(t *testing.T) {
	incomes := []string{"0.01", "4166.66", "4166.67", "90000"}
	amounts := []string{"1", "200000", "5000000"}
	for score := models.MinCreditScore; score <= models.MaxCreditScore; score += 25 {
		for _, income := range incomes {
			for _, amount := range amounts {
				got, err := Decide(score, inr(income), inr(amount))
				require.NoError(t, err)
				assert.True(t, got.Terminal(), "score=%d income=%s amount=%s", score, income, amount)
				if score < MinApprovalScore {
					assert.Equal(t, models.StatusRejected, got)
				}
			}
		}
	}
}

func TestDecide_InvalidInput(t *testing.T) {
	_, err := Decide(901, inr("50000"), inr("100000"))
	require.Error(t, err)
	assert.True(t, apperrors.IsBusinessLogic(err))

	_, err = Decide(299, inr("50000"), inr("100000"))
	assert.True(t, apperrors.IsBusinessLogic(err))

	_, err = Decide(700, inr("50000"), decimal.Zero)
	assert.True(t, apperrors.IsBusinessLogic(err))
}

func TestRequiredMonthly(t *testing.T) {
	assert.Equal(t, "4166.67", RequiredMonthly(inr("200000")).StringFixed(2))
	assert.Equal(t, "1000.00", RequiredMonthly(inr("48000")).StringFixed(2))
}
