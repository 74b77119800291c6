// internal/workers/pipeline/score-application/service_test.go
package scoreapplication

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

func TestScore_Adjustments(t *testing.T) {
	tests := []struct {
		name     string
		income   string
		category models.LoanCategory
		want     int
	}{
		{"high income home", "80000", models.CategorySecuredHome, 700},
		{"high income auto", "75000.01", models.CategorySecuredAuto, 690},
		{"threshold is not high income", "75000", models.CategorySecuredAuto, 650},
		{"mid income personal", "50000", models.CategoryUnsecuredPersonal, 640},
		{"low income personal", "29999.99", models.CategoryUnsecuredPersonal, 620},
		{"threshold is not low income", "30000", models.CategorySecuredHome, 660},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Score("PQRSX1234Z", inr(tt.income), tt.category, NoJitter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScore_Sentinels(t *testing.T) {
	for _, income := range []string{"1", "50000", "9999999"} {
		for _, cat := range []models.LoanCategory{models.CategorySecuredHome, models.CategoryUnsecuredPersonal} {
			got, err := Score("ABCDE1234F", inr(income), cat, FixedJitter(5))
			require.NoError(t, err)
			assert.Equal(t, 790, got)

			got, err = Score("FGHIJ5678K", inr(income), cat, FixedJitter(-5))
			require.NoError(t, err)
			assert.Equal(t, 610, got)
		}
	}
}

func TestScore_JitterIsBounded(t *testing.T) {
	got, err := Score("PQRSX1234Z", inr("80000"), models.CategorySecuredHome, FixedJitter(500))
	require.NoError(t, err)
	assert.Equal(t, 705, got)

	got, err = Score("PQRSX1234Z", inr("80000"), models.CategorySecuredHome, FixedJitter(-500))
	require.NoError(t, err)
	assert.Equal(t, 695, got)
}

func TestScore_RangeWithRandomJitter(t *testing.T) {
	incomes := []string{"0.01", "15000", "30000", "75000", "80000", "10000000"}
	categories := []models.LoanCategory{models.CategoryUnsecuredPersonal, models.CategorySecuredHome, models.CategorySecuredAuto}

	for i := 0; i < 200; i++ {
		for _, income := range incomes {
			for _, cat := range categories {
				got, err := Score("PQRSX1234Z", inr(income), cat, RandomJitter)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, got, models.MinCreditScore)
				assert.LessOrEqual(t, got, models.MaxCreditScore)
			}
		}
	}
}

func TestRandomJitter_Range(t *testing.T) {
	seen := make(map[int]bool)
	for i := 0; i < 2000; i++ {
		j := RandomJitter()
		require.GreaterOrEqual(t, j, -5)
		require.LessOrEqual(t, j, 5)
		seen[j] = true
	}
	assert.Len(t, seen, 11)
}

func TestScore_UnknownCategory(t *testing.T) {
	_, err := Score("PQRSX1234Z", inr("50000"), models.LoanCategory("BOAT"), NoJitter)
	require.Error(t, err)
	assert.True(t, apperrors.IsBusinessLogic(err))
	assert.Contains(t, apperrors.Reason(err), "BOAT")
}

func BenchmarkScore(b *testing.B) {
	income := inr("82000.50")
	for i := 0; i < b.N; i++ {
		_, _ = Score("PQRSX1234Z", income, models.CategorySecuredHome, RandomJitter)
	}
}
