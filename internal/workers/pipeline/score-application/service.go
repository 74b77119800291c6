// internal/workers/pipeline/score-application/service.go
package scoreapplication

import (
	"fmt"
	"math/rand/v2"

	apperrors "loan-prequal/internal/common/errors"
	"loan-prequal/internal/models"

	"github.com/shopspring/decimal"
)

const (
	baseScore = 650

	highIncomeBonus    = 40
	lowIncomePenalty   = -20
	personalAdjust     = -10
	homeAdjust         = 10
	autoAdjust         = 0
	maxJitterMagnitude = 5
)

var (
	highIncomeThreshold = decimal.NewFromInt(75000)
	lowIncomeThreshold  = decimal.NewFromInt(30000)
)

// Fixed outputs for known test identities. They skip every adjustment.
var sentinelScores = map[string]int{
	"ABCDE1234F": 790,
	"FGHIJ5678K": 610,
}

// Jitter returns the random term added to a computed score. Values outside
// [-5,5] are clamped.
type Jitter func() int

func RandomJitter() int {
	return rand.IntN(2*maxJitterMagnitude+1) - maxJitterMagnitude
}

func NoJitter() int { return 0 }

func FixedJitter(n int) Jitter {
	return func() int { return n }
}

// Score simulates a bureau credit score in [300,900].
func Score(taxID string, monthlyIncome decimal.Decimal, category models.LoanCategory, jitter Jitter) (int, error) {
	if s, ok := sentinelScores[taxID]; ok {
		return s, nil
	}

	score := baseScore

	switch {
	case monthlyIncome.GreaterThan(highIncomeThreshold):
		score += highIncomeBonus
	case monthlyIncome.LessThan(lowIncomeThreshold):
		score += lowIncomePenalty
	}

	switch category {
	case models.CategoryUnsecuredPersonal:
		score += personalAdjust
	case models.CategorySecuredHome:
		score += homeAdjust
	case models.CategorySecuredAuto:
		score += autoAdjust
	default:
		return 0, apperrors.NewBusinessLogicError("scoring failed",
			fmt.Errorf("unknown loan type %q", category))
	}

	if jitter == nil {
		jitter = RandomJitter
	}
	score += clamp(jitter(), -maxJitterMagnitude, maxJitterMagnitude)

	return clamp(score, models.MinCreditScore, models.MaxCreditScore), nil
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
