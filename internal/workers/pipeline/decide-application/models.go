// internal/workers/pipeline/decide-application/models.go
package decideapplication

import (
	"context"

	"loan-prequal/internal/models"
)

// StatusUpdater is the slice of the application store the decision stage
// writes through.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, score *int) (bool, error)
}

// Notifier receives every terminal transition. Errors are logged and never
// affect the message outcome.
type Notifier interface {
	NotifyDecision(ctx context.Context, event models.DecisionEvent) error
}

type NopNotifier struct{}

func (NopNotifier) NotifyDecision(context.Context, models.DecisionEvent) error { return nil }
