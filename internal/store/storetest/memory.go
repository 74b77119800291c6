// Package storetest provides an in-memory store.ApplicationStore with the same
// conditional-update semantics as the postgres store.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "loan-prequal/internal/common/errors"
	"loan-prequal/internal/models"
	"loan-prequal/internal/store"
)

type MemoryStore struct {
	mu      sync.Mutex
	apps    map[string]models.Application
	failErr error
}

var _ store.ApplicationStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{apps: make(map[string]models.Application)}
}

// FailWith makes every following call return err until cleared with nil.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

func (m *MemoryStore) Save(ctx context.Context, app *models.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	if _, exists := m.apps[app.ID]; exists {
		return apperrors.NewValidationError(fmt.Sprintf("save: duplicate application %s", app.ID))
	}

	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	if app.UpdatedAt.IsZero() {
		app.UpdatedAt = app.CreatedAt
	}
	if app.Status == "" {
		app.Status = models.StatusPending
	}
	m.apps[app.ID] = *app
	return nil
}

func (m *MemoryStore) FindByID(ctx context.Context, id string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	app, ok := m.apps[id]
	if !ok {
		return nil, nil
	}
	return &app, nil
}

func (m *MemoryStore) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, score *int) (bool, error) {
	if !status.Terminal() {
		return false, apperrors.NewValidationError(fmt.Sprintf("status %q is not a terminal status", status))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return false, m.failErr
	}
	app, ok := m.apps[id]
	if !ok || app.Status != models.StatusPending {
		return false, nil
	}

	app.Status = status
	if score != nil {
		v := *score
		app.CreditScore = &v
	}
	app.UpdatedAt = time.Now().UTC()
	m.apps[id] = app
	return true, nil
}

func (m *MemoryStore) ListByStatus(ctx context.Context, status models.ApplicationStatus, limit int) ([]*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	if limit <= 0 {
		limit = store.DefaultListLimit
	}

	out := make([]*models.Application, 0)
	for _, app := range m.apps {
		if app.Status == status {
			a := app
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failErr
}
