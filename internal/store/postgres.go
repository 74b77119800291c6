package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	apperrors "loan-prequal/internal/common/errors"
	"loan-prequal/internal/common/logger"
	"loan-prequal/internal/models"

	"github.com/lib/pq"
)

//go:embed schema.sql
var schemaDDL string

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// ApplicationStore is the repository consumed by the API boundary and the
// decision stage. Infrastructure failures surface as StorageError; a false
// from UpdateStatus only ever means "not found" or "already decided".
type ApplicationStore interface {
	Save(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, id string) (*models.Application, error)
	UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, score *int) (bool, error)
	ListByStatus(ctx context.Context, status models.ApplicationStatus, limit int) ([]*models.Application, error)
}

const applicationColumns = `id, pan_number, applicant_name, monthly_income_inr, loan_amount_inr,
	loan_type, status, cibil_score, created_at, updated_at`

type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "application-store"}),
	}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return classify("ensure_schema", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, app *models.Application) error {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		app.ID,
		app.TaxID,
		app.ApplicantName,
		app.MonthlyIncome,
		app.RequestedAmount,
		string(app.Category),
		string(app.Status),
		nullableScore(app.CreditScore),
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		return classify("save", err)
	}

	s.logger.Info("application saved", map[string]interface{}{
		"applicationId": app.ID,
		"pan":           logger.MaskPAN(app.TaxID),
		"status":        string(app.Status),
	})
	return nil
}

// FindByID returns nil, nil when the record does not exist.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)

	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("find_by_id", err)
	}
	return app, nil
}

// UpdateStatus moves a PENDING record to a terminal status under a row lock.
// It returns false without mutating anything when the record is missing or
// has already left PENDING, which makes redelivered score reports no-ops.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, score *int) (bool, error) {
	if !status.Terminal() {
		return false, apperrors.NewValidationError(fmt.Sprintf("status %q is not a terminal status", status))
	}
	if score != nil && (*score < models.MinCreditScore || *score > models.MaxCreditScore) {
		return false, apperrors.NewValidationError(fmt.Sprintf("cibil_score %d outside [%d,%d]",
			*score, models.MinCreditScore, models.MaxCreditScore))
	}

	log := s.logger.WithFields(map[string]interface{}{
		"applicationId": id,
		"newStatus":     string(status),
	})

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, classify("update_status", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Warn("rollback failed", map[string]interface{}{"error": rbErr.Error()})
		}
	}()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM applications WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		log.Warn("application not found for status update", nil)
		return false, nil
	}
	if err != nil {
		return false, classify("update_status", err)
	}

	if models.ApplicationStatus(current) != models.StatusPending {
		log.Info("application already processed", map[string]interface{}{"currentStatus": current})
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE applications SET status = $2, cibil_score = COALESCE($3, cibil_score), updated_at = NOW() WHERE id = $1`,
		id, string(status), nullableScore(score),
	); err != nil {
		return false, classify("update_status", err)
	}

	if err := tx.Commit(); err != nil {
		return false, classify("update_status", err)
	}
	committed = true

	log.Info("application status updated", map[string]interface{}{"cibilScore": score})
	return true, nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.ApplicationStatus, limit int) ([]*models.Application, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown status %q", status))
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE status = $1 ORDER BY created_at ASC LIMIT $2`,
		string(status), limit)
	if err != nil {
		return nil, classify("list_by_status", err)
	}
	defer rows.Close()

	apps := make([]*models.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, classify("list_by_status", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list_by_status", err)
	}
	return apps, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app      models.Application
		name     sql.NullString
		category string
		status   string
		score    sql.NullInt64
	)
	if err := row.Scan(
		&app.ID,
		&app.TaxID,
		&name,
		&app.MonthlyIncome,
		&app.RequestedAmount,
		&category,
		&status,
		&score,
		&app.CreatedAt,
		&app.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if name.Valid {
		app.ApplicantName = &name.String
	}
	if score.Valid {
		v := int(score.Int64)
		app.CreditScore = &v
	}
	app.Category = models.LoanCategory(category)
	app.Status = models.ApplicationStatus(status)
	return &app, nil
}

func nullableScore(score *int) interface{} {
	if score == nil {
		return nil
	}
	return int64(*score)
}

// classify maps constraint and data errors reported by postgres to
// ValidationError and everything else to StorageError.
func classify(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "22", "23":
			return apperrors.NewValidationError(fmt.Sprintf("%s: %s", op, pqErr.Message))
		}
	}
	return apperrors.NewStorageError(op, err)
}
