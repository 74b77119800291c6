package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	apperrors "loan-prequal/internal/common/errors"
	"loan-prequal/internal/common/logger"
	"loan-prequal/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAppID = "6f1c2a7e-3b4d-4e5f-8a9b-0c1d2e3f4a5b"

var (
	selectForUpdate = regexp.QuoteMeta(`SELECT status FROM applications WHERE id = $1 FOR UPDATE`)
	updateStatusSQL = regexp.QuoteMeta(`UPDATE applications SET status = $2`)
	selectByID      = regexp.QuoteMeta(`FROM applications WHERE id = $1`)
)

func newTestStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db, logger.NewTestLogger(t)), mock
}

func intPtr(v int) *int { return &v }

func applicationRow() *sqlmock.Rows {
	created := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{
		"id", "pan_number", "applicant_name", "monthly_income_inr", "loan_amount_inr",
		"loan_type", "status", "cibil_score", "created_at", "updated_at",
	}).AddRow(testAppID, "ABCDE1234F", "Asha Rao", "80000.00", "500000.00",
		"SECURED_HOME", "PRE_APPROVED", int64(712), created, created)
}

func TestUpdateStatus_Success(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUpdate).
		WithArgs(testAppID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING"))
	mock.ExpectExec(updateStatusSQL).
		WithArgs(testAppID, "PRE_APPROVED", int64(712)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := s.UpdateStatus(context.Background(), testAppID, models.StatusPreApproved, intPtr(712))
	require.NoError(t, err)
	assert.True(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_NilScore(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUpdate).
		WithArgs(testAppID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING"))
	mock.ExpectExec(updateStatusSQL).
		WithArgs(testAppID, "MANUAL_REVIEW", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := s.UpdateStatus(context.Background(), testAppID, models.StatusManualReview, nil)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_SecondCallIsNoOp(t *testing.T) {
	s, mock := newTestStore(t)

	// first delivery transitions the record
	mock.ExpectBegin()
	mock.ExpectQuery(selectForUpdate).
		WithArgs(testAppID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING"))
	mock.ExpectExec(updateStatusSQL).
		WithArgs(testAppID, "REJECTED", int64(610)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// redelivery sees the terminal status and writes nothing
	mock.ExpectBegin()
	mock.ExpectQuery(selectForUpdate).
		WithArgs(testAppID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("REJECTED"))
	mock.ExpectRollback()

	ctx := context.Background()
	first, err := s.UpdateStatus(ctx, testAppID, models.StatusRejected, intPtr(610))
	require.NoError(t, err)
	assert.True(t, first)

	second, err := s.UpdateStatus(ctx, testAppID, models.StatusPreApproved, intPtr(790))
	require.NoError(t, err)
	assert.False(t, second)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_AlreadyTerminal(t *testing.T) {
	for _, current := range []string{"PRE_APPROVED", "REJECTED", "MANUAL_REVIEW"} {
		t.Run(current, func(t *testing.T) {
			s, mock := newTestStore(t)

			mock.ExpectBegin()
			mock.ExpectQuery(selectForUpdate).
				WithArgs(testAppID).
				WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(current))
			mock.ExpectRollback()

			updated, err := s.UpdateStatus(context.Background(), testAppID, models.StatusManualReview, intPtr(700))
			require.NoError(t, err)
			assert.False(t, updated)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUpdate).
		WithArgs(testAppID).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	updated, err := s.UpdateStatus(context.Background(), testAppID, models.StatusRejected, intPtr(500))
	require.NoError(t, err)
	assert.False(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_StorageFailures(t *testing.T) {
	dbErr := errors.New("connection reset by peer")

	tests := []struct {
		name  string
		setup func(mock sqlmock.Sqlmock)
	}{
		{
			name: "begin fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(dbErr)
			},
		},
		{
			name: "select fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(selectForUpdate).WithArgs(testAppID).WillReturnError(dbErr)
				mock.ExpectRollback()
			},
		},
		{
			name: "update fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(selectForUpdate).
					WithArgs(testAppID).
					WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING"))
				mock.ExpectExec(updateStatusSQL).WillReturnError(dbErr)
				mock.ExpectRollback()
			},
		},
		{
			name: "commit fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(selectForUpdate).
					WithArgs(testAppID).
					WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING"))
				mock.ExpectExec(updateStatusSQL).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit().WillReturnError(dbErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newTestStore(t)
			tt.setup(mock)

			updated, err := s.UpdateStatus(context.Background(), testAppID, models.StatusPreApproved, intPtr(700))
			require.Error(t, err)
			assert.False(t, updated)
			assert.True(t, apperrors.IsStorage(err), "want StorageError, got %v", err)
			assert.ErrorIs(t, err, dbErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUpdateStatus_RejectsInvalidArguments(t *testing.T) {
	s, mock := newTestStore(t)

	_, err := s.UpdateStatus(context.Background(), testAppID, models.StatusPending, nil)
	assert.True(t, apperrors.IsValidation(err))

	_, err = s.UpdateStatus(context.Background(), testAppID, models.StatusRejected, intPtr(950))
	assert.True(t, apperrors.IsValidation(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave(t *testing.T) {
	s, mock := newTestStore(t)
	name := "Asha Rao"
	app := &models.Application{
		ID:              testAppID,
		TaxID:           "ABCDE1234F",
		ApplicantName:   &name,
		MonthlyIncome:   decimal.RequireFromString("80000.00"),
		RequestedAmount: decimal.RequireFromString("500000.00"),
		Category:        models.CategorySecuredHome,
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO applications`)).
		WithArgs(testAppID, "ABCDE1234F", "Asha Rao", app.MonthlyIncome, app.RequestedAmount,
			"SECURED_HOME", "PENDING", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Save(context.Background(), app))
	assert.Equal(t, models.StatusPending, app.Status)
	assert.False(t, app.CreatedAt.IsZero())
	assert.Equal(t, app.CreatedAt, app.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_ConstraintViolationIsValidation(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO applications`)).
		WillReturnError(&pq.Error{Code: "23514", Message: "violates check constraint \"chk_positive_amount\""})

	err := s.Save(context.Background(), &models.Application{ID: testAppID, Category: models.CategorySecuredAuto})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, apperrors.Reason(err), "chk_positive_amount")
}

func TestSave_ConnectionFailureIsStorage(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO applications`)).
		WillReturnError(errors.New("dial tcp: connection refused"))

	err := s.Save(context.Background(), &models.Application{ID: testAppID})
	assert.True(t, apperrors.IsStorage(err))
}

func TestFindByID(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(selectByID).WithArgs(testAppID).WillReturnRows(applicationRow())

	app, err := s.FindByID(context.Background(), testAppID)
	require.NoError(t, err)
	require.NotNil(t, app)

	assert.Equal(t, testAppID, app.ID)
	assert.Equal(t, models.StatusPreApproved, app.Status)
	assert.Equal(t, models.CategorySecuredHome, app.Category)
	require.NotNil(t, app.ApplicantName)
	assert.Equal(t, "Asha Rao", *app.ApplicantName)
	require.NotNil(t, app.CreditScore)
	assert.Equal(t, 712, *app.CreditScore)
	assert.True(t, app.MonthlyIncome.Equal(decimal.NewFromInt(80000)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_NotFound(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(selectByID).WithArgs(testAppID).WillReturnError(sql.ErrNoRows)

	app, err := s.FindByID(context.Background(), testAppID)
	assert.NoError(t, err)
	assert.Nil(t, app)
}

func TestFindByID_StorageError(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(selectByID).WithArgs(testAppID).WillReturnError(errors.New("timeout"))

	app, err := s.FindByID(context.Background(), testAppID)
	assert.Nil(t, app)
	assert.True(t, apperrors.IsStorage(err))
}

func TestListByStatus(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE status = $1 ORDER BY created_at ASC LIMIT $2`)).
		WithArgs("PRE_APPROVED", DefaultListLimit).
		WillReturnRows(applicationRow())

	apps, err := s.ListByStatus(context.Background(), models.StatusPreApproved, 0)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, testAppID, apps[0].ID)

	mock.ExpectQuery(regexp.QuoteMeta(`LIMIT $2`)).
		WithArgs("PENDING", MaxListLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	apps, err = s.ListByStatus(context.Background(), models.StatusPending, 5000)
	require.NoError(t, err)
	assert.Empty(t, apps)

	_, err = s.ListByStatus(context.Background(), "DONE", 10)
	assert.True(t, apperrors.IsValidation(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS applications`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
