package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/medpractice/backend/internal/domain/billing"
	"github.com/medpractice/backend/internal/domain/shared"
)

// newMockDocumentRepository creates a GormDocumentRepository with a mocked SQL connection
func newMockDocumentRepository(t *testing.T) (*GormDocumentRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormDocumentRepository(gormDB), mock, mockDB
}

func TestGormDocumentRepository_NextDocumentNumber(t *testing.T) {
	ctx := context.Background()

	maxSeqQuery := `SELECT MAX\(CAST\(SPLIT_PART\(number, '/', 2\) AS INTEGER\)\) FROM "fatture" WHERE number LIKE \$1 AND SPLIT_PART\(number, '/', 2\) ~ '\^\[0-9\]\+\$'`

	t.Run("first number of the year is 001", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(maxSeqQuery).
			WithArgs("2026/%").
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

		number, err := repo.NextDocumentNumber(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, "2026/001", number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("increments the highest existing sequence", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(maxSeqQuery).
			WithArgs("2026/%").
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(14)))

		number, err := repo.NextDocumentNumber(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, "2026/015", number)
	})

	t.Run("sequence widens past 999 without truncation", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(maxSeqQuery).
			WithArgs("2026/%").
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(999)))

		number, err := repo.NextDocumentNumber(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, "2026/1000", number)
	})

	t.Run("malformed suffixes are ignored and the sequence starts over", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		// The scan excludes non-numeric suffixes, so a year holding only
		// rows like "2026/bozza" yields no max and falls back to 001.
		mock.ExpectQuery(maxSeqQuery).
			WithArgs("2026/%").
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

		number, err := repo.NextDocumentNumber(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, "2026/001", number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("years are independent sequences", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		// Documents exist for 2025 but the 2026 scan sees none.
		mock.ExpectQuery(maxSeqQuery).
			WithArgs("2026/%").
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

		number, err := repo.NextDocumentNumber(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, "2026/001", number)
	})

	t.Run("propagates query errors", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(maxSeqQuery).
			WithArgs("2026/%").
			WillReturnError(errors.New("connection refused"))

		_, err := repo.NextDocumentNumber(ctx, 2026)
		assert.Error(t, err)
	})
}

func TestGormDocumentRepository_FindByID(t *testing.T) {
	ctx := context.Background()

	t.Run("missing document maps to shared.ErrNotFound", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "fatture" WHERE id = \$1`).
			WithArgs(id, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindByID(ctx, id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormDocumentRepository_SetConvertedTo(t *testing.T) {
	ctx := context.Background()

	t.Run("updates the forward link", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		sourceID := uuid.New()
		targetID := uuid.New()

		mock.ExpectExec(`UPDATE "fatture" SET "converted_to_id"=\$1,"updated_at"=\$2 WHERE id = \$3`).
			WithArgs(targetID, sqlmock.AnyArg(), sourceID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SetConvertedTo(ctx, sourceID, targetID)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing source maps to shared.ErrNotFound", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "fatture"`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SetConvertedTo(ctx, uuid.New(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestTranslatePgError(t *testing.T) {
	t.Run("pgx unique violation becomes a conflict", func(t *testing.T) {
		pgxErr := &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "idx_fatture_number"}
		err := translatePgError(pgxErr)
		assert.ErrorIs(t, err, shared.ErrConflict)
		assert.Contains(t, err.Error(), "idx_fatture_number")
	})

	t.Run("wrapped pgx unique violation is still recognized", func(t *testing.T) {
		pgxErr := &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "idx_fatture_number"}
		err := translatePgError(fmt.Errorf("insert failed: %w", pgxErr))
		assert.ErrorIs(t, err, shared.ErrConflict)
	})

	t.Run("lib/pq unique violation becomes a conflict", func(t *testing.T) {
		pqErr := &pq.Error{Code: pgUniqueViolation, Constraint: "idx_fatture_number"}
		err := translatePgError(pqErr)
		assert.ErrorIs(t, err, shared.ErrConflict)
		assert.Contains(t, err.Error(), "idx_fatture_number")
	})

	t.Run("wrapped lib/pq unique violation is still recognized", func(t *testing.T) {
		pqErr := &pq.Error{Code: pgUniqueViolation, Constraint: "idx_fatture_number"}
		err := translatePgError(fmt.Errorf("insert failed: %w", pqErr))
		assert.ErrorIs(t, err, shared.ErrConflict)
	})

	t.Run("other pg errors pass through", func(t *testing.T) {
		err := translatePgError(&pgconn.PgError{Code: "23503"}) // foreign key violation
		assert.NotErrorIs(t, err, shared.ErrConflict)

		err = translatePgError(&pq.Error{Code: "23503"})
		assert.NotErrorIs(t, err, shared.ErrConflict)
	})

	t.Run("non-pg errors pass through", func(t *testing.T) {
		plain := errors.New("connection reset")
		assert.Equal(t, plain, translatePgError(plain))
	})
}

func TestGormDocumentRepository_SaveConflict(t *testing.T) {
	repo, mock, mockDB := newMockDocumentRepository(t)
	defer mockDB.Close()

	doc, err := billing.NewDocument("2026/007", billing.DocumentTypeHealthcareInvoice, uuid.New(), time.Now())
	require.NoError(t, err)

	// A collision on the unique number index must surface as the shared
	// conflict so the conversion retry loop can react.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "fatture"`).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "idx_fatture_number"})
	mock.ExpectRollback()

	err = repo.Save(context.Background(), doc)
	assert.ErrorIs(t, err, shared.ErrConflict)
}
