package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/medpractice/backend/internal/domain/billing"
	"github.com/medpractice/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations
const pgUniqueViolation = "23505"

// GormDocumentRepository implements billing.DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByID finds a document by its ID, lines included
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Document, error) {
	var doc billing.Document
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindByNumber finds a document by its unique number
func (r *GormDocumentRepository) FindByNumber(ctx context.Context, number string) (*billing.Document, error) {
	var doc billing.Document
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("number = ?", number).
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindAll lists documents matching the filter
func (r *GormDocumentRepository) FindAll(ctx context.Context, filter shared.Filter) ([]billing.Document, error) {
	var docs []billing.Document
	query := r.applyFilter(r.db.WithContext(ctx).Model(&billing.Document{}).Preload("Lines"), filter)
	if err := query.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// Count returns the number of documents matching the filter
func (r *GormDocumentRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&billing.Document{})
	query = r.applyWhere(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save inserts or updates a document together with its lines in one
// transaction. A unique violation on the document number is reported as a
// conflict so callers can retry with a fresh number.
func (r *GormDocumentRepository) Save(ctx context.Context, doc *billing.Document) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Save(doc).Error
	})
	if err != nil {
		return translatePgError(err)
	}
	return nil
}

// Update persists changes to an existing document row, leaving lines alone
func (r *GormDocumentRepository) Update(ctx context.Context, doc *billing.Document) error {
	result := r.db.WithContext(ctx).
		Omit("Lines").
		Where("id = ?", doc.ID).
		Updates(doc)
	if result.Error != nil {
		return translatePgError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetConvertedTo records the forward conversion link on the source row
func (r *GormDocumentRepository) SetConvertedTo(ctx context.Context, sourceID, targetID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&billing.Document{}).
		Where("id = ?", sourceID).
		Update("converted_to_id", targetID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// NextDocumentNumber computes the next sequential number for a year.
// Format: YYYY/NNN (e.g. 2026/001); the counter keeps growing past 999
// without truncation. The highest sequence is read numerically because a
// lexicographic sort would put "999" after "1000". Rows whose suffix is
// not numeric are ignored, so a year containing only malformed numbers
// starts over at 001.
func (r *GormDocumentRepository) NextDocumentNumber(ctx context.Context, year int) (string, error) {
	prefix := fmt.Sprintf("%d/", year)

	var maxSeq sql.NullInt64
	err := r.db.WithContext(ctx).
		Model(&billing.Document{}).
		Where("number LIKE ?", prefix+"%").
		Where("SPLIT_PART(number, '/', 2) ~ '^[0-9]+$'").
		Select("MAX(CAST(SPLIT_PART(number, '/', 2) AS INTEGER))").
		Scan(&maxSeq).Error
	if err != nil {
		return "", err
	}

	var nextSeq int64 = 1
	if maxSeq.Valid {
		nextSeq = maxSeq.Int64 + 1
	}

	return fmt.Sprintf("%s%03d", prefix, nextSeq), nil
}

// applyFilter applies pagination, ordering and field filters to a query
func (r *GormDocumentRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyWhere(query, filter)

	if filter.OrderBy != "" {
		dir := "ASC"
		if filter.OrderDir == "desc" {
			dir = "DESC"
		}
		query = query.Order(fmt.Sprintf("%s %s", filter.OrderBy, dir))
	}

	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		if offset < 0 {
			offset = 0
		}
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	return query
}

// applyWhere applies the field filters shared by listing and counting
func (r *GormDocumentRepository) applyWhere(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for field, value := range filter.Filters {
		switch field {
		case "type", "status", "patient_id":
			query = query.Where(fmt.Sprintf("%s = ?", field), value)
		case "year":
			query = query.Where("number LIKE ?", fmt.Sprintf("%v/%%", value))
		case "date_from":
			query = query.Where("date >= ?", value)
		case "date_to":
			query = query.Where("date <= ?", value)
		}
	}
	if filter.Search != "" {
		query = query.Where("number ILIKE ? OR notes ILIKE ?", "%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	return query
}

// translatePgError maps PostgreSQL unique violations onto the shared
// conflict error, leaving everything else untouched. The gorm postgres
// driver speaks pgx, so runtime errors are *pgconn.PgError; *pq.Error is
// handled too for connections opened through lib/pq (the migrate CLI).
func translatePgError(err error) error {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) && pgxErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", shared.ErrConflict, pgxErr.ConstraintName)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", shared.ErrConflict, pqErr.Constraint)
	}
	return err
}
