package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/medpractice/backend/internal/domain/shared"
)

// DocumentRepository defines persistence operations for billing documents
type DocumentRepository interface {
	// FindByID loads a document with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)
	// FindByNumber loads a document by its unique number
	FindByNumber(ctx context.Context, number string) (*Document, error)
	// FindAll lists documents matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Document, error)
	// Count returns the number of documents matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	// Save inserts or updates a document together with its lines
	Save(ctx context.Context, doc *Document) error
	// Update persists changes to an existing document row only
	Update(ctx context.Context, doc *Document) error
	// SetConvertedTo records the forward conversion link on the source row
	SetConvertedTo(ctx context.Context, sourceID, targetID uuid.UUID) error
	// NextDocumentNumber computes the next sequential number for a year.
	// The read is not serialized against concurrent allocations; a race
	// surfaces as a unique-constraint conflict on insert.
	NextDocumentNumber(ctx context.Context, year int) (string, error)
}
