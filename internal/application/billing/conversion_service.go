package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/medpractice/backend/internal/domain/billing"
	"github.com/medpractice/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// numberConflictAttempts bounds the allocate+insert retry loop when two
// concurrent conversions race for the same year sequence
const numberConflictAttempts = 3

// ConversionService executes the one-way transformation of a quote or
// pro-forma document into a finalized invoice
type ConversionService struct {
	docRepo billing.DocumentRepository
	logger  *zap.Logger
}

// NewConversionService creates a new ConversionService
func NewConversionService(docRepo billing.DocumentRepository, logger *zap.Logger) *ConversionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversionService{
		docRepo: docRepo,
		logger:  logger,
	}
}

// Convert turns the source document into a new document of targetType.
// Preconditions are checked in order, first failure wins: the source must
// exist, be of a convertible type, not have been converted before, and the
// caller must be authenticated. The new document and its duplicated lines
// are written atomically; recording the forward link on the source is a
// best-effort step whose failure is logged, not rolled back.
func (s *ConversionService) Convert(ctx context.Context, actorID, sourceID uuid.UUID, targetType billing.DocumentType) (*ConvertResult, error) {
	source, err := s.docRepo.FindByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	if err := source.CanConvert(); err != nil {
		return nil, err
	}

	if actorID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}

	target, err := s.insertTarget(ctx, source, targetType)
	if err != nil {
		return nil, err
	}

	if err := s.docRepo.SetConvertedTo(ctx, source.ID, target.ID); err != nil {
		// The new document exists and is usable; the missing back-link is an
		// accepted inconsistency surfaced through the log, not to the caller.
		s.logger.Error("failed to record conversion back-link on source document",
			zap.String("source_id", source.ID.String()),
			zap.String("target_id", target.ID.String()),
			zap.Error(err),
		)
	}

	return &ConvertResult{
		DocumentID: target.ID,
		Number:     target.Number,
	}, nil
}

// insertTarget allocates a number and inserts the conversion target,
// retrying the allocate+insert pair when a concurrent allocation for the
// same year collides on the unique number constraint
func (s *ConversionService) insertTarget(ctx context.Context, source *billing.Document, targetType billing.DocumentType) (*billing.Document, error) {
	var lastErr error
	for attempt := 1; attempt <= numberConflictAttempts; attempt++ {
		number, err := s.docRepo.NextDocumentNumber(ctx, time.Now().Year())
		if err != nil {
			return nil, err
		}

		target, err := source.ConvertTo(targetType, number, time.Now())
		if err != nil {
			return nil, err
		}

		if err := s.docRepo.Save(ctx, target); err != nil {
			if errors.Is(err, shared.ErrConflict) {
				s.logger.Warn("document number collided with a concurrent allocation, retrying",
					zap.String("number", number),
					zap.Int("attempt", attempt),
				)
				lastErr = err
				continue
			}
			return nil, err
		}
		return target, nil
	}
	return nil, lastErr
}
