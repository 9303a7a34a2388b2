package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/medpractice/backend/internal/domain/billing"
	"github.com/medpractice/backend/internal/domain/patient"
	"github.com/medpractice/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// FiscalService submits finalized healthcare invoices to the external
// fiscal authority and records the outcome on the document
type FiscalService struct {
	docRepo     billing.DocumentRepository
	patientRepo patient.PatientRepository
	gateway     billing.FiscalGateway
	logger      *zap.Logger
}

// NewFiscalService creates a new FiscalService
func NewFiscalService(docRepo billing.DocumentRepository, patientRepo patient.PatientRepository, gateway billing.FiscalGateway, logger *zap.Logger) *FiscalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FiscalService{
		docRepo:     docRepo,
		patientRepo: patientRepo,
		gateway:     gateway,
		logger:      logger,
	}
}

// Submit delivers the document to the fiscal authority. Only healthcare
// invoices are eligible. An already-sent document is not rejected: the
// contract leaves the idempotence check to the caller, so a second call
// re-submits and overwrites the recorded outcome.
func (s *FiscalService) Submit(ctx context.Context, documentID uuid.UUID) (*SubmitResult, error) {
	doc, err := s.docRepo.FindByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if err := doc.CanSubmitToFiscalAuthority(); err != nil {
		return nil, err
	}

	token, err := s.gateway.Authenticate(ctx)
	if err != nil {
		return nil, s.translateGatewayError(err)
	}

	pat, err := s.patientRepo.FindByID(ctx, doc.PatientID)
	if err != nil {
		return nil, err
	}

	payload := buildSubmission(doc, pat)

	result, err := s.gateway.Submit(ctx, token, payload)
	if err != nil {
		return nil, s.translateGatewayError(err)
	}

	if err := doc.MarkSubmitted(result.FiscalID, result.SubmittedAt); err != nil {
		return nil, err
	}

	// A failure here surfaces to the caller even though the remote
	// submission already went through; the authority's copy wins and the
	// caller retries the recording.
	if err := s.docRepo.Update(ctx, doc); err != nil {
		s.logger.Error("fiscal submission succeeded but recording the outcome failed",
			zap.String("document_id", doc.ID.String()),
			zap.String("fiscal_id", result.FiscalID),
			zap.Error(err),
		)
		return nil, err
	}

	return &SubmitResult{
		FiscalID: result.FiscalID,
		Status:   result.Status,
	}, nil
}

// translateGatewayError maps gateway sentinel errors onto domain errors
func (s *FiscalService) translateGatewayError(err error) error {
	switch {
	case errors.Is(err, billing.ErrFiscalNotConfigured):
		return shared.NewDomainError("CONFIG", "Fiscal authority credentials are not configured")
	case errors.Is(err, billing.ErrFiscalAuthRejected):
		return shared.NewDomainError("UNAUTHORIZED", "Fiscal authority rejected the configured credentials")
	default:
		return shared.NewDomainError("REMOTE_SERVICE", err.Error())
	}
}

// buildSubmission assembles the authority payload from the document, its
// patient and its lines
func buildSubmission(doc *billing.Document, pat *patient.Patient) billing.FiscalSubmission {
	rows := make([]billing.FiscalSubmissionRow, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		rows = append(rows, billing.FiscalSubmissionRow{
			Description:   line.Description,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			TaxRate:       line.TaxRate,
			TaxableAmount: line.TaxableAmount,
			TaxAmount:     line.TaxAmount,
			LineTotal:     line.LineTotal,
		})
	}

	return billing.FiscalSubmission{
		DocumentID:     doc.ID,
		DocumentNumber: doc.Number,
		DocumentDate:   doc.Date,
		Patient: billing.FiscalPatient{
			FirstName:  pat.FirstName,
			LastName:   pat.LastName,
			FiscalCode: pat.FiscalCode,
			Address:    pat.Address,
			City:       pat.City,
			PostalCode: pat.PostalCode,
			Province:   pat.Province,
		},
		Lines:         rows,
		TaxableAmount: doc.TaxableAmount,
		TaxAmount:     doc.TaxAmount,
		TotalAmount:   doc.TotalAmount,
		PaymentMethod: doc.PaymentMethod,
	}
}
