package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/medpractice/backend/internal/domain/billing"
	"github.com/medpractice/backend/internal/domain/shared"
)

// DocumentService handles document business operations
type DocumentService struct {
	docRepo billing.DocumentRepository
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(docRepo billing.DocumentRepository) *DocumentService {
	return &DocumentService{docRepo: docRepo}
}

// Create creates a new document with its lines, allocating the next
// sequential number for the document's year
func (s *DocumentService) Create(ctx context.Context, req CreateDocumentRequest) (*DocumentResponse, error) {
	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}

	number, err := s.docRepo.NextDocumentNumber(ctx, date.Year())
	if err != nil {
		return nil, err
	}

	doc, err := billing.NewDocument(number, req.Type, req.PatientID, date)
	if err != nil {
		return nil, err
	}

	doc.PaymentMethod = req.PaymentMethod
	doc.Notes = req.Notes
	doc.WelfareFundRate = req.WelfareFundRate
	doc.WithholdingTaxRate = req.WithholdingTaxRate
	doc.SupplementaryContribution = req.SupplementaryContribution
	doc.VirtualStamp = req.VirtualStamp

	for _, line := range req.Lines {
		if _, err := doc.AddLine(line.ServiceID, line.Description, line.Quantity, line.UnitPrice, line.Discount, line.TaxRate); err != nil {
			return nil, err
		}
	}

	if err := s.docRepo.Save(ctx, doc); err != nil {
		return nil, err
	}

	response := ToDocumentResponse(doc)
	return &response, nil
}

// GetByID retrieves a document with its lines
func (s *DocumentService) GetByID(ctx context.Context, id uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.docRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToDocumentResponse(doc)
	return &response, nil
}

// GetByNumber retrieves a document by its unique number
func (s *DocumentService) GetByNumber(ctx context.Context, number string) (*DocumentResponse, error) {
	doc, err := s.docRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	response := ToDocumentResponse(doc)
	return &response, nil
}

// List retrieves documents with filtering and pagination
func (s *DocumentService) List(ctx context.Context, filter DocumentListFilter) ([]DocumentResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	if filter.Type != nil {
		domainFilter.Filters["type"] = string(*filter.Type)
	}
	if filter.Status != nil {
		domainFilter.Filters["status"] = *filter.Status
	}
	if filter.PatientID != nil {
		domainFilter.Filters["patient_id"] = *filter.PatientID
	}
	if filter.Year != nil {
		domainFilter.Filters["year"] = *filter.Year
	}

	docs, err := s.docRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.docRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		responses = append(responses, ToDocumentResponse(&docs[i]))
	}
	return responses, total, nil
}

// UpdateStatus changes the workflow status label of a document
func (s *DocumentService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*DocumentResponse, error) {
	if status == "" {
		return nil, shared.NewDomainError("INVALID_STATUS", "Status cannot be empty")
	}

	doc, err := s.docRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	doc.Status = status
	doc.Touch()

	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	response := ToDocumentResponse(doc)
	return &response, nil
}
