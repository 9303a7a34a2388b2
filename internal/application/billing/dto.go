package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/medpractice/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// CreateDocumentRequest is the application-level input for creating a document
type CreateDocumentRequest struct {
	Type                      billing.DocumentType
	PatientID                 uuid.UUID
	Date                      *time.Time
	PaymentMethod             string
	Notes                     string
	WelfareFundRate           decimal.Decimal
	WithholdingTaxRate        decimal.Decimal
	SupplementaryContribution decimal.Decimal
	VirtualStamp              bool
	Lines                     []CreateDocumentLineInput
}

// CreateDocumentLineInput is a line item in the create request
type CreateDocumentLineInput struct {
	ServiceID   *uuid.UUID
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	TaxRate     decimal.Decimal
}

// DocumentListFilter contains list filtering options
type DocumentListFilter struct {
	Page      int
	PageSize  int
	OrderBy   string
	OrderDir  string
	Type      *billing.DocumentType
	Status    *string
	PatientID *uuid.UUID
	Year      *int
}

// DocumentResponse represents a document in application responses
type DocumentResponse struct {
	ID                        uuid.UUID              `json:"id"`
	Number                    string                 `json:"number"`
	Date                      time.Time              `json:"date"`
	Type                      billing.DocumentType   `json:"type"`
	PatientID                 uuid.UUID              `json:"patient_id"`
	TaxableAmount             decimal.Decimal        `json:"taxable_amount"`
	TaxAmount                 decimal.Decimal        `json:"tax_amount"`
	TotalAmount               decimal.Decimal        `json:"total_amount"`
	WelfareFundRate           decimal.Decimal        `json:"welfare_fund_rate"`
	WithholdingTaxRate        decimal.Decimal        `json:"withholding_tax_rate"`
	SupplementaryContribution decimal.Decimal        `json:"supplementary_contribution"`
	VirtualStamp              bool                   `json:"virtual_stamp"`
	Notes                     string                 `json:"notes"`
	PaymentMethod             string                 `json:"payment_method"`
	Status                    string                 `json:"status"`
	FiscalID                  *string                `json:"fiscal_id"`
	FiscalStatus              *billing.FiscalStatus  `json:"fiscal_status"`
	SentToFiscalAuthority     bool                   `json:"sent_to_fiscal_authority"`
	SentAt                    *time.Time             `json:"sent_at"`
	ConvertedFromID           *uuid.UUID             `json:"converted_from_id"`
	ConvertedToID             *uuid.UUID             `json:"converted_to_id"`
	Lines                     []DocumentLineResponse `json:"lines"`
	CreatedAt                 time.Time              `json:"created_at"`
	UpdatedAt                 time.Time              `json:"updated_at"`
}

// DocumentLineResponse represents a line item in application responses
type DocumentLineResponse struct {
	ID            uuid.UUID       `json:"id"`
	ServiceID     *uuid.UUID      `json:"service_id"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Discount      decimal.Decimal `json:"discount"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

// ConvertResult is the outcome of a successful conversion
type ConvertResult struct {
	DocumentID uuid.UUID `json:"document_id"`
	Number     string    `json:"number"`
}

// SubmitResult is the outcome of a successful fiscal submission
type SubmitResult struct {
	FiscalID string               `json:"fiscal_id"`
	Status   billing.FiscalStatus `json:"status"`
}

// ToDocumentResponse maps a domain document to its response shape
func ToDocumentResponse(doc *billing.Document) DocumentResponse {
	lines := make([]DocumentLineResponse, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		lines = append(lines, DocumentLineResponse{
			ID:            line.ID,
			ServiceID:     line.ServiceID,
			Description:   line.Description,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			Discount:      line.Discount,
			TaxRate:       line.TaxRate,
			TaxableAmount: line.TaxableAmount,
			TaxAmount:     line.TaxAmount,
			LineTotal:     line.LineTotal,
		})
	}

	return DocumentResponse{
		ID:                        doc.ID,
		Number:                    doc.Number,
		Date:                      doc.Date,
		Type:                      doc.Type,
		PatientID:                 doc.PatientID,
		TaxableAmount:             doc.TaxableAmount,
		TaxAmount:                 doc.TaxAmount,
		TotalAmount:               doc.TotalAmount,
		WelfareFundRate:           doc.WelfareFundRate,
		WithholdingTaxRate:        doc.WithholdingTaxRate,
		SupplementaryContribution: doc.SupplementaryContribution,
		VirtualStamp:              doc.VirtualStamp,
		Notes:                     doc.Notes,
		PaymentMethod:             doc.PaymentMethod,
		Status:                    doc.Status,
		FiscalID:                  doc.FiscalID,
		FiscalStatus:              doc.FiscalStatus,
		SentToFiscalAuthority:     doc.SentToFiscalAuthority,
		SentAt:                    doc.SentAt,
		ConvertedFromID:           doc.ConvertedFromID,
		ConvertedToID:             doc.ConvertedToID,
		Lines:                     lines,
		CreatedAt:                 doc.CreatedAt,
		UpdatedAt:                 doc.UpdatedAt,
	}
}
