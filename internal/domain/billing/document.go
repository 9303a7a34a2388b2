package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medpractice/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DocumentType represents the kind of billing document
type DocumentType string

const (
	DocumentTypeHealthcareInvoice  DocumentType = "fattura_sanitaria"
	DocumentTypeLegalEntityInvoice DocumentType = "fattura_elettronica_pg"
	DocumentTypePublicAdminInvoice DocumentType = "fattura_elettronica_pa"
	DocumentTypeQuote              DocumentType = "preventivo"
	DocumentTypeProForma           DocumentType = "proforma"
	DocumentTypeCreditNote         DocumentType = "nota_di_credito"
)

// IsValid checks if the type is a valid DocumentType
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeHealthcareInvoice, DocumentTypeLegalEntityInvoice,
		DocumentTypePublicAdminInvoice, DocumentTypeQuote,
		DocumentTypeProForma, DocumentTypeCreditNote:
		return true
	}
	return false
}

// String returns the string representation of DocumentType
func (t DocumentType) String() string {
	return string(t)
}

// IsConvertible returns true if a document of this type can be used as
// the source of a conversion
func (t DocumentType) IsConvertible() bool {
	return t == DocumentTypeQuote || t == DocumentTypeProForma
}

// IsInvoice returns true if the type is one of the finalized invoice types
func (t DocumentType) IsInvoice() bool {
	switch t {
	case DocumentTypeHealthcareInvoice, DocumentTypeLegalEntityInvoice, DocumentTypePublicAdminInvoice:
		return true
	}
	return false
}

// FiscalStatus represents the submission state recorded by the fiscal authority
type FiscalStatus string

const (
	// FiscalStatusSent is recorded after a successful submission
	FiscalStatusSent FiscalStatus = "inviata"
	// FiscalStatusRejected is recorded when the authority refuses a document
	FiscalStatusRejected FiscalStatus = "scartata"
)

// String returns the string representation of FiscalStatus
func (s FiscalStatus) String() string {
	return string(s)
}

// Workflow status labels. Status is a free-form label; these are the values
// the application writes itself.
const (
	StatusToSend = "To Send"
	StatusSent   = "Sent"
)

// Document represents a billing document (invoice, quote, pro-forma or
// credit note) issued by the practice
type Document struct {
	shared.BaseEntity
	Number        string          `json:"number"`
	Date          time.Time       `json:"date"`
	Type          DocumentType    `json:"type"`
	PatientID     uuid.UUID       `json:"patient_id"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`

	// Italian invoicing extras carried verbatim through a conversion
	WelfareFundRate           decimal.Decimal `json:"welfare_fund_rate"`           // cassa previdenziale %
	WithholdingTaxRate        decimal.Decimal `json:"withholding_tax_rate"`        // ritenuta d'acconto %
	SupplementaryContribution decimal.Decimal `json:"supplementary_contribution"`  // contributo integrativo
	VirtualStamp              bool            `json:"virtual_stamp"`               // bollo virtuale
	Notes                     string          `json:"notes"`
	PaymentMethod             string          `json:"payment_method"`

	Status string `json:"status"`

	// Fiscal authority submission tracking
	FiscalID              *string       `json:"fiscal_id"`
	FiscalStatus          *FiscalStatus `json:"fiscal_status"`
	SentToFiscalAuthority bool          `json:"sent_to_fiscal_authority"`
	SentAt                *time.Time    `json:"sent_at"`

	// Conversion back-links
	ConvertedFromID *uuid.UUID `json:"converted_from_id"`
	ConvertedToID   *uuid.UUID `json:"converted_to_id"`

	Lines []DocumentLine `json:"lines" gorm:"foreignKey:DocumentID"`
}

// TableName returns the table name for GORM
func (Document) TableName() string {
	return "fatture"
}

// NewDocument creates a new billing document
func NewDocument(number string, docType DocumentType, patientID uuid.UUID, date time.Time) (*Document, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Document number cannot be empty")
	}
	if !docType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TYPE", fmt.Sprintf("Unknown document type %q", docType))
	}
	if patientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PATIENT", "Patient ID cannot be empty")
	}

	return &Document{
		BaseEntity:    shared.NewBaseEntity(),
		Number:        number,
		Date:          date,
		Type:          docType,
		PatientID:     patientID,
		TaxableAmount: decimal.Zero,
		TaxAmount:     decimal.Zero,
		TotalAmount:   decimal.Zero,
		Status:        StatusToSend,
		Lines:         make([]DocumentLine, 0),
	}, nil
}

// AddLine appends a line item and recomputes the document totals
func (d *Document) AddLine(serviceID *uuid.UUID, description string, quantity, unitPrice, discount, taxRate decimal.Decimal) (*DocumentLine, error) {
	line, err := NewDocumentLine(d.ID, serviceID, description, quantity, unitPrice, discount, taxRate)
	if err != nil {
		return nil, err
	}
	d.Lines = append(d.Lines, *line)
	d.RecalculateTotals()
	d.Touch()
	return line, nil
}

// RecalculateTotals recomputes taxable, tax and total amounts from the lines
func (d *Document) RecalculateTotals() {
	taxable := decimal.Zero
	tax := decimal.Zero
	total := decimal.Zero
	for _, line := range d.Lines {
		taxable = taxable.Add(line.TaxableAmount)
		tax = tax.Add(line.TaxAmount)
		total = total.Add(line.LineTotal)
	}
	d.TaxableAmount = taxable
	d.TaxAmount = tax
	d.TotalAmount = total
}

// IsConverted returns true if the document was already converted
func (d *Document) IsConverted() bool {
	return d.ConvertedToID != nil
}

// CanConvert checks whether the document is a valid conversion source.
// The type check runs before the already-converted check; the first
// violated rule is the one reported.
func (d *Document) CanConvert() error {
	if !d.Type.IsConvertible() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Document of type %q is not convertible", d.Type))
	}
	if d.IsConverted() {
		return shared.NewDomainError("INVALID_STATE", "Document has already been converted")
	}
	return nil
}

// CanSubmitToFiscalAuthority checks whether the document may be sent to the
// fiscal authority
func (d *Document) CanSubmitToFiscalAuthority() error {
	if d.Type != DocumentTypeHealthcareInvoice {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Document of type %q cannot be sent to the fiscal authority", d.Type))
	}
	return nil
}

// ConvertTo builds the target document of a conversion: all monetary,
// payment and fiscal-relevant fields are copied from the source, the line
// items are duplicated verbatim, the submission fields start empty and the
// new document is back-linked to its source. The source itself is not
// modified here; recording the forward link is the caller's concern.
func (d *Document) ConvertTo(targetType DocumentType, number string, date time.Time) (*Document, error) {
	if err := d.CanConvert(); err != nil {
		return nil, err
	}
	if !targetType.IsInvoice() {
		return nil, shared.NewDomainError("INVALID_TYPE", fmt.Sprintf("Cannot convert into document type %q", targetType))
	}

	target, err := NewDocument(number, targetType, d.PatientID, date)
	if err != nil {
		return nil, err
	}

	sourceID := d.ID
	target.ConvertedFromID = &sourceID
	target.Status = StatusToSend

	target.WelfareFundRate = d.WelfareFundRate
	target.WithholdingTaxRate = d.WithholdingTaxRate
	target.SupplementaryContribution = d.SupplementaryContribution
	target.VirtualStamp = d.VirtualStamp
	target.Notes = d.Notes
	target.PaymentMethod = d.PaymentMethod

	for _, line := range d.Lines {
		target.Lines = append(target.Lines, line.DuplicateFor(target.ID))
	}
	target.RecalculateTotals()

	return target, nil
}

// MarkConverted records the forward link to the conversion target
func (d *Document) MarkConverted(targetID uuid.UUID) error {
	if targetID == uuid.Nil {
		return shared.NewDomainError("INVALID_TARGET", "Target document ID cannot be empty")
	}
	if d.IsConverted() {
		return shared.NewDomainError("INVALID_STATE", "Document has already been converted")
	}
	d.ConvertedToID = &targetID
	d.Touch()
	return nil
}

// MarkSubmitted records a successful fiscal-authority submission.
// Re-submission of an already-sent document is allowed and simply
// overwrites the previous outcome; callers that want idempotence check
// SentToFiscalAuthority first.
func (d *Document) MarkSubmitted(fiscalID string, at time.Time) error {
	if fiscalID == "" {
		return shared.NewDomainError("INVALID_FISCAL_ID", "Fiscal submission ID cannot be empty")
	}
	status := FiscalStatusSent
	d.FiscalID = &fiscalID
	d.FiscalStatus = &status
	d.SentToFiscalAuthority = true
	d.SentAt = &at
	d.Status = StatusSent
	d.Touch()
	return nil
}

// LineCount returns the number of line items
func (d *Document) LineCount() int {
	return len(d.Lines)
}

// Year returns the calendar year of the document date
func (d *Document) Year() int {
	return d.Date.Year()
}
