package billing

import (
	"github.com/google/uuid"
	"github.com/medpractice/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DocumentLine represents a billed service line on a document
type DocumentLine struct {
	shared.BaseEntity
	DocumentID    uuid.UUID       `json:"document_id"`
	ServiceID     *uuid.UUID      `json:"service_id"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Discount      decimal.Decimal `json:"discount"` // percent
	TaxRate       decimal.Decimal `json:"tax_rate"` // percent
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

// TableName returns the table name for GORM
func (DocumentLine) TableName() string {
	return "fatture_dettagli"
}

// NewDocumentLine creates a line item and computes its amounts:
// taxable = quantity * unit_price * (1 - discount/100), tax = taxable *
// tax_rate / 100, both rounded to 2 decimal places.
func NewDocumentLine(documentID uuid.UUID, serviceID *uuid.UUID, description string, quantity, unitPrice, discount, taxRate decimal.Decimal) (*DocumentLine, error) {
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Line description cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if discount.IsNegative() || discount.GreaterThan(hundred) {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Discount must be between 0 and 100 percent")
	}
	if taxRate.IsNegative() {
		return nil, shared.NewDomainError("INVALID_TAX_RATE", "Tax rate cannot be negative")
	}

	gross := quantity.Mul(unitPrice)
	taxable := gross.Mul(hundred.Sub(discount)).Div(hundred).Round(2)
	tax := taxable.Mul(taxRate).Div(hundred).Round(2)

	return &DocumentLine{
		BaseEntity:    shared.NewBaseEntity(),
		DocumentID:    documentID,
		ServiceID:     serviceID,
		Description:   description,
		Quantity:      quantity,
		UnitPrice:     unitPrice,
		Discount:      discount,
		TaxRate:       taxRate,
		TaxableAmount: taxable,
		TaxAmount:     tax,
		LineTotal:     taxable.Add(tax),
	}, nil
}

// DuplicateFor returns a copy of the line owned by another document. All
// descriptive fields and computed amounts are carried over verbatim; only
// the identity and the owning document change.
func (l DocumentLine) DuplicateFor(documentID uuid.UUID) DocumentLine {
	dup := l
	dup.BaseEntity = shared.NewBaseEntity()
	dup.DocumentID = documentID
	return dup
}
