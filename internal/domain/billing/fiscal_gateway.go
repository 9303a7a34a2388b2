package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fiscal gateway errors
var (
	ErrFiscalNotConfigured   = errors.New("fiscal: gateway credentials not configured")
	ErrFiscalAuthRejected    = errors.New("fiscal: authentication rejected by the authority")
	ErrFiscalRequestFailed   = errors.New("fiscal: authority request failed")
	ErrFiscalInvalidResponse = errors.New("fiscal: invalid authority response")
)

// FiscalSubmission is the payload delivered to the fiscal authority for a
// healthcare invoice. It flattens the document, its patient and its lines
// into the shape the authority expects.
type FiscalSubmission struct {
	DocumentID     uuid.UUID             `json:"document_id"`
	DocumentNumber string                `json:"document_number"`
	DocumentDate   time.Time             `json:"document_date"`
	Patient        FiscalPatient         `json:"patient"`
	Lines          []FiscalSubmissionRow `json:"lines"`
	TaxableAmount  decimal.Decimal       `json:"taxable_amount"`
	TaxAmount      decimal.Decimal       `json:"tax_amount"`
	TotalAmount    decimal.Decimal       `json:"total_amount"`
	PaymentMethod  string                `json:"payment_method"`
}

// FiscalPatient carries the patient identity the authority requires
type FiscalPatient struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	FiscalCode string `json:"fiscal_code"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Province   string `json:"province"`
}

// FiscalSubmissionRow is a single billed line in the submission payload
type FiscalSubmissionRow struct {
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

// SubmissionResult is the authority's acknowledgement of a submission
type SubmissionResult struct {
	FiscalID    string
	Status      FiscalStatus
	SubmittedAt time.Time
}

// FiscalGateway is the port to the external fiscal-authority API.
// Implementations authenticate with configured service credentials and
// deliver submission payloads; a fake implementation stands in for tests.
type FiscalGateway interface {
	// Authenticate obtains an access token from the authority's identity
	// endpoint. Missing credentials fail with ErrFiscalNotConfigured
	// before any remote call; a remote rejection fails with
	// ErrFiscalAuthRejected.
	Authenticate(ctx context.Context) (string, error)
	// Submit delivers the payload using the given access token
	Submit(ctx context.Context, token string, payload FiscalSubmission) (*SubmissionResult, error)
}
