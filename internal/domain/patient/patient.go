package patient

import (
	"time"

	"github.com/medpractice/backend/internal/domain/shared"
)

// Patient represents a patient of the practice. Billing documents reference
// patients by ID; the clinical record itself lives elsewhere.
type Patient struct {
	shared.BaseEntity
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	FiscalCode string     `json:"fiscal_code"`
	BirthDate  *time.Time `json:"birth_date"`
	Address    string     `json:"address"`
	City       string     `json:"city"`
	PostalCode string     `json:"postal_code"`
	Province   string     `json:"province"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
}

// TableName returns the table name for GORM
func (Patient) TableName() string {
	return "pazienti"
}

// NewPatient creates a new patient record
func NewPatient(firstName, lastName, fiscalCode string) (*Patient, error) {
	if firstName == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "First name cannot be empty")
	}
	if lastName == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Last name cannot be empty")
	}
	if fiscalCode == "" {
		return nil, shared.NewDomainError("INVALID_FISCAL_CODE", "Fiscal code cannot be empty")
	}

	return &Patient{
		BaseEntity: shared.NewBaseEntity(),
		FirstName:  firstName,
		LastName:   lastName,
		FiscalCode: fiscalCode,
	}, nil
}

// FullName returns the patient's display name
func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}
