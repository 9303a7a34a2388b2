package patient

import (
	"context"

	"github.com/google/uuid"
)

// PatientRepository defines persistence operations for patients
type PatientRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	FindByFiscalCode(ctx context.Context, fiscalCode string) (*Patient, error)
	Save(ctx context.Context, p *Patient) error
}
