package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/medpractice/backend/internal/domain/patient"
	"github.com/medpractice/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormPatientRepository implements patient.PatientRepository using GORM
type GormPatientRepository struct {
	db *gorm.DB
}

// NewGormPatientRepository creates a new GormPatientRepository
func NewGormPatientRepository(db *gorm.DB) *GormPatientRepository {
	return &GormPatientRepository{db: db}
}

// FindByID finds a patient by ID
func (r *GormPatientRepository) FindByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var p patient.Patient
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindByFiscalCode finds a patient by their codice fiscale
func (r *GormPatientRepository) FindByFiscalCode(ctx context.Context, fiscalCode string) (*patient.Patient, error) {
	var p patient.Patient
	if err := r.db.WithContext(ctx).Where("fiscal_code = ?", fiscalCode).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Save inserts or updates a patient
func (r *GormPatientRepository) Save(ctx context.Context, p *patient.Patient) error {
	if err := r.db.WithContext(ctx).Save(p).Error; err != nil {
		return translatePgError(err)
	}
	return nil
}
