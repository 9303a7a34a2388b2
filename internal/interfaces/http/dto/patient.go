package dto

// LookupPatientRequest queries a patient by Italian tax code
type LookupPatientRequest struct {
	FiscalCode string `form:"fiscal_code" binding:"required,codice_fiscale"`
}
