package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medpractice/backend/internal/domain/patient"
	"github.com/medpractice/backend/internal/interfaces/http/dto"
)

// PatientHandler handles patient HTTP requests
type PatientHandler struct {
	BaseHandler
	patientRepo patient.PatientRepository
}

// NewPatientHandler creates a new PatientHandler
func NewPatientHandler(patientRepo patient.PatientRepository) *PatientHandler {
	return &PatientHandler{patientRepo: patientRepo}
}

// Get handles GET /api/v1/patients/:id
func (h *PatientHandler) Get(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.ValidationError(c, err)
		return
	}
	id := uuid.MustParse(idReq.ID)

	p, err := h.patientRepo.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, p)
}

// Lookup handles GET /api/v1/patients?fiscal_code=...
func (h *PatientHandler) Lookup(c *gin.Context) {
	var req dto.LookupPatientRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	p, err := h.patientRepo.FindByFiscalCode(c.Request.Context(), strings.ToUpper(req.FiscalCode))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, p)
}
