package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appbilling "github.com/medpractice/backend/internal/application/billing"
	"github.com/medpractice/backend/internal/domain/billing"
	"github.com/medpractice/backend/internal/domain/shared"
	"github.com/medpractice/backend/internal/interfaces/http/dto"
)

// DocumentHandler handles billing document HTTP requests
type DocumentHandler struct {
	BaseHandler
	documentService   *appbilling.DocumentService
	conversionService *appbilling.ConversionService
	fiscalService     *appbilling.FiscalService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(
	documentService *appbilling.DocumentService,
	conversionService *appbilling.ConversionService,
	fiscalService *appbilling.FiscalService,
) *DocumentHandler {
	return &DocumentHandler{
		documentService:   documentService,
		conversionService: conversionService,
		fiscalService:     fiscalService,
	}
}

// Create handles POST /api/v1/billing/documents
func (h *DocumentHandler) Create(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	appReq, err := toCreateRequest(req)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	doc, err := h.documentService.Create(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, doc)
}

// Get handles GET /api/v1/billing/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.ValidationError(c, err)
		return
	}
	id := uuid.MustParse(idReq.ID)

	doc, err := h.documentService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, doc)
}

// List handles GET /api/v1/billing/documents
func (h *DocumentHandler) List(c *gin.Context) {
	var req dto.ListDocumentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	if req.Number != "" {
		doc, err := h.documentService.GetByNumber(c.Request.Context(), req.Number)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				h.SuccessWithMeta(c, []appbilling.DocumentResponse{}, 0, 1, 20)
				return
			}
			h.HandleDomainError(c, err)
			return
		}
		h.SuccessWithMeta(c, []appbilling.DocumentResponse{*doc}, 1, 1, 20)
		return
	}

	filter := appbilling.DocumentListFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	}
	if req.Type != "" {
		docType := billing.DocumentType(req.Type)
		filter.Type = &docType
	}
	if req.Status != "" {
		filter.Status = &req.Status
	}
	if req.PatientID != "" {
		patientID := uuid.MustParse(req.PatientID)
		filter.PatientID = &patientID
	}
	if req.Year != 0 {
		filter.Year = &req.Year
	}

	docs, total, err := h.documentService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	h.SuccessWithMeta(c, docs, total, page, pageSize)
}

// Convert handles POST /api/v1/billing/documents/:id/convert
func (h *DocumentHandler) Convert(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.ValidationError(c, err)
		return
	}
	sourceID := uuid.MustParse(idReq.ID)

	var req dto.ConvertDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.conversionService.Convert(
		c.Request.Context(),
		getUserID(c),
		sourceID,
		billing.DocumentType(req.TipoDestinazione),
	)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, dto.ConvertDocumentResponse{
		FatturaID: result.DocumentID.String(),
		Numero:    result.Number,
		Message:   "Documento convertito con successo",
	})
}

// SendToSDI handles POST /api/v1/billing/documents/:id/send-to-sdi
func (h *DocumentHandler) SendToSDI(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.ValidationError(c, err)
		return
	}
	documentID := uuid.MustParse(idReq.ID)

	result, err := h.fiscalService.Submit(c.Request.Context(), documentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, dto.SendToSDIResponse{
		ACubeID: result.FiscalID,
		Status:  result.Status.String(),
		Message: "Fattura inviata con successo",
	})
}

// UpdateStatus handles PATCH /api/v1/billing/documents/:id/status
func (h *DocumentHandler) UpdateStatus(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.ValidationError(c, err)
		return
	}
	id := uuid.MustParse(idReq.ID)

	var req dto.UpdateDocumentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	doc, err := h.documentService.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, doc)
}

// toCreateRequest maps the wire create request onto the application request
func toCreateRequest(req dto.CreateDocumentRequest) (appbilling.CreateDocumentRequest, error) {
	appReq := appbilling.CreateDocumentRequest{
		Type:          billing.DocumentType(req.Type),
		PatientID:     uuid.MustParse(req.PatientID),
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		VirtualStamp:  req.VirtualStamp,
	}

	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return appReq, err
		}
		appReq.Date = &date
	}

	var err error
	if appReq.WelfareFundRate, err = parseDecimalOrZero(req.WelfareFundRate); err != nil {
		return appReq, err
	}
	if appReq.WithholdingTaxRate, err = parseDecimalOrZero(req.WithholdingTaxRate); err != nil {
		return appReq, err
	}
	if appReq.SupplementaryContribution, err = parseDecimalOrZero(req.SupplementaryContribution); err != nil {
		return appReq, err
	}

	for _, line := range req.Lines {
		appLine := appbilling.CreateDocumentLineInput{
			Description: line.Description,
		}
		if line.ServiceID != "" {
			serviceID := uuid.MustParse(line.ServiceID)
			appLine.ServiceID = &serviceID
		}
		if appLine.Quantity, err = parseDecimalOrZero(line.Quantity); err != nil {
			return appReq, err
		}
		if appLine.UnitPrice, err = parseDecimalOrZero(line.UnitPrice); err != nil {
			return appReq, err
		}
		if appLine.Discount, err = parseDecimalOrZero(line.Discount); err != nil {
			return appReq, err
		}
		if appLine.TaxRate, err = parseDecimalOrZero(line.TaxRate); err != nil {
			return appReq, err
		}
		appReq.Lines = append(appReq.Lines, appLine)
	}

	return appReq, nil
}

// parseDecimalOrZero parses a string-encoded decimal, treating "" as zero
func parseDecimalOrZero(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
