package dto

// CreateDocumentRequest is the wire shape for creating a billing document
type CreateDocumentRequest struct {
	Type                      string                      `json:"type" binding:"required"`
	PatientID                 string                      `json:"patient_id" binding:"required,uuid"`
	Date                      string                      `json:"date" binding:"omitempty,datetime=2006-01-02"`
	PaymentMethod             string                      `json:"payment_method"`
	Notes                     string                      `json:"notes"`
	WelfareFundRate           string                      `json:"welfare_fund_rate" binding:"omitempty,decimal"`
	WithholdingTaxRate        string                      `json:"withholding_tax_rate" binding:"omitempty,decimal"`
	SupplementaryContribution string                      `json:"supplementary_contribution" binding:"omitempty,decimal"`
	VirtualStamp              bool                        `json:"virtual_stamp"`
	Lines                     []CreateDocumentLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// CreateDocumentLineRequest is a line item in the create request
type CreateDocumentLineRequest struct {
	ServiceID   string `json:"service_id" binding:"omitempty,uuid"`
	Description string `json:"description" binding:"required"`
	Quantity    string `json:"quantity" binding:"required,decimal"`
	UnitPrice   string `json:"unit_price" binding:"required,decimal"`
	Discount    string `json:"discount" binding:"omitempty,decimal"`
	TaxRate     string `json:"tax_rate" binding:"omitempty,decimal"`
}

// ListDocumentsRequest is the wire shape for the document list query
type ListDocumentsRequest struct {
	ListRequest
	Number    string `form:"number"`
	Type      string `form:"type"`
	Status    string `form:"status"`
	PatientID string `form:"patient_id" binding:"omitempty,uuid"`
	Year      int    `form:"year" binding:"omitempty,min=2000,max=2200"`
}

// ConvertDocumentRequest carries the target type of a conversion.
// Field names follow the Italian wire contract of the billing frontend.
type ConvertDocumentRequest struct {
	TipoDestinazione string `json:"tipo_destinazione" binding:"required"`
}

// ConvertDocumentResponse is the acknowledgement of a conversion
type ConvertDocumentResponse struct {
	FatturaID string `json:"fattura_id"`
	Numero    string `json:"numero"`
	Message   string `json:"message"`
}

// SendToSDIResponse is the acknowledgement of a fiscal-authority submission
type SendToSDIResponse struct {
	ACubeID string `json:"acube_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// UpdateDocumentStatusRequest is the wire shape for a workflow label update
type UpdateDocumentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
