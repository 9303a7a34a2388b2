package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appbilling "github.com/medpractice/backend/internal/application/billing"
	"github.com/medpractice/backend/internal/domain/billing"
	"github.com/medpractice/backend/internal/domain/patient"
	"github.com/medpractice/backend/internal/domain/shared"
	"github.com/medpractice/backend/internal/infrastructure/auth"
	"github.com/medpractice/backend/internal/infrastructure/config"
	"github.com/medpractice/backend/internal/interfaces/http/dto"
	"github.com/medpractice/backend/internal/interfaces/http/handler"
	"github.com/medpractice/backend/internal/interfaces/http/middleware"
	"github.com/medpractice/backend/internal/interfaces/http/router"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// stubDocumentRepo is an in-memory billing.DocumentRepository
type stubDocumentRepo struct {
	docs    map[uuid.UUID]*billing.Document
	nextSeq int
}

func newStubDocumentRepo() *stubDocumentRepo {
	return &stubDocumentRepo{docs: make(map[uuid.UUID]*billing.Document)}
}

func (r *stubDocumentRepo) add(doc *billing.Document) {
	r.docs[doc.ID] = doc
}

func (r *stubDocumentRepo) FindByID(ctx context.Context, id uuid.UUID) (*billing.Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return doc, nil
}

func (r *stubDocumentRepo) FindByNumber(ctx context.Context, number string) (*billing.Document, error) {
	for _, doc := range r.docs {
		if doc.Number == number {
			return doc, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *stubDocumentRepo) FindAll(ctx context.Context, filter shared.Filter) ([]billing.Document, error) {
	docs := make([]billing.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		docs = append(docs, *doc)
	}
	return docs, nil
}

func (r *stubDocumentRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	return int64(len(r.docs)), nil
}

func (r *stubDocumentRepo) Save(ctx context.Context, doc *billing.Document) error {
	r.docs[doc.ID] = doc
	return nil
}

func (r *stubDocumentRepo) Update(ctx context.Context, doc *billing.Document) error {
	if _, ok := r.docs[doc.ID]; !ok {
		return shared.ErrNotFound
	}
	r.docs[doc.ID] = doc
	return nil
}

func (r *stubDocumentRepo) SetConvertedTo(ctx context.Context, sourceID, targetID uuid.UUID) error {
	doc, ok := r.docs[sourceID]
	if !ok {
		return shared.ErrNotFound
	}
	doc.ConvertedToID = &targetID
	return nil
}

func (r *stubDocumentRepo) NextDocumentNumber(ctx context.Context, year int) (string, error) {
	r.nextSeq++
	return fmt.Sprintf("%d/%03d", year, r.nextSeq), nil
}

// stubPatientRepo is an in-memory patient.PatientRepository
type stubPatientRepo struct {
	patients map[uuid.UUID]*patient.Patient
}

func newStubPatientRepo() *stubPatientRepo {
	return &stubPatientRepo{patients: make(map[uuid.UUID]*patient.Patient)}
}

func (r *stubPatientRepo) FindByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (r *stubPatientRepo) FindByFiscalCode(ctx context.Context, fiscalCode string) (*patient.Patient, error) {
	for _, p := range r.patients {
		if p.FiscalCode == fiscalCode {
			return p, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *stubPatientRepo) Save(ctx context.Context, p *patient.Patient) error {
	r.patients[p.ID] = p
	return nil
}

// stubFiscalGateway acknowledges every submission
type stubFiscalGateway struct {
	submissions []billing.FiscalSubmission
}

func (g *stubFiscalGateway) Authenticate(ctx context.Context) (string, error) {
	return "tok-test", nil
}

func (g *stubFiscalGateway) Submit(ctx context.Context, token string, payload billing.FiscalSubmission) (*billing.SubmissionResult, error) {
	g.submissions = append(g.submissions, payload)
	return &billing.SubmissionResult{
		FiscalID:    "ac-8891",
		Status:      billing.FiscalStatusSent,
		SubmittedAt: time.Now(),
	}, nil
}

type testEnv struct {
	engine      *gin.Engine
	docRepo     *stubDocumentRepo
	patientRepo *stubPatientRepo
	gateway     *stubFiscalGateway
	token       string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	docRepo := newStubDocumentRepo()
	patientRepo := newStubPatientRepo()
	gateway := &stubFiscalGateway{}

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-for-unit-tests",
		AccessTokenExpiration: time.Hour,
		Issuer:                "medpractice-test",
	})
	token, _, err := jwtService.GenerateAccessToken(auth.GenerateTokenInput{
		UserID:   uuid.New(),
		Username: "dr.rossi",
	})
	require.NoError(t, err)

	documentService := appbilling.NewDocumentService(docRepo)
	conversionService := appbilling.NewConversionService(docRepo, nil)
	fiscalService := appbilling.NewFiscalService(docRepo, patientRepo, gateway, nil)

	engine := gin.New()
	router.Setup(engine, router.Config{
		JWTService:      jwtService,
		DocumentHandler: handler.NewDocumentHandler(documentService, conversionService, fiscalService),
		PatientHandler:  handler.NewPatientHandler(patientRepo),
		SystemHandler:   handler.NewSystemHandler(nil),
	})

	return &testEnv{
		engine:      engine,
		docRepo:     docRepo,
		patientRepo: patientRepo,
		gateway:     gateway,
		token:       token,
	}
}

func (e *testEnv) request(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var resp dto.Response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	}
	return w, resp
}

func addQuote(t *testing.T, env *testEnv) *billing.Document {
	t.Helper()
	doc, err := billing.NewDocument("2026/001", billing.DocumentTypeQuote, uuid.New(), time.Now())
	require.NoError(t, err)
	_, err = doc.AddLine(nil, "Visita specialistica",
		decimal.NewFromInt(1), decimal.RequireFromString("120.00"), decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	env.docRepo.add(doc)
	env.docRepo.nextSeq = 1
	return doc
}

func TestDocumentConvertEndpoint(t *testing.T) {
	convertBody := `{"tipo_destinazione":"fattura_sanitaria"}`

	t.Run("converts a quote into an invoice", func(t *testing.T) {
		env := newTestEnv(t)
		source := addQuote(t, env)

		w, resp := env.request(t, http.MethodPost,
			"/api/v1/billing/documents/"+source.ID.String()+"/convert", env.token, convertBody)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.True(t, resp.Success)

		data := resp.Data.(map[string]interface{})
		assert.NotEmpty(t, data["fattura_id"])
		assert.Equal(t, "Documento convertito con successo", data["message"])

		numero := data["numero"].(string)
		assert.Regexp(t, `^\d{4}/\d{3,}$`, numero)

		// source carries the forward link, target the back-link
		targetID := uuid.MustParse(data["fattura_id"].(string))
		target := env.docRepo.docs[targetID]
		require.NotNil(t, target)
		assert.Equal(t, billing.DocumentTypeHealthcareInvoice, target.Type)
		require.NotNil(t, target.ConvertedFromID)
		assert.Equal(t, source.ID, *target.ConvertedFromID)
		require.NotNil(t, source.ConvertedToID)
		assert.Equal(t, targetID, *source.ConvertedToID)
	})

	t.Run("anonymous conversion of a convertible document is unauthorized", func(t *testing.T) {
		env := newTestEnv(t)
		source := addQuote(t, env)

		w, resp := env.request(t, http.MethodPost,
			"/api/v1/billing/documents/"+source.ID.String()+"/convert", "", convertBody)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeUnauthorized, resp.Error.Code)
	})

	t.Run("missing document wins over missing auth", func(t *testing.T) {
		env := newTestEnv(t)

		w, resp := env.request(t, http.MethodPost,
			"/api/v1/billing/documents/"+uuid.NewString()+"/convert", "", convertBody)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	})

	t.Run("invoice source is an invalid state", func(t *testing.T) {
		env := newTestEnv(t)
		doc, err := billing.NewDocument("2026/001", billing.DocumentTypeHealthcareInvoice, uuid.New(), time.Now())
		require.NoError(t, err)
		env.docRepo.add(doc)

		w, resp := env.request(t, http.MethodPost,
			"/api/v1/billing/documents/"+doc.ID.String()+"/convert", env.token, convertBody)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidState, resp.Error.Code)
	})

	t.Run("second conversion of the same source is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		source := addQuote(t, env)

		w, _ := env.request(t, http.MethodPost,
			"/api/v1/billing/documents/"+source.ID.String()+"/convert", env.token, convertBody)
		require.Equal(t, http.StatusOK, w.Code)

		w, resp := env.request(t, http.MethodPost,
			"/api/v1/billing/documents/"+source.ID.String()+"/convert", env.token, convertBody)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidState, resp.Error.Code)
	})

	t.Run("missing target type fails validation", func(t *testing.T) {
		env := newTestEnv(t)
		source := addQuote(t, env)

		w, resp := env.request(t, http.MethodPost,
			"/api/v1/billing/documents/"+source.ID.String()+"/convert", env.token, `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	})
}

func TestDocumentSendToSDIEndpoint(t *testing.T) {
	newInvoiceEnv := func(t *testing.T) (*testEnv, *billing.Document) {
		env := newTestEnv(t)

		pat, err := patient.NewPatient("Maria", "Rossi", "RSSMRA80A41H501X")
		require.NoError(t, err)
		env.patientRepo.patients[pat.ID] = pat

		doc, err := billing.NewDocument("2026/001", billing.DocumentTypeHealthcareInvoice, pat.ID, time.Now())
		require.NoError(t, err)
		env.docRepo.add(doc)
		return env, doc
	}

	t.Run("submits a healthcare invoice", func(t *testing.T) {
		env, doc := newInvoiceEnv(t)

		w, resp := env.request(t, http.MethodPost,
			"/api/v1/billing/documents/"+doc.ID.String()+"/send-to-sdi", env.token, "")

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "ac-8891", data["acube_id"])
		assert.Equal(t, "inviata", data["status"])
		assert.Equal(t, "Fattura inviata con successo", data["message"])

		require.Len(t, env.gateway.submissions, 1)
		assert.Equal(t, "2026/001", env.gateway.submissions[0].DocumentNumber)
		assert.Equal(t, "RSSMRA80A41H501X", env.gateway.submissions[0].Patient.FiscalCode)

		assert.True(t, doc.SentToFiscalAuthority)
		require.NotNil(t, doc.FiscalID)
		assert.Equal(t, "ac-8891", *doc.FiscalID)
	})

	t.Run("requires authentication", func(t *testing.T) {
		env, doc := newInvoiceEnv(t)

		w, _ := env.request(t, http.MethodPost,
			"/api/v1/billing/documents/"+doc.ID.String()+"/send-to-sdi", "", "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, env.gateway.submissions)
	})

	t.Run("quote is not eligible", func(t *testing.T) {
		env := newTestEnv(t)
		source := addQuote(t, env)

		w, resp := env.request(t, http.MethodPost,
			"/api/v1/billing/documents/"+source.ID.String()+"/send-to-sdi", env.token, "")

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidState, resp.Error.Code)
	})
}

func TestDocumentGetEndpoint(t *testing.T) {
	t.Run("returns the document with its lines", func(t *testing.T) {
		env := newTestEnv(t)
		doc := addQuote(t, env)

		w, resp := env.request(t, http.MethodGet,
			"/api/v1/billing/documents/"+doc.ID.String(), env.token, "")

		require.Equal(t, http.StatusOK, w.Code)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "2026/001", data["number"])
		assert.Len(t, data["lines"], 1)
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		env := newTestEnv(t)

		w, resp := env.request(t, http.MethodGet,
			"/api/v1/billing/documents/"+uuid.NewString(), env.token, "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	})

	t.Run("malformed id fails validation", func(t *testing.T) {
		env := newTestEnv(t)

		w, _ := env.request(t, http.MethodGet,
			"/api/v1/billing/documents/not-a-uuid", env.token, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDocumentListByNumberEndpoint(t *testing.T) {
	t.Run("exact number match returns a single-element page", func(t *testing.T) {
		env := newTestEnv(t)
		doc := addQuote(t, env)

		w, resp := env.request(t, http.MethodGet,
			"/api/v1/billing/documents?number=2026/001", env.token, "")

		require.Equal(t, http.StatusOK, w.Code)
		docs := resp.Data.([]interface{})
		require.Len(t, docs, 1)
		first := docs[0].(map[string]interface{})
		assert.Equal(t, doc.ID.String(), first["id"])
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(1), resp.Meta.Total)
	})

	t.Run("unknown number yields an empty page, not an error", func(t *testing.T) {
		env := newTestEnv(t)
		addQuote(t, env)

		w, resp := env.request(t, http.MethodGet,
			"/api/v1/billing/documents?number=2026/999", env.token, "")

		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(0), resp.Meta.Total)
	})
}

func TestPatientLookupEndpoint(t *testing.T) {
	addPatient := func(t *testing.T, env *testEnv) *patient.Patient {
		t.Helper()
		p, err := patient.NewPatient("Maria", "Rossi", "RSSMRA80A41H501X")
		require.NoError(t, err)
		require.NoError(t, env.patientRepo.Save(context.Background(), p))
		return p
	}

	t.Run("finds a patient by tax code", func(t *testing.T) {
		env := newTestEnv(t)
		p := addPatient(t, env)

		w, resp := env.request(t, http.MethodGet,
			"/api/v1/patients?fiscal_code=RSSMRA80A41H501X", env.token, "")

		require.Equal(t, http.StatusOK, w.Code)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, p.FiscalCode, data["fiscal_code"])
		assert.Equal(t, "Maria", data["first_name"])
	})

	t.Run("lowercase input still matches", func(t *testing.T) {
		env := newTestEnv(t)
		addPatient(t, env)

		w, _ := env.request(t, http.MethodGet,
			"/api/v1/patients?fiscal_code=rssmra80a41h501x", env.token, "")

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown tax code is 404", func(t *testing.T) {
		env := newTestEnv(t)

		w, resp := env.request(t, http.MethodGet,
			"/api/v1/patients?fiscal_code=VRDLGI75C22F205Z", env.token, "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	})

	t.Run("malformed tax code fails validation", func(t *testing.T) {
		env := newTestEnv(t)

		w, _ := env.request(t, http.MethodGet,
			"/api/v1/patients?fiscal_code=not-a-tax-code", env.token, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
