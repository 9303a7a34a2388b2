package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/medpractice/backend/internal/domain/billing"
	"github.com/medpractice/backend/internal/domain/shared"
)

func TestDocumentServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("allocates a number for the document year and saves atomically", func(t *testing.T) {
		repo := new(MockDocumentRepository)
		service := NewDocumentService(repo)

		date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
		repo.On("NextDocumentNumber", ctx, 2026).Return("2026/014", nil)
		repo.On("Save", ctx, mock.AnythingOfType("*billing.Document")).Return(nil)

		resp, err := service.Create(ctx, CreateDocumentRequest{
			Type:      billing.DocumentTypeHealthcareInvoice,
			PatientID: uuid.New(),
			Date:      &date,
			Lines: []CreateDocumentLineInput{
				{Description: "Visita", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
				{Description: "Ecografia", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(80)},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "2026/014", resp.Number)
		assert.True(t, resp.TotalAmount.Equal(decimal.NewFromInt(180)))
		assert.Len(t, resp.Lines, 2)
		repo.AssertNumberOfCalls(t, "Save", 1)
	})

	t.Run("invalid line aborts before saving", func(t *testing.T) {
		repo := new(MockDocumentRepository)
		service := NewDocumentService(repo)

		repo.On("NextDocumentNumber", ctx, mock.AnythingOfType("int")).Return("2026/015", nil)

		_, err := service.Create(ctx, CreateDocumentRequest{
			Type:      billing.DocumentTypeQuote,
			PatientID: uuid.New(),
			Lines: []CreateDocumentLineInput{
				{Description: "", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)},
			},
		})
		require.Error(t, err)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestDocumentServiceGetByNumber(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the document carrying that number", func(t *testing.T) {
		repo := new(MockDocumentRepository)
		service := NewDocumentService(repo)

		doc, err := billing.NewDocument("2026/042", billing.DocumentTypeHealthcareInvoice, uuid.New(), time.Now())
		require.NoError(t, err)
		repo.On("FindByNumber", ctx, "2026/042").Return(doc, nil)

		resp, err := service.GetByNumber(ctx, "2026/042")
		require.NoError(t, err)
		assert.Equal(t, "2026/042", resp.Number)
	})

	t.Run("propagates not found", func(t *testing.T) {
		repo := new(MockDocumentRepository)
		service := NewDocumentService(repo)

		repo.On("FindByNumber", ctx, "2026/999").Return(nil, shared.ErrNotFound)

		_, err := service.GetByNumber(ctx, "2026/999")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestDocumentServiceList(t *testing.T) {
	ctx := context.Background()

	t.Run("applies defaults and maps filters", func(t *testing.T) {
		repo := new(MockDocumentRepository)
		service := NewDocumentService(repo)

		docType := billing.DocumentTypeQuote
		year := 2026

		expected := shared.Filter{
			Page:     1,
			PageSize: 20,
			OrderBy:  "created_at",
			OrderDir: "desc",
			Filters: map[string]interface{}{
				"type": string(docType),
				"year": year,
			},
		}
		repo.On("FindAll", ctx, expected).Return([]billing.Document{}, nil)
		repo.On("Count", ctx, expected).Return(int64(0), nil)

		_, total, err := service.List(ctx, DocumentListFilter{Type: &docType, Year: &year})
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
		repo.AssertExpectations(t)
	})
}

func TestDocumentServiceUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("updates the workflow label", func(t *testing.T) {
		repo := new(MockDocumentRepository)
		service := NewDocumentService(repo)

		doc, err := billing.NewDocument("2026/001", billing.DocumentTypeHealthcareInvoice, uuid.New(), time.Now())
		require.NoError(t, err)

		repo.On("FindByID", ctx, doc.ID).Return(doc, nil)
		repo.On("Update", ctx, doc).Return(nil)

		resp, err := service.UpdateStatus(ctx, doc.ID, "Paid")
		require.NoError(t, err)
		assert.Equal(t, "Paid", resp.Status)
	})

	t.Run("rejects empty status", func(t *testing.T) {
		repo := new(MockDocumentRepository)
		service := NewDocumentService(repo)

		_, err := service.UpdateStatus(ctx, uuid.New(), "")
		assert.Error(t, err)
		repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})
}
