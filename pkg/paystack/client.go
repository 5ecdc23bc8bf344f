package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/yawasante/databundles-backend/pkg/config"
	pkgerrors "github.com/yawasante/databundles-backend/pkg/errors"
	"github.com/yawasante/databundles-backend/pkg/logger"
)

// subunitFactor converts major currency units to the gateway's subunits (pesewas).
const subunitFactor = 100

var (
	errSecretKeyRequired = errors.New("paystack secret key is required")
	errLoggerRequired    = errors.New("paystack logger is required")
)

// Client exposes the payment gateway primitives with centralized auth, logging, and error mapping.
type Client struct {
	httpClient *http.Client
	secretKey  string
	baseURL    string
	logger     *logger.Logger
}

// NewClient initializes the gateway wrapper and validates the credentials.
func NewClient(cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		secretKey:  secretKey,
		baseURL:    baseURL,
		logger:     logg,
	}, nil
}

// envelope is the standard response wrapper used by the gateway on every endpoint.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize creates a checkout session for the given reference. Amount is in
// major units and converted to subunits on the wire.
func (c *Client) Initialize(ctx context.Context, params InitializeParams) (*InitializeResult, error) {
	if err := params.validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid checkout parameters")
	}

	payload := map[string]any{
		"email":     params.Email,
		"amount":    params.Amount.Mul(subunitFactorDecimal()).IntPart(),
		"reference": params.Reference,
		"currency":  "GHS",
	}
	if params.CallbackURL != "" {
		payload["callback_url"] = params.CallbackURL
	}
	if len(params.Metadata) > 0 {
		payload["metadata"] = params.Metadata
	}

	c.log(ctx, "request", "initialize_transaction", map[string]any{"reference": params.Reference})

	var result InitializeResult
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", payload, &result); err != nil {
		c.log(ctx, "error", "initialize_transaction", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "initialize_transaction", map[string]any{"reference": result.Reference})
	return &result, nil
}

// Verify fetches the settled state of a transaction by reference.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	c.log(ctx, "request", "verify_transaction", map[string]any{"reference": reference})

	var result VerifyResult
	path := "/transaction/verify/" + reference
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		c.log(ctx, "error", "verify_transaction", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "verify_transaction", map[string]any{
		"reference": result.Reference,
		"status":    result.Status,
	})
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding gateway request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building gateway request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "calling payment gateway")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "reading gateway response")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decoding gateway response")
	}

	if resp.StatusCode >= 400 || !env.Status {
		code := domainCodeForStatus(resp.StatusCode)
		return pkgerrors.New(code, fmt.Sprintf("gateway rejected request: %s", env.Message))
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decoding gateway payload")
		}
	}
	return nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("paystack %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("paystack %s", phase))
	}
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return pkgerrors.CodeUnauthorized
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status >= 400 && status < 500:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeGateway
	}
}
