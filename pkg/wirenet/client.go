package wirenet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"github.com/yawasante/databundles-backend/pkg/config"
	"github.com/yawasante/databundles-backend/pkg/logger"
)

var (
	errAPIKeyRequired = errors.New("wirenet api key is required")
	errLoggerRequired = errors.New("wirenet logger is required")
)

// Client talks to the wholesale data supplier.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	logger     *logger.Logger
}

// NewClient initializes the supplier wrapper and validates the credentials.
func NewClient(cfg config.WireNetConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://wirenet.top/api/v1"
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		apiKey:     apiKey,
		baseURL:    baseURL,
		logger:     logg,
	}, nil
}

type supplierEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

// PlaceOrder submits one bundle purchase to the supplier. Rejections come
// back as *SupplierError; transport failures are returned as-is.
func (c *Client) PlaceOrder(ctx context.Context, params OrderParams) (*OrderResult, error) {
	serviceID, err := ServiceID(params.ServiceType)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.PhoneNumber) == "" {
		return nil, fmt.Errorf("phone number is required")
	}
	if strings.TrimSpace(params.PackageID) == "" {
		return nil, fmt.Errorf("package id is required")
	}

	payload := map[string]any{
		"service_id":   serviceID,
		"package_id":   params.PackageID,
		"phone_number": params.PhoneNumber,
		"request_id":   params.RequestID,
	}

	c.log(ctx, "request", "place_order", map[string]any{
		"service_id": serviceID,
		"package_id": params.PackageID,
		"request_id": params.RequestID,
	})

	env, status, err := c.do(ctx, http.MethodPost, "/orders", payload)
	if err != nil {
		c.log(ctx, "error", "place_order", map[string]any{"error": err.Error()})
		return nil, err
	}
	if status >= 400 || !env.Success {
		supplierErr := classifyRejection(env)
		c.log(ctx, "error", "place_order", map[string]any{"error": supplierErr.Error()})
		return nil, supplierErr
	}

	var result OrderResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return nil, fmt.Errorf("decoding supplier order response: %w", err)
	}

	c.log(ctx, "response", "place_order", map[string]any{
		"reference": result.Reference,
		"status":    result.Status,
	})
	return &result, nil
}

// Balance fetches the wholesale wallet balance. Any failure means the
// balance is unknown; callers must not treat an error as zero.
func (c *Client) Balance(ctx context.Context) (*BalanceResult, error) {
	env, status, err := c.do(ctx, http.MethodGet, "/balance", nil)
	if err != nil {
		return nil, err
	}
	if status >= 400 || !env.Success {
		return nil, &SupplierError{Message: env.Message}
	}

	var result BalanceResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return nil, fmt.Errorf("decoding supplier balance: %w", err)
	}
	return &result, nil
}

// ListCatalog returns a lazy iterator over the supplier's package catalog.
// Each range re-fetches from the supplier, so the sequence is restartable.
// The supplier has shipped both a flat list and a map keyed by service
// family; both shapes normalize to CatalogItem.
func (c *Client) ListCatalog(ctx context.Context) iter.Seq2[CatalogItem, error] {
	return func(yield func(CatalogItem, error) bool) {
		env, status, err := c.do(ctx, http.MethodGet, "/packages", nil)
		if err != nil {
			yield(CatalogItem{}, err)
			return
		}
		if status >= 400 || !env.Success {
			yield(CatalogItem{}, &SupplierError{Message: env.Message})
			return
		}

		items, err := normalizeCatalog(env.Data)
		if err != nil {
			yield(CatalogItem{}, err)
			return
		}
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

func normalizeCatalog(raw json.RawMessage) ([]CatalogItem, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var flat []CatalogItem
		if err := json.Unmarshal(trimmed, &flat); err != nil {
			return nil, fmt.Errorf("decoding supplier catalog: %w", err)
		}
		return flat, nil
	}

	var byFamily map[string][]CatalogItem
	if err := json.Unmarshal(trimmed, &byFamily); err != nil {
		return nil, fmt.Errorf("decoding supplier catalog: %w", err)
	}
	var items []CatalogItem
	for family, entries := range byFamily {
		for _, entry := range entries {
			if entry.ServiceID == "" {
				entry.ServiceID = family
			}
			items = append(items, entry)
		}
	}
	return items, nil
}

func classifyRejection(env *supplierEnvelope) *SupplierError {
	message := env.Message
	if message == "" {
		message = "order rejected"
	}
	insufficient := strings.EqualFold(env.Code, "INSUFFICIENT_BALANCE") ||
		strings.Contains(strings.ToLower(message), "insufficient balance")
	return &SupplierError{Message: message, InsufficientBalance: insufficient}
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*supplierEnvelope, int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("encoding supplier request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("building supplier request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("calling supplier: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading supplier response: %w", err)
	}

	var env supplierEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decoding supplier response: %w", err)
	}
	return &env, resp.StatusCode, nil
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
		c.logger.Error(ctx, fmt.Sprintf("wirenet %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("wirenet %s", phase))
	}
}
