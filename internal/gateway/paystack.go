package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.paystack.co"

// GatewayError is returned when the payment provider cannot be reached or
// responds with an error. It is never shown verbatim to API callers.
type GatewayError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("paystack %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("paystack %s: status=%d message=%s", e.Op, e.StatusCode, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Client is the interface the payment service uses to reach the provider.
type Client interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
	VerifySignature(body []byte, signature string) bool
}

// InitializeRequest contains the parameters for starting a checkout session.
type InitializeRequest struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"` // minor units (kobo for NGN)
	Reference   string         `json:"reference"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// InitializeResponse is the provider's answer to a checkout initialization.
type InitializeResponse struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
	Raw              json.RawMessage
}

// VerifyResult is the outcome of a transaction verification call.
type VerifyResult struct {
	Success bool
	Raw     json.RawMessage
}

// PaystackClient talks to the Paystack HTTP API. Construct it explicitly and
// pass it where needed; there is no package-level client.
type PaystackClient struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// Option configures a PaystackClient.
type Option func(*PaystackClient)

// WithBaseURL overrides the API base URL. Used by tests.
func WithBaseURL(url string) Option {
	return func(c *PaystackClient) { c.baseURL = url }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *PaystackClient) { c.httpClient = hc }
}

// NewPaystackClient creates a Paystack API client.
func NewPaystackClient(secretKey string, opts ...Option) *PaystackClient {
	c := &PaystackClient{
		secretKey:  secretKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the common Paystack response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize starts a checkout session and returns the authorization URL the
// payer is redirected to.
func (c *PaystackClient) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &GatewayError{Op: "initialize", Err: err}
	}

	raw, err := c.post(ctx, "/transaction/initialize", body)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &GatewayError{Op: "initialize", Err: fmt.Errorf("malformed response: %w", err)}
	}
	if !env.Status {
		return nil, &GatewayError{Op: "initialize", StatusCode: http.StatusOK, Message: env.Message}
	}

	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, &GatewayError{Op: "initialize", Err: fmt.Errorf("malformed response data: %w", err)}
	}

	return &InitializeResponse{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
		Raw:              raw,
	}, nil
}

// Verify checks a transaction's state directly with the provider. Used as a
// fallback when no webhook arrives within the expected window.
func (c *PaystackClient) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, &GatewayError{Op: "verify", Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{Op: "verify", Err: err}
	}
	defer resp.Body.Close()

	raw, env, err := decodeEnvelope(resp)
	if err != nil {
		return nil, &GatewayError{Op: "verify", StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK || !env.Status {
		return &VerifyResult{Success: false, Raw: raw}, nil
	}

	var data struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return &VerifyResult{Success: false, Raw: raw}, nil
	}

	return &VerifyResult{
		Success: data.Status == "success" && data.Reference == reference,
		Raw:     raw,
	}, nil
}

// VerifySignature checks the webhook signature header against an HMAC-SHA512
// of the raw request body keyed by the secret. Returns false on any mismatch
// or missing input; it never fails in a way that could be mistaken for valid.
func (c *PaystackClient) VerifySignature(body []byte, signature string) bool {
	if c.secretKey == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(body)
	computed := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(computed), []byte(signature))
}

func (c *PaystackClient) post(ctx context.Context, path string, body []byte) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &GatewayError{Op: "initialize", Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{Op: "initialize", Err: err}
	}
	defer resp.Body.Close()

	raw, env, err := decodeEnvelope(resp)
	if err != nil {
		return nil, &GatewayError{Op: "initialize", StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &GatewayError{Op: "initialize", StatusCode: resp.StatusCode, Message: env.Message}
	}
	return raw, nil
}

func decodeEnvelope(resp *http.Response) (json.RawMessage, *envelope, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, nil, err
	}
	raw := json.RawMessage(buf.Bytes())

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return raw, nil, fmt.Errorf("malformed response: %w", err)
	}
	return raw, &env, nil
}

// Ensure the concrete client satisfies the interface.
var _ Client = (*PaystackClient)(nil)
