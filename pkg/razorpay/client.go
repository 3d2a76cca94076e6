package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

const (
	defaultBaseURL                = "https://api.razorpay.com"
	defaultRetryAttempts          = 3
	defaultRetryBase              = 200 * time.Millisecond
	responseBodyReadLimit   int64 = 1024
	operationCreateOrder          = "create_order"
)

var (
	errKeyIDRequired     = errors.New("razorpay key id is required")
	errKeySecretRequired = errors.New("razorpay key secret is required")
)

// Client talks to the Razorpay Orders API and verifies checkout signatures.
type Client struct {
	httpClient *http.Client
	baseURL    string
	keyID      string
	keySecret  string
	signer     security.MessageSigner
	attempts   uint64
	retryBase  time.Duration
	observe    func(operation string, elapsed time.Duration)
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithRetry sets how many attempts are made for retryable failures and the
// base delay of the exponential backoff between them.
func WithRetry(attempts int, base time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = uint64(attempts)
		}
		if base > 0 {
			c.retryBase = base
		}
	}
}

// WithObserver registers a callback receiving the latency of every API operation.
func WithObserver(fn func(operation string, elapsed time.Duration)) Option {
	return func(c *Client) {
		c.observe = fn
	}
}

// NewClient builds the client from the dashboard key pair.
func NewClient(keyID, keySecret string, opts ...Option) (*Client, error) {
	keyID = strings.TrimSpace(keyID)
	keySecret = strings.TrimSpace(keySecret)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	if keySecret == "" {
		return nil, errKeySecretRequired
	}

	client := &Client{
		keyID:      keyID,
		keySecret:  keySecret,
		signer:     security.NewMessageSigner(keySecret),
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		attempts:   defaultRetryAttempts,
		retryBase:  defaultRetryBase,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// KeyID is the public key the checkout widget needs.
func (c *Client) KeyID() string {
	return c.keyID
}

// CreateOrderRequest describes a processor order. Amount is in minor units.
type CreateOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is the processor-side order created for a checkout.
type Order struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// CreateOrder registers a payable order with the processor. Network failures
// and 5xx responses are retried with exponential backoff; 4xx responses fail
// immediately.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}
	if req.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(req.Currency) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal create order request")
	}

	started := time.Now()
	defer func() {
		if c.observe != nil {
			c.observe(operationCreateOrder, time.Since(started))
		}
	}()

	var order Order
	backoff := retry.WithMaxRetries(c.attempts-1, retry.NewExponential(c.retryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, "/v1/orders", payload, &order)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create gateway order")
	}
	return &order, nil
}

// VerifySignature checks the checkout callback signature, which is the hex
// HMAC-SHA256 of "<order_id>|<payment_id>" keyed by the key secret.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	if c == nil || strings.TrimSpace(orderID) == "" || strings.TrimSpace(paymentID) == "" {
		return false
	}
	return c.signer.Verify(signature, orderID, paymentID)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, dest any) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build gateway request")
	}
	httpReq.SetBasicAuth(c.keyID, c.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway request cancelled")
		}
		return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute gateway request"))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		failure := pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "gateway request failed")
		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(failure)
		}
		return failure
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway response")
	}
	return nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
