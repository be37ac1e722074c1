// Package gateway is a client for the third-party payment gateway's REST API.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ErrUnavailable marks failures a caller may retry: transport errors,
// timeouts and 5xx responses.
var ErrUnavailable = errors.New("payment gateway unavailable")

// Intent is a gateway-side record of an expected payment.
type Intent struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Payment is a payment made against an intent.
type Payment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	Method   string `json:"method"`
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
}

// Client is the subset of the gateway API the checkout core uses.
type Client interface {
	CreateIntent(ctx context.Context, amount int64, currency, receipt string) (*Intent, error)
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
}

// Config holds gateway credentials and limits.
type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// HTTPClient calls the gateway over HTTPS with basic auth.
type HTTPClient struct {
	cfg Config
}

// NewHTTPClient creates a new gateway client.
func NewHTTPClient(cfg Config) *HTTPClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPClient{cfg: cfg}
}

type createIntentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateIntent mints a new payment intent for amount (in minor units).
func (c *HTTPClient) CreateIntent(ctx context.Context, amount int64, currency, receipt string) (*Intent, error) {
	timeout, err := c.timeout(ctx)
	if err != nil {
		return nil, err
	}
	agent := fiber.Post(c.cfg.BaseURL + "/orders").
		BasicAuth(c.cfg.KeyID, c.cfg.KeySecret).
		JSON(createIntentRequest{Amount: amount, Currency: currency, Receipt: receipt}).
		Timeout(timeout)

	var intent Intent
	if err := do(agent, &intent); err != nil {
		return nil, fmt.Errorf("create intent: %w", err)
	}
	return &intent, nil
}

// FetchPayment loads a payment by id.
func (c *HTTPClient) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	timeout, err := c.timeout(ctx)
	if err != nil {
		return nil, err
	}
	agent := fiber.Get(c.cfg.BaseURL + "/payments/" + url.PathEscape(paymentID)).
		BasicAuth(c.cfg.KeyID, c.cfg.KeySecret).
		Timeout(timeout)

	var payment Payment
	if err := do(agent, &payment); err != nil {
		return nil, fmt.Errorf("fetch payment %s: %w", paymentID, err)
	}
	return &payment, nil
}

// timeout returns the configured timeout, shortened to the context deadline.
func (c *HTTPClient) timeout(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	timeout := c.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	return timeout, nil
}

func do(agent *fiber.Agent, out interface{}) error {
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", ErrUnavailable, errors.Join(errs...))
	}
	switch {
	case code >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	case code >= 400:
		return fmt.Errorf("gateway rejected request: status %d: %s", code, truncate(body, 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
