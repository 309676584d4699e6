// Package cashfree talks to the Cashfree payment gateway over its REST API.
package cashfree

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fastcopy/printshop/internal/checkout/ports"
)

const (
	// SandboxBaseURL is the gateway's test environment.
	SandboxBaseURL = "https://sandbox.cashfree.com/pg"
	// ProductionBaseURL is the live environment.
	ProductionBaseURL = "https://api.cashfree.com/pg"

	apiVersion = "2023-08-01"
)

// Config holds the gateway credentials and environment. ReturnURL and
// NotifyURL are applied when the caller leaves them unset.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	ReturnURL    string
	NotifyURL    string
	Timeout      time.Duration
}

// Client implements ports.PaymentGateway against Cashfree's order API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = SandboxBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type createOrderRequest struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     decimal.Decimal `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails customerDetails `json:"customer_details"`
	OrderMeta       *orderMeta      `json:"order_meta,omitempty"`
}

type customerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
}

type orderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
	NotifyURL string `json:"notify_url,omitempty"`
}

type orderResponse struct {
	OrderID          string `json:"order_id"`
	OrderStatus      string `json:"order_status"`
	PaymentSessionID string `json:"payment_session_id"`
	PaymentLink      string `json:"payment_link"`
	Message          string `json:"message"`
}

// CreateSession opens a gateway order. The gateway keys orders by our id, so
// retrying with the same id cannot double-charge.
func (c *Client) CreateSession(ctx context.Context, input ports.CreateSessionInput) (ports.Session, error) {
	body := createOrderRequest{
		OrderID:       input.GatewayOrderID,
		OrderAmount:   input.Amount,
		OrderCurrency: input.Currency,
		CustomerDetails: customerDetails{
			CustomerID:    input.CustomerID,
			CustomerEmail: input.CustomerEmail,
			CustomerPhone: input.CustomerPhone,
		},
	}
	returnURL := input.ReturnURL
	if returnURL == "" {
		returnURL = c.cfg.ReturnURL
	}
	notifyURL := input.NotifyURL
	if notifyURL == "" {
		notifyURL = c.cfg.NotifyURL
	}
	if returnURL != "" || notifyURL != "" {
		body.OrderMeta = &orderMeta{ReturnURL: returnURL, NotifyURL: notifyURL}
	}

	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/orders", body, &resp); err != nil {
		return ports.Session{}, &ports.GatewayError{Op: "create session", Err: err}
	}

	if resp.PaymentSessionID == "" {
		return ports.Session{}, &ports.GatewayError{
			Op:  "create session",
			Err: fmt.Errorf("gateway returned no session id: %s", resp.Message),
		}
	}

	return ports.Session{ID: resp.PaymentSessionID, PaymentLink: resp.PaymentLink}, nil
}

// PollStatus asks the gateway for the order's current state. Transport errors
// and unreadable responses degrade to VerdictFailed: reconciliation must never
// wedge a batch on a flaky gateway, and a wrongly failed order is recoverable
// while a wedged one is not.
func (c *Client) PollStatus(ctx context.Context, gatewayOrderID string) (ports.Verdict, error) {
	var resp orderResponse
	if err := c.do(ctx, http.MethodGet, "/orders/"+gatewayOrderID, nil, &resp); err != nil {
		c.logger.WarnContext(ctx, "gateway status poll failed, treating as failed",
			slog.String("gateway_order_id", gatewayOrderID),
			slog.Any("error", err))
		return ports.VerdictFailed, &ports.GatewayError{Op: "poll status", Err: err}
	}

	switch resp.OrderStatus {
	case "PAID":
		return ports.VerdictPaid, nil
	case "ACTIVE":
		return ports.VerdictUnknown, nil
	default:
		// EXPIRED, TERMINATED and anything unrecognized.
		return ports.VerdictFailed, nil
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-version", apiVersion)
	req.Header.Set("x-client-id", c.cfg.ClientID)
	req.Header.Set("x-client-secret", c.cfg.ClientSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, truncate(payload, 256))
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
