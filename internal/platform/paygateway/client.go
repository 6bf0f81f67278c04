// Package paygateway provides payment gateways for late fee settlement.
package paygateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"librarian/internal/payment"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client talks to a hosted payment gateway over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetries sets how often a request is retried after a transport error,
// a 429 or a 5xx response, and the first backoff delay. The delay doubles on
// every retry.
func WithRetries(maxRetries int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.backoff = backoff
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1)
		}
	}
}

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Every(time.Second/5), 1),
		maxRetries: 2,
		backoff:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chargeRequest struct {
	PatronID    string  `json:"patron_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

type chargeResponse struct {
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}

type refundRequest struct {
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
}

type refundResponse struct {
	Message string `json:"message"`
}

// ProcessPayment charges amount to the patron's card on file. A 402 or 422
// response is a decline, not an error.
func (c *Client) ProcessPayment(ctx context.Context, patronID string, amount float64, description string) (payment.Charge, error) {
	var res chargeResponse
	declined, err := c.post(ctx, "/v1/payments", chargeRequest{
		PatronID:    patronID,
		Amount:      amount,
		Description: description,
	}, &res)
	if err != nil {
		return payment.Charge{}, err
	}
	if declined {
		return payment.Charge{Success: false, Message: res.Message}, nil
	}
	return payment.Charge{Success: true, TransactionID: res.TransactionID, Message: res.Message}, nil
}

// RefundPayment returns amount of an earlier charge. A 402, 404 or 422
// response is a decline.
func (c *Client) RefundPayment(ctx context.Context, transactionID string, amount float64) (payment.Refund, error) {
	var res refundResponse
	declined, err := c.post(ctx, "/v1/refunds", refundRequest{
		TransactionID: transactionID,
		Amount:        amount,
	}, &res)
	if err != nil {
		return payment.Refund{}, err
	}
	return payment.Refund{Success: !declined, Message: res.Message}, nil
}

func isDecline(path string, status int) bool {
	switch status {
	case http.StatusPaymentRequired, http.StatusUnprocessableEntity:
		return true
	case http.StatusNotFound:
		return path == "/v1/refunds"
	}
	return false
}

// post sends body and decodes the response into target. Every attempt of
// one call carries the same idempotency key so a retried charge is applied
// once.
func (c *Client) post(ctx context.Context, path string, body, target interface{}) (declined bool, err error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return false, err
	}
	idempotencyKey := uuid.NewString()

	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			backoff := c.backoff * time.Duration(1<<uint(i-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return false, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return false, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return false, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", idempotencyKey)
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
			return false, json.Unmarshal(raw, target)
		case isDecline(path, resp.StatusCode):
			return true, json.Unmarshal(raw, target)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			continue
		default:
			return false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
	}
	return false, fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}
