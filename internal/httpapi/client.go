// Package httpapi is a thin client for the KYCut website REST API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Endpoint is a symbolic name resolved to an API path.
type Endpoint string

const (
	EndpointPing          Endpoint = "bot_ping"
	EndpointStatus        Endpoint = "bot_status"
	EndpointWebhook       Endpoint = "bot_webhook"
	EndpointLink          Endpoint = "telegram_link"
	EndpointEnsureSession Endpoint = "telegram_ensure_session"
	EndpointLogin         Endpoint = "auth_login"
	EndpointOrdersUser    Endpoint = "orders_user"
	EndpointOrdersByID    Endpoint = "orders_telegram"
	EndpointOrdersStats   Endpoint = "orders_stats"
	EndpointOrderStatus   Endpoint = "order_status"
)

var endpointPaths = map[Endpoint]string{
	EndpointPing:          "/api/bot/ping",
	EndpointStatus:        "/api/bot/status",
	EndpointWebhook:       "/api/bot/webhook",
	EndpointLink:          "/api/telegram/link",
	EndpointEnsureSession: "/api/telegram/ensure-session",
	EndpointLogin:         "/api/auth/login",
	EndpointOrdersUser:    "/api/orders/user",
	EndpointOrdersByID:    "/api/orders/telegram",
	EndpointOrdersStats:   "/api/orders/stats",
	EndpointOrderStatus:   "/api/orders/%s/status", // takes an order id
}

const userAgent = "KYCut-Bot/2.0"

// Request describes one API call.
type Request struct {
	Endpoint Endpoint
	Method   string
	Body     any
	Bearer   string // per-user bot token; used in addition to the shared secret
	OrderID  string // fills the order_status path placeholder
	Query    url.Values
}

// Result is the normalized outcome of a call. Success is true only for
// a 2xx response whose payload did not carry {"success": false}; every
// failure mode (transport, HTTP status, malformed body, application
// error) collapses into Success=false plus a message, so handlers need
// a single branch.
type Result struct {
	Success bool
	Status  int
	Error   string
	Body    []byte
}

// Decode unmarshals the response body into v.
func (r Result) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Client issues authenticated requests against a fixed base URL.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client

	// retry policy; fields are adjustable in tests
	attempts int
	backoff  time.Duration
}

// New creates a client for the given website base URL. secret may be
// empty, in which case the X-Webhook-Secret header is omitted.
func New(baseURL, secret string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		secret:   secret,
		http:     &http.Client{Timeout: 15 * time.Second},
		attempts: 4,
		backoff:  500 * time.Millisecond,
	}
}

type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

// Do performs the request with retry on transient failures: HTTP
// 429/502/503/504 and transport errors are retried with exponential
// backoff from the initial delay; everything else returns immediately.
func (c *Client) Do(ctx context.Context, req Request) Result {
	path, ok := endpointPaths[req.Endpoint]
	if !ok {
		return Result{Error: fmt.Sprintf("unknown endpoint %q", req.Endpoint)}
	}
	if strings.Contains(path, "%s") {
		path = fmt.Sprintf(path, url.PathEscape(req.OrderID))
	}

	target := c.baseURL + path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var payload []byte
	if req.Body != nil {
		var err error
		payload, err = json.Marshal(req.Body)
		if err != nil {
			return Result{Error: fmt.Sprintf("encode request body: %v", err)}
		}
	}

	backoff := c.backoff
	var lastErr string

	for attempt := 1; attempt <= c.attempts; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, bytes.NewReader(payload))
		if err != nil {
			return Result{Error: fmt.Sprintf("build request: %v", err)}
		}
		httpReq.Header.Set("User-Agent", userAgent)
		if req.Body != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
		if c.secret != "" {
			httpReq.Header.Set("X-Webhook-Secret", c.secret)
		}
		// Bearer token takes precedence for identity; the shared secret
		// stays alongside it for server-side verification.
		if req.Bearer != "" {
			httpReq.Header.Set("Authorization", "Bearer "+req.Bearer)
		}

		resp, err := c.http.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return Result{Error: ctx.Err().Error()}
			}
			lastErr = fmt.Sprintf("connection error: %v", err)
			log.Printf("[warn] %s %s attempt %d: %v", req.Method, req.Endpoint, attempt, err)
			if !sleep(ctx, backoff) {
				return Result{Error: lastErr}
			}
			backoff *= 2
			continue
		}

		body, status, err := readBody(resp)
		if err != nil {
			// A connection dropped mid-body is a transport failure, not a
			// short response.
			lastErr = fmt.Sprintf("read response: %v", err)
			log.Printf("[warn] %s %s attempt %d: %v", req.Method, req.Endpoint, attempt, err)
			if !sleep(ctx, backoff) {
				return Result{Status: status, Error: lastErr}
			}
			backoff *= 2
			continue
		}

		if transient(status) {
			lastErr = fmt.Sprintf("HTTP %d", status)
			log.Printf("[warn] transient HTTP %d from %s, attempt %d", status, req.Endpoint, attempt)
			if !sleep(ctx, backoff) {
				return Result{Status: status, Error: lastErr, Body: body}
			}
			backoff *= 2
			continue
		}

		return normalize(status, body)
	}

	return Result{Error: lastErr}
}

func readBody(resp *http.Response) ([]byte, int, error) {
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	return buf.Bytes(), resp.StatusCode, err
}

func transient(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func normalize(status int, body []byte) Result {
	res := Result{Status: status, Body: body}

	var env envelope
	if len(body) > 0 {
		if err := json.Unmarshal(body, &env); err != nil {
			if status >= 200 && status < 300 {
				return Result{Status: status, Error: "malformed response body", Body: body}
			}
			return Result{Status: status, Error: fmt.Sprintf("HTTP %d", status), Body: body}
		}
	}

	if status < 200 || status >= 300 {
		res.Error = env.Error
		if res.Error == "" {
			res.Error = fmt.Sprintf("HTTP %d", status)
		}
		return res
	}

	if env.Success != nil && !*env.Success {
		res.Error = env.Error
		if res.Error == "" {
			res.Error = "request failed"
		}
		return res
	}

	res.Success = true
	return res
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
