package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(serverURL string) *Client {
	c := New(serverURL, "test-secret")
	c.backoff = time.Millisecond
	return c
}

func TestDoRetriesTransientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"success": true, "pong": "ok"}`))
	}))
	defer server.Close()

	res := testClient(server.URL).Do(context.Background(), Request{Endpoint: EndpointPing, Method: "GET"})
	if !res.Success {
		t.Fatalf("expected success after retries, got error %q", res.Error)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	res := testClient(server.URL).Do(context.Background(), Request{Endpoint: EndpointPing, Method: "GET"})
	if res.Success {
		t.Fatal("expected failure")
	}
	if got := atomic.LoadInt32(&calls); got != 4 {
		t.Fatalf("expected 4 attempts, got %d", got)
	}
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "bad code"}`))
	}))
	defer server.Close()

	res := testClient(server.URL).Do(context.Background(), Request{Endpoint: EndpointLink, Method: "POST", Body: map[string]string{"code": "X"}})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error != "bad code" {
		t.Fatalf("expected server error message, got %q", res.Error)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestDoTreatsEnvelopeFailureAsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "error": "invalid or expired code"}`))
	}))
	defer server.Close()

	res := testClient(server.URL).Do(context.Background(), Request{Endpoint: EndpointLink, Method: "POST"})
	if res.Success {
		t.Fatal("expected app-level failure")
	}
	if res.Error != "invalid or expired code" {
		t.Fatalf("unexpected error: %q", res.Error)
	}
}

func TestDoMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	res := testClient(server.URL).Do(context.Background(), Request{Endpoint: EndpointPing, Method: "GET"})
	if res.Success {
		t.Fatal("expected failure on malformed body")
	}
	if res.Error != "malformed response body" {
		t.Fatalf("unexpected error: %q", res.Error)
	}
}

func TestDoRetriesTruncatedBody(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			// Announce a longer body than is sent, then hang up.
			w.Header().Set("Content-Length", "500")
			w.Write([]byte(`{"success":`))
			return
		}
		w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	res := testClient(server.URL).Do(context.Background(), Request{Endpoint: EndpointPing, Method: "GET"})
	if !res.Success {
		t.Fatalf("expected success after retrying truncated response, got %q", res.Error)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestDoSendsAuthHeaders(t *testing.T) {
	var gotSecret, gotAuth, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret = r.Header.Get("X-Webhook-Secret")
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	res := testClient(server.URL).Do(context.Background(), Request{
		Endpoint: EndpointOrdersUser,
		Method:   "GET",
		Bearer:   "tok-123",
	})
	if !res.Success {
		t.Fatalf("unexpected failure: %q", res.Error)
	}
	if gotSecret != "test-secret" {
		t.Errorf("X-Webhook-Secret = %q", gotSecret)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotUA != userAgent {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestDoFillsOrderStatusPath(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	testClient(server.URL).Do(context.Background(), Request{
		Endpoint: EndpointOrderStatus,
		Method:   "PATCH",
		OrderID:  "ORD_2024_001",
	})
	if gotPath != "/api/orders/ORD_2024_001/status" {
		t.Fatalf("path = %q", gotPath)
	}
}

func TestDoAppendsQuery(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"success": true, "orders": []}`))
	}))
	defer server.Close()

	testClient(server.URL).Do(context.Background(), Request{
		Endpoint: EndpointOrdersByID,
		Method:   "GET",
		Query:    url.Values{"telegram_user_id": {"42"}},
	})
	if gotQuery.Get("telegram_user_id") != "42" {
		t.Fatalf("query = %v", gotQuery)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := New(server.URL, "")
	c.backoff = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() {
		done <- c.Do(ctx, Request{Endpoint: EndpointPing, Method: "GET"})
	}()
	cancel()

	select {
	case res := <-done:
		if res.Success {
			t.Fatal("expected failure after cancellation")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
}
