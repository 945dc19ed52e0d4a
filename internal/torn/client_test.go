package torn

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"
)

type mockTransport struct {
	responses []mockResponse
	calls     int
}

type mockResponse struct {
	body       string
	statusCode int
	err        error
}

func (m *mockTransport) Do(_ *http.Request) (*http.Response, error) {
	idx := m.calls
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	m.calls++
	resp := m.responses[idx]
	if resp.err != nil {
		return nil, resp.err
	}
	return &http.Response{
		StatusCode: resp.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(resp.body)),
	}, nil
}

func newTestClient(transport HTTPClient, maxRetries int) *Client {
	c := NewClient(Options{
		BaseURL:      "https://api.example.com",
		APIKey:       "testkey",
		RequestDelay: time.Millisecond,
		MaxRetries:   maxRetries,
		HTTPClient:   transport,
	})
	c.backoff = time.Millisecond
	return c
}

const bazaarBody = `{
	"name": "TraderJoe",
	"bazaar": [
		{"ID": 206, "name": "Xanax", "type": "Drug", "quantity": 3, "price": 2400, "market_price": 830},
		{"ID": 18, "name": "Baseball Bat", "type": "Melee", "quantity": 1, "price": 500, "market_price": 450}
	]
}`

func TestFetchBazaar(t *testing.T) {
	transport := &mockTransport{responses: []mockResponse{{body: bazaarBody, statusCode: 200}}}
	c := newTestClient(transport, 0)

	snapshot, err := c.FetchBazaar(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.PlayerID != 42 {
		t.Errorf("PlayerID = %d, want 42", snapshot.PlayerID)
	}
	if snapshot.PlayerName != "TraderJoe" {
		t.Errorf("PlayerName = %q, want TraderJoe", snapshot.PlayerName)
	}
	if len(snapshot.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(snapshot.Items))
	}
	if snapshot.Items[0].Price != 2400 || snapshot.Items[0].Quantity != 3 {
		t.Errorf("first item = %+v", snapshot.Items[0])
	}
	if snapshot.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
}

func TestFetchBazaarEmptyBazaar(t *testing.T) {
	transport := &mockTransport{responses: []mockResponse{{body: `{"name": "Quiet"}`, statusCode: 200}}}
	c := newTestClient(transport, 0)

	snapshot, err := c.FetchBazaar(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snapshot.Items) != 0 {
		t.Errorf("got %d items, want 0", len(snapshot.Items))
	}
}

func TestFetchBazaarAPIErrorNotRetried(t *testing.T) {
	transport := &mockTransport{responses: []mockResponse{
		{body: `{"error": {"code": 2, "error": "Incorrect key"}}`, statusCode: 200},
	}}
	c := newTestClient(transport, 2)

	_, err := c.FetchBazaar(context.Background(), 42)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Code != 2 {
		t.Errorf("Code = %d, want 2", apiErr.Code)
	}
	if transport.calls != 1 {
		t.Errorf("calls = %d, want 1 (API errors must not be retried)", transport.calls)
	}
}

func TestFetchBazaarRetriesTransportErrors(t *testing.T) {
	transport := &mockTransport{responses: []mockResponse{
		{err: io.ErrUnexpectedEOF},
		{body: "bad gateway", statusCode: 502},
		{body: bazaarBody, statusCode: 200},
	}}
	c := newTestClient(transport, 2)

	snapshot, err := c.FetchBazaar(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error after retries: %v", err)
	}
	if len(snapshot.Items) != 2 {
		t.Errorf("got %d items, want 2", len(snapshot.Items))
	}
	if transport.calls != 3 {
		t.Errorf("calls = %d, want 3 (two failures then success)", transport.calls)
	}
}

func TestFetchBazaarRetriesExhausted(t *testing.T) {
	transport := &mockTransport{responses: []mockResponse{
		{err: io.ErrUnexpectedEOF},
		{err: io.ErrUnexpectedEOF},
	}}
	c := newTestClient(transport, 1)

	_, err := c.FetchBazaar(context.Background(), 42)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if transport.calls != 2 {
		t.Errorf("calls = %d, want 2 (initial attempt plus one retry)", transport.calls)
	}
}
