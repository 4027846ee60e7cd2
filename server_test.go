package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"i4.energy/across/serbridge/bridge"
	"i4.energy/across/serbridge/settings"
)

const testPassword = "secret"

type fakeBridge struct {
	record   []byte
	restarts int
}

func (f *fakeBridge) Status(ctx context.Context) (bridge.Status, error) {
	return bridge.Status{Mode: "bridging", BaudRate: 9600, Port: 23}, nil
}

func (f *fakeBridge) Query(ctx context.Context) ([]byte, error) {
	return f.record, nil
}

func (f *fakeBridge) Apply(ctx context.Context, password string, text []byte) ([]byte, error) {
	if password != testPassword {
		return nil, bridge.ErrUnauthorized
	}
	if !strings.HasPrefix(string(text), "{") {
		return nil, fmt.Errorf("%w: not an object", settings.ErrMalformed)
	}
	f.record = text
	f.restarts++
	return text, nil
}

func (f *fakeBridge) Reboot(ctx context.Context, password string) error {
	if password != testPassword {
		return bridge.ErrUnauthorized
	}
	f.restarts++
	return nil
}

func newTestServer() (*Server, *fakeBridge) {
	fb := &fakeBridge{record: []byte(`{"rev":1}`)}
	return &Server{Logger: slog.New(slog.DiscardHandler), Bridge: fb}, fb
}

func TestServer(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		body     string
		status   int
		restarts int
	}{
		{name: "Get config", method: http.MethodGet, path: "/config", status: http.StatusOK},
		{name: "Get status", method: http.MethodGet, path: "/status", status: http.StatusOK},
		{name: "Set config", method: http.MethodPost, path: "/config", token: testPassword, body: `{"port":2323}`, status: http.StatusAccepted, restarts: 1},
		{name: "Set config without token", method: http.MethodPost, path: "/config", body: `{"port":2323}`, status: http.StatusUnauthorized},
		{name: "Set malformed config", method: http.MethodPost, path: "/config", token: testPassword, body: "garbage", status: http.StatusBadRequest},
		{name: "Set oversized config", method: http.MethodPost, path: "/config", token: testPassword, body: "{" + strings.Repeat(" ", maxRecordSize) + "}", status: http.StatusRequestEntityTooLarge},
		{name: "Restart", method: http.MethodPost, path: "/restart", token: testPassword, status: http.StatusAccepted, restarts: 1},
		{name: "Restart with wrong token", method: http.MethodPost, path: "/restart", token: "wrong", status: http.StatusUnauthorized},
		{name: "Unknown method", method: http.MethodDelete, path: "/config", status: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, fb := newTestServer()

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d (%s)", tt.status, rec.Code, rec.Body.String())
			}
			if fb.restarts != tt.restarts {
				t.Errorf("expected %d restarts, got %d", tt.restarts, fb.restarts)
			}
		})
	}
}

func TestServerBodies(t *testing.T) {
	s, _ := newTestServer()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config", nil))
	if rec.Body.String() != `{"rev":1}` {
		t.Errorf("expected the raw record, got %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	var status bridge.Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("unexpected error decoding status: %v", err)
	}
	if status.Mode != "bridging" || status.Port != 23 {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/restart", nil)
	if got := bearer(req); got != "" {
		t.Errorf("expected no token, got %q", got)
	}
	req.Header.Set("Authorization", "Basic abc")
	if got := bearer(req); got != "" {
		t.Errorf("expected no token for basic auth, got %q", got)
	}
	req.Header.Set("Authorization", "Bearer abc")
	if got := bearer(req); got != "abc" {
		t.Errorf("expected %q, got %q", "abc", got)
	}
}
