package routers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"codecollab/internal/relay"
)

func newTestRouter(t *testing.T) *httptest.Server {
	t.Helper()
	ws := relay.NewHandler(zap.NewNop(), relay.NewHub(), []byte("test-secret"))
	server := httptest.NewServer(New(ws, []string{"*"}))
	t.Cleanup(server.Close)
	return server
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestRouter(t)

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestRouter(t)

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestWSRequiresToken(t *testing.T) {
	server := newTestRouter(t)

	resp, err := http.Get(server.URL + "/ws")
	if err != nil {
		t.Fatalf("ws request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
