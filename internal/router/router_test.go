package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"elasticlm-backend/internal/handlers"
	"elasticlm-backend/internal/middleware"
	"elasticlm-backend/internal/websocket"
)

func newTestRouter(t *testing.T, secret string) http.Handler {
	t.Helper()
	limiter := NewRateLimiter()
	t.Cleanup(limiter.Stop)

	h := Handlers{
		Upload: handlers.NewUploadHandler(nil, nil, nil, t.TempDir(), 1),
		Chat:   handlers.NewChatHandler(nil),
		Admin:  handlers.NewAdminHandler(nil, nil, "docs", t.TempDir()),
		Search: handlers.NewSearchHandler(nil),
		Books:  handlers.NewBooksHandler(nil),

		RegulationsChat: websocket.ChatHandler(nil),
	}
	return New(h, middleware.NewAdminAuth(secret), limiter, websocket.NewHub(nil), []string{"*"})
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(t, "").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK || rr.Body.String() != `{"status":"ok"}` {
		t.Fatalf("unexpected health response %d %q", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(t, "secret").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/documents", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestChatValidationThroughRouter(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat/", strings.NewReader(`{"messages":[]}`))
	newTestRouter(t, "").ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestRegulationsChatRequiresUpgrade(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(t, "").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ws/chat", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a plain GET, got %d", rr.Code)
	}
}
