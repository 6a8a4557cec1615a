package ws

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/airwarden/airwarden/internal/auth"
	"go.uber.org/zap"
)

func TestHandleAlertStream_RejectsMissingToken(t *testing.T) {
	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour)
	h := NewHandler(tokens, nil, zap.NewNop())

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest("GET", "/api/v1/ws/alerts", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHandleAlertStream_RejectsInvalidToken(t *testing.T) {
	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour)
	h := NewHandler(tokens, nil, zap.NewNop())

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest("GET", "/api/v1/ws/alerts?token=bogus", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
