package logout_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/civihub/internal/app/features/logout"
	"github.com/dalemusser/civihub/internal/app/system/auth"
	"go.uber.org/zap"
)

func TestServeLogout_ClearsSession(t *testing.T) {
	if err := auth.InitSessionStore("0123456789abcdef0123456789abcdef", "", false, zap.NewNop()); err != nil {
		t.Fatalf("InitSessionStore failed: %v", err)
	}

	handler := logout.NewHandler(zap.NewNop())

	req := httptest.NewRequest("POST", "/logout", nil)
	rec := httptest.NewRecorder()
	handler.ServeLogout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	// The deletion cookie must expire immediately.
	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionName {
			found = true
			if c.MaxAge >= 0 && c.Expires.IsZero() {
				t.Errorf("expected an expiring cookie, got MaxAge=%d", c.MaxAge)
			}
		}
	}
	if !found {
		t.Error("expected a session deletion cookie")
	}
}
