package dashboard

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewLoginLimiter(t *testing.T) {
	if newLoginLimiter(0) != nil {
		t.Error("Expected no limiter when throttling is disabled")
	}

	limiter := newLoginLimiter(6)
	if limiter == nil {
		t.Fatal("Expected a limiter")
	}

	if limiter.burst != 6 {
		t.Errorf("Expected burst of 6, got %d", limiter.burst)
	}
}

func TestLoginLimiter_allow(t *testing.T) {
	limiter := newLoginLimiter(3)

	for i := 0; i < 3; i++ {
		if !limiter.allow("192.0.2.1") {
			t.Errorf("Expected attempt %d to be allowed", i+1)
		}
	}

	if limiter.allow("192.0.2.1") {
		t.Error("Expected the fourth attempt to be throttled")
	}

	if !limiter.allow("192.0.2.2") {
		t.Error("Expected another address to have its own budget")
	}
}

func TestLoginLimiter_middleware(t *testing.T) {
	handler := newLoginLimiter(1).middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	r := httptest.NewRequest(http.MethodGet, "/login/code", nil)
	r.RemoteAddr = "192.0.2.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}

	r.RemoteAddr = "192.0.2.1:5678"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", rec.Code)
	}

	if rec.Header().Get("Retry-After") == "" {
		t.Error("Expected a Retry-After header")
	}

	var disabled *loginLimiter
	rec = httptest.NewRecorder()
	disabled.middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rec, r)
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected a disabled limiter to pass requests, got %d", rec.Code)
	}
}

func TestDashboard_loginThrottle(t *testing.T) {
	config := newTestConfig()
	config.LoginAttemptsPerMinute = 2

	d, err := New(config, newTestTree(t), nil, &mockUsers{}, WithProvider(&mockProvider{}))
	if err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		statuses = append(statuses, serve(d, httptest.NewRequest(http.MethodPost, "/login/redirect", nil)).StatusCode)
	}

	if statuses[0] != http.StatusSeeOther || statuses[1] != http.StatusSeeOther || statuses[2] != http.StatusTooManyRequests {
		t.Errorf("Unexpected statuses %v", statuses)
	}

	if res := serve(d, httptest.NewRequest(http.MethodGet, "/login", nil)); res.StatusCode != http.StatusOK {
		t.Errorf("Expected the login page to stay reachable, got %d", res.StatusCode)
	}
}
