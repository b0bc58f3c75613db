package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func newTestProxy(t *testing.T, backend http.Handler) (*AuthProxy, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	proxy, err := NewAuthProxy(Config{
		AuthServiceURL:   server.URL,
		CookieAccessTTL:  15 * time.Minute,
		CookieRefreshTTL: 7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("new proxy: %v", err)
	}
	return proxy, server
}

func TestProxyTranslatesCookiesToHeaders(t *testing.T) {
	t.Parallel()

	var gotAuth, gotRefresh string
	proxy, _ := newTestProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRefresh = r.Header.Get("X-Refresh-Token")
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req.AddCookie(&http.Cookie{Name: cookieAccessToken, Value: "acc-1"})
	req.AddCookie(&http.Cookie{Name: cookieRefreshToken, Value: "ref-1"})
	rec := httptest.NewRecorder()
	proxy.ServeHTTP(rec, req)

	if gotAuth != "Bearer acc-1" {
		t.Fatalf("expected bearer header from cookie, got %q", gotAuth)
	}
	if gotRefresh != "ref-1" {
		t.Fatalf("expected refresh header from cookie, got %q", gotRefresh)
	}
}

func TestProxyPrefersExplicitAuthorizationHeader(t *testing.T) {
	t.Parallel()

	var gotAuth string
	proxy, _ := newTestProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer explicit")
	req.AddCookie(&http.Cookie{Name: cookieAccessToken, Value: "cookie-token"})
	rec := httptest.NewRecorder()
	proxy.ServeHTTP(rec, req)

	if gotAuth != "Bearer explicit" {
		t.Fatalf("explicit header should win, got %q", gotAuth)
	}
}

func TestProxyCapturesMintedTokens(t *testing.T) {
	t.Parallel()

	proxy, _ := newTestProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":{"accessToken":"new-acc","refreshToken":"new-ref"}}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rec := httptest.NewRecorder()
	proxy.ServeHTTP(rec, req)

	cookies := rec.Result().Cookies()
	byName := map[string]*http.Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}
	access, ok := byName[cookieAccessToken]
	if !ok || access.Value != "new-acc" {
		t.Fatalf("expected access token cookie, got %+v", cookies)
	}
	if !access.HttpOnly {
		t.Fatalf("token cookies must be httpOnly")
	}
	if access.MaxAge != int((15 * time.Minute).Seconds()) {
		t.Fatalf("access cookie must expire with the access token, got MaxAge %d", access.MaxAge)
	}
	refresh, ok := byName[cookieRefreshToken]
	if !ok || refresh.Value != "new-ref" {
		t.Fatalf("expected refresh token cookie, got %+v", cookies)
	}
	if refresh.MaxAge != int((7 * 24 * time.Hour).Seconds()) {
		t.Fatalf("refresh cookie must expire with the refresh token, got MaxAge %d", refresh.MaxAge)
	}
}

func TestProxyClearsCookiesOnLogout(t *testing.T) {
	t.Parallel()

	proxy, _ := newTestProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","message":"logged out"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: cookieAccessToken, Value: "acc-1"})
	rec := httptest.NewRecorder()
	proxy.ServeHTTP(rec, req)

	cleared := 0
	for _, c := range rec.Result().Cookies() {
		if (c.Name == cookieAccessToken || c.Name == cookieRefreshToken) && c.MaxAge < 0 {
			cleared++
		}
	}
	if cleared != 2 {
		t.Fatalf("expected both token cookies cleared, got %d", cleared)
	}
}

func TestProxyLeavesErrorResponsesAlone(t *testing.T) {
	t.Parallel()

	proxy, _ := newTestProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"INVALID_CREDENTIALS","message":"Invalid credentials"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rec := httptest.NewRecorder()
	proxy.ServeHTTP(rec, req)

	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("failed logins must not set cookies")
	}
}

func TestProxyClearsCookiesOnFailedRefresh(t *testing.T) {
	t.Parallel()

	proxy, _ := newTestProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"UNAUTHORIZED","message":"refresh token is no longer valid"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: cookieRefreshToken, Value: "stale"})
	rec := httptest.NewRecorder()
	proxy.ServeHTTP(rec, req)

	cleared := 0
	for _, c := range rec.Result().Cookies() {
		if (c.Name == cookieAccessToken || c.Name == cookieRefreshToken) && c.MaxAge < 0 {
			cleared++
		}
	}
	if cleared != 2 {
		t.Fatalf("failed refresh must clear both token cookies, got %d", cleared)
	}
}

func TestRateLimiterDisabledWithoutRedis(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(nil, time.Minute, 1, nil)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("limiter without redis must pass through, got %d", rec.Code)
		}
	}
}

func TestRateLimiterDisabledWithZeroWindow(t *testing.T) {
	t.Parallel()

	// A zero window must disable the limiter instead of dividing by zero
	// when bucketing the counter key.
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	t.Cleanup(func() { _ = client.Close() })
	limiter := NewRateLimiter(client, 0, 1, nil)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("limiter with zero window must pass through, got %d", rec.Code)
	}
}
