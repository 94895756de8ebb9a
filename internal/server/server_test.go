package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/config"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/session"
)

func testEngine(t *testing.T, store session.Store) *goSession.Engine {
	t.Helper()

	cfg := goSession.DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.JWT.AccessTTL = 15 * time.Minute
	cfg.JWT.RefreshTTL = 24 * time.Hour
	cfg.Metrics.Enabled = true

	engine, err := goSession.New().WithConfig(cfg).WithStore(store).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine
}

func testServerConfig() config.Server {
	cfg := config.Default().Server
	cfg.AllowDemoCreate = true
	cfg.AllowedOrigins = []string{"https://app.example.com"}
	return cfg
}

func newTestServer(t *testing.T) (*Server, *goSession.Engine) {
	t.Helper()
	engine := testEngine(t, session.NewMemoryStore(nil))
	return New(testServerConfig(), engine), engine
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rdr)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, h http.Handler) (access, refresh string) {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/auth/session", map[string]any{
		"userId":             "user-1",
		"tenantId":           "acme",
		"accessTokenPayload": map[string]any{"role": "admin"},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	access = rec.Header().Get(middleware.HeaderAccessToken)
	refresh = rec.Header().Get(middleware.HeaderRefreshToken)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	require.NotEmpty(t, rec.Header().Get(middleware.HeaderFrontToken))
	return access, refresh
}

func bearer(token string) map[string]string {
	return map[string]string{middleware.HeaderAuthorization: "Bearer " + token}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv.Handler(), http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealthzStoreDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	engine := testEngine(t, session.NewRedisStore(rdb, "gs", nil))
	srv := New(testServerConfig(), engine)
	mr.Close()

	rec := do(t, srv.Handler(), http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	access, refresh := createSession(t, h)

	rec := do(t, h, http.MethodGet, "/auth/session", nil, bearer(access))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var info sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "user-1", info.UserID)
	assert.Equal(t, "acme", info.TenantID)
	assert.Equal(t, "admin", info.AccessTokenPayload["role"])
	assert.Zero(t, info.RotationCounter)

	rec = do(t, h, http.MethodPost, "/auth/session/refresh", nil, map[string]string{middleware.HeaderRefreshToken: refresh})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	newAccess := rec.Header().Get(middleware.HeaderAccessToken)
	require.NotEmpty(t, newAccess)
	assert.NotEqual(t, refresh, rec.Header().Get(middleware.HeaderRefreshToken))

	// Replaying the old refresh token is theft and revokes the session.
	rec = do(t, h, http.MethodPost, "/auth/session/refresh", nil, map[string]string{middleware.HeaderRefreshToken: refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "remove", rec.Header().Get(middleware.HeaderFrontToken))

	rec = do(t, h, http.MethodGet, "/auth/session", nil, bearer(newAccess))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignOut(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	access, _ := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/auth/signout", nil, bearer(access))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "remove", rec.Header().Get(middleware.HeaderFrontToken))

	rec = do(t, h, http.MethodGet, "/auth/session", nil, bearer(access))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDemoCreateDisabled(t *testing.T) {
	engine := testEngine(t, session.NewMemoryStore(nil))
	cfg := testServerConfig()
	cfg.AllowDemoCreate = false
	srv := New(cfg, engine)

	rec := do(t, srv.Handler(), http.MethodPost, "/auth/session", map[string]any{"userId": "user-1"}, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDemoCreateRejectsBadBody(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv.Handler(), http.MethodPost, "/auth/session", map[string]any{"tenantId": "acme"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv.Handler(), http.MethodPost, "/auth/session", map[string]any{"userId": "u", "admin": true}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	createSession(t, srv.Handler())

	rec := do(t, srv.Handler(), http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gosession_session_created_total 1")
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv.Handler(), http.MethodOptions, "/auth/session/refresh", nil, map[string]string{
		"Origin":                         "https://app.example.com",
		"Access-Control-Request-Method":  http.MethodPost,
		"Access-Control-Request-Headers": middleware.HeaderRefreshToken,
	})
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv.Handler(), http.MethodGet, "/healthz", nil, nil)
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))

	const id = "0b0f5c8e-6c1b-4f3a-9a43-8d2f0a8a7e11"
	rec = do(t, srv.Handler(), http.MethodGet, "/healthz", nil, map[string]string{headerRequestID: id})
	assert.Equal(t, id, rec.Header().Get(headerRequestID))
}

func TestServeStopsOnCancel(t *testing.T) {
	srv, _ := newTestServer(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	url := "http://" + listener.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
