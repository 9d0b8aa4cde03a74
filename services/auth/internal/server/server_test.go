package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/authcore/pkg/cache"
	"github.com/authcore/pkg/config"
	"github.com/authcore/services/auth/internal/server"
	"github.com/authcore/services/auth/internal/session"
	"github.com/authcore/services/auth/internal/store/storetest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	t     *testing.T
	srv   *server.Server
	mr    *miniredis.Miniredis
	clock *clock
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Token.Secret = "e2e-secret"
	cfg.Token.Lifetime = "60 * 60"
	cfg.Auth.HashIterations = 10
	cfg.Auth.KeyLength = 32
	cfg.RateLimit.Max = 0
	return cfg
}

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()
	cfg := testConfig()
	for _, fn := range mutate {
		fn(cfg)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	srv, err := server.New(server.Options{
		Config: cfg,
		DB:     storetest.Seeded(t, storetest.Hasher()),
		Cache:  cache.NewRedisStore(client),
		Clock:  clk.Now,
	})
	require.NoError(t, err)
	return &harness{t: t, srv: srv, mr: mr, clock: clk}
}

func (h *harness) do(method, path, token string, body any) (int, envelope) {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = strings.NewReader(string(data))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.srv.App.Test(req, -1)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(h.t, json.Unmarshal(raw, &env))
	}
	return resp.StatusCode, env
}

func (h *harness) login(username, password string) string {
	h.t.Helper()
	status, env := h.do(http.MethodPost, "/login", "", map[string]string{"username": username, "password": password})
	require.Equal(h.t, http.StatusOK, status, env.Message)
	var out session.LoginResponse
	require.NoError(h.t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(h.t, out.Token)
	return out.Token
}

func (h *harness) me(token string) session.MeResponse {
	h.t.Helper()
	status, env := h.do(http.MethodGet, "/me", token, nil)
	require.Equal(h.t, http.StatusOK, status, env.Message)
	var out session.MeResponse
	require.NoError(h.t, json.Unmarshal(env.Data, &out))
	return out
}

func TestLogin(t *testing.T) {
	h := newHarness(t)

	status, env := h.do(http.MethodPost, "/login", "", map[string]string{"username": "alice", "password": storetest.AlicePassword})
	require.Equal(t, http.StatusOK, status)
	var out session.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "alice", out.User.Username)
	assert.Equal(t, "Alice", out.User.Nickname)
	assert.Equal(t, "/a.png", out.User.Avatar)
	assert.Equal(t, h.clock.Now().Add(time.Hour).Unix(), out.ExpiresAt)

	claims, err := h.srv.Codec.Verify(out.Token)
	require.NoError(t, err)
	assert.Equal(t, storetest.AliceID, claims.UserID)

	// 旧版明文密码仍可登录
	h.login("legacy", storetest.LegacyPassword)
}

func TestLoginFailures(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name     string
		username string
		password string
		status   int
		message  string
	}{
		{"wrong password", "alice", "nope", http.StatusUnauthorized, "invalid credentials"},
		{"unknown user", "mallory", "nope", http.StatusUnauthorized, "invalid credentials"},
		{"disabled account", "gone", "gone-pass", http.StatusForbidden, "account disabled"},
		{"disabled account wrong password", "gone", "nope", http.StatusUnauthorized, "invalid credentials"},
		{"missing password", "alice", "", 422, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := h.do(http.MethodPost, "/login", "", map[string]string{"username": tt.username, "password": tt.password})
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.status, env.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, env.Message)
			}
			assert.Empty(t, env.Data, "no token issued")
		})
	}
}

func TestMe(t *testing.T) {
	h := newHarness(t)

	info := h.me(h.login("viewer", storetest.ViewerPassword))
	assert.Equal(t, []string{"system:user:list"}, info.Permissions)
	assert.False(t, info.IsAdmin)
	require.Len(t, info.Menus, 1)
	require.Len(t, info.Menus[0].Children, 1)
	assert.Equal(t, "users", info.Menus[0].Children[0].Name)

	root := h.me(h.login("root", storetest.RootPassword))
	assert.True(t, root.IsAdmin)
	assert.Len(t, root.Menus, 2)

	status, _ := h.do(http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = h.do(http.MethodGet, "/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTokenExpiry(t *testing.T) {
	h := newHarness(t)
	token := h.login("viewer", storetest.ViewerPassword)

	// expiresAt == now 仍然有效
	h.clock.Advance(time.Hour)
	status, _ := h.do(http.MethodGet, "/me", token, nil)
	assert.Equal(t, http.StatusOK, status)

	h.clock.Advance(time.Second)
	status, env := h.do(http.MethodGet, "/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "token expired", env.Message)
}

func TestRefresh(t *testing.T) {
	h := newHarness(t)
	token := h.login("viewer", storetest.ViewerPassword)
	h.clock.Advance(30 * time.Minute)

	status, env := h.do(http.MethodPost, "/refresh", token, nil)
	require.Equal(t, http.StatusOK, status)
	var out session.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, h.clock.Now().Add(time.Hour).Unix(), out.ExpiresAt)

	claims, err := h.srv.Codec.Verify(out.Token)
	require.NoError(t, err)
	assert.Equal(t, storetest.ViewerID, claims.UserID)
}

func TestAuthorization(t *testing.T) {
	h := newHarness(t)
	viewer := h.login("viewer", storetest.ViewerPassword)
	root := h.login("root", storetest.RootPassword)

	status, env := h.do(http.MethodDelete, "/api/roles/r1", viewer, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "no permission", env.Message)

	status, _ = h.do(http.MethodDelete, "/api/roles/r1", root, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = h.do(http.MethodDelete, "/api/roles/admin", root, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "admin role is immutable", env.Message)

	status, _ = h.do(http.MethodDelete, "/api/roles/ghost", root, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestWritesInvalidateCache(t *testing.T) {
	h := newHarness(t)
	alice := h.login("alice", storetest.AlicePassword)
	root := h.login("root", storetest.RootPassword)

	assert.Equal(t, []string{"a", "b", "c", "d", "monitor:job:list"}, h.me(alice).Permissions)
	assert.True(t, h.mr.Exists("role-permissions:r1"))
	assert.True(t, h.mr.Exists("user-roles:2"))

	status, _ := h.do(http.MethodPut, "/api/roles/r1/permissions", root, map[string]any{"permissions": []string{"a", "z"}})
	require.Equal(t, http.StatusOK, status)
	assert.False(t, h.mr.Exists("role-permissions:r1"))
	assert.Equal(t, []string{"a", "b", "c", "d", "monitor:job:list", "z"}, h.me(alice).Permissions)

	status, _ = h.do(http.MethodPut, "/api/users/2/roles", root, map[string]any{"roles": []string{"viewer"}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"d", "monitor:job:list", "system:user:list"}, h.me(alice).Permissions)

	status, _ = h.do(http.MethodDelete, "/api/roles/viewer", root, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"d", "monitor:job:list"}, h.me(alice).Permissions)

	status, _ = h.do(http.MethodPut, "/api/users/abc/roles", root, map[string]any{"roles": []string{}})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCacheOutageDegradesToStore(t *testing.T) {
	h := newHarness(t)
	token := h.login("alice", storetest.AlicePassword)
	h.mr.Close()

	assert.Equal(t, []string{"a", "b", "c", "d", "monitor:job:list"}, h.me(token).Permissions)
}

func postToken(t *testing.T, h *harness, form url.Values) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := h.srv.App.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func clientForm(id, secret, scope string) url.Values {
	form := url.Values{"grant_type": {"client_credentials"}, "client_id": {id}, "client_secret": {secret}}
	if scope != "" {
		form.Set("scope", scope)
	}
	return form
}

func TestClientCredentials(t *testing.T) {
	h := newHarness(t)

	status, body := postToken(t, h, clientForm("reporting", storetest.ReportingSecret, "x w"))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Bearer", body["token_type"])
	assert.Equal(t, "x", body["scope"])
	assert.EqualValues(t, 3600, body["expires_in"])

	claims, err := h.srv.Codec.Verify(body["access_token"].(string))
	require.NoError(t, err)
	assert.True(t, claims.IsClient())
	assert.Equal(t, []string{"x"}, claims.Scopes)

	status, body = postToken(t, h, clientForm("ops", storetest.OpsSecret, ""))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "*:*:*", body["scope"])
	assert.EqualValues(t, 600, body["expires_in"])
}

func TestClientCredentialsRejections(t *testing.T) {
	h := newHarness(t)
	password := clientForm("reporting", storetest.ReportingSecret, "")
	password.Set("grant_type", "password")
	missing := clientForm("reporting", "", "")
	missing.Del("client_secret")
	passwordOnly := url.Values{"grant_type": {"password"}, "username": {"alice"}, "password": {"x"}}
	noGrant := clientForm("reporting", storetest.ReportingSecret, "")
	noGrant.Del("grant_type")

	tests := []struct {
		name   string
		form   url.Values
		status int
		code   string
	}{
		{"scope exceeds grant", clientForm("reporting", storetest.ReportingSecret, "w"), http.StatusBadRequest, "invalid_scope"},
		{"wrong secret", clientForm("reporting", "nope", ""), http.StatusUnauthorized, "invalid_client"},
		{"unknown client", clientForm("nobody", "nope", ""), http.StatusUnauthorized, "invalid_client"},
		{"disabled client", clientForm("retired", storetest.RetiredSecret, ""), http.StatusBadRequest, "unauthorized_client"},
		{"unsupported grant", password, http.StatusBadRequest, "unsupported_grant_type"},
		{"missing secret", missing, http.StatusBadRequest, "invalid_request"},
		{"password grant without client fields", passwordOnly, http.StatusBadRequest, "unsupported_grant_type"},
		{"missing grant type", noGrant, http.StatusBadRequest, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := postToken(t, h, tt.form)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body["error"])
			assert.NotContains(t, body, "access_token")
		})
	}
}

func TestClientTokensUseScopes(t *testing.T) {
	h := newHarness(t)

	_, ops := postToken(t, h, clientForm("ops", storetest.OpsSecret, ""))
	_, reporting := postToken(t, h, clientForm("reporting", storetest.ReportingSecret, ""))

	status, _ := h.do(http.MethodPut, "/api/users/3/roles", ops["access_token"].(string), map[string]any{"roles": []string{"r1"}})
	assert.Equal(t, http.StatusOK, status)

	status, _ = h.do(http.MethodPut, "/api/users/3/roles", reporting["access_token"].(string), map[string]any{"roles": []string{"r1"}})
	assert.Equal(t, http.StatusForbidden, status)

	// 机器令牌不能访问会话接口
	status, _ = h.do(http.MethodGet, "/me", ops["access_token"].(string), nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = h.do(http.MethodPost, "/refresh", ops["access_token"].(string), nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)
	h.login("viewer", storetest.ViewerPassword)

	resp, err := h.srv.App.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = h.srv.App.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `authcore_tokens_issued_total{kind="user"} 1`)
	assert.Contains(t, string(data), "go_goroutines")
}

func TestLoginRateLimit(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.RateLimit.Max = 2 })
	for i := 0; i < 2; i++ {
		status, _ := h.do(http.MethodPost, "/login", "", map[string]string{"username": "alice", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, status)
	}
	status, _ := h.do(http.MethodPost, "/login", "", map[string]string{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestAllRoutesRegistered(t *testing.T) {
	h := newHarness(t)
	assert.Empty(t, h.srv.Routes.Missing())
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Token.Secret = ""
	_, err := server.New(server.Options{Config: cfg, DB: storetest.Open(t)})
	assert.Error(t, err)
}
