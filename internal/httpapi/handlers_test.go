package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"deckledger.org/internal/identity"
	"deckledger.org/internal/session"
	"deckledger.org/internal/tracker"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	api     *API
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	users := identity.NewService(identity.NewInMemory())
	if _, err := users.CreateUser(context.Background(), "alice", "correct horse"); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	secret := []byte("unit-test-secret-0123456789")
	guard := session.NewGuard(secret, session.NewBootSource())
	api := New(ReadyProbe{}, "test", users, guard, tracker.NewInMemory(), secret)
	api.loginBurst = 1000
	api.loginPerMin = 1000

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}

	return &apiClient{
		baseURL: srv.URL,
		client:  &http.Client{Jar: jar},
		api:     api,
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body []byte, contentType string, headers map[string]string) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) postJSON(path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	return c.do(http.MethodPost, path, payload, "application/json", headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	if params != nil {
		path += "?" + params.Encode()
	}
	return c.do(http.MethodGet, path, nil, "", headers)
}

func (c *apiClient) mustLogin() {
	c.t.Helper()
	resp := c.postJSON("/v1/auth/login", map[string]any{
		"username": "alice",
		"password": "correct horse",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("login status: %d", resp.StatusCode)
	}
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	return bytes.NewReader(jsonBytes(t, v))
}

func jsonBytes(t *testing.T, v any) []byte {
	t.Helper()
	payload, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return payload
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealthAndInfo(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/healthz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status: %d", resp.StatusCode)
	}
	health := decode[map[string]any](t, resp)
	if health["status"] != "ok" || health["service"] != "deckledger-api" {
		t.Fatalf("unexpected healthz body: %v", health)
	}

	resp = api.get("/v1/info", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("info status: %d", resp.StatusCode)
	}
	info := decode[map[string]any](t, resp)
	if info["version"] != "test" {
		t.Fatalf("unexpected info body: %v", info)
	}
}

func TestProtectedPathsRequireAuth(t *testing.T) {
	api := newTestAPI(t)

	for _, probe := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/export"},
		{http.MethodPost, "/v1/import"},
		{http.MethodGet, "/v1/results"},
		{http.MethodGet, "/v1/stats"},
		{http.MethodGet, "/v1/decks"},
		{http.MethodGet, "/v1/opponent-decks"},
		{http.MethodPost, "/v1/auth/token"},
	} {
		resp := api.do(probe.method, probe.path, nil, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", probe.method, probe.path, resp.StatusCode)
		}
		body := decode[map[string]any](t, resp)
		if body["error"] != "authentication required" {
			t.Fatalf("unexpected error body: %v", body)
		}
	}
}

func TestUnknownPathIs404(t *testing.T) {
	api := newTestAPI(t)

	// Anonymous requests to unregistered paths get the 404, not a
	// credentials demand.
	for _, path := range []string{"/v1/nope", "/nope/nested"} {
		resp := api.get(path, nil, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.StatusCode)
		}
	}

	// Registered protected paths still ask for credentials first.
	resp := api.get("/v1/results", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	api := newTestAPI(t)
	resp := api.get("/healthz", nil, map[string]string{"X-Request-Id": "req-abc"})
	defer resp.Body.Close()
	if got := resp.Header.Get("X-Request-Id"); got != "req-abc" {
		t.Fatalf("request id not echoed: %q", got)
	}

	resp = api.get("/healthz", nil, nil)
	defer resp.Body.Close()
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatal("expected generated request id")
	}
}
