package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/minijohn/internal/config"
	jwtx "github.com/dropDatabas3/minijohn/internal/jwt"
	"github.com/dropDatabas3/minijohn/internal/security/password"
)

const baseYAML = `
issuer: http://idp.test
base_url: http://idp.test
allowed_origins: http://app.test
users:
  - id: "1"
    username: alice
    password: wonderland
    attributes:
      email: alice@example.com
      roles: [admin]
  - id: "2"
    username: bob
    password: builder
    disabled: true
clients:
  - id: web
    secret: s3cret
    redirect_uris: [http://app.test/cb]
    audience: api://web
  - id: spa
    redirect_uri: http://spa.test/cb
map_access_token_claims:
  roles: roles
map_identity_token_claims:
  email: email
oauth2:
  issue_refresh_token: true
log:
  level: error
`

var testKeyPEM = sync.OnceValue(func() string {
	priv, err := jwtx.GenerateRSAKey(2048)
	if err != nil {
		panic(err)
	}
	b, err := jwtx.EncodePrivateKeyPEM(priv)
	if err != nil {
		panic(err)
	}
	return string(b)
})

// clock reloj manual compartido por services y emisor.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	app   *App
	srv   *httptest.Server
	clock *clock
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	cfg, err := config.Parse([]byte(baseYAML))
	require.NoError(t, err)
	cfg.Keys.PrivateKeyPEM = testKeyPEM()
	if mutate != nil {
		mutate(cfg)
	}

	clk := &clock{now: time.Now()}
	a, err := New(context.Background(), cfg, Options{
		Now:            clk.Now,
		PasswordParams: password.Fast,
		Registry:       prometheus.NewRegistry(),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(a.Handler)
	t.Cleanup(func() {
		srv.Close()
		require.NoError(t, a.Close())
	})
	return &testEnv{app: a, srv: srv, clock: clk}
}

// noRedirect deja ver el 302 de /oauth2/authorize/submit.
func (e *testEnv) client() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := e.client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) (*http.Response, []byte) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return e.do(t, req)
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values, basicUser, basicPass string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if basicUser != "" {
		req.SetBasicAuth(basicUser, basicPass)
	}
	return e.do(t, req)
}

func (e *testEnv) get(t *testing.T, path, bearer string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return e.do(t, req)
}

func (e *testEnv) send(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.do(t, req)
}

func decodeMap(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m), string(b))
	return m
}

// claimsOf decodifica el payload sin verificar firma.
func claimsOf(t *testing.T, raw string) map[string]any {
	t.Helper()
	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	b, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	return decodeMap(t, b)
}

func (e *testEnv) login(t *testing.T, username, pass string, refresh bool) map[string]any {
	t.Helper()
	resp, body := e.postJSON(t, "/login/init", map[string]any{
		"username": username, "password": pass, "client_id": "web", "issue_refresh_token": refresh,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	chID := decodeMap(t, body)["challenge_id"].(string)
	require.NotEmpty(t, chID)

	resp, body = e.postJSON(t, "/login/complete", map[string]any{"challenge_id": chID, "challenge_data": "123456"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	return decodeMap(t, body)
}

// ─── Login API ───

func TestLoginFlow_InitCompleteRefresh(t *testing.T) {
	e := newTestEnv(t, nil)

	toks := e.login(t, "alice", "wonderland", true)
	at, _ := toks["access_token"].(string)
	it, _ := toks["identity_token"].(string)
	rt, _ := toks["refresh_token"].(string)
	require.NotEmpty(t, at)
	require.NotEmpty(t, it)
	require.NotEmpty(t, rt)

	ac := claimsOf(t, at)
	require.Equal(t, "1", ac["sub"])
	require.Equal(t, "api://web", ac["aud"])
	require.Equal(t, "access", ac["token_use"])
	require.Equal(t, "openid profile", ac["scope"])
	require.Equal(t, []any{"admin"}, ac["roles"])
	require.NotContains(t, ac, "email")

	ic := claimsOf(t, it)
	require.Equal(t, "identity", ic["token_use"])
	require.Equal(t, "alice@example.com", ic["email"])

	// el access token sirve para /userinfo y /me
	resp, body := e.get(t, "/userinfo", at)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	ui := decodeMap(t, body)
	require.Equal(t, "1", ui["sub"])
	require.Equal(t, "alice@example.com", ui["email"])

	resp, body = e.get(t, "/me", at)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	me := decodeMap(t, body)
	require.Equal(t, "alice", me["username"])
	require.NotContains(t, string(body), "password")

	// el identity token no es un bearer válido
	resp, _ = e.get(t, "/userinfo", it)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// rotación
	resp, body = e.postJSON(t, "/login/refresh", map[string]any{"refresh_token": rt})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	next := decodeMap(t, body)
	rt2, _ := next["refresh_token"].(string)
	require.NotEmpty(t, rt2)
	require.NotEqual(t, rt, rt2)
	require.Equal(t, "1", claimsOf(t, next["access_token"].(string))["sub"])

	// reuso del token rotado
	resp, body = e.postJSON(t, "/login/refresh", map[string]any{"refresh_token": rt})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_refresh_token", decodeMap(t, body)["error"])

	// el sucesor sigue siendo válido exactamente una vez
	resp, _ = e.postJSON(t, "/login/refresh", map[string]any{"refresh_token": rt2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginComplete_NoRefreshUnlessRequested(t *testing.T) {
	e := newTestEnv(t, nil)
	toks := e.login(t, "alice", "wonderland", false)
	require.NotContains(t, toks, "refresh_token")
}

func TestLoginInit_Failures(t *testing.T) {
	e := newTestEnv(t, nil)

	cases := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"wrong password", map[string]any{"username": "alice", "password": "nope", "client_id": "web"}, http.StatusUnauthorized, "invalid_credentials"},
		{"unknown user", map[string]any{"username": "mallory", "password": "x", "client_id": "web"}, http.StatusUnauthorized, "invalid_credentials"},
		{"disabled user", map[string]any{"username": "bob", "password": "builder", "client_id": "web"}, http.StatusUnauthorized, "user_disabled"},
		{"unknown client", map[string]any{"username": "alice", "password": "wonderland", "client_id": "nope"}, http.StatusBadRequest, "invalid_client"},
		{"missing client", map[string]any{"username": "alice", "password": "wonderland"}, http.StatusBadRequest, "missing_fields"},
	}
	for _, tc := range cases {
		resp, body := e.postJSON(t, "/login/init", tc.body)
		require.Equal(t, tc.status, resp.StatusCode, "%s: %s", tc.name, body)
		require.Equal(t, tc.code, decodeMap(t, body)["error"], tc.name)
	}
}

func TestLoginInit_QueryClientIDWins(t *testing.T) {
	e := newTestEnv(t, nil)
	resp, body := e.postJSON(t, "/login/init?client_id=spa", map[string]any{
		"username": "alice", "password": "wonderland", "client_id": "nope",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = e.postJSON(t, "/login/complete", map[string]any{"challenge_id": decodeMap(t, body)["challenge_id"]})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Equal(t, "spa", claimsOf(t, decodeMap(t, body)["access_token"].(string))["aud"])
}

func TestLoginComplete_ChallengeIsSingleUseUnderConcurrency(t *testing.T) {
	e := newTestEnv(t, nil)
	resp, body := e.postJSON(t, "/login/init", map[string]any{"username": "alice", "password": "wonderland", "client_id": "web"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	chID := decodeMap(t, body)["challenge_id"]

	const n = 16
	var ok, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, _ := json.Marshal(map[string]any{"challenge_id": chID})
			r, err := http.Post(e.srv.URL+"/login/complete", "application/json", bytes.NewReader(b))
			if err != nil {
				return
			}
			_ = r.Body.Close()
			switch r.StatusCode {
			case http.StatusOK:
				ok.Add(1)
			case http.StatusUnauthorized:
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, ok.Load())
	require.EqualValues(t, n-1, rejected.Load())
}

func TestLoginComplete_ExpiredChallenge(t *testing.T) {
	e := newTestEnv(t, nil)
	resp, body := e.postJSON(t, "/login/init", map[string]any{"username": "alice", "password": "wonderland", "client_id": "web"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	chID := decodeMap(t, body)["challenge_id"]

	e.clock.Advance(5*time.Minute + time.Second)
	resp, body = e.postJSON(t, "/login/complete", map[string]any{"challenge_id": chID})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_challenge", decodeMap(t, body)["error"])
}

func TestLoginComplete_StaticVerifier(t *testing.T) {
	e := newTestEnv(t, func(c *config.Config) {
		c.LoginAPI.Verifier = "static"
		c.LoginAPI.StaticCode = "424242"
	})
	resp, body := e.postJSON(t, "/login/init", map[string]any{"username": "alice", "password": "wonderland", "client_id": "web"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	chID := decodeMap(t, body)["challenge_id"]

	resp, _ = e.postJSON(t, "/login/complete", map[string]any{"challenge_id": chID, "challenge_data": "000000"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// un challenge_data incorrecto no quema el challenge
	resp, body = e.postJSON(t, "/login/complete", map[string]any{"challenge_id": chID, "challenge_data": "424242"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
}

func TestLoginComplete_StaticVerifierBurnsAfterMaxAttempts(t *testing.T) {
	e := newTestEnv(t, func(c *config.Config) {
		c.LoginAPI.Verifier = "static"
		c.LoginAPI.StaticCode = "424242"
		c.LoginAPI.MaxChallengeAttempts = 3
	})
	resp, body := e.postJSON(t, "/login/init", map[string]any{"username": "alice", "password": "wonderland", "client_id": "web"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	chID := decodeMap(t, body)["challenge_id"]

	for i := 0; i < 3; i++ {
		resp, _ = e.postJSON(t, "/login/complete", map[string]any{"challenge_id": chID, "challenge_data": "00000" + string(rune('0'+i))})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	// agotados los intentos, el código correcto ya no sirve
	resp, body = e.postJSON(t, "/login/complete", map[string]any{"challenge_id": chID, "challenge_data": "424242"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode, string(body))
	require.Equal(t, "invalid_challenge", decodeMap(t, body)["error"])
}

func TestRefresh_UserDisabledAfterIssue(t *testing.T) {
	e := newTestEnv(t, nil)
	rt := e.login(t, "alice", "wonderland", true)["refresh_token"].(string)

	resp, _ := e.send(t, http.MethodPost, "/users/1/disable", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := e.postJSON(t, "/login/refresh", map[string]any{"refresh_token": rt})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode, string(body))
}

func TestAccessToken_ExpiresWithClock(t *testing.T) {
	e := newTestEnv(t, nil)
	at := e.login(t, "alice", "wonderland", false)["access_token"].(string)

	resp, _ := e.get(t, "/me", at)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	e.clock.Advance(15 * time.Minute)
	resp, _ = e.get(t, "/me", at)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))
}

// ─── OAuth2 authorization code ───

func authorizeQuery(clientID, redirect string) url.Values {
	return url.Values{
		"response_type": {"code"},
		"client_id":     {clientID},
		"redirect_uri":  {redirect},
		"scope":         {"openid email"},
		"state":         {"xyz"},
		"nonce":         {"n-0S6"},
	}
}

func (e *testEnv) authorizeCode(t *testing.T, q url.Values) string {
	t.Helper()
	form := url.Values{}
	for k, v := range q {
		form[k] = v
	}
	form.Set("username", "alice")
	form.Set("password", "wonderland")

	resp, body := e.postForm(t, "/oauth2/authorize/submit", form, "", "")
	require.Equal(t, http.StatusFound, resp.StatusCode, string(body))
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, q.Get("redirect_uri"), loc.Scheme+"://"+loc.Host+loc.Path)
	require.Equal(t, q.Get("state"), loc.Query().Get("state"))
	code := loc.Query().Get("code")
	require.NotEmpty(t, code)
	return code
}

func TestOAuthFlow_AuthorizeSubmitToken(t *testing.T) {
	e := newTestEnv(t, nil)
	q := authorizeQuery("web", "http://app.test/cb")

	resp, body := e.get(t, "/oauth2/authorize?"+q.Encode(), "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	require.Contains(t, string(body), `name="username"`)
	require.Contains(t, string(body), `value="xyz"`)

	code := e.authorizeCode(t, q)

	resp, body = e.postForm(t, "/oauth2/token", url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {"http://app.test/cb"},
	}, "web", "s3cret")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	tok := decodeMap(t, body)
	require.Equal(t, "Bearer", tok["token_type"])
	require.EqualValues(t, 900, tok["expires_in"])
	require.Equal(t, "openid email", tok["scope"])
	require.NotEmpty(t, tok["refresh_token"])

	idc := claimsOf(t, tok["id_token"].(string))
	require.Equal(t, "n-0S6", idc["nonce"])
	require.Equal(t, "1", idc["sub"])
	require.Equal(t, "web", idc["client_id"])

	// el code ya se consumió
	resp, body = e.postForm(t, "/oauth2/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {"http://app.test/cb"},
		"client_id":     {"web"},
		"client_secret": {"s3cret"},
	}, "", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_grant", decodeMap(t, body)["error"])
}

func TestOAuthToken_MismatchBurnsCode(t *testing.T) {
	e := newTestEnv(t, func(c *config.Config) {
		c.Clients = append(c.Clients, config.Client{ID: "other", Secret: "x", RedirectURIs: []string{"http://other.test/cb"}})
	})
	code := e.authorizeCode(t, authorizeQuery("web", "http://app.test/cb"))

	// otro cliente presenta el code
	resp, body := e.postForm(t, "/oauth2/token", url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {"http://app.test/cb"},
	}, "other", "x")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
	require.Equal(t, "invalid_grant", decodeMap(t, body)["error"])

	// el dueño legítimo ya no puede canjearlo
	resp, _ = e.postForm(t, "/oauth2/token", url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {"http://app.test/cb"},
	}, "web", "s3cret")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOAuthToken_ClientErrors(t *testing.T) {
	e := newTestEnv(t, nil)

	resp, body := e.postForm(t, "/oauth2/token", url.Values{"grant_type": {"password"}}, "web", "s3cret")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "unsupported_grant_type", decodeMap(t, body)["error"])

	resp, body = e.postForm(t, "/oauth2/token", url.Values{"grant_type": {"authorization_code"}, "code": {"x"}}, "web", "wrong")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_client", decodeMap(t, body)["error"])

	resp, body = e.postForm(t, "/oauth2/token", url.Values{"code": {"x"}}, "web", "s3cret")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_request", decodeMap(t, body)["error"])

	resp, body = e.postForm(t, "/oauth2/token", url.Values{
		"grant_type": {"authorization_code"}, "code": {"x"}, "client_id": {"spa"},
	}, "web", "s3cret")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_request", decodeMap(t, body)["error"])
	// cliente público: presentar un secreto es un error
	resp, body = e.postForm(t, "/oauth2/token", url.Values{"grant_type": {"authorization_code"}, "code": {"x"}}, "spa", "made-up")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_client", decodeMap(t, body)["error"])
}

func TestOAuthSubmit_BadCredentialsRendersForm(t *testing.T) {
	e := newTestEnv(t, nil)
	form := authorizeQuery("web", "http://app.test/cb")
	form.Set("username", "alice")
	form.Set("password", "wrong")

	resp, body := e.postForm(t, "/oauth2/authorize/submit", form, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "Invalid username or password")
	require.Contains(t, string(body), `value="alice"`)
}

func TestOAuthSubmit_RequiresChallenge(t *testing.T) {
	e := newTestEnv(t, func(c *config.Config) {
		yes := true
		c.OAuth2.RequireChallengeOnLogin = &yes
	})
	form := authorizeQuery("web", "http://app.test/cb")
	form.Set("username", "alice")
	form.Set("password", "wonderland")

	resp, body := e.postForm(t, "/oauth2/authorize/submit", form, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "Challenge is required")

	form.Set("challenge", "123456")
	resp, _ = e.postForm(t, "/oauth2/authorize/submit", form, "", "")
	require.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestOAuthAuthorize_RejectsBadRequests(t *testing.T) {
	e := newTestEnv(t, nil)

	q := authorizeQuery("web", "http://evil.test/cb")
	resp, _ := e.get(t, "/oauth2/authorize?"+q.Encode(), "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	q = authorizeQuery("web", "http://app.test/cb")
	q.Set("response_type", "token")
	resp, _ = e.get(t, "/oauth2/authorize?"+q.Encode(), "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOAuthCode_Expires(t *testing.T) {
	e := newTestEnv(t, nil)
	code := e.authorizeCode(t, authorizeQuery("web", "http://app.test/cb"))

	e.clock.Advance(10*time.Minute + time.Second)
	resp, body := e.postForm(t, "/oauth2/token", url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {"http://app.test/cb"},
	}, "web", "s3cret")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_grant", decodeMap(t, body)["error"])
}

// ─── Superficies deshabilitadas ───

func TestDisabledSurfaces_NotRouted(t *testing.T) {
	no := false
	e := newTestEnv(t, func(c *config.Config) {
		c.OAuth2.Enabled = &no
		c.LoginAPI.Enabled = &no
	})

	resp, body := e.get(t, "/oauth2/authorize?"+authorizeQuery("web", "http://app.test/cb").Encode(), "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "not_found", decodeMap(t, body)["error"])

	resp, _ = e.postJSON(t, "/login/init", map[string]any{"username": "alice"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = e.get(t, "/.well-known/openid-configuration", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	meta := decodeMap(t, body)
	require.NotContains(t, meta, "authorization_endpoint")
	require.NotContains(t, meta, "token_endpoint")
}

// ─── /users ───

func TestUsersCRUD(t *testing.T) {
	e := newTestEnv(t, nil)

	resp, body := e.send(t, http.MethodPut, "/users/42", map[string]any{
		"username": "carol", "password": "pa55", "attributes": map[string]any{"email": "carol@example.com"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	require.NotContains(t, string(body), "pa55")
	require.Equal(t, "carol", decodeMap(t, body)["username"])

	// la password recién creada sirve para loguearse
	at := e.login(t, "carol", "pa55", false)["access_token"].(string)
	require.Equal(t, "42", claimsOf(t, at)["sub"])

	resp, _ = e.send(t, http.MethodPut, "/users/42", map[string]any{"attributes": map[string]any{"email": "c@example.com"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = e.get(t, "/users/42", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	u := decodeMap(t, body)
	require.Equal(t, "carol", u["username"])
	require.Equal(t, "c@example.com", u["attributes"].(map[string]any)["email"])

	resp, body = e.send(t, http.MethodPut, "/users/43", map[string]any{"username": "carol", "password": "x"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "username_taken", decodeMap(t, body)["error"])

	resp, body = e.send(t, http.MethodPut, "/users/44", map[string]any{"username": "dave"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "missing_fields", decodeMap(t, body)["error"])

	resp, body = e.get(t, "/users", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 3)

	resp, _ = e.send(t, http.MethodPost, "/users/42/disable", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, body = e.postJSON(t, "/login/init", map[string]any{"username": "carol", "password": "pa55", "client_id": "web"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "user_disabled", decodeMap(t, body)["error"])

	// el token emitido antes de deshabilitar deja de servir
	resp, _ = e.get(t, "/me", at)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.send(t, http.MethodPost, "/users/42/enable", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	e.login(t, "carol", "pa55", false)

	resp, body = e.send(t, http.MethodDelete, "/users/42", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "User deleted", decodeMap(t, body)["message"])

	resp, body = e.get(t, "/users/42", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "user_not_found", decodeMap(t, body)["error"])

	resp, _ = e.send(t, http.MethodPost, "/users/42/enable", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUsersPut_PHCLookingPasswordCanLogin(t *testing.T) {
	e := newTestEnv(t, nil)
	const pw = "$argon2id$my-literal-password"

	resp, body := e.send(t, http.MethodPut, "/users/p1", map[string]any{"username": "phc", "password": pw})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	at := e.login(t, "phc", pw, false)["access_token"].(string)
	require.Equal(t, "p1", claimsOf(t, at)["sub"])
}

// ─── Discovery, JWKS, health, métricas, CORS ───

func TestDiscoveryAndJWKS(t *testing.T) {
	e := newTestEnv(t, nil)

	resp, body := e.get(t, "/.well-known/openid-configuration", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	meta := decodeMap(t, body)
	require.Equal(t, "http://idp.test", meta["issuer"])
	require.Equal(t, "http://idp.test/.well-known/jwks.json", meta["jwks_uri"])
	require.Equal(t, "http://idp.test/oauth2/token", meta["token_endpoint"])
	require.Contains(t, meta["grant_types_supported"], "refresh_token")
	require.Contains(t, meta["claims_supported"], "roles")
	require.Contains(t, meta["claims_supported"], "email")

	resp, body = e.get(t, "/.well-known/jwks.json", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	var jwks struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(body, &jwks))
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, e.app.Issuer.Keys().KID(), jwks.Keys[0]["kid"])
	require.Equal(t, "RS256", jwks.Keys[0]["alg"])

	// un token emitido se verifica con la clave publicada
	at := e.login(t, "alice", "wonderland", false)["access_token"].(string)
	tok, err := jwtv5.Parse(at, func(tk *jwtv5.Token) (any, error) {
		require.Equal(t, jwks.Keys[0]["kid"], tk.Header["kid"])
		return e.app.Issuer.Keys().PublicKey(), nil
	}, jwtv5.WithTimeFunc(e.clock.Now))
	require.NoError(t, err)
	require.True(t, tok.Valid)

	req, err := http.NewRequest(http.MethodGet, e.srv.URL+"/.well-known/jwks.json", nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", etag)
	resp, _ = e.do(t, req)
	require.Equal(t, http.StatusNotModified, resp.StatusCode)
}

func TestHealthzAndMetrics(t *testing.T) {
	e := newTestEnv(t, nil)

	resp, body := e.get(t, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "OK", decodeMap(t, body)["status"])

	e.login(t, "alice", "wonderland", true)

	resp, body = e.get(t, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "minijohn_tokens_issued_total")
	require.Contains(t, string(body), `minijohn_handle_consume_total{kind="challenge",result="ok"}`)
	require.Contains(t, string(body), "http_requests_total")
}

func TestMetricsDisabled(t *testing.T) {
	no := false
	e := newTestEnv(t, func(c *config.Config) { c.Metrics.Enabled = &no })
	resp, _ := e.get(t, "/metrics", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	e := newTestEnv(t, nil)

	req, err := http.NewRequest(http.MethodOptions, e.srv.URL+"/login/init", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://app.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, _ := e.do(t, req)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "http://app.test", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	req, err = http.NewRequest(http.MethodGet, e.srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.test")
	resp, _ = e.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "http://app.test", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestRateLimit_CredentialEndpoints(t *testing.T) {
	e := newTestEnv(t, func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.Limit = 2
	})
	body := map[string]any{"username": "alice", "password": "nope", "client_id": "web"}
	for i := 0; i < 2; i++ {
		resp, _ := e.postJSON(t, "/login/init", body)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp, b := e.postJSON(t, "/login/init", body)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "rate_limit_exceeded", decodeMap(t, b)["error"])

	// los endpoints públicos no comparten el límite
	resp, _ = e.get(t, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownRoute_JSON404(t *testing.T) {
	e := newTestEnv(t, nil)
	resp, body := e.get(t, "/nope", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "not_found", decodeMap(t, body)["error"])
}

func TestNew_RejectsSeedUserWithoutPassword(t *testing.T) {
	cfg, err := config.Parse([]byte(baseYAML))
	require.NoError(t, err)
	cfg.Keys.PrivateKeyPEM = testKeyPEM()
	cfg.Users = append(cfg.Users, config.User{ID: "9", Username: "nopass"})

	_, err = New(context.Background(), cfg, Options{PasswordParams: password.Fast, Registry: prometheus.NewRegistry()})
	require.ErrorIs(t, err, password.ErrEmpty)
}

func TestClose_Idempotent(t *testing.T) {
	e := newTestEnv(t, nil)
	require.NoError(t, e.app.Close())
	require.NoError(t, e.app.Close())
}
