package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"timetrkr/internal/core/config"
	"timetrkr/internal/domain"
)

// oidcStub 最小可用的 OIDC 提供方：metadata / token / userinfo / logout
func oidcStub(t *testing.T, email string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"authorization_endpoint": srv.URL + "/authorize",
			"token_endpoint":         srv.URL + "/token",
			"userinfo_endpoint":      srv.URL + "/userinfo",
			"end_session_endpoint":   srv.URL + "/logout",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at-1","token_type":"bearer"}`)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"email": email, "sub": "42"})
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func oauCfgFor(srv *httptest.Server) config.OAuth2 {
	return config.OAuth2{
		ClientID:      "timetrkr",
		ClientSecret:  "shh",
		MetadataURL:   srv.URL + "/.well-known/openid-configuration",
		Scope:         "openid email",
		RedirectURL:   "http://localhost/api/users/oauth2-authorize",
		UsernameField: "email",
		FinalURL:      "/?oauth2",
		TimeoutSec:    5,
	}
}

func TestUsersAPI_List(t *testing.T) {
	a := newTestAPI(t, config.OAuth2{FinalURL: "/?oauth2"})

	// 两个用户在首次请求时自动建档
	a.do(t, http.MethodGet, "/api/records/", "alice", nil)
	a.do(t, http.MethodGet, "/api/records/", "bob", nil)

	w := a.do(t, http.MethodGet, "/api/users/", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	out := decodeJSON[struct {
		Users []domain.User `json:"users"`
	}](t, w)
	if len(out.Users) != 2 {
		t.Fatalf("users = %d, want 2", len(out.Users))
	}
}

func TestUsersAPI_Token(t *testing.T) {
	a := newTestAPI(t, config.OAuth2{})

	w := a.do(t, http.MethodGet, "/api/users/token", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	out := decodeJSON[struct {
		Token string `json:"token"`
	}](t, w)
	claims, err := a.jwter.Parse(out.Token)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.Username != "alice" || claims.UserID == nil {
		t.Fatalf("claims = %+v", claims)
	}

	// 匿名要不到令牌
	w = a.do(t, http.MethodGet, "/api/users/token", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous token: status = %d, want 401", w.Code)
	}
}

func TestUsersAPI_TokenRoundTrip(t *testing.T) {
	a := newTestAPI(t, config.OAuth2{})

	w := a.do(t, http.MethodGet, "/api/users/token", "alice", nil)
	tok := decodeJSON[struct {
		Token string `json:"token"`
	}](t, w).Token

	// 拿发出的令牌换身份再签一张
	req := httptest.NewRequest(http.MethodGet, "/api/users/token", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	a.r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("bearer token: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestUsersAPI_LoginNotImplemented(t *testing.T) {
	a := newTestAPI(t, config.OAuth2{})
	w := a.do(t, http.MethodGet, "/api/users/login", "", nil)
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", w.Code)
	}
}

func TestUsersAPI_Logout(t *testing.T) {
	a := newTestAPI(t, config.OAuth2{FinalURL: "/?oauth2"})

	w := a.do(t, http.MethodGet, "/api/users/logout", "alice", nil)
	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/?oauth2" {
		t.Fatalf("location = %q", loc)
	}
	cleared := false
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "tmtrkr-token" && ck.Value == "" {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("session cookie not cleared")
	}
}

func TestUsersAPI_OAuth2Disabled(t *testing.T) {
	a := newTestAPI(t, config.OAuth2{})
	w := a.do(t, http.MethodGet, "/api/users/oauth2-login", "", nil)
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", w.Code)
	}
}

func TestUsersAPI_OAuth2Flow(t *testing.T) {
	provider := oidcStub(t, "carol@example.com")
	a := newTestAPI(t, oauCfgFor(provider))

	// 第一步：跳去提供方授权页
	w := a.do(t, http.MethodGet, "/api/users/oauth2-login?state=s1", "", nil)
	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("login: status = %d, body %s", w.Code, w.Body.String())
	}
	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, provider.URL+"/authorize") {
		t.Fatalf("login: location = %q", loc)
	}
	if !strings.Contains(loc, "client_id=timetrkr") || !strings.Contains(loc, "state=s1") {
		t.Fatalf("login: location missing params: %q", loc)
	}

	// 第二步：回调换身份，种下会话 cookie
	w = a.do(t, http.MethodGet, "/api/users/oauth2-authorize?code=c1&state=s1", "", nil)
	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("authorize: status = %d, body %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/?oauth2" {
		t.Fatalf("authorize: location = %q", loc)
	}
	var session *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "tmtrkr-token" && ck.Value != "" {
			session = ck
		}
	}
	if session == nil {
		t.Fatal("authorize: no session cookie set")
	}

	// 用户已建档
	var count int64
	if err := a.db.Model(&domain.User{}).Where("name = ?", "carol@example.com").Count(&count).Error; err != nil || count != 1 {
		t.Fatalf("user rows = %d (err %v), want 1", count, err)
	}

	// cookie 能当身份用
	req := httptest.NewRequest(http.MethodGet, "/api/users/token", nil)
	req.AddCookie(session)
	rec := httptest.NewRecorder()
	a.r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cookie identity: status = %d, body %s", rec.Code, rec.Body.String())
	}

	// 注销跳去提供方的注销端点
	w = a.do(t, http.MethodGet, "/api/users/oauth2-logout", "", nil)
	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("oauth2-logout: status = %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != provider.URL+"/logout" {
		t.Fatalf("oauth2-logout: location = %q", loc)
	}
}

// 出厂默认不允许匿名访问业务路由；登录链路必须照常可达，
// 否则匿名用户永远完成不了第一次登录
func TestUsersAPI_SessionReachableWhenAnonymousDenied(t *testing.T) {
	provider := oidcStub(t, "dave@example.com")
	a := newTestAPIMode(t, oauCfgFor(provider), false)

	// 业务路由对匿名关门
	if w := a.do(t, http.MethodGet, "/api/records/", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous records: status = %d, want 401", w.Code)
	}
	if w := a.do(t, http.MethodGet, "/api/users/token", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous token: status = %d, want 401", w.Code)
	}

	// 登录链路对匿名开放
	if w := a.do(t, http.MethodGet, "/api/users/login", "", nil); w.Code != http.StatusNotImplemented {
		t.Fatalf("login: status = %d, want 501", w.Code)
	}
	if w := a.do(t, http.MethodGet, "/api/users/logout", "", nil); w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("logout: status = %d, want 307", w.Code)
	}
	if w := a.do(t, http.MethodGet, "/api/users/oauth2-login", "", nil); w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("oauth2-login: status = %d, want 307", w.Code)
	}

	// 带失效 cookie 的用户也要能走到重新登录
	req := httptest.NewRequest(http.MethodGet, "/api/users/oauth2-login", nil)
	req.AddCookie(&http.Cookie{Name: "tmtrkr-token", Value: "not.a.token"})
	rec := httptest.NewRecorder()
	a.r.ServeHTTP(rec, req)
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("oauth2-login with stale cookie: status = %d, want 307", rec.Code)
	}

	// 回调落点没有任何身份也必须走通
	w := a.do(t, http.MethodGet, "/api/users/oauth2-authorize?code=c1", "", nil)
	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("oauth2-authorize: status = %d, body %s", w.Code, w.Body.String())
	}
	var session *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "tmtrkr-token" && ck.Value != "" {
			session = ck
		}
	}
	if session == nil {
		t.Fatal("oauth2-authorize: no session cookie set")
	}

	// 登录完成后业务路由开门
	req = httptest.NewRequest(http.MethodGet, "/api/users/token", nil)
	req.AddCookie(session)
	rec = httptest.NewRecorder()
	a.r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("token after login: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestUsersAPI_OAuth2MissingCode(t *testing.T) {
	provider := oidcStub(t, "carol@example.com")
	a := newTestAPI(t, oauCfgFor(provider))

	w := a.do(t, http.MethodGet, "/api/users/oauth2-authorize", "", nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}
