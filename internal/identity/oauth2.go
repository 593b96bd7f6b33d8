package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"timetrkr/internal/core/config"
)

// ErrUpstreamAuth 与外部身份提供方交互失败（网络、非 2xx、缺少身份字段）
var ErrUpstreamAuth = errors.New("upstream auth failed")

// providerMetadata OIDC 发现文档里我们关心的端点
type providerMetadata struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	EndSessionEndpoint    string `json:"end_session_endpoint"`
}

// OAuth2Client 委托登录客户端。
//
// 提供方元数据按需拉取、成功后进程内缓存；并发首拉由 singleflight
// 合并成一次请求。显式构造注入，不放全局变量。
type OAuth2Client struct {
	cfg  config.OAuth2
	http *http.Client

	sf   singleflight.Group
	mu   sync.RWMutex
	meta *providerMetadata
}

func NewOAuth2Client(cfg config.OAuth2) *OAuth2Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OAuth2Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// Enabled 是否配置了委托登录
func (c *OAuth2Client) Enabled() bool {
	return c.cfg.ClientID != "" && c.cfg.MetadataURL != ""
}

func (c *OAuth2Client) metadata(ctx context.Context) (*providerMetadata, error) {
	c.mu.RLock()
	m := c.meta
	c.mu.RUnlock()
	if m != nil {
		return m, nil
	}

	v, err, _ := c.sf.Do("metadata", func() (any, error) {
		c.mu.RLock()
		cached := c.meta
		c.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.MetadataURL, nil)
		if err != nil {
			return nil, err
		}
		rsp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer rsp.Body.Close()
		if rsp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("metadata endpoint returned %d", rsp.StatusCode)
		}
		var meta providerMetadata
		if err := json.NewDecoder(rsp.Body).Decode(&meta); err != nil {
			return nil, err
		}
		if meta.AuthorizationEndpoint == "" || meta.TokenEndpoint == "" {
			return nil, fmt.Errorf("metadata missing endpoints")
		}
		c.mu.Lock()
		c.meta = &meta
		c.mu.Unlock()
		return &meta, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
	}
	return v.(*providerMetadata), nil
}

func (c *OAuth2Client) oauthConfig(meta *providerMetadata) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  c.cfg.RedirectURL,
		Scopes:       strings.Fields(c.cfg.Scope),
		Endpoint: oauth2.Endpoint{
			AuthURL:  meta.AuthorizationEndpoint,
			TokenURL: meta.TokenEndpoint,
		},
	}
}

// AuthCodeURL 授权第一步：构造跳去提供方的地址。
// CSRF state 由提供方/前端承担，这里透传调用方给的值。
func (c *OAuth2Client) AuthCodeURL(ctx context.Context, state string) (string, error) {
	meta, err := c.metadata(ctx)
	if err != nil {
		return "", err
	}
	return c.oauthConfig(meta).AuthCodeURL(state), nil
}

// Username 授权第二步：code 换 token，再拉 userinfo 取出配置指定的
// 身份字段。任何一步失败整个流程失败，不产生局部用户。
func (c *OAuth2Client) Username(ctx context.Context, code string) (string, error) {
	meta, err := c.metadata(ctx)
	if err != nil {
		return "", err
	}
	if meta.UserinfoEndpoint == "" {
		return "", fmt.Errorf("%w: no userinfo endpoint", ErrUpstreamAuth)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	conf := c.oauthConfig(meta)
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: exchange: %v", ErrUpstreamAuth, err)
	}

	rsp, err := conf.Client(ctx, tok).Get(meta.UserinfoEndpoint)
	if err != nil {
		return "", fmt.Errorf("%w: userinfo: %v", ErrUpstreamAuth, err)
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: userinfo returned %d", ErrUpstreamAuth, rsp.StatusCode)
	}

	var info map[string]any
	if err := json.NewDecoder(rsp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("%w: userinfo decode: %v", ErrUpstreamAuth, err)
	}
	field := c.cfg.UsernameField
	if field == "" {
		field = "email"
	}
	username, _ := info[field].(string)
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("%w: userinfo has no %q", ErrUpstreamAuth, field)
	}
	return username, nil
}

// EndSessionURL 提供方公布了注销端点则返回之，否则为空串（走本地注销）
func (c *OAuth2Client) EndSessionURL(ctx context.Context) (string, error) {
	meta, err := c.metadata(ctx)
	if err != nil {
		return "", err
	}
	return meta.EndSessionEndpoint, nil
}
