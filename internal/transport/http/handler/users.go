package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"timetrkr/internal/core/auth"
	"timetrkr/internal/core/cache"
	"timetrkr/internal/core/config"
	"timetrkr/internal/domain"
	"timetrkr/internal/identity"
	mdw "timetrkr/internal/transport/http/middleware"
	resp "timetrkr/internal/transport/http/response"
)

// UsersHandler 用户列表、令牌签发和第三方委托登录。
type UsersHandler struct {
	users   domain.UserRepository
	jwter   *auth.JWTer
	oauth   *identity.OAuth2Client
	dir     *identity.Directory
	cache   *cache.Cache // 可空；配置了 redis 才注入
	authCfg config.Auth
	oauCfg  config.OAuth2
}

func NewUsersHandler(
	users domain.UserRepository,
	jwter *auth.JWTer,
	oauth *identity.OAuth2Client,
	dir *identity.Directory,
	cc *cache.Cache,
	authCfg config.Auth,
	oauCfg config.OAuth2,
) *UsersHandler {
	return &UsersHandler{
		users: users, jwter: jwter, oauth: oauth, dir: dir,
		cache: cc, authCfg: authCfg, oauCfg: oauCfg,
	}
}

func (h *UsersHandler) MountAPI(g *gin.RouterGroup) {
	ug := g.Group("/users")
	ug.GET("/", h.list)
	ug.GET("/token", h.token)
}

// MountSession 登录/注销链路。必须挂在不拦匿名的分组上：
// oauth2-authorize 是提供方带 code 跳回来的落点，此时还没有任何身份。
func (h *UsersHandler) MountSession(g *gin.RouterGroup) {
	ug := g.Group("/users")
	ug.GET("/login", h.login)
	ug.GET("/logout", h.logout)
	ug.GET("/oauth2-login", h.oauth2Login)
	ug.GET("/oauth2-authorize", h.oauth2Authorize)
	ug.GET("/oauth2-logout", h.oauth2Logout)
}

func (h *UsersHandler) list(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		users []domain.User
		err   error
	)
	if h.cache != nil {
		var cached *[]domain.User
		cached, err = cache.GetOrLoadJSON(h.cache, ctx, "users:list", 30*time.Second,
			func(ctx context.Context) (*[]domain.User, error) {
				us, e := h.users.List(ctx)
				return &us, e
			})
		if cached != nil {
			users = *cached
		}
	} else {
		users, err = h.users.List(ctx)
	}
	if err != nil {
		resp.Abort(c, resp.Internal("list users", err))
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// token 为已解析的身份签发 Bearer 令牌
func (h *UsersHandler) token(c *gin.Context) {
	username := mdw.CurrentUsername(c)
	if username == "" {
		resp.Abort(c, resp.Unauthorized("must be logged-in"))
		return
	}
	var userID *uint
	if u := mdw.CurrentUser(c); u != nil {
		userID = &u.ID
	}
	tok, err := h.jwter.Issue(username, userID)
	if err != nil {
		resp.Abort(c, resp.Internal("issue token", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok})
}

func (h *UsersHandler) login(c *gin.Context) {
	resp.Abort(c, resp.NotImplemented("use oauth2-login"))
}

// logout 本地注销：清 cookie 回落地页，不惊动外部提供方
func (h *UsersHandler) logout(c *gin.Context) {
	h.clearSessionCookie(c)
	c.Redirect(http.StatusTemporaryRedirect, h.finalURL())
}

// oauth2Login 委托登录第一步：跳去外部授权端点
func (h *UsersHandler) oauth2Login(c *gin.Context) {
	if h.oauth == nil || !h.oauth.Enabled() {
		resp.Abort(c, resp.NotImplemented("oauth2 not configured"))
		return
	}
	state := c.Query("state")
	if state == "" {
		state = uuid.NewString()
	}
	u, err := h.oauth.AuthCodeURL(c.Request.Context(), state)
	if err != nil {
		resp.Abort(c, resp.UpstreamAuth("authorize redirect failed", err))
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, u)
}

// oauth2Authorize 回调：code 换身份 → 落用户档案 → 发签名 cookie → 回落地页。
// 上游任何一步失败整个流程失败，不产生半截用户。
func (h *UsersHandler) oauth2Authorize(c *gin.Context) {
	if h.oauth == nil || !h.oauth.Enabled() {
		resp.Abort(c, resp.NotImplemented("oauth2 not configured"))
		return
	}
	code := c.Query("code")
	if code == "" {
		resp.Abort(c, resp.UpstreamAuth("callback without code", nil))
		return
	}
	username, err := h.oauth.Username(c.Request.Context(), code)
	if err != nil {
		resp.Abort(c, resp.UpstreamAuth("identity exchange failed", err))
		return
	}

	user, err := h.dir.CurrentUser(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, identity.ErrUnauthorized) {
			resp.Abort(c, resp.Unauthorized("unknown user"))
			return
		}
		resp.Abort(c, resp.Internal("resolve user", err))
		return
	}
	var userID *uint
	if user != nil {
		userID = &user.ID
	}
	tok, err := h.jwter.Issue(username, userID)
	if err != nil {
		resp.Abort(c, resp.Internal("issue token", err))
		return
	}
	c.SetCookie(h.cookieName(), tok, int(h.authCfg.TokenTTL().Seconds()), "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, h.finalURL())
}

// oauth2Logout 提供方公布了注销端点就跳过去，否则退回本地注销
func (h *UsersHandler) oauth2Logout(c *gin.Context) {
	h.clearSessionCookie(c)
	if h.oauth != nil && h.oauth.Enabled() {
		if endURL, err := h.oauth.EndSessionURL(c.Request.Context()); err == nil && endURL != "" {
			c.Redirect(http.StatusTemporaryRedirect, endURL)
			return
		}
	}
	c.Redirect(http.StatusTemporaryRedirect, h.finalURL())
}

func (h *UsersHandler) clearSessionCookie(c *gin.Context) {
	c.SetCookie(h.cookieName(), "", -1, "/", "", false, true)
}

func (h *UsersHandler) cookieName() string {
	if h.authCfg.CookieName == "" {
		return "tmtrkr-token"
	}
	return h.authCfg.CookieName
}

func (h *UsersHandler) finalURL() string {
	if h.oauCfg.FinalURL == "" {
		return "/"
	}
	return h.oauCfg.FinalURL
}
