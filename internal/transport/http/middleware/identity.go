package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"timetrkr/internal/core/auth"
	"timetrkr/internal/domain"
	"timetrkr/internal/identity"
	resp "timetrkr/internal/transport/http/response"
)

// 上下文键
const (
	KeyUser     = "currentUser"
	KeyUsername = "currentUsername"
)

// Identity 每个请求跑一遍 解析身份 → 查/建用户档案，结果塞进上下文。
// 坏令牌和"不许匿名却没身份"都在这里拦下。
func Identity(rv *identity.Resolver, dir *identity.Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, err := rv.Resolve(c.Request)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				resp.Abort(c, resp.Unauthorized(err.Error()))
				return
			}
			resp.Abort(c, err)
			return
		}
		user, err := dir.CurrentUser(c.Request.Context(), username)
		if err != nil {
			if errors.Is(err, identity.ErrUnauthorized) {
				resp.Abort(c, resp.Unauthorized("must be logged-in"))
				return
			}
			resp.Abort(c, resp.Internal("resolve user", err))
			return
		}
		if username != "" {
			c.Set(KeyUsername, username)
		}
		if user != nil {
			c.Set(KeyUser, user)
		}
		c.Next()
	}
}

// IdentityLax 登录/注销链路专用：尽力解析身份但从不拒绝。
// 匿名用户要走这里完成首次登录，带过期 cookie 的用户也要能重新登录，
// 所以坏令牌在这里按匿名处理而不是 401。
func IdentityLax(rv *identity.Resolver, dir *identity.Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, err := rv.Resolve(c.Request)
		if err != nil || username == "" {
			c.Next()
			return
		}
		c.Set(KeyUsername, username)
		if user, uerr := dir.CurrentUser(c.Request.Context(), username); uerr == nil && user != nil {
			c.Set(KeyUser, user)
		}
		c.Next()
	}
}

// CurrentUser 从上下文取当前用户；匿名请求返回 nil
func CurrentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(KeyUser); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// CurrentUsername 解析出的用户名（可能有名字但没有档案）
func CurrentUsername(c *gin.Context) string {
	return c.GetString(KeyUsername)
}
