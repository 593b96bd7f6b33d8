package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"timetrkr/internal/core/config"
	"timetrkr/internal/identity"
	mdw "timetrkr/internal/transport/http/middleware"
)

// NewAPIEngine 业务侧引擎：中间件链 + 健康检查 + 带身份解析的 API 分组
func NewAPIEngine(
	l *zap.Logger,
	cfg *config.Config,
	rv *identity.Resolver,
	dir *identity.Directory,
	mods ...APIModule,
) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(16<<20),
		mdw.Timeout(10*time.Second),
		mdw.SimpleRecovery(),
		mdw.Metrics(),
		mdw.AccessLog(l),
		cors.Default(),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })

	// 前缀下分两个分组：业务路由过强制身份裁决，
	// 登录/注销链路只解析不拦——匿名被挡在门外就无法完成首次登录
	api := r.Group(cfg.App.APIPrefix)
	secured := api.Group("")
	secured.Use(mdw.Identity(rv, dir))
	session := api.Group("")
	session.Use(mdw.IdentityLax(rv, dir))

	MountAll(secured, session, mods...)

	return r
}
