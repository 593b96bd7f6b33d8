package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"timetrkr/internal/core/server"
)

// NewAdminEngine 运维侧引擎：健康检查 + Prometheus 指标 + 全量只读接口。
// 只绑内网地址，不做身份解析。
func NewAdminEngine(l *zap.Logger, mods ...AdminModule) *gin.Engine {
	r := server.NewRouter(l)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admin := r.Group("/admin/v1")
	MountAllAdmin(admin, mods...)

	return r
}
