package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"timetrkr/internal/domain"
	"timetrkr/internal/feature/record"
	resp "timetrkr/internal/transport/http/response"
)

// OpsHandler 运维端只读接口：跨用户、含已删除行，走内网不鉴权
type OpsHandler struct {
	users   domain.UserRepository
	records domain.RecordRepository
}

func NewOpsHandler(users domain.UserRepository, records domain.RecordRepository) *OpsHandler {
	return &OpsHandler{users: users, records: records}
}

func (h *OpsHandler) MountAdmin(admin *gin.RouterGroup) {
	admin.GET("/users", h.listUsers)
	admin.GET("/records", h.listRecords)
}

func (h *OpsHandler) listUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		resp.Abort(c, resp.Internal("list users failed", err))
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// listRecords 全量视角：不按用户过滤，也不隐藏已删除行
func (h *OpsHandler) listRecords(c *gin.Context) {
	q := domain.RecordListQuery{
		Offset: opsAtoi(c.Query("offset"), 0),
		Limit:  opsAtoi(c.Query("limit"), 100),
	}
	if q.Limit <= 0 || q.Limit > 1000 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	rows, err := h.records.List(c.Request.Context(), nil, q)
	if err != nil {
		resp.Abort(c, resp.Internal("list records failed", err))
		return
	}
	now := record.UnixNow()
	items := make([]record.View, 0, len(rows))
	for i := range rows {
		items = append(items, record.NewView(&rows[i], now))
	}
	c.JSON(http.StatusOK, gin.H{"records": items, "count": len(items)})
}

func opsAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
