package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"timetrkr/internal/domain"
	"timetrkr/internal/feature/record"
	mdw "timetrkr/internal/transport/http/middleware"
	resp "timetrkr/internal/transport/http/response"
)

// RecordsHandler 记录的增删改查。身份由 Identity 中间件先行解析，
// 这里只管把当前用户织进查询和写入。
type RecordsHandler struct {
	engine  *record.Engine
	records domain.RecordRepository
}

func NewRecordsHandler(engine *record.Engine, records domain.RecordRepository) *RecordsHandler {
	return &RecordsHandler{engine: engine, records: records}
}

func (h *RecordsHandler) MountAPI(g *gin.RouterGroup) {
	rg := g.Group("/records")
	rg.GET("/", h.list)
	rg.GET("/:id", h.get)
	rg.POST("/", h.create)
	rg.PATCH("/:id", h.update)
	rg.DELETE("/:id", h.remove)
}

// recordInput POST/PATCH 共用的请求体；PATCH 语义下缺省字段不动
type recordInput struct {
	Name  *string `json:"name"`
	Start *int64  `json:"start"`
	End   *int64  `json:"end"`
	Tags  *string `json:"tags"`
}

// validate 字段级校验。create 时 name/start 必填；
// 已给出的字段无论哪种模式都要合法。
func (in *recordInput) validate(create bool) map[string]string {
	fields := map[string]string{}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		fields["name"] = "empty name"
	}
	if create && in.Name == nil {
		fields["name"] = "empty name"
	}
	// 0 等同于没给（epoch 0 不是合法的开始时间）
	if in.Start != nil && *in.Start == 0 {
		fields["start"] = "empty start"
	}
	if create && in.Start == nil {
		fields["start"] = "empty start"
	}
	if in.Start != nil && in.End != nil && *in.End < *in.Start {
		fields["end"] = "end < start"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func (in *recordInput) patch() domain.RecordPatch {
	return domain.RecordPatch{Name: in.Name, Start: in.Start, End: in.End, Tags: in.Tags}
}

func (h *RecordsHandler) list(c *gin.Context) {
	params, err := parseListParams(c)
	if err != nil {
		resp.Abort(c, err)
		return
	}
	page, lerr := h.engine.List(c.Request.Context(), mdw.CurrentUser(c), *params)
	if lerr != nil {
		if errors.Is(lerr, domain.ErrOrderNotImplemented) {
			resp.Abort(c, resp.NotImplemented("unsupported order_by"))
			return
		}
		resp.Abort(c, resp.Internal("list records", lerr))
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *RecordsHandler) get(c *gin.Context) {
	id, err := recordID(c)
	if err != nil {
		resp.Abort(c, err)
		return
	}
	rec, ferr := h.records.Find(c.Request.Context(), id, mdw.CurrentUser(c))
	if ferr != nil {
		abortFind(c, ferr)
		return
	}
	c.JSON(http.StatusOK, record.NewView(rec, time.Now().Unix()))
}

func (h *RecordsHandler) create(c *gin.Context) {
	var in recordInput
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.Abort(c, resp.Validation("invalid body", map[string]string{"body": err.Error()}))
		return
	}
	if fields := in.validate(true); fields != nil {
		resp.Abort(c, resp.Validation("validation failed", fields))
		return
	}

	rec := &domain.Record{}
	in.patch().Apply(rec)
	if user := mdw.CurrentUser(c); user != nil {
		rec.UserID = &user.ID
	}
	if err := h.records.Create(c.Request.Context(), rec); err != nil {
		resp.Abort(c, resp.Internal("create record", err))
		return
	}
	c.JSON(http.StatusCreated, record.NewView(rec, time.Now().Unix()))
}

func (h *RecordsHandler) update(c *gin.Context) {
	id, err := recordID(c)
	if err != nil {
		resp.Abort(c, err)
		return
	}
	var in recordInput
	if berr := c.ShouldBindJSON(&in); berr != nil {
		resp.Abort(c, resp.Validation("invalid body", map[string]string{"body": berr.Error()}))
		return
	}
	if fields := in.validate(false); fields != nil {
		resp.Abort(c, resp.Validation("validation failed", fields))
		return
	}

	rec, ferr := h.records.Find(c.Request.Context(), id, mdw.CurrentUser(c))
	if ferr != nil {
		abortFind(c, ferr)
		return
	}
	in.patch().Apply(rec)
	// 补丁套用后的整体约束
	if rec.Start != nil && rec.End != nil && *rec.End < *rec.Start {
		resp.Abort(c, resp.Validation("validation failed", map[string]string{"end": "end < start"}))
		return
	}
	if err := h.records.Save(c.Request.Context(), rec); err != nil {
		resp.Abort(c, resp.Internal("update record", err))
		return
	}
	c.JSON(http.StatusAccepted, record.NewView(rec, time.Now().Unix()))
}

func (h *RecordsHandler) remove(c *gin.Context) {
	id, err := recordID(c)
	if err != nil {
		resp.Abort(c, err)
		return
	}
	rec, ferr := h.records.Find(c.Request.Context(), id, mdw.CurrentUser(c))
	if ferr != nil {
		abortFind(c, ferr)
		return
	}
	// 软删除：打标落库，行不物理删除
	rec.IsDeleted = true
	if err := h.records.Save(c.Request.Context(), rec); err != nil {
		resp.Abort(c, resp.Internal("delete record", err))
		return
	}
	c.JSON(http.StatusOK, record.NewView(rec, time.Now().Unix()))
}

func recordID(c *gin.Context) (uint, *resp.APIError) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, resp.NotFound("record not found")
	}
	return uint(id), nil
}

func abortFind(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		resp.Abort(c, resp.NotFound("record not found"))
		return
	}
	resp.Abort(c, resp.Internal("find record", err))
}

// parseListParams 解析列表查询串。
// start_min/start_max 值为 0 等同于没给；is_deleted 缺省排除软删，
// 显式传空值（is_deleted= 或 null）则不过滤。
func parseListParams(c *gin.Context) (*record.ListParams, *resp.APIError) {
	p := &record.ListParams{OrderBy: c.Query("order_by")}

	var perr *resp.APIError
	p.StartMin, perr = optInt64(c, "start_min")
	if perr != nil {
		return nil, perr
	}
	p.StartMax, perr = optInt64(c, "start_max")
	if perr != nil {
		return nil, perr
	}

	if raw, ok := c.GetQuery("is_deleted"); !ok {
		notDeleted := false
		p.IsDeleted = &notDeleted
	} else if raw != "" && raw != "null" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, resp.Validation("validation failed", map[string]string{"is_deleted": "not a bool"})
		}
		p.IsDeleted = &v
	}

	var err error
	if p.Offset, err = atoiDefault(c.Query("offset"), 0); err != nil {
		return nil, resp.Validation("validation failed", map[string]string{"offset": "not an integer"})
	}
	if p.Limit, err = atoiDefault(c.Query("limit"), 0); err != nil {
		return nil, resp.Validation("validation failed", map[string]string{"limit": "not an integer"})
	}
	return p, nil
}

func optInt64(c *gin.Context, name string) (*int64, *resp.APIError) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, resp.Validation("validation failed", map[string]string{name: "not an integer"})
	}
	if v == 0 {
		return nil, nil
	}
	return &v, nil
}

func atoiDefault(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
