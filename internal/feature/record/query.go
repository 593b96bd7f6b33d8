package record

import (
	"context"
	"time"

	"timetrkr/internal/domain"
)

// ListParams 列表请求参数（已解析，尚未钳制）。
//
// IsDeleted 三态：nil 表示"不过滤"（显式传空值把软删的也捞出来），
// 指向 false/true 表示精确匹配；handler 在参数缺省时填 false。
type ListParams struct {
	StartMin  *int64
	StartMax  *int64
	IsDeleted *bool
	Offset    int
	Limit     int
	OrderBy   string // 只支持默认的 start 倒序
}

// View 单条记录的对外形态，duration 是读取时推导的
type View struct {
	ID        uint   `json:"id"`
	UserID    *uint  `json:"user_id"`
	Name      string `json:"name"`
	Start     *int64 `json:"start"`
	End       *int64 `json:"end"`
	Tags      string `json:"tags,omitempty"`
	Duration  *int64 `json:"duration"`
	IsDeleted bool   `json:"is_deleted"`
}

func NewView(r *domain.Record, now int64) View {
	return View{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Start:     r.Start,
		End:       r.End,
		Tags:      r.Tags,
		Duration:  r.Duration(now),
		IsDeleted: r.IsDeleted,
	}
}

// Page 一页记录 + 页内聚合。
// 聚合只统计返回的这一页，不是整个筛选集。
// query_start_min/max 只在对应筛选条件实际给出时回显，
// 让客户端能区分"范围内没数据"和"没给范围"。
type Page struct {
	Records       []View       `json:"records"`
	Count         int          `json:"count"`
	Duration      int64        `json:"duration"`
	StartMin      *int64       `json:"start_min,omitempty"`
	StartMax      *int64       `json:"start_max,omitempty"`
	EndMin        *int64       `json:"end_min,omitempty"`
	EndMax        *int64       `json:"end_max,omitempty"`
	QueryStartMin *int64       `json:"query_start_min,omitempty"`
	QueryStartMax *int64       `json:"query_start_max,omitempty"`
	User          *domain.User `json:"user,omitempty"`
}

// Engine 把请求参数翻译成仓储查询，并做页内聚合。
type Engine struct {
	records   domain.RecordRepository
	pageLimit int
	now       func() int64
}

func NewEngine(records domain.RecordRepository, pageLimit int) *Engine {
	if pageLimit <= 0 {
		pageLimit = 1000
	}
	return &Engine{
		records:   records,
		pageLimit: pageLimit,
		now:       UnixNow,
	}
}

// UnixNow 当前 Unix 秒，duration 推导的统一时钟
func UnixNow() int64 { return time.Now().Unix() }

// ClampLimit 把调用方给的 limit 钳到 [1, 上限]；0（缺省）取上限
func (e *Engine) ClampLimit(limit int) int {
	if limit == 0 {
		return e.pageLimit
	}
	if limit < 1 {
		return 1
	}
	if limit > e.pageLimit {
		return e.pageLimit
	}
	return limit
}

// List 查一页记录。user 非空时只看该用户的；匿名请求不加用户过滤，
// 跨所有用户（开放列表模式）。
func (e *Engine) List(ctx context.Context, user *domain.User, p ListParams) (*Page, error) {
	if p.OrderBy != "" && p.OrderBy != "-start" {
		return nil, domain.ErrOrderNotImplemented
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	recs, err := e.records.List(ctx, user, domain.RecordListQuery{
		StartMin:  p.StartMin,
		StartMax:  p.StartMax,
		IsDeleted: p.IsDeleted,
		Offset:    p.Offset,
		Limit:     e.ClampLimit(p.Limit),
	})
	if err != nil {
		return nil, err
	}

	now := e.now()
	page := &Page{Records: make([]View, 0, len(recs)), User: user}
	for i := range recs {
		page.Records = append(page.Records, NewView(&recs[i], now))
	}
	page.Count = len(page.Records)

	for _, v := range page.Records {
		if v.Duration != nil {
			page.Duration += *v.Duration
		}
		if v.Start != nil {
			page.StartMin = minPtr(page.StartMin, *v.Start)
			page.StartMax = maxPtr(page.StartMax, *v.Start)
		}
		if v.End != nil {
			page.EndMin = minPtr(page.EndMin, *v.End)
			page.EndMax = maxPtr(page.EndMax, *v.End)
		}
	}
	page.QueryStartMin = p.StartMin
	page.QueryStartMax = p.StartMax
	return page, nil
}

func minPtr(cur *int64, v int64) *int64 {
	if cur == nil || v < *cur {
		return &v
	}
	return cur
}

func maxPtr(cur *int64, v int64) *int64 {
	if cur == nil || v > *cur {
		return &v
	}
	return cur
}
