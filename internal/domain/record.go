package domain

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
)

// ErrNotFound 记录不存在，或不属于当前用户
var ErrNotFound = errors.New("not found")

// ErrOrderNotImplemented 只支持默认的 start 倒序
var ErrOrderNotImplemented = errors.New("order not implemented")

// Record 一段工时记录。
//
// start/end 是 epoch 秒；end 为空表示还在进行中。
// 删除是软删除：is_deleted 置位后行仍可查询，只是默认列表里不出现。
// 注意这里不用 gorm.DeletedAt——软删行必须保持可见可查。
type Record struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	UserID    *uint  `gorm:"index" json:"user_id,omitempty"` // 为空表示匿名记录
	User      *User  `gorm:"foreignKey:UserID" json:"-"`
	Name      string `gorm:"not null" json:"name"`
	Start     *int64 `gorm:"index" json:"start"`
	End       *int64 `json:"end"`
	Tags      string `json:"tags,omitempty"`
	IsDeleted bool   `gorm:"default:false" json:"is_deleted"`
}

func (Record) TableName() string { return "records" }

// Duration 计算时长（秒），读取时相对 now 推导，不落库。
//
//   - start 缺失、或整条记录在未来（start > max(now, end)）：无定义，返回 nil
//   - 未结束的记录按 now 截止，随时间推移持续增长
//   - 已结束的记录固定为 end - start
func (r *Record) Duration(now int64) *int64 {
	if r.Start == nil {
		return nil
	}
	end := now
	if r.End != nil {
		end = *r.End
	}
	if *r.Start > maxInt64(now, end) {
		return nil
	}
	d := end - *r.Start
	return &d
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

var (
	tagStrip    = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	tagSplitter = regexp.MustCompile(`\s+`)
)

// NormalizeTags 规整标签串：小写、去掉非字母数字、按空白切分再用单空格拼接。
// 幂等：规整过的串再规整一次结果不变。
func NormalizeTags(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	s = tagStrip.ReplaceAllString(s, "")
	parts := tagSplitter.Split(strings.TrimSpace(s), -1)
	return strings.Join(parts, " ")
}

// RecordPatch 局部更新的白名单字段；为 nil 的字段保持原值。
type RecordPatch struct {
	Name  *string
	Start *int64
	End   *int64
	Tags  *string
}

// Apply 逐字段套用补丁
func (p RecordPatch) Apply(r *Record) {
	if p.Name != nil {
		r.Name = strings.TrimSpace(*p.Name)
	}
	if p.Start != nil {
		r.Start = p.Start
	}
	if p.End != nil {
		r.End = p.End
	}
	if p.Tags != nil {
		r.Tags = NormalizeTags(*p.Tags)
	}
}

// RecordListQuery 列表筛选条件。
//
// IsDeleted 三态：nil 不过滤（软删的也给）、false 排除软删、true 只看软删。
type RecordListQuery struct {
	StartMin  *int64
	StartMax  *int64
	IsDeleted *bool
	Offset    int
	Limit     int
}

type RecordRepository interface {
	Create(ctx context.Context, r *Record) error
	// Find 按 id 取记录；user 非空时额外按归属过滤，越权按不存在处理
	Find(ctx context.Context, id uint, user *User) (*Record, error)
	// List 按条件取一页，start 倒序；user 非空时只看该用户的记录
	List(ctx context.Context, user *User, q RecordListQuery) ([]Record, error)
	Save(ctx context.Context, r *Record) error
}
