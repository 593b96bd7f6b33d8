package domain

import (
	"context"
	"time"
)

// User 工时记录的归属者。
//
// name 是 get-or-create 的去重键，但本层不强制唯一约束；
// 并发首次建档可能产生重复行，需要严格去重的部署应在存储层加唯一索引。
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"index;not null" json:"name"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (User) TableName() string { return "users" }

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	// FindByName 按名字取第一个匹配；查不到返回 (nil, nil)
	FindByName(ctx context.Context, name string) (*User, error)
	// GetOrCreate 查不到则建档；并发撞唯一索引时回读已有行
	GetOrCreate(ctx context.Context, name string) (*User, error)
	List(ctx context.Context) ([]User, error)
}
