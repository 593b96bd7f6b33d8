package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"timetrkr/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepo) FindByName(ctx context.Context, name string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetOrCreate 按名字取用户，没有就建一个。
// 存储层有唯一索引时并发建档会撞 duplicate key，这里兜底回读已有行；
// 没有唯一索引时接受偶发的重复行（见 domain.User 注释）。
func (r *UserRepo) GetOrCreate(ctx context.Context, name string) (*domain.User, error) {
	u, err := r.FindByName(ctx, name)
	if err != nil || u != nil {
		return u, err
	}
	u = &domain.User{Name: name}
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if isDupKey(err) {
			return r.FindByName(ctx, name)
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).Order("id").Find(&users).Error
	return users, err
}

func isDupKey(err error) bool {
	// 不依赖 gorm.ErrDuplicatedKey，避免驱动差异
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "unique failed")
}
