package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"timetrkr/internal/domain"
)

type RecordRepo struct{ db *gorm.DB }

func NewRecordRepo(db *gorm.DB) *RecordRepo { return &RecordRepo{db: db} }

func (r *RecordRepo) Create(ctx context.Context, rec *domain.Record) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// Find 按 id 取记录；user 非空时再按 user_id 过滤，
// 所以一个用户拿不到另一个用户的记录——查不到统一返回 ErrNotFound。
func (r *RecordRepo) Find(ctx context.Context, id uint, user *domain.User) (*domain.Record, error) {
	q := r.db.WithContext(ctx).Where("id = ?", id)
	if user != nil {
		q = q.Where("user_id = ?", user.ID)
	}
	var rec domain.Record
	if err := q.First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *RecordRepo) List(ctx context.Context, user *domain.User, q domain.RecordListQuery) ([]domain.Record, error) {
	tx := r.db.WithContext(ctx).Model(&domain.Record{})
	if user != nil {
		tx = tx.Where("user_id = ?", user.ID)
	}
	if q.IsDeleted != nil {
		if *q.IsDeleted {
			tx = tx.Where("is_deleted = ?", true)
		} else {
			// NULL 也算未删除
			tx = tx.Where("is_deleted IS NOT TRUE")
		}
	}
	if q.StartMin != nil {
		tx = tx.Where("start >= ?", *q.StartMin)
	}
	if q.StartMax != nil {
		tx = tx.Where("start <= ?", *q.StartMax)
	}
	tx = tx.Order("start DESC")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	var recs []domain.Record
	err := tx.Find(&recs).Error
	return recs, err
}

func (r *RecordRepo) Save(ctx context.Context, rec *domain.Record) error {
	return r.db.WithContext(ctx).Save(rec).Error
}
