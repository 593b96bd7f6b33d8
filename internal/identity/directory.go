package identity

import (
	"context"

	"timetrkr/internal/domain"
)

// Directory 把解析出的用户名落到持久化的用户档案上，
// 并在这里做匿名/未授权的裁决。每个请求只调用一次。
type Directory struct {
	users        domain.UserRepository
	autoCreate   bool
	allowUnknown bool
}

func NewDirectory(users domain.UserRepository, autoCreate, allowUnknown bool) *Directory {
	return &Directory{users: users, autoCreate: autoCreate, allowUnknown: allowUnknown}
}

// CurrentUser 用户名为空或查无此人（且不允许自动建档）时：
// 允许匿名 → (nil, nil)，否则 ErrUnauthorized。
func (d *Directory) CurrentUser(ctx context.Context, username string) (*domain.User, error) {
	if username == "" {
		if !d.allowUnknown {
			return nil, ErrUnauthorized
		}
		return nil, nil
	}

	var (
		user *domain.User
		err  error
	)
	if d.autoCreate {
		user, err = d.users.GetOrCreate(ctx, username)
	} else {
		user, err = d.users.FindByName(ctx, username)
	}
	if err != nil {
		return nil, err
	}
	if user == nil && !d.allowUnknown {
		return nil, ErrUnauthorized
	}
	return user, nil
}
