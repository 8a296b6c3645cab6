package repository

import (
	"context"

	"LiveDock/internal/modules/user/domain/entity"
)

// UserRepository 用户目录，角色成员每次实时查询
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*entity.User, error)
	FindAllByRole(ctx context.Context, role string) ([]entity.User, error)
	FindAllByIDs(ctx context.Context, ids []int64) ([]entity.User, error)
}
