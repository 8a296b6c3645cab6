package service

import (
	"context"
	"errors"

	"LiveDock/internal/modules/user/application/dto/respond"
	"LiveDock/internal/modules/user/domain/entity"
	"LiveDock/internal/modules/user/domain/repository"
	"LiveDock/pkg/xerr"
	"LiveDock/pkg/zlog"

	"gorm.io/gorm"
)

// UserInfoService 当前用户解析，供鉴权中间件与 /users/me 使用
type UserInfoService interface {
	GetActiveUser(ctx context.Context, id int64) (*entity.User, error)
	GetUserInfo(ctx context.Context, id int64) (*respond.UserInfoRespond, error)
}

type userInfoServiceImpl struct {
	repo repository.UserRepository
}

func NewUserInfoService(repo repository.UserRepository) UserInfoService {
	return &userInfoServiceImpl{repo: repo}
}

func (s *userInfoServiceImpl) GetActiveUser(ctx context.Context, id int64) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.New(xerr.Unauthorized, "User not found")
		}
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	if !user.IsActive {
		return nil, xerr.New(xerr.Unauthorized, "User is inactive")
	}
	return user, nil
}

func (s *userInfoServiceImpl) GetUserInfo(ctx context.Context, id int64) (*respond.UserInfoRespond, error) {
	user, err := s.GetActiveUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return &respond.UserInfoRespond{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}, nil
}
