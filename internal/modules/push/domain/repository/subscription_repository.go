package repository

import (
	"context"

	"LiveDock/internal/modules/push/domain/entity"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, s *entity.Subscription) error
	FindActiveByUserIDs(ctx context.Context, userIDs []int64) ([]entity.Subscription, error)
	FindActiveByUserAndEndpoint(ctx context.Context, userID int64, endpoint string) (*entity.Subscription, error)
	// Deactivate 软删除，不物理删除记录
	Deactivate(ctx context.Context, id int64) error
}
