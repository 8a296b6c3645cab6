package persistence

import (
	"context"
	"errors"
	"time"

	"LiveDock/internal/modules/push/domain/entity"
	"LiveDock/internal/modules/push/domain/repository"

	"gorm.io/gorm"
)

type subscriptionRepositoryImpl struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) repository.SubscriptionRepository {
	return &subscriptionRepositoryImpl{db: db}
}

func (r *subscriptionRepositoryImpl) Create(ctx context.Context, s *entity.Subscription) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *subscriptionRepositoryImpl) FindActiveByUserIDs(ctx context.Context, userIDs []int64) ([]entity.Subscription, error) {
	if len(userIDs) == 0 {
		return []entity.Subscription{}, nil
	}
	var list []entity.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id IN ? AND is_active = ?", userIDs, true).
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *subscriptionRepositoryImpl) FindActiveByUserAndEndpoint(ctx context.Context, userID int64, endpoint string) (*entity.Subscription, error) {
	var s entity.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND endpoint = ? AND is_active = ?", userID, endpoint, true).
		Order("id DESC").
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *subscriptionRepositoryImpl) Deactivate(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&entity.Subscription{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		}).Error
}
