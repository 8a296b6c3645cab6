package persistence

import (
	"context"
	"time"

	"LiveDock/internal/modules/reception/domain/entity"
	"LiveDock/internal/modules/reception/domain/repository"

	"gorm.io/gorm"
)

type notificationMetricRepositoryImpl struct {
	db *gorm.DB
}

func NewNotificationMetricRepository(db *gorm.DB) repository.NotificationMetricRepository {
	return &notificationMetricRepositoryImpl{db: db}
}

func (r *notificationMetricRepositoryImpl) Create(ctx context.Context, m *entity.NotificationMetric) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *notificationMetricRepositoryImpl) FindByProcessIDs(ctx context.Context, processIDs []int64) ([]entity.NotificationMetric, error) {
	if len(processIDs) == 0 {
		return []entity.NotificationMetric{}, nil
	}
	var list []entity.NotificationMetric
	err := r.db.WithContext(ctx).
		Where("reception_process_id IN ?", processIDs).
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *notificationMetricRepositoryImpl) ExistsSince(ctx context.Context, processID int64, eventType string, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.NotificationMetric{}).
		Where("reception_process_id = ? AND event_type = ? AND created_at >= ?", processID, eventType, since).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
