package persistence

import (
	"context"

	"LiveDock/internal/modules/reception/domain/repository"

	"gorm.io/gorm"
)

type receptionUnitOfWorkImpl struct {
	db *gorm.DB
}

func NewReceptionUnitOfWork(db *gorm.DB) repository.ReceptionUnitOfWork {
	return &receptionUnitOfWorkImpl{db: db}
}

func (u *receptionUnitOfWorkImpl) Transaction(ctx context.Context, fn func(processRepo repository.ReceptionProcessRepository, eventRepo repository.ProcessEventRepository, metricRepo repository.NotificationMetricRepository, alertRepo repository.PriorityAlertRepository) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(
			NewReceptionProcessRepository(tx),
			NewProcessEventRepository(tx),
			NewNotificationMetricRepository(tx),
			NewPriorityAlertRepository(tx),
		)
	})
}
