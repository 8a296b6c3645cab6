package persistence

import (
	"context"
	"time"

	"LiveDock/internal/modules/reception/domain/entity"
	"LiveDock/internal/modules/reception/domain/repository"

	"gorm.io/gorm"
)

type priorityAlertRepositoryImpl struct {
	db *gorm.DB
}

func NewPriorityAlertRepository(db *gorm.DB) repository.PriorityAlertRepository {
	return &priorityAlertRepositoryImpl{db: db}
}

func (r *priorityAlertRepositoryImpl) Create(ctx context.Context, a *entity.PriorityAlert) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *priorityAlertRepositoryImpl) DeactivateByProcessID(ctx context.Context, processID int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entity.PriorityAlert{}).
		Where("reception_process_id = ? AND is_active = ?", processID, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *priorityAlertRepositoryImpl) LatestEventID(ctx context.Context, processID int64) (int64, error) {
	var id int64
	err := r.db.WithContext(ctx).Model(&entity.PriorityAlert{}).
		Where("reception_process_id = ?", processID).
		Select("COALESCE(MAX(process_event_id), 0)").
		Scan(&id).Error
	return id, err
}

func (r *priorityAlertRepositoryImpl) FindActiveByRole(ctx context.Context, role string, startDate *time.Time) ([]entity.PriorityAlert, error) {
	var list []entity.PriorityAlert
	q := r.db.WithContext(ctx).Where("role = ? AND is_active = ?", role, true)
	if startDate != nil {
		q = q.Where("created_at >= ?", *startDate)
	}
	err := q.Order("created_at DESC").Order("id DESC").Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *priorityAlertRepositoryImpl) FindActiveByProcessID(ctx context.Context, processID int64) ([]entity.PriorityAlert, error) {
	var list []entity.PriorityAlert
	err := r.db.WithContext(ctx).
		Where("reception_process_id = ? AND is_active = ?", processID, true).
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
