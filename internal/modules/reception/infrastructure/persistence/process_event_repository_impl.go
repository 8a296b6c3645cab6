package persistence

import (
	"context"
	"errors"

	"LiveDock/internal/modules/reception/domain/entity"
	"LiveDock/internal/modules/reception/domain/repository"

	"gorm.io/gorm"
)

type processEventRepositoryImpl struct {
	db *gorm.DB
}

func NewProcessEventRepository(db *gorm.DB) repository.ProcessEventRepository {
	return &processEventRepositoryImpl{db: db}
}

func (r *processEventRepositoryImpl) Append(ctx context.Context, ev *entity.ProcessEvent) error {
	if ev.ID != 0 {
		return errors.New("process event already persisted")
	}
	return r.db.WithContext(ctx).Create(ev).Error
}

func (r *processEventRepositoryImpl) Latest(ctx context.Context, processID int64) (*entity.ProcessEvent, error) {
	var ev entity.ProcessEvent
	err := r.db.WithContext(ctx).
		Where("reception_process_id = ?", processID).
		Order("id DESC").
		First(&ev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ev, nil
}

func (r *processEventRepositoryImpl) All(ctx context.Context, processID int64) ([]entity.ProcessEvent, error) {
	var list []entity.ProcessEvent
	err := r.db.WithContext(ctx).
		Where("reception_process_id = ?", processID).
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *processEventRepositoryImpl) AllByProcessIDs(ctx context.Context, processIDs []int64) ([]entity.ProcessEvent, error) {
	if len(processIDs) == 0 {
		return []entity.ProcessEvent{}, nil
	}
	var list []entity.ProcessEvent
	err := r.db.WithContext(ctx).
		Where("reception_process_id IN ?", processIDs).
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *processEventRepositoryImpl) LatestByProcessIDs(ctx context.Context, processIDs []int64) (map[int64]entity.ProcessEvent, error) {
	out := make(map[int64]entity.ProcessEvent, len(processIDs))
	if len(processIDs) == 0 {
		return out, nil
	}
	latestIDs := r.db.Model(&entity.ProcessEvent{}).
		Select("MAX(id)").
		Where("reception_process_id IN ?", processIDs).
		Group("reception_process_id")

	var list []entity.ProcessEvent
	err := r.db.WithContext(ctx).
		Where("id IN (?)", latestIDs).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	for _, ev := range list {
		out[ev.ReceptionProcessID] = ev
	}
	return out, nil
}
