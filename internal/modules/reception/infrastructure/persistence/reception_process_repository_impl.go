package persistence

import (
	"context"
	"time"

	"LiveDock/internal/modules/reception/domain/entity"
	"LiveDock/internal/modules/reception/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type receptionProcessRepositoryImpl struct {
	db *gorm.DB
}

func NewReceptionProcessRepository(db *gorm.DB) repository.ReceptionProcessRepository {
	return &receptionProcessRepositoryImpl{db: db}
}

func (r *receptionProcessRepositoryImpl) Create(ctx context.Context, p *entity.ReceptionProcess) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *receptionProcessRepositoryImpl) FindByID(ctx context.Context, id int64) (*entity.ReceptionProcess, error) {
	var p entity.ReceptionProcess
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *receptionProcessRepositoryImpl) FindByIDForUpdate(ctx context.Context, id int64) (*entity.ReceptionProcess, error) {
	var p entity.ReceptionProcess
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *receptionProcessRepositoryImpl) Finish(ctx context.Context, id int64, status string, processingTimeMinutes int, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.ReceptionProcess{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":                  status,
			"processing_time_minutes": processingTimeMinutes,
			"updated_at":              at,
		}).Error
}

func (r *receptionProcessRepositoryImpl) FindActive(ctx context.Context, startDate *time.Time) ([]entity.ReceptionProcess, error) {
	var list []entity.ReceptionProcess
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if startDate != nil {
		q = q.Where("created_at >= ?", *startDate)
	}
	err := q.Order("created_at DESC").Order("id DESC").Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *receptionProcessRepositoryImpl) FindActiveInProgress(ctx context.Context) ([]entity.ReceptionProcess, error) {
	var list []entity.ReceptionProcess
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND status = ?", true, entity.StatusInProgress).
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
