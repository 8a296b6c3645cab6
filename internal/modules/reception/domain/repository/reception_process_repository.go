package repository

import (
	"context"
	"time"

	"LiveDock/internal/modules/reception/domain/entity"
)

type ReceptionProcessRepository interface {
	Create(ctx context.Context, p *entity.ReceptionProcess) error
	FindByID(ctx context.Context, id int64) (*entity.ReceptionProcess, error)
	// FindByIDForUpdate 事务内加行锁读取
	FindByIDForUpdate(ctx context.Context, id int64) (*entity.ReceptionProcess, error)
	Finish(ctx context.Context, id int64, status string, processingTimeMinutes int, at time.Time) error
	// FindActive 按创建时间倒序，startDate 为空时不过滤
	FindActive(ctx context.Context, startDate *time.Time) ([]entity.ReceptionProcess, error)
	FindActiveInProgress(ctx context.Context) ([]entity.ReceptionProcess, error)
}
