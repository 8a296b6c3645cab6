package repository

import (
	"context"
	"time"

	"LiveDock/internal/modules/reception/domain/entity"
)

type NotificationMetricRepository interface {
	Create(ctx context.Context, m *entity.NotificationMetric) error
	FindByProcessIDs(ctx context.Context, processIDs []int64) ([]entity.NotificationMetric, error)
	// ExistsSince 某流程在 since 之后是否记录过指定类型的指标
	ExistsSince(ctx context.Context, processID int64, eventType string, since time.Time) (bool, error)
}
