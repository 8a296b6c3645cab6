package repository

import (
	"context"
	"time"

	"LiveDock/internal/modules/reception/domain/entity"
)

type PriorityAlertRepository interface {
	Create(ctx context.Context, a *entity.PriorityAlert) error
	// DeactivateByProcessID 使流程下所有仍有效的告警失效，返回影响行数
	DeactivateByProcessID(ctx context.Context, processID int64, at time.Time) (int64, error)
	// LatestEventID 流程告警所对应的最大事件 id，没有时为 0
	LatestEventID(ctx context.Context, processID int64) (int64, error)
	FindActiveByRole(ctx context.Context, role string, startDate *time.Time) ([]entity.PriorityAlert, error)
	FindActiveByProcessID(ctx context.Context, processID int64) ([]entity.PriorityAlert, error)
}
