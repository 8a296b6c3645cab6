package repository

import (
	"context"

	"LiveDock/internal/modules/reception/domain/entity"
)

// ProcessEventRepository 流程账本，只有追加与读取，没有更新与删除
type ProcessEventRepository interface {
	Append(ctx context.Context, ev *entity.ProcessEvent) error
	// Latest 没有事件时返回 nil, nil
	Latest(ctx context.Context, processID int64) (*entity.ProcessEvent, error)
	// All 按 id 升序
	All(ctx context.Context, processID int64) ([]entity.ProcessEvent, error)
	AllByProcessIDs(ctx context.Context, processIDs []int64) ([]entity.ProcessEvent, error)
	LatestByProcessIDs(ctx context.Context, processIDs []int64) (map[int64]entity.ProcessEvent, error)
}
