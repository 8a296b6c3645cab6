package repository

import (
	"context"

	"LiveDock/internal/modules/reception/domain/entity"
)

// ProcessEventStream 账本追加后对外发布的事件流
type ProcessEventStream interface {
	Publish(ctx context.Context, process *entity.ReceptionProcess, ev *entity.ProcessEvent) error
}
