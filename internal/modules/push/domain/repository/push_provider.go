package repository

import (
	"context"

	"LiveDock/internal/modules/push/domain/entity"
)

// PushProvider 推送通道，端点失效时返回 Gone
type PushProvider interface {
	Send(ctx context.Context, sub *entity.Subscription, payload []byte) (entity.DeliveryStatus, error)
}
