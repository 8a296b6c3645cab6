package request

import (
	"encoding/json"
	"time"
)

// NotifyMetricRequest Service Worker 在通知展示、点击、关闭、过期时回调
type NotifyMetricRequest struct {
	ID              int64           `json:"id" binding:"required,gt=0"`
	EventType       string          `json:"eventType" binding:"required,oneof=NOTIFICATION_SHOWN ACTION_CLICKED_CONFIRM NOTIFICATION_CLICKED_NOT_ACTION NOTIFICATION_CLOSED EXPIRED"`
	NotifiedUserID  int64           `json:"notifiedUserId" binding:"required,gt=0"`
	ActionConfirm   string          `json:"actionConfirm"`
	VisibleAt       *time.Time      `json:"visibleAt"`
	AccionAt        *time.Time      `json:"accionAt"`
	ActionAt        *time.Time      `json:"actionAt"`
	ReactionTimeSec *float64        `json:"reactionTimeSec"`
	SystemDelaySec  *float64        `json:"systemDelaySec"`
	Metadata        json.RawMessage `json:"metadata"`
}

// ActionTime 兼容旧字段名 accionAt
func (r *NotifyMetricRequest) ActionTime() *time.Time {
	if r.ActionAt != nil {
		return r.ActionAt
	}
	return r.AccionAt
}
