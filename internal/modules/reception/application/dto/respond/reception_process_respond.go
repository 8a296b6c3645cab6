package respond

import (
	"encoding/json"
	"time"
)

type ProcessEventRespond struct {
	ID          int64           `json:"id"`
	Event       string          `json:"event"`
	Status      string          `json:"status"`
	Role        string          `json:"role"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedByID int64           `json:"createdById"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type NotificationMetricRespond struct {
	ID              int64           `json:"id"`
	EventType       string          `json:"eventType"`
	ActionConfirm   string          `json:"actionConfirm,omitempty"`
	VisibleAt       *time.Time      `json:"visibleAt,omitempty"`
	ActionAt        *time.Time      `json:"actionAt,omitempty"`
	ReactionTimeSec *float64        `json:"reactionTimeSec,omitempty"`
	SystemDelaySec  *float64        `json:"systemDelaySec,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	CreatedByID     int64           `json:"createdById"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// ReceptionProcessRespond 流程快照，实时推送与查询接口共用
type ReceptionProcessRespond struct {
	ID                    int64                       `json:"id"`
	Status                string                      `json:"status"`
	CurrentStatus         string                      `json:"currentStatus"`
	LastEvent             string                      `json:"lastEvent"`
	TypeOfMaterial        string                      `json:"typeOfMaterial"`
	ProcessingTimeMinutes *int                        `json:"processingTimeMinutes"`
	IsActive              bool                        `json:"isActive"`
	CreatedByID           int64                       `json:"createdById"`
	CreatedAt             time.Time                   `json:"createdAt"`
	UpdatedAt             time.Time                   `json:"updatedAt"`
	Events                []ProcessEventRespond       `json:"processEvents"`
	Metrics               []NotificationMetricRespond `json:"notificationMetrics"`
}

// ActionResult 请求被接受但没有改变流程
type ActionResult struct {
	Message string `json:"message"`
}

// MetricResult 记录指标后的结果，二者只有一个非空
type MetricResult struct {
	Process *ReceptionProcessRespond `json:"process,omitempty"`
	Action  *ActionResult            `json:"action,omitempty"`
}
