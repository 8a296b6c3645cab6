package entity

import (
	"time"

	"gorm.io/datatypes"
)

// 通知生命周期事件
const (
	MetricNotificationShown           = "NOTIFICATION_SHOWN"
	MetricActionClickedConfirm        = "ACTION_CLICKED_CONFIRM"
	MetricNotificationClickedNoAction = "NOTIFICATION_CLICKED_NOT_ACTION"
	MetricNotificationClosed          = "NOTIFICATION_CLOSED"
	MetricExpired                     = "EXPIRED"
)

func IsValidMetricType(t string) bool {
	switch t {
	case MetricNotificationShown, MetricActionClickedConfirm, MetricNotificationClickedNoAction,
		MetricNotificationClosed, MetricExpired:
		return true
	}
	return false
}

// NotificationMetric 单条推送在单个用户上的生命周期记录
type NotificationMetric struct {
	ID                 int64          `gorm:"column:id;primaryKey;autoIncrement"`
	ReceptionProcessID int64          `gorm:"column:reception_process_id;not null;index"`
	EventType          string         `gorm:"column:event_type;type:varchar(40);not null;index:idx_nm_type_created,priority:1;index:idx_nm_created_by_type,priority:2"`
	ActionConfirm      string         `gorm:"column:action_confirm;type:varchar(80)"`
	VisibleAt          *time.Time     `gorm:"column:visible_at"`
	ActionAt           *time.Time     `gorm:"column:action_at"`
	ReactionTimeSec    *float64       `gorm:"column:reaction_time_sec;index"`
	SystemDelaySec     *float64       `gorm:"column:system_delay_sec"`
	Metadata           datatypes.JSON `gorm:"column:metadata"`
	CreatedByID        int64          `gorm:"column:created_by_id;index:idx_nm_created_by_type,priority:1"`
	CreatedAt          time.Time      `gorm:"column:created_at;index:idx_nm_type_created,priority:2;index"`
	UpdatedAt          time.Time      `gorm:"column:updated_at"`
}

func (NotificationMetric) TableName() string {
	return "notification_metrics"
}
