package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Subscription 浏览器 PushSubscription 注册，端点失效时软删除
type Subscription struct {
	ID           int64          `gorm:"column:id;primaryKey;autoIncrement"`
	UserID       int64          `gorm:"column:user_id;not null;index:idx_sub_user_active,priority:1"`
	Endpoint     string         `gorm:"column:endpoint;type:varchar(768);not null;index"`
	Subscription datatypes.JSON `gorm:"column:subscription;not null"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true;index:idx_sub_user_active,priority:2"`
	CreatedAt    time.Time      `gorm:"column:created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
