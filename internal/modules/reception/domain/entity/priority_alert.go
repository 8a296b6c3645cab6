package entity

import "time"

const (
	SeverityHigh   = "Alta"
	SeverityMedium = "Media"
	SeverityLow    = "Baja"
)

// PriorityAlert 看板告警，按角色可见
type PriorityAlert struct {
	ID                 int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ReceptionProcessID int64     `gorm:"column:reception_process_id;not null;index:idx_pa_process_active,priority:1" json:"receptionProcessId"`
	ProcessEventID     int64     `gorm:"column:process_event_id;index" json:"processEventId"`
	Role               string    `gorm:"column:role;type:varchar(20);not null;index:idx_pa_role_active,priority:1" json:"role"`
	Title              string    `gorm:"column:title;type:varchar(200);not null" json:"title"`
	Detail             string    `gorm:"column:detail;type:varchar(500)" json:"detail"`
	Severity           string    `gorm:"column:severity;type:varchar(10);not null" json:"severity"`
	IsActive           bool      `gorm:"column:is_active;not null;default:true;index:idx_pa_process_active,priority:2;index:idx_pa_role_active,priority:2" json:"isActive"`
	CreatedByID        int64     `gorm:"column:created_by_id" json:"createdById"`
	CreatedAt          time.Time `gorm:"column:created_at;index" json:"createdAt"`
	UpdatedAt          time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (PriorityAlert) TableName() string {
	return "priority_alerts"
}
