package entity

import (
	"time"

	"gorm.io/datatypes"
)

// ProcessEvent 流程账本条目，只追加不修改
type ProcessEvent struct {
	ID                 int64          `gorm:"column:id;primaryKey;autoIncrement"`
	ReceptionProcessID int64          `gorm:"column:reception_process_id;not null;index:idx_pe_process_id,priority:1"`
	Event              string         `gorm:"column:event;type:varchar(80);not null"`
	Status             string         `gorm:"column:status;type:varchar(80);not null"`
	Role               string         `gorm:"column:role;type:varchar(20);not null"`
	Metadata           datatypes.JSON `gorm:"column:metadata"`
	CreatedByID        int64          `gorm:"column:created_by_id;index"`
	CreatedAt          time.Time      `gorm:"column:created_at;index:idx_pe_process_id,priority:2"`
}

func (ProcessEvent) TableName() string {
	return "process_events"
}
