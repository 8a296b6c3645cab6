package entity

import "time"

// 流程粗粒度状态
const (
	StatusInProgress = "EN_PROGRESO"
	StatusRejected   = "RECHAZADO"
	StatusFinished   = "FINALIZADO"
)

// 物料类型
const (
	MaterialAlcohol = "ALCOHOL"
	MaterialAgua    = "AGUA"
	MaterialLess    = "LESS"
	MaterialColgate = "COLGATE"
)

func IsValidMaterial(m string) bool {
	switch m {
	case MaterialAlcohol, MaterialAgua, MaterialLess, MaterialColgate:
		return true
	}
	return false
}

// ReceptionProcess 一次到货（一辆罐车）对应一条记录
type ReceptionProcess struct {
	ID                    int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Status                string    `gorm:"column:status;type:varchar(20);not null;default:EN_PROGRESO;index:idx_rp_status_created,priority:1;index:idx_rp_active_status,priority:2"`
	TypeOfMaterial        string    `gorm:"column:type_of_material;type:varchar(20);not null;index:idx_rp_material_created,priority:1"`
	ProcessingTimeMinutes *int      `gorm:"column:processing_time_minutes"`
	IsActive              bool      `gorm:"column:is_active;not null;default:true;index:idx_rp_active_status,priority:1"`
	CreatedByID           int64     `gorm:"column:created_by_id;index"`
	CreatedAt             time.Time `gorm:"column:created_at;index:idx_rp_status_created,priority:2;index:idx_rp_material_created,priority:2;index"`
	UpdatedAt             time.Time `gorm:"column:updated_at"`
}

func (ReceptionProcess) TableName() string {
	return "reception_processes"
}

// IsTerminal 已结束（完成或被拒）的流程不再接受任何事件
func (p *ReceptionProcess) IsTerminal() bool {
	return p.Status == StatusFinished || p.Status == StatusRejected
}
