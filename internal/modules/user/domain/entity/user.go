package entity

import "time"

// 组织角色，同时用于流程事件归属与告警定向
const (
	RoleVigilancia = "VIGILANCIA"
	RoleLogistica  = "LOGISTICA"
	RoleCalidad    = "CALIDAD"
	RoleProduccion = "PRODUCCION"
	RoleSistema    = "SISTEMA"
	RoleAdmin      = "ADMIN"
)

// OperativeRoles 参与收货流程的四个业务角色
var OperativeRoles = []string{RoleVigilancia, RoleProduccion, RoleLogistica, RoleCalidad}

// User 用户由其它服务维护，这里只读
type User struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;type:varchar(120);not null" json:"name"`
	Email     string    `gorm:"column:email;type:varchar(160);uniqueIndex" json:"email"`
	Role      string    `gorm:"column:role;type:varchar(20);index;not null" json:"role"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// IsValidRole 判断角色是否合法
func IsValidRole(role string) bool {
	switch role {
	case RoleVigilancia, RoleLogistica, RoleCalidad, RoleProduccion, RoleSistema, RoleAdmin:
		return true
	}
	return false
}
