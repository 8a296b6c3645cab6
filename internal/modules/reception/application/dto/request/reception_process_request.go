package request

type CreateProcessRequest struct {
	TypeOfMaterial string `json:"typeOfMaterial" binding:"required,oneof=ALCOHOL AGUA LESS COLGATE"`
}

// ChangeStatusRequest actionRole 为动作名（或事件名）
type ChangeStatusRequest struct {
	ID         int64  `json:"id" binding:"required,gt=0"`
	ActionRole string `json:"actionRole" binding:"required"`
}

// FindQuery startDate 支持 RFC3339 或 2006-01-02
type FindQuery struct {
	StartDate string `form:"startDate"`
}
