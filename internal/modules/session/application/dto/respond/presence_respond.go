package respond

import "LiveDock/pkg/ws"

// OnlineUserRespond 在线用户及其设备分布
type OnlineUserRespond struct {
	UserID   int64    `json:"userId"`
	Name     string   `json:"name"`
	Role     string   `json:"role"`
	Contexts []string `json:"contexts"`
}

type CurrentUserRespond struct {
	ID       int64                `json:"id"`
	Name     string               `json:"name"`
	Email    string               `json:"email"`
	Role     string               `json:"role"`
	Contexts []string             `json:"contexts"`
	Sessions []ws.SessionSnapshot `json:"sessions"`
}

type ReadyRespond struct {
	SocketID string               `json:"socketId"`
	Sessions []ws.SessionSnapshot `json:"sessions"`
}
