package service

import "context"

const (
	EventProcessCreated = "reception-process:created"
	EventProcessUpdated = "reception-process:updated"
)

// RoleAlertEvent 角色告警事件名，如 CALIDAD:events-process-updated
func RoleAlertEvent(role string) string {
	return role + ":events-process-updated"
}

// RealtimePublisher 流程快照广播给所有在线用户，告警只推给对应角色
type RealtimePublisher interface {
	Broadcast(event string, payload interface{})
	EmitToRole(ctx context.Context, role, event string, payload interface{}) error
}

type nopRealtime struct{}

func (nopRealtime) Broadcast(string, interface{}) {}

func (nopRealtime) EmitToRole(context.Context, string, string, interface{}) error { return nil }
