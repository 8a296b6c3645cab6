package service

import (
	"context"

	"LiveDock/internal/modules/session/application/dto/respond"
	userEntity "LiveDock/internal/modules/user/domain/entity"
	userRepository "LiveDock/internal/modules/user/domain/repository"
	"LiveDock/pkg/ws"
	"LiveDock/pkg/zlog"

	"go.uber.org/zap"
)

const (
	EventReady        = "sessions:ready"
	EventCurrentUser  = "sessions:current_user"
	EventUpdate       = "sessions:update"
	EventCurrentUsers = "sessions:current_users"
)

// RealtimeService 基于会话注册表的实时推送与在线状态
type RealtimeService interface {
	Broadcast(event string, payload interface{})
	EmitToRole(ctx context.Context, role, event string, payload interface{}) error
	CurrentUser(user *userEntity.User) respond.CurrentUserRespond
	OnlineUsers(ctx context.Context) ([]respond.OnlineUserRespond, error)
	BroadcastPresence(ctx context.Context)
}

type realtimeServiceImpl struct {
	hub   *ws.Hub
	users userRepository.UserRepository
}

func NewRealtimeService(hub *ws.Hub, users userRepository.UserRepository) RealtimeService {
	return &realtimeServiceImpl{hub: hub, users: users}
}

func (s *realtimeServiceImpl) Broadcast(event string, payload interface{}) {
	n := s.hub.Broadcast(event, payload)
	zlog.Debug("ws broadcast", zap.String("event", event), zap.Int("sockets", n))
}

// EmitToRole 角色成员每次实时查询
func (s *realtimeServiceImpl) EmitToRole(ctx context.Context, role, event string, payload interface{}) error {
	users, err := s.users.FindAllByRole(ctx, role)
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	s.hub.EmitToUsers(ids, event, payload)
	return nil
}

func (s *realtimeServiceImpl) CurrentUser(user *userEntity.User) respond.CurrentUserRespond {
	return respond.CurrentUserRespond{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role,
		Contexts: s.hub.Contexts(user.ID),
		Sessions: s.hub.Snapshot(user.ID),
	}
}

func (s *realtimeServiceImpl) OnlineUsers(ctx context.Context) ([]respond.OnlineUserRespond, error) {
	ids := s.hub.UserIDs()
	out := make([]respond.OnlineUserRespond, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := s.users.FindAllByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]userEntity.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, id := range ids {
		u, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, respond.OnlineUserRespond{
			UserID:   id,
			Name:     u.Name,
			Role:     u.Role,
			Contexts: s.hub.Contexts(id),
		})
	}
	return out, nil
}

func (s *realtimeServiceImpl) BroadcastPresence(ctx context.Context) {
	online, err := s.OnlineUsers(ctx)
	if err != nil {
		zlog.Warn("load online users failed", zap.Error(err))
		return
	}
	s.hub.Broadcast(EventCurrentUsers, online)
}
