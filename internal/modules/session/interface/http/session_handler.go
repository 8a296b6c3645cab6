package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"LiveDock/internal/middleware/jwt"
	"LiveDock/internal/modules/session/application/dto/respond"
	"LiveDock/internal/modules/session/application/service"
	"LiveDock/pkg/back"
	"LiveDock/pkg/util/myjwt"
	"LiveDock/pkg/ws"
	"LiveDock/pkg/xerr"
	"LiveDock/pkg/zlog"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const readLimit = 1 << 16

// SessionHandler 实时网关，握手阶段完成鉴权
type SessionHandler struct {
	hub      *ws.Hub
	realtime service.RealtimeService
	users    jwt.UserResolver
	jwtKey   string
	upgrader websocket.Upgrader
}

// NewSessionHandler checkOrigin 为空时允许所有来源
func NewSessionHandler(hub *ws.Hub, realtime service.RealtimeService, users jwt.UserResolver, jwtKey string, checkOrigin func(r *http.Request) bool) *SessionHandler {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &SessionHandler{
		hub:      hub,
		realtime: realtime,
		users:    users,
		jwtKey:   jwtKey,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 子协议 auth 用于携带 token，握手时需要回显
			Subprotocols: []string{"auth"},
			CheckOrigin:  checkOrigin,
		},
	}
}

type inbound struct {
	Event string `json:"event"`
}

func (h *SessionHandler) Connect(c *gin.Context) {
	token, err := myjwt.ExtractToken(c.Request)
	if err != nil {
		back.Abort(c, xerr.Unauthorized, "Token not found")
		return
	}
	claims, err := myjwt.ParseToken(h.jwtKey, token)
	if err != nil {
		zlog.Debug("ws handshake rejected", zap.Error(err))
		back.Abort(c, xerr.Unauthorized, "Invalid token")
		return
	}
	user, err := h.users.GetActiveUser(c.Request.Context(), claims.UserID)
	if err != nil {
		back.Abort(c, xerr.Unauthorized, "Invalid token")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zlog.Error(err.Error())
		return
	}

	ua := c.Request.UserAgent()
	client := ws.NewClient(user.ID, conn, ws.SessionMetadata{
		IP:            c.ClientIP(),
		UserAgent:     ua,
		DeviceContext: ws.DeviceContext(ua),
	})
	sessions := h.hub.Register(client)
	go client.WritePump()
	zlog.Info("ws connected", zap.Int64("userId", user.ID), zap.String("socketId", client.ID()), zap.Int("sessions", len(sessions)))

	// 这里不能用 c.Request.Context()，连接断开时请求已经结束
	ctx := context.Background()
	client.Emit(service.EventReady, respond.ReadyRespond{SocketID: client.ID(), Sessions: sessions})
	client.Emit(service.EventCurrentUser, h.realtime.CurrentUser(user))
	h.hub.EmitToUserExcept(user.ID, client.ID(), service.EventUpdate, sessions)
	h.realtime.BroadcastPresence(ctx)

	defer func() {
		remaining := h.hub.Unregister(client)
		zlog.Info("ws disconnected", zap.Int64("userId", user.ID), zap.String("socketId", client.ID()), zap.Int("remaining", len(remaining)))
		if len(remaining) > 0 {
			h.hub.EmitToUser(user.ID, service.EventUpdate, remaining)
			return
		}
		h.realtime.BroadcastPresence(ctx)
	}()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(ws.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(ws.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(ws.PongWait))

		var msg inbound
		if json.Unmarshal(data, &msg) != nil {
			continue
		}
		switch msg.Event {
		case "sessions:get":
			client.Emit(service.EventUpdate, h.hub.Snapshot(user.ID))
		case "sessions:current_users":
			online, err := h.realtime.OnlineUsers(ctx)
			if err != nil {
				zlog.Warn("load online users failed", zap.Error(err))
				continue
			}
			client.Emit(service.EventCurrentUsers, online)
		}
	}
}
