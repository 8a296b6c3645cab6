package ws

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"LiveDock/pkg/util"
	"LiveDock/pkg/zlog"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBufferSize = 64
	writeWait      = 10 * time.Second

	// PongWait 读超时，PingPeriod 必须小于它
	PongWait   = 60 * time.Second
	PingPeriod = 50 * time.Second
)

var (
	mobileUA  = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)
	desktopUA = regexp.MustCompile(`(?i)Windows|Macintosh|Linux`)
)

// SessionMetadata 连接元信息
type SessionMetadata struct {
	IP            string `json:"ip,omitempty"`
	UserAgent     string `json:"userAgent,omitempty"`
	DeviceContext string `json:"deviceContext,omitempty"`
}

// SessionSnapshot 对外暴露的会话快照，不包含连接句柄
type SessionSnapshot struct {
	SocketID    string          `json:"socketId"`
	ConnectedAt time.Time       `json:"connectedAt"`
	Metadata    SessionMetadata `json:"metadata"`
}

// Envelope 下行帧格式
type Envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// DeviceContext 根据 UA 判断 mobile / desktop，无法判断时返回空串
func DeviceContext(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	if mobileUA.MatchString(userAgent) {
		return "mobile"
	}
	if desktopUA.MatchString(userAgent) {
		return "desktop"
	}
	return ""
}

// Hub 按用户维护所有在线连接，一个用户可同时持有多个连接（多标签页/多设备）
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[int64]map[string]*Client),
	}
}

// Register 登记连接，返回该用户当前全部会话快照
func (h *Hub) Register(c *Client) []SessionSnapshot {
	if c == nil || c.userID == 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.userID]
	if set == nil {
		set = make(map[string]*Client)
		h.clients[c.userID] = set
	}
	set[c.id] = c
	return snapshotOf(set)
}

// Unregister 移除连接并关闭，返回该用户剩余会话快照
func (h *Hub) Unregister(c *Client) []SessionSnapshot {
	if c == nil || c.userID == 0 {
		return nil
	}
	h.mu.Lock()
	var remaining []SessionSnapshot
	set := h.clients[c.userID]
	if set != nil {
		delete(set, c.id)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		} else {
			remaining = snapshotOf(set)
		}
	}
	h.mu.Unlock()
	c.Close()
	return remaining
}

func (h *Hub) Snapshot(userID int64) []SessionSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return snapshotOf(h.clients[userID])
}

// UserIDs 当前在线用户，升序
func (h *Hub) UserIDs() []int64 {
	h.mu.RLock()
	ids := make([]int64, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (h *Hub) Connected(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// Contexts 按设备类型汇总，例如 ["2 desktop", "1 mobile"]
func (h *Hub) Contexts(userID int64) []string {
	h.mu.RLock()
	counts := make(map[string]int)
	for _, c := range h.clients[userID] {
		if c.metadata.DeviceContext != "" {
			counts[c.metadata.DeviceContext]++
		}
	}
	h.mu.RUnlock()

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strconv.Itoa(counts[k])+" "+k)
	}
	return out
}

// EmitToUser 推送给某用户的全部连接，返回成功入队的连接数
func (h *Hub) EmitToUser(userID int64, event string, payload interface{}) int {
	b, err := encode(event, payload)
	if err != nil {
		zlog.Error("ws encode failed", zap.String("event", event), zap.Error(err))
		return 0
	}
	return h.send(h.clientsOf(userID), b)
}

// EmitToUserExcept 推送给某用户除 socketID 以外的连接
func (h *Hub) EmitToUserExcept(userID int64, socketID, event string, payload interface{}) int {
	b, err := encode(event, payload)
	if err != nil {
		zlog.Error("ws encode failed", zap.String("event", event), zap.Error(err))
		return 0
	}
	clients := h.clientsOf(userID)
	others := clients[:0]
	for _, c := range clients {
		if c.id != socketID {
			others = append(others, c)
		}
	}
	return h.send(others, b)
}

func (h *Hub) EmitToUsers(userIDs []int64, event string, payload interface{}) int {
	b, err := encode(event, payload)
	if err != nil {
		zlog.Error("ws encode failed", zap.String("event", event), zap.Error(err))
		return 0
	}
	n := 0
	for _, id := range userIDs {
		n += h.send(h.clientsOf(id), b)
	}
	return n
}

// Broadcast 推送给所有在线连接
func (h *Hub) Broadcast(event string, payload interface{}) int {
	b, err := encode(event, payload)
	if err != nil {
		zlog.Error("ws encode failed", zap.String("event", event), zap.Error(err))
		return 0
	}
	h.mu.RLock()
	all := make([]*Client, 0)
	for _, set := range h.clients {
		for _, c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()
	return h.send(all, b)
}

func (h *Hub) clientsOf(userID int64) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.clients[userID]
	out := make([]*Client, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

func (h *Hub) send(clients []*Client, payload []byte) int {
	n := 0
	for _, c := range clients {
		if c.enqueue(payload) {
			n++
			continue
		}
		// 缓冲区已满或已关闭的慢连接直接踢掉
		h.Unregister(c)
	}
	return n
}

func encode(event string, payload interface{}) ([]byte, error) {
	return json.Marshal(Envelope{Event: event, Payload: payload})
}

func snapshotOf(set map[string]*Client) []SessionSnapshot {
	out := make([]SessionSnapshot, 0, len(set))
	for _, c := range set {
		out = append(out, c.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].SocketID < out[j].SocketID
		}
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}

type Client struct {
	id          string
	userID      int64
	conn        *websocket.Conn
	send        chan []byte
	connectedAt time.Time
	metadata    SessionMetadata

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

func NewClient(userID int64, conn *websocket.Conn, metadata SessionMetadata) *Client {
	return &Client{
		id:          util.GenerateShortUUID(),
		userID:      userID,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
		metadata:    metadata,
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) UserID() int64 { return c.userID }

func (c *Client) Snapshot() SessionSnapshot {
	return SessionSnapshot{
		SocketID:    c.id,
		ConnectedAt: c.connectedAt,
		Metadata:    c.metadata,
	}
}

// Emit 只推送给当前连接
func (c *Client) Emit(event string, payload interface{}) bool {
	b, err := encode(event, payload)
	if err != nil {
		zlog.Error("ws encode failed", zap.String("event", event), zap.Error(err))
		return false
	}
	return c.enqueue(b)
}

func (c *Client) enqueue(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// WritePump 串行写出队列中的消息，并定时发送 ping 维持连接
func (c *Client) WritePump() {
	if c.conn == nil {
		return
	}
	ticker := time.NewTicker(PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				zlog.Debug("ws write failed", zap.String("socketId", c.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
