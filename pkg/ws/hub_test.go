package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(c *Client) []Envelope {
	var out []Envelope
	for {
		select {
		case b, ok := <-c.send:
			if !ok {
				return out
			}
			var e Envelope
			_ = json.Unmarshal(b, &e)
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestDeviceContext(t *testing.T) {
	assert.Equal(t, "mobile", DeviceContext("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)"))
	assert.Equal(t, "mobile", DeviceContext("Mozilla/5.0 (Linux; Android 14; Pixel 8)"))
	assert.Equal(t, "desktop", DeviceContext("Mozilla/5.0 (Windows NT 10.0; Win64; x64)"))
	assert.Equal(t, "", DeviceContext("curl/8.4.0"))
	assert.Equal(t, "", DeviceContext(""))
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	h := NewHub()
	a := NewClient(1, nil, SessionMetadata{DeviceContext: "desktop"})
	b := NewClient(1, nil, SessionMetadata{DeviceContext: "mobile"})
	c := NewClient(1, nil, SessionMetadata{DeviceContext: "desktop"})

	assert.Len(t, h.Register(a), 1)
	assert.Len(t, h.Register(b), 2)
	assert.Len(t, h.Register(c), 3)
	assert.True(t, h.Connected(1))
	assert.Equal(t, []string{"2 desktop", "1 mobile"}, h.Contexts(1))

	remaining := h.Unregister(b)
	require.Len(t, remaining, 2)
	for _, s := range remaining {
		assert.NotEqual(t, b.ID(), s.SocketID)
	}
	assert.False(t, b.Emit("x", nil))

	h.Unregister(a)
	assert.Nil(t, h.Unregister(c))
	assert.False(t, h.Connected(1))
	assert.Empty(t, h.UserIDs())

	// 重复注销不会 panic
	assert.Nil(t, h.Unregister(c))
}

func TestHub_RegisterIgnoresAnonymous(t *testing.T) {
	h := NewHub()
	assert.Nil(t, h.Register(NewClient(0, nil, SessionMetadata{})))
	assert.Empty(t, h.UserIDs())
}

func TestHub_EmitRouting(t *testing.T) {
	h := NewHub()
	a1 := NewClient(1, nil, SessionMetadata{})
	a2 := NewClient(1, nil, SessionMetadata{})
	b := NewClient(2, nil, SessionMetadata{})
	h.Register(a1)
	h.Register(a2)
	h.Register(b)

	assert.Equal(t, 2, h.EmitToUser(1, "to-user", map[string]int{"n": 1}))
	assert.Equal(t, 1, h.EmitToUserExcept(1, a1.ID(), "except", nil))
	assert.Equal(t, 1, h.EmitToUsers([]int64{2, 3}, "to-users", nil))
	assert.Equal(t, 3, h.Broadcast("all", nil))

	events := func(c *Client) []string {
		var out []string
		for _, e := range drain(c) {
			out = append(out, e.Event)
		}
		return out
	}
	assert.Equal(t, []string{"to-user", "all"}, events(a1))
	assert.Equal(t, []string{"to-user", "except", "all"}, events(a2))
	assert.Equal(t, []string{"to-users", "all"}, events(b))
	assert.Equal(t, []int64{1, 2}, h.UserIDs())
}

func TestHub_SlowClientIsEvicted(t *testing.T) {
	h := NewHub()
	slow := NewClient(1, nil, SessionMetadata{})
	h.Register(slow)

	for i := 0; i < sendBufferSize; i++ {
		require.Equal(t, 1, h.EmitToUser(1, "fill", i))
	}
	assert.Equal(t, 0, h.EmitToUser(1, "overflow", nil))
	assert.False(t, h.Connected(1))
	assert.Len(t, drain(slow), sendBufferSize)
}
