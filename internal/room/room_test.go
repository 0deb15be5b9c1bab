package room_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/koopa0/system-design/14-game-server/internal/room"
	apperrors "github.com/koopa0/system-design/14-game-server/pkg/errors"
	"github.com/koopa0/system-design/14-game-server/pkg/logger"
	"github.com/koopa0/system-design/14-game-server/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMember 記憶體內的成員，用來觀察房間行為
type fakeMember struct {
	id        uuid.UUID
	inbox     []protocol.Message
	recvErr   error
	sent      []protocol.Message
	sendErr   error
	connected bool
	closed    int
}

func newFakeMember(inbox ...protocol.Message) *fakeMember {
	return &fakeMember{id: uuid.New(), inbox: inbox, connected: true}
}

func (f *fakeMember) ID() uuid.UUID { return f.id }

func (f *fakeMember) TrySend(msg protocol.Message) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMember) TryReceive() (protocol.Message, error) {
	if f.recvErr != nil {
		f.connected = false
		return nil, f.recvErr
	}
	if len(f.inbox) == 0 {
		return nil, nil
	}
	msg := f.inbox[0]
	f.inbox = f.inbox[1:]
	return msg, nil
}

func (f *fakeMember) IsConnected() bool { return f.connected }

func (f *fakeMember) Close() {
	f.connected = false
	f.closed++
}

// recordingHandler 記錄所有鉤子呼叫
type recordingHandler struct {
	added        []uuid.UUID
	messages     []protocol.Message
	disconnected []uuid.UUID
	ticks        int

	onMessage func(r *room.Room, sender room.Member, msg protocol.Message)
}

func (h *recordingHandler) OnMemberAdded(_ *room.Room, m room.Member) {
	h.added = append(h.added, m.ID())
}

func (h *recordingHandler) OnMessage(r *room.Room, sender room.Member, msg protocol.Message) {
	h.messages = append(h.messages, msg)
	if h.onMessage != nil {
		h.onMessage(r, sender, msg)
	}
}

func (h *recordingHandler) OnMemberDisconnected(_ *room.Room, m room.Member) {
	h.disconnected = append(h.disconnected, m.ID())
}

func (h *recordingHandler) OnTick(*room.Room) {
	h.ticks++
}

func newRoom(h room.Handler) *room.Room {
	return room.New(protocol.RoomLobby, "lobby", h, logger.Discard())
}

// TestRoom_AddMember 測試加入成員
func TestRoom_AddMember(t *testing.T) {
	h := &recordingHandler{}
	r := newRoom(h)
	a, b := newFakeMember(), newFakeMember()

	r.AddMember(a)
	r.AddMember(b)
	r.AddMember(a) // 重複加入不應有效果

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 0, r.IndexOf(a))
	assert.Equal(t, 1, r.IndexOf(b))
	assert.Equal(t, []uuid.UUID{a.ID(), b.ID()}, h.added)

	require.Len(t, a.sent, 1)
	assert.Equal(t, &protocol.RoomJoinedEvent{Room: protocol.RoomLobby}, a.sent[0])
}

// TestRoom_RemoveMember 測試移除成員
func TestRoom_RemoveMember(t *testing.T) {
	r := newRoom(&recordingHandler{})
	a, b, c := newFakeMember(), newFakeMember(), newFakeMember()
	r.AddMember(a)
	r.AddMember(b)
	r.AddMember(c)

	assert.True(t, r.RemoveMember(b))
	assert.False(t, r.RemoveMember(b), "second remove is a no-op")
	assert.False(t, r.Has(b))

	// 其餘成員保持加入順序
	assert.Equal(t, 0, r.IndexOf(a))
	assert.Equal(t, 1, r.IndexOf(c))
	assert.Equal(t, -1, r.IndexOf(b))
}

// TestRoom_Broadcast 測試廣播
func TestRoom_Broadcast(t *testing.T) {
	t.Run("delivers to all", func(t *testing.T) {
		r := newRoom(&recordingHandler{})
		a, b := newFakeMember(), newFakeMember()
		r.AddMember(a)
		r.AddMember(b)

		require.NoError(t, r.Broadcast(&protocol.ChatMessage{Message: "hi"}))
		assert.Equal(t, &protocol.ChatMessage{Message: "hi"}, a.sent[len(a.sent)-1])
		assert.Equal(t, &protocol.ChatMessage{Message: "hi"}, b.sent[len(b.sent)-1])
	})

	t.Run("one failure does not stop the rest", func(t *testing.T) {
		r := newRoom(&recordingHandler{})
		a, b, c := newFakeMember(), newFakeMember(), newFakeMember()
		r.AddMember(a)
		r.AddMember(b)
		r.AddMember(c)
		b.sendErr = apperrors.ErrConnectionClosed

		err := r.Broadcast(&protocol.Heartbeat{})
		assert.ErrorIs(t, err, apperrors.ErrConnectionClosed)
		assert.Equal(t, &protocol.Heartbeat{}, a.sent[len(a.sent)-1])
		assert.Equal(t, &protocol.Heartbeat{}, c.sent[len(c.sent)-1])
	})
}

// TestRoom_Update_DispatchesInOrder 測試依加入順序分派所有訊息
func TestRoom_Update_DispatchesInOrder(t *testing.T) {
	h := &recordingHandler{}
	r := newRoom(h)

	a := newFakeMember(&protocol.ChatMessage{Message: "a1"}, &protocol.ChatMessage{Message: "a2"})
	b := newFakeMember(&protocol.ChatMessage{Message: "b1"})
	r.AddMember(a)
	r.AddMember(b)

	r.Update()

	assert.Equal(t, []protocol.Message{
		&protocol.ChatMessage{Message: "a1"},
		&protocol.ChatMessage{Message: "a2"},
		&protocol.ChatMessage{Message: "b1"},
	}, h.messages)
	assert.Equal(t, 1, h.ticks)
}

// TestRoom_Update_MemberMovedMidDrain 測試處理中被移出的成員
func TestRoom_Update_MemberMovedMidDrain(t *testing.T) {
	other := newRoom(&recordingHandler{})
	h := &recordingHandler{}
	r := newRoom(h)

	a := newFakeMember(
		&protocol.ReadyStatusRequest{Ready: true},
		&protocol.ChatMessage{Message: "for the next room"},
	)
	b := newFakeMember(&protocol.ChatMessage{Message: "b1"})

	// 收到第一則訊息就把成員移到另一個房間
	h.onMessage = func(r *room.Room, sender room.Member, msg protocol.Message) {
		if _, ok := msg.(*protocol.ReadyStatusRequest); ok {
			r.RemoveMember(sender)
			other.AddMember(sender)
		}
	}

	r.AddMember(a)
	r.AddMember(b)
	r.Update()

	assert.Len(t, h.messages, 2, "a's second message stays queued")
	require.Len(t, a.inbox, 1)
	assert.Equal(t, &protocol.ChatMessage{Message: "for the next room"}, a.inbox[0])
	assert.True(t, other.Has(a))
	assert.False(t, r.Has(a))
}

// TestRoom_Update_Disconnected 測試斷線清理
func TestRoom_Update_Disconnected(t *testing.T) {
	h := &recordingHandler{}
	r := newRoom(h)
	a, b := newFakeMember(), newFakeMember()
	r.AddMember(a)
	r.AddMember(b)

	a.connected = false
	r.Update()

	assert.False(t, r.Has(a))
	assert.True(t, r.Has(b))
	assert.Equal(t, 1, a.closed)
	assert.Equal(t, []uuid.UUID{a.ID()}, h.disconnected)

	// 下一輪不應再次觸發
	r.Update()
	assert.Len(t, h.disconnected, 1)
}

// movingHandler 斷線時把其餘成員移到另一個房間
type movingHandler struct {
	recordingHandler
	to *room.Room
}

func (h *movingHandler) OnMemberDisconnected(r *room.Room, m room.Member) {
	h.recordingHandler.OnMemberDisconnected(r, m)
	for _, other := range r.Members() {
		r.RemoveMember(other)
		h.to.AddMember(other)
	}
}

// TestRoom_Update_HookMovesOtherDisconnected 測試鉤子移走的斷線成員不會被重複處理
func TestRoom_Update_HookMovesOtherDisconnected(t *testing.T) {
	other := newRoom(&recordingHandler{})
	h := &movingHandler{to: other}
	r := newRoom(h)

	a, b := newFakeMember(), newFakeMember()
	r.AddMember(a)
	r.AddMember(b)
	a.connected = false
	b.connected = false

	r.Update()

	assert.Equal(t, []uuid.UUID{a.ID()}, h.disconnected)
	assert.Equal(t, 1, a.closed)
	assert.Equal(t, 0, b.closed, "b now belongs to the other room")
	assert.True(t, other.Has(b))
	assert.Equal(t, 0, r.Len())
}

// TestRoom_Update_ProtocolError 測試協議錯誤的成員被移除
func TestRoom_Update_ProtocolError(t *testing.T) {
	h := &recordingHandler{}
	r := newRoom(h)
	a := newFakeMember()
	a.recvErr = errors.New("garbage")
	r.AddMember(a)

	r.Update()

	assert.Equal(t, 0, r.Len())
	assert.Equal(t, []uuid.UUID{a.ID()}, h.disconnected)
	assert.Empty(t, h.messages)
}

// plainHandler 沒有實作 TickHandler
type plainHandler struct{}

func (plainHandler) OnMemberAdded(*room.Room, room.Member)               {}
func (plainHandler) OnMessage(*room.Room, room.Member, protocol.Message) {}
func (plainHandler) OnMemberDisconnected(*room.Room, room.Member)        {}

// TestRoom_Update_WithoutTickHandler 測試可選介面
func TestRoom_Update_WithoutTickHandler(t *testing.T) {
	r := newRoom(plainHandler{})
	r.AddMember(newFakeMember(&protocol.Heartbeat{}))
	assert.NotPanics(t, r.Update)
}

// broadcastHandler 每則訊息都廣播給全房間
type broadcastHandler struct{ plainHandler }

func (broadcastHandler) OnMessage(r *room.Room, _ room.Member, msg protocol.Message) {
	_ = r.Broadcast(msg)
}

// BenchmarkRoom_UpdateBroadcast 基準測試：每位成員每輪一則訊息並廣播
func BenchmarkRoom_UpdateBroadcast(b *testing.B) {
	const numMembers = 50

	r := newRoom(broadcastHandler{})
	members := make([]*fakeMember, numMembers)
	for i := range members {
		members[i] = newFakeMember()
		r.AddMember(members[i])
	}
	msg := &protocol.ChatMessage{Message: "hi"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, m := range members {
			m.sent = m.sent[:0]
			m.inbox = append(m.inbox, msg)
		}
		r.Update()
	}

	b.ReportMetric(float64(b.N*numMembers)/b.Elapsed().Seconds(), "msgs/sec")
}
