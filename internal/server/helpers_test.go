package server

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/system-design/14-game-server/internal/config"
	"github.com/koopa0/system-design/14-game-server/internal/events"
	"github.com/koopa0/system-design/14-game-server/pkg/logger"
	"github.com/koopa0/system-design/14-game-server/pkg/protocol"
)

// fakeMember 記憶體內的連接，由測試直接驅動 Step
type fakeMember struct {
	id        uuid.UUID
	inbox     []protocol.Message
	sent      []protocol.Message
	connected bool
	closed    int
}

func newFakeMember() *fakeMember {
	return &fakeMember{id: uuid.New(), connected: true}
}

func (f *fakeMember) ID() uuid.UUID { return f.id }

func (f *fakeMember) TrySend(msg protocol.Message) error {
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMember) TryReceive() (protocol.Message, error) {
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

func (f *fakeMember) push(msgs ...protocol.Message) {
	f.inbox = append(f.inbox, msgs...)
}

// received 收到的訊息（不含心跳）
func (f *fakeMember) received() []protocol.Message {
	var out []protocol.Message
	for _, m := range f.sent {
		if _, ok := m.(*protocol.Heartbeat); !ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeMember) reset() {
	f.sent = nil
}

// lastOf 最後一則 T 類型的訊息
func lastOf[T protocol.Message](f *fakeMember) (T, bool) {
	msgs := f.received()
	for i := len(msgs) - 1; i >= 0; i-- {
		if m, ok := msgs[i].(T); ok {
			return m, true
		}
	}
	var zero T
	return zero, false
}

// countOf T 類型訊息的數量
func countOf[T protocol.Message](f *fakeMember) int {
	n := 0
	for _, m := range f.received() {
		if _, ok := m.(T); ok {
			n++
		}
	}
	return n
}

// recordingPublisher 記錄發布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) snapshot() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.TCPAddr = "127.0.0.1:0"
	cfg.Game.MaxNameLength = 10
	return cfg
}

func newTestServer(t *testing.T) (*Server, *recordingPublisher) {
	t.Helper()

	pub := &recordingPublisher{}
	return New(testConfig(), pub, logger.Discard()), pub
}

// join 新成員設定名稱並進入大廳
func join(t *testing.T, s *Server, name string) *fakeMember {
	t.Helper()

	m := newFakeMember()
	s.enter(m)
	m.push(&protocol.SetNameRequest{Name: name})
	s.Step()

	require.True(t, s.lobby.Has(m), "%s should be in the lobby", name)
	m.reset()
	return m
}

// startMatch 兩名玩家準備後開局，返回所在的對局房間
func startMatch(t *testing.T, s *Server, a, b *fakeMember) *GameRoom {
	t.Helper()

	a.push(&protocol.ReadyStatusRequest{Ready: true})
	b.push(&protocol.ReadyStatusRequest{Ready: true})
	s.Step()

	g := s.gameOf(a)
	require.NotNil(t, g, "player should be in a game room")
	require.True(t, g.room.Has(b))
	require.True(t, g.InPlay())
	a.reset()
	b.reset()
	return g
}

// gameOf 成員所在的對局房間
func (s *Server) gameOf(m *fakeMember) *GameRoom {
	for _, g := range s.pool {
		if g.room.Has(m) {
			return g
		}
	}
	return nil
}

// move 落子並執行一輪
func move(s *Server, m *fakeMember, cell int32) {
	m.push(&protocol.MakeMoveRequest{Move: cell})
	s.Step()
}

// assertIsolation 每個已知成員恰好在一個房間裡，且與索引一致
func assertIsolation(t *testing.T, s *Server) {
	t.Helper()

	seen := make(map[uuid.UUID]int)
	for _, r := range s.rooms() {
		for _, m := range r.Members() {
			seen[m.ID()]++
			require.Same(t, r, s.location[m.ID()], "location index out of sync for %s", m.ID())
		}
	}
	for id, n := range seen {
		require.Equal(t, 1, n, "member %s is in %d rooms", id, n)
	}
	require.Len(t, s.location, len(seen), "location index has stale entries")
}
