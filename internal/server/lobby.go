package server

import (
	"github.com/koopa0/system-design/14-game-server/internal/room"
	"github.com/koopa0/system-design/14-game-server/pkg/protocol"
)

// lobbyHandler 大廳：聊天、準備狀態與配對
type lobbyHandler struct {
	s *Server
}

// OnMemberAdded 清除準備狀態，告知客戶端自己的名稱，廣播大廳資訊
func (h *lobbyHandler) OnMemberAdded(r *room.Room, m room.Member) {
	info := h.s.players.Get(m.ID())
	info.Ready = false

	if err := m.TrySend(&protocol.ClientNameEvent{Name: info.Name}); err != nil {
		r.Logger().Debug("發送玩家名稱失敗", "player_id", m.ID(), "error", err)
	}
	h.broadcastInfo(r)
}

func (h *lobbyHandler) OnMessage(r *room.Room, m room.Member, msg protocol.Message) {
	switch msg := msg.(type) {
	case *protocol.ChatMessage:
		_ = r.Broadcast(msg)

	case *protocol.ReadyStatusRequest:
		info := h.s.players.Get(m.ID())
		if info.Ready == msg.Ready {
			return
		}
		info.Ready = msg.Ready
		r.Logger().Debug("準備狀態變更", "name", info.Name, "ready", msg.Ready)
		h.broadcastInfo(r)

	case *protocol.PlayerListRequest:
		if err := m.TrySend(&protocol.PlayerListResponse{Names: h.s.players.Names()}); err != nil {
			r.Logger().Debug("回覆玩家列表失敗", "player_id", m.ID(), "error", err)
		}

	default:
		r.Logger().Debug("大廳忽略訊息", "player_id", m.ID(), "type", msg.Type().String())
	}
}

func (h *lobbyHandler) OnMemberDisconnected(r *room.Room, m room.Member) {
	h.s.forget(m)
	h.broadcastInfo(r)
}

// OnTick 配對：只要有兩名以上準備好的成員，依加入大廳的順序取前兩名開局
func (h *lobbyHandler) OnTick(r *room.Room) {
	matched := false

	for {
		ready := h.readyMembers(r)
		if len(ready) < 2 {
			break
		}
		a, b := ready[0], ready[1]
		h.s.players.Get(a.ID()).Ready = false
		h.s.players.Get(b.ID()).Ready = false

		g := h.s.RequestGameRoom()
		if err := g.StartGame(a, b); err != nil {
			// RequestGameRoom 只回傳閒置房間，走到這裡代表程式錯誤
			r.Logger().Error("開局失敗", "room", g.ID(), "error", err)
			break
		}
		matched = true
	}

	if matched {
		h.broadcastInfo(r)
	}
}

// readyMembers 準備好的成員，保持加入順序
func (h *lobbyHandler) readyMembers(r *room.Room) []room.Member {
	var ready []room.Member
	for _, m := range r.Members() {
		if info, ok := h.s.players.Lookup(m.ID()); ok && info.Ready {
			ready = append(ready, m)
		}
	}
	return ready
}

func (h *lobbyHandler) broadcastInfo(r *room.Room) {
	update := &protocol.LobbyInfoUpdate{
		MemberCount: int32(r.Len()),
		ReadyCount:  int32(len(h.readyMembers(r))),
	}
	_ = r.Broadcast(update)
}
