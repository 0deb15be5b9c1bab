package server

import (
	"errors"

	"github.com/koopa0/system-design/14-game-server/internal/room"
	"github.com/koopa0/system-design/14-game-server/pkg/protocol"
)

// loginHandler 登入房間：等待客戶端設定名稱
//
// 加入時收到的 RoomJoinedEvent{Login} 就是要求設定名稱。
type loginHandler struct {
	s *Server
}

func (h *loginHandler) OnMemberAdded(r *room.Room, m room.Member) {
	r.Logger().Debug("等待設定名稱", "player_id", m.ID())
}

func (h *loginHandler) OnMessage(r *room.Room, m room.Member, msg protocol.Message) {
	switch msg := msg.(type) {
	case *protocol.SetNameRequest:
		h.setName(r, m, msg.Name)
	default:
		r.Logger().Debug("登入房間忽略訊息", "player_id", m.ID(), "type", msg.Type().String())
	}
}

func (h *loginHandler) OnMemberDisconnected(_ *room.Room, m room.Member) {
	h.s.forget(m)
}

// setName 驗證名稱，成功則移到大廳，失敗則留在登入房間重試
func (h *loginHandler) setName(r *room.Room, m room.Member, requested string) {
	name, err := h.s.players.ValidateName(requested, h.s.cfg.Game.MaxNameLength)
	if err != nil {
		r.Logger().Info("名稱被拒絕", "player_id", m.ID(), "name", requested, "error", err)
		if sendErr := m.TrySend(&protocol.SetNameResponse{Result: nameResult(err), Name: requested}); sendErr != nil {
			r.Logger().Debug("回覆名稱結果失敗", "player_id", m.ID(), "error", sendErr)
		}
		return
	}

	h.s.players.Get(m.ID()).Name = name
	if err := m.TrySend(&protocol.SetNameResponse{Result: protocol.NameAccepted, Name: name}); err != nil {
		// 已斷線：留在登入房間，下一輪清理
		return
	}

	r.Logger().Info("玩家登入", "player_id", m.ID(), "name", name)
	h.s.MoveToRoom(m, h.s.lobby)
}

func nameResult(err error) protocol.NameResult {
	switch {
	case errors.Is(err, ErrNameEmpty):
		return protocol.NameEmpty
	case errors.Is(err, ErrNameTooLong):
		return protocol.NameTooLong
	default:
		return protocol.NameTaken
	}
}
