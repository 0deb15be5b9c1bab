package server

import (
	"errors"

	"github.com/google/uuid"

	"github.com/koopa0/system-design/14-game-server/internal/events"
	"github.com/koopa0/system-design/14-game-server/internal/game"
	"github.com/koopa0/system-design/14-game-server/internal/room"
	apperrors "github.com/koopa0/system-design/14-game-server/pkg/errors"
	"github.com/koopa0/system-design/14-game-server/pkg/protocol"
)

// GameRoom 承載一局兩人對戰
//
// 系統設計問題：
//
//	一局結束後房間要能重用，玩家中途離開不能讓房間卡在「進行中」。
//
// 設計方案：
//
//	✅ 開局時記錄座位（加入順序），座位決定角色：第一位是玩家 1，先手
//	✅ 勝負、和局、對手離開都走同一個 endGame：全員回大廳、重置棋盤、標記閒置
//	✅ 違規落子只回覆給落子者，不影響對手
type GameRoom struct {
	id    string
	s     *Server
	room  *room.Room
	board *game.Board

	inPlay bool
	turn   int          // 輪到哪個角色
	seats  [2]uuid.UUID // seats[i] 的角色是 i+1
	names  [2]string
}

func newGameRoom(s *Server, id string) *GameRoom {
	g := &GameRoom{
		id:    id,
		s:     s,
		board: game.NewBoard(),
	}
	g.room = room.New(protocol.RoomGame, id, g, s.logger)
	return g
}

// ID 房間識別碼
func (g *GameRoom) ID() string {
	return g.id
}

// InPlay 是否有進行中的對局
func (g *GameRoom) InPlay() bool {
	return g.inPlay
}

// Room 底層房間
func (g *GameRoom) Room() *room.Room {
	return g.room
}

// Board 目前的棋盤
func (g *GameRoom) Board() *game.Board {
	return g.board
}

// StartGame 讓兩名玩家開始一局
//
// 房間已有進行中的對局時回傳 ErrGameInPlay，狀態不變。
func (g *GameRoom) StartGame(a, b room.Member) error {
	if g.inPlay {
		return apperrors.ErrGameInPlay.WithDetails(g.id)
	}

	g.board.Reset()
	g.inPlay = true
	g.turn = game.Player1
	g.seats = [2]uuid.UUID{a.ID(), b.ID()}
	g.names = [2]string{g.s.players.Name(a.ID()), g.s.players.Name(b.ID())}

	g.s.MoveToRoom(a, g.room)
	g.s.MoveToRoom(b, g.room)

	_ = g.room.Broadcast(&protocol.ResetBoardData{Board: g.board.Data()})
	_ = g.room.Broadcast(&protocol.PlayerNameResponse{Player1Name: g.names[0], Player2Name: g.names[1]})

	g.room.Logger().Info("對局開始", "player1", g.names[0], "player2", g.names[1])
	g.s.publish(events.Event{
		Type:    events.MatchStarted,
		RoomID:  g.id,
		Players: []string{g.names[0], g.names[1]},
	})
	return nil
}

// roleOf 成員的角色，非本局玩家回傳 game.Empty
func (g *GameRoom) roleOf(m room.Member) int {
	for i, id := range g.seats {
		if id == m.ID() {
			return i + 1
		}
	}
	return game.Empty
}

func (g *GameRoom) OnMemberAdded(*room.Room, room.Member) {}

func (g *GameRoom) OnMessage(r *room.Room, m room.Member, msg protocol.Message) {
	switch msg := msg.(type) {
	case *protocol.MakeMoveRequest:
		g.makeMove(m, msg.Move)
	case *protocol.ChatMessage:
		_ = r.Broadcast(msg)
	default:
		r.Logger().Debug("對局房間忽略訊息", "player_id", m.ID(), "type", msg.Type().String())
	}
}

// OnMemberDisconnected 對手離開視為異常結束，留下的玩家獲勝
//
// 同一輪內雙方都斷線時沒有勝者。
func (g *GameRoom) OnMemberDisconnected(r *room.Room, m room.Member) {
	leaver := g.s.players.Name(m.ID())
	g.s.forget(m)

	if !g.inPlay {
		return
	}

	r.Logger().Info("玩家中途離開", "name", leaver)

	result := events.Event{Type: events.MatchFinished, Abandoned: true}
	for _, o := range r.Members() {
		role := g.roleOf(o)
		// 尚未被移除的另一方也可能已斷線
		if role == game.Empty || !o.IsConnected() {
			continue
		}
		result.Winner = g.names[role-1]
		_ = o.TrySend(&protocol.ChatMessage{Message: leaver + " left the game"})
		_ = o.TrySend(&protocol.GameOverEvent{
			Winner:     int32(role),
			WinnerName: result.Winner,
			Abandoned:  true,
		})
	}

	g.endGame(result)
}

// makeMove 處理落子
//
// 依序檢查：對局進行中、輪到落子者、格子有效且為空。
func (g *GameRoom) makeMove(m room.Member, move int32) {
	reject := func(reason protocol.MoveRejection) {
		g.room.Logger().Debug("落子被拒絕", "player_id", m.ID(), "move", move, "reason", reason.String())
		_ = m.TrySend(&protocol.MakeMoveRejected{Move: move, Reason: reason})
	}

	role := g.roleOf(m)
	switch {
	case !g.inPlay || role == game.Empty:
		reject(protocol.RejectNotInPlay)
		return
	case role != g.turn:
		reject(protocol.RejectNotYourTurn)
		return
	}

	if err := g.board.MakeMove(int(move), role); err != nil {
		switch {
		case errors.Is(err, game.ErrCellOccupied):
			reject(protocol.RejectOccupied)
		default:
			reject(protocol.RejectOutOfRange)
		}
		return
	}

	_ = g.room.Broadcast(&protocol.MakeMoveResult{
		WhoMadeTheMove: int32(role),
		Board:          g.board.Data(),
	})

	if winner := g.board.WhoHasWon(); winner != game.Empty {
		name := g.names[winner-1]
		g.room.Logger().Info("對局結束", "winner", name)
		_ = g.room.Broadcast(&protocol.ChatMessage{Message: name + " is the winner"})
		_ = g.room.Broadcast(&protocol.GameOverEvent{Winner: int32(winner), WinnerName: name})
		g.endGame(events.Event{Type: events.MatchFinished, Winner: name})
		return
	}

	if g.board.IsFull() {
		g.room.Logger().Info("對局和局")
		_ = g.room.Broadcast(&protocol.ChatMessage{Message: "the game is a draw"})
		_ = g.room.Broadcast(&protocol.GameOverEvent{Winner: int32(game.Empty)})
		g.endGame(events.Event{Type: events.MatchFinished, Draw: true})
		return
	}

	g.turn = game.Player1 + game.Player2 - role
}

// endGame 全員回大廳，重置房間供下一局使用
func (g *GameRoom) endGame(result events.Event) {
	for _, m := range g.room.Members() {
		g.s.MoveToRoom(m, g.s.lobby)
	}

	g.board.Reset()
	g.inPlay = false
	g.turn = game.Empty
	g.seats = [2]uuid.UUID{}

	result.RoomID = g.id
	result.Players = []string{g.names[0], g.names[1]}
	g.names = [2]string{}

	g.s.publish(result)
}
