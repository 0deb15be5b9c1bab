// Package room 實現通用的房間引擎
//
// 系統設計問題：
//
//	登入、大廳、對局三種房間的成員管理、訊息收取、斷線清理都一樣，
//	只有「收到訊息後做什麼」不同，如何避免三份重複的程式碼？
//
// 設計方案：
//
//	✅ 單一 Room 引擎 + 可插拔的 Handler 策略（而非繼承體系）
//	✅ 每輪 Update 先對成員拍快照，再依序處理，成員在處理中被移走也安全
//	✅ 廣播逐一送出，單一成員失敗不影響其他人
//
// 並發模型：
//
//	Room 不加鎖。所有房間都由服務器的單一迴圈依序驅動，
//	迴圈的一輪就是臨界區的邊界。
package room

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/koopa0/system-design/14-game-server/pkg/protocol"
)

// Member 房間成員（一條客戶端通道）
type Member interface {
	ID() uuid.UUID
	TrySend(msg protocol.Message) error
	TryReceive() (protocol.Message, error)
	IsConnected() bool
	Close()
}

// Handler 房間的行為策略
type Handler interface {
	// OnMemberAdded 成員加入後呼叫（RoomJoinedEvent 已送出）
	OnMemberAdded(r *Room, m Member)
	// OnMessage 處理成員送來的訊息
	OnMessage(r *Room, sender Member, msg protocol.Message)
	// OnMemberDisconnected 斷線成員已被移除並關閉後呼叫
	OnMemberDisconnected(r *Room, m Member)
}

// TickHandler 可選介面：每次 Update 結束時呼叫
type TickHandler interface {
	OnTick(r *Room)
}

// Room 有序的成員集合
//
// 成員順序即加入順序，用於角色分配（第一個加入的是玩家 1）。
type Room struct {
	kind    protocol.RoomKind
	name    string
	members []Member
	handler Handler
	logger  *slog.Logger
}

// New 創建房間
func New(kind protocol.RoomKind, name string, handler Handler, logger *slog.Logger) *Room {
	return &Room{
		kind:    kind,
		name:    name,
		handler: handler,
		logger:  logger.With(slog.String("room", name)),
	}
}

// Kind 房間種類
func (r *Room) Kind() protocol.RoomKind {
	return r.kind
}

// Name 房間名稱（日誌用）
func (r *Room) Name() string {
	return r.name
}

// Logger 房間的日誌記錄器
func (r *Room) Logger() *slog.Logger {
	return r.logger
}

// AddMember 加入成員並通知它進入了哪個房間
//
// 已是成員時不做任何事。
func (r *Room) AddMember(m Member) {
	if r.Has(m) {
		return
	}
	r.members = append(r.members, m)

	if err := m.TrySend(&protocol.RoomJoinedEvent{Room: r.kind}); err != nil {
		r.logger.Warn("發送房間加入事件失敗", "member", m.ID(), "error", err)
	}

	r.handler.OnMemberAdded(r, m)
}

// RemoveMember 移除成員，非成員時回傳 false
func (r *Room) RemoveMember(m Member) bool {
	i := r.IndexOf(m)
	if i < 0 {
		return false
	}
	r.members = slices.Delete(r.members, i, i+1)
	return true
}

// Has 是否為成員
func (r *Room) Has(m Member) bool {
	return r.IndexOf(m) >= 0
}

// IndexOf 成員的加入順序索引，非成員回傳 -1
func (r *Room) IndexOf(m Member) int {
	id := m.ID()
	return slices.IndexFunc(r.members, func(x Member) bool { return x.ID() == id })
}

// Members 成員快照
func (r *Room) Members() []Member {
	return slices.Clone(r.members)
}

// Len 成員數
func (r *Room) Len() int {
	return len(r.members)
}

// Broadcast 發送給所有成員
//
// 單一成員失敗不會中斷迴圈；所有失敗合併回傳。
func (r *Room) Broadcast(msg protocol.Message) error {
	var errs []error
	for _, m := range r.Members() {
		if err := m.TrySend(msg); err != nil {
			errs = append(errs, fmt.Errorf("member %s: %w", m.ID(), err))
		}
	}
	if len(errs) > 0 {
		r.logger.Debug("廣播部分失敗",
			"type", msg.Type().String(),
			"failed", len(errs),
			"members", r.Len())
	}
	return errors.Join(errs...)
}

// Update 處理一輪
//
//  1. 對成員拍快照
//  2. 逐一收取成員目前所有可用訊息，交給 Handler
//     （成員在處理中離開房間就停止收取，剩下的訊息留給新房間）
//  3. 移除已斷線的成員並呼叫斷線鉤子
//  4. 呼叫 TickHandler（若有實作）
func (r *Room) Update() {
	for _, m := range r.Members() {
		r.drain(m)
	}

	for _, m := range r.Members() {
		// 前一個斷線鉤子可能已把它移到別的房間
		if m.IsConnected() || !r.RemoveMember(m) {
			continue
		}
		m.Close()
		r.logger.Info("成員已斷線", "member", m.ID())
		r.handler.OnMemberDisconnected(r, m)
	}

	if th, ok := r.handler.(TickHandler); ok {
		th.OnTick(r)
	}
}

func (r *Room) drain(m Member) {
	for r.Has(m) {
		msg, err := m.TryReceive()
		if err != nil {
			// 協議錯誤：通道已自行關閉，由下方的斷線檢查清理
			r.logger.Warn("協議錯誤，移除成員", "member", m.ID(), "error", err)
			return
		}
		if msg == nil {
			return
		}
		r.handler.OnMessage(r, m, msg)
	}
}
