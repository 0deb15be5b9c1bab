package protocol

import "fmt"

// BoardCells 棋盤格數
const BoardCells = 9

// RoomKind 房間種類
type RoomKind int32

const (
	RoomLogin RoomKind = iota
	RoomLobby
	RoomGame
)

func (k RoomKind) String() string {
	switch k {
	case RoomLogin:
		return "login"
	case RoomLobby:
		return "lobby"
	case RoomGame:
		return "game"
	default:
		return fmt.Sprintf("RoomKind(%d)", int32(k))
	}
}

// NameResult 設定名稱的結果
type NameResult int32

const (
	NameAccepted NameResult = iota
	NameEmpty
	NameTaken
	NameTooLong
)

func (r NameResult) String() string {
	switch r {
	case NameAccepted:
		return "accepted"
	case NameEmpty:
		return "empty"
	case NameTaken:
		return "taken"
	case NameTooLong:
		return "too_long"
	default:
		return fmt.Sprintf("NameResult(%d)", int32(r))
	}
}

// MoveRejection 落子被拒絕的原因
type MoveRejection int32

const (
	RejectNotInPlay MoveRejection = iota + 1
	RejectNotYourTurn
	RejectOutOfRange
	RejectOccupied
)

func (r MoveRejection) String() string {
	switch r {
	case RejectNotInPlay:
		return "not_in_play"
	case RejectNotYourTurn:
		return "not_your_turn"
	case RejectOutOfRange:
		return "out_of_range"
	case RejectOccupied:
		return "occupied"
	default:
		return fmt.Sprintf("MoveRejection(%d)", int32(r))
	}
}

// Heartbeat 無內容，只用來偵測已消失的對端
type Heartbeat struct{}

func (*Heartbeat) Type() MessageType { return TypeHeartbeat }
func (*Heartbeat) encode(*Writer)    {}
func (*Heartbeat) decode(*Reader)    {}

// SetNameRequest 客戶端要求設定名稱
type SetNameRequest struct {
	Name string
}

func (*SetNameRequest) Type() MessageType  { return TypeSetNameRequest }
func (m *SetNameRequest) encode(w *Writer) { w.WriteString(m.Name) }
func (m *SetNameRequest) decode(r *Reader) { m.Name = r.ReadString() }

// SetNameResponse 設定名稱的結果；名稱重複時 Result 為 NameTaken
type SetNameResponse struct {
	Result NameResult
	Name   string
}

func (*SetNameResponse) Type() MessageType { return TypeSetNameResponse }

func (m *SetNameResponse) encode(w *Writer) {
	w.WriteInt32(int32(m.Result))
	w.WriteString(m.Name)
}

func (m *SetNameResponse) decode(r *Reader) {
	m.Result = NameResult(r.ReadInt32())
	m.Name = r.ReadString()
}

// ChatMessage 聊天訊息
type ChatMessage struct {
	Message string
}

func (*ChatMessage) Type() MessageType  { return TypeChatMessage }
func (m *ChatMessage) encode(w *Writer) { w.WriteString(m.Message) }
func (m *ChatMessage) decode(r *Reader) { m.Message = r.ReadString() }

// ReadyStatusRequest 切換準備狀態
type ReadyStatusRequest struct {
	Ready bool
}

func (*ReadyStatusRequest) Type() MessageType  { return TypeReadyStatusRequest }
func (m *ReadyStatusRequest) encode(w *Writer) { w.WriteBool(m.Ready) }
func (m *ReadyStatusRequest) decode(r *Reader) { m.Ready = r.ReadBool() }

// LobbyInfoUpdate 大廳人數與準備人數
type LobbyInfoUpdate struct {
	MemberCount int32
	ReadyCount  int32
}

func (*LobbyInfoUpdate) Type() MessageType { return TypeLobbyInfoUpdate }

func (m *LobbyInfoUpdate) encode(w *Writer) {
	w.WriteInt32(m.MemberCount)
	w.WriteInt32(m.ReadyCount)
}

func (m *LobbyInfoUpdate) decode(r *Reader) {
	m.MemberCount = r.ReadInt32()
	m.ReadyCount = r.ReadInt32()
}

// RoomJoinedEvent 通知成員已進入哪個房間
type RoomJoinedEvent struct {
	Room RoomKind
}

func (*RoomJoinedEvent) Type() MessageType  { return TypeRoomJoinedEvent }
func (m *RoomJoinedEvent) encode(w *Writer) { w.WriteInt32(int32(m.Room)) }
func (m *RoomJoinedEvent) decode(r *Reader) { m.Room = RoomKind(r.ReadInt32()) }

// MakeMoveRequest 在格子 Move（0-8）落子
type MakeMoveRequest struct {
	Move int32
}

func (*MakeMoveRequest) Type() MessageType  { return TypeMakeMoveRequest }
func (m *MakeMoveRequest) encode(w *Writer) { w.WriteInt32(m.Move) }
func (m *MakeMoveRequest) decode(r *Reader) { m.Move = r.ReadInt32() }

// BoardData 完整棋盤快照；0 為空格，1 / 2 為玩家角色
type BoardData struct {
	Cells [BoardCells]int32
}

func (*BoardData) Type() MessageType { return TypeBoardData }

func (m *BoardData) encode(w *Writer) {
	for _, c := range m.Cells {
		w.WriteInt32(c)
	}
}

func (m *BoardData) decode(r *Reader) {
	for i := range m.Cells {
		m.Cells[i] = r.ReadInt32()
	}
}

// MakeMoveResult 落子後的棋盤與落子者角色
type MakeMoveResult struct {
	WhoMadeTheMove int32
	Board          BoardData
}

func (*MakeMoveResult) Type() MessageType { return TypeMakeMoveResult }

func (m *MakeMoveResult) encode(w *Writer) {
	w.WriteInt32(m.WhoMadeTheMove)
	w.WriteMessage(&m.Board)
}

func (m *MakeMoveResult) decode(r *Reader) {
	m.WhoMadeTheMove = r.ReadInt32()
	r.readNested(&m.Board)
}

// ResetBoardData 開局或重置時的棋盤快照
type ResetBoardData struct {
	Board BoardData
}

func (*ResetBoardData) Type() MessageType  { return TypeResetBoardData }
func (m *ResetBoardData) encode(w *Writer) { w.WriteMessage(&m.Board) }
func (m *ResetBoardData) decode(r *Reader) { r.readNested(&m.Board) }

// PlayerNameResponse 對局雙方的名稱
type PlayerNameResponse struct {
	Player1Name string
	Player2Name string
}

func (*PlayerNameResponse) Type() MessageType { return TypePlayerNameResponse }

func (m *PlayerNameResponse) encode(w *Writer) {
	w.WriteString(m.Player1Name)
	w.WriteString(m.Player2Name)
}

func (m *PlayerNameResponse) decode(r *Reader) {
	m.Player1Name = r.ReadString()
	m.Player2Name = r.ReadString()
}

// ClientNameEvent 進入大廳時告知客戶端自己的名稱
type ClientNameEvent struct {
	Name string
}

func (*ClientNameEvent) Type() MessageType  { return TypeClientNameEvent }
func (m *ClientNameEvent) encode(w *Writer) { w.WriteString(m.Name) }
func (m *ClientNameEvent) decode(r *Reader) { m.Name = r.ReadString() }

// MakeMoveRejected 落子被拒絕，只發給落子者
type MakeMoveRejected struct {
	Move   int32
	Reason MoveRejection
}

func (*MakeMoveRejected) Type() MessageType { return TypeMakeMoveRejected }

func (m *MakeMoveRejected) encode(w *Writer) {
	w.WriteInt32(m.Move)
	w.WriteInt32(int32(m.Reason))
}

func (m *MakeMoveRejected) decode(r *Reader) {
	m.Move = r.ReadInt32()
	m.Reason = MoveRejection(r.ReadInt32())
}

// PlayerListRequest 查詢目前所有已命名的玩家
type PlayerListRequest struct{}

func (*PlayerListRequest) Type() MessageType { return TypePlayerListRequest }
func (*PlayerListRequest) encode(*Writer)    {}
func (*PlayerListRequest) decode(*Reader)    {}

// PlayerListResponse 已命名玩家列表（依名稱排序）
type PlayerListResponse struct {
	Names []string
}

func (*PlayerListResponse) Type() MessageType  { return TypePlayerListResponse }
func (m *PlayerListResponse) encode(w *Writer) { w.WriteStrings(m.Names) }
func (m *PlayerListResponse) decode(r *Reader) { m.Names = r.ReadStrings() }

// GameOverEvent 對局結束；Winner 為 0 表示平手，Abandoned 表示對手離線
type GameOverEvent struct {
	Winner     int32
	WinnerName string
	Abandoned  bool
}

func (*GameOverEvent) Type() MessageType { return TypeGameOverEvent }

func (m *GameOverEvent) encode(w *Writer) {
	w.WriteInt32(m.Winner)
	w.WriteString(m.WinnerName)
	w.WriteBool(m.Abandoned)
}

func (m *GameOverEvent) decode(r *Reader) {
	m.Winner = r.ReadInt32()
	m.WinnerName = r.ReadString()
	m.Abandoned = r.ReadBool()
}
