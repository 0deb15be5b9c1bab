// Package protocol 定義客戶端與服務器之間唯一的互通契約：封包格式與訊息目錄
//
// 系統設計問題：
//
//	TCP 是位元組串流，沒有訊息邊界，如何可靠地傳遞有型別的訊息？
//
// 設計方案：
//
//	✅ 長度前綴封包：[uint32 長度][int32 型別判別碼][欄位...]
//	✅ 封閉的訊息集合：Message 介面以未匯出方法封閉，新增型別只需改一處
//	✅ 嚴格解碼：未知型別或長度不足直接報錯，不靜默丟棄（避免串流失去同步）
//
// 型別判別碼是穩定的，客戶端與服務器必須使用相同的數值。
package protocol

import "fmt"

// MessageType 型別判別碼
type MessageType int32

const (
	TypeHeartbeat          MessageType = 1
	TypeSetNameRequest     MessageType = 2
	TypeSetNameResponse    MessageType = 3
	TypeChatMessage        MessageType = 4
	TypeReadyStatusRequest MessageType = 5
	TypeLobbyInfoUpdate    MessageType = 6
	TypeRoomJoinedEvent    MessageType = 7
	TypeMakeMoveRequest    MessageType = 8
	TypeMakeMoveResult     MessageType = 9
	TypeResetBoardData     MessageType = 10
	TypeBoardData          MessageType = 11
	TypePlayerNameResponse MessageType = 12
	TypeClientNameEvent    MessageType = 13
	TypeMakeMoveRejected   MessageType = 14
	TypePlayerListRequest  MessageType = 15
	TypePlayerListResponse MessageType = 16
	TypeGameOverEvent      MessageType = 17
)

var typeNames = map[MessageType]string{
	TypeHeartbeat:          "Heartbeat",
	TypeSetNameRequest:     "SetNameRequest",
	TypeSetNameResponse:    "SetNameResponse",
	TypeChatMessage:        "ChatMessage",
	TypeReadyStatusRequest: "ReadyStatusRequest",
	TypeLobbyInfoUpdate:    "LobbyInfoUpdate",
	TypeRoomJoinedEvent:    "RoomJoinedEvent",
	TypeMakeMoveRequest:    "MakeMoveRequest",
	TypeMakeMoveResult:     "MakeMoveResult",
	TypeResetBoardData:     "ResetBoardData",
	TypeBoardData:          "BoardData",
	TypePlayerNameResponse: "PlayerNameResponse",
	TypeClientNameEvent:    "ClientNameEvent",
	TypeMakeMoveRejected:   "MakeMoveRejected",
	TypePlayerListRequest:  "PlayerListRequest",
	TypePlayerListResponse: "PlayerListResponse",
	TypeGameOverEvent:      "GameOverEvent",
}

func (t MessageType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MessageType(%d)", int32(t))
}

// Message 可序列化的訊息
//
// encode / decode 未匯出，所以訊息集合只能在本套件內擴充。
type Message interface {
	Type() MessageType
	encode(w *Writer)
	decode(r *Reader)
}

// newMessage 依判別碼建立空訊息
func newMessage(t MessageType) (Message, error) {
	switch t {
	case TypeHeartbeat:
		return &Heartbeat{}, nil
	case TypeSetNameRequest:
		return &SetNameRequest{}, nil
	case TypeSetNameResponse:
		return &SetNameResponse{}, nil
	case TypeChatMessage:
		return &ChatMessage{}, nil
	case TypeReadyStatusRequest:
		return &ReadyStatusRequest{}, nil
	case TypeLobbyInfoUpdate:
		return &LobbyInfoUpdate{}, nil
	case TypeRoomJoinedEvent:
		return &RoomJoinedEvent{}, nil
	case TypeMakeMoveRequest:
		return &MakeMoveRequest{}, nil
	case TypeMakeMoveResult:
		return &MakeMoveResult{}, nil
	case TypeResetBoardData:
		return &ResetBoardData{}, nil
	case TypeBoardData:
		return &BoardData{}, nil
	case TypePlayerNameResponse:
		return &PlayerNameResponse{}, nil
	case TypeClientNameEvent:
		return &ClientNameEvent{}, nil
	case TypeMakeMoveRejected:
		return &MakeMoveRejected{}, nil
	case TypePlayerListRequest:
		return &PlayerListRequest{}, nil
	case TypePlayerListResponse:
		return &PlayerListResponse{}, nil
	case TypeGameOverEvent:
		return &GameOverEvent{}, nil
	default:
		return nil, ErrUnknownType.WithDetails(fmt.Sprintf("discriminator %d", int32(t)))
	}
}
