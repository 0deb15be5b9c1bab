// Package events 發布對局生命週期事件
//
// 系統設計問題：
//
//	外部系統（排行榜、統計、觀戰服務）想知道對局何時開始與結束，
//	但服務器主迴圈不能被網路 I/O 卡住，發布失敗也不能影響遊戲進行。
//
// 設計方案：
//
//	✅ Publisher 介面：NATS、Redis pub/sub、Nop 三種實作，由配置選擇
//	✅ Async 包裝：主迴圈只把事件放進緩衝 channel，背景 goroutine 負責送出
//	✅ 緩衝區滿就丟棄並記錄，發布失敗只記錄日誌
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/koopa0/system-design/14-game-server/internal/config"
	apperrors "github.com/koopa0/system-design/14-game-server/pkg/errors"
)

// Type 事件類型，同時是主題名稱的後綴
type Type string

const (
	MatchStarted  Type = "match.started"
	MatchFinished Type = "match.finished"
)

// Event 對局事件
type Event struct {
	Type      Type      `json:"type"`
	RoomID    string    `json:"room_id"`
	Players   []string  `json:"players"`
	Winner    string    `json:"winner,omitempty"`
	Draw      bool      `json:"draw,omitempty"`
	Abandoned bool      `json:"abandoned,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher 事件發布者
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Subject 事件的主題（NATS subject / Redis channel）
func Subject(prefix string, t Type) string {
	if prefix == "" {
		return string(t)
	}
	return prefix + "." + string(t)
}

// Nop 不做任何事的發布者
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// New 依配置創建發布者
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Publisher, error) {
	logger = logger.With(slog.String("component", "events"))

	switch cfg.Events.Driver {
	case config.DriverNone, "":
		return Nop{}, nil
	case config.DriverNATS:
		return NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, logger)
	case config.DriverRedis:
		return NewRedisPublisher(ctx, cfg.Events.RedisAddr, cfg.Events.SubjectPrefix, logger)
	default:
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "unknown events driver").
			WithDetails(fmt.Sprintf("%q", cfg.Events.Driver))
	}
}
