package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/koopa0/system-design/14-game-server/pkg/errors"
)

// ErrQueueFull 事件緩衝區已滿
var ErrQueueFull = apperrors.New(apperrors.ErrCodeInternal, "event queue full")

// ErrPublisherClosed 發布者已關閉
var ErrPublisherClosed = apperrors.New(apperrors.ErrCodeClosed, "publisher closed")

// Async 把發布移到背景 goroutine
//
// Publish 永不阻塞：緩衝區滿時直接丟棄事件並回傳 ErrQueueFull。
type Async struct {
	next    Publisher
	queue   chan Event
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex // 保護 closed 與 queue 的關閉
	closed bool
	done   chan struct{}
}

// NewAsync 創建非同步發布者
func NewAsync(next Publisher, buffer int, logger *slog.Logger) *Async {
	if buffer <= 0 {
		buffer = 256
	}

	a := &Async{
		next:    next,
		queue:   make(chan Event, buffer),
		timeout: 3 * time.Second,
		logger:  logger.With(slog.String("component", "events")),
		done:    make(chan struct{}),
	}

	go a.run()

	return a
}

// Publish 放入緩衝區
func (a *Async) Publish(_ context.Context, ev Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return ErrPublisherClosed
	}

	select {
	case a.queue <- ev:
		return nil
	default:
		a.logger.Warn("事件緩衝區已滿，丟棄事件", "type", ev.Type, "room_id", ev.RoomID)
		return ErrQueueFull
	}
}

func (a *Async) run() {
	defer close(a.done)

	for ev := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Publish(ctx, ev); err != nil {
			a.logger.Warn("發布事件失敗", "type", ev.Type, "room_id", ev.RoomID, "error", err)
		}
		cancel()
	}
}

// Close 送完緩衝區中的事件後關閉底層發布者
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	<-a.done
	return a.next.Close()
}
