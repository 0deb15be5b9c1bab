// Package transport 將一條連接包裝成可收發訊息的通道
//
// 系統設計問題：
//
//	服務器用單一迴圈驅動所有房間，讀寫都不能阻塞這個迴圈，怎麼辦？
//
// 設計方案：
//
//	✅ 每條連接一個讀取 goroutine：只負責把原始位元組搬進緩衝區
//	✅ TryReceive 非阻塞：在鎖內從緩衝區解出完整封包，不足一個封包就回傳 nil
//	✅ 每條連接一個寫入 goroutine：帶期限寫出封包，關閉握手也在這裡完成
//	✅ TrySend 非阻塞：放進發送佇列，佇列滿或寫入失敗即標記為斷線
//	✅ 斷線只做標記：由所屬房間在下一次 Update 時移除並清理
package transport

import (
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/koopa0/system-design/14-game-server/pkg/errors"
	"github.com/koopa0/system-design/14-game-server/pkg/protocol"
)

// ErrSendQueueFull 發送佇列已滿，對端讀取太慢
var ErrSendQueueFull = apperrors.ErrConnectionClosed.WithDetails("send queue full")

// Conn 通道所需的連接能力，net.Conn 與 WSConn 都滿足
type Conn interface {
	io.ReadWriteCloser
	SetWriteDeadline(t time.Time) error
	RemoteAddr() net.Addr
}

// Options 通道設定
type Options struct {
	WriteTimeout time.Duration // 單一封包的寫入期限
	MaxFrameSize int           // 單一封包上限（不含長度前綴）
	ReadBuffer   int           // 每次 Read 的緩衝大小
	SendQueue    int           // 發送佇列長度，滿了就視為對端太慢
}

// DefaultOptions 預設通道設定
func DefaultOptions() Options {
	return Options{
		WriteTimeout: 2 * time.Second,
		MaxFrameSize: protocol.DefaultMaxFrameSize,
		ReadBuffer:   4096,
		SendQueue:    256,
	}
}

// Channel 包裝一條客戶端連接
//
// ID 是與連接物件無關的不透明識別碼，用來當作玩家資訊與房間索引的鍵。
type Channel struct {
	id     uuid.UUID
	conn   Conn
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex // 保護 decoder 與 readErr
	decoder *protocol.Decoder
	readErr error

	send      chan []byte
	quit      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewChannel 包裝連接並啟動讀取 goroutine
func NewChannel(conn Conn, opts Options, logger *slog.Logger) *Channel {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultOptions().WriteTimeout
	}
	if opts.ReadBuffer <= 0 {
		opts.ReadBuffer = DefaultOptions().ReadBuffer
	}
	if opts.SendQueue <= 0 {
		opts.SendQueue = DefaultOptions().SendQueue
	}

	id := uuid.New()
	c := &Channel{
		id:      id,
		conn:    conn,
		opts:    opts,
		decoder: protocol.NewDecoder(opts.MaxFrameSize),
		send:    make(chan []byte, opts.SendQueue),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		logger: logger.With(
			slog.String("channel_id", id.String()),
			slog.String("remote", remoteString(conn)),
		),
	}

	go c.readLoop()
	go c.writeLoop()

	return c
}

// ID 返回通道識別碼
func (c *Channel) ID() uuid.UUID {
	return c.id
}

// RemoteAddr 返回對端位址
func (c *Channel) RemoteAddr() string {
	return remoteString(c.conn)
}

// Done 讀取 goroutine 結束時關閉
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// readLoop 把收到的位元組搬進解碼緩衝區
//
// 不在這裡解碼：解碼與分派都發生在服務器迴圈內，
// 讀取 goroutine 只負責讓「有沒有資料」變成非阻塞可查詢的狀態。
func (c *Channel) readLoop() {
	defer close(c.done)

	buf := make([]byte, c.opts.ReadBuffer)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.mu.Lock()
			c.decoder.Feed(buf[:n])
			c.mu.Unlock()
		}
		if err != nil {
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			if err != io.EOF && !c.closed.Load() {
				c.logger.Debug("讀取失敗", "error", err)
			}
			c.markClosed()
			return
		}
	}
}

// TryReceive 非阻塞地取出下一個完整訊息
//
// 不足一個封包時回傳 (nil, nil)。對端關閉前已到達的封包仍會被取出。
// 協議錯誤會關閉通道並回傳錯誤。
func (c *Channel) TryReceive() (protocol.Message, error) {
	c.mu.Lock()
	msg, err := c.decoder.Next()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("協議錯誤，關閉通道", "error", err)
		c.Close()
		return nil, err
	}
	return msg, nil
}

// writeLoop 把發送佇列中的封包寫到連接
//
// 寫入期限與 WebSocket 的關閉握手都在這裡，服務器迴圈不會等待任何寫入。
// 結束時關閉底層連接。
func (c *Channel) writeLoop() {
	defer func() {
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("關閉連接失敗", "error", err)
		}
	}()

	for {
		select {
		case <-c.quit:
			return
		case frame := <-c.send:
			if c.closed.Load() {
				return
			}
			if err := c.write(frame); err != nil {
				c.logger.Debug("寫入失敗", "error", err)
				c.markClosed()
				return
			}
		}
	}
}

func (c *Channel) write(frame []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
		return err
	}
	// net.Conn 的 Write 會寫完整個 frame 或回傳錯誤
	_, err := c.conn.Write(frame)
	return err
}

// TrySend 編碼一個封包並放進發送佇列，不會阻塞
//
// 佇列已滿代表對端跟不上，通道會被關閉；寫入失敗則由寫入 goroutine
// 標記為斷線。兩者都由所屬房間在下一次 Update 時清理。
func (c *Channel) TrySend(msg protocol.Message) error {
	if c.closed.Load() {
		return apperrors.ErrConnectionClosed
	}

	frame := protocol.Encode(msg)
	if c.opts.MaxFrameSize > 0 && len(frame)-protocol.HeaderSize > c.opts.MaxFrameSize {
		return protocol.ErrFrameTooLarge.WithDetails(msg.Type().String())
	}

	select {
	case c.send <- frame:
		return nil
	default:
		c.logger.Warn("發送佇列已滿，關閉通道", "queue", cap(c.send))
		c.Close()
		return ErrSendQueueFull
	}
}

// IsConnected 連接是否仍可用
//
// 作業系統可能在對端消失後仍回報連接開啟；服務器每輪發送心跳，
// 寫入失敗後這裡就會回傳 false。
func (c *Channel) IsConnected() bool {
	return !c.closed.Load()
}

// Err 返回讀取端的結束原因（若有）
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Close 關閉通道，可重複呼叫
//
// 只通知寫入 goroutine，實際關閉連接在那裡進行。
func (c *Channel) Close() {
	c.markClosed()
	c.closeOnce.Do(func() { close(c.quit) })
}

func (c *Channel) markClosed() {
	c.closed.Store(true)
}

func remoteString(conn Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}
