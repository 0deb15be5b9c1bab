package transport

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSConn 讓 WebSocket 連接以位元組串流的形式提供給 Channel
//
// 每次 Write 送出一個 binary message；Read 則把連續的 message 串接成串流，
// 所以客戶端可以任意切分封包，與 TCP 行為一致。
type WSConn struct {
	ws *websocket.Conn

	rmu    sync.Mutex
	reader io.Reader

	wmu sync.Mutex
}

// NewWSConn 包裝 gorilla WebSocket 連接
func NewWSConn(ws *websocket.Conn) *WSConn {
	return &WSConn{ws: ws}
}

// Read 從目前的 message 讀取，讀完後接續下一個 message
func (c *WSConn) Read(p []byte) (int, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()

	for {
		if c.reader == nil {
			messageType, r, err := c.ws.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			// 只有 binary message 承載封包
			if messageType != websocket.BinaryMessage {
				continue
			}
			c.reader = r
		}

		n, err := c.reader.Read(p)
		if err == io.EOF {
			c.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

// Write 以一個 binary message 送出
func (c *WSConn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close 送出關閉訊框後關閉底層連接
//
// 關閉訊框最多等待一秒，Channel 只在寫入 goroutine 內呼叫。
func (c *WSConn) Close() error {
	c.wmu.Lock()
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.wmu.Unlock()
	return c.ws.Close()
}

// SetWriteDeadline 設定寫入期限
func (c *WSConn) SetWriteDeadline(t time.Time) error {
	return c.ws.SetWriteDeadline(t)
}

// RemoteAddr 返回對端位址
func (c *WSConn) RemoteAddr() net.Addr {
	return c.ws.RemoteAddr()
}
