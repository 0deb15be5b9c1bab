package protocol

import (
	"encoding/binary"
	"fmt"

	apperrors "github.com/koopa0/system-design/14-game-server/pkg/errors"
)

// HeaderSize 長度前綴的位元組數
const HeaderSize = 4

// DefaultMaxFrameSize 預設的單一封包上限（不含長度前綴）
const DefaultMaxFrameSize = 64 * 1024

// 協議錯誤：對該連接是致命的，不可略過後繼續解析
var (
	ErrTruncated      = apperrors.New(apperrors.ErrCodeProtocol, "truncated payload")
	ErrUnknownType    = apperrors.New(apperrors.ErrCodeProtocol, "unknown message type")
	ErrUnexpectedType = apperrors.New(apperrors.ErrCodeProtocol, "unexpected nested message type")
	ErrInvalidValue   = apperrors.New(apperrors.ErrCodeProtocol, "invalid field value")
	ErrTrailingBytes  = apperrors.New(apperrors.ErrCodeProtocol, "trailing bytes after message")
	ErrFrameTooLarge  = apperrors.New(apperrors.ErrCodeProtocol, "frame too large")
)

// Encode 將訊息編碼為完整封包：[uint32 長度][int32 型別][欄位]
func Encode(m Message) []byte {
	w := &Writer{buf: make([]byte, HeaderSize, 64)}
	w.WriteMessage(m)
	binary.LittleEndian.PutUint32(w.buf, uint32(len(w.buf)-HeaderSize))
	return w.buf
}

// Decode 解碼封包內容（不含長度前綴）
//
// 解碼是嚴格的：未知型別、長度不足、或解碼後仍有剩餘位元組都是錯誤。
func Decode(payload []byte) (Message, error) {
	r := NewReader(payload)
	m := r.ReadMessage()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if r.Remaining() > 0 {
		return nil, ErrTrailingBytes.WithDetails(fmt.Sprintf("%d bytes after %s", r.Remaining(), m.Type()))
	}
	return m, nil
}

// Decoder 從位元組串流中重組封包
//
// 資料可能以任意大小分段到達：一個封包跨多次讀取，或一次讀取包含多個封包。
// Feed 累積資料，Next 每次最多取出一個完整封包。
//
// Decoder 本身不做同步，由呼叫端負責。
type Decoder struct {
	buf          []byte
	maxFrameSize int
}

// NewDecoder 創建 Decoder，maxFrameSize <= 0 時使用預設上限
func NewDecoder(maxFrameSize int) *Decoder {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &Decoder{maxFrameSize: maxFrameSize}
}

// Feed 追加收到的位元組
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Buffered 返回尚未消化的位元組數
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Next 取出下一個完整訊息
//
// 資料不足一個封包時回傳 (nil, nil)。
// 回傳錯誤後串流已無法同步，呼叫端應關閉連接。
func (d *Decoder) Next() (Message, error) {
	if len(d.buf) < HeaderSize {
		return nil, nil
	}

	size := binary.LittleEndian.Uint32(d.buf)
	if size > uint32(d.maxFrameSize) {
		return nil, ErrFrameTooLarge.WithDetails(fmt.Sprintf("%d > %d", size, d.maxFrameSize))
	}

	end := HeaderSize + int(size)
	if len(d.buf) < end {
		return nil, nil
	}

	m, err := Decode(d.buf[HeaderSize:end])

	// 解碼已複製所需資料，可以安全地壓縮緩衝區
	n := copy(d.buf, d.buf[end:])
	d.buf = d.buf[:n]

	if err != nil {
		return nil, err
	}
	return m, nil
}
