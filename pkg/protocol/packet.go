package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer 依序寫入基本型別，產生確定的位元組序列
//
// 所有整數為固定寬度小端序；字串以 int32 長度前綴加 UTF-8 位元組表示，
// 不以 NUL 結尾，因此可以包含任意控制字元。
type Writer struct {
	buf []byte
}

// NewWriter 創建 Writer
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// Bytes 返回目前寫入的內容
func (w *Writer) Bytes() []byte {
	return w.buf
}

// WriteInt32 寫入 int32
func (w *Writer) WriteInt32(v int32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
}

// WriteFloat32 寫入 IEEE-754 float32
func (w *Writer) WriteFloat32(v float32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
}

// WriteBool 寫入單一位元組布林值
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
		return
	}
	w.buf = append(w.buf, 0)
}

// WriteString 寫入長度前綴字串
func (w *Writer) WriteString(s string) {
	w.WriteInt32(int32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteStrings 寫入字串列表（int32 數量 + 每個字串）
func (w *Writer) WriteStrings(list []string) {
	w.WriteInt32(int32(len(list)))
	for _, s := range list {
		w.WriteString(s)
	}
}

// WriteMessage 寫入巢狀訊息：型別判別碼 + 欄位
func (w *Writer) WriteMessage(m Message) {
	w.WriteInt32(int32(m.Type()))
	m.encode(w)
}

// Reader 依序讀取基本型別
//
// 錯誤是黏著的：第一次失敗後，之後所有讀取都回傳零值，
// 呼叫端只需要在最後檢查一次 Err()。
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader 創建 Reader
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Err 返回第一個讀取錯誤
func (r *Reader) Err() error {
	return r.err
}

// Remaining 返回尚未讀取的位元組數
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.Remaining() < n {
		r.fail(ErrTruncated.WithDetails(fmt.Sprintf("need %d bytes at offset %d, have %d", n, r.off, r.Remaining())))
		return false
	}
	return true
}

// ReadInt32 讀取 int32
func (r *Reader) ReadInt32() int32 {
	if !r.need(4) {
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(r.buf[r.off:]))
	r.off += 4
	return v
}

// ReadFloat32 讀取 float32
func (r *Reader) ReadFloat32() float32 {
	if !r.need(4) {
		return 0
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.buf[r.off:]))
	r.off += 4
	return v
}

// ReadBool 讀取布林值，只接受 0 或 1
func (r *Reader) ReadBool() bool {
	if !r.need(1) {
		return false
	}
	b := r.buf[r.off]
	r.off++
	switch b {
	case 0:
		return false
	case 1:
		return true
	default:
		r.fail(ErrInvalidValue.WithDetails(fmt.Sprintf("bool byte %d", b)))
		return false
	}
}

// ReadString 讀取長度前綴字串
func (r *Reader) ReadString() string {
	n := r.ReadInt32()
	if r.err != nil {
		return ""
	}
	if n < 0 {
		r.fail(ErrInvalidValue.WithDetails(fmt.Sprintf("negative string length %d", n)))
		return ""
	}
	if !r.need(int(n)) {
		return ""
	}
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return s
}

// ReadStrings 讀取字串列表，空列表回傳 nil
func (r *Reader) ReadStrings() []string {
	n := r.ReadInt32()
	if r.err != nil {
		return nil
	}
	if n < 0 {
		r.fail(ErrInvalidValue.WithDetails(fmt.Sprintf("negative list length %d", n)))
		return nil
	}
	// 每個字串至少佔 4 位元組，先檢查避免惡意長度造成大量配置
	if !r.need(int(n) * 4) {
		return nil
	}
	if n == 0 {
		return nil
	}
	list := make([]string, 0, n)
	for i := int32(0); i < n; i++ {
		list = append(list, r.ReadString())
	}
	if r.err != nil {
		return nil
	}
	return list
}

// ReadMessage 讀取型別判別碼並解碼對應的訊息
func (r *Reader) ReadMessage() Message {
	t := MessageType(r.ReadInt32())
	if r.err != nil {
		return nil
	}
	m, err := newMessage(t)
	if err != nil {
		r.fail(err)
		return nil
	}
	m.decode(r)
	if r.err != nil {
		return nil
	}
	return m
}

// readNested 讀取指定型別的巢狀訊息
func (r *Reader) readNested(m Message) {
	t := MessageType(r.ReadInt32())
	if r.err != nil {
		return
	}
	if t != m.Type() {
		r.fail(ErrUnexpectedType.WithDetails(fmt.Sprintf("want %s, got %s", m.Type(), t)))
		return
	}
	m.decode(r)
}
