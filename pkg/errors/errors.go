// Package errors 提供遊戲服務器的錯誤分類
//
// 錯誤依照處理方式分成四類：
//   - 協議錯誤（PROTOCOL_ERROR）：封包格式錯誤，對該連接是致命的
//   - 驗證錯誤（INVALID_INPUT / ALREADY_EXISTS）：回報給發送者，不影響其他成員
//   - 傳輸錯誤（CONNECTION_CLOSED）：連接標記為斷線，由所屬房間清理
//   - 不變式違反（INVARIANT_VIOLATION）：程式錯誤，正常情況下不應發生
package errors

import (
	"errors"
	"fmt"
)

// 定義錯誤碼
const (
	// ErrCodeProtocol 封包格式錯誤
	ErrCodeProtocol = "PROTOCOL_ERROR"
	// ErrCodeInvalidInput 無效輸入
	ErrCodeInvalidInput = "INVALID_INPUT"
	// ErrCodeAlreadyExists 資源已存在
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	// ErrCodeClosed 連接已關閉
	ErrCodeClosed = "CONNECTION_CLOSED"
	// ErrCodeInvariant 內部不變式被破壞
	ErrCodeInvariant = "INVARIANT_VIOLATION"
	// ErrCodeInternal 內部錯誤
	ErrCodeInternal = "INTERNAL_ERROR"
)

// AppError 應用程式錯誤
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

// Error 實現 error 介面
func (e *AppError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap 實現 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 實現 errors.Is
//
// 同碼且同訊息視為同一個錯誤，讓預定義的哨兵錯誤在 Wrap / WithDetails 之後仍可比對。
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New 創建新的應用程式錯誤
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包裝錯誤
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails 添加詳細資訊
//
// 回傳副本，避免修改共用的哨兵錯誤。
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// 預定義錯誤
var (
	// ErrConnectionClosed 連接已關閉
	ErrConnectionClosed = New(ErrCodeClosed, "connection closed")

	// ErrGameInPlay 遊戲房間已有進行中的對局
	ErrGameInPlay = New(ErrCodeInvariant, "game already in play")
)

// CodeOf 取出錯誤碼，非 AppError 時回傳 ErrCodeInternal
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsProtocol 檢查是否為協議錯誤
func IsProtocol(err error) bool {
	return hasCode(err, ErrCodeProtocol)
}

// IsClosed 檢查是否為連接已關閉錯誤
func IsClosed(err error) bool {
	return hasCode(err, ErrCodeClosed)
}

// IsInvariant 檢查是否為不變式違反
func IsInvariant(err error) bool {
	return hasCode(err, ErrCodeInvariant)
}

// IsInvalidInput 檢查是否為無效輸入
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrCodeInvalidInput)
}

func hasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
