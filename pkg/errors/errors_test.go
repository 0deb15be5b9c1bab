package errors_test

import (
	"errors"
	"fmt"
	"testing"

	apperrors "github.com/koopa0/system-design/14-game-server/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// TestAppError_Is 測試錯誤比對
func TestAppError_Is(t *testing.T) {
	sentinel := apperrors.New(apperrors.ErrCodeProtocol, "truncated payload")

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "same sentinel", err: sentinel, want: true},
		{name: "with details", err: sentinel.WithDetails("need 4 bytes"), want: true},
		{name: "wrapped by fmt", err: fmt.Errorf("decode: %w", sentinel), want: true},
		{name: "same code other message", err: apperrors.New(apperrors.ErrCodeProtocol, "unknown type"), want: false},
		{name: "plain error", err: errors.New("truncated payload"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, sentinel))
		})
	}
}

// TestWithDetails_DoesNotMutateSentinel 測試 WithDetails 不修改原錯誤
func TestWithDetails_DoesNotMutateSentinel(t *testing.T) {
	detailed := apperrors.ErrConnectionClosed.WithDetails("peer reset")

	assert.Empty(t, apperrors.ErrConnectionClosed.Details)
	assert.Equal(t, "peer reset", detailed.Details)
	assert.Contains(t, detailed.Error(), "peer reset")
}

// TestPredicates 測試錯誤分類判斷
func TestPredicates(t *testing.T) {
	cause := errors.New("broken pipe")
	closed := apperrors.Wrap(cause, apperrors.ErrCodeClosed, "write failed")

	assert.True(t, apperrors.IsClosed(closed))
	assert.ErrorIs(t, closed, cause)
	assert.False(t, apperrors.IsProtocol(closed))

	assert.True(t, apperrors.IsInvariant(apperrors.ErrGameInPlay))
	assert.True(t, apperrors.IsInvalidInput(apperrors.New(apperrors.ErrCodeInvalidInput, "bad")))
	assert.False(t, apperrors.IsInvalidInput(nil))

	assert.Equal(t, apperrors.ErrCodeClosed, apperrors.CodeOf(fmt.Errorf("send: %w", closed)))
	assert.Equal(t, apperrors.ErrCodeInternal, apperrors.CodeOf(cause))
}
