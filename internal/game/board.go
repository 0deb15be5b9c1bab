// Package game 實現井字棋的棋盤邏輯
//
// 純邏輯，不涉及網路或房間，由遊戲房間呼叫。
package game

import (
	"fmt"

	apperrors "github.com/koopa0/system-design/14-game-server/pkg/errors"
	"github.com/koopa0/system-design/14-game-server/pkg/protocol"
)

// 角色
const (
	Empty   = 0
	Player1 = 1
	Player2 = 2
)

// Size 棋盤格數
const Size = protocol.BoardCells

var (
	ErrCellOutOfRange = apperrors.New(apperrors.ErrCodeInvalidInput, "cell out of range")
	ErrCellOccupied   = apperrors.New(apperrors.ErrCodeInvalidInput, "cell already occupied")
	ErrInvalidRole    = apperrors.New(apperrors.ErrCodeInvalidInput, "invalid role")
)

// lines 所有連線：3 橫、3 直、2 斜，依此順序檢查
var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Board 3x3 棋盤
//
// 格子索引：
//
//	0 | 1 | 2
//	3 | 4 | 5
//	6 | 7 | 8
type Board struct {
	cells [Size]int
}

// NewBoard 創建空棋盤
func NewBoard() *Board {
	return &Board{}
}

// MakeMove 在 cell 寫入 role
//
// 已佔用的格子會被拒絕，不會覆寫。
func (b *Board) MakeMove(cell, role int) error {
	if role != Player1 && role != Player2 {
		return ErrInvalidRole.WithDetails(fmt.Sprintf("role %d", role))
	}
	if cell < 0 || cell >= Size {
		return ErrCellOutOfRange.WithDetails(fmt.Sprintf("cell %d", cell))
	}
	if b.cells[cell] != Empty {
		return ErrCellOccupied.WithDetails(fmt.Sprintf("cell %d held by %d", cell, b.cells[cell]))
	}
	b.cells[cell] = role
	return nil
}

// WhoHasWon 返回第一個佔滿整條線的角色，沒有則回傳 Empty
func (b *Board) WhoHasWon() int {
	for _, l := range lines {
		v := b.cells[l[0]]
		if v != Empty && v == b.cells[l[1]] && v == b.cells[l[2]] {
			return v
		}
	}
	return Empty
}

// IsFull 所有格子都已佔用
func (b *Board) IsFull() bool {
	for _, c := range b.cells {
		if c == Empty {
			return false
		}
	}
	return true
}

// Cell 返回格子的值
func (b *Board) Cell(i int) int {
	return b.cells[i]
}

// Reset 清空棋盤
func (b *Board) Reset() {
	b.cells = [Size]int{}
}

// Data 轉換為協議的棋盤快照
func (b *Board) Data() protocol.BoardData {
	var d protocol.BoardData
	for i, c := range b.cells {
		d.Cells[i] = int32(c)
	}
	return d
}
