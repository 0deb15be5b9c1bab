package server

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	apperrors "github.com/koopa0/system-design/14-game-server/pkg/errors"
)

// 名稱驗證錯誤
var (
	ErrNameEmpty   = apperrors.New(apperrors.ErrCodeInvalidInput, "name is empty")
	ErrNameTooLong = apperrors.New(apperrors.ErrCodeInvalidInput, "name too long")
	ErrNameTaken   = apperrors.New(apperrors.ErrCodeAlreadyExists, "name already taken")
)

// PlayerInfo 每條連接的玩家狀態
type PlayerInfo struct {
	Name  string // 登入前為空字串
	Ready bool   // 只在大廳有意義
}

// Players 玩家資訊表，以通道識別碼為鍵
//
// 只由服務器主迴圈存取，不加鎖。
type Players struct {
	byID map[uuid.UUID]*PlayerInfo
}

// NewPlayers 創建玩家資訊表
func NewPlayers() *Players {
	return &Players{byID: make(map[uuid.UUID]*PlayerInfo)}
}

// Get 取得玩家資訊，不存在時建立
func (p *Players) Get(id uuid.UUID) *PlayerInfo {
	info, ok := p.byID[id]
	if !ok {
		info = &PlayerInfo{}
		p.byID[id] = info
	}
	return info
}

// Lookup 取得玩家資訊，不建立
func (p *Players) Lookup(id uuid.UUID) (*PlayerInfo, bool) {
	info, ok := p.byID[id]
	return info, ok
}

// Name 玩家名稱，未知玩家回傳空字串
func (p *Players) Name(id uuid.UUID) string {
	if info, ok := p.byID[id]; ok {
		return info.Name
	}
	return ""
}

// Remove 忘記玩家
func (p *Players) Remove(id uuid.UUID) {
	delete(p.byID, id)
}

// Len 已知玩家數（含尚未登入者）
func (p *Players) Len() int {
	return len(p.byID)
}

// NameTaken 名稱是否已被使用（不分大小寫）
func (p *Players) NameTaken(name string) bool {
	for _, info := range p.byID {
		if info.Name != "" && strings.EqualFold(info.Name, name) {
			return true
		}
	}
	return false
}

// Names 所有已登入玩家的名稱，依字母排序
func (p *Players) Names() []string {
	names := make([]string, 0, len(p.byID))
	for _, info := range p.byID {
		if info.Name != "" {
			names = append(names, info.Name)
		}
	}
	slices.Sort(names)
	return names
}

// ValidateName 驗證並正規化名稱
//
// 去除前後空白後：不可為空、不可超過 maxLen 個字元、不可與現有玩家重複。
func (p *Players) ValidateName(name string, maxLen int) (string, error) {
	name = strings.TrimSpace(name)

	switch {
	case name == "":
		return "", ErrNameEmpty
	case utf8.RuneCountInString(name) > maxLen:
		return "", ErrNameTooLong
	case p.NameTaken(name):
		return "", ErrNameTaken.WithDetails(name)
	}
	return name, nil
}
