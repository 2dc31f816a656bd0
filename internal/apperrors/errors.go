package apperrors

import (
	"github.com/palemoky/seka/internal/protocol"
)

// GameError 游戏错误（牌桌和会话共享）
type GameError struct {
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// 预定义错误
var (
	ErrTableNotFound  = &GameError{Code: protocol.ErrCodeTableNotFound, Message: "牌桌不存在"}
	ErrTableFull      = &GameError{Code: protocol.ErrCodeTableFull, Message: "牌桌已满"}
	ErrNotAtTable     = &GameError{Code: protocol.ErrCodeNotAtTable, Message: "您不在牌桌上"}
	ErrMinBuyIn       = &GameError{Code: protocol.ErrCodeMinBuyIn, Message: "筹码低于最低买入"}
	ErrNameTaken      = &GameError{Code: protocol.ErrCodeAuth, Message: "用户名已被占用"}
	ErrBadCredentials = &GameError{Code: protocol.ErrCodeAuth, Message: "用户名或密码错误"}
	ErrNotLoggedIn    = &GameError{Code: protocol.ErrCodeNotLogged, Message: "请先登录"}
)
