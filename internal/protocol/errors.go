package protocol

// 错误码
const (
	ErrCodeUnknown    = 1000
	ErrCodeInvalidMsg = 1001
	ErrCodeAuth       = 1002 // 注册/登录失败
	ErrCodeNotLogged  = 1003 // 未登录
	ErrCodeRateLimit  = 1004 // 触发限流

	ErrCodeTableNotFound = 2001
	ErrCodeTableFull     = 2002
	ErrCodeNotAtTable    = 2003
	ErrCodeMinBuyIn      = 2004 // 筹码低于最低买入

	ErrCodeInsufficientChips = 3001 // 筹码不足
	ErrCodeCannotReveal      = 3002 // 上家不可被看牌
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:           "未知错误",
	ErrCodeInvalidMsg:        "无效的消息格式",
	ErrCodeAuth:              "用户名或密码错误",
	ErrCodeNotLogged:         "请先登录",
	ErrCodeRateLimit:         "操作过于频繁",
	ErrCodeTableNotFound:     "牌桌不存在",
	ErrCodeTableFull:         "牌桌已满",
	ErrCodeNotAtTable:        "您不在牌桌上",
	ErrCodeMinBuyIn:          "筹码低于最低买入",
	ErrCodeInsufficientChips: "筹码不足",
	ErrCodeCannotReveal:      "上家还没看牌，不能看",
}
