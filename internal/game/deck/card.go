package deck

// Suit 定义花色
type Suit int

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

// suitNames 花色名称映射表（与客户端协议一致）
var suitNames = map[Suit]string{
	Hearts:   "hearts",
	Diamonds: "diamonds",
	Clubs:    "clubs",
	Spades:   "spades",
}

// suitSymbols 花色符号映射表
var suitSymbols = map[Suit]string{
	Hearts:   "♥",
	Diamonds: "♦",
	Clubs:    "♣",
	Spades:   "♠",
}

func (s Suit) String() string {
	if name, ok := suitNames[s]; ok {
		return name
	}
	return ""
}

// Symbol 返回花色符号
func (s Suit) Symbol() string {
	if symbol, ok := suitSymbols[s]; ok {
		return symbol
	}
	return ""
}

// Rank 定义点数
type Rank int

const (
	// Rank7 只出现在鬼牌上（黑桃 7），不在常规供给中
	Rank7 Rank = iota
	Rank10
	RankJ
	RankQ
	RankK
	RankA
)

// rankNames 点数名称映射表
var rankNames = map[Rank]string{
	Rank7:  "7",
	Rank10: "10",
	RankJ:  "J",
	RankQ:  "Q",
	RankK:  "K",
	RankA:  "A",
}

func (r Rank) String() string {
	if name, ok := rankNames[r]; ok {
		return name
	}
	return ""
}

// Card 定义一张牌
type Card struct {
	Rank  Rank
	Suit  Suit
	Joker bool
}

// Value 返回单张牌的点值：A 和鬼牌算 11 点，其余算 10 点
func (c Card) Value() int {
	if c.Joker || c.Rank == RankA {
		return 11
	}
	return 10
}

func (c Card) String() string {
	if c.Joker {
		return "Joker"
	}
	return c.Rank.String() + c.Suit.Symbol()
}
