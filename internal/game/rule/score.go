// Package rule 实现 Seka 的纯计算规则：手牌算分与跟注额计算。
// 这里没有任何可变状态，牌桌状态机把它们当作子程序调用。
package rule

import (
	"github.com/palemoky/seka/internal/game/deck"
)

// 分值以"十分之一点"为单位存储，这样 K/Q/J/10 的套牌档位
// 可以落在所有花色点数和（最高 320）与双 A 加鬼牌（330）之间，
// 且保持整数。
const (
	// ScoreTwoAcesJoker 双 A + 鬼牌，全场最大
	ScoreTwoAcesJoker = 330
	// ScoreTwoAces 双 A + 任意第三张
	ScoreTwoAces = 220

	// K/Q/J/10 的三条（或对子加鬼牌）档位，K > Q > J > 10
	ScoreSetKings  = 325
	ScoreSetQueens = 324
	ScoreSetJacks  = 323
	ScoreSetTens   = 322
)

// pointScale 单张点值换算到内部分值的倍率
const pointScale = 10

// setTiers 套牌档位按优先级排列
var setTiers = []struct {
	rank  deck.Rank
	score int
}{
	{deck.RankK, ScoreSetKings},
	{deck.RankQ, ScoreSetQueens},
	{deck.RankJ, ScoreSetJacks},
	{deck.Rank10, ScoreSetTens},
}

// Score 计算一手 3 张牌的强度，确定且全域：任何合法手牌恰好
// 对应一个分值，非 3 张的输入返回 0。
func Score(hand []deck.Card) int {
	if len(hand) != 3 {
		return 0
	}

	var normal []deck.Card
	hasJoker := false
	rankCounts := make(map[deck.Rank]int)
	aces := 0

	for _, c := range hand {
		if c.Joker {
			hasJoker = true
			continue
		}
		normal = append(normal, c)
		rankCounts[c.Rank]++
		if c.Rank == deck.RankA {
			aces++
		}
	}

	// 1. 双 A + 鬼牌
	if aces == 2 && hasJoker {
		return ScoreTwoAcesJoker
	}
	// 2. 双 A + 其他牌
	if aces == 2 {
		return ScoreTwoAces
	}

	// 3. K/Q/J/10 的三条，或对子加鬼牌
	for _, tier := range setTiers {
		n := rankCounts[tier.rank]
		if n == 3 || (n == 2 && hasJoker) {
			return tier.score
		}
	}

	// 4. 对每个花色求同花点数和，鬼牌给每个和都加 11 点
	maxSum := 0
	for _, suit := range []deck.Suit{deck.Hearts, deck.Diamonds, deck.Clubs, deck.Spades} {
		sum := 0
		matched := false
		for _, c := range normal {
			if c.Suit == suit {
				sum += c.Value()
				matched = true
			}
		}
		if !matched {
			continue
		}
		if hasJoker {
			sum += 11
		}
		if sum > maxSum {
			maxSum = sum
		}
	}

	// 5./6. 彩虹手：取单张最大点值，有鬼牌再加 11 点
	if maxSum == 0 {
		for _, c := range normal {
			if v := c.Value(); v > maxSum {
				maxSum = v
			}
		}
		if hasJoker {
			maxSum += 11
		}
	}

	return maxSum * pointScale
}
