package deck

import (
	"fmt"
	"math/rand/v2"
)

// Size 一副 Seka 牌的张数：4 花色 × {10,J,Q,K,A} + 1 张鬼牌（黑桃 7）
const Size = 21

// Deck 一副有序的牌，发出的牌在 Reset 之前不会回到牌堆
type Deck struct {
	cards []Card
}

// New 创建一副洗好的新牌
func New() *Deck {
	d := &Deck{}
	d.Reset()
	return d
}

// Reset 按标准顺序重建 21 张牌，然后洗牌
func (d *Deck) Reset() {
	d.cards = d.cards[:0]

	suits := []Suit{Hearts, Diamonds, Clubs, Spades}
	ranks := []Rank{Rank10, RankJ, RankQ, RankK, RankA}

	for _, suit := range suits {
		for _, rank := range ranks {
			d.cards = append(d.cards, Card{Rank: rank, Suit: suit})
		}
	}

	// 鬼牌是全场唯一的 7，花色记为黑桃
	d.cards = append(d.cards, Card{Rank: Rank7, Suit: Spades, Joker: true})

	d.Shuffle()
}

// Shuffle 洗牌（Fisher–Yates）
func (d *Deck) Shuffle() {
	rand.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Deal 从牌堆顶部发出 n 张牌
func (d *Deck) Deal(n int) ([]Card, error) {
	if n < 0 || n > len(d.cards) {
		return nil, fmt.Errorf("deal %d cards: only %d remaining", n, len(d.cards))
	}
	dealt := d.cards[:n]
	d.cards = d.cards[n:]
	return dealt, nil
}

// Remaining 返回剩余张数
func (d *Deck) Remaining() int {
	return len(d.cards)
}
