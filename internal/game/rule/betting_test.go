package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallAmount_FirstAction(t *testing.T) {
	assert.Equal(t, 10, CallAmount(10, 0, true, true, true))
	// firstAction wins over everything else
	assert.Equal(t, 10, CallAmount(10, 40, false, false, true))
}

func TestCallAmount_AfterBlindBet(t *testing.T) {
	// Blind caller matches a blind bet
	assert.Equal(t, 20, CallAmount(10, 20, true, true, false))
	// A caller who has seen cards pays double
	assert.Equal(t, 40, CallAmount(10, 20, true, false, false))
}

func TestCallAmount_AfterOpenBet(t *testing.T) {
	// Blind caller pays half, floored at the base stake
	assert.Equal(t, 10, CallAmount(10, 20, false, true, false))
	// Open caller matches
	assert.Equal(t, 20, CallAmount(10, 20, false, false, false))

	// Half rounds up: ceil(15/2) = 8, then floored to baseStake 10
	assert.Equal(t, 10, CallAmount(10, 15, false, true, false))
	// ceil(50/2) = 25 stays above the floor
	assert.Equal(t, 25, CallAmount(10, 50, false, true, false))
	// ceil(25/2) = 13
	assert.Equal(t, 13, CallAmount(10, 25, false, true, false))
}
