package rule

// CallAmount 计算跟注所需的筹码数。
//
// 盲注规则：上家盲注时，盲跟同价、明跟翻倍；上家明注时，
// 盲跟只需一半（向上取整，且不低于底注），明跟同价。
// 本局第一个行动的玩家付底注。
func CallAmount(baseStake, lastBet int, lastWasBlind, callerBlind, firstAction bool) int {
	if firstAction {
		return baseStake
	}

	if lastWasBlind {
		if callerBlind {
			return lastBet
		}
		return lastBet * 2
	}

	if callerBlind {
		half := (lastBet + 1) / 2
		if half < baseStake {
			return baseStake
		}
		return half
	}
	return lastBet
}
