package cpu

import "math/rand"

// ChoosePosition picks a random face-down grid position for a bot's claim
// during the PICKING phase. A bot has no information advantage here since
// every position is equally unknown.
func ChoosePosition(rng *rand.Rand, positions []int) (int, bool) {
	if len(positions) == 0 {
		return 0, false
	}
	return positions[rng.Intn(len(positions))], true
}
