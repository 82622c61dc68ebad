package domino

import (
	"fmt"
	"math/rand"
	"time"
)

// Config parameterizes a Game. All randomness (shuffles, CPU tie-breaks,
// CPU pacing, auto-play selection) flows through an injectable Rand so
// tests can seed determinism — see SPEC_FULL.md and spec.md's Design Notes
// on Randomness.
type Config struct {
	MaxPlayers int
	Variant    Variant

	PickingTimeout time.Duration // 0 disables
	TurnTimeout    time.Duration // 0 disables

	// TargetScore is the match point total that ends the match (spec.md
	// §3 Match lifecycle). 0 means "use the default of 100".
	TargetScore int

	// TestMode zeroes CPU thinking/picking delays for deterministic tests.
	TestMode bool

	// Seed drives the injected Rand when Rand is nil. 0 => time-based.
	Seed int64
	Rand *rand.Rand
}

func (c *Config) validate() error {
	if c.MaxPlayers < 2 || c.MaxPlayers > 4 {
		return fmt.Errorf("MaxPlayers must be in [2,4], got %d", c.MaxPlayers)
	}
	if c.PickingTimeout < 0 || c.TurnTimeout < 0 {
		return fmt.Errorf("timeouts must be >= 0")
	}
	return nil
}

func (c *Config) rng() *rand.Rand {
	if c.Rand != nil {
		return c.Rand
	}
	seed := c.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	c.Rand = rand.New(rand.NewSource(seed))
	return c.Rand
}

// cpuPickDelay returns a uniformly random 1.5-3.0s delay, or 0 in test mode.
func (c *Config) cpuPickDelay() time.Duration {
	if c.TestMode {
		return 0
	}
	return randDuration(c.rng(), cpuPickMinDelay, cpuPickMaxDelay)
}

// cpuTurnDelay returns a uniformly random 5-20s delay, or 0 in test mode.
func (c *Config) cpuTurnDelay() time.Duration {
	if c.TestMode {
		return 0
	}
	return randDuration(c.rng(), cpuTurnMinDelay, cpuTurnMaxDelay)
}

func randDuration(r *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(r.Int63n(int64(max-min)))
}
