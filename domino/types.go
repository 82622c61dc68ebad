package domino

import (
	"encoding/json"
	"time"
)

// Status is the game lifecycle state. A small closed enum, switched on
// exhaustively everywhere it matters — never treated as an open string.
type Status byte

const (
	StatusWaiting Status = iota
	StatusPicking
	StatusPlaying
	StatusFinished
)

var statusDictionary = map[Status]string{
	StatusWaiting:   "waiting",
	StatusPicking:   "picking",
	StatusPlaying:   "playing",
	StatusFinished:  "finished",
}

func (s Status) String() string {
	if name, ok := statusDictionary[s]; ok {
		return name
	}
	return "unknown"
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Variant is tagged on a Game but, per spec, only "block" has semantic
// effect in the core today; draw/all_fives are carried and echoed without
// branching on them (see SPEC_FULL.md §13, Open Question 1).
type Variant byte

const (
	VariantBlock Variant = iota
	VariantDraw
	VariantAllFives
)

var variantDictionary = map[Variant]string{
	VariantBlock:    "block",
	VariantDraw:     "draw",
	VariantAllFives: "all_fives",
}

func (v Variant) String() string {
	if name, ok := variantDictionary[v]; ok {
		return name
	}
	return "unknown"
}

func (v Variant) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// ParseVariant maps a wire string to a Variant, defaulting to block for any
// unrecognized tag rather than failing a game creation request on it.
func ParseVariant(s string) Variant {
	switch s {
	case "draw":
		return VariantDraw
	case "all_fives":
		return VariantAllFives
	default:
		return VariantBlock
	}
}

// Side selects which board end a tile is laid against.
type Side byte

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideRight {
		return "right"
	}
	return "left"
}

func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// ParseSide maps a wire string to a Side. ok is false for anything else.
func ParseSide(s string) (Side, bool) {
	switch s {
	case "left":
		return SideLeft, true
	case "right":
		return SideRight, true
	default:
		return SideLeft, false
	}
}

// InvalidPosition marks "no grid position" / "no seat", mirroring the
// teacher's InvalidChair sentinel.
const InvalidPosition = -1

const totalTiles = 28
const handSize = 6

const (
	pickingSweepInterval = 5 * time.Second
	turnSweepInterval    = 1 * time.Second
	cleanupInterval      = 60 * time.Second

	cpuPickMinDelay = 1500 * time.Millisecond
	cpuPickMaxDelay = 3000 * time.Millisecond
	cpuTurnMinDelay = 5 * time.Second
	cpuTurnMaxDelay = 20 * time.Second
)
