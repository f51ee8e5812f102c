package player

import (
	"fmt"
	"strings"

	"github.com/brensch/lanebattle/game"
)

// View is what a strategy sees of the match during placement.
type View interface {
	Turn() int
	Side() game.Side
	Hand() []game.Card
	Elixir() int
	// CanPlay applies every card-level legality rule to hand slot i.
	CanPlay(i int) bool
	// Band lists the cells this side may place on, nearest its tower first.
	Band() []int
	IsEmpty(pos int) bool
}

// Decision places the card in HandIndex on Position.
type Decision struct {
	HandIndex int `json:"hand_index"`
	Position  int `json:"position"`
}

// Strategy picks at most one placement per turn. Returning false passes.
type Strategy interface {
	Decide(v View) (Decision, bool)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(View) (Decision, bool)

func (f StrategyFunc) Decide(v View) (Decision, bool) { return f(v) }

type passive struct{}

func (passive) Decide(View) (Decision, bool) { return Decision{}, false }

// Passive never places anything.
var Passive Strategy = passive{}

// Strategy kinds recorded in replay metadata.
const (
	KindAI       = "ai"
	KindHuman    = "human"
	KindScripted = "scripted"
	KindPassive  = "passive"
	KindCustom   = "custom"
)

// KindOf names a strategy for replay metadata.
func KindOf(s Strategy) string {
	switch s.(type) {
	case nil, passive:
		return KindPassive
	case *Heuristic:
		return KindAI
	case *LineReader:
		return KindHuman
	case *Scripted:
		return KindScripted
	}
	return KindCustom
}

// Difficulty selects the heuristic's card ordering.
type Difficulty int

const (
	Easy   Difficulty = 1
	Medium Difficulty = 2
	Hard   Difficulty = 3
)

func (d Difficulty) Valid() bool { return d >= Easy && d <= Hard }

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	}
	return fmt.Sprintf("Difficulty(%d)", int(d))
}

// ParseDifficulty accepts 1-3 or easy/medium/hard.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "easy":
		return Easy, nil
	case "2", "medium":
		return Medium, nil
	case "3", "hard":
		return Hard, nil
	}
	return 0, fmt.Errorf("unknown difficulty %q", s)
}

func (d Difficulty) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Difficulty) UnmarshalText(b []byte) error {
	v, err := ParseDifficulty(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
