// Package game defines the battle state for a one-lane tower battle.
//
// It owns the card catalog, the battle grid and the unit registry. The
// registry is the single source of truth for unit liveness and keeps the
// grid in step with every mutation, so callers never see a unit whose cell
// and recorded position disagree.
package game

import "fmt"

// Side identifies one of the two competing players.
type Side int

const (
	NoSide Side = 0
	Side1  Side = 1
	Side2  Side = 2
)

// Sides lists both sides in processing order.
var Sides = [2]Side{Side1, Side2}

func (s Side) Valid() bool { return s == Side1 || s == Side2 }

// Opponent returns the other side.
func (s Side) Opponent() Side {
	switch s {
	case Side1:
		return Side2
	case Side2:
		return Side1
	}
	return NoSide
}

// Forward is the grid direction a side's units advance in.
// Side1 moves toward higher indices, Side2 toward lower ones.
func (s Side) Forward() int {
	if s == Side2 {
		return -1
	}
	return 1
}

func (s Side) String() string {
	if !s.Valid() {
		return "none"
	}
	return fmt.Sprintf("side%d", int(s))
}

// UnitID is issued by the registry at spawn time. Zero is never a valid id.
type UnitID int

// Result is the match outcome. Once Over is set it never changes.
type Result struct {
	Over   bool `json:"over"`
	Winner Side `json:"winner,omitempty"`
}

// Tower is a side's base. MaxHP of zero means the tower has no hit point
// pool and falls on the first qualifying hit.
type Tower struct {
	Side      Side `json:"side"`
	HP        int  `json:"hp"`
	MaxHP     int  `json:"max_hp"`
	Destroyed bool `json:"destroyed"`
}

// Hit applies one qualifying attack and reports whether the tower fell.
func (t *Tower) Hit(damage int) bool {
	if t.Destroyed {
		return true
	}
	if t.MaxHP <= 0 {
		t.Destroyed = true
		return true
	}
	t.HP -= damage
	if t.HP <= 0 {
		t.HP = 0
		t.Destroyed = true
	}
	return t.Destroyed
}
