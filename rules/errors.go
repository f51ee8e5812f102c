package rules

import (
	"errors"
	"fmt"

	"github.com/brensch/lanebattle/game"
)

var (
	ErrMatchOver = errors.New("match is over")

	// ErrIllegalPlacement is wrapped by every placement refusal.
	ErrIllegalPlacement   = errors.New("illegal placement")
	ErrInvalidHand        = errors.New("invalid hand index")
	ErrInsufficientElixir = errors.New("insufficient elixir")
	ErrUnitCap            = errors.New("unit cap reached")
	ErrRepeatCard         = errors.New("card was played last")
	ErrOutsideBand        = errors.New("position outside placement band")
	ErrCellOccupied       = errors.New("position is occupied")
)

// PlacementError is returned when a play is refused. Nothing is applied.
type PlacementError struct {
	Side      game.Side
	HandIndex int
	Position  int
	Reason    error
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("%s hand %d at %d: %v: %v", e.Side, e.HandIndex, e.Position, ErrIllegalPlacement, e.Reason)
}

func (e *PlacementError) Unwrap() []error { return []error{ErrIllegalPlacement, e.Reason} }
