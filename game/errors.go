package game

import (
	"errors"
	"fmt"
)

// BoundsError reports an index outside the grid.
type BoundsError struct {
	Index int
	Size  int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("grid index %d out of bounds [0,%d)", e.Index, e.Size)
}

// OccupiedError reports a placement onto a cell that is not empty.
type OccupiedError struct {
	Index int
	Cell  Cell
}

func (e *OccupiedError) Error() string {
	return fmt.Sprintf("grid cell %d is occupied by %s", e.Index, e.Cell.Kind)
}

// TowerError reports an attempt to vacate or move through a tower cell.
type TowerError struct {
	Index int
	Side  Side
}

func (e *TowerError) Error() string {
	return fmt.Sprintf("grid cell %d holds the %s tower", e.Index, e.Side)
}

var (
	ErrUnknownUnit = errors.New("unknown unit")
	ErrInvalidCard = errors.New("invalid card")
	ErrInvalidSide = errors.New("invalid side")
)
