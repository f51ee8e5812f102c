package game

import (
	"fmt"
	"strings"
)

// MinGridSize leaves room for both towers and a two-cell lane.
const MinGridSize = 4

// Grid is the lane: an ordered row of cells with a tower at each end.
type Grid struct {
	cells []Cell
}

// NewGrid builds a grid of size cells. Cell 0 holds Side1's tower and cell
// size-1 holds Side2's tower.
func NewGrid(size int) (*Grid, error) {
	if size < MinGridSize {
		return nil, fmt.Errorf("grid size %d below minimum %d", size, MinGridSize)
	}
	g := &Grid{cells: make([]Cell, size)}
	g.cells[0] = TowerCell(Side1)
	g.cells[size-1] = TowerCell(Side2)
	return g, nil
}

func (g *Grid) Size() int { return len(g.cells) }

// TowerIndex returns the cell holding side's tower.
func (g *Grid) TowerIndex(side Side) int {
	if side == Side2 {
		return len(g.cells) - 1
	}
	return 0
}

func (g *Grid) InBounds(index int) bool { return index >= 0 && index < len(g.cells) }

func (g *Grid) check(index int) error {
	if !g.InBounds(index) {
		return &BoundsError{Index: index, Size: len(g.cells)}
	}
	return nil
}

// Occupant returns the contents of a cell.
func (g *Grid) Occupant(index int) (Cell, error) {
	if err := g.check(index); err != nil {
		return Cell{}, err
	}
	return g.cells[index], nil
}

// IsEmpty reports whether the cell holds neither a tower nor a unit.
func (g *Grid) IsEmpty(index int) (bool, error) {
	c, err := g.Occupant(index)
	if err != nil {
		return false, err
	}
	return c.IsEmpty(), nil
}

// Place puts a unit into an empty cell.
func (g *Grid) Place(id UnitID, index int) error {
	if err := g.check(index); err != nil {
		return err
	}
	if c := g.cells[index]; !c.IsEmpty() {
		return &OccupiedError{Index: index, Cell: c}
	}
	g.cells[index] = UnitCell(id)
	return nil
}

// Vacate clears a unit cell. Vacating an empty cell is a no-op; tower cells
// are permanent.
func (g *Grid) Vacate(index int) error {
	if err := g.check(index); err != nil {
		return err
	}
	if c := g.cells[index]; c.IsTower() {
		return &TowerError{Index: index, Side: c.Side}
	}
	g.cells[index] = EmptyCell()
	return nil
}

// Distance is the number of cells between a and b.
func (g *Grid) Distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// Cells returns a copy of every cell.
func (g *Grid) Cells() []Cell {
	out := make([]Cell, len(g.cells))
	copy(out, g.cells)
	return out
}

func (g *Grid) Clone() *Grid {
	return &Grid{cells: g.Cells()}
}

func (g *Grid) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, c := range g.cells {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(c.String())
	}
	b.WriteByte(']')
	return b.String()
}
