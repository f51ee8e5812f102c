package game

import "fmt"

// CellKind tags the contents of a grid cell.
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellTower
	CellUnit
)

func (k CellKind) String() string {
	switch k {
	case CellEmpty:
		return "empty"
	case CellTower:
		return "tower"
	case CellUnit:
		return "unit"
	}
	return fmt.Sprintf("CellKind(%d)", uint8(k))
}

// Cell is either empty, a tower marker for a side, or a unit reference.
// Only the field matching Kind is meaningful.
type Cell struct {
	Kind CellKind
	Side Side
	Unit UnitID
}

func EmptyCell() Cell          { return Cell{Kind: CellEmpty} }
func TowerCell(side Side) Cell { return Cell{Kind: CellTower, Side: side} }
func UnitCell(id UnitID) Cell  { return Cell{Kind: CellUnit, Unit: id} }
func (c Cell) IsEmpty() bool   { return c.Kind == CellEmpty }
func (c Cell) IsTower() bool   { return c.Kind == CellTower }
func (c Cell) HasUnit() bool   { return c.Kind == CellUnit }

func (c Cell) String() string {
	switch c.Kind {
	case CellTower:
		return fmt.Sprintf("T%d", int(c.Side))
	case CellUnit:
		return fmt.Sprintf("%d", int(c.Unit))
	}
	return "."
}
