package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewGrid_TowersAtEnds(t *testing.T) {
	g, err := NewGrid(18)
	require.NoError(t, err)
	t.Logf("grid: %s", g)

	c, err := g.Occupant(0)
	require.NoError(t, err)
	require.Equal(t, TowerCell(Side1), c)

	c, err = g.Occupant(17)
	require.NoError(t, err)
	require.Equal(t, TowerCell(Side2), c)

	for i := 1; i < 17; i++ {
		empty, err := g.IsEmpty(i)
		require.NoError(t, err)
		require.True(t, empty, "cell %d", i)
	}
	require.Equal(t, 0, g.TowerIndex(Side1))
	require.Equal(t, 17, g.TowerIndex(Side2))
}

func TestNewGrid_TooSmall(t *testing.T) {
	_, err := NewGrid(3)
	require.Error(t, err)
}

func TestGrid_BoundsErrors(t *testing.T) {
	g, err := NewGrid(6)
	require.NoError(t, err)

	for _, idx := range []int{-1, 6, 100} {
		_, err := g.Occupant(idx)
		var be *BoundsError
		require.True(t, errors.As(err, &be), "index %d: %v", idx, err)
		require.Equal(t, idx, be.Index)
		require.Equal(t, 6, be.Size)

		require.ErrorAs(t, g.Place(1, idx), &be)
		require.ErrorAs(t, g.Vacate(idx), &be)
	}
}

func TestGrid_PlaceOccupied(t *testing.T) {
	g, err := NewGrid(6)
	require.NoError(t, err)
	require.NoError(t, g.Place(1, 2))

	var oe *OccupiedError
	require.ErrorAs(t, g.Place(2, 2), &oe)
	require.Equal(t, 2, oe.Index)
	require.Equal(t, UnitCell(1), oe.Cell)

	// Towers are never unit-occupied.
	require.ErrorAs(t, g.Place(3, 0), &oe)
	require.ErrorAs(t, g.Place(3, 5), &oe)

	var te *TowerError
	require.ErrorAs(t, g.Vacate(0), &te)
	require.Equal(t, Side1, te.Side)
}

func TestGrid_VacateAndDistance(t *testing.T) {
	g, err := NewGrid(8)
	require.NoError(t, err)
	require.NoError(t, g.Place(4, 3))
	require.NoError(t, g.Vacate(3))
	empty, err := g.IsEmpty(3)
	require.NoError(t, err)
	require.True(t, empty)

	// Vacating an empty cell is harmless.
	require.NoError(t, g.Vacate(3))

	require.Equal(t, 4, g.Distance(1, 5))
	require.Equal(t, 4, g.Distance(5, 1))
	require.Equal(t, 0, g.Distance(2, 2))
}

func TestGrid_OccupantIdempotent(t *testing.T) {
	g, err := NewGrid(8)
	require.NoError(t, err)
	require.NoError(t, g.Place(9, 4))
	for i := 0; i < g.Size(); i++ {
		a, errA := g.Occupant(i)
		b, errB := g.Occupant(i)
		require.Equal(t, a, b)
		require.Equal(t, errA, errB)
	}
}

func TestGrid_CloneIsIndependent(t *testing.T) {
	g, err := NewGrid(6)
	require.NoError(t, err)
	require.NoError(t, g.Place(1, 2))
	cp := g.Clone()
	require.NoError(t, cp.Vacate(2))

	c, err := g.Occupant(2)
	require.NoError(t, err)
	require.Equal(t, UnitCell(1), c)
	require.Equal(t, "[T1 . 1 . . T2]", g.String())
	require.Equal(t, "[T1 . . . . T2]", cp.String())
}
