package rules

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brensch/lanebattle/game"
	"github.com/brensch/lanebattle/player"
)

func TestBand(t *testing.T) {
	e := newTestEngine(t, engineSetup{})
	require.Equal(t, []int{1, 2}, e.Band(game.Side1))
	require.Equal(t, []int{16, 15}, e.Band(game.Side2))
}

func TestPlay_PlacesAndDebits(t *testing.T) {
	e := newTestEngine(t, engineSetup{})
	id, err := e.Play(game.Side1, 0, 2)
	require.NoError(t, err)

	u := unit(t, e, id)
	require.Equal(t, knight.Name, u.Card)
	require.Equal(t, 2, u.Position)
	require.Equal(t, game.Side1, u.Side)
	require.Equal(t, 5-knight.Cost, e.Player(game.Side1).Elixir())
	require.Equal(t, knight.Name, e.Player(game.Side1).LastPlayed())

	cell, err := e.Grid().Occupant(2)
	require.NoError(t, err)
	require.Equal(t, game.UnitCell(id), cell)
}

func TestPlay_Refusals(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, e *Engine)
		slot   int
		pos    int
		reason error
	}{
		{
			name:   "hand index out of range",
			slot:   3,
			pos:    1,
			reason: ErrInvalidHand,
		},
		{
			name:   "negative hand index",
			slot:   -1,
			pos:    1,
			reason: ErrInvalidHand,
		},
		{
			name:   "outside band",
			slot:   1,
			pos:    3,
			reason: ErrOutsideBand,
		},
		{
			name:   "tower cell",
			slot:   1,
			pos:    0,
			reason: ErrOutsideBand,
		},
		{
			name:   "enemy band",
			slot:   1,
			pos:    16,
			reason: ErrOutsideBand,
		},
		{
			name: "occupied",
			setup: func(t *testing.T, e *Engine) {
				spawn(t, e, goblin, 1, game.Side2)
			},
			slot:   1,
			pos:    1,
			reason: ErrCellOccupied,
		},
		{
			name: "unit cap",
			setup: func(t *testing.T, e *Engine) {
				for pos := 3; pos < 3+e.Config().MaxUnits; pos++ {
					spawn(t, e, goblin, pos, game.Side1)
				}
			},
			slot:   1,
			pos:    1,
			reason: ErrUnitCap,
		},
		{
			name: "repeat",
			setup: func(t *testing.T, e *Engine) {
				_, err := e.Play(game.Side1, 1, 2)
				require.NoError(t, err)
			},
			slot:   1,
			pos:    1,
			reason: ErrRepeatCard,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, engineSetup{})
			if tt.setup != nil {
				tt.setup(t, e)
			}
			before := e.Snapshot()

			_, err := e.Play(game.Side1, tt.slot, tt.pos)
			require.ErrorIs(t, err, ErrIllegalPlacement)
			require.ErrorIs(t, err, tt.reason)
			var pe *PlacementError
			require.ErrorAs(t, err, &pe)
			require.Equal(t, game.Side1, pe.Side)
			require.Equal(t, tt.pos, pe.Position)

			require.Equal(t, before, e.Snapshot(), "refused play changes nothing")
		})
	}
}

func TestPlay_NoElixir(t *testing.T) {
	cfg := DefaultConfig
	cfg.Player.InitialElixir = 0
	e := newTestEngine(t, engineSetup{cfg: cfg})

	require.False(t, e.CanPlay(game.Side1, 0))
	before := e.Snapshot()
	_, err := e.Play(game.Side1, 0, 1)
	require.ErrorIs(t, err, ErrInsufficientElixir)
	require.Equal(t, before, e.Snapshot())
	require.Zero(t, e.Registry().Len())
}

func TestPlay_RepeatClearsAfterDifferentCard(t *testing.T) {
	cfg := DefaultConfig
	cfg.Player.InitialElixir = 10
	e := newTestEngine(t, engineSetup{cfg: cfg})

	_, err := e.Play(game.Side1, 0, 1)
	require.NoError(t, err)
	require.False(t, e.CanPlay(game.Side1, 0), "Knight right after Knight")
	require.True(t, e.CanPlay(game.Side1, 1))

	_, err = e.Play(game.Side1, 1, 2)
	require.NoError(t, err)
	require.True(t, e.CanPlay(game.Side1, 0), "Knight allowed again after Goblin")

	// The other side's history is independent.
	require.True(t, e.CanPlay(game.Side2, 1))
}

func TestPlay_CapFreesAfterDeath(t *testing.T) {
	cfg := DefaultConfig
	cfg.MaxUnits = 1
	e := newTestEngine(t, engineSetup{cfg: cfg})
	id := spawn(t, e, goblin, 8, game.Side1)
	for i := range testDeck {
		require.False(t, e.CanPlay(game.Side1, i))
	}

	_, err := e.Registry().ApplyDamage(id, goblin.HP)
	require.NoError(t, err)
	require.True(t, e.CanPlay(game.Side1, 1))
}

func TestPlacementPhase_ScriptedBothSides(t *testing.T) {
	s1 := player.NewScripted(player.Play(0, 1), player.Pass(), player.Play(9, 1))
	s2 := player.NewScripted(player.Play(1, 16), player.Play(1, 15))
	e := newTestEngine(t, engineSetup{s1: s1, s2: s2})

	snap, err := e.Step()
	require.NoError(t, err)
	t.Logf("%s", dumpSnapshot(snap))
	require.Equal(t, 1, e.Registry().CountOf(game.Side1))
	require.Equal(t, 1, e.Registry().CountOf(game.Side2))

	var spawns []game.Side
	for _, ev := range snap.Events {
		if ev.Kind == game.EventSpawn {
			spawns = append(spawns, ev.Side)
		}
	}
	require.Equal(t, []game.Side{game.Side1, game.Side2}, spawns, "Side1 places first")

	// Placed units did not move this turn and have not attacked.
	for _, u := range snap.Units {
		require.True(t, u.Moved)
	}

	// Turn 2: Side1 passes, Side2 repeats Goblin and is refused.
	snap, err = e.Step()
	require.NoError(t, err)
	require.Equal(t, 1, e.Registry().CountOf(game.Side2))
	for _, ev := range snap.Events {
		require.NotEqual(t, game.EventSpawn, ev.Kind)
	}

	// Turn 3: Side1 names a slot it does not have.
	_, err = e.Step()
	require.NoError(t, err)
	require.Equal(t, 1, e.Registry().CountOf(game.Side1))
	require.Zero(t, s1.Remaining())
}

func TestSideView(t *testing.T) {
	e := newTestEngine(t, engineSetup{})
	spawn(t, e, goblin, 1, game.Side1)
	v := sideView{e: e, side: game.Side1}

	require.Equal(t, game.Side1, v.Side())
	require.Equal(t, 5, v.Elixir())
	require.Len(t, v.Hand(), len(testDeck))
	require.False(t, v.IsEmpty(1))
	require.True(t, v.IsEmpty(2))
	require.False(t, v.IsEmpty(-1))
	require.False(t, v.IsEmpty(0))
	require.True(t, v.CanPlay(1))
	require.Equal(t, []int{1, 2}, v.Band())
}
