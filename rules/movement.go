package rules

import (
	"sort"

	"github.com/brensch/lanebattle/game"
)

func (e *Engine) movementPhase() error {
	if err := e.resolveStalemates(); err != nil {
		return err
	}
	return e.advance()
}

// resolveStalemates scans for single empty cells with a Side1 unit directly
// left and a Side2 unit directly right. Both face the gap; the unit with more
// hit points takes it and spends its move for the turn.
func (e *Engine) resolveStalemates() error {
	n := e.grid.Size()
	for i := 1; i < n-1; i++ {
		if empty, _ := e.grid.IsEmpty(i); !empty {
			continue
		}
		left, ok := e.reg.UnitAt(i - 1)
		if !ok || left.Side != game.Side1 || left.Moved {
			continue
		}
		right, ok := e.reg.UnitAt(i + 1)
		if !ok || right.Side != game.Side2 || right.Moved {
			continue
		}

		winner, loser := e.stalemateWinner(left, right)
		if err := e.reg.Move(winner.ID, i); err != nil {
			return err
		}
		e.reg.MarkMoved(winner.ID)
		e.emit(game.Event{
			Kind:   game.EventStalemate,
			Side:   winner.Side,
			Unit:   winner.ID,
			Target: loser.ID,
			Card:   winner.Card,
			From:   winner.Position,
			To:     i,
		})
		e.log.Debug().
			Int("turn", e.turn).
			Int("gap", i).
			Int("winner", int(winner.ID)).
			Int("loser", int(loser.ID)).
			Msg("stalemate resolved")
	}
	return nil
}

func (e *Engine) stalemateWinner(a, b game.Unit) (winner, loser game.Unit) {
	switch {
	case a.HP > b.HP:
		return a, b
	case b.HP > a.HP:
		return b, a
	}
	if e.cfg.TieBreak == TieBreakLowerID {
		if a.ID < b.ID {
			return a, b
		}
		return b, a
	}
	if e.rng.Intn(2) == 0 {
		return a, b
	}
	return b, a
}

// advance moves every unit that has not yet moved one cell forward. Side1 goes
// first; within a side the unit deepest in enemy territory moves first so the
// units behind it can follow into the cell it vacated.
func (e *Engine) advance() error {
	for _, side := range game.Sides {
		units := e.unitsOf(side)
		fwd := side.Forward()
		sort.Slice(units, func(i, j int) bool {
			return units[i].Position*fwd > units[j].Position*fwd
		})
		for _, u := range units {
			if u.Moved {
				continue
			}
			to := u.Position + fwd
			if empty, err := e.grid.IsEmpty(to); err != nil || !empty {
				continue
			}
			if err := e.reg.Move(u.ID, to); err != nil {
				return err
			}
			e.reg.MarkMoved(u.ID)
			e.emit(game.Event{
				Kind: game.EventMove,
				Side: side,
				Unit: u.ID,
				Card: u.Card,
				From: u.Position,
				To:   to,
			})
		}
	}
	return nil
}

func (e *Engine) unitsOf(side game.Side) []game.Unit {
	ids := e.reg.UnitsOf(side)
	out := make([]game.Unit, 0, len(ids))
	for _, id := range ids {
		if u, ok := e.reg.Get(id); ok {
			out = append(out, u)
		}
	}
	return out
}
