package rules

import (
	"fmt"

	"github.com/brensch/lanebattle/game"
	"github.com/brensch/lanebattle/player"
)

// Band returns the cells side may place on, nearest its own tower first.
func (e *Engine) Band(side game.Side) []int {
	tower := e.grid.TowerIndex(side)
	fwd := side.Forward()
	band := make([]int, 0, e.cfg.PlacementBand)
	for i := 1; i <= e.cfg.PlacementBand; i++ {
		band = append(band, tower+i*fwd)
	}
	return band
}

func (e *Engine) inBand(side game.Side, pos int) bool {
	d := e.grid.Distance(pos, e.grid.TowerIndex(side))
	return d >= 1 && d <= e.cfg.PlacementBand
}

// CanPlay reports whether side could play hand slot i this turn on some free
// cell, ignoring which cell.
func (e *Engine) CanPlay(side game.Side, i int) bool {
	return e.checkCard(side, i) == nil
}

func (e *Engine) checkCard(side game.Side, i int) error {
	p := e.Player(side)
	if p == nil {
		return game.ErrInvalidSide
	}
	if _, ok := p.Card(i); !ok {
		return ErrInvalidHand
	}
	if !p.Affordable(i) {
		return ErrInsufficientElixir
	}
	if e.reg.CountOf(side) >= e.cfg.MaxUnits {
		return ErrUnitCap
	}
	if p.Repeats(i) {
		return ErrRepeatCard
	}
	return nil
}

// Play places hand slot i for side at pos. On any refusal nothing changes and
// a *PlacementError is returned.
func (e *Engine) Play(side game.Side, i, pos int) (game.UnitID, error) {
	if e.result.Over {
		return 0, ErrMatchOver
	}
	refuse := func(reason error) (game.UnitID, error) {
		return 0, &PlacementError{Side: side, HandIndex: i, Position: pos, Reason: reason}
	}
	if err := e.checkCard(side, i); err != nil {
		return refuse(err)
	}
	if !e.inBand(side, pos) {
		return refuse(ErrOutsideBand)
	}
	if empty, err := e.grid.IsEmpty(pos); err != nil || !empty {
		return refuse(ErrCellOccupied)
	}

	p := e.Player(side)
	card, _ := p.Card(i)
	id, err := e.reg.Spawn(card, pos, side)
	if err != nil {
		return refuse(err)
	}
	if _, err := p.Commit(i); err != nil {
		if rbErr := e.reg.Despawn(id); rbErr != nil {
			return 0, fmt.Errorf("roll back %s placement: %w", side, rbErr)
		}
		return refuse(err)
	}
	e.emit(game.Event{
		Kind:   game.EventSpawn,
		Side:   side,
		Unit:   id,
		Card:   card.Name,
		From:   pos,
		To:     pos,
		Amount: card.Cost,
	})
	e.log.Debug().
		Int("turn", e.turn).
		Stringer("side", side).
		Str("card", card.Name).
		Int("pos", pos).
		Int("unit", int(id)).
		Int("elixir", p.Elixir()).
		Msg("card placed")
	return id, nil
}

// placementPhase asks each side's strategy for one decision. Illegal
// decisions are dropped.
func (e *Engine) placementPhase() {
	for _, side := range game.Sides {
		p := e.Player(side)
		s := p.Strategy()
		if s == nil {
			continue
		}
		d, ok := s.Decide(sideView{e: e, side: side})
		if !ok {
			continue
		}
		if _, err := e.Play(side, d.HandIndex, d.Position); err != nil {
			e.log.Debug().
				Err(err).
				Int("turn", e.turn).
				Stringer("side", side).
				Msg("placement refused")
		}
	}
}

// sideView is the player.View handed to strategies.
type sideView struct {
	e    *Engine
	side game.Side
}

var _ player.View = sideView{}

func (v sideView) Turn() int          { return v.e.turn }
func (v sideView) Side() game.Side    { return v.side }
func (v sideView) Hand() []game.Card  { return v.e.Player(v.side).Hand() }
func (v sideView) Elixir() int        { return v.e.Player(v.side).Elixir() }
func (v sideView) CanPlay(i int) bool { return v.e.CanPlay(v.side, i) }
func (v sideView) Band() []int        { return v.e.Band(v.side) }
func (v sideView) IsEmpty(pos int) bool {
	empty, err := v.e.grid.IsEmpty(pos)
	return err == nil && empty
}
