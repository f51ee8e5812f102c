package rules

import (
	"github.com/brensch/lanebattle/game"
)

// attackPhase resolves attacks in ascending unit id. Damage lands at once,
// so a unit killed earlier in the phase never strikes back.
func (e *Engine) attackPhase() error {
	for _, snap := range e.reg.All() {
		if e.result.Over {
			return nil
		}
		u, ok := e.reg.Get(snap.ID)
		if !ok || u.Moved {
			continue
		}
		if target, ok := e.nearestEnemy(u); ok {
			if err := e.strike(u, target); err != nil {
				return err
			}
			continue
		}
		if e.towerInReach(u) {
			e.hitTower(u)
		}
	}
	return nil
}

// nearestEnemy returns the closest enemy within range. Equal distances go to
// the lowest unit id.
func (e *Engine) nearestEnemy(u game.Unit) (game.Unit, bool) {
	var best game.Unit
	bestDist := -1
	for _, id := range e.reg.UnitsOf(u.Side.Opponent()) {
		t, ok := e.reg.Get(id)
		if !ok {
			continue
		}
		d := e.grid.Distance(u.Position, t.Position)
		if d > u.Range {
			continue
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = t, d
		}
	}
	return best, bestDist >= 0
}

// towerInReach reports whether the unit's position extended by its range
// reaches or passes the enemy tower cell.
func (e *Engine) towerInReach(u game.Unit) bool {
	tower := e.grid.TowerIndex(u.Side.Opponent())
	if u.Side == game.Side1 {
		return u.Position+u.Range >= tower
	}
	return u.Position-u.Range <= tower
}

func (e *Engine) strike(u, target game.Unit) error {
	rep, err := e.reg.ApplyDamage(target.ID, u.Attack)
	if err != nil {
		return err
	}
	e.emit(game.Event{
		Kind:   game.EventAttack,
		Side:   u.Side,
		Unit:   u.ID,
		Target: target.ID,
		Card:   u.Card,
		From:   u.Position,
		To:     target.Position,
		Amount: u.Attack,
	})
	if rep.Killed {
		e.emit(game.Event{
			Kind: game.EventDeath,
			Side: target.Side,
			Unit: target.ID,
			Card: target.Card,
			From: target.Position,
			To:   target.Position,
		})
		e.log.Debug().
			Int("turn", e.turn).
			Int("unit", int(target.ID)).
			Str("card", target.Card).
			Int("killer", int(u.ID)).
			Msg("unit destroyed")
	}
	return nil
}

func (e *Engine) hitTower(u game.Unit) {
	enemy := u.Side.Opponent()
	tower := &e.towers[enemy-1]
	idx := e.grid.TowerIndex(enemy)
	fell := tower.Hit(u.Attack)
	e.emit(game.Event{
		Kind:   game.EventTowerAttack,
		Side:   u.Side,
		Unit:   u.ID,
		Card:   u.Card,
		From:   u.Position,
		To:     idx,
		Amount: u.Attack,
	})
	e.log.Debug().
		Int("turn", e.turn).
		Int("unit", int(u.ID)).
		Stringer("tower", enemy).
		Int("tower_hp", tower.HP).
		Msg("tower hit")
	if !fell {
		return
	}
	e.result = game.Result{Over: true, Winner: u.Side}
	e.emit(game.Event{
		Kind: game.EventTowerDestroyed,
		Side: enemy,
		Unit: u.ID,
		From: u.Position,
		To:   idx,
	})
}
