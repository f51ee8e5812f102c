// Package rules implements the turn engine: movement with stalemate
// resolution, placement, attacks and win conditions.
//
// A turn runs three phases in a fixed order:
//
//  1. movement: stalemate gaps are resolved, then every unit that has not
//     moved tries to advance one cell toward the enemy tower
//  2. placement: each side's strategy may place one card
//  3. attack: every unit that did not move hits the nearest enemy in range,
//     or the enemy tower when no enemy is in range and the tower is in reach
//
// Elixir regenerates once per turn after the attack phase. A snapshot is
// emitted to every observer when the turn completes.
package rules

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"github.com/brensch/lanebattle/game"
	"github.com/brensch/lanebattle/player"
)

// Observer receives the snapshot of every completed turn.
type Observer interface {
	Observe(game.Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(game.Snapshot)

func (f ObserverFunc) Observe(s game.Snapshot) { f(s) }

type Option func(*Engine)

// WithRand sets the source for stalemate coin tosses.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithInvariantChecks verifies grid/registry consistency after every turn.
func WithInvariantChecks() Option {
	return func(e *Engine) { e.checkInvariants = true }
}

// Engine owns one match. It is not safe for concurrent use; a full turn is
// the unit of atomicity.
type Engine struct {
	cfg     Config
	grid    *game.Grid
	reg     *game.Registry
	players [2]*player.Player
	towers  [2]game.Tower

	rng             *rand.Rand
	log             zerolog.Logger
	observers       []Observer
	checkInvariants bool

	turn   int
	result game.Result
	events []game.Event
	last   game.Snapshot
}

// Outcome summarises a finished Run.
type Outcome struct {
	Result game.Result
	Turns  int
	// Draw is set when MaxTurns elapsed without a tower falling.
	Draw bool
}

// New builds an engine for p1 (Side1) and p2 (Side2).
func New(cfg Config, p1, p2 *player.Player, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if p1 == nil || p2 == nil {
		return nil, fmt.Errorf("both players are required")
	}
	if p1.Side() != game.Side1 || p2.Side() != game.Side2 {
		return nil, fmt.Errorf("players must be %s and %s, got %s and %s", game.Side1, game.Side2, p1.Side(), p2.Side())
	}
	grid, err := game.NewGrid(cfg.GridSize)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:     cfg,
		grid:    grid,
		reg:     game.NewRegistry(grid),
		players: [2]*player.Player{p1, p2},
		log:     zerolog.Nop(),
	}
	for i, side := range game.Sides {
		e.towers[i] = game.Tower{Side: side, HP: cfg.TowerHP, MaxHP: cfg.TowerHP}
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = game.NewRand(1)
	}
	e.last = e.Snapshot()
	return e, nil
}

func (e *Engine) Config() Config           { return e.cfg }
func (e *Engine) Turn() int                { return e.turn }
func (e *Engine) Result() game.Result      { return e.result }
func (e *Engine) Last() game.Snapshot      { return e.last }
func (e *Engine) Grid() *game.Grid         { return e.grid }
func (e *Engine) Registry() *game.Registry { return e.reg }

func (e *Engine) Player(side game.Side) *player.Player {
	if !side.Valid() {
		return nil
	}
	return e.players[side-1]
}

func (e *Engine) Tower(side game.Side) game.Tower {
	if !side.Valid() {
		return game.Tower{}
	}
	return e.towers[side-1]
}

// Step runs one full turn. Once the match is over it returns the final
// snapshot and ErrMatchOver without touching any state.
func (e *Engine) Step() (game.Snapshot, error) {
	if e.result.Over {
		return e.last, ErrMatchOver
	}
	e.turn++
	e.events = nil
	e.reg.ResetMoved()

	if err := e.movementPhase(); err != nil {
		return e.last, fmt.Errorf("turn %d movement: %w", e.turn, err)
	}
	e.placementPhase()
	if err := e.attackPhase(); err != nil {
		return e.last, fmt.Errorf("turn %d attack: %w", e.turn, err)
	}

	for _, p := range e.players {
		before := p.Elixir()
		gained := p.Regenerate(e.cfg.ElixirPerTurn)
		e.emit(game.Event{Kind: game.EventElixir, Side: p.Side(), From: before, To: before + gained, Amount: gained})
	}

	if e.checkInvariants {
		if err := e.reg.Check(); err != nil {
			return e.last, fmt.Errorf("turn %d: %w", e.turn, err)
		}
	}

	e.last = e.Snapshot()
	for _, o := range e.observers {
		o.Observe(e.last)
	}
	return e.last, nil
}

// Run steps until a tower falls, MaxTurns elapse or ctx is cancelled.
func (e *Engine) Run(ctx context.Context) (Outcome, error) {
	for !e.result.Over && e.turn < e.cfg.MaxTurns {
		if err := ctx.Err(); err != nil {
			return Outcome{Result: e.result, Turns: e.turn}, err
		}
		if _, err := e.Step(); err != nil {
			return Outcome{Result: e.result, Turns: e.turn}, err
		}
	}
	out := Outcome{Result: e.result, Turns: e.turn, Draw: !e.result.Over}
	e.log.Info().
		Int("turns", out.Turns).
		Bool("draw", out.Draw).
		Stringer("winner", out.Result.Winner).
		Msg("match finished")
	return out, nil
}

// Snapshot captures the current state.
func (e *Engine) Snapshot() game.Snapshot {
	players := make([]game.PlayerView, 0, len(e.players))
	for _, p := range e.players {
		players = append(players, p.View(e.reg.CountOf(p.Side()), e.cfg.MaxUnits))
	}
	return game.Snapshot{
		Turn:    e.turn,
		Cells:   game.CellViews(e.grid),
		Units:   e.reg.All(),
		Towers:  []game.Tower{e.towers[0], e.towers[1]},
		Players: players,
		Over:    e.result.Over,
		Winner:  e.result.Winner,
		Events:  append([]game.Event(nil), e.events...),
	}
}

func (e *Engine) emit(ev game.Event) {
	ev.Turn = e.turn
	e.events = append(e.events, ev)
}
