// Package player holds per-side resources (elixir, hand, deck, last played
// card) and the pluggable strategies that choose a placement each turn.
package player

import (
	"errors"
	"fmt"

	"github.com/brensch/lanebattle/game"
)

var (
	ErrEmptyDeck   = errors.New("deck is empty")
	ErrInvalidHand = errors.New("invalid hand index")
)

// Config bounds a side's resources.
type Config struct {
	MaxElixir     int
	InitialElixir int
	HandSize      int
	// CycleHand sends a played card to the back of the deck and refills its
	// slot from the front, instead of keeping it in hand.
	CycleHand bool
}

// DefaultConfig matches the reference match: 10 max elixir, 5 to start, four
// cards in hand.
var DefaultConfig = Config{MaxElixir: 10, InitialElixir: 5, HandSize: 4}

// Player is one side's state. It is owned and mutated by the engine only.
type Player struct {
	side       game.Side
	cfg        Config
	elixir     int
	hand       []game.Card
	queue      []game.Card
	lastPlayed string
	kind       string
	strategy   Strategy
}

// New deals the first HandSize cards of deck into the hand and keeps the rest
// queued for cycling.
func New(side game.Side, deck []game.Card, cfg Config, strategy Strategy) (*Player, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("new player: %w %d", game.ErrInvalidSide, int(side))
	}
	if len(deck) == 0 {
		return nil, fmt.Errorf("new player %s: %w", side, ErrEmptyDeck)
	}
	if cfg.MaxElixir <= 0 || cfg.HandSize <= 0 {
		return nil, fmt.Errorf("new player %s: max elixir and hand size must be positive", side)
	}
	p := &Player{
		side:     side,
		cfg:      cfg,
		elixir:   clamp(cfg.InitialElixir, 0, cfg.MaxElixir),
		strategy: strategy,
		kind:     KindOf(strategy),
	}
	n := min(cfg.HandSize, len(deck))
	p.hand = append([]game.Card(nil), deck[:n]...)
	p.queue = append([]game.Card(nil), deck[n:]...)
	return p, nil
}

func (p *Player) Side() game.Side    { return p.side }
func (p *Player) Elixir() int        { return p.elixir }
func (p *Player) MaxElixir() int     { return p.cfg.MaxElixir }
func (p *Player) LastPlayed() string { return p.lastPlayed }
func (p *Player) Strategy() Strategy { return p.strategy }
func (p *Player) Kind() string       { return p.kind }
func (p *Player) SetStrategy(s Strategy) {
	p.strategy = s
	p.kind = KindOf(s)
}

// Hand returns a copy of the cards currently in hand.
func (p *Player) Hand() []game.Card {
	return append([]game.Card(nil), p.hand...)
}

// Deck returns the hand followed by the queued cards.
func (p *Player) Deck() []game.Card {
	out := make([]game.Card, 0, len(p.hand)+len(p.queue))
	out = append(out, p.hand...)
	return append(out, p.queue...)
}

// Card returns the card in hand slot i.
func (p *Player) Card(i int) (game.Card, bool) {
	if i < 0 || i >= len(p.hand) {
		return game.Card{}, false
	}
	return p.hand[i], true
}

// Affordable reports whether slot i exists and its cost is covered.
func (p *Player) Affordable(i int) bool {
	c, ok := p.Card(i)
	return ok && c.Cost <= p.elixir
}

// Repeats reports whether slot i holds the card this side played last.
func (p *Player) Repeats(i int) bool {
	c, ok := p.Card(i)
	return ok && p.lastPlayed != "" && c.Name == p.lastPlayed
}

// Regenerate adds amount elixir, capped at the maximum, and returns the
// change actually applied.
func (p *Player) Regenerate(amount int) int {
	before := p.elixir
	p.elixir = clamp(p.elixir+amount, 0, p.cfg.MaxElixir)
	return p.elixir - before
}

// Commit debits slot i's cost and records it as last played. Callers must
// have validated the play; Commit only refuses unaffordable or missing slots.
func (p *Player) Commit(i int) (game.Card, error) {
	c, ok := p.Card(i)
	if !ok {
		return game.Card{}, fmt.Errorf("commit slot %d: %w", i, ErrInvalidHand)
	}
	if c.Cost > p.elixir {
		return game.Card{}, fmt.Errorf("commit %s: cost %d exceeds elixir %d", c.Name, c.Cost, p.elixir)
	}
	p.elixir -= c.Cost
	p.lastPlayed = c.Name
	if p.cfg.CycleHand {
		p.queue = append(p.queue, c)
		p.hand[i] = p.queue[0]
		p.queue = p.queue[1:]
	}
	return c, nil
}

// View is the per-side snapshot of resources.
func (p *Player) View(units, maxUnits int) game.PlayerView {
	return game.PlayerView{
		Side:       p.side,
		Elixir:     p.elixir,
		MaxElixir:  p.cfg.MaxElixir,
		Units:      units,
		MaxUnits:   maxUnits,
		LastPlayed: p.lastPlayed,
		Hand:       p.Hand(),
	}
}

func (p *Player) String() string {
	return fmt.Sprintf("Player %d (Elixir: %d/%d)", int(p.side), p.elixir, p.cfg.MaxElixir)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
