// Package selfplay runs seeded matches between strategies and generates
// batches of recorded replays.
package selfplay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"
	"golang.org/x/exp/rand"

	"github.com/brensch/lanebattle/game"
	"github.com/brensch/lanebattle/player"
	"github.com/brensch/lanebattle/replay"
	"github.com/brensch/lanebattle/rules"
)

var ErrNeedsStrategy = errors.New("side kind needs an explicit strategy")

// SideSpec configures one side of a match.
type SideSpec struct {
	// Kind is one of player.KindAI, KindPassive, KindHuman or KindScripted.
	// Empty means passive.
	Kind       string
	Difficulty player.Difficulty
	// Deck lists card names from the catalog. Empty deals half of the
	// shuffled catalog.
	Deck []string
	// Strategy overrides Kind. Human and scripted sides must set it.
	Strategy player.Strategy
}

// Match is everything needed to play one reproducible match.
type Match struct {
	Rules   rules.Config
	Catalog *game.Catalog
	Seed    int64
	Sides   [2]SideSpec
	// BatchIndex is recorded in the replay metadata when non-negative.
	BatchIndex int
	MatchID    string
}

// NewMatch returns the reference match for seed: default rules and catalog,
// medium AI on both sides.
func NewMatch(seed int64) Match {
	return Match{
		Rules:   rules.DefaultConfig,
		Catalog: game.DefaultCatalog(),
		Seed:    seed,
		Sides: [2]SideSpec{
			{Kind: player.KindAI, Difficulty: player.Medium},
			{Kind: player.KindAI, Difficulty: player.Medium},
		},
		BatchIndex: -1,
	}
}

type Result struct {
	Replay  replay.Replay
	Outcome rules.Outcome
}

type runOptions struct {
	log       zerolog.Logger
	observers []rules.Observer
}

type Option func(*runOptions)

func WithLogger(log zerolog.Logger) Option {
	return func(o *runOptions) { o.log = log }
}

// WithObserver adds an observer to every match. Observers shared by a batch
// must be safe for concurrent use.
func WithObserver(obs rules.Observer) Option {
	return func(o *runOptions) { o.observers = append(o.observers, obs) }
}

// Deal shuffles the catalog and splits it between the sides; Side1 gets the
// smaller half when the count is odd.
func Deal(cat *game.Catalog, rng *rand.Rand) [2][]game.Card {
	cards := cat.Cards()
	rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	half := len(cards) / 2
	return [2][]game.Card{cards[:half:half], cards[half:]}
}

func decks(m Match, rng *rand.Rand) ([2][]game.Card, error) {
	out := Deal(m.Catalog, rng)
	for i, spec := range m.Sides {
		if len(spec.Deck) == 0 {
			continue
		}
		deck := make([]game.Card, 0, len(spec.Deck))
		for _, name := range spec.Deck {
			c, ok := m.Catalog.Lookup(name)
			if !ok {
				return out, fmt.Errorf("%s deck: unknown card %q", game.Sides[i], name)
			}
			deck = append(deck, c)
		}
		out[i] = deck
	}
	return out, nil
}

// NewStrategy builds the strategy described by spec.
func NewStrategy(spec SideSpec, rng *rand.Rand) (player.Strategy, error) {
	if spec.Strategy != nil {
		return spec.Strategy, nil
	}
	switch strings.ToLower(spec.Kind) {
	case "", player.KindPassive:
		return player.Passive, nil
	case player.KindAI:
		return player.NewHeuristic(spec.Difficulty, rng), nil
	case player.KindHuman, player.KindScripted:
		return nil, fmt.Errorf("%s: %w", spec.Kind, ErrNeedsStrategy)
	}
	return nil, fmt.Errorf("unknown player type %q", spec.Kind)
}

type sideFingerprint struct {
	Kind       string            `json:"kind"`
	Difficulty player.Difficulty `json:"difficulty,omitempty"`
	Deck       []string          `json:"deck,omitempty"`
}

// Fingerprint identifies everything besides the seed and ids that shapes a
// match: rules, catalog and both side setups. Matches with equal fingerprints
// and seeds play out identically.
func Fingerprint(m Match) string {
	cat := m.Catalog
	if cat == nil {
		cat = game.DefaultCatalog()
	}
	var sides [2]sideFingerprint
	for i, spec := range m.Sides {
		kind := strings.ToLower(spec.Kind)
		if spec.Strategy != nil {
			kind = player.KindOf(spec.Strategy)
		}
		if kind == "" {
			kind = player.KindPassive
		}
		sides[i] = sideFingerprint{Kind: kind, Deck: spec.Deck}
		if kind == player.KindAI {
			d := spec.Difficulty
			if !d.Valid() {
				d = player.Easy
			}
			sides[i].Difficulty = d
		}
	}
	b, err := json.Marshal(struct {
		Rules rules.Config
		Cards []game.Card
		Sides [2]sideFingerprint
	}{m.Rules, cat.Cards(), sides})
	if err != nil {
		// Every field is plain data; Marshal cannot fail here.
		panic(err)
	}
	return fmt.Sprintf("%016x", xxh3.Hash(b))
}

// Run plays m to completion. The match seed drives deck dealing, both AI
// strategies and the engine's coin tosses, so equal matches replay equally.
func Run(ctx context.Context, m Match, opts ...Option) (Result, error) {
	o := runOptions{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if m.Catalog == nil {
		m.Catalog = game.DefaultCatalog()
	}

	rng := game.NewRand(m.Seed)
	dealt, err := decks(m, rng)
	if err != nil {
		return Result{}, err
	}
	var players [2]*player.Player
	var infos []replay.PlayerInfo
	for i, side := range game.Sides {
		strategy, err := NewStrategy(m.Sides[i], rng)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", side, err)
		}
		p, err := player.New(side, dealt[i], m.Rules.Player, strategy)
		if err != nil {
			return Result{}, err
		}
		players[i] = p
		infos = append(infos, replay.Describe(p, m.Sides[i].Difficulty))
	}

	meta := replay.Metadata{
		MatchID:  m.MatchID,
		Seed:     m.Seed,
		GridSize: m.Rules.GridSize,
		Players:  infos,
	}
	if m.BatchIndex >= 0 {
		idx := m.BatchIndex
		meta.BatchIndex = &idx
	}
	rec := replay.NewRecorder(meta)
	log := o.log.With().Str("match", rec.MatchID()).Int64("seed", m.Seed).Logger()

	engineOpts := []rules.Option{
		rules.WithRand(rng),
		rules.WithLogger(log),
		rules.WithObserver(rec),
	}
	for _, obs := range o.observers {
		engineOpts = append(engineOpts, rules.WithObserver(obs))
	}
	e, err := rules.New(m.Rules, players[0], players[1], engineOpts...)
	if err != nil {
		return Result{}, err
	}

	out, err := e.Run(ctx)
	rep := rec.Finish()
	if err != nil {
		return Result{Replay: rep, Outcome: out}, fmt.Errorf("match %s: %w", rec.MatchID(), err)
	}
	return Result{Replay: rep, Outcome: out}, nil
}
