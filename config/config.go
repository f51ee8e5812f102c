// Package config loads match, player and batch settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brensch/lanebattle/game"
	"github.com/brensch/lanebattle/player"
	"github.com/brensch/lanebattle/rules"
	"github.com/brensch/lanebattle/selfplay"
)

// Config is the root of match.yaml.
type Config struct {
	Seed  int64       `yaml:"seed"`
	Match MatchConfig `yaml:"match"`
	Side1 SideConfig  `yaml:"side1"`
	Side2 SideConfig  `yaml:"side2"`
	// Cards replaces the default catalog when non-empty.
	Cards []game.Card `yaml:"cards"`
	Batch BatchConfig `yaml:"batch"`
}

type MatchConfig struct {
	GridSize      int    `yaml:"grid_size"`
	MaxElixir     int    `yaml:"max_elixir"`
	InitialElixir int    `yaml:"initial_elixir"`
	ElixirPerTurn int    `yaml:"elixir_per_turn"`
	MaxUnits      int    `yaml:"max_units"`
	HandSize      int    `yaml:"hand_size"`
	PlacementBand int    `yaml:"placement_band"`
	TowerHP       int    `yaml:"tower_hp"`
	MaxTurns      int    `yaml:"max_turns"`
	TieBreak      string `yaml:"tie_break"`
	CycleHand     bool   `yaml:"cycle_hand"`
}

type SideConfig struct {
	// Type is ai, passive, human or scripted.
	Type       string   `yaml:"type"`
	Difficulty string   `yaml:"difficulty"`
	Deck       []string `yaml:"deck"`
}

type BatchConfig struct {
	Count   int    `yaml:"count"`
	Workers int    `yaml:"workers"`
	OutDir  string `yaml:"out_dir"`
	Format  string `yaml:"format"`
	Ledger  string `yaml:"ledger"`
}

// Default reproduces the reference match with medium AI on both sides.
func Default() Config {
	r := rules.DefaultConfig
	return Config{
		Match: MatchConfig{
			GridSize:      r.GridSize,
			MaxElixir:     r.Player.MaxElixir,
			InitialElixir: r.Player.InitialElixir,
			ElixirPerTurn: r.ElixirPerTurn,
			MaxUnits:      r.MaxUnits,
			HandSize:      r.Player.HandSize,
			PlacementBand: r.PlacementBand,
			TowerHP:       r.TowerHP,
			MaxTurns:      r.MaxTurns,
			TieBreak:      string(r.TieBreak),
			CycleHand:     r.Player.CycleHand,
		},
		Side1: SideConfig{Type: player.KindAI, Difficulty: player.Medium.String()},
		Side2: SideConfig{Type: player.KindAI, Difficulty: player.Medium.String()},
		Batch: BatchConfig{
			Count:   10,
			Workers: 4,
			OutDir:  "replays",
			Format:  selfplay.FormatParquet,
		},
	}
}

func loadYAML(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, out)
}

// Load reads path over Default, so omitted keys keep their defaults, and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := loadYAML(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Rules converts the match section.
func (c Config) Rules() rules.Config {
	m := c.Match
	return rules.Config{
		GridSize:      m.GridSize,
		MaxUnits:      m.MaxUnits,
		ElixirPerTurn: m.ElixirPerTurn,
		PlacementBand: m.PlacementBand,
		TowerHP:       m.TowerHP,
		MaxTurns:      m.MaxTurns,
		TieBreak:      rules.TieBreak(m.TieBreak),
		Player: player.Config{
			MaxElixir:     m.MaxElixir,
			InitialElixir: m.InitialElixir,
			HandSize:      m.HandSize,
			CycleHand:     m.CycleHand,
		},
	}
}

// Catalog returns the configured cards, or the default catalog.
func (c Config) Catalog() (*game.Catalog, error) {
	if len(c.Cards) == 0 {
		return game.DefaultCatalog(), nil
	}
	return game.NewCatalog(c.Cards...)
}

func (s SideConfig) spec() (selfplay.SideSpec, error) {
	spec := selfplay.SideSpec{
		Kind: strings.ToLower(strings.TrimSpace(s.Type)),
		Deck: s.Deck,
	}
	switch spec.Kind {
	case player.KindAI:
		d, err := player.ParseDifficulty(s.Difficulty)
		if err != nil {
			return spec, err
		}
		spec.Difficulty = d
	case "", player.KindPassive, player.KindHuman, player.KindScripted:
	default:
		return spec, fmt.Errorf("unknown player type %q", s.Type)
	}
	return spec, nil
}

// BuildMatch builds the selfplay match for the configured seed. Human and
// scripted sides still need a Strategy before the match can run.
func (c Config) BuildMatch() (selfplay.Match, error) {
	cat, err := c.Catalog()
	if err != nil {
		return selfplay.Match{}, err
	}
	m := selfplay.NewMatch(c.Seed)
	m.Rules = c.Rules()
	m.Catalog = cat
	for i, s := range []SideConfig{c.Side1, c.Side2} {
		spec, err := s.spec()
		if err != nil {
			return selfplay.Match{}, fmt.Errorf("%s: %w", game.Sides[i], err)
		}
		m.Sides[i] = spec
	}
	return m, nil
}

// BuildBatch builds the batch section around BuildMatch. The ledger is left
// for the caller to open.
func (c Config) BuildBatch() (selfplay.Batch, error) {
	m, err := c.BuildMatch()
	if err != nil {
		return selfplay.Batch{}, err
	}
	return selfplay.Batch{
		Template: m,
		Count:    c.Batch.Count,
		Workers:  c.Batch.Workers,
		OutDir:   c.Batch.OutDir,
		Format:   c.Batch.Format,
	}, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	if err := c.Rules().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("match: %w", err))
	}
	if c.Match.InitialElixir < 0 || c.Match.InitialElixir > c.Match.MaxElixir {
		errs = append(errs, fmt.Errorf("match: initial elixir %d outside 0..%d", c.Match.InitialElixir, c.Match.MaxElixir))
	}

	cat, err := c.Catalog()
	if err != nil {
		errs = append(errs, fmt.Errorf("cards: %w", err))
	}
	// Sides without a deck split the catalog, so each needs at least one card.
	if cat != nil && cat.Len() < 2 && (len(c.Side1.Deck) == 0 || len(c.Side2.Deck) == 0) {
		errs = append(errs, fmt.Errorf("cards: %d card catalog cannot be dealt to both sides, give each side a deck", cat.Len()))
	}
	for i, s := range []SideConfig{c.Side1, c.Side2} {
		side := game.Sides[i]
		if _, err := s.spec(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", side, err))
		}
		if cat == nil {
			continue
		}
		for _, name := range s.Deck {
			if _, ok := cat.Lookup(name); !ok {
				errs = append(errs, fmt.Errorf("%s deck: unknown card %q", side, name))
			}
		}
	}

	switch c.Batch.Format {
	case selfplay.FormatNone, selfplay.FormatJSON, selfplay.FormatParquet:
	default:
		errs = append(errs, fmt.Errorf("batch: unknown format %q", c.Batch.Format))
	}
	if c.Batch.Count < 0 {
		errs = append(errs, fmt.Errorf("batch: count must not be negative, got %d", c.Batch.Count))
	}
	if c.Batch.Workers < 0 {
		errs = append(errs, fmt.Errorf("batch: workers must not be negative, got %d", c.Batch.Workers))
	}
	return errors.Join(errs...)
}
