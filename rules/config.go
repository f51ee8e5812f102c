package rules

import (
	"errors"
	"fmt"

	"github.com/brensch/lanebattle/game"
	"github.com/brensch/lanebattle/player"
)

// TieBreak decides which unit takes a stalemate gap when hit points are equal.
type TieBreak string

const (
	// TieBreakCoin flips a coin from the engine's seeded source.
	TieBreakCoin TieBreak = "coin"
	// TieBreakLowerID lets the unit spawned first advance.
	TieBreakLowerID TieBreak = "lower_id"
)

// Config holds the match constants.
type Config struct {
	GridSize      int
	MaxUnits      int
	ElixirPerTurn int
	// PlacementBand is how many cells next to its own tower a side may place on.
	PlacementBand int
	// TowerHP of zero destroys a tower on its first qualifying hit.
	TowerHP  int
	MaxTurns int
	TieBreak TieBreak
	Player   player.Config
}

// DefaultConfig is the reference match.
var DefaultConfig = Config{
	GridSize:      18,
	MaxUnits:      5,
	ElixirPerTurn: 1,
	PlacementBand: 2,
	TowerHP:       0,
	MaxTurns:      100,
	TieBreak:      TieBreakCoin,
	Player:        player.DefaultConfig,
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.GridSize < game.MinGridSize {
		errs = append(errs, fmt.Errorf("grid size %d below minimum %d", c.GridSize, game.MinGridSize))
	}
	if c.MaxUnits <= 0 {
		errs = append(errs, fmt.Errorf("max units must be positive, got %d", c.MaxUnits))
	}
	if c.ElixirPerTurn < 0 {
		errs = append(errs, fmt.Errorf("elixir per turn must not be negative, got %d", c.ElixirPerTurn))
	}
	if c.PlacementBand <= 0 || 2*c.PlacementBand > c.GridSize-2 {
		errs = append(errs, fmt.Errorf("placement band %d does not fit a %d cell grid", c.PlacementBand, c.GridSize))
	}
	if c.TowerHP < 0 {
		errs = append(errs, fmt.Errorf("tower hp must not be negative, got %d", c.TowerHP))
	}
	if c.MaxTurns <= 0 {
		errs = append(errs, fmt.Errorf("max turns must be positive, got %d", c.MaxTurns))
	}
	switch c.TieBreak {
	case TieBreakCoin, TieBreakLowerID:
	default:
		errs = append(errs, fmt.Errorf("unknown tie break %q", c.TieBreak))
	}
	if c.Player.MaxElixir <= 0 {
		errs = append(errs, fmt.Errorf("max elixir must be positive, got %d", c.Player.MaxElixir))
	}
	if c.Player.HandSize <= 0 {
		errs = append(errs, fmt.Errorf("hand size must be positive, got %d", c.Player.HandSize))
	}
	return errors.Join(errs...)
}
