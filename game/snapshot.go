package game

// CellView is the serializable form of one grid cell.
type CellView struct {
	Index int    `json:"index"`
	Kind  string `json:"kind"`
	Side  Side   `json:"side,omitempty"`
	Unit  UnitID `json:"unit,omitempty"`
}

// PlayerView is the per-side resource state at the end of a turn.
type PlayerView struct {
	Side       Side   `json:"side"`
	Elixir     int    `json:"elixir"`
	MaxElixir  int    `json:"max_elixir"`
	Units      int    `json:"units"`
	MaxUnits   int    `json:"max_units"`
	LastPlayed string `json:"last_played,omitempty"`
	Hand       []Card `json:"hand"`
}

// Snapshot is the immutable state emitted after every completed turn.
type Snapshot struct {
	Turn    int          `json:"turn"`
	Cells   []CellView   `json:"grid"`
	Units   []Unit       `json:"units"`
	Towers  []Tower      `json:"towers"`
	Players []PlayerView `json:"players"`
	Over    bool         `json:"game_over"`
	Winner  Side         `json:"winner,omitempty"`
	Events  []Event      `json:"events,omitempty"`
}

// CellViews converts the grid into its serializable form.
func CellViews(g *Grid) []CellView {
	out := make([]CellView, len(g.cells))
	for i, c := range g.cells {
		v := CellView{Index: i, Kind: c.Kind.String()}
		switch c.Kind {
		case CellTower:
			v.Side = c.Side
		case CellUnit:
			v.Unit = c.Unit
		}
		out[i] = v
	}
	return out
}

// UnitsBySide counts the snapshot's live units per side.
func (s Snapshot) UnitsBySide() (side1, side2 int) {
	for _, u := range s.Units {
		switch u.Side {
		case Side1:
			side1++
		case Side2:
			side2++
		}
	}
	return side1, side2
}

// Player returns the view for side.
func (s Snapshot) Player(side Side) (PlayerView, bool) {
	for _, p := range s.Players {
		if p.Side == side {
			return p, true
		}
	}
	return PlayerView{}, false
}
