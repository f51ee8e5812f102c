package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/lanebattle/game"
)

// TurnRow is one (match, turn) snapshot in the Parquet archive.
//
// The first row of every match carries the match metadata as JSON; later rows
// leave it empty. Events are stored as JSON since their shape varies by kind.
type TurnRow struct {
	MatchID  string `parquet:"match_id,dict"`
	Turn     int32  `parquet:"turn"`
	GridSize int32  `parquet:"grid_size"`

	Units   []UnitRow   `parquet:"units"`
	Towers  []TowerRow  `parquet:"towers"`
	Players []PlayerRow `parquet:"players"`

	Over   bool  `parquet:"game_over"`
	Winner int32 `parquet:"winner"`

	EventsJSON   []byte `parquet:"events_json,optional,zstd"`
	MetadataJSON []byte `parquet:"metadata_json,optional,zstd"`
}

type UnitRow struct {
	ID       int32  `parquet:"id"`
	Card     string `parquet:"card,dict"`
	Side     int32  `parquet:"side"`
	Position int32  `parquet:"position"`
	HP       int32  `parquet:"hp"`
	MaxHP    int32  `parquet:"max_hp"`
	Attack   int32  `parquet:"attack"`
	Range    int32  `parquet:"range"`
	Moved    bool   `parquet:"moved"`
}

type TowerRow struct {
	Side      int32 `parquet:"side"`
	HP        int32 `parquet:"hp"`
	MaxHP     int32 `parquet:"max_hp"`
	Destroyed bool  `parquet:"destroyed"`
}

// PlayerRow keeps hand cards by name only.
type PlayerRow struct {
	Side       int32    `parquet:"side"`
	Elixir     int32    `parquet:"elixir"`
	MaxElixir  int32    `parquet:"max_elixir"`
	Units      int32    `parquet:"units"`
	MaxUnits   int32    `parquet:"max_units"`
	LastPlayed string   `parquet:"last_played,dict"`
	Hand       []string `parquet:"hand"`
}

// Rows flattens a replay into archive rows.
func Rows(rep Replay) ([]TurnRow, error) {
	meta, err := json.Marshal(rep.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	rows := make([]TurnRow, 0, len(rep.States))
	for i, s := range rep.States {
		row, err := toRow(rep.Metadata.MatchID, s)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", s.Turn, err)
		}
		if i == 0 {
			row.MetadataJSON = meta
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		// Keep the metadata of a match with no recorded turns.
		rows = append(rows, TurnRow{MatchID: rep.Metadata.MatchID, GridSize: int32(rep.Metadata.GridSize), MetadataJSON: meta})
	}
	return rows, nil
}

func toRow(matchID string, s game.Snapshot) (TurnRow, error) {
	row := TurnRow{
		MatchID:  matchID,
		Turn:     int32(s.Turn),
		GridSize: int32(len(s.Cells)),
		Over:     s.Over,
		Winner:   int32(s.Winner),
	}
	if len(s.Units) > 0 {
		row.Units = make([]UnitRow, 0, len(s.Units))
		for _, u := range s.Units {
			row.Units = append(row.Units, UnitRow{
				ID:       int32(u.ID),
				Card:     u.Card,
				Side:     int32(u.Side),
				Position: int32(u.Position),
				HP:       int32(u.HP),
				MaxHP:    int32(u.MaxHP),
				Attack:   int32(u.Attack),
				Range:    int32(u.Range),
				Moved:    u.Moved,
			})
		}
	}
	for _, t := range s.Towers {
		row.Towers = append(row.Towers, TowerRow{
			Side:      int32(t.Side),
			HP:        int32(t.HP),
			MaxHP:     int32(t.MaxHP),
			Destroyed: t.Destroyed,
		})
	}
	for _, p := range s.Players {
		pr := PlayerRow{
			Side:       int32(p.Side),
			Elixir:     int32(p.Elixir),
			MaxElixir:  int32(p.MaxElixir),
			Units:      int32(p.Units),
			MaxUnits:   int32(p.MaxUnits),
			LastPlayed: p.LastPlayed,
		}
		for _, c := range p.Hand {
			pr.Hand = append(pr.Hand, c.Name)
		}
		row.Players = append(row.Players, pr)
	}
	if len(s.Events) > 0 {
		b, err := json.Marshal(s.Events)
		if err != nil {
			return TurnRow{}, fmt.Errorf("encode events: %w", err)
		}
		row.EventsJSON = b
	}
	return row, nil
}

// Snapshot rebuilds the turn's snapshot. Hand cards come back with their name
// only; look them up in a catalog for the stats.
func (r TurnRow) Snapshot() (game.Snapshot, error) {
	s := game.Snapshot{
		Turn:   int(r.Turn),
		Over:   r.Over,
		Winner: game.Side(r.Winner),
	}
	grid, err := game.NewGrid(int(r.GridSize))
	if err != nil {
		return game.Snapshot{}, err
	}
	s.Units = make([]game.Unit, 0, len(r.Units))
	for _, u := range r.Units {
		unit := game.Unit{
			ID:       game.UnitID(u.ID),
			Card:     u.Card,
			Side:     game.Side(u.Side),
			Position: int(u.Position),
			HP:       int(u.HP),
			MaxHP:    int(u.MaxHP),
			Attack:   int(u.Attack),
			Range:    int(u.Range),
			Moved:    u.Moved,
		}
		if err := grid.Place(unit.ID, unit.Position); err != nil {
			return game.Snapshot{}, fmt.Errorf("unit %d: %w", unit.ID, err)
		}
		s.Units = append(s.Units, unit)
	}
	s.Cells = game.CellViews(grid)
	for _, t := range r.Towers {
		s.Towers = append(s.Towers, game.Tower{
			Side:      game.Side(t.Side),
			HP:        int(t.HP),
			MaxHP:     int(t.MaxHP),
			Destroyed: t.Destroyed,
		})
	}
	for _, p := range r.Players {
		pv := game.PlayerView{
			Side:       game.Side(p.Side),
			Elixir:     int(p.Elixir),
			MaxElixir:  int(p.MaxElixir),
			Units:      int(p.Units),
			MaxUnits:   int(p.MaxUnits),
			LastPlayed: p.LastPlayed,
		}
		for _, name := range p.Hand {
			pv.Hand = append(pv.Hand, game.Card{Name: name})
		}
		s.Players = append(s.Players, pv)
	}
	if len(r.EventsJSON) > 0 {
		if err := json.Unmarshal(r.EventsJSON, &s.Events); err != nil {
			return game.Snapshot{}, fmt.Errorf("decode events: %w", err)
		}
	}
	return s, nil
}

func writerOptions() []parquet.WriterOption {
	return []parquet.WriterOption{
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", SchemaVersion),
	}
}

// WriteParquet writes one replay to outPath through a temp file and rename.
func WriteParquet(outPath string, rep Replay) error {
	rows, err := Rows(rep)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows, writerOptions()...); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

// ReadRows loads every archive row of a Parquet file.
func ReadRows(path string) ([]TurnRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	if schema, ok := pf.Lookup("schema"); ok && schema != SchemaVersion {
		return nil, fmt.Errorf("unsupported schema %q", schema)
	}

	reader := parquet.NewGenericReader[TurnRow](pf)
	defer reader.Close()

	out := make([]TurnRow, 0, reader.NumRows())
	buf := make([]TurnRow, 256)
	for {
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return out, nil
}

// ReadParquet loads every match stored in a Parquet file, in file order.
func ReadParquet(path string) ([]Replay, error) {
	rows, err := ReadRows(path)
	if err != nil {
		return nil, err
	}
	return Group(rows)
}

// Group reassembles rows into replays. Rows of one match must be contiguous.
func Group(rows []TurnRow) ([]Replay, error) {
	var out []Replay
	for _, row := range rows {
		if len(out) == 0 || out[len(out)-1].Metadata.MatchID != row.MatchID {
			rep := Replay{Metadata: Metadata{MatchID: row.MatchID, GridSize: int(row.GridSize)}}
			if len(row.MetadataJSON) > 0 {
				if err := json.Unmarshal(row.MetadataJSON, &rep.Metadata); err != nil {
					return nil, fmt.Errorf("match %s metadata: %w", row.MatchID, err)
				}
			}
			out = append(out, rep)
		}
		if len(row.Players) == 0 && len(row.Units) == 0 && len(row.Towers) == 0 {
			continue
		}
		s, err := row.Snapshot()
		if err != nil {
			return nil, fmt.Errorf("match %s turn %d: %w", row.MatchID, row.Turn, err)
		}
		rep := &out[len(out)-1]
		rep.States = append(rep.States, s)
	}
	return out, nil
}

// BatchName is a unique file name for a batch written now.
func BatchName() string {
	return fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
}
