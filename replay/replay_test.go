package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brensch/lanebattle/game"
	"github.com/brensch/lanebattle/player"
	"github.com/brensch/lanebattle/rules"
)

var fixedStart = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func playMatch(t *testing.T, seed int64) Replay {
	t.Helper()
	rng := game.NewRand(seed)
	deck := game.DefaultCatalog().Cards()
	cfg := rules.DefaultConfig
	p1, err := player.New(game.Side1, deck[:3], cfg.Player, player.NewHeuristic(player.Hard, rng))
	require.NoError(t, err)
	p2, err := player.New(game.Side2, deck[3:], cfg.Player, player.NewHeuristic(player.Easy, rng))
	require.NoError(t, err)

	rec := NewRecorder(Metadata{
		Seed:     seed,
		GridSize: cfg.GridSize,
		Players:  []PlayerInfo{Describe(p1, player.Hard), Describe(p2, player.Easy)},
	})
	rec.meta.StartedAt = fixedStart
	rec.now = func() time.Time { return fixedStart.Add(1500 * time.Millisecond) }

	e, err := rules.New(cfg, p1, p2, rules.WithRand(rng), rules.WithObserver(rec))
	require.NoError(t, err)
	rec.Observe(e.Last())
	_, err = e.Run(context.Background())
	require.NoError(t, err)
	return rec.Finish()
}

func namesOnly(states []game.Snapshot) []game.Snapshot {
	out := make([]game.Snapshot, len(states))
	for i, s := range states {
		players := make([]game.PlayerView, len(s.Players))
		for j, p := range s.Players {
			hand := make([]game.Card, len(p.Hand))
			for k, c := range p.Hand {
				hand[k] = game.Card{Name: c.Name}
			}
			p.Hand = hand
			players[j] = p
		}
		s.Players = players
		out[i] = s
	}
	return out
}

func TestRecorder_Finish(t *testing.T) {
	rep := playMatch(t, 5)
	meta := rep.Metadata

	require.NotEmpty(t, meta.MatchID)
	require.Equal(t, SchemaVersion, meta.Schema)
	require.Equal(t, int64(5), meta.Seed)
	require.Equal(t, 1.5, meta.Duration)
	require.Equal(t, fixedStart, meta.StartedAt)

	require.Equal(t, 0, rep.States[0].Turn, "initial state is recorded")
	last := rep.States[len(rep.States)-1]
	require.Equal(t, last.Turn, meta.Turns)
	require.Len(t, rep.States, meta.Turns+1)
	if last.Over {
		require.Equal(t, last.Winner, meta.Winner)
		require.False(t, meta.Draw)
	} else {
		require.True(t, meta.Draw)
		require.Equal(t, game.NoSide, meta.Winner)
	}

	require.Len(t, meta.Players, 2)
	require.Equal(t, player.KindAI, meta.Players[0].Kind)
	require.Equal(t, player.Hard, meta.Players[0].Difficulty)
	require.Equal(t, []string{"Knight", "Archer", "Giant"}, meta.Players[0].Deck)
}

func TestRecorder_Empty(t *testing.T) {
	rec := NewRecorder(Metadata{MatchID: "m1"})
	require.Equal(t, "m1", rec.MatchID())
	rep := rec.Finish()
	require.True(t, rep.Metadata.Draw)
	require.Zero(t, rep.Metadata.Turns)
	require.Empty(t, rep.States)
}

func TestJSONRoundTrip(t *testing.T) {
	rep := playMatch(t, 9)
	path := filepath.Join(t.TempDir(), "nested", FileName(fixedStart, rep.Metadata.MatchID, -1, ".json"))

	require.NoError(t, WriteJSON(path, rep))
	_, err := os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))

	got, err := ReadJSON(path)
	require.NoError(t, err)
	require.Equal(t, rep, got)
}

func TestParquetRoundTrip(t *testing.T) {
	rep := playMatch(t, 11)
	path := filepath.Join(t.TempDir(), "match.parquet")
	require.NoError(t, WriteParquet(path, rep))

	got, err := ReadParquet(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, rep.Metadata, got[0].Metadata)
	require.Equal(t, namesOnly(rep.States), got[0].States)
}

func TestBatchWriter(t *testing.T) {
	dir := t.TempDir()
	bw, err := NewBatchWriter(dir)
	require.NoError(t, err)

	var reps []Replay
	for seed := int64(1); seed <= 3; seed++ {
		rep := playMatch(t, seed)
		idx := int(seed) - 1
		rep.Metadata.BatchIndex = &idx
		require.NoError(t, bw.Write(rep))
		reps = append(reps, rep)
	}
	require.Equal(t, 3, bw.Matches())
	_, err = os.Stat(bw.TmpPath())
	require.NoError(t, err, "file stays in tmp until finalized")

	bf, err := bw.Finalize()
	require.NoError(t, err)
	require.Equal(t, bw.OutPath(), bf.Path)
	require.Equal(t, len(reps[0].States)+len(reps[1].States)+len(reps[2].States), bf.Rows)
	require.Equal(t, dir, filepath.Dir(bf.Path))
	require.Len(t, bf.Matches, 3)
	for i, meta := range bf.Matches {
		require.Equal(t, reps[i].Metadata.MatchID, meta.MatchID)
		require.Equal(t, reps[i].Metadata.Seed, meta.Seed)
	}
	_, err = os.Stat(bw.TmpPath())
	require.True(t, os.IsNotExist(err), "tmp file moved out")

	again, err := bw.Finalize()
	require.NoError(t, err)
	require.Zero(t, again.Path)

	got, err := Load(bf.Path)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range reps {
		require.Equal(t, reps[i].Metadata, got[i].Metadata)
		require.Equal(t, namesOnly(reps[i].States), got[i].States)
	}

	require.Error(t, bw.Write(reps[0]), "closed writer")
}

func TestBatchWriter_EmptyFinalize(t *testing.T) {
	bw, err := NewBatchWriter(t.TempDir())
	require.NoError(t, err)
	bf, err := bw.Finalize()
	require.NoError(t, err)
	require.Zero(t, bf.Path)
	require.Zero(t, bf.Rows)
	require.Empty(t, bf.Matches)
	_, err = os.Stat(bw.TmpPath())
	require.True(t, os.IsNotExist(err))
}

func TestSummarize(t *testing.T) {
	mk := func(turn int, sides ...game.Side) game.Snapshot {
		s := game.Snapshot{Turn: turn}
		for i, side := range sides {
			s.Units = append(s.Units, game.Unit{ID: game.UnitID(i + 1), Side: side, HP: 1})
		}
		return s
	}
	final := mk(3, game.Side1)
	final.Over, final.Winner = true, game.Side1
	rep := Replay{
		Metadata: Metadata{MatchID: "abc", Duration: 2},
		States: []game.Snapshot{
			mk(0),
			mk(1, game.Side1, game.Side2),
			mk(2, game.Side1, game.Side1, game.Side2),
			final,
		},
	}

	s := Summarize(rep)
	require.Equal(t, 3, s.Turns)
	require.Equal(t, game.Side1, s.Winner)
	require.False(t, s.Draw)
	require.Equal(t, [2]int{2, 1}, s.MaxUnits)
	require.Equal(t, [2]float64{1, 0.5}, s.AvgUnits)
	require.Contains(t, s.String(), "side1 wins")
	require.Contains(t, s.String(), "side2 units: max 1 avg 0.50")
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.parquet", "a.json", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "tmp"), 0o755))

	got, err := List(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"a.json", "b.parquet"}, got)

	got, err = List(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = Load(filepath.Join(dir, "notes.txt"))
	require.Error(t, err)
}

func TestFileName(t *testing.T) {
	require.Equal(t, "replay_20250301_120000.json", FileName(fixedStart, "", -1, ".json"))
	require.Equal(t, "replay_20250301_120000_batch007.parquet", FileName(fixedStart, "", 7, ".parquet"))

	id := "0f8e2a9c-41b7-4f7e-9d3a-6b1c2d3e4f50"
	require.Equal(t, "replay_20250301_120000_0f8e2a9c_batch007.json", FileName(fixedStart, id, 7, ".json"))

	// Two matches started in the same second get different files.
	a := FileName(fixedStart, NewMatchID(), -1, ".json")
	b := FileName(fixedStart, NewMatchID(), -1, ".json")
	require.NotEqual(t, a, b)
}

func TestLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "done.jsonl")
	l, err := OpenLedger(path)
	require.NoError(t, err)
	require.NoError(t, l.Record(
		LedgerEntry{Key: "a/1", MatchID: "m-1", File: "out/one.json"},
		LedgerEntry{},
		LedgerEntry{Key: "a/2", MatchID: "m-2", File: "out/batch.parquet"},
		LedgerEntry{Key: "a/1", MatchID: "m-dup", File: "out/dup.json"},
	))
	require.Equal(t, 2, l.Len())
	e, ok := l.Lookup("a/1")
	require.True(t, ok)
	require.Equal(t, "m-1", e.MatchID, "first entry for a key wins")
	require.Equal(t, "out/one.json", e.File)
	require.False(t, l.Has("b/1"))
	require.NoError(t, l.Close())
	require.Error(t, l.Record(LedgerEntry{Key: "a/3"}))

	// A torn last line from a crash is skipped, not fatal.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("\n{\"key\":\"a/3\",\"match")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	l, err = OpenLedger(path)
	require.NoError(t, err)
	defer l.Close()
	require.Equal(t, 2, l.Len())
	require.Equal(t, 1, l.Skipped())
	e, ok = l.Lookup("a/2")
	require.True(t, ok)
	require.Equal(t, "out/batch.parquet", e.File)

	_, err = OpenLedger("")
	require.Error(t, err)
}
