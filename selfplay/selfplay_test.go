package selfplay

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brensch/lanebattle/game"
	"github.com/brensch/lanebattle/player"
	"github.com/brensch/lanebattle/replay"
)

func TestDeal(t *testing.T) {
	cat := game.DefaultCatalog()
	a := Deal(cat, game.NewRand(3))
	b := Deal(cat, game.NewRand(3))
	require.Equal(t, a, b)
	require.Len(t, a[0], 3)
	require.Len(t, a[1], 3)

	var names []string
	for _, deck := range a {
		for _, c := range deck {
			names = append(names, c.Name)
		}
	}
	sort.Strings(names)
	require.Equal(t, []string{"Archer", "Giant", "Goblin", "Knight", "Skeleton", "Wizard"}, names)

	// Appending to Side1's deck must not clobber Side2's.
	first := a[1][0]
	_ = append(a[0], game.Card{Name: "Extra"})
	require.Equal(t, first, a[1][0])
}

func TestNewStrategy(t *testing.T) {
	rng := game.NewRand(1)
	s, err := NewStrategy(SideSpec{}, rng)
	require.NoError(t, err)
	require.Equal(t, player.KindPassive, player.KindOf(s))

	s, err = NewStrategy(SideSpec{Kind: "AI", Difficulty: player.Hard}, rng)
	require.NoError(t, err)
	require.Equal(t, player.Hard, s.(*player.Heuristic).Difficulty)

	_, err = NewStrategy(SideSpec{Kind: player.KindHuman}, rng)
	require.ErrorIs(t, err, ErrNeedsStrategy)
	_, err = NewStrategy(SideSpec{Kind: "robot"}, rng)
	require.Error(t, err)

	scripted := player.NewScripted()
	s, err = NewStrategy(SideSpec{Kind: player.KindHuman, Strategy: scripted}, rng)
	require.NoError(t, err)
	require.Same(t, scripted, s)
}

func TestRun_Reproducible(t *testing.T) {
	m := NewMatch(17)
	a, err := Run(context.Background(), m)
	require.NoError(t, err)
	b, err := Run(context.Background(), m)
	require.NoError(t, err)

	require.NotEqual(t, a.Replay.Metadata.MatchID, b.Replay.Metadata.MatchID)
	require.Equal(t, a.Outcome, b.Outcome)
	require.Equal(t, a.Replay.States, b.Replay.States)
	require.Equal(t, a.Replay.Metadata.Players, b.Replay.Metadata.Players)
	require.Nil(t, a.Replay.Metadata.BatchIndex)
	require.Equal(t, a.Outcome.Turns, a.Replay.Metadata.Turns)
	require.Len(t, a.Replay.States, a.Outcome.Turns)
}

func TestRun_ExplicitDecks(t *testing.T) {
	m := NewMatch(2)
	m.Sides[0] = SideSpec{Kind: player.KindPassive, Deck: []string{"Giant"}}
	m.Sides[1] = SideSpec{Kind: player.KindScripted, Strategy: player.NewScripted(player.Play(0, 16)), Deck: []string{"Goblin", "Archer"}}
	m.Rules.MaxTurns = 3

	res, err := Run(context.Background(), m)
	require.NoError(t, err)
	meta := res.Replay.Metadata
	require.Equal(t, []string{"Giant"}, meta.Players[0].Deck)
	require.Equal(t, player.KindPassive, meta.Players[0].Kind)
	require.Equal(t, player.KindScripted, meta.Players[1].Kind)
	require.Zero(t, meta.Players[1].Difficulty)
	require.True(t, res.Outcome.Draw)

	first := res.Replay.States[0]
	require.Len(t, first.Units, 1)
	require.Equal(t, "Goblin", first.Units[0].Card)

	m.Sides[0].Deck = []string{"Dragon"}
	_, err = Run(context.Background(), m)
	require.ErrorContains(t, err, "Dragon")
}

func TestRun_Observer(t *testing.T) {
	m := NewMatch(4)
	m.Rules.MaxTurns = 5
	var turns []int
	_, err := Run(context.Background(), m, WithObserver(observerFunc(func(s game.Snapshot) {
		turns = append(turns, s.Turn)
	})))
	require.NoError(t, err)
	require.NotEmpty(t, turns)
	require.Equal(t, 1, turns[0])
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, NewMatch(1))
	require.ErrorIs(t, err, context.Canceled)
}

type observerFunc func(game.Snapshot)

func (f observerFunc) Observe(s game.Snapshot) { f(s) }

func collect(updates chan Update) []Update {
	close(updates)
	var out []Update
	for u := range updates {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func TestRunBatch_MatchesSequentialRuns(t *testing.T) {
	b := Batch{Template: NewMatch(100), Count: 6, Workers: 3}
	updates := make(chan Update, b.Count)

	res, err := RunBatch(context.Background(), b, updates)
	require.NoError(t, err)
	require.Equal(t, 6, res.Played)
	require.Equal(t, res.Played, res.Wins[0]+res.Wins[1]+res.Draws)
	require.Empty(t, res.Files)

	got := collect(updates)
	require.Len(t, got, 6)
	for i, u := range got {
		require.Equal(t, i, u.Index)
		require.Equal(t, int64(100+i), u.Seed)
		require.NoError(t, u.Err)

		want, err := Run(context.Background(), NewMatch(u.Seed))
		require.NoError(t, err)
		require.Equal(t, want.Outcome, u.Outcome, "seed %d", u.Seed)
	}
}

func TestRunBatch_ParquetAndLedger(t *testing.T) {
	dir := t.TempDir()
	ledger, err := replay.OpenLedger(filepath.Join(dir, "done.log"))
	require.NoError(t, err)
	defer ledger.Close()
	tmpl := NewMatch(10)
	tmpl.Rules.MaxTurns = 20
	fp := Fingerprint(tmpl)
	require.NoError(t, ledger.Record(replay.LedgerEntry{Key: LedgerKey(fp, 11), MatchID: "earlier", File: "old.parquet"}))
	b := Batch{Template: tmpl, Count: 4, Workers: 2, OutDir: dir, Format: FormatParquet, Ledger: ledger}
	updates := make(chan Update, b.Count)

	res, err := RunBatch(context.Background(), b, updates)
	require.NoError(t, err)
	require.Equal(t, 3, res.Played)
	require.Equal(t, 1, res.Skipped)
	require.Len(t, res.Files, 1)

	got := collect(updates)
	require.True(t, got[1].Skipped)
	require.Equal(t, int64(11), got[1].Seed)
	require.Equal(t, "earlier", got[1].MatchID)
	require.Equal(t, "old.parquet", got[1].File)
	for _, i := range []int{0, 2, 3} {
		require.Equal(t, res.Files[0], got[i].File)
	}

	reps, err := replay.ReadParquet(res.Files[0])
	require.NoError(t, err)
	require.Len(t, reps, 3)
	var seeds []int64
	for _, r := range reps {
		seeds = append(seeds, r.Metadata.Seed)
		require.NotNil(t, r.Metadata.BatchIndex)
		require.Equal(t, int(r.Metadata.Seed-10), *r.Metadata.BatchIndex)
	}
	sort.Slice(seeds, func(i, j int) bool { return seeds[i] < seeds[j] })
	require.Equal(t, []int64{10, 12, 13}, seeds)

	for _, r := range reps {
		e, ok := ledger.Lookup(LedgerKey(fp, r.Metadata.Seed))
		require.True(t, ok)
		require.Equal(t, r.Metadata.MatchID, e.MatchID)
		require.Equal(t, res.Files[0], e.File)
	}
	require.Equal(t, 4, ledger.Len())

	// A rerun has nothing left to play.
	res, err = RunBatch(context.Background(), b, nil)
	require.NoError(t, err)
	require.Zero(t, res.Played)
	require.Equal(t, 4, res.Skipped)
	require.Empty(t, res.Files)
}

func TestRunBatch_JSON(t *testing.T) {
	dir := t.TempDir()
	tmpl := NewMatch(1)
	tmpl.Rules.MaxTurns = 10
	res, err := RunBatch(context.Background(), Batch{Template: tmpl, Count: 2, Workers: 2, OutDir: dir, Format: FormatJSON}, nil)
	require.NoError(t, err)
	require.Len(t, res.Files, 2)

	names, err := replay.List(dir)
	require.NoError(t, err)
	require.Len(t, names, 2)
	for _, f := range res.Files {
		reps, err := replay.Load(f)
		require.NoError(t, err)
		require.Len(t, reps, 1)
	}
}

func TestRunBatch_Validation(t *testing.T) {
	_, err := RunBatch(context.Background(), Batch{Count: 1, Format: "csv"}, nil)
	require.Error(t, err)
	_, err = RunBatch(context.Background(), Batch{Count: 1, Format: FormatJSON}, nil)
	require.Error(t, err)
}

func TestRunBatch_SharedObserver(t *testing.T) {
	var mu sync.Mutex
	seen := 0
	obs := observerFunc(func(game.Snapshot) {
		mu.Lock()
		seen++
		mu.Unlock()
	})
	tmpl := NewMatch(50)
	tmpl.Rules.MaxTurns = 4
	res, err := RunBatch(context.Background(), Batch{Template: tmpl, Count: 5, Workers: 5}, nil, WithObserver(obs))
	require.NoError(t, err)
	require.Equal(t, 5, res.Played)
	require.GreaterOrEqual(t, seen, 5)
}

func TestFingerprint(t *testing.T) {
	base := NewMatch(1)
	fp := Fingerprint(base)
	require.Len(t, fp, 16)

	same := NewMatch(99)
	same.MatchID = "other"
	same.BatchIndex = 4
	require.Equal(t, fp, Fingerprint(same), "seed and ids are not part of the setup")

	noCatalog := base
	noCatalog.Catalog = nil
	require.Equal(t, fp, Fingerprint(noCatalog), "nil catalog means the default one")

	passive := NewMatch(1)
	passive.Sides[1] = SideSpec{}
	explicit := NewMatch(1)
	explicit.Sides[1] = SideSpec{Kind: "Passive", Difficulty: player.Hard}
	require.Equal(t, Fingerprint(passive), Fingerprint(explicit))

	changes := map[string]func(m *Match){
		"grid":       func(m *Match) { m.Rules.GridSize = 10 },
		"tower hp":   func(m *Match) { m.Rules.TowerHP = 500 },
		"cycle hand": func(m *Match) { m.Rules.Player.CycleHand = true },
		"difficulty": func(m *Match) { m.Sides[0].Difficulty = player.Hard },
		"kind":       func(m *Match) { m.Sides[1].Kind = player.KindPassive },
		"deck":       func(m *Match) { m.Sides[0].Deck = []string{"Knight"} },
		"catalog": func(m *Match) {
			cat, err := game.NewCatalog(game.DefaultCards[:4]...)
			require.NoError(t, err)
			m.Catalog = cat
		},
	}
	for name, change := range changes {
		m := NewMatch(1)
		change(&m)
		require.NotEqual(t, fp, Fingerprint(m), name)
	}
}

func TestRunBatch_LedgerRerunsChangedSetup(t *testing.T) {
	dir := t.TempDir()
	ledger, err := replay.OpenLedger(filepath.Join(dir, "done.jsonl"))
	require.NoError(t, err)
	defer ledger.Close()

	first := NewMatch(0)
	first.Rules.MaxTurns = 15
	a := Batch{Template: first, Count: 2, Workers: 2, OutDir: filepath.Join(dir, "a"), Format: FormatJSON, Ledger: ledger}
	res, err := RunBatch(context.Background(), a, nil)
	require.NoError(t, err)
	require.Equal(t, 2, res.Played)

	second := first
	second.Rules.GridSize = 10
	second.Rules.TowerHP = 500
	b := Batch{Template: second, Count: 2, Workers: 2, OutDir: filepath.Join(dir, "b"), Format: FormatJSON, Ledger: ledger}
	res, err = RunBatch(context.Background(), b, nil)
	require.NoError(t, err)
	require.Equal(t, 2, res.Played, "new rules replay the same seeds")
	require.Zero(t, res.Skipped)
	require.Len(t, res.Files, 2)
	require.Equal(t, 4, ledger.Len())

	// Resuming the first setup finds its replays where they were written.
	updates := make(chan Update, a.Count)
	res, err = RunBatch(context.Background(), a, updates)
	require.NoError(t, err)
	require.Zero(t, res.Played)
	require.Equal(t, 2, res.Skipped)
	for _, u := range collect(updates) {
		require.True(t, u.Skipped)
		require.Equal(t, filepath.Join(dir, "a"), filepath.Dir(u.File))
		reps, err := replay.Load(u.File)
		require.NoError(t, err)
		require.Equal(t, u.MatchID, reps[0].Metadata.MatchID)
		require.Equal(t, u.Seed, reps[0].Metadata.Seed)
	}
}
