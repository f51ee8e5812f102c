package selfplay

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/brensch/lanebattle/game"
	"github.com/brensch/lanebattle/replay"
	"github.com/brensch/lanebattle/rules"
)

// Output formats for a batch.
const (
	FormatNone    = ""
	FormatJSON    = "json"
	FormatParquet = "parquet"
)

// Batch plays Count matches built from Template, match i using seed
// Template.Seed+i.
type Batch struct {
	Template Match
	Count    int
	Workers  int
	// OutDir receives one JSON file per match or a single Parquet batch file.
	OutDir string
	Format string
	// Ledger, when set, skips seeds already recorded and records new ones
	// after their replay is written.
	Ledger *replay.Ledger
}

// Update reports one finished (or skipped) match of a batch.
type Update struct {
	Index    int
	Seed     int64
	MatchID  string
	Outcome  rules.Outcome
	MaxUnits [2]int
	Skipped  bool
	// File is where the replay was, or for a skipped match already is,
	// written. Parquet batches report the path the batch file is published to.
	File string
	Err  error
}

// BatchResult totals a batch.
type BatchResult struct {
	Played  int
	Skipped int
	Failed  int
	Wins    [2]int
	Draws   int
	Files   []string
}

// LedgerKey identifies one seed of a match setup in a replay.Ledger.
func LedgerKey(fingerprint string, seed int64) string {
	return fingerprint + "/" + strconv.FormatInt(seed, 10)
}

type finished struct {
	index  int
	seed   int64
	result Result
	err    error
}

// RunBatch plays the batch on a bounded worker pool. A cancelled context
// stops new matches from starting; matches in flight are abandoned and not
// written. Updates, when non-nil, receives one message per index.
func RunBatch(ctx context.Context, b Batch, updates chan<- Update, opts ...Option) (BatchResult, error) {
	o := runOptions{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	switch b.Format {
	case FormatNone, FormatJSON, FormatParquet:
	default:
		return BatchResult{}, fmt.Errorf("unknown batch format %q", b.Format)
	}
	if b.Format != FormatNone && b.OutDir == "" {
		return BatchResult{}, fmt.Errorf("format %s needs an output dir", b.Format)
	}
	workers := b.Workers
	if workers <= 0 {
		workers = 1
	}

	if b.Template.Catalog == nil {
		b.Template.Catalog = game.DefaultCatalog()
	}
	sink := &sink{batch: b, fingerprint: Fingerprint(b.Template), log: o.log}
	if b.Format == FormatParquet {
		w, err := replay.NewBatchWriter(b.OutDir)
		if err != nil {
			return BatchResult{}, err
		}
		sink.parquet = w
	}

	send := func(u Update) {
		if updates == nil {
			return
		}
		select {
		case updates <- u:
		case <-ctx.Done():
		}
	}

	jobs := make(chan int)
	done := make(chan finished, workers)
	var skipped int

	go func() {
		defer close(jobs)
		for i := 0; i < b.Count; i++ {
			seed := b.Template.Seed + int64(i)
			if b.Ledger != nil {
				if prev, ok := b.Ledger.Lookup(LedgerKey(sink.fingerprint, seed)); ok {
					skipped++
					send(Update{Index: i, Seed: seed, MatchID: prev.MatchID, File: prev.File, Skipped: true})
					continue
				}
			}
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range jobs {
				m := b.Template
				m.Seed = b.Template.Seed + int64(i)
				m.BatchIndex = i
				m.MatchID = ""
				result, err := Run(ctx, m, opts...)
				o.log.Debug().
					Int("worker", workerID).
					Int("index", i).
					Int("turns", result.Outcome.Turns).
					Err(err).
					Msg("match done")
				done <- finished{index: i, seed: m.Seed, result: result, err: err}
			}
		}(w)
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	// Only this loop writes files, the ledger and the totals.
	var res BatchResult
	for f := range done {
		u := Update{Index: f.index, Seed: f.seed, MatchID: f.result.Replay.Metadata.MatchID, Outcome: f.result.Outcome}
		if f.err == nil {
			u.File, f.err = sink.write(f.index, f.result.Replay)
		}
		if f.err != nil {
			res.Failed++
			u.Err = f.err
			if ctx.Err() == nil {
				o.log.Error().Err(f.err).Int("index", f.index).Msg("batch match failed")
			}
			send(u)
			continue
		}
		res.Played++
		switch {
		case f.result.Outcome.Draw:
			res.Draws++
		case f.result.Outcome.Result.Winner.Valid():
			res.Wins[f.result.Outcome.Result.Winner-1]++
		}
		u.MaxUnits = replay.Summarize(f.result.Replay).MaxUnits
		send(u)
	}
	res.Skipped = skipped

	err := sink.close()
	res.Files = sink.files
	if err == nil {
		err = ctx.Err()
	}
	return res, err
}

// sink persists finished matches in the batch's format and records them in
// the ledger once their file is in place.
type sink struct {
	batch       Batch
	fingerprint string
	log         zerolog.Logger
	parquet     *replay.BatchWriter
	files       []string
}

func (s *sink) entry(meta replay.Metadata, file string) replay.LedgerEntry {
	return replay.LedgerEntry{
		Key:     LedgerKey(s.fingerprint, meta.Seed),
		MatchID: meta.MatchID,
		File:    file,
	}
}

func (s *sink) write(index int, rep replay.Replay) (string, error) {
	switch s.batch.Format {
	case FormatNone:
		return "", nil
	case FormatJSON:
		name := replay.FileName(rep.Metadata.StartedAt, rep.Metadata.MatchID, index, ".json")
		path := filepath.Join(s.batch.OutDir, name)
		if err := replay.WriteJSON(path, rep); err != nil {
			return "", err
		}
		s.files = append(s.files, path)
		if s.batch.Ledger != nil {
			return path, s.batch.Ledger.Record(s.entry(rep.Metadata, path))
		}
		return path, nil
	}
	if err := s.parquet.Write(rep); err != nil {
		return "", err
	}
	return s.parquet.OutPath(), nil
}

func (s *sink) close() error {
	if s.parquet == nil {
		return nil
	}
	bf, err := s.parquet.Finalize()
	if err != nil || bf.Path == "" {
		return err
	}
	s.files = append(s.files, bf.Path)
	s.log.Info().Str("path", bf.Path).Int("rows", bf.Rows).Int("matches", len(bf.Matches)).Msg("parquet batch written")
	if s.batch.Ledger == nil {
		return nil
	}
	entries := make([]replay.LedgerEntry, len(bf.Matches))
	for i, meta := range bf.Matches {
		entries[i] = s.entry(meta, bf.Path)
	}
	return s.batch.Ledger.Record(entries...)
}
