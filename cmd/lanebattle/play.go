package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brensch/lanebattle/config"
	"github.com/brensch/lanebattle/player"
	"github.com/brensch/lanebattle/replay"
	"github.com/brensch/lanebattle/selfplay"
)

func runPlay(ctx context.Context, args []string) error {
	fs, c := newFlagSet("play")
	seed := fs.Int64("seed", -1, "Match seed (-1 keeps the config seed)")
	side1 := fs.String("side1", "", "Override the side1 player type: ai, passive or human")
	side2 := fs.String("side2", "", "Override the side2 player type: ai, passive or human")
	difficulty := fs.String("difficulty", "", "Override the AI difficulty of both sides")
	outDir := fs.String("out-dir", "replays", "Directory for the recorded replay (empty skips recording)")
	format := fs.String("format", selfplay.FormatJSON, "Replay format: json or parquet")
	quiet := fs.Bool("quiet", false, "Do not print the lane after every turn")
	_ = fs.Parse(args)

	cfg, err := c.setup(os.Stderr)
	if err != nil {
		return err
	}
	applyPlayFlags(&cfg, *seed, *side1, *side2, *difficulty)
	if err := cfg.Validate(); err != nil {
		return err
	}
	m, err := cfg.BuildMatch()
	if err != nil {
		return err
	}

	// Both human sides share stdin, so they share one reader.
	var human *player.LineReader
	for i := range m.Sides {
		if m.Sides[i].Kind != player.KindHuman {
			continue
		}
		if human == nil {
			human = player.NewLineReader(os.Stdin, os.Stdout, log.Logger)
		}
		m.Sides[i].Strategy = human
	}
	m.MatchID = replay.NewMatchID()

	opts := []selfplay.Option{selfplay.WithLogger(log.Logger)}
	if !*quiet {
		opts = append(opts, selfplay.WithObserver(boardPrinter{w: os.Stdout}))
	}
	log.Info().Str("match", m.MatchID).Int64("seed", m.Seed).Msg("starting match")
	res, err := selfplay.Run(ctx, m, opts...)
	if err != nil {
		return err
	}

	if *outDir != "" {
		path, err := saveReplay(*outDir, *format, res.Replay)
		if err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("replay written")
	}
	fmt.Print(replay.Summarize(res.Replay))
	return nil
}

func applyPlayFlags(cfg *config.Config, seed int64, side1, side2, difficulty string) {
	if seed >= 0 {
		cfg.Seed = seed
	}
	if side1 != "" {
		cfg.Side1.Type = side1
	}
	if side2 != "" {
		cfg.Side2.Type = side2
	}
	if difficulty != "" {
		cfg.Side1.Difficulty = difficulty
		cfg.Side2.Difficulty = difficulty
	}
}

func saveReplay(dir, format string, rep replay.Replay) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	started := rep.Metadata.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	switch format {
	case selfplay.FormatJSON:
		path := filepath.Join(dir, replay.FileName(started, rep.Metadata.MatchID, -1, ".json"))
		return path, replay.WriteJSON(path, rep)
	case selfplay.FormatParquet:
		path := filepath.Join(dir, replay.FileName(started, rep.Metadata.MatchID, -1, ".parquet"))
		return path, replay.WriteParquet(path, rep)
	}
	return "", fmt.Errorf("unknown replay format %q", format)
}
