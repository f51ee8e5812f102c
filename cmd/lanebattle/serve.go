package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brensch/lanebattle/game"
	"github.com/brensch/lanebattle/player"
	"github.com/brensch/lanebattle/replay"
	"github.com/brensch/lanebattle/selfplay"
	"github.com/brensch/lanebattle/spectate"
)

// pacer forwards snapshots to the hub and waits between turns so spectators
// can follow along.
type pacer struct {
	ctx   context.Context
	hub   *spectate.Hub
	delay time.Duration
}

func (p pacer) Observe(s game.Snapshot) {
	p.hub.Observe(s)
	if p.delay <= 0 {
		return
	}
	t := time.NewTimer(p.delay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-p.ctx.Done():
	}
}

func runServe(ctx context.Context, args []string) error {
	fs, c := newFlagSet("serve")
	addr := fs.String("addr", ":8080", "HTTP listen address")
	replayDir := fs.String("replay-dir", "replays", "Directory of recorded replays to serve")
	live := fs.Bool("live", true, "Play AI matches back to back for /ws spectators")
	delay := fs.Duration("turn-delay", 500*time.Millisecond, "Pause after every live turn")
	pause := fs.Duration("match-pause", 3*time.Second, "Pause between live matches")
	record := fs.Bool("record", false, "Write every live match into -replay-dir as JSON")
	_ = fs.Parse(args)

	cfg, err := c.setup(os.Stderr)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	template, err := cfg.BuildMatch()
	if err != nil {
		return err
	}

	hub := spectate.NewHub(log.Logger)
	go hub.Run(ctx)

	mux := http.NewServeMux()
	spectate.NewServer(hub, *replayDir, log.Logger).RegisterRoutes(mux)
	srv := &http.Server{Addr: *addr, Handler: mux}

	if *live {
		go liveLoop(ctx, hub, template, *delay, *pause, *record, *replayDir)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", *addr).Str("replays", *replayDir).Msg("serving")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// liveLoop plays matches until ctx is done; match i uses the template seed
// plus i.
func liveLoop(ctx context.Context, hub *spectate.Hub, template selfplay.Match, delay, pause time.Duration, record bool, dir string) {
	for i := int64(0); ctx.Err() == nil; i++ {
		m := template
		m.Seed = template.Seed + i
		m.MatchID = replay.NewMatchID()
		for s := range m.Sides {
			// Nobody can type into a server.
			switch m.Sides[s].Kind {
			case player.KindHuman, player.KindScripted:
				m.Sides[s].Kind = player.KindPassive
			}
		}
		hub.Begin(replay.Metadata{
			MatchID:   m.MatchID,
			Schema:    replay.SchemaVersion,
			Seed:      m.Seed,
			GridSize:  m.Rules.GridSize,
			StartedAt: time.Now(),
		})

		res, err := selfplay.Run(ctx, m,
			selfplay.WithLogger(log.Logger),
			selfplay.WithObserver(pacer{ctx: ctx, hub: hub, delay: delay}),
		)
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Int64("seed", m.Seed).Msg("live match failed")
			}
			return
		}
		log.Info().
			Str("match", m.MatchID).
			Int("turns", res.Outcome.Turns).
			Str("winner", res.Outcome.Result.Winner.String()).
			Bool("draw", res.Outcome.Draw).
			Msg("live match finished")

		if record {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Error().Err(err).Msg("create replay dir")
			} else {
				path := filepath.Join(dir, replay.FileName(res.Replay.Metadata.StartedAt, res.Replay.Metadata.MatchID, -1, ".json"))
				if err := replay.WriteJSON(path, res.Replay); err != nil {
					log.Error().Err(err).Str("path", path).Msg("write live replay")
				}
			}
		}

		t := time.NewTimer(pause)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}
}
