package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/brensch/lanebattle/replay"
	"github.com/brensch/lanebattle/selfplay"
)

type TickMsg time.Time

type batchDoneMsg struct {
	result selfplay.BatchResult
	err    error
}

type updatesClosedMsg struct{}

type model struct {
	total       int
	played      int
	skipped     int
	failed      int
	wins        [2]int
	draws       int
	startTime   time.Time
	now         time.Time
	recentGames []string
	updates     <-chan selfplay.Update
	cancel      context.CancelFunc
	quitting    bool
	done        *batchDoneMsg
}

func initialModel(total int, updates <-chan selfplay.Update, cancel context.CancelFunc) model {
	now := time.Now()
	return model{
		total:     total,
		startTime: now,
		now:       now,
		updates:   updates,
		cancel:    cancel,
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func waitForUpdate(updates <-chan selfplay.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return updatesClosedMsg{}
		}
		return u
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			// Keep draining updates until the batch returns.
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
		}
	case TickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()
	case selfplay.Update:
		m = m.record(msg)
		return m, waitForUpdate(m.updates)
	case updatesClosedMsg:
		return m, nil
	case batchDoneMsg:
		m.done = &msg
		return m, tea.Quit
	}
	return m, nil
}

func (m model) record(u selfplay.Update) model {
	var line string
	switch {
	case u.Skipped:
		m.skipped++
		line = fmt.Sprintf("#%03d seed %d: skipped, already in %s", u.Index, u.Seed, u.File)
	case u.Err != nil:
		m.failed++
		line = fmt.Sprintf("#%03d seed %d: failed: %v", u.Index, u.Seed, u.Err)
	default:
		m.played++
		result := "draw"
		switch {
		case u.Outcome.Draw:
			m.draws++
		case u.Outcome.Result.Winner.Valid():
			m.wins[u.Outcome.Result.Winner-1]++
			result = u.Outcome.Result.Winner.String() + " wins"
		}
		line = fmt.Sprintf("#%03d seed %d: %s in %d turns, max units %d/%d",
			u.Index, u.Seed, result, u.Outcome.Turns, u.MaxUnits[0], u.MaxUnits[1])
	}
	m.recentGames = append([]string{line}, m.recentGames...)
	if len(m.recentGames) > 10 {
		m.recentGames = m.recentGames[:10]
	}
	return m
}

func (m model) View() string {
	duration := m.now.Sub(m.startTime)
	gamesPerSec := float64(m.played) / duration.Seconds()
	if duration.Seconds() < 1 {
		gamesPerSec = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Matches:    %d / %d\n", m.played+m.skipped+m.failed, m.total)
	fmt.Fprintf(&b, "Played:     %d (skipped %d, failed %d)\n", m.played, m.skipped, m.failed)
	fmt.Fprintf(&b, "Side1 wins: %d\n", m.wins[0])
	fmt.Fprintf(&b, "Side2 wins: %d\n", m.wins[1])
	fmt.Fprintf(&b, "Draws:      %d\n", m.draws)
	fmt.Fprintf(&b, "Duration:   %s\n", duration.Round(time.Second))
	fmt.Fprintf(&b, "Games/Sec:  %.2f\n\n", gamesPerSec)

	b.WriteString("Recent Matches:\n")
	for _, g := range m.recentGames {
		b.WriteString(g + "\n")
	}

	if m.quitting {
		b.WriteString("\nStopping, waiting for matches in flight...\n")
	} else {
		b.WriteString("\nPress q to quit.\n")
	}
	return b.String()
}

func runBatch(ctx context.Context, args []string) error {
	fs, c := newFlagSet("batch")
	count := fs.Int("count", -1, "Number of matches (-1 keeps the config value)")
	workers := fs.Int("workers", -1, "Number of concurrent matches (-1 keeps the config value)")
	seed := fs.Int64("seed", -1, "Base seed; match i uses seed+i (-1 keeps the config seed)")
	outDir := fs.String("out-dir", "", "Output directory (empty keeps the config value)")
	format := fs.String("format", "", "Output format: json, parquet or none (empty keeps the config value)")
	ledgerPath := fs.String("ledger", "", "Ledger of finished seeds for resumable batches")
	useTUI := fs.Bool("tui", true, "Show a live progress view; logs go to <out-dir>/batch.log")
	_ = fs.Parse(args)

	cfg, err := c.setup(os.Stderr)
	if err != nil {
		return err
	}
	if *count >= 0 {
		cfg.Batch.Count = *count
	}
	if *workers >= 0 {
		cfg.Batch.Workers = *workers
	}
	if *seed >= 0 {
		cfg.Seed = *seed
	}
	if *outDir != "" {
		cfg.Batch.OutDir = *outDir
	}
	switch *format {
	case "":
	case "none":
		cfg.Batch.Format = selfplay.FormatNone
	default:
		cfg.Batch.Format = *format
	}
	if *ledgerPath != "" {
		cfg.Batch.Ledger = *ledgerPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	b, err := cfg.BuildBatch()
	if err != nil {
		return err
	}
	if cfg.Batch.Ledger != "" {
		ledger, err := replay.OpenLedger(cfg.Batch.Ledger)
		if err != nil {
			return err
		}
		defer ledger.Close()
		b.Ledger = ledger
		log.Info().
			Int("done", ledger.Len()).
			Int("unreadable", ledger.Skipped()).
			Str("path", cfg.Batch.Ledger).
			Msg("opened ledger")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !*useTUI {
		return runBatchPlain(ctx, b)
	}

	// The progress view owns the terminal, so logs go to a file.
	logDir := b.OutDir
	if logDir == "" {
		logDir = "."
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(logDir, "batch.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open batch log: %w", err)
	}
	defer f.Close()
	if err := setupLogging(f, c.logLevel, c.logJSON); err != nil {
		return err
	}

	updates := make(chan selfplay.Update, max(b.Workers, 1))
	p := tea.NewProgram(initialModel(b.Count, updates, cancel))
	go func() {
		res, err := selfplay.RunBatch(ctx, b, updates, selfplay.WithLogger(log.Logger))
		close(updates)
		p.Send(batchDoneMsg{result: res, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		cancel()
		return err
	}
	m, _ := final.(model)
	if m.done == nil {
		return nil
	}
	logBatchResult(m.done.result)
	fmt.Printf("played %d, skipped %d, failed %d; side1 %d, side2 %d, draws %d\n",
		m.done.result.Played, m.done.result.Skipped, m.done.result.Failed,
		m.done.result.Wins[0], m.done.result.Wins[1], m.done.result.Draws)
	for _, path := range m.done.result.Files {
		fmt.Println(path)
	}
	return m.done.err
}

func runBatchPlain(ctx context.Context, b selfplay.Batch) error {
	updates := make(chan selfplay.Update, max(b.Workers, 1))
	type done struct {
		res selfplay.BatchResult
		err error
	}
	finished := make(chan done, 1)
	go func() {
		res, err := selfplay.RunBatch(ctx, b, updates, selfplay.WithLogger(log.Logger))
		close(updates)
		finished <- done{res, err}
	}()

	m := initialModel(b.Count, updates, nil)
	for u := range updates {
		m = m.record(u)
		log.Info().Msg(m.recentGames[0])
	}
	d := <-finished
	logBatchResult(d.res)
	return d.err
}

func logBatchResult(res selfplay.BatchResult) {
	log.Info().
		Int("played", res.Played).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Int("side1_wins", res.Wins[0]).
		Int("side2_wins", res.Wins[1]).
		Int("draws", res.Draws).
		Strs("files", res.Files).
		Msg("batch complete")
}
