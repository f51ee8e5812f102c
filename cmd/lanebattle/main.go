// Command lanebattle plays, generates, serves and summarizes lane battles.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/brensch/lanebattle/config"
)

const usage = `usage: lanebattle <command> [flags]

commands:
  play     play one match, human sides read moves from stdin
  batch    generate a batch of AI replays
  serve    stream a live AI match to websocket spectators and serve replays
  summary  summarize replay files or index a replay directory

run "lanebattle <command> -h" for command flags.
`

// common holds the flags every command accepts.
type common struct {
	configPath string
	logLevel   string
	logJSON    bool
}

func newFlagSet(name string) (*flag.FlagSet, *common) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	c := &common{}
	fs.StringVar(&c.configPath, "config", "", "Path to match.yaml (defaults apply when empty)")
	fs.StringVar(&c.logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")
	fs.BoolVar(&c.logJSON, "log-json", false, "Write JSON logs instead of console output")
	return fs, c
}

// setup configures the global logger and loads the config file.
func (c *common) setup(w io.Writer) (config.Config, error) {
	if err := setupLogging(w, c.logLevel, c.logJSON); err != nil {
		return config.Config{}, err
	}
	if c.configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return config.Config{}, err
	}
	log.Debug().Str("path", c.configPath).Msg("loaded config")
	return cfg, nil
}

func setupLogging(w io.Writer, level string, asJSON bool) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)
	if asJSON {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		return nil
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
	return nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "play":
		err = runPlay(ctx, args)
	case "batch":
		err = runBatch(ctx, args)
	case "serve":
		err = runServe(ctx, args)
	case "summary":
		err = runSummary(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Msgf("%s failed", cmd)
	}
}
