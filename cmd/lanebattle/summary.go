package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/rs/zerolog/log"

	"github.com/brensch/lanebattle/replay"
	"github.com/brensch/lanebattle/spectate"
)

func runSummary(ctx context.Context, args []string) error {
	fs, c := newFlagSet("summary")
	index := fs.String("index", "", "Index every Parquet archive under this directory instead")
	_ = fs.Parse(args)

	if _, err := c.setup(os.Stderr); err != nil {
		return err
	}
	if *index != "" {
		return printIndex(ctx, *index)
	}
	if fs.NArg() == 0 {
		return errors.New("summary needs replay files or directories")
	}

	for _, arg := range fs.Args() {
		paths, err := replayPaths(arg)
		if err != nil {
			return err
		}
		for _, path := range paths {
			reps, err := replay.Load(path)
			if err != nil {
				return err
			}
			log.Debug().Str("path", path).Int("matches", len(reps)).Msg("loaded replay file")
			for _, rep := range reps {
				fmt.Printf("%s\n%s\n", path, replay.Summarize(rep))
			}
		}
	}
	return nil
}

func replayPaths(arg string) ([]string, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{arg}, nil
	}
	names, err := replay.List(arg)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(arg, n)
	}
	return paths, nil
}

func printIndex(ctx context.Context, dir string) error {
	matches, err := spectate.NewIndex(dir).Matches(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MATCH\tTURNS\tOVER\tWINNER\tROWS\tFILE")
	for _, m := range matches {
		fmt.Fprintf(w, "%s\t%d\t%t\t%d\t%d\t%s\n", m.MatchID, m.Turns, m.Over, m.Winner, m.Rows, m.File)
	}
	return w.Flush()
}
