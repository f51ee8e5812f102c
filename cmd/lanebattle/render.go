package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/brensch/lanebattle/game"
)

// renderLane draws the lane on one line. Side1 units are upper case, Side2
// lower case, each followed by its id.
func renderLane(s game.Snapshot) string {
	units := make(map[game.UnitID]game.Unit, len(s.Units))
	for _, u := range s.Units {
		units[u.ID] = u
	}
	cells := make([]string, len(s.Cells))
	for i, c := range s.Cells {
		switch c.Kind {
		case "tower":
			cells[i] = fmt.Sprintf("T%d", int(c.Side))
		case "unit":
			u := units[c.Unit]
			initial := "?"
			if u.Card != "" {
				initial = u.Card[:1]
			}
			if u.Side == game.Side1 {
				initial = strings.ToUpper(initial)
			} else {
				initial = strings.ToLower(initial)
			}
			cells[i] = fmt.Sprintf("%s%d", initial, int(u.ID))
		default:
			cells[i] = "."
		}
	}
	return strings.Join(cells, " ")
}

// boardPrinter writes every turn to w.
type boardPrinter struct {
	w io.Writer
}

func (p boardPrinter) Observe(s game.Snapshot) {
	fmt.Fprintf(p.w, "turn %3d | %s\n", s.Turn, renderLane(s))
	for _, ev := range s.Events {
		fmt.Fprintf(p.w, "         | %s\n", describeEvent(ev))
	}
	if s.Over {
		fmt.Fprintf(p.w, "game over: %s wins\n", s.Winner)
	}
}

func describeEvent(ev game.Event) string {
	switch ev.Kind {
	case game.EventSpawn:
		return fmt.Sprintf("%s spawns %s #%d at %d", ev.Side, ev.Card, ev.Unit, ev.To)
	case game.EventMove:
		return fmt.Sprintf("%s #%d moves %d -> %d", ev.Side, ev.Unit, ev.From, ev.To)
	case game.EventAttack:
		return fmt.Sprintf("%s #%d hits #%d for %d", ev.Side, ev.Unit, ev.Target, ev.Amount)
	case game.EventElixir:
		return fmt.Sprintf("%s elixir %d -> %d", ev.Side, ev.From, ev.To)
	case game.EventTowerAttack:
		return fmt.Sprintf("%s #%d hits the tower for %d", ev.Side, ev.Unit, ev.Amount)
	}
	return fmt.Sprintf("%s %s #%d", ev.Side, ev.Kind, ev.Unit)
}
