package replay

import (
	"fmt"
	"strings"
	"time"

	"github.com/brensch/lanebattle/game"
)

// Summary condenses a replay into the numbers worth printing.
type Summary struct {
	MatchID   string
	StartedAt time.Time
	Duration  float64
	Turns     int
	Winner    game.Side
	Draw      bool
	// MaxUnits and AvgUnits are indexed by side-1 and count living units at
	// the end of each recorded turn.
	MaxUnits [2]int
	AvgUnits [2]float64
}

func Summarize(rep Replay) Summary {
	s := Summary{
		MatchID:   rep.Metadata.MatchID,
		StartedAt: rep.Metadata.StartedAt,
		Duration:  rep.Metadata.Duration,
		Turns:     rep.Metadata.Turns,
		Winner:    rep.Metadata.Winner,
		Draw:      rep.Metadata.Draw,
	}
	if len(rep.States) == 0 {
		return s
	}
	last := rep.States[len(rep.States)-1]
	if s.Turns == 0 {
		s.Turns = last.Turn
	}
	if last.Over {
		s.Winner, s.Draw = last.Winner, false
	}

	var total [2]int
	for _, st := range rep.States {
		n1, n2 := st.UnitsBySide()
		for i, n := range [2]int{n1, n2} {
			total[i] += n
			s.MaxUnits[i] = max(s.MaxUnits[i], n)
		}
	}
	for i := range total {
		s.AvgUnits[i] = float64(total[i]) / float64(len(rep.States))
	}
	return s
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "match %s\n", s.MatchID)
	if !s.StartedAt.IsZero() {
		fmt.Fprintf(&b, "  started:  %s\n", s.StartedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(&b, "  duration: %.3fs\n", s.Duration)
	fmt.Fprintf(&b, "  turns:    %d\n", s.Turns)
	if s.Draw {
		b.WriteString("  result:   draw\n")
	} else {
		fmt.Fprintf(&b, "  result:   %s wins\n", s.Winner)
	}
	for i, side := range game.Sides {
		fmt.Fprintf(&b, "  %s units: max %d avg %.2f\n", side, s.MaxUnits[i], s.AvgUnits[i])
	}
	return b.String()
}
