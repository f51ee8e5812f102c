// Package replay records match snapshots and stores them as JSON or Parquet.
package replay

import (
	"time"

	"github.com/google/uuid"

	"github.com/brensch/lanebattle/game"
	"github.com/brensch/lanebattle/player"
)

// SchemaVersion tags every file written by this package.
const SchemaVersion = "lanebattle_turn_v1"

// PlayerInfo describes who played a side.
type PlayerInfo struct {
	Side       game.Side         `json:"side"`
	Kind       string            `json:"type"`
	Difficulty player.Difficulty `json:"difficulty,omitempty"`
	Deck       []string          `json:"deck"`
}

// Metadata identifies a match and, once finished, its result.
type Metadata struct {
	MatchID    string       `json:"match_id"`
	Schema     string       `json:"schema"`
	Seed       int64        `json:"seed"`
	BatchIndex *int         `json:"batch_index,omitempty"`
	GridSize   int          `json:"grid_size"`
	Players    []PlayerInfo `json:"players"`
	StartedAt  time.Time    `json:"start_time"`
	EndedAt    time.Time    `json:"end_time"`
	Duration   float64      `json:"duration"`
	Turns      int          `json:"turn_count"`
	Winner     game.Side    `json:"winner,omitempty"`
	Draw       bool         `json:"draw"`
}

// Replay is a finished match: its metadata and one snapshot per turn.
type Replay struct {
	Metadata Metadata        `json:"metadata"`
	States   []game.Snapshot `json:"states"`
}

// NewMatchID returns a fresh random match id.
func NewMatchID() string { return uuid.NewString() }

// Describe builds the PlayerInfo for p.
func Describe(p *player.Player, d player.Difficulty) PlayerInfo {
	deck := p.Deck()
	names := make([]string, len(deck))
	for i, c := range deck {
		names[i] = c.Name
	}
	info := PlayerInfo{Side: p.Side(), Kind: p.Kind(), Deck: names}
	if info.Kind == player.KindAI {
		info.Difficulty = d
	}
	return info
}

// Recorder collects snapshots. It satisfies the engine's Observer interface.
type Recorder struct {
	meta   Metadata
	states []game.Snapshot
	now    func() time.Time
}

// NewRecorder starts the clock for a match. A missing MatchID is generated.
func NewRecorder(meta Metadata) *Recorder {
	r := &Recorder{meta: meta, now: time.Now}
	if r.meta.MatchID == "" {
		r.meta.MatchID = NewMatchID()
	}
	r.meta.Schema = SchemaVersion
	r.meta.StartedAt = r.now()
	return r
}

func (r *Recorder) MatchID() string { return r.meta.MatchID }
func (r *Recorder) Len() int        { return len(r.states) }

func (r *Recorder) Observe(s game.Snapshot) {
	r.states = append(r.states, s)
}

// Finish stamps the end time and result into the metadata and returns the
// replay. Winner is taken from the last snapshot.
func (r *Recorder) Finish() Replay {
	r.meta.EndedAt = r.now()
	r.meta.Duration = r.meta.EndedAt.Sub(r.meta.StartedAt).Seconds()
	r.meta.Turns = 0
	r.meta.Winner = game.NoSide
	r.meta.Draw = true
	if n := len(r.states); n > 0 {
		last := r.states[n-1]
		r.meta.Turns = last.Turn
		if last.Over {
			r.meta.Winner = last.Winner
			r.meta.Draw = false
		}
	}
	return Replay{
		Metadata: r.meta,
		States:   append([]game.Snapshot(nil), r.states...),
	}
}
