package player

import (
	"sort"

	"golang.org/x/exp/rand"
)

// Heuristic is the automated player. Easy shuffles its playable cards,
// Medium tries the cheapest first and Hard the most expensive first. The
// position is drawn uniformly from the empty cells of its placement band.
type Heuristic struct {
	Difficulty Difficulty
	rng        *rand.Rand
}

// NewHeuristic uses rng for every random choice; pass a seeded source to
// reproduce a match.
func NewHeuristic(d Difficulty, rng *rand.Rand) *Heuristic {
	if !d.Valid() {
		d = Easy
	}
	return &Heuristic{Difficulty: d, rng: rng}
}

func (h *Heuristic) Decide(v View) (Decision, bool) {
	hand := v.Hand()
	playable := make([]int, 0, len(hand))
	for i := range hand {
		if v.CanPlay(i) {
			playable = append(playable, i)
		}
	}
	if len(playable) == 0 {
		return Decision{}, false
	}

	switch h.Difficulty {
	case Medium:
		sort.SliceStable(playable, func(a, b int) bool { return hand[playable[a]].Cost < hand[playable[b]].Cost })
	case Hard:
		sort.SliceStable(playable, func(a, b int) bool { return hand[playable[a]].Cost > hand[playable[b]].Cost })
	default:
		h.rng.Shuffle(len(playable), func(a, b int) { playable[a], playable[b] = playable[b], playable[a] })
	}

	for _, idx := range playable {
		var open []int
		for _, pos := range v.Band() {
			if v.IsEmpty(pos) {
				open = append(open, pos)
			}
		}
		if len(open) == 0 {
			continue
		}
		return Decision{HandIndex: idx, Position: open[h.rng.Intn(len(open))]}, true
	}
	return Decision{}, false
}
