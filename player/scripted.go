package player

// Step is one scripted turn: a decision, or a pass.
type Step struct {
	Decision
	Pass bool
}

// Play is a scripted step placing slot on pos.
func Play(slot, pos int) Step { return Step{Decision: Decision{HandIndex: slot, Position: pos}} }

// Pass is a scripted step that places nothing.
func Pass() Step { return Step{Pass: true} }

// Scripted replays a fixed list of steps, one per turn, then passes forever.
type Scripted struct {
	steps []Step
	next  int
}

func NewScripted(steps ...Step) *Scripted {
	return &Scripted{steps: steps}
}

func (s *Scripted) Decide(View) (Decision, bool) {
	if s.next >= len(s.steps) {
		return Decision{}, false
	}
	st := s.steps[s.next]
	s.next++
	if st.Pass {
		return Decision{}, false
	}
	return st.Decision, true
}

// Remaining is the number of steps not yet consumed.
func (s *Scripted) Remaining() int { return len(s.steps) - s.next }
