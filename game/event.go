package game

// EventKind names something that happened during a turn.
type EventKind string

const (
	EventSpawn          EventKind = "spawn"
	EventMove           EventKind = "move"
	EventStalemate      EventKind = "stalemate"
	EventAttack         EventKind = "attack"
	EventTowerAttack    EventKind = "tower_attack"
	EventDeath          EventKind = "death"
	EventTowerDestroyed EventKind = "tower_destroyed"
	EventElixir         EventKind = "elixir"
)

// Event is one entry in a turn's log. Unit is the actor; Target is the unit
// acted upon, when there is one.
type Event struct {
	Turn   int       `json:"turn"`
	Kind   EventKind `json:"kind"`
	Side   Side      `json:"side"`
	Unit   UnitID    `json:"unit,omitempty"`
	Target UnitID    `json:"target,omitempty"`
	Card   string    `json:"card,omitempty"`
	From   int       `json:"from"`
	To     int       `json:"to"`
	Amount int       `json:"amount,omitempty"`
}
