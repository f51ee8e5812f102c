package game

import (
	"fmt"
	"sort"
)

// Unit is the mutable combat state of a spawned card.
type Unit struct {
	ID       UnitID `json:"id"`
	Card     string `json:"card"`
	Side     Side   `json:"owner"`
	Position int    `json:"position"`
	HP       int    `json:"hp"`
	MaxHP    int    `json:"max_hp"`
	Attack   int    `json:"attack"`
	Range    int    `json:"range"`
	Moved    bool   `json:"moved"`
}

// DamageReport describes the effect of one ApplyDamage call.
type DamageReport struct {
	Unit     UnitID
	Side     Side
	Position int
	Amount   int
	HPBefore int
	HPAfter  int
	Killed   bool
}

// Registry maps unit ids to combat state and keeps the grid consistent with it.
// Every mutation updates both or neither.
type Registry struct {
	grid   *Grid
	units  map[UnitID]*Unit
	nextID UnitID
}

func NewRegistry(grid *Grid) *Registry {
	return &Registry{
		grid:   grid,
		units:  make(map[UnitID]*Unit),
		nextID: 1,
	}
}

func (r *Registry) Grid() *Grid { return r.grid }

// Spawn copies card into a fresh unit at position. The unit starts flagged as
// moved so it cannot attack on the turn it lands.
func (r *Registry) Spawn(card Card, position int, side Side) (UnitID, error) {
	if !side.Valid() {
		return 0, fmt.Errorf("spawn %s: %w %d", card.Name, ErrInvalidSide, int(side))
	}
	if err := card.Validate(); err != nil {
		return 0, fmt.Errorf("spawn: %w", err)
	}
	id := r.nextID
	if err := r.grid.Place(id, position); err != nil {
		return 0, fmt.Errorf("spawn %s: %w", card.Name, err)
	}
	r.nextID++
	r.units[id] = &Unit{
		ID:       id,
		Card:     card.Name,
		Side:     side,
		Position: position,
		HP:       card.HP,
		MaxHP:    card.HP,
		Attack:   card.Attack,
		Range:    card.Range,
		Moved:    true,
	}
	return id, nil
}

// ApplyDamage subtracts amount from the unit's hit points. A unit brought to
// zero or below is removed from the registry and its cell in the same call.
func (r *Registry) ApplyDamage(id UnitID, amount int) (DamageReport, error) {
	u, ok := r.units[id]
	if !ok {
		return DamageReport{}, fmt.Errorf("apply damage to %d: %w", id, ErrUnknownUnit)
	}
	rep := DamageReport{
		Unit:     id,
		Side:     u.Side,
		Position: u.Position,
		Amount:   amount,
		HPBefore: u.HP,
	}
	hp := u.HP - amount
	if hp <= 0 {
		if err := r.grid.Vacate(u.Position); err != nil {
			return DamageReport{}, fmt.Errorf("remove unit %d: %w", id, err)
		}
		delete(r.units, id)
		rep.HPAfter = hp
		rep.Killed = true
		return rep, nil
	}
	u.HP = hp
	rep.HPAfter = hp
	return rep, nil
}

// Despawn removes a unit without damage. The engine only uses it to roll
// back a placement that could not be committed.
func (r *Registry) Despawn(id UnitID) error {
	u, ok := r.units[id]
	if !ok {
		return fmt.Errorf("despawn %d: %w", id, ErrUnknownUnit)
	}
	if err := r.grid.Vacate(u.Position); err != nil {
		return fmt.Errorf("despawn %d: %w", id, err)
	}
	delete(r.units, id)
	return nil
}

// Move relocates a unit to an empty cell, updating grid and registry together.
func (r *Registry) Move(id UnitID, to int) error {
	u, ok := r.units[id]
	if !ok {
		return fmt.Errorf("move %d: %w", id, ErrUnknownUnit)
	}
	if err := r.grid.Place(id, to); err != nil {
		return fmt.Errorf("move %d: %w", id, err)
	}
	if err := r.grid.Vacate(u.Position); err != nil {
		// Place succeeded on an empty cell, so undo it before reporting.
		_ = r.grid.Vacate(to)
		return fmt.Errorf("move %d: %w", id, err)
	}
	u.Position = to
	return nil
}

// Get returns a copy of the unit.
func (r *Registry) Get(id UnitID) (Unit, bool) {
	u, ok := r.units[id]
	if !ok {
		return Unit{}, false
	}
	return *u, true
}

func (r *Registry) Alive(id UnitID) bool {
	_, ok := r.units[id]
	return ok
}

// UnitAt returns the unit occupying index, if any.
func (r *Registry) UnitAt(index int) (Unit, bool) {
	c, err := r.grid.Occupant(index)
	if err != nil || !c.HasUnit() {
		return Unit{}, false
	}
	return r.Get(c.Unit)
}

// UnitsOf returns the ids of side's living units in ascending order.
func (r *Registry) UnitsOf(side Side) []UnitID {
	ids := make([]UnitID, 0, len(r.units))
	for id, u := range r.units {
		if u.Side == side {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CountOf is the number of side's living units.
func (r *Registry) CountOf(side Side) int {
	n := 0
	for _, u := range r.units {
		if u.Side == side {
			n++
		}
	}
	return n
}

func (r *Registry) Len() int { return len(r.units) }

// All returns copies of every living unit ordered by id.
func (r *Registry) All() []Unit {
	out := make([]Unit, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) MarkMoved(id UnitID) {
	if u, ok := r.units[id]; ok {
		u.Moved = true
	}
}

// ResetMoved clears every unit's moved flag at the start of a turn.
func (r *Registry) ResetMoved() {
	for _, u := range r.units {
		u.Moved = false
	}
}

// Check verifies that grid and registry agree: every unit sits in the cell
// matching its position with positive hit points, and every unit cell
// references a registered unit.
func (r *Registry) Check() error {
	for id, u := range r.units {
		if u.HP <= 0 {
			return fmt.Errorf("unit %d registered with hp %d", id, u.HP)
		}
		c, err := r.grid.Occupant(u.Position)
		if err != nil {
			return fmt.Errorf("unit %d: %w", id, err)
		}
		if !c.HasUnit() || c.Unit != id {
			return fmt.Errorf("unit %d at %d but cell holds %s", id, u.Position, c)
		}
	}
	for i, c := range r.grid.cells {
		if !c.HasUnit() {
			continue
		}
		u, ok := r.units[c.Unit]
		if !ok {
			return fmt.Errorf("cell %d references unknown unit %d", i, c.Unit)
		}
		if u.Position != i {
			return fmt.Errorf("cell %d references unit %d recorded at %d", i, c.Unit, u.Position)
		}
	}
	return nil
}

// Clone deep copies the registry together with its grid.
func (r *Registry) Clone() *Registry {
	out := &Registry{
		grid:   r.grid.Clone(),
		units:  make(map[UnitID]*Unit, len(r.units)),
		nextID: r.nextID,
	}
	for id, u := range r.units {
		cp := *u
		out.units[id] = &cp
	}
	return out
}
