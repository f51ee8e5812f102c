package game

import (
	"errors"
	"fmt"
)

// Card is an immutable unit template.
type Card struct {
	Name   string `json:"name" yaml:"name"`
	Attack int    `json:"attack" yaml:"attack"`
	HP     int    `json:"hp" yaml:"hp"`
	Cost   int    `json:"cost" yaml:"cost"`
	Range  int    `json:"range" yaml:"range"`
}

// Validate checks that every stat is positive and the card is named.
func (c Card) Validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if c.Attack <= 0 {
		errs = append(errs, fmt.Errorf("attack must be positive, got %d", c.Attack))
	}
	if c.HP <= 0 {
		errs = append(errs, fmt.Errorf("hp must be positive, got %d", c.HP))
	}
	if c.Cost <= 0 {
		errs = append(errs, fmt.Errorf("cost must be positive, got %d", c.Cost))
	}
	if c.Range <= 0 {
		errs = append(errs, fmt.Errorf("range must be positive, got %d", c.Range))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w %q: %w", ErrInvalidCard, c.Name, errors.Join(errs...))
	}
	return nil
}

func (c Card) String() string {
	return fmt.Sprintf("%s (ATK:%d, HP:%d, Cost:%d, RNG:%d)", c.Name, c.Attack, c.HP, c.Cost, c.Range)
}

// Catalog is the fixed set of card templates available to a match.
// Order is preserved so deck construction is reproducible for a seed.
type Catalog struct {
	cards  []Card
	byName map[string]int
}

// DefaultCards are the reference templates. Hit points and attack follow the
// lane variant's troop stats; range is in grid cells.
var DefaultCards = []Card{
	{Name: "Knight", Attack: 80, HP: 600, Cost: 3, Range: 1},
	{Name: "Archer", Attack: 50, HP: 250, Cost: 2, Range: 3},
	{Name: "Giant", Attack: 120, HP: 1200, Cost: 5, Range: 1},
	{Name: "Goblin", Attack: 35, HP: 150, Cost: 1, Range: 1},
	{Name: "Wizard", Attack: 60, HP: 340, Cost: 4, Range: 2},
	{Name: "Skeleton", Attack: 20, HP: 60, Cost: 1, Range: 1},
}

// NewCatalog validates cards and indexes them by name.
func NewCatalog(cards ...Card) (*Catalog, error) {
	if len(cards) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", ErrInvalidCard)
	}
	c := &Catalog{
		cards:  make([]Card, 0, len(cards)),
		byName: make(map[string]int, len(cards)),
	}
	for _, card := range cards {
		if err := card.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byName[card.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate card %q", ErrInvalidCard, card.Name)
		}
		c.byName[card.Name] = len(c.cards)
		c.cards = append(c.cards, card)
	}
	return c, nil
}

// DefaultCatalog returns a catalog built from DefaultCards.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultCards...)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the template with the given name.
func (c *Catalog) Lookup(name string) (Card, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Card{}, false
	}
	return c.cards[i], true
}

// Cards returns a copy of the templates in catalog order.
func (c *Catalog) Cards() []Card {
	out := make([]Card, len(c.cards))
	copy(out, c.cards)
	return out
}

func (c *Catalog) Len() int { return len(c.cards) }
