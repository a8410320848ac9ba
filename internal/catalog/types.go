package catalog

import (
	"fmt"

	"github.com/pixil98/go-battle/internal/battle"
	"github.com/pixil98/go-battle/internal/storage"
	"github.com/pixil98/go-errors"
)

// Move is a move definition shared by creatures.
type Move struct {
	Name      string              `json:"name"`
	Power     int                 `json:"power"`
	Category  battle.MoveCategory `json:"category"`
	Effects   []battle.MoveEffect `json:"effects,omitempty"`
	Narration string              `json:"narration,omitempty"`
}

func (m *Move) Validate() error {
	el := errors.NewErrorList()

	if m.Name == "" {
		el.Add(fmt.Errorf("name is required"))
	}

	switch m.Category {
	case battle.MoveAttack, battle.MoveSpecial:
		if m.Power <= 0 {
			el.Add(fmt.Errorf("power must be positive for %s moves", m.Category))
		}
	case battle.MoveSupport:
	default:
		el.Add(fmt.Errorf("unknown category %q", m.Category))
	}

	for i, e := range m.Effects {
		if err := e.Type.Validate(); err != nil {
			el.Add(fmt.Errorf("effect %d: %w", i, err))
		}
		if e.Chance < 0 || e.Chance > 1 {
			el.Add(fmt.Errorf("effect %d: chance must be within [0,1]", i))
		}
		switch e.Target {
		case "", battle.TargetSelf, battle.TargetEnemy:
		default:
			el.Add(fmt.Errorf("effect %d: unknown target %q", i, e.Target))
		}
	}

	return el.Err()
}

// Creature is a unit template as authored in the catalog.
type Creature struct {
	Name        string               `json:"name"`
	BaseHP      int                  `json:"base_hp"`
	BaseAttack  int                  `json:"base_attack"`
	BaseDefense int                  `json:"base_defense"`
	Speed       int                  `json:"speed"`
	Moves       []storage.Ref[*Move] `json:"moves"`
}

func (c *Creature) Validate() error {
	el := errors.NewErrorList()

	if c.Name == "" {
		el.Add(fmt.Errorf("name is required"))
	}
	if c.BaseHP <= 0 {
		el.Add(fmt.Errorf("base_hp must be positive"))
	}
	if c.BaseAttack <= 0 {
		el.Add(fmt.Errorf("base_attack must be positive"))
	}
	if c.BaseDefense <= 0 {
		el.Add(fmt.Errorf("base_defense must be positive"))
	}
	if len(c.Moves) == 0 {
		el.Add(fmt.Errorf("at least one move is required"))
	}
	for _, m := range c.Moves {
		el.Add(m.Validate())
	}

	return el.Err()
}

// Item is a consumable usable in battle.
type Item struct {
	Name        string          `json:"name"`
	Kind        battle.ItemKind `json:"kind"`
	Value       float64         `json:"value"`
	Description string          `json:"description,omitempty"`
}

func (i *Item) Validate() error {
	el := errors.NewErrorList()

	if i.Name == "" {
		el.Add(fmt.Errorf("name is required"))
	}

	switch i.Kind {
	case battle.ItemHeal:
		if i.Value <= 0 {
			el.Add(fmt.Errorf("heal value must be positive"))
		}
	case battle.ItemRevive:
		if i.Value <= 0 || i.Value > 1 {
			el.Add(fmt.Errorf("revive value must be within (0,1]"))
		}
	case battle.ItemCure:
	default:
		el.Add(fmt.Errorf("unknown item kind %q", i.Kind))
	}

	return el.Err()
}

// Party is the roster a user brings to battle. Its asset id is the user id.
type Party struct {
	Creatures []storage.Ref[*Creature] `json:"creatures"`
	Items     []ItemStack              `json:"items,omitempty"`
}

type ItemStack struct {
	Item     storage.Ref[*Item] `json:"item"`
	Quantity int                `json:"quantity"`
}

func (p *Party) Validate() error {
	el := errors.NewErrorList()

	if len(p.Creatures) == 0 {
		el.Add(fmt.Errorf("at least one creature is required"))
	}
	for _, c := range p.Creatures {
		el.Add(c.Validate())
	}
	for _, s := range p.Items {
		el.Add(s.Item.Validate())
		if s.Quantity <= 0 {
			el.Add(fmt.Errorf("item %q quantity must be positive", s.Item.Key()))
		}
	}

	return el.Err()
}
