package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/pixil98/go-battle/internal/battle"
	"github.com/pixil98/go-battle/internal/storage"
	goerrors "github.com/pixil98/go-errors"
)

var ErrPartyNotFound = errors.New("party not found")

type CatalogOpt func(*Catalog)

// WithDefaultParty names the party used for users without one of their own.
func WithDefaultParty(id string) CatalogOpt {
	return func(c *Catalog) {
		c.defaultParty = id
	}
}

// Catalog serves creature, move, item and party content loaded from assets.
type Catalog struct {
	creatures storage.Storer[*Creature]
	moves     storage.Storer[*Move]
	items     storage.Storer[*Item]
	parties   storage.Storer[*Party]

	defaultParty string
}

// NewCatalog resolves every cross-asset reference and fails on the first
// dangling one.
func NewCatalog(creatures storage.Storer[*Creature], moves storage.Storer[*Move], items storage.Storer[*Item], parties storage.Storer[*Party], opts ...CatalogOpt) (*Catalog, error) {
	c := &Catalog{
		creatures: creatures,
		moves:     moves,
		items:     items,
		parties:   parties,
	}

	for _, opt := range opts {
		opt(c)
	}

	err := c.resolve()
	if err != nil {
		return nil, fmt.Errorf("resolving references: %w", err)
	}

	if c.defaultParty != "" {
		if _, ok := c.parties.Get(c.defaultParty); !ok {
			return nil, fmt.Errorf("default party %q: %w", c.defaultParty, ErrPartyNotFound)
		}
	}

	return c, nil
}

func (c *Catalog) resolve() error {
	el := goerrors.NewErrorList()

	for id, cr := range c.creatures.GetAll() {
		for i := range cr.Moves {
			if err := cr.Moves[i].Resolve(c.moves); err != nil {
				el.Add(fmt.Errorf("creature %s: %w", id, err))
			}
		}
	}

	for id, p := range c.parties.GetAll() {
		for i := range p.Creatures {
			if err := p.Creatures[i].Resolve(c.creatures); err != nil {
				el.Add(fmt.Errorf("party %s: %w", id, err))
			}
		}
		for i := range p.Items {
			if err := p.Items[i].Item.Resolve(c.items); err != nil {
				el.Add(fmt.Errorf("party %s: %w", id, err))
			}
		}
	}

	return el.Err()
}

// GetParty returns the user's party snapshot, falling back to the default party.
func (c *Catalog) GetParty(ctx context.Context, userID string) (*battle.Party, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, ok := c.parties.Get(userID)
	if !ok && c.defaultParty != "" {
		p, ok = c.parties.Get(c.defaultParty)
	}
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, ErrPartyNotFound)
	}

	party := &battle.Party{
		Units: make([]battle.UnitTemplate, 0, len(p.Creatures)),
		Items: make([]battle.InventoryItem, 0, len(p.Items)),
	}

	for _, ref := range p.Creatures {
		party.Units = append(party.Units, unitTemplate(ref.Key(), ref.Get()))
	}

	for _, s := range p.Items {
		item := s.Item.Get()
		party.Items = append(party.Items, battle.InventoryItem{
			ItemID:   s.Item.Key(),
			Name:     item.Name,
			Kind:     item.Kind,
			Value:    item.Value,
			Quantity: s.Quantity,
		})
	}

	return party, nil
}

// Move returns a move definition by id.
func (c *Catalog) Move(id string) (*Move, bool) {
	return c.moves.Get(id)
}

// Item returns an item definition by id.
func (c *Catalog) Item(id string) (*Item, bool) {
	return c.items.Get(id)
}

func unitTemplate(id string, cr *Creature) battle.UnitTemplate {
	t := battle.UnitTemplate{
		ID:          id,
		Name:        cr.Name,
		BaseHP:      cr.BaseHP,
		BaseAttack:  cr.BaseAttack,
		BaseDefense: cr.BaseDefense,
		Speed:       cr.Speed,
		Moves:       make([]battle.Move, 0, len(cr.Moves)),
	}

	for _, ref := range cr.Moves {
		m := ref.Get()
		t.Moves = append(t.Moves, battle.Move{
			ID:        ref.Key(),
			Name:      m.Name,
			Power:     m.Power,
			Category:  m.Category,
			Effects:   append([]battle.MoveEffect(nil), m.Effects...),
			Narration: m.Narration,
		})
	}

	return t
}
