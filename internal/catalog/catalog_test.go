package catalog

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/pixil98/go-battle/internal/battle"
	"github.com/pixil98/go-battle/internal/storage"
	"github.com/pixil98/go-testutil"
)

func testFS(extra map[string]string) fstest.MapFS {
	files := map[string]string{
		"moves/tackle.json": `{"version":1,"id":"tackle","spec":{"name":"Tackle","power":40,"category":"attack"}}`,
		"moves/brew.json": `{"version":1,"id":"brew","spec":{"name":"Brew","category":"support",
			"effects":[{"type":"regen","chance":1,"duration":3,"value":5,"target":"self"}]}}`,
		"creatures/latte.json": `{"version":1,"id":"latte","spec":{"name":"Latte","base_hp":100,"base_attack":50,
			"base_defense":40,"speed":7,"moves":["tackle","brew"]}}`,
		"items/potion.json": `{"version":1,"id":"potion","spec":{"name":"Potion","kind":"heal","value":20}}`,
		"parties/alice.json": `{"version":1,"id":"alice","spec":{"creatures":["latte","latte"],
			"items":[{"item":"potion","quantity":2}]}}`,
		"parties/starter.json": `{"version":1,"id":"starter","spec":{"creatures":["latte"]}}`,
	}
	for k, v := range extra {
		files[k] = v
	}

	fsys := fstest.MapFS{}
	for k, v := range files {
		fsys[k] = &fstest.MapFile{Data: []byte(v)}
	}
	return fsys
}

func loadCatalog(t *testing.T, fsys fstest.MapFS, opts ...CatalogOpt) (*Catalog, error) {
	t.Helper()

	creatures, err := storage.NewFileStore[*Creature](fsys, "creatures")
	if err != nil {
		t.Fatalf("loading creatures: %v", err)
	}
	moves, err := storage.NewFileStore[*Move](fsys, "moves")
	if err != nil {
		t.Fatalf("loading moves: %v", err)
	}
	items, err := storage.NewFileStore[*Item](fsys, "items")
	if err != nil {
		t.Fatalf("loading items: %v", err)
	}
	parties, err := storage.NewFileStore[*Party](fsys, "parties")
	if err != nil {
		t.Fatalf("loading parties: %v", err)
	}

	return NewCatalog(creatures, moves, items, parties, opts...)
}

func TestCatalog_GetParty(t *testing.T) {
	c, err := loadCatalog(t, testFS(nil), WithDefaultParty("starter"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := map[string]struct {
		userID   string
		expUnits int
		expItems int
	}{
		"own party":     {userID: "alice", expUnits: 2, expItems: 1},
		"default party": {userID: "bob", expUnits: 1, expItems: 0},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := c.GetParty(context.Background(), tt.userID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "units", len(p.Units), tt.expUnits)
			testutil.AssertEqual(t, "items", len(p.Items), tt.expItems)
		})
	}
}

func TestCatalog_GetPartyContents(t *testing.T) {
	c, err := loadCatalog(t, testFS(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := c.GetParty(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u := p.Units[0]
	testutil.AssertEqual(t, "id", u.ID, "latte")
	testutil.AssertEqual(t, "hp", u.BaseHP, 100)
	testutil.AssertEqual(t, "speed", u.Speed, 7)
	testutil.AssertEqual(t, "move count", len(u.Moves), 2)
	testutil.AssertEqual(t, "move id", u.Moves[0].ID, "tackle")
	testutil.AssertEqual(t, "move power", u.Moves[0].Power, 40)
	testutil.AssertEqual(t, "effect", u.Moves[1].Effects[0].Type, battle.EffectRegen)

	testutil.AssertEqual(t, "item", p.Items[0], battle.InventoryItem{
		ItemID: "potion", Name: "Potion", Kind: battle.ItemHeal, Value: 20, Quantity: 2,
	})
}

func TestCatalog_GetPartyMissing(t *testing.T) {
	c, err := loadCatalog(t, testFS(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = c.GetParty(context.Background(), "nobody")
	if !errors.Is(err, ErrPartyNotFound) {
		t.Fatalf("expected ErrPartyNotFound, got %v", err)
	}
}

func TestNewCatalog_Errors(t *testing.T) {
	tests := map[string]struct {
		extra  map[string]string
		opts   []CatalogOpt
		expErr string
	}{
		"dangling move": {
			extra: map[string]string{
				"creatures/mocha.json": `{"version":1,"id":"mocha","spec":{"name":"Mocha","base_hp":90,"base_attack":40,
					"base_defense":40,"moves":["espresso-shot"]}}`,
			},
			expErr: `Move "espresso-shot" not found`,
		},
		"dangling item": {
			extra: map[string]string{
				"parties/carol.json": `{"version":1,"id":"carol","spec":{"creatures":["latte"],"items":[{"item":"elixir","quantity":1}]}}`,
			},
			expErr: `Item "elixir" not found`,
		},
		"missing default party": {
			opts:   []CatalogOpt{WithDefaultParty("nope")},
			expErr: "party not found",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := loadCatalog(t, testFS(tt.extra), tt.opts...)
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}
}

func TestMove_Validate(t *testing.T) {
	tests := map[string]struct {
		move   Move
		expErr string
	}{
		"valid attack": {
			move: Move{Name: "Tackle", Power: 40, Category: battle.MoveAttack},
		},
		"valid support": {
			move: Move{Name: "Focus", Category: battle.MoveSupport, Effects: []battle.MoveEffect{
				{Type: battle.EffectAttackUp, Chance: 1, Duration: 2, Target: battle.TargetSelf},
			}},
		},
		"attack without power": {
			move:   Move{Name: "Nothing", Category: battle.MoveAttack},
			expErr: "power must be positive",
		},
		"unknown category": {
			move:   Move{Name: "Odd", Power: 10, Category: "psychic"},
			expErr: "unknown category",
		},
		"unknown effect": {
			move: Move{Name: "Odd", Power: 10, Category: battle.MoveAttack, Effects: []battle.MoveEffect{
				{Type: "confuse", Chance: 0.5},
			}},
			expErr: `unknown effect type "confuse"`,
		},
		"chance out of range": {
			move: Move{Name: "Odd", Power: 10, Category: battle.MoveAttack, Effects: []battle.MoveEffect{
				{Type: battle.EffectBurn, Chance: 1.5},
			}},
			expErr: "chance must be within",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.move.Validate()
			if tt.expErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}
}

func TestItem_Validate(t *testing.T) {
	tests := map[string]struct {
		item   Item
		expErr string
	}{
		"heal":         {item: Item{Name: "Potion", Kind: battle.ItemHeal, Value: 20}},
		"revive":       {item: Item{Name: "Revive", Kind: battle.ItemRevive, Value: 0.5}},
		"cure":         {item: Item{Name: "Antidote", Kind: battle.ItemCure}},
		"revive range": {item: Item{Name: "Revive", Kind: battle.ItemRevive, Value: 2}, expErr: "revive value"},
		"unknown kind": {item: Item{Name: "Bomb", Kind: "explode"}, expErr: "unknown item kind"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.expErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}
}
