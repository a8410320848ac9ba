package battle

// UnitTemplate is the static description of a unit a player brings to battle.
type UnitTemplate struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	BaseHP      int    `json:"baseHp"`
	BaseAttack  int    `json:"baseAttack"`
	BaseDefense int    `json:"baseDefense"`
	Speed       int    `json:"speed"`
	Moves       []Move `json:"moves"`
}

// Party is a player's roster and held items as read at battle creation.
type Party struct {
	Units []UnitTemplate  `json:"units"`
	Items []InventoryItem `json:"items"`
}

// NewUnit builds a unit at full health with default modifiers.
func NewUnit(t UnitTemplate) *Unit {
	u := &Unit{
		ID:            t.ID,
		Name:          t.Name,
		CurrentHP:     t.BaseHP,
		MaxHP:         t.BaseHP,
		Attack:        t.BaseAttack,
		Defense:       t.BaseDefense,
		Speed:         t.Speed,
		Modifiers:     DefaultModifiers(),
		StatusEffects: []StatusEffect{},
		Moves:         make([]Move, len(t.Moves)),
	}
	for i, m := range t.Moves {
		u.Moves[i] = m
		u.Moves[i].Effects = append([]MoveEffect(nil), m.Effects...)
	}
	u.Refresh()
	return u
}

// NewSide builds a side from a party with the first unit active.
func NewSide(playerID, connID string, p *Party) *Side {
	s := &Side{
		PlayerID:     playerID,
		ConnectionID: connID,
		Units:        make([]*Unit, len(p.Units)),
		Inventory:    append([]InventoryItem{}, p.Items...),
	}
	for i, t := range p.Units {
		s.Units[i] = NewUnit(t)
	}
	return s
}
