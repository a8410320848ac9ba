package narration

// Kind identifies a narrated battle event.
type Kind int

const (
	KindUnknown Kind = iota
	KindBattleFinished
	KindTurnEnd
	KindKnockoutBlock
	KindStatusBlock
	KindActionError
	KindSwitchSuccess
	KindSwitchFailedSame
	KindSwitchFailedFainted
	KindSwitchFailedInvalidIndex
	KindAttackHit
	KindAttackMiss
	KindAttackCrit
	KindAttackBlocked
	KindUnitFainted
	KindStatusApplied
	KindStatusDamage
	KindStatusRemoved
	KindStatusHeal
	KindItemUsed
	KindSelectSuccess
	KindFled
	KindPassed
	KindTurnTimeout
	KindPlayerForfeit
	KindSuperEffective
	KindLifesteal
)

var kindKeys = map[Kind]string{
	KindBattleFinished:           "BATTLE_FINISHED",
	KindTurnEnd:                  "TURN_END",
	KindKnockoutBlock:            "KNOCKOUT_BLOCK",
	KindStatusBlock:              "STATUS_BLOCK",
	KindActionError:              "ACTION_ERROR",
	KindSwitchSuccess:            "SWITCH_SUCCESS",
	KindSwitchFailedSame:         "SWITCH_FAILED_SAME_COFFEEMON",
	KindSwitchFailedFainted:      "SWITCH_FAILED_FAINTED_COFFEEMON",
	KindSwitchFailedInvalidIndex: "SWITCH_FAILED_INVALID_INDEX",
	KindAttackHit:                "ATTACK_HIT",
	KindAttackMiss:               "ATTACK_MISS",
	KindAttackCrit:               "ATTACK_CRIT",
	KindAttackBlocked:            "ATTACK_BLOCKED",
	KindUnitFainted:              "COFFEEMON_FAINTED",
	KindStatusApplied:            "STATUS_APPLIED",
	KindStatusDamage:             "STATUS_DAMAGE",
	KindStatusRemoved:            "STATUS_REMOVED",
	KindStatusHeal:               "STATUS_HEAL",
	KindItemUsed:                 "ITEM_USED",
	KindSelectSuccess:            "SELECT_SUCCESS",
	KindFled:                     "PLAYER_FLED",
	KindPassed:                   "PLAYER_PASSED",
	KindTurnTimeout:              "TURN_TIMEOUT",
	KindPlayerForfeit:            "PLAYER_FORFEIT",
	KindSuperEffective:           "SUPER_EFFECTIVE",
	KindLifesteal:                "LIFESTEAL",
}

var keyKinds = func() map[string]Kind {
	m := make(map[string]Kind, len(kindKeys))
	for k, v := range kindKeys {
		m[v] = k
	}
	return m
}()

// Key returns the wire key for the kind, or "" for KindUnknown.
func (k Kind) Key() string {
	return kindKeys[k]
}

func (k Kind) String() string {
	if key, ok := kindKeys[k]; ok {
		return key
	}
	return "UNKNOWN"
}

// ParseKind maps a wire key to its Kind. Unrecognized keys map to KindUnknown.
func ParseKind(key string) Kind {
	return keyKinds[key]
}
