package narration

import (
	"bytes"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/pixil98/go-battle/internal/battle"
)

const (
	UnknownEventType    = "UnknownEventError"
	UnknownEventMessage = "An unknown event occurred."
)

// templateFuncs provides utility functions for templates.
var templateFuncs = sprig.TxtFuncMap()

// Notification is a raw effect report from the engine, before narration.
type Notification struct {
	Kind Kind
	// Key carries the original wire key when Kind came from content data.
	Key            string
	Payload        map[string]any
	TargetPlayerID string
}

// Notify builds a notification for a known kind.
func Notify(kind Kind, payload map[string]any) Notification {
	return Notification{Kind: kind, Key: kind.Key(), Payload: payload}
}

// NotifyPlayer builds a notification addressed to a single player.
func NotifyPlayer(kind Kind, playerID string, payload map[string]any) Notification {
	n := Notify(kind, payload)
	n.TargetPlayerID = playerID
	return n
}

// NotifyKey builds a notification from a wire key such as a catalog narration.
func NotifyKey(key string, payload map[string]any) Notification {
	return Notification{Kind: ParseKind(key), Key: key, Payload: payload}
}

type RegistryOpt func(*Registry)

// WithTemplate overrides the message template for a kind.
func WithTemplate(kind Kind, text string) RegistryOpt {
	return func(r *Registry) {
		r.overrides[kind] = text
	}
}

// Registry turns notifications into narrated events.
type Registry struct {
	overrides map[Kind]string
	templates map[Kind]*template.Template
}

// NewRegistry parses the message template for every known kind.
func NewRegistry(opts ...RegistryOpt) (*Registry, error) {
	r := &Registry{
		overrides: map[Kind]string{},
		templates: map[Kind]*template.Template{},
	}
	for _, opt := range opts {
		opt(r)
	}

	for kind := range kindKeys {
		text, ok := r.overrides[kind]
		if !ok {
			text = defaultTemplate(kind)
		}
		tmpl, err := template.New(kind.Key()).Funcs(templateFuncs).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", kind, err)
		}
		r.templates[kind] = tmpl
	}

	return r, nil
}

// Create narrates a notification. It never fails: unknown kinds produce an
// UnknownEventError event and broken templates fall back to the event type.
func (r *Registry) Create(n Notification) battle.Event {
	tmpl, ok := r.templates[n.Kind]
	if n.Kind == KindUnknown || !ok {
		slog.Warn("unknown narration key", "key", n.Key)
		return battle.Event{
			Type:           UnknownEventType,
			Payload:        map[string]any{"eventKey": n.Key},
			Message:        UnknownEventMessage,
			TargetPlayerID: n.TargetPlayerID,
		}
	}

	e := battle.Event{
		Type:           n.Kind.Key(),
		Payload:        n.Payload,
		TargetPlayerID: n.TargetPlayerID,
	}

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, n.Payload)
	if err != nil {
		slog.Warn("executing narration template", "key", n.Kind.Key(), "error", err)
		e.Message = n.Kind.Key()
		return e
	}
	e.Message = buf.String()

	return e
}

// CreateAll narrates a batch of notifications in order.
func (r *Registry) CreateAll(ns []Notification) []battle.Event {
	events := make([]battle.Event, 0, len(ns))
	for _, n := range ns {
		events = append(events, r.Create(n))
	}
	return events
}

func defaultTemplate(kind Kind) string {
	switch kind {
	case KindBattleFinished:
		return "The battle is over! {{ .winnerId }} wins."
	case KindTurnEnd:
		return "Turn {{ .turn }} ends."
	case KindKnockoutBlock:
		return "{{ .unitName }} has fainted and cannot act."
	case KindStatusBlock:
		return `{{ .unitName }} is affected by {{ .effectType | default "a status" }} and cannot act.`
	case KindActionError:
		return "{{ .error }}"
	case KindSwitchSuccess:
		return "{{ .playerId }} sends out {{ .unitName }}!"
	case KindSwitchFailedSame:
		return "That unit is already in battle."
	case KindSwitchFailedFainted:
		return "That unit has fainted and cannot battle."
	case KindSwitchFailedInvalidIndex:
		return "There is no unit in that slot."
	case KindAttackHit:
		return "{{ .attackerName }} uses {{ .moveName }} on {{ .targetName }} for {{ .damage }} damage."
	case KindAttackMiss:
		return "{{ .attackerName }}'s {{ .moveName }} misses {{ .targetName }}."
	case KindAttackCrit:
		return "A critical hit from {{ .attackerName }}!"
	case KindAttackBlocked:
		return "{{ .targetName }} blocks part of the attack."
	case KindUnitFainted:
		return "{{ .unitName }} fainted!"
	case KindStatusApplied:
		return "{{ .targetName }} is now affected by {{ .effectType }}."
	case KindStatusDamage:
		return "{{ .unitName }} takes {{ .damage }} damage from {{ .effectType }}."
	case KindStatusRemoved:
		return "{{ .unitName }} is no longer affected by {{ .effectType }}."
	case KindStatusHeal:
		return "{{ .unitName }} recovers {{ .amount }} HP."
	case KindItemUsed:
		return "{{ .playerId }} uses {{ .itemName }} on {{ .unitName }}."
	case KindSelectSuccess:
		return "{{ .playerId }} chooses {{ .unitName }}."
	case KindFled:
		return "{{ .playerId }} fled the battle."
	case KindPassed:
		return "{{ .playerId }} waits."
	case KindTurnTimeout:
		return "{{ .playerId }} ran out of time."
	case KindPlayerForfeit:
		return "{{ .playerId }} forfeits the battle."
	case KindSuperEffective:
		return "It's super effective!"
	case KindLifesteal:
		return "{{ .unitName }} drains {{ .amount }} HP."
	default:
		return "{{ .eventKey }}"
	}
}
