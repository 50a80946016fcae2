package combat

import (
	"context"

	"swarm/server/logging"
)

const (
	// EventDamage is emitted for every tick an attacker lands hitpoints.
	EventDamage logging.EventType = "combat.damage"
	// EventDefeat is emitted when an attack reduces the target to zero health.
	EventDefeat logging.EventType = "combat.defeat"
)

type DamagePayload struct {
	Amount    int `json:"amount"`
	Remaining int `json:"remaining"`
}

type DefeatPayload struct {
	Reward int `json:"reward"`
}

// Damage is published at debug severity since it fires every tick of a fight.
func Damage(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload DamagePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDamage,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
		Extra:    extra,
	})
}

func Defeat(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload DefeatPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDefeat,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
		Extra:    extra,
	})
}
