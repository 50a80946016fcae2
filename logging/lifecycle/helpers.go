package lifecycle

import (
	"context"

	"swarm/server/logging"
)

const (
	// EventCreatureSpawned is emitted when a creature occupies a slot.
	EventCreatureSpawned logging.EventType = "lifecycle.creature_spawned"
	// EventCreatureKilled is emitted when a creature is marked dying.
	EventCreatureKilled logging.EventType = "lifecycle.creature_killed"
	// EventPlayerJoined is emitted when a player enters the match.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerLeft is emitted when a player leaves or times out.
	EventPlayerLeft logging.EventType = "lifecycle.player_left"
)

type CreatureSpawnedPayload struct {
	Owner int `json:"owner"`
	Kind  int `json:"kind"`
	X     int `json:"x"`
	Y     int `json:"y"`
}

type CreatureKilledPayload struct {
	Owner       int    `json:"owner"`
	Kind        int    `json:"kind"`
	Reason      string `json:"reason"`
	DroppedFood int    `json:"droppedFood,omitempty"`
}

type PlayerJoinedPayload struct {
	Name  string `json:"name"`
	Color int    `json:"color"`
}

type PlayerLeftPayload struct {
	Reason    string `json:"reason"`
	Creatures int    `json:"creatures"`
}

func CreatureSpawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CreatureSpawnedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCreatureSpawned,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}

func CreatureKilled(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CreatureKilledPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCreatureKilled,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}

func PlayerJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerJoinedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerJoined,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}

func PlayerLeft(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerLeftPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerLeft,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}
