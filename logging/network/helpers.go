package network

import (
	"context"

	"swarm/server/logging"
)

const (
	// EventClientConnected is emitted when a websocket session attaches to a player.
	EventClientConnected logging.EventType = "network.client_connected"
	// EventClientDropped is emitted when a session is torn down.
	EventClientDropped logging.EventType = "network.client_dropped"
	// EventResync is emitted when a client receives a full initial update.
	EventResync logging.EventType = "network.resync"
	// EventCommandRejected is emitted when a client command fails validation.
	EventCommandRejected logging.EventType = "network.command_rejected"
)

type ClientConnectedPayload struct {
	Remote string `json:"remote"`
	Codec  string `json:"codec"`
}

type ClientDroppedPayload struct {
	Reason string `json:"reason"`
}

type ResyncPayload struct {
	Creatures int    `json:"creatures"`
	Reason    string `json:"reason"`
}

type CommandRejectedPayload struct {
	Command string `json:"command"`
	Reason  string `json:"reason"`
}

func ClientConnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ClientConnectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventClientConnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}

func ClientDropped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ClientDroppedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventClientDropped,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}

func Resync(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ResyncPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventResync,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}

// CommandRejected carries the command id so rejects can be matched to the
// client's pending queue.
func CommandRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, commandID string, payload CommandRejectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:      EventCommandRejected,
		Tick:      tick,
		Actor:     actor,
		Severity:  logging.SeverityWarn,
		Category:  logging.CategoryNetwork,
		Payload:   payload,
		Extra:     extra,
		CommandID: commandID,
	})
}
