package intake

import (
	"time"

	"swarm/server/internal/creature"
	"swarm/server/internal/net/proto"
	"swarm/server/internal/sim"
)

// Reject reasons produced before a command reaches the simulation.
const (
	RejectUnknownActor  = "unknown_actor"
	RejectInvalidAction = "invalid_action"
)

// CommandContext is what staging needs from the hub. Every field may be nil
// except Enqueue.
type CommandContext struct {
	Enqueue   func(sim.Command) (bool, string)
	HasPlayer func(int) bool
	Tick      func() uint64
	Now       func() time.Time
}

// StageClientCommand validates a decoded client message, stamps it for
// playerID and hands it to the command buffer.
func StageClientCommand(ctx CommandContext, playerID int, msg proto.ClientMessage) (sim.Command, bool, string) {
	var zero sim.Command

	command, ok := proto.ClientCommand(msg)
	if !ok {
		return zero, false, RejectInvalidAction
	}
	if command.Creature < 0 || command.Creature >= creature.MaxCreatures {
		return zero, false, RejectInvalidAction
	}

	switch command.Type {
	case sim.CommandSetPath:
		if command.Path == nil {
			return zero, false, RejectInvalidAction
		}
	case sim.CommandSetTarget:
		if command.Target == nil || command.Target.Slot < 0 || command.Target.Slot >= creature.MaxCreatures {
			return zero, false, RejectInvalidAction
		}
	case sim.CommandSetState:
		if command.State == nil || !command.State.State.Valid() {
			return zero, false, RejectInvalidAction
		}
	case sim.CommandSetConversion:
		if command.Conversion == nil || !command.Conversion.Kind.Valid() {
			return zero, false, RejectInvalidAction
		}
	case sim.CommandSetMessage:
		if command.Message == nil {
			return zero, false, RejectInvalidAction
		}
	case sim.CommandSuicide:
	default:
		return zero, false, RejectInvalidAction
	}

	if ctx.HasPlayer != nil && !ctx.HasPlayer(playerID) {
		return zero, false, RejectUnknownActor
	}

	command.ActorID = playerID
	if ctx.Tick != nil {
		command.OriginTick = ctx.Tick()
	}
	now := time.Now()
	if ctx.Now != nil {
		now = ctx.Now()
	}
	command.Stamp(now)

	if ctx.Enqueue == nil {
		return zero, false, sim.CommandRejectQueueFull
	}
	if ok, reason := ctx.Enqueue(command); !ok {
		return zero, false, reason
	}

	return command, true, ""
}
