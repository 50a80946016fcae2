package sim

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"swarm/server/internal/creature"
	"swarm/server/internal/telemetry"
	"swarm/server/logging"
	"swarm/server/logging/network"
)

// Reject reasons reported to clients.
const (
	RejectUnknownCommand    = "unknown_command"
	RejectNotOwner          = "not_owner"
	RejectInvalidReference  = "invalid_reference"
	RejectIllegalTransition = "illegal_transition"
	RejectUnreachable       = "unreachable"
	RejectInvalidKind       = "invalid_kind"
	RejectCapacity          = "capacity"
	RejectClosed            = "closed"
)

// Engine is the surface the loop drives each tick.
type Engine interface {
	Apply(cmds []Command) []Outcome
	Step(delta time.Duration)
}

// Outcome is the result of applying one command.
type Outcome struct {
	Command Command
	Err     error
}

func (o Outcome) Rejected() bool { return o.Err != nil }

// Terrain is the part of the map that changes with game time.
type Terrain interface {
	Grow(now int64) int
}

// Simulation applies player commands to the creature registry and advances
// it. It is not safe for concurrent use.
type Simulation struct {
	reg     *creature.Registry
	terrain Terrain
	deps    Deps
}

func NewSimulation(reg *creature.Registry, terrain Terrain, deps Deps) *Simulation {
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	return &Simulation{reg: reg, terrain: terrain, deps: deps}
}

func (s *Simulation) Registry() *creature.Registry { return s.reg }

func (s *Simulation) Deps() Deps { return s.deps }

// Apply runs commands in order. A rejected command leaves the creature
// untouched and does not affect later commands.
func (s *Simulation) Apply(cmds []Command) []Outcome {
	if len(cmds) == 0 {
		return nil
	}
	outcomes := make([]Outcome, 0, len(cmds))
	for _, cmd := range cmds {
		err := s.apply(cmd)
		if err != nil {
			s.reportReject(cmd, err)
		}
		outcomes = append(outcomes, Outcome{Command: cmd, Err: err})
	}
	return outcomes
}

func (s *Simulation) apply(cmd Command) error {
	c, err := s.reg.Owned(cmd.ActorID, cmd.Creature)
	if err != nil {
		return err
	}
	switch cmd.Type {
	case CommandSetPath:
		if cmd.Path == nil {
			return errMissingPayload
		}
		return s.reg.SetPath(c, cmd.Path.X, cmd.Path.Y)
	case CommandSetTarget:
		if cmd.Target == nil {
			return errMissingPayload
		}
		return s.reg.SetTarget(c, cmd.Target.Slot)
	case CommandSetState:
		if cmd.State == nil {
			return errMissingPayload
		}
		return s.reg.SetState(c, cmd.State.State)
	case CommandSetConversion:
		if cmd.Conversion == nil {
			return errMissingPayload
		}
		return s.reg.SetConversionType(c, cmd.Conversion.Kind)
	case CommandSetMessage:
		if cmd.Message == nil {
			return errMissingPayload
		}
		return s.reg.SetMessage(c, cmd.Message.Text)
	case CommandSuicide:
		return s.reg.Suicide(c)
	}
	return fmt.Errorf("command %q: %w", cmd.Type, errUnknownCommand)
}

// Step advances the registry and grows food by delta of game time.
func (s *Simulation) Step(delta time.Duration) {
	s.reg.MoveAll(int(delta.Milliseconds()))
	if s.terrain != nil {
		s.terrain.Grow(s.reg.Now())
	}
}

func (s *Simulation) reportReject(cmd Command, err error) {
	reason := RejectReason(err)
	if s.deps.Metrics != nil {
		s.deps.Metrics.Add(telemetry.MetricCommandsRejected, 1)
	}
	network.CommandRejected(context.Background(), s.deps.Publisher, s.reg.Tick(),
		logging.EntityRef{ID: strconv.Itoa(cmd.ActorID), Kind: logging.EntityKindPlayer},
		cmd.ID.String(),
		network.CommandRejectedPayload{Command: string(cmd.Type), Reason: reason},
		map[string]any{"creature": cmd.Creature, "error": err.Error()})
}

var (
	errUnknownCommand = errors.New("unknown command")
	errMissingPayload = fmt.Errorf("missing payload: %w", creature.ErrIllegalTransition)
)

// RejectReason maps a command error onto the reason string sent to clients.
func RejectReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, creature.ErrNotOwner):
		return RejectNotOwner
	case errors.Is(err, creature.ErrInvalidReference):
		return RejectInvalidReference
	case errors.Is(err, creature.ErrIllegalTransition):
		return RejectIllegalTransition
	case errors.Is(err, creature.ErrUnreachable):
		return RejectUnreachable
	case errors.Is(err, creature.ErrInvalidKind):
		return RejectInvalidKind
	case errors.Is(err, creature.ErrCapacityExceeded):
		return RejectCapacity
	case errors.Is(err, creature.ErrClosed):
		return RejectClosed
	}
	return RejectUnknownCommand
}
