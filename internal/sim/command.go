package sim

import (
	"time"

	"github.com/oklog/ulid/v2"

	"swarm/server/internal/creature"
)

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandSetPath       CommandType = "SetPath"
	CommandSetTarget     CommandType = "SetTarget"
	CommandSetState      CommandType = "SetState"
	CommandSetConversion CommandType = "SetConversion"
	CommandSetMessage    CommandType = "SetMessage"
	CommandSuicide       CommandType = "Suicide"
)

// PathCommand sends a creature walking to a tile.
type PathCommand struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// TargetCommand points a creature at another creature slot.
type TargetCommand struct {
	Slot int `json:"slot"`
}

type StateCommand struct {
	State creature.State `json:"state"`
}

type ConversionCommand struct {
	Kind creature.Kind `json:"kind"`
}

type MessageCommand struct {
	Text string `json:"text"`
}

// Command represents a player order captured for processing on the next tick.
type Command struct {
	ID         ulid.ULID          `json:"id"`
	Seq        uint64             `json:"seq,omitempty"`
	OriginTick uint64             `json:"originTick"`
	ActorID    int                `json:"actorId"`
	Creature   int                `json:"creature"`
	Type       CommandType        `json:"type"`
	IssuedAt   time.Time          `json:"issuedAt"`
	Path       *PathCommand       `json:"path,omitempty"`
	Target     *TargetCommand     `json:"target,omitempty"`
	State      *StateCommand      `json:"state,omitempty"`
	Conversion *ConversionCommand `json:"conversion,omitempty"`
	Message    *MessageCommand    `json:"message,omitempty"`
}

// Stamp assigns the command a sortable id derived from its issue time.
func (c *Command) Stamp(now time.Time) {
	c.IssuedAt = now
	c.ID = ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy())
}
