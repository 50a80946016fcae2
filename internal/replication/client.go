package replication

import (
	"swarm/server/internal/creature"
	"swarm/server/internal/net/proto"
)

// Sink is the outbound side of one connection.
type Sink interface {
	Send(frame proto.Frame) error
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(proto.Frame) error

func (f SinkFunc) Send(frame proto.Frame) error { return f(frame) }

// shadow is what one client was last told about one slot.
type shadow struct {
	known   bool
	owner   int
	x, y    int
	dir     int
	kind    creature.Kind
	food    int
	health  int
	state   creature.State
	target  int
	message string
}

// noKing is sent when no player holds any creature.
const noKing = -1

// Client is one connection's replication view: the shadow of every slot, the
// bits still owed to it and the last scoreboard and king it was sent.
type Client struct {
	id       int
	playerID int
	sink     Sink

	players []proto.PlayerInfo
	king    int

	shadows [creature.MaxCreatures]shadow
	pending [creature.MaxCreatures]creature.DirtyMask
	updates []proto.CreatureUpdate
}

func (c *Client) ID() int { return c.id }

// PlayerID is the player the connection speaks for.
func (c *Client) PlayerID() int { return c.playerID }

// Pending is the set of dirty bits not yet delivered for slot.
func (c *Client) Pending(slot int) creature.DirtyMask {
	if slot < 0 || slot >= creature.MaxCreatures {
		return creature.DirtyNone
	}
	return c.pending[slot]
}

// Knows reports whether the client currently believes slot is alive.
func (c *Client) Knows(slot int) bool {
	return slot >= 0 && slot < creature.MaxCreatures && c.shadows[slot].known
}

// Matches reports whether the client knows cr as alive with exactly its
// current replicated state.
func (c *Client) Matches(cr *creature.Creature) bool {
	s := c.shadows[cr.Slot()]
	return s.known && cr.Alive() &&
		s.owner == cr.Owner &&
		s.x == cr.X && s.y == cr.Y && s.dir == cr.Dir &&
		s.kind == cr.Type &&
		s.food == cr.Food && s.health == cr.Health &&
		s.state == cr.State &&
		s.target == targetSlot(cr) &&
		s.message == cr.Message
}

func (c *Client) forget() {
	c.shadows = [creature.MaxCreatures]shadow{}
	c.pending = [creature.MaxCreatures]creature.DirtyMask{}
	c.updates = c.updates[:0]
	c.players = nil
	c.king = noKing
}

func (c *Client) takeUpdates() []proto.CreatureUpdate {
	if len(c.updates) == 0 {
		return nil
	}
	out := append([]proto.CreatureUpdate(nil), c.updates...)
	c.updates = c.updates[:0]
	return out
}

func targetSlot(cr *creature.Creature) int {
	if !cr.Target.IsSet() {
		return -1
	}
	return cr.Target.Slot
}
