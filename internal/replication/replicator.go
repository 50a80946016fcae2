package replication

import (
	"context"
	"errors"
	"slices"
	"strconv"

	"swarm/server/internal/creature"
	"swarm/server/internal/net/proto"
	"swarm/server/internal/telemetry"
	"swarm/server/logging"
	"swarm/server/logging/network"
)

// ErrUnknownClient is returned for a client that was detached or dropped.
var ErrUnknownClient = errors.New("unknown replication client")

// Config wires the replicator to the rest of the match.
type Config struct {
	Registry *creature.Registry
	// Scoreboard returns the current player list; it goes out to a client
	// whenever it differs from the last one that client was sent.
	Scoreboard func() []proto.PlayerInfo
	Metrics    telemetry.Metrics
	Publisher  logging.Publisher
	// OnDrop is called after a client whose sink failed has been detached.
	OnDrop func(c *Client, err error)
}

// Replicator drains creature dirty bits into per-client delta frames. It is
// not safe for concurrent use; the hub serialises it with the simulation.
type Replicator struct {
	cfg     Config
	reg     *creature.Registry
	clients []*Client
	nextID  int
}

func New(cfg Config) *Replicator {
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	return &Replicator{cfg: cfg, reg: cfg.Registry}
}

// Attach registers a connection for playerID. The client sees nothing until
// SendInitialUpdate.
func (r *Replicator) Attach(playerID int, sink Sink) *Client {
	r.nextID++
	c := &Client{id: r.nextID, playerID: playerID, sink: sink, king: noKing}
	r.clients = append(r.clients, c)
	r.storeClientCount()
	return c
}

// Detach forgets a client. Detaching an unknown client is a no-op.
func (r *Replicator) Detach(c *Client) bool {
	for i, existing := range r.clients {
		if existing == c {
			r.clients = append(r.clients[:i], r.clients[i+1:]...)
			r.storeClientCount()
			return true
		}
	}
	return false
}

func (r *Replicator) Clients() int { return len(r.clients) }

func (r *Replicator) attached(c *Client) bool {
	for _, existing := range r.clients {
		if existing == c {
			return true
		}
	}
	return false
}

// SendInitialUpdate sends c a snapshot of every live creature. Only c's
// shadows change; creature dirty masks and other clients are untouched.
func (r *Replicator) SendInitialUpdate(c *Client) error {
	if !r.attached(c) {
		return ErrUnknownClient
	}
	c.forget()
	if r.cfg.Scoreboard != nil {
		c.players = r.cfg.Scoreboard()
	}
	r.reg.Each(func(cr *creature.Creature) {
		r.ToNetwork(cr, creature.DirtyAll, c)
	})
	frame := proto.Frame{
		Ver:       proto.Version,
		Type:      proto.TypeSnapshot,
		Tick:      r.reg.Tick(),
		Creatures: c.takeUpdates(),
		Players:   c.players,
	}
	if king := r.king(); king != noKing {
		c.king = king
		frame.King = ptr(king)
	}
	return r.send(c, frame)
}

// Resync discards everything c was told and sends a fresh snapshot.
func (r *Replicator) Resync(c *Client, reason string) error {
	if !r.attached(c) {
		return ErrUnknownClient
	}
	network.Resync(context.Background(), r.cfg.Publisher, r.reg.Tick(), clientRef(c),
		network.ResyncPayload{Creatures: r.reg.Count(), Reason: reason}, nil)
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.Add(telemetry.MetricResyncs, 1)
	}
	return r.SendInitialUpdate(c)
}

// ToNetwork queues for c the fields of cr selected by mask that differ from
// c's shadow, updates the shadow and clears c's pending bits for the slot.
// A creature the client has never seen goes out whole; a death goes out
// only to clients that knew the creature.
func (r *Replicator) ToNetwork(cr *creature.Creature, mask creature.DirtyMask, c *Client) {
	slot := cr.Slot()
	c.pending[slot] = creature.DirtyNone
	s := &c.shadows[slot]
	u := proto.CreatureUpdate{ID: slot}

	if !cr.Alive() {
		if s.known {
			u.Alive = ptr(false)
			*s = shadow{}
			c.updates = append(c.updates, u)
		}
		return
	}
	if !s.known {
		*s = shadow{known: true, target: -1}
		mask = creature.DirtyAll
		u.Alive = ptr(true)
		u.Owner = ptr(cr.Owner)
		s.owner = cr.Owner
		u.X, u.Y, u.Dir = ptr(cr.X), ptr(cr.Y), ptr(cr.Dir)
		u.Type = ptr(int(cr.Type))
		u.Food = ptr(cr.Food)
		u.Health = ptr(cr.Health)
		u.State = ptr(cr.State.String())
		u.Target = ptr(targetSlot(cr))
		if cr.Message != "" {
			u.Message = ptr(cr.Message)
		}
		s.x, s.y, s.dir, s.kind = cr.X, cr.Y, cr.Dir, cr.Type
		s.food, s.health, s.state = cr.Food, cr.Health, cr.State
		s.target, s.message = targetSlot(cr), cr.Message
		c.updates = append(c.updates, u)
		return
	}

	if mask.Has(creature.DirtyPos) {
		if s.x != cr.X {
			s.x = cr.X
			u.X = ptr(cr.X)
		}
		if s.y != cr.Y {
			s.y = cr.Y
			u.Y = ptr(cr.Y)
		}
		if s.dir != cr.Dir {
			s.dir = cr.Dir
			u.Dir = ptr(cr.Dir)
		}
	}
	if mask.Has(creature.DirtyType) && s.kind != cr.Type {
		s.kind = cr.Type
		u.Type = ptr(int(cr.Type))
	}
	if mask.Has(creature.DirtyFood) && s.food != cr.Food {
		s.food = cr.Food
		u.Food = ptr(cr.Food)
	}
	if mask.Has(creature.DirtyHealth) && s.health != cr.Health {
		s.health = cr.Health
		u.Health = ptr(cr.Health)
	}
	if mask.Has(creature.DirtyState) && s.state != cr.State {
		s.state = cr.State
		u.State = ptr(cr.State.String())
	}
	if mask.Has(creature.DirtyTarget) {
		if t := targetSlot(cr); s.target != t {
			s.target = t
			u.Target = ptr(t)
		}
	}
	if mask.Has(creature.DirtyMessage) && s.message != cr.Message {
		s.message = cr.Message
		u.Message = ptr(cr.Message)
	}
	if !u.Empty() {
		c.updates = append(c.updates, u)
	}
}

// Flush replicates one finished tick: every creature's dirty bits are owed
// to every client and then reset, each client gets its delta frame, clients
// whose sink fails are dropped and the slots of replicated deaths are
// released. It returns the number of reaped slots.
func (r *Replicator) Flush() int {
	r.collectPending()
	frame := proto.Frame{Ver: proto.Version, Type: proto.TypeDelta, Tick: r.reg.Tick()}
	var players []proto.PlayerInfo
	if r.cfg.Scoreboard != nil {
		players = r.cfg.Scoreboard()
	}
	king := r.king()

	var updates uint64
	for _, c := range append([]*Client(nil), r.clients...) {
		for slot := range c.pending {
			if c.pending[slot] != creature.DirtyNone {
				r.ToNetwork(r.reg.Slot(slot), c.pending[slot], c)
			}
		}
		out := frame
		if r.cfg.Scoreboard != nil && !slices.Equal(players, c.players) {
			c.players = players
			out.Players = players
		}
		if king != c.king {
			c.king = king
			out.King = ptr(king)
		}
		out.Creatures = c.takeUpdates()
		updates += uint64(len(out.Creatures))
		if out.Empty() {
			continue
		}
		if err := r.send(c, out); err != nil {
			r.drop(c, err)
		}
	}
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.Add(telemetry.MetricUpdates, updates)
	}
	return r.reg.Reap()
}

// collectPending moves every creature's dirty mask into each client's
// pending bits. This is the only place creature dirty masks are reset.
func (r *Replicator) collectPending() {
	for slot := 0; slot < creature.MaxCreatures; slot++ {
		cr := r.reg.Slot(slot)
		if cr.Dirty == creature.DirtyNone {
			continue
		}
		for _, c := range r.clients {
			c.pending[slot] |= cr.Dirty
		}
		cr.Dirty = creature.DirtyNone
	}
}

// king is the current king, or noKing.
func (r *Replicator) king() int {
	if king, ok := r.reg.KingPlayer(); ok {
		return king
	}
	return noKing
}

func (r *Replicator) send(c *Client, frame proto.Frame) error {
	frame.ServerTime = r.reg.Now()
	if err := c.sink.Send(frame); err != nil {
		return err
	}
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.Add(telemetry.MetricFrames, 1)
	}
	return nil
}

func (r *Replicator) drop(c *Client, err error) {
	if !r.Detach(c) {
		return
	}
	network.ClientDropped(context.Background(), r.cfg.Publisher, r.reg.Tick(), clientRef(c),
		network.ClientDroppedPayload{Reason: err.Error()}, map[string]any{"player": c.playerID})
	if r.cfg.OnDrop != nil {
		r.cfg.OnDrop(c, err)
	}
}

func (r *Replicator) storeClientCount() {
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.Store(telemetry.MetricClients, uint64(len(r.clients)))
	}
}

func clientRef(c *Client) logging.EntityRef {
	return logging.EntityRef{ID: strconv.Itoa(c.id), Kind: logging.EntityKindClient}
}

func ptr[T any](v T) *T { return &v }
