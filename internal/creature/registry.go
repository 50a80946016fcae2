package creature

import (
	"context"
	"fmt"
	"math/bits"
	"strconv"
	"unicode/utf8"

	"swarm/server/logging"
	"swarm/server/logging/lifecycle"
)

const bitmapWords = MaxCreatures / 64

// Config wires a registry to its collaborators. Only Rules is required; the
// rest degrade to no-ops when nil.
type Config struct {
	Rules     Rules
	Terrain   Terrain
	Pather    Pather
	Players   Players
	Publisher logging.Publisher
}

// Registry is the fixed-capacity creature arena. It is not safe for
// concurrent use; the hub serialises access.
type Registry struct {
	rules     Rules
	terrain   Terrain
	pather    Pather
	players   Players
	publisher logging.Publisher

	slots    [MaxCreatures]Creature
	occupied [bitmapWords]uint64
	live     int
	closed   bool

	now  int64
	tick uint64
}

func NewRegistry(cfg Config) *Registry {
	r := &Registry{
		rules:     cfg.Rules,
		terrain:   cfg.Terrain,
		pather:    cfg.Pather,
		players:   cfg.Players,
		publisher: cfg.Publisher,
	}
	if r.publisher == nil {
		r.publisher = logging.NopPublisher()
	}
	r.Init()
	return r
}

// Init clears every slot and resets game time.
func (r *Registry) Init() {
	for i := range r.slots {
		r.slots[i] = Creature{slot: i}
	}
	r.occupied = [bitmapWords]uint64{}
	r.live = 0
	r.now = 0
	r.tick = 0
	r.closed = false
}

// Shutdown releases every creature and refuses further spawns.
func (r *Registry) Shutdown() {
	r.Init()
	r.closed = true
}

func (r *Registry) Rules() *Rules { return &r.rules }

// Now is the game clock in milliseconds.
func (r *Registry) Now() int64 { return r.now }

func (r *Registry) Tick() uint64 { return r.tick }

// Count is the number of live creatures.
func (r *Registry) Count() int { return r.live }

// Spawn places a new creature of kind on tile (x, y) for owner and credits
// the owner with points.
func (r *Registry) Spawn(owner, x, y int, kind Kind, points int) (*Creature, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("spawn kind %d: %w", kind, ErrInvalidKind)
	}
	if r.terrain != nil && !r.terrain.Walkable(x, y) {
		return nil, fmt.Errorf("spawn at %d,%d: %w", x, y, ErrUnreachable)
	}
	slot, ok := r.firstVacant()
	if !ok {
		return nil, ErrCapacityExceeded
	}

	color := 0
	if r.players != nil {
		color = r.players.Color(owner)
	}
	c := &r.slots[slot]
	gen := c.gen + 1
	if gen == 0 {
		gen = 1
	}
	*c = Creature{
		X:               x,
		Y:               y,
		Type:            kind,
		Owner:           owner,
		Color:           color,
		Health:          r.rules.MaxHealthOf(kind, color),
		State:           StateIdle,
		Intent:          StateIdle,
		LastStateChange: r.now,
		Dirty:           DirtyAll,
		bornTick:        r.tick,
		slot:            slot,
		gen:             gen,
		status:          slotAlive,
	}
	r.occupied[slot/64] |= 1 << (slot % 64)
	r.live++

	if points != 0 && r.players != nil && owner != Unowned {
		r.players.AddScore(owner, points)
	}
	lifecycle.CreatureSpawned(context.Background(), r.publisher, r.tick, entityRef(c), lifecycle.CreatureSpawnedPayload{
		Owner: owner,
		Kind:  int(kind),
		X:     x,
		Y:     y,
	}, nil)
	return c, nil
}

func (r *Registry) firstVacant() (int, bool) {
	for w, word := range r.occupied {
		if free := ^word; free != 0 {
			return w*64 + bits.TrailingZeros64(free), true
		}
	}
	return 0, false
}

// Kill marks c dying. Its food drops onto its tile, every target reference
// to it is cleared and a killer of another owner earns the kill reward.
// A nil killer means the creature starved. The slot stays occupied until
// Reap.
func (r *Registry) Kill(c *Creature, killer *Creature) error {
	reason := "starved"
	if killer != nil {
		reason = "killed"
		if killer == c {
			reason = "suicide"
		}
	}
	return r.kill(c, killer, reason)
}

func (r *Registry) kill(c *Creature, killer *Creature, reason string) error {
	if c == nil || !c.Alive() {
		return ErrInvalidReference
	}
	ref := c.Ref()
	c.status = slotDying
	c.mark(DirtyAlive)
	c.clearPath()
	c.Target = Ref{}
	r.live--

	dropped := c.Food
	if dropped > 0 && r.terrain != nil {
		r.terrain.AddFood(c.X, c.Y, dropped)
	}
	c.Food = 0

	for i := range r.slots {
		other := &r.slots[i]
		if other.Alive() && other.Target == ref {
			other.Target = Ref{}
			other.mark(DirtyTarget)
		}
	}

	reward := 0
	if killer != nil && killer != c && killer.Owner != Unowned && killer.Owner != c.Owner {
		reward = r.rules.KillReward
		if reward != 0 && r.players != nil {
			r.players.AddScore(killer.Owner, reward)
		}
	}
	extra := map[string]any{"reward": reward}
	lifecycle.CreatureKilled(context.Background(), r.publisher, r.tick, entityRef(c), lifecycle.CreatureKilledPayload{
		Owner:       c.Owner,
		Kind:        int(c.Type),
		Reason:      reason,
		DroppedFood: dropped,
	}, extra)
	return nil
}

// Reap vacates every dying slot. Replication calls it once the death has
// been sent to all clients.
func (r *Registry) Reap() int {
	reaped := 0
	for i := range r.slots {
		c := &r.slots[i]
		if !c.Dying() {
			continue
		}
		gen := c.gen
		*c = Creature{slot: i, gen: gen}
		r.occupied[i/64] &^= 1 << (i % 64)
		reaped++
	}
	return reaped
}

// Lookup returns the live creature at slot.
func (r *Registry) Lookup(slot int) (*Creature, bool) {
	if slot < 0 || slot >= MaxCreatures {
		return nil, false
	}
	c := &r.slots[slot]
	if !c.Alive() {
		return nil, false
	}
	return c, true
}

// Resolve dereferences a weak reference. It fails once the slot died or was
// reused.
func (r *Registry) Resolve(ref Ref) (*Creature, bool) {
	if !ref.IsSet() {
		return nil, false
	}
	c, ok := r.Lookup(ref.Slot)
	if !ok || c.gen != ref.Gen {
		return nil, false
	}
	return c, true
}

// Slot exposes a raw record, including dying and vacant ones, for
// replication and rendering.
func (r *Registry) Slot(i int) *Creature {
	if i < 0 || i >= MaxCreatures {
		return nil
	}
	return &r.slots[i]
}

// Each visits live creatures in ascending slot order.
func (r *Registry) Each(fn func(*Creature)) {
	for i := range r.slots {
		if r.slots[i].Alive() {
			fn(&r.slots[i])
		}
	}
}

// KillAllPlayersCreatures kills every live creature owned by owner and
// returns how many died. The deaths are reported with reason "left".
func (r *Registry) KillAllPlayersCreatures(owner int) int {
	killed := 0
	for i := range r.slots {
		c := &r.slots[i]
		if c.Alive() && c.Owner == owner {
			if err := r.kill(c, nil, "left"); err == nil {
				killed++
			}
		}
	}
	return killed
}

// KingPlayer returns the owner with the most live creatures. Ties go to the
// lowest owner id; unowned creatures never count.
func (r *Registry) KingPlayer() (int, bool) {
	counts := make(map[int]int)
	for i := range r.slots {
		c := &r.slots[i]
		if c.Alive() && c.Owner != Unowned {
			counts[c.Owner]++
		}
	}
	king, best := 0, 0
	for owner, n := range counts {
		if n > best || (n == best && owner < king) {
			king, best = owner, n
		}
	}
	return king, best > 0
}

// CountOwned is the number of live creatures owner holds.
func (r *Registry) CountOwned(owner int) int {
	n := 0
	for i := range r.slots {
		if r.slots[i].Alive() && r.slots[i].Owner == owner {
			n++
		}
	}
	return n
}

// FoodOnTile is the forageable food under c; kinds that cannot eat see none.
func (r *Registry) FoodOnTile(c *Creature) int {
	if r.terrain == nil || r.rules.EatRateOf(c.Type) == 0 {
		return 0
	}
	return r.terrain.FoodAt(c.X, c.Y)
}

func (r *Registry) MaxHealth(c *Creature) int { return r.rules.MaxHealthOf(c.Type, c.Color) }

func (r *Registry) MaxFood(c *Creature) int { return r.rules.MaxFoodOf(c.Type, c.Color) }

func (r *Registry) Speed(c *Creature) int { return r.rules.Speed(c) }

func (r *Registry) setFood(c *Creature, food int) {
	if max := r.MaxFood(c); food > max {
		food = max
	}
	if food < 0 {
		food = 0
	}
	if food != c.Food {
		c.Food = food
		c.mark(DirtyFood)
	}
}

func (r *Registry) setHealth(c *Creature, health int) {
	if max := r.MaxHealth(c); health > max {
		health = max
	}
	if health < 0 {
		health = 0
	}
	if health != c.Health {
		c.Health = health
		c.mark(DirtyHealth)
	}
}

func (r *Registry) setTarget(c *Creature, ref Ref) {
	if c.Target != ref {
		c.Target = ref
		c.mark(DirtyTarget)
	}
}

func (r *Registry) say(c *Creature, text string) {
	if len(text) > MessageLen {
		cut := MessageLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	c.Message = text
	c.LastMessage = r.now
	c.mark(DirtyMessage)
}

func entityRef(c *Creature) logging.EntityRef {
	return logging.EntityRef{ID: strconv.Itoa(c.slot), Kind: logging.EntityKindCreature}
}
