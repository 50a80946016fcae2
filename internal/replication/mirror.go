package replication

import (
	"sort"

	"swarm/server/internal/net/proto"
)

// MirrorCreature is a client's reconstruction of one creature.
type MirrorCreature struct {
	ID      int
	Owner   int
	X, Y    int
	Dir     int
	Type    int
	Food    int
	Health  int
	State   string
	Target  int
	Message string
}

// Mirror rebuilds the population from snapshot and delta frames the way a
// client does. Bots and tests use it to read the replicated world.
type Mirror struct {
	Tick      uint64
	Creatures map[int]*MirrorCreature
	Players   []proto.PlayerInfo
	King      int
}

func NewMirror() *Mirror {
	return &Mirror{Creatures: make(map[int]*MirrorCreature), King: -1}
}

// Apply folds one frame into the mirror. A snapshot replaces everything.
func (m *Mirror) Apply(frame proto.Frame) {
	if frame.Type == proto.TypeSnapshot {
		m.Creatures = make(map[int]*MirrorCreature, len(frame.Creatures))
		m.King = -1
	}
	m.Tick = frame.Tick
	if frame.Players != nil {
		m.Players = append([]proto.PlayerInfo(nil), frame.Players...)
	}
	if frame.King != nil {
		m.King = *frame.King
	}
	for _, u := range frame.Creatures {
		if u.Alive != nil && !*u.Alive {
			delete(m.Creatures, u.ID)
			continue
		}
		c, ok := m.Creatures[u.ID]
		if !ok {
			c = &MirrorCreature{ID: u.ID, Target: -1}
			m.Creatures[u.ID] = c
		}
		set(&c.Owner, u.Owner)
		set(&c.X, u.X)
		set(&c.Y, u.Y)
		set(&c.Dir, u.Dir)
		set(&c.Type, u.Type)
		set(&c.Food, u.Food)
		set(&c.Health, u.Health)
		set(&c.State, u.State)
		set(&c.Target, u.Target)
		set(&c.Message, u.Message)
	}
}

// Sorted lists the mirrored creatures by slot.
func (m *Mirror) Sorted() []MirrorCreature {
	out := make([]MirrorCreature, 0, len(m.Creatures))
	for _, c := range m.Creatures {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
