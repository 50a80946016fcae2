package sim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"swarm/server/internal/creature"
	"swarm/server/internal/path"
	"swarm/server/internal/terrain"
	"swarm/server/logging"
	"swarm/server/logging/network"
	"swarm/server/logging/sinks"
)

type scores map[int]int

func (s scores) Color(int) int              { return 0 }
func (s scores) AddScore(owner, points int) { s[owner] += points }

func newTestSimulation(t *testing.T) (*Simulation, *terrain.Map, *sinks.Memory) {
	t.Helper()
	m := terrain.New(16, 16)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			m.SetKind(x, y, terrain.TilePlain)
		}
	}
	memory := sinks.NewMemory()
	pub := logging.PublisherFunc(func(_ context.Context, e logging.Event) { _ = memory.Write(e) })
	reg := creature.NewRegistry(creature.Config{
		Rules:     creature.DefaultRules(),
		Terrain:   m,
		Pather:    path.NewFinder(m),
		Players:   scores{},
		Publisher: pub,
	})
	return NewSimulation(reg, m, Deps{Publisher: pub}), m, memory
}

func TestApplyDispatchesCommands(t *testing.T) {
	s, _, _ := newTestSimulation(t)
	c, err := s.Registry().Spawn(1, 0, 0, creature.KindSmall, 0)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	outcomes := s.Apply([]Command{
		{ActorID: 1, Creature: c.Slot(), Type: CommandSetMessage, Message: &MessageCommand{Text: "hi"}},
		{ActorID: 1, Creature: c.Slot(), Type: CommandSetPath, Path: &PathCommand{X: 3, Y: 0}},
	})
	for _, o := range outcomes {
		if o.Rejected() {
			t.Fatalf("unexpected rejection of %s: %v", o.Command.Type, o.Err)
		}
	}
	if c.Message != "hi" || !c.HasPath() {
		t.Fatalf("commands not applied: message=%q path=%v", c.Message, c.HasPath())
	}
	for i := 0; i < 20; i++ {
		s.Step(100 * time.Millisecond)
	}
	if c.X != 3 {
		t.Fatalf("expected creature at x=3, got %d", c.X)
	}
}

func TestApplyRejectsWithReasons(t *testing.T) {
	s, _, memory := newTestSimulation(t)
	c, _ := s.Registry().Spawn(1, 0, 0, creature.KindSmall, 0)
	cases := []struct {
		name string
		cmd  Command
		want string
	}{
		{"foreign creature", Command{ActorID: 2, Creature: c.Slot(), Type: CommandSuicide}, RejectNotOwner},
		{"vacant slot", Command{ActorID: 1, Creature: 40, Type: CommandSuicide}, RejectInvalidReference},
		{"missing payload", Command{ActorID: 1, Creature: c.Slot(), Type: CommandSetPath}, RejectIllegalTransition},
		{"unknown type", Command{ActorID: 1, Creature: c.Slot(), Type: "Dance"}, RejectUnknownCommand},
		{"bad kind", Command{ActorID: 1, Creature: c.Slot(), Type: CommandSetConversion, Conversion: &ConversionCommand{Kind: 9}}, RejectInvalidKind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := s.Apply([]Command{tc.cmd})
			if len(out) != 1 || !out[0].Rejected() {
				t.Fatalf("expected rejection")
			}
			if got := RejectReason(out[0].Err); got != tc.want {
				t.Fatalf("expected %s, got %s (%v)", tc.want, got, out[0].Err)
			}
		})
	}
	if got := len(memory.OfType(network.EventCommandRejected)); got != len(cases) {
		t.Fatalf("expected %d reject events, got %d", len(cases), got)
	}
	if !c.Alive() {
		t.Fatalf("rejected commands must not touch the creature")
	}
}

func TestRejectReasonUnwraps(t *testing.T) {
	if RejectReason(nil) != "" {
		t.Fatalf("nil error has no reason")
	}
	wrapped := errors.Join(errors.New("ctx"), creature.ErrUnreachable)
	if RejectReason(wrapped) != RejectUnreachable {
		t.Fatalf("expected unreachable")
	}
}

type countingEngine struct {
	applied int
	steps   []time.Duration
}

func (e *countingEngine) Apply(cmds []Command) []Outcome {
	e.applied += len(cmds)
	return nil
}

func (e *countingEngine) Step(delta time.Duration) { e.steps = append(e.steps, delta) }

func TestLoopThrottlesPerActor(t *testing.T) {
	engine := &countingEngine{}
	var dropped []string
	loop := NewLoop(engine, Deps{}, LoopConfig{CommandCapacity: 8, PerActorLimit: 2}, LoopHooks{
		OnCommandDrop: func(reason string, _ Command) { dropped = append(dropped, reason) },
	})
	for i := 0; i < 3; i++ {
		loop.Enqueue(Command{ActorID: 7})
	}
	if ok, _ := loop.Enqueue(Command{ActorID: 8}); !ok {
		t.Fatalf("other actors are not throttled")
	}
	if len(dropped) != 1 || dropped[0] != CommandRejectQueueLimit {
		t.Fatalf("expected one queue_limit drop, got %v", dropped)
	}
	result := loop.Advance(LoopTickContext{Tick: 1, Delta: 100 * time.Millisecond})
	if len(result.Commands) != 3 || engine.applied != 3 {
		t.Fatalf("expected 3 commands applied, got %d", engine.applied)
	}
	if ok, _ := loop.Enqueue(Command{ActorID: 7}); !ok {
		t.Fatalf("throttle should reset after a tick")
	}
}

func TestLoopAdvanceHoldsLockAroundHooks(t *testing.T) {
	engine := &countingEngine{}
	var mu sync.Mutex
	locked := false
	loop := NewLoop(engine, Deps{}, LoopConfig{}, LoopHooks{
		Lock: &mu,
		AfterStep: func(LoopStepResult) {
			locked = !mu.TryLock()
		},
	})
	loop.Advance(LoopTickContext{Tick: 1, Delta: 50 * time.Millisecond})
	if !locked {
		t.Fatalf("expected AfterStep to run under the lock")
	}
	if len(engine.steps) != 1 || engine.steps[0] != 50*time.Millisecond {
		t.Fatalf("unexpected steps %v", engine.steps)
	}
	if loop.TickInterval() != 100*time.Millisecond {
		t.Fatalf("default tick rate should be 10Hz")
	}
}
