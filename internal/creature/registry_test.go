package creature

import (
	"context"
	"errors"
	"testing"

	"swarm/server/logging"
	"swarm/server/logging/lifecycle"
)

func TestSpawnInitialisesCreature(t *testing.T) {
	f := newFixture(nil)
	f.players.colors[7] = 3
	c, err := f.reg.Spawn(7, 4, 5, KindBig, 25)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if c.Slot() != 0 || !c.Alive() {
		t.Fatalf("expected live creature in slot 0, got slot %d alive=%v", c.Slot(), c.Alive())
	}
	if c.Dirty != DirtyAll {
		t.Fatalf("expected all dirty bits, got %08b", c.Dirty)
	}
	if c.Health != 20000 || c.Food != 0 || c.Color != 3 {
		t.Fatalf("unexpected vitals health=%d food=%d color=%d", c.Health, c.Food, c.Color)
	}
	if c.State != StateIdle || c.Target.IsSet() {
		t.Fatalf("expected idle without target")
	}
	if f.players.scores[7] != 25 {
		t.Fatalf("expected spawn points credited, got %d", f.players.scores[7])
	}
}

func TestSpawnRejectsBadInput(t *testing.T) {
	f := newFixture(nil)
	f.terrain.blocked[tile{1, 1}] = true
	cases := []struct {
		name string
		x, y int
		kind Kind
		want error
	}{
		{"reserved kind", 0, 0, KindReserved, ErrInvalidKind},
		{"blocked tile", 1, 1, KindSmall, ErrUnreachable},
		{"off map", -1, 0, KindSmall, ErrUnreachable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.reg.Spawn(1, tc.x, tc.y, tc.kind, 0); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if f.reg.Count() != 0 {
		t.Fatalf("expected no creatures, got %d", f.reg.Count())
	}
}

func TestSpawnFailsWhenFullWithoutTouchingSlots(t *testing.T) {
	f := newFixture(nil)
	for i := 0; i < MaxCreatures; i++ {
		if _, err := f.reg.Spawn(1+i%3, i%32, i/32, KindSmall, 0); err != nil {
			t.Fatalf("spawn %d: %v", i, err)
		}
	}
	before := f.reg.slots
	if _, err := f.reg.Spawn(1, 0, 0, KindSmall, 0); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if f.reg.slots != before {
		t.Fatalf("full registry mutated by rejected spawn")
	}
	if f.reg.Count() != MaxCreatures {
		t.Fatalf("expected %d live, got %d", MaxCreatures, f.reg.Count())
	}
}

func TestKilledSlotIsReusedOnlyAfterReap(t *testing.T) {
	f := newFixture(nil)
	a := f.spawn(1, 0, 0, KindSmall)
	f.spawn(1, 1, 0, KindSmall)
	ref := a.Ref()

	if err := f.reg.Kill(a, nil); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if !a.Dying() || a.Dirty&DirtyAlive == 0 {
		t.Fatalf("expected dying creature with alive bit dirty")
	}
	if _, ok := f.reg.Lookup(0); ok {
		t.Fatalf("dying creature should not be looked up")
	}
	if err := f.reg.Kill(a, nil); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected double kill rejected, got %v", err)
	}

	c := f.spawn(2, 2, 0, KindSmall)
	if c.Slot() == 0 {
		t.Fatalf("slot reused before reap")
	}
	if n := f.reg.Reap(); n != 1 {
		t.Fatalf("expected 1 reaped slot, got %d", n)
	}
	d := f.spawn(2, 3, 0, KindSmall)
	if d.Slot() != 0 {
		t.Fatalf("expected slot 0 reused after reap, got %d", d.Slot())
	}
	if _, ok := f.reg.Resolve(ref); ok {
		t.Fatalf("stale reference resolved to a recycled slot")
	}
	if got, ok := f.reg.Resolve(d.Ref()); !ok || got != d {
		t.Fatalf("fresh reference did not resolve")
	}
}

func TestKillDropsFoodAndRewardsKiller(t *testing.T) {
	f := newFixture(nil)
	killer := f.spawn(1, 0, 0, KindSmall)
	victim := f.spawn(2, 5, 5, KindSmall)
	ally := f.spawn(2, 6, 5, KindSmall)
	f.reg.setFood(victim, 700)

	if err := f.reg.Kill(victim, killer); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if got := f.terrain.FoodAt(5, 5); got != 700 {
		t.Fatalf("expected 700 food dropped, got %d", got)
	}
	if f.players.scores[1] != f.reg.Rules().KillReward {
		t.Fatalf("expected kill reward for player 1, got %d", f.players.scores[1])
	}

	if err := f.reg.Kill(ally, f.reg.Slot(ally.Slot())); err != nil {
		t.Fatalf("suicide-style kill: %v", err)
	}
	if f.players.scores[2] != 0 {
		t.Fatalf("self kill must not reward, got %d", f.players.scores[2])
	}
}

func TestKillAllPlayersCreatures(t *testing.T) {
	f := newFixture(nil)
	for i := 0; i < 3; i++ {
		f.spawn(1, i, 0, KindSmall)
	}
	f.spawn(2, 0, 1, KindSmall)
	f.spawn(2, 1, 1, KindBig)

	if n := f.reg.KillAllPlayersCreatures(1); n != 3 {
		t.Fatalf("expected 3 kills, got %d", n)
	}
	if f.reg.Count() != 2 || f.reg.CountOwned(1) != 0 {
		t.Fatalf("unexpected population %d owned=%d", f.reg.Count(), f.reg.CountOwned(1))
	}
}

func TestKillReasons(t *testing.T) {
	var reasons []string
	pub := logging.PublisherFunc(func(_ context.Context, e logging.Event) {
		if p, ok := e.Payload.(lifecycle.CreatureKilledPayload); ok {
			reasons = append(reasons, p.Reason)
		}
	})
	reg := NewRegistry(Config{Rules: DefaultRules(), Publisher: pub})
	spawn := func(owner int) *Creature {
		c, err := reg.Spawn(owner, 0, 0, KindSmall, 0)
		if err != nil {
			t.Fatalf("spawn: %v", err)
		}
		return c
	}

	a, b := spawn(1), spawn(2)
	_ = reg.Kill(a, b)
	_ = reg.Kill(b, nil)
	c := spawn(3)
	_ = reg.Suicide(c)
	spawn(4)
	spawn(4)
	reg.KillAllPlayersCreatures(4)

	want := []string{"killed", "starved", "suicide", "left", "left"}
	if len(reasons) != len(want) {
		t.Fatalf("expected reasons %v, got %v", want, reasons)
	}
	for i := range want {
		if reasons[i] != want[i] {
			t.Fatalf("expected reasons %v, got %v", want, reasons)
		}
	}
}

func TestKingPlayerBreaksTiesOnLowestID(t *testing.T) {
	f := newFixture(nil)
	if _, ok := f.reg.KingPlayer(); ok {
		t.Fatalf("empty registry has no king")
	}
	for i := 0; i < 3; i++ {
		f.spawn(Unowned, i, 5, KindSmall)
	}
	f.spawn(5, 0, 0, KindSmall)
	f.spawn(3, 1, 0, KindSmall)
	f.spawn(3, 2, 0, KindSmall)
	f.spawn(2, 3, 0, KindSmall)
	f.spawn(2, 4, 0, KindSmall)

	king, ok := f.reg.KingPlayer()
	if !ok || king != 2 {
		t.Fatalf("expected player 2, got %d ok=%v", king, ok)
	}
}

func TestKingScoresOnInterval(t *testing.T) {
	f := newFixture(func(r *Rules) {
		r.KingIntervalTicks = 2
		r.KingPoints = 3
	})
	f.spawn(4, 0, 0, KindBig)
	f.run(4, 100)
	if got := f.players.scores[4]; got != 6 {
		t.Fatalf("expected 6 king points, got %d", got)
	}
}

func TestInitAndShutdown(t *testing.T) {
	f := newFixture(nil)
	f.spawn(1, 0, 0, KindSmall)
	f.run(3, 50)
	f.reg.Shutdown()
	if f.reg.Count() != 0 || f.reg.Now() != 0 {
		t.Fatalf("shutdown should clear the registry")
	}
	if _, err := f.reg.Spawn(1, 0, 0, KindSmall, 0); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
	f.reg.Init()
	if _, err := f.reg.Spawn(1, 0, 0, KindSmall, 0); err != nil {
		t.Fatalf("spawn after init: %v", err)
	}
}

func TestSpawnAndKillPublishLifecycleEvents(t *testing.T) {
	var events []logging.Event
	pub := logging.PublisherFunc(func(_ context.Context, e logging.Event) { events = append(events, e) })
	reg := NewRegistry(Config{Rules: DefaultRules(), Publisher: pub})
	c, err := reg.Spawn(1, 0, 0, KindSmall, 0)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if err := reg.Suicide(c); err != nil {
		t.Fatalf("suicide: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != lifecycle.EventCreatureSpawned || events[1].Type != lifecycle.EventCreatureKilled {
		t.Fatalf("unexpected event types %s, %s", events[0].Type, events[1].Type)
	}
	payload, ok := events[1].Payload.(lifecycle.CreatureKilledPayload)
	if !ok || payload.Reason != "suicide" {
		t.Fatalf("unexpected kill payload %#v", events[1].Payload)
	}
}

func TestOwnedChecksOwnership(t *testing.T) {
	f := newFixture(nil)
	c := f.spawn(1, 0, 0, KindSmall)
	if got, err := f.reg.Owned(1, c.Slot()); err != nil || got != c {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if _, err := f.reg.Owned(2, c.Slot()); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
	if _, err := f.reg.Owned(1, MaxCreatures); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected invalid reference, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	cases := []struct {
		name string
		want Kind
		ok   bool
	}{
		{"small", KindSmall, true},
		{"big", KindBig, true},
		{"flyer", KindFlyer, true},
		{"reserved", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseKind(tc.name)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseKind(%q) = %v, %v", tc.name, got, ok)
		}
	}
}
