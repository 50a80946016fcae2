package creature

import (
	"context"
	"strconv"

	"swarm/server/logging"
	"swarm/server/logging/combat"
	"swarm/server/logging/simulation"
)

// transition is one row of the state table. enter guards and prepares the
// state; tick advances a creature already in it and returns the next state.
type transition struct {
	enter func(r *Registry, c *Creature) bool
	tick  func(r *Registry, c *Creature, delta int) State
}

var table [stateCount]transition

func init() {
	table = [stateCount]transition{
		StateIdle:    {enter: always, tick: tickIdle},
		StateWalk:    {enter: enterWalk, tick: tickWalk},
		StateHeal:    {enter: enterHeal, tick: tickHeal},
		StateEat:     {enter: enterEat, tick: tickEat},
		StateAttack:  {enter: enterAttack, tick: tickAttack},
		StateConvert: {enter: enterConvert, tick: tickConvert},
		StateSpawn:   {enter: enterSpawn, tick: tickSpawn},
		StateFeed:    {enter: enterFeed, tick: tickFeed},
	}
}

// MoveAll advances game time by delta milliseconds and steps every live
// creature once, in place and in slot order. Creatures spawned during the
// step wait for the next one.
func (r *Registry) MoveAll(delta int) {
	if delta < 0 {
		delta = 0
	}
	r.tick++
	r.now += int64(delta)
	for i := range r.slots {
		c := &r.slots[i]
		if !c.Alive() || c.bornTick == r.tick {
			continue
		}
		c.Age++
		if r.starve(c, delta) {
			continue
		}
		next := table[c.State].tick(r, c, delta)
		if c.Alive() && next != c.State {
			r.transition(c, next)
		}
		if c.Alive() && c.Health <= 0 {
			_ = r.Kill(c, nil)
		}
	}
	r.scoreKing()
	r.scoreHill()
}

// starve drains health from a creature with an empty stomach and kills it
// once nothing is left. It reports whether c died.
func (r *Registry) starve(c *Creature, delta int) bool {
	rate := r.rules.AgingOf(c.Type)
	if rate <= 0 || c.Food > 0 {
		c.agingDebt = 0
		return false
	}
	c.agingDebt += rate * delta
	burn := c.agingDebt / 1000
	if burn <= 0 {
		return false
	}
	c.agingDebt -= burn * 1000
	r.setHealth(c, c.Health-burn)
	if c.Health > 0 {
		return false
	}
	_ = r.Kill(c, nil)
	return true
}

// transition switches c into next, falling back to idle when next refuses
// entry.
func (r *Registry) transition(c *Creature, next State) {
	if !next.Valid() || !table[next].enter(r, c) {
		next = StateIdle
	}
	if next == c.State {
		return
	}
	c.State = next
	c.LastStateChange = r.now
	c.Age = 0
	c.mark(DirtyState)
}

func (r *Registry) scoreKing() {
	interval := r.rules.KingIntervalTicks
	if interval <= 0 || r.rules.KingPoints == 0 || r.tick%uint64(interval) != 0 {
		return
	}
	king, ok := r.KingPlayer()
	if !ok {
		return
	}
	if r.players != nil {
		r.players.AddScore(king, r.rules.KingPoints)
	}
	simulation.KingScored(context.Background(), r.publisher, r.tick,
		logging.EntityRef{ID: strconv.Itoa(king), Kind: logging.EntityKindPlayer},
		simulation.KingScoredPayload{Player: king, Points: r.rules.KingPoints, Creatures: r.CountOwned(king)}, nil)
}

// scoreHill pays HillPoints every step to the owner holding the hill tile
// alone. A contested or empty hill pays nobody.
func (r *Registry) scoreHill() {
	hill, ok := r.terrain.(interface{ Koth() (int, int) })
	if !ok || r.rules.HillPoints == 0 || r.players == nil {
		return
	}
	x, y := hill.Koth()
	holder := Unowned
	for i := range r.slots {
		c := &r.slots[i]
		if !c.Alive() || c.Owner == Unowned || c.X != x || c.Y != y {
			continue
		}
		if holder != Unowned && holder != c.Owner {
			return
		}
		holder = c.Owner
	}
	if holder != Unowned {
		r.players.AddScore(holder, r.rules.HillPoints)
	}
}

func always(*Registry, *Creature) bool { return true }

// target resolves c's target, clearing a stale reference.
func (r *Registry) target(c *Creature) (*Creature, bool) {
	t, ok := r.Resolve(c.Target)
	if !ok && c.Target.IsSet() {
		r.setTarget(c, Ref{})
	}
	return t, ok
}

// inReach reports whether the target of the intended action is close enough
// to act on.
func (r *Registry) inReach(c, t *Creature, action State) bool {
	switch action {
	case StateAttack:
		rng := r.rules.AttackRange(c.Type, t.Type)
		return rng > 0 && Dist(c, t) <= rng
	case StateFeed:
		rng := r.rules.FeedRangeOf(c.Type)
		return rng > 0 && Dist(c, t) <= rng
	}
	return false
}

// chase re-paths c toward t. It returns walk on success, idle otherwise.
func (r *Registry) chase(c, t *Creature, action State) State {
	if r.pather == nil {
		r.setTarget(c, Ref{})
		return StateIdle
	}
	path, ok := r.pather.FindPath(c.X, c.Y, t.X, t.Y)
	if !ok {
		r.say(c, "no path")
		r.setTarget(c, Ref{})
		c.Intent = StateIdle
		return StateIdle
	}
	c.path = path
	c.progress = 0
	c.Intent = action
	return StateWalk
}

func tickIdle(r *Registry, c *Creature, delta int) State {
	if c.HasPath() {
		return StateWalk
	}
	if t, ok := r.target(c); ok && (c.Intent == StateAttack || c.Intent == StateFeed) {
		if r.inReach(c, t, c.Intent) {
			return c.Intent
		}
		return r.chase(c, t, c.Intent)
	}
	if decay := r.rules.IdleDecay(c.Type); decay > 0 && c.Food > 0 {
		c.decayDebt += decay * delta
		if burn := c.decayDebt / 1000; burn > 0 {
			c.decayDebt -= burn * 1000
			r.setFood(c, c.Food-burn)
		}
	}
	if c.Food < r.MaxFood(c) && r.FoodOnTile(c) > 0 {
		return StateEat
	}
	return StateIdle
}

func enterWalk(r *Registry, c *Creature) bool {
	return c.HasPath()
}

func tickWalk(r *Registry, c *Creature, delta int) State {
	t, hasTarget := r.target(c)
	chasing := c.Intent == StateAttack || c.Intent == StateFeed
	if chasing && !hasTarget {
		c.Intent = StateIdle
		chasing = false
	}
	if chasing && r.inReach(c, t, c.Intent) {
		c.clearPath()
		return c.Intent
	}
	if !c.HasPath() {
		return r.arrive(c, t)
	}

	c.progress += perTick(r.Speed(c), delta)
	for c.progress >= TileSize {
		x, y, ok := c.path.Next()
		if !ok {
			break
		}
		if r.terrain != nil && !r.terrain.Walkable(x, y) {
			c.clearPath()
			r.say(c, "blocked")
			return StateIdle
		}
		c.Dir = heading(x-c.X, y-c.Y)
		c.X, c.Y = x, y
		c.mark(DirtyPos)
		c.path.Advance()
		c.progress -= TileSize
		if chasing && r.inReach(c, t, c.Intent) {
			c.clearPath()
			return c.Intent
		}
		if c.path.Exhausted() {
			c.progress = 0
			break
		}
	}
	return StateWalk
}

// arrive resolves a finished walk into the queued intent.
func (r *Registry) arrive(c, t *Creature) State {
	c.clearPath()
	intent := c.Intent
	c.Intent = StateIdle
	switch intent {
	case StateAttack, StateFeed:
		if t == nil {
			return StateIdle
		}
		if r.inReach(c, t, intent) {
			return intent
		}
		return r.chase(c, t, intent)
	case StateIdle, StateWalk:
		return StateIdle
	}
	return intent
}

func enterHeal(r *Registry, c *Creature) bool {
	return r.rules.HealRateOf(c.Type) > 0
}

func tickHeal(r *Registry, c *Creature, delta int) State {
	if c.Food <= 0 {
		r.say(c, "no food")
		return StateIdle
	}
	max := r.MaxHealth(c)
	amount := min(perTick(r.rules.HealRateOf(c.Type), delta), c.Food, max-c.Health)
	if amount <= 0 {
		return StateIdle
	}
	r.setFood(c, c.Food-amount)
	r.setHealth(c, c.Health+amount)
	if c.Health >= max || c.Food == 0 {
		return StateIdle
	}
	return StateHeal
}

func enterEat(r *Registry, c *Creature) bool {
	return r.rules.EatRateOf(c.Type) > 0
}

func tickEat(r *Registry, c *Creature, delta int) State {
	room := r.MaxFood(c) - c.Food
	available := r.FoodOnTile(c)
	if room <= 0 || available <= 0 {
		return StateIdle
	}
	amount := min(perTick(r.rules.EatRateOf(c.Type), delta), available, room)
	if amount > 0 {
		eaten := r.terrain.EatFood(c.X, c.Y, amount)
		r.setFood(c, c.Food+eaten)
	}
	if c.Food >= r.MaxFood(c) || r.FoodOnTile(c) == 0 {
		return StateIdle
	}
	return StateEat
}

func enterAttack(r *Registry, c *Creature) bool {
	t, ok := r.Resolve(c.Target)
	return ok && hostile(c, t) && r.rules.CanAttack(c.Type, t.Type)
}

func tickAttack(r *Registry, c *Creature, delta int) State {
	t, ok := r.target(c)
	if !ok || !hostile(c, t) {
		r.setTarget(c, Ref{})
		return StateIdle
	}
	hp := r.rules.Hitpoints(c, t.Type)
	if hp <= 0 {
		r.setTarget(c, Ref{})
		return StateIdle
	}
	if !r.inReach(c, t, StateAttack) {
		return r.chase(c, t, StateAttack)
	}
	if dir := heading(t.X-c.X, t.Y-c.Y); dir != c.Dir {
		c.Dir = dir
		c.mark(DirtyPos)
	}
	damage := perTick(hp, delta)
	r.setHealth(t, t.Health-damage)
	combat.Damage(context.Background(), r.publisher, r.tick, entityRef(c), entityRef(t),
		combat.DamagePayload{Amount: damage, Remaining: t.Health}, nil)
	if t.Health > 0 {
		return StateAttack
	}
	combat.Defeat(context.Background(), r.publisher, r.tick, entityRef(c), entityRef(t),
		combat.DefeatPayload{Reward: r.rules.KillReward}, nil)
	_ = r.Kill(t, c)
	c.Intent = StateIdle
	return StateIdle
}

func enterConvert(r *Registry, c *Creature) bool {
	cost := r.rules.ConversionCost(c.Type, c.ConvertType)
	return c.ConvertType != c.Type && cost > 0 && c.Food >= cost
}

func tickConvert(r *Registry, c *Creature, _ int) State {
	cost := r.rules.ConversionCost(c.Type, c.ConvertType)
	if cost <= 0 {
		return StateIdle
	}
	if c.Food < cost {
		r.say(c, "no food")
		return StateIdle
	}
	if r.now-c.LastStateChange < r.rules.ConvertDuration(c.Type, c.ConvertType) {
		return StateConvert
	}
	c.Type = c.ConvertType
	c.mark(DirtyType)
	r.setFood(c, c.Food-cost)
	r.setHealth(c, c.Health)
	c.mark(DirtyFood)
	return StateIdle
}

// enterSpawn checks every precondition before it charges the health cost, so
// a refused spawn leaves the creature untouched.
func enterSpawn(r *Registry, c *Creature) bool {
	if _, ok := r.rules.Offspring(c.Type); !ok {
		return false
	}
	if c.Food < r.rules.SpawnCost(c.Type) {
		return false
	}
	cost := r.rules.SpawnHealthCost(c.Type)
	if c.Health <= cost {
		return false
	}
	r.setHealth(c, c.Health-cost)
	c.SpawnTime = r.now + r.rules.SpawnDuration(c.Type)
	return true
}

func tickSpawn(r *Registry, c *Creature, _ int) State {
	kind, ok := r.rules.Offspring(c.Type)
	if !ok {
		return StateIdle
	}
	cost := r.rules.SpawnCost(c.Type)
	if c.Food < cost {
		r.say(c, "no food")
		return StateIdle
	}
	if r.now < c.SpawnTime {
		return StateSpawn
	}
	if _, err := r.Spawn(c.Owner, c.X, c.Y, kind, 0); err != nil {
		r.say(c, "too many")
		return StateIdle
	}
	r.setFood(c, c.Food-cost)
	return StateIdle
}

func enterFeed(r *Registry, c *Creature) bool {
	t, ok := r.Resolve(c.Target)
	return ok && friendly(c, t) && r.rules.FeedRangeOf(c.Type) > 0
}

func tickFeed(r *Registry, c *Creature, delta int) State {
	t, ok := r.target(c)
	if !ok || !friendly(c, t) || c.Food <= 0 {
		r.setTarget(c, Ref{})
		return StateIdle
	}
	if !r.inReach(c, t, StateFeed) {
		return r.chase(c, t, StateFeed)
	}
	amount := min(perTick(r.rules.FeedSpeedOf(c.Type), delta), c.Food, r.MaxFood(t)-t.Food)
	if amount <= 0 {
		r.setTarget(c, Ref{})
		return StateIdle
	}
	r.setFood(c, c.Food-amount)
	r.setFood(t, t.Food+amount)
	if c.Food == 0 || t.Food >= r.MaxFood(t) {
		r.setTarget(c, Ref{})
		c.Intent = StateIdle
		return StateIdle
	}
	return StateFeed
}
