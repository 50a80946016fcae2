package creature

import "fmt"

// Owned looks up slot on behalf of a player command.
func (r *Registry) Owned(owner, slot int) (*Creature, error) {
	c, ok := r.Lookup(slot)
	if !ok {
		return nil, fmt.Errorf("creature %d: %w", slot, ErrInvalidReference)
	}
	if c.Owner != owner {
		return nil, fmt.Errorf("creature %d owned by %d: %w", slot, c.Owner, ErrNotOwner)
	}
	return c, nil
}

// SetPath plans a walk to tile (x, y), dropping any queued action. An idle
// creature starts walking on its next step, a busy one immediately. A
// creature converting or spawning refuses.
func (r *Registry) SetPath(c *Creature, x, y int) error {
	if c == nil || !c.Alive() {
		return ErrInvalidReference
	}
	if locked(c) {
		return fmt.Errorf("path while %s: %w", c.State, ErrIllegalTransition)
	}
	if r.pather == nil {
		return ErrUnreachable
	}
	path, ok := r.pather.FindPath(c.X, c.Y, x, y)
	if !ok {
		return fmt.Errorf("path to %d,%d: %w", x, y, ErrUnreachable)
	}
	c.path = path
	c.progress = 0
	c.Intent = StateIdle
	if c.State != StateIdle {
		r.transition(c, StateWalk)
	}
	return nil
}

// SetTarget points c at the live creature in slot. An enemy target queues an
// attack, a friendly one queues feeding. Neutral creatures cannot be targeted
// by players.
func (r *Registry) SetTarget(c *Creature, slot int) error {
	if c == nil || !c.Alive() {
		return ErrInvalidReference
	}
	t, ok := r.Lookup(slot)
	if !ok || t == c {
		return fmt.Errorf("target %d: %w", slot, ErrInvalidReference)
	}
	if locked(c) {
		return fmt.Errorf("target while %s: %w", c.State, ErrIllegalTransition)
	}
	var intent State
	switch {
	case hostile(c, t):
		if !r.rules.CanAttack(c.Type, t.Type) {
			return fmt.Errorf("%s cannot attack %s: %w", c.Type, t.Type, ErrIllegalTransition)
		}
		intent = StateAttack
	case friendly(c, t):
		if r.rules.FeedRangeOf(c.Type) == 0 {
			return fmt.Errorf("%s cannot feed: %w", c.Type, ErrIllegalTransition)
		}
		intent = StateFeed
	default:
		return fmt.Errorf("target %d is neutral: %w", slot, ErrIllegalTransition)
	}
	r.setTarget(c, t.Ref())
	c.Intent = intent
	return nil
}

// SetState requests a state change. Idle always cancels. While a path is
// pending, action states are queued and taken on arrival. Conversion and
// spawning only yield to idle.
func (r *Registry) SetState(c *Creature, s State) error {
	if c == nil || !c.Alive() {
		return ErrInvalidReference
	}
	if !s.Valid() {
		return fmt.Errorf("state %d: %w", s, ErrIllegalTransition)
	}
	if s == StateIdle {
		c.clearPath()
		c.Intent = StateIdle
		r.setTarget(c, Ref{})
		r.transition(c, StateIdle)
		return nil
	}
	if locked(c) && s != c.State {
		return fmt.Errorf("%s to %s: %w", c.State, s, ErrIllegalTransition)
	}
	if s == c.State {
		return nil
	}
	switch s {
	case StateWalk:
		if !c.HasPath() {
			return fmt.Errorf("walk without path: %w", ErrIllegalTransition)
		}
	case StateAttack, StateFeed:
		if !table[s].enter(r, c) {
			return fmt.Errorf("%s to %s: %w", c.State, s, ErrIllegalTransition)
		}
		t, _ := r.Resolve(c.Target)
		if !r.inReach(c, t, s) {
			if r.pather == nil {
				return ErrUnreachable
			}
			path, ok := r.pather.FindPath(c.X, c.Y, t.X, t.Y)
			if !ok {
				return fmt.Errorf("%s target: %w", s, ErrUnreachable)
			}
			c.path = path
			c.progress = 0
			c.Intent = s
			r.transition(c, StateWalk)
			return nil
		}
		c.Intent = s
	default:
		if c.HasPath() {
			if !s.queueable() {
				return fmt.Errorf("queue %s: %w", s, ErrIllegalTransition)
			}
			c.Intent = s
			r.transition(c, StateWalk)
			return nil
		}
		if !table[s].enter(r, c) {
			return fmt.Errorf("%s to %s: %w", c.State, s, ErrIllegalTransition)
		}
		c.State = s
		c.LastStateChange = r.now
		c.Age = 0
		c.mark(DirtyState)
		return nil
	}
	r.transition(c, s)
	return nil
}

func (s State) queueable() bool {
	switch s {
	case StateHeal, StateEat, StateConvert, StateSpawn:
		return true
	}
	return false
}

// SetConversionType picks the kind a later conversion produces.
func (r *Registry) SetConversionType(c *Creature, kind Kind) error {
	if c == nil || !c.Alive() {
		return ErrInvalidReference
	}
	if !kind.Valid() {
		return fmt.Errorf("convert to %d: %w", kind, ErrInvalidKind)
	}
	if c.State == StateConvert {
		return fmt.Errorf("conversion running: %w", ErrIllegalTransition)
	}
	if kind != c.Type && r.rules.ConversionCost(c.Type, kind) == 0 {
		return fmt.Errorf("%s to %s: %w", c.Type, kind, ErrIllegalTransition)
	}
	c.ConvertType = kind
	return nil
}

// SetMessage shows a short text above the creature, truncated to MessageLen.
func (r *Registry) SetMessage(c *Creature, text string) error {
	if c == nil || !c.Alive() {
		return ErrInvalidReference
	}
	r.say(c, text)
	return nil
}

// Suicide kills c immediately; its food drops where it stood.
func (r *Registry) Suicide(c *Creature) error {
	return r.Kill(c, c)
}

func locked(c *Creature) bool {
	return c.State == StateConvert || c.State == StateSpawn
}
