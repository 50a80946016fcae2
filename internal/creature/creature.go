package creature

type slotStatus uint8

const (
	slotVacant slotStatus = iota
	slotAlive
	slotDying
)

// Creature is one record of the registry arena. Callers read fields freely
// but mutate only through the Registry so dirty bits stay accurate.
type Creature struct {
	X, Y  int
	Dir   int
	Type  Kind
	Owner int
	Color int

	Food   int
	Health int

	State State
	// Intent is the action to take once the current walk ends.
	Intent          State
	LastStateChange int64
	// Age counts ticks spent in the current state.
	Age       int
	SpawnTime int64

	Target      Ref
	ConvertType Kind

	Message     string
	LastMessage int64

	Dirty DirtyMask

	path      Path
	progress  int
	decayDebt int
	agingDebt int
	bornTick  uint64

	slot   int
	gen    uint32
	status slotStatus
}

func (c *Creature) Slot() int { return c.slot }

func (c *Creature) Ref() Ref {
	return Ref{Slot: c.slot, Gen: c.gen}
}

func (c *Creature) Alive() bool { return c.status == slotAlive }

// Dying reports a creature killed this tick whose death has not yet been
// replicated. Its slot is not reusable until Reap.
func (c *Creature) Dying() bool { return c.status == slotDying }

func (c *Creature) HasPath() bool {
	return c.path != nil && !c.path.Exhausted()
}

func (c *Creature) mark(bits DirtyMask) {
	c.Dirty |= bits
}

func (c *Creature) clearPath() {
	c.path = nil
	c.progress = 0
}

// hostile holds for creatures of two different players. Unowned creatures
// are nobody's enemy.
func hostile(a, b *Creature) bool {
	return a.Owner != b.Owner && a.Owner != Unowned && b.Owner != Unowned
}

func friendly(a, b *Creature) bool {
	return a.Owner == b.Owner && a.slot != b.slot
}
