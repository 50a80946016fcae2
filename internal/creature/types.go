package creature

const (
	// MaxCreatures bounds the registry; spawning beyond it fails.
	MaxCreatures = 256
	// Colors is the size of the player color palette.
	Colors = 16
	// Types counts creature kinds, including the reserved slot.
	Types = 4
	// Directions is the number of discrete headings a creature can face.
	Directions = 32
	// TileSize converts tile coordinates into world units for distances.
	TileSize = 256
	// MessageLen caps the transient message text.
	MessageLen = 8
	// NoDistance is returned by spatial queries that found nothing.
	NoDistance = -1
	// Unowned marks creatures that belong to no player.
	Unowned = 0
)

// Kind selects the per-type rule tables.
type Kind uint8

const (
	KindSmall Kind = iota
	KindBig
	KindFlyer
	KindReserved
)

func (k Kind) Valid() bool {
	return k < KindReserved
}

func (k Kind) String() string {
	switch k {
	case KindSmall:
		return "small"
	case KindBig:
		return "big"
	case KindFlyer:
		return "flyer"
	default:
		return "reserved"
	}
}

// ParseKind maps a kind name onto a playable kind.
func ParseKind(name string) (Kind, bool) {
	for k := KindSmall; k < KindReserved; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// State is the current behavior of a creature.
type State uint8

const (
	StateIdle State = iota
	StateWalk
	StateHeal
	StateEat
	StateAttack
	StateConvert
	StateSpawn
	StateFeed
	stateCount
)

var stateNames = [stateCount]string{"idle", "walk", "heal", "eat", "attack", "convert", "spawn", "feed"}

func (s State) Valid() bool {
	return s < stateCount
}

func (s State) String() string {
	if !s.Valid() {
		return "unknown"
	}
	return stateNames[s]
}

// ParseState maps a wire name back onto a state.
func ParseState(name string) (State, bool) {
	for i, n := range stateNames {
		if n == name {
			return State(i), true
		}
	}
	return 0, false
}

// DirtyMask marks which attribute groups changed since the last flush.
type DirtyMask uint8

const (
	DirtyAlive DirtyMask = 1 << iota
	DirtyPos
	DirtyType
	DirtyFood
	DirtyHealth
	DirtyState
	DirtyTarget
	DirtyMessage

	DirtyNone DirtyMask = 0
	DirtyAll  DirtyMask = 0xFF
)

func (m DirtyMask) Has(bits DirtyMask) bool {
	return m&bits == bits
}

// Ref is a weak reference to a creature slot. Gen 0 means unset; a stale
// generation never resolves.
type Ref struct {
	Slot int
	Gen  uint32
}

func (r Ref) IsSet() bool {
	return r.Gen != 0
}
