package terrain

import "math/rand"

const (
	// MaxTileFood caps the food a single tile can hold.
	MaxTileFood = 9999
	MinSize     = 20
	MaxSize     = 64
)

type TileKind uint8

const (
	TileSolid TileKind = iota
	TilePlain
)

type Tile struct {
	Kind TileKind `json:"kind"`
	Food int      `json:"food"`
}

// FoodSpawner drops Amount food on a random plain tile within Radius of its
// centre every Interval milliseconds.
type FoodSpawner struct {
	X        int   `json:"x" yaml:"x"`
	Y        int   `json:"y" yaml:"y"`
	Radius   int   `json:"radius" yaml:"radius"`
	Amount   int   `json:"amount" yaml:"amount"`
	Interval int64 `json:"interval" yaml:"interval"`
	next     int64
}

// Map is the tile grid creatures walk and forage on. It is not safe for
// concurrent use.
type Map struct {
	width, height int
	tiles         []Tile
	spawners      []FoodSpawner
	kothX, kothY  int
	rng           *rand.Rand
}

func New(width, height int) *Map {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	return &Map{
		width:  width,
		height: height,
		tiles:  make([]Tile, width*height),
		rng:    rand.New(rand.NewSource(1)),
	}
}

func (m *Map) Size() (int, int) { return m.width, m.height }

func (m *Map) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.width && y < m.height
}

func (m *Map) tile(x, y int) *Tile {
	if !m.inBounds(x, y) {
		return nil
	}
	return &m.tiles[y*m.width+x]
}

func (m *Map) SetKind(x, y int, kind TileKind) bool {
	t := m.tile(x, y)
	if t == nil {
		return false
	}
	t.Kind = kind
	return true
}

func (m *Map) Walkable(x, y int) bool {
	t := m.tile(x, y)
	return t != nil && t.Kind == TilePlain
}

func (m *Map) FoodAt(x, y int) int {
	if t := m.tile(x, y); t != nil {
		return t.Food
	}
	return 0
}

// AddFood adds to a tile, clamping to [0, MaxTileFood].
func (m *Map) AddFood(x, y, amount int) {
	t := m.tile(x, y)
	if t == nil {
		return
	}
	t.Food = min(max(t.Food+amount, 0), MaxTileFood)
}

// EatFood removes up to amount and returns what was taken.
func (m *Map) EatFood(x, y, amount int) int {
	t := m.tile(x, y)
	if t == nil || amount <= 0 {
		return 0
	}
	eaten := min(amount, t.Food)
	t.Food -= eaten
	return eaten
}

// Koth is the king-of-the-hill tile near the map centre.
func (m *Map) Koth() (int, int) { return m.kothX, m.kothY }

func (m *Map) Spawners() []FoodSpawner {
	return append([]FoodSpawner(nil), m.spawners...)
}

func (m *Map) AddSpawner(s FoodSpawner) {
	if s.Interval <= 0 {
		s.Interval = 5000
	}
	m.spawners = append(m.spawners, s)
}

// TotalFood sums the food lying on every tile.
func (m *Map) TotalFood() int {
	total := 0
	for _, t := range m.tiles {
		total += t.Food
	}
	return total
}

// Tiles copies the grid row by row.
func (m *Map) Tiles() []Tile {
	return append([]Tile(nil), m.tiles...)
}

// Grow runs every food spawner that is due at game time now (milliseconds).
func (m *Map) Grow(now int64) int {
	grown := 0
	for i := range m.spawners {
		s := &m.spawners[i]
		if now < s.next {
			continue
		}
		s.next = now + s.Interval
		for attempt := 0; attempt < 8; attempt++ {
			x := s.X + m.rng.Intn(2*s.Radius+1) - s.Radius
			y := s.Y + m.rng.Intn(2*s.Radius+1) - s.Radius
			if m.Walkable(x, y) {
				m.AddFood(x, y, s.Amount)
				grown += s.Amount
				break
			}
		}
	}
	return grown
}

// RandomPlain picks a walkable tile, or false on a map without any.
func (m *Map) RandomPlain(rng *rand.Rand) (int, int, bool) {
	if rng == nil {
		rng = m.rng
	}
	for attempt := 0; attempt < 4*len(m.tiles); attempt++ {
		i := rng.Intn(len(m.tiles))
		if m.tiles[i].Kind == TilePlain {
			return i % m.width, i / m.width, true
		}
	}
	for i, t := range m.tiles {
		if t.Kind == TilePlain {
			return i % m.width, i / m.width, true
		}
	}
	return 0, 0, false
}
