package creature

// Terrain answers tile queries and owns the food lying on each tile.
type Terrain interface {
	Size() (width, height int)
	Walkable(x, y int) bool
	FoodAt(x, y int) int
	// EatFood removes up to amount and returns what was actually taken.
	EatFood(x, y, amount int) int
	AddFood(x, y, amount int)
}

// Path is a queued walk handed out by a Pather. The start tile is never part
// of the path.
type Path interface {
	Next() (x, y int, ok bool)
	Advance()
	Exhausted() bool
}

type Pather interface {
	FindPath(fromX, fromY, toX, toY int) (Path, bool)
}

// Players is the ownership and scoring side of the match.
type Players interface {
	Color(owner int) int
	AddScore(owner, points int)
}
