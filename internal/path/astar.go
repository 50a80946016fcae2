package path

import (
	"container/heap"
	"math"

	"swarm/server/internal/creature"
)

// Grid is the walkability view the planner searches.
type Grid interface {
	Size() (width, height int)
	Walkable(x, y int) bool
}

type neighbor struct {
	dx, dy   int
	cost     float64
	diagonal bool
}

var neighborOffsets = [...]neighbor{
	{dx: 0, dy: -1, cost: 1},
	{dx: 1, dy: 0, cost: 1},
	{dx: 0, dy: 1, cost: 1},
	{dx: -1, dy: 0, cost: 1},
	{dx: 1, dy: -1, cost: math.Sqrt2, diagonal: true},
	{dx: 1, dy: 1, cost: math.Sqrt2, diagonal: true},
	{dx: -1, dy: 1, cost: math.Sqrt2, diagonal: true},
	{dx: -1, dy: -1, cost: math.Sqrt2, diagonal: true},
}

type Point struct{ X, Y int }

// Finder plans tile routes with A*. Diagonal steps never cut a wall corner.
type Finder struct {
	grid Grid
	// MaxNodes bounds the number of expanded tiles; zero means the whole grid.
	MaxNodes int
}

func NewFinder(grid Grid) *Finder {
	return &Finder{grid: grid}
}

// FindPath returns the route from the start tile (excluded) to the goal. A
// walk to the start tile itself is an empty, already exhausted route.
func (f *Finder) FindPath(fromX, fromY, toX, toY int) (creature.Path, bool) {
	points, ok := f.Route(Point{fromX, fromY}, Point{toX, toY})
	if !ok {
		return nil, false
	}
	return &Route{points: points}, true
}

// Route is FindPath without the handle; the start tile is excluded.
func (f *Finder) Route(start, goal Point) ([]Point, bool) {
	if f == nil || f.grid == nil || !f.grid.Walkable(goal.X, goal.Y) {
		return nil, false
	}
	w, h := f.grid.Size()
	if start.X < 0 || start.Y < 0 || start.X >= w || start.Y >= h {
		return nil, false
	}
	if start == goal {
		return nil, true
	}
	nodes, ok := f.astar(start, goal, w)
	if !ok {
		return nil, false
	}
	return nodes[1:], true
}

func (f *Finder) canTraverseDiagonal(p Point, d neighbor) bool {
	if !d.diagonal {
		return true
	}
	return f.grid.Walkable(p.X+d.dx, p.Y) && f.grid.Walkable(p.X, p.Y+d.dy)
}

// heuristic is the octile distance.
func heuristic(a, b Point) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dy := math.Abs(float64(a.Y - b.Y))
	if dx > dy {
		return dx + (math.Sqrt2-1)*dy
	}
	return dy + (math.Sqrt2-1)*dx
}

type node struct {
	point  Point
	g      float64
	f      float64
	index  int
	parent *node
}

type queue []*node

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool { return q[i].f < q[j].f }

func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *queue) Push(x any) {
	item := x.(*node)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

func (f *Finder) astar(start, goal Point, width int) ([]Point, bool) {
	index := func(p Point) int { return p.Y*width + p.X }
	open := &queue{}
	heap.Push(open, &node{point: start, f: heuristic(start, goal)})
	gScore := map[int]float64{index(start): 0}
	closed := make(map[int]struct{})

	for open.Len() > 0 {
		current := heap.Pop(open).(*node)
		idx := index(current.point)
		if _, seen := closed[idx]; seen {
			continue
		}
		closed[idx] = struct{}{}
		if current.point == goal {
			return reconstruct(current), true
		}
		if f.MaxNodes > 0 && len(closed) >= f.MaxNodes {
			return nil, false
		}
		for _, d := range neighborOffsets {
			next := Point{current.point.X + d.dx, current.point.Y + d.dy}
			if !f.grid.Walkable(next.X, next.Y) || !f.canTraverseDiagonal(current.point, d) {
				continue
			}
			nIdx := index(next)
			if _, seen := closed[nIdx]; seen {
				continue
			}
			tentative := current.g + d.cost
			if prev, ok := gScore[nIdx]; ok && tentative >= prev {
				continue
			}
			gScore[nIdx] = tentative
			heap.Push(open, &node{
				point:  next,
				g:      tentative,
				f:      tentative + heuristic(next, goal),
				parent: current,
			})
		}
	}
	return nil, false
}

func reconstruct(end *node) []Point {
	var points []Point
	for n := end; n != nil; n = n.parent {
		points = append(points, n.point)
	}
	for i := 0; i < len(points)/2; i++ {
		j := len(points) - 1 - i
		points[i], points[j] = points[j], points[i]
	}
	return points
}
