package path

import (
	"strings"
	"testing"
)

type asciiGrid []string

func parseGrid(rows ...string) asciiGrid { return asciiGrid(rows) }

func (g asciiGrid) Size() (int, int) { return len(g[0]), len(g) }

func (g asciiGrid) Walkable(x, y int) bool {
	return y >= 0 && y < len(g) && x >= 0 && x < len(g[y]) && g[y][x] != '#'
}

func TestRouteExcludesStartAndReachesGoal(t *testing.T) {
	grid := parseGrid(
		"......",
		"......",
	)
	points, ok := NewFinder(grid).Route(Point{0, 0}, Point{3, 0})
	if !ok {
		t.Fatalf("expected a route")
	}
	want := []Point{{1, 0}, {2, 0}, {3, 0}}
	if len(points) != len(want) {
		t.Fatalf("expected %v, got %v", want, points)
	}
	for i := range want {
		if points[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, points)
		}
	}
}

func TestRouteWalksAroundWalls(t *testing.T) {
	grid := parseGrid(
		".#...",
		".#.#.",
		"...#.",
	)
	points, ok := NewFinder(grid).Route(Point{0, 0}, Point{4, 0})
	if !ok {
		t.Fatalf("expected a route around the walls")
	}
	prev := Point{0, 0}
	for _, p := range points {
		if !grid.Walkable(p.X, p.Y) {
			t.Fatalf("route crosses wall at %v", p)
		}
		dx, dy := p.X-prev.X, p.Y-prev.Y
		if dx < -1 || dx > 1 || dy < -1 || dy > 1 {
			t.Fatalf("route jumps from %v to %v", prev, p)
		}
		if dx != 0 && dy != 0 && (!grid.Walkable(prev.X+dx, prev.Y) || !grid.Walkable(prev.X, prev.Y+dy)) {
			t.Fatalf("route cuts a corner from %v to %v", prev, p)
		}
		prev = p
	}
	if prev != (Point{4, 0}) {
		t.Fatalf("route ends at %v", prev)
	}
}

func TestRouteFailures(t *testing.T) {
	grid := parseGrid(
		"..#..",
		"..#..",
	)
	finder := NewFinder(grid)
	cases := []struct {
		name        string
		start, goal Point
	}{
		{"sealed off", Point{0, 0}, Point{4, 0}},
		{"goal is a wall", Point{0, 0}, Point{2, 1}},
		{"goal off map", Point{0, 0}, Point{9, 9}},
		{"start off map", Point{-1, 0}, Point{1, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := finder.Route(tc.start, tc.goal); ok {
				t.Fatalf("expected no route")
			}
		})
	}
}

func TestFindPathHandle(t *testing.T) {
	grid := parseGrid(strings.Repeat(".", 4))
	p, ok := NewFinder(grid).FindPath(0, 0, 2, 0)
	if !ok {
		t.Fatalf("expected a path")
	}
	for _, want := range []int{1, 2} {
		x, _, ok := p.Next()
		if !ok || x != want {
			t.Fatalf("expected x=%d, got %d ok=%v", want, x, ok)
		}
		p.Advance()
	}
	if !p.Exhausted() {
		t.Fatalf("expected exhausted path")
	}
	if _, _, ok := p.Next(); ok {
		t.Fatalf("exhausted path returned a step")
	}

	same, ok := NewFinder(grid).FindPath(1, 0, 1, 0)
	if !ok || !same.Exhausted() {
		t.Fatalf("walk to own tile should be an empty route")
	}
}

func TestMaxNodesBoundsSearch(t *testing.T) {
	grid := parseGrid(strings.Repeat(".", 40))
	finder := NewFinder(grid)
	finder.MaxNodes = 5
	if _, ok := finder.Route(Point{0, 0}, Point{39, 0}); ok {
		t.Fatalf("expected search to give up")
	}
}
