package creature

type tile struct{ x, y int }

type testTerrain struct {
	w, h    int
	food    map[tile]int
	blocked map[tile]bool
}

func newTestTerrain(w, h int) *testTerrain {
	return &testTerrain{w: w, h: h, food: map[tile]int{}, blocked: map[tile]bool{}}
}

func (t *testTerrain) Size() (int, int) { return t.w, t.h }

func (t *testTerrain) Walkable(x, y int) bool {
	return x >= 0 && y >= 0 && x < t.w && y < t.h && !t.blocked[tile{x, y}]
}

func (t *testTerrain) FoodAt(x, y int) int { return t.food[tile{x, y}] }

func (t *testTerrain) EatFood(x, y, amount int) int {
	have := t.food[tile{x, y}]
	if amount > have {
		amount = have
	}
	t.food[tile{x, y}] = have - amount
	return amount
}

func (t *testTerrain) AddFood(x, y, amount int) { t.food[tile{x, y}] += amount }

type stepPath struct {
	steps []tile
	i     int
}

func (p *stepPath) Next() (int, int, bool) {
	if p.i >= len(p.steps) {
		return 0, 0, false
	}
	return p.steps[p.i].x, p.steps[p.i].y, true
}

func (p *stepPath) Advance()        { p.i++ }
func (p *stepPath) Exhausted() bool { return p.i >= len(p.steps) }

// linePather walks along x first, then y.
type linePather struct{ terrain *testTerrain }

func (lp linePather) FindPath(fromX, fromY, toX, toY int) (Path, bool) {
	if !lp.terrain.Walkable(toX, toY) {
		return nil, false
	}
	var steps []tile
	x, y := fromX, fromY
	for x != toX {
		x += sign(toX - x)
		steps = append(steps, tile{x, y})
	}
	for y != toY {
		y += sign(toY - y)
		steps = append(steps, tile{x, y})
	}
	for _, s := range steps {
		if !lp.terrain.Walkable(s.x, s.y) {
			return nil, false
		}
	}
	return &stepPath{steps: steps}, true
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

type testPlayers struct {
	colors map[int]int
	scores map[int]int
}

func newTestPlayers() *testPlayers {
	return &testPlayers{colors: map[int]int{}, scores: map[int]int{}}
}

func (p *testPlayers) Color(owner int) int        { return p.colors[owner] }
func (p *testPlayers) AddScore(owner, points int) { p.scores[owner] += points }

type fixture struct {
	reg     *Registry
	terrain *testTerrain
	players *testPlayers
}

func newFixture(mutate func(*Rules)) fixture {
	rules := DefaultRules()
	rules.KingIntervalTicks = 0
	rules.HillPoints = 0
	rules.Aging = PerKind{}
	if mutate != nil {
		mutate(&rules)
	}
	terrain := newTestTerrain(32, 32)
	players := newTestPlayers()
	reg := NewRegistry(Config{
		Rules:   rules,
		Terrain: terrain,
		Pather:  linePather{terrain: terrain},
		Players: players,
	})
	return fixture{reg: reg, terrain: terrain, players: players}
}

func (f fixture) spawn(owner, x, y int, kind Kind) *Creature {
	c, err := f.reg.Spawn(owner, x, y, kind, 0)
	if err != nil {
		panic(err)
	}
	return c
}

func (f fixture) run(ticks, delta int) {
	for i := 0; i < ticks; i++ {
		f.reg.MoveAll(delta)
	}
}
