package terrain

// Params shapes a generated map.
type Params struct {
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	WallDensity float64 `yaml:"wall_density"`
	FoodAmount  int     `yaml:"food_amount"`
	FoodSpots   int     `yaml:"food_spots"`
}

func DefaultParams() Params {
	return Params{
		Width:       30,
		Height:      30,
		WallDensity: 0.35,
		FoodAmount:  50000,
		FoodSpots:   10,
	}
}

type point struct{ x, y int }

// Generate builds a cave-like map from seed: random walls smoothed by a
// cellular automaton, every plain pocket except the largest filled in, the
// hill placed nearest the centre and food spawners scattered on the rest.
func Generate(p Params, seed string) *Map {
	w := min(max(p.Width, MinSize), MaxSize)
	h := min(max(p.Height, MinSize), MaxSize)
	density := min(max(p.WallDensity, 0), 0.6)
	rng := NewRNG(seed, "terrain")

	solid := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			border := x == 0 || y == 0 || x == w-1 || y == h-1
			solid[y*w+x] = border || rng.Float64() < density
		}
	}
	for pass := 0; pass < 5; pass++ {
		next := append([]bool(nil), solid...)
		for y := 1; y < h-1; y++ {
			for x := 1; x < w-1; x++ {
				walls := 0
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if (dx != 0 || dy != 0) && solid[(y+dy)*w+x+dx] {
							walls++
						}
					}
				}
				switch {
				case walls >= 5:
					next[y*w+x] = true
				case walls <= 3:
					next[y*w+x] = false
				}
			}
		}
		solid = next
	}

	region := largestRegion(solid, w, h)
	m := New(w, h)
	m.rng = NewRNG(seed, "terrain.food")
	for _, pt := range region {
		m.SetKind(pt.x, pt.y, TilePlain)
	}

	best := -1
	for _, pt := range region {
		dx, dy := pt.x-w/2, pt.y-h/2
		if d := dx*dx + dy*dy; best < 0 || d < best {
			best = d
			m.kothX, m.kothY = pt.x, pt.y
		}
	}

	if len(region) > 0 && p.FoodSpots > 0 {
		perSpot := p.FoodAmount / p.FoodSpots
		for i := 0; i < min(p.FoodSpots, len(region)); i++ {
			pt := region[rng.Intn(len(region))]
			m.AddSpawner(FoodSpawner{
				X:        pt.x,
				Y:        pt.y,
				Radius:   2 + rng.Intn(3),
				Amount:   perSpot / 20,
				Interval: 5000,
			})
			m.AddFood(pt.x, pt.y, perSpot/4)
		}
	}
	return m
}

func largestRegion(solid []bool, w, h int) []point {
	seen := make([]bool, len(solid))
	var best []point
	for start := range solid {
		if solid[start] || seen[start] {
			continue
		}
		var region []point
		queue := []int{start}
		seen[start] = true
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			x, y := i%w, i/w
			region = append(region, point{x, y})
			for _, d := range [4]point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				nx, ny := x+d.x, y+d.y
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				n := ny*w + nx
				if !solid[n] && !seen[n] {
					seen[n] = true
					queue = append(queue, n)
				}
			}
		}
		if len(region) > len(best) {
			best = region
		}
	}
	return best
}
