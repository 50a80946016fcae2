package creature

import "math"

// Dist is the Euclidean distance between two creatures in world units.
func Dist(a, b *Creature) int {
	return TileDist(a.X, a.Y, b.X, b.Y)
}

func TileDist(ax, ay, bx, by int) int {
	dx := int64(ax-bx) * TileSize
	dy := int64(ay-by) * TileSize
	return int(math.Sqrt(float64(dx*dx + dy*dy)))
}

// NearestEnemy scans the live population for the closest creature owned by
// another player. Ties go to the lowest slot. It returns NoDistance when there
// is no enemy.
func (r *Registry) NearestEnemy(ref *Creature) (*Creature, int, bool) {
	var best *Creature
	bestDist := NoDistance
	if ref == nil {
		return nil, bestDist, false
	}
	for i := range r.slots {
		c := &r.slots[i]
		if !c.Alive() || c == ref || !hostile(ref, c) {
			continue
		}
		d := Dist(ref, c)
		if best == nil || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist, best != nil
}

// heading maps a step onto one of Directions headings, 0 pointing east.
func heading(dx, dy int) int {
	if dx == 0 && dy == 0 {
		return 0
	}
	angle := math.Atan2(float64(dy), float64(dx))
	dir := int(math.Round(angle / (2 * math.Pi) * Directions))
	return (dir%Directions + Directions) % Directions
}
