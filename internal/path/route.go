package path

// Route is a planned walk consumed one tile at a time.
type Route struct {
	points []Point
	next   int
}

func NewRoute(points ...Point) *Route {
	return &Route{points: points}
}

func (r *Route) Next() (int, int, bool) {
	if r.Exhausted() {
		return 0, 0, false
	}
	p := r.points[r.next]
	return p.X, p.Y, true
}

func (r *Route) Advance() {
	if !r.Exhausted() {
		r.next++
	}
}

func (r *Route) Exhausted() bool {
	return r == nil || r.next >= len(r.points)
}

// Remaining lists the tiles not yet walked.
func (r *Route) Remaining() []Point {
	if r.Exhausted() {
		return nil
	}
	return append([]Point(nil), r.points[r.next:]...)
}
