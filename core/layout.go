package core

import "math"

// LayoutParams holds the canvas geometry and force constants of the
// force-directed layout.
type LayoutParams struct {
	Width   float64 `json:"width" yaml:"width"`
	Height  float64 `json:"height" yaml:"height"`
	Padding float64 `json:"padding" yaml:"padding"`

	MaxTicks     int     `json:"maxTicks" yaml:"maxTicks"`
	KRepulse     float64 `json:"kRepulse" yaml:"kRepulse"`
	KAttract     float64 `json:"kAttract" yaml:"kAttract"`
	TargetLength float64 `json:"targetLength" yaml:"targetLength"`
	KGravity     float64 `json:"kGravity" yaml:"kGravity"`

	// MaxZoom caps the zoom-to-fit scale factor.
	MaxZoom float64 `json:"maxZoom" yaml:"maxZoom"`
}

// DefaultLayoutParams returns the stock 800x600 canvas settings.
func DefaultLayoutParams() LayoutParams {
	return LayoutParams{
		Width:        800,
		Height:       600,
		Padding:      40,
		MaxTicks:     100,
		KRepulse:     8000,
		KAttract:     0.05,
		TargetLength: 120,
		KGravity:     0.01,
		MaxZoom:      2.0,
	}
}

// Center returns the canvas centre.
func (p LayoutParams) Center() Point {
	return Point{X: p.Width / 2, Y: p.Height / 2}
}

// minDistance keeps repulsion finite for nearly coincident members.
const minDistance = 1.0

// minAlpha is the floor of the cooling multiplier.
const minAlpha = 0.01

// LayoutState is everything one layout step needs. Tick is the number of
// steps already applied.
type LayoutState struct {
	Members   []string
	Links     []Link
	Positions Positions
	Tick      int
	Params    LayoutParams
}

// Done reports whether the tick budget is exhausted.
func (s LayoutState) Done() bool { return s.Tick >= s.Params.MaxTicks }

// Alpha is the step multiplier for the current tick.
func (s LayoutState) Alpha() float64 {
	if s.Params.MaxTicks <= 0 {
		return minAlpha
	}
	return math.Max(minAlpha, 1-float64(s.Tick)/float64(s.Params.MaxTicks))
}

// Tick applies one step of repulsion, spring attraction along links and
// gravity towards the canvas centre. It returns a new state; the input is
// not modified. Members without a position start at the centre.
func Tick(s LayoutState) LayoutState {
	p := s.Params
	center := p.Center()

	pos := make(Positions, len(s.Members))
	for _, id := range s.Members {
		if cur, ok := s.Positions[id]; ok && cur.IsFinite() {
			pos[id] = cur
		} else {
			pos[id] = center
		}
	}

	force := make(map[string]Point, len(s.Members))

	// Repulsion between every unordered pair.
	for i := 0; i < len(s.Members); i++ {
		a := s.Members[i]
		for j := i + 1; j < len(s.Members); j++ {
			b := s.Members[j]
			delta := pos[a].Sub(pos[b])
			d := delta.Norm()
			var unit Point
			if d == 0 {
				// Coincident: separate along x, earlier member to the left.
				unit = Point{X: -1}
			} else {
				unit = delta.Scale(1 / d)
			}
			d = math.Max(d, minDistance)
			f := unit.Scale(p.KRepulse / (d * d))
			force[a] = force[a].Add(f)
			force[b] = force[b].Sub(f)
		}
	}

	// Springs along derived links.
	for _, l := range s.Links {
		from, okA := pos[l.From]
		to, okB := pos[l.To]
		if !okA || !okB || l.From == l.To {
			continue
		}
		delta := to.Sub(from)
		d := delta.Norm()
		if d == 0 {
			continue
		}
		f := delta.Scale(p.KAttract * (d - p.TargetLength) / d)
		force[l.From] = force[l.From].Add(f)
		force[l.To] = force[l.To].Sub(f)
	}

	alpha := s.Alpha()
	next := make(Positions, len(pos))
	for _, id := range s.Members {
		cur := pos[id]
		f := force[id].Add(center.Sub(cur).Scale(p.KGravity))
		if !f.IsFinite() {
			f = Point{}
		}
		next[id] = clampToCanvas(cur.Add(f.Scale(alpha)), p)
	}

	return LayoutState{
		Members:   s.Members,
		Links:     s.Links,
		Positions: next,
		Tick:      s.Tick + 1,
		Params:    p,
	}
}

func clampToCanvas(pt Point, p LayoutParams) Point {
	return Point{
		X: clamp(pt.X, p.Padding, p.Width-p.Padding),
		Y: clamp(pt.Y, p.Padding, p.Height-p.Padding),
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return (lo + hi) / 2
	}
	return math.Min(math.Max(v, lo), hi)
}

// InitialPlacement seeds positions for members of n that have none in
// existing. Mesh and custom members sit on a circle of radius
// 0.35*min(width, height) around the centre, evenly spaced by index. A star
// hub sits at the centre with the other members on the circle. Multihop
// members are spread along a horizontal line in chain order, inset by the
// padding. The result only contains current members.
func InitialPlacement(n *Network, existing Positions, p LayoutParams) Positions {
	out := make(Positions, len(n.Members))
	for _, m := range n.Members {
		if pt, ok := existing[m.ID]; ok && pt.IsFinite() {
			out[m.ID] = pt
		}
	}

	center := p.Center()
	place := func(id string, pt Point) {
		if _, ok := out[id]; !ok {
			out[id] = pt
		}
	}

	switch n.Type {
	case TopologyMultihop:
		order := chainOrder(n)
		y := center.Y
		if len(order) == 1 {
			place(order[0], center)
			break
		}
		span := p.Width - 2*p.Padding
		for i, id := range order {
			x := p.Padding + span*float64(i)/float64(len(order)-1)
			place(id, Point{X: x, Y: y})
		}

	case TopologyStar:
		hub := n.HubID()
		ring := make([]string, 0, len(n.Members))
		for _, m := range n.Members {
			if hub != "" && m.ID == hub {
				place(m.ID, center)
				continue
			}
			ring = append(ring, m.ID)
		}
		placeOnCircle(ring, center, p, place)

	default:
		placeOnCircle(n.MemberIDs(), center, p, place)
	}
	return out
}

func placeOnCircle(ids []string, center Point, p LayoutParams, place func(string, Point)) {
	r := 0.35 * math.Min(p.Width, p.Height)
	for i, id := range ids {
		theta := 2*math.Pi*float64(i)/float64(len(ids)) - math.Pi/2
		place(id, Point{X: center.X + r*math.Cos(theta), Y: center.Y + r*math.Sin(theta)})
	}
}

// chainOrder is the relay order followed by any members not on the path.
func chainOrder(n *Network) []string {
	if len(n.Path) == 0 {
		return n.MemberIDs()
	}
	order := append([]string{}, n.Path...)
	onPath := make(map[string]bool, len(n.Path))
	for _, id := range n.Path {
		onPath[id] = true
	}
	for _, m := range n.Members {
		if !onPath[m.ID] {
			order = append(order, m.ID)
		}
	}
	return order
}

// ZoomToFit rescales positions uniformly about their bounding-box centre so
// the box fits inside the padded canvas, then moves that centre onto the
// canvas centre. The scale never exceeds MaxZoom.
func ZoomToFit(pos Positions, p LayoutParams) Positions {
	b, ok := BoundingBox(pos)
	if !ok {
		return Positions{}
	}

	availW := p.Width - 2*p.Padding
	availH := p.Height - 2*p.Padding
	scale := p.MaxZoom
	if scale <= 0 {
		scale = 1
	}
	if w := b.Width(); w > 0 {
		scale = math.Min(scale, availW/w)
	}
	if h := b.Height(); h > 0 {
		scale = math.Min(scale, availH/h)
	}

	src := b.Center()
	dst := p.Center()
	out := make(Positions, len(pos))
	for id, pt := range pos {
		out[id] = dst.Add(pt.Sub(src).Scale(scale))
	}
	return out
}
