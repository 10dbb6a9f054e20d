package core

import "math"

// Point is a canvas coordinate in pixels. Y grows downwards.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p * k.
func (p Point) Scale(k float64) Point { return Point{X: p.X * k, Y: p.Y * k} }

// Norm returns the Euclidean length of p.
func (p Point) Norm() float64 { return math.Hypot(p.X, p.Y) }

// DistanceTo returns the straight-line distance between two points.
func (p Point) DistanceTo(q Point) float64 { return p.Sub(q).Norm() }

// IsFinite reports whether both coordinates are finite numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Positions maps member ids to canvas coordinates. Positions are
// ephemeral and never persisted.
type Positions map[string]Point

// Clone returns a copy of pos.
func (pos Positions) Clone() Positions {
	out := make(Positions, len(pos))
	for id, p := range pos {
		out[id] = p
	}
	return out
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min, Max Point
}

// Width of the box.
func (b Bounds) Width() float64 { return b.Max.X - b.Min.X }

// Height of the box.
func (b Bounds) Height() float64 { return b.Max.Y - b.Min.Y }

// Center of the box.
func (b Bounds) Center() Point {
	return Point{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
}

// BoundingBox returns the bounds of all positions. ok is false when pos is
// empty.
func BoundingBox(pos Positions) (b Bounds, ok bool) {
	if len(pos) == 0 {
		return Bounds{}, false
	}
	b.Min = Point{X: math.MaxFloat64, Y: math.MaxFloat64}
	b.Max = Point{X: -math.MaxFloat64, Y: -math.MaxFloat64}
	for _, p := range pos {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	return b, true
}
