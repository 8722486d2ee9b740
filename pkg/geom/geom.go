package geom

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrDegenerate is returned for polygons without area.
var ErrDegenerate = errors.New("degenerate polygon")

// Point is a position or displacement in output coordinates.
type Point = r2.Vec

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Rotate rotates v by angle radians about the origin.
func Rotate(v Point, angle float64) Point {
	return r2.Rotate(v, angle, r2.Vec{})
}

// IntPoint is a rounded output coordinate, the unit markers are stored in.
type IntPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect is an oriented rectangle centred on Center. Width runs along the
// rotated x axis, Height along the rotated y axis.
type Rect struct {
	Center   Point   `json:"center"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
}

// Polygon renders r to its four corners: bottom-left, bottom-right,
// top-right, top-left (labelled before rotation).
func (r Rect) Polygon() Polygon {
	hw, hh := r.Width/2, r.Height/2
	corners := [4]Point{
		{X: -hw, Y: -hh},
		{X: hw, Y: -hh},
		{X: hw, Y: hh},
		{X: -hw, Y: hh},
	}

	poly := make(Polygon, len(corners))
	for i, c := range corners {
		v := r2.Add(r.Center, Rotate(c, r.Rotation))
		poly[i] = IntPoint{X: round(v.X), Y: round(v.Y)}
	}
	return poly
}

// Round rounds p to the nearest integer point, ties to even.
func Round(p Point) IntPoint {
	return IntPoint{X: round(p.X), Y: round(p.Y)}
}

func round(f float64) int {
	return int(math.RoundToEven(f))
}

// Polygon is an ordered ring of integer points. The ring is implicitly
// closed: the last point connects back to the first.
type Polygon []IntPoint

// Area returns the signed shoelace area. Counter-clockwise rings in a
// y-up frame are positive.
func (p Polygon) Area() float64 {
	var sum float64
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		sum += float64(a.X*b.Y - b.X*a.Y)
	}
	return sum / 2
}

// Centroid returns the area centroid of p rounded to integer coordinates.
// A polygon with zero area has no centroid and yields ErrDegenerate.
func (p Polygon) Centroid() (IntPoint, error) {
	area := p.Area()
	if len(p) < 3 || area == 0 {
		return IntPoint{}, ErrDegenerate
	}

	var cx, cy float64
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		cross := float64(a.X*b.Y - b.X*a.Y)
		cx += float64(a.X+b.X) * cross
		cy += float64(a.Y+b.Y) * cross
	}
	f := 1 / (6 * area)
	return IntPoint{X: round(cx * f), Y: round(cy * f)}, nil
}

// Bounds returns the axis-aligned bounding box of p as min and max corners.
func (p Polygon) Bounds() (lo, hi IntPoint) {
	if len(p) == 0 {
		return lo, hi
	}
	lo, hi = p[0], p[0]
	for _, q := range p[1:] {
		lo.X, hi.X = min(lo.X, q.X), max(hi.X, q.X)
		lo.Y, hi.Y = min(lo.Y, q.Y), max(hi.Y, q.Y)
	}
	return lo, hi
}
