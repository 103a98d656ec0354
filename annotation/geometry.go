package annotation

import (
	"errors"
	"math"
)

var (
	// ErrDegenerateGeometry is returned when a shape cannot be constructed
	// from the given points.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
)

// Point is a 2D coordinate in image pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the euclidean distance to another point.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// BBox is an axis-aligned bounding box.
type BBox struct {
	XMin float64 `json:"x_min"`
	YMin float64 `json:"y_min"`
	XMax float64 `json:"x_max"`
	YMax float64 `json:"y_max"`
}

// NewBBox constructs a bounding box, rejecting inverted extents.
func NewBBox(xMin, yMin, xMax, yMax float64) (BBox, error) {
	if xMax < xMin || yMax < yMin {
		return BBox{}, ErrDegenerateGeometry
	}
	return BBox{XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax}, nil
}

// Area returns the box area.
func (b BBox) Area() float64 {
	return (b.XMax - b.XMin) * (b.YMax - b.YMin)
}

// Intersects reports whether two boxes overlap (shared edges count).
func (b BBox) Intersects(o BBox) bool {
	return b.XMin <= o.XMax && o.XMin <= b.XMax &&
		b.YMin <= o.YMax && o.YMin <= b.YMax
}

// Union returns the smallest box containing both boxes.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		XMin: math.Min(b.XMin, o.XMin),
		YMin: math.Min(b.YMin, o.YMin),
		XMax: math.Max(b.XMax, o.XMax),
		YMax: math.Max(b.YMax, o.YMax),
	}
}

// Points returns the box corners in clockwise order starting top-left.
func (b BBox) Points() []Point {
	return []Point{
		{X: b.XMin, Y: b.YMin},
		{X: b.XMax, Y: b.YMin},
		{X: b.XMax, Y: b.YMax},
		{X: b.XMin, Y: b.YMax},
	}
}

// Polygon is a simple closed polygon. The vertex ring is implicit: the last
// point connects back to the first.
type Polygon struct {
	Vertices []Point `json:"vertices"`
}

// NewPolygon constructs a polygon from at least three vertices.
func NewPolygon(vertices []Point) (Polygon, error) {
	if len(vertices) < 3 {
		return Polygon{}, ErrDegenerateGeometry
	}
	return Polygon{Vertices: vertices}, nil
}

// Area returns the polygon area via the shoelace formula.
func (p Polygon) Area() float64 {
	var sum float64
	n := len(p.Vertices)
	for i := 0; i < n; i++ {
		a, b := p.Vertices[i], p.Vertices[(i+1)%n]
		sum += a.X*b.Y - b.X*a.Y
	}
	return math.Abs(sum) / 2
}

// Bounds returns the polygon's axis-aligned bounding box.
func (p Polygon) Bounds() BBox {
	b := BBox{XMin: math.Inf(1), YMin: math.Inf(1), XMax: math.Inf(-1), YMax: math.Inf(-1)}
	for _, v := range p.Vertices {
		b.XMin = math.Min(b.XMin, v.X)
		b.YMin = math.Min(b.YMin, v.Y)
		b.XMax = math.Max(b.XMax, v.X)
		b.YMax = math.Max(b.YMax, v.Y)
	}
	return b
}

// Intersects reports whether two polygons touch or overlap. Edge crossing and
// full containment are both checked.
func (p Polygon) Intersects(o Polygon) bool {
	if !p.Bounds().Intersects(o.Bounds()) {
		return false
	}
	for i := range p.Vertices {
		a1 := p.Vertices[i]
		a2 := p.Vertices[(i+1)%len(p.Vertices)]
		for j := range o.Vertices {
			b1 := o.Vertices[j]
			b2 := o.Vertices[(j+1)%len(o.Vertices)]
			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return p.Contains(o.Vertices[0]) || o.Contains(p.Vertices[0])
}

// Contains reports whether the point lies inside the polygon (ray casting).
func (p Polygon) Contains(pt Point) bool {
	inside := false
	n := len(p.Vertices)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p.Vertices[i], p.Vertices[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) &&
			pt.X < (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// Union returns the bounding box covering both polygons. Exact polygon union
// is not needed by any backend mapping.
func (p Polygon) Union(o Polygon) BBox {
	return p.Bounds().Union(o.Bounds())
}

// Polyline is an open chain of segments.
type Polyline struct {
	Vertices []Point `json:"vertices"`
}

// NewPolyline constructs a polyline from at least two vertices.
func NewPolyline(vertices []Point) (Polyline, error) {
	if len(vertices) < 2 {
		return Polyline{}, ErrDegenerateGeometry
	}
	return Polyline{Vertices: vertices}, nil
}

// Length returns the total path length.
func (l Polyline) Length() float64 {
	var sum float64
	for i := 1; i < len(l.Vertices); i++ {
		sum += l.Vertices[i-1].Distance(l.Vertices[i])
	}
	return sum
}

// Bounds returns the polyline's axis-aligned bounding box.
func (l Polyline) Bounds() BBox {
	b := BBox{XMin: math.Inf(1), YMin: math.Inf(1), XMax: math.Inf(-1), YMax: math.Inf(-1)}
	for _, v := range l.Vertices {
		b.XMin = math.Min(b.XMin, v.X)
		b.YMin = math.Min(b.YMin, v.Y)
		b.XMax = math.Max(b.XMax, v.X)
		b.YMax = math.Max(b.YMax, v.Y)
	}
	return b
}

// Intersects reports whether any segment of l crosses any segment of o.
func (l Polyline) Intersects(o Polyline) bool {
	for i := 1; i < len(l.Vertices); i++ {
		for j := 1; j < len(o.Vertices); j++ {
			if segmentsIntersect(l.Vertices[i-1], l.Vertices[i], o.Vertices[j-1], o.Vertices[j]) {
				return true
			}
		}
	}
	return false
}

func segmentsIntersect(p1, p2, q1, q2 Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

func cross(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

func onSegment(a, b, p Point) bool {
	return math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= p.Y && p.Y <= math.Max(a.Y, b.Y)
}
