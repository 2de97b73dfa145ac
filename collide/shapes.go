package collide

import "math"

// Shape is a convex shape described by its support function.
type Shape interface {
	// Center returns a point inside the shape.
	Center() Vec2
	// Support returns the point of the shape farthest along dir.
	Support(dir Vec2) Vec2
}

// Circle is a disc.
type Circle struct {
	C Vec2
	R float32
}

// Center returns the circle's center.
func (c Circle) Center() Vec2 { return c.C }

// Support returns the boundary point in the direction of dir.
func (c Circle) Support(dir Vec2) Vec2 {
	n := dir.Normalize()
	if n == (Vec2{}) {
		n = Vec2{X: 1}
	}
	return c.C.Add(n.Scale(c.R))
}

// Ellipse is an axis-aligned ellipse with radii RX and RY.
type Ellipse struct {
	C      Vec2
	RX, RY float32
}

// Center returns the ellipse's center.
func (e Ellipse) Center() Vec2 { return e.C }

// Support returns the boundary point on the ray from the center along dir.
func (e Ellipse) Support(dir Vec2) Vec2 {
	n := dir.Normalize()
	if n == (Vec2{}) {
		n = Vec2{X: 1}
	}
	// A zero radius collapses the ellipse to a segment or a point.
	switch {
	case e.RX <= 0 && e.RY <= 0:
		return e.C
	case e.RX <= 0:
		return e.C.Add(Vec2{Y: copysign(e.RY, n.Y)})
	case e.RY <= 0:
		return e.C.Add(Vec2{X: copysign(e.RX, n.X)})
	}
	x, y := n.X/e.RX, n.Y/e.RY
	k := float32(1 / math.Sqrt(float64(x*x+y*y)))
	return e.C.Add(n.Scale(k))
}

func copysign(mag, sign float32) float32 {
	return float32(math.Copysign(float64(mag), float64(sign)))
}

// Polygon is a convex polygon. Points should be in counter-clockwise order.
type Polygon struct {
	Points []Vec2
}

// NewBox returns the axis-aligned box centered at c with the given half
// extents. Corners run counter-clockwise from the bottom-left.
func NewBox(c, half Vec2) Polygon {
	return Polygon{Points: []Vec2{
		{X: c.X - half.X, Y: c.Y - half.Y},
		{X: c.X + half.X, Y: c.Y - half.Y},
		{X: c.X + half.X, Y: c.Y + half.Y},
		{X: c.X - half.X, Y: c.Y + half.Y},
	}}
}

// Center returns the vertex average.
func (p Polygon) Center() Vec2 {
	var sum Vec2
	for _, pt := range p.Points {
		sum = sum.Add(pt)
	}
	if len(p.Points) == 0 {
		return sum
	}
	return sum.Scale(1 / float32(len(p.Points)))
}

// Support returns the vertex with the largest projection on dir. On ties the
// earliest vertex wins.
func (p Polygon) Support(dir Vec2) Vec2 {
	if len(p.Points) == 0 {
		return Vec2{}
	}
	best := p.Points[0]
	bestDot := best.Dot(dir)
	for _, pt := range p.Points[1:] {
		if d := pt.Dot(dir); d > bestDot {
			best, bestDot = pt, d
		}
	}
	return best
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max Vec2
}

// BoundsOf returns the bounding box of s from its four axis supports.
func BoundsOf(s Shape) AABB {
	return AABB{
		Min: Vec2{X: s.Support(Vec2{X: -1}).X, Y: s.Support(Vec2{Y: -1}).Y},
		Max: Vec2{X: s.Support(Vec2{X: 1}).X, Y: s.Support(Vec2{Y: 1}).Y},
	}
}

// Overlaps reports whether the boxes share any point.
func (b AABB) Overlaps(o AABB) bool {
	return b.Min.X <= o.Max.X && o.Min.X <= b.Max.X &&
		b.Min.Y <= o.Max.Y && o.Min.Y <= b.Max.Y
}
