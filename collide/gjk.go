package collide

import (
	"math"

	"github.com/joshuapare/qimem/internal/debug"
)

const (
	// Epsilon is the squared length below which a direction counts as zero.
	Epsilon = 1e-5

	// BigNumber seeds closest-edge searches.
	BigNumber = 1e6

	// EPATolerance is the minimum progress along an edge normal for the
	// penetration search to keep expanding.
	EPATolerance = 0.02

	// MaxPolyPoints is the capacity of the penetration polytope.
	MaxPolyPoints = 32

	maxIterations = 64
)

// SupportPoint is a point of the Minkowski difference A-B together with the
// points of A and B it was built from.
type SupportPoint struct {
	P Vec2 // A - B
	A Vec2
	B Vec2
}

// Simplex holds up to three support points, newest last.
type Simplex struct {
	Points [3]SupportPoint
	N      int
}

// Result describes one intersection test.
type Result struct {
	Simplex Simplex

	// ClosestPoint is the deepest contact point on A, Normal points from B
	// into A and Depth is the distance A must move along Normal to separate.
	// They are only set when Intersects is true.
	ClosestPoint Vec2
	Normal       Vec2
	Depth        float32

	Intersects bool
}

func support(a, b Shape, dir Vec2) SupportPoint {
	sa := a.Support(dir)
	sb := b.Support(dir.Neg())
	return SupportPoint{P: sa.Sub(sb), A: sa, B: sb}
}

func (s *Simplex) push(p SupportPoint) {
	s.Points[s.N] = p
	s.N++
}

func (s *Simplex) set(pts ...SupportPoint) {
	s.N = copy(s.Points[:], pts)
}

// TestIntersection reports whether a and b overlap and, if so, how deep.
// Touching shapes count as intersecting with zero depth.
func TestIntersection(a, b Shape) Result {
	dir := b.Center().Sub(a.Center())
	if dir.LenSq() < Epsilon {
		dir = Vec2{X: 1}
	}

	var s Simplex
	s.push(support(a, b, dir))
	dir = s.Points[0].P.Neg()

	for range maxIterations {
		if dir.LenSq() < Epsilon {
			return penetration(a, b, s)
		}
		p := support(a, b, dir)
		if p.P.Dot(dir) < 0 {
			return Result{Simplex: s}
		}
		s.push(p)

		var enclosed bool
		if s.N == 2 {
			dir = s.segment()
		} else {
			dir, enclosed = s.triangle()
		}
		if enclosed {
			return penetration(a, b, s)
		}
	}
	return Result{Simplex: s}
}

// segment reduces a two-point simplex and returns the next search direction.
// A zero direction means the origin lies on the segment.
func (s *Simplex) segment() Vec2 {
	a, b := s.Points[1], s.Points[0]
	ab := b.P.Sub(a.P)
	ao := a.P.Neg()

	if ab.LenSq() < Epsilon {
		s.set(a)
		return ao
	}
	if ab.Dot(ao) <= 0 {
		s.set(a)
		return ao
	}

	n := ab.Perp().Normalize()
	d := n.Dot(ao)
	if d < 0 {
		n, d = n.Neg(), -d
	}
	if d*d < Epsilon {
		if ab.Dot(ao) <= ab.LenSq() {
			return Vec2{}
		}
		s.set(b)
		return b.P.Neg()
	}
	return n
}

// triangle reduces a three-point simplex. enclosed is true when the origin is
// inside the triangle.
func (s *Simplex) triangle() (dir Vec2, enclosed bool) {
	a, b, c := s.Points[2], s.Points[1], s.Points[0]
	ab := b.P.Sub(a.P)
	ac := c.P.Sub(a.P)
	ao := a.P.Neg()

	if abs(ab.Cross(ac)) < Epsilon {
		s.set(b, a)
		return s.segment(), false
	}

	abPerp := outward(ab, ac)
	if abPerp.Dot(ao) > 0 {
		s.set(b, a)
		return abPerp, false
	}
	acPerp := outward(ac, ab)
	if acPerp.Dot(ao) > 0 {
		s.set(c, a)
		return acPerp, false
	}
	return Vec2{}, true
}

// outward returns the unit normal of edge that points away from other.
func outward(edge, other Vec2) Vec2 {
	n := edge.Perp().Normalize()
	if n.Dot(other) > 0 {
		return n.Neg()
	}
	return n
}

// polytope is the fixed-capacity counter-clockwise polygon grown by the
// penetration search.
type polytope struct {
	pts [MaxPolyPoints]SupportPoint
	n   int
}

func (p *polytope) insert(at int, sp SupportPoint) {
	copy(p.pts[at+1:p.n+1], p.pts[at:p.n])
	p.pts[at] = sp
	p.n++
}

// closestEdge returns the edge nearest the origin as the index of its first
// vertex, its outward unit normal and its distance.
func (p *polytope) closestEdge() (idx int, normal Vec2, dist float32) {
	idx, dist = -1, BigNumber
	for i := range p.n {
		pi := p.pts[i].P
		e := p.pts[(i+1)%p.n].P.Sub(pi)

		var n Vec2
		var d float32
		if e.LenSq() < Epsilon {
			n = pi.Normalize()
			d = pi.Len()
		} else {
			n = Vec2{X: e.Y, Y: -e.X}.Normalize()
			d = n.Dot(pi)
			if d < 0 {
				n, d = n.Neg(), -d
			}
		}
		if n == (Vec2{}) {
			continue
		}
		if d < dist {
			idx, normal, dist = i, n, d
		}
	}
	return idx, normal, dist
}

// penetration expands the GJK simplex toward the boundary of A-B and returns
// the depth along the closest edge.
func penetration(a, b Shape, s Simplex) Result {
	res := Result{Simplex: s, Intersects: true}

	var poly polytope
	for i := range s.N {
		poly.pts[i] = s.Points[i]
	}
	poly.n = s.N
	if !poly.grow(a, b) {
		res.Normal = fallbackNormal(a, b)
		res.ClosestPoint = s.Points[s.N-1].A
		return res
	}

	for {
		i, normal, dist := poly.closestEdge()
		if i < 0 {
			res.Normal = fallbackNormal(a, b)
			return res
		}
		j := (i + 1) % poly.n

		p := support(a, b, normal)
		if p.P.Dot(normal)-dist < EPATolerance || poly.n == MaxPolyPoints {
			debug.Assertf(poly.n < MaxPolyPoints, "collide: penetration polytope exceeded %d points", MaxPolyPoints)
			res.Depth = dist
			res.Normal = normal.Neg()
			res.ClosestPoint = poly.contactOnA(i, j)
			return res
		}
		poly.insert(i+1, p)
	}
}

// grow turns a point or segment simplex into a counter-clockwise triangle.
// It reports false when A-B has no area in the probed directions.
func (p *polytope) grow(a, b Shape) bool {
	if p.n == 1 {
		for _, d := range []Vec2{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}} {
			sp := support(a, b, d)
			if sp.P.Sub(p.pts[0].P).LenSq() >= Epsilon {
				p.pts[1] = sp
				p.n = 2
				break
			}
		}
		if p.n == 1 {
			return false
		}
	}
	if p.n == 2 {
		e := p.pts[1].P.Sub(p.pts[0].P)
		for _, d := range []Vec2{e.Perp(), e.Perp().Neg()} {
			sp := support(a, b, d)
			if abs(e.Cross(sp.P.Sub(p.pts[0].P))) >= Epsilon {
				p.pts[2] = sp
				p.n = 3
				break
			}
		}
		if p.n == 2 {
			return false
		}
	}
	if p.pts[1].P.Sub(p.pts[0].P).Cross(p.pts[2].P.Sub(p.pts[0].P)) < 0 {
		p.pts[1], p.pts[2] = p.pts[2], p.pts[1]
	}
	return true
}

// contactOnA interpolates the A-side points of edge i-j at the position of
// the edge point closest to the origin.
func (p *polytope) contactOnA(i, j int) Vec2 {
	pi, pj := p.pts[i], p.pts[j]
	e := pj.P.Sub(pi.P)
	var t float32
	if l := e.LenSq(); l >= Epsilon {
		t = min(max(-pi.P.Dot(e)/l, 0), 1)
	}
	return pi.A.Lerp(pj.A, t)
}

func fallbackNormal(a, b Shape) Vec2 {
	n := a.Center().Sub(b.Center()).Normalize()
	if n == (Vec2{}) {
		return Vec2{X: 1}
	}
	return n
}

func abs(v float32) float32 {
	return float32(math.Abs(float64(v)))
}
