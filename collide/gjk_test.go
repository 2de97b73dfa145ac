package collide

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/qimem/internal/debug"
)

func TestTestIntersection_BoxPenetration(t *testing.T) {
	a := NewBox(V(0, 0), V(1, 1))
	b := NewBox(V(1.5, 0), V(1, 1))

	res := TestIntersection(a, b)
	require.True(t, res.Intersects)
	assert.InDelta(t, 0.5, res.Depth, 1e-4)
	assert.InDelta(t, -1, res.Normal.X, 1e-4)
	assert.InDelta(t, 0, res.Normal.Y, 1e-4)
	assert.InDelta(t, 1, res.ClosestPoint.X, 1e-4, "contact point lies on A's right face")
}

func TestTestIntersection_SeparatedBoxes(t *testing.T) {
	a := NewBox(V(0, 0), V(1, 1))
	b := NewBox(V(3, 0), V(1, 1))

	res := TestIntersection(a, b)
	assert.False(t, res.Intersects)
	assert.Zero(t, res.Depth)
	assert.False(t, TestIntersection(b, a).Intersects)

	// Diagonal gap between corners.
	c := NewBox(V(2.2, 2.2), V(1, 1))
	assert.False(t, TestIntersection(a, c).Intersects)
}

func TestTestIntersection_TouchingBoxes(t *testing.T) {
	a := NewBox(V(0, 0), V(1, 1))
	b := NewBox(V(2, 0), V(1, 1))

	res := TestIntersection(a, b)
	require.True(t, res.Intersects, "shared edge counts as contact")
	assert.InDelta(t, 0, res.Depth, 1e-4)
}

func TestTestIntersection_IdenticalBoxes(t *testing.T) {
	a := NewBox(V(0, 0), V(1, 1))

	res := TestIntersection(a, a)
	require.True(t, res.Intersects)
	assert.InDelta(t, 2, res.Depth, 1e-4)
	assert.InDelta(t, 1, res.Normal.Len(), 1e-4)
}

func TestTestIntersection_Circles(t *testing.T) {
	a := Circle{C: V(0, 0), R: 1}
	b := Circle{C: V(1.5, 0), R: 1}

	res := TestIntersection(a, b)
	require.True(t, res.Intersects)
	assert.InDelta(t, 0.5, res.Depth, 0.05)
	assert.InDelta(t, -1, res.Normal.X, 0.05)
	assert.InDelta(t, 0, res.Normal.Y, 0.2)

	far := Circle{C: V(2.1, 0), R: 1}
	assert.False(t, TestIntersection(a, far).Intersects)

	res = TestIntersection(a, Circle{C: V(0, 0), R: 0.5})
	require.True(t, res.Intersects, "concentric circles")
	assert.InDelta(t, 1, res.Normal.Len(), 1e-4)
}

func TestTestIntersection_Ellipse(t *testing.T) {
	e := Ellipse{C: V(0, 0), RX: 3, RY: 1}

	assert.True(t, TestIntersection(e, Circle{C: V(3.4, 0), R: 0.5}).Intersects)
	assert.False(t, TestIntersection(e, Circle{C: V(0, 1.6), R: 0.5}).Intersects)
	assert.True(t, TestIntersection(NewBox(V(0, 1.2), V(0.5, 0.5)), e).Intersects)
}

// testShape pairs a Shape with the data needed to compute its exact gap to
// another testShape.
type testShape struct {
	Shape
	circle bool
	c      Vec2
	r      float32 // circle radius
	half   Vec2    // box half extents
}

func randomShape(rng *rand.Rand) testShape {
	c := V(rng.Float32()*10, rng.Float32()*10)
	if rng.Intn(2) == 0 {
		r := 0.3 + rng.Float32()*1.7
		return testShape{Shape: Circle{C: c, R: r}, circle: true, c: c, r: r}
	}
	half := V(0.3+rng.Float32()*1.7, 0.3+rng.Float32()*1.7)
	return testShape{Shape: NewBox(c, half), c: c, half: half}
}

// gap returns the signed separation of two shapes: positive when apart,
// negative when overlapping.
func gap(a, b testShape) float64 {
	dx := math.Abs(float64(a.c.X - b.c.X))
	dy := math.Abs(float64(a.c.Y - b.c.Y))
	switch {
	case a.circle && b.circle:
		return math.Hypot(dx, dy) - float64(a.r+b.r)
	case !a.circle && !b.circle:
		return math.Max(dx-float64(a.half.X+b.half.X), dy-float64(a.half.Y+b.half.Y))
	case !a.circle:
		a, b = b, a
	}
	// a is the circle, b the box.
	qx := math.Max(dx-float64(b.half.X), 0)
	qy := math.Max(dy-float64(b.half.Y), 0)
	if qx == 0 && qy == 0 {
		return -1
	}
	return math.Hypot(qx, qy) - float64(a.r)
}

// TestTestIntersection_SymmetricAndExact checks random circle and box pairs
// against their exact separation, in both argument orders.
func TestTestIntersection_FlatEllipse(t *testing.T) {
	seg := Ellipse{C: V(0, 0), RX: 0, RY: 1}
	box := NewBox(V(0, 0.5), V(1, 1))

	res := TestIntersection(seg, box)
	require.True(t, res.Intersects)
	for _, v := range []float32{res.Depth, res.Normal.X, res.Normal.Y, res.ClosestPoint.X, res.ClosestPoint.Y} {
		assert.False(t, math.IsNaN(float64(v)))
	}
	// Pushing the segment out sideways is the shortest exit.
	assert.InDelta(t, 1, res.Depth, 0.05)
	assert.InDelta(t, 1, abs(res.Normal.X), 0.05)

	assert.False(t, TestIntersection(seg, NewBox(V(3, 0), V(1, 1))).Intersects)
}

func TestTestIntersection_PolytopeCapacity(t *testing.T) {
	// Large concentric circles need more polytope points than MaxPolyPoints
	// to reach EPATolerance.
	a := Circle{C: V(0, 0), R: 100}
	b := Circle{C: V(0, 0), R: 100}

	if debug.Enabled {
		assert.Panics(t, func() { TestIntersection(a, b) })
		return
	}
	res := TestIntersection(a, b)
	require.True(t, res.Intersects)
	assert.LessOrEqual(t, res.Depth, float32(200.01))
	assert.InDelta(t, 200, res.Depth, 10)
	assert.InDelta(t, 1, res.Normal.Len(), 1e-3)
}

func TestTestIntersection_SymmetricAndExact(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	checked := 0
	for range 2000 {
		a, b := randomShape(rng), randomShape(rng)
		g := gap(a, b)
		if math.Abs(g) < 0.05 {
			continue
		}
		want := g < 0
		ab := TestIntersection(a, b)
		ba := TestIntersection(b, a)
		require.Equal(t, want, ab.Intersects, "a=%+v b=%+v gap=%f", a.Shape, b.Shape, g)
		require.Equal(t, ab.Intersects, ba.Intersects, "a=%+v b=%+v", a.Shape, b.Shape)
		if want {
			assert.GreaterOrEqual(t, ab.Depth, float32(0))
			assert.InDelta(t, 1, ab.Normal.Len(), 1e-3)
		}
		checked++
	}
	assert.Greater(t, checked, 1000)
}

// TestTestIntersection_SeparatingAxis checks that boxes separated along an
// axis never intersect, however small the gap.
func TestTestIntersection_SeparatingAxis(t *testing.T) {
	a := NewBox(V(0, 0), V(1, 1))
	for _, gap := range []float32{0.01, 0.1, 1, 10} {
		for _, dir := range []Vec2{V(1, 0), V(-1, 0), V(0, 1), V(0, -1)} {
			b := NewBox(dir.Scale(2+gap), V(1, 1))
			assert.False(t, TestIntersection(a, b).Intersects, "gap %v along %v", gap, dir)
		}
	}
}
