package collide

import (
	"math"

	"github.com/joshuapare/qimem/internal/bitidx"
)

// Contact is one overlap between a query shape and a solid tile.
type Contact struct {
	TileX, TileY int
	Point        Vec2    // deepest point on the query shape
	Normal       Vec2    // from the tile into the shape
	Depth        float32 // distance the shape must move along Normal
}

// TileGrid is a fixed grid of square tiles, each solid or empty. Tile (0, 0)
// covers [0, TileSize) on both axes.
type TileGrid struct {
	cols, rows int
	tileSize   float32
	solid      []byte // packed, one bit per tile, row-major
}

// NewTileGrid creates an empty grid.
func NewTileGrid(cols, rows int, tileSize float32) *TileGrid {
	return &TileGrid{
		cols:     cols,
		rows:     rows,
		tileSize: tileSize,
		solid:    make([]byte, bitidx.BitmapBytes(cols*rows)),
	}
}

// Cols returns the number of tile columns.
func (g *TileGrid) Cols() int { return g.cols }

// Rows returns the number of tile rows.
func (g *TileGrid) Rows() int { return g.rows }

// TileSize returns the edge length of a tile.
func (g *TileGrid) TileSize() float32 { return g.tileSize }

// SetSolid marks tile (x, y). Out-of-range tiles are ignored.
func (g *TileGrid) SetSolid(x, y int, solid bool) {
	if !g.inside(x, y) {
		return
	}
	bitidx.SetBitTo(g.solid, y*g.cols+x, solid)
}

// Solid reports whether tile (x, y) is solid. Tiles outside the grid are empty.
func (g *TileGrid) Solid(x, y int) bool {
	return g.inside(x, y) && bitidx.TestBit(g.solid, y*g.cols+x)
}

// TileBox returns the box covering tile (x, y).
func (g *TileGrid) TileBox(x, y int) Polygon {
	h := g.tileSize / 2
	return NewBox(Vec2{X: float32(x)*g.tileSize + h, Y: float32(y)*g.tileSize + h}, Vec2{X: h, Y: h})
}

// Query returns the contacts between s and every solid tile it overlaps.
func (g *TileGrid) Query(s Shape) []Contact {
	return g.AppendContacts(nil, s)
}

// AppendContacts appends the contacts of Query to dst and returns the
// extended slice.
func (g *TileGrid) AppendContacts(dst []Contact, s Shape) []Contact {
	bounds := BoundsOf(s)
	x0, y0 := g.tileAt(bounds.Min)
	x1, y1 := g.tileAt(bounds.Max)
	x0, y0 = max(x0, 0), max(y0, 0)
	x1, y1 = min(x1, g.cols-1), min(y1, g.rows-1)

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if !bitidx.TestBit(g.solid, y*g.cols+x) {
				continue
			}
			res := TestIntersection(s, g.TileBox(x, y))
			if !res.Intersects {
				continue
			}
			dst = append(dst, Contact{
				TileX:  x,
				TileY:  y,
				Point:  res.ClosestPoint,
				Normal: res.Normal,
				Depth:  res.Depth,
			})
		}
	}
	return dst
}

func (g *TileGrid) tileAt(p Vec2) (int, int) {
	return int(math.Floor(float64(p.X / g.tileSize))), int(math.Floor(float64(p.Y / g.tileSize)))
}

func (g *TileGrid) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.cols && y < g.rows
}
