package traffic

import "math"

// ColliderTag is the semantic filter for broad-phase queries.
type ColliderTag int

const (
	TagCar ColliderTag = iota
	TagObstacle
)

// OverlapQuerier is the broad-phase capability the spawner consumes: does
// any collider with the given tag overlap the world-space box? It is a
// fallback occupancy check only; lane registration stays the source of
// truth.
type OverlapQuerier interface {
	Overlaps(min, max Vec3, tag ColliderTag) bool
}

// SpatialGrid is a cell-hash broad phase over the X/Z ground plane. It is
// rebuilt from the live car list every tick; cars are inserted immediately
// at spawn, before lane registration, which is exactly the window the
// spawner's fallback check exists to cover.
type SpatialGrid struct {
	cellSize float64
	cells    map[gridCell][]gridEntry
}

type gridCell struct{ cx, cz int }

type gridEntry struct {
	car *Car
	tag ColliderTag
}

// NewSpatialGrid creates an empty grid. cellSize should be on the order of
// the largest query box edge so queries touch few cells.
func NewSpatialGrid(cellSize float64) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = 8
	}
	return &SpatialGrid{
		cellSize: cellSize,
		cells:    make(map[gridCell][]gridEntry),
	}
}

func (g *SpatialGrid) cellOf(x, z float64) gridCell {
	return gridCell{int(math.Floor(x / g.cellSize)), int(math.Floor(z / g.cellSize))}
}

// Clear empties the grid, keeping cell capacity.
func (g *SpatialGrid) Clear() {
	for k, entries := range g.cells {
		g.cells[k] = entries[:0]
	}
}

// Insert adds a car at its current position.
func (g *SpatialGrid) Insert(c *Car, tag ColliderTag) {
	k := g.cellOf(c.pos.X, c.pos.Z)
	g.cells[k] = append(g.cells[k], gridEntry{car: c, tag: tag})
}

// Remove deletes every entry for c.
func (g *SpatialGrid) Remove(c *Car) {
	for k, entries := range g.cells {
		kept := entries[:0]
		for _, e := range entries {
			if e.car != c {
				kept = append(kept, e)
			}
		}
		g.cells[k] = kept
	}
}

// Overlaps reports whether any collider with the given tag lies inside the
// axis-aligned box [min, max]. Y is ignored; traffic lives on the ground
// plane.
func (g *SpatialGrid) Overlaps(min, max Vec3, tag ColliderTag) bool {
	lo := g.cellOf(min.X, min.Z)
	hi := g.cellOf(max.X, max.Z)
	for cx := lo.cx; cx <= hi.cx; cx++ {
		for cz := lo.cz; cz <= hi.cz; cz++ {
			for _, e := range g.cells[gridCell{cx, cz}] {
				if e.tag != tag {
					continue
				}
				p := e.car.pos
				if p.X >= min.X && p.X <= max.X && p.Z >= min.Z && p.Z <= max.Z {
					return true
				}
			}
		}
	}
	return false
}

// QueryBox returns the cars with the given tag inside the box. Used by the
// viewer's inspector; the spawner only needs the boolean form.
func (g *SpatialGrid) QueryBox(min, max Vec3, tag ColliderTag) []*Car {
	var out []*Car
	lo := g.cellOf(min.X, min.Z)
	hi := g.cellOf(max.X, max.Z)
	for cx := lo.cx; cx <= hi.cx; cx++ {
		for cz := lo.cz; cz <= hi.cz; cz++ {
			for _, e := range g.cells[gridCell{cx, cz}] {
				if e.tag != tag {
					continue
				}
				p := e.car.pos
				if p.X >= min.X && p.X <= max.X && p.Z >= min.Z && p.Z <= max.Z {
					out = append(out, e.car)
				}
			}
		}
	}
	return out
}
