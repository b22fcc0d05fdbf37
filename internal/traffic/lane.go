package traffic

import "fmt"

// Lane is one directed travel corridor: a line segment from start to end
// plus the set of cars currently registered to it.
//
// Membership is mutated only through Subscribe/Unsubscribe. A car appears
// in at most one lane's member list at any instant; setLane on the car is
// the only caller that moves a car between lanes.
type Lane struct {
	id      int
	start   Vec3
	end     Vec3
	members []*Car
}

func (l *Lane) ID() int     { return l.id }
func (l *Lane) Start() Vec3 { return l.start }
func (l *Lane) End() Vec3   { return l.end }

// Axis is the lane's unit travel direction, normalize(end - start).
func (l *Lane) Axis() Vec3 {
	return l.end.Sub(l.start).Normalized()
}

func (l *Lane) Length() float64 {
	return l.end.Sub(l.start).Len()
}

// ProgressOf projects p onto the lane axis and returns its normalized
// position along the lane, clamped to [0,1].
func (l *Lane) ProgressOf(p Vec3) float64 {
	length := l.Length()
	if length < 1e-9 {
		return 0
	}
	return clamp01(p.Sub(l.start).Dot(l.Axis()) / length)
}

// rawProgressOf is ProgressOf without the clamp. Used by the lifecycle
// sweep to detect cars past a lane endpoint.
func (l *Lane) rawProgressOf(p Vec3) float64 {
	length := l.Length()
	if length < 1e-9 {
		return 0
	}
	return p.Sub(l.start).Dot(l.Axis()) / length
}

// PointAt returns the world point at progress t along the centerline.
func (l *Lane) PointAt(t float64) Vec3 {
	return l.start.Add(l.end.Sub(l.start).Scale(t))
}

// EquivalentPointOn maps p's progress on this lane to the same progress on
// other. This is the basis for lane-parallel safety checks.
func (l *Lane) EquivalentPointOn(other *Lane, p Vec3) Vec3 {
	return other.PointAt(l.ProgressOf(p))
}

// Subscribe registers c with the lane. Idempotent.
func (l *Lane) Subscribe(c *Car) {
	for _, m := range l.members {
		if m == c {
			return
		}
	}
	l.members = append(l.members, c)
}

// Unsubscribe removes c from the lane. No-op if c is not a member.
func (l *Lane) Unsubscribe(c *Car) {
	for i, m := range l.members {
		if m == c {
			l.members = append(l.members[:i], l.members[i+1:]...)
			return
		}
	}
}

// Members returns a snapshot copy of the lane's registered cars, safe to
// hold across membership mutations.
func (l *Lane) Members() []*Car {
	out := make([]*Car, len(l.members))
	copy(out, l.members)
	return out
}

func (l *Lane) memberCount() int { return len(l.members) }

// LaneRegistry owns the ordered collection of parallel lanes. Lane 0 is the
// leftmost; lanes are offset along +X and run along +Z.
type LaneRegistry struct {
	lanes     []*Lane
	laneWidth float64
}

// NewLaneRegistry builds count parallel lanes of the given length, spaced
// laneWidth apart, starting at origin.
func NewLaneRegistry(count int, origin Vec3, laneWidth, length float64) (*LaneRegistry, error) {
	if count < 1 {
		return nil, fmt.Errorf("lane registry: count must be >= 1, got %d", count)
	}
	if laneWidth <= 0 {
		return nil, fmt.Errorf("lane registry: lane width must be > 0, got %g", laneWidth)
	}
	if length <= 0 {
		return nil, fmt.Errorf("lane registry: lane length must be > 0, got %g", length)
	}
	r := &LaneRegistry{laneWidth: laneWidth}
	for i := 0; i < count; i++ {
		off := Vec3{X: float64(i) * laneWidth}
		r.lanes = append(r.lanes, &Lane{
			id:    i,
			start: origin.Add(off),
			end:   origin.Add(off).Add(Vec3{Z: length}),
		})
	}
	return r, nil
}

func (r *LaneRegistry) LaneCount() int     { return len(r.lanes) }
func (r *LaneRegistry) LaneWidth() float64 { return r.laneWidth }

// LaneAt returns the lane at index i, or nil if out of range.
func (r *LaneRegistry) LaneAt(i int) *Lane {
	if i < 0 || i >= len(r.lanes) {
		return nil
	}
	return r.lanes[i]
}

// IndexOf returns the registry index of l, or -1 if l is not registered.
func (r *LaneRegistry) IndexOf(l *Lane) int {
	for i, cand := range r.lanes {
		if cand == l {
			return i
		}
	}
	return -1
}

// AdjacentIndices returns the candidate neighbor indices of lane i in try
// order. An out-of-range side yields -1. Callers roll leftFirst per call
// (unbiased coin flip, never cached) so repeated failed attempts do not
// develop a side preference.
func (r *LaneRegistry) AdjacentIndices(i int, leftFirst bool) [2]int {
	left, right := i-1, i+1
	if left < 0 {
		left = -1
	}
	if right >= len(r.lanes) {
		right = -1
	}
	if leftFirst {
		return [2]int{left, right}
	}
	return [2]int{right, left}
}

// SetAllLaneZ slides the whole corridor to new start/end Z coordinates
// without touching registrations. Used by the world-scroll collaborator.
func (r *LaneRegistry) SetAllLaneZ(startZ, endZ float64) {
	for _, l := range r.lanes {
		l.start.Z = startZ
		l.end.Z = endZ
	}
}
