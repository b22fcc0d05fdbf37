package traffic

import "math"

// Lateral maneuver completion epsilons and the force-snap budget. A
// maneuver that has not converged after maneuverTimeoutTicks is snapped to
// the centerline and closed; with damping >= 1 the PD response cannot
// oscillate, so the timeout only fires on pathological tuning.
const (
	latPosEps            = 0.05
	latVelEps            = 0.05
	maneuverTimeoutTicks = 600
)

type lcPhase int

const (
	phaseIdle lcPhase = iota
	phaseManeuvering
)

// laneChangeState is the per-car transient maneuver state. At most one
// maneuver is active per car.
type laneChangeState struct {
	phase      lcPhase
	target     *Lane
	lateralVel float64 // signed along the car's current offset direction
	ticks      int
}

// updateLaneChange advances an in-flight maneuver, or evaluates the
// decision policy when idle. Runs after the speed controller, on the same
// per-tick scan.
func (c *Car) updateLaneChange(dt float64) {
	if c.static || c.lane == nil || dt <= 0 {
		return
	}
	if c.lc.phase == phaseManeuvering {
		c.advanceManeuver(dt)
		return
	}

	sc := c.scan

	// Trigger A: blocked. A forward car with a leader inside lookahead
	// tries to pass.
	if c.dir == DirForward && sc.Ahead != nil && sc.AheadDist < c.params.Lookahead {
		c.world.SwitchCarLane(c)
		return
	}

	// Trigger B: courtesy yield. A pursuer close behind that has no escape
	// lane of its own (one level of recursion, not transitive) earns a
	// voluntary lane change, rate-limited by the yield cooldown.
	if sc.Behind != nil && sc.BehindDist < c.params.RearCheck &&
		c.world.tick-c.lastYieldTick >= c.params.YieldCooldownTicks &&
		c.world.FindSwitchableLane(sc.Behind) == nil {
		if c.world.SwitchCarLane(c) != nil {
			c.lastYieldTick = c.world.tick
		}
	}
}

// beginManeuver performs the logical lane switch instantly (membership,
// lane pointer and perception all flip now) and opens the physical lateral
// maneuver toward the new centerline.
func (c *Car) beginManeuver(to *Lane) {
	c.setLane(to)
	c.lc = laneChangeState{phase: phaseManeuvering, target: to}
}

// advanceManeuver drives the car's lateral offset to the current lane's
// centerline with a critically damped PD law, acceleration-clamped, and
// recomputed against the live centerline each tick so a scrolled or
// extended lane is tracked correctly.
func (c *Car) advanceManeuver(dt float64) {
	lane := c.lane
	center := lane.PointAt(lane.ProgressOf(c.pos))
	axis := lane.Axis()

	// Offset from the centerline with the axis component removed.
	offVec := c.pos.Sub(center)
	offVec = offVec.Sub(axis.Scale(offVec.Dot(axis)))
	off := offVec.Len()

	c.lc.ticks++
	if c.lc.ticks >= maneuverTimeoutTicks {
		// Force-snap: end a non-converging maneuver rather than hold it
		// open forever.
		c.pos = c.pos.Sub(offVec)
		c.lc = laneChangeState{}
		c.world.noteForcedSnap(c)
		return
	}

	if off < latPosEps && math.Abs(c.lc.lateralVel) < latVelEps {
		c.pos = c.pos.Sub(offVec)
		c.lc = laneChangeState{}
		return
	}

	latDir := Vec3{}
	if off > 1e-9 {
		latDir = offVec.Scale(1 / off)
	}

	p := c.params
	accel := -p.LateralOmega*p.LateralOmega*off - 2*p.LateralDamping*p.LateralOmega*c.lc.lateralVel
	if accel > p.LateralAccelMax {
		accel = p.LateralAccelMax
	}
	if accel < -p.LateralAccelMax {
		accel = -p.LateralAccelMax
	}
	c.lc.lateralVel += accel * dt

	newOff := off + c.lc.lateralVel*dt
	if newOff < 0 {
		// Crossed the centerline within one step; land on it.
		newOff = 0
		c.lc.lateralVel = 0
	}
	c.pos = center.Add(latDir.Scale(newOff))
}

// FindSwitchableLane returns the first adjacent lane of c's lane that is
// clear at c's equivalent progress position, or nil if neither neighbor is
// clear. Left/right try order is an unbiased coin flip per call.
func (w *World) FindSwitchableLane(c *Car) *Lane {
	if c == nil || c.lane == nil {
		return nil
	}
	idx := w.registry.IndexOf(c.lane)
	if idx < 0 {
		return nil
	}
	for _, ci := range w.registry.AdjacentIndices(idx, w.rng.Intn(2) == 0) {
		if ci < 0 {
			continue
		}
		cand := w.registry.LaneAt(ci)
		if w.laneClearFor(c, cand) {
			return cand
		}
	}
	return nil
}

// laneClearFor reports whether cand has no member within the clearance
// radius of c's equivalent-progress point. Euclidean distance, not just
// longitudinal: a car mid-maneuver between centerlines still blocks.
func (w *World) laneClearFor(c *Car, cand *Lane) bool {
	eq := c.lane.EquivalentPointOn(cand, c.pos)
	radius := c.params.CheckAhead + c.params.CheckMargin
	for _, m := range cand.members {
		if m == c {
			continue
		}
		if m.pos.DistTo(eq) < radius {
			return false
		}
	}
	return true
}

// SwitchCarLane attempts a lane change for c right now: first clear
// adjacent candidate wins and the maneuver begins. Returns the new lane, or
// nil if no candidate was clear (the car stays put and keeps following;
// expected steady state under congestion, not an error).
func (w *World) SwitchCarLane(c *Car) *Lane {
	if c == nil || c.lane == nil || c.lc.phase != phaseIdle {
		return nil
	}
	to := w.FindSwitchableLane(c)
	if to == nil {
		return nil
	}
	from := c.lane
	c.beginManeuver(to)
	w.laneChanges++
	w.simLog.Add(w.tick, c.label, c.dir.String(), "lane", "switch",
		laneTransition(from, to), float64(to.id))
	return to
}
