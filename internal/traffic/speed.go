package traffic

import "math"

// updateSpeed runs the car-following control law for one tick, using the
// perception scan already taken this tick. Static sentinels and cars with
// no lane are skipped.
func (c *Car) updateSpeed(dt float64) {
	if c.static || c.lane == nil || dt <= 0 {
		return
	}
	if c.dir == DirReverse {
		c.updateReverseSpeed(dt)
		return
	}
	c.updateForwardSpeed(dt)
}

// updateForwardSpeed is the goal-directed forward law: free-flow at
// MaxSpeed, blend down toward the leader inside the deceleration zone,
// integrate with asymmetric accel/brake ramps, then apply the hard gap
// backstop.
func (c *Car) updateForwardSpeed(dt float64) {
	p := c.params
	sc := c.scan

	decelZone := p.DecelZoneFrac * p.Lookahead
	minZone := 0.4 * decelZone

	target := p.MaxSpeed
	if sc.Ahead != nil {
		gap := sc.AheadDist
		if gap < decelZone {
			// Saturates to 1 at gap <= minZone.
			blend := clamp01((decelZone - gap) / (decelZone - minZone))
			target = lerp(p.MaxSpeed, sc.Ahead.speed-p.MarginSpeed, blend)
		}
		if gap < minZone/2 {
			// Hard safety override: strictly slower than the leader.
			if limit := sc.Ahead.speed - p.MarginSpeed; target > limit {
				target = limit
			}
		}
	}

	ramp := p.Accel
	if target < c.speed {
		ramp = p.Braking
	}
	c.speed = moveToward(c.speed, target, ramp*dt)

	// Hard gap enforcement, independent of the smooth law: never out-travel
	// the remaining gap within this tick.
	if sc.Ahead != nil && !math.IsInf(sc.AheadDist, 1) {
		maxTravel := sc.AheadDist - p.MinGap
		if c.speed*dt > maxTravel {
			clamped := maxTravel / dt
			if floor := sc.Ahead.speed - p.MarginSpeed; clamped < floor {
				clamped = floor
			}
			c.speed = clamped
		}
	}
}

// updateReverseSpeed is the reactive law for reverse ("being chased")
// agents: cruise at the base reverse speed, and when a pursuer is within
// lookbehind range blend exponentially toward matching its speed, bounded
// by the boost cap. Exponential rather than ramped: gentler, continuously
// reactive, no overshoot.
func (c *Car) updateReverseSpeed(dt float64) {
	p := c.params
	sc := c.scan

	target := -p.ReverseBase
	if sc.Behind != nil && sc.BehindDist <= p.Lookbehind {
		target = sc.Behind.speed
		cap := p.ReverseBoostCap * p.ReverseBase
		if target > cap {
			target = cap
		}
		if target < -cap {
			target = -cap
		}
	}

	alpha := 1 - math.Exp(-p.ReverseBlendRate*dt)
	c.speed = lerp(c.speed, target, alpha)
}
