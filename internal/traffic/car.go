package traffic

import "fmt"

// Direction is a car's travel direction relative to the lane axis.
type Direction int

const (
	DirForward Direction = iota // travels start → end, positive axis speed
	DirReverse                  // travels end → start, negative axis speed
)

func (d Direction) String() string {
	switch d {
	case DirForward:
		return "forward"
	case DirReverse:
		return "reverse"
	default:
		return "unknown"
	}
}

// CarParams are the per-car kinematic tuning knobs.
type CarParams struct {
	MaxSpeed   float64 // forward cruise cap, units/s
	Accel      float64 // units/s² when speeding up
	Braking    float64 // units/s² when slowing down
	Lookahead  float64 // scan distance ahead
	Lookbehind float64 // scan distance behind
	MinGap     float64 // hard minimum following gap

	DecelZoneFrac float64 // decel zone = DecelZoneFrac × Lookahead
	MarginSpeed   float64 // target sits this far under the leader's speed

	RearCheck          float64 // courtesy-yield pursuer distance
	YieldCooldownTicks int     // ticks between courtesy yields
	CheckAhead         float64 // lane-change clearance radius
	CheckMargin        float64 // extra slack on the clearance radius

	ReverseBase      float64 // reverse cruise speed magnitude
	ReverseBoostCap  float64 // |speed| cap as a multiple of ReverseBase
	ReverseBlendRate float64 // exponential approach rate, 1/s

	LateralOmega    float64 // PD natural frequency, rad/s
	LateralDamping  float64 // damping ratio, >= 1 for no overshoot
	LateralAccelMax float64 // lateral acceleration clamp, units/s²
}

// DefaultCarParams returns a baseline passenger car tuned for the default
// corridor scale (lane width 4, corridor length 100+).
func DefaultCarParams() CarParams {
	return CarParams{
		MaxSpeed:   28,
		Accel:      8,
		Braking:    14,
		Lookahead:  24,
		Lookbehind: 16,
		MinGap:     2,

		DecelZoneFrac: 0.8,
		MarginSpeed:   1,

		RearCheck:          10,
		YieldCooldownTicks: 180,
		CheckAhead:         8,
		CheckMargin:        1,

		ReverseBase:      6,
		ReverseBoostCap:  1.5,
		ReverseBlendRate: 1.2,

		LateralOmega:    3,
		LateralDamping:  1,
		LateralAccelMax: 12,
	}
}

// Validate rejects parameter combinations that cannot work.
func (p CarParams) Validate() error {
	if p.MaxSpeed <= 0 {
		return fmt.Errorf("car params: max speed must be > 0, got %g", p.MaxSpeed)
	}
	if p.Accel <= 0 || p.Braking <= 0 {
		return fmt.Errorf("car params: accel/braking must be > 0, got %g/%g", p.Accel, p.Braking)
	}
	if p.Lookahead <= 0 || p.Lookbehind <= 0 {
		return fmt.Errorf("car params: lookahead/lookbehind must be > 0, got %g/%g", p.Lookahead, p.Lookbehind)
	}
	if f := p.DecelZoneFrac; f <= 0 || f > 1 {
		return fmt.Errorf("car params: decel zone fraction must be in (0,1], got %g", f)
	}
	if p.LateralDamping < 1 {
		return fmt.Errorf("car params: lateral damping ratio must be >= 1, got %g", p.LateralDamping)
	}
	return nil
}

// Car is one autonomous vehicle agent. All speeds are axis-signed: a
// forward car carries positive speed, a reverse car negative, regardless of
// which way its heading vector points.
type Car struct {
	id     int
	label  string // "F3", "R1", "S0" by role
	pos    Vec3
	speed  float64 // signed, along the lane axis
	dir    Direction
	lane   *Lane
	params CarParams
	static bool // sentinel stopper: never moves, never decides

	// Perception cache: recomputed at most once per tick.
	scan     ScanResult
	scanTick int

	lc            laneChangeState
	lastYieldTick int

	world *World // injected at creation, never looked up globally
}

func (c *Car) ID() int              { return c.id }
func (c *Car) Label() string        { return c.label }
func (c *Car) Position() Vec3       { return c.pos }
func (c *Car) Speed() float64       { return c.speed }
func (c *Car) Direction() Direction { return c.dir }
func (c *Car) Lane() *Lane          { return c.lane }
func (c *Car) IsStatic() bool       { return c.static }
func (c *Car) Maneuvering() bool    { return c.lc.phase == phaseManeuvering }

// HeadingAxis is the unit vector the car travels along. Uniform for every
// car whatever its motion representation.
func (c *Car) HeadingAxis() Vec3 {
	if c.lane == nil {
		return Vec3{}
	}
	axis := c.lane.Axis()
	if c.dir == DirReverse {
		return axis.Scale(-1)
	}
	return axis
}

// scanFor returns the car's perception of its own lane for the given tick,
// computing it on first use and reusing the cached result after that.
func (c *Car) scanFor(tick int) ScanResult {
	if c.scanTick != tick {
		c.scan = ScanLane(c.lane, c)
		c.scanTick = tick
	}
	return c.scan
}

// setLane atomically moves the car's registration: unsubscribe from the old
// lane, subscribe to the new one, repoint. Perception in the same tick and
// thereafter sees the new lane immediately.
func (c *Car) setLane(to *Lane) {
	if c.lane == to {
		return
	}
	if c.lane != nil {
		c.lane.Unsubscribe(c)
	}
	c.lane = to
	if to != nil {
		to.Subscribe(c)
	}
	c.scanTick = -1 // stale: force a rescan on next use
}

// integrate advances the car along the lane axis by one step.
func (c *Car) integrate(dt float64) {
	if c.lane == nil || c.static {
		return
	}
	c.pos = c.pos.Add(c.lane.Axis().Scale(c.speed * dt))
}
