package traffic

import (
	"fmt"
	"math"
	"math/rand"
)

// Config is the full corridor setup. Zero values are rejected at
// construction: a missing lane layout or broken car archetype fails fast
// rather than silently no-opping.
type Config struct {
	LaneCount  int
	LaneWidth  float64
	LaneLength float64
	Origin     Vec3
	TickRate   float64 // simulation ticks per second
	Car        CarParams
	Spawn      SpawnConfig
	Seed       int64
	Verbose    bool // per-tick position/speed SimLog entries
}

// DefaultConfig returns a three-lane corridor at 60 ticks/s.
func DefaultConfig() Config {
	return Config{
		LaneCount:  3,
		LaneWidth:  4,
		LaneLength: 400,
		TickRate:   60,
		Car:        DefaultCarParams(),
		Spawn:      DefaultSpawnConfig(),
		Seed:       1,
	}
}

// Validate checks the configuration, wrapping the first problem found.
func (c Config) Validate() error {
	if c.LaneCount < 1 {
		return fmt.Errorf("config: lane count must be >= 1, got %d", c.LaneCount)
	}
	if c.TickRate <= 0 {
		return fmt.Errorf("config: tick rate must be > 0, got %g", c.TickRate)
	}
	if err := c.Car.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Spawn.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// World owns the lane registry, the live car population, the broad-phase
// grid, and the fixed-timestep tick loop. Single-threaded: all mutation
// happens synchronously within one agent's turn, so lane membership needs
// no locking, and reading a neighbor's possibly one-tick-stale speed is
// benign and self-correcting.
type World struct {
	cfg      Config
	registry *LaneRegistry
	cars     []*Car
	grid     *SpatialGrid
	spawner  *Spawner
	rng      *rand.Rand
	simLog   *SimLog
	reporter *TrafficReporter

	tick   int
	nextID int

	// Run counters, mined by the reporter and the headless CLI.
	spawnsTotal   int
	spawnFailures int
	laneChanges   int
	forcedSnaps   int
	removals      int

	spawningEnabled bool
}

// NewWorld builds a corridor world from cfg, failing fast on configuration
// errors.
func NewWorld(cfg Config) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	registry, err := NewLaneRegistry(cfg.LaneCount, cfg.Origin, cfg.LaneWidth, cfg.LaneLength)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	w := &World{
		cfg:      cfg,
		registry: registry,
		grid:     NewSpatialGrid(cfg.Spawn.CheckDepth),
		rng:      rand.New(rand.NewSource(cfg.Seed)), // #nosec G404 -- simulation only
		simLog:   NewSimLog(cfg.Verbose),
	}
	w.spawner = newSpawner(w, cfg.Spawn)
	w.reporter = NewTrafficReporter(reportWindowTicks)
	return w, nil
}

func (w *World) Config() Config             { return w.cfg }
func (w *World) Registry() *LaneRegistry    { return w.registry }
func (w *World) SimLog() *SimLog            { return w.simLog }
func (w *World) Reporter() *TrafficReporter { return w.reporter }
func (w *World) Spawner() *Spawner          { return w.spawner }
func (w *World) Tick() int                  { return w.tick }
func (w *World) Dt() float64                { return 1 / w.cfg.TickRate }

// Cars returns a snapshot of the live population.
func (w *World) Cars() []*Car {
	out := make([]*Car, len(w.cars))
	copy(out, w.cars)
	return out
}

// EnableSpawning turns the periodic spawn scheduler on or off. Off by
// default so harness scenarios stay deterministic.
func (w *World) EnableSpawning(on bool) { w.spawningEnabled = on }

// LaneByIndex exposes registry lookup to external collaborators.
func (w *World) LaneByIndex(i int) *Lane { return w.registry.LaneAt(i) }

// SetAllLaneZ slides the corridor without resetting agent registrations.
func (w *World) SetAllLaneZ(startZ, endZ float64) {
	w.registry.SetAllLaneZ(startZ, endZ)
}

// CarAhead returns c's nearest axis-ahead neighbor and distance using a
// fresh scan of its current lane.
func (w *World) CarAhead(c *Car) (*Car, float64) {
	sc := ScanLane(c.Lane(), c)
	return sc.Ahead, sc.AheadDist
}

// CarBehind returns c's nearest axis-behind neighbor and distance.
func (w *World) CarBehind(c *Car) (*Car, float64) {
	sc := ScanLane(c.Lane(), c)
	return sc.Behind, sc.BehindDist
}

// SpawnCarAtRandomFreePoint places one car at a random free mid-lane point.
// Reports success; exhaustion is logged and non-fatal.
func (w *World) SpawnCarAtRandomFreePoint() bool {
	_, ok := w.spawner.TrySpawnAtRandomFreePoint()
	return ok
}

// SpawnCar performs a directed in-flow spawn at a lane entry edge with the
// configured direction bias.
func (w *World) SpawnCar() {
	w.spawner.SpawnAtLaneStart(w.spawner.rollDirection())
}

// AddStaticCar places the sentinel stopper car at progress t on lane. It
// participates in perception but never moves or decides.
func (w *World) AddStaticCar(lane *Lane, t float64) *Car {
	c := w.newCar(lane.PointAt(t), DirForward, 0, true)
	w.grid.Insert(c, TagCar)
	c.setLane(lane)
	w.cars = append(w.cars, c)
	return c
}

// AddCar places a regular car directly; used by the harness and tests.
func (w *World) AddCar(lane *Lane, t float64, dir Direction, speed float64) *Car {
	c := w.newCar(lane.PointAt(t), dir, speed, false)
	w.grid.Insert(c, TagCar)
	c.setLane(lane)
	w.cars = append(w.cars, c)
	return c
}

// newCar builds a car handle with the world's archetype params injected.
// The spawner/registry reference travels with the car; agents never scan
// the scene for their owner.
func (w *World) newCar(pos Vec3, dir Direction, speed float64, static bool) *Car {
	id := w.nextID
	w.nextID++
	prefix := "F"
	if dir == DirReverse {
		prefix = "R"
	}
	if static {
		prefix = "S"
	}
	return &Car{
		id:            id,
		label:         fmt.Sprintf("%s%d", prefix, id),
		pos:           pos,
		speed:         speed,
		dir:           dir,
		params:        w.cfg.Car,
		static:        static,
		scanTick:      -1,
		lastYieldTick: -w.cfg.Car.YieldCooldownTicks, // first yield is not gated
		world:         w,
	}
}

// Update advances the simulation one fixed step: spawn scheduler, then for
// each car Perception → Speed → Lane change → Integration, then the
// end-of-lane lifecycle sweep.
func (w *World) Update() {
	w.tick++
	dt := w.Dt()

	// --- Spawn scheduler ---
	if w.spawningEnabled && w.cfg.Spawn.IntervalTicks > 0 && w.tick%w.cfg.Spawn.IntervalTicks == 0 {
		if len(w.cars) < w.cfg.Spawn.MaxPopulation {
			w.SpawnCarAtRandomFreePoint()
		}
	}

	// --- Agent turns ---
	// Iterate a snapshot: lane changes mutate membership lists and spawns
	// append to w.cars mid-tick; new cars wait for the next tick.
	for _, c := range w.Cars() {
		if c.lane == nil {
			continue // mid-destruction, skip this tick
		}
		c.scanFor(w.tick)
		c.updateSpeed(dt)
		c.updateLaneChange(dt)
		c.integrate(dt)

		if w.simLog.verbose {
			w.simLog.AddVerbose(w.tick, c.label, c.dir.String(), "speed", "current",
				fmt.Sprintf("%.2f", c.speed), c.speed)
			w.simLog.AddVerbose(w.tick, c.label, c.dir.String(), "move", "position",
				fmt.Sprintf("(%.1f,%.1f)", c.pos.X, c.pos.Z), 0)
		}
	}

	// --- Lifecycle sweep ---
	// Collect first, mutate after: never unsubscribe a car from a members
	// slice something may still be iterating.
	var removals []*Car
	for _, c := range w.cars {
		if c.lane == nil {
			continue
		}
		t := c.lane.rawProgressOf(c.pos)
		if (c.dir == DirForward && t > 1) || (c.dir == DirReverse && t < 0) {
			removals = append(removals, c)
		}
	}
	for _, c := range removals {
		w.removeCar(c)
	}

	// --- Broad phase + analytics ---
	w.rebuildGrid()
	w.reporter.Collect(w)
}

// removeCar destroys a car: unsubscribes it from its current (possibly
// mid-maneuver destination) lane, drops it from the grid and the
// population.
func (w *World) removeCar(c *Car) {
	c.setLane(nil)
	w.grid.Remove(c)
	for i, other := range w.cars {
		if other == c {
			w.cars = append(w.cars[:i], w.cars[i+1:]...)
			break
		}
	}
	w.removals++
	w.simLog.Add(w.tick, c.label, c.dir.String(), "lifecycle", "removed",
		"passed lane endpoint", 0)
}

func (w *World) rebuildGrid() {
	w.grid.Clear()
	for _, c := range w.cars {
		w.grid.Insert(c, TagCar)
	}
}

func (w *World) noteForcedSnap(c *Car) {
	w.forcedSnaps++
	w.simLog.Add(w.tick, c.label, c.dir.String(), "maneuver", "force_snap",
		"lateral convergence timed out", float64(maneuverTimeoutTicks))
}

// Stats is a plain counter snapshot for the headless CLI.
type Stats struct {
	Tick          int
	Population    int
	SpawnsTotal   int
	SpawnFailures int
	LaneChanges   int
	ForcedSnaps   int
	Removals      int
}

func (w *World) Stats() Stats {
	return Stats{
		Tick:          w.tick,
		Population:    len(w.cars),
		SpawnsTotal:   w.spawnsTotal,
		SpawnFailures: w.spawnFailures,
		LaneChanges:   w.laneChanges,
		ForcedSnaps:   w.forcedSnaps,
		Removals:      w.removals,
	}
}

// minObservedGap returns the smallest leader gap across live cars, +Inf
// when nobody has a leader. The reporter samples it each collection.
func (w *World) minObservedGap() float64 {
	minGap := math.Inf(1)
	for _, c := range w.cars {
		if c.lane == nil {
			continue
		}
		if sc := ScanLane(c.lane, c); sc.Ahead != nil && sc.AheadDist < minGap {
			minGap = sc.AheadDist
		}
	}
	return minGap
}
