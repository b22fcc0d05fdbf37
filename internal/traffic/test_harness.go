package traffic

// TestSim is a headless harness used by tests and the batch CLI. It wraps a
// World built from functional options, with deterministic seeding, the
// scheduler off unless asked for, and a structured SimLog to mine
// afterwards.
type TestSim struct {
	World *World
}

// simOptionKind controls the pass in which an option is applied.
type simOptionKind int

const (
	simOptInfra simOptionKind = iota // corridor shape, seed, verbose: applied to Config
	simOptCar                        // add cars: applied after the world exists
)

// SimOption is a builder function applied to a TestSim during construction.
type SimOption struct {
	kind  simOptionKind
	cfgFn func(*Config)
	simFn func(*TestSim)
}

// WithCorridor sets the lane layout: count parallel lanes of the given
// length.
func WithCorridor(laneCount int, length float64) SimOption {
	return SimOption{kind: simOptInfra, cfgFn: func(c *Config) {
		c.LaneCount = laneCount
		c.LaneLength = length
	}}
}

// WithLaneWidth overrides the default lane spacing.
func WithLaneWidth(w float64) SimOption {
	return SimOption{kind: simOptInfra, cfgFn: func(c *Config) {
		c.LaneWidth = w
	}}
}

// WithSeed sets the RNG seed for deterministic runs.
func WithSeed(seed int64) SimOption {
	return SimOption{kind: simOptInfra, cfgFn: func(c *Config) {
		c.Seed = seed
	}}
}

// WithVerbose enables per-tick verbose logging.
func WithVerbose(v bool) SimOption {
	return SimOption{kind: simOptInfra, cfgFn: func(c *Config) {
		c.Verbose = v
	}}
}

// WithCarParams swaps the car archetype.
func WithCarParams(p CarParams) SimOption {
	return SimOption{kind: simOptInfra, cfgFn: func(c *Config) {
		c.Car = p
	}}
}

// WithSpawnConfig swaps the spawner tuning.
func WithSpawnConfig(sc SpawnConfig) SimOption {
	return SimOption{kind: simOptInfra, cfgFn: func(c *Config) {
		c.Spawn = sc
	}}
}

// WithSpawning enables the periodic spawn scheduler, off by default so
// scripted scenarios stay deterministic in population.
func WithSpawning() SimOption {
	return SimOption{kind: simOptCar, simFn: func(ts *TestSim) {
		ts.World.EnableSpawning(true)
	}}
}

// WithCar places a car on lane laneIdx at progress t with the given
// direction and initial axis-signed speed.
func WithCar(laneIdx int, t float64, dir Direction, speed float64) SimOption {
	return SimOption{kind: simOptCar, simFn: func(ts *TestSim) {
		lane := ts.World.LaneByIndex(laneIdx)
		if lane == nil {
			return
		}
		ts.World.AddCar(lane, t, dir, speed)
	}}
}

// WithStaticCar parks the sentinel stopper at progress t on lane laneIdx.
func WithStaticCar(laneIdx int, t float64) SimOption {
	return SimOption{kind: simOptCar, simFn: func(ts *TestSim) {
		lane := ts.World.LaneByIndex(laneIdx)
		if lane == nil {
			return
		}
		ts.World.AddStaticCar(lane, t)
	}}
}

// NewTestSim constructs a harness in two ordered passes: infrastructure
// options build the Config, then car options populate the world.
// Construction panics on config errors; harness misuse is a test bug, not
// a runtime condition.
func NewTestSim(opts ...SimOption) *TestSim {
	cfg := DefaultConfig()
	for _, o := range opts {
		if o.kind == simOptInfra {
			o.cfgFn(&cfg)
		}
	}
	w, err := NewWorld(cfg)
	if err != nil {
		panic(err)
	}
	ts := &TestSim{World: w}
	for _, o := range opts {
		if o.kind == simOptCar {
			o.simFn(ts)
		}
	}
	return ts
}

// RunTicks advances the simulation n ticks.
func (ts *TestSim) RunTicks(n int) {
	for i := 0; i < n; i++ {
		ts.World.Update()
	}
}

// RunUntil advances up to maxTicks, stopping early if predicate returns
// true. Returns the tick at which it was satisfied, or -1.
func (ts *TestSim) RunUntil(predicate func(*TestSim) bool, maxTicks int) int {
	for i := 0; i < maxTicks; i++ {
		ts.World.Update()
		if predicate(ts) {
			return ts.World.Tick()
		}
	}
	return -1
}

// SimLog is a shortcut to the world's structured log.
func (ts *TestSim) SimLog() *SimLog { return ts.World.SimLog() }

// CarByLabel finds a live car by its label, or nil.
func (ts *TestSim) CarByLabel(label string) *Car {
	for _, c := range ts.World.Cars() {
		if c.Label() == label {
			return c
		}
	}
	return nil
}

// CarSnapshot is a lightweight copy of one car's state at a tick.
type CarSnapshot struct {
	ID          int
	Label       string
	LaneIndex   int
	Progress    float64
	Speed       float64
	Direction   Direction
	Maneuvering bool
}

// SimSnapshot captures the population at one tick.
type SimSnapshot struct {
	Tick int
	Cars []CarSnapshot
}

// Snapshot returns the current state of all cars.
func (ts *TestSim) Snapshot() SimSnapshot {
	snap := SimSnapshot{Tick: ts.World.Tick()}
	for _, c := range ts.World.Cars() {
		laneIdx := -1
		progress := 0.0
		if c.Lane() != nil {
			laneIdx = ts.World.Registry().IndexOf(c.Lane())
			progress = c.Lane().ProgressOf(c.Position())
		}
		snap.Cars = append(snap.Cars, CarSnapshot{
			ID:          c.ID(),
			Label:       c.Label(),
			LaneIndex:   laneIdx,
			Progress:    progress,
			Speed:       c.Speed(),
			Direction:   c.Direction(),
			Maneuvering: c.Maneuvering(),
		})
	}
	return snap
}
