package traffic

import "fmt"

// SpawnConfig tunes agent placement and the periodic spawn scheduler.
type SpawnConfig struct {
	EdgeBuffer         float64 // keep spawns this far from lane endpoints
	MaxAttemptsPerLane int     // random placement budget per lane
	CheckDepth         float64 // full length of the occupancy window
	ForwardBias        float64 // P(new car travels forward)
	BaseSpeed          float64 // speed generator center
	SpeedVariability   float64 // speed generator half-range
	IntervalTicks      int     // scheduler period
	MaxPopulation      int     // scheduler live-car cap
	EndpointAttempts   int     // directed endpoint spawn retries before forcing
	PopulateBudget     int     // consecutive failures before PopulateCorridor gives up
}

// DefaultSpawnConfig matches the default corridor scale.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		EdgeBuffer:         5,
		MaxAttemptsPerLane: 4,
		CheckDepth:         12,
		ForwardBias:        0.7,
		BaseSpeed:          16,
		SpeedVariability:   4,
		IntervalTicks:      90,
		MaxPopulation:      40,
		EndpointAttempts:   10,
		PopulateBudget:     8,
	}
}

// Validate rejects configurations that can never place a car.
func (c SpawnConfig) Validate() error {
	if c.EdgeBuffer < 0 {
		return fmt.Errorf("spawn config: edge buffer must be >= 0, got %g", c.EdgeBuffer)
	}
	if c.MaxAttemptsPerLane < 1 {
		return fmt.Errorf("spawn config: attempts per lane must be >= 1, got %d", c.MaxAttemptsPerLane)
	}
	if c.CheckDepth <= 0 {
		return fmt.Errorf("spawn config: check depth must be > 0, got %g", c.CheckDepth)
	}
	if c.ForwardBias < 0 || c.ForwardBias > 1 {
		return fmt.Errorf("spawn config: forward bias must be in [0,1], got %g", c.ForwardBias)
	}
	if c.BaseSpeed <= 0 {
		return fmt.Errorf("spawn config: base speed must be > 0, got %g", c.BaseSpeed)
	}
	return nil
}

// Spawner places new agents on lanes at free locations found by bounded
// random search. It consults both lane registrations and the broad-phase
// grid; the grid catches cars instantiated but not yet registered.
type Spawner struct {
	world *World
	cfg   SpawnConfig
}

func newSpawner(w *World, cfg SpawnConfig) *Spawner {
	return &Spawner{world: w, cfg: cfg}
}

// TrySpawnAtRandomFreePoint makes up to laneCount × MaxAttemptsPerLane
// attempts to place a car at a uniformly random mid-lane point whose
// occupancy window is free. Returns the car, or nil and false after
// exhausting the budget, a reported, non-fatal outcome; the scheduler just
// tries again next interval.
func (s *Spawner) TrySpawnAtRandomFreePoint() (*Car, bool) {
	w := s.world
	attempts := w.registry.LaneCount() * s.cfg.MaxAttemptsPerLane
	for i := 0; i < attempts; i++ {
		lane := w.registry.LaneAt(w.rng.Intn(w.registry.LaneCount()))
		length := lane.Length()
		if length <= 2*s.cfg.EdgeBuffer {
			continue // lane too short for the buffer
		}
		tMin := s.cfg.EdgeBuffer / length
		t := tMin + w.rng.Float64()*(1-2*tMin)
		p := lane.PointAt(t)
		if !s.areaFree(lane, p, -s.cfg.CheckDepth/2, s.cfg.CheckDepth/2) {
			continue
		}
		return s.spawnAt(lane, p), true
	}
	w.spawnFailures++
	w.simLog.Add(w.tick, "--", "--", "spawn", "exhausted",
		fmt.Sprintf("%d attempts, corridor saturated", attempts), float64(attempts))
	return nil, false
}

// SpawnAtLaneStart is the directed in-flow variant: place a car at a lane's
// entry edge, checking a forward rectangle from the spawn point rather than
// a symmetric window. After EndpointAttempts failed tries the last
// candidate is forced: in-flow must not stall on a busy corridor.
func (s *Spawner) SpawnAtLaneStart(dir Direction) *Car {
	w := s.world
	var lane *Lane
	var p Vec3
	for i := 0; i < s.cfg.EndpointAttempts; i++ {
		lane = w.registry.LaneAt(w.rng.Intn(w.registry.LaneCount()))
		length := lane.Length()
		if length <= s.cfg.EdgeBuffer {
			continue
		}
		t := s.cfg.EdgeBuffer / length
		if dir == DirReverse {
			t = 1 - t
		}
		p = lane.PointAt(t)
		lo, hi := 0.0, s.cfg.CheckDepth
		if dir == DirReverse {
			lo, hi = -s.cfg.CheckDepth, 0
		}
		if s.areaFree(lane, p, lo, hi) {
			return s.spawnDirected(lane, p, dir)
		}
	}
	if lane == nil {
		return nil
	}
	w.simLog.Add(w.tick, "--", dir.String(), "spawn", "forced_endpoint",
		fmt.Sprintf("lane %d after %d attempts", lane.ID(), s.cfg.EndpointAttempts), float64(lane.ID()))
	return s.spawnDirected(lane, p, dir)
}

// PopulateCorridor repeatedly spawns until target cars exist, giving up
// after PopulateBudget consecutive failures so a saturated corridor cannot
// loop forever. Returns the number actually placed.
func (s *Spawner) PopulateCorridor(target int) int {
	placed := 0
	failures := 0
	for placed < target && failures < s.cfg.PopulateBudget {
		if _, ok := s.TrySpawnAtRandomFreePoint(); ok {
			placed++
			failures = 0
		} else {
			failures++
		}
	}
	return placed
}

// areaFree reports whether the occupancy window [lo, hi] along the lane
// axis around p (full lane width) is empty. The symmetric mid-lane check
// passes ±CheckDepth/2; the directed endpoint check passes a one-sided
// range in the travel direction. Lane registrations are tested first, then
// the broad-phase grid as the fallback.
func (s *Spawner) areaFree(lane *Lane, p Vec3, lo, hi float64) bool {
	axis := lane.Axis()
	halfWidth := s.world.registry.LaneWidth() / 2
	for _, m := range lane.members {
		off := m.pos.Sub(p).Dot(axis)
		if off >= lo && off <= hi {
			return false
		}
	}

	boxMin := p.Add(axis.Scale(lo)).Sub(Vec3{X: halfWidth})
	boxMax := p.Add(axis.Scale(hi)).Add(Vec3{X: halfWidth})
	if boxMin.Z > boxMax.Z {
		boxMin.Z, boxMax.Z = boxMax.Z, boxMin.Z
	}
	return !s.world.grid.Overlaps(boxMin, boxMax, TagCar)
}

// rollDirection picks a travel direction with the configured forward bias.
func (s *Spawner) rollDirection() Direction {
	if s.world.rng.Float64() < s.cfg.ForwardBias {
		return DirForward
	}
	return DirReverse
}

// generateSpeed produces an initial axis-signed speed: baseSpeed plus or
// minus variability, halved for forward travel, negated for reverse.
func (s *Spawner) generateSpeed(dir Direction) float64 {
	v := s.cfg.BaseSpeed + (s.world.rng.Float64()*2-1)*s.cfg.SpeedVariability
	if dir == DirForward {
		return v / 2
	}
	return -v
}

func (s *Spawner) spawnAt(lane *Lane, p Vec3) *Car {
	return s.spawnDirected(lane, p, s.rollDirection())
}

func (s *Spawner) spawnDirected(lane *Lane, p Vec3, dir Direction) *Car {
	w := s.world
	c := w.newCar(p, dir, s.generateSpeed(dir), false)
	// Broad phase first: the car is findable before it is registered.
	w.grid.Insert(c, TagCar)
	c.setLane(lane)
	w.cars = append(w.cars, c)
	w.spawnsTotal++
	w.simLog.Add(w.tick, c.label, dir.String(), "spawn", "placed",
		fmt.Sprintf("lane %d t=%.2f v=%.1f", lane.ID(), lane.ProgressOf(p), c.speed), c.speed)
	return c
}
