package traffic

import (
	"math"
	"testing"
)

// Invariant helpers, run periodically inside long scenario loops. Each one
// fails fast with the offending tick so a broken run is debuggable from the
// failure alone.

// checkGapSafety: no forward mover out-travels its leader gap. The half-unit
// slack covers the leader's own within-tick displacement; reverse cars follow
// a reactive law with no hard stop and are exempt.
func checkGapSafety(t *testing.T, w *World) {
	t.Helper()
	slack := 0.5
	for _, c := range w.Cars() {
		if c.IsStatic() || c.Direction() != DirForward || c.Lane() == nil {
			continue
		}
		sc := ScanLane(c.Lane(), c)
		if sc.Ahead != nil && sc.AheadDist < c.params.MinGap-slack {
			t.Fatalf("tick %d: %s gap to %s = %g, below min gap %g",
				w.Tick(), c.Label(), sc.Ahead.Label(), sc.AheadDist, c.params.MinGap)
		}
	}
}

// checkSpeedBounds: forward cars never exceed max speed; reverse cars never
// exceed their spawn-time magnitude envelope.
func checkSpeedBounds(t *testing.T, w *World) {
	t.Helper()
	revMax := w.Config().Spawn.BaseSpeed + w.Config().Spawn.SpeedVariability
	for _, c := range w.Cars() {
		if c.IsStatic() {
			if c.Speed() != 0 {
				t.Fatalf("tick %d: static %s has speed %g", w.Tick(), c.Label(), c.Speed())
			}
			continue
		}
		switch c.Direction() {
		case DirForward:
			if c.Speed() > c.params.MaxSpeed+0.01 {
				t.Fatalf("tick %d: %s speed %g exceeds max %g",
					w.Tick(), c.Label(), c.Speed(), c.params.MaxSpeed)
			}
		case DirReverse:
			if math.Abs(c.Speed()) > revMax+0.01 {
				t.Fatalf("tick %d: %s reverse speed %g exceeds envelope %g",
					w.Tick(), c.Label(), c.Speed(), revMax)
			}
		}
	}
}

// checkMembershipExclusive: every live car is registered on exactly the lane
// it points at, and on no other.
func checkMembershipExclusive(t *testing.T, w *World) {
	t.Helper()
	for _, c := range w.Cars() {
		if c.Lane() == nil {
			t.Fatalf("tick %d: live car %s has no lane", w.Tick(), c.Label())
		}
		seen := 0
		for i := 0; i < w.Registry().LaneCount(); i++ {
			lane := w.LaneByIndex(i)
			for _, m := range lane.Members() {
				if m != c {
					continue
				}
				seen++
				if lane != c.Lane() {
					t.Fatalf("tick %d: %s registered on lane %d but points at lane %d",
						w.Tick(), c.Label(), i, w.Registry().IndexOf(c.Lane()))
				}
			}
		}
		if seen != 1 {
			t.Fatalf("tick %d: %s registered on %d lanes, want exactly 1", w.Tick(), c.Label(), seen)
		}
	}
}

func checkAll(t *testing.T, w *World) {
	t.Helper()
	checkGapSafety(t, w)
	checkSpeedBounds(t, w)
	checkMembershipExclusive(t, w)
}

// A busy spawning corridor with a mid-lane stopper holds every invariant
// for a long run.
func TestInvariants_SpawningCorridorWithStopper(t *testing.T) {
	ts := NewTestSim(
		WithCorridor(3, 400),
		WithSeed(29),
		WithSpawning(),
		WithStaticCar(1, 0.5),
	)

	for i := 0; i < 3000; i++ {
		ts.RunTicks(1)
		checkAll(t, ts.World)
	}

	stats := ts.World.Stats()
	if stats.ForcedSnaps != 0 {
		t.Fatalf("ForcedSnaps = %d on default tuning, want 0", stats.ForcedSnaps)
	}
	if stats.SpawnsTotal == 0 {
		t.Fatal("scheduler placed no cars in 3000 ticks")
	}
}

// A scripted jam: slow-starting leader, fast followers, no escape lanes.
func TestInvariants_SingleLaneColumn(t *testing.T) {
	ts := NewTestSim(
		WithCorridor(1, 600),
		WithCar(0, 0.40, DirForward, 4),
		WithCar(0, 0.30, DirForward, 20),
		WithCar(0, 0.20, DirForward, 28),
		WithCar(0, 0.10, DirForward, 28),
	)

	for i := 0; i < 1200; i++ {
		ts.RunTicks(1)
		checkAll(t, ts.World)
	}
	// Followers disciplined themselves behind the slow leader; the column
	// drains off the far end in order, so ordering never inverts.
	cars := ts.World.Cars()
	for i := 0; i < len(cars); i++ {
		for j := i + 1; j < len(cars); j++ {
			if cars[i].Position().Z < cars[j].Position().Z {
				t.Fatalf("column order inverted: %s (z=%g) behind %s (z=%g)",
					cars[i].Label(), cars[i].Position().Z, cars[j].Label(), cars[j].Position().Z)
			}
		}
	}
}

// Mixed directions on one lane: a head-on encounter resolves without a
// forward car overrunning its leader gap.
func TestInvariants_HeadOnEncounter(t *testing.T) {
	ts := NewTestSim(
		WithCorridor(1, 800),
		WithCar(0, 0.3, DirForward, 20),
		WithCar(0, 0.6, DirReverse, -16),
	)

	for i := 0; i < 900; i++ {
		ts.RunTicks(1)
		checkAll(t, ts.World)
	}
}
