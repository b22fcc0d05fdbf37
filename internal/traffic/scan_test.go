package traffic

import (
	"math"
	"testing"
)

// corridor 400, lane width 4: progress 0.01 = 4 world units.

func TestScanLane_NearestAheadAndBehind(t *testing.T) {
	ts := NewTestSim(
		WithCorridor(1, 400),
		WithSeed(1),
		WithCar(0, 0.50, DirForward, 0), // subject
		WithCar(0, 0.52, DirForward, 0), // 8 ahead
		WithCar(0, 0.55, DirForward, 0), // 20 ahead, farther
		WithCar(0, 0.47, DirForward, 0), // 12 behind
		WithCar(0, 0.40, DirForward, 0), // 40 behind, out of lookbehind range
	)
	cars := ts.World.Cars()
	subject := cars[0]

	sc := ScanLane(subject.Lane(), subject)
	if sc.Ahead != cars[1] {
		t.Fatalf("expected nearest ahead to be %s, got %v", cars[1].Label(), sc.Ahead)
	}
	if math.Abs(sc.AheadDist-8) > 1e-9 {
		t.Fatalf("expected ahead distance 8, got %g", sc.AheadDist)
	}
	if sc.Behind != cars[3] {
		t.Fatalf("expected nearest behind to be %s, got %v", cars[3].Label(), sc.Behind)
	}
	if math.Abs(sc.BehindDist-12) > 1e-9 {
		t.Fatalf("expected behind distance 12, got %g", sc.BehindDist)
	}
}

func TestScanLane_RangeBounds(t *testing.T) {
	ts := NewTestSim(
		WithCorridor(1, 400),
		WithSeed(1),
		WithCar(0, 0.50, DirForward, 0),
		WithCar(0, 0.57, DirForward, 0), // 28 ahead, outside lookahead 24
		WithCar(0, 0.45, DirForward, 0), // 20 behind, outside lookbehind 16
	)
	subject := ts.World.Cars()[0]

	sc := ScanLane(subject.Lane(), subject)
	if sc.Ahead != nil {
		t.Fatalf("expected no car within lookahead, got %s", sc.Ahead.Label())
	}
	if !math.IsInf(sc.AheadDist, 1) {
		t.Fatalf("expected +Inf ahead distance, got %g", sc.AheadDist)
	}
	if sc.Behind != nil {
		t.Fatalf("expected no car within lookbehind, got %s", sc.Behind.Label())
	}
	if !math.IsInf(sc.BehindDist, 1) {
		t.Fatalf("expected +Inf behind distance, got %g", sc.BehindDist)
	}
}

func TestScanLane_NilInputs(t *testing.T) {
	sc := ScanLane(nil, nil)
	if sc.Ahead != nil || sc.Behind != nil {
		t.Fatal("nil scan must be empty")
	}
	if !math.IsInf(sc.AheadDist, 1) || !math.IsInf(sc.BehindDist, 1) {
		t.Fatal("nil scan distances must be +Inf")
	}
}

func TestScanLane_IgnoresOtherLanes(t *testing.T) {
	ts := NewTestSim(
		WithCorridor(2, 400),
		WithSeed(1),
		WithCar(0, 0.50, DirForward, 0),
		WithCar(1, 0.51, DirForward, 0), // adjacent lane, not scanned
	)
	subject := ts.World.Cars()[0]

	sc := ScanLane(subject.Lane(), subject)
	if sc.Ahead != nil {
		t.Fatalf("scan must only see own-lane members, got %s", sc.Ahead.Label())
	}
}

func TestScanFor_CachedOncePerTick(t *testing.T) {
	ts := NewTestSim(
		WithCorridor(1, 400),
		WithSeed(1),
		WithCar(0, 0.50, DirForward, 0),
		WithCar(0, 0.52, DirForward, 0),
	)
	subject := ts.World.Cars()[0]
	other := ts.World.Cars()[1]

	sc1 := subject.scanFor(1)
	// Move the neighbor; the cached scan for the same tick must not change.
	other.pos = other.pos.Add(Vec3{Z: 4})
	sc2 := subject.scanFor(1)
	if sc1.AheadDist != sc2.AheadDist {
		t.Fatalf("same-tick scan must be cached: %g vs %g", sc1.AheadDist, sc2.AheadDist)
	}
	sc3 := subject.scanFor(2)
	if math.Abs(sc3.AheadDist-12) > 1e-9 {
		t.Fatalf("next-tick scan must recompute, got %g", sc3.AheadDist)
	}
}

func TestWorldCarAheadBehind(t *testing.T) {
	ts := NewTestSim(
		WithCorridor(1, 400),
		WithSeed(1),
		WithCar(0, 0.50, DirForward, 0),
		WithCar(0, 0.52, DirForward, 0),
		WithCar(0, 0.48, DirForward, 0),
	)
	cars := ts.World.Cars()
	subject, lead, tail := cars[0], cars[1], cars[2]

	got, dist := ts.World.CarAhead(subject)
	if got != lead || math.Abs(dist-8) > 1e-9 {
		t.Fatalf("CarAhead = %v at %g, want lead at 8", got, dist)
	}
	got, dist = ts.World.CarBehind(subject)
	if got != tail || math.Abs(dist-8) > 1e-9 {
		t.Fatalf("CarBehind = %v at %g, want tail at 8", got, dist)
	}

	got, dist = ts.World.CarAhead(lead)
	if got != nil || !math.IsInf(dist, 1) {
		t.Fatalf("CarAhead at the front = %v at %g, want nil and +Inf", got, dist)
	}
}

func TestHeadingAxis(t *testing.T) {
	ts := NewTestSim(
		WithCorridor(1, 400),
		WithSeed(1),
		WithCar(0, 0.5, DirForward, 0),
		WithCar(0, 0.6, DirReverse, 0),
	)
	cars := ts.World.Cars()
	if h := cars[0].HeadingAxis(); h.Z != 1 {
		t.Fatalf("forward heading = %v, want +Z", h)
	}
	if h := cars[1].HeadingAxis(); h.Z != -1 {
		t.Fatalf("reverse heading = %v, want -Z", h)
	}
	if h := (&Car{}).HeadingAxis(); h != (Vec3{}) {
		t.Fatalf("laneless heading = %v, want zero", h)
	}
}
