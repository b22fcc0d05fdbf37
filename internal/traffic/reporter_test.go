package traffic

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSnapshot_CountsAndSpeedStats(t *testing.T) {
	ts := NewTestSim(
		WithCorridor(3, 400),
		WithCar(0, 0.5, DirForward, 10),
		WithCar(0, 0.52, DirReverse, -20),
		WithStaticCar(1, 0.5),
	)
	r := NewTrafficReporter(0)
	rep := r.snapshot(ts.World)

	if rep.Population != 3 || rep.ForwardCount != 1 || rep.ReverseCount != 1 || rep.StaticCount != 1 {
		t.Fatalf("counts = pop %d fwd %d rev %d static %d, want 3/1/1/1",
			rep.Population, rep.ForwardCount, rep.ReverseCount, rep.StaticCount)
	}
	if rep.Maneuvering != 0 {
		t.Fatalf("Maneuvering = %d, want 0", rep.Maneuvering)
	}

	// Absolute speeds of the two movers are 10 and 20; the static sentinel
	// is excluded from speed statistics.
	if math.Abs(rep.MeanSpeed-15) > 1e-9 {
		t.Fatalf("MeanSpeed = %g, want 15", rep.MeanSpeed)
	}
	if math.Abs(rep.StdDev-math.Sqrt(50)) > 1e-9 {
		t.Fatalf("StdDev = %g, want sqrt(50)", rep.StdDev)
	}
	if rep.MedianSpeed != 10 || rep.P90Speed != 20 {
		t.Fatalf("quantiles p50=%g p90=%g, want 10 and 20", rep.MedianSpeed, rep.P90Speed)
	}

	// The two movers sit 8 units apart on lane 0.
	if math.Abs(rep.MinGap-8) > 1e-6 {
		t.Fatalf("MinGap = %g, want 8", rep.MinGap)
	}
	if diff := cmp.Diff([]int{2, 1, 0}, rep.LaneOccupancy); diff != "" {
		t.Fatalf("lane occupancy mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshot_EmptyWorld(t *testing.T) {
	ts := NewTestSim(WithCorridor(2, 400))
	r := NewTrafficReporter(0)
	rep := r.snapshot(ts.World)

	if rep.Population != 0 || rep.MeanSpeed != 0 {
		t.Fatalf("empty world snapshot = pop %d mean %g, want zeros", rep.Population, rep.MeanSpeed)
	}
	if !math.IsInf(rep.MinGap, 1) {
		t.Fatalf("MinGap = %g, want +Inf with no leaders", rep.MinGap)
	}
}

func TestCollect_Period(t *testing.T) {
	ts := NewTestSim(WithCorridor(2, 400))
	ts.RunTicks(90)

	hist := ts.World.Reporter().History()
	if len(hist) != 3 {
		t.Fatalf("history length = %d after 90 ticks, want 3", len(hist))
	}
	wantTicks := []int{30, 60, 90}
	for i, rep := range hist {
		if rep.Tick != wantTicks[i] {
			t.Fatalf("history[%d].Tick = %d, want %d", i, rep.Tick, wantTicks[i])
		}
	}
	if got := ts.World.Reporter().Latest().Tick; got != 90 {
		t.Fatalf("Latest().Tick = %d, want 90", got)
	}
}

func TestWindow_AggregatesRecentReports(t *testing.T) {
	r := NewTrafficReporter(100)
	r.history = []TrafficReport{
		{Tick: 0, Population: 2, MeanSpeed: 10, MinGap: 5, LaneChanges: 0, SpawnFailures: 0},
		{Tick: 60, Population: 4, MeanSpeed: 12, MinGap: 3, LaneChanges: 2, SpawnFailures: 1},
		{Tick: 120, Population: 6, MeanSpeed: 14, MinGap: 4, LaneChanges: 5, SpawnFailures: 1},
	}

	want := WindowSummary{
		FromTick:      60,
		ToTick:        120,
		Samples:       2,
		AvgPopulation: 5,
		AvgMeanSpeed:  13,
		WorstMinGap:   3,
		LaneChanges:   3,
		SpawnFailures: 0,
	}
	if diff := cmp.Diff(want, r.Window()); diff != "" {
		t.Fatalf("window summary mismatch (-want +got):\n%s", diff)
	}
}

func TestWindow_EmptyHistory(t *testing.T) {
	sum := NewTrafficReporter(0).Window()
	if sum.Samples != 0 || !math.IsInf(sum.WorstMinGap, 1) {
		t.Fatalf("empty window = %+v, want zero samples and +Inf worst gap", sum)
	}
}

func TestFormatReport_Renders(t *testing.T) {
	rep := TrafficReport{
		Tick:          300,
		Population:    4,
		ForwardCount:  3,
		ReverseCount:  1,
		MeanSpeed:     12.5,
		MinGap:        6.25,
		LaneOccupancy: []int{2, 2},
		SpawnsTotal:   9,
	}
	out := FormatReport(rep)
	for _, want := range []string{"tick=300", "population=4", "mean=12.50", "min gap=6.25", "L0=2 L1=2", "spawns=9"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}

	noGap := FormatReport(TrafficReport{MinGap: math.Inf(1)})
	if !strings.Contains(noGap, "min gap: n/a") {
		t.Fatalf("infinite gap not rendered as n/a:\n%s", noGap)
	}
}
