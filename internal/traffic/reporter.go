package traffic

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// reportWindowTicks is the default sliding window for recent-behaviour
// summaries (~10s at 60 ticks/s) and the collection period.
const reportWindowTicks = 600

// collectEveryTicks is how often the reporter snapshots the world.
const collectEveryTicks = 30

// TrafficReport is a snapshot of the corridor at one tick.
type TrafficReport struct {
	Tick int

	Population   int
	ForwardCount int
	ReverseCount int
	StaticCount  int
	Maneuvering  int

	// Speed statistics over live non-static cars (absolute speeds).
	MeanSpeed   float64
	StdDev      float64
	MedianSpeed float64
	P90Speed    float64

	MinGap float64 // smallest scanned leader gap this snapshot

	LaneOccupancy []int // members per lane, index-aligned with the registry

	// Cumulative counters at snapshot time.
	SpawnsTotal   int
	SpawnFailures int
	LaneChanges   int
	ForcedSnaps   int
}

// TrafficReporter collects periodic reports and summarizes sliding windows.
type TrafficReporter struct {
	history     []TrafficReport
	windowTicks int
}

func NewTrafficReporter(windowTicks int) *TrafficReporter {
	if windowTicks <= 0 {
		windowTicks = reportWindowTicks
	}
	return &TrafficReporter{windowTicks: windowTicks}
}

// Collect snapshots w if a collection period has elapsed.
func (r *TrafficReporter) Collect(w *World) {
	if w.tick%collectEveryTicks != 0 {
		return
	}
	r.history = append(r.history, r.snapshot(w))
}

// History returns all collected reports.
func (r *TrafficReporter) History() []TrafficReport {
	return r.history
}

// Latest returns the most recent report, or a zero report if none.
func (r *TrafficReporter) Latest() TrafficReport {
	if len(r.history) == 0 {
		return TrafficReport{}
	}
	return r.history[len(r.history)-1]
}

func (r *TrafficReporter) snapshot(w *World) TrafficReport {
	rep := TrafficReport{
		Tick:          w.tick,
		Population:    len(w.cars),
		MinGap:        w.minObservedGap(),
		SpawnsTotal:   w.spawnsTotal,
		SpawnFailures: w.spawnFailures,
		LaneChanges:   w.laneChanges,
		ForcedSnaps:   w.forcedSnaps,
		LaneOccupancy: make([]int, w.registry.LaneCount()),
	}

	var speeds []float64
	for _, c := range w.cars {
		switch {
		case c.static:
			rep.StaticCount++
		case c.dir == DirForward:
			rep.ForwardCount++
		default:
			rep.ReverseCount++
		}
		if c.Maneuvering() {
			rep.Maneuvering++
		}
		if !c.static {
			speeds = append(speeds, math.Abs(c.speed))
		}
	}
	for i := 0; i < w.registry.LaneCount(); i++ {
		rep.LaneOccupancy[i] = w.registry.LaneAt(i).memberCount()
	}

	if len(speeds) > 0 {
		sort.Float64s(speeds)
		rep.MeanSpeed = stat.Mean(speeds, nil)
		rep.StdDev = stat.StdDev(speeds, nil)
		rep.MedianSpeed = stat.Quantile(0.5, stat.Empirical, speeds, nil)
		rep.P90Speed = stat.Quantile(0.9, stat.Empirical, speeds, nil)
	}
	return rep
}

// WindowSummary aggregates the reports inside one sliding window.
type WindowSummary struct {
	FromTick, ToTick int
	Samples          int

	AvgPopulation float64
	AvgMeanSpeed  float64
	WorstMinGap   float64
	LaneChanges   int // delta across the window
	SpawnFailures int // delta across the window
}

// Window summarizes the reports collected within the last windowTicks.
func (r *TrafficReporter) Window() WindowSummary {
	if len(r.history) == 0 {
		return WindowSummary{WorstMinGap: math.Inf(1)}
	}
	last := r.history[len(r.history)-1]
	from := last.Tick - r.windowTicks

	sum := WindowSummary{FromTick: last.Tick, ToTick: last.Tick, WorstMinGap: math.Inf(1)}
	var pops, speeds []float64
	var first *TrafficReport
	for i := range r.history {
		rep := &r.history[i]
		if rep.Tick < from {
			continue
		}
		if first == nil {
			first = rep
			sum.FromTick = rep.Tick
		}
		sum.Samples++
		pops = append(pops, float64(rep.Population))
		speeds = append(speeds, rep.MeanSpeed)
		if rep.MinGap < sum.WorstMinGap {
			sum.WorstMinGap = rep.MinGap
		}
	}
	if first != nil {
		sum.LaneChanges = last.LaneChanges - first.LaneChanges
		sum.SpawnFailures = last.SpawnFailures - first.SpawnFailures
	}
	if len(pops) > 0 {
		sum.AvgPopulation = stat.Mean(pops, nil)
		sum.AvgMeanSpeed = stat.Mean(speeds, nil)
	}
	return sum
}

// FormatReport renders a report as a human-readable block, suitable for the
// viewer's clipboard export and the headless CLI.
func FormatReport(rep TrafficReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "tick=%d population=%d (fwd=%d rev=%d static=%d) maneuvering=%d\n",
		rep.Tick, rep.Population, rep.ForwardCount, rep.ReverseCount, rep.StaticCount, rep.Maneuvering)
	fmt.Fprintf(&b, "speed mean=%.2f sd=%.2f p50=%.2f p90=%.2f\n",
		rep.MeanSpeed, rep.StdDev, rep.MedianSpeed, rep.P90Speed)
	if math.IsInf(rep.MinGap, 1) {
		b.WriteString("min gap: n/a\n")
	} else {
		fmt.Fprintf(&b, "min gap=%.2f\n", rep.MinGap)
	}
	fmt.Fprintf(&b, "lanes:")
	for i, n := range rep.LaneOccupancy {
		fmt.Fprintf(&b, " L%d=%d", i, n)
	}
	b.WriteByte('\n')
	fmt.Fprintf(&b, "spawns=%d failures=%d lane_changes=%d forced_snaps=%d\n",
		rep.SpawnsTotal, rep.SpawnFailures, rep.LaneChanges, rep.ForcedSnaps)
	return b.String()
}
