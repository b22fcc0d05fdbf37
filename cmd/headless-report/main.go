package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/Garsondee/Traffic-Sense/internal/traffic"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

type runStats struct {
	runIndex int
	seed     int64

	population    int
	spawnsTotal   int
	spawnFailures int
	laneChanges   int
	forcedSnaps   int
	removals      int

	firstSwitchTick int
	avgMeanSpeed    float64
	worstMinGap     float64

	history []traffic.TrafficReport
}

func main() {
	var runs int
	var ticks int
	var seedBase int64
	var seedStep int64
	var scenario string
	var lanes int
	var chartOut string

	flag.IntVar(&runs, "runs", 5, "number of headless simulation runs")
	flag.IntVar(&ticks, "ticks", 3600, "ticks per run")
	flag.Int64Var(&seedBase, "seed-base", 42, "base RNG seed for run 1")
	flag.Int64Var(&seedStep, "seed-step", 1, "seed increment between runs")
	flag.StringVar(&scenario, "scenario", "congestion", "scenario name")
	flag.IntVar(&lanes, "lanes", 3, "number of parallel lanes")
	flag.StringVar(&chartOut, "chart-out", "", "write an HTML chart of the last run to this path")
	flag.Parse()

	if runs <= 0 {
		fmt.Println("error: -runs must be > 0")
		return
	}
	if ticks <= 0 {
		fmt.Println("error: -ticks must be > 0")
		return
	}
	if scenario != "congestion" && scenario != "free-flow" {
		fmt.Printf("error: unsupported scenario %q (supported: congestion, free-flow)\n", scenario)
		return
	}

	fmt.Printf("=== Headless Traffic Report ===\n")
	fmt.Printf("scenario=%s runs=%d ticks=%d lanes=%d seed_base=%d seed_step=%d\n\n",
		scenario, runs, ticks, lanes, seedBase, seedStep)

	all := make([]runStats, 0, runs)
	for i := 0; i < runs; i++ {
		seed := seedBase + int64(i)*seedStep
		stats := runScenario(scenario, i+1, seed, ticks, lanes)
		all = append(all, stats)
		printRun(stats)
	}

	printAggregate(all)

	if chartOut != "" && len(all) > 0 {
		last := all[len(all)-1]
		if err := writeChart(chartOut, scenario, last); err != nil {
			fmt.Printf("chart: %v\n", err)
			return
		}
		fmt.Printf("chart written to %s\n", chartOut)
	}
}

func runScenario(scenario string, runIndex int, seed int64, ticks, lanes int) runStats {
	simOpts := []traffic.SimOption{
		traffic.WithCorridor(lanes, 400),
		traffic.WithSeed(seed),
		traffic.WithSpawning(),
	}
	if scenario == "congestion" {
		// A parked stopper mid-corridor on the middle lane forces braking
		// and lane changes around it.
		simOpts = append(simOpts, traffic.WithStaticCar(lanes/2, 0.5))
	}
	ts := traffic.NewTestSim(simOpts...)
	ts.World.Spawner().PopulateCorridor(10)
	ts.RunTicks(ticks)

	st := ts.World.Stats()
	rs := runStats{
		runIndex:        runIndex,
		seed:            seed,
		population:      st.Population,
		spawnsTotal:     st.SpawnsTotal,
		spawnFailures:   st.SpawnFailures,
		laneChanges:     st.LaneChanges,
		forcedSnaps:     st.ForcedSnaps,
		removals:        st.Removals,
		firstSwitchTick: -1,
		worstMinGap:     math.Inf(1),
		history:         ts.World.Reporter().History(),
	}

	for _, e := range ts.SimLog().Filter("lane", "switch") {
		rs.firstSwitchTick = e.Tick
		break
	}
	n := 0
	for _, rep := range rs.history {
		rs.avgMeanSpeed += rep.MeanSpeed
		n++
		if rep.MinGap < rs.worstMinGap {
			rs.worstMinGap = rep.MinGap
		}
	}
	if n > 0 {
		rs.avgMeanSpeed /= float64(n)
	}
	return rs
}

func printRun(rs runStats) {
	fmt.Printf("--- run %d (seed=%d) ---\n", rs.runIndex, rs.seed)
	fmt.Printf("  population=%d spawns=%d failures=%d removals=%d\n",
		rs.population, rs.spawnsTotal, rs.spawnFailures, rs.removals)
	fmt.Printf("  lane_changes=%d forced_snaps=%d first_switch_tick=%s\n",
		rs.laneChanges, rs.forcedSnaps, tickLabel(rs.firstSwitchTick))
	fmt.Printf("  avg_mean_speed=%.2f worst_min_gap=%s\n\n",
		rs.avgMeanSpeed, gapLabel(rs.worstMinGap))
}

func printAggregate(all []runStats) {
	if len(all) == 0 {
		return
	}
	var spawns, failures, changes, snaps int
	var speedSum float64
	worstGap := math.Inf(1)
	for _, rs := range all {
		spawns += rs.spawnsTotal
		failures += rs.spawnFailures
		changes += rs.laneChanges
		snaps += rs.forcedSnaps
		speedSum += rs.avgMeanSpeed
		if rs.worstMinGap < worstGap {
			worstGap = rs.worstMinGap
		}
	}
	n := float64(len(all))
	fmt.Printf("=== aggregate over %d runs ===\n", len(all))
	fmt.Printf("  spawns/run=%.1f failures/run=%.1f lane_changes/run=%.1f forced_snaps/run=%.1f\n",
		float64(spawns)/n, float64(failures)/n, float64(changes)/n, float64(snaps)/n)
	fmt.Printf("  avg_mean_speed=%.2f worst_min_gap=%s\n",
		speedSum/n, gapLabel(worstGap))
}

func tickLabel(t int) string {
	if t < 0 {
		return "never"
	}
	return fmt.Sprintf("%d", t)
}

func gapLabel(g float64) string {
	if math.IsInf(g, 1) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", g)
}

// writeChart renders the last run's collected reports as an HTML page: mean
// speed and population over time plus the final lane occupancy histogram.
func writeChart(path, scenario string, rs runStats) error {
	if len(rs.history) == 0 {
		return fmt.Errorf("no reports collected")
	}

	xs := make([]string, 0, len(rs.history))
	speedData := make([]opts.LineData, 0, len(rs.history))
	popData := make([]opts.LineData, 0, len(rs.history))
	for _, rep := range rs.history {
		xs = append(xs, fmt.Sprintf("%d", rep.Tick))
		speedData = append(speedData, opts.LineData{Value: rep.MeanSpeed})
		popData = append(popData, opts.LineData{Value: rep.Population})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Corridor over time",
			Subtitle: fmt.Sprintf("scenario=%s seed=%d", scenario, rs.seed),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(xs).
		AddSeries("mean speed", speedData).
		AddSeries("population", popData)

	final := rs.history[len(rs.history)-1]
	laneXs := make([]string, 0, len(final.LaneOccupancy))
	occData := make([]opts.BarData, 0, len(final.LaneOccupancy))
	for i, n := range final.LaneOccupancy {
		laneXs = append(laneXs, fmt.Sprintf("L%d", i))
		occData = append(occData, opts.BarData{Value: n})
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Final lane occupancy"}))
	bar.SetXAxis(laneXs).AddSeries("cars", occData)

	page := components.NewPage()
	page.AddCharts(line, bar)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}
