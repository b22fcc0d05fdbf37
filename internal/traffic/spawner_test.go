package traffic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawn_RespectsEdgeBuffer(t *testing.T) {
	ts := NewTestSim(WithCorridor(3, 400), WithSeed(7))
	sp := ts.World.Spawner()

	placed := sp.PopulateCorridor(20)
	require.Greater(t, placed, 0, "an empty corridor should accept spawns")

	tMin := sp.cfg.EdgeBuffer / 400
	for _, c := range ts.World.Cars() {
		tt := c.Lane().ProgressOf(c.Position())
		assert.GreaterOrEqual(t, tt, tMin-1e-9, "car %s inside the start buffer", c.Label())
		assert.LessOrEqual(t, tt, 1-tMin+1e-9, "car %s inside the end buffer", c.Label())
	}
}

// Without any ticks run, every pair on a lane must still honor the
// occupancy window: the free-point check saw the earlier spawn through its
// lane registration or the grid.
func TestSpawn_PairwiseSpacing(t *testing.T) {
	ts := NewTestSim(WithCorridor(3, 400), WithSeed(11))
	sp := ts.World.Spawner()
	sp.PopulateCorridor(25)

	half := sp.cfg.CheckDepth / 2
	for li := 0; li < ts.World.Registry().LaneCount(); li++ {
		members := ts.World.LaneByIndex(li).Members()
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				gap := math.Abs(members[i].Position().Z - members[j].Position().Z)
				assert.GreaterOrEqual(t, gap, half-1e-9,
					"lane %d: %s and %s spawned %g apart", li, members[i].Label(), members[j].Label(), gap)
			}
		}
	}
}

func TestSpawn_ForwardBiasExtremes(t *testing.T) {
	for _, tc := range []struct {
		name string
		bias float64
		want Direction
	}{
		{"all forward", 1, DirForward},
		{"all reverse", 0, DirReverse},
	} {
		t.Run(tc.name, func(t *testing.T) {
			sc := DefaultSpawnConfig()
			sc.ForwardBias = tc.bias
			ts := NewTestSim(WithCorridor(3, 400), WithSeed(3), WithSpawnConfig(sc))
			ts.World.Spawner().PopulateCorridor(15)

			cars := ts.World.Cars()
			require.NotEmpty(t, cars)
			for _, c := range cars {
				assert.Equal(t, tc.want, c.Direction(), "car %s", c.Label())
			}
		})
	}
}

func TestGenerateSpeed_Ranges(t *testing.T) {
	ts := NewTestSim(WithSeed(5))
	sp := ts.World.Spawner()

	// Defaults: base 16, variability 4. Forward halves, reverse negates.
	for i := 0; i < 200; i++ {
		f := sp.generateSpeed(DirForward)
		assert.GreaterOrEqual(t, f, 6.0)
		assert.LessOrEqual(t, f, 10.0)

		r := sp.generateSpeed(DirReverse)
		assert.GreaterOrEqual(t, r, -20.0)
		assert.LessOrEqual(t, r, -12.0)
	}
}

func TestPopulateCorridor_TerminatesWhenSaturated(t *testing.T) {
	// One lane barely longer than twice the edge buffer: after the first
	// placement nothing else fits, so the failure budget must end the loop.
	ts := NewTestSim(WithCorridor(1, 14), WithSeed(9))
	sp := ts.World.Spawner()

	placed := sp.PopulateCorridor(10)
	assert.LessOrEqual(t, placed, 2)
	assert.Less(t, placed, 10, "a saturated corridor cannot reach the target")
	assert.Greater(t, ts.World.Stats().SpawnFailures, 0)
	assert.NotEmpty(t, ts.SimLog().Filter("spawn", "exhausted"))
}

func TestSpawnAtLaneStart_PlacesAtEntryEdge(t *testing.T) {
	ts := NewTestSim(WithCorridor(2, 400), WithSeed(13))
	sp := ts.World.Spawner()

	f := sp.SpawnAtLaneStart(DirForward)
	require.NotNil(t, f)
	assert.InDelta(t, sp.cfg.EdgeBuffer/400, f.Lane().ProgressOf(f.Position()), 1e-9)
	assert.Equal(t, DirForward, f.Direction())
	assert.Greater(t, f.Speed(), 0.0)

	r := sp.SpawnAtLaneStart(DirReverse)
	require.NotNil(t, r)
	assert.InDelta(t, 1-sp.cfg.EdgeBuffer/400, r.Lane().ProgressOf(r.Position()), 1e-9)
	assert.Equal(t, DirReverse, r.Direction())
	assert.Less(t, r.Speed(), 0.0)
}

// In-flow is forced after the retry budget even when every entry edge is
// occupied.
func TestSpawnAtLaneStart_ForcesAfterRetries(t *testing.T) {
	ts := NewTestSim(
		WithCorridor(2, 400),
		WithSeed(17),
		WithStaticCar(0, 5.0/400),
		WithStaticCar(1, 5.0/400),
	)
	sp := ts.World.Spawner()

	c := sp.SpawnAtLaneStart(DirForward)
	require.NotNil(t, c, "forced placement must still produce a car")
	assert.NotEmpty(t, ts.SimLog().Filter("spawn", "forced_endpoint"))
}

func TestScheduler_CapsPopulation(t *testing.T) {
	sc := DefaultSpawnConfig()
	sc.IntervalTicks = 10
	sc.MaxPopulation = 5
	ts := NewTestSim(WithCorridor(3, 400), WithSeed(21), WithSpawnConfig(sc), WithSpawning())

	ts.RunTicks(600)
	assert.LessOrEqual(t, len(ts.World.Cars()), sc.MaxPopulation+1,
		"scheduler exceeded the population cap")
	assert.Greater(t, ts.World.Stats().SpawnsTotal, 0)
}
