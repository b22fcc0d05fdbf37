package main

import (
	"flag"
	"log"
	"time"

	"github.com/Garsondee/Traffic-Sense/internal/traffic"
	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	var lanes int
	var length float64
	var seed int64
	var initialCars int

	flag.IntVar(&lanes, "lanes", 3, "number of parallel lanes")
	flag.Float64Var(&length, "length", 400, "corridor length in world units")
	flag.Int64Var(&seed, "seed", 0, "RNG seed (0 = time-based)")
	flag.IntVar(&initialCars, "cars", 12, "initial corridor population")
	flag.Parse()

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	cfg := traffic.DefaultConfig()
	cfg.LaneCount = lanes
	cfg.LaneLength = length
	cfg.Seed = seed

	world, err := traffic.NewWorld(cfg)
	if err != nil {
		log.Fatal(err)
	}
	world.Spawner().PopulateCorridor(initialCars)
	world.EnableSpawning(true)

	ebiten.SetWindowTitle("Traffic Sense")
	ebiten.SetWindowSize(1280, 860)
	if err := ebiten.RunGame(traffic.NewViewer(world, 1280, 860)); err != nil {
		log.Fatal(err)
	}
}
