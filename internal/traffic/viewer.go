package traffic

import (
	"fmt"
	"math"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
)

// Viewer is the interactive top-down front end for a World. It owns camera
// pan/zoom, pause and sim-speed controls, and a clipboard export of the
// latest traffic report. The simulation core never depends on it.
type Viewer struct {
	world *World

	width  int
	height int

	// Camera pan + zoom over the corridor plane (world X → screen x,
	// world Z → screen y).
	camX    float64
	camY    float64
	camZoom float64

	// Simulation speed control.
	simSpeed  float64 // multiplier: 0=paused, 0.5, 1, 2, 4
	tickAccum float64 // fractional tick accumulator for sub-1x speeds

	showHUD  bool
	flash    string // transient HUD message
	flashFor int    // frames remaining

	prevKeys  map[ebiten.Key]bool
	prevClick bool
}

// NewViewer wraps a world in an interactive window of the given size.
func NewViewer(w *World, width, height int) *Viewer {
	reg := w.Registry()
	midLane := reg.LaneAt(reg.LaneCount() / 2)
	return &Viewer{
		world:    w,
		width:    width,
		height:   height,
		camX:     midLane.PointAt(0.5).X,
		camY:     midLane.PointAt(0.5).Z,
		camZoom:  4,
		simSpeed: 1,
		showHUD:  true,
		prevKeys: map[ebiten.Key]bool{},
	}
}

func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return v.width, v.height
}

// Update handles input and advances the world according to the sim speed.
func (v *Viewer) Update() error {
	v.handleInput()

	v.tickAccum += v.simSpeed
	for v.tickAccum >= 1 {
		v.tickAccum--
		v.world.Update()
	}

	if v.flashFor > 0 {
		v.flashFor--
	}
	return nil
}

// pressed reports an edge-triggered key press.
func (v *Viewer) pressed(k ebiten.Key) bool {
	down := ebiten.IsKeyPressed(k)
	was := v.prevKeys[k]
	v.prevKeys[k] = down
	return down && !was
}

func (v *Viewer) handleInput() {
	// Camera pan: WASD or arrow keys.
	panSpeed := 4.0 / v.camZoom
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		v.camY -= panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		v.camY += panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		v.camX -= panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		v.camX += panSpeed
	}

	// Zoom: mouse wheel or =/- keys.
	const zoomMin, zoomMax = 1.0, 24.0
	_, wy := ebiten.Wheel()
	if wy != 0 {
		v.camZoom *= math.Pow(1.12, wy)
	}
	if v.pressed(ebiten.KeyEqual) {
		v.camZoom *= 1.25
	}
	if v.pressed(ebiten.KeyMinus) {
		v.camZoom /= 1.25
	}
	if v.camZoom < zoomMin {
		v.camZoom = zoomMin
	}
	if v.camZoom > zoomMax {
		v.camZoom = zoomMax
	}

	// Sim speed: P=pause/resume, ,=slower, .=faster.
	speeds := []float64{0, 0.5, 1, 2, 4}
	if v.pressed(ebiten.KeyP) {
		if v.simSpeed > 0 {
			v.simSpeed = 0
		} else {
			v.simSpeed = 1
		}
	}
	if v.pressed(ebiten.KeyComma) {
		for i, s := range speeds {
			if s >= v.simSpeed && i > 0 {
				v.simSpeed = speeds[i-1]
				break
			}
		}
	}
	if v.pressed(ebiten.KeyPeriod) {
		for i, s := range speeds {
			if s <= v.simSpeed && i < len(speeds)-1 && speeds[i+1] > v.simSpeed {
				v.simSpeed = speeds[i+1]
				break
			}
		}
	}

	// H: toggle HUD.
	if v.pressed(ebiten.KeyH) {
		v.showHUD = !v.showHUD
	}

	// N: force one directed in-flow spawn.
	if v.pressed(ebiten.KeyN) {
		v.world.SpawnCar()
	}

	// G: scroll the whole corridor forward by one lane length, keeping
	// registrations (world-scroll collaborator demo).
	if v.pressed(ebiten.KeyG) {
		reg := v.world.Registry()
		l := reg.LaneAt(0)
		shift := l.Length() * 0.25
		v.world.SetAllLaneZ(l.Start().Z+shift, l.End().Z+shift)
		v.setFlash("corridor scrolled")
	}

	// Left click: inspect the car nearest the cursor.
	click := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	if click && !v.prevClick {
		v.inspectAt(ebiten.CursorPosition())
	}
	v.prevClick = click

	// F12: copy the latest traffic report to the clipboard.
	if v.pressed(ebiten.KeyF12) {
		rep := FormatReport(v.world.Reporter().Latest())
		if err := clipboard.WriteAll(rep); err != nil {
			v.setFlash(fmt.Sprintf("clipboard error: %v", err))
		} else {
			v.setFlash("report copied to clipboard")
		}
	}
}

// inspectAt flashes the state of the car under the cursor, if any: label,
// speed, lane and its current neighbor gaps.
func (v *Viewer) inspectAt(mx, my int) {
	p := v.screenToWorld(float64(mx), float64(my))
	pick := 4.0 / v.camZoom
	hits := v.world.grid.QueryBox(
		p.Sub(Vec3{X: pick, Z: pick}), p.Add(Vec3{X: pick, Z: pick}), TagCar)
	if len(hits) == 0 {
		return
	}
	c := hits[0]
	for _, h := range hits[1:] {
		if h.Position().DistTo(p) < c.Position().DistTo(p) {
			c = h
		}
	}
	_, aheadGap := v.world.CarAhead(c)
	_, behindGap := v.world.CarBehind(c)
	laneIdx := v.world.Registry().IndexOf(c.Lane())
	v.setFlash(fmt.Sprintf("%s %s v=%.1f lane %d ahead=%s behind=%s",
		c.Label(), c.Direction(), c.Speed(), laneIdx, fmtGap(aheadGap), fmtGap(behindGap)))
}

func fmtGap(g float64) string {
	if math.IsInf(g, 1) {
		return "-"
	}
	return fmt.Sprintf("%.1f", g)
}

func (v *Viewer) setFlash(msg string) {
	v.flash = msg
	v.flashFor = 180
}

// worldToScreen maps a world point onto the viewer plane.
func (v *Viewer) worldToScreen(p Vec3) (float64, float64) {
	sx := (p.X-v.camX)*v.camZoom + float64(v.width)/2
	sy := (p.Z-v.camY)*v.camZoom + float64(v.height)/2
	return sx, sy
}

// screenToWorld is the inverse mapping, onto the ground plane (Y=0).
func (v *Viewer) screenToWorld(sx, sy float64) Vec3 {
	return Vec3{
		X: (sx-float64(v.width)/2)/v.camZoom + v.camX,
		Z: (sy-float64(v.height)/2)/v.camZoom + v.camY,
	}
}
