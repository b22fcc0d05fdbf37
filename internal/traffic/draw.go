package traffic

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"
)

var (
	roadCol     = color.RGBA{R: 44, G: 46, B: 50, A: 255}
	laneMarkCol = color.RGBA{R: 200, G: 200, B: 190, A: 120}
	forwardCol  = color.RGBA{R: 60, G: 160, B: 245, A: 255}
	reverseCol  = color.RGBA{R: 235, G: 120, B: 40, A: 255}
	staticCol   = color.RGBA{R: 160, G: 160, B: 160, A: 255}
	maneuverCol = color.RGBA{R: 255, G: 230, B: 70, A: 200}
	hudCol      = color.RGBA{R: 230, G: 230, B: 230, A: 255}
)

// Draw renders the corridor top-down: road surface, lane markings, then
// cars colored by direction with a ring on maneuvering agents.
func (v *Viewer) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 24, G: 60, B: 32, A: 255})

	reg := v.world.Registry()
	halfW := reg.LaneWidth() / 2

	// Road surface: one quad per lane.
	for i := 0; i < reg.LaneCount(); i++ {
		l := reg.LaneAt(i)
		x0, y0 := v.worldToScreen(l.Start().Sub(Vec3{X: halfW}))
		x1, y1 := v.worldToScreen(l.End().Add(Vec3{X: halfW}))
		vector.DrawFilledRect(screen,
			float32(x0), float32(y0), float32(x1-x0), float32(y1-y0), roadCol, false)
	}

	// Lane centerlines.
	for i := 0; i < reg.LaneCount(); i++ {
		l := reg.LaneAt(i)
		x0, y0 := v.worldToScreen(l.Start())
		x1, y1 := v.worldToScreen(l.End())
		vector.StrokeLine(screen, float32(x0), float32(y0), float32(x1), float32(y1),
			1, laneMarkCol, false)
	}

	// Cars.
	carR := float32(1.0 * v.camZoom)
	if carR < 2 {
		carR = 2
	}
	for _, c := range v.world.Cars() {
		sx, sy := v.worldToScreen(c.Position())
		col := forwardCol
		switch {
		case c.IsStatic():
			col = staticCol
		case c.Direction() == DirReverse:
			col = reverseCol
		}
		vector.DrawFilledCircle(screen, float32(sx), float32(sy), carR, col, true)
		if !c.IsStatic() {
			// Heading tick.
			tip := c.Position().Add(c.HeadingAxis().Scale(2))
			tx, ty := v.worldToScreen(tip)
			vector.StrokeLine(screen, float32(sx), float32(sy), float32(tx), float32(ty),
				1, col, true)
		}
		if c.Maneuvering() {
			vector.StrokeCircle(screen, float32(sx), float32(sy), carR+2, 1, maneuverCol, true)
		}
	}

	if v.showHUD {
		v.drawHUD(screen)
	}
}

func (v *Viewer) drawHUD(screen *ebiten.Image) {
	face := basicfont.Face7x13
	st := v.world.Stats()
	lines := []string{
		fmt.Sprintf("tick %d  speed %gx  zoom %.1fx", st.Tick, v.simSpeed, v.camZoom),
		fmt.Sprintf("cars %d  spawns %d (fail %d)  lane changes %d",
			st.Population, st.SpawnsTotal, st.SpawnFailures, st.LaneChanges),
		"[P] pause  [,/.] speed  [N] spawn  [G] scroll  [click] inspect  [F12] copy report  [H] hide",
	}
	for i, l := range lines {
		text.Draw(screen, l, face, 8, 16+i*14, hudCol)
	}
	if v.flashFor > 0 {
		text.Draw(screen, v.flash, face, 8, 16+len(lines)*14+6, maneuverCol)
	}
}
