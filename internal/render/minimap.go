// Package render draws snapshots into images.
package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"that-night/internal/game"
	"that-night/internal/game/spatial"
)

// hudHeight is the strip under the map holding the stat line.
const hudHeight = 34

var (
	colorBackground  = color.RGBA{12, 12, 28, 255}
	colorWall        = color.RGBA{90, 90, 110, 255}
	colorMovableWall = color.RGBA{140, 110, 70, 255}
	colorCracked     = color.RGBA{60, 60, 75, 255}
	colorZombie      = color.RGBA{200, 40, 40, 255}
	colorBoss        = color.RGBA{180, 0, 255, 255}
	colorSlowed      = color.RGBA{80, 160, 255, 255}
	colorPlayer      = color.RGBA{0, 212, 255, 255}
	colorBullet      = color.RGBA{255, 230, 120, 255}
	colorFood        = color.RGBA{83, 255, 69, 255}
	colorHUD         = color.RGBA{18, 18, 24, 245}
)

// chestColors follows the weapon palette; food and rainbow have their own.
var chestColors = func() [spatial.ChestRainbow + 1]color.RGBA {
	var c [spatial.ChestRainbow + 1]color.RGBA
	c[spatial.ChestAmmo] = parseHexColor(game.GetWeaponSpec(game.WeaponAmmo).Color)
	c[spatial.ChestBomb] = parseHexColor(game.GetWeaponSpec(game.WeaponBomb).Color)
	c[spatial.ChestTurret] = parseHexColor(game.GetWeaponSpec(game.WeaponTurret).Color)
	c[spatial.ChestEmp] = parseHexColor(game.GetWeaponSpec(game.WeaponEmp).Color)
	c[spatial.ChestFood] = colorFood
	c[spatial.ChestRainbow] = color.RGBA{255, 255, 255, 255}
	return c
}()

// Minimap draws the view window of a snapshot, one square per cell.
type Minimap struct {
	cell int
	hud  bool
}

// NewMinimap creates a renderer with cellSize pixels per cell.
func NewMinimap(cellSize int, hud bool) *Minimap {
	if cellSize < 1 {
		cellSize = 1
	}
	return &Minimap{cell: cellSize, hud: hud}
}

// Size returns the image size for a snapshot.
func (m *Minimap) Size(snap *game.GameSnapshot) (int, int) {
	w, h := snap.ViewWidth*m.cell, snap.ViewHeight*m.cell
	if m.hud {
		h += hudHeight
	}
	return w, h
}

// Render draws snap.
func (m *Minimap) Render(snap *game.GameSnapshot) image.Image {
	return m.draw(snap).Image()
}

// EncodePNG renders snap as PNG into w.
func (m *Minimap) EncodePNG(w io.Writer, snap *game.GameSnapshot) error {
	return m.draw(snap).EncodePNG(w)
}

func (m *Minimap) draw(snap *game.GameSnapshot) *gg.Context {
	w, h := m.Size(snap)
	dc := gg.NewContext(w, h)

	dc.SetColor(colorBackground)
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	dc.Fill()

	m.drawTiles(dc, snap)
	m.drawEmps(dc, snap)
	m.drawBombs(dc, snap)
	m.drawTurrets(dc, snap)
	m.drawEnemies(dc, snap)
	m.drawBullets(dc, snap)
	m.drawPlayer(dc, snap)
	m.drawBossPointer(dc, snap)
	if m.hud {
		m.drawHUD(dc, snap)
	}
	return dc
}

// center returns the pixel centre of absolute cell (x, y).
func (m *Minimap) center(snap *game.GameSnapshot, x, y int) (float64, float64) {
	c := float64(m.cell)
	return (float64(x-snap.ViewX) + 0.5) * c, (float64(y-snap.ViewY) + 0.5) * c
}

func (m *Minimap) drawTiles(dc *gg.Context, snap *game.GameSnapshot) {
	c := float64(m.cell)
	for i, t := range snap.Tiles {
		x := float64(i%snap.ViewWidth) * c
		y := float64(i/snap.ViewWidth) * c

		switch t.Kind {
		case spatial.TileWall:
			if t.Hits > 0 {
				dc.SetColor(colorCracked)
			} else {
				dc.SetColor(colorWall)
			}
			dc.DrawRectangle(x, y, c, c)
		case spatial.TileMovableWall:
			dc.SetColor(colorMovableWall)
			dc.DrawRectangle(x+1, y+1, c-2, c-2)
		case spatial.TileChest:
			dc.SetColor(chestColors[t.Chest])
			dc.DrawRoundedRectangle(x+c*0.2, y+c*0.2, c*0.6, c*0.6, c*0.1)
		default:
			continue
		}
		dc.Fill()
	}
}

func (m *Minimap) drawEnemies(dc *gg.Context, snap *game.GameSnapshot) {
	r := float64(m.cell) * 0.4
	for _, e := range snap.Enemies {
		cx, cy := m.center(snap, e.X, e.Y)
		switch {
		case e.Boss:
			dc.SetColor(colorBoss)
			dc.DrawRegularPolygon(6, cx, cy, r*1.2, 0)
		case e.Slowed:
			dc.SetColor(colorSlowed)
			dc.DrawCircle(cx, cy, r)
		default:
			dc.SetColor(colorZombie)
			dc.DrawCircle(cx, cy, r)
		}
		dc.Fill()

		if e.HPRatio < 1 {
			w := float64(m.cell) * 0.8
			dc.SetColor(color.RGBA{51, 51, 51, 255})
			dc.DrawRectangle(cx-w/2, cy-r-3, w, 2)
			dc.Fill()
			dc.SetColor(colorFood)
			dc.DrawRectangle(cx-w/2, cy-r-3, w*e.HPRatio, 2)
			dc.Fill()
		}
	}
}

func (m *Minimap) drawBullets(dc *gg.Context, snap *game.GameSnapshot) {
	dc.SetColor(colorBullet)
	for _, b := range snap.Bullets {
		cx, cy := m.center(snap, b.X, b.Y)
		dc.DrawCircle(cx, cy, math.Max(1, float64(m.cell)*0.15))
		dc.Fill()
	}
}

func (m *Minimap) drawBombs(dc *gg.Context, snap *game.GameSnapshot) {
	col := chestColors[spatial.ChestBomb]
	for _, b := range snap.Bombs {
		cx, cy := m.center(snap, b.X, b.Y)
		dc.SetColor(col)
		dc.DrawCircle(cx, cy, float64(m.cell)*0.3)
		dc.Fill()

		// blast diamond
		r := float64(b.Radius*m.cell) + float64(m.cell)/2
		dc.SetRGBA255(255, 0, 0, 60)
		dc.SetLineWidth(1)
		dc.MoveTo(cx, cy-r)
		dc.LineTo(cx+r, cy)
		dc.LineTo(cx, cy+r)
		dc.LineTo(cx-r, cy)
		dc.ClosePath()
		dc.Stroke()
	}
}

func (m *Minimap) drawTurrets(dc *gg.Context, snap *game.GameSnapshot) {
	col := chestColors[spatial.ChestTurret]
	half := float64(m.cell) * 0.35
	for _, t := range snap.Turrets {
		cx, cy := m.center(snap, t.X, t.Y)
		dc.SetColor(col)
		dc.DrawRectangle(cx-half, cy-half, 2*half, 2*half)
		dc.Fill()

		// barrel, brighter as it charges
		dx, dy := turretDir(t.Direction)
		dc.SetRGBA(1, 1, 1, 0.3+0.7*t.Charge)
		dc.SetLineWidth(2)
		dc.DrawLine(cx, cy, cx+dx*half*1.5, cy+dy*half*1.5)
		dc.Stroke()
	}
}

func turretDir(d int) (float64, float64) {
	switch d {
	case 0:
		return -1, 0
	case 1:
		return 0, -1
	case 2:
		return 1, 0
	default:
		return 0, 1
	}
}

func (m *Minimap) drawEmps(dc *gg.Context, snap *game.GameSnapshot) {
	col := chestColors[spatial.ChestEmp]
	for _, e := range snap.Emps {
		cx, cy := m.center(snap, e.X, e.Y)
		r := float64(e.Radius*m.cell) * e.Progress
		dc.SetRGBA255(int(col.R), int(col.G), int(col.B), int(200*(1-e.Progress))+30)
		dc.SetLineWidth(2)
		dc.DrawCircle(cx, cy, r)
		dc.Stroke()
	}
}

func (m *Minimap) drawPlayer(dc *gg.Context, snap *game.GameSnapshot) {
	p := snap.Player
	cx, cy := m.center(snap, p.X, p.Y)
	r := float64(m.cell) * 0.45

	dc.SetColor(colorPlayer)
	dc.DrawCircle(cx, cy, r)
	dc.Fill()

	dc.SetColor(color.White)
	dc.SetLineWidth(1)
	dc.DrawCircle(cx, cy, r)
	dc.Stroke()
}

// drawBossPointer draws an arrow at the view edge towards a boss outside
// the view.
func (m *Minimap) drawBossPointer(dc *gg.Context, snap *game.GameSnapshot) {
	b := snap.Boss
	if !b.Alive {
		return
	}
	bx, by := snap.Player.X+b.DX, snap.Player.Y+b.DY
	if bx >= snap.ViewX && bx < snap.ViewX+snap.ViewWidth && by >= snap.ViewY && by < snap.ViewY+snap.ViewHeight {
		return
	}

	cx, cy := m.center(snap, snap.Player.X, snap.Player.Y)
	reach := math.Min(float64(snap.ViewWidth), float64(snap.ViewHeight)) * float64(m.cell) * 0.45
	// screen y grows downwards
	tx, ty := cx+math.Cos(b.Angle)*reach, cy-math.Sin(b.Angle)*reach

	dc.Push()
	dc.Translate(tx, ty)
	dc.Rotate(-b.Angle)
	dc.SetColor(colorBoss)
	s := float64(m.cell) * 0.6
	dc.MoveTo(s, 0)
	dc.LineTo(-s, -s*0.6)
	dc.LineTo(-s, s*0.6)
	dc.ClosePath()
	dc.Fill()
	dc.Pop()
}

func (m *Minimap) drawHUD(dc *gg.Context, snap *game.GameSnapshot) {
	top := float64(snap.ViewHeight * m.cell)
	w := float64(snap.ViewWidth * m.cell)

	dc.SetColor(colorHUD)
	dc.DrawRectangle(0, top, w, hudHeight)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	st := snap.Player.Stats

	dc.SetColor(color.White)
	dc.DrawString(fmt.Sprintf("%s  score %d  kills %d  food %d%%",
		snap.Player.Character, st[game.StatScore], snap.Player.Killed,
		100*st[game.StatFood]/max(1, st[game.StatMaxFood])), 6, top+14)

	x := 6.0
	for _, spec := range game.GetAllWeaponSpecs() {
		dc.SetColor(parseHexColor(spec.Color))
		label := fmt.Sprintf("%s %d/%d", spec.ID, st[spec.Charges], st[spec.MaxStat])
		dc.DrawString(label, x, top+29)
		lw, _ := dc.MeasureString(label)
		x += lw + 14
	}
}

// parseHexColor converts "#rrggbb" to RGBA; anything else is white.
func parseHexColor(hex string) color.RGBA {
	if len(hex) != 7 || hex[0] != '#' {
		return color.RGBA{255, 255, 255, 255}
	}
	return color.RGBA{
		R: hexToByte(hex[1], hex[2]),
		G: hexToByte(hex[3], hex[4]),
		B: hexToByte(hex[5], hex[6]),
		A: 255,
	}
}

func hexToByte(h1, h2 byte) uint8 {
	return hexCharToNibble(h1)<<4 | hexCharToNibble(h2)
}

func hexCharToNibble(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
