package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/gdamore/tcell/v2"

	"that-night/internal/game"
	"that-night/internal/game/spatial"
	"that-night/internal/session"
)

var (
	styleText    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleDim     = tcell.StyleDefault.Foreground(tcell.NewRGBColor(110, 110, 120))
	styleTitle   = tcell.StyleDefault.Foreground(tcell.NewRGBColor(200, 40, 40)).Bold(true)
	styleCursor  = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.NewRGBColor(0, 212, 255))
	styleFloor   = tcell.StyleDefault.Foreground(tcell.NewRGBColor(35, 35, 50))
	styleWall    = tcell.StyleDefault.Foreground(tcell.NewRGBColor(140, 140, 160))
	styleCracked = tcell.StyleDefault.Foreground(tcell.NewRGBColor(80, 80, 95))
	styleMovable = tcell.StyleDefault.Foreground(tcell.NewRGBColor(170, 130, 80))
	styleZombie  = tcell.StyleDefault.Foreground(tcell.NewRGBColor(200, 40, 40))
	styleBoss    = tcell.StyleDefault.Foreground(tcell.NewRGBColor(180, 0, 255)).Bold(true)
	styleSlowed  = tcell.StyleDefault.Foreground(tcell.NewRGBColor(80, 160, 255))
	stylePlayer  = tcell.StyleDefault.Foreground(tcell.NewRGBColor(0, 212, 255)).Bold(true)
	styleBullet  = tcell.StyleDefault.Foreground(tcell.NewRGBColor(255, 230, 120))
)

// weaponStyle colors a weapon glyph like its chest.
func weaponStyle(w game.Weapon) tcell.Style {
	return tcell.StyleDefault.Foreground(tcell.GetColor(game.GetWeaponSpec(w).Color))
}

var chestStyles = [spatial.ChestRainbow + 1]tcell.Style{
	spatial.ChestAmmo:    weaponStyle(game.WeaponAmmo),
	spatial.ChestBomb:    weaponStyle(game.WeaponBomb),
	spatial.ChestTurret:  weaponStyle(game.WeaponTurret),
	spatial.ChestEmp:     weaponStyle(game.WeaponEmp),
	spatial.ChestFood:    tcell.StyleDefault.Foreground(tcell.NewRGBColor(83, 255, 69)),
	spatial.ChestRainbow: tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true),
}

// bossArrows are indexed by the pointer angle in eighths of a turn,
// counter-clockwise from east.
var bossArrows = [8]rune{'→', '↗', '↑', '↖', '←', '↙', '↓', '↘'}

// text writes s from (x, y) and returns the column after it.
func text(screen tcell.Screen, x, y int, s string, style tcell.Style) int {
	for _, r := range s {
		screen.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}

// draw renders the current screen. snap is only read while playing or on
// the defeat screen.
func draw(screen tcell.Screen, v session.View, snap *game.GameSnapshot) {
	screen.Clear()
	switch v.Screen {
	case session.ScreenLoading:
		drawLoading(screen, v)
	case session.ScreenMenu:
		drawMenu(screen, v)
	case session.ScreenTutorial:
		drawTutorial(screen, v)
	case session.ScreenSettings:
		drawSettings(screen, v)
	case session.ScreenPlaying:
		drawPlaying(screen, snap)
	case session.ScreenDefeat:
		drawDefeat(screen, v, snap)
	}
	screen.Show()
}

func drawLoading(screen tcell.Screen, v session.View) {
	const barWidth = 30
	text(screen, 2, 1, "THAT NIGHT", styleTitle)

	filled := int(v.Progress * barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	text(screen, 2, 3, bar, styleText)
}

func drawMenu(screen tcell.Screen, v session.View) {
	text(screen, 2, 1, "THAT NIGHT", styleTitle)
	text(screen, 2, 2, fmt.Sprintf("Highscore %d", v.Highscore), styleDim)

	y := 4
	for i, c := range v.Characters {
		style := styleText
		if !c.Unlocked {
			style = styleDim
		}
		if i == v.Cursor {
			style = styleCursor
		}
		text(screen, 2, y, fmt.Sprintf(" %-9s %s ", c.Name, c.Title), style)
		y++
	}

	if v.Cursor >= 0 && v.Cursor < len(v.Characters) {
		c := v.Characters[v.Cursor]
		y++
		for _, b := range c.Bonuses {
			text(screen, 4, y, "+ "+b, styleText)
			y++
		}
		if !c.Unlocked {
			text(screen, 4, y, "Locked: "+c.Requirement, styleDim)
			y++
		}
	}

	text(screen, 2, y+1, "space start   s settings   esc quit", styleDim)
}

func drawTutorial(screen tcell.Screen, v session.View) {
	h := v.Hotkeys
	lines := []string{
		"Survive the night. Food drains every moment; open chests to eat and rearm.",
		"",
		fmt.Sprintf("Move     %s %s %s %s", h[game.ActionUp], h[game.ActionLeft], h[game.ActionDown], h[game.ActionRight]),
		fmt.Sprintf("Shoot    %s + direction", h[game.ActionShoot]),
		fmt.Sprintf("Bomb     %s", h[game.ActionBomb]),
		fmt.Sprintf("Turret   %s", h[game.ActionTurret]),
		fmt.Sprintf("EMP      %s", h[game.ActionEmp]),
		fmt.Sprintf("Run      %s (burns food)", h[game.ActionRun]),
		"",
		"Kill the boss to pick an upgrade.",
		"",
		"space continue   esc back",
	}
	text(screen, 2, 1, "HOW TO PLAY", styleTitle)
	for i, l := range lines {
		text(screen, 2, 3+i, l, styleText)
	}
}

func drawSettings(screen tcell.Screen, v session.View) {
	text(screen, 2, 1, "KEY BINDINGS", styleTitle)
	for i := 0; i < game.HotkeyCount; i++ {
		key := v.Hotkeys[i]
		style := styleText
		if i == v.Cursor {
			style = styleCursor
			if v.Choosing {
				key = "press a key..."
			}
		}
		text(screen, 2, 3+i, fmt.Sprintf(" %-8s %-14s ", game.Action(i).String(), key), style)
	}
	text(screen, 2, 4+game.HotkeyCount, "space rebind   esc back", styleDim)
}

func drawPlaying(screen tcell.Screen, snap *game.GameSnapshot) {
	if snap == nil {
		return
	}
	ox, oy := snap.ViewX, snap.ViewY
	inView := func(x, y int) bool {
		return x >= ox && y >= oy && x < ox+snap.ViewWidth && y < oy+snap.ViewHeight
	}
	put := func(x, y int, r rune, style tcell.Style) {
		if inView(x, y) {
			screen.SetContent(x-ox, y-oy, r, nil, style)
		}
	}

	for i, t := range snap.Tiles {
		x, y := i%snap.ViewWidth, i/snap.ViewWidth
		r, style := tileGlyph(t)
		screen.SetContent(x, y, r, nil, style)
	}

	for _, emp := range snap.Emps {
		put(emp.X, emp.Y, '*', weaponStyle(game.WeaponEmp))
	}
	for _, b := range snap.Bombs {
		put(b.X, b.Y, 'o', weaponStyle(game.WeaponBomb))
	}
	for _, t := range snap.Turrets {
		put(t.X, t.Y, 'T', weaponStyle(game.WeaponTurret))
	}
	for _, b := range snap.Bullets {
		put(b.X, b.Y, '·', styleBullet)
	}
	for _, e := range snap.Enemies {
		switch {
		case e.Boss:
			put(e.X, e.Y, 'B', styleBoss)
		case e.Slowed:
			put(e.X, e.Y, 'z', styleSlowed)
		default:
			put(e.X, e.Y, 'z', styleZombie)
		}
	}

	p := snap.Player
	glyph := '@'
	if p.Dead {
		glyph = 'x'
	}
	put(p.X, p.Y, glyph, stylePlayer)

	drawHUD(screen, snap, snap.ViewHeight+1)
	if snap.Upgrade.Open {
		drawUpgrade(screen, snap)
	}
}

func tileGlyph(t game.TileSnapshot) (rune, tcell.Style) {
	switch t.Kind {
	case spatial.TileWall:
		if t.Hits > 0 {
			return '#', styleCracked
		}
		return '#', styleWall
	case spatial.TileMovableWall:
		return '%', styleMovable
	case spatial.TileChest:
		if int(t.Chest) < len(chestStyles) {
			return '$', chestStyles[t.Chest]
		}
		return '$', styleText
	default:
		return '.', styleFloor
	}
}

func drawHUD(screen tcell.Screen, snap *game.GameSnapshot, y int) {
	s := snap.Player.Stats
	food := 0
	if s[game.StatMaxFood] > 0 {
		food = s[game.StatFood] * 100 / s[game.StatMaxFood]
	}

	x := text(screen, 0, y, fmt.Sprintf("Score %d  Food %d%%  ", s[game.StatScore], food), styleText)
	x = text(screen, x, y, fmt.Sprintf("Ammo %d/%d  ", s[game.StatAmmo], s[game.StatMaxAmmo]), weaponStyle(game.WeaponAmmo))
	x = text(screen, x, y, fmt.Sprintf("Bombs %d/%d  ", s[game.StatBomb], s[game.StatMaxBomb]), weaponStyle(game.WeaponBomb))
	x = text(screen, x, y, fmt.Sprintf("Turrets %d/%d  ", s[game.StatTurret], s[game.StatMaxTurret]), weaponStyle(game.WeaponTurret))
	text(screen, x, y, fmt.Sprintf("EMPs %d/%d", s[game.StatEmp], s[game.StatMaxEmp]), weaponStyle(game.WeaponEmp))

	status := fmt.Sprintf("%s  Kills %d  Enemies %d", snap.Player.Character, snap.Player.Killed, snap.EnemyCount)
	if snap.Boss.Alive {
		status += fmt.Sprintf("  Boss %c", bossArrow(snap.Boss.Angle))
	}
	if snap.Player.Running {
		status += "  RUNNING"
	}
	if snap.Player.Paused {
		status += "  PAUSED"
	}
	text(screen, 0, y+1, status, styleDim)
}

// bossArrow picks the arrow closest to angle (radians, screen up positive).
func bossArrow(angle float64) rune {
	i := int(math.Round(angle/(math.Pi/4))) % 8
	if i < 0 {
		i += 8
	}
	return bossArrows[i]
}

func drawUpgrade(screen tcell.Screen, snap *game.GameSnapshot) {
	width := 0
	for _, c := range snap.Upgrade.Choices {
		width = max(width, len(c))
	}
	width += 4
	x := max(0, (snap.ViewWidth-width)/2)
	y := max(0, (snap.ViewHeight-len(snap.Upgrade.Choices))/2-1)

	text(screen, x, y, fmt.Sprintf("%-*s", width, " UPGRADE"), styleTitle)
	for i, c := range snap.Upgrade.Choices {
		style := styleText
		if i == snap.Upgrade.Cursor {
			style = styleCursor
		}
		text(screen, x, y+1+i, fmt.Sprintf("  %-*s", width-2, c), style)
	}
}

func drawDefeat(screen tcell.Screen, v session.View, snap *game.GameSnapshot) {
	text(screen, 2, 1, "YOU DID NOT SURVIVE THE NIGHT", styleTitle)
	if snap != nil {
		p := snap.Player
		text(screen, 2, 3, fmt.Sprintf("Score %d", p.Stats[game.StatScore]), styleText)
		text(screen, 2, 4, fmt.Sprintf("Kills %d", p.Killed), styleText)
	}
	text(screen, 2, 5, fmt.Sprintf("Highscore %d", v.Highscore), styleDim)
	text(screen, 2, 7, "space menu", styleDim)
}
