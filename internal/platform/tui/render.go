package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/blockfall/internal/core"
	"github.com/vovakirdan/blockfall/internal/tetris"
)

// Layout constants. Every board cell is two characters wide so blocks look
// square in most terminal fonts.
const (
	cellWidth  = 2
	panelWidth = 18
	panelGap   = 2
)

// colorStyles maps core.Color to lipgloss styles.
var colorStyles = map[core.Color]lipgloss.Style{
	core.ColorDefault: lipgloss.NewStyle(),
	core.ColorRed:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	core.ColorGreen:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	core.ColorYellow:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	core.ColorBlue:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	core.ColorMagenta: lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
	core.ColorCyan:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	core.ColorWhite:   lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
	core.ColorOrange:  lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	core.ColorGray:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
}

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
)

// HUD is the side-panel information that does not come from the engine.
type HUD struct {
	Variant   string
	HighScore int
}

// ScreenSize returns the screen dimensions needed to draw a board.
func ScreenSize(boardW, boardH int) (int, int) {
	w := boardW*cellWidth + 2 + panelGap + panelWidth
	h := max(boardH+2, 16)
	return w, h
}

// DrawGame renders a snapshot and the side panel into screen.
func DrawGame(screen *core.Screen, snap tetris.Snapshot, hud HUD) {
	screen.Clear()
	screen.DrawBox(0, 0, snap.Width*cellWidth+2, snap.Height+2)

	for y := 0; y < snap.Height; y++ {
		for x := 0; x < snap.Width; x++ {
			if k := snap.At(x, y); k != tetris.KindNone {
				drawCell(screen, x, y, '█', k.Color())
			} else {
				drawCell(screen, x, y, '·', core.ColorGray)
			}
		}
	}

	if snap.Active != nil {
		for _, c := range snap.Ghost {
			if snap.At(c.X, c.Y) == tetris.KindNone {
				drawCell(screen, c.X, c.Y, '░', core.ColorGray)
			}
		}
		for _, c := range snap.Active.Cells {
			drawCell(screen, c.X, c.Y, '█', snap.Active.Kind.Color())
		}
	}

	drawPanel(screen, snap.Width*cellWidth+2+panelGap, snap, hud)
}

func drawCell(screen *core.Screen, x, y int, r rune, c core.Color) {
	sx := 1 + x*cellWidth
	sy := 1 + y
	if r == '·' {
		screen.SetColored(sx, sy, ' ', c)
		screen.SetColored(sx+1, sy, r, c)
		return
	}
	screen.SetColored(sx, sy, r, c)
	screen.SetColored(sx+1, sy, r, c)
}

func drawPanel(screen *core.Screen, x int, snap tetris.Snapshot, hud HUD) {
	y := 0
	if hud.Variant != "" {
		screen.DrawText(x, y, strings.ToUpper(hud.Variant))
		y += 2
	}
	rows := []string{
		fmt.Sprintf("Score  %d", snap.Score),
		fmt.Sprintf("Level  %d", snap.Level),
		fmt.Sprintf("Lines  %d", snap.Lines),
		fmt.Sprintf("High   %d", max(hud.HighScore, snap.Score)),
	}
	for _, row := range rows {
		screen.DrawText(x, y, row)
		y++
	}

	y++
	screen.DrawText(x, y, "Next")
	y++
	for _, k := range snap.Preview {
		if y+2 >= screen.Height() {
			break
		}
		drawPreview(screen, x, y, k)
		y += 3
	}

	switch snap.State {
	case tetris.StatePaused:
		screen.DrawText(x, screen.Height()-2, "PAUSED")
	case tetris.StateGameOver:
		screen.DrawText(x, screen.Height()-3, "GAME OVER")
		screen.DrawText(x, screen.Height()-2, "r: play again")
	}
}

// drawPreview draws a piece in its spawn rotation, trimmed to two rows.
func drawPreview(screen *core.Screen, x, y int, k tetris.Kind) {
	shape := tetris.DefinitionFor(k).Shape(0)
	minY := shape[0].Y
	for _, p := range shape {
		minY = min(minY, p.Y)
	}
	for _, p := range shape {
		row := p.Y - minY
		if row > 1 {
			continue
		}
		screen.SetColored(x+p.X*cellWidth, y+row, '█', k.Color())
		screen.SetColored(x+p.X*cellWidth+1, y+row, '█', k.Color())
	}
}

// RenderScreen converts a Screen buffer to a styled string for display.
// Groups adjacent cells with the same color to minimize ANSI escape sequences.
func RenderScreen(s *core.Screen) string {
	var sb strings.Builder
	sb.Grow(s.Width()*s.Height()*2 + s.Height())

	for y := range s.Height() {
		if y > 0 {
			sb.WriteRune('\n')
		}

		x := 0
		for x < s.Width() {
			startColor := s.GetCell(x, y).Color

			var run strings.Builder
			for x < s.Width() {
				cell := s.GetCell(x, y)
				if cell.Color != startColor {
					break
				}
				run.WriteRune(cell.Rune)
				x++
			}

			style, ok := colorStyles[startColor]
			if !ok {
				style = colorStyles[core.ColorDefault]
			}
			sb.WriteString(style.Render(run.String()))
		}
	}
	return sb.String()
}
