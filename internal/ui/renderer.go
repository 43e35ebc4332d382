package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/amalg/go-quadris/internal/game"
	"github.com/amalg/go-quadris/internal/i18n"
)

// Color palette
var (
	emptyStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1a1a2e")).
			Foreground(lipgloss.Color("#2a2a44"))

	boardBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("#444466"))

	// HUD styles
	hudBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff8844")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1a1a2e")).
			Background(lipgloss.Color("#44aaff")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555"))

	lostStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff4444")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff4444"))
)

const (
	blockGlyph  = "██"
	shadowGlyph = "░░"
	emptyGlyph  = " ."
)

// RenderBoard draws the visible playfield, top row first. Each cell is
// 2 characters wide for a square-ish appearance.
func RenderBoard(state *game.GameState) string {
	if state == nil || len(state.Cells) == 0 {
		return i18n.T("Waiting for game state...")
	}

	shadow := make(map[game.Coord]bool, len(state.Shadow))
	for _, c := range state.Shadow {
		shadow[c] = true
	}
	shadowStyle := emptyStyle
	if state.Current != nil {
		shadowStyle = emptyStyle.Foreground(lipgloss.Color(state.Current.Color().Hex()))
	}

	rows := make([]string, 0, state.Height)
	for r := state.Height - 1; r >= 0; r-- {
		var b strings.Builder
		for c := 0; c < state.Width; c++ {
			cell := state.Cells[r][c]
			switch {
			case cell.Filled:
				b.WriteString(blockStyle(cell.Color).Render(blockGlyph))
			case shadow[game.Coord{Row: r, Col: c}]:
				b.WriteString(shadowStyle.Render(shadowGlyph))
			default:
				b.WriteString(emptyStyle.Render(emptyGlyph))
			}
		}
		rows = append(rows, b.String())
	}

	return boardBorderStyle.Render(strings.Join(rows, "\n"))
}

func blockStyle(c game.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(c.Hex())).
		Background(lipgloss.Color("#1a1a2e"))
}

// RenderShape draws a shape on its own, trimmed to its filled rows.
func RenderShape(shape game.Shape) string {
	n := shape.BoxSize()
	filled := make(map[game.Coord]bool, 4)
	for _, off := range shape.Offsets() {
		filled[off] = true
	}

	style := blockStyle(shape.Color()).UnsetBackground()
	var rows []string
	for r := n - 1; r >= 0; r-- {
		var b strings.Builder
		used := false
		for c := 0; c < n; c++ {
			if filled[game.Coord{Row: r, Col: c}] {
				b.WriteString(style.Render(blockGlyph))
				used = true
			} else {
				b.WriteString("  ")
			}
		}
		if used {
			rows = append(rows, strings.TrimRight(b.String(), " "))
		}
	}
	return strings.Join(rows, "\n")
}

// RenderHUD renders score, lines, level and the preview queue.
func RenderHUD(state *game.GameState) string {
	if state == nil {
		return ""
	}

	var parts []string

	// Title
	parts = append(parts, titleStyle.Render("QUADRIS"))
	parts = append(parts, "")

	parts = append(parts, stat(i18n.T("SCORE"), state.Score))
	parts = append(parts, stat(i18n.T("LINES"), state.Lines))
	parts = append(parts, stat(i18n.T("LEVEL"), state.Level))
	parts = append(parts, "")

	parts = append(parts, labelStyle.Render(i18n.T("NEXT")))
	for _, shape := range state.Preview {
		parts = append(parts, RenderShape(shape), "")
	}

	return hudBorderStyle.Render(strings.Join(parts, "\n"))
}

func stat(label string, value int) string {
	return fmt.Sprintf("%s %s", labelStyle.Render(label), valueStyle.Render(fmt.Sprint(value)))
}

// RenderControls lists the key bindings.
func RenderControls() string {
	lines := []string{
		labelStyle.Render(i18n.T("Controls")),
		i18n.T("A and D move the piece"),
		i18n.T("S speeds up the fall"),
		i18n.T("I or Space drops the piece"),
		i18n.T("O and P rotate the piece"),
		i18n.T("Esc pauses, Q quits"),
	}
	return helpStyle.Render(strings.Join(lines, "\n"))
}

// RenderMenu renders a vertical list of items with the cursor highlighted.
func RenderMenu(title string, items []string, cursor int) string {
	var parts []string
	parts = append(parts, titleStyle.Render(title), "")
	for i, item := range items {
		if i == cursor {
			parts = append(parts, selectedStyle.Render(" "+item+" "))
		} else {
			parts = append(parts, " "+item+" ")
		}
	}
	return hudBorderStyle.Render(strings.Join(parts, "\n"))
}

// RenderOptions renders the level slider.
func RenderOptions(level, maxLevel int) string {
	var slider strings.Builder
	for l := 0; l <= maxLevel; l++ {
		if l == level {
			slider.WriteString(selectedStyle.Render(fmt.Sprintf(" %d ", l)))
		} else {
			slider.WriteString(fmt.Sprintf(" %d ", l))
		}
	}

	parts := []string{
		titleStyle.Render(i18n.T("OPTIONS")),
		"",
		labelStyle.Render(i18n.T("LEVEL")),
		slider.String(),
		"",
		helpStyle.Render(i18n.T("Left/Right change the level")),
		helpStyle.Render(fmt.Sprintf("Enter: %s  Esc: %s", i18n.T("SAVE"), i18n.T("CANCEL"))),
	}
	return hudBorderStyle.Render(strings.Join(parts, "\n"))
}

// RenderGameOver renders the end-of-round banner.
func RenderGameOver(state *game.GameState) string {
	parts := []string{
		lostStyle.Render(i18n.T("GAME OVER")),
		"",
		stat(i18n.T("SCORE"), state.Score),
		stat(i18n.T("LINES"), state.Lines),
		stat(i18n.T("LEVEL"), state.Level),
		"",
		helpStyle.Render(i18n.T("Enter: play again  Esc: menu")),
	}
	return hudBorderStyle.Render(strings.Join(parts, "\n"))
}

// RenderError renders an error line.
func RenderError(err error) string {
	return errorStyle.Render(i18n.T("Error: %s", err.Error()))
}
