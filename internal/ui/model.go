package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amalg/go-quadris/internal/game"
	"github.com/amalg/go-quadris/internal/i18n"
)

// frameMsg drives one engine tick.
type frameMsg time.Time

var (
	menuItems  = []string{"PLAY", "OPTIONS", "QUIT"}
	pauseItems = []string{"CONTINUE", "MENU"}
)

// Model is the Bubbletea model for playing locally. It owns the engine:
// every engine call happens on the Bubbletea update goroutine.
type Model struct {
	engine   *game.Engine
	state    game.GameState
	frame    time.Duration
	cursor   int
	quitting bool
}

// NewModel creates a model driving the given engine.
func NewModel(engine *game.Engine) Model {
	rate := engine.Config.TickRate
	if rate <= 0 {
		rate = 60
	}
	return Model{
		engine: engine,
		state:  engine.GetStateCopy(),
		frame:  time.Second / time.Duration(rate),
	}
}

// Init starts the frame clock.
func (m Model) Init() tea.Cmd {
	return tickCmd(m.frame)
}

// Update handles key presses and frame ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case frameMsg:
		prev := m.state.Status
		m.engine.Tick()
		m.state = m.engine.GetStateCopy()
		if m.state.Status != prev {
			m.cursor = 0
		}
		return m, tickCmd(m.frame)
	}

	return m, nil
}

// View renders the current screen.
func (m Model) View() string {
	if m.quitting {
		return i18n.T("Goodbye!") + "\n"
	}

	switch m.state.Status {
	case game.StatusMenu:
		return lipgloss.JoinVertical(lipgloss.Left,
			RenderMenu("QUADRIS", translate(menuItems), m.cursor),
			"",
			RenderControls(),
		) + "\n"

	case game.StatusOptions:
		return RenderOptions(m.state.OptionsLevel, m.engine.Config.MaxLevel) + "\n"

	case game.StatusPaused:
		return m.withBoard(RenderMenu(i18n.T("PAUSED"), translate(pauseItems), m.cursor))

	case game.StatusOver:
		return m.withBoard(RenderGameOver(&m.state))

	default:
		return m.withBoard(RenderHUD(&m.state))
	}
}

// withBoard lays out the board on the left and a side panel on the right.
func (m Model) withBoard(panel string) string {
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		RenderBoard(&m.state),
		"  ",
		panel,
	) + "\n"
}

// handleKey translates keys into engine actions for the current screen.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" || key == "q" {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.engine.Status() {
	case game.StatusMenu:
		switch key {
		case "up", "w", "k":
			m.cursor = (m.cursor + len(menuItems) - 1) % len(menuItems)
		case "down", "s", "j":
			m.cursor = (m.cursor + 1) % len(menuItems)
		case "enter", " ":
			switch m.cursor {
			case 0:
				m.enqueue(game.ActionStart)
			case 1:
				m.enqueue(game.ActionOpenOptions)
			default:
				m.quitting = true
				return m, tea.Quit
			}
		case "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case game.StatusOptions:
		switch key {
		case "left", "a", "h", "down", "s", "j":
			m.enqueue(game.ActionLevelDown)
		case "right", "d", "l", "up", "w", "k":
			m.enqueue(game.ActionLevelUp)
		case "enter":
			m.enqueue(game.ActionConfirm)
		case "esc":
			m.enqueue(game.ActionBack)
		}

	case game.StatusPlaying:
		if a, ok := playKeys[key]; ok {
			m.enqueue(a)
		}

	case game.StatusPaused:
		switch key {
		case "up", "w", "k", "down", "s", "j":
			m.cursor = (m.cursor + 1) % len(pauseItems)
		case "enter", " ":
			if m.cursor == 0 {
				m.enqueue(game.ActionConfirm)
			} else {
				m.enqueue(game.ActionBack)
			}
		case "esc", "p":
			m.enqueue(game.ActionPause)
		}

	case game.StatusOver:
		switch key {
		case "enter", " ":
			m.enqueue(game.ActionStart)
		case "esc":
			m.enqueue(game.ActionBack)
		}
	}

	return m, nil
}

// playKeys maps keys to in-round actions. Terminals only report presses,
// so a held down key arrives as repeated SoftDrop actions.
var playKeys = map[string]game.ActionType{
	"left":  game.ActionMoveLeft,
	"a":     game.ActionMoveLeft,
	"right": game.ActionMoveRight,
	"d":     game.ActionMoveRight,
	"down":  game.ActionSoftDrop,
	"s":     game.ActionSoftDrop,
	" ":     game.ActionHardDrop,
	"i":     game.ActionHardDrop,
	"up":    game.ActionRotateCW,
	"x":     game.ActionRotateCW,
	"o":     game.ActionRotateCW,
	"z":     game.ActionRotateCCW,
	"p":     game.ActionRotateCCW,
	"esc":   game.ActionPause,
}

func (m Model) enqueue(t game.ActionType) {
	m.engine.EnqueueAction(game.Action{Type: t})
}

func translate(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = i18n.T(item)
	}
	return out
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}
