package ui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amalg/go-quadris/internal/game"
	"github.com/amalg/go-quadris/internal/i18n"
	"github.com/amalg/go-quadris/internal/network"
)

// stateUpdateMsg carries a new game state from the network client.
type stateUpdateMsg game.GameState

// errMsg carries an error.
type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// StateSource yields the host's states. Implemented by network.Client.
type StateSource interface {
	StateChan() <-chan game.GameState
	Err() error
}

var _ StateSource = (*network.Client)(nil)

// SpectateModel is the Bubbletea model for watching a remote game.
type SpectateModel struct {
	source   StateSource
	room     string
	state    *game.GameState
	err      error
	quitting bool
}

// NewSpectateModel creates a read-only model fed by source.
func NewSpectateModel(source StateSource, room string) SpectateModel {
	return SpectateModel{
		source: source,
		room:   room,
	}
}

// Init starts listening for state updates from the host.
func (m SpectateModel) Init() tea.Cmd {
	return waitForState(m.source)
}

// Update handles incoming messages (key presses, state updates).
func (m SpectateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case stateUpdateMsg:
		state := game.GameState(msg)
		m.state = &state
		return m, waitForState(m.source)

	case errMsg:
		m.err = msg.err
		return m, tea.Quit
	}

	return m, nil
}

// View renders the latest received state.
func (m SpectateModel) View() string {
	if m.quitting {
		return i18n.T("Goodbye!") + "\n"
	}

	if m.err != nil {
		return RenderError(m.err) + "\n"
	}

	header := titleStyle.Render(i18n.T("Spectating %s", m.room))
	if m.state == nil {
		return header + "\n" + RenderBoard(nil) + "\n"
	}

	var panel string
	switch m.state.Status {
	case game.StatusPaused:
		panel = RenderMenu(i18n.T("PAUSED"), nil, -1)
	case game.StatusOver:
		panel = RenderGameOver(m.state)
	default:
		panel = RenderHUD(m.state)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, RenderBoard(m.state), "  ", panel),
	) + "\n"
}

// waitForState returns a Cmd that waits for the next state update from the host.
func waitForState(source StateSource) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-source.StateChan()
		if !ok {
			if err := source.Err(); err != nil {
				return errMsg{err: err}
			}
			return errMsg{err: errors.New(i18n.T("Connection closed"))}
		}
		return stateUpdateMsg(state)
	}
}
