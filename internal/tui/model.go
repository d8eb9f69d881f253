package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jaminalder/perfect-tic-tac-toe/internal/app"
	"github.com/jaminalder/perfect-tic-tac-toe/internal/domain"
)

var (
	xStyle          = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#007e50ff", Dark: "#6afd76ff"}).Render
	oStyle          = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#0003adff", Dark: "#5f61fcff"}).Render
	cursorStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#960000ff", Dark: "#fc7e7eff"}).Render
	winningRowStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#bb0000ff", Dark: "#df1010ff"}).Render
	bracketStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#414141ff", Dark: "#8f8f8fff"}).Render
	lastMoveStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000ff", Dark: "#ffffffff"}).Render
	errStyle        = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#b55404ff", Dark: "#f0a060ff"}).Render
	helpStyle       = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#8a8a8aff", Dark: "#6c6c6cff"}).Render
	headerStyle     = lipgloss.NewStyle().Bold(true).Render
)

type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding
	Place key.Binding
	Reset key.Binding
	Quit  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Place: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "place")),
		Reset: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type model struct {
	match   app.Match
	picker  app.MovePicker
	starter func() domain.Cell
	keys    keyMap
	cursor  int
	err     error
}

// InitialModel wraps a started match. picker answers engine moves; starter
// picks the opening mark when a two-player match is reset.
func InitialModel(m app.Match, picker app.MovePicker, starter func() domain.Cell) *model {
	if starter == nil {
		starter = func() domain.Cell { return domain.X }
	}
	return &model{
		match:   m,
		picker:  picker,
		starter: starter,
		keys:    defaultKeys(),
		cursor:  firstEmpty(m.Game.Board, 4),
	}
}

// Match returns the current match.
func (m *model) Match() app.Match { return m.match }

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Up):
		m.moveCursor(-3)
	case key.Matches(keyMsg, m.keys.Down):
		m.moveCursor(3)
	case key.Matches(keyMsg, m.keys.Left):
		if m.cursor%3 > 0 {
			m.moveCursor(-1)
		}
	case key.Matches(keyMsg, m.keys.Right):
		if m.cursor%3 < 2 {
			m.moveCursor(1)
		}
	case key.Matches(keyMsg, m.keys.Reset):
		m.reset()
	case key.Matches(keyMsg, m.keys.Place):
		if m.match.Game.Over {
			m.reset()
			return m, nil
		}
		m.place()
	}
	return m, nil
}

func (m *model) moveCursor(delta int) {
	next := m.cursor + delta
	if next < 0 || next > 8 {
		return
	}
	m.cursor = next
}

func (m *model) place() {
	m.err = m.match.Play(m.cursor, m.picker)
	if m.err != nil {
		return
	}
	m.cursor = firstEmpty(m.match.Game.Board, m.cursor)
}

func (m *model) reset() {
	m.err = m.match.Reset(m.starter(), m.picker)
	m.cursor = firstEmpty(m.match.Game.Board, 4)
}

// firstEmpty returns from if that cell is free, else the lowest free index.
// A full board keeps from.
func firstEmpty(b domain.Board, from int) int {
	if b[from] == domain.Empty {
		return from
	}
	if moves := b.AvailableMoves(); len(moves) > 0 {
		return moves[0]
	}
	return from
}

func markStyle(c domain.Cell) string {
	switch c {
	case domain.X:
		return xStyle(c.String())
	case domain.O:
		return oStyle(c.String())
	}
	return " "
}

func (m *model) status() string {
	g := m.match.Game
	if m.match.Mode == app.ModeEngine {
		switch m.match.Outcome() {
		case app.OutcomeWin:
			return "You win!"
		case app.OutcomeLose:
			return "You lose."
		case app.OutcomeDraw:
			return "Draw."
		}
		return fmt.Sprintf("Your move (%s)", markStyle(m.match.Human))
	}
	if g.Over {
		if g.Winner == domain.Empty {
			return "Draw."
		}
		return markStyle(g.Winner) + " wins!"
	}
	return markStyle(g.Turn) + " to move"
}

func (m *model) View() string {
	var s strings.Builder
	g := m.match.Game

	s.WriteString(headerStyle("--- Tic-Tac-Toe ---"))
	s.WriteString("\n\n")
	s.WriteString(m.status())
	s.WriteString("\n\n")

	line, won := g.Board.WinningLine(g.Winner)
	for i, c := range g.Board {
		mark := markStyle(c)
		if i == m.cursor && !g.Over && c == domain.Empty {
			mark = cursorStyle("*")
		}

		bStyle := bracketStyle
		if i == m.match.LastMove {
			bStyle = lastMoveStyle
		}
		if won && (line[0] == i || line[1] == i || line[2] == i) {
			bStyle = winningRowStyle
		}

		s.WriteString(bStyle("[") + mark + bStyle("]"))
		if (i+1)%3 == 0 {
			s.WriteString("\n")
		}
	}

	if m.err != nil {
		s.WriteString("\n" + errStyle(errorText(m.err)) + "\n")
	}

	s.WriteString("\n")
	help := "arrows/hjkl move • enter place • r reset • q quit"
	if g.Over {
		help = "enter play again • q quit"
	}
	s.WriteString(helpStyle(help))
	s.WriteString("\n")
	return s.String()
}

func errorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrOccupied):
		return "That cell is taken."
	case errors.Is(err, domain.ErrGameOver):
		return "The game is over."
	}
	return err.Error()
}
