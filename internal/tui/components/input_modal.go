package components

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/proofsheet/tablo/internal/tui/styles"
)

const promptWidth = 40

// PromptModal is a one-line text prompt shown over the grid
type PromptModal struct {
	visible bool
	title   string
	hint    string
	input   textinput.Model
}

// NewPromptModal creates a hidden prompt
func NewPromptModal() PromptModal {
	ti := textinput.New()
	ti.CharLimit = 120
	ti.Width = promptWidth - 4
	ti.Prompt = "› "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle

	return PromptModal{input: ti}
}

// Show displays the prompt with an empty input
func (m *PromptModal) Show(title, placeholder, hint string) {
	m.visible = true
	m.title = title
	m.hint = hint
	m.input.Placeholder = placeholder
	m.input.SetValue("")
	m.input.Focus()
}

// Hide dismisses the prompt
func (m *PromptModal) Hide() {
	m.visible = false
	m.input.Blur()
}

// IsVisible returns whether the prompt is shown
func (m PromptModal) IsVisible() bool {
	return m.visible
}

// Value returns the current input value
func (m PromptModal) Value() string {
	return m.input.Value()
}

// Update handles input events, returns (modal, cmd, submitted)
func (m PromptModal) Update(msg tea.Msg) (PromptModal, tea.Cmd, bool) {
	if !m.visible {
		return m, nil, false
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			return m, nil, true
		case "esc":
			m.Hide()
			return m, nil, false
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd, false
}

// View renders the prompt
func (m PromptModal) View() string {
	if !m.visible {
		return ""
	}

	lines := []string{
		styles.ModalTitleStyle.Render(m.title),
		m.input.View(),
	}
	if m.hint != "" {
		lines = append(lines, "", styles.DimStyle.Render(m.hint))
	}

	return styles.ModalStyle.
		Width(promptWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
