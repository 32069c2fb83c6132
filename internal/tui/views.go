package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/proofsheet/tablo/internal/domain"
	"github.com/proofsheet/tablo/internal/tui/styles"
	"github.com/proofsheet/tablo/internal/workflow"
)

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	if m.State == StateHelp {
		return m.renderHelp()
	}

	view := lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.Grid.View(),
		m.renderMessageLine(),
		m.renderFooter(),
	)

	// Overlays replace the screen, topmost last
	snap := m.snap
	var modal string
	switch {
	case m.Zoom != nil:
		modal = m.renderZoom(*m.Zoom)
	case m.Jump.IsVisible():
		modal = m.Jump.View()
	case snap.Finalize.Open:
		modal = m.renderFinalizeConfirm(snap.Finalize)
	case snap.Modify.Open:
		modal = m.renderModifyConfirm(snap.Modify)
	case snap.InfoDialogOpen:
		modal = m.renderInfoDialog()
	}
	if modal != "" {
		view = lipgloss.Place(m.Width, m.Height,
			lipgloss.Center, lipgloss.Center,
			modal)
	}
	return view
}

// renderHeader renders the step tabs
func (m Model) renderHeader() string {
	snap := m.snap
	current := snap.CurrentStep.Index()

	var tabs []string
	for i, step := range domain.Steps {
		label := fmt.Sprintf("%d %s", i+1, step.Info().Label)
		if step == domain.StepCompleted {
			label = step.Info().Label
		}
		style := styles.StepPendingStyle
		switch {
		case snap.IsReadonly && step == snap.ViewingStep:
			style = styles.StepViewingStyle
		case step == snap.CurrentStep && !snap.IsReadonly:
			style = styles.StepActiveStyle
		case i < current:
			style = styles.StepDoneStyle
		}
		tabs = append(tabs, style.Render(label))
	}
	header := strings.Join(tabs, styles.DimStyle.Render("›"))

	if snap.IsReadonly {
		header += "  " + styles.DimBadgeStyle.Render("read-only · esc to return")
	} else if m.DeleteMode {
		header += "  " + styles.BadgeStyle.Render("delete mode")
	}
	return header
}

// renderMessageLine shows the newest toast, or the inline validation error
func (m Model) renderMessageLine() string {
	if n := len(m.toasts); n > 0 {
		t := m.toasts[n-1]
		text := t.Message
		if t.Title != "" {
			text = t.Title + ": " + t.Message
		}
		if n > 1 {
			text += styles.DimStyle.Render(fmt.Sprintf(" (+%d)", n-1))
		}
		return toastStyle(t.Level).Render(text)
	}

	snap := m.snap
	switch {
	case snap.ErrorMessage != "":
		return styles.ErrorStyle.Render(snap.ErrorMessage)
	case snap.Loading || snap.IsReadonly || snap.IsCompleted:
		return " "
	case len(snap.Photos) == 0 && snap.EmptyTitle != "":
		line := snap.EmptyTitle
		if snap.EmptyDesc != "" {
			line += " " + snap.EmptyDesc
		}
		return styles.DimStyle.Render(line)
	case !snap.IsValid && snap.ValidationError != "":
		return styles.ErrorStyle.Render(snap.ValidationError)
	}
	return " "
}

func toastStyle(level domain.ToastLevel) lipgloss.Style {
	switch level {
	case domain.ToastSuccess:
		return styles.SuccessStyle
	case domain.ToastError:
		return styles.ErrorStyle
	case domain.ToastWarning:
		return styles.AccentStyle
	}
	return styles.InfoStyle
}

// renderFooter renders a single-line footer: status, hints, help
func (m Model) renderFooter() string {
	snap := m.snap
	status := m.Ctrl.SaveStatus()

	var left string
	switch {
	case snap.Loading:
		left = styles.RenderSpinner(m.SpinnerFrame) + " " + styles.DimStyle.Render("Loading...")
	case status.IsSaving:
		left = styles.RenderSpinner(m.SpinnerFrame) + " " + styles.DimStyle.Render("Saving...")
	case status.HasUnsaved:
		left = styles.AccentStyle.Render("●") + " " + styles.DimStyle.Render("Unsaved changes")
	case m.StatusMsg != "":
		if m.StatusIsErr {
			left = styles.ErrorStyle.Render(m.StatusMsg)
		} else {
			left = styles.DimStyle.Render(m.StatusMsg)
		}
	case m.Ctrl.SaveSuccess():
		left = styles.SuccessStyle.Render(styles.SelectedChar + " Saved")
	case status.LastError != nil:
		left = styles.ErrorStyle.Render("Not saved: " + domain.UserMessage(status.LastError))
	}

	center := m.renderHints()
	right := styles.AccentStyle.Render("?") + styles.DimStyle.Render(" help")

	leftWidth := lipgloss.Width(left)
	centerWidth := lipgloss.Width(center)
	rightWidth := lipgloss.Width(right)

	if leftWidth+centerWidth+rightWidth >= m.Width {
		// Not enough space - just left + right
		gap := max(m.Width-leftWidth-rightWidth, 0)
		return left + strings.Repeat(" ", gap) + right
	}

	available := m.Width - leftWidth - rightWidth
	leftPad := (available - centerWidth) / 2
	rightPad := available - centerWidth - leftPad
	return left + strings.Repeat(" ", leftPad) + center + strings.Repeat(" ", rightPad) + right
}

// renderHints picks the key hints that apply to the current step
func (m Model) renderHints() string {
	snap := m.snap
	var bindings []key.Binding
	switch {
	case snap.IsReadonly:
		bindings = []key.Binding{Keys.Enter, Keys.Escape}
	case snap.IsCompleted:
		bindings = []key.Binding{Keys.View1, Keys.View2, Keys.View3, Keys.Modify}
	default:
		bindings = []key.Binding{Keys.Toggle}
		if snap.AllowMultiple {
			bindings = append(bindings, Keys.SelectAll)
		}
		if snap.CanGoBack {
			bindings = append(bindings, Keys.Previous)
		}
		next := Keys.Next
		if snap.CurrentStep == domain.StepTablo {
			next = key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "finalize"))
		}
		bindings = append(bindings, next)
		if snap.HasMore {
			bindings = append(bindings, Keys.LoadMore)
		}
	}
	return renderBindings(bindings)
}

func renderBindings(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, styles.HelpKeyStyle.Render(h.Key)+" "+styles.HelpDescStyle.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}

// renderInfoDialog renders the once-per-step explanation
func (m Model) renderInfoDialog() string {
	info := m.snap.CurrentStep.Info()
	body := lipgloss.NewStyle().Width(48).Render(info.InfoDialogMessage)
	return styles.ModalStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		styles.ModalTitleStyle.Render(info.InfoDialogTitle),
		body,
		"",
		styles.DimStyle.Render("enter to continue"),
	))
}

// renderFinalizeConfirm renders the finalize confirmation
func (m Model) renderFinalizeConfirm(d workflow.ConfirmDialog) string {
	lines := []string{styles.ModalTitleStyle.Render("Finalize selection?")}
	if p := m.selectedTablo(); p != nil {
		lines = append(lines, "Tablo photo: "+styles.AccentStyle.Render(p.Filename))
	}
	lines = append(lines,
		"Your choices are locked once finalized.",
		"",
		confirmFooter(d, "finalizing"),
	)
	return styles.ModalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) selectedTablo() *domain.Photo {
	if len(m.snap.Selected) != 1 {
		return nil
	}
	id := m.snap.Selected[0]
	for i := range m.snap.AllPhotos {
		if m.snap.AllPhotos[i].ID == id {
			return &m.snap.AllPhotos[i]
		}
	}
	return nil
}

// renderModifyConfirm renders the request-modification confirmation
func (m Model) renderModifyConfirm(d workflow.ConfirmDialog) string {
	lines := []string{styles.ModalTitleStyle.Render("Reopen your selection?")}
	if info := m.snap.ModificationInfo; info != nil {
		switch {
		case info.IsFree && info.FreeUntil != nil:
			lines = append(lines, "Free until "+info.FreeUntil.Local().Format("Jan 2 15:04")+".")
		case info.IsFree:
			lines = append(lines, "Reopening is free.")
		default:
			lines = append(lines, fmt.Sprintf("Reopening costs %d.", info.Price))
		}
	}
	lines = append(lines, "", confirmFooter(d, "reopening"))
	return styles.ModalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func confirmFooter(d workflow.ConfirmDialog, verb string) string {
	switch d.Status {
	case workflow.ConfirmSubmitting:
		return styles.DimStyle.Render(strings.ToUpper(verb[:1]) + verb[1:] + "...")
	case workflow.ConfirmError:
		return styles.ErrorStyle.Render(d.Error) + "\n" + styles.DimStyle.Render("[Y] Retry   [N] Cancel")
	}
	return styles.DimStyle.Render("[Y] Yes   [N] No")
}

// renderZoom shows one photo's details
func (m Model) renderZoom(p domain.Photo) string {
	return styles.ModalStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		styles.ModalTitleStyle.Render(p.Filename),
		styles.SubtitleStyle.Render(p.FullURL),
		"",
		styles.DimStyle.Render("esc to close"),
	))
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	help := `
MOVE                            SELECT
  h/j/k/l    Move cursor          Space    Select / open
  H/J/K/L    Extend selection     S        Select range
  Home/G     First / last         a / A    Select all / clear
  PgUp/PgDn  Scroll page          D, x     Delete mode, mark
  /          Filter filenames     +        Load more
  g          Jump to filename

WORKFLOW                        OTHER
  n          Next / finalize      r        Reload
  p          Previous step        ?        This help
  1-3        View or revisit      Esc      Back / close
  m          Request changes      q        Quit

Press any key to return...
`

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(help))
}
