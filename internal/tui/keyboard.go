package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/proofsheet/tablo/internal/domain"
	"github.com/proofsheet/tablo/internal/grid"
	"github.com/proofsheet/tablo/internal/workflow"
)

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// ctrl+c always quits
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Any key leaves the help screen
	if m.State == StateHelp {
		m.State = StateBrowsing
		return m, nil
	}

	// Route to active overlay if any
	if handled, newModel, cmd := m.routeToOverlay(msg); handled {
		return newModel, cmd
	}

	snap := m.snap

	// Global keys
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.Escape):
		if m.Grid.IsFiltering() {
			m.Grid.ClearFilter()
			return m, nil
		}
		if m.DeleteMode {
			m.DeleteMode = false
			m.Ctrl.SetDeleteMode(false)
			return m, nil
		}
		if snap.IsReadonly {
			return m, ReturnToCompletedCmd(m.Ctrl)
		}
		return m, nil

	case key.Matches(msg, Keys.Filter):
		m.Grid.ToggleFilter()
		return m, nil

	case key.Matches(msg, Keys.Jump):
		m.Jump.Show("Jump to photo", "filename...", "enter to jump · esc to cancel")
		return m, nil

	case key.Matches(msg, Keys.Up):
		m.Grid.Move(-1, 0)
	case key.Matches(msg, Keys.Down):
		m.Grid.Move(1, 0)
		m.maybeLoadMore()
	case key.Matches(msg, Keys.Left):
		m.Grid.Move(0, -1)
	case key.Matches(msg, Keys.Right):
		m.Grid.Move(0, 1)
		m.maybeLoadMore()
	case key.Matches(msg, Keys.Home):
		m.Grid.SetCursor(0)
	case key.Matches(msg, Keys.End):
		m.Grid.SetCursor(m.Grid.VisibleCount() - 1)
		m.maybeLoadMore()
	case key.Matches(msg, Keys.PageUp):
		m.Grid.Page(-1)
	case key.Matches(msg, Keys.PageDown):
		m.Grid.Page(1)
		m.maybeLoadMore()

	case key.Matches(msg, Keys.ShiftUp):
		m.Grid.Move(-1, 0)
		return m.click(true, false)
	case key.Matches(msg, Keys.ShiftDown):
		m.Grid.Move(1, 0)
		return m.click(true, false)
	case key.Matches(msg, Keys.ShiftLeft):
		m.Grid.Move(0, -1)
		return m.click(true, false)
	case key.Matches(msg, Keys.ShiftRight):
		m.Grid.Move(0, 1)
		return m.click(true, false)

	case key.Matches(msg, Keys.Toggle, Keys.Enter):
		return m.click(false, false)
	case key.Matches(msg, Keys.RangeToggle):
		return m.click(true, false)
	case key.Matches(msg, Keys.DeleteMark):
		return m.click(false, true)
	case key.Matches(msg, Keys.DeleteMode):
		m.DeleteMode = !m.DeleteMode
		m.Ctrl.SetDeleteMode(m.DeleteMode)
		if m.DeleteMode {
			return m.setStatus("Delete mode: x marks photos", false)
		}
		return m, nil

	case key.Matches(msg, Keys.SelectAll):
		m.Ctrl.SelectAll()
		m.sync()
	case key.Matches(msg, Keys.DeselectAll):
		m.Ctrl.DeselectAll()
		m.sync()
	case key.Matches(msg, Keys.LoadMore):
		if m.Ctrl.LoadMore() {
			m.sync()
		}

	case key.Matches(msg, Keys.Next):
		if !snap.CanProceed {
			if snap.ValidationError != "" {
				return m.setStatus(snap.ValidationError, true)
			}
			return m, nil
		}
		return m, NextStepCmd(m.Ctrl)
	case key.Matches(msg, Keys.Previous):
		if !snap.CanGoBack {
			return m, nil
		}
		return m, PreviousStepCmd(m.Ctrl)
	case key.Matches(msg, Keys.View1):
		return m.gotoStep(domain.StepClaiming)
	case key.Matches(msg, Keys.View2):
		return m.gotoStep(domain.StepRetouch)
	case key.Matches(msg, Keys.View3):
		return m.gotoStep(domain.StepTablo)
	case key.Matches(msg, Keys.Modify):
		if snap.Finalized {
			m.Ctrl.OpenModify()
			m.sync()
		}
		return m, nil
	case key.Matches(msg, Keys.Reload):
		return m, LoadStepCmd(m.Ctrl)
	}

	return m, nil
}

// routeToOverlay gives dialogs and inputs first claim on a key
func (m Model) routeToOverlay(msg tea.KeyMsg) (bool, Model, tea.Cmd) {
	snap := m.snap

	if m.Zoom != nil {
		if key.Matches(msg, Keys.Escape, Keys.Enter, Keys.Toggle, Keys.Quit) {
			m.Zoom = nil
		}
		return true, m, nil
	}

	if m.Jump.IsVisible() {
		var cmd tea.Cmd
		var submitted bool
		m.Jump, cmd, submitted = m.Jump.Update(msg)
		if submitted {
			m.Jump.Hide()
			m.jumpTo(m.Jump.Value())
		}
		return true, m, cmd
	}

	if m.Grid.IsFilterTyping() {
		var cmd tea.Cmd
		m.Grid, cmd = m.Grid.Update(msg)
		return true, m, cmd
	}

	if snap.Finalize.Open {
		return true, m, m.confirmKey(msg, workflow.FinalizeConfirm, snap.Finalize)
	}
	if snap.Modify.Open {
		return true, m, m.confirmKey(msg, workflow.ModifyConfirm, snap.Modify)
	}

	if snap.InfoDialogOpen {
		if key.Matches(msg, Keys.Escape, Keys.Enter, Keys.Toggle) {
			if err := m.Ctrl.DismissInfoDialog(); err != nil {
				m.logger.Warn("failed to store step info flag", "error", err)
			}
			m.sync()
		}
		return true, m, nil
	}

	return false, m, nil
}

func (m Model) confirmKey(msg tea.KeyMsg, kind workflow.ConfirmKind, d workflow.ConfirmDialog) tea.Cmd {
	if d.Status == workflow.ConfirmSubmitting {
		return nil
	}
	switch {
	case key.Matches(msg, Keys.Confirm):
		if kind == workflow.ModifyConfirm {
			return RequestModificationCmd(m.Ctrl)
		}
		return FinalizeCmd(m.Ctrl)
	case key.Matches(msg, Keys.Deny):
		if kind == workflow.ModifyConfirm {
			m.Ctrl.CancelModify()
		} else {
			m.Ctrl.CancelFinalize()
		}
	}
	return nil
}

// click sends a grid click for the photo under the cursor
func (m Model) click(shift, modifier bool) (tea.Model, tea.Cmd) {
	photo, ok := m.Grid.SelectedPhoto()
	if !ok {
		return m, nil
	}
	res := m.Ctrl.Click(grid.Click{PhotoID: photo.ID, Shift: shift, Modifier: modifier})
	switch res.Action {
	case grid.ActionZoom:
		p := res.Photo
		m.Zoom = &p
	case grid.ActionDeleteSelect:
		m.sync()
		return m.setStatus(deleteStatus(len(m.Ctrl.Grid().DeleteSelection())), false)
	}
	m.sync()
	return m, nil
}

func deleteStatus(n int) string {
	if n == 1 {
		return "1 photo marked for delete"
	}
	return fmt.Sprintf("%d photos marked for delete", n)
}

// gotoStep views a step of a finalized workflow, or moves back to an
// earlier step of an open one
func (m Model) gotoStep(step domain.Step) (tea.Model, tea.Cmd) {
	snap := m.snap
	if snap.Finalized {
		return m, ViewStepCmd(m.Ctrl, step)
	}
	if step.Index() < snap.CurrentStep.Index() && !snap.Saving {
		return m, MoveToStepCmd(m.Ctrl, step)
	}
	return m, nil
}

// jumpTo moves the cursor to the best filename match
func (m *Model) jumpTo(query string) {
	photos := m.Grid.Photos()
	i, ok := JumpTarget(query, photos)
	if !ok {
		m.StatusMsg = "No photo matches " + query
		m.StatusIsErr = true
		return
	}
	if m.Grid.IsFiltering() {
		m.Grid.ClearFilter()
	}
	m.Grid.SetCursorByID(photos[i].ID)
}

// maybeLoadMore reveals the next page once the last row is within the
// buffered window below the screen
func (m *Model) maybeLoadMore() {
	if m.snap.HasMore && m.Grid.NearEnd() && m.Ctrl.LoadMore() {
		m.sync()
	}
}
