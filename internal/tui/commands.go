package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/proofsheet/tablo/internal/domain"
	"github.com/proofsheet/tablo/internal/service"
)

// requestTimeout bounds one workflow call issued from the UI
const requestTimeout = 30 * time.Second

// Command factories for async operations

// workflowCmd runs fn off the UI goroutine and reports its outcome
func workflowCmd(op string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return StepLoadedMsg{Op: op, Err: fn(ctx)}
	}
}

// LoadStepCmd fetches the current step
func LoadStepCmd(c *service.PhotoSelectionController) tea.Cmd {
	return workflowCmd("load", c.Load)
}

// NextStepCmd advances the workflow (or opens the finalize dialog)
func NextStepCmd(c *service.PhotoSelectionController) tea.Cmd {
	return workflowCmd("next", c.Next)
}

// PreviousStepCmd moves one step back
func PreviousStepCmd(c *service.PhotoSelectionController) tea.Cmd {
	return workflowCmd("previous", c.Previous)
}

// MoveToStepCmd jumps back to an earlier step
func MoveToStepCmd(c *service.PhotoSelectionController, step domain.Step) tea.Cmd {
	return workflowCmd("move", func(ctx context.Context) error {
		return c.MoveTo(ctx, step)
	})
}

// ViewStepCmd shows a step of a finalized workflow read-only
func ViewStepCmd(c *service.PhotoSelectionController, step domain.Step) tea.Cmd {
	return workflowCmd("view", func(ctx context.Context) error {
		return c.ViewStep(ctx, step)
	})
}

// ReturnToCompletedCmd leaves readonly viewing
func ReturnToCompletedCmd(c *service.PhotoSelectionController) tea.Cmd {
	return workflowCmd("return", c.ReturnToCompleted)
}

// FinalizeCmd submits the tablo choice
func FinalizeCmd(c *service.PhotoSelectionController) tea.Cmd {
	return workflowCmd("finalize", c.Finalize)
}

// RequestModificationCmd reopens a finalized workflow
func RequestModificationCmd(c *service.PhotoSelectionController) tea.Cmd {
	return workflowCmd("modify", c.RequestModification)
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

// ExpireToastCmd removes a toast after its display time
func ExpireToastCmd(seq int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ExpireToastMsg{Seq: seq}
	})
}
