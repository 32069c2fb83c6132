package tui

import "github.com/proofsheet/tablo/internal/domain"

// Message types for the TUI

// StepLoadedMsg signals that a workflow call returned. Err is nil on
// success; the workflow state already reflects the outcome.
type StepLoadedMsg struct {
	Op  string
	Err error
}

// StateChangedMsg signals that the workflow state, save queue or grid
// layout changed
type StateChangedMsg struct{}

// ToastMsg carries a notification from the services
type ToastMsg struct {
	Toast domain.Toast
}

// ExpireToastMsg removes the toast with the given sequence number
type ExpireToastMsg struct {
	Seq int
}

// TickMsg is a general tick message for animations
type TickMsg struct{}

// ClearStatusMsg clears the status line
type ClearStatusMsg struct{}
