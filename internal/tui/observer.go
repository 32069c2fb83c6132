package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/proofsheet/tablo/internal/domain"
)

// ChannelNotifier adapts domain.Notifier to a channel for Bubble Tea.
type ChannelNotifier struct {
	ch chan domain.Toast
}

// NewChannelNotifier creates a notifier buffering up to size toasts
func NewChannelNotifier(size int) *ChannelNotifier {
	return &ChannelNotifier{ch: make(chan domain.Toast, size)}
}

// Notify sends the toast to the channel (non-blocking if full).
func (n *ChannelNotifier) Notify(t domain.Toast) {
	select {
	case n.ch <- t:
	default: // Non-blocking if channel full
	}
}

// Listen returns a command that delivers the next toast as a ToastMsg
func (n *ChannelNotifier) Listen() tea.Cmd {
	return func() tea.Msg {
		return ToastMsg{Toast: <-n.ch}
	}
}

// changeSignal coalesces change notifications from service goroutines
// into at most one pending StateChangedMsg.
type changeSignal struct {
	ch chan struct{}
}

func newChangeSignal() *changeSignal {
	return &changeSignal{ch: make(chan struct{}, 1)}
}

func (s *changeSignal) notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

func (s *changeSignal) listen() tea.Cmd {
	return func() tea.Msg {
		<-s.ch
		return StateChangedMsg{}
	}
}
