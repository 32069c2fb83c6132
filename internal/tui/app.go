package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/proofsheet/tablo/internal/domain"
	"github.com/proofsheet/tablo/internal/grid"
	"github.com/proofsheet/tablo/internal/service"
	"github.com/proofsheet/tablo/internal/tui/components"
	"github.com/proofsheet/tablo/internal/workflow"
)

// ApplicationState represents the current screen of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateHelp
)

// Layout constants
const (
	// HeaderHeight is the step tab line
	HeaderHeight = 1
	// FooterHeight is the message line (toast or validation) plus the status line
	FooterHeight = 2

	// DefaultCellPx converts terminal columns to layout pixels
	DefaultCellPx = 10

	toastDuration = 4 * time.Second
	maxToasts     = 3
	tickInterval  = 100 * time.Millisecond
)

// toast is a visible notification
type toast struct {
	seq int
	domain.Toast
}

// Model is the main Bubble Tea model for the application
type Model struct {
	// Application state
	State ApplicationState
	Ready bool

	// Services
	Ctrl     *service.PhotoSelectionController
	notifier *ChannelNotifier
	changes  *changeSignal
	logger   *slog.Logger
	unsubs   []func()

	// UI Components
	Grid components.Grid
	Jump components.PromptModal

	// Dimensions
	Width  int
	Height int
	CellPx int

	// UI state
	StatusMsg    string
	StatusIsErr  bool
	SpinnerFrame int
	DeleteMode   bool
	Zoom         *domain.Photo
	toasts       []toast
	nextToast    int

	snap workflow.Snapshot
}

// NewModel creates the application model around a controller. The
// notifier must be the one the controller reports toasts to.
func NewModel(ctrl *service.PhotoSelectionController, notifier *ChannelNotifier, cellPx int, logger *slog.Logger) Model {
	if cellPx <= 0 {
		cellPx = DefaultCellPx
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := Model{
		State:    StateBrowsing,
		Ctrl:     ctrl,
		notifier: notifier,
		changes:  newChangeSignal(),
		logger:   logger,
		Grid:     components.NewGrid(),
		Jump:     components.NewPromptModal(),
		CellPx:   cellPx,
	}

	engine := ctrl.Grid()
	m.Grid.SetCellState(func(p domain.Photo) components.CellState {
		return components.CellState{
			Selected:     engine.IsSelected(p.ID),
			Disabled:     engine.IsDisabled(p.ID),
			DeleteMarked: engine.IsDeleteSelected(p.ID),
			Loaded:       engine.IsImageLoaded(p.ID),
		}
	})

	signal := m.changes
	m.unsubs = append(m.unsubs,
		ctrl.State().Subscribe(func(workflow.Snapshot) { signal.notify() }),
		ctrl.SubscribeSaves(func(service.QueueStatus) { signal.notify() }),
	)
	engine.OnLayout(func(grid.Layout) { signal.notify() })

	m.sync()
	return m
}

// Close detaches the model from the controller
func (m Model) Close() {
	for _, fn := range m.unsubs {
		fn()
	}
	m.Ctrl.Grid().OnLayout(nil)
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		LoadStepCmd(m.Ctrl),
		m.changes.listen(),
		TickCmd(tickInterval),
	}
	if m.notifier != nil {
		cmds = append(cmds, m.notifier.Listen())
	}
	return tea.Batch(cmds...)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		// The first size lays the grid out at once; resizes are debounced
		if m.Ready {
			m.Ctrl.ObserveWidth(msg.Width * m.CellPx)
		} else {
			m.Ctrl.SetWidth(msg.Width * m.CellPx)
		}
		m.Ready = true
		m.updateLayout()
		m.sync()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case TickMsg:
		m.SpinnerFrame++
		m.markLoaded()
		return m, TickCmd(tickInterval)

	case StateChangedMsg:
		m.sync()
		return m, m.changes.listen()

	case ToastMsg:
		m.nextToast++
		m.toasts = append(m.toasts, toast{seq: m.nextToast, Toast: msg.Toast})
		if len(m.toasts) > maxToasts {
			m.toasts = m.toasts[len(m.toasts)-maxToasts:]
		}
		d := toastDuration
		if msg.Toast.DurationMs > 0 {
			d = time.Duration(msg.Toast.DurationMs) * time.Millisecond
		}
		return m, tea.Batch(m.notifier.Listen(), ExpireToastCmd(m.nextToast, d))

	case ExpireToastMsg:
		for i, t := range m.toasts {
			if t.seq == msg.Seq {
				m.toasts = append(m.toasts[:i:i], m.toasts[i+1:]...)
				break
			}
		}
		return m, nil

	case StepLoadedMsg:
		m.sync()
		return m.handleStepResult(msg)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil
	}

	return m, nil
}

// handleStepResult reports failures the services did not already toast
func (m Model) handleStepResult(msg StepLoadedMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Err == nil:
		m.Zoom = nil
		return m, nil
	case errors.Is(msg.Err, domain.ErrBusy):
		return m.setStatus("Please wait for the current operation to finish", false)
	case errors.Is(msg.Err, domain.ErrTransitionBlocked):
		if m.snap.ValidationError != "" {
			return m.setStatus(m.snap.ValidationError, true)
		}
		return m.setStatus("Not available right now", false)
	}
	m.logger.Debug("workflow call failed", "op", msg.Op, "error", msg.Err)
	return m, nil
}

func (m Model) setStatus(text string, isErr bool) (tea.Model, tea.Cmd) {
	m.StatusMsg = text
	m.StatusIsErr = isErr
	return m, ClearStatusCmd(3 * time.Second)
}

// sync pulls the latest snapshot and layout into the view
func (m *Model) sync() {
	m.snap = m.Ctrl.Snapshot()
	engine := m.Ctrl.Grid()

	m.Grid.SetLayout(engine.Layout())
	if m.snap.Loading && len(m.snap.Photos) == 0 {
		m.Grid.SetSkeleton(engine.SkeletonCount())
	} else {
		m.Grid.SetSkeleton(0)
	}
	m.Grid.SetTitle(m.gridTitle())
	m.Grid.SetFocused(!m.snap.InfoDialogOpen && !m.snap.Finalize.Open && !m.snap.Modify.Open)
}

// markLoaded records the cells drawn since the last tick as loaded, so a
// cell shows its placeholder for one frame after it scrolls into view
func (m Model) markLoaded() {
	engine := m.Ctrl.Grid()
	for _, p := range m.Grid.OnScreen() {
		engine.MarkImageLoaded(p.ID)
	}
}

func (m Model) gridTitle() string {
	s := m.snap
	if s.CurrentStep == "" {
		return ""
	}
	info := s.DisplayedStep.Info()
	if s.IsCompleted {
		title := info.Description
		if s.TabloPhoto != nil {
			title += " Tablo: " + s.TabloPhoto.Filename
		}
		return title
	}
	if s.IsReadonly {
		return fmt.Sprintf("%s (read-only) · %d selected", info.Label, s.SelectedCount())
	}
	counter := fmt.Sprintf("%d selected", s.SelectedCount())
	if s.MaxSelection != nil {
		counter = fmt.Sprintf("%d/%d selected", s.SelectedCount(), *s.MaxSelection)
	}
	desc := s.Description
	if desc == "" {
		desc = info.Description
	}
	return desc + " · " + counter
}

// updateLayout resizes the grid to the space between header and footer
func (m *Model) updateLayout() {
	h := m.Height - HeaderHeight - FooterHeight
	if h < components.CellHeight {
		h = components.CellHeight
	}
	m.Grid.SetSize(m.Width, h)
}

// Snapshot returns the snapshot the view was last synced to
func (m Model) Snapshot() workflow.Snapshot {
	return m.snap
}
