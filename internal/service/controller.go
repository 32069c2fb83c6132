package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/proofsheet/tablo/internal/clock"
	"github.com/proofsheet/tablo/internal/domain"
	"github.com/proofsheet/tablo/internal/grid"
	"github.com/proofsheet/tablo/internal/security"
	"github.com/proofsheet/tablo/internal/workflow"
)

// DefaultSaveFlash is how long SaveSuccess stays true after a save
const DefaultSaveFlash = 2 * time.Second

// ControllerConfig holds the tunables of a PhotoSelectionController
type ControllerConfig struct {
	Queue         QueueConfig
	Grid          grid.Config
	PageSize      int
	VirtualScroll bool
	SaveFlash     time.Duration
}

// DefaultControllerConfig returns the standard timings and page size
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Queue:         DefaultQueueConfig(),
		Grid:          grid.DefaultConfig(),
		PageSize:      workflow.DefaultPageSize,
		VirtualScroll: true,
		SaveFlash:     DefaultSaveFlash,
	}
}

// ControllerDeps are the collaborators of a PhotoSelectionController.
// Flags, Snapshots, Notifier, Clock and Logger are optional.
type ControllerDeps struct {
	Repo      domain.WorkflowRepository
	Session   domain.SessionContext
	Flags     domain.StepInfoStore
	Snapshots domain.SnapshotCache
	Notifier  domain.Notifier
	Clock     clock.Clock
	Logger    *slog.Logger
}

// PhotoSelectionController wires the workflow state, grid engine, save
// queue and navigation into the operations a front-end calls.
type PhotoSelectionController struct {
	state    *workflow.State
	grid     *grid.Engine
	queue    *SelectionQueue
	nav      *NavigationService
	session  domain.SessionContext
	clock    clock.Clock
	notifier domain.Notifier
	logger   *slog.Logger
	cfg      ControllerConfig

	ctx    context.Context
	cancel context.CancelFunc
	bg     sync.WaitGroup

	mu         sync.Mutex
	flashUntil time.Time
	deleteMode bool
	unsubs     []func()
}

// NewPhotoSelectionController builds the full selection stack
func NewPhotoSelectionController(d ControllerDeps, cfg ControllerConfig) *PhotoSelectionController {
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Notifier == nil {
		d.Notifier = domain.NoOpNotifier{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if cfg.SaveFlash <= 0 {
		cfg.SaveFlash = DefaultSaveFlash
	}

	guard := security.NewGuard(d.Session, d.Logger)
	wf := NewWorkflowService(d.Repo, guard, d.Logger)
	state := workflow.NewState(cfg.PageSize, cfg.VirtualScroll)

	c := &PhotoSelectionController{
		state:    state,
		grid:     grid.NewEngine(d.Clock, cfg.Grid),
		queue:    NewSelectionQueue(wf, d.Clock, d.Notifier, cfg.Queue, d.Logger),
		session:  d.Session,
		clock:    d.Clock,
		notifier: d.Notifier,
		logger:   d.Logger,
		cfg:      cfg,
	}
	c.nav = NewNavigationService(NavigationDeps{
		Workflow:  wf,
		State:     state,
		Session:   d.Session,
		Flags:     d.Flags,
		Snapshots: d.Snapshots,
		Notifier:  d.Notifier,
		Logger:    d.Logger,
	})
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.unsubs = append(c.unsubs,
		state.Subscribe(func(s workflow.Snapshot) { c.syncGrid(s) }),
		c.queue.Subscribe(func(st QueueStatus) { state.SetSaving(st.IsSaving) }),
	)
	c.queue.OnSaved(c.saved)
	c.syncGrid(state.Snapshot())
	return c
}

// State exposes the workflow store for rendering and subscriptions
func (c *PhotoSelectionController) State() *workflow.State { return c.state }

// Grid exposes the layout engine for rendering
func (c *PhotoSelectionController) Grid() *grid.Engine { return c.grid }

// Snapshot returns the current workflow snapshot
func (c *PhotoSelectionController) Snapshot() workflow.Snapshot { return c.state.Snapshot() }

// SaveStatus returns the save queue status
func (c *PhotoSelectionController) SaveStatus() QueueStatus { return c.queue.Status() }

// SubscribeSaves registers fn for save queue status changes
func (c *PhotoSelectionController) SubscribeSaves(fn func(QueueStatus)) func() {
	return c.queue.Subscribe(fn)
}

func (c *PhotoSelectionController) galleryID() int {
	if c.session == nil {
		return 0
	}
	return c.session.GalleryID()
}

func (c *PhotoSelectionController) syncGrid(s workflow.Snapshot) {
	c.mu.Lock()
	deleteMode := c.deleteMode
	c.mu.Unlock()
	c.grid.Update(grid.Input{
		Photos:        s.Photos,
		TotalCount:    len(s.AllPhotos),
		Selected:      s.Selected,
		AllowMultiple: s.AllowMultiple,
		MaxSelection:  s.MaxSelection,
		Readonly:      s.IsReadonly || s.IsCompleted,
		DeleteMode:    deleteMode,
		VirtualScroll: s.VirtualScroll,
	})
}

// Load fetches the current step
func (c *PhotoSelectionController) Load(ctx context.Context) error {
	c.grid.Reset()
	return c.nav.Load(ctx)
}

// Next advances the workflow. On the tablo step it opens the finalize
// confirmation instead of calling the server.
func (c *PhotoSelectionController) Next(ctx context.Context) error {
	snap := c.state.Snapshot()
	if !snap.CanProceed {
		return domain.ErrTransitionBlocked
	}
	if snap.CurrentStep == domain.StepTablo {
		c.state.OpenConfirm(workflow.FinalizeConfirm)
		return nil
	}
	return c.afterTransition(c.nav.Next(ctx))
}

// Previous moves one step back
func (c *PhotoSelectionController) Previous(ctx context.Context) error {
	if !c.state.Snapshot().CanGoBack {
		return domain.ErrTransitionBlocked
	}
	return c.afterTransition(c.nav.Previous(ctx))
}

// MoveTo jumps back to an earlier step
func (c *PhotoSelectionController) MoveTo(ctx context.Context, target domain.Step) error {
	snap := c.state.Snapshot()
	if snap.Saving || snap.CurrentStep == domain.StepCompleted ||
		target.Index() < 0 || target.Index() >= snap.CurrentStep.Index() {
		return domain.ErrTransitionBlocked
	}
	return c.afterTransition(c.nav.MoveTo(ctx, target))
}

func (c *PhotoSelectionController) afterTransition(err error) error {
	if err == nil {
		c.grid.Reset()
	}
	return err
}

// ViewStep shows a finalized workflow's step read-only
func (c *PhotoSelectionController) ViewStep(ctx context.Context, step domain.Step) error {
	return c.afterTransition(c.nav.ViewStep(ctx, step))
}

// ReturnToCompleted leaves readonly viewing
func (c *PhotoSelectionController) ReturnToCompleted(ctx context.Context) error {
	return c.afterTransition(c.nav.ReturnToCompleted(ctx))
}

// OpenFinalize shows the finalize confirmation
func (c *PhotoSelectionController) OpenFinalize() {
	c.state.OpenConfirm(workflow.FinalizeConfirm)
}

// CancelFinalize hides the finalize confirmation
func (c *PhotoSelectionController) CancelFinalize() {
	c.state.CloseConfirm(workflow.FinalizeConfirm)
}

// Finalize submits the tablo choice. Exactly one photo must be selected;
// otherwise the dialog shows an error and nothing is sent.
func (c *PhotoSelectionController) Finalize(ctx context.Context) error {
	snap := c.state.Snapshot()
	if snap.CurrentStep != domain.StepTablo {
		return domain.ErrTransitionBlocked
	}
	if len(snap.Selected) != 1 {
		c.state.SubmitFailed(workflow.FinalizeConfirm, MsgExactlyOnePhoto)
		return domain.ErrTransitionBlocked
	}
	if !c.state.StartSubmit(workflow.FinalizeConfirm) {
		return domain.ErrBusy
	}
	return c.afterTransition(c.nav.Finalize(ctx))
}

// OpenModify shows the request-modification confirmation
func (c *PhotoSelectionController) OpenModify() {
	c.state.OpenConfirm(workflow.ModifyConfirm)
}

// CancelModify hides the request-modification confirmation
func (c *PhotoSelectionController) CancelModify() {
	c.state.CloseConfirm(workflow.ModifyConfirm)
}

// RequestModification reopens a finalized workflow
func (c *PhotoSelectionController) RequestModification(ctx context.Context) error {
	if !c.state.Snapshot().Finalized {
		return domain.ErrTransitionBlocked
	}
	if !c.state.StartSubmit(workflow.ModifyConfirm) {
		return domain.ErrBusy
	}
	return c.afterTransition(c.nav.RequestModification(ctx))
}

// DismissInfoDialog closes the step info dialog for good
func (c *PhotoSelectionController) DismissInfoDialog() error {
	return c.nav.DismissStepInfo()
}

// SetDeleteMode toggles modifier-click delete selection
func (c *PhotoSelectionController) SetDeleteMode(on bool) {
	c.mu.Lock()
	c.deleteMode = on
	c.mu.Unlock()
	c.syncGrid(c.state.Snapshot())
}

// Click handles a grid click and persists any selection change
func (c *PhotoSelectionController) Click(click grid.Click) grid.ClickResult {
	snap := c.state.Snapshot()
	if snap.Loading {
		return grid.ClickResult{Action: grid.ActionNone}
	}
	res := c.grid.HandleClick(click)
	switch res.Action {
	case grid.ActionMaxReached:
		c.notifier.Notify(domain.Toast{
			Level:   domain.ToastWarning,
			Title:   "Limit reached",
			Message: maxReachedMessage(snap.CurrentStep, res.Max),
		})
	case grid.ActionSelectionChange:
		c.applySelection(snap.CurrentStep, res.Selection)
	}
	return res
}

func maxReachedMessage(step domain.Step, max int) string {
	if step == domain.StepRetouch {
		return domain.MsgRetouchTooMany(max)
	}
	return domain.MsgTabloTooMany
}

// SelectAll selects every visible photo up to the cap
func (c *PhotoSelectionController) SelectAll() {
	snap := c.state.Snapshot()
	if !c.editable(snap) || !snap.AllowMultiple {
		return
	}
	c.applySelection(snap.CurrentStep, c.grid.SelectAll())
}

// DeselectAll clears the selection
func (c *PhotoSelectionController) DeselectAll() {
	snap := c.state.Snapshot()
	if !c.editable(snap) {
		return
	}
	c.applySelection(snap.CurrentStep, []int{})
}

func (c *PhotoSelectionController) editable(s workflow.Snapshot) bool {
	return !s.Loading && !s.IsReadonly && !s.IsCompleted
}

func (c *PhotoSelectionController) applySelection(step domain.Step, ids []int) {
	c.state.UpdateSelection(ids)
	c.queue.Enqueue(c.galleryID(), ids, step)
}

// LoadMore reveals the next page when pagination is active
func (c *PhotoSelectionController) LoadMore() bool {
	if !c.grid.StartLoadMore() {
		return false
	}
	defer c.grid.FinishLoadingMore()
	c.state.AppendPage()
	return true
}

// SetWidth lays the grid out for width without waiting for the debounce
func (c *PhotoSelectionController) SetWidth(width int) grid.Layout {
	return c.grid.SetWidth(width)
}

// ObserveWidth feeds a container width into the debounced layout
func (c *PhotoSelectionController) ObserveWidth(width int) {
	c.grid.ObserveWidth(width)
}

// SaveSuccess reports whether a save completed within the flash window
func (c *PhotoSelectionController) SaveSuccess() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.flashUntil.IsZero() && c.clock.Now().Before(c.flashUntil)
}

func (c *PhotoSelectionController) saved(p domain.PendingSave, res *domain.SaveResult) {
	c.mu.Lock()
	c.flashUntil = c.clock.Now().Add(c.cfg.SaveFlash)
	c.mu.Unlock()

	if !res.HasCascade() {
		return
	}
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		_ = c.nav.RefreshAfterCascade(c.ctx)
	}()
}

// Close tears down timers and pending saves. A save already sent is not
// aborted; its result is ignored.
func (c *PhotoSelectionController) Close() {
	c.queue.Reset()
	c.grid.Stop()
	c.cancel()
	c.mu.Lock()
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()
	for _, fn := range unsubs {
		fn()
	}
}

// Wait blocks until background saves and refreshes have returned
func (c *PhotoSelectionController) Wait() {
	c.queue.Wait()
	c.bg.Wait()
}
