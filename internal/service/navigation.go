package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/proofsheet/tablo/internal/domain"
	"github.com/proofsheet/tablo/internal/workflow"
)

// NavigationService runs workflow transitions. Each transition raises the
// loading gate, calls the backend, and on success replaces the whole
// snapshot; on failure the previous snapshot is kept and the user is told.
type NavigationService struct {
	workflow  *WorkflowService
	state     *workflow.State
	session   domain.SessionContext
	flags     domain.StepInfoStore
	snapshots domain.SnapshotCache
	notifier  domain.Notifier
	logger    *slog.Logger

	busy atomic.Bool
	// epoch counts transitions started; a background refresh that
	// overlaps one is dropped
	epoch atomic.Uint64
}

// NavigationDeps groups the collaborators of a NavigationService.
// Flags and Snapshots are optional.
type NavigationDeps struct {
	Workflow  *WorkflowService
	State     *workflow.State
	Session   domain.SessionContext
	Flags     domain.StepInfoStore
	Snapshots domain.SnapshotCache
	Notifier  domain.Notifier
	Logger    *slog.Logger
}

// NewNavigationService creates a navigation service
func NewNavigationService(d NavigationDeps) *NavigationService {
	if d.Notifier == nil {
		d.Notifier = domain.NoOpNotifier{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &NavigationService{
		workflow:  d.Workflow,
		state:     d.State,
		session:   d.Session,
		flags:     d.Flags,
		snapshots: d.Snapshots,
		notifier:  d.Notifier,
		logger:    d.Logger,
	}
}

// Busy reports whether a transition is outstanding
func (n *NavigationService) Busy() bool {
	return n.busy.Load()
}

func (n *NavigationService) galleryID() int {
	if n.session == nil {
		return 0
	}
	return n.session.GalleryID()
}

// begin takes the busy gate for one transition
func (n *NavigationService) begin() bool {
	if !n.busy.CompareAndSwap(false, true) {
		return false
	}
	n.epoch.Add(1)
	return true
}

// transition is the shared start/call/apply template
func (n *NavigationService) transition(ctx context.Context, op string, call func(context.Context, int) (*domain.StepData, error)) error {
	if !n.begin() {
		return domain.ErrBusy
	}
	defer n.busy.Store(false)

	n.state.StartLoading()
	data, err := call(ctx, n.galleryID())
	if err != nil {
		n.fail(op, err)
		return err
	}
	n.apply(data)
	n.logger.Info("transition applied", "op", op, "step", data.CurrentStep)
	return nil
}

func (n *NavigationService) apply(data *domain.StepData) {
	n.state.ApplyStepData(data)
	n.state.FinishLoading()
	n.remember(data)
	n.checkStepInfo(data.CurrentStep)
}

func (n *NavigationService) fail(op string, err error) {
	msg := domain.UserMessage(err)
	n.logger.Error("transition failed", "op", op, "error", err)
	n.state.LoadingError(msg)
	n.notifier.Notify(domain.Toast{Level: domain.ToastError, Title: "Error", Message: msg})
}

func (n *NavigationService) remember(data *domain.StepData) {
	if n.snapshots == nil {
		return
	}
	if err := n.snapshots.SaveSnapshot(n.galleryID(), data); err != nil {
		n.logger.Warn("failed to cache snapshot", "error", err)
	}
}

// checkStepInfo opens the step info dialog the first time a project
// reaches a step.
func (n *NavigationService) checkStepInfo(step domain.Step) {
	if n.flags == nil || n.session == nil || step == domain.StepCompleted {
		return
	}
	if !n.flags.IsStepInfoShown(n.session.ProjectID(), step) {
		n.state.OpenInfoDialog()
	}
}

// Load fetches the current step. When the server cannot be reached and a
// cached snapshot exists, the cached one is shown alongside the error.
func (n *NavigationService) Load(ctx context.Context) error {
	err := n.transition(ctx, "load", func(ctx context.Context, gid int) (*domain.StepData, error) {
		return n.workflow.LoadStepData(ctx, gid, "")
	})
	if err == nil || !domain.IsTransient(err) || n.snapshots == nil {
		return err
	}
	cached, ok := n.snapshots.GetSnapshot(n.galleryID())
	if !ok {
		return err
	}
	n.logger.Warn("showing cached snapshot", "galleryId", n.galleryID(), "step", cached.CurrentStep)
	n.state.ApplyStepData(cached)
	n.state.LoadingError(domain.UserMessage(err))
	return err
}

// Next advances to the following step
func (n *NavigationService) Next(ctx context.Context) error {
	return n.transition(ctx, "next", n.workflow.NextStep)
}

// Previous goes back one step
func (n *NavigationService) Previous(ctx context.Context) error {
	return n.transition(ctx, "previous", n.workflow.PreviousStep)
}

// MoveTo jumps back to target
func (n *NavigationService) MoveTo(ctx context.Context, target domain.Step) error {
	return n.transition(ctx, "move", func(ctx context.Context, gid int) (*domain.StepData, error) {
		return n.workflow.MoveToStep(ctx, gid, target)
	})
}

// Finalize completes the workflow. The confirm sub-state must already be
// submitting; it moves to success or error here.
func (n *NavigationService) Finalize(ctx context.Context) error {
	err := n.transition(ctx, "finalize", n.workflow.Finalize)
	if err != nil {
		n.state.SubmitFailed(workflow.FinalizeConfirm, domain.UserMessage(err))
		return err
	}
	n.state.SubmitSucceeded(workflow.FinalizeConfirm)
	n.notifier.Notify(domain.Toast{Level: domain.ToastSuccess, Title: "Done", Message: MsgFinalizeSuccess})
	return nil
}

// RequestModification reopens a finalized workflow, then reloads the step
// data. A failed reload does not undo the reopen; the user is warned and the
// next load picks up the reopened workflow.
func (n *NavigationService) RequestModification(ctx context.Context) error {
	if !n.begin() {
		return domain.ErrBusy
	}
	defer n.busy.Store(false)

	n.state.StartLoading()
	res, err := n.workflow.RequestModification(ctx, n.galleryID())
	if err != nil {
		n.fail("modify", err)
		n.state.SubmitFailed(workflow.ModifyConfirm, domain.UserMessage(err))
		return err
	}
	n.state.ClearModificationInfo()
	n.state.SubmitSucceeded(workflow.ModifyConfirm)
	msg := MsgModifySuccess
	if res != nil && res.Message != "" {
		msg = res.Message
	}
	n.notifier.Notify(domain.Toast{Level: domain.ToastSuccess, Title: "Reopened", Message: msg})

	data, err := n.workflow.LoadStepData(ctx, n.galleryID(), "")
	if err != nil {
		n.logger.Warn("reload after modification failed", "error", err)
		n.state.LoadingError(domain.UserMessage(err))
		n.notifier.Notify(domain.Toast{Level: domain.ToastWarning, Title: "Reopened", Message: MsgModifyReloadFailed})
		return nil
	}
	n.apply(data)
	n.logger.Info("transition applied", "op", "modify", "step", data.CurrentStep)
	return nil
}

// ViewStep shows step read-only. It is only allowed once finalized;
// viewing the completed step returns to it.
func (n *NavigationService) ViewStep(ctx context.Context, step domain.Step) error {
	snap := n.state.Snapshot()
	if !snap.Finalized {
		return domain.ErrTransitionBlocked
	}
	if step == domain.StepCompleted || step == snap.CurrentStep {
		if snap.ViewingStep == "" {
			return nil
		}
		return n.ReturnToCompleted(ctx)
	}
	if !n.begin() {
		return domain.ErrBusy
	}
	defer n.busy.Store(false)

	n.state.StartLoading()
	data, err := n.workflow.LoadStepDataReadonly(ctx, n.galleryID(), step)
	if err != nil {
		n.fail("view", err)
		return err
	}
	if err := n.state.ApplyViewing(step, data); err != nil {
		n.state.FinishLoading()
		return err
	}
	n.state.FinishLoading()
	return nil
}

// ReturnToCompleted reloads the current step, which leaves the viewing
// overlay. On failure the viewed step stays on screen.
func (n *NavigationService) ReturnToCompleted(ctx context.Context) error {
	return n.transition(ctx, "return", func(ctx context.Context, gid int) (*domain.StepData, error) {
		return n.workflow.LoadStepData(ctx, gid, "")
	})
}

// RefreshAfterCascade reloads the current step in the background and takes
// only the server's progress and review groups, so unsaved edits survive.
// It is skipped while a transition runs, and its result is dropped when a
// transition started meanwhile or the server is on another step.
func (n *NavigationService) RefreshAfterCascade(ctx context.Context) error {
	if n.busy.Load() {
		n.logger.Debug("cascade refresh skipped during transition")
		return nil
	}
	epoch := n.epoch.Load()
	data, err := n.workflow.LoadStepData(ctx, n.galleryID(), "")
	if err != nil {
		n.logger.Warn("cascade refresh failed", "error", err)
		return err
	}
	if n.busy.Load() || n.epoch.Load() != epoch || data.CurrentStep != n.state.Snapshot().CurrentStep {
		n.logger.Debug("cascade refresh dropped", "step", data.CurrentStep)
		return nil
	}
	n.state.ApplyCascade(data)
	return nil
}

// DismissStepInfo closes the info dialog and remembers it for the project
func (n *NavigationService) DismissStepInfo() error {
	step := n.state.Snapshot().CurrentStep
	n.state.CloseInfoDialog()
	if n.flags == nil || n.session == nil {
		return nil
	}
	if err := n.flags.SetStepInfoShown(n.session.ProjectID(), step); err != nil {
		return fmt.Errorf("remember step info: %w", err)
	}
	return nil
}

// Messages for successful confirm flows
const (
	MsgFinalizeSuccess    = "Your selection has been finalized."
	MsgModifySuccess      = "Your selection can be modified again."
	MsgModifyReloadFailed = "Your selection was reopened but could not be loaded. Press r to reload."
	MsgExactlyOnePhoto    = "Exactly one photo must be selected."
)
