// Package workflow holds the client view of the selection workflow:
// the server-confirmed snapshot, the user's in-progress selection and the
// values derived from them. Derived values are recomputed on every mutation
// and pushed to subscribers, so a Snapshot is never stale.
package workflow

import (
	"sync"

	"github.com/proofsheet/tablo/internal/domain"
	"github.com/proofsheet/tablo/internal/selection"
)

// DefaultPageSize is the pagination page when virtual scrolling is off
const DefaultPageSize = 100

// Snapshot is an immutable view of the state. Slices are shared with the
// state and must not be modified.
type Snapshot struct {
	Loading      bool
	Saving       bool
	Finalized    bool
	ErrorMessage string

	CurrentStep domain.Step
	ViewingStep domain.Step // empty unless a finalized workflow shows an earlier step

	AllPhotos     []domain.Photo
	Photos        []domain.Photo // visible prefix when paginating
	Selected      []int
	AllowMultiple bool
	MaxSelection  *int
	Description   string

	AlbumID          int
	Progress         *domain.WorkflowProgress
	WorkSession      domain.WorkSession
	ReviewGroups     *domain.ReviewGroups
	ModificationInfo *domain.ModificationInfo

	InfoDialogOpen bool
	Finalize       ConfirmDialog
	Modify         ConfirmDialog

	VirtualScroll bool
	PageSize      int

	// Derived
	DisplayedStep   domain.Step
	IsValid         bool
	ValidationError string
	IsMaxReached    bool
	IsReadonly      bool
	IsCompleted     bool
	CanGoBack       bool
	CanProceed      bool
	HasMore         bool
	TabloPhoto      *domain.Photo
	EmptyTitle      string
	EmptyDesc       string
}

// SelectedCount is len(Selected)
func (s Snapshot) SelectedCount() int {
	return len(s.Selected)
}

// State is the single mutable workflow store
type State struct {
	mu        sync.Mutex
	snap      Snapshot
	selected  selection.Set
	observers map[int]func(Snapshot)
	nextObs   int
}

// NewState creates an empty state that starts out loading
func NewState(pageSize int, virtualScroll bool) *State {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	s := &State{observers: make(map[int]func(Snapshot))}
	s.snap = initialSnapshot(pageSize, virtualScroll)
	s.recomputeLocked()
	return s
}

func initialSnapshot(pageSize int, virtualScroll bool) Snapshot {
	return Snapshot{
		Loading:       true,
		CurrentStep:   domain.StepClaiming,
		AllowMultiple: true,
		PageSize:      pageSize,
		VirtualScroll: virtualScroll,
	}
}

// Snapshot returns the current view
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe registers fn to receive every new snapshot.
// The returned func removes the subscription.
func (s *State) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// IsSelected is an O(1) check against the current selection
func (s *State) IsSelected(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected.Has(id)
}

// update runs fn under the lock, recomputes derived values and notifies
func (s *State) update(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snap)
	s.recomputeLocked()
	snap := s.snap
	observers := make([]func(Snapshot), 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	for _, o := range observers {
		o(snap)
	}
}

func (s *State) recomputeLocked() {
	v := &s.snap
	s.selected = selection.NewSet(v.Selected)

	v.DisplayedStep = v.CurrentStep
	if v.Finalized && v.ViewingStep != "" {
		v.DisplayedStep = v.ViewingStep
	}
	v.IsReadonly = v.Finalized && v.ViewingStep != ""
	v.IsCompleted = v.CurrentStep == domain.StepCompleted && v.ViewingStep == ""

	res := selection.Validate(v.CurrentStep, len(v.Selected), v.MaxSelection)
	v.IsValid = res.Valid
	v.ValidationError = res.Error
	v.IsMaxReached = selection.IsMaxReached(len(v.Selected), v.MaxSelection)

	v.CanProceed = v.CurrentStep != domain.StepCompleted && v.IsValid && !v.Saving && !v.Loading
	v.CanGoBack = v.CurrentStep != domain.StepClaiming && v.CurrentStep != domain.StepCompleted && !v.Saving

	if v.VirtualScroll {
		v.Photos = v.AllPhotos
	}
	v.HasMore = !v.VirtualScroll && len(v.Photos) < len(v.AllPhotos)

	v.TabloPhoto = nil
	if id := v.Progress.TabloID(); id > 0 {
		for i := range v.AllPhotos {
			if v.AllPhotos[i].ID == id {
				p := v.AllPhotos[i]
				v.TabloPhoto = &p
				break
			}
		}
	}

	info := v.DisplayedStep.Info()
	v.EmptyTitle = info.EmptyTitle
	v.EmptyDesc = info.EmptyDescription
}

// StartLoading raises the loading gate and clears the error
func (s *State) StartLoading() {
	s.update(func(v *Snapshot) {
		v.Loading = true
		v.ErrorMessage = ""
	})
}

// FinishLoading lowers the loading gate
func (s *State) FinishLoading() {
	s.update(func(v *Snapshot) { v.Loading = false })
}

// LoadingError lowers the loading gate and records msg.
// The previous snapshot is left untouched.
func (s *State) LoadingError(msg string) {
	s.update(func(v *Snapshot) {
		v.Loading = false
		v.ErrorMessage = msg
	})
}

// ClearError drops the error message
func (s *State) ClearError() {
	s.update(func(v *Snapshot) { v.ErrorMessage = "" })
}

// SetSaving mirrors the save queue's in-flight flag
func (s *State) SetSaving(saving bool) {
	s.update(func(v *Snapshot) { v.Saving = saving })
}

// ApplyStepData atomically replaces the workflow snapshot with d and
// leaves any readonly viewing overlay.
func (s *State) ApplyStepData(d *domain.StepData) {
	if d == nil {
		return
	}
	s.update(func(v *Snapshot) {
		v.Finalized = d.CurrentStep == domain.StepCompleted
		v.CurrentStep = d.CurrentStep
		v.AllowMultiple = d.StepMetadata.AllowMultiple
		v.MaxSelection = d.StepMetadata.MaxSelection
		v.Description = d.StepMetadata.Description
		v.AlbumID = d.AlbumID
		v.Progress = d.Progress
		v.WorkSession = d.WorkSession
		if d.ReviewGroups != nil {
			v.ReviewGroups = d.ReviewGroups
		}
		if d.ModificationInfo != nil {
			v.ModificationInfo = d.ModificationInfo
		}
		setPhotos(v, d.VisiblePhotos)
		v.Selected = cloneIDs(d.SelectedPhotos)
		v.ViewingStep = ""
	})
}

// ApplyViewing shows a finalized workflow's earlier step read-only without
// touching the current step or progress. Viewing the completed (or current)
// step clears the overlay.
func (s *State) ApplyViewing(step domain.Step, d *domain.StepData) error {
	var err error
	s.update(func(v *Snapshot) {
		if !v.Finalized {
			err = domain.ErrTransitionBlocked
			return
		}
		if step == domain.StepCompleted || step == v.CurrentStep || d == nil {
			v.ViewingStep = ""
			return
		}
		setPhotos(v, d.VisiblePhotos)
		v.Selected = cloneIDs(d.SelectedPhotos)
		v.AllowMultiple = d.StepMetadata.AllowMultiple
		v.MaxSelection = d.StepMetadata.MaxSelection
		v.Description = d.StepMetadata.Description
		v.ViewingStep = step
	})
	return err
}

// UpdateSelection replaces the in-progress selection
func (s *State) UpdateSelection(ids []int) {
	s.update(func(v *Snapshot) { v.Selected = cloneIDs(ids) })
}

// ApplyCascade takes the server's progress and review groups from d while
// keeping the user's current photos and selection.
func (s *State) ApplyCascade(d *domain.StepData) {
	if d == nil {
		return
	}
	s.update(func(v *Snapshot) {
		v.Progress = d.Progress
		if d.ReviewGroups != nil {
			v.ReviewGroups = d.ReviewGroups
		}
	})
}

// ClearModificationInfo drops the modification window after a reopen
func (s *State) ClearModificationInfo() {
	s.update(func(v *Snapshot) { v.ModificationInfo = nil })
}

// OpenInfoDialog shows the step info dialog
func (s *State) OpenInfoDialog() {
	s.update(func(v *Snapshot) { v.InfoDialogOpen = true })
}

// CloseInfoDialog hides the step info dialog
func (s *State) CloseInfoDialog() {
	s.update(func(v *Snapshot) { v.InfoDialogOpen = false })
}

// AppendPage reveals the next page. The grid engine owns the load-more gate.
func (s *State) AppendPage() {
	s.update(func(v *Snapshot) {
		end := min(len(v.Photos)+v.PageSize, len(v.AllPhotos))
		v.Photos = v.AllPhotos[:end]
	})
}

// Reset returns the state to its initial loading snapshot
func (s *State) Reset() {
	s.update(func(v *Snapshot) {
		*v = initialSnapshot(v.PageSize, v.VirtualScroll)
	})
}

func setPhotos(v *Snapshot, photos []domain.Photo) {
	v.AllPhotos = photos
	if v.VirtualScroll {
		v.Photos = photos
		return
	}
	v.Photos = photos[:min(v.PageSize, len(photos))]
}

func cloneIDs(ids []int) []int {
	out := make([]int, len(ids))
	copy(out, ids)
	return out
}
