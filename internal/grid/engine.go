package grid

import (
	"sync"
	"time"

	"github.com/proofsheet/tablo/internal/clock"
	"github.com/proofsheet/tablo/internal/domain"
	"github.com/proofsheet/tablo/internal/selection"
)

// Action identifies what a click resolved to
type Action int

const (
	ActionNone Action = iota
	ActionDeleteSelect
	ActionZoom
	ActionSelectionChange
	ActionMaxReached
)

func (a Action) String() string {
	switch a {
	case ActionDeleteSelect:
		return "deleteSelect"
	case ActionZoom:
		return "zoom"
	case ActionSelectionChange:
		return "selectionChange"
	case ActionMaxReached:
		return "maxReached"
	}
	return "none"
}

// Click describes one click on a photo cell
type Click struct {
	PhotoID int
	// Shift requests a range selection from the last plain click
	Shift bool
	// Modifier is ctrl/cmd; only meaningful in delete mode
	Modifier bool
}

// ClickResult is the single action a click produced
type ClickResult struct {
	Action    Action
	Photo     domain.Photo
	Index     int   // zoom: position in the photo list
	Selection []int // selectionChange: the new selection
	Selected  bool  // deleteSelect: new membership in the delete set
	Max       int   // maxReached: the cap that was hit
}

// Input is the workflow-owned state the engine renders
type Input struct {
	Photos        []domain.Photo
	TotalCount    int // 0 means len(Photos)
	Selected      []int
	AllowMultiple bool
	MaxSelection  *int
	Readonly      bool
	DeleteMode    bool
	VirtualScroll bool
}

// Config tunes the engine
type Config struct {
	Breakpoints    []Breakpoint
	Gap            int
	ResizeDebounce time.Duration
}

// DefaultConfig returns the standard breakpoints, gap and resize debounce
func DefaultConfig() Config {
	return Config{
		Breakpoints:    DefaultBreakpoints,
		Gap:            DefaultGap,
		ResizeDebounce: DefaultResizeDebounce,
	}
}

// Engine tracks layout and per-photo UI state for the selection grid.
// It is safe for use from the UI goroutine and timer callbacks.
type Engine struct {
	clock clock.Clock
	cfg   Config

	mu          sync.Mutex
	in          Input
	width       int
	columns     int
	layout      Layout
	selected    selection.Set
	deleteSet   selection.Set
	loaded      selection.Set
	lastClicked int
	hasLast     bool
	loadingMore bool

	resizeTimer  clock.Timer
	pendingWidth int
	onLayout     func(Layout)
}

// NewEngine creates an engine on c (nil means the wall clock)
func NewEngine(c clock.Clock, cfg Config) *Engine {
	if c == nil {
		c = clock.Real()
	}
	if len(cfg.Breakpoints) == 0 {
		cfg.Breakpoints = DefaultBreakpoints
	}
	if cfg.ResizeDebounce <= 0 {
		cfg.ResizeDebounce = DefaultResizeDebounce
	}
	e := &Engine{
		clock:     c,
		cfg:       cfg,
		columns:   DefaultColumns,
		selected:  selection.NewSet(nil),
		deleteSet: selection.NewSet(nil),
		loaded:    selection.NewSet(nil),
	}
	e.layout = computeWithColumns(nil, 0, e.columns, cfg.Gap)
	return e
}

// OnLayout registers fn to run after every debounced layout change
func (e *Engine) OnLayout(fn func(Layout)) {
	e.mu.Lock()
	e.onLayout = fn
	e.mu.Unlock()
}

// Update replaces the rendered input. Rows are only re-partitioned when
// the photo list changed.
func (e *Engine) Update(in Input) {
	e.mu.Lock()
	defer e.mu.Unlock()
	photosChanged := !samePhotos(e.in.Photos, in.Photos)
	e.in = in
	e.selected = selection.NewSet(in.Selected)
	if photosChanged {
		e.layout = computeWithColumns(in.Photos, e.width, e.columns, e.cfg.Gap)
	}
}

// SetWidth applies a container width immediately
func (e *Engine) SetWidth(width int) Layout {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyWidthLocked(width)
	return e.layout
}

// ObserveWidth records a width change; the layout is recomputed once no
// further change arrives for the resize debounce period.
func (e *Engine) ObserveWidth(width int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pendingWidth = width
	if e.resizeTimer != nil {
		e.resizeTimer.Stop()
	}
	e.resizeTimer = e.clock.AfterFunc(e.cfg.ResizeDebounce, e.flushWidth)
}

func (e *Engine) flushWidth() {
	e.mu.Lock()
	e.resizeTimer = nil
	changed := e.applyWidthLocked(e.pendingWidth)
	layout := e.layout
	fn := e.onLayout
	e.mu.Unlock()
	if changed && fn != nil {
		fn(layout)
	}
}

func (e *Engine) applyWidthLocked(width int) bool {
	if width == e.width {
		return false
	}
	e.width = width
	e.columns = ColumnsFor(width, e.cfg.Breakpoints)
	e.layout = computeWithColumns(e.in.Photos, width, e.columns, e.cfg.Gap)
	return true
}

// Layout returns the current layout
func (e *Engine) Layout() Layout {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layout
}

// Columns returns the current column count
func (e *Engine) Columns() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.columns
}

// SkeletonCount is the placeholder count for the current column count
func (e *Engine) SkeletonCount() int {
	return SkeletonCount(e.Columns())
}

// IsSelected is an O(1) membership check
func (e *Engine) IsSelected(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected.Has(id)
}

// IsDisabled reports whether the cell refuses selection: always in
// readonly, otherwise when the cap is reached and the photo is unselected.
func (e *Engine) IsDisabled(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.in.Readonly {
		return true
	}
	return e.maxReachedLocked() && !e.selected.Has(id)
}

// IsMaxReached reports whether the selection has hit its cap
func (e *Engine) IsMaxReached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxReachedLocked()
}

func (e *Engine) maxReachedLocked() bool {
	return selection.IsMaxReached(len(e.in.Selected), e.in.MaxSelection)
}

// IsDeleteSelected reports membership in the delete-mode set
func (e *Engine) IsDeleteSelected(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deleteSet.Has(id)
}

// DeleteSelection returns the delete-mode set in photo order
func (e *Engine) DeleteSelection() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []int
	for _, p := range e.in.Photos {
		if e.deleteSet.Has(p.ID) {
			out = append(out, p.ID)
		}
	}
	return out
}

// MarkImageLoaded records that a thumbnail finished loading
func (e *Engine) MarkImageLoaded(id int) {
	e.mu.Lock()
	e.loaded[id] = struct{}{}
	e.mu.Unlock()
}

// IsImageLoaded reports whether MarkImageLoaded was called since the last Reset
func (e *Engine) IsImageLoaded(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded.Has(id)
}

// Reset clears per-step UI state: loaded images, the range anchor, the
// delete set and the load-more gate.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loaded = selection.NewSet(nil)
	e.deleteSet = selection.NewSet(nil)
	e.hasLast = false
	e.lastClicked = 0
	e.loadingMore = false
}

// Stop cancels a pending resize recomputation
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resizeTimer != nil {
		e.resizeTimer.Stop()
		e.resizeTimer = nil
	}
}

// HandleClick resolves a click to exactly one action. Precedence:
// delete-mode modifier, readonly zoom, shift range, plain toggle.
func (e *Engine) HandleClick(c Click) ClickResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	index := -1
	var photo domain.Photo
	for i, p := range e.in.Photos {
		if p.ID == c.PhotoID {
			index, photo = i, p
			break
		}
	}
	if index < 0 {
		return ClickResult{Action: ActionNone}
	}

	if e.in.DeleteMode && c.Modifier {
		selected := !e.deleteSet.Has(photo.ID)
		if selected {
			e.deleteSet[photo.ID] = struct{}{}
		} else {
			delete(e.deleteSet, photo.ID)
		}
		return ClickResult{Action: ActionDeleteSelect, Photo: photo, Selected: selected}
	}

	if e.in.Readonly {
		return ClickResult{Action: ActionZoom, Photo: photo, Index: index}
	}

	if c.Shift && e.in.AllowMultiple && e.hasLast {
		sel := selection.SelectRange(domain.PhotoIDs(e.in.Photos), e.in.Selected, e.lastClicked, photo.ID, e.in.MaxSelection)
		return ClickResult{Action: ActionSelectionChange, Photo: photo, Selection: sel}
	}

	res := selection.Toggle(e.in.Selected, photo.ID, e.in.AllowMultiple, e.in.MaxSelection)
	if res.Blocked {
		return ClickResult{Action: ActionMaxReached, Photo: photo, Max: *e.in.MaxSelection}
	}
	e.lastClicked = photo.ID
	e.hasLast = true
	return ClickResult{Action: ActionSelectionChange, Photo: photo, Selection: res.Selection}
}

// SelectAll returns every photo id, truncated to the cap
func (e *Engine) SelectAll() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return selection.SelectAll(domain.PhotoIDs(e.in.Photos), e.in.MaxSelection)
}

// TotalCount is the full photo count, which may exceed the loaded page
func (e *Engine) TotalCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalLocked()
}

func (e *Engine) totalLocked() int {
	if e.in.TotalCount > 0 {
		return e.in.TotalCount
	}
	return len(e.in.Photos)
}

// HasMore reports whether pagination has unloaded photos
func (e *Engine) HasMore() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.in.VirtualScroll && len(e.in.Photos) < e.totalLocked()
}

// StartLoadMore claims the load-more gate. It returns false in virtual
// mode, while a load is running or when nothing remains.
func (e *Engine) StartLoadMore() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.in.VirtualScroll || e.loadingMore || len(e.in.Photos) >= e.totalLocked() {
		return false
	}
	e.loadingMore = true
	return true
}

// FinishLoadingMore releases the load-more gate
func (e *Engine) FinishLoadingMore() {
	e.mu.Lock()
	e.loadingMore = false
	e.mu.Unlock()
}

// IsLoadingMore reports whether the load-more gate is held
func (e *Engine) IsLoadingMore() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadingMore
}

func samePhotos(a, b []domain.Photo) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
