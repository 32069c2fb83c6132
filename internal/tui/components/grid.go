package components

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/proofsheet/tablo/internal/domain"
	"github.com/proofsheet/tablo/internal/grid"
	"github.com/proofsheet/tablo/internal/tui/styles"
)

// Layout constants for grid
const (
	// Border adds 1 char on each side (left+right for width, top+bottom for height)
	BorderWidth  = 2
	BorderHeight = 2

	// A cell is a bordered box with two content lines
	CellHeight = BorderHeight + 2

	// Scroll indicators ("↑ more" and "↓ more") each take 1 line
	ScrollIndicatorLines = 2

	// Title line at top of content area
	TitleLines = 1

	MinCellWidth = 12
)

// CellState is how one photo cell renders. An unloaded cell shows a
// placeholder instead of its details.
type CellState struct {
	Selected     bool
	Disabled     bool
	DeleteMarked bool
	Loaded       bool
}

// CellStateFunc reports the render state of a photo
type CellStateFunc func(p domain.Photo) CellState

// filenameIndex implements fuzzy.Source over lowercase filenames
type filenameIndex struct {
	lower []string
}

func (idx filenameIndex) String(i int) string { return idx.lower[i] }
func (idx filenameIndex) Len() int            { return len(idx.lower) }

// Grid renders the rows of a grid.Layout through a scrolling window, with a
// cursor and a filename filter
type Grid struct {
	layout  grid.Layout
	photos  []domain.Photo
	index   filenameIndex
	columns int
	state   CellStateFunc

	// Cursor is a position in the visible (possibly filtered) order
	cursor    int
	offsetRow int
	maxRows   int

	// Dimensions
	width   int
	height  int
	focused bool

	title    string
	skeleton int // placeholder cells while loading

	// Filter state
	filterActive bool
	filterInput  textinput.Model
	filterQuery  string
	filteredIdx  []int // indices into photos
}

// NewGrid creates a new grid component
func NewGrid() Grid {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle

	return Grid{
		filterInput: ti,
		columns:     1,
		focused:     true,
	}
}

// SetLayout replaces the rows and column count with the layout engine's.
// The cursor stays on the same photo when it is still present.
func (g *Grid) SetLayout(l grid.Layout) {
	current, hadCurrent := g.SelectedPhoto()
	g.layout = l
	g.columns = max(l.Columns, 1)

	var photos []domain.Photo
	for _, row := range l.Rows {
		photos = append(photos, row.Photos...)
	}
	g.photos = photos
	g.index = filenameIndex{lower: make([]string, len(photos))}
	for i, p := range photos {
		g.index.lower[i] = strings.ToLower(p.Filename)
	}
	if g.filterActive && g.filterQuery != "" {
		g.refilter()
	} else {
		g.filteredIdx = nil
	}
	if !hadCurrent || !g.SetCursorByID(current.ID) {
		g.SetCursor(g.cursor)
	}
}

// Photos returns the unfiltered photo list
func (g Grid) Photos() []domain.Photo {
	return g.photos
}

// Columns returns the column count
func (g Grid) Columns() int {
	return g.columns
}

// SetCellState sets the callback that decides each cell's style
func (g *Grid) SetCellState(fn CellStateFunc) {
	g.state = fn
}

// SetSkeleton shows n placeholder cells instead of photos (0 to disable)
func (g *Grid) SetSkeleton(n int) {
	g.skeleton = n
}

// SetSize updates the component dimensions
func (g *Grid) SetSize(width, height int) {
	g.width = width
	g.height = height
	g.recalcMaxRows()
	g.ensureVisible()
}

// SetTitle sets the line rendered above the cells
func (g *Grid) SetTitle(title string) {
	g.title = title
}

// SetFocused sets the focus state
func (g *Grid) SetFocused(focused bool) {
	g.focused = focused
}

// recalcMaxRows calculates how many cell rows fit, accounting for the
// title and filter bar
func (g *Grid) recalcMaxRows() {
	interior := g.height - BorderHeight - ScrollIndicatorLines - TitleLines
	if g.filterActive {
		interior--
	}
	g.maxRows = interior / CellHeight
	if g.maxRows < 1 {
		g.maxRows = 1
	}
}

// MaxRows returns the number of cell rows on screen
func (g Grid) MaxRows() int {
	return g.maxRows
}

// Cursor returns the cursor position in the visible order
func (g Grid) Cursor() int {
	return g.cursor
}

// SetCursor moves the cursor, clamped to the visible items
func (g *Grid) SetCursor(pos int) {
	max := g.itemCount() - 1
	if max < 0 {
		g.cursor = 0
		g.offsetRow = 0
		return
	}
	if pos < 0 {
		pos = 0
	}
	if pos > max {
		pos = max
	}
	g.cursor = pos
	g.ensureVisible()
}

// SetCursorByID moves the cursor to the photo, reporting whether it is visible
func (g *Grid) SetCursorByID(id int) bool {
	for i := 0; i < g.itemCount(); i++ {
		if g.photos[g.mapIndex(i)].ID == id {
			g.SetCursor(i)
			return true
		}
	}
	return false
}

// Move shifts the cursor by rows and columns within the grid
func (g *Grid) Move(dRow, dCol int) {
	count := g.itemCount()
	if count == 0 {
		return
	}
	pos := g.cursor + dRow*g.columns + dCol
	if dRow != 0 && (pos < 0 || pos >= count) {
		// Vertical moves past an edge stay in place
		return
	}
	g.SetCursor(pos)
}

// Page moves the cursor by one screen of rows
func (g *Grid) Page(dir int) {
	pos := g.cursor + dir*g.maxRows*g.columns
	g.SetCursor(pos)
}

// SelectedPhoto returns the photo under the cursor
func (g Grid) SelectedPhoto() (domain.Photo, bool) {
	count := g.itemCount()
	if count == 0 || g.cursor >= count {
		return domain.Photo{}, false
	}
	return g.photos[g.mapIndex(g.cursor)], true
}

// ensureVisible scrolls so the cursor row is on screen
func (g *Grid) ensureVisible() {
	row := g.cursor / g.columns
	if row < g.offsetRow {
		g.offsetRow = row
	}
	if row >= g.offsetRow+g.maxRows {
		g.offsetRow = row - g.maxRows + 1
	}
}

// rows returns the rows to draw: the layout rows, or the filter matches
// partitioned with the same column count
func (g Grid) rows() []grid.Row {
	if g.filteredIdx == nil {
		return g.layout.Rows
	}
	matches := make([]domain.Photo, len(g.filteredIdx))
	for i, idx := range g.filteredIdx {
		matches[i] = g.photos[idx]
	}
	return grid.Partition(matches, g.columns)
}

// viewport places the scroll window in layout pixels. One terminal cell row
// stands for RowHeight.
func (g Grid) viewport(rows []grid.Row) (l grid.Layout, scrollTop, height int) {
	l = g.layout
	l.Rows = rows
	if l.RowHeight <= 0 {
		l.RowHeight = grid.DefaultRowHeight
	}
	return l, g.offsetRow * l.RowHeight, g.maxRows * l.RowHeight
}

// window returns the rows [first, last) drawn on screen. A terminal has no
// overscan, so the layout buffers are not applied.
func (g Grid) window(rows []grid.Row) (first, last int) {
	l, top, height := g.viewport(rows)
	l.MinBufferPx, l.MaxBufferPx = 0, 0
	return l.VisibleRows(top, height)
}

// NearEnd reports whether the buffered window below the screen reaches the
// last row
func (g Grid) NearEnd() bool {
	rows := g.rows()
	l, top, height := g.viewport(rows)
	_, last := l.VisibleRows(top, height)
	return last >= len(rows)
}

// OnScreen returns the photos in the rows currently drawn
func (g Grid) OnScreen() []domain.Photo {
	rows := g.rows()
	first, last := g.window(rows)
	var out []domain.Photo
	for _, row := range rows[first:last] {
		out = append(out, row.Photos...)
	}
	return out
}

// ToggleFilter activates the filter input
func (g *Grid) ToggleFilter() {
	g.filterActive = true
	g.filterInput.Focus()
	g.recalcMaxRows()
}

// IsFiltering returns true if filter mode is active (showing filtered results)
func (g Grid) IsFiltering() bool {
	return g.filterActive
}

// IsFilterTyping returns true if filter is active AND input is focused (typing mode)
func (g Grid) IsFilterTyping() bool {
	return g.filterActive && g.filterInput.Focused()
}

// ClearFilter deactivates the filter and shows all items
func (g *Grid) ClearFilter() {
	current, ok := g.SelectedPhoto()
	g.filterActive = false
	g.filterQuery = ""
	g.filteredIdx = nil
	g.filterInput.SetValue("")
	g.filterInput.Blur()
	g.recalcMaxRows()
	if ok {
		g.SetCursorByID(current.ID)
	}
}

// SetFilter applies query as if it had been typed
func (g *Grid) SetFilter(query string) {
	if !g.filterActive {
		g.ToggleFilter()
	}
	g.filterInput.SetValue(query)
	g.applyFilter()
}

// applyFilter filters items based on the current query
func (g *Grid) applyFilter() {
	g.filterQuery = g.filterInput.Value()
	g.refilter()
	// Reset cursor to first match
	g.cursor = 0
	g.offsetRow = 0
}

func (g *Grid) refilter() {
	if g.filterQuery == "" {
		g.filteredIdx = nil
		return
	}
	matches := fuzzy.FindFrom(strings.ToLower(g.filterQuery), g.index)

	// Matches come ranked; the grid keeps the photo order
	g.filteredIdx = make([]int, len(matches))
	for i, match := range matches {
		g.filteredIdx[i] = match.Index
	}
	slices.Sort(g.filteredIdx)
}

// itemCount returns the number of items (accounting for filter)
func (g Grid) itemCount() int {
	if g.filteredIdx != nil {
		return len(g.filteredIdx)
	}
	return len(g.photos)
}

// VisibleCount returns the number of photos after filtering
func (g Grid) VisibleCount() int {
	return g.itemCount()
}

// mapIndex maps a cursor position to the actual index in the data
func (g Grid) mapIndex(i int) int {
	if g.filteredIdx != nil && i < len(g.filteredIdx) {
		return g.filteredIdx[i]
	}
	return i
}

// Update routes key input to the filter when it is being typed
func (g Grid) Update(msg tea.Msg) (Grid, tea.Cmd) {
	if !g.focused || !g.IsFilterTyping() {
		return g, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			g.ClearFilter()
			return g, nil
		case "enter":
			// Accept filter, blur input to allow navigation
			g.filterInput.Blur()
			return g, nil
		case "backspace":
			if g.filterInput.Value() == "" {
				g.ClearFilter()
				return g, nil
			}
		}
	}

	// Route to textinput
	var cmd tea.Cmd
	g.filterInput, cmd = g.filterInput.Update(msg)
	if g.filterInput.Value() != g.filterQuery {
		g.applyFilter()
	}
	return g, cmd
}

// View renders the component
func (g Grid) View() string {
	style := styles.InactiveBorder
	if g.focused {
		style = styles.ActiveBorder
	}

	frameW, frameH := style.GetFrameSize()
	return style.
		Width(g.width - frameW).
		Height(g.height - frameH).
		Render(g.renderCells())
}

func (g Grid) cellWidth() int {
	inner := g.width - BorderWidth
	w := inner/g.columns - BorderWidth
	if w < MinCellWidth {
		w = MinCellWidth
	}
	return w
}

func (g Grid) renderCells() string {
	titleLine := " "
	if g.title != "" {
		titleLine = styles.AccentStyle.Render(styles.Truncate(g.title, g.width-BorderWidth))
	}

	if g.skeleton > 0 {
		return titleLine + "\n \n" + g.renderSkeleton()
	}

	count := g.itemCount()
	if count == 0 {
		emptyMsg := styles.DimStyle.Render("No photos")
		if g.filterActive && g.filterQuery != "" {
			emptyMsg = styles.DimStyle.Render("No matches")
		}
		content := titleLine + "\n \n" + emptyMsg
		if g.filterActive {
			content += "\n" + g.renderFilterBar()
		}
		return content
	}

	rows := g.rows()
	first, last := g.window(rows)

	var lines []string
	for _, row := range rows[first:last] {
		cells := make([]string, len(row.Photos))
		for c, p := range row.Photos {
			cells[c] = g.renderCell(p, row.StartIndex+c == g.cursor)
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	// ALWAYS reserve space for header and footer to prevent layout shifts
	header := " "
	if first > 0 {
		header = styles.DimStyle.Render("↑ more")
	}
	footer := " "
	if last < len(rows) {
		footer = styles.DimStyle.Render("↓ more")
	}

	content := titleLine + "\n" + header + "\n" + strings.Join(lines, "\n") + "\n" + footer
	if g.filterActive {
		content += "\n" + g.renderFilterBar()
	}
	return content
}

func (g Grid) renderCell(p domain.Photo, focused bool) string {
	st := CellState{Loaded: true}
	if g.state != nil {
		st = g.state(p)
	}

	style := styles.CellStyle
	mark := styles.UnselectedChar
	switch {
	case st.DeleteMarked:
		style, mark = styles.CellDeleteStyle, styles.DeleteChar
	case st.Selected:
		style, mark = styles.CellSelectedStyle, styles.SelectedChar
	case st.Disabled:
		style, mark = styles.CellDisabledStyle, styles.DisabledChar
	}
	if focused && g.focused {
		style = style.Border(styles.CursorBorder)
	}

	w := g.cellWidth()
	inner := w - 2 // horizontal padding
	name := styles.Truncate(p.Filename, inner-2)
	sub := styles.Truncate(fmt.Sprintf("#%d", p.ID), inner)
	if !st.Loaded {
		sub = strings.Repeat(styles.PlaceholderChar, max(inner, 1))
	}
	return style.Width(w).Render(mark + " " + name + "\n" + sub)
}

func (g Grid) renderSkeleton() string {
	w := g.cellWidth()
	cell := styles.CellSkeletonStyle.Width(w).Render("\n")
	var lines []string
	for i := 0; i < g.skeleton; i += g.columns {
		n := g.columns
		if g.skeleton-i < n {
			n = g.skeleton - i
		}
		cells := make([]string, n)
		for j := range cells {
			cells[j] = cell
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return strings.Join(lines, "\n")
}

// renderFilterBar renders the filter input bar
func (g Grid) renderFilterBar() string {
	input := g.filterInput.View()

	// Show match count
	countStr := ""
	if g.filterQuery != "" {
		countStr = styles.DimStyle.Render(fmt.Sprintf(" [%d/%d]", g.itemCount(), len(g.photos)))
	}
	return input + countStr
}
