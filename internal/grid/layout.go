// Package grid turns a flat photo list and a container width into a
// row-major layout that can be rendered through a virtual viewport.
package grid

import (
	"math"
	"time"

	"github.com/proofsheet/tablo/internal/domain"
)

// Breakpoint maps a minimum container width to a column count
type Breakpoint struct {
	MinWidth int
	Columns  int
}

// DefaultBreakpoints are checked widest first
var DefaultBreakpoints = []Breakpoint{
	{MinWidth: 1280, Columns: 6},
	{MinWidth: 1024, Columns: 5},
	{MinWidth: 640, Columns: 4},
	{MinWidth: 480, Columns: 3},
	{MinWidth: 0, Columns: 2},
}

// Layout defaults
const (
	DefaultGap            = 12
	DefaultRowHeight      = 150
	DefaultResizeDebounce = 150 * time.Millisecond
	DefaultColumns        = 3
)

// Row is a contiguous slice of the photo list.
// StartIndex is the row's identity key; it never depends on the row contents.
type Row struct {
	Photos     []domain.Photo
	StartIndex int
}

// Layout is the derived grid geometry for one width and photo list
type Layout struct {
	Columns     int
	RowHeight   int
	MinBufferPx int
	MaxBufferPx int
	Rows        []Row
}

// ColumnsFor returns the column count of the first breakpoint (widest first)
// whose MinWidth is <= width. With no match the narrowest breakpoint wins.
func ColumnsFor(width int, breakpoints []Breakpoint) int {
	if len(breakpoints) == 0 {
		return DefaultColumns
	}
	narrowest := breakpoints[0]
	for _, bp := range breakpoints {
		if width >= bp.MinWidth {
			return bp.Columns
		}
		if bp.MinWidth < narrowest.MinWidth {
			narrowest = bp
		}
	}
	return narrowest.Columns
}

// RowHeight is the square item width plus one gap, rounded up.
// A zero width (not measured yet) yields DefaultRowHeight.
func RowHeight(width, columns, gap int) int {
	if width <= 0 || columns <= 0 {
		return DefaultRowHeight
	}
	totalGap := gap * (columns + 1)
	itemWidth := float64(width-totalGap) / float64(columns)
	return int(math.Ceil(itemWidth + float64(gap)))
}

// Partition slices photos into rows of columns items
func Partition(photos []domain.Photo, columns int) []Row {
	if columns <= 0 {
		columns = 1
	}
	rows := make([]Row, 0, (len(photos)+columns-1)/columns)
	for i := 0; i < len(photos); i += columns {
		end := min(i+columns, len(photos))
		rows = append(rows, Row{Photos: photos[i:end], StartIndex: i})
	}
	return rows
}

// Compute builds the full layout for photos at width
func Compute(photos []domain.Photo, width, gap int, breakpoints []Breakpoint) Layout {
	cols := ColumnsFor(width, breakpoints)
	return computeWithColumns(photos, width, cols, gap)
}

func computeWithColumns(photos []domain.Photo, width, cols, gap int) Layout {
	rh := RowHeight(width, cols, gap)
	return Layout{
		Columns:     cols,
		RowHeight:   rh,
		MinBufferPx: rh * 2,
		MaxBufferPx: rh * 4,
		Rows:        Partition(photos, cols),
	}
}

// SkeletonCount is the number of placeholder cells shown while loading
func SkeletonCount(columns int) int {
	return columns * 2
}

// VisibleRows returns the half-open row range [first, last) to render for a
// viewport at scrollTop with height viewport, widened by the layout buffers.
func (l Layout) VisibleRows(scrollTop, viewport int) (first, last int) {
	if len(l.Rows) == 0 || l.RowHeight <= 0 {
		return 0, 0
	}
	top := max(0, scrollTop-l.MinBufferPx)
	bottom := scrollTop + viewport + l.MaxBufferPx
	first = min(top/l.RowHeight, len(l.Rows))
	last = min((bottom+l.RowHeight-1)/l.RowHeight, len(l.Rows))
	return first, last
}
