package components_test

import (
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/proofsheet/tablo/internal/domain"
	"github.com/proofsheet/tablo/internal/grid"
	"github.com/proofsheet/tablo/internal/tui/components"
)

func photos(n int) []domain.Photo {
	out := make([]domain.Photo, n)
	for i := range out {
		out[i] = domain.Photo{ID: i + 1, Filename: fmt.Sprintf("img_%03d.jpg", i+1)}
	}
	return out
}

// layoutOf lays ps out the way the engine does, with 100px rows
func layoutOf(ps []domain.Photo, cols int) grid.Layout {
	return grid.Layout{
		Columns:     cols,
		RowHeight:   100,
		MinBufferPx: 200,
		MaxBufferPx: 400,
		Rows:        grid.Partition(ps, cols),
	}
}

// newGrid has room for 8 cell rows
func newGrid(n, cols int) components.Grid {
	g := components.NewGrid()
	g.SetSize(80, 40)
	g.SetLayout(layoutOf(photos(n), cols))
	return g
}

func TestGridMove(t *testing.T) {
	g := newGrid(10, 3)

	g.Move(1, 0)
	if g.Cursor() != 3 {
		t.Fatalf("down: cursor = %d", g.Cursor())
	}
	g.Move(0, 2)
	if g.Cursor() != 5 {
		t.Fatalf("right: cursor = %d", g.Cursor())
	}
	g.Move(2, 0)
	if g.Cursor() != 5 {
		t.Fatalf("down past the last row moved to %d", g.Cursor())
	}
	g.Move(1, 0)
	if g.Cursor() != 8 {
		t.Fatalf("down: cursor = %d", g.Cursor())
	}
	g.Move(0, 5)
	if g.Cursor() != 9 {
		t.Fatalf("right clamps to last photo, got %d", g.Cursor())
	}
	g.Move(-1, 0)
	if p, _ := g.SelectedPhoto(); p.ID != 7 {
		t.Fatalf("up: photo = %d", p.ID)
	}
}

func TestGridKeepsCursorOnPhotoAcrossUpdates(t *testing.T) {
	g := newGrid(10, 3)
	g.SetCursor(6)

	// A reload that drops the first two photos keeps the cursor on photo 7
	g.SetLayout(layoutOf(photos(10)[2:], 3))
	if p, _ := g.SelectedPhoto(); p.ID != 7 {
		t.Fatalf("cursor moved to photo %d", p.ID)
	}

	// A photo that disappears clamps the cursor
	g.SetCursor(7)
	g.SetLayout(layoutOf(photos(4), 3))
	if g.Cursor() != 3 {
		t.Fatalf("cursor = %d, want clamp to 3", g.Cursor())
	}
}

func TestGridFilter(t *testing.T) {
	g := newGrid(12, 4)
	g.SetFilter("img_01")

	// Subsequence match: img_001, img_010, img_011, img_012
	if g.VisibleCount() != 4 {
		t.Fatalf("filtered count = %d", g.VisibleCount())
	}
	p, _ := g.SelectedPhoto()
	if p.ID != 1 {
		t.Fatalf("first match = %d", p.ID)
	}
	g.Move(0, 1)
	if p, _ := g.SelectedPhoto(); p.ID != 10 {
		t.Fatalf("matches out of photo order: %d", p.ID)
	}
	if !strings.Contains(g.View(), "[4/12]") {
		t.Fatal("filter bar missing match count")
	}

	g.ClearFilter()
	if g.VisibleCount() != 12 {
		t.Fatalf("count after clear = %d", g.VisibleCount())
	}
	if p, _ := g.SelectedPhoto(); p.ID != 10 {
		t.Fatalf("clear lost the cursor photo: %d", p.ID)
	}
}

func TestGridFilterTyping(t *testing.T) {
	g := newGrid(12, 4)
	g.ToggleFilter()
	if !g.IsFilterTyping() {
		t.Fatal("filter not focused")
	}

	for _, r := range "012" {
		g, _ = g.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	if g.VisibleCount() != 1 {
		t.Fatalf("count = %d", g.VisibleCount())
	}

	g, _ = g.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if g.IsFilterTyping() || !g.IsFiltering() {
		t.Fatal("enter should keep results and leave typing mode")
	}
}

func TestGridViewMarksCells(t *testing.T) {
	g := newGrid(3, 3)
	g.SetCellState(func(p domain.Photo) components.CellState {
		return components.CellState{Selected: p.ID == 2, Disabled: p.ID == 3}
	})
	out := g.View()
	for _, want := range []string{"img_001", "✓ img_002", "· img_003"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
}

func TestGridSkeleton(t *testing.T) {
	g := newGrid(0, 3)
	g.SetSkeleton(6)
	if strings.Contains(g.View(), "No photos") {
		t.Fatal("skeleton shows the empty state")
	}
	g.SetSkeleton(0)
	if !strings.Contains(g.View(), "No photos") {
		t.Fatal("empty state missing")
	}
}

func TestGridWindowFollowsLayoutRows(t *testing.T) {
	g := newGrid(30, 3)
	if g.MaxRows() != 8 {
		t.Fatalf("max rows = %d", g.MaxRows())
	}
	out := g.View()
	if !strings.Contains(out, "img_024") || strings.Contains(out, "img_025") || !strings.Contains(out, "↓ more") {
		t.Fatalf("first window wrong:\n%s", out)
	}
	if n := len(g.OnScreen()); n != 24 {
		t.Fatalf("on screen = %d", n)
	}

	g.SetCursor(29)
	out = g.View()
	if !strings.Contains(out, "↑ more") || !strings.Contains(out, "img_007") || strings.Contains(out, "img_006") {
		t.Fatalf("scrolled window wrong:\n%s", out)
	}
	if got := g.OnScreen(); got[0].ID != 7 || got[len(got)-1].ID != 30 {
		t.Fatalf("on screen = %d..%d", got[0].ID, got[len(got)-1].ID)
	}
}

func TestGridNearEndUsesBuffer(t *testing.T) {
	g := newGrid(60, 3) // 20 rows

	tests := []struct {
		cursor int
		want   bool
	}{
		{0, false},
		{33, false}, // screen rows 4..11, buffer to 16
		{45, true},  // screen rows 8..15, buffer reaches row 19
	}
	for _, tt := range tests {
		g.SetCursor(tt.cursor)
		if got := g.NearEnd(); got != tt.want {
			t.Fatalf("cursor %d: NearEnd = %v, want %v", tt.cursor, got, tt.want)
		}
	}
	if strings.Contains(g.View(), "img_060") {
		t.Fatal("last row drawn before it is on screen")
	}
}

func TestGridPlaceholderUntilLoaded(t *testing.T) {
	g := newGrid(3, 3)
	loaded := map[int]bool{1: true, 2: true}
	g.SetCellState(func(p domain.Photo) components.CellState {
		return components.CellState{Loaded: loaded[p.ID]}
	})
	if out := g.View(); !strings.Contains(out, "░") || !strings.Contains(out, "#1") || strings.Contains(out, "#3") {
		t.Fatalf("placeholder missing:\n%s", out)
	}
	loaded[3] = true
	if out := g.View(); strings.Contains(out, "░") || !strings.Contains(out, "#3") {
		t.Fatalf("placeholder kept after load:\n%s", out)
	}
}
