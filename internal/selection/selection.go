// Package selection holds the pure selection rules shared by the grid and the
// workflow state: toggling, select-all, shift-click ranges and per-step
// count validation. Nothing here has side effects.
package selection

import "github.com/proofsheet/tablo/internal/domain"

// Set is an O(1) membership view over a selection
type Set map[int]struct{}

// NewSet builds a Set from ids
func NewSet(ids []int) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is a member
func (s Set) Has(id int) bool {
	_, ok := s[id]
	return ok
}

// ToggleResult is the outcome of Toggle
type ToggleResult struct {
	Selection []int
	// Blocked is true when the add was refused because the cap is reached
	Blocked bool
}

// Toggle flips id in selection. Removal is always allowed. In single-select
// mode an add replaces the whole selection; in multi-select mode an add is
// refused once limit is reached.
func Toggle(sel []int, id int, allowMultiple bool, limit *int) ToggleResult {
	for i, existing := range sel {
		if existing == id {
			out := make([]int, 0, len(sel)-1)
			out = append(out, sel[:i]...)
			out = append(out, sel[i+1:]...)
			return ToggleResult{Selection: out}
		}
	}

	if !allowMultiple {
		return ToggleResult{Selection: []int{id}}
	}

	if IsMaxReached(len(sel), limit) {
		return ToggleResult{Selection: clone(sel), Blocked: true}
	}

	out := make([]int, 0, len(sel)+1)
	out = append(out, sel...)
	out = append(out, id)
	return ToggleResult{Selection: out}
}

// SelectAll returns all, truncated to the first limit ids when capped
func SelectAll(all []int, limit *int) []int {
	if limit != nil && len(all) > *limit {
		n := *limit
		if n < 0 {
			n = 0
		}
		return clone(all[:n])
	}
	return clone(all)
}

// SelectRange unions the contiguous span between anchor and target (in the
// visual order of allInOrder) with sel. The existing selection is kept as is;
// new span members are appended in visual order until limit is reached and
// the rest are dropped. Unknown anchor or target leaves sel unchanged.
func SelectRange(allInOrder, sel []int, anchor, target int, limit *int) []int {
	ai, ti := -1, -1
	for i, id := range allInOrder {
		if id == anchor {
			ai = i
		}
		if id == target {
			ti = i
		}
	}
	if ai < 0 || ti < 0 {
		return clone(sel)
	}

	lo, hi := ai, ti
	if lo > hi {
		lo, hi = hi, lo
	}

	existing := NewSet(sel)
	out := clone(sel)
	for _, id := range allInOrder[lo : hi+1] {
		if existing.Has(id) {
			continue
		}
		if IsMaxReached(len(out), limit) {
			break
		}
		existing[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// IsMaxReached reports whether count has hit a non-nil limit
func IsMaxReached(count int, limit *int) bool {
	return limit != nil && count >= *limit
}

// Result is the outcome of Validate; Error is empty when Valid
type Result struct {
	Valid bool
	Error string
}

// Validate applies the step's count rules
func Validate(step domain.Step, count int, limit *int) Result {
	switch step {
	case domain.StepClaiming:
		if count < 1 {
			return Result{Error: domain.MsgClaimingEmpty}
		}
	case domain.StepRetouch:
		if count < 1 {
			return Result{Error: domain.MsgRetouchEmpty}
		}
		if limit != nil && count > *limit {
			return Result{Error: domain.MsgRetouchTooMany(*limit)}
		}
	case domain.StepTablo:
		if count < 1 {
			return Result{Error: domain.MsgTabloEmpty}
		}
		if count > 1 {
			return Result{Error: domain.MsgTabloTooMany}
		}
	}
	return Result{Valid: true}
}

func clone(ids []int) []int {
	out := make([]int, len(ids))
	copy(out, ids)
	return out
}
