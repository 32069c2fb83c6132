package domain

import "fmt"

// Step is one stage of the selection workflow
type Step string

const (
	StepClaiming  Step = "claiming"
	StepRetouch   Step = "retouch"
	StepTablo     Step = "tablo"
	StepCompleted Step = "completed"
)

// Steps lists the workflow stages in their total order
var Steps = []Step{StepClaiming, StepRetouch, StepTablo, StepCompleted}

// StepInfo holds display strings for a step
type StepInfo struct {
	Step              Step
	Label             string
	Description       string
	InfoDialogTitle   string
	InfoDialogMessage string
	EmptyTitle        string
	EmptyDescription  string
}

var stepInfos = map[Step]StepInfo{
	StepClaiming: {
		Step:              StepClaiming,
		Label:             "My photos",
		Description:       "Mark every photo you appear in.",
		InfoDialogTitle:   "Choose your photos",
		InfoDialogMessage: "Mark every photo you appear in. Later you will pick retouch and tablo photos from these.",
		EmptyTitle:        "No photos to show",
	},
	StepRetouch: {
		Step:              StepRetouch,
		Label:             "Retouch",
		Description:       "Pick the photos to retouch.",
		InfoDialogTitle:   "Photos to retouch",
		InfoDialogMessage: "Pick the photos you want retouched. The limit depends on your session settings.",
		EmptyTitle:        "You have no selected photos",
		EmptyDescription:  "Go back to the previous step and mark the photos you appear in.",
	},
	StepTablo: {
		Step:              StepTablo,
		Label:             "Tablo photo",
		Description:       "Pick one photo for the tablo.",
		InfoDialogTitle:   "Choose your tablo photo",
		InfoDialogMessage: "Pick exactly one photo for the tablo. This will be your final portrait.",
		EmptyTitle:        "You have no photos marked for retouch",
		EmptyDescription:  "Go back to the previous step and pick photos to retouch.",
	},
	StepCompleted: {
		Step:              StepCompleted,
		Label:             "Done",
		Description:       "Your selection is finalized.",
		InfoDialogTitle:   "Finalized",
		InfoDialogMessage: "Your photo selection has been finalized. Thank you!",
		EmptyTitle:        "No photos to show",
	},
}

// Info returns the display strings for the step
func (s Step) Info() StepInfo {
	if info, ok := stepInfos[s]; ok {
		return info
	}
	return StepInfo{Step: s, Label: string(s), EmptyTitle: "No photos to show"}
}

// Index returns the 0-based position of the step, or -1 if unknown
func (s Step) Index() int {
	for i, st := range Steps {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known step
func (s Step) Valid() bool {
	return s.Index() >= 0
}

// Next returns the following step and false when s is the last one
func (s Step) Next() (Step, bool) {
	i := s.Index()
	if i < 0 || i >= len(Steps)-1 {
		return "", false
	}
	return Steps[i+1], true
}

// Previous returns the preceding step and false when s is the first one
func (s Step) Previous() (Step, bool) {
	i := s.Index()
	if i <= 0 {
		return "", false
	}
	return Steps[i-1], true
}

// ParseStep converts a wire value into a Step
func ParseStep(v string) (Step, error) {
	s := Step(v)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStep, v)
	}
	return s, nil
}

// Validation messages shown inline under the grid
const (
	MsgClaimingEmpty = "Select at least 1 photo."
	MsgRetouchEmpty  = "Select at least 1 photo to retouch."
	MsgTabloEmpty    = "Select exactly 1 photo."
	MsgTabloTooMany  = "You can select only 1 tablo photo."
)

// MsgRetouchTooMany is the retouch cap violation message
func MsgRetouchTooMany(max int) string {
	return fmt.Sprintf("You can select at most %d photos to retouch.", max)
}
