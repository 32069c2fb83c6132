package workflow

// ConfirmStatus is the submit progress of a confirm dialog
type ConfirmStatus int

const (
	ConfirmIdle ConfirmStatus = iota
	ConfirmSubmitting
	ConfirmSuccess
	ConfirmError
)

func (c ConfirmStatus) String() string {
	switch c {
	case ConfirmSubmitting:
		return "submitting"
	case ConfirmSuccess:
		return "success"
	case ConfirmError:
		return "error"
	}
	return "idle"
}

// ConfirmDialog is the sub-state guarding an irreversible request
type ConfirmDialog struct {
	Open   bool
	Status ConfirmStatus
	Error  string
}

// ConfirmKind selects which confirm dialog an operation targets
type ConfirmKind int

const (
	// FinalizeConfirm guards finalizing the tablo selection
	FinalizeConfirm ConfirmKind = iota
	// ModifyConfirm guards reopening a finalized selection
	ModifyConfirm
)

func dialog(v *Snapshot, kind ConfirmKind) *ConfirmDialog {
	if kind == ModifyConfirm {
		return &v.Modify
	}
	return &v.Finalize
}

// OpenConfirm shows the dialog in idle state
func (s *State) OpenConfirm(kind ConfirmKind) {
	s.update(func(v *Snapshot) {
		*dialog(v, kind) = ConfirmDialog{Open: true}
	})
}

// CloseConfirm hides the dialog unless a submit is running
func (s *State) CloseConfirm(kind ConfirmKind) {
	s.update(func(v *Snapshot) {
		d := dialog(v, kind)
		if d.Status == ConfirmSubmitting {
			return
		}
		*d = ConfirmDialog{}
	})
}

// StartSubmit moves the dialog to submitting. It reports false when a
// submit is already running.
func (s *State) StartSubmit(kind ConfirmKind) bool {
	ok := false
	s.update(func(v *Snapshot) {
		d := dialog(v, kind)
		if d.Status == ConfirmSubmitting {
			return
		}
		d.Open = true
		d.Status = ConfirmSubmitting
		d.Error = ""
		ok = true
	})
	return ok
}

// SubmitSucceeded closes the dialog in success state
func (s *State) SubmitSucceeded(kind ConfirmKind) {
	s.update(func(v *Snapshot) {
		*dialog(v, kind) = ConfirmDialog{Status: ConfirmSuccess}
	})
}

// SubmitFailed keeps the dialog open in error state with msg
func (s *State) SubmitFailed(kind ConfirmKind, msg string) {
	s.update(func(v *Snapshot) {
		*dialog(v, kind) = ConfirmDialog{Open: true, Status: ConfirmError, Error: msg}
	})
}
