package domain

// StepInfoStore remembers, durably and per project, which step info
// dialogs have already been shown.
type StepInfoStore interface {
	IsStepInfoShown(projectID int, step Step) bool
	SetStepInfoShown(projectID int, step Step) error
}

// SnapshotCache keeps the last server-confirmed StepData per gallery.
// It is only used for display while the server is unreachable.
type SnapshotCache interface {
	GetSnapshot(galleryID int) (*StepData, bool)
	SaveSnapshot(galleryID int, data *StepData) error
}
