package domain

// ToastLevel is the severity of a user notification
type ToastLevel string

const (
	ToastSuccess ToastLevel = "success"
	ToastError   ToastLevel = "error"
	ToastInfo    ToastLevel = "info"
	ToastWarning ToastLevel = "warning"
)

// Toast is a single user notification
type Toast struct {
	Level   ToastLevel
	Title   string
	Message string
	// DurationMs of 0 lets the sink pick its default
	DurationMs int
}

// Notifier receives user-facing notifications
type Notifier interface {
	Notify(t Toast)
}

// NoOpNotifier discards notifications (for testing/batch operations).
type NoOpNotifier struct{}

func (NoOpNotifier) Notify(Toast) {}

// SessionContext exposes the project and gallery the session is authorized for.
// A zero value means no gallery is bound.
type SessionContext interface {
	ProjectID() int
	GalleryID() int
}

// StaticSession is a SessionContext with fixed ids
type StaticSession struct {
	Project int
	Gallery int
}

func (s StaticSession) ProjectID() int { return s.Project }
func (s StaticSession) GalleryID() int { return s.Gallery }
