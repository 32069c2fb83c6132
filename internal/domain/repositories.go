package domain

import (
	"context"
)

// WorkflowRepository is the studio backend surface used by the selection workflow.
// All writes must be idempotent for repeated identical payloads.
type WorkflowRepository interface {
	// LoadStepData returns the snapshot for the current step, or for step when non-empty
	LoadStepData(ctx context.Context, galleryID int, step Step) (*StepData, error)

	// LoadStepDataReadonly returns a finalized workflow's data for step without mutating progress
	LoadStepDataReadonly(ctx context.Context, galleryID int, step Step) (*StepData, error)

	// SaveClaiming replaces the claimed photo set
	SaveClaiming(ctx context.Context, galleryID int, photoIDs []int) (*SaveResult, error)

	// SaveRetouch replaces the retouch photo set
	SaveRetouch(ctx context.Context, galleryID int, photoIDs []int) (*SaveResult, error)

	// SaveTablo sets the single tablo photo
	SaveTablo(ctx context.Context, galleryID int, photoID int) (*SaveResult, error)

	// ClearTablo removes the tablo photo
	ClearTablo(ctx context.Context, galleryID int) (*SaveResult, error)

	// NextStep advances the workflow server-side
	NextStep(ctx context.Context, galleryID int) (*StepData, error)

	// PreviousStep moves the workflow one step back server-side
	PreviousStep(ctx context.Context, galleryID int) (*StepData, error)

	// MoveToStep jumps backwards to target
	MoveToStep(ctx context.Context, galleryID int, target Step) (*StepData, error)

	// Finalize completes the workflow. The returned snapshot is nil when the
	// backend does not echo one and the caller has to reload.
	Finalize(ctx context.Context, galleryID int) (*StepData, error)

	// RequestModification reopens a finalized workflow
	RequestModification(ctx context.Context, galleryID int) (*ModificationResult, error)
}
