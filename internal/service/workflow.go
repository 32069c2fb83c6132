package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/proofsheet/tablo/internal/domain"
	"github.com/proofsheet/tablo/internal/security"
)

// WorkflowService is the guarded facade over the studio repository.
// Every call validates the gallery against the session before touching the
// network, and save calls sanitize their photo ids.
type WorkflowService struct {
	repo   domain.WorkflowRepository
	guard  *security.Guard
	logger *slog.Logger
}

// NewWorkflowService creates a workflow facade
func NewWorkflowService(repo domain.WorkflowRepository, guard *security.Guard, logger *slog.Logger) *WorkflowService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkflowService{repo: repo, guard: guard, logger: logger}
}

// LoadStepData loads the current step, or step when non-empty
func (s *WorkflowService) LoadStepData(ctx context.Context, galleryID int, step domain.Step) (*domain.StepData, error) {
	if err := s.guard.ValidateGalleryAccess(galleryID); err != nil {
		return nil, err
	}
	data, err := s.repo.LoadStepData(ctx, galleryID, step)
	if err != nil {
		s.logger.Error("failed to load step data", "error", err, "galleryId", galleryID, "step", step)
		return nil, err
	}
	s.logger.Debug("loaded step data", "galleryId", galleryID, "step", data.CurrentStep, "photos", len(data.VisiblePhotos))
	return data, nil
}

// LoadStepDataReadonly loads a finalized workflow's step for viewing
func (s *WorkflowService) LoadStepDataReadonly(ctx context.Context, galleryID int, step domain.Step) (*domain.StepData, error) {
	if err := s.guard.ValidateGalleryAccess(galleryID); err != nil {
		return nil, err
	}
	if !step.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStep, step)
	}
	data, err := s.repo.LoadStepDataReadonly(ctx, galleryID, step)
	if err != nil {
		s.logger.Error("failed to load readonly step", "error", err, "galleryId", galleryID, "step", step)
		return nil, err
	}
	return data, nil
}

// SaveClaiming replaces the claimed set
func (s *WorkflowService) SaveClaiming(ctx context.Context, galleryID int, photoIDs []int) (*domain.SaveResult, error) {
	ids, err := s.checkSave(galleryID, photoIDs)
	if err != nil {
		return nil, err
	}
	return s.repo.SaveClaiming(ctx, galleryID, ids)
}

// SaveRetouch replaces the retouch set
func (s *WorkflowService) SaveRetouch(ctx context.Context, galleryID int, photoIDs []int) (*domain.SaveResult, error) {
	ids, err := s.checkSave(galleryID, photoIDs)
	if err != nil {
		return nil, err
	}
	return s.repo.SaveRetouch(ctx, galleryID, ids)
}

// SaveTablo sets the tablo photo
func (s *WorkflowService) SaveTablo(ctx context.Context, galleryID int, photoID int) (*domain.SaveResult, error) {
	if err := s.guard.ValidateGalleryAccess(galleryID); err != nil {
		return nil, err
	}
	if !security.IsValidPhotoID(photoID) {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidPhotoIDs, photoID)
	}
	return s.repo.SaveTablo(ctx, galleryID, photoID)
}

// ClearTablo removes the tablo photo
func (s *WorkflowService) ClearTablo(ctx context.Context, galleryID int) (*domain.SaveResult, error) {
	if err := s.guard.ValidateGalleryAccess(galleryID); err != nil {
		return nil, err
	}
	return s.repo.ClearTablo(ctx, galleryID)
}

// NextStep asks the server to advance
func (s *WorkflowService) NextStep(ctx context.Context, galleryID int) (*domain.StepData, error) {
	if err := s.guard.ValidateGalleryAccess(galleryID); err != nil {
		return nil, err
	}
	return s.repo.NextStep(ctx, galleryID)
}

// PreviousStep asks the server to go back one step
func (s *WorkflowService) PreviousStep(ctx context.Context, galleryID int) (*domain.StepData, error) {
	if err := s.guard.ValidateGalleryAccess(galleryID); err != nil {
		return nil, err
	}
	return s.repo.PreviousStep(ctx, galleryID)
}

// MoveToStep asks the server to jump back to target
func (s *WorkflowService) MoveToStep(ctx context.Context, galleryID int, target domain.Step) (*domain.StepData, error) {
	if err := s.guard.ValidateGalleryAccess(galleryID); err != nil {
		return nil, err
	}
	if !target.Valid() || target == domain.StepCompleted {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStep, target)
	}
	return s.repo.MoveToStep(ctx, galleryID, target)
}

// Finalize completes the workflow and returns the fresh snapshot,
// reloading it when the finalize response carries none.
func (s *WorkflowService) Finalize(ctx context.Context, galleryID int) (*domain.StepData, error) {
	if err := s.guard.ValidateGalleryAccess(galleryID); err != nil {
		return nil, err
	}
	data, err := s.repo.Finalize(ctx, galleryID)
	if err != nil {
		s.logger.Error("failed to finalize", "error", err, "galleryId", galleryID)
		return nil, err
	}
	if data != nil {
		return data, nil
	}
	return s.LoadStepData(ctx, galleryID, "")
}

// RequestModification reopens a finalized workflow. The caller reloads
// the step data.
func (s *WorkflowService) RequestModification(ctx context.Context, galleryID int) (*domain.ModificationResult, error) {
	if err := s.guard.ValidateGalleryAccess(galleryID); err != nil {
		return nil, err
	}
	res, err := s.repo.RequestModification(ctx, galleryID)
	if err != nil {
		s.logger.Error("failed to request modification", "error", err, "galleryId", galleryID)
		return nil, err
	}
	return res, nil
}

func (s *WorkflowService) checkSave(galleryID int, photoIDs []int) ([]int, error) {
	if err := s.guard.ValidateGalleryAccess(galleryID); err != nil {
		return nil, err
	}
	ids := s.guard.SanitizePhotoIDs(photoIDs)
	if len(ids) == 0 && len(photoIDs) > 0 {
		return nil, domain.ErrInvalidPhotoIDs
	}
	return ids, nil
}
