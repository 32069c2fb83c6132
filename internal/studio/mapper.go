package studio

import (
	"fmt"

	"github.com/proofsheet/tablo/internal/domain"
)

// MapPhoto converts a backend photo. The first media rendition wins over
// the legacy url; the thumbnail falls back to the full url.
func MapPhoto(p APIPhoto) domain.Photo {
	var original, preview string
	if len(p.Media) > 0 {
		original = p.Media[0].OriginalURL
		preview = p.Media[0].PreviewURL
	}
	full := original
	if full == "" {
		full = p.URL
	}
	thumb := preview
	if thumb == "" {
		thumb = p.ThumbnailURL
	}
	if thumb == "" {
		thumb = full
	}
	return domain.Photo{
		ID:           p.ID,
		FullURL:      full,
		ThumbnailURL: thumb,
		Filename:     p.Filename,
	}
}

// MapPhotos converts a list of backend photos
func MapPhotos(photos []APIPhoto) []domain.Photo {
	out := make([]domain.Photo, 0, len(photos))
	for _, p := range photos {
		out = append(out, MapPhoto(p))
	}
	return out
}

// MapStepData converts the unified step-data payload
func MapStepData(r StepDataResponse) (*domain.StepData, error) {
	step, err := domain.ParseStep(r.CurrentStep)
	if err != nil {
		return nil, err
	}
	selected := r.SelectedPhotos
	if selected == nil {
		selected = []int{}
	}
	data := &domain.StepData{
		CurrentStep:    step,
		VisiblePhotos:  MapPhotos(r.VisiblePhotos),
		SelectedPhotos: selected,
		StepMetadata: domain.StepMetadata{
			AllowMultiple: r.StepMetadata.AllowMultiple,
			MaxSelection:  r.StepMetadata.MaxSelection,
			Description:   r.StepMetadata.Description,
		},
		AlbumID: r.AlbumID,
		WorkSession: domain.WorkSession{
			ID:               r.WorkSession.ID,
			MaxRetouchPhotos: r.WorkSession.MaxRetouchPhotos,
		},
	}
	if r.Progress != nil {
		progress, err := mapProgress(*r.Progress)
		if err != nil {
			return nil, err
		}
		data.Progress = progress
	}
	if r.ReviewGroups != nil {
		groups := &domain.ReviewGroups{
			Claiming: MapPhotos(r.ReviewGroups.Claiming),
			Retouch:  MapPhotos(r.ReviewGroups.Retouch),
		}
		if r.ReviewGroups.Tablo != nil {
			tablo := MapPhoto(*r.ReviewGroups.Tablo)
			groups.Tablo = &tablo
		}
		data.ReviewGroups = groups
	}
	if m := r.ModificationInfo; m != nil {
		data.ModificationInfo = &domain.ModificationInfo{
			FreeUntil: m.FreeUntil,
			IsFree:    m.IsFree,
			Price:     m.Price,
		}
	}
	return data, nil
}

func mapProgress(p ProgressDTO) (*domain.WorkflowProgress, error) {
	progress := &domain.WorkflowProgress{
		ID:                 p.ID,
		UserID:             p.UserID,
		WorkSessionID:      p.WorkSessionID,
		ChildWorkSessionID: p.ChildWorkSessionID,
		StepsData: domain.StepsData{
			ClaimedPhotoIDs: p.StepsData.ClaimedPhotoIDs,
			ClaimedCount:    p.StepsData.ClaimedCount,
			RetouchPhotoIDs: p.StepsData.RetouchPhotoIDs,
			RetouchCount:    p.StepsData.RetouchCount,
			TabloPhotoID:    p.StepsData.TabloPhotoID,
		},
	}
	if p.CurrentStep != "" {
		step, err := domain.ParseStep(p.CurrentStep)
		if err != nil {
			return nil, fmt.Errorf("progress: %w", err)
		}
		progress.CurrentStep = step
	}
	return progress, nil
}

// MapSaveResult converts an auto-save response
func MapSaveResult(r AutoSaveResponse) *domain.SaveResult {
	res := &domain.SaveResult{
		Message:        r.Message,
		CascadeMessage: r.CascadeMessage,
	}
	if r.CascadeDeleted != nil {
		res.CascadeDeleted = &domain.CascadeDeleted{
			Retouch: r.CascadeDeleted.Retouch,
			Tablo:   r.CascadeDeleted.Tablo,
		}
	}
	return res
}
