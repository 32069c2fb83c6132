package studio

import "time"

// APIPhoto is a photo as the backend serializes it
type APIPhoto struct {
	ID           int        `json:"id"`
	Filename     string     `json:"filename"`
	URL          string     `json:"url,omitempty"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	Media        []APIMedia `json:"media,omitempty"`
}

// APIMedia is one stored rendition of a photo
type APIMedia struct {
	ID          int    `json:"id"`
	OriginalURL string `json:"original_url"`
	PreviewURL  string `json:"preview_url,omitempty"`
}

// StepMetadataDTO is the per-step interaction settings
type StepMetadataDTO struct {
	AllowMultiple bool   `json:"allow_multiple"`
	MaxSelection  *int   `json:"max_selection"`
	Description   string `json:"description,omitempty"`
}

// StepsDataDTO is the server's record of every step's selection
type StepsDataDTO struct {
	ClaimedPhotoIDs []int `json:"claimed_photo_ids,omitempty"`
	ClaimedCount    int   `json:"claimed_count,omitempty"`
	RetouchPhotoIDs []int `json:"retouch_photo_ids,omitempty"`
	RetouchCount    int   `json:"retouch_count,omitempty"`
	TabloPhotoID    *int  `json:"tablo_photo_id,omitempty"`
}

// ProgressDTO is the user's workflow progress row
type ProgressDTO struct {
	ID                 int          `json:"id"`
	UserID             int          `json:"user_id"`
	WorkSessionID      int          `json:"work_session_id"`
	ChildWorkSessionID *int         `json:"child_work_session_id,omitempty"`
	CurrentStep        string       `json:"current_step"`
	StepsData          StepsDataDTO `json:"steps_data"`
}

// WorkSessionDTO is the gallery's work session
type WorkSessionDTO struct {
	ID               int  `json:"id"`
	MaxRetouchPhotos *int `json:"max_retouch_photos,omitempty"`
}

// ReviewGroupsDTO holds every step's photos for the completed summary
type ReviewGroupsDTO struct {
	Claiming []APIPhoto `json:"claiming"`
	Retouch  []APIPhoto `json:"retouch"`
	Tablo    *APIPhoto  `json:"tablo,omitempty"`
}

// ModificationInfoDTO describes the reopen window of a finalized order
type ModificationInfoDTO struct {
	FreeUntil *time.Time `json:"free_until,omitempty"`
	IsFree    bool       `json:"is_free"`
	Price     int        `json:"price"`
}

// StepDataResponse is the unified step-data payload
type StepDataResponse struct {
	CurrentStep      string               `json:"current_step"`
	VisiblePhotos    []APIPhoto           `json:"visible_photos"`
	SelectedPhotos   []int                `json:"selected_photos"`
	StepMetadata     StepMetadataDTO      `json:"step_metadata"`
	AlbumID          int                  `json:"album_id"`
	Progress         *ProgressDTO         `json:"progress"`
	WorkSession      WorkSessionDTO       `json:"work_session"`
	ReviewGroups     *ReviewGroupsDTO     `json:"review_groups,omitempty"`
	ModificationInfo *ModificationInfoDTO `json:"modification_info,omitempty"`
}

// CascadeDeletedDTO lists later-step selections removed by the server
type CascadeDeletedDTO struct {
	Retouch []int `json:"retouch,omitempty"`
	Tablo   bool  `json:"tablo,omitempty"`
}

// AutoSaveResponse is the response of the save endpoints
type AutoSaveResponse struct {
	Message        string             `json:"message"`
	CascadeDeleted *CascadeDeletedDTO `json:"cascade_deleted,omitempty"`
	CascadeMessage string             `json:"cascade_message,omitempty"`
}

// ModificationResponse is the response of request-modification
type ModificationResponse struct {
	Success bool   `json:"success"`
	WasFree bool   `json:"was_free"`
	Message string `json:"message"`
}

// ErrorResponse is the error body the backend sends with non-2xx statuses
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// galleryRequest is the body of gallery-scoped POSTs without extra fields
type galleryRequest struct {
	GallerySessionID int `json:"gallerySessionId"`
}

// photoIDsRequest replaces a step's photo set; an empty list clears it
type photoIDsRequest struct {
	GallerySessionID int   `json:"gallerySessionId"`
	PhotoIDs         []int `json:"photoIds"`
}

// photoRequest sets the single tablo photo
type photoRequest struct {
	GallerySessionID int `json:"gallerySessionId"`
	PhotoID          int `json:"photoId"`
}

// moveRequest jumps the workflow back to TargetStep
type moveRequest struct {
	GallerySessionID int    `json:"gallerySessionId"`
	TargetStep       string `json:"targetStep"`
}
