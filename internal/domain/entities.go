package domain

import "time"

// Photo is a proofing photo as produced by the backend mapper.
// Identity is ID; values are immutable once mapped.
type Photo struct {
	ID           int    `json:"id"`
	FullURL      string `json:"fullUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Filename     string `json:"filename"`
}

// StepMetadata governs validation and grid interaction mode for a step.
// MaxSelection is nil when the step is uncapped.
type StepMetadata struct {
	AllowMultiple bool   `json:"allowMultiple"`
	MaxSelection  *int   `json:"maxSelection,omitempty"`
	Description   string `json:"description"`
}

// WorkSession is the backend aggregate the gallery belongs to
type WorkSession struct {
	ID               int  `json:"id"`
	MaxRetouchPhotos *int `json:"maxRetouchPhotos,omitempty"`
}

// ReviewGroups holds the photos of every step, shown once the workflow is completed
type ReviewGroups struct {
	Claiming []Photo `json:"claiming"`
	Retouch  []Photo `json:"retouch"`
	Tablo    *Photo  `json:"tablo,omitempty"`
}

// ModificationInfo describes whether a finalized selection can be reopened for free
type ModificationInfo struct {
	FreeUntil *time.Time `json:"freeUntil,omitempty"`
	IsFree    bool       `json:"isFree"`
	Price     int        `json:"price"`
}

// StepData is the full server-authoritative snapshot returned by every
// load and transition call. It replaces client state wholesale.
type StepData struct {
	CurrentStep      Step              `json:"currentStep"`
	VisiblePhotos    []Photo           `json:"visiblePhotos"`
	SelectedPhotos   []int             `json:"selectedPhotos"`
	StepMetadata     StepMetadata      `json:"stepMetadata"`
	AlbumID          int               `json:"albumId"`
	Progress         *WorkflowProgress `json:"progress,omitempty"`
	WorkSession      WorkSession       `json:"workSession"`
	ReviewGroups     *ReviewGroups     `json:"reviewGroups,omitempty"`
	ModificationInfo *ModificationInfo `json:"modificationInfo,omitempty"`
}

// PendingSave is the single desired selection state awaiting dispatch
type PendingSave struct {
	GalleryID int
	PhotoIDs  []int
	Step      Step
}

// CascadeDeleted lists later-step selections the server removed after an
// earlier step's claim set shrank.
type CascadeDeleted struct {
	Retouch []int `json:"retouch,omitempty"`
	Tablo   bool  `json:"tablo,omitempty"`
}

// SaveResult is the response of an auto-save endpoint
type SaveResult struct {
	Message        string
	CascadeDeleted *CascadeDeleted
	CascadeMessage string
}

// HasCascade reports whether the save removed selections from later steps
func (r SaveResult) HasCascade() bool {
	if r.CascadeMessage != "" {
		return true
	}
	return r.CascadeDeleted != nil && (len(r.CascadeDeleted.Retouch) > 0 || r.CascadeDeleted.Tablo)
}

// ModificationResult is the response of a request-modification call
type ModificationResult struct {
	Success bool
	WasFree bool
	Message string
}

// PhotoIDs returns the ids of photos in order
func PhotoIDs(photos []Photo) []int {
	ids := make([]int, len(photos))
	for i, p := range photos {
		ids[i] = p.ID
	}
	return ids
}

// IntPtr returns a pointer to v, handy for MaxSelection literals
func IntPtr(v int) *int {
	return &v
}
