package domain

// StepsData is the per-step selection record the server keeps for a user
type StepsData struct {
	ClaimedPhotoIDs []int `json:"claimedPhotoIds,omitempty"`
	ClaimedCount    int   `json:"claimedCount,omitempty"`
	RetouchPhotoIDs []int `json:"retouchPhotoIds,omitempty"`
	RetouchCount    int   `json:"retouchCount,omitempty"`
	TabloPhotoID    *int  `json:"tabloPhotoId,omitempty"`
}

// WorkflowProgress is the server-authoritative progress snapshot.
// Client selection is seeded from it, never the reverse.
type WorkflowProgress struct {
	ID                 int       `json:"id"`
	UserID             int       `json:"userId"`
	WorkSessionID      int       `json:"workSessionId"`
	ChildWorkSessionID *int      `json:"childWorkSessionId,omitempty"`
	CurrentStep        Step      `json:"currentStep"`
	StepsData          StepsData `json:"stepsData"`
}

// ClaimedIDs returns the claimed photo ids
func (p *WorkflowProgress) ClaimedIDs() []int {
	if p == nil {
		return nil
	}
	return p.StepsData.ClaimedPhotoIDs
}

// RetouchIDs returns the photo ids marked for retouch
func (p *WorkflowProgress) RetouchIDs() []int {
	if p == nil {
		return nil
	}
	return p.StepsData.RetouchPhotoIDs
}

// TabloID returns the chosen tablo photo id, or 0 if none
func (p *WorkflowProgress) TabloID() int {
	if p == nil || p.StepsData.TabloPhotoID == nil {
		return 0
	}
	return *p.StepsData.TabloPhotoID
}
