package validation

// TransitionRequest is the payload for POST /orders/:id/transitions
type TransitionRequest struct {
	Status string `json:"status" validate:"required,workflow_status"` // target workflow state
	Notes  string `json:"notes,omitempty" validate:"max=2000"`
}

// AssignRequest is the payload for PUT /orders/:id/items/:itemId/assignment
type AssignRequest struct {
	ArtistID string `json:"artist_id" validate:"required,max=128"`
}

// AssignPaintableRequest is the payload for POST /orders/:id/assign-paintable
type AssignPaintableRequest struct {
	ArtistID string `json:"artist_id" validate:"required,max=128"`
}

// AddOnRequest sets the add-on flag explicitly. A missing is_add_on toggles it.
type AddOnRequest struct {
	IsAddOn *bool `json:"is_add_on,omitempty"`
}

// ItemStatusRequest is the payload for PUT /orders/:id/items/:itemId/status
type ItemStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=in_progress completed"`
}
