package domain

type AllocationRequest struct {
	ModelID                       string         `json:"modelId" validate:"required"`
	UserID                        string         `json:"userId" validate:"required"`
	Reference                     string         `json:"reference" validate:"required"`
	Context                       map[string]any `json:"context"`
	AdUnits                       []any          `json:"adUnits" validate:"required,min=1"`
	MaxAdUnits                    *int           `json:"maxAdUnits,omitempty" validate:"omitempty,min=1"`
	AssignmentStickinessInSeconds int            `json:"assignmentStickinessInSeconds,omitempty" validate:"omitempty,min=0"`
}

type BatchAllocationRequest struct {
	Users []AllocationRequest `json:"users" validate:"required,min=1,dive"`
}

type Allocation struct {
	FloorResponse
	UserID    string `json:"userId"`
	ModelID   string `json:"modelId"`
	Reference string `json:"reference"`
}

type BatchAllocationResponse struct {
	Allocations []Allocation `json:"allocations"`
}

// AllocationDebug explains how one combination was scored.
type AllocationDebug struct {
	AdUnitIDs          []string       `json:"adUnitIds"`
	PredictedValue     float64        `json:"predictedBidFloor"`
	Context            map[string]any `json:"context"`
	TransformedContext map[string]any `json:"transformedContext,omitempty"`
	Features           []float64      `json:"features,omitempty"`
	Best               bool           `json:"best"`
}
