package domain

// FloorRecord is one candidate price floor (an ad unit) offered to the engine.
type FloorRecord struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	BidFloor float64 `json:"bidFloor"`
}

type PredictionEstimate struct {
	AdUnitIDs      []string `json:"adUnitIds"`
	PredictedValue float64  `json:"predictedBidFloor"`
}

// FloorResponse is the decision for one context. The always-included lowest
// floor is the last element of both lists.
type FloorResponse struct {
	SelectedAdUnitIDs      []string             `json:"cpmFloorAdUnitIds"`
	SelectedBidFloorValues []float64            `json:"cpmFloorValues"`
	Propensity             float64              `json:"propensity"`
	Estimates              []PredictionEstimate `json:"estimates"`
}
