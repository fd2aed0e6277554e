package floors

import "smartBidFloor/domain"

// assembleResponse appends the lowest floor after the chosen combination.
func assembleResponse(chosen Combination, lowest domain.FloorRecord, propensity float64, estimates []domain.PredictionEstimate) domain.FloorResponse {
	ids := make([]string, 0, len(chosen)+1)
	values := make([]float64, 0, len(chosen)+1)
	for _, f := range chosen {
		ids = append(ids, f.ID)
		values = append(values, f.BidFloor)
	}
	ids = append(ids, lowest.ID)
	values = append(values, lowest.BidFloor)

	if estimates == nil {
		estimates = []domain.PredictionEstimate{}
	}
	return domain.FloorResponse{
		SelectedAdUnitIDs:      ids,
		SelectedBidFloorValues: values,
		Propensity:             propensity,
		Estimates:              estimates,
	}
}

func notModeled(ids []string) []domain.PredictionEstimate {
	return []domain.PredictionEstimate{{AdUnitIDs: ids, PredictedValue: NotModeledScore}}
}
