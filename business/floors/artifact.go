package floors

import "fmt"

// Variant is the kind of predictor an artifact produces.
type Variant string

const (
	VariantColdStart        Variant = "cold_start"
	VariantTrainedModel     Variant = "trained_model"
	VariantNearestHeuristic Variant = "nearest_heuristic"
)

// Artifact is a loaded model bundle. Which optional parts are set decides
// the predictor variant.
type Artifact struct {
	Kind          Variant
	Epsilon       *float64
	ValueReplacer *ValueReplacer
	Features      *Features
	Model         Regressor
	Nearest       *NearestConfig
}

// Variant resolves the predictor kind. An artifact declared as a trained
// model must carry a usable model and schema.
func (a Artifact) Variant() (Variant, error) {
	var v Variant
	switch {
	case a.Nearest != nil:
		v = VariantNearestHeuristic
	case a.Model != nil:
		v = VariantTrainedModel
	case a.Kind == VariantTrainedModel:
		return "", fmt.Errorf("%w: artifact has no model", ErrModelExpected)
	default:
		v = VariantColdStart
	}

	if a.Kind != "" && a.Kind != v {
		return "", fmt.Errorf("%w: artifact declares %s but contains %s", ErrModelExpected, a.Kind, v)
	}

	if v == VariantTrainedModel {
		if a.Features == nil || a.Features.Len() == 0 {
			return "", fmt.Errorf("%w: trained model without feature schema", ErrModelExpected)
		}
		if n := a.Model.NumFeatures(); n > 0 && n != a.Features.Len() {
			return "", fmt.Errorf("%w: model expects %d features, schema has %d", ErrModelExpected, n, a.Features.Len())
		}
	}
	return v, nil
}

// EmptyArtifact is the cold-start bundle served before any training.
func EmptyArtifact(epsilon float64) Artifact {
	return Artifact{
		Kind:          VariantColdStart,
		Epsilon:       &epsilon,
		ValueReplacer: NewValueReplacer(nil, DefaultCategory),
		Features:      NewFeatures(nil),
	}
}
