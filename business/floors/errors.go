package floors

import "errors"

var (
	ErrNoCandidates           = errors.New("no candidate floors")
	ErrUnsupportedCardinality = errors.New("unsupported cardinality")
	ErrDuplicateFloorID       = errors.New("duplicate floor id")
	ErrInvalidFloor           = errors.New("invalid floor record")
	ErrInvalidEpsilon         = errors.New("epsilon must be within [0, 1]")
	ErrModelNotFound          = errors.New("model not found")
	ErrModelExpected          = errors.New("trained model expected but not usable")
)
