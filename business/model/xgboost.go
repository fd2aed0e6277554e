package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrUnsupportedBooster   = errors.New("unsupported booster")
	ErrUnsupportedObjective = errors.New("unsupported objective")
	ErrFeatureCount         = errors.New("feature count mismatch")
)

type link int

const (
	linkIdentity link = iota
	linkLogistic
	linkExp
)

// TreeEnsemble evaluates a gradient boosted tree regressor exported in the
// XGBoost JSON model format. Safe for concurrent use.
type TreeEnsemble struct {
	trees        []tree
	baseMargin   float32
	link         link
	numFeature   int
	featureNames []string
	objective    string
}

func (m *TreeEnsemble) NumFeatures() int       { return m.numFeature }
func (m *TreeEnsemble) FeatureNames() []string { return append([]string(nil), m.featureNames...) }
func (m *TreeEnsemble) Objective() string      { return m.objective }
func (m *TreeEnsemble) NumTrees() int          { return len(m.trees) }

// Predict scores every row; each row must have NumFeatures values with NaN
// for missing.
func (m *TreeEnsemble) Predict(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if m.numFeature > 0 && len(row) != m.numFeature {
			return nil, fmt.Errorf("%w: row %d has %d values, model expects %d", ErrFeatureCount, i, len(row), m.numFeature)
		}
		margin := m.baseMargin
		for t := range m.trees {
			margin += m.trees[t].leaf(row)
		}
		out[i] = m.transform(margin)
	}
	return out, nil
}

func (m *TreeEnsemble) transform(margin float32) float64 {
	switch m.link {
	case linkLogistic:
		return float64(float32(1.0 / (1.0 + math.Exp(-float64(margin)))))
	case linkExp:
		return float64(float32(math.Exp(float64(margin))))
	default:
		return float64(margin)
	}
}

type xgbDocument struct {
	Learner struct {
		FeatureNames     []string `json:"feature_names"`
		LearnerModelParm struct {
			BaseScore  string `json:"base_score"`
			NumFeature string `json:"num_feature"`
			NumClass   string `json:"num_class"`
		} `json:"learner_model_param"`
		GradientBooster struct {
			Name  string `json:"name"`
			Model struct {
				Trees []xgbTree `json:"trees"`
			} `json:"model"`
		} `json:"gradient_booster"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
	} `json:"learner"`
}

type xgbTree struct {
	LeftChildren       []int32   `json:"left_children"`
	RightChildren      []int32   `json:"right_children"`
	SplitIndices       []int32   `json:"split_indices"`
	SplitConditions    []float32 `json:"split_conditions"`
	DefaultLeft        flagList  `json:"default_left"`
	SplitType          []uint8   `json:"split_type"`
	Categories         []int32   `json:"categories"`
	CategoriesNodes    []int32   `json:"categories_nodes"`
	CategoriesSegments []int64   `json:"categories_segments"`
	CategoriesSizes    []int64   `json:"categories_sizes"`
}

// flagList accepts both 0/1 integers and booleans.
type flagList []bool

func (f *flagList) UnmarshalJSON(b []byte) error {
	var bools []bool
	if err := json.Unmarshal(b, &bools); err == nil {
		*f = bools
		return nil
	}
	var ints []int
	if err := json.Unmarshal(b, &ints); err != nil {
		return fmt.Errorf("default_left: %w", err)
	}
	out := make([]bool, len(ints))
	for i, v := range ints {
		out[i] = v != 0
	}
	*f = out
	return nil
}

// ParseXGBoostJSON loads a model saved with Booster.save_model("*.json").
func ParseXGBoostJSON(b []byte) (*TreeEnsemble, error) {
	var doc xgbDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode xgboost model: %w", err)
	}
	l := doc.Learner

	if name := l.GradientBooster.Name; name != "gbtree" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBooster, name)
	}
	if nc := strings.TrimSpace(l.LearnerModelParm.NumClass); nc != "" && nc != "0" && nc != "1" {
		return nil, fmt.Errorf("%w: multi-class models are not supported", ErrUnsupportedObjective)
	}

	m := &TreeEnsemble{
		featureNames: l.FeatureNames,
		objective:    l.Objective.Name,
	}

	base, err := parseScalar(l.LearnerModelParm.BaseScore)
	if err != nil {
		return nil, fmt.Errorf("base_score: %w", err)
	}
	switch m.objective {
	case "reg:squarederror", "reg:squaredlogerror", "reg:absoluteerror", "reg:pseudohubererror", "reg:quantileerror", "":
		m.link = linkIdentity
		m.baseMargin = float32(base)
	case "reg:logistic", "binary:logistic":
		m.link = linkLogistic
		m.baseMargin = float32(-math.Log(1/base - 1))
	case "count:poisson", "reg:gamma", "reg:tweedie":
		m.link = linkExp
		m.baseMargin = float32(math.Log(base))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedObjective, m.objective)
	}

	if nf := strings.TrimSpace(l.LearnerModelParm.NumFeature); nf != "" {
		n, err := strconv.Atoi(nf)
		if err != nil {
			return nil, fmt.Errorf("num_feature: %w", err)
		}
		m.numFeature = n
	}
	if len(m.featureNames) > 0 && m.numFeature > 0 && len(m.featureNames) != m.numFeature {
		return nil, fmt.Errorf("%w: %d feature names for %d features", ErrFeatureCount, len(m.featureNames), m.numFeature)
	}

	m.trees = make([]tree, 0, len(l.GradientBooster.Model.Trees))
	for i, xt := range l.GradientBooster.Model.Trees {
		t, err := buildTree(xt)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		if err := t.validate(m.numFeature); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		m.trees = append(m.trees, t)
	}
	return m, nil
}

func buildTree(xt xgbTree) (tree, error) {
	t := tree{
		left:        xt.LeftChildren,
		right:       xt.RightChildren,
		feature:     xt.SplitIndices,
		cond:        xt.SplitConditions,
		defaultLeft: xt.DefaultLeft,
	}
	if len(xt.SplitType) > 0 {
		t.splitType = xt.SplitType
	}
	if len(xt.CategoriesNodes) == 0 {
		return t, nil
	}
	if len(xt.CategoriesSegments) != len(xt.CategoriesNodes) || len(xt.CategoriesSizes) != len(xt.CategoriesNodes) {
		return tree{}, fmt.Errorf("categorical split arrays differ in length")
	}
	t.categories = make(map[int32]map[int32]struct{}, len(xt.CategoriesNodes))
	for k, node := range xt.CategoriesNodes {
		start, size := xt.CategoriesSegments[k], xt.CategoriesSizes[k]
		if start < 0 || size < 0 || start+size > int64(len(xt.Categories)) {
			return tree{}, fmt.Errorf("node %d category segment out of range", node)
		}
		set := make(map[int32]struct{}, size)
		for _, c := range xt.Categories[start : start+size] {
			set[c] = struct{}{}
		}
		t.categories[node] = set
	}
	return t, nil
}

// parseScalar reads values stored as "5E-1" or "[5E-1]".
func parseScalar(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if s == "" {
		return 0.5, nil
	}
	return strconv.ParseFloat(s, 64)
}
