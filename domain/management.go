package domain

// ETLContextField describes one context attribute collected for an app.
type ETLContextField struct {
	Name     string `json:"name"`
	Path     string `json:"path,omitempty"`
	DataType string `json:"dataType"`
}

type ETLConfig struct {
	Context              []ETLContextField `json:"context"`
	LookbackWindowInDays int               `json:"lookbackWindowInDays"`
}

type ModelConfig struct {
	ModelID    string         `json:"modelId"`
	Parameters map[string]any `json:"parameters"`
}
