package models

// FilterKind selects how a ColumnFilterSpec constrains its column
type FilterKind string

const (
	FilterRange   FilterKind = "range"
	FilterPattern FilterKind = "pattern"
)

// ColumnFilterSpec is one user constraint on one column. An empty Kind is
// resolved from the column type. Nil Min/Max default to the column domain.
type ColumnFilterSpec struct {
	Column  string     `json:"column"`
	Kind    FilterKind `json:"kind,omitempty"`
	Min     *float64   `json:"min,omitempty"`
	Max     *float64   `json:"max,omitempty"`
	Pattern string     `json:"pattern,omitempty"`
}

// DatasetStatus describes one loaded table
type DatasetStatus struct {
	Name    string `json:"name"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
}

// StatusResponse is returned by /api/datasets
type StatusResponse struct {
	Source   string          `json:"source"`
	Datasets []DatasetStatus `json:"datasets"`
}

// RulesRequest for /api/rules/graph, /api/rules/export and /api/rules/publish
type RulesRequest struct {
	Filters []ColumnFilterSpec `json:"filters"`
	Label   string             `json:"label,omitempty"`
}

// PublishResponse for /api/rules/publish
type PublishResponse struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}
